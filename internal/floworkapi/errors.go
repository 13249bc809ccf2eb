package floworkapi

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// TransportError is a failure below the application layer: the connection
// broke, or the server answered with a non-JSON error page.
type TransportError struct {
	Endpoint   string
	StatusCode int
	Status     string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("Server Error: %d (%s)", e.StatusCode, e.Status)
	}
	if e.Err != nil {
		return "서버 통신 오류: " + e.Err.Error()
	}
	return "서버 통신 오류"
}

func (e *TransportError) Unwrap() error { return e.Err }

// AppError carries the message the server put in a JSON body, either with a
// non-2xx status or with a status other than "success".
type AppError struct {
	StatusCode int
	Message    string
}

func (e *AppError) Error() string { return e.Message }

// ValidationError is raised locally before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, message string) error {
	return errors.WithStack(&ValidationError{Field: field, Message: message})
}

func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

func IsApp(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// UserMessage renders err the way an operator should read it.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "요청이 취소되었습니다."
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "서버 응답 시간이 초과되었습니다."
	}
	var app *AppError
	if errors.As(err, &app) {
		return app.Message
	}
	var val *ValidationError
	if errors.As(err, &val) {
		return val.Message
	}
	var tr *TransportError
	if errors.As(err, &tr) {
		return tr.Error()
	}
	return errors.Cause(err).Error()
}
