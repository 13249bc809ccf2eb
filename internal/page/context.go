package page

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"flowork/terminal/internal/cart"
	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/excelimport"
	"flowork/terminal/internal/floworkapi"
	"flowork/terminal/internal/notify"
	"flowork/terminal/internal/stockcheck"
)

type confirmerKey struct{}

type actorKey struct{}

type approvalKey struct{}

// WithConfirmer overrides the confirmer for the actions dispatched with ctx.
func WithConfirmer(ctx context.Context, c notify.Confirmer) context.Context {
	if c == nil {
		return ctx
	}
	return context.WithValue(ctx, confirmerKey{}, c)
}

func confirmerFrom(ctx context.Context, fallback notify.Confirmer) notify.Confirmer {
	if c, ok := ctx.Value(confirmerKey{}).(notify.Confirmer); ok {
		return c
	}
	return fallback
}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok
}

// WithManagerApproval marks ctx as carrying a verified manager PIN.
func WithManagerApproval(ctx context.Context) context.Context {
	return context.WithValue(ctx, approvalKey{}, true)
}

// managerApproved reports whether the actor may run manager-only actions.
// Requests without an actor come from the local CLI and are trusted.
func managerApproved(ctx context.Context) bool {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role == domain.RoleAdmin {
		return true
	}
	approved, _ := ctx.Value(approvalKey{}).(bool)
	return approved
}

// Int decodes from a JSON number or a numeric string, since form fields
// arrive as text.
type Int int64

func (n *Int) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return errors.Errorf("%q is not a number", s)
		}
		*n = Int(v)
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Int(v)
	return nil
}

var localMessages = map[error]string{
	cart.ErrEmptyCart:             "상품이 없습니다.",
	cart.ErrAlreadyHeld:           "이미 보류된 판매가 있습니다.",
	cart.ErrNothingHeld:           "보류된 판매가 없습니다.",
	cart.ErrNoRefundTarget:        "환불할 영수증을 선택하세요.",
	cart.ErrWrongMode:             "현재 모드에서 사용할 수 없습니다.",
	cart.ErrInvalidMode:           "잘못된 모드입니다.",
	stockcheck.ErrEmptyBarcode:    "바코드를 입력하세요.",
	stockcheck.ErrNotScanning:     "리딩을 먼저 켜주세요.",
	stockcheck.ErrNoStore:         "작업할 매장을 먼저 선택해주세요.",
	stockcheck.ErrEmptyList:       "저장할 스캔 내역이 없습니다.",
	stockcheck.ErrConfirmRequired: "확인이 필요합니다.",
	ErrBadPayload:                 "입력값이 올바르지 않습니다.",
}

// userText maps an action error to the Korean message an operator sees.
func userText(err error) string {
	for sentinel, text := range localMessages {
		if errors.Is(err, sentinel) {
			return text
		}
	}
	for _, sentinel := range []error{
		excelimport.ErrNoData, excelimport.ErrNotExcel, excelimport.ErrNoFile,
		excelimport.ErrUnknownRow, excelimport.ErrNotVerified,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	if floworkapi.IsTransport(err) {
		return "서버 통신 오류 발생"
	}
	return floworkapi.UserMessage(err)
}

// Flag decodes page settings and server flags such as "true", "1", true
// or 1. Any non-zero number is true.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = false
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return f.parse(s)
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*f = Flag(data[0] == 't')
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return errors.Errorf("%s is not a boolean", data)
	}
	*f = v != 0
	return nil
}

func (f *Flag) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*f = false
		return nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		*f = Flag(b)
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.Errorf("%q is not a boolean", s)
	}
	*f = v != 0
	return nil
}

func (n *Int) ptr() *int64 {
	if n == nil {
		return nil
	}
	v := int64(*n)
	return &v
}
