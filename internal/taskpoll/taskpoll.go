// Package taskpoll follows a server-side background task until it finishes,
// fails, runs out of attempts or the caller gives up.
package taskpoll

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/logger"
	"flowork/terminal/internal/metrics"
)

const (
	DefaultInterval    = time.Second
	DefaultMaxInterval = 5 * time.Second
	DefaultMaxAttempts = 600
)

type State string

const (
	Completed State = "completed"
	Failed    State = "failed"
	TimedOut  State = "timed_out"
	Cancelled State = "cancelled"
)

type Outcome struct {
	State    State
	Message  string
	Last     domain.TaskStatus
	Attempts int
}

func (o Outcome) Done() bool { return o.State == Completed }

type Fetch func(ctx context.Context) (domain.TaskStatus, error)

type Progress func(domain.TaskStatus)

type Poller struct {
	Interval    time.Duration
	MaxInterval time.Duration
	MaxAttempts uint64
	Multiplier  float64
	Logger      *logger.Logger
	Metrics     *metrics.Metrics
}

var errPending = errors.New("task still processing")

// Poll calls fetch until the task reports completed or error. A failed fetch
// uses up an attempt and polling continues. The returned error is non-nil
// only when ctx ended the loop.
func (p Poller) Poll(ctx context.Context, fetch Fetch, onProgress Progress) (Outcome, error) {
	log := p.Logger
	if log == nil {
		log = logger.Nop()
	}

	var out Outcome
	op := func() error {
		out.Attempts++
		status, err := fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			p.Metrics.IncTaskPoll("transport_error")
			log.Warn(log.WithField(ctx, "attempt", out.Attempts), "task status poll failed: "+err.Error())
			return err
		}
		out.Last = status
		switch status.Status {
		case domain.TaskCompleted:
			p.Metrics.IncTaskPoll(domain.TaskCompleted)
			out.State = Completed
			if status.Result != nil {
				out.Message = status.Result.Message
			}
			return nil
		case domain.TaskError:
			p.Metrics.IncTaskPoll(domain.TaskError)
			out.State = Failed
			out.Message = status.Message
			return nil
		default:
			p.Metrics.IncTaskPoll(domain.TaskProcessing)
			if onProgress != nil {
				onProgress(status)
			}
			return errPending
		}
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(p.backOff(), p.retries()), ctx))
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		out.State = Cancelled
		return out, errors.WithStack(ctxErr)
	}
	out.State = TimedOut
	return out, nil
}

func (p Poller) backOff() *backoff.ExponentialBackOff {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	maxInterval := p.MaxInterval
	if maxInterval < interval {
		maxInterval = interval
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1.5
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.MaxInterval = maxInterval
	b.Multiplier = multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return b
}

func (p Poller) retries() uint64 {
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = DefaultMaxAttempts
	}
	return attempts - 1
}
