package taskpoll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowork/terminal/internal/domain"
)

func fastPoller(attempts uint64) Poller {
	return Poller{Interval: time.Millisecond, MaxInterval: 2 * time.Millisecond, MaxAttempts: attempts}
}

func scripted(statuses ...any) Fetch {
	i := 0
	return func(ctx context.Context) (domain.TaskStatus, error) {
		item := statuses[len(statuses)-1]
		if i < len(statuses) {
			item = statuses[i]
		}
		i++
		if err, ok := item.(error); ok {
			return domain.TaskStatus{}, err
		}
		return item.(domain.TaskStatus), nil
	}
}

func TestPollCompletes(t *testing.T) {
	var seen []int
	fetch := scripted(
		domain.TaskStatus{Status: domain.TaskProcessing, Percent: 10, Current: 1, Total: 10},
		domain.TaskStatus{Status: domain.TaskProcessing, Percent: 60, Current: 6, Total: 10},
		domain.TaskStatus{Status: domain.TaskCompleted, Result: &domain.TaskResult{Message: "10건 반영"}},
	)

	out, err := fastPoller(10).Poll(context.Background(), fetch, func(s domain.TaskStatus) {
		seen = append(seen, s.Percent)
	})
	require.NoError(t, err)
	assert.Equal(t, Completed, out.State)
	assert.True(t, out.Done())
	assert.Equal(t, "10건 반영", out.Message)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, []int{10, 60}, seen)
}

func TestPollReportsTaskError(t *testing.T) {
	fetch := scripted(domain.TaskStatus{Status: domain.TaskError, Message: "시트를 찾을 수 없습니다"})
	out, err := fastPoller(5).Poll(context.Background(), fetch, nil)
	require.NoError(t, err)
	assert.Equal(t, Failed, out.State)
	assert.Equal(t, "시트를 찾을 수 없습니다", out.Message)
}

func TestTransportErrorCountsAsAttempt(t *testing.T) {
	fetch := scripted(
		errors.New("connection reset"),
		domain.TaskStatus{Status: domain.TaskCompleted, Result: &domain.TaskResult{Message: "ok"}},
	)
	out, err := fastPoller(5).Poll(context.Background(), fetch, nil)
	require.NoError(t, err)
	assert.Equal(t, Completed, out.State)
	assert.Equal(t, 2, out.Attempts)
}

func TestPollTimesOutAfterMaxAttempts(t *testing.T) {
	fetch := scripted(domain.TaskStatus{Status: domain.TaskProcessing})
	out, err := fastPoller(4).Poll(context.Background(), fetch, nil)
	require.NoError(t, err)
	assert.Equal(t, TimedOut, out.State)
	assert.Equal(t, 4, out.Attempts)
}

func TestPollStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	fetch := func(ctx context.Context) (domain.TaskStatus, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return domain.TaskStatus{Status: domain.TaskProcessing}, nil
	}

	out, err := fastPoller(100).Poll(ctx, fetch, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Cancelled, out.State)
	assert.Equal(t, 2, calls)
}
