package notify

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDrainsInOrder(t *testing.T) {
	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	q := NewQueue(func() time.Time { return now })

	q.Toast(Success, "저장되었습니다")
	q.Inline("scan-status", Danger, "오류: 없는 바코드")
	q.AskConfirm("reset", "목록을 초기화하시겠습니까?")
	require.Equal(t, 3, q.Len())

	got := q.Drain()
	require.Len(t, got, 3)
	assert.Equal(t, Success, got[0].Kind)
	assert.Equal(t, "scan-status", got[1].Target)
	require.NotNil(t, got[1].ExpiresAt)
	assert.Equal(t, now.Add(InlineTTL), *got[1].ExpiresAt)
	assert.Equal(t, Confirm, got[2].Kind)
	assert.Equal(t, "reset", got[2].Action)

	assert.Empty(t, q.Drain())
}

func TestStatusHidesAfterTTL(t *testing.T) {
	now := time.Now()
	s := NewStatus(Success, "스캔 성공", now)
	assert.True(t, s.Visible(now.Add(2*time.Second)))
	assert.False(t, s.Visible(now.Add(InlineTTL)))
	assert.False(t, Status{}.Visible(now))
}

func TestAlways(t *testing.T) {
	assert.True(t, Always(true).Confirm(context.Background(), "?"))
	assert.False(t, Always(false).Confirm(context.Background(), "?"))
}

func TestPrompt(t *testing.T) {
	var out bytes.Buffer
	p := &Prompt{In: strings.NewReader("y\nno\n예\n"), Out: &out}
	ctx := context.Background()

	assert.True(t, p.Confirm(ctx, "전송할까요?"))
	assert.False(t, p.Confirm(ctx, "전송할까요?"))
	assert.True(t, p.Confirm(ctx, "전송할까요?"))
	assert.False(t, p.Confirm(ctx, "전송할까요?"))
	assert.Contains(t, out.String(), "전송할까요? [y/N]: ")
}
