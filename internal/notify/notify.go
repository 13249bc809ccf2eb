// Package notify carries operator feedback out of page controllers: toasts,
// blocking alerts, inline status lines and confirmation requests.
package notify

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

type Kind string

const (
	Success Kind = "success"
	Danger  Kind = "danger"
	Info    Kind = "info"
	Alert   Kind = "alert"
	Confirm Kind = "confirm"
)

// InlineTTL is how long an inline status stays visible.
const InlineTTL = 3 * time.Second

type Notice struct {
	Kind   Kind   `json:"kind"`
	Text   string `json:"text"`
	Target string `json:"target,omitempty"`
	// Action names the action to resend with confirm=true.
	Action    string     `json:"action,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type Notifier interface {
	Toast(kind Kind, text string)
	Alert(text string)
	Inline(target string, kind Kind, text string)
	AskConfirm(action, text string)
}

// Queue is a per-session FIFO of notices, drained into each response.
type Queue struct {
	mu    sync.Mutex
	items []Notice
	now   func() time.Time
}

func NewQueue(now func() time.Time) *Queue {
	if now == nil {
		now = time.Now
	}
	return &Queue{now: now}
}

func (q *Queue) push(n Notice) {
	q.mu.Lock()
	q.items = append(q.items, n)
	q.mu.Unlock()
}

func (q *Queue) Toast(kind Kind, text string) {
	q.push(Notice{Kind: kind, Text: text})
}

func (q *Queue) Alert(text string) {
	q.push(Notice{Kind: Alert, Text: text})
}

func (q *Queue) Inline(target string, kind Kind, text string) {
	expires := q.now().Add(InlineTTL)
	q.push(Notice{Kind: kind, Text: text, Target: target, ExpiresAt: &expires})
}

func (q *Queue) AskConfirm(action, text string) {
	q.push(Notice{Kind: Confirm, Text: text, Action: action})
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain returns the queued notices in order and empties the queue.
func (q *Queue) Drain() []Notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Status is an inline status line that hides itself after InlineTTL.
type Status struct {
	Kind      Kind
	Text      string
	ExpiresAt time.Time
}

func NewStatus(kind Kind, text string, now time.Time) Status {
	return Status{Kind: kind, Text: text, ExpiresAt: now.Add(InlineTTL)}
}

func (s Status) Visible(now time.Time) bool {
	return s.Text != "" && now.Before(s.ExpiresAt)
}

// Confirmer answers the yes/no questions a page asks before destructive or
// outward-facing actions.
type Confirmer interface {
	Confirm(ctx context.Context, question string) bool
}

// Always answers every question the same way. HTTP requests use it with the
// caller's confirm flag.
type Always bool

func (a Always) Confirm(context.Context, string) bool { return bool(a) }

// Prompt asks on a terminal.
type Prompt struct {
	In  io.Reader
	Out io.Writer

	once   sync.Once
	reader *bufio.Reader
}

func (p *Prompt) Confirm(ctx context.Context, question string) bool {
	if ctx.Err() != nil {
		return false
	}
	p.once.Do(func() { p.reader = bufio.NewReader(p.In) })
	fmt.Fprintf(p.Out, "%s [y/N]: ", question)
	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "예", "네", "ㅇ":
		return true
	default:
		return false
	}
}
