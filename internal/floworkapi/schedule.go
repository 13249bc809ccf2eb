package floworkapi

import (
	"context"
	"net/http"
	"net/url"
	"sort"

	"flowork/terminal/internal/domain"
)

// SaveEvent creates the event when it has no id and updates it otherwise.
func (c *Client) SaveEvent(ctx context.Context, addPath, updatePrefix string, ev domain.ScheduleEvent) (string, error) {
	if ev.ID == 0 {
		return c.post(ctx, "schedule_add", addPath, ev)
	}
	return c.post(ctx, "schedule_update", expand(updatePrefix, ev.ID), ev)
}

func (c *Client) DeleteEvent(ctx context.Context, prefix string, id int64) (string, error) {
	if id <= 0 {
		return "", invalid("id", "삭제할 일정을 선택하세요.")
	}
	return c.delete(ctx, "schedule_delete", expand(prefix, id))
}

// Holidays fetches the date -> name map and returns it sorted by date.
func (c *Client) Holidays(ctx context.Context, path string) ([]domain.Holiday, error) {
	var raw map[string]string
	if err := c.do(ctx, call{endpoint: "holidays", method: http.MethodGet, path: path, out: &raw, raw: true}); err != nil {
		return nil, err
	}
	out := make([]domain.Holiday, 0, len(raw))
	for date, name := range raw {
		out = append(out, domain.Holiday{Date: date, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// Events lists the calendar events starting in [start, end).
func (c *Client) Events(ctx context.Context, path, start, end string) ([]domain.CalendarEvent, error) {
	if start == "" || end == "" {
		return nil, invalid("start", "날짜 범위가 잘못되었습니다.")
	}
	q := url.Values{"start": {start}, "end": {end}}
	var out []domain.CalendarEvent
	if err := c.do(ctx, call{endpoint: "schedule_events", method: http.MethodGet, path: path + "?" + q.Encode(), out: &out, raw: true}); err != nil {
		return nil, err
	}
	return out, nil
}
