package page

import (
	"context"
	"encoding/json"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/notify"
	"flowork/terminal/internal/view"
)

const defaultEventTypes = "일정,휴무,연차,반차"

type scheduleConfig struct {
	EventsURL    string `json:"events_url" validate:"required"`
	AddURL       string `json:"add_url" validate:"required"`
	UpdatePrefix string `json:"update_prefix" validate:"required"`
	DeletePrefix string `json:"delete_prefix" validate:"required"`
	HolidaysURL  string `json:"holidays_url" validate:"required"`
	EventTypes   string `json:"event_types"`
	Staff        string `json:"staff"`
}

type schedulePage struct {
	base
	cfg   scheduleConfig
	state view.ScheduleState
}

func newSchedule(raw map[string]string, deps Deps, notes notify.Notifier) (*schedulePage, error) {
	var cfg scheduleConfig
	if err := bindConfig(raw, &cfg); err != nil {
		return nil, err
	}
	p := &schedulePage{cfg: cfg}
	if err := unmarshalConfig("staff", cfg.Staff, &p.state.Staff); err != nil {
		return nil, err
	}
	for _, t := range strings.Split(orDefault(cfg.EventTypes, defaultEventTypes), ",") {
		if t = strings.TrimSpace(t); t != "" {
			p.state.EventTypes = append(p.state.EventTypes, t)
		}
	}
	p.init(KindSchedule, deps, notes)
	p.actions = map[string]handler{
		"load_events":   p.loadEvents,
		"load_holidays": p.loadHolidays,
		"new_event":     p.newEvent,
		"open_event":    p.openEvent,
		"save_event":    p.saveEvent,
		"delete_event":  p.deleteEvent,
		"close_modal":   p.closeModal,
	}
	return p, nil
}

func (p *schedulePage) View() view.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state
	s.Events = slices.Clone(p.state.Events)
	if p.state.Editing != nil {
		ev := *p.state.Editing
		s.Editing = &ev
	}
	return view.Schedule(s)
}

func (p *schedulePage) loadEvents(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if in.Start == "" && in.End == "" {
		in.Start, in.End = p.state.RangeStart, p.state.RangeEnd
	}
	if in.Start == "" || in.End == "" {
		today, _ := p.deps.Format.ParseDate(p.deps.Format.Today(p.now()))
		first := today.AddDate(0, 0, 1-today.Day())
		in.Start = p.deps.Format.Date(first)
		in.End = p.deps.Format.Date(first.AddDate(0, 1, 0))
	}
	events, err := p.deps.Client.Events(ctx, p.cfg.EventsURL, in.Start, in.End)
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.state.RangeStart, p.state.RangeEnd = in.Start, in.End
	p.state.Events = events
	return nil
}

func (p *schedulePage) loadHolidays(ctx context.Context, _ json.RawMessage) error {
	holidays, err := p.deps.Client.Holidays(ctx, p.cfg.HolidaysURL)
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.state.Holidays = holidays
	return nil
}

func (p *schedulePage) newEvent(_ context.Context, payload json.RawMessage) error {
	var in struct {
		Date string `json:"date"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	ev := domain.ScheduleEvent{
		EventType: domain.EventTypeSchedule,
		StartTime: in.Date,
		AllDay:    true,
		Color:     domain.DefaultEventColor,
	}
	if ev.StartTime == "" {
		ev.StartTime = p.deps.Format.Today(p.now())
	}
	p.state.Editing = &ev
	return nil
}

// openEvent loads a listed event into the form. All-day ends are stored
// exclusive, so the form shows the day before.
func (p *schedulePage) openEvent(_ context.Context, payload json.RawMessage) error {
	var in struct {
		ID Int `json:"id"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	idx := slices.IndexFunc(p.state.Events, func(e domain.CalendarEvent) bool { return e.ID == int64(in.ID) })
	if idx < 0 {
		return errors.Wrapf(ErrBadPayload, "event %d is not loaded", in.ID)
	}
	ce := p.state.Events[idx]
	ev := domain.ScheduleEvent{
		ID:        ce.ID,
		StaffID:   ce.Props.StaffID,
		EventType: ce.Props.EventType,
		Title:     ce.Props.RawTitle,
		StartTime: ce.Start,
		AllDay:    ce.AllDay,
		Color:     ce.Color,
	}
	if ce.End != nil {
		ev.EndTime = *ce.End
		if ce.AllDay {
			if t, err := p.deps.Format.ParseDate(datePart(ev.EndTime)); err == nil {
				ev.EndTime = p.deps.Format.Date(t.AddDate(0, 0, -1))
			}
		}
	}
	p.state.Editing = &ev
	return nil
}

type eventForm struct {
	ID        Int    `json:"id"`
	StaffID   Int    `json:"staff_id"`
	EventType string `json:"event_type"`
	Title     string `json:"title"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	AllDay    Flag   `json:"all_day"`
	Color     string `json:"color"`
}

func datePart(v string) string {
	if len(v) > len("2006-01-02") {
		return v[:len("2006-01-02")]
	}
	return v
}

// event turns the form into the request body. Non-schedule types take
// their type name as title; an all-day end is sent as the following day.
func (f eventForm) event(p *schedulePage) (domain.ScheduleEvent, string) {
	ev := domain.ScheduleEvent{
		ID:        int64(f.ID),
		StaffID:   int64(f.StaffID),
		EventType: strings.TrimSpace(f.EventType),
		Title:     strings.TrimSpace(f.Title),
		StartTime: strings.TrimSpace(f.StartTime),
		EndTime:   strings.TrimSpace(f.EndTime),
		AllDay:    bool(f.AllDay),
		Color:     strings.TrimSpace(f.Color),
	}
	if ev.EventType != "" && ev.EventType != domain.EventTypeSchedule {
		ev.Title = ev.EventType
	}
	if ev.StartTime == "" || ev.Title == "" || ev.EventType == "" {
		return ev, "필수 항목(시작일, 제목, 종류)이 누락되었습니다."
	}
	if ev.AllDay && ev.EndTime != "" {
		next, err := p.deps.Format.NextDay(datePart(ev.EndTime))
		if err != nil {
			return ev, "종료일 형식이 올바르지 않습니다."
		}
		ev.EndTime = next
	}
	if ev.Color == "" {
		ev.Color = domain.DefaultEventColor
	}
	return ev, ""
}

func (p *schedulePage) saveEvent(ctx context.Context, payload json.RawMessage) error {
	var in eventForm
	if p.state.Editing != nil {
		e := p.state.Editing
		in = eventForm{
			ID: Int(e.ID), StaffID: Int(e.StaffID), EventType: e.EventType, Title: e.Title,
			StartTime: e.StartTime, EndTime: e.EndTime, AllDay: Flag(e.AllDay), Color: e.Color,
		}
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	ev, problem := in.event(p)
	if problem != "" {
		p.reject(problem)
		return nil
	}
	msg, err := p.deps.Client.SaveEvent(ctx, p.cfg.AddURL, p.cfg.UpdatePrefix, ev)
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.notes.Toast(notify.Success, orDefault(msg, "저장되었습니다."))
	p.state.Editing = nil
	return p.refresh(ctx)
}

func (p *schedulePage) deleteEvent(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		ID Int `json:"id"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	id := int64(in.ID)
	if id == 0 && p.state.Editing != nil {
		id = p.state.Editing.ID
	}
	if !p.confirm(ctx, "일정을 삭제하시겠습니까?") {
		return nil
	}
	msg, err := p.deps.Client.DeleteEvent(ctx, p.cfg.DeletePrefix, id)
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.notes.Toast(notify.Success, orDefault(msg, "삭제되었습니다."))
	p.state.Editing = nil
	p.state.Events = slices.DeleteFunc(p.state.Events, func(e domain.CalendarEvent) bool { return e.ID == id })
	return nil
}

// refresh reloads the visible range after a save. A failed reload leaves the
// saved event off the list until the next load.
func (p *schedulePage) refresh(ctx context.Context) error {
	if p.state.RangeStart == "" || p.state.RangeEnd == "" {
		return nil
	}
	events, err := p.deps.Client.Events(ctx, p.cfg.EventsURL, p.state.RangeStart, p.state.RangeEnd)
	if err != nil {
		p.deps.Logger.Warn(ctx, "reload events failed: "+err.Error())
		return nil
	}
	p.state.Events = events
	return nil
}

func (p *schedulePage) closeModal(context.Context, json.RawMessage) error {
	p.state.Editing = nil
	return nil
}
