package view

import (
	"flowork/terminal/internal/domain"
)

type ScheduleState struct {
	RangeStart string
	RangeEnd   string
	Events     []domain.CalendarEvent
	Holidays   []domain.Holiday
	Staff      []domain.Staff
	EventTypes []string

	// Editing is set while the event form is open. A zero ID is a new event.
	Editing *domain.ScheduleEvent
}

func Schedule(s ScheduleState) Node {
	holidays := El("ul").WithID("holiday-list")
	for _, h := range s.Holidays {
		holidays = holidays.Append(Txt("li", h.Date+" "+h.Name).WithRole("holiday").WithAttr("data-date", h.Date))
	}

	rows := make([]Node, 0, len(s.Events))
	for _, ev := range s.Events {
		end := ""
		if ev.End != nil {
			end = *ev.End
		}
		rows = append(rows, El("tr",
			Txt("td", ev.Start),
			Txt("td", end),
			Txt("td", ev.Title),
			Txt("td", ev.Props.EventType),
		).WithRole("event").
			WithClass("event-type-"+ev.Props.EventType).
			WithAttr("style", "border-left-color: "+ev.Color).
			Action("open_event", "id", i64toa(ev.ID)))
	}

	page := El("main",
		El("div",
			input("range-start", "start", s.RangeStart),
			input("range-end", "end", s.RangeEnd),
			button("조회", "load_events").WithClass("btn-primary"),
			button("일정 추가", "new_event").WithID("btn-new-event"),
		).WithID("schedule-range").WithClass("toolbar"),
		table("schedule-table", []string{"시작", "종료", "제목", "종류"}, rows, "등록된 일정이 없습니다.", 4),
		holidays,
	).WithID("schedule")
	if s.Editing != nil {
		page = page.Append(eventDialog(s))
	}
	return page
}

func eventDialog(s ScheduleState) Node {
	ev := s.Editing
	staff := El("select", option("0", "매장 전체", ev.StaffID == 0)).WithID("event-staff").WithAttr("name", "staff_id")
	for _, st := range s.Staff {
		staff = staff.Append(option(i64toa(st.ID), st.Name, ev.StaffID == st.ID))
	}
	types := El("select").WithID("event-type").WithAttr("name", "event_type")
	for _, t := range s.EventTypes {
		types = types.Append(option(t, t, ev.EventType == t))
	}
	allDay := Node{Tag: "input", ID: "event-all-day"}.WithAttr("type", "checkbox").WithAttr("name", "all_day")
	if ev.AllDay {
		allDay = allDay.WithAttr("checked", "true")
	}
	color := ev.Color
	if color == "" {
		color = domain.DefaultEventColor
	}
	title := "일정 추가"
	if ev.ID != 0 {
		title = "일정 수정"
	}
	return El("dialog",
		Txt("h3", title).WithID("event-modal-title"),
		staff,
		types,
		input("event-title", "title", ev.Title).Disabled(ev.EventType != "" && ev.EventType != domain.EventTypeSchedule),
		input("event-start", "start_time", ev.StartTime),
		input("event-end", "end_time", ev.EndTime),
		allDay,
		input("event-color", "color", color).WithAttr("type", "color"),
		button("저장", "save_event").WithID("btn-save-event").WithClass("btn-primary"),
		When(ev.ID != 0, button("삭제", "delete_event", "id", i64toa(ev.ID)).WithID("btn-delete-event").WithClass("btn-danger")),
		button("닫기", "close_modal"),
	).WithID("event-modal")
}
