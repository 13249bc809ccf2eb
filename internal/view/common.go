package view

import (
	"time"

	"flowork/terminal/internal/notify"
	"flowork/terminal/internal/search"
)

// Pagination draws « numbered pages », with gaps where the pager skipped
// pages. A single page draws nothing.
func Pagination(p search.Pager, action string) Node {
	if p.Hidden() {
		return Node{}
	}
	ul := El("ul").WithID("pagination").WithClass("pagination")
	ul = ul.Append(pageItem("«", p.Current-1, false, p.PrevDisabled, action))
	for _, link := range p.Links {
		if link.Gap {
			ul = ul.Append(Txt("li", "…").WithRole("gap").WithClass("page-item", "disabled"))
			continue
		}
		ul = ul.Append(pageItem(itoa(link.Number), link.Number, link.Current, false, action))
	}
	return ul.Append(pageItem("»", p.Current+1, false, p.NextDisabled, action))
}

func pageItem(label string, page int, active, disabled bool, action string) Node {
	n := Txt("li", label).WithRole("page").WithClass("page-item")
	if active {
		n = n.WithClass("active").WithAttr("aria-current", "page")
	}
	if disabled {
		return n.WithClass("disabled").Disabled(true)
	}
	if active {
		return n
	}
	return n.Action(action, "page", itoa(page))
}

func table(id string, headers []string, rows []Node, empty string, cols int) Node {
	head := El("tr")
	for _, h := range headers {
		head = head.Append(Txt("th", h))
	}
	body := El("tbody")
	if len(rows) == 0 {
		body = body.Append(El("tr", Txt("td", empty).WithAttr("colspan", itoa(cols)).WithClass("text-center", "text-muted")))
	} else {
		body = body.Append(rows...)
	}
	return El("table", El("thead", head), body).WithID(id).WithClass("table")
}

func row(role string, cells ...string) Node {
	tr := El("tr").WithRole(role)
	for _, c := range cells {
		tr = tr.Append(Txt("td", c))
	}
	return tr
}

// InlineStatus draws a status line until it expires.
func InlineStatus(id string, s notify.Status, now time.Time) Node {
	if !s.Visible(now) {
		return Node{}
	}
	return Txt("div", s.Text).
		WithID(id).
		WithRole("status").
		WithClass("alert", "alert-"+string(s.Kind)).
		WithAttr("data-expires-at", s.ExpiresAt.UTC().Format(time.RFC3339Nano))
}

func button(label, action string, kv ...string) Node {
	return Txt("button", label).WithClass("btn").Action(action, kv...)
}

func input(id, name, value string) Node {
	return Node{Tag: "input", ID: id}.WithAttr("name", name).WithAttr("value", value)
}

func option(value, label string, selected bool) Node {
	n := Txt("option", label).WithAttr("value", value)
	if selected {
		n = n.WithAttr("selected", "true")
	}
	return n
}

func radio(id, label string, checked bool) Node {
	n := Txt("radio", label).WithID(id)
	if checked {
		n = n.WithAttr("checked", "true")
	}
	return n
}
