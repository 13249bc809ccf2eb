// Package view renders page state into a tree of nodes that terminal shells
// draw. Every renderer is a pure function of its input.
package view

import (
	"strconv"
	"strings"
)

type Node struct {
	Tag      string            `json:"tag"`
	ID       string            `json:"id,omitempty"`
	Role     string            `json:"role,omitempty"`
	Class    string            `json:"class,omitempty"`
	Text     string            `json:"text,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Children []Node            `json:"children,omitempty"`
}

// El builds an element. Empty fragments produced by When are dropped.
func El(tag string, children ...Node) Node {
	return Node{Tag: tag, Children: compact(nil, children)}
}

func compact(dst, children []Node) []Node {
	for _, c := range children {
		if c.Tag != "" {
			dst = append(dst, c)
		}
	}
	return dst
}

func Txt(tag, text string) Node {
	return Node{Tag: tag, Text: text}
}

func (n Node) WithID(id string) Node {
	n.ID = id
	return n
}

func (n Node) WithRole(role string) Node {
	n.Role = role
	return n
}

// WithClass appends classes; empty values are skipped.
func (n Node) WithClass(classes ...string) Node {
	parts := strings.Fields(n.Class)
	for _, c := range classes {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	n.Class = strings.Join(parts, " ")
	return n
}

func (n Node) WithAttr(key, value string) Node {
	attrs := make(map[string]string, len(n.Attrs)+1)
	for k, v := range n.Attrs {
		attrs[k] = v
	}
	attrs[key] = value
	n.Attrs = attrs
	return n
}

// Action marks the node as a control that dispatches action with the given
// payload fields.
func (n Node) Action(action string, kv ...string) Node {
	n = n.WithAttr("data-action", action)
	for i := 0; i+1 < len(kv); i += 2 {
		n = n.WithAttr("data-"+kv[i], kv[i+1])
	}
	return n
}

func (n Node) Disabled(disabled bool) Node {
	if !disabled {
		return n
	}
	return n.WithAttr("disabled", "true")
}

func (n Node) Append(children ...Node) Node {
	n.Children = compact(append([]Node(nil), n.Children...), children)
	return n
}

// When returns n if cond holds and an empty fragment otherwise.
func When(cond bool, n Node) Node {
	if !cond {
		return Node{}
	}
	return n
}

// Find returns the first node with the given id, depth first.
func (n Node) Find(id string) (Node, bool) {
	if n.ID == id {
		return n, true
	}
	for _, c := range n.Children {
		if found, ok := c.Find(id); ok {
			return found, true
		}
	}
	return Node{}, false
}

// FindRole returns every node with the given role, in document order.
func (n Node) FindRole(role string) []Node {
	var out []Node
	if n.Role == role {
		out = append(out, n)
	}
	for _, c := range n.Children {
		out = append(out, c.FindRole(role)...)
	}
	return out
}

// TextContent concatenates the text of n and its descendants.
func (n Node) TextContent() string {
	var b strings.Builder
	n.collectText(&b)
	return strings.TrimSpace(b.String())
}

func (n Node) collectText(b *strings.Builder) {
	if n.Text != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(n.Text)
	}
	for _, c := range n.Children {
		c.collectText(b)
	}
}

func itoa(n int) string { return strconv.Itoa(n) }

func i64toa(n int64) string { return strconv.FormatInt(n, 10) }
