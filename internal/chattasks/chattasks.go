// Package chattasks extracts checklist tasks from chat HTML produced by the
// rich-text editor and converts them to and from their stored JSON form.
package chattasks

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"tablero/internal/logger"
	"tablero/internal/model"
)

// ExtractFromHTML returns one task per <li data-type="taskItem">. The task
// text is the first <p> inside a <div> of the item; items without text are
// skipped. Every task gets a fresh random id.
func ExtractFromHTML(src string) []model.Task {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		logger.Debug("chat html parse failed: %v", err)
		return []model.Task{}
	}

	tasks := []model.Task{}
	walk(doc, func(n *html.Node) {
		if n.DataAtom != atom.Li || attr(n, "data-type") != "taskItem" {
			return
		}
		text := strings.TrimSpace(textOf(firstParagraphInDiv(n)))
		if text == "" {
			return
		}
		tasks = append(tasks, model.Task{
			ID:        uuid.NewString(),
			Message:   text,
			Completed: isChecked(n),
		})
	})
	return tasks
}

// ToJSON encodes tasks for the chat's tasks field.
func ToJSON(tasks []model.Task) string {
	if tasks == nil {
		tasks = []model.Task{}
	}
	b, err := json.Marshal(tasks)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// ParseJSON decodes a stored tasks field. Empty, invalid, or non-array input
// yields an empty list.
func ParseJSON(s string) []model.Task {
	s = strings.TrimSpace(s)
	if s == "" || s[0] != '[' {
		return []model.Task{}
	}
	var tasks []model.Task
	if err := json.Unmarshal([]byte(s), &tasks); err != nil {
		return []model.Task{}
	}
	if tasks == nil {
		return []model.Task{}
	}
	return tasks
}

// PlainText flattens chat HTML to text for terminal display, one line per
// block element.
func PlainText(src string) string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return src
	}
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		if n.DataAtom == atom.Input && attr(n, "type") == "checkbox" {
			if hasAttr(n, "checked") {
				b.WriteString("[x] ")
			} else {
				b.WriteString("[ ] ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
		switch n.DataAtom {
		case atom.P, atom.Li, atom.Br, atom.Div, atom.H1, atom.H2, atom.H3:
			b.WriteByte('\n')
		}
	}
	visit(doc)

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func isChecked(li *html.Node) bool {
	if attr(li, "data-checked") == "true" {
		return true
	}
	var box *html.Node
	walk(li, func(n *html.Node) {
		if box == nil && n.DataAtom == atom.Input && attr(n, "type") == "checkbox" {
			box = n
		}
	})
	return box != nil && hasAttr(box, "checked")
}

func firstParagraphInDiv(li *html.Node) *html.Node {
	var found *html.Node
	walk(li, func(n *html.Node) {
		if found != nil || n.DataAtom != atom.P {
			return
		}
		for p := n.Parent; p != nil && p != li; p = p.Parent {
			if p.DataAtom == atom.Div {
				found = n
				return
			}
		}
	})
	return found
}

func walk(n *html.Node, f func(*html.Node)) {
	f(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, f)
	}
}

func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
