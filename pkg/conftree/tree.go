package conftree

import (
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

// Line is a single configuration line and its position in the input.
type Line struct {
	Number int    `json:"number" toon:"number"` // 1-based
	Text   string `json:"text" toon:"text"`
	Indent int    `json:"indent" toon:"indent"`
}

// Statement is a configuration line together with its nested children.
type Statement struct {
	Line
	Parent   *Statement
	Children []*Statement

	index uint32
	tree  *Tree
}

// Tree is a parsed configuration. Deleted statements stay in memory but are
// excluded from lookups and rendering.
type Tree struct {
	statements []*Statement
	top        []*Statement
	deleted    *roaring.Bitmap
}

// Parse builds a tree from configuration lines. Trailing carriage returns are
// stripped so CRLF input renders as LF.
func Parse(lines []string) *Tree {
	t := &Tree{
		statements: make([]*Statement, 0, len(lines)),
		deleted:    roaring.New(),
	}

	var stack []*Statement
	for i, raw := range lines {
		text := strings.TrimRight(raw, "\r")
		s := &Statement{
			Line: Line{
				Number: i + 1,
				Text:   text,
				Indent: indentOf(text),
			},
			index: uint32(i),
			tree:  t,
		}
		t.statements = append(t.statements, s)

		if strings.TrimSpace(text) == "" {
			stack = stack[:0]
			t.top = append(t.top, s)
			continue
		}

		for len(stack) > 0 && stack[len(stack)-1].Indent >= s.Indent {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			t.top = append(t.top, s)
		} else {
			parent := stack[len(stack)-1]
			s.Parent = parent
			parent.Children = append(parent.Children, s)
		}
		stack = append(stack, s)
	}

	return t
}

// ParseText splits text on newlines and parses it. A single trailing newline
// does not produce an empty final line.
func ParseText(text string) *Tree {
	return Parse(SplitLines(text))
}

// SplitLines splits configuration text into lines without line terminators.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

func indentOf(text string) int {
	n := 0
	for _, r := range text {
		if r != ' ' && r != '\t' {
			break
		}
		n++
	}
	return n
}

// Len returns the number of surviving lines.
func (t *Tree) Len() int {
	return len(t.statements) - int(t.deleted.GetCardinality())
}

// DeletedCount returns the number of lines removed so far.
func (t *Tree) DeletedCount() int {
	return int(t.deleted.GetCardinality())
}

// TopLevel returns the surviving top-level statements in input order.
func (t *Tree) TopLevel() []*Statement {
	out := make([]*Statement, 0, len(t.top))
	for _, s := range t.top {
		if !t.deleted.Contains(s.index) {
			out = append(out, s)
		}
	}
	return out
}

// FindPrefix returns the surviving top-level statements whose text starts
// with prefix.
func (t *Tree) FindPrefix(prefix string) []*Statement {
	var out []*Statement
	for _, s := range t.TopLevel() {
		if strings.HasPrefix(s.Text, prefix) {
			out = append(out, s)
		}
	}
	return out
}

// Find returns the surviving top-level statements whose leading fields are
// the keyword's fields followed by name. Fields are whitespace separated, so
// "access-list A" never matches "access-list AB" and a tab after the keyword
// still matches.
func (t *Tree) Find(keyword, name string) []*Statement {
	kw := strings.Fields(keyword)
	var out []*Statement
	for _, s := range t.TopLevel() {
		if hasHead(s.Fields(), kw, name) {
			out = append(out, s)
		}
	}
	return out
}

func hasHead(fields, keyword []string, name string) bool {
	if len(fields) <= len(keyword) {
		return false
	}
	for i, k := range keyword {
		if fields[i] != k {
			return false
		}
	}
	return fields[len(keyword)] == name
}

// Delete removes the statement and all of its descendants. It returns the
// number of lines removed; deleting an already-deleted statement removes
// nothing.
func (t *Tree) Delete(s *Statement) int {
	if s == nil || s.tree != t || t.deleted.Contains(s.index) {
		return 0
	}
	before := t.deleted.GetCardinality()
	t.deleted.Add(s.index)
	for _, d := range s.Descendants() {
		t.deleted.Add(d.index)
	}
	return int(t.deleted.GetCardinality() - before)
}

// Deleted reports whether the statement has been removed.
func (t *Tree) Deleted(s *Statement) bool {
	return t.deleted.Contains(s.index)
}

// Lines renders the surviving configuration.
func (t *Tree) Lines() []string {
	out := make([]string, 0, t.Len())
	for _, s := range t.statements {
		if !t.deleted.Contains(s.index) {
			out = append(out, s.Text)
		}
	}
	return out
}

// String renders the surviving configuration as newline-terminated text.
func (t *Tree) String() string {
	lines := t.Lines()
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Descendants returns every statement nested below s, depth first.
func (s *Statement) Descendants() []*Statement {
	var out []*Statement
	for _, c := range s.Children {
		out = append(out, c)
		out = append(out, c.Descendants()...)
	}
	return out
}

// Subtree returns s followed by its descendants.
func (s *Statement) Subtree() []*Statement {
	return append([]*Statement{s}, s.Descendants()...)
}

// Fields splits the statement text on whitespace.
func (s *Statement) Fields() []string {
	return strings.Fields(s.Text)
}
