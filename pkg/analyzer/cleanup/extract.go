package cleanup

import "strings"

// Declarations holds the distinct declared names per category, in order of
// first appearance.
type Declarations struct {
	names map[Kind][]string
	seen  map[Kind]map[string]bool
}

func newDeclarations() *Declarations {
	return &Declarations{
		names: make(map[Kind][]string),
		seen:  make(map[Kind]map[string]bool),
	}
}

func (d *Declarations) add(kind Kind, name string) {
	if d.seen[kind] == nil {
		d.seen[kind] = make(map[string]bool)
	}
	if d.seen[kind][name] {
		return
	}
	d.seen[kind][name] = true
	d.names[kind] = append(d.names[kind], name)
}

// Names returns the declared names of a category.
func (d *Declarations) Names(kind Kind) []string {
	return d.names[kind]
}

// Has reports whether name was declared in the category.
func (d *Declarations) Has(kind Kind, name string) bool {
	return d.seen[kind][name]
}

// Total returns the number of declared names across all categories.
func (d *Declarations) Total() int {
	n := 0
	for _, names := range d.names {
		n += len(names)
	}
	return n
}

// Extract scans the configuration once and collects declared names for every
// category. Lines that look like declarations but cannot yield a name are
// returned as MalformedLine entries instead of producing a wrong name.
// DfltGrpPolicy never enters the group policy set; extra protected names are
// skipped in every category.
func Extract(lines []string, categories []Category, protected ...string) (*Declarations, []MalformedLine) {
	skip := make(map[string]bool, len(protected))
	for _, p := range protected {
		skip[p] = true
	}

	decls := newDeclarations()
	var malformed []MalformedLine

	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		for _, cat := range categories {
			if cat.IsDeclaration(line) {
				name, ok := cat.declaredName(line)
				if !ok {
					malformed = append(malformed, MalformedLine{
						Line:   i + 1,
						Kind:   cat.Kind,
						Text:   line,
						Reason: "declaration has no name",
					})
					continue
				}
				if skip[name] || (cat.Kind == KindGroupPolicy && name == ProtectedGroupPolicy) {
					continue
				}
				decls.add(cat.Kind, name)
				continue
			}
			if cat.Inline && isNestedDeclaration(cat, line) {
				malformed = append(malformed, MalformedLine{
					Line:   i + 1,
					Kind:   cat.Kind,
					Text:   line,
					Reason: "declaration keyword not at the start of a top-level statement",
				})
			}
		}
	}

	return decls, malformed
}

// isNestedDeclaration reports whether line is an indented statement that
// starts with the category keyword.
func isNestedDeclaration(cat Category, line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	return trimmed != line && cat.IsDeclaration(trimmed)
}
