package cleanup

import (
	"bufio"
	"io"
)

// Section is one labeled block of the removal report.
type Section struct {
	Kind     Kind     `json:"kind" toon:"kind"`
	Label    string   `json:"label" toon:"label"`
	Commands []string `json:"commands" toon:"commands"`
}

// Sections groups the run's directives by category, in category order. Every
// category appears even when nothing was removed.
func (r *Result) Sections(categories []Category) []Section {
	sections := make([]Section, 0, len(categories))
	index := make(map[Kind]int, len(categories))
	for _, cat := range categories {
		index[cat.Kind] = len(sections)
		sections = append(sections, Section{Kind: cat.Kind, Label: cat.Label, Commands: []string{}})
	}
	for _, cycle := range r.Cycles {
		for _, cr := range cycle.Categories {
			i, ok := index[cr.Kind]
			if !ok {
				continue
			}
			for _, d := range cr.Directives {
				sections[i].Commands = append(sections[i].Commands, d.Command)
			}
		}
	}
	return sections
}

// Directives returns every directive of the run in report order.
func (r *Result) Directives(categories []Category) []Directive {
	var out []Directive
	for _, cat := range categories {
		for _, cycle := range r.Cycles {
			for _, cr := range cycle.Categories {
				if cr.Kind == cat.Kind {
					out = append(out, cr.Directives...)
				}
			}
		}
	}
	return out
}

// WriteReport writes the plain removal report: each section label followed by
// its commands, sections separated by a blank line.
func WriteReport(w io.Writer, sections []Section) error {
	bw := bufio.NewWriter(w)
	for i, s := range sections {
		if i > 0 {
			bw.WriteString("\n")
		}
		bw.WriteString(s.Label + ":\n")
		for _, cmd := range s.Commands {
			bw.WriteString(cmd + "\n")
		}
	}
	return bw.Flush()
}
