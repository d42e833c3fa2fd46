package cleanup

import (
	"strings"

	"github.com/panbanda/asaclean/pkg/conftree"
)

// Count computes how many lines match each name under the category's
// reference rule. The result keeps the order of names.
//
// Rules that count the declaration as a baseline add one only when the name's
// own declaration is still present, so a name whose declaration has been
// pruned can never be selected again.
func Count(cat Category, names []string, lines []string, mode MatchMode) []NamedObject {
	counts := make([]NamedObject, 0, len(names))
	for _, name := range names {
		n := 0
		declared := false
		for _, raw := range lines {
			line := strings.TrimRight(raw, "\r")
			if !declared && cat.countsDeclaration() {
				if got, ok := cat.declaredName(line); ok && got == name {
					declared = true
				}
			}
			if cat.references(line, name, mode) {
				n++
			}
		}
		if declared {
			n++
		}
		counts = append(counts, NamedObject{Kind: cat.Kind, Name: name, Count: n})
	}
	return counts
}

// Select returns the names whose only match is their own declaration.
func Select(counts []NamedObject) []string {
	var doomed []string
	for _, c := range counts {
		if c.Unused() {
			doomed = append(doomed, c.Name)
		}
	}
	return doomed
}

// Prune deletes every top-level "<keyword> <name>" statement for the doomed
// names, children included. A name with no matching statement is skipped. It
// returns the number of lines removed.
func Prune(tree *conftree.Tree, cat Category, doomed []string) int {
	removed := 0
	for _, name := range doomed {
		for _, stmt := range tree.Find(cat.Keyword, name) {
			removed += tree.Delete(stmt)
		}
	}
	return removed
}

// Directives renders a removal command for every unused entry of counts, in
// counts order.
func Directives(cat Category, counts []NamedObject, cycle int) []Directive {
	var out []Directive
	for _, c := range counts {
		if !c.Unused() {
			continue
		}
		out = append(out, Directive{
			Kind:    cat.Kind,
			Name:    c.Name,
			Command: cat.Render(c.Name),
			Cycle:   cycle,
		})
	}
	return out
}
