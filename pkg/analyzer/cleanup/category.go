package cleanup

import "strings"

// Syntax is the form of a rendered removal command.
type Syntax string

const (
	// SyntaxClear renders "clear configure <keyword> <name>" for objects that
	// own child blocks.
	SyntaxClear Syntax = "clear"
	// SyntaxNo renders "no <keyword> <name>".
	SyntaxNo Syntax = "no"
)

// ReferenceRule decides which lines count as uses of a declared name.
type ReferenceRule int

const (
	// RefDefaultGroupPolicy counts the declaration once plus every line that
	// names the policy with "default-group-policy <name>".
	RefDefaultGroupPolicy ReferenceRule = iota
	// RefOutsideDeclarations counts the declaration once plus every
	// non-declaration line mentioning the name.
	RefOutsideDeclarations
	// RefAnyLine counts every line mentioning the name, the declaration
	// included.
	RefAnyLine
)

// defaultGroupPolicyKeyword introduces a group policy reference.
const defaultGroupPolicyKeyword = "default-group-policy"

// Category describes how one kind of object is declared, referenced and
// removed.
type Category struct {
	Kind Kind
	// Keyword is the declaration prefix, e.g. "object-group network".
	Keyword string
	// Label heads the category's section in the removal report.
	Label string
	// NameField is the index of the name among the declaration's fields.
	NameField int
	// Inline marks keywords that the legacy scanner matched anywhere in a
	// line. An indented statement starting with the keyword is reported as
	// malformed; free text that merely mentions it is not.
	Inline    bool
	Syntax    Syntax
	Reference ReferenceRule
}

// DefaultCategories returns the categories in processing order. Earlier
// categories are pruned first so their references no longer keep later
// objects alive.
func DefaultCategories() []Category {
	return []Category{
		{
			Kind:      KindGroupPolicy,
			Keyword:   "group-policy",
			Label:     "Group Policy Removal Lines",
			NameField: 1,
			Syntax:    SyntaxClear,
			Reference: RefDefaultGroupPolicy,
		},
		{
			Kind:      KindAccessList,
			Keyword:   "access-list",
			Label:     "ACL Removal Lines",
			NameField: 1,
			Syntax:    SyntaxClear,
			Reference: RefOutsideDeclarations,
		},
		{
			Kind:      KindObjectGroup,
			Keyword:   "object-group network",
			Label:     "Object-Group Removal Lines",
			NameField: 2,
			Inline:    true,
			Syntax:    SyntaxNo,
			Reference: RefAnyLine,
		},
		{
			Kind:      KindObject,
			Keyword:   "object network",
			Label:     "Object Removal Lines",
			NameField: 2,
			Inline:    true,
			Syntax:    SyntaxNo,
			Reference: RefAnyLine,
		},
	}
}

// Render returns the removal command for name.
func (c Category) Render(name string) string {
	if c.Syntax == SyntaxClear {
		return "clear configure " + c.Keyword + " " + name
	}
	return "no " + c.Keyword + " " + name
}

// IsDeclaration reports whether line is a top-level statement starting with
// the category keyword.
func (c Category) IsDeclaration(line string) bool {
	if !strings.HasPrefix(line, c.Keyword) {
		return false
	}
	rest := line[len(c.Keyword):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

// declaredName returns the name a declaration line defines.
func (c Category) declaredName(line string) (string, bool) {
	if !c.IsDeclaration(line) {
		return "", false
	}
	fields := strings.Fields(line)
	if len(fields) <= c.NameField {
		return "", false
	}
	return fields[c.NameField], true
}

// references reports whether line counts toward name under the category's
// rule. Declarations counted as a baseline are excluded here.
func (c Category) references(line, name string, mode MatchMode) bool {
	switch c.Reference {
	case RefDefaultGroupPolicy:
		if c.IsDeclaration(line) {
			return false
		}
		if mode == MatchToken {
			fields := strings.Fields(line)
			for i := 0; i+1 < len(fields); i++ {
				if fields[i] == defaultGroupPolicyKeyword && fields[i+1] == name {
					return true
				}
			}
			return false
		}
		return strings.Contains(line, defaultGroupPolicyKeyword+" "+name)
	case RefOutsideDeclarations:
		if c.IsDeclaration(line) {
			return false
		}
		return Mentions(line, name, mode)
	default:
		return Mentions(line, name, mode)
	}
}

// countsDeclaration reports whether the rule adds a baseline of one for the
// name's own declaration.
func (c Category) countsDeclaration() bool {
	return c.Reference != RefAnyLine
}

// Mentions reports whether line refers to name under the match mode.
func Mentions(line, name string, mode MatchMode) bool {
	if mode == MatchToken {
		for _, f := range strings.Fields(line) {
			if f == name {
				return true
			}
		}
		return false
	}
	return strings.Contains(line, name)
}
