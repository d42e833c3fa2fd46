package cleanup

import (
	"fmt"
	"strings"
)

// Kind identifies a category of named configuration object.
type Kind string

const (
	KindGroupPolicy Kind = "group_policy"
	KindAccessList  Kind = "access_list"
	KindObjectGroup Kind = "object_group"
	KindObject      Kind = "object"
)

// String implements fmt.Stringer for toon serialization.
func (k Kind) String() string {
	return string(k)
}

// MatchMode selects how a line is recognized as a reference to a name.
type MatchMode string

const (
	// MatchSubstring counts a line when the name occurs anywhere in it. A name
	// that is a substring of another identifier is over-counted.
	MatchSubstring MatchMode = "substring"
	// MatchToken counts a line only when the name is a whole
	// whitespace-delimited token.
	MatchToken MatchMode = "token"
)

// String implements fmt.Stringer for toon serialization.
func (m MatchMode) String() string {
	return string(m)
}

// ParseMatchMode converts a string to a MatchMode.
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "substring":
		return MatchSubstring, nil
	case "token":
		return MatchToken, nil
	default:
		return "", fmt.Errorf("unknown match mode %q (want substring or token)", s)
	}
}

// ProtectedGroupPolicy is the built-in default group policy. It is never a
// removal candidate.
const ProtectedGroupPolicy = "DfltGrpPolicy"

// NamedObject is a declared name and the number of lines that matched it in
// the configuration seen by its category pass.
type NamedObject struct {
	Kind  Kind   `json:"kind" toon:"kind"`
	Name  string `json:"name" toon:"name"`
	Count int    `json:"count" toon:"count"`
}

// Unused reports whether the only match is the declaration itself.
func (o NamedObject) Unused() bool {
	return o.Count == 1
}

// Directive is a rendered removal command for one unused object.
type Directive struct {
	Kind    Kind   `json:"kind" toon:"kind"`
	Name    string `json:"name" toon:"name"`
	Command string `json:"command" toon:"command"`
	Cycle   int    `json:"cycle" toon:"cycle"`
}

// MalformedLine is a declaration-looking line that could not yield a name.
type MalformedLine struct {
	Line   int    `json:"line" toon:"line"`
	Kind   Kind   `json:"kind" toon:"kind"`
	Text   string `json:"text" toon:"text"`
	Reason string `json:"reason" toon:"reason"`
}

func (m MalformedLine) String() string {
	return fmt.Sprintf("line %d: %s: %q", m.Line, m.Reason, m.Text)
}

// MalformedLineError is returned in strict mode when declarations were skipped.
type MalformedLineError struct {
	Lines []MalformedLine
}

func (e *MalformedLineError) Error() string {
	switch len(e.Lines) {
	case 0:
		return "malformed declaration lines"
	case 1:
		return "malformed declaration " + e.Lines[0].String()
	default:
		return fmt.Sprintf("%d malformed declaration lines (first: %s)", len(e.Lines), e.Lines[0])
	}
}

// CategoryResult is the outcome of one category pass.
type CategoryResult struct {
	Kind         Kind          `json:"kind" toon:"kind"`
	Label        string        `json:"label" toon:"label"`
	Counts       []NamedObject `json:"counts" toon:"counts"`
	Directives   []Directive   `json:"directives" toon:"directives"`
	LinesRemoved int           `json:"lines_removed" toon:"lines_removed"`
}

// Doomed returns the names selected for removal in this pass.
func (c CategoryResult) Doomed() []string {
	names := make([]string, 0, len(c.Directives))
	for _, d := range c.Directives {
		names = append(names, d.Name)
	}
	return names
}

// Cycle is one ordered sweep over every category.
type Cycle struct {
	Number     int              `json:"number" toon:"number"`
	Categories []CategoryResult `json:"categories" toon:"categories"`
}

// Removed returns the number of names removed during the cycle.
func (c Cycle) Removed() int {
	n := 0
	for _, cat := range c.Categories {
		n += len(cat.Directives)
	}
	return n
}

// CategorySummary aggregates one category over all cycles.
type CategorySummary struct {
	Kind         Kind   `json:"kind" toon:"kind"`
	Label        string `json:"label" toon:"label"`
	Declared     int    `json:"declared" toon:"declared"`
	Removed      int    `json:"removed" toon:"removed"`
	Kept         int    `json:"kept" toon:"kept"`
	LinesRemoved int    `json:"lines_removed" toon:"lines_removed"`
}

// Summary provides aggregate statistics for a run.
type Summary struct {
	InputLines   int               `json:"input_lines" toon:"input_lines"`
	OutputLines  int               `json:"output_lines" toon:"output_lines"`
	TotalRemoved int               `json:"total_removed" toon:"total_removed"`
	Cycles       int               `json:"cycles" toon:"cycles"`
	Categories   []CategorySummary `json:"categories" toon:"categories"`
}

// Result is the outcome of a cleanup run. Converged is set in fixpoint mode
// when the last cycle removed nothing; a run stopped by the cycle limit
// leaves it false.
type Result struct {
	MatchMode MatchMode       `json:"match_mode" toon:"match_mode"`
	Fixpoint  bool            `json:"fixpoint" toon:"fixpoint"`
	Converged bool            `json:"converged" toon:"converged"`
	Cycles    []Cycle         `json:"cycles" toon:"cycles"`
	Malformed []MalformedLine `json:"malformed,omitempty" toon:"malformed,omitempty"`
	Summary   Summary         `json:"summary" toon:"summary"`
	Lines     []string        `json:"-" toon:"-"`
}
