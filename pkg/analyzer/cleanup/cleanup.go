// Package cleanup finds named firewall objects that are declared but never
// referenced and removes them from the configuration.
//
// A run extracts declared names once, then sweeps the categories in a fixed
// order (group policies, access lists, object-groups, objects). Each pass
// counts references over the configuration as pruned by the passes before
// it, selects names matched only by their own declaration, and deletes those
// declarations with their child lines. By default a single sweep is made;
// WithFixpoint repeats sweeps until one removes nothing.
package cleanup

import (
	"context"
	"log/slog"

	"github.com/panbanda/asaclean/pkg/conftree"
)

// DefaultMaxCycles bounds fixpoint iteration.
const DefaultMaxCycles = 64

// Pipeline runs the dead-object cleanup over a configuration.
type Pipeline struct {
	categories []Category
	mode       MatchMode
	fixpoint   bool
	strict     bool
	maxCycles  int
	protected  []string
	logger     *slog.Logger
	onPass     func(Kind)
}

// Option is a functional option for configuring Pipeline.
type Option func(*Pipeline)

// WithMatchMode sets how references are recognized.
// By default, substring matching is used.
func WithMatchMode(mode MatchMode) Option {
	return func(p *Pipeline) {
		if mode == MatchSubstring || mode == MatchToken {
			p.mode = mode
		}
	}
}

// WithFixpoint repeats full sweeps until a sweep removes nothing.
func WithFixpoint() Option {
	return func(p *Pipeline) {
		p.fixpoint = true
	}
}

// WithMaxCycles bounds the number of sweeps in fixpoint mode.
func WithMaxCycles(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxCycles = n
		}
	}
}

// WithStrict makes malformed declaration lines a fatal error.
func WithStrict() Option {
	return func(p *Pipeline) {
		p.strict = true
	}
}

// WithProtected excludes additional names from removal.
func WithProtected(names ...string) Option {
	return func(p *Pipeline) {
		p.protected = append(p.protected, names...)
	}
}

// WithCategories replaces the category table.
func WithCategories(categories []Category) Option {
	return func(p *Pipeline) {
		p.categories = categories
	}
}

// WithLogger sets the logger used for pass diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPassCallback registers a function called after every category pass.
func WithPassCallback(fn func(Kind)) Option {
	return func(p *Pipeline) {
		p.onPass = fn
	}
}

// New creates a pipeline with the default category table.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		categories: DefaultCategories(),
		mode:       MatchSubstring,
		maxCycles:  DefaultMaxCycles,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Categories returns the category table in processing order.
func (p *Pipeline) Categories() []Category {
	return p.categories
}

// MatchMode returns the configured match mode.
func (p *Pipeline) MatchMode() MatchMode {
	return p.mode
}

// Passes returns the number of category passes in one sweep.
func (p *Pipeline) Passes() int {
	return len(p.categories)
}

// Run cleans the configuration lines. The input slice is not modified.
func (p *Pipeline) Run(ctx context.Context, lines []string) (*Result, error) {
	decls, malformed := Extract(lines, p.categories, p.protected...)
	for _, m := range malformed {
		p.logger.Warn("skipping malformed declaration", "line", m.Line, "category", m.Kind, "reason", m.Reason, "text", m.Text)
	}
	if p.strict && len(malformed) > 0 {
		return nil, &MalformedLineError{Lines: malformed}
	}

	result := &Result{
		MatchMode: p.mode,
		Fixpoint:  p.fixpoint,
		Malformed: malformed,
	}

	removed := make(map[Kind]map[string]bool, len(p.categories))
	current := conftree.Parse(lines).Lines()

	for n := 1; n <= p.maxCycles; n++ {
		cycle := Cycle{Number: n}
		for _, cat := range p.categories {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			var cr CategoryResult
			cr, current = p.pass(cat, live(decls.Names(cat.Kind), removed[cat.Kind]), current, n)
			if removed[cat.Kind] == nil {
				removed[cat.Kind] = make(map[string]bool)
			}
			for _, d := range cr.Directives {
				removed[cat.Kind][d.Name] = true
			}
			cycle.Categories = append(cycle.Categories, cr)

			if p.onPass != nil {
				p.onPass(cat.Kind)
			}
		}
		result.Cycles = append(result.Cycles, cycle)

		if !p.fixpoint {
			break
		}
		if cycle.Removed() == 0 {
			result.Converged = true
			break
		}
	}
	if p.fixpoint && !result.Converged {
		p.logger.Warn("fixpoint stopped at the cycle limit before converging",
			"max_cycles", p.maxCycles,
			"removed_in_last_cycle", result.Cycles[len(result.Cycles)-1].Removed(),
		)
	}

	result.Lines = current
	result.Summary = summarize(lines, current, result.Cycles, decls, p.categories)
	return result, nil
}

// pass runs count, select and prune for one category and returns the pruned
// lines.
func (p *Pipeline) pass(cat Category, names []string, lines []string, cycle int) (CategoryResult, []string) {
	counts := Count(cat, names, lines, p.mode)
	doomed := Select(counts)

	cr := CategoryResult{
		Kind:       cat.Kind,
		Label:      cat.Label,
		Counts:     counts,
		Directives: Directives(cat, counts, cycle),
	}

	if len(doomed) > 0 {
		tree := conftree.Parse(lines)
		cr.LinesRemoved = Prune(tree, cat, doomed)
		lines = tree.Lines()
	}

	p.logger.Debug("category pass",
		"cycle", cycle,
		"category", cat.Kind,
		"declared", len(names),
		"doomed", len(doomed),
		"lines_removed", cr.LinesRemoved,
	)
	return cr, lines
}

func live(names []string, removed map[string]bool) []string {
	if len(removed) == 0 {
		return names
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !removed[n] {
			out = append(out, n)
		}
	}
	return out
}

func summarize(input, output []string, cycles []Cycle, decls *Declarations, categories []Category) Summary {
	s := Summary{
		InputLines:  len(input),
		OutputLines: len(output),
		Cycles:      len(cycles),
	}
	for _, cat := range categories {
		cs := CategorySummary{
			Kind:     cat.Kind,
			Label:    cat.Label,
			Declared: len(decls.Names(cat.Kind)),
		}
		for _, c := range cycles {
			for _, cr := range c.Categories {
				if cr.Kind == cat.Kind {
					cs.Removed += len(cr.Directives)
					cs.LinesRemoved += cr.LinesRemoved
				}
			}
		}
		cs.Kept = cs.Declared - cs.Removed
		s.TotalRemoved += cs.Removed
		s.Categories = append(s.Categories, cs)
	}
	return s
}
