// Package cleanup orchestrates cleanup runs: reading configurations, caching
// results, running the pipeline and writing the output files.
package cleanup

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/panbanda/asaclean/internal/cache"
	"github.com/panbanda/asaclean/internal/fileproc"
	"github.com/panbanda/asaclean/internal/output"
	"github.com/panbanda/asaclean/internal/scanner"
	"github.com/panbanda/asaclean/internal/vcs"
	analyzer "github.com/panbanda/asaclean/pkg/analyzer/cleanup"
	"github.com/panbanda/asaclean/pkg/config"
	"github.com/panbanda/asaclean/pkg/conftree"
	"github.com/panbanda/asaclean/pkg/source"
)

// Service runs cleanups with the effective configuration.
type Service struct {
	config *config.Config
	opener vcs.Opener
	cache  *cache.Cache
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithOpener sets the VCS opener used for --ref reads (for testing).
func WithOpener(opener vcs.Opener) Option {
	return func(s *Service) {
		s.opener = opener
	}
}

// WithCache sets the result cache. Without one, results are never cached.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithLogger sets the logger passed to pipelines.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock sets the time source used for output file timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a new cleanup service.
func New(opts ...Option) *Service {
	s := &Service{
		config: config.DefaultConfig(),
		opener: vcs.NewGitOpener(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache, _ = cache.New("", 0, false)
	}
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// Options overrides configuration values for a single run.
type Options struct {
	// Ref reads the file at a git revision instead of the working tree.
	Ref     string
	NoCache bool
	// OnPass is called after every category pass.
	OnPass func(analyzer.Kind)
}

// Outcome is the result of cleaning one file.
type Outcome struct {
	Path   string
	Source string
	Result *analyzer.Result
	Cached bool
}

// Pipeline builds a pipeline from the configuration.
func (s *Service) Pipeline(onPass func(analyzer.Kind)) (*analyzer.Pipeline, error) {
	mode, err := analyzer.ParseMatchMode(s.config.Cleanup.MatchMode)
	if err != nil {
		return nil, err
	}

	opts := []analyzer.Option{
		analyzer.WithMatchMode(mode),
		analyzer.WithMaxCycles(s.config.Cleanup.MaxCycles),
		analyzer.WithProtected(s.config.Cleanup.ProtectedNames...),
		analyzer.WithLogger(s.logger),
	}
	if s.config.Cleanup.Fixpoint {
		opts = append(opts, analyzer.WithFixpoint())
	}
	if s.config.Cleanup.Strict {
		opts = append(opts, analyzer.WithStrict())
	}
	if onPass != nil {
		opts = append(opts, analyzer.WithPassCallback(onPass))
	}
	return analyzer.New(opts...), nil
}

// cacheKey derives the cache key from the content and every option that
// changes the result.
func (s *Service) cacheKey(content []byte) string {
	c := s.config.Cleanup
	return cache.Key(content,
		"mode="+strings.ToLower(c.MatchMode),
		"fixpoint="+strconv.FormatBool(c.Fixpoint),
		"strict="+strconv.FormatBool(c.Strict),
		"max_cycles="+strconv.Itoa(c.MaxCycles),
		"protected="+strings.Join(c.ProtectedNames, ","),
	)
}

// cachedResult is the cache payload. Result.Lines is not serialized with the
// result so it is stored alongside.
type cachedResult struct {
	Result *analyzer.Result `json:"result"`
	Lines  []string         `json:"lines"`
}

// Clean reads path and runs the pipeline over it.
func (s *Service) Clean(ctx context.Context, path string, opts Options) (*Outcome, error) {
	src, err := source.Open(path, opts.Ref, s.opener)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	content, err := src.Read(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}

	out := &Outcome{Path: path, Source: src.Describe()}
	key := s.cacheKey(content)

	if !opts.NoCache {
		if data, ok := s.cache.Get(key); ok {
			var cached cachedResult
			if err := json.Unmarshal(data, &cached); err == nil && cached.Result != nil {
				cached.Result.Lines = cached.Lines
				out.Result = cached.Result
				out.Cached = true
				s.logger.Debug("cache hit", "path", path)
				return out, nil
			}
		}
	}

	pipeline, err := s.Pipeline(opts.OnPass)
	if err != nil {
		return nil, err
	}
	res, err := pipeline.Run(ctx, conftree.SplitLines(string(content)))
	if err != nil {
		return nil, err
	}
	out.Result = res

	if !opts.NoCache && s.cache.Enabled() {
		data, err := json.Marshal(cachedResult{Result: res, Lines: res.Lines})
		if err == nil {
			err = s.cache.Set(key, data)
		}
		if err != nil {
			s.logger.Warn("failed to cache result", "path", path, "error", err)
		}
	}
	return out, nil
}

// Artifacts are the files written for one run. Config is empty when the
// pruned configuration is not written.
type Artifacts struct {
	Report string `json:"report" toon:"report"`
	Config string `json:"config,omitempty" toon:"config,omitempty"`
}

// baseName returns the input's file name up to its first dot.
func baseName(path string) string {
	name := filepath.Base(path)
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	return name
}

// ArtifactPaths returns where the report and pruned configuration for input
// are written at time at: <base>-<suffix>-<timestamp>.txt|.cfg in output.dir,
// or next to the input when output.dir is empty.
func (s *Service) ArtifactPaths(input string, at time.Time) Artifacts {
	dir := s.config.Output.Dir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	base := baseName(input)
	stamp := at.Format(s.config.Output.TimestampLayout)

	a := Artifacts{
		Report: filepath.Join(dir, base+"-"+s.config.Output.ReportSuffix+"-"+stamp+".txt"),
	}
	if s.config.Output.WriteConfig {
		a.Config = filepath.Join(dir, base+"-"+s.config.Output.ConfigSuffix+"-"+stamp+".cfg")
	}
	return a
}

// WriteOptions configures WriteArtifacts.
type WriteOptions struct {
	// ReportPath overrides the report location when set.
	ReportPath string
	// Format of the report file. Text writes the plain removal report; other
	// formats change the report extension.
	Format output.Format
}

// WriteArtifacts writes the removal report and the pruned configuration for
// an outcome.
func (s *Service) WriteArtifacts(out *Outcome, opts WriteOptions) (Artifacts, error) {
	format := opts.Format
	if format == "" {
		format = output.FormatText
	}

	a := s.ArtifactPaths(out.Path, s.now())
	if format != output.FormatText {
		a.Report = strings.TrimSuffix(a.Report, ".txt") + format.Extension()
	}
	if opts.ReportPath != "" {
		a.Report = opts.ReportPath
	}

	if dir := filepath.Dir(a.Report); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return Artifacts{}, &WriteError{Path: a.Report, Err: err}
		}
	}

	report := output.NewCleanupReport(out.Path, out.Result, analyzer.DefaultCategories())
	if err := writeFile(a.Report, func(f *os.File) error {
		return output.NewWriterFormatter(format, f, false).Output(report)
	}); err != nil {
		return Artifacts{}, err
	}

	if a.Config != "" {
		if err := writeFile(a.Config, func(f *os.File) error {
			_, err := f.WriteString(joinLines(out.Result.Lines))
			return err
		}); err != nil {
			return Artifacts{}, err
		}
	}
	return a, nil
}

func writeFile(path string, fill func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := fill(f); err != nil {
		f.Close()
		return &WriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// BatchItem is the outcome of one batch file.
type BatchItem struct {
	Outcome   *Outcome
	Artifacts Artifacts
}

// BatchOptions configures CleanFiles.
type BatchOptions struct {
	Options
	Write WriteOptions
	// DryRun skips writing output files.
	DryRun     bool
	OnProgress func()
}

// Discover expands paths into the configuration files a batch run processes.
func (s *Service) Discover(paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}
	files, err := scanner.NewScanner(s.config).ScanPaths(paths)
	if err != nil {
		return nil, &ReadError{Path: strings.Join(paths, ", "), Err: err}
	}
	return files, nil
}

// CleanFiles cleans every file concurrently, each with its own pipeline.
// Results keep input order; per-file failures are collected.
func (s *Service) CleanFiles(ctx context.Context, files []string, opts BatchOptions) ([]fileproc.Result[BatchItem], *fileproc.ProcessingErrors) {
	// Per-pass callbacks would interleave across files.
	opts.OnPass = nil

	return fileproc.MapFiles(ctx, files, fileproc.Options{
		MaxWorkers: s.config.Batch.Workers,
		OnProgress: opts.OnProgress,
	}, func(ctx context.Context, path string) (BatchItem, error) {
		out, err := s.Clean(ctx, path, opts.Options)
		if err != nil {
			return BatchItem{}, err
		}
		item := BatchItem{Outcome: out}
		if !opts.DryRun {
			item.Artifacts, err = s.WriteArtifacts(out, opts.Write)
			if err != nil {
				return BatchItem{}, err
			}
		}
		return item, nil
	})
}
