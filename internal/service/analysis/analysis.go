package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/panbanda/lcom/internal/cache"
	"github.com/panbanda/lcom/pkg/analyzer"
	"github.com/panbanda/lcom/pkg/analyzer/cohesion"
	"github.com/panbanda/lcom/pkg/analyzer/lcom"
	"github.com/panbanda/lcom/pkg/config"
)

// cacheVersion is bumped whenever cached per-file results change shape or
// meaning.
const cacheVersion = "lcom-2"

// Service orchestrates LCOM analysis: it applies configuration, serves
// unchanged files from the cache and reports progress.
type Service struct {
	config *config.Config
	cache  *cache.Cache
	source analyzer.ContentSource
	logger *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithCache enables per-file result caching.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithSource sets where file content is read from (for testing).
func WithSource(src analyzer.ContentSource) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{
		config: config.LoadOrDefault(),
		source: analyzer.NewFilesystem(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the configuration the service runs with.
func (s *Service) Config() *config.Config {
	return s.config
}

// LCOMOptions configures one analysis run. Zero values fall back to the
// service configuration.
type LCOMOptions struct {
	InheritedMethods  string // strict, permissive
	BackingFields     string // attribute, ignore
	PublicOnly        bool
	IncludeGenerated  bool
	IncludeInterfaces bool
	Sort              string
	Top               int
	OnProgress        analyzer.ProgressFunc
}

// fileResult is the cached outcome for one file.
type fileResult struct {
	Types  []cohesion.TypeMetrics `json:"types"`
	Errors []cohesion.TypeError   `json:"errors,omitempty"`
}

func (s *Service) calculator(inherited, backing string) (*lcom.Calculator, error) {
	if inherited == "" {
		inherited = s.config.Analysis.InheritedMethods
	}
	if backing == "" {
		backing = s.config.Analysis.BackingFields
	}
	inherit, err := lcom.ParseInheritancePolicy(inherited)
	if err != nil {
		return nil, err
	}
	bf, err := lcom.ParseBackingFieldPolicy(backing)
	if err != nil {
		return nil, err
	}
	return lcom.New(lcom.WithInheritancePolicy(inherit), lcom.WithBackingFieldPolicy(bf)), nil
}

func (s *Service) filter(opts LCOMOptions) cohesion.Filter {
	return cohesion.Filter{
		PublicOnly:        opts.PublicOnly || s.config.Filter.PublicOnly,
		IncludeGenerated:  opts.IncludeGenerated || !s.config.Filter.ExcludeGenerated,
		IncludeInterfaces: opts.IncludeInterfaces || !s.config.Filter.ExcludeInterfaces,
	}
}

// AnalyzeLCOM computes LCOM for every type declared in files. Types are
// reported file by file in the order files are given, then in declaration
// order, unless opts.Sort asks otherwise.
func (s *Service) AnalyzeLCOM(ctx context.Context, files []string, opts LCOMOptions) (*cohesion.Analysis, error) {
	calc, err := s.calculator(opts.InheritedMethods, opts.BackingFields)
	if err != nil {
		return nil, fmt.Errorf("invalid analysis options: %w", err)
	}
	filter := s.filter(opts)
	a := cohesion.New(
		cohesion.WithCalculator(calc),
		cohesion.WithFilter(filter),
		cohesion.WithMaxFileSize(s.config.Analysis.MaxFileSize),
		cohesion.WithWorkers(s.config.Analysis.Workers),
		cohesion.WithHighThreshold(s.config.Thresholds.LCOMHigh),
	)

	var tracker *analyzer.Tracker
	if opts.OnProgress != nil {
		tracker = analyzer.NewTracker(opts.OnProgress)
		ctx = analyzer.WithTracker(ctx, tracker)
	}

	start := time.Now()
	fingerprint := cache.Fingerprint(cacheVersion,
		calc.InheritancePolicy().String(),
		calc.BackingFieldPolicy().String(),
		strconv.FormatBool(filter.PublicOnly),
		strconv.FormatBool(filter.IncludeGenerated),
		strconv.FormatBool(filter.IncludeInterfaces),
		strconv.FormatInt(s.config.Analysis.MaxFileSize, 10),
	)

	results := make(map[string]*fileResult, len(files))
	hashes := make(map[string]string, len(files))
	pending := make(analyzer.MemorySource)
	var misses []string

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, seen := results[path]; seen {
			continue
		}
		content, err := s.source.Read(path)
		if err != nil {
			results[path] = &fileResult{Errors: []cohesion.TypeError{{Path: path, Message: err.Error()}}}
			continue
		}
		hash := cache.HashBytes(content)
		if cached, ok := s.lookup(path, fingerprint, hash); ok {
			results[path] = cached
			continue
		}
		hashes[path] = hash
		pending[path] = content
		misses = append(misses, path)
	}

	if tracker != nil {
		hits := len(results)
		tracker.Expect(hits)
		for path := range results {
			tracker.Done(path)
		}
	}

	if len(misses) > 0 {
		fresh, err := a.Analyze(ctx, misses, pending)
		if err != nil {
			return nil, err
		}
		for _, path := range misses {
			results[path] = &fileResult{}
		}
		for _, t := range fresh.Types {
			results[t.Path].Types = append(results[t.Path].Types, t)
		}
		for _, e := range fresh.Errors {
			results[e.Path].Errors = append(results[e.Path].Errors, e)
		}
		for _, path := range misses {
			// A partial type's result depends on every file declaring a
			// part, so those files are analyzed together on every run.
			if fresh.DeclaresPartialTypes(path) {
				continue
			}
			s.store(path, fingerprint, hashes[path], results[path])
		}
	}

	analysis := &cohesion.Analysis{
		GeneratedAt: time.Now().UTC(),
		Types:       make([]cohesion.TypeMetrics, 0),
	}
	seen := make(map[string]bool, len(files))
	for _, path := range files {
		if seen[path] {
			continue
		}
		seen[path] = true
		r := results[path]
		analysis.Types = append(analysis.Types, r.Types...)
		analysis.Errors = append(analysis.Errors, r.Errors...)
	}

	analysis.CalculateSummary(s.config.Thresholds.LCOMHigh)
	if !analysis.Sort(opts.Sort) {
		return nil, fmt.Errorf("unknown sort order %q", opts.Sort)
	}
	analysis.Top(opts.Top)

	s.logger.Info("lcom analysis complete",
		zap.Int("files", len(seen)),
		zap.Int("analyzed", len(misses)),
		zap.Int("cached", len(seen)-len(misses)),
		zap.Int("types", analysis.Summary.TotalTypes),
		zap.Int("errors", len(analysis.Errors)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return analysis, nil
}

func (s *Service) lookup(path, fingerprint, hash string) (*fileResult, bool) {
	if !s.cache.Enabled() {
		return nil, false
	}
	data, ok := s.cache.Get(cache.FileKey(path, fingerprint), hash)
	if !ok {
		return nil, false
	}
	var r fileResult
	if err := json.Unmarshal(data, &r); err != nil {
		s.logger.Debug("discarding unreadable cache entry", zap.String("path", path), zap.Error(err))
		return nil, false
	}
	// Cached entries may have been written for the same file under a
	// different path spelling.
	for i := range r.Types {
		r.Types[i].Path = path
	}
	for i := range r.Errors {
		r.Errors[i].Path = path
	}
	s.logger.Debug("cache hit", zap.String("path", path))
	return &r, true
}

func (s *Service) store(path, fingerprint, hash string, r *fileResult) {
	if !s.cache.Enabled() {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		s.logger.Warn("failed to encode cache entry", zap.String("path", path), zap.Error(err))
		return
	}
	if err := s.cache.Set(cache.FileKey(path, fingerprint), hash, data); err != nil {
		s.logger.Warn("failed to write cache entry", zap.String("path", path), zap.Error(err))
	}
}

// ExplainOptions configures Explain. Zero values fall back to the service
// configuration.
type ExplainOptions struct {
	InheritedMethods string
	BackingFields    string
	// Parts lists further files declaring parts of a partial type.
	Parts []string
}

// Explain returns the usage matrix behind the LCOM value of typeName in
// path. The type filter does not apply.
func (s *Service) Explain(ctx context.Context, path, typeName string, opts ExplainOptions) (*cohesion.Explanation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	calc, err := s.calculator(opts.InheritedMethods, opts.BackingFields)
	if err != nil {
		return nil, fmt.Errorf("invalid analysis options: %w", err)
	}

	a := cohesion.New(cohesion.WithCalculator(calc))
	r, err := a.Explain(path, typeName, s.source, opts.Parts...)
	if err != nil {
		return nil, fmt.Errorf("explain %s: %w", typeName, err)
	}

	s.logger.Debug("explained type",
		zap.String("path", path),
		zap.String("type", r.Type.Name),
		zap.Int("lcom", r.LCOM),
	)
	return cohesion.NewExplanation(path, r, calc), nil
}
