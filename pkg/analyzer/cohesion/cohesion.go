package cohesion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/panbanda/lcom/internal/fileproc"
	"github.com/panbanda/lcom/pkg/analyzer"
	"github.com/panbanda/lcom/pkg/analyzer/lcom"
	"github.com/panbanda/lcom/pkg/reader"
	"github.com/panbanda/lcom/pkg/typemodel"
)

// Ensure Analyzer implements analyzer.SourceAnalyzer.
var _ analyzer.SourceAnalyzer[*Analysis] = (*Analyzer)(nil)

// ContentSource is an alias for analyzer.ContentSource.
type ContentSource = analyzer.ContentSource

// ErrTypeNotFound is returned by Explain when no type in the file has the
// requested name.
var ErrTypeNotFound = errors.New("type not found")

// ErrFileTooLarge is recorded for files over the configured size limit.
var ErrFileTooLarge = errors.New("file exceeds max file size")

// DefaultHighThreshold is the LCOM value at which a type is reported as high.
const DefaultHighThreshold = 10

// moduleTypeName is the pseudo-type compilers emit for module-level members.
const moduleTypeName = "<Module>"

// Filter selects which types are analyzed.
type Filter struct {
	PublicOnly        bool
	IncludeGenerated  bool
	IncludeInterfaces bool
}

// Accept reports whether t passes the filter.
func (f Filter) Accept(t *typemodel.Type) bool {
	switch {
	case t.Name == moduleTypeName:
		return false
	case t.Interface && !f.IncludeInterfaces:
		return false
	case t.Generated && !f.IncludeGenerated:
		return false
	case f.PublicOnly && !t.Exported():
		return false
	}
	return true
}

// Analyzer computes LCOM for every type declared in a set of files.
type Analyzer struct {
	calc          *lcom.Calculator
	filter        Filter
	maxFileSize   int64
	workers       int
	highThreshold int
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithCalculator sets the engine used per type.
func WithCalculator(c *lcom.Calculator) Option {
	return func(a *Analyzer) {
		a.calc = c
	}
}

// WithFilter sets the type filter.
func WithFilter(f Filter) Option {
	return func(a *Analyzer) {
		a.filter = f
	}
}

// WithMaxFileSize sets the maximum file size to analyze (0 = no limit).
func WithMaxFileSize(maxSize int64) Option {
	return func(a *Analyzer) {
		a.maxFileSize = maxSize
	}
}

// WithWorkers sets the number of concurrent workers (0 = 2x NumCPU).
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// WithHighThreshold sets the LCOM value counted as high in the summary.
func WithHighThreshold(n int) Option {
	return func(a *Analyzer) {
		a.highThreshold = n
	}
}

// New creates a new LCOM analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		calc:          lcom.New(),
		highThreshold: DefaultHighThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// fileTypes holds the accepted types read from one file.
type fileTypes struct {
	path    string
	types   []*typemodel.Type
	parts   map[*typemodel.Type][]string
	partial bool
}

type pendingType struct {
	path  string
	t     *typemodel.Type
	parts []string
}

// Analyze reads every file through src, lowers it to types and computes LCOM
// for each accepted type. Types appear in file order, then declaration order.
// The parts of a partial type declared in several files are analyzed as one
// type, reported at the file holding the first part.
// Unreadable files and invalid type models are recorded in Analysis.Errors.
func (a *Analyzer) Analyze(ctx context.Context, files []string, src ContentSource) (*Analysis, error) {
	analysis := &Analysis{
		GeneratedAt: time.Now().UTC(),
		Types:       make([]TypeMetrics, 0),
	}

	tracker := analyzer.TrackerFromContext(ctx)
	if tracker != nil {
		tracker.Expect(len(files))
	}

	units, readErrs := fileproc.MapFiles(ctx, files, a.workers, func(path string) (*reader.Unit, error) {
		return a.parseFile(path, src)
	}, func(path string) {
		if tracker != nil {
			tracker.Done(path)
		}
	})
	defer func() {
		for _, u := range units {
			u.Close()
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	analysis.Errors = appendErrors(analysis.Errors, readErrs, func(key string) (string, string) { return key, "" })

	reader.Merge(units)
	read, _ := fileproc.MapOrdered(ctx, units, a.workers,
		func(u *reader.Unit) string { return u.Path },
		func(u *reader.Unit) (fileTypes, error) {
			u.Lower()
			ft := fileTypes{path: u.Path, partial: u.Partial(), parts: make(map[*typemodel.Type][]string)}
			for _, t := range u.Types() {
				if a.filter.Accept(t) {
					ft.types = append(ft.types, t)
					ft.parts[t] = u.Parts(t)
				}
			}
			return ft, nil
		}, nil)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var pending []pendingType
	for _, ft := range read {
		if ft.partial {
			analysis.markPartial(ft.path)
		}
		for _, t := range ft.types {
			pending = append(pending, pendingType{path: ft.path, t: t, parts: ft.parts[t]})
			for _, part := range ft.parts[t] {
				analysis.markPartial(part)
			}
		}
	}

	metrics, typeErrs := fileproc.MapOrdered(ctx, pending, a.workers,
		func(p pendingType) string { return p.path + "\x00" + p.t.Name },
		func(p pendingType) (TypeMetrics, error) {
			r, err := a.calc.Analyze(p.t)
			if err != nil {
				return TypeMetrics{}, err
			}
			tm := newTypeMetrics(p.path, r)
			tm.Parts = p.parts
			return tm, nil
		}, nil)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	analysis.Types = append(analysis.Types, metrics...)
	analysis.Errors = appendErrors(analysis.Errors, typeErrs, splitTypeKey)

	analysis.CalculateSummary(a.highThreshold)
	return analysis, nil
}

// AnalyzeTypes computes LCOM for types that are already in memory, applying
// the filter. path is used for reporting only.
func (a *Analyzer) AnalyzeTypes(path string, types []*typemodel.Type) *Analysis {
	analysis := &Analysis{
		GeneratedAt: time.Now().UTC(),
		Types:       make([]TypeMetrics, 0, len(types)),
	}
	for _, t := range types {
		if t == nil || !a.filter.Accept(t) {
			continue
		}
		r, err := a.calc.Analyze(t)
		if err != nil {
			analysis.Errors = append(analysis.Errors, TypeError{Path: path, TypeName: t.Name, Message: err.Error()})
			continue
		}
		analysis.Types = append(analysis.Types, newTypeMetrics(path, r))
	}
	analysis.CalculateSummary(a.highThreshold)
	return analysis
}

// Explain returns the full engine breakdown for one type in path. The type
// filter is not applied, so interfaces and generated types can be inspected.
// parts names further files declaring parts of a partial type.
func (a *Analyzer) Explain(path, typeName string, src ContentSource, parts ...string) (*lcom.Result, error) {
	units := make([]*reader.Unit, 0, 1+len(parts))
	defer func() {
		for _, u := range units {
			u.Close()
		}
	}()
	for _, p := range append([]string{path}, parts...) {
		content, err := src.Read(p)
		if err != nil {
			return nil, err
		}
		u, err := reader.Parse(p, content)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	reader.Link(units...)

	t := findType(units[0].Types(), typeName)
	if t == nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrTypeNotFound, typeName, path)
	}
	return a.calc.Analyze(t)
}

// Calculator returns the engine the analyzer uses.
func (a *Analyzer) Calculator() *lcom.Calculator {
	return a.calc
}

func (a *Analyzer) parseFile(path string, src ContentSource) (*reader.Unit, error) {
	content, err := src.Read(path)
	if err != nil {
		return nil, err
	}
	if a.maxFileSize > 0 && int64(len(content)) > a.maxFileSize {
		return nil, fmt.Errorf("%w (%d > %d bytes)", ErrFileTooLarge, len(content), a.maxFileSize)
	}
	return reader.Parse(path, content)
}

func findType(types []*typemodel.Type, name string) *typemodel.Type {
	for _, t := range types {
		if t.Name == name {
			return t
		}
	}
	for _, t := range types {
		if t.ShortName() == name {
			return t
		}
	}
	return nil
}

func splitTypeKey(key string) (path, typeName string) {
	path, typeName, _ = strings.Cut(key, "\x00")
	return path, typeName
}

func appendErrors(dst []TypeError, errs *fileproc.ProcessingErrors, split func(string) (string, string)) []TypeError {
	if !errs.HasErrors() {
		return dst
	}
	for _, e := range errs.Errors {
		path, typeName := split(e.Path)
		dst = append(dst, TypeError{Path: path, TypeName: typeName, Message: e.Err.Error()})
	}
	return dst
}
