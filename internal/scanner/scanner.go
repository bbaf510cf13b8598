package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/panbanda/lcom/pkg/config"
	"github.com/panbanda/lcom/pkg/parser"
	"github.com/panbanda/lcom/pkg/reader"
)

// Scanner lists the files a reader understands: C# and Java source and
// type model documents.
type Scanner struct {
	config *config.Config
}

// NewScanner creates a scanner. A nil config uses the defaults.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// matcher is a gitignore matcher anchored at a directory.
type matcher struct {
	root string
	m    gitignore.Matcher
}

func (m *matcher) match(abs string, isDir bool) bool {
	if m == nil {
		return false
	}
	rel, err := filepath.Rel(m.root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	return m.m.Match(strings.Split(filepath.ToSlash(rel), "/"), isDir)
}

// rules holds the exclusions of one scan: config exclusions anchored at
// the scan root and .gitignore files anchored at the repository root.
type rules []*matcher

func (r rules) excluded(abs string, isDir bool) bool {
	for _, m := range r {
		if m.match(abs, isDir) {
			return true
		}
	}
	return false
}

func (s *Scanner) rulesFor(absRoot string) rules {
	ex := s.config.Exclude
	patterns := make([]gitignore.Pattern, 0, len(ex.Dirs)+len(ex.Extensions)+len(ex.Patterns))
	for _, dir := range ex.Dirs {
		patterns = append(patterns, gitignore.ParsePattern(dir+"/", nil))
	}
	for _, ext := range ex.Extensions {
		patterns = append(patterns, gitignore.ParsePattern("*"+ext, nil))
	}
	for _, p := range ex.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}

	var r rules
	if len(patterns) > 0 {
		r = append(r, &matcher{root: absRoot, m: gitignore.NewMatcher(patterns)})
	}
	if !ex.Gitignore {
		return r
	}
	repo := findGitRoot(absRoot)
	if repo == "" {
		return r
	}
	// ReadPatterns collects every .gitignore below the repository root.
	gitPatterns, err := gitignore.ReadPatterns(osfs.New(repo), nil)
	if err == nil && len(gitPatterns) > 0 {
		r = append(r, &matcher{root: repo, m: gitignore.NewMatcher(gitPatterns)})
	}
	return r
}

// findGitRoot walks up from start to the directory holding .git, or
// returns "" outside a repository.
func findGitRoot(start string) string {
	for dir := start; ; {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// isWithinRoot reports whether path is root or below it.
func isWithinRoot(path, root string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	abs, root = filepath.Clean(abs), filepath.Clean(root)
	return abs == root || strings.HasPrefix(abs, root+string(filepath.Separator))
}

// ScanDir walks root in lexical order and returns the supported files that
// are not excluded. Symlinks leading outside root are ignored, as are
// entries that cannot be read.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err == nil {
		absRoot, err = filepath.EvalSymlinks(absRoot)
	}
	if err != nil {
		return nil, err
	}
	r := s.rulesFor(absRoot)

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(target, absRoot) {
				return nil
			}
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		abs := filepath.Join(absRoot, rel)

		switch {
		case d.IsDir():
			if path != root && r.excluded(abs, true) {
				return filepath.SkipDir
			}
		case !r.excluded(abs, false) && reader.Supported(path):
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// ScanFile reports whether an explicitly named file should be analyzed.
// Config exclusions apply; .gitignore does not.
func (s *Scanner) ScanFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if info.IsDir() || s.config.ShouldExclude(path) {
		return false, nil
	}
	return reader.Supported(path), nil
}

// ScanPaths expands directories with ScanDir and checks files with
// ScanFile. Results follow argument order without duplicates. No
// arguments means the current directory.
func (s *Scanner) ScanPaths(paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	var files []string
	seen := make(map[string]struct{})
	for _, p := range paths {
		found, err := s.expand(p)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			key := filepath.Clean(f)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			files = append(files, f)
		}
	}
	return files, nil
}

func (s *Scanner) expand(p string) ([]string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("failed to access %s: %w", p, err)
	}
	if info.IsDir() {
		found, err := s.ScanDir(p)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", p, err)
		}
		return found, nil
	}
	ok, err := s.ScanFile(p)
	if err != nil || !ok {
		return nil, err
	}
	return []string{p}, nil
}

// GroupByLanguage buckets files by detected language, dropping unknown
// ones.
func (s *Scanner) GroupByLanguage(files []string) map[parser.Language][]string {
	groups := make(map[parser.Language][]string)
	for _, f := range files {
		if lang := parser.DetectLanguage(f); lang != parser.LangUnknown {
			groups[lang] = append(groups[lang], f)
		}
	}
	return groups
}
