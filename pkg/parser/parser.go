package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/java"
)

// Language identifies an input format that can declare types.
type Language string

const (
	LangCSharp  Language = "csharp"
	LangJava    Language = "java"
	LangModel   Language = "model" // *.lcom.yaml, *.lcom.yml, *.lcom.json
	LangUnknown Language = "unknown"
)

func (l Language) String() string { return string(l) }

var grammars = map[Language]func() *sitter.Language{
	LangCSharp: csharp.GetLanguage,
	LangJava:   java.GetLanguage,
}

var modelSuffixes = []string{".lcom.yaml", ".lcom.yml", ".lcom.json"}

var extensions = map[string]Language{
	".cs":   LangCSharp,
	".java": LangJava,
}

// DetectLanguage classifies a file by name. Type model documents share
// extensions with ordinary config files and are matched on their compound
// suffix first.
func DetectLanguage(path string) Language {
	base := strings.ToLower(filepath.Base(path))
	for _, suffix := range modelSuffixes {
		if strings.HasSuffix(base, suffix) {
			return LangModel
		}
	}
	if lang, ok := extensions[filepath.Ext(base)]; ok {
		return lang
	}
	return LangUnknown
}

// Grammar returns the tree-sitter grammar for a source language.
func Grammar(lang Language) (*sitter.Language, error) {
	g, ok := grammars[lang]
	if !ok {
		return nil, fmt.Errorf("no grammar for %s", lang)
	}
	return g(), nil
}

// Parser produces syntax trees for C# and Java. It is not safe for
// concurrent use.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult is a syntax tree with the source it was built from. The
// caller closes Tree.
type ParseResult struct {
	Tree     *sitter.Tree
	Language Language
	Source   []byte
	Path     string
}

// New creates a parser.
func New() *Parser {
	return &Parser{parser: sitter.NewParser()}
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	p.parser.Close()
}

// Parse builds the syntax tree of source. Path is informational.
func (p *Parser) Parse(source []byte, lang Language, path string) (*ParseResult, error) {
	grammar, err := Grammar(lang)
	if err != nil {
		return nil, err
	}
	p.parser.SetLanguage(grammar)

	tree, err := p.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &ParseResult{Tree: tree, Language: lang, Source: source, Path: path}, nil
}

// TypedNodeVisitor is called for each node with its type already read, so
// visitors do not pay for a second cgo call. Returning false skips the
// node's children.
type TypedNodeVisitor func(node *sitter.Node, nodeType string, source []byte) bool

// WalkTyped visits node and its descendants depth first.
func WalkTyped(node *sitter.Node, source []byte, visitor TypedNodeVisitor) {
	if node == nil || !visitor(node, node.Type(), source) {
		return
	}
	for i := range int(node.ChildCount()) {
		WalkTyped(node.Child(i), source, visitor)
	}
}

// FindNodesByType returns every node below root, root included, of the
// given type.
func FindNodesByType(root *sitter.Node, source []byte, nodeType string) []*sitter.Node {
	var found []*sitter.Node
	WalkTyped(root, source, func(n *sitter.Node, t string, _ []byte) bool {
		if t == nodeType {
			found = append(found, n)
		}
		return true
	})
	return found
}

// GetNodeText returns the source text spanned by node, or "" when node is
// nil or out of range.
func GetNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start > end || int(end) > len(source) {
		return ""
	}
	return string(source[start:end])
}

// NamedChildren returns the named children of node in source order.
func NamedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	n := int(node.NamedChildCount())
	out := make([]*sitter.Node, n)
	for i := range n {
		out[i] = node.NamedChild(i)
	}
	return out
}

// FirstChildOfType returns the first direct child whose type is one of
// types.
func FirstChildOfType(node *sitter.Node, types ...string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		t := child.Type()
		for _, want := range types {
			if t == want {
				return child
			}
		}
	}
	return nil
}

// HasToken reports whether node has a direct child, usually an anonymous
// keyword or operator, of the given type.
func HasToken(node *sitter.Node, token string) bool {
	return FirstChildOfType(node, token) != nil
}

// SameNode reports whether a and b cover the same bytes with the same type.
func SameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// Line is the 1-based line node starts on.
func Line(node *sitter.Node) uint32 {
	if node == nil {
		return 0
	}
	return node.StartPoint().Row + 1
}
