package parser

import (
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
)

func TestNew(t *testing.T) {
	p := New()
	if p == nil {
		t.Fatal("New() returned nil")
	}
	if p.parser == nil {
		t.Error("parser field is nil")
	}
	p.Close()
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want Language
	}{
		{"Program.cs", LangCSharp},
		{"src/Shop/Cart.cs", LangCSharp},
		{"Main.java", LangJava},
		{"types.lcom.yaml", LangModel},
		{"dump/Assembly.lcom.yml", LangModel},
		{"types.lcom.json", LangModel},

		// Unknown
		{"config.yaml", LangUnknown},
		{"file.json", LangUnknown},
		{"main.go", LangUnknown},
		{"file", LangUnknown},

		// Case insensitivity
		{"PROGRAM.CS", LangCSharp},
		{"Types.LCOM.JSON", LangModel},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := DetectLanguage(tt.path)
			if got != tt.want {
				t.Errorf("DetectLanguage(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestGrammar(t *testing.T) {
	for _, lang := range []Language{LangCSharp, LangJava} {
		t.Run(string(lang), func(t *testing.T) {
			tsLang, err := Grammar(lang)
			if err != nil {
				t.Errorf("Grammar(%v) returned error: %v", lang, err)
			}
			if tsLang == nil {
				t.Errorf("Grammar(%v) returned nil", lang)
			}
		})
	}

	for _, lang := range []Language{LangUnknown, LangModel} {
		t.Run(string(lang), func(t *testing.T) {
			if _, err := Grammar(lang); err == nil {
				t.Errorf("Grammar(%v) should return error", lang)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		source string
		lang   Language
	}{
		{
			name:   "csharp class",
			source: "class A { int x; void M() { x = 1; } }\n",
			lang:   LangCSharp,
		},
		{
			name:   "java class",
			source: "class A { int x; void m() { x = 1; } }\n",
			lang:   LangJava,
		},
	}

	p := New()
	defer p.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.Parse([]byte(tt.source), tt.lang, "test.file")
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}

			if result.Tree == nil {
				t.Fatal("result.Tree is nil")
			}
			if result.Language != tt.lang {
				t.Errorf("result.Language = %v, want %v", result.Language, tt.lang)
			}
			if result.Path != "test.file" {
				t.Errorf("result.Path = %v, want test.file", result.Path)
			}

			root := result.Tree.RootNode()
			if root.ChildCount() == 0 {
				t.Error("root node has no children")
			}
			if got := FindNodesByType(root, result.Source, "class_declaration"); len(got) != 1 {
				t.Errorf("found %d class declarations, want 1", len(got))
			}
		})
	}
}

func TestParseUnsupported(t *testing.T) {
	p := New()
	defer p.Close()

	if _, err := p.Parse([]byte("a: 1"), LangModel, "types.lcom.yaml"); err == nil {
		t.Error("Parse() should fail for type model documents")
	}
}

func TestWalkTypedAndHelpers(t *testing.T) {
	source := []byte("class A { int x; int y; void M() { x = y; } }\n")

	p := New()
	defer p.Close()

	result, err := p.Parse(source, LangCSharp, "A.cs")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	root := result.Tree.RootNode()

	var idents []string
	WalkTyped(root, source, func(node *sitter.Node, nodeType string, src []byte) bool {
		if nodeType == "identifier" {
			idents = append(idents, GetNodeText(node, src))
		}
		return true
	})
	counts := make(map[string]int)
	for _, id := range idents {
		counts[id]++
	}
	if counts["x"] != 2 || counts["y"] != 2 || counts["M"] != 1 {
		t.Errorf("identifiers = %v, want x and y twice and M once", idents)
	}

	class := FindNodesByType(root, source, "class_declaration")[0]
	if Line(class) != 1 {
		t.Errorf("Line() = %d, want 1", Line(class))
	}
	if !HasToken(class, "class") {
		t.Error("HasToken(class) = false")
	}
	if len(NamedChildren(class)) == 0 {
		t.Error("NamedChildren() returned nothing")
	}
	if got := FindNodesByType(root, source, "field_declaration"); len(got) != 2 {
		t.Errorf("found %d field declarations, want 2", len(got))
	}
	if FirstChildOfType(class, "declaration_list") == nil {
		t.Error("FirstChildOfType(declaration_list) = nil")
	}
	if !SameNode(class, FindNodesByType(root, source, "class_declaration")[0]) {
		t.Error("SameNode() should match the same declaration")
	}
	if GetNodeText(nil, source) != "" {
		t.Error("GetNodeText(nil) should be empty")
	}
}
