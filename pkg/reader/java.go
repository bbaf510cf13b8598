package reader

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/lcom/pkg/parser"
	"github.com/panbanda/lcom/pkg/typemodel"
)

var javaTypeDecls = set("class_declaration", "interface_declaration", "enum_declaration", "record_declaration")

func (c *collector) javaDeclarations(root *sitter.Node) {
	pkg := ""
	for _, child := range parser.NamedChildren(root) {
		switch child.Type() {
		case "package_declaration":
			if name := parser.FirstChildOfType(child, "scoped_identifier", "identifier"); name != nil {
				pkg = c.text(name)
			}
		default:
			if javaTypeDecls[child.Type()] {
				c.javaType(child, pkg, nil)
			}
		}
	}
}

// javaModifiers returns modifier keywords and annotation names.
func (c *collector) javaModifiers(node *sitter.Node) (map[string]bool, bool) {
	mods := make(map[string]bool)
	generated := false

	list := parser.FirstChildOfType(node, "modifiers")
	if list == nil {
		return mods, false
	}
	for i := range int(list.ChildCount()) {
		child := list.Child(i)
		switch child.Type() {
		case "marker_annotation", "annotation":
			if isGeneratedAttribute(c.text(child.ChildByFieldName("name"))) {
				generated = true
			}
		default:
			mods[c.text(child)] = true
		}
	}
	return mods, generated
}

func javaVisibility(mods map[string]bool) typemodel.Visibility {
	switch {
	case mods["public"]:
		return typemodel.VisibilityPublic
	case mods["protected"]:
		return typemodel.VisibilityProtected
	case mods["private"]:
		return typemodel.VisibilityPrivate
	default:
		return typemodel.VisibilityPackage
	}
}

func (c *collector) javaType(node *sitter.Node, pkg string, outer *typeScope) {
	mods, generated := c.javaModifiers(node)
	short := c.text(node.ChildByFieldName("name"))

	t := &typemodel.Type{
		Namespace:  pkg,
		Path:       c.path,
		Line:       parser.Line(node),
		Language:   string(parser.LangJava),
		Visibility: javaVisibility(mods),
		Nested:     outer != nil,
		Interface:  node.Type() == "interface_declaration",
		Generated:  c.generatedFile || generated,
	}
	if outer != nil {
		t.Name = outer.t.Name + "$" + short
		t.Generated = t.Generated || outer.t.Generated
	} else {
		t.Name = joinName(pkg, short)
	}
	s := c.addType(t, short)

	// Record components are private final fields.
	if node.Type() == "record_declaration" {
		for _, p := range parser.NamedChildren(node.ChildByFieldName("parameters")) {
			if p.Type() == "formal_parameter" {
				t.AddField(c.text(p.ChildByFieldName("name")), false)
			}
		}
	}

	body := node.ChildByFieldName("body")
	if node.Type() == "enum_declaration" {
		for _, member := range parser.NamedChildren(body) {
			switch member.Type() {
			case "enum_constant":
				t.AddField(c.text(member.ChildByFieldName("name")), true)
			case "enum_body_declarations":
				c.javaMembers(s, member, pkg)
			}
		}
		return
	}
	c.javaMembers(s, body, pkg)
}

func (c *collector) javaMembers(s *typeScope, body *sitter.Node, pkg string) {
	for _, member := range parser.NamedChildren(body) {
		switch member.Type() {
		case "field_declaration", "constant_declaration":
			mods, _ := c.javaModifiers(member)
			static := mods["static"] || s.t.Interface
			for _, d := range parser.NamedChildren(member) {
				if d.Type() == "variable_declarator" {
					s.t.AddField(c.text(d.ChildByFieldName("name")), static)
				}
			}
		case "method_declaration":
			mods, _ := c.javaModifiers(member)
			m := s.addMethod(c.text(member.ChildByFieldName("name")), member.ChildByFieldName("body"), member.ChildByFieldName("parameters"))
			m.Static = mods["static"]
		case "constructor_declaration", "compact_constructor_declaration":
			m := s.addMethod("<init>", member.ChildByFieldName("body"), member.ChildByFieldName("parameters"))
			m.IsConstructor = true
		case "static_initializer":
			m := s.addMethod("<clinit>", parser.FirstChildOfType(member, "block"), nil)
			m.IsConstructor = true
			m.Static = true
		default:
			if javaTypeDecls[member.Type()] {
				c.javaType(member, pkg, s)
			}
		}
	}
}
