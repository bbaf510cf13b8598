package reader

import (
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/lcom/pkg/parser"
	"github.com/panbanda/lcom/pkg/typemodel"
)

var csharpTypeDecls = set(
	"class_declaration", "struct_declaration", "record_declaration",
	"record_struct_declaration", "interface_declaration", "enum_declaration",
)

// csharpDeclarations walks namespaces and collects every type declaration.
func (c *collector) csharpDeclarations(node *sitter.Node, ns string, outer *typeScope) {
	for _, child := range parser.NamedChildren(node) {
		switch nodeType := child.Type(); {
		case nodeType == "namespace_declaration":
			name := c.text(child.ChildByFieldName("name"))
			body := child.ChildByFieldName("body")
			if body == nil {
				body = parser.FirstChildOfType(child, "declaration_list")
			}
			c.csharpDeclarations(body, joinName(ns, name), nil)
		case nodeType == "file_scoped_namespace_declaration":
			// Applies to the declarations that follow it, whether the grammar
			// nests them or leaves them as siblings.
			ns = joinName(ns, c.text(child.ChildByFieldName("name")))
			c.csharpDeclarations(child, ns, nil)
		case nodeType == "declaration_list":
			c.csharpDeclarations(child, ns, outer)
		case csharpTypeDecls[nodeType]:
			c.csharpType(child, ns, outer)
		}
	}
}

type csharpModifiers map[string]bool

func (c *collector) csharpModifiers(node *sitter.Node) csharpModifiers {
	mods := make(csharpModifiers)
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		if child.Type() == "modifier" {
			mods[c.text(child)] = true
		}
	}
	return mods
}

func (c *collector) csharpGeneratedAttribute(node *sitter.Node) bool {
	for _, list := range parser.NamedChildren(node) {
		if list.Type() != "attribute_list" {
			continue
		}
		for _, attr := range parser.NamedChildren(list) {
			if attr.Type() == "attribute" && isGeneratedAttribute(c.text(attr.ChildByFieldName("name"))) {
				return true
			}
		}
	}
	return false
}

func csharpVisibility(mods csharpModifiers, nested bool) typemodel.Visibility {
	switch {
	case mods["public"]:
		return typemodel.VisibilityPublic
	case mods["protected"]:
		return typemodel.VisibilityProtected
	case mods["internal"]:
		return typemodel.VisibilityInternal
	case mods["private"]:
		return typemodel.VisibilityPrivate
	case nested:
		return typemodel.VisibilityPrivate
	default:
		return typemodel.VisibilityInternal
	}
}

func (c *collector) csharpType(node *sitter.Node, ns string, outer *typeScope) {
	mods := c.csharpModifiers(node)
	short := c.text(node.ChildByFieldName("name"))
	name := short
	if tps := node.ChildByFieldName("type_parameters"); tps != nil {
		name += "`" + strconv.Itoa(int(tps.NamedChildCount()))
	} else if tps := parser.FirstChildOfType(node, "type_parameter_list"); tps != nil {
		name += "`" + strconv.Itoa(int(tps.NamedChildCount()))
	}

	t := &typemodel.Type{
		Namespace:  ns,
		Path:       c.path,
		Line:       parser.Line(node),
		Language:   string(parser.LangCSharp),
		Visibility: csharpVisibility(mods, outer != nil),
		Nested:     outer != nil,
		Interface:  node.Type() == "interface_declaration",
		Generated:  c.generatedFile || c.csharpGeneratedAttribute(node),
	}
	if outer != nil {
		t.Name = outer.t.Name + "/" + name
		t.Generated = t.Generated || outer.t.Generated
	} else {
		t.Name = joinName(ns, name)
	}
	s := c.addType(t, short)
	s.partial = mods.has("partial")
	s.explicitAccess = mods.has("public") || mods.has("protected") || mods.has("internal") || mods.has("private")

	body := node.ChildByFieldName("body")
	if body == nil {
		body = parser.FirstChildOfType(node, "declaration_list", "enum_member_declaration_list")
	}

	if node.Type() == "enum_declaration" {
		t.AddField("value__", false)
		for _, member := range parser.NamedChildren(body) {
			if member.Type() == "enum_member_declaration" {
				name := c.text(member.ChildByFieldName("name"))
				if name == "" {
					name = c.text(parser.FirstChildOfType(member, "identifier"))
				}
				t.AddField(name, true)
				s.consts[name] = true
			}
		}
		return
	}

	// Positional record parameters become init-only auto properties.
	isRecord := node.Type() == "record_declaration" || node.Type() == "record_struct_declaration"
	if params := parser.FirstChildOfType(node, "parameter_list"); params != nil && isRecord {
		for _, p := range parser.NamedChildren(params) {
			if p.Type() == "parameter" {
				c.csharpAutoProperty(s, c.text(p.ChildByFieldName("name")), false, true, true)
			}
		}
	}

	for _, member := range parser.NamedChildren(body) {
		switch member.Type() {
		case "field_declaration":
			c.csharpField(s, member)
		case "property_declaration", "indexer_declaration":
			c.csharpProperty(s, member)
		case "method_declaration":
			c.csharpMethod(s, member)
		case "constructor_declaration":
			name := ".ctor"
			if c.csharpModifiers(member).has("static") {
				name = ".cctor"
			}
			m := s.addMethod(name, csharpBody(member), csharpParams(member))
			m.IsConstructor = true
			m.Static = name == ".cctor"
		case "destructor_declaration":
			s.addMethod("Finalize", csharpBody(member), csharpParams(member))
		case "operator_declaration", "conversion_operator_declaration":
			m := s.addMethod(c.csharpOperatorName(member), csharpBody(member), csharpParams(member))
			m.Static = true
		default:
			if csharpTypeDecls[member.Type()] {
				c.csharpType(member, ns, s)
			}
		}
	}
}

func (m csharpModifiers) has(name string) bool { return m[name] }

func csharpBody(node *sitter.Node) *sitter.Node {
	if body := node.ChildByFieldName("body"); body != nil {
		return body
	}
	return parser.FirstChildOfType(node, "block", "arrow_expression_clause")
}

func csharpParams(node *sitter.Node) *sitter.Node {
	if params := node.ChildByFieldName("parameters"); params != nil {
		return params
	}
	return parser.FirstChildOfType(node, "parameter_list", "bracketed_parameter_list")
}

func (c *collector) csharpField(s *typeScope, node *sitter.Node) {
	mods := c.csharpModifiers(node)
	isConst := mods["const"]
	static := mods["static"] || isConst

	decl := parser.FirstChildOfType(node, "variable_declaration")
	for _, d := range parser.NamedChildren(decl) {
		if d.Type() != "variable_declarator" {
			continue
		}
		name := c.text(d.ChildByFieldName("name"))
		if name == "" {
			name = c.text(parser.FirstChildOfType(d, "identifier"))
		}
		if name == "" {
			continue
		}
		s.t.AddField(name, static)
		if isConst {
			s.consts[name] = true
		}
	}
}

// csharpAutoProperty declares a property backed by a compiler-named field.
func (c *collector) csharpAutoProperty(s *typeScope, name string, static, getter, setter bool) {
	if name == "" {
		return
	}
	backing := s.t.AddField(typemodel.BackingFieldName(name), static)
	s.backing[name] = backing

	var get, set *typemodel.Method
	if getter {
		get = &typemodel.Method{Name: "get_" + name, HasBody: true, Static: static}
		get.Emit(typemodel.Load(backing))
	}
	if setter {
		set = &typemodel.Method{Name: "set_" + name, HasBody: true, Static: static}
		set.Emit(typemodel.Store(backing))
	}
	s.t.AddProperty(name, get, set)
}

type csharpAccessor struct {
	kind string
	body *sitter.Node
}

func (c *collector) csharpProperty(s *typeScope, node *sitter.Node) {
	mods := c.csharpModifiers(node)
	static := mods["static"]
	abstract := s.t.Interface || mods["abstract"] || mods["extern"]

	name := c.text(node.ChildByFieldName("name"))
	var params *sitter.Node
	if node.Type() == "indexer_declaration" {
		name = "Item"
		params = csharpParams(node)
	}
	if name == "" {
		return
	}

	var accessors []csharpAccessor
	if value := node.ChildByFieldName("value"); value != nil && value.Type() == "arrow_expression_clause" {
		accessors = append(accessors, csharpAccessor{kind: "get", body: value})
	} else if value := parser.FirstChildOfType(node, "arrow_expression_clause"); value != nil {
		accessors = append(accessors, csharpAccessor{kind: "get", body: value})
	}

	list := node.ChildByFieldName("accessors")
	if list == nil {
		list = parser.FirstChildOfType(node, "accessor_list")
	}
	auto := !abstract && list != nil && node.Type() == "property_declaration"
	for _, acc := range parser.NamedChildren(list) {
		if acc.Type() != "accessor_declaration" {
			continue
		}
		kind := parser.FirstChildOfType(acc, "get", "set", "init")
		if kind == nil {
			continue
		}
		body := csharpBody(acc)
		if body != nil {
			auto = false
		}
		accessors = append(accessors, csharpAccessor{kind: kind.Type(), body: body})
	}
	if len(accessors) == 0 {
		return
	}

	if auto {
		hasGet, hasSet := false, false
		for _, acc := range accessors {
			if acc.kind == "get" {
				hasGet = true
			} else {
				hasSet = true
			}
		}
		c.csharpAutoProperty(s, name, static, hasGet, hasSet)
		return
	}

	var get, set *typemodel.Method
	for _, acc := range accessors {
		m := &typemodel.Method{Static: static}
		if acc.kind == "get" {
			m.Name = "get_" + name
			get = m
		} else {
			m.Name = "set_" + name
			set = m
		}
		m.DeclaringType = s.t
		if abstract {
			s.schedule(m, nil, nil)
			continue
		}
		locals := []string(nil)
		if acc.kind != "get" {
			locals = []string{"value"}
		}
		s.schedule(m, acc.body, params, locals...)
	}
	s.t.AddProperty(name, get, set)
}

func (c *collector) csharpMethod(s *typeScope, node *sitter.Node) {
	mods := c.csharpModifiers(node)
	name := c.text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	m := s.addMethod(name, csharpBody(node), csharpParams(node))
	m.Static = mods["static"]
}

var csharpBinaryOperators = map[string]string{
	"+": "Addition", "-": "Subtraction", "*": "Multiply", "/": "Division", "%": "Modulus",
	"&": "BitwiseAnd", "|": "BitwiseOr", "^": "ExclusiveOr", "<<": "LeftShift", ">>": "RightShift",
	"==": "Equality", "!=": "Inequality", "<": "LessThan", ">": "GreaterThan",
	"<=": "LessThanOrEqual", ">=": "GreaterThanOrEqual",
}

var csharpUnaryOperators = map[string]string{
	"+": "UnaryPlus", "-": "UnaryNegation", "!": "LogicalNot", "~": "OnesComplement",
	"++": "Increment", "--": "Decrement", "true": "True", "false": "False",
}

// csharpOperatorName returns the metadata name of a user-defined operator.
func (c *collector) csharpOperatorName(node *sitter.Node) string {
	if node.Type() == "conversion_operator_declaration" {
		if parser.HasToken(node, "explicit") {
			return "op_Explicit"
		}
		return "op_Implicit"
	}

	op := c.text(node.ChildByFieldName("operator"))
	if op == "" {
		for i := range int(node.ChildCount()) - 1 {
			if node.Child(i).Type() == "operator" {
				op = c.text(node.Child(i + 1))
				break
			}
		}
	}

	arity := 0
	for _, p := range parser.NamedChildren(csharpParams(node)) {
		if p.Type() == "parameter" {
			arity++
		}
	}
	table := csharpBinaryOperators
	if arity == 1 {
		table = csharpUnaryOperators
	}
	if name, ok := table[op]; ok {
		return "op_" + name
	}
	return "op_Operator"
}
