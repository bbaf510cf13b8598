package reader

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/lcom/pkg/parser"
	"github.com/panbanda/lcom/pkg/typemodel"
)

// SourceReader lowers C# or Java source into type models.
//
// Lowering is syntactic. Member references are resolved by name against the
// enclosing type only, locals and parameters shadow members, and anything
// that cannot be resolved becomes an instruction that references nothing.
type SourceReader struct {
	lang parser.Language
}

// NewSourceReader creates a reader for the given source language.
func NewSourceReader(lang parser.Language) *SourceReader {
	return &SourceReader{lang: lang}
}

// Read parses content and returns every type it declares, outer types
// before the types nested in them.
func (r *SourceReader) Read(path string, content []byte) ([]*typemodel.Type, error) {
	u, err := r.Parse(path, content)
	if err != nil {
		return nil, err
	}
	Link(u)
	return u.Types(), nil
}

// Parse declares the types in content without lowering method bodies. The
// returned unit holds the syntax tree until it is lowered or closed.
func (r *SourceReader) Parse(path string, content []byte) (*Unit, error) {
	g, ok := grammars[r.lang]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, r.lang)
	}

	psr := parser.New()
	defer psr.Close()

	result, err := psr.Parse(content, r.lang, path)
	if err != nil {
		return nil, &DocumentError{Path: path, Err: err}
	}

	c := &collector{
		lang:          r.lang,
		src:           result.Source,
		path:          path,
		generatedFile: isGeneratedFile(path),
	}

	root := result.Tree.RootNode()
	switch r.lang {
	case parser.LangCSharp:
		c.csharpDeclarations(root, "", nil)
	case parser.LangJava:
		c.javaDeclarations(root)
	}

	u := &Unit{
		Path:   path,
		types:  c.types,
		source: &sourceUnit{g: g, tree: result.Tree, c: c},
	}
	for _, s := range c.scopes {
		u.partial = u.partial || s.partial
	}
	return u, nil
}

func isGeneratedFile(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range []string{".g.cs", ".g.i.cs", ".designer.cs", ".generated.cs"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// typeScope holds the name tables of one declared type while its bodies are
// lowered. A later part of a partial type is lowered in the scope it was
// merged into.
type typeScope struct {
	t       *typemodel.Type
	short   string
	consts  map[string]bool
	backing map[string]*typemodel.Field // property name -> backing field
	pending []pendingBody

	partial        bool
	explicitAccess bool
	into           *typeScope
}

// pendingBody is a method whose instructions are produced once every member
// of the type is known, so forward references resolve.
type pendingBody struct {
	method *typemodel.Method
	body   *sitter.Node
	params *sitter.Node
	locals []string
}

type collector struct {
	lang          parser.Language
	src           []byte
	path          string
	generatedFile bool
	types         []*typemodel.Type
	scopes        []*typeScope
}

func (c *collector) text(n *sitter.Node) string {
	return strings.TrimSpace(parser.GetNodeText(n, c.src))
}

func (c *collector) addType(t *typemodel.Type, short string) *typeScope {
	s := &typeScope{
		t:       t,
		short:   short,
		consts:  make(map[string]bool),
		backing: make(map[string]*typemodel.Field),
	}
	c.types = append(c.types, t)
	c.scopes = append(c.scopes, s)
	return s
}

// addMethod registers a method and schedules its body for lowering. A nil
// body means the method has none.
func (s *typeScope) addMethod(name string, body, params *sitter.Node, locals ...string) *typemodel.Method {
	m := s.t.AddMethod(name)
	s.schedule(m, body, params, locals...)
	return m
}

func (s *typeScope) schedule(m *typemodel.Method, body, params *sitter.Node, locals ...string) {
	if body == nil {
		m.HasBody = false
		m.Body = nil
		return
	}
	m.HasBody = true
	m.Body = []typemodel.Instruction{}
	s.pending = append(s.pending, pendingBody{method: m, body: body, params: params, locals: locals})
}

func joinName(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + "." + name
}

func isGeneratedAttribute(name string) bool {
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "Attribute")
	switch name {
	case "CompilerGenerated", "GeneratedCode", "Generated":
		return true
	default:
		return false
	}
}

// grammar names the syntax nodes the lowerer treats specially.
type grammar struct {
	memberAccess string
	objectField  string
	memberField  string
	this         map[string]bool
	update       map[string]bool
	skip         map[string]bool
	decl         map[string]bool
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

var grammars = map[parser.Language]*grammar{
	parser.LangCSharp: {
		memberAccess: "member_access_expression",
		objectField:  "expression",
		memberField:  "name",
		this:         set("this_expression", "this"),
		update:       set("prefix_unary_expression", "postfix_unary_expression"),
		skip: set(
			"predefined_type", "generic_name", "qualified_name", "alias_qualified_name",
			"nullable_type", "pointer_type", "tuple_type", "function_pointer_type", "ref_type",
			"type_argument_list", "type_parameter_list", "attribute_list", "name_colon",
			"name_equals", "base_expression", "base", "explicit_interface_specifier",
		),
		decl: set(
			"parameter", "variable_declarator", "catch_declaration", "declaration_expression",
			"local_function_statement", "single_variable_designation",
		),
	},
	parser.LangJava: {
		memberAccess: "field_access",
		objectField:  "object",
		memberField:  "field",
		this:         set("this"),
		update:       set("update_expression"),
		skip: set(
			"type_identifier", "scoped_type_identifier", "generic_type", "integral_type",
			"floating_point_type", "boolean_type", "void_type", "type_arguments",
			"marker_annotation", "annotation", "dimensions", "super", "class_literal",
			"method_reference", "class_body", "class_declaration", "interface_declaration",
			"enum_declaration", "record_declaration",
		),
		decl: set(
			"formal_parameter", "variable_declarator", "catch_formal_parameter",
			"enhanced_for_statement", "resource", "instanceof_expression",
		),
	},
}

// lowerer turns one method body into instructions.
type lowerer struct {
	g      *grammar
	src    []byte
	scope  *typeScope
	locals map[string]bool
	out    []typemodel.Instruction
}

func newLowerer(g *grammar, src []byte, scope *typeScope) *lowerer {
	return &lowerer{
		g:      g,
		src:    src,
		scope:  scope,
		locals: make(map[string]bool),
		out:    []typemodel.Instruction{},
	}
}

func (l *lowerer) lower(pb pendingBody) []typemodel.Instruction {
	for _, name := range pb.locals {
		l.locals[name] = true
	}
	l.declare(pb.params)
	l.declare(pb.body)
	l.expr(pb.body)
	return l.out
}

func (l *lowerer) text(n *sitter.Node) string {
	return strings.TrimSpace(parser.GetNodeText(n, l.src))
}

func (l *lowerer) emit(ins typemodel.Instruction) {
	l.out = append(l.out, ins)
}

// declare records every name introduced inside root. Scoping is flattened
// to the whole method: a name declared anywhere shadows members everywhere.
func (l *lowerer) declare(root *sitter.Node) {
	if root == nil {
		return
	}
	parser.WalkTyped(root, l.src, func(node *sitter.Node, nodeType string, _ []byte) bool {
		if l.g.decl[nodeType] {
			l.declareNode(node, nodeType)
		}
		switch nodeType {
		case "foreach_statement":
			if left := node.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
				l.locals[l.text(left)] = true
			}
		case "lambda_expression":
			if p := node.ChildByFieldName("parameters"); p != nil && p.Type() == "identifier" {
				l.locals[l.text(p)] = true
			}
		case "inferred_parameters", "tuple_pattern":
			for _, id := range parser.NamedChildren(node) {
				if id.Type() == "identifier" {
					l.locals[l.text(id)] = true
				}
			}
		case "implicit_parameter":
			l.locals[l.text(node)] = true
		}
		return true
	})
}

func (l *lowerer) declareNode(node *sitter.Node, nodeType string) {
	if name := node.ChildByFieldName("name"); name != nil {
		if name.Type() == "identifier" {
			l.locals[l.text(name)] = true
		}
		return
	}
	switch nodeType {
	case "variable_declarator", "single_variable_designation":
		if node.NamedChildCount() == 0 {
			l.locals[l.text(node)] = true
			return
		}
		if id := parser.FirstChildOfType(node, "identifier"); id != nil {
			l.locals[l.text(id)] = true
		}
	}
}

func (l *lowerer) unparen(n *sitter.Node) *sitter.Node {
	for n != nil && n.Type() == "parenthesized_expression" && n.NamedChildCount() == 1 {
		n = n.NamedChild(0)
	}
	return n
}

// isSelf reports whether obj denotes the enclosing type or its instance:
// this, or the type's own name for static access.
func (l *lowerer) isSelf(obj *sitter.Node) bool {
	obj = l.unparen(obj)
	if obj == nil {
		return false
	}
	if l.g.this[obj.Type()] {
		return true
	}
	if obj.Type() == "identifier" {
		name := l.text(obj)
		return name == l.scope.short && !l.locals[name]
	}
	return false
}

func (l *lowerer) simpleName(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	if n.Type() == "generic_name" {
		if id := parser.FirstChildOfType(n, "identifier"); id != nil {
			return l.text(id)
		}
	}
	return l.text(n)
}

func (l *lowerer) expr(n *sitter.Node) {
	if n == nil || !n.IsNamed() {
		return
	}

	nodeType := n.Type()
	switch {
	case l.g.skip[nodeType]:
		return
	case nodeType == "identifier":
		l.read(l.text(n), true)
		return
	case nodeType == l.g.memberAccess:
		obj := n.ChildByFieldName(l.g.objectField)
		if l.isSelf(obj) {
			l.read(l.simpleName(n.ChildByFieldName(l.g.memberField)), false)
		} else {
			l.expr(obj)
		}
		return
	case nodeType == "assignment_expression":
		l.assign(n)
		return
	case l.g.update[nodeType]:
		if operand := l.incDecOperand(n); operand != nil {
			l.expr(operand)
			l.store(operand)
			return
		}
	case nodeType == "invocation_expression":
		l.invokeCSharp(n)
		return
	case nodeType == "method_invocation":
		l.invokeJava(n)
		return
	case nodeType == "initializer_expression":
		// Object initializer targets are members of the created object.
		for _, child := range parser.NamedChildren(n) {
			if child.Type() == "assignment_expression" {
				l.expr(child.ChildByFieldName("right"))
				continue
			}
			l.expr(child)
		}
		return
	}

	l.children(n)
}

func (l *lowerer) children(n *sitter.Node) {
	typ := n.ChildByFieldName("type")
	name := n.ChildByFieldName("name")
	for _, child := range parser.NamedChildren(n) {
		if parser.SameNode(child, name) {
			continue
		}
		if parser.SameNode(child, typ) && child.Type() == "identifier" {
			continue
		}
		l.expr(child)
	}
}

func (l *lowerer) incDecOperand(n *sitter.Node) *sitter.Node {
	if !parser.HasToken(n, "++") && !parser.HasToken(n, "--") {
		return nil
	}
	if n.NamedChildCount() == 0 {
		return nil
	}
	return n.NamedChild(0)
}

func (l *lowerer) operator(n, left, right *sitter.Node) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return l.text(op)
	}
	for i := range int(n.ChildCount()) {
		child := n.Child(i)
		if parser.SameNode(child, left) || parser.SameNode(child, right) {
			continue
		}
		return l.text(child)
	}
	return "="
}

func (l *lowerer) assign(n *sitter.Node) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if op := l.operator(n, left, right); op != "=" {
		l.expr(left)
	}
	l.expr(right)
	l.store(left)
}

// store lowers an assignment target. Only a direct member target is a
// store; anything else (element access, a member of a member) reads the
// container.
func (l *lowerer) store(target *sitter.Node) {
	target = l.unparen(target)
	if target == nil {
		return
	}
	switch target.Type() {
	case "identifier":
		l.write(l.text(target), true)
	case l.g.memberAccess:
		obj := target.ChildByFieldName(l.g.objectField)
		if l.isSelf(obj) {
			l.write(l.simpleName(target.ChildByFieldName(l.g.memberField)), false)
		} else {
			l.expr(obj)
		}
	case "tuple_expression":
		for _, arg := range parser.NamedChildren(target) {
			if arg.Type() == "argument" && arg.NamedChildCount() > 0 {
				l.store(arg.NamedChild(int(arg.NamedChildCount()) - 1))
			}
		}
	case "declaration_expression":
	default:
		l.expr(target)
	}
}

func (l *lowerer) invokeCSharp(n *sitter.Node) {
	fn := l.unparen(n.ChildByFieldName("function"))
	args := n.ChildByFieldName("arguments")

	switch {
	case fn == nil:
	case fn.Type() == "identifier" || fn.Type() == "generic_name":
		name := l.simpleName(fn)
		if name == "nameof" && l.scope.t.MethodByName(name) == nil {
			// nameof folds to a string constant.
			return
		}
		l.call(name, true)
	case fn.Type() == l.g.memberAccess:
		obj := fn.ChildByFieldName(l.g.objectField)
		if l.isSelf(obj) {
			l.call(l.simpleName(fn.ChildByFieldName(l.g.memberField)), false)
		} else {
			l.expr(obj)
		}
	default:
		l.expr(fn)
	}
	l.expr(args)
}

func (l *lowerer) invokeJava(n *sitter.Node) {
	obj := n.ChildByFieldName("object")
	name := l.text(n.ChildByFieldName("name"))
	switch {
	case obj == nil:
		l.call(name, true)
	case l.isSelf(obj):
		l.call(name, false)
	default:
		l.expr(obj)
	}
	l.expr(n.ChildByFieldName("arguments"))
}

func (l *lowerer) call(name string, checkLocals bool) {
	if name == "" || (checkLocals && l.locals[name]) {
		return
	}
	if m := l.scope.t.MethodByName(name); m != nil && !m.IsAccessor {
		l.emit(typemodel.Call(m))
		return
	}
	// Invoking a delegate held in a member reads that member.
	l.read(name, false)
}

func (l *lowerer) read(name string, checkLocals bool) {
	if name == "" || (checkLocals && l.locals[name]) {
		return
	}
	s := l.scope
	if f := s.t.FieldByName(name); f != nil {
		// Constants are folded into the reading code.
		if !s.consts[name] {
			l.emit(typemodel.Load(f))
		}
		return
	}
	if p := s.t.PropertyByName(name); p != nil {
		switch {
		case p.Getter != nil:
			l.emit(typemodel.Call(p.Getter))
		case s.backing[name] != nil:
			l.emit(typemodel.Load(s.backing[name]))
		}
	}
}

func (l *lowerer) write(name string, checkLocals bool) {
	if name == "" || (checkLocals && l.locals[name]) {
		return
	}
	s := l.scope
	if f := s.t.FieldByName(name); f != nil {
		l.emit(typemodel.Store(f))
		return
	}
	if p := s.t.PropertyByName(name); p != nil {
		switch {
		case p.Setter != nil:
			l.emit(typemodel.Call(p.Setter))
		case s.backing[name] != nil:
			// Get-only auto properties are assigned through their storage.
			l.emit(typemodel.Store(s.backing[name]))
		}
	}
}
