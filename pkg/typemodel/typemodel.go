// Package typemodel describes object-oriented types as a set of data members
// and methods whose bodies are ordered instruction streams.
//
// Values are produced by a reader (source lowering or a model document) and
// consumed read-only by the cohesion engine. Member and method identity is
// pointer identity: two fields with the same name on different types are
// different fields.
package typemodel

import "strings"

// Visibility is the declared accessibility of a type.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityInternal  Visibility = "internal"
	VisibilityProtected Visibility = "protected"
	VisibilityPrivate   Visibility = "private"
	VisibilityPackage   Visibility = "package"
)

func (v Visibility) String() string { return string(v) }

// Type is a class-like declaration with ordered members.
type Type struct {
	Name       string     `json:"name"`
	Namespace  string     `json:"namespace,omitempty"`
	Path       string     `json:"path,omitempty"`
	Line       uint32     `json:"line,omitempty"`
	Language   string     `json:"language,omitempty"`
	Visibility Visibility `json:"visibility,omitempty"`
	Nested     bool       `json:"nested,omitempty"`
	Interface  bool       `json:"interface,omitempty"`
	Generated  bool       `json:"generated,omitempty"`

	Fields     []*Field    `json:"fields,omitempty"`
	Properties []*Property `json:"properties,omitempty"`
	Methods    []*Method   `json:"methods,omitempty"`
}

// Field is a data member. Static and instance fields are modelled alike.
type Field struct {
	Name          string `json:"name"`
	Static        bool   `json:"static,omitempty"`
	DeclaringType *Type  `json:"-"`
}

// Property is a data member reached through accessor methods.
type Property struct {
	Name          string  `json:"name"`
	Getter        *Method `json:"-"`
	Setter        *Method `json:"-"`
	DeclaringType *Type   `json:"-"`
}

// Method is a callable member. Body is nil when HasBody is false.
type Method struct {
	Name          string        `json:"name"`
	DeclaringType *Type         `json:"-"`
	HasBody       bool          `json:"has_body"`
	IsConstructor bool          `json:"constructor,omitempty"`
	IsAccessor    bool          `json:"accessor,omitempty"`
	Static        bool          `json:"static,omitempty"`
	Body          []Instruction `json:"-"`
}

// Instruction is one step of a method body. Field is set for loads and
// stores, Method for calls.
type Instruction struct {
	Op     OpCode
	Field  *Field
	Method *Method
}

// NewType creates an empty type with the given full name.
func NewType(name string) *Type {
	return &Type{Name: name}
}

// AddField appends a field owned by t.
func (t *Type) AddField(name string, static bool) *Field {
	f := &Field{Name: name, Static: static, DeclaringType: t}
	t.Fields = append(t.Fields, f)
	return f
}

// AddMethod appends a method owned by t. The method starts with an empty
// body; set HasBody to false for abstract or extern methods.
func (t *Type) AddMethod(name string) *Method {
	m := &Method{Name: name, DeclaringType: t, HasBody: true, Body: []Instruction{}}
	t.Methods = append(t.Methods, m)
	return m
}

// AddProperty appends a property owned by t. Non-nil accessors are
// registered as accessor methods of t if they are not listed yet.
func (t *Type) AddProperty(name string, getter, setter *Method) *Property {
	p := &Property{Name: name, Getter: getter, Setter: setter, DeclaringType: t}
	for _, m := range []*Method{getter, setter} {
		if m == nil {
			continue
		}
		m.IsAccessor = true
		if m.DeclaringType == nil {
			m.DeclaringType = t
		}
		if !t.HasMethod(m) {
			t.Methods = append(t.Methods, m)
		}
	}
	t.Properties = append(t.Properties, p)
	return p
}

// HasField reports whether f is one of t's fields.
func (t *Type) HasField(f *Field) bool {
	for _, own := range t.Fields {
		if own == f {
			return true
		}
	}
	return false
}

// HasMethod reports whether m is one of t's methods.
func (t *Type) HasMethod(m *Method) bool {
	for _, own := range t.Methods {
		if own == m {
			return true
		}
	}
	return false
}

// FieldByName returns the first field called name, or nil.
func (t *Type) FieldByName(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// PropertyByName returns the first property called name, or nil.
func (t *Type) PropertyByName(name string) *Property {
	for _, p := range t.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// MethodByName returns the first method called name, or nil.
func (t *Type) MethodByName(name string) *Method {
	for _, m := range t.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Exported reports whether the type is visible outside its assembly or
// package. Nested types count only when declared public.
func (t *Type) Exported() bool {
	return t.Visibility == VisibilityPublic
}

// ShortName returns the name without namespace and enclosing types.
func (t *Type) ShortName() string {
	name := t.Name
	if i := strings.LastIndexAny(name, "./$"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Emit appends instructions to the method body.
func (m *Method) Emit(ins ...Instruction) *Method {
	m.Body = append(m.Body, ins...)
	return m
}

// BackingFieldName returns the compiler naming used for the storage of an
// auto-implemented property.
func BackingFieldName(property string) string {
	return "<" + property + ">k__BackingField"
}

// IsBackingFieldName reports whether name follows the backing field
// convention and returns the property it belongs to.
func IsBackingFieldName(name string) (string, bool) {
	const suffix = ">k__BackingField"
	if !strings.HasPrefix(name, "<") || !strings.HasSuffix(name, suffix) {
		return "", false
	}
	prop := name[1 : len(name)-len(suffix)]
	if prop == "" {
		return "", false
	}
	return prop, true
}
