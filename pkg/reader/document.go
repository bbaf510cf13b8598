package reader

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/panbanda/lcom/pkg/parser"
	"github.com/panbanda/lcom/pkg/typemodel"
)

//go:embed schema/typemodel.schema.json
var documentSchemaJSON []byte

const documentSchemaURL = "https://github.com/panbanda/lcom/schema/typemodel.schema.json"

var documentSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(documentSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to decode type model schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(documentSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add type model schema: %w", err)
	}
	return c.Compile(documentSchemaURL)
})

// ErrSchema wraps documents that do not conform to the type model schema.
var ErrSchema = errors.New("document does not match the type model schema")

// Document is the on-disk form of a set of types. YAML and JSON share it.
type Document struct {
	Version int       `yaml:"version" json:"version,omitempty"`
	Source  string    `yaml:"source" json:"source,omitempty"`
	Types   []TypeDoc `yaml:"types" json:"types"`
}

// TypeDoc is one declared type. Visibility defaults to public.
type TypeDoc struct {
	Name       string        `yaml:"name" json:"name"`
	Namespace  string        `yaml:"namespace" json:"namespace,omitempty"`
	Line       uint32        `yaml:"line" json:"line,omitempty"`
	Visibility string        `yaml:"visibility" json:"visibility,omitempty"`
	Nested     bool          `yaml:"nested" json:"nested,omitempty"`
	Interface  bool          `yaml:"interface" json:"interface,omitempty"`
	Generated  bool          `yaml:"generated" json:"generated,omitempty"`
	Fields     []FieldDoc    `yaml:"fields" json:"fields,omitempty"`
	Properties []PropertyDoc `yaml:"properties" json:"properties,omitempty"`
	Methods    []MethodDoc   `yaml:"methods" json:"methods,omitempty"`
}

// FieldDoc is one field.
type FieldDoc struct {
	Name   string `yaml:"name" json:"name"`
	Static bool   `yaml:"static" json:"static,omitempty"`
}

// PropertyDoc names its accessors by method id (or name).
type PropertyDoc struct {
	Name   string `yaml:"name" json:"name"`
	Getter string `yaml:"getter" json:"getter,omitempty"`
	Setter string `yaml:"setter" json:"setter,omitempty"`
}

// MethodDoc describes one method. A method without a body key has no body,
// as do methods marked abstract; an empty list is an empty body.
type MethodDoc struct {
	ID            string            `yaml:"id" json:"id,omitempty"`
	Name          string            `yaml:"name" json:"name"`
	DeclaringType string            `yaml:"declaring_type" json:"declaring_type,omitempty"`
	Constructor   bool              `yaml:"constructor" json:"constructor,omitempty"`
	Accessor      bool              `yaml:"accessor" json:"accessor,omitempty"`
	Static        bool              `yaml:"static" json:"static,omitempty"`
	Abstract      bool              `yaml:"abstract" json:"abstract,omitempty"`
	Body          *[]InstructionDoc `yaml:"body" json:"body,omitempty"`
}

// InstructionDoc references members as "name" for the enclosing type or
// "Type::name" for any other type.
type InstructionDoc struct {
	Op     string `yaml:"op" json:"op"`
	Field  string `yaml:"field,omitempty" json:"field,omitempty"`
	Method string `yaml:"method,omitempty" json:"method,omitempty"`
}

// DocumentReader reads *.lcom.yaml and *.lcom.json type model documents.
type DocumentReader struct{}

// NewDocumentReader creates a document reader.
func NewDocumentReader() *DocumentReader {
	return &DocumentReader{}
}

// Read validates content against the embedded schema and builds the types
// it declares. Operands that name no member are reported as errors; missing
// operands are left for the engine to reject per type.
func (r *DocumentReader) Read(path string, content []byte) ([]*typemodel.Type, error) {
	doc, err := DecodeDocument(content)
	if err != nil {
		return nil, &DocumentError{Path: path, Err: err}
	}
	types, err := buildDocument(doc, path)
	if err != nil {
		return nil, &DocumentError{Path: path, Err: err}
	}
	return types, nil
}

// DecodeDocument validates and decodes a YAML or JSON document.
func DecodeDocument(content []byte) (*Document, error) {
	var raw any
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	sch, err := documentSchema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}

	var doc Document
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return &doc, nil
}

type docBuilder struct {
	path     string
	declared map[string]*typemodel.Type
	foreign  map[string]*typemodel.Type
	ids      map[*typemodel.Type]map[string]*typemodel.Method
}

func buildDocument(doc *Document, path string) ([]*typemodel.Type, error) {
	b := &docBuilder{
		path:     path,
		declared: make(map[string]*typemodel.Type),
		foreign:  make(map[string]*typemodel.Type),
		ids:      make(map[*typemodel.Type]map[string]*typemodel.Method),
	}

	types := make([]*typemodel.Type, 0, len(doc.Types))
	for _, td := range doc.Types {
		if _, dup := b.declared[td.Name]; dup {
			return nil, fmt.Errorf("type %q declared twice", td.Name)
		}
		t := b.declareType(td)
		b.declared[td.Name] = t
		types = append(types, t)
	}

	for i, td := range doc.Types {
		if err := b.linkType(types[i], td); err != nil {
			return nil, fmt.Errorf("type %q: %w", td.Name, err)
		}
	}

	return types, nil
}

func (b *docBuilder) declareType(td TypeDoc) *typemodel.Type {
	vis := typemodel.Visibility(td.Visibility)
	if vis == "" {
		vis = typemodel.VisibilityPublic
	}
	t := &typemodel.Type{
		Name:       td.Name,
		Namespace:  td.Namespace,
		Path:       b.path,
		Line:       td.Line,
		Language:   string(parser.LangModel),
		Visibility: vis,
		Nested:     td.Nested || strings.Contains(td.Name, "/"),
		Interface:  td.Interface,
		Generated:  td.Generated,
	}
	for _, fd := range td.Fields {
		t.AddField(fd.Name, fd.Static)
	}

	ids := make(map[string]*typemodel.Method, len(td.Methods))
	for _, md := range td.Methods {
		m := t.AddMethod(md.Name)
		m.IsConstructor = md.Constructor
		m.IsAccessor = md.Accessor
		m.Static = md.Static
		if md.Abstract || md.Body == nil {
			m.HasBody = false
			m.Body = nil
		}
		if md.ID != "" {
			ids[md.ID] = m
		}
	}
	b.ids[t] = ids
	return t
}

func (b *docBuilder) linkType(t *typemodel.Type, td TypeDoc) error {
	for i, md := range td.Methods {
		if md.DeclaringType != "" && md.DeclaringType != t.Name {
			t.Methods[i].DeclaringType = b.typeNamed(md.DeclaringType)
		}
	}

	for _, pd := range td.Properties {
		var get, set *typemodel.Method
		var err error
		if pd.Getter != "" {
			if get, err = b.ownMethod(t, pd.Getter); err != nil {
				return fmt.Errorf("property %q getter: %w", pd.Name, err)
			}
		}
		if pd.Setter != "" {
			if set, err = b.ownMethod(t, pd.Setter); err != nil {
				return fmt.Errorf("property %q setter: %w", pd.Name, err)
			}
		}
		t.AddProperty(pd.Name, get, set)
	}

	for i, md := range td.Methods {
		m := t.Methods[i]
		if !m.HasBody {
			continue
		}
		for pc, id := range *md.Body {
			ins, err := b.instruction(t, id)
			if err != nil {
				return fmt.Errorf("method %q instruction %d: %w", md.Name, pc, err)
			}
			m.Body = append(m.Body, ins)
		}
	}
	return nil
}

func (b *docBuilder) instruction(t *typemodel.Type, id InstructionDoc) (typemodel.Instruction, error) {
	ins := typemodel.Instruction{Op: typemodel.ParseOpCode(id.Op)}
	switch ins.Op {
	case typemodel.OpFieldLoad, typemodel.OpFieldStore:
		if id.Field == "" {
			return ins, nil
		}
		f, err := b.field(t, id.Field)
		if err != nil {
			return ins, err
		}
		ins.Field = f
	case typemodel.OpCall:
		if id.Method == "" {
			return ins, nil
		}
		m, err := b.method(t, id.Method)
		if err != nil {
			return ins, err
		}
		ins.Method = m
	}
	return ins, nil
}

// typeNamed returns the declared type called name, or a stand-in for a type
// outside the document.
func (b *docBuilder) typeNamed(name string) *typemodel.Type {
	if t, ok := b.declared[name]; ok {
		return t
	}
	if t, ok := b.foreign[name]; ok {
		return t
	}
	t := typemodel.NewType(name)
	b.foreign[name] = t
	b.ids[t] = make(map[string]*typemodel.Method)
	return t
}

func splitRef(ref string) (typeName, member string) {
	if i := strings.LastIndex(ref, "::"); i >= 0 {
		return ref[:i], ref[i+2:]
	}
	return "", ref
}

func (b *docBuilder) field(t *typemodel.Type, ref string) (*typemodel.Field, error) {
	owner := t
	typeName, name := splitRef(ref)
	if typeName != "" {
		owner = b.typeNamed(typeName)
	}
	if f := owner.FieldByName(name); f != nil {
		return f, nil
	}
	if _, foreign := b.foreign[owner.Name]; foreign && b.declared[owner.Name] == nil {
		return owner.AddField(name, false), nil
	}
	return nil, fmt.Errorf("unknown field %q", ref)
}

func (b *docBuilder) method(t *typemodel.Type, ref string) (*typemodel.Method, error) {
	owner := t
	typeName, name := splitRef(ref)
	if typeName != "" {
		owner = b.typeNamed(typeName)
	}
	if m, err := b.ownMethod(owner, name); err == nil {
		return m, nil
	}
	if _, foreign := b.foreign[owner.Name]; foreign && b.declared[owner.Name] == nil {
		m := owner.AddMethod(name)
		b.ids[owner][name] = m
		return m, nil
	}
	return nil, fmt.Errorf("unknown method %q", ref)
}

func (b *docBuilder) ownMethod(t *typemodel.Type, ref string) (*typemodel.Method, error) {
	if m, ok := b.ids[t][ref]; ok {
		return m, nil
	}
	if m := t.MethodByName(ref); m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("unknown method %q", ref)
}
