package reader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/lcom/pkg/analyzer/lcom"
	"github.com/panbanda/lcom/pkg/typemodel"
)

const testClass1Document = `
version: 1
source: LCOM.Tests.dll
types:
  - name: LCOM.Tests.TestClass1
    namespace: LCOM.Tests
    fields:
      - {name: f1, static: true}
      - {name: "<f2>k__BackingField"}
      - {name: f3}
      - {name: f4}
    properties:
      - {name: f2, getter: get_f2, setter: set_f2}
    methods:
      - name: get_f2
        accessor: true
        body:
          - {op: ldfld, field: "<f2>k__BackingField"}
      - name: set_f2
        accessor: true
        body:
          - {op: stfld, field: "<f2>k__BackingField"}
      - name: .ctor
        constructor: true
        body:
          - {op: call, method: "System.Object::.ctor"}
      - name: M1
        body:
          - {op: ldsfld, field: f1}
          - {op: ldarg.0}
          - {op: call, method: get_f2}
          - {op: add}
      - name: M2
        body:
          - {op: stfld, field: f3}
      - name: M3
        body:
          - {op: ldfld, field: f4}
          - {op: stfld, field: f3}
      - name: M4
        static: true
        body:
          - {op: ldsflda, field: f1}
      - name: M5
        abstract: true
`

func TestDocument_TestClass1(t *testing.T) {
	types, err := NewDocumentReader().Read("TestClass1.lcom.yaml", []byte(testClass1Document))
	require.NoError(t, err)
	require.Len(t, types, 1)

	typ := types[0]
	assert.Equal(t, typemodel.VisibilityPublic, typ.Visibility)
	assert.Equal(t, "model", typ.Language)
	require.Len(t, typ.Properties, 1)
	assert.True(t, typ.Properties[0].Getter.IsAccessor)
	assert.False(t, typ.MethodByName("M5").HasBody)

	ctor := typ.MethodByName(".ctor")
	require.Len(t, ctor.Body, 1)
	assert.Equal(t, "System.Object", ctor.Body[0].Method.DeclaringType.Name)

	got, err := lcom.ComputeLackOfCohesion(typ)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestDocument_MethodWithoutBodyKey(t *testing.T) {
	doc := `
types:
  - name: Interop
    fields: [{name: x}]
    methods:
      - name: M1
        body: [{op: field_load, field: x}]
      - name: M2
        body: [{op: field_store, field: x}]
      - name: Ext
      - name: Empty
        body: []
`
	types, err := NewDocumentReader().Read("interop.lcom.yaml", []byte(doc))
	require.NoError(t, err)
	require.Len(t, types, 1)

	typ := types[0]
	assert.False(t, typ.MethodByName("Ext").HasBody)
	assert.Nil(t, typ.MethodByName("Ext").Body)
	assert.True(t, typ.MethodByName("Empty").HasBody)

	// Empty shares nothing with M1 or M2: P=2, Q=1.
	got, err := lcom.ComputeLackOfCohesion(typ)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	withoutEmpty := `
types:
  - name: Interop
    fields: [{name: x}]
    methods:
      - name: M1
        body: [{op: field_load, field: x}]
      - name: M2
        body: [{op: field_store, field: x}]
      - name: Ext
`
	types, err = NewDocumentReader().Read("interop.lcom.yaml", []byte(withoutEmpty))
	require.NoError(t, err)
	got, err = lcom.ComputeLackOfCohesion(types[0])
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestDocument_JSON(t *testing.T) {
	doc := `{
  "types": [
    {
      "name": "Base",
      "fields": [{"name": "shared"}],
      "methods": [{"name": "Touch", "body": [{"op": "field_load", "field": "shared"}]}]
    },
    {
      "name": "Derived",
      "visibility": "internal",
      "fields": [{"name": "own"}],
      "methods": [
        {"id": "Run(int)", "name": "Run", "body": [{"op": "field_store", "field": "own"}]},
        {"id": "Run(string)", "name": "Run", "body": [{"op": "call", "method": "Run(int)"}]},
        {"name": "Touch", "declaring_type": "Base", "body": [{"op": "field_load", "field": "Base::shared"}]}
      ]
    }
  ]
}`
	types, err := Read("types.lcom.json", []byte(doc))
	require.NoError(t, err)
	require.Len(t, types, 2)

	base, derived := types[0], types[1]
	assert.Equal(t, typemodel.VisibilityInternal, derived.Visibility)

	run2 := derived.Methods[1]
	require.Len(t, run2.Body, 1)
	assert.Same(t, derived.Methods[0], run2.Body[0].Method)

	touch := derived.Methods[2]
	assert.Same(t, base, touch.DeclaringType)
	assert.Same(t, base.Fields[0], touch.Body[0].Field)

	strict, err := lcom.ComputeLackOfCohesion(derived)
	require.NoError(t, err)
	assert.Equal(t, 1, strict, "Run(string) calls a method, not a member")

	permissive, err := lcom.New(lcom.WithInheritancePolicy(lcom.InheritPermissive)).Compute(derived)
	require.NoError(t, err)
	assert.Equal(t, 3, permissive)
}

func TestDocument_MissingOperandIsLeftToTheEngine(t *testing.T) {
	doc := `
types:
  - name: Broken
    fields: [{name: x}]
    methods:
      - name: M
        body:
          - {op: ldfld}
`
	types, err := NewDocumentReader().Read("broken.lcom.yaml", []byte(doc))
	require.NoError(t, err)

	_, err = lcom.ComputeLackOfCohesion(types[0])
	assert.True(t, errors.Is(err, lcom.ErrInvalidTypeModel))
}

func TestDocument_Errors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		schema   bool
		contains string
	}{
		{
			name:   "missing types",
			doc:    "version: 1\n",
			schema: true,
		},
		{
			name:   "unknown key",
			doc:    "types:\n  - name: A\n    colour: red\n",
			schema: true,
		},
		{
			name:   "property without accessors",
			doc:    "types:\n  - name: A\n    properties:\n      - {name: P}\n",
			schema: true,
		},
		{
			name:   "instruction without op",
			doc:    "types:\n  - name: A\n    methods:\n      - name: M\n        body:\n          - {field: x}\n",
			schema: true,
		},
		{
			name:     "unknown field reference",
			doc:      "types:\n  - name: A\n    methods:\n      - name: M\n        body:\n          - {op: ldfld, field: nope}\n",
			contains: `unknown field "nope"`,
		},
		{
			name:     "unknown accessor",
			doc:      "types:\n  - name: A\n    properties:\n      - {name: P, getter: get_P}\n",
			contains: `unknown method "get_P"`,
		},
		{
			name:     "unknown member on declared type",
			doc:      "types:\n  - name: A\n  - name: B\n    methods:\n      - name: M\n        body:\n          - {op: call, method: \"A::Missing\"}\n",
			contains: `unknown method "A::Missing"`,
		},
		{
			name:     "duplicate type",
			doc:      "types:\n  - name: A\n  - name: A\n",
			contains: "declared twice",
		},
		{
			name:     "not yaml",
			doc:      "types: [\n",
			contains: "failed to parse document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDocumentReader().Read("bad.lcom.yaml", []byte(tt.doc))
			require.Error(t, err)

			var docErr *DocumentError
			require.True(t, errors.As(err, &docErr))
			assert.Equal(t, "bad.lcom.yaml", docErr.Path)
			assert.Equal(t, tt.schema, errors.Is(err, ErrSchema))
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestForPath(t *testing.T) {
	r, err := ForPath("src/A.cs")
	require.NoError(t, err)
	assert.IsType(t, &SourceReader{}, r)

	r, err = ForPath("dump.lcom.yml")
	require.NoError(t, err)
	assert.IsType(t, &DocumentReader{}, r)

	_, err = ForPath("README.md")
	assert.True(t, errors.Is(err, ErrUnsupported))

	assert.True(t, Supported("Main.java"))
	assert.False(t, Supported("main.go"))
}
