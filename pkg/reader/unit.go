package reader

import (
	"fmt"
	"maps"
	"slices"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/lcom/pkg/parser"
	"github.com/panbanda/lcom/pkg/typemodel"
)

// Unit is one file read into declared types. Source method bodies are
// lowered only after Merge has folded together the parts of C# partial
// types, so a body resolves members declared in any part.
type Unit struct {
	Path string

	types   []*typemodel.Type
	parts   map[*typemodel.Type][]string
	partial bool
	source  *sourceUnit
}

type sourceUnit struct {
	g    *grammar
	tree *sitter.Tree
	c    *collector
}

// Parse reads path into a unit. Documents are complete once parsed; source
// units must be lowered, usually through Link.
func Parse(path string, content []byte) (*Unit, error) {
	switch lang := parser.DetectLanguage(path); lang {
	case parser.LangCSharp, parser.LangJava:
		return NewSourceReader(lang).Parse(path, content)
	case parser.LangModel:
		types, err := NewDocumentReader().Read(path, content)
		if err != nil {
			return nil, err
		}
		return &Unit{Path: path, types: types}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
}

// Types returns the types the unit declares, outer before nested. After
// Merge a partial type is listed only by the unit holding its first part.
func (u *Unit) Types() []*typemodel.Type {
	return u.types
}

// Parts returns the other files declaring parts of t, in merge order.
func (u *Unit) Parts(t *typemodel.Type) []string {
	return u.parts[t]
}

// Partial reports whether the unit declares part of a partial type.
func (u *Unit) Partial() bool {
	return u.partial
}

// Link merges partial types across units and lowers every unit.
func Link(units ...*Unit) {
	Merge(units)
	for _, u := range units {
		u.Lower()
	}
}

// Merge folds every later part of a partial type into the first part with
// the same full name, scanning units in order. Calling it again is a no-op
// for parts already folded.
func Merge(units []*Unit) {
	heads := make(map[string]*typeScope)
	owners := make(map[*typeScope]*Unit)
	for _, u := range units {
		if u == nil || u.source == nil || !u.partial {
			continue
		}
		folded := false
		for _, s := range u.source.c.scopes {
			if !s.partial || s.into != nil {
				continue
			}
			head, ok := heads[s.t.Name]
			if !ok {
				heads[s.t.Name] = s
				owners[s] = u
				continue
			}
			head.absorb(s)
			folded = true

			owner := owners[head]
			if owner == u || slices.Contains(owner.parts[head.t], u.Path) {
				continue
			}
			if owner.parts == nil {
				owner.parts = make(map[*typemodel.Type][]string)
			}
			owner.parts[head.t] = append(owner.parts[head.t], u.Path)
		}
		if folded {
			u.types = u.source.c.ownTypes()
		}
	}
}

// absorb moves the members of part into s. Methods part declares become
// methods of s's type; inherited ones keep their declaring type.
func (s *typeScope) absorb(part *typeScope) {
	t := s.t
	for _, f := range part.t.Fields {
		f.DeclaringType = t
		t.Fields = append(t.Fields, f)
	}
	for _, p := range part.t.Properties {
		p.DeclaringType = t
		t.Properties = append(t.Properties, p)
	}
	for _, m := range part.t.Methods {
		if m.DeclaringType == part.t {
			m.DeclaringType = t
		}
		t.Methods = append(t.Methods, m)
	}
	maps.Copy(s.consts, part.consts)
	maps.Copy(s.backing, part.backing)

	if part.explicitAccess && !s.explicitAccess {
		t.Visibility = part.t.Visibility
		s.explicitAccess = true
	}
	// A hand-written part makes the whole type hand-written.
	t.Generated = t.Generated && part.t.Generated

	part.t.Fields, part.t.Properties, part.t.Methods = nil, nil, nil
	part.into = s
}

// Lower produces the instructions of every pending method body and
// releases the syntax tree. Merged units may be lowered concurrently.
func (u *Unit) Lower() {
	if u == nil || u.source == nil {
		return
	}
	su := u.source
	for _, s := range su.c.scopes {
		scope := s
		if s.into != nil {
			scope = s.into
		}
		for _, pb := range s.pending {
			pb.method.Body = newLowerer(su.g, su.c.src, scope).lower(pb)
		}
		s.pending = nil
	}
	u.Close()
}

// Close releases the syntax tree of a unit that will not be lowered.
func (u *Unit) Close() {
	if u == nil || u.source == nil {
		return
	}
	u.source.tree.Close()
	u.source = nil
}

// ownTypes lists the types not folded into a part declared elsewhere.
func (c *collector) ownTypes() []*typemodel.Type {
	out := make([]*typemodel.Type, 0, len(c.scopes))
	for _, s := range c.scopes {
		if s.into == nil {
			out = append(out, s.t)
		}
	}
	return out
}
