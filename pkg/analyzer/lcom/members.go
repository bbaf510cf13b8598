package lcom

import (
	"fmt"
	"strings"

	"github.com/panbanda/lcom/pkg/typemodel"
)

// MemberKind distinguishes the data member variants.
type MemberKind string

const (
	KindField    MemberKind = "field"
	KindProperty MemberKind = "property"
)

func (k MemberKind) String() string { return string(k) }

// DataMember is an eligible data member. Its only capability is deciding
// whether an instruction references it.
type DataMember interface {
	Name() string
	Kind() MemberKind
	Matches(ins typemodel.Instruction) bool
}

// FieldMember matches loads and stores of exactly one field.
type FieldMember struct {
	Field *typemodel.Field
}

func (m FieldMember) Name() string     { return m.Field.Name }
func (m FieldMember) Kind() MemberKind { return KindField }

func (m FieldMember) Matches(ins typemodel.Instruction) bool {
	switch ins.Op {
	case typemodel.OpFieldLoad, typemodel.OpFieldStore:
		return ins.Field == m.Field
	default:
		return false
	}
}

// PropertyMember matches calls to either accessor of one property. When
// Backing is set, direct loads and stores of the property's backing field
// match too.
type PropertyMember struct {
	Property *typemodel.Property
	Backing  *typemodel.Field
}

func (m PropertyMember) Name() string     { return m.Property.Name }
func (m PropertyMember) Kind() MemberKind { return KindProperty }

func (m PropertyMember) Matches(ins typemodel.Instruction) bool {
	switch ins.Op {
	case typemodel.OpCall:
		if ins.Method == nil {
			return false
		}
		return ins.Method == m.Property.Getter || ins.Method == m.Property.Setter
	case typemodel.OpFieldLoad, typemodel.OpFieldStore:
		return m.Backing != nil && ins.Field == m.Backing
	default:
		return false
	}
}

// BackingFieldPolicy decides what a direct access to a property's backing
// field counts as.
type BackingFieldPolicy int

const (
	// BackingFieldAttribute counts it as a use of the owning property.
	BackingFieldAttribute BackingFieldPolicy = iota
	// BackingFieldIgnore counts it as a use of nothing.
	BackingFieldIgnore
)

func (p BackingFieldPolicy) String() string {
	if p == BackingFieldIgnore {
		return "ignore"
	}
	return "attribute"
}

// ParseBackingFieldPolicy parses "attribute" or "ignore". Empty means attribute.
func ParseBackingFieldPolicy(s string) (BackingFieldPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "attribute":
		return BackingFieldAttribute, nil
	case "ignore":
		return BackingFieldIgnore, nil
	default:
		return BackingFieldAttribute, fmt.Errorf("unknown backing field policy %q (want attribute or ignore)", s)
	}
}

// Classify returns the eligible members of t in bit order: every property in
// declaration order, then every field that is not the backing field of one of
// those properties.
func Classify(t *typemodel.Type, policy BackingFieldPolicy) []DataMember {
	members := make([]DataMember, 0, len(t.Properties)+len(t.Fields))
	backing := make(map[*typemodel.Field]bool)

	for _, p := range t.Properties {
		pm := PropertyMember{Property: p}
		if f := t.FieldByName(typemodel.BackingFieldName(p.Name)); f != nil {
			backing[f] = true
			if policy == BackingFieldAttribute {
				pm.Backing = f
			}
		}
		members = append(members, pm)
	}

	for _, f := range t.Fields {
		if backing[f] {
			continue
		}
		members = append(members, FieldMember{Field: f})
	}

	return members
}
