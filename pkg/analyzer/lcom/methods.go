package lcom

import (
	"fmt"
	"strings"

	"github.com/panbanda/lcom/pkg/typemodel"
)

// InheritancePolicy decides whether methods declared on a base type take
// part in the analysis.
type InheritancePolicy int

const (
	// InheritStrict analyzes only methods declared on the type itself.
	InheritStrict InheritancePolicy = iota
	// InheritPermissive also analyzes inherited methods listed on the type.
	InheritPermissive
)

func (p InheritancePolicy) String() string {
	if p == InheritPermissive {
		return "permissive"
	}
	return "strict"
}

// ParseInheritancePolicy parses "strict" or "permissive". Empty means strict.
func ParseInheritancePolicy(s string) (InheritancePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return InheritStrict, nil
	case "permissive":
		return InheritPermissive, nil
	default:
		return InheritStrict, fmt.Errorf("unknown inheritance policy %q (want strict or permissive)", s)
	}
}

// SelectMethods returns the methods of t that take part in the analysis, in
// declaration order. Bodiless methods, constructors and property accessors
// are never selected.
func SelectMethods(t *typemodel.Type, policy InheritancePolicy) []*typemodel.Method {
	var selected []*typemodel.Method
	for _, m := range t.Methods {
		if !m.HasBody || m.IsConstructor || m.IsAccessor {
			continue
		}
		if m.DeclaringType != t && policy == InheritStrict {
			continue
		}
		selected = append(selected, m)
	}
	return selected
}
