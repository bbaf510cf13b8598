package lcom

import "github.com/panbanda/lcom/pkg/typemodel"

// validate checks the structural rules the engine relies on. Operands that
// belong to other types are legal; operands that claim to belong to t but
// are not listed among its members are not.
func validate(t *typemodel.Type) error {
	if t == nil {
		return invalid("", "type is nil")
	}

	for i, f := range t.Fields {
		if f == nil {
			return invalid(t.Name, "field %d is nil", i)
		}
	}

	for i, m := range t.Methods {
		if m == nil {
			return invalid(t.Name, "method %d is nil", i)
		}
		if m.DeclaringType == nil {
			return invalid(t.Name, "method %q has no declaring type", m.Name)
		}
		if m.HasBody && m.Body == nil {
			return invalid(t.Name, "method %q has a body flag but no instructions", m.Name)
		}
	}

	for i, p := range t.Properties {
		if p == nil {
			return invalid(t.Name, "property %d is nil", i)
		}
		if p.Getter == nil && p.Setter == nil {
			return invalid(t.Name, "property %q has no accessors", p.Name)
		}
		for _, acc := range []*typemodel.Method{p.Getter, p.Setter} {
			if acc != nil && acc.DeclaringType != t {
				return invalid(t.Name, "accessor %q of property %q is not owned by the type", acc.Name, p.Name)
			}
		}
	}

	for _, m := range t.Methods {
		if !m.HasBody {
			continue
		}
		for pc, ins := range m.Body {
			if err := validateInstruction(t, m, pc, ins); err != nil {
				return err
			}
		}
	}

	return nil
}

func validateInstruction(t *typemodel.Type, m *typemodel.Method, pc int, ins typemodel.Instruction) error {
	switch ins.Op {
	case typemodel.OpFieldLoad, typemodel.OpFieldStore:
		if ins.Field == nil {
			return invalid(t.Name, "%s at %s+%d has no field operand", ins.Op, m.Name, pc)
		}
		if ins.Field.DeclaringType == t && !t.HasField(ins.Field) {
			return invalid(t.Name, "%s at %s+%d references unlisted field %q", ins.Op, m.Name, pc, ins.Field.Name)
		}
	case typemodel.OpCall:
		if ins.Method == nil {
			return invalid(t.Name, "call at %s+%d has no method operand", m.Name, pc)
		}
		if ins.Method.DeclaringType == t && !t.HasMethod(ins.Method) {
			return invalid(t.Name, "call at %s+%d references unlisted method %q", m.Name, pc, ins.Method.Name)
		}
	}
	return nil
}
