package typemodel

import "strings"

// OpCode classifies an instruction. Only member access matters for cohesion,
// so every other instruction collapses into OpOther.
type OpCode int

const (
	OpOther OpCode = iota
	OpFieldLoad
	OpFieldStore
	OpCall
)

var opNames = [...]string{
	OpOther:      "other",
	OpFieldLoad:  "field_load",
	OpFieldStore: "field_store",
	OpCall:       "call",
}

func (o OpCode) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return "other"
	}
	return opNames[o]
}

// ParseOpCode maps an instruction mnemonic onto an OpCode. IL mnemonics are
// accepted alongside the canonical names; unknown mnemonics are OpOther.
func ParseOpCode(s string) OpCode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "field_load", "load", "ldfld", "ldflda", "ldsfld", "ldsflda", "getfield", "getstatic":
		return OpFieldLoad
	case "field_store", "store", "stfld", "stsfld", "putfield", "putstatic":
		return OpFieldStore
	case "call", "callvirt", "invokevirtual", "invokespecial", "invokestatic":
		return OpCall
	default:
		return OpOther
	}
}

// Load returns a field load instruction.
func Load(f *Field) Instruction { return Instruction{Op: OpFieldLoad, Field: f} }

// Store returns a field store instruction.
func Store(f *Field) Instruction { return Instruction{Op: OpFieldStore, Field: f} }

// Call returns a call instruction.
func Call(m *Method) Instruction { return Instruction{Op: OpCall, Method: m} }

// Other returns an instruction that references no member.
func Other() Instruction { return Instruction{Op: OpOther} }
