// Package ir defines the data model produced by the Disassembly Parser and
// consumed by the CFG Builder and the Stack-Machine Lifter: instructions,
// code blocks, basic blocks and the closed opcode enumeration of the VM
// whose bytecode this toolkit decompiles.
package ir

import "strings"

// OpCode identifies the operation of an Instruction. The set is closed for
// this VM's bytecode version (spec v1); any opcode name not in this table
// decodes to Unknown, which the Lifter surfaces as a warning rather than a
// parse failure.
type OpCode uint8

const ( //nolint:revive
	Unknown OpCode = iota

	// constants and names
	LoadConstSmallInt
	LoadConstNone
	LoadConstTrue
	LoadConstFalse
	LoadConstString
	LoadConstObj
	LoadName
	LoadGlobal
	LoadFast
	LoadAttr
	LoadMethod
	LoadSubscr
	LoadBuildClass

	// stores
	StoreName
	StoreFast
	StoreAttr

	// imports
	ImportName
	ImportFrom

	// collections
	BuildTuple
	BuildList

	// calls and definitions
	MakeFunction
	CallFunction
	CallMethod
	ReturnValue

	// stack utilities
	PopTop
	DupTop
	RotTwo
	RotThree

	// binary operations
	BinaryOp

	// control flow
	ForIter
	GetIterStack
	PopJumpIfTrue
	PopJumpIfFalse
	JumpAbsolute
	UnwindJump

	// padding / no-op, never statement- or expression-producing
	Nop

	opcodeMax = Nop
)

var opcodeNames = [...]string{
	Unknown:            "UNKNOWN",
	LoadConstSmallInt:  "LOAD_CONST_SMALL_INT",
	LoadConstNone:      "LOAD_CONST_NONE",
	LoadConstTrue:      "LOAD_CONST_TRUE",
	LoadConstFalse:     "LOAD_CONST_FALSE",
	LoadConstString:    "LOAD_CONST_STRING",
	LoadConstObj:       "LOAD_CONST_OBJ",
	LoadName:           "LOAD_NAME",
	LoadGlobal:         "LOAD_GLOBAL",
	LoadFast:           "LOAD_FAST",
	LoadAttr:           "LOAD_ATTR",
	LoadMethod:         "LOAD_METHOD",
	LoadSubscr:         "LOAD_SUBSCR",
	LoadBuildClass:     "LOAD_BUILD_CLASS",
	StoreName:          "STORE_NAME",
	StoreFast:          "STORE_FAST",
	StoreAttr:          "STORE_ATTR",
	ImportName:         "IMPORT_NAME",
	ImportFrom:         "IMPORT_FROM",
	BuildTuple:         "BUILD_TUPLE",
	BuildList:          "BUILD_LIST",
	MakeFunction:       "MAKE_FUNCTION",
	CallFunction:       "CALL_FUNCTION",
	CallMethod:         "CALL_METHOD",
	ReturnValue:        "RETURN_VALUE",
	PopTop:             "POP_TOP",
	DupTop:             "DUP_TOP",
	RotTwo:             "ROT_TWO",
	RotThree:           "ROT_THREE",
	BinaryOp:           "BINARY_OP",
	ForIter:            "FOR_ITER",
	GetIterStack:       "GET_ITER_STACK",
	PopJumpIfTrue:      "POP_JUMP_IF_TRUE",
	PopJumpIfFalse:     "POP_JUMP_IF_FALSE",
	JumpAbsolute:       "JUMP_ABSOLUTE",
	UnwindJump:         "UNWIND_JUMP",
	Nop:                "NOP",
}

// reverseOpcode resolves an opcode's textual name (as it appears in the VM's
// disassembly) to its OpCode. Names not present resolve to (Unknown, false);
// the caller then keeps the raw text so Unknown instructions can still be
// surfaced faithfully.
var reverseOpcode = func() map[string]OpCode {
	m := make(map[string]OpCode, len(opcodeNames))
	for op, s := range opcodeNames {
		if op == int(Unknown) {
			continue
		}
		m[s] = OpCode(op)
	}
	return m
}()

// LookupOpcode resolves name to its OpCode. If name is not a recognized
// opcode, it returns (Unknown, false) and the caller is expected to retain
// the raw opcode text for diagnostics.
func LookupOpcode(name string) (OpCode, bool) {
	op, ok := reverseOpcode[name]
	return op, ok
}

// IsJump reports whether opText is a jump-family opcode per spec.md §4.2
// and §6: any opcode whose name contains the substring "JUMP" (JUMP,
// UNWIND_JUMP, POP_JUMP_IF_TRUE, ...). This is a substring test on the raw
// disassembly text, not a lookup against the closed enum: the VM's plain
// unconditional jump opcode is the bare name "JUMP", which has no OpCode
// constant of its own and decodes to Unknown like any other opcode outside
// the closed set, but it still needs to close off a basic block for the
// CFG Builder. UnwindJump carries two targets, handled by the caller.
func IsJump(opText string) bool {
	return strings.Contains(opText, "JUMP")
}

func (op OpCode) String() string {
	if op <= opcodeMax {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return "UNKNOWN"
}
