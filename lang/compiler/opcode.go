// Package compiler lowers a typed AST (lang/ast) into a flat,
// big-endian-operand instruction stream: a symbol table (lang/symtab)
// classifies bindings, the module-constant evaluator (lang/modconst)
// folds pure top-level lets, and the result is a constant pool plus an
// instruction stream the VM (lang/vm) can execute directly or the cache
// codec (lang/cache) can persist.
package compiler

import (
	"encoding/binary"
	"fmt"
)

// Opcode is the first byte of every instruction.
type Opcode byte

const (
	OpConstant Opcode = iota
	OpTrue
	OpFalse
	OpNone
	OpArray
	OpHash
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEqual
	OpNotEqual
	OpGreaterThan
	OpGreaterEqual
	OpLessEqual
	OpNot
	OpMinus
	OpGetGlobal
	OpSetGlobal
	OpGetLocal
	OpSetLocal
	OpGetFree
	OpGetBuiltin
	OpCurrentClosure
	OpJump
	OpJumpNotTruthy
	OpPop
	OpClosure
	OpCall
	OpReturnValue
	OpReturn
	OpIndex
	OpKindIs
	OpUnwrap
)

// Kind tags for the OpKindIs operand, shared with the VM's handler.
const (
	KindSome byte = iota
	KindNone
	KindLeft
	KindRight
)

// Definition describes one opcode's human-readable name and its operand
// widths in bytes, in emission order (0, 1, 2, or 2+1 bytes total).
type Definition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*Definition{
	OpConstant:       {"OpConstant", []int{2}},
	OpTrue:           {"OpTrue", nil},
	OpFalse:          {"OpFalse", nil},
	OpNone:           {"OpNone", nil},
	OpArray:          {"OpArray", []int{2}},
	OpHash:           {"OpHash", []int{2}},
	OpAdd:            {"OpAdd", nil},
	OpSub:            {"OpSub", nil},
	OpMul:            {"OpMul", nil},
	OpDiv:            {"OpDiv", nil},
	OpMod:            {"OpMod", nil},
	OpEqual:          {"OpEqual", nil},
	OpNotEqual:       {"OpNotEqual", nil},
	OpGreaterThan:    {"OpGreaterThan", nil},
	OpGreaterEqual:   {"OpGreaterEqual", nil},
	OpLessEqual:      {"OpLessEqual", nil},
	OpNot:            {"OpNot", nil},
	OpMinus:          {"OpMinus", nil},
	OpGetGlobal:      {"OpGetGlobal", []int{2}},
	OpSetGlobal:      {"OpSetGlobal", []int{2}},
	OpGetLocal:       {"OpGetLocal", []int{1}},
	OpSetLocal:       {"OpSetLocal", []int{1}},
	OpGetFree:        {"OpGetFree", []int{1}},
	OpGetBuiltin:     {"OpGetBuiltin", []int{1}},
	OpCurrentClosure: {"OpCurrentClosure", nil},
	OpJump:           {"OpJump", []int{2}},
	OpJumpNotTruthy:  {"OpJumpNotTruthy", []int{2}},
	OpPop:            {"OpPop", nil},
	OpClosure:        {"OpClosure", []int{2, 1}},
	OpCall:           {"OpCall", []int{1}},
	OpReturnValue:    {"OpReturnValue", nil},
	OpReturn:         {"OpReturn", nil},
	OpIndex:          {"OpIndex", nil},
	OpKindIs:         {"OpKindIs", []int{1}},
	OpUnwrap:         {"OpUnwrap", nil},
}

// Lookup returns the Definition for op.
func Lookup(op byte) (*Definition, error) {
	def, ok := definitions[Opcode(op)]
	if !ok {
		return nil, fmt.Errorf("compiler: opcode %d undefined", op)
	}
	return def, nil
}

// Width returns the total instruction length (opcode byte + operands) for
// op.
func (def *Definition) Width() int {
	w := 1
	for _, ow := range def.OperandWidths {
		w += ow
	}
	return w
}

// Make encodes one instruction: op followed by its operands, each
// big-endian-padded to its defined width.
func Make(op Opcode, operands ...int) []byte {
	def, ok := definitions[op]
	if !ok {
		return nil
	}
	instrLen := 1
	for _, w := range def.OperandWidths {
		instrLen += w
	}
	instr := make([]byte, instrLen)
	instr[0] = byte(op)
	offset := 1
	for i, o := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 2:
			binary.BigEndian.PutUint16(instr[offset:], uint16(o))
		case 1:
			instr[offset] = byte(o)
		}
		offset += width
	}
	return instr
}

// ReadOperands decodes the operands for def starting at the first operand
// byte of ins (i.e. ins excludes the opcode byte itself). It returns the
// decoded operands and how many bytes were consumed.
func ReadOperands(def *Definition, ins []byte) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0
	for i, width := range def.OperandWidths {
		switch width {
		case 2:
			operands[i] = int(ReadUint16(ins[offset:]))
		case 1:
			operands[i] = int(ins[offset])
		}
		offset += width
	}
	return operands, offset
}

// ReadUint16 decodes a big-endian uint16 operand.
func ReadUint16(ins []byte) uint16 { return binary.BigEndian.Uint16(ins) }

// ReadUint8 decodes a one-byte operand.
func ReadUint8(ins []byte) uint8 { return ins[0] }

// String disassembles ins into one line per instruction, used by tests
// that assert on emitted bytecode shape.
func String(ins []byte) string {
	var out []byte
	i := 0
	for i < len(ins) {
		def, err := Lookup(ins[i])
		if err != nil {
			out = append(out, []byte(fmt.Sprintf("ERROR: %s\n", err))...)
			i++
			continue
		}
		operands, read := ReadOperands(def, ins[i+1:])
		out = append(out, []byte(fmt.Sprintf("%04d %s\n", i, fmtInstruction(def, operands)))...)
		i += 1 + read
	}
	return string(out)
}

func fmtInstruction(def *Definition, operands []int) string {
	switch len(operands) {
	case 0:
		return def.Name
	case 1:
		return fmt.Sprintf("%s %d", def.Name, operands[0])
	case 2:
		return fmt.Sprintf("%s %d %d", def.Name, operands[0], operands[1])
	}
	return fmt.Sprintf("ERROR: unhandled operand count for %s", def.Name)
}
