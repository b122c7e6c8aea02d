package vm

import "github.com/mna/wisteria/lang/value"

// Frame is one call record: the closure being executed, the instruction
// pointer into its function's bytecode, and the operand-stack index where
// its locals begin. Returning unwinds the stack to basePointer-1, which
// reclaims the callee and its locals in one move.
type Frame struct {
	cl          *value.Closure
	ip          int
	basePointer int
}

// NewFrame creates a frame for cl whose locals start at basePointer.
func NewFrame(cl *value.Closure, basePointer int) *Frame {
	return &Frame{cl: cl, basePointer: basePointer}
}

// Instructions returns the bytecode of the frame's function.
func (f *Frame) Instructions() []byte { return f.cl.Fn.Instructions }
