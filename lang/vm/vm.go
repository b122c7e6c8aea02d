// Package vm executes compiled bytecode (lang/compiler) on a stack
// machine: a fixed-capacity operand stack, a globals vector, a lazily
// grown frame stack, closures capturing free values at construction
// time, and a HAMT heap (lang/hamt) backing Hash values.
//
// The core is single-threaded: one VM owns its stacks, globals and heap
// exclusively and runs to completion.
package vm

import (
	"fmt"
	"io"
	"strings"

	"github.com/mna/wisteria/lang/builtins"
	"github.com/mna/wisteria/lang/compiler"
	"github.com/mna/wisteria/lang/diag"
	"github.com/mna/wisteria/lang/hamt"
	"github.com/mna/wisteria/lang/token"
	"github.com/mna/wisteria/lang/value"
)

const (
	// StackSize is the operand stack capacity in slots.
	StackSize = 2048
	// GlobalsSize is the globals vector capacity.
	GlobalsSize = 65536
	// MaxFrames bounds call depth; the frame stack grows lazily up to it.
	MaxFrames = 1024
)

// VM executes one compiled unit. Create with New, run once with Run.
type VM struct {
	// Tracer, when non-nil, receives one line per executed instruction
	// with the instruction pointer, opcode name and top-of-stack summary.
	// Tracing has no effect on semantics.
	Tracer io.Writer

	constants []value.Value
	stack     []value.Value
	sp        int
	globals   []value.Value
	frames    []*Frame
	heap      *hamt.Heap

	lastPopped value.Value
}

// New creates a VM positioned at the start of bc's main instructions.
func New(bc *compiler.Bytecode) *VM {
	mainFn := &value.CompiledFunction{Instructions: bc.Instructions, Debug: bc.Debug}
	mainFrame := NewFrame(&value.Closure{Fn: mainFn}, 0)

	vm := &VM{
		constants: bc.Constants,
		stack:     make([]value.Value, StackSize),
		globals:   make([]value.Value, GlobalsSize),
		frames:    make([]*Frame, 0, 16),
		heap:      hamt.New(),
	}
	vm.frames = append(vm.frames, mainFrame)
	return vm
}

// Heap exposes the VM's HAMT heap, which outlives every Hash value handed
// out during the run.
func (vm *VM) Heap() *hamt.Heap { return vm.heap }

// LastPopped returns the value most recently popped by an OpPop, which
// after a successful run is the program's final expression result.
func (vm *VM) LastPopped() value.Value {
	if vm.lastPopped == nil {
		return value.NoneValue
	}
	return vm.lastPopped
}

// Run executes to completion. On failure the returned error is a
// *diag.Diagnostic carrying a stack trace, unless the underlying message
// was already a rendered diagnostic, in which case the trace is appended
// to it textually.
func (vm *VM) Run() error {
	if err := vm.run(); err != nil {
		return vm.fail(err)
	}
	return nil
}

func (vm *VM) run() error {
	for vm.currentFrame().ip < len(vm.currentFrame().Instructions()) {
		frame := vm.currentFrame()
		op := compiler.Opcode(frame.Instructions()[frame.ip])
		if vm.Tracer != nil {
			vm.trace(frame.ip, op)
		}
		advance, err := vm.dispatch(op, frame)
		if err != nil {
			return err
		}
		if advance {
			frame.ip++
		}
	}
	return nil
}

// dispatch reads op's operands (advancing frame.ip past them) and performs
// the transition. It reports whether the loop should advance past the
// opcode byte; a taken jump and the return opcodes set ip themselves and
// return false, while OpCall returns true so the caller's frame moves past
// the call before the callee's frame runs.
func (vm *VM) dispatch(op compiler.Opcode, frame *Frame) (bool, error) {
	ins := frame.Instructions()

	switch op {
	case compiler.OpConstant:
		idx := int(compiler.ReadUint16(ins[frame.ip+1:]))
		frame.ip += 2
		return true, vm.push(vm.constants[idx])

	case compiler.OpTrue:
		return true, vm.push(value.Boolean(true))
	case compiler.OpFalse:
		return true, vm.push(value.Boolean(false))
	case compiler.OpNone:
		return true, vm.push(value.NoneValue)

	case compiler.OpPop:
		vm.lastPopped = vm.pop()
		return true, nil

	case compiler.OpAdd, compiler.OpSub, compiler.OpMul, compiler.OpDiv, compiler.OpMod:
		return true, vm.executeBinaryOperation(op)

	case compiler.OpEqual, compiler.OpNotEqual,
		compiler.OpGreaterThan, compiler.OpGreaterEqual, compiler.OpLessEqual:
		return true, vm.executeComparison(op)

	case compiler.OpNot:
		operand := vm.pop()
		return true, vm.push(value.Boolean(!isTruthy(operand)))

	case compiler.OpMinus:
		return true, vm.executeMinus()

	case compiler.OpGetGlobal:
		idx := int(compiler.ReadUint16(ins[frame.ip+1:]))
		frame.ip += 2
		v := vm.globals[idx]
		if v == nil {
			v = value.NoneValue
		}
		return true, vm.push(v)

	case compiler.OpSetGlobal:
		idx := int(compiler.ReadUint16(ins[frame.ip+1:]))
		frame.ip += 2
		vm.globals[idx] = vm.pop()
		return true, nil

	case compiler.OpGetLocal:
		idx := int(compiler.ReadUint8(ins[frame.ip+1:]))
		frame.ip++
		v := vm.stack[frame.basePointer+idx]
		if v == nil {
			v = value.NoneValue
		}
		return true, vm.push(v)

	case compiler.OpSetLocal:
		idx := int(compiler.ReadUint8(ins[frame.ip+1:]))
		frame.ip++
		vm.stack[frame.basePointer+idx] = vm.pop()
		return true, nil

	case compiler.OpGetFree:
		idx := int(compiler.ReadUint8(ins[frame.ip+1:]))
		frame.ip++
		return true, vm.push(frame.cl.Free[idx])

	case compiler.OpGetBuiltin:
		idx := int(compiler.ReadUint8(ins[frame.ip+1:]))
		frame.ip++
		return true, vm.push(builtins.Entries[idx])

	case compiler.OpCurrentClosure:
		return true, vm.push(frame.cl)

	case compiler.OpJump:
		pos := int(compiler.ReadUint16(ins[frame.ip+1:]))
		frame.ip = pos
		return false, nil

	case compiler.OpJumpNotTruthy:
		pos := int(compiler.ReadUint16(ins[frame.ip+1:]))
		frame.ip += 2
		condition := vm.pop()
		if !isTruthy(condition) {
			frame.ip = pos
			return false, nil
		}
		return true, nil

	case compiler.OpArray:
		n := int(compiler.ReadUint16(ins[frame.ip+1:]))
		frame.ip += 2
		elems := make([]value.Value, n)
		copy(elems, vm.stack[vm.sp-n:vm.sp])
		vm.discard(n)
		return true, vm.push(value.NewArray(elems))

	case compiler.OpHash:
		n := int(compiler.ReadUint16(ins[frame.ip+1:]))
		frame.ip += 2
		h, err := vm.buildHash(n)
		if err != nil {
			return false, err
		}
		vm.discard(n)
		return true, vm.push(h)

	case compiler.OpIndex:
		index := vm.pop()
		left := vm.pop()
		return true, vm.executeIndex(left, index)

	case compiler.OpCall:
		argc := int(compiler.ReadUint8(ins[frame.ip+1:]))
		frame.ip++
		return true, vm.executeCall(argc)

	case compiler.OpReturnValue:
		rv := vm.pop()
		returned := vm.popFrame()
		vm.unwindTo(returned.basePointer - 1)
		return false, vm.push(rv)

	case compiler.OpReturn:
		returned := vm.popFrame()
		vm.unwindTo(returned.basePointer - 1)
		return false, vm.push(value.NoneValue)

	case compiler.OpClosure:
		constIdx := int(compiler.ReadUint16(ins[frame.ip+1:]))
		numFree := int(compiler.ReadUint8(ins[frame.ip+3:]))
		frame.ip += 3
		return true, vm.pushClosure(constIdx, numFree)

	case compiler.OpKindIs:
		kind := compiler.ReadUint8(ins[frame.ip+1:])
		frame.ip++
		v := vm.pop()
		return true, vm.push(value.Boolean(kindIs(v, kind)))

	case compiler.OpUnwrap:
		return true, vm.executeUnwrap()

	default:
		return false, fmt.Errorf("unknown opcode %d", op)
	}
}

func kindIs(v value.Value, kind byte) bool {
	switch kind {
	case compiler.KindSome:
		_, ok := v.(*value.Some)
		return ok
	case compiler.KindNone:
		_, ok := v.(value.None)
		return ok
	case compiler.KindLeft:
		_, ok := v.(*value.Left)
		return ok
	case compiler.KindRight:
		_, ok := v.(*value.Right)
		return ok
	}
	return false
}

func (vm *VM) push(v value.Value) error {
	if vm.sp >= StackSize {
		return vm.runtimeError(diag.KindStackOverflow, "stack overflow",
			"operand stack exceeds %d slots", StackSize)
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

// pop clears the slot as it goes so the stack never retains a reference
// past a value's stack lifetime.
func (vm *VM) pop() value.Value {
	v := vm.stack[vm.sp-1]
	vm.stack[vm.sp-1] = value.NoneValue
	vm.sp--
	return v
}

// discard drops the top n slots, clearing each.
func (vm *VM) discard(n int) {
	for i := vm.sp - n; i < vm.sp; i++ {
		vm.stack[i] = value.NoneValue
	}
	vm.sp -= n
}

// unwindTo clears every slot at or above sp and sets the stack pointer to
// it, used on frame return to reclaim the callee and its locals.
func (vm *VM) unwindTo(sp int) {
	for i := sp; i < vm.sp; i++ {
		vm.stack[i] = value.NoneValue
	}
	vm.sp = sp
}

func (vm *VM) currentFrame() *Frame { return vm.frames[len(vm.frames)-1] }

func (vm *VM) pushFrame(f *Frame) error {
	if len(vm.frames) >= MaxFrames {
		return vm.runtimeError(diag.KindStackOverflow, "stack overflow",
			"call stack exceeds %d frames", MaxFrames)
	}
	vm.frames = append(vm.frames, f)
	return nil
}

func (vm *VM) popFrame() *Frame {
	f := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	return f
}

func (vm *VM) pushClosure(constIdx, numFree int) error {
	fn, ok := vm.constants[constIdx].(*value.CompiledFunction)
	if !ok {
		return fmt.Errorf("constant %d is not a function: %s", constIdx, vm.constants[constIdx].Type())
	}
	free := make([]value.Value, numFree)
	copy(free, vm.stack[vm.sp-numFree:vm.sp])
	vm.discard(numFree)
	return vm.push(&value.Closure{Fn: fn, Free: free})
}

func (vm *VM) trace(ip int, op compiler.Opcode) {
	def, err := compiler.Lookup(byte(op))
	name := "?"
	if err == nil {
		name = def.Name
	}
	tos := "-"
	if vm.sp > 0 {
		tos = vm.stack[vm.sp-1].String()
		if len(tos) > 40 {
			tos = tos[:37] + "..."
		}
	}
	fmt.Fprintf(vm.Tracer, "ip=%04d %-16s tos=%s\n", ip, name, tos)
}

// errLocation recovers the source location for the current instruction
// from the active function's debug info.
func (vm *VM) errLocation() (*token.File, token.Span) {
	f := vm.currentFrame()
	if loc, ok := f.cl.Fn.Debug.PositionFor(f.ip); ok {
		return loc.File, loc.Span
	}
	return nil, token.Span{}
}

func (vm *VM) runtimeError(code, title, format string, args ...any) *diag.Diagnostic {
	file, span := vm.errLocation()
	return diag.New(code, title, fmt.Sprintf(format, args...)).WithSpan(file, span)
}

// fail decorates err with the stack trace assembled from live frames,
// innermost first. A raw error message that is not already a rendered
// diagnostic is wrapped in a generic runtime diagnostic first.
func (vm *VM) fail(err error) error {
	trace := vm.stackTrace()
	if d, ok := err.(*diag.Diagnostic); ok {
		d.StackTrace = trace
		return d
	}
	msg := err.Error()
	if diag.IsFormatted(msg) {
		return fmt.Errorf("%s\n%s", msg, strings.Join(trace, "\n"))
	}
	d := diag.New(diag.CodeRuntimeError, "runtime error", msg)
	d.StackTrace = trace
	return d
}

func (vm *VM) stackTrace() []string {
	var lines []string
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := vm.frames[i]
		name := f.cl.Fn.Name
		if name == "" {
			if i == 0 {
				name = "<main>"
			} else {
				name = "<anonymous>"
			}
		}
		file := "<unknown>"
		line, col := 0, 0
		if loc, ok := f.cl.Fn.Debug.PositionFor(f.ip); ok {
			if loc.File != nil {
				file = loc.File.Name
			}
			line, col = loc.Span.Start.Line, loc.Span.Start.Column
		}
		lines = append(lines, fmt.Sprintf("at %s (%s:%d:%d)", name, file, line, col))
	}
	return lines
}
