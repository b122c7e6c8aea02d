package vm

import (
	"math"
	"strings"

	"github.com/mna/wisteria/lang/compiler"
	"github.com/mna/wisteria/lang/diag"
	"github.com/mna/wisteria/lang/hamt"
	"github.com/mna/wisteria/lang/value"
)

func isTruthy(v value.Value) bool {
	switch v := v.(type) {
	case value.Boolean:
		return bool(v)
	case value.None:
		return false
	default:
		return true
	}
}

func opName(op compiler.Opcode) string {
	switch op {
	case compiler.OpAdd:
		return "add"
	case compiler.OpSub:
		return "subtract"
	case compiler.OpMul:
		return "multiply"
	case compiler.OpDiv:
		return "divide"
	case compiler.OpMod:
		return "modulo"
	default:
		return "operate on"
	}
}

func (vm *VM) executeBinaryOperation(op compiler.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	switch l := left.(type) {
	case value.Integer:
		switch r := right.(type) {
		case value.Integer:
			return vm.integerOp(op, l, r)
		case value.Float:
			return vm.floatOp(op, value.Float(l), r)
		}
	case value.Float:
		switch r := right.(type) {
		case value.Float:
			return vm.floatOp(op, l, r)
		case value.Integer:
			return vm.floatOp(op, l, value.Float(r))
		}
	case *value.String:
		if r, ok := right.(*value.String); ok && op == compiler.OpAdd {
			return vm.push(value.NewString(l.Value + r.Value))
		}
	}

	if op == compiler.OpAdd && isStringNumberMix(left, right) {
		return vm.runtimeError(diag.KindInvalidOperation, "invalid operation",
			"cannot add %s and %s", left.Type(), right.Type()).
			WithHint("convert the number to a String using str()").
			WithHint("or parse the String to a number if it contains one").
			WithHint("or use string interpolation: \"text ${value}\"").
			WithHint("explicit conversions keep mixed-type operations intentional")
	}
	return vm.runtimeError(diag.KindInvalidOperation, "invalid operation",
		"cannot %s %s and %s", opName(op), left.Type(), right.Type())
}

func isStringNumberMix(left, right value.Value) bool {
	isNum := func(v value.Value) bool {
		switch v.(type) {
		case value.Integer, value.Float:
			return true
		}
		return false
	}
	_, ls := left.(*value.String)
	_, rs := right.(*value.String)
	return (ls && isNum(right)) || (rs && isNum(left))
}

// integerOp applies op to two integers. Overflow wraps silently, the
// two's-complement behavior of the host integer type.
func (vm *VM) integerOp(op compiler.Opcode, l, r value.Integer) error {
	if r == 0 {
		switch op {
		case compiler.OpDiv:
			return vm.runtimeError(diag.KindDivisionByZero, "division by zero",
				"cannot divide %d by zero", int64(l))
		case compiler.OpMod:
			return vm.runtimeError(diag.KindModuloByZero, "modulo by zero",
				"cannot take %d modulo zero", int64(l))
		}
	}
	switch op {
	case compiler.OpAdd:
		return vm.push(l + r)
	case compiler.OpSub:
		return vm.push(l - r)
	case compiler.OpMul:
		return vm.push(l * r)
	case compiler.OpDiv:
		return vm.push(l / r)
	case compiler.OpMod:
		return vm.push(l % r)
	}
	return vm.runtimeError(diag.KindInvalidOperation, "invalid operation",
		"unknown integer operator %d", op)
}

func (vm *VM) floatOp(op compiler.Opcode, l, r value.Float) error {
	switch op {
	case compiler.OpAdd:
		return vm.push(l + r)
	case compiler.OpSub:
		return vm.push(l - r)
	case compiler.OpMul:
		return vm.push(l * r)
	case compiler.OpDiv:
		return vm.push(l / r)
	case compiler.OpMod:
		return vm.push(value.Float(math.Mod(float64(l), float64(r))))
	}
	return vm.runtimeError(diag.KindInvalidOperation, "invalid operation",
		"unknown float operator %d", op)
}

func (vm *VM) executeMinus() error {
	operand := vm.pop()
	switch v := operand.(type) {
	case value.Integer:
		return vm.push(-v)
	case value.Float:
		return vm.push(-v)
	default:
		return vm.runtimeError(diag.KindInvalidOperation, "invalid operation",
			"cannot negate %s", operand.Type())
	}
}

func (vm *VM) executeComparison(op compiler.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	switch op {
	case compiler.OpEqual:
		return vm.push(value.Boolean(vm.valuesEqual(left, right)))
	case compiler.OpNotEqual:
		return vm.push(value.Boolean(!vm.valuesEqual(left, right)))
	}

	// ordering: None and mixed Left/Right are errors, everything else
	// goes through the Ordered interface (numeric mixing handled there)
	if isNone(left) || isNone(right) {
		return vm.runtimeError(diag.KindInvalidOperation, "invalid operation",
			"cannot order %s and %s", left.Type(), right.Type())
	}
	if isEitherMix(left, right) {
		return vm.runtimeError(diag.KindInvalidOperation, "invalid operation",
			"cannot order %s and %s", left.Type(), right.Type())
	}

	var less bool
	var err error
	switch op {
	case compiler.OpGreaterThan:
		// l > r is r < l
		less, err = orderedLess(right, left)
	case compiler.OpGreaterEqual:
		// l >= r is !(l < r)
		less, err = orderedLess(left, right)
		less = !less
	case compiler.OpLessEqual:
		// l <= r is !(r < l)
		less, err = orderedLess(right, left)
		less = !less
	}
	if err != nil {
		return vm.runtimeError(diag.KindInvalidOperation, "invalid operation",
			"cannot order %s and %s", left.Type(), right.Type())
	}
	return vm.push(value.Boolean(less))
}

func orderedLess(l, r value.Value) (bool, error) {
	lo, ok := l.(value.Ordered)
	if !ok {
		return false, &value.TypeError{Op: "ordering", Left: l.Type(), Right: r.Type()}
	}
	return lo.Less(r)
}

func isNone(v value.Value) bool {
	_, ok := v.(value.None)
	return ok
}

func isEitherMix(l, r value.Value) bool {
	_, ll := l.(*value.Left)
	_, lr := l.(*value.Right)
	_, rl := r.(*value.Left)
	_, rr := r.(*value.Right)
	return (ll && rr) || (lr && rl)
}

// valuesEqual implements == semantics: pointer identity short-circuits
// for shared-reference kinds without reading the referent, then numeric
// widening, then structural comparison for wrappers, arrays and hashes.
// Values of different, non-numeric kinds equate to false, never error.
func (vm *VM) valuesEqual(left, right value.Value) bool {
	if isSharedRef(left) && left == right {
		return true
	}

	switch l := left.(type) {
	case value.Integer:
		switch r := right.(type) {
		case value.Integer:
			return l == r
		case value.Float:
			return value.Float(l) == r
		}
		return false
	case value.Float:
		switch r := right.(type) {
		case value.Float:
			return l == r
		case value.Integer:
			return l == value.Float(r)
		}
		return false
	case value.Boolean:
		r, ok := right.(value.Boolean)
		return ok && l == r
	case value.None:
		return isNone(right)
	case *value.String:
		r, ok := right.(*value.String)
		return ok && l.Value == r.Value
	case *value.Some:
		r, ok := right.(*value.Some)
		return ok && vm.valuesEqual(l.Inner, r.Inner)
	case *value.Left:
		r, ok := right.(*value.Left)
		return ok && vm.valuesEqual(l.Inner, r.Inner)
	case *value.Right:
		r, ok := right.(*value.Right)
		return ok && vm.valuesEqual(l.Inner, r.Inner)
	case *value.Array:
		r, ok := right.(*value.Array)
		if !ok || len(l.Elements) != len(r.Elements) {
			return false
		}
		for i := range l.Elements {
			if !vm.valuesEqual(l.Elements[i], r.Elements[i]) {
				return false
			}
		}
		return true
	case *value.Hash:
		r, ok := right.(*value.Hash)
		if !ok || l.Len() != r.Len() {
			return false
		}
		equal := true
		l.Each(func(k value.HashKey, v value.Value) {
			rv, found := r.GetKey(k)
			if !found || !vm.valuesEqual(v, rv) {
				equal = false
			}
		})
		return equal
	}
	// functions, closures and builtins compare by identity only, which
	// the fast path above already covered
	return false
}

// isSharedRef reports whether v is one of the shared-reference kinds whose
// equality may short-circuit on pointer identity.
func isSharedRef(v value.Value) bool {
	switch v.(type) {
	case *value.String, *value.Array, *value.Hash, *value.Some, *value.Left,
		*value.Right, *value.CompiledFunction, *value.Closure, *value.Builtin:
		return true
	}
	return false
}

func (vm *VM) executeIndex(left, index value.Value) error {
	switch l := left.(type) {
	case *value.Array:
		i, ok := index.(value.Integer)
		if !ok {
			return vm.runtimeError(diag.KindInvalidOperation, "invalid operation",
				"array index must be Integer, got %s", index.Type())
		}
		if v, ok := l.Index(int64(i)); ok {
			return vm.push(value.NewSome(v))
		}
		return vm.push(value.NoneValue)

	case *value.Hash:
		hk, err := value.ToHashKey(index)
		if err != nil {
			return vm.runtimeError(diag.KindUnhashableKey, "unusable as hash key",
				"%s", err)
		}
		if v, ok := l.GetKey(hk); ok {
			return vm.push(value.NewSome(v))
		}
		return vm.push(value.NoneValue)

	default:
		return vm.runtimeError(diag.KindNotIndexable, "not indexable",
			"%s is not indexable", left.Type())
	}
}

// buildHash folds the top n stack slots (alternating key, value) into a
// fresh HAMT root. The slots are read in place; the caller discards them.
func (vm *VM) buildHash(n int) (*value.Hash, error) {
	root := hamt.Empty
	for i := vm.sp - n; i < vm.sp; i += 2 {
		key := vm.stack[i]
		val := vm.stack[i+1]
		hk, err := value.ToHashKey(key)
		if err != nil {
			return nil, vm.runtimeError(diag.KindUnhashableKey, "unusable as hash key",
				"%s", err)
		}
		root = vm.heap.Insert(root, hk, val)
	}
	return value.NewHash(vm.heap, root), nil
}

func (vm *VM) executeCall(argc int) error {
	callee := vm.stack[vm.sp-argc-1]
	switch callee := callee.(type) {
	case *value.Closure:
		return vm.callClosure(callee, argc)
	case *value.CompiledFunction:
		// bare functions only appear in hand-built or cache-loaded
		// bytecode; treat as a closure with no captures
		return vm.callClosure(&value.Closure{Fn: callee}, argc)
	case *value.Builtin:
		return vm.callBuiltin(callee, argc)
	default:
		return vm.runtimeError(diag.KindNotCallable, "not callable",
			"cannot call %s", callee.Type())
	}
}

func (vm *VM) callClosure(cl *value.Closure, argc int) error {
	if argc != cl.Fn.NumParameters {
		return vm.runtimeError(diag.KindWrongNumberOfArgs, "wrong number of arguments",
			"wrong number of arguments: want=%d, got=%d", cl.Fn.NumParameters, argc)
	}
	frame := NewFrame(cl, vm.sp-argc)
	if err := vm.pushFrame(frame); err != nil {
		return err
	}
	if frame.basePointer+cl.Fn.NumLocals > StackSize {
		vm.popFrame()
		return vm.runtimeError(diag.KindStackOverflow, "stack overflow",
			"operand stack exceeds %d slots", StackSize)
	}
	vm.sp = frame.basePointer + cl.Fn.NumLocals
	return nil
}

func (vm *VM) callBuiltin(b *value.Builtin, argc int) error {
	args := make([]value.Value, argc)
	copy(args, vm.stack[vm.sp-argc:vm.sp])

	result, err := b.Call(args)
	if err != nil {
		return vm.builtinError(b, err)
	}
	vm.discard(argc + 1)
	if result == nil {
		result = value.NoneValue
	}
	return vm.push(result)
}

// builtinError classifies a builtin's raw error into the runtime
// diagnostic taxonomy by its message shape.
func (vm *VM) builtinError(b *value.Builtin, err error) error {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "wrong number of arguments"):
		return vm.runtimeError(diag.KindWrongNumberOfArgs, "wrong number of arguments", "%s", msg)
	case strings.Contains(msg, "unwrap None"):
		return vm.runtimeError(diag.KindOptionUnwrapNone, "unwrapped None", "%s", msg)
	case strings.Contains(msg, "cannot unwrap"):
		return vm.runtimeError(diag.KindEitherUnwrapWrongSide, "invalid unwrap", "%s", msg)
	default:
		return vm.runtimeError(diag.CodeRuntimeError, "runtime error", "in %s: %s", b.Name, msg)
	}
}

func (vm *VM) executeUnwrap() error {
	v := vm.pop()
	switch v := v.(type) {
	case *value.Some:
		return vm.push(v.Inner)
	case *value.Left:
		return vm.push(v.Inner)
	case *value.Right:
		return vm.push(v.Inner)
	case value.None:
		return vm.runtimeError(diag.KindOptionUnwrapNone, "unwrapped None",
			"cannot unwrap None")
	default:
		return vm.runtimeError(diag.KindInvalidOperation, "invalid operation",
			"cannot unwrap %s", v.Type())
	}
}
