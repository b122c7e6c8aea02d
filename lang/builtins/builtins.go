// Package builtins is the single source of truth for the fixed
// Builtin-index table both sides of the pipeline must agree on: the
// compiler's symbol table registers each name at a fixed builtin index
// via DefineBuiltin, and the VM's OpGetBuiltin handler indexes this same
// slice at runtime. One ordered table, rather than two independently
// maintained name lists, keeps the compiler and runtime in sync.
package builtins

import (
	"fmt"

	"github.com/mna/wisteria/lang/value"
)

// Entries is the ordered, fixed builtin table. Index in this slice is the
// OpGetBuiltin operand the compiler emits; never reorder existing
// entries, only append, or persisted caches (lang/cache) compiled against
// an older table would resolve the wrong builtin.
var Entries = []*value.Builtin{
	{Name: "len", Fn: biLen},
	{Name: "type", Fn: biType},
	{Name: "push", Fn: biPush},
	{Name: "first", Fn: biFirst},
	{Name: "last", Fn: biLast},
	{Name: "rest", Fn: biRest},
	{Name: "str", Fn: biStr},
	{Name: "some", Fn: biSome},
	{Name: "left", Fn: biLeft},
	{Name: "right", Fn: biRight},
	{Name: "unwrap", Fn: biUnwrap},
	{Name: "set", Fn: biSet},
}

// Names returns every builtin name in table order, used by the compiler
// to pre-register the symbol table's Builtin bindings.
func Names() []string {
	names := make([]string, len(Entries))
	for i, b := range Entries {
		names[i] = b.Name
	}
	return names
}

func arityError(name string, want, got int) error {
	return fmt.Errorf("wrong number of arguments to %s: want %d, got %d", name, want, got)
}

func biLen(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, arityError("len", 1, len(args))
	}
	switch a := args[0].(type) {
	case *value.String:
		return value.Integer(a.Len()), nil
	case *value.Array:
		return value.Integer(a.Len()), nil
	case *value.Hash:
		return value.Integer(a.Len()), nil
	default:
		return nil, fmt.Errorf("argument to len not supported, got %s", a.Type())
	}
}

func biType(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, arityError("type", 1, len(args))
	}
	return value.NewString(args[0].Type()), nil
}

func biPush(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, arityError("push", 2, len(args))
	}
	arr, ok := args[0].(*value.Array)
	if !ok {
		return nil, fmt.Errorf("argument to push must be Array, got %s", args[0].Type())
	}
	elems := make([]value.Value, len(arr.Elements)+1)
	copy(elems, arr.Elements)
	elems[len(arr.Elements)] = args[1]
	return value.NewArray(elems), nil
}

func biFirst(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, arityError("first", 1, len(args))
	}
	arr, ok := args[0].(*value.Array)
	if !ok {
		return nil, fmt.Errorf("argument to first must be Array, got %s", args[0].Type())
	}
	if len(arr.Elements) == 0 {
		return value.NoneValue, nil
	}
	return value.NewSome(arr.Elements[0]), nil
}

func biLast(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, arityError("last", 1, len(args))
	}
	arr, ok := args[0].(*value.Array)
	if !ok {
		return nil, fmt.Errorf("argument to last must be Array, got %s", args[0].Type())
	}
	if len(arr.Elements) == 0 {
		return value.NoneValue, nil
	}
	return value.NewSome(arr.Elements[len(arr.Elements)-1]), nil
}

// biStr is the explicit conversion the String+Number diagnostic's hint
// chain points the user at.
func biStr(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, arityError("str", 1, len(args))
	}
	if s, ok := args[0].(*value.String); ok {
		return s, nil
	}
	return value.NewString(args[0].String()), nil
}

func biSome(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, arityError("some", 1, len(args))
	}
	return value.NewSome(args[0]), nil
}

func biLeft(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, arityError("left", 1, len(args))
	}
	return value.NewLeft(args[0]), nil
}

func biRight(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, arityError("right", 1, len(args))
	}
	return value.NewRight(args[0]), nil
}

// biUnwrap extracts the wrapped value of a Some, Left or Right. Unwrapping
// None reports the option-unwrap-none condition; any other kind is not
// unwrappable at all.
func biUnwrap(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, arityError("unwrap", 1, len(args))
	}
	switch a := args[0].(type) {
	case *value.Some:
		return a.Inner, nil
	case *value.Left:
		return a.Inner, nil
	case *value.Right:
		return a.Inner, nil
	case value.None:
		return nil, fmt.Errorf("cannot unwrap None")
	default:
		return nil, fmt.Errorf("cannot unwrap %s", a.Type())
	}
}

// biSet returns a new Hash with key bound to val, structurally sharing
// every other entry with the original through the HAMT heap.
func biSet(args []value.Value) (value.Value, error) {
	if len(args) != 3 {
		return nil, arityError("set", 3, len(args))
	}
	h, ok := args[0].(*value.Hash)
	if !ok {
		return nil, fmt.Errorf("argument to set must be Hash, got %s", args[0].Type())
	}
	key, err := value.ToHashKey(args[1])
	if err != nil {
		return nil, err
	}
	return h.With(key, args[2]), nil
}

func biRest(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, arityError("rest", 1, len(args))
	}
	arr, ok := args[0].(*value.Array)
	if !ok {
		return nil, fmt.Errorf("argument to rest must be Array, got %s", args[0].Type())
	}
	if len(arr.Elements) == 0 {
		return value.NoneValue, nil
	}
	rest := make([]value.Value, len(arr.Elements)-1)
	copy(rest, arr.Elements[1:])
	return value.NewSome(value.NewArray(rest)), nil
}
