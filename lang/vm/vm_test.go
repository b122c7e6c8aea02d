package vm_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	b "github.com/mna/wisteria/internal/astbuild"
	"github.com/mna/wisteria/lang/ast"
	"github.com/mna/wisteria/lang/compiler"
	"github.com/mna/wisteria/lang/diag"
	"github.com/mna/wisteria/lang/value"
	"github.com/mna/wisteria/lang/vm"
)

func run(t *testing.T, prog *ast.Program) *vm.VM {
	t.Helper()
	c := compiler.New()
	bc, diags := c.Compile(prog)
	for _, d := range diags {
		t.Logf("diagnostic: %s", d.Render())
	}
	require.NotNil(t, bc, "compile failed")

	m := vm.New(bc)
	require.NoError(t, m.Run())
	return m
}

func runErr(t *testing.T, prog *ast.Program) error {
	t.Helper()
	c := compiler.New()
	bc, _ := c.Compile(prog)
	require.NotNil(t, bc, "compile failed")

	m := vm.New(bc)
	err := m.Run()
	require.Error(t, err)
	return err
}

func assertValue(t *testing.T, want any, got value.Value) {
	t.Helper()
	switch want := want.(type) {
	case int:
		assert.Equal(t, value.Integer(want), got)
	case float64:
		assert.Equal(t, value.Float(want), got)
	case bool:
		assert.Equal(t, value.Boolean(want), got)
	case string:
		s, ok := got.(*value.String)
		require.True(t, ok, "want String, got %s", got.Type())
		assert.Equal(t, want, s.Value)
	case nil:
		assert.Equal(t, value.NoneValue, got)
	case []any:
		arr, ok := got.(*value.Array)
		require.True(t, ok, "want Array, got %s", got.Type())
		require.Len(t, arr.Elements, len(want))
		for i, w := range want {
			assertValue(t, w, arr.Elements[i])
		}
	default:
		t.Fatalf("unhandled expected value %T", want)
	}
}

// some unwraps a Some and returns its inner value for assertion.
func unwrapSome(t *testing.T, got value.Value) value.Value {
	t.Helper()
	s, ok := got.(*value.Some)
	require.True(t, ok, "want Some, got %s", got.Type())
	return s.Inner
}

func TestIntegerArithmetic(t *testing.T) {
	tests := []struct {
		name string
		prog *ast.Program
		want any
	}{
		{"1", b.Prog(b.Expr(b.Int(1))), 1},
		{"1 + 2", b.Prog(b.Expr(b.Infix(b.Int(1), "+", b.Int(2)))), 3},
		// precedence comes parsed into the tree: 1 + 2 * 3
		{"1 + 2 * 3", b.Prog(b.Expr(b.Infix(b.Int(1), "+", b.Infix(b.Int(2), "*", b.Int(3))))), 7},
		{"4 / 2", b.Prog(b.Expr(b.Infix(b.Int(4), "/", b.Int(2)))), 2},
		{"7 % 3", b.Prog(b.Expr(b.Infix(b.Int(7), "%", b.Int(3)))), 1},
		{"-5", b.Prog(b.Expr(b.Prefix("-", b.Int(5)))), -5},
		{"50 / 2 * 2 + 10 - 5",
			b.Prog(b.Expr(b.Infix(b.Infix(b.Infix(b.Infix(b.Int(50), "/", b.Int(2)), "*", b.Int(2)), "+", b.Int(10)), "-", b.Int(5)))),
			55},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := run(t, tt.prog)
			assertValue(t, tt.want, m.LastPopped())
		})
	}
}

func TestFloatArithmetic(t *testing.T) {
	tests := []struct {
		name string
		prog *ast.Program
		want any
	}{
		{"1.5 + 2.5", b.Prog(b.Expr(b.Infix(b.Float(1.5), "+", b.Float(2.5)))), 4.0},
		// integer widens to float when mixed
		{"1 + 2.5", b.Prog(b.Expr(b.Infix(b.Int(1), "+", b.Float(2.5)))), 3.5},
		{"2.5 * 2", b.Prog(b.Expr(b.Infix(b.Float(2.5), "*", b.Int(2)))), 5.0},
		{"-2.5", b.Prog(b.Expr(b.Prefix("-", b.Float(2.5)))), -2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := run(t, tt.prog)
			assertValue(t, tt.want, m.LastPopped())
		})
	}
}

func TestBooleanAndComparison(t *testing.T) {
	tests := []struct {
		name string
		prog *ast.Program
		want any
	}{
		{"true", b.Prog(b.Expr(b.Bool(true))), true},
		{"1 < 2", b.Prog(b.Expr(b.Infix(b.Int(1), "<", b.Int(2)))), true},
		{"1 > 2", b.Prog(b.Expr(b.Infix(b.Int(1), ">", b.Int(2)))), false},
		{"2 >= 2", b.Prog(b.Expr(b.Infix(b.Int(2), ">=", b.Int(2)))), true},
		{"3 <= 2", b.Prog(b.Expr(b.Infix(b.Int(3), "<=", b.Int(2)))), false},
		{"1 == 1", b.Prog(b.Expr(b.Infix(b.Int(1), "==", b.Int(1)))), true},
		{"1 != 1", b.Prog(b.Expr(b.Infix(b.Int(1), "!=", b.Int(1)))), false},
		{"1 == 1.0", b.Prog(b.Expr(b.Infix(b.Int(1), "==", b.Float(1.0)))), true},
		{"1.5 > 1", b.Prog(b.Expr(b.Infix(b.Float(1.5), ">", b.Int(1)))), true},
		{"!true", b.Prog(b.Expr(b.Prefix("!", b.Bool(true)))), false},
		{"!none", b.Prog(b.Expr(b.Prefix("!", b.None()))), true},
		{"none == none", b.Prog(b.Expr(b.Infix(b.None(), "==", b.None()))), true},
		{"none == 1", b.Prog(b.Expr(b.Infix(b.None(), "==", b.Int(1)))), false},
		{"none != 1", b.Prog(b.Expr(b.Infix(b.None(), "!=", b.Int(1)))), true},
		{"\"a\" == \"a\"", b.Prog(b.Expr(b.Infix(b.Str("a"), "==", b.Str("a")))), true},
		{"\"a\" < \"b\"", b.Prog(b.Expr(b.Infix(b.Str("a"), "<", b.Str("b")))), true},
		{"true && false", b.Prog(b.Expr(b.Infix(b.Bool(true), "&&", b.Bool(false)))), false},
		{"true || false", b.Prog(b.Expr(b.Infix(b.Bool(true), "||", b.Bool(false)))), true},
		{"false || 3", b.Prog(b.Expr(b.Infix(b.Bool(false), "||", b.Int(3)))), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := run(t, tt.prog)
			assertValue(t, tt.want, m.LastPopped())
		})
	}
}

func TestEitherComparison(t *testing.T) {
	// left(1) == right(1) is false, never an error
	prog := b.Prog(b.Expr(b.Infix(
		b.Call(b.Id("left"), b.Int(1)), "==", b.Call(b.Id("right"), b.Int(1)))))
	m := run(t, prog)
	assertValue(t, false, m.LastPopped())

	// left(1) == left(1) compares structurally
	prog = b.Prog(b.Expr(b.Infix(
		b.Call(b.Id("left"), b.Int(1)), "==", b.Call(b.Id("left"), b.Int(1)))))
	m = run(t, prog)
	assertValue(t, true, m.LastPopped())

	// ordering a Left against a Right is an error
	prog = b.Prog(b.Expr(b.Infix(
		b.Call(b.Id("left"), b.Int(1)), ">", b.Call(b.Id("right"), b.Int(1)))))
	err := runErr(t, prog)
	var d *diag.Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Equal(t, diag.KindInvalidOperation, d.Code)
}

func TestOrderingNoneFails(t *testing.T) {
	prog := b.Prog(b.Expr(b.Infix(b.None(), ">", b.Int(1))))
	err := runErr(t, prog)
	var d *diag.Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Equal(t, diag.KindInvalidOperation, d.Code)
}

func TestClosureIdentityEquality(t *testing.T) {
	// closures have no structural equality: f == f can only be true
	// through the pointer-identity fast path
	prog := b.Prog(
		b.Let("f", b.Fn(nil, b.Expr(b.Int(1)))),
		b.Expr(b.Infix(b.Id("f"), "==", b.Id("f"))),
	)
	m := run(t, prog)
	assertValue(t, true, m.LastPopped())

	prog = b.Prog(
		b.Let("f", b.Fn(nil, b.Expr(b.Int(1)))),
		b.Let("g", b.Fn(nil, b.Expr(b.Int(1)))),
		b.Expr(b.Infix(b.Id("f"), "==", b.Id("g"))),
	)
	m = run(t, prog)
	assertValue(t, false, m.LastPopped())
}

func TestConditionals(t *testing.T) {
	tests := []struct {
		name string
		prog *ast.Program
		want any
	}{
		{"if true 10", b.Prog(b.Expr(b.If(b.Bool(true), b.Block(b.Expr(b.Int(10))), nil))), 10},
		{"if false none", b.Prog(b.Expr(b.If(b.Bool(false), b.Block(b.Expr(b.Int(10))), nil))), nil},
		{"if false else 20", b.Prog(b.Expr(b.If(b.Bool(false), b.Block(b.Expr(b.Int(10))), b.Block(b.Expr(b.Int(20)))))), 20},
		{"if 1 < 2 then", b.Prog(b.Expr(b.If(b.Infix(b.Int(1), "<", b.Int(2)), b.Block(b.Expr(b.Int(10))), nil))), 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := run(t, tt.prog)
			assertValue(t, tt.want, m.LastPopped())
		})
	}
}

func TestGlobalsAndAssignment(t *testing.T) {
	prog := b.Prog(
		b.Let("one", b.Int(1)),
		b.Let("two", b.Infix(b.Id("one"), "+", b.Id("one"))),
		b.Expr(b.Infix(b.Id("one"), "+", b.Id("two"))),
	)
	m := run(t, prog)
	assertValue(t, 3, m.LastPopped())

	// assignment is an expression yielding the assigned value
	prog = b.Prog(
		b.Let("x", b.Int(1)),
		b.Expr(b.Infix(b.Id("x"), "=", b.Int(5))),
		b.Expr(b.Infix(b.Id("x"), "+", b.Int(1))),
	)
	m = run(t, prog)
	assertValue(t, 6, m.LastPopped())
}

func TestStrings(t *testing.T) {
	prog := b.Prog(b.Expr(b.Infix(b.Str("wis"), "+", b.Str("teria"))))
	m := run(t, prog)
	assertValue(t, "wisteria", m.LastPopped())
}

func TestStringPlusNumberFails(t *testing.T) {
	prog := b.Prog(b.Expr(b.Infix(b.Str("x"), "+", b.Int(1))))
	err := runErr(t, prog)

	var d *diag.Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Equal(t, diag.KindInvalidOperation, d.Code)
	assert.Contains(t, d.Message, "String")
	assert.Contains(t, d.Message, "Integer")

	// the hint chain offers explicit conversion and interpolation
	require.NotEmpty(t, d.Hints)
	joined := strings.Join(d.Hints, "\n")
	assert.Contains(t, joined, "str()")
	assert.Contains(t, joined, "interpolation")
}

func TestArrays(t *testing.T) {
	prog := b.Prog(b.Expr(b.Arr(b.Int(1), b.Infix(b.Int(2), "*", b.Int(2)), b.Int(3))))
	m := run(t, prog)
	assertValue(t, []any{1, 4, 3}, m.LastPopped())
}

func TestArrayIndexing(t *testing.T) {
	// in range yields Some(v)
	prog := b.Prog(
		b.Let("a", b.Arr(b.Int(1), b.Int(2))),
		b.Expr(b.Index(b.Id("a"), b.Int(1))),
	)
	m := run(t, prog)
	assertValue(t, 2, unwrapSome(t, m.LastPopped()))

	// out of range and negative yield None
	for _, idx := range []int64{5, -1} {
		prog = b.Prog(
			b.Let("a", b.Arr(b.Int(1), b.Int(2))),
			b.Expr(b.Index(b.Id("a"), b.Int(idx))),
		)
		m = run(t, prog)
		assertValue(t, nil, m.LastPopped())
	}
}

func TestHashes(t *testing.T) {
	// found key yields Some(v)
	prog := b.Prog(
		b.Let("h", b.Hash(
			b.HashPair(b.Str("a"), b.Int(1)),
			b.HashPair(b.Int(2), b.Int(4)),
			b.HashPair(b.Bool(true), b.Int(9)),
		)),
		b.Expr(b.Index(b.Id("h"), b.Str("a"))),
	)
	m := run(t, prog)
	assertValue(t, 1, unwrapSome(t, m.LastPopped()))

	// missing key yields None
	prog = b.Prog(
		b.Let("h", b.Hash(b.HashPair(b.Str("a"), b.Int(1)))),
		b.Expr(b.Index(b.Id("h"), b.Str("missing"))),
	)
	m = run(t, prog)
	assertValue(t, nil, m.LastPopped())

	// structural hash equality
	prog = b.Prog(b.Expr(b.Infix(
		b.Hash(b.HashPair(b.Str("a"), b.Int(1))),
		"==",
		b.Hash(b.HashPair(b.Str("a"), b.Int(1))),
	)))
	m = run(t, prog)
	assertValue(t, true, m.LastPopped())
}

func TestHashSetIsPersistent(t *testing.T) {
	// set returns a new Hash; the original keeps its old root
	prog := b.Prog(
		b.Let("h", b.Hash(b.HashPair(b.Str("a"), b.Int(1)))),
		b.Let("h2", b.Call(b.Id("set"), b.Id("h"), b.Str("b"), b.Int(2))),
		b.Expr(b.Index(b.Id("h"), b.Str("b"))),
	)
	m := run(t, prog)
	assertValue(t, nil, m.LastPopped())

	prog = b.Prog(
		b.Let("h", b.Hash(b.HashPair(b.Str("a"), b.Int(1)))),
		b.Let("h2", b.Call(b.Id("set"), b.Id("h"), b.Str("b"), b.Int(2))),
		b.Expr(b.Index(b.Id("h2"), b.Str("b"))),
	)
	m = run(t, prog)
	assertValue(t, 2, unwrapSome(t, m.LastPopped()))
}

func TestUnhashableKeyFails(t *testing.T) {
	prog := b.Prog(b.Expr(b.Hash(b.HashPair(b.Arr(b.Int(1)), b.Int(1)))))
	err := runErr(t, prog)
	var d *diag.Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Equal(t, diag.KindUnhashableKey, d.Code)
	assert.Contains(t, d.Message, "unusable as hash key")
}

func TestIndexingNonIndexableFails(t *testing.T) {
	prog := b.Prog(b.Expr(b.Index(b.Int(1), b.Int(0))))
	err := runErr(t, prog)
	var d *diag.Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Equal(t, diag.KindNotIndexable, d.Code)
}

func TestFunctionCalls(t *testing.T) {
	// let f = fn() { 5 + 10; }; f();
	prog := b.Prog(
		b.Let("f", b.Fn(nil, b.Expr(b.Infix(b.Int(5), "+", b.Int(10))))),
		b.Expr(b.Call(b.Id("f"))),
	)
	m := run(t, prog)
	assertValue(t, 15, m.LastPopped())

	// early return
	prog = b.Prog(
		b.Let("f", b.Fn(nil, b.Ret(b.Int(99)), b.Expr(b.Int(1)))),
		b.Expr(b.Call(b.Id("f"))),
	)
	m = run(t, prog)
	assertValue(t, 99, m.LastPopped())

	// function without return value yields None
	prog = b.Prog(
		b.Let("f", b.Fn(nil)),
		b.Expr(b.Call(b.Id("f"))),
	)
	m = run(t, prog)
	assertValue(t, nil, m.LastPopped())

	// arguments and locals
	prog = b.Prog(
		b.Let("sum", b.Fn([]string{"a", "b"},
			b.Let("c", b.Infix(b.Id("a"), "+", b.Id("b"))),
			b.Expr(b.Id("c")),
		)),
		b.Expr(b.Call(b.Id("sum"), b.Int(1), b.Int(2))),
	)
	m = run(t, prog)
	assertValue(t, 3, m.LastPopped())
}

func TestWrongArityFails(t *testing.T) {
	prog := b.Prog(
		b.Let("f", b.Fn([]string{"a"}, b.Expr(b.Id("a")))),
		b.Expr(b.Call(b.Id("f"))),
	)
	err := runErr(t, prog)
	var d *diag.Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Equal(t, diag.KindWrongNumberOfArgs, d.Code)
	assert.Contains(t, d.Message, "want=1")
	assert.Contains(t, d.Message, "got=0")
}

func TestCallingNonCallableFails(t *testing.T) {
	prog := b.Prog(b.Expr(b.Call(b.Int(5))))
	err := runErr(t, prog)
	var d *diag.Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Equal(t, diag.KindNotCallable, d.Code)
}

func TestClosures(t *testing.T) {
	// let n = 2; let f = fn(x) { x + n; }; f(40);
	prog := b.Prog(
		b.Let("n", b.Int(2)),
		b.Let("f", b.Fn([]string{"x"}, b.Expr(b.Infix(b.Id("x"), "+", b.Id("n"))))),
		b.Expr(b.Call(b.Id("f"), b.Int(40))),
	)
	m := run(t, prog)
	assertValue(t, 42, m.LastPopped())

	// true free-variable capture through two levels
	prog = b.Prog(
		b.Let("newAdder", b.Fn([]string{"a", "b"},
			b.Expr(b.Fn([]string{"c"},
				b.Expr(b.Infix(b.Infix(b.Id("a"), "+", b.Id("b")), "+", b.Id("c"))),
			)),
		)),
		b.Let("adder", b.Call(b.Id("newAdder"), b.Int(1), b.Int(2))),
		b.Expr(b.Call(b.Id("adder"), b.Int(8))),
	)
	m = run(t, prog)
	assertValue(t, 11, m.LastPopped())
}

func TestRecursiveFactorial(t *testing.T) {
	// fn fact(n) { if n == 0 { 1; } else { n * fact(n - 1); }; } fact(5);
	prog := b.Prog(
		b.FnStmt("fact", []string{"n"},
			b.Expr(b.If(
				b.Infix(b.Id("n"), "==", b.Int(0)),
				b.Block(b.Expr(b.Int(1))),
				b.Block(b.Expr(b.Infix(b.Id("n"), "*",
					b.Call(b.Id("fact"), b.Infix(b.Id("n"), "-", b.Int(1)))))),
			)),
		),
		b.Expr(b.Call(b.Id("fact"), b.Int(5))),
	)
	m := run(t, prog)
	assertValue(t, 120, m.LastPopped())
}

func TestDivisionByZero(t *testing.T) {
	prog := b.Prog(b.Expr(b.Infix(b.Int(10), "/", b.Int(0))))
	err := runErr(t, prog)
	var d *diag.Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Equal(t, diag.KindDivisionByZero, d.Code)

	prog = b.Prog(b.Expr(b.Infix(b.Int(10), "%", b.Int(0))))
	err = runErr(t, prog)
	require.True(t, errors.As(err, &d))
	assert.Equal(t, diag.KindModuloByZero, d.Code)
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		name string
		prog *ast.Program
		want any
		some bool
	}{
		{"len string", b.Prog(b.Expr(b.Call(b.Id("len"), b.Str("hello")))), 5, false},
		{"len array", b.Prog(b.Expr(b.Call(b.Id("len"), b.Arr(b.Int(1), b.Int(2))))), 2, false},
		{"type", b.Prog(b.Expr(b.Call(b.Id("type"), b.Int(1)))), "Integer", false},
		{"str", b.Prog(b.Expr(b.Call(b.Id("str"), b.Int(42)))), "42", false},
		{"push", b.Prog(b.Expr(b.Call(b.Id("push"), b.Arr(b.Int(1)), b.Int(2)))), []any{1, 2}, false},
		{"first", b.Prog(b.Expr(b.Call(b.Id("first"), b.Arr(b.Int(7), b.Int(8))))), 7, true},
		{"last", b.Prog(b.Expr(b.Call(b.Id("last"), b.Arr(b.Int(7), b.Int(8))))), 8, true},
		{"rest", b.Prog(b.Expr(b.Call(b.Id("rest"), b.Arr(b.Int(7), b.Int(8))))), []any{8}, true},
		{"first empty", b.Prog(b.Expr(b.Call(b.Id("first"), b.Arr()))), nil, false},
		{"unwrap some", b.Prog(b.Expr(b.Call(b.Id("unwrap"), b.Call(b.Id("some"), b.Int(3))))), 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := run(t, tt.prog)
			got := m.LastPopped()
			if tt.some {
				got = unwrapSome(t, got)
			}
			assertValue(t, tt.want, got)
		})
	}
}

func TestPushLeavesOriginalUntouched(t *testing.T) {
	prog := b.Prog(
		b.Let("a", b.Arr(b.Int(1))),
		b.Let("c", b.Call(b.Id("push"), b.Id("a"), b.Int(2))),
		b.Expr(b.Call(b.Id("len"), b.Id("a"))),
	)
	m := run(t, prog)
	assertValue(t, 1, m.LastPopped())
}

func TestUnwrapNoneFails(t *testing.T) {
	prog := b.Prog(
		b.Let("a", b.Arr(b.Int(1))),
		b.Expr(b.Call(b.Id("unwrap"), b.Index(b.Id("a"), b.Int(5)))),
	)
	err := runErr(t, prog)
	var d *diag.Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Equal(t, diag.KindOptionUnwrapNone, d.Code)
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name string
		prog *ast.Program
		want any
	}{
		{
			"literal arms",
			b.Prog(b.Expr(b.Match(b.Int(3),
				b.Arm(b.PLit(b.Int(1)), b.Int(10)),
				b.Arm(b.PLit(b.Int(3)), b.Int(30)),
				b.Arm(b.PWild(), b.Int(0)),
			))),
			30,
		},
		{
			"wildcard fallback",
			b.Prog(b.Expr(b.Match(b.Int(9),
				b.Arm(b.PLit(b.Int(1)), b.Int(10)),
				b.Arm(b.PWild(), b.Int(0)),
			))),
			0,
		},
		{
			"bind pattern",
			b.Prog(b.Expr(b.Match(b.Int(5),
				b.Arm(b.PBind("n"), b.Infix(b.Id("n"), "*", b.Int(2))),
			))),
			10,
		},
		{
			"some pattern unwraps",
			b.Prog(
				b.Let("a", b.Arr(b.Int(1), b.Int(2))),
				b.Expr(b.Match(b.Index(b.Id("a"), b.Int(0)),
					b.Arm(b.PSome(b.PBind("x")), b.Infix(b.Id("x"), "+", b.Int(10))),
					b.Arm(b.PNone(), b.Int(0)),
				)),
			),
			11,
		},
		{
			"none pattern",
			b.Prog(
				b.Let("a", b.Arr(b.Int(1), b.Int(2))),
				b.Expr(b.Match(b.Index(b.Id("a"), b.Int(5)),
					b.Arm(b.PSome(b.PBind("x")), b.Id("x")),
					b.Arm(b.PNone(), b.Int(99)),
				)),
			),
			99,
		},
		{
			"left pattern",
			b.Prog(b.Expr(b.Match(b.Call(b.Id("left"), b.Int(7)),
				b.Arm(b.PLeft(b.PBind("x")), b.Id("x")),
				b.Arm(b.PRight(b.PWild()), b.Int(0)),
			))),
			7,
		},
		{
			"right pattern",
			b.Prog(b.Expr(b.Match(b.Call(b.Id("right"), b.Int(8)),
				b.Arm(b.PLeft(b.PWild()), b.Int(0)),
				b.Arm(b.PRight(b.PBind("x")), b.Id("x")),
			))),
			8,
		},
		{
			"nested some literal",
			b.Prog(b.Expr(b.Match(b.Call(b.Id("some"), b.Int(1)),
				b.Arm(b.PSome(b.PLit(b.Int(2))), b.Int(20)),
				b.Arm(b.PSome(b.PLit(b.Int(1))), b.Int(10)),
				b.Arm(b.PWild(), b.Int(0)),
			))),
			10,
		},
		{
			"no arm matches yields none",
			b.Prog(b.Expr(b.Match(b.Int(9),
				b.Arm(b.PLit(b.Int(1)), b.Int(10)),
			))),
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := run(t, tt.prog)
			assertValue(t, tt.want, m.LastPopped())
		})
	}
}

func TestMatchInFunction(t *testing.T) {
	// hidden match temporaries must work as locals too
	prog := b.Prog(
		b.Let("classify", b.Fn([]string{"v"},
			b.Expr(b.Match(b.Id("v"),
				b.Arm(b.PLit(b.Int(0)), b.Str("zero")),
				b.Arm(b.PBind("n"), b.Call(b.Id("str"), b.Id("n"))),
			)),
		)),
		b.Expr(b.Call(b.Id("classify"), b.Int(4))),
	)
	m := run(t, prog)
	assertValue(t, "4", m.LastPopped())
}

func TestTracing(t *testing.T) {
	c := compiler.New()
	bc, _ := c.Compile(b.Prog(b.Expr(b.Infix(b.Int(1), "+", b.Int(2)))))
	require.NotNil(t, bc)

	var buf bytes.Buffer
	m := vm.New(bc)
	m.Tracer = &buf
	require.NoError(t, m.Run())

	assertValue(t, 3, m.LastPopped())
	out := buf.String()
	assert.Contains(t, out, "OpConstant")
	assert.Contains(t, out, "OpAdd")
	assert.Contains(t, out, "ip=0000")
}

func TestStackTraceOnFailure(t *testing.T) {
	prog := b.Prog(
		b.FnStmt("boom", nil, b.Expr(b.Infix(b.Int(1), "/", b.Int(0)))),
		b.FnStmt("mid", nil, b.Expr(b.Call(b.Id("boom")))),
		b.Expr(b.Call(b.Id("mid"))),
	)
	err := runErr(t, prog)
	var d *diag.Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Equal(t, diag.KindDivisionByZero, d.Code)

	require.Len(t, d.StackTrace, 3)
	assert.Contains(t, d.StackTrace[0], "at boom")
	assert.Contains(t, d.StackTrace[1], "at mid")
	assert.Contains(t, d.StackTrace[2], "at <main>")
}

func TestUnsetGlobalReadsNone(t *testing.T) {
	bc := &compiler.Bytecode{
		Instructions: append(
			compiler.Make(compiler.OpGetGlobal, 7),
			compiler.Make(compiler.OpPop)...),
	}
	m := vm.New(bc)
	require.NoError(t, m.Run())
	assertValue(t, nil, m.LastPopped())
}

func TestDeepRecursionOverflows(t *testing.T) {
	// fn loop(n) { loop(n + 1); } loop(0);
	prog := b.Prog(
		b.FnStmt("loop", []string{"n"},
			b.Expr(b.Call(b.Id("loop"), b.Infix(b.Id("n"), "+", b.Int(1)))),
		),
		b.Expr(b.Call(b.Id("loop"), b.Int(0))),
	)
	err := runErr(t, prog)
	var d *diag.Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Equal(t, diag.KindStackOverflow, d.Code)
}
