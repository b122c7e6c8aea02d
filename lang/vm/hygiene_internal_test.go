package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	b "github.com/mna/wisteria/internal/astbuild"
	"github.com/mna/wisteria/lang/compiler"
	"github.com/mna/wisteria/lang/value"
)

// after a successful run the stack pointer is back at zero, every slot is
// cleared, and lastPopped holds the final popped value
func TestStackHygieneAfterRun(t *testing.T) {
	c := compiler.New()
	bc, _ := c.Compile(b.Prog(
		b.Let("f", b.Fn([]string{"x"}, b.Expr(b.Infix(b.Id("x"), "*", b.Int(2))))),
		b.Expr(b.Call(b.Id("f"), b.Int(21))),
	))
	require.NotNil(t, bc)

	m := New(bc)
	require.NoError(t, m.Run())

	assert.Equal(t, 0, m.sp)
	assert.Equal(t, value.Integer(42), m.LastPopped())
	for i, slot := range m.stack {
		if slot != nil && slot != value.Value(value.NoneValue) {
			t.Fatalf("stack slot %d retains %v after run", i, slot)
		}
	}
}

// pop must clear the vacated slot so no reference outlives its stack
// lifetime
func TestPopClearsSlot(t *testing.T) {
	m := New(&compiler.Bytecode{})
	require.NoError(t, m.push(value.NewString("transient")))
	v := m.pop()
	assert.Equal(t, "transient", v.String())
	assert.Equal(t, value.Value(value.NoneValue), m.stack[0])
}
