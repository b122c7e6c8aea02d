package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	b "github.com/mna/wisteria/internal/astbuild"
)

func TestCompilerScopes(t *testing.T) {
	c := New()
	require.Equal(t, 0, c.scopeIndex)
	globalSymbols := c.symbols

	c.emit(OpMul)

	c.enterScope()
	require.Equal(t, 1, c.scopeIndex)
	c.emit(OpSub)
	require.Len(t, c.currentScope().instructions, 1)
	assert.Equal(t, OpSub, c.currentScope().lastInstruction.Opcode)
	require.Same(t, globalSymbols, c.symbols.Outer)

	c.leaveScope()
	require.Equal(t, 0, c.scopeIndex)
	require.Same(t, globalSymbols, c.symbols)

	c.emit(OpAdd)
	require.Len(t, c.currentScope().instructions, 2)
	assert.Equal(t, OpAdd, c.currentScope().lastInstruction.Opcode)
	assert.Equal(t, OpMul, c.currentScope().previousInstruction.Opcode)
}

// emitting an expression statement then removing its trailing Pop must
// leave the stream byte-identical to compiling the bare expression
func TestRemoveLastPopByteIdentical(t *testing.T) {
	expr := b.Infix(b.Int(1), "+", b.Int(2))

	withPop := New()
	withPop.compileStatement(b.Expr(expr))
	require.True(t, withPop.lastInstructionIs(OpPop))
	withPop.removeLastPop()

	bare := New()
	bare.compileExpression(b.Infix(b.Int(1), "+", b.Int(2)))

	assert.Equal(t, bare.currentInstructions(), withPop.currentInstructions())
	assert.Len(t, withPop.currentScope().locations, len(bare.currentScope().locations))
}

func TestChangeOperandPreservesOpcode(t *testing.T) {
	c := New()
	pos := c.emit(OpJumpNotTruthy, 9999)
	c.emit(OpNone)

	c.changeOperand(pos, 42)

	ins := c.currentInstructions()
	assert.Equal(t, byte(OpJumpNotTruthy), ins[pos])
	assert.Equal(t, uint16(42), ReadUint16(ins[pos+1:]))
}

func TestReplaceLastPopWithReturn(t *testing.T) {
	c := New()
	c.enterScope()
	c.compileStatement(b.Expr(b.Int(5)))
	require.True(t, c.lastInstructionIs(OpPop))

	c.replaceLastPopWithReturn()

	require.True(t, c.lastInstructionIs(OpReturnValue))
	ins := c.currentInstructions()
	assert.Equal(t, byte(OpReturnValue), ins[len(ins)-1])
}
