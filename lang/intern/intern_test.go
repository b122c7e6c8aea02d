package intern_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/wisteria/lang/intern"
)

func TestInternResolve(t *testing.T) {
	in := intern.New()

	a := in.Intern("alpha")
	b := in.Intern("beta")
	require.NotEqual(t, a, b)

	// stable: re-interning yields the same symbol
	assert.Equal(t, a, in.Intern("alpha"))
	assert.Equal(t, b, in.Intern("beta"))
	assert.Equal(t, 2, in.Len())

	assert.Equal(t, "alpha", in.Resolve(a))
	assert.Equal(t, "beta", in.Resolve(b))
}

func TestSymbolEqualityIsIntegerEquality(t *testing.T) {
	in := intern.New()
	s1 := in.Intern("x")
	s2 := in.Intern("x")
	assert.True(t, s1 == s2)
}

func TestResolveForeignSymbolPanics(t *testing.T) {
	in := intern.New()
	in.Intern("only")
	assert.Panics(t, func() { in.Resolve(intern.Symbol(99)) })
	assert.Panics(t, func() { in.Resolve(intern.Symbol(-1)) })
}
