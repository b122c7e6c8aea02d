package builtins_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/wisteria/lang/builtins"
	"github.com/mna/wisteria/lang/value"
)

// the table order is the OpGetBuiltin operand contract; appending is fine,
// reordering breaks previously cached bytecode
func TestTableOrderIsStable(t *testing.T) {
	want := []string{"len", "type", "push", "first", "last", "rest",
		"str", "some", "left", "right", "unwrap", "set"}
	assert.Equal(t, want, builtins.Names())
}

func call(t *testing.T, name string, args ...value.Value) (value.Value, error) {
	t.Helper()
	for _, b := range builtins.Entries {
		if b.Name == name {
			return b.Call(args)
		}
	}
	t.Fatalf("no builtin %q", name)
	return nil, nil
}

func TestLen(t *testing.T) {
	v, err := call(t, "len", value.NewString("héllo"))
	require.NoError(t, err)
	assert.Equal(t, value.Integer(5), v)

	v, err = call(t, "len", value.NewArray([]value.Value{value.Integer(1)}))
	require.NoError(t, err)
	assert.Equal(t, value.Integer(1), v)

	_, err = call(t, "len", value.Integer(1))
	require.Error(t, err)

	_, err = call(t, "len")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong number of arguments")
}

func TestPushCopies(t *testing.T) {
	orig := value.NewArray([]value.Value{value.Integer(1)})
	v, err := call(t, "push", orig, value.Integer(2))
	require.NoError(t, err)

	arr, ok := v.(*value.Array)
	require.True(t, ok)
	assert.Len(t, arr.Elements, 2)
	assert.Len(t, orig.Elements, 1)
}

func TestFirstLastRest(t *testing.T) {
	arr := value.NewArray([]value.Value{value.Integer(1), value.Integer(2), value.Integer(3)})

	v, err := call(t, "first", arr)
	require.NoError(t, err)
	assert.Equal(t, value.Integer(1), v.(*value.Some).Inner)

	v, err = call(t, "last", arr)
	require.NoError(t, err)
	assert.Equal(t, value.Integer(3), v.(*value.Some).Inner)

	v, err = call(t, "rest", arr)
	require.NoError(t, err)
	rest := v.(*value.Some).Inner.(*value.Array)
	assert.Len(t, rest.Elements, 2)

	empty := value.NewArray(nil)
	for _, name := range []string{"first", "last", "rest"} {
		v, err := call(t, name, empty)
		require.NoError(t, err)
		assert.Equal(t, value.NoneValue, v)
	}
}

func TestStrAndType(t *testing.T) {
	v, err := call(t, "str", value.Integer(42))
	require.NoError(t, err)
	assert.Equal(t, "42", v.(*value.String).Value)

	s := value.NewString("already")
	v, err = call(t, "str", s)
	require.NoError(t, err)
	assert.Same(t, s, v)

	v, err = call(t, "type", value.NewArray(nil))
	require.NoError(t, err)
	assert.Equal(t, "Array", v.(*value.String).Value)
}

func TestWrapAndUnwrap(t *testing.T) {
	v, err := call(t, "some", value.Integer(1))
	require.NoError(t, err)
	require.IsType(t, &value.Some{}, v)

	inner, err := call(t, "unwrap", v)
	require.NoError(t, err)
	assert.Equal(t, value.Integer(1), inner)

	l, err := call(t, "left", value.Integer(2))
	require.NoError(t, err)
	inner, err = call(t, "unwrap", l)
	require.NoError(t, err)
	assert.Equal(t, value.Integer(2), inner)

	_, err = call(t, "unwrap", value.NoneValue)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unwrap None")

	_, err = call(t, "unwrap", value.Integer(1))
	require.Error(t, err)
}
