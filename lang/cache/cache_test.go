package cache_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/wisteria/lang/cache"
	"github.com/mna/wisteria/lang/compiler"
	"github.com/mna/wisteria/lang/token"
	"github.com/mna/wisteria/lang/value"
)

func sampleBytecode() *compiler.Bytecode {
	fs := token.NewFileSet()
	file := fs.AddFile("main.ws")

	fnIns := append(
		compiler.Make(compiler.OpGetLocal, 0),
		compiler.Make(compiler.OpReturnValue)...)
	fn := &value.CompiledFunction{
		Instructions:  fnIns,
		NumLocals:     1,
		NumParameters: 1,
		Name:          "ident",
		Debug: &value.DebugInfo{Locations: []value.Location{
			{Offset: 0, File: file, Span: token.Span{
				Start: token.Position{Line: 2, Column: 5},
				End:   token.Position{Line: 2, Column: 6},
			}},
			{Offset: 2},
		}},
	}

	var main []byte
	main = append(main, compiler.Make(compiler.OpClosure, 3, 0)...)
	main = append(main, compiler.Make(compiler.OpConstant, 0)...)
	main = append(main, compiler.Make(compiler.OpCall, 1)...)
	main = append(main, compiler.Make(compiler.OpPop)...)

	return &compiler.Bytecode{
		Instructions: main,
		Constants: []value.Value{
			value.Integer(-42),
			value.Float(3.5),
			value.NewString("héllo"),
			fn,
		},
		Debug: &value.DebugInfo{Locations: []value.Location{
			{Offset: 0, File: file, Span: token.Span{
				Start: token.Position{Line: 1, Column: 1},
				End:   token.Position{Line: 1, Column: 10},
			}},
		}},
	}
}

func TestRoundTrip(t *testing.T) {
	bc := sampleBytecode()
	key := cache.HashBytes([]byte("source"))

	var buf bytes.Buffer
	require.NoError(t, cache.Write(&buf, key, nil, bc))

	got, ok := cache.Load(bytes.NewReader(buf.Bytes()), key)
	require.True(t, ok)

	assert.Equal(t, bc.Instructions, got.Instructions)
	require.Len(t, got.Constants, len(bc.Constants))
	assert.Equal(t, value.Integer(-42), got.Constants[0])
	assert.Equal(t, value.Float(3.5), got.Constants[1])
	s, sok := got.Constants[2].(*value.String)
	require.True(t, sok)
	assert.Equal(t, "héllo", s.Value)

	fn, fok := got.Constants[3].(*value.CompiledFunction)
	require.True(t, fok)
	wantFn := bc.Constants[3].(*value.CompiledFunction)
	assert.Equal(t, wantFn.Instructions, fn.Instructions)
	assert.Equal(t, wantFn.NumLocals, fn.NumLocals)
	assert.Equal(t, wantFn.NumParameters, fn.NumParameters)
	assert.Equal(t, "ident", fn.Name)
	require.NotNil(t, fn.Debug)
	require.Len(t, fn.Debug.Locations, 2)
	loc := fn.Debug.Locations[0]
	require.NotNil(t, loc.File)
	assert.Equal(t, "main.ws", loc.File.Name)
	assert.Equal(t, 2, loc.Span.Start.Line)
	assert.Equal(t, 5, loc.Span.Start.Column)
	assert.Nil(t, fn.Debug.Locations[1].File)

	require.NotNil(t, got.Debug)
	require.Len(t, got.Debug.Locations, 1)
	assert.Equal(t, 1, got.Debug.Locations[0].Span.Start.Line)
}

func TestLoadRejectsWrongKey(t *testing.T) {
	bc := sampleBytecode()
	key := cache.HashBytes([]byte("source"))

	var buf bytes.Buffer
	require.NoError(t, cache.Write(&buf, key, nil, bc))

	other := cache.HashBytes([]byte("different"))
	_, ok := cache.Load(bytes.NewReader(buf.Bytes()), other)
	assert.False(t, ok)
}

func TestLoadRejectsBadMagicAndVersion(t *testing.T) {
	bc := sampleBytecode()
	key := cache.HashBytes([]byte("source"))

	var buf bytes.Buffer
	require.NoError(t, cache.Write(&buf, key, nil, bc))
	raw := buf.Bytes()

	// corrupt the magic
	tampered := append([]byte(nil), raw...)
	tampered[0] ^= 0xff
	_, ok := cache.Load(bytes.NewReader(tampered), key)
	assert.False(t, ok)

	// corrupt the format version
	tampered = append([]byte(nil), raw...)
	tampered[4] ^= 0xff
	_, ok = cache.Load(bytes.NewReader(tampered), key)
	assert.False(t, ok)
}

func TestLoadRejectsTruncated(t *testing.T) {
	bc := sampleBytecode()
	key := cache.HashBytes([]byte("source"))

	var buf bytes.Buffer
	require.NoError(t, cache.Write(&buf, key, nil, bc))

	raw := buf.Bytes()
	for _, n := range []int{0, 3, 10, len(raw) / 2, len(raw) - 1} {
		_, ok := cache.Load(bytes.NewReader(raw[:n]), key)
		assert.False(t, ok, "truncated to %d bytes", n)
	}
}

func TestDependencyValidation(t *testing.T) {
	dir := t.TempDir()
	depPath := filepath.Join(dir, "dep.ws")
	require.NoError(t, os.WriteFile(depPath, []byte("let a = 1;"), 0o644))

	depHash, err := cache.HashFile(depPath)
	require.NoError(t, err)

	bc := sampleBytecode()
	key := cache.HashBytes([]byte("source"))
	deps := []cache.Dep{{Path: depPath, Hash: depHash}}

	cachePath := filepath.Join(dir, "dep.ws.wbc")
	require.NoError(t, cache.WriteFile(cachePath, key, deps, bc))

	// untouched dependency validates
	_, ok := cache.LoadFile(cachePath, key)
	assert.True(t, ok)

	// mutating the dependency invalidates the cache
	require.NoError(t, os.WriteFile(depPath, []byte("let a = 2;"), 0o644))
	_, ok = cache.LoadFile(cachePath, key)
	assert.False(t, ok)

	// removing it invalidates too, without error
	require.NoError(t, os.Remove(depPath))
	_, ok = cache.LoadFile(cachePath, key)
	assert.False(t, ok)
}

func TestWriteRejectsUnsupportedConstant(t *testing.T) {
	bc := &compiler.Bytecode{
		Constants: []value.Value{value.Boolean(true)},
	}
	var buf bytes.Buffer
	err := cache.Write(&buf, cache.HashBytes(nil), nil, bc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported constant type")
}

func TestKeyDerivation(t *testing.T) {
	src := cache.HashBytes([]byte("src"))
	roots1 := cache.RootsHash([]string{"/a", "/b"})
	roots2 := cache.RootsHash([]string{"/b", "/a"})

	// roots hashing is order-insensitive
	assert.Equal(t, roots1, roots2)

	k1 := cache.Key(src, roots1)
	k2 := cache.Key(src, cache.RootsHash([]string{"/c"}))
	assert.NotEqual(t, k1, k2)

	// same inputs, same key
	assert.Equal(t, k1, cache.Key(src, roots2))
}

func TestCacheReuseSkipsRecompilation(t *testing.T) {
	// write a cache entry for a source file from prebuilt bytecode, then
	// load it twice: with its dependency unchanged both loads hit and
	// return the stored bytecode, with no compiler involved
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "main.ws")
	src := []byte("1 + 2 * 3;")
	require.NoError(t, os.WriteFile(srcPath, src, 0o644))

	bc := sampleBytecode()
	key := cache.Key(cache.HashBytes(src), cache.RootsHash(nil))
	deps := []cache.Dep{{Path: srcPath, Hash: cache.HashBytes(src)}}

	cachePath := cache.PathFor(srcPath)
	require.NoError(t, cache.WriteFile(cachePath, key, deps, bc))

	got, ok := cache.LoadFile(cachePath, key)
	require.True(t, ok)
	assert.Equal(t, bc.Instructions, got.Instructions)

	// with no dependency mutated, the second load still hits
	got2, ok := cache.LoadFile(cachePath, key)
	require.True(t, ok)
	assert.Equal(t, got.Instructions, got2.Instructions)
}
