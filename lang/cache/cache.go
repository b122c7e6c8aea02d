// Package cache persists compiled bytecode (lang/compiler) to disk and
// loads it back on a later invocation, keyed by a SHA-256 cache key over
// the source and module-root configuration plus per-dependency content
// hashes. Every validation step that fails invalidates the cache (the
// caller recompiles); a malformed or stale file is never an error, only a
// miss.
//
// Layout, little-endian for every multi-byte field: a 4-byte magic, a
// 2-byte format version, the 32-byte cache key, a dependency count, then
// per dependency a length-prefixed path and its 32-byte content hash,
// then the payload: the constant pool (tagged) followed by the main
// instruction stream and its debug info.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/exp/slices"

	"github.com/mna/wisteria/lang/compiler"
	"github.com/mna/wisteria/lang/token"
	"github.com/mna/wisteria/lang/value"
)

// FormatVersion is bumped whenever the byte layout changes; a file with
// any other version is invalid.
const FormatVersion uint16 = 1

var magic = [4]byte{'W', 'S', 'T', 'R'}

// Constant pool tag bytes.
const (
	tagInteger byte = 0
	tagFloat   byte = 1
	tagString  byte = 2
	tagFunc    byte = 3
)

// Dep is one file the compiled unit depends on; its content hash is
// revalidated on load.
type Dep struct {
	Path string
	Hash [sha256.Size]byte
}

// HashBytes is the content hash used throughout the cache: SHA-256.
func HashBytes(b []byte) [sha256.Size]byte {
	return sha256.Sum256(b)
}

// HashFile hashes a file's bytes.
func HashFile(path string) ([sha256.Size]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	return HashBytes(b), nil
}

// Key derives the cache key: SHA256(source_hash || roots_hash).
func Key(sourceHash, rootsHash [sha256.Size]byte) [sha256.Size]byte {
	h := sha256.New()
	h.Write(sourceHash[:])
	h.Write(rootsHash[:])
	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// RootsHash hashes the module search roots order-insensitively.
func RootsHash(roots []string) [sha256.Size]byte {
	sorted := append([]string(nil), roots...)
	slices.Sort(sorted)
	h := sha256.New()
	for _, r := range sorted {
		h.Write([]byte(r))
		h.Write([]byte{0})
	}
	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// PathFor returns the conventional cache file path for a source path.
func PathFor(source string) string { return source + ".wbc" }

// --- writing ---

// Write encodes bc under key with its dependency list. It fails (and the
// caller should skip caching) if the constant pool holds a value outside
// the supported tag set.
func Write(w io.Writer, key [sha256.Size]byte, deps []Dep, bc *compiler.Bytecode) error {
	ew := &errWriter{w: w}
	ew.bytes(magic[:])
	ew.u16(FormatVersion)
	ew.bytes(key[:])
	ew.u32(uint32(len(deps)))
	for _, d := range deps {
		ew.str(d.Path)
		ew.bytes(d.Hash[:])
	}

	ew.u32(uint32(len(bc.Constants)))
	for _, c := range bc.Constants {
		writeConstant(ew, c)
	}
	ew.u32(uint32(len(bc.Instructions)))
	ew.bytes(bc.Instructions)
	writeDebug(ew, "", bc.Debug)
	return ew.err
}

// WriteFile writes the cache to path, replacing any previous file.
func WriteFile(path string, key [sha256.Size]byte, deps []Dep, bc *compiler.Bytecode) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := Write(f, key, deps, bc); err != nil {
		return err
	}
	return f.Close()
}

func writeConstant(ew *errWriter, c value.Value) {
	switch c := c.(type) {
	case value.Integer:
		ew.u8(tagInteger)
		ew.i64(int64(c))
	case value.Float:
		ew.u8(tagFloat)
		ew.f64(float64(c))
	case *value.String:
		ew.u8(tagString)
		ew.str(c.Value)
	case *value.CompiledFunction:
		ew.u8(tagFunc)
		ew.u16(uint16(c.NumLocals))
		ew.u16(uint16(c.NumParameters))
		ew.u32(uint32(len(c.Instructions)))
		ew.bytes(c.Instructions)
		writeDebug(ew, c.Name, c.Debug)
	default:
		ew.fail(fmt.Errorf("unsupported constant type: %s", c.Type()))
	}
}

func writeDebug(ew *errWriter, name string, d *value.DebugInfo) {
	if d == nil {
		ew.u8(0)
		return
	}
	ew.u8(1)
	if name == "" {
		ew.u8(0)
	} else {
		ew.u8(1)
		ew.str(name)
	}

	// file table: distinct files in first-appearance order
	var files []string
	ids := make(map[string]uint32)
	for _, loc := range d.Locations {
		if loc.File == nil {
			continue
		}
		if _, ok := ids[loc.File.Name]; !ok {
			ids[loc.File.Name] = uint32(len(files))
			files = append(files, loc.File.Name)
		}
	}
	ew.u32(uint32(len(files)))
	for _, f := range files {
		ew.str(f)
	}

	ew.u32(uint32(len(d.Locations)))
	for _, loc := range d.Locations {
		ew.u32(uint32(loc.Offset))
		if loc.File == nil {
			ew.u8(0)
			continue
		}
		ew.u8(1)
		ew.u32(ids[loc.File.Name])
		writeSpan(ew, loc.Span)
	}
}

func writeSpan(ew *errWriter, sp token.Span) {
	ew.u32(uint32(sp.Start.Line))
	ew.u32(uint32(sp.Start.Column))
	ew.u32(uint32(sp.End.Line))
	ew.u32(uint32(sp.End.Column))
}

// --- loading ---

// Load decodes a cache stream, validating magic, format version, the
// expected key and every dependency's content hash on disk. Any failure
// reports a miss, never an error.
func Load(r io.Reader, expectedKey [sha256.Size]byte) (*compiler.Bytecode, bool) {
	er := &errReader{r: r}

	var m [4]byte
	er.bytes(m[:])
	if er.failed() || m != magic {
		return nil, false
	}
	if er.u16() != FormatVersion || er.failed() {
		return nil, false
	}
	var key [sha256.Size]byte
	er.bytes(key[:])
	if er.failed() || key != expectedKey {
		return nil, false
	}

	depCount := int(er.u32())
	if er.failed() {
		return nil, false
	}
	for i := 0; i < depCount; i++ {
		path := er.str()
		var want [sha256.Size]byte
		er.bytes(want[:])
		if er.failed() {
			return nil, false
		}
		got, err := HashFile(path)
		if err != nil || got != want {
			return nil, false
		}
	}

	constCount := int(er.u32())
	if er.failed() {
		return nil, false
	}
	constants := make([]value.Value, 0, constCount)
	for i := 0; i < constCount; i++ {
		c, ok := readConstant(er)
		if !ok {
			return nil, false
		}
		constants = append(constants, c)
	}

	insLen := int(er.u32())
	if er.failed() {
		return nil, false
	}
	instructions := make([]byte, insLen)
	er.bytes(instructions)
	_, debug, ok := readDebug(er)
	if er.failed() || !ok {
		return nil, false
	}

	return &compiler.Bytecode{
		Instructions: instructions,
		Constants:    constants,
		Debug:        debug,
	}, true
}

// LoadFile loads and validates the cache at path against expectedKey.
func LoadFile(path string, expectedKey [sha256.Size]byte) (*compiler.Bytecode, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()
	return Load(f, expectedKey)
}

func readConstant(er *errReader) (value.Value, bool) {
	switch tag := er.u8(); {
	case er.failed():
		return nil, false
	case tag == tagInteger:
		v := er.i64()
		return value.Integer(v), !er.failed()
	case tag == tagFloat:
		v := er.f64()
		return value.Float(v), !er.failed()
	case tag == tagString:
		v := er.str()
		return value.NewString(v), !er.failed()
	case tag == tagFunc:
		numLocals := int(er.u16())
		numParams := int(er.u16())
		insLen := int(er.u32())
		if er.failed() {
			return nil, false
		}
		instructions := make([]byte, insLen)
		er.bytes(instructions)
		name, debug, ok := readDebug(er)
		if er.failed() || !ok {
			return nil, false
		}
		return &value.CompiledFunction{
			Instructions:  instructions,
			NumLocals:     numLocals,
			NumParameters: numParams,
			Name:          name,
			Debug:         debug,
		}, true
	default:
		// unsupported constant type
		return nil, false
	}
}

func readDebug(er *errReader) (string, *value.DebugInfo, bool) {
	if er.u8() == 0 {
		return "", nil, !er.failed()
	}
	var name string
	if er.u8() == 1 {
		name = er.str()
	}
	if er.failed() {
		return "", nil, false
	}

	fileCount := int(er.u32())
	if er.failed() {
		return "", nil, false
	}
	fs := token.NewFileSet()
	files := make([]*token.File, 0, fileCount)
	for i := 0; i < fileCount; i++ {
		files = append(files, fs.AddFile(er.str()))
	}

	locCount := int(er.u32())
	if er.failed() {
		return "", nil, false
	}
	locations := make([]value.Location, 0, locCount)
	for i := 0; i < locCount; i++ {
		offset := int(er.u32())
		loc := value.Location{Offset: offset}
		if er.u8() == 1 {
			fileID := int(er.u32())
			sp := readSpan(er)
			if fileID >= len(files) {
				return "", nil, false
			}
			loc.File = files[fileID]
			loc.Span = sp
		}
		if er.failed() {
			return "", nil, false
		}
		locations = append(locations, loc)
	}
	return name, &value.DebugInfo{Locations: locations}, true
}

func readSpan(er *errReader) token.Span {
	return token.Span{
		Start: token.Position{Line: int(er.u32()), Column: int(er.u32())},
		End:   token.Position{Line: int(er.u32()), Column: int(er.u32())},
	}
}

// --- sticky-error byte plumbing ---

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) fail(err error) {
	if ew.err == nil {
		ew.err = err
	}
}

func (ew *errWriter) bytes(b []byte) {
	if ew.err != nil {
		return
	}
	_, err := ew.w.Write(b)
	ew.fail(err)
}

func (ew *errWriter) u8(v byte) { ew.bytes([]byte{v}) }

func (ew *errWriter) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	ew.bytes(b[:])
}

func (ew *errWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	ew.bytes(b[:])
}

func (ew *errWriter) i64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	ew.bytes(b[:])
}

func (ew *errWriter) f64(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	ew.bytes(b[:])
}

func (ew *errWriter) str(s string) {
	ew.u32(uint32(len(s)))
	ew.bytes([]byte(s))
}

type errReader struct {
	r   io.Reader
	err error
}

func (er *errReader) failed() bool { return er.err != nil }

func (er *errReader) bytes(b []byte) {
	if er.err != nil {
		return
	}
	if _, err := io.ReadFull(er.r, b); err != nil {
		er.err = err
	}
}

func (er *errReader) u8() byte {
	var b [1]byte
	er.bytes(b[:])
	return b[0]
}

func (er *errReader) u16() uint16 {
	var b [2]byte
	er.bytes(b[:])
	return binary.LittleEndian.Uint16(b[:])
}

func (er *errReader) u32() uint32 {
	var b [4]byte
	er.bytes(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

func (er *errReader) i64() int64 {
	var b [8]byte
	er.bytes(b[:])
	return int64(binary.LittleEndian.Uint64(b[:]))
}

func (er *errReader) f64() float64 {
	var b [8]byte
	er.bytes(b[:])
	return math.Float64frombits(binary.LittleEndian.Uint64(b[:]))
}

const maxStringLen = 1 << 24 // 16MB cap, rejects hostile length prefixes

func (er *errReader) str() string {
	n := er.u32()
	if er.err != nil {
		return ""
	}
	if n > maxStringLen {
		er.err = errors.New("cache: string length out of range")
		return ""
	}
	b := make([]byte, n)
	er.bytes(b)
	if er.err != nil {
		return ""
	}
	return string(b)
}
