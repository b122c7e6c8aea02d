package value

import "github.com/mna/wisteria/lang/token"

// Location maps an instruction-stream byte offset to the source span it
// was compiled from. File is nil when
// no position information is available for that offset (e.g. in
// synthetic bytecode built directly by tests).
type Location struct {
	Offset int
	File   *token.File
	Span   token.Span
}

// DebugInfo carries everything the VM's stack-trace assembly and the
// cache codec need beyond the raw
// instruction bytes: the offset -> source span table. The function's name
// is held by CompiledFunction.Name, not here.
type DebugInfo struct {
	Locations []Location
}

// PositionFor returns the Location whose Offset is the greatest one not
// exceeding ip, or the zero Location if none qualifies. Locations must be
// sorted by Offset, which the compiler maintains by construction (it only
// ever appends while emitting instructions).
func (d *DebugInfo) PositionFor(ip int) (Location, bool) {
	if d == nil {
		return Location{}, false
	}
	var best Location
	found := false
	for _, l := range d.Locations {
		if l.Offset <= ip {
			best = l
			found = true
		} else {
			break
		}
	}
	return best, found
}

// CompiledFunction is a lowered function body: a flat instruction stream
// plus the frame layout the VM needs to set up a call.
type CompiledFunction struct {
	Instructions  []byte
	NumLocals     int
	NumParameters int

	// Name is the function's own name for stack traces, or "" for an
	// anonymous lambda or the top-level module function.
	Name string

	Debug *DebugInfo
}

func (*CompiledFunction) Type() string { return "Function" }
func (f *CompiledFunction) String() string {
	if f.Name != "" {
		return "<function " + f.Name + ">"
	}
	return "<function>"
}

// Closure pairs a CompiledFunction with the free values captured when the
// enclosing OpClosure instruction ran.
type Closure struct {
	Fn   *CompiledFunction
	Free []Value
}

func (*Closure) Type() string { return "Closure" }
func (c *Closure) String() string {
	if c.Fn.Name != "" {
		return "<closure " + c.Fn.Name + ">"
	}
	return "<closure>"
}

// BuiltinFunc is the Go-side implementation of a Builtin value.
type BuiltinFunc func(args []Value) (Value, error)

// Builtin is a named, fixed-arity-or-variadic function implemented in Go
// and addressed by the compiler via OpGetBuiltin.
type Builtin struct {
	Name string
	Fn   BuiltinFunc
}

func (*Builtin) Type() string       { return "Builtin" }
func (b *Builtin) String() string   { return "<builtin " + b.Name + ">" }
func (b *Builtin) Call(args []Value) (Value, error) { return b.Fn(args) }
