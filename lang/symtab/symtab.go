// Package symtab implements the compiler's lexically scoped symbol
// table: a stack of scopes classifying every binding as Global, Local,
// Free, Builtin or Function, with free-variable promotion walking the
// enclosing chain and recording captures in insertion order.
package symtab

// ScopeKind classifies where a Binding's value lives at runtime.
type ScopeKind int

const (
	Global ScopeKind = iota
	Local
	Free
	Builtin
	Function
)

func (k ScopeKind) String() string {
	switch k {
	case Global:
		return "global"
	case Local:
		return "local"
	case Free:
		return "free"
	case Builtin:
		return "builtin"
	case Function:
		return "function"
	default:
		return "unknown"
	}
}

// Binding is a symbol's entry in a SymbolTable: {name, scope, index}.
// Index is a dense slot number within its scope class.
type Binding struct {
	Name  string
	Scope ScopeKind
	Index int
}

// SymbolTable is one lexical scope, linked to its Outer (enclosing)
// scope to form the chain Resolve walks from innermost to outermost.
type SymbolTable struct {
	Outer *SymbolTable

	store map[string]*Binding
	order []string // insertion order, for deterministic iteration

	numDefinitions int

	// FreeSymbols records, in the order captures were first resolved, the
	// *enclosing*-scope Binding each local Free binding in this scope was
	// promoted from. OpClosure emission reads the original binding (as
	// local, free or function-self from the enclosing scope) for each
	// entry here, in this same order.
	FreeSymbols []Binding
}

// New creates a top-level (outermost) symbol table. Bindings defined
// here are Global.
func New() *SymbolTable {
	return &SymbolTable{store: make(map[string]*Binding)}
}

// NewEnclosed creates a scope nested inside outer. Bindings defined here
// are Local.
func NewEnclosed(outer *SymbolTable) *SymbolTable {
	return &SymbolTable{Outer: outer, store: make(map[string]*Binding)}
}

// Define inserts a new binding for name in the current scope: Global if
// this table has no Outer, Local otherwise. It is the caller's
// responsibility to guard against duplicate names in the same scope;
// Define itself permits shadowing by insertion order.
func (st *SymbolTable) Define(name string) Binding {
	scope := Local
	if st.Outer == nil {
		scope = Global
	}
	b := &Binding{Name: name, Scope: scope, Index: st.numDefinitions}
	st.store[name] = b
	st.order = append(st.order, name)
	st.numDefinitions++
	return *b
}

// DefineBuiltin registers a builtin at a fixed index, visible from every
// scope (builtins never become Free: Resolve short-circuits before the
// free-promotion walk for Builtin and Function bindings).
func (st *SymbolTable) DefineBuiltin(index int, name string) Binding {
	b := &Binding{Name: name, Scope: Builtin, Index: index}
	st.store[name] = b
	st.order = append(st.order, name)
	return *b
}

// DefineFunctionName registers the enclosing function's own name so its
// body can refer to itself (via OpCurrentClosure) without an extra free
// capture.
func (st *SymbolTable) DefineFunctionName(name string) Binding {
	b := &Binding{Name: name, Scope: Function, Index: 0}
	st.store[name] = b
	st.order = append(st.order, name)
	return *b
}

// Resolve searches the current scope then every enclosing scope in turn.
// If name is found only in an enclosing scope and that enclosing binding
// resolves as Local (including an already-promoted Free binding, which is
// Local-shaped one level further down the chain from the table that
// captured it, but Free itself does not re-promote past the scope that
// captured it - Global/Builtin/Function bindings are visible everywhere
// and never become Free), the binding is recorded as Free in every scope
// from the defining scope's immediate child down to the current scope,
// preserving first-capture order.
func (st *SymbolTable) Resolve(name string) (Binding, bool) {
	if b, ok := st.store[name]; ok {
		return *b, true
	}
	if st.Outer == nil {
		return Binding{}, false
	}
	outer, ok := st.Outer.Resolve(name)
	if !ok {
		return Binding{}, false
	}
	if outer.Scope == Global || outer.Scope == Builtin {
		return outer, true
	}
	return st.defineFree(outer), true
}

// defineFree records original (a Local or Free binding resolved in an
// enclosing scope, or a Function self-binding) as captured in st, unless
// it was already captured by st, and returns the Free binding pointing
// into st's free list: a scope's free list holds exactly one entry for
// x regardless of how many times x is resolved.
func (st *SymbolTable) defineFree(original Binding) Binding {
	for i, f := range st.FreeSymbols {
		if f.Name == original.Name {
			return Binding{Name: original.Name, Scope: Free, Index: i}
		}
	}
	index := len(st.FreeSymbols)
	st.FreeSymbols = append(st.FreeSymbols, original)
	free := &Binding{Name: original.Name, Scope: Free, Index: index}
	st.store[original.Name] = free
	st.order = append(st.order, original.Name)
	return *free
}

// DefinedInScope reports whether name was defined directly in this scope
// (via Define, DefineBuiltin or DefineFunctionName), as opposed to being
// visible through an enclosing scope or recorded here by free promotion.
// The compiler uses it to guard against duplicate names, which Define
// itself permits (shadowing is the caller's call to make).
func (st *SymbolTable) DefinedInScope(name string) bool {
	b, ok := st.store[name]
	return ok && b.Scope != Free
}

// VisibleNames returns every name resolvable from this scope, innermost
// first and deduplicated, used as the candidate pool for "did you mean"
// suggestions on unresolved identifiers.
func (st *SymbolTable) VisibleNames() []string {
	var out []string
	seen := make(map[string]bool)
	for s := st; s != nil; s = s.Outer {
		for _, n := range s.order {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// NumDefinitions returns the number of Global or Local slots defined
// directly in this scope (builtins and free/function bindings don't
// consume a local/global slot).
func (st *SymbolTable) NumDefinitions() int { return st.numDefinitions }

// Names returns every name bound directly in this scope, in insertion
// order (including the later effect of free-promotion rewriting a prior
// entry's scope in place).
func (st *SymbolTable) Names() []string {
	out := make([]string, len(st.order))
	copy(out, st.order)
	return out
}
