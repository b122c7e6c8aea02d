package compiler

import (
	"fmt"
	"strings"

	"github.com/mna/wisteria/lang/ast"
	"github.com/mna/wisteria/lang/builtins"
	"github.com/mna/wisteria/lang/diag"
	"github.com/mna/wisteria/lang/modconst"
	"github.com/mna/wisteria/lang/symtab"
	"github.com/mna/wisteria/lang/token"
	"github.com/mna/wisteria/lang/value"
)

// Bytecode is the compiler's output: the main instruction stream, the
// constant pool (immutable after compile) and the offset-to-span debug
// table for the top-level code. Compiled functions nested in the constant
// pool carry their own debug tables.
type Bytecode struct {
	Instructions []byte
	Constants    []value.Value
	Debug        *value.DebugInfo
}

// EmittedInstruction records one emitted opcode and its byte position, the
// last two of which every compilation scope tracks so trailing Pops can be
// rewritten (remove-last-pop, replace-with-return).
type EmittedInstruction struct {
	Opcode   Opcode
	Position int
}

// CompilationScope owns the instruction buffer and location table for one
// function body being compiled. Entering a function literal pushes a
// scope; leaving pops it and freezes its contents into a CompiledFunction
// constant.
type CompilationScope struct {
	instructions        []byte
	lastInstruction     EmittedInstruction
	previousInstruction EmittedInstruction
	locations           []value.Location
}

// Importer loads the parsed program behind an import path. The parser is
// an external collaborator, so the compiler only sees this interface; a
// nil Importer turns every import statement into a diagnostic.
type Importer interface {
	Import(path string) (*ast.Program, error)
}

// Compiler lowers one program into a Bytecode. It is single-use: compile
// one unit, read the diagnostics, throw it away.
type Compiler struct {
	// Importer resolves import statements. May be nil.
	Importer Importer

	constants  []value.Value
	symbols    *symtab.SymbolTable
	scopes     []CompilationScope
	scopeIndex int

	diags   diag.Aggregator
	file    *token.File
	curSpan token.Span

	folded    map[string]value.Value
	curModule string

	importStack []string
	imported    map[string]bool

	hiddenSeq int
}

// New creates a Compiler with the builtin table pre-registered at its
// fixed indices.
func New() *Compiler {
	st := symtab.New()
	for i, name := range builtins.Names() {
		st.DefineBuiltin(i, name)
	}
	return &Compiler{
		symbols:  st,
		scopes:   []CompilationScope{{}},
		imported: make(map[string]bool),
	}
}

// SetFile records the source file the next compiled statements come from,
// attached to every emitted instruction's debug location.
func (c *Compiler) SetFile(f *token.File) { c.file = f }

// SetMaxErrors caps how many diagnostics are collected before further ones
// are counted as suppressed.
func (c *Compiler) SetMaxErrors(n int) { c.diags.MaxErrors = n }

// Compile lowers prog. On success the returned diagnostics slice may still
// hold warnings; on failure the Bytecode is nil and at least one
// error-severity diagnostic explains why.
func (c *Compiler) Compile(prog *ast.Program) (*Bytecode, []*diag.Diagnostic) {
	c.checkLayout(prog)
	c.foldConstants(prog, "")
	for _, s := range prog.Statements {
		c.compileStatement(s)
	}
	if c.diags.HasErrors() {
		return nil, c.diags.Diagnostics()
	}
	return c.bytecode(), c.diags.Diagnostics()
}

// Diagnostics returns everything collected so far, in insertion order.
func (c *Compiler) Diagnostics() []*diag.Diagnostic { return c.diags.Diagnostics() }

// Suppressed returns the count of diagnostics dropped past the max-errors
// ceiling.
func (c *Compiler) Suppressed() int { return c.diags.Suppressed() }

func (c *Compiler) bytecode() *Bytecode {
	sc := c.scopes[0]
	return &Bytecode{
		Instructions: sc.instructions,
		Constants:    c.constants,
		Debug:        &value.DebugInfo{Locations: sc.locations},
	}
}

// checkLayout rejects files mixing module declarations with script-level
// statements: a unit is either one or more modules (plus imports) or a
// plain script, never both.
func (c *Compiler) checkLayout(prog *ast.Program) {
	var hasModule, hasScript bool
	var scriptSpan token.Span
	for _, s := range prog.Statements {
		switch s.(type) {
		case *ast.ModuleStatement:
			hasModule = true
		case *ast.ImportStatement:
		default:
			hasScript = true
			scriptSpan = s.Span()
		}
	}
	if hasModule && hasScript {
		c.errorf(diag.CodeInvalidModuleLayout, "invalid module file layout", scriptSpan,
			"file mixes module declarations with script statements")
	}
}

// foldConstants runs the module-constant evaluator over prog's top-level
// lets. Bindings it cannot fold are left for ordinary runtime compilation;
// only circular dependencies are a hard error, since no evaluation order
// can satisfy them at runtime either.
func (c *Compiler) foldConstants(prog *ast.Program, module string) {
	vals, errs := modconst.Evaluate(prog, module)
	for _, e := range errs {
		if e.Code == "CircularDependency" {
			d := diag.New(diag.CodeCircularDependency, "circular module constants", e.Message).
				WithSpan(c.file, e.Span)
			if e.Hint != "" {
				d.WithHint(e.Hint)
			}
			c.diags.Add(d)
		}
	}
	if c.folded == nil {
		c.folded = make(map[string]value.Value, len(vals))
	}
	for k, v := range vals {
		c.folded[k] = v
	}
}

func (c *Compiler) compileStatement(s ast.Statement) {
	c.curSpan = s.Span()
	switch s := s.(type) {
	case *ast.LetStatement:
		c.compileLet(s.Name.Name, s.Value, s.Span())

	case *ast.ReturnStatement:
		if c.scopeIndex == 0 {
			c.errorf(diag.CodeMisplacedReturn, "misplaced return", s.Span(),
				"return outside of a function body")
			return
		}
		if s.Value == nil {
			c.emit(OpReturn)
			return
		}
		c.compileExpression(s.Value)
		c.emit(OpReturnValue)

	case *ast.ExpressionStatement:
		if s.Expression == nil {
			return
		}
		c.compileExpression(s.Expression)
		c.emit(OpPop)

	case *ast.FunctionStatement:
		c.compileLet(s.Name.Name, &ast.FunctionLiteral{
			Sp:         s.Sp,
			Name:       s.Name.Name,
			Parameters: s.Parameters,
			Body:       s.Body,
		}, s.Span())

	case *ast.BlockStatement:
		for _, st := range s.Statements {
			c.compileStatement(st)
		}

	case *ast.ModuleStatement:
		c.compileModule(s)

	case *ast.ImportStatement:
		c.compileImport(s)

	default:
		c.errorf(diag.CodeConstEvalError, "unsupported statement", s.Span(),
			"statement kind %T not supported by this compiler", s)
	}
}

// compileLet defines name in the current scope and compiles its
// initializer, substituting the pre-folded constant value when the
// module-constant evaluator already produced one. The binding is defined
// before the initializer compiles; a function literal initializer is also
// named after the binding, so its body refers to itself through the
// function-self binding (OpCurrentClosure).
func (c *Compiler) compileLet(name string, init ast.Expression, sp token.Span) {
	if c.symbols.DefinedInScope(name) {
		c.errorf(diag.CodeDuplicateName, "duplicate name", sp,
			"%q is already defined in this scope", name)
		return
	}
	sym := c.symbols.Define(name)

	if v, ok := c.folded[name]; ok && sym.Scope == symtab.Global {
		c.emitConstantValue(v)
		c.emitSet(sym)
		return
	}

	if fl, ok := init.(*ast.FunctionLiteral); ok && fl.Name == "" {
		fl.Name = name
	}
	if init == nil {
		c.emit(OpNone)
	} else {
		c.compileExpression(init)
	}
	c.emitSet(sym)
}

// compileModule compiles a module declaration: its lets and functions are
// defined as qualified globals ("Mod.NAME"), pre-folded where the
// constant evaluator could, so references from other code resolve through
// the ordinary symbol table.
func (c *Compiler) compileModule(m *ast.ModuleStatement) {
	prevModule := c.curModule
	c.curModule = m.Name.Name
	defer func() { c.curModule = prevModule }()

	body := &ast.Program{Statements: m.Body}
	c.foldConstants(body, m.Name.Name)

	for _, s := range m.Body {
		c.curSpan = s.Span()
		switch s := s.(type) {
		case *ast.LetStatement:
			qname := m.Name.Name + "." + s.Name.Name
			if v, ok := c.folded[qname]; ok {
				if c.symbols.DefinedInScope(qname) {
					c.errorf(diag.CodeDuplicateName, "duplicate name", s.Span(),
						"%q is already defined in module %s", s.Name.Name, m.Name.Name)
					continue
				}
				sym := c.symbols.Define(qname)
				c.emitConstantValue(v)
				c.emitSet(sym)
				continue
			}
			c.compileLet(qname, s.Value, s.Span())
		case *ast.FunctionStatement:
			qname := m.Name.Name + "." + s.Name.Name
			c.compileLet(qname, &ast.FunctionLiteral{
				Sp:         s.Sp,
				Name:       qname,
				Parameters: s.Parameters,
				Body:       s.Body,
			}, s.Span())
		default:
			c.errorf(diag.CodeInvalidModuleLayout, "invalid module file layout", s.Span(),
				"only let and function declarations are allowed inside module %s", m.Name.Name)
		}
	}
}

func (c *Compiler) compileImport(s *ast.ImportStatement) {
	if c.Importer == nil {
		c.errorf(diag.CodeImportUnavailable, "import unavailable", s.Span(),
			"no module loader is configured for import %q", s.Path)
		return
	}
	for i, p := range c.importStack {
		if p == s.Path {
			chain := append(append([]string(nil), c.importStack[i:]...), s.Path)
			c.errorf(diag.CodeImportCycle, "import cycle", s.Span(),
				"import cycle: %s", strings.Join(chain, " -> "))
			return
		}
	}
	if c.imported[s.Path] {
		return
	}
	prog, err := c.Importer.Import(s.Path)
	if err != nil {
		c.errorf(diag.CodeInvalidModuleLayout, "invalid module file layout", s.Span(),
			"cannot load module %q: %s", s.Path, err)
		return
	}

	c.importStack = append(c.importStack, s.Path)
	defer func() { c.importStack = c.importStack[:len(c.importStack)-1] }()

	if s.Alias != nil {
		// a single-module file imported under an alias is compiled as if
		// the module had been declared with the alias's name
		if len(prog.Statements) == 1 {
			if mod, ok := prog.Statements[0].(*ast.ModuleStatement); ok {
				aliased := *mod
				aliased.Name = s.Alias
				c.compileStatement(&aliased)
				c.imported[s.Path] = true
				return
			}
		}
	}
	for _, st := range prog.Statements {
		c.compileStatement(st)
	}
	c.imported[s.Path] = true
}

func (c *Compiler) compileExpression(e ast.Expression) {
	c.curSpan = e.Span()
	switch e := e.(type) {
	case *ast.IntegerLiteral:
		c.emit(OpConstant, c.addConstant(value.Integer(e.Value)))
	case *ast.FloatLiteral:
		c.emit(OpConstant, c.addConstant(value.Float(e.Value)))
	case *ast.StringLiteral:
		c.emit(OpConstant, c.addConstant(value.NewString(e.Value)))
	case *ast.BooleanLiteral:
		if e.Value {
			c.emit(OpTrue)
		} else {
			c.emit(OpFalse)
		}
	case *ast.NoneLiteral:
		c.emit(OpNone)

	case *ast.Identifier:
		c.compileIdentifier(e)

	case *ast.PrefixExpression:
		c.compileExpression(e.Right)
		switch e.Operator {
		case "-":
			c.emit(OpMinus)
		case "!":
			c.emit(OpNot)
		default:
			c.errorf(diag.CodeUnknownOperator, "unknown operator", e.Span(),
				"unknown prefix operator %q", e.Operator)
		}

	case *ast.InfixExpression:
		c.compileInfix(e)

	case *ast.IfExpression:
		c.compileIf(e)

	case *ast.ArrayLiteral:
		for _, el := range e.Elements {
			c.compileExpression(el)
		}
		c.curSpan = e.Span()
		c.emit(OpArray, len(e.Elements))

	case *ast.HashLiteral:
		for _, p := range e.Pairs {
			c.compileExpression(p.Key)
			c.compileExpression(p.Value)
		}
		c.curSpan = e.Span()
		c.emit(OpHash, len(e.Pairs)*2)

	case *ast.IndexExpression:
		c.compileExpression(e.Left)
		c.compileExpression(e.Index)
		c.curSpan = e.Span()
		c.emit(OpIndex)

	case *ast.CallExpression:
		c.compileExpression(e.Function)
		for _, a := range e.Arguments {
			c.compileExpression(a)
		}
		c.curSpan = e.Span()
		c.emit(OpCall, len(e.Arguments))

	case *ast.FunctionLiteral:
		c.compileFunction(e)

	case *ast.MatchExpression:
		c.compileMatch(e)

	default:
		c.errorf(diag.CodeConstEvalError, "unsupported expression", e.Span(),
			"expression kind %T not supported by this compiler", e)
		c.emit(OpNone)
	}
}

func (c *Compiler) compileIdentifier(e *ast.Identifier) {
	if mod, member, ok := strings.Cut(e.Name, "."); ok {
		if strings.HasPrefix(member, "_") && c.curModule != mod {
			c.errorf(diag.CodePrivateMember, "private member access", e.Span(),
				"%s.%s is private to module %s", mod, member, mod)
			c.emit(OpNone)
			return
		}
	}
	sym, ok := c.symbols.Resolve(e.Name)
	if !ok {
		d := diag.New(diag.CodeUnresolvedName, "undefined name",
			fmt.Sprintf("%q is not defined", e.Name)).
			WithSpan(c.file, e.Span())
		if sugg := similarNames(e.Name, c.symbols.VisibleNames()); len(sugg) > 0 {
			d.WithHint(fmt.Sprintf("did you mean %s?", quoteJoin(sugg)))
		}
		c.diags.Add(d)
		c.emit(OpNone)
		return
	}
	c.loadSymbol(sym)
}

func quoteJoin(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}

func (c *Compiler) compileInfix(e *ast.InfixExpression) {
	switch e.Operator {
	case "=":
		c.compileAssign(e)
		return
	case "<":
		// compiled as the reversed ">": the VM only knows OpGreaterThan
		c.compileExpression(e.Right)
		c.compileExpression(e.Left)
		c.curSpan = e.Span()
		c.emit(OpGreaterThan)
		return
	case "&&":
		c.compileExpression(e.Left)
		c.curSpan = e.Span()
		shortPos := c.emit(OpJumpNotTruthy, 9999)
		c.compileExpression(e.Right)
		endPos := c.emit(OpJump, 9999)
		c.changeOperand(shortPos, len(c.currentInstructions()))
		c.emit(OpFalse)
		c.changeOperand(endPos, len(c.currentInstructions()))
		return
	case "||":
		c.compileExpression(e.Left)
		c.curSpan = e.Span()
		c.emit(OpNot)
		shortPos := c.emit(OpJumpNotTruthy, 9999)
		c.compileExpression(e.Right)
		endPos := c.emit(OpJump, 9999)
		c.changeOperand(shortPos, len(c.currentInstructions()))
		c.emit(OpTrue)
		c.changeOperand(endPos, len(c.currentInstructions()))
		return
	}

	c.compileExpression(e.Left)
	c.compileExpression(e.Right)
	c.curSpan = e.Span()
	switch e.Operator {
	case "+":
		c.emit(OpAdd)
	case "-":
		c.emit(OpSub)
	case "*":
		c.emit(OpMul)
	case "/":
		c.emit(OpDiv)
	case "%":
		c.emit(OpMod)
	case "==":
		c.emit(OpEqual)
	case "!=":
		c.emit(OpNotEqual)
	case ">":
		c.emit(OpGreaterThan)
	case ">=":
		c.emit(OpGreaterEqual)
	case "<=":
		c.emit(OpLessEqual)
	default:
		c.errorf(diag.CodeUnknownOperator, "unknown operator", e.Span(),
			"unknown infix operator %q", e.Operator)
	}
}

// compileAssign handles `name = expr` as an expression: the assigned value
// is re-loaded so the expression leaves it on the stack. Assignment only
// reaches bindings in the current function or at global scope; writing to
// a captured (free) binding or to a builtin/function-self name is
// rejected, since captures are immutable snapshots taken at closure
// construction.
func (c *Compiler) compileAssign(e *ast.InfixExpression) {
	target, ok := e.Left.(*ast.Identifier)
	if !ok {
		c.errorf(diag.CodeUnknownOperator, "invalid assignment", e.Span(),
			"left side of = must be a name")
		c.emit(OpNone)
		return
	}
	sym, found := c.symbols.Resolve(target.Name)
	if !found {
		c.errorf(diag.CodeUnresolvedName, "undefined name", target.Span(),
			"%q is not defined", target.Name)
		c.emit(OpNone)
		return
	}
	switch sym.Scope {
	case symtab.Free, symtab.Builtin, symtab.Function:
		c.errorf(diag.CodeOuterScopeAssign, "assignment to immutable binding", e.Span(),
			"cannot assign to %s binding %q", sym.Scope, target.Name)
		c.emit(OpNone)
		return
	}
	c.compileExpression(e.Right)
	c.curSpan = e.Span()
	c.emitSet(sym)
	c.loadSymbol(sym)
}

func (c *Compiler) compileIf(e *ast.IfExpression) {
	c.compileExpression(e.Condition)
	c.curSpan = e.Span()
	jumpNotTruthyPos := c.emit(OpJumpNotTruthy, 9999)

	c.compileStatement(e.Consequence)
	if c.lastInstructionIs(OpPop) {
		c.removeLastPop()
	}
	jumpPos := c.emit(OpJump, 9999)
	c.changeOperand(jumpNotTruthyPos, len(c.currentInstructions()))

	if e.Alternative == nil {
		c.emit(OpNone)
	} else {
		c.compileStatement(e.Alternative)
		if c.lastInstructionIs(OpPop) {
			c.removeLastPop()
		}
	}
	c.changeOperand(jumpPos, len(c.currentInstructions()))
}

func (c *Compiler) compileFunction(fl *ast.FunctionLiteral) {
	c.enterScope()
	if fl.Name != "" {
		c.symbols.DefineFunctionName(fl.Name)
	}
	seen := make(map[string]bool, len(fl.Parameters))
	for _, p := range fl.Parameters {
		if seen[p.Name] {
			c.errorf(diag.CodeDuplicateParam, "duplicate parameter", p.Span(),
				"parameter %q is declared more than once", p.Name)
			continue
		}
		seen[p.Name] = true
		c.symbols.Define(p.Name)
	}
	if fl.Body != nil {
		for _, s := range fl.Body.Statements {
			c.compileStatement(s)
		}
	}

	if c.lastInstructionIs(OpPop) {
		c.replaceLastPopWithReturn()
	}
	if !c.lastInstructionIs(OpReturnValue) {
		c.emit(OpReturn)
	}

	freeSymbols := c.symbols.FreeSymbols
	numLocals := c.symbols.NumDefinitions()
	instructions, locations := c.leaveScope()

	fn := &value.CompiledFunction{
		Instructions:  instructions,
		NumLocals:     numLocals,
		NumParameters: len(fl.Parameters),
		Name:          fl.Name,
		Debug:         &value.DebugInfo{Locations: locations},
	}
	// load each captured binding from the enclosing scope, in first-
	// capture order, so OpClosure finds them on the stack
	for _, free := range freeSymbols {
		c.loadSymbol(free)
	}
	c.curSpan = fl.Span()
	c.emit(OpClosure, c.addConstant(fn), len(freeSymbols))
}

// compileMatch lowers a match expression into test-and-jump chains. The
// subject is evaluated once into a hidden binding; each arm tests it (and
// any unwrapped inner values, via further hidden bindings) and jumps to
// the next arm on mismatch. A match with no matching arm yields None.
func (c *Compiler) compileMatch(m *ast.MatchExpression) {
	subj := c.defineHidden()
	c.compileExpression(m.Subject)
	c.curSpan = m.Span()
	c.emitSet(subj)

	var endJumps []int
	for _, arm := range m.Arms {
		var nextArm []int
		c.compilePatternTest(arm.Pattern, subj, &nextArm)
		c.compileExpression(arm.Body)
		endJumps = append(endJumps, c.emit(OpJump, 9999))
		for _, pos := range nextArm {
			c.changeOperand(pos, len(c.currentInstructions()))
		}
	}
	c.emit(OpNone)
	for _, pos := range endJumps {
		c.changeOperand(pos, len(c.currentInstructions()))
	}
}

func (c *Compiler) compilePatternTest(p ast.Pattern, subj symtab.Binding, nextArm *[]int) {
	switch p := p.(type) {
	case *ast.WildcardPattern:

	case *ast.BindPattern:
		c.loadSymbol(subj)
		b := c.symbols.Define(p.Name)
		c.emitSet(b)

	case *ast.LiteralPattern:
		c.loadSymbol(subj)
		c.compileExpression(p.Value)
		c.emit(OpEqual)
		*nextArm = append(*nextArm, c.emit(OpJumpNotTruthy, 9999))

	case *ast.NonePattern:
		c.loadSymbol(subj)
		c.emit(OpKindIs, int(KindNone))
		*nextArm = append(*nextArm, c.emit(OpJumpNotTruthy, 9999))

	case *ast.SomePattern:
		c.compileWrapperTest(KindSome, p.Inner, subj, nextArm)
	case *ast.LeftPattern:
		c.compileWrapperTest(KindLeft, p.Inner, subj, nextArm)
	case *ast.RightPattern:
		c.compileWrapperTest(KindRight, p.Inner, subj, nextArm)

	default:
		c.errorf(diag.CodeConstEvalError, "unsupported pattern", p.Span(),
			"pattern kind %T not supported by this compiler", p)
	}
}

func (c *Compiler) compileWrapperTest(kind byte, inner ast.Pattern, subj symtab.Binding, nextArm *[]int) {
	c.loadSymbol(subj)
	c.emit(OpKindIs, int(kind))
	*nextArm = append(*nextArm, c.emit(OpJumpNotTruthy, 9999))

	unwrapped := c.defineHidden()
	c.loadSymbol(subj)
	c.emit(OpUnwrap)
	c.emitSet(unwrapped)
	c.compilePatternTest(inner, unwrapped, nextArm)
}

// defineHidden allocates a compiler-internal binding. The '#' makes the
// name unwritable in source, so it can never collide with a user binding.
func (c *Compiler) defineHidden() symtab.Binding {
	name := fmt.Sprintf("#tmp%d", c.hiddenSeq)
	c.hiddenSeq++
	return c.symbols.Define(name)
}

// --- emission machinery ---

func (c *Compiler) currentScope() *CompilationScope {
	return &c.scopes[c.scopeIndex]
}

func (c *Compiler) currentInstructions() []byte {
	return c.currentScope().instructions
}

func (c *Compiler) emit(op Opcode, operands ...int) int {
	ins := Make(op, operands...)
	sc := c.currentScope()
	pos := len(sc.instructions)
	sc.instructions = append(sc.instructions, ins...)
	sc.previousInstruction = sc.lastInstruction
	sc.lastInstruction = EmittedInstruction{Opcode: op, Position: pos}
	sc.locations = append(sc.locations, value.Location{Offset: pos, File: c.file, Span: c.curSpan})
	return pos
}

func (c *Compiler) addConstant(v value.Value) int {
	c.constants = append(c.constants, v)
	return len(c.constants) - 1
}

// emitConstantValue pushes a pre-folded constant. Booleans and None have
// dedicated opcodes and never enter the constant pool, which also keeps
// the pool within the cache codec's supported tag set.
func (c *Compiler) emitConstantValue(v value.Value) {
	switch v := v.(type) {
	case value.Boolean:
		if v {
			c.emit(OpTrue)
		} else {
			c.emit(OpFalse)
		}
	case value.None:
		c.emit(OpNone)
	default:
		c.emit(OpConstant, c.addConstant(v))
	}
}

func (c *Compiler) loadSymbol(sym symtab.Binding) {
	switch sym.Scope {
	case symtab.Global:
		c.emit(OpGetGlobal, sym.Index)
	case symtab.Local:
		c.emit(OpGetLocal, sym.Index)
	case symtab.Free:
		c.emit(OpGetFree, sym.Index)
	case symtab.Builtin:
		c.emit(OpGetBuiltin, sym.Index)
	case symtab.Function:
		c.emit(OpCurrentClosure)
	}
}

func (c *Compiler) emitSet(sym symtab.Binding) {
	if sym.Scope == symtab.Global {
		c.emit(OpSetGlobal, sym.Index)
	} else {
		c.emit(OpSetLocal, sym.Index)
	}
}

func (c *Compiler) lastInstructionIs(op Opcode) bool {
	sc := c.currentScope()
	if len(sc.instructions) == 0 {
		return false
	}
	return sc.lastInstruction.Opcode == op
}

// removeLastPop rewinds the trailing Pop emitted by an expression
// statement, leaving the stream byte-identical to having compiled the
// expression without it. The location table is trimmed to match so no
// entry points past the stream's end.
func (c *Compiler) removeLastPop() {
	sc := c.currentScope()
	last := sc.lastInstruction
	sc.instructions = sc.instructions[:last.Position]
	for len(sc.locations) > 0 && sc.locations[len(sc.locations)-1].Offset >= last.Position {
		sc.locations = sc.locations[:len(sc.locations)-1]
	}
	sc.lastInstruction = sc.previousInstruction
}

func (c *Compiler) replaceInstruction(pos int, newInstruction []byte) {
	sc := c.currentScope()
	copy(sc.instructions[pos:], newInstruction)
}

func (c *Compiler) replaceLastPopWithReturn() {
	sc := c.currentScope()
	lastPos := sc.lastInstruction.Position
	c.replaceInstruction(lastPos, Make(OpReturnValue))
	sc.lastInstruction.Opcode = OpReturnValue
}

// changeOperand backpatches the operand of the instruction at opPos. The
// opcode is read back from the byte stream, never assumed, so the rewrite
// preserves it.
func (c *Compiler) changeOperand(opPos, operand int) {
	op := Opcode(c.currentInstructions()[opPos])
	c.replaceInstruction(opPos, Make(op, operand))
}

func (c *Compiler) enterScope() {
	c.scopes = append(c.scopes, CompilationScope{})
	c.scopeIndex++
	c.symbols = symtab.NewEnclosed(c.symbols)
}

func (c *Compiler) leaveScope() ([]byte, []value.Location) {
	sc := c.currentScope()
	instructions, locations := sc.instructions, sc.locations
	c.scopes = c.scopes[:len(c.scopes)-1]
	c.scopeIndex--
	c.symbols = c.symbols.Outer
	return instructions, locations
}

func (c *Compiler) errorf(code, title string, sp token.Span, format string, args ...any) {
	c.diags.Add(diag.New(code, title, fmt.Sprintf(format, args...)).WithSpan(c.file, sp))
}
