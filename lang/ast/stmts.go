package ast

import (
	"strings"

	"github.com/mna/wisteria/lang/token"
)

// LetStatement binds the value of Value to Name in the enclosing scope.
// Top-level lets are also candidates for compile-time constant folding
// (lang/modconst).
type LetStatement struct {
	Sp    token.Span
	Name  *Identifier
	Value Expression
}

func (s *LetStatement) Span() token.Span { return s.Sp }
func (s *LetStatement) stmtNode()        {}
func (s *LetStatement) String() string {
	var b strings.Builder
	b.WriteString("let ")
	b.WriteString(s.Name.String())
	b.WriteString(" = ")
	if s.Value != nil {
		b.WriteString(s.Value.String())
	}
	b.WriteByte(';')
	return b.String()
}

// ReturnStatement returns Value (nil for a bare "return;") from the
// enclosing function.
type ReturnStatement struct {
	Sp    token.Span
	Value Expression
}

func (s *ReturnStatement) Span() token.Span { return s.Sp }
func (s *ReturnStatement) stmtNode()        {}
func (s *ReturnStatement) String() string {
	var b strings.Builder
	b.WriteString("return")
	if s.Value != nil {
		b.WriteByte(' ')
		b.WriteString(s.Value.String())
	}
	b.WriteByte(';')
	return b.String()
}

// ExpressionStatement is an expression evaluated for its value; the
// last popped expression-statement value is the program's final
// result.
type ExpressionStatement struct {
	Sp         token.Span
	Expression Expression
}

func (s *ExpressionStatement) Span() token.Span { return s.Sp }
func (s *ExpressionStatement) stmtNode()        {}
func (s *ExpressionStatement) String() string {
	if s.Expression == nil {
		return ""
	}
	return s.Expression.String()
}

// FunctionStatement is sugar for `let Name = fn(Parameters) Body;` that
// also registers Name as the function's own name, letting the body
// reference itself without an extra free capture.
type FunctionStatement struct {
	Sp         token.Span
	Name       *Identifier
	Parameters []*Identifier
	Body       *BlockStatement
}

func (s *FunctionStatement) Span() token.Span { return s.Sp }
func (s *FunctionStatement) stmtNode()        {}
func (s *FunctionStatement) String() string {
	var b strings.Builder
	b.WriteString("fn ")
	b.WriteString(s.Name.String())
	b.WriteByte('(')
	for i, p := range s.Parameters {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(") ")
	b.WriteString(s.Body.String())
	return b.String()
}

// ModuleStatement groups a set of statements under a named module,
// whose bindings are reachable as "Module.NAME" qualified names. A file
// cannot mix module declarations with script statements.
type ModuleStatement struct {
	Sp   token.Span
	Name *Identifier
	Body []Statement
}

func (s *ModuleStatement) Span() token.Span { return s.Sp }
func (s *ModuleStatement) stmtNode()        {}
func (s *ModuleStatement) String() string {
	var b strings.Builder
	b.WriteString("module ")
	b.WriteString(s.Name.String())
	b.WriteString(" {\n")
	for _, st := range s.Body {
		b.WriteString("  ")
		b.WriteString(st.String())
		b.WriteByte('\n')
	}
	b.WriteByte('}')
	return b.String()
}

// ImportStatement brings the bindings of another module's search-root-
// relative Path into scope, optionally under Alias.
type ImportStatement struct {
	Sp    token.Span
	Path  string
	Alias *Identifier // nil if no "as" clause
}

func (s *ImportStatement) Span() token.Span { return s.Sp }
func (s *ImportStatement) stmtNode()        {}
func (s *ImportStatement) String() string {
	var b strings.Builder
	b.WriteString("import \"")
	b.WriteString(s.Path)
	b.WriteByte('"')
	if s.Alias != nil {
		b.WriteString(" as ")
		b.WriteString(s.Alias.String())
	}
	b.WriteByte(';')
	return b.String()
}

// BlockStatement is a brace-delimited sequence of statements; it is a
// Statement only for Walk-style traversal convenience and is never itself
// a member of Program.Statements.
type BlockStatement struct {
	Sp         token.Span
	Statements []Statement
}

func (s *BlockStatement) Span() token.Span { return s.Sp }
func (s *BlockStatement) stmtNode()        {}
func (s *BlockStatement) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for _, st := range s.Statements {
		b.WriteString(st.String())
		b.WriteByte(' ')
	}
	b.WriteByte('}')
	return b.String()
}
