package ast

import (
	"strconv"
	"strings"

	"github.com/mna/wisteria/lang/token"
)

// Identifier is a reference to a binding, resolved by the compiler's
// symbol table (lang/symtab), never by the AST itself.
type Identifier struct {
	Sp   token.Span
	Name string
}

func (e *Identifier) Span() token.Span { return e.Sp }
func (e *Identifier) exprNode()        {}
func (e *Identifier) String() string   { return e.Name }

// IntegerLiteral is a literal Integer value.
type IntegerLiteral struct {
	Sp    token.Span
	Value int64
}

func (e *IntegerLiteral) Span() token.Span { return e.Sp }
func (e *IntegerLiteral) exprNode()        {}
func (e *IntegerLiteral) String() string   { return strconv.FormatInt(e.Value, 10) }

// FloatLiteral is a literal Float value.
type FloatLiteral struct {
	Sp    token.Span
	Value float64
}

func (e *FloatLiteral) Span() token.Span { return e.Sp }
func (e *FloatLiteral) exprNode()        {}
func (e *FloatLiteral) String() string   { return strconv.FormatFloat(e.Value, 'g', -1, 64) }

// StringLiteral is a literal String value.
type StringLiteral struct {
	Sp    token.Span
	Value string
}

func (e *StringLiteral) Span() token.Span { return e.Sp }
func (e *StringLiteral) exprNode()        {}
func (e *StringLiteral) String() string   { return strconv.Quote(e.Value) }

// BooleanLiteral is a literal true/false value.
type BooleanLiteral struct {
	Sp    token.Span
	Value bool
}

func (e *BooleanLiteral) Span() token.Span { return e.Sp }
func (e *BooleanLiteral) exprNode()        {}
func (e *BooleanLiteral) String() string   { return strconv.FormatBool(e.Value) }

// NoneLiteral is the literal `none` expression.
type NoneLiteral struct {
	Sp token.Span
}

func (e *NoneLiteral) Span() token.Span { return e.Sp }
func (e *NoneLiteral) exprNode()        {}
func (e *NoneLiteral) String() string   { return "none" }

// PrefixExpression is a unary operator applied to Right (e.g. "-x", "!x").
type PrefixExpression struct {
	Sp       token.Span
	Operator string
	Right    Expression
}

func (e *PrefixExpression) Span() token.Span { return e.Sp }
func (e *PrefixExpression) exprNode()        {}
func (e *PrefixExpression) String() string {
	return "(" + e.Operator + e.Right.String() + ")"
}

// InfixExpression is a binary operator applied to Left and Right.
type InfixExpression struct {
	Sp       token.Span
	Left     Expression
	Operator string
	Right    Expression
}

func (e *InfixExpression) Span() token.Span { return e.Sp }
func (e *InfixExpression) exprNode()        {}
func (e *InfixExpression) String() string {
	return "(" + e.Left.String() + " " + e.Operator + " " + e.Right.String() + ")"
}

// CallExpression invokes Function with Arguments.
type CallExpression struct {
	Sp        token.Span
	Function  Expression
	Arguments []Expression
}

func (e *CallExpression) Span() token.Span { return e.Sp }
func (e *CallExpression) exprNode()        {}
func (e *CallExpression) String() string {
	var b strings.Builder
	b.WriteString(e.Function.String())
	b.WriteByte('(')
	for i, a := range e.Arguments {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	return b.String()
}

// IndexExpression is Left[Index].
type IndexExpression struct {
	Sp    token.Span
	Left  Expression
	Index Expression
}

func (e *IndexExpression) Span() token.Span { return e.Sp }
func (e *IndexExpression) exprNode()        {}
func (e *IndexExpression) String() string {
	return "(" + e.Left.String() + "[" + e.Index.String() + "])"
}

// ArrayLiteral is a literal [a, b, c] array.
type ArrayLiteral struct {
	Sp       token.Span
	Elements []Expression
}

func (e *ArrayLiteral) Span() token.Span { return e.Sp }
func (e *ArrayLiteral) exprNode()        {}
func (e *ArrayLiteral) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, el := range e.Elements {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(el.String())
	}
	b.WriteByte(']')
	return b.String()
}

// HashPair is one key/value entry of a HashLiteral.
type HashPair struct {
	Key   Expression
	Value Expression
}

// HashLiteral is a literal {k: v, ...} hash. Pairs is ordered as
// written so repeated compilation is deterministic.
type HashLiteral struct {
	Sp    token.Span
	Pairs []HashPair
}

func (e *HashLiteral) Span() token.Span { return e.Sp }
func (e *HashLiteral) exprNode()        {}
func (e *HashLiteral) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, p := range e.Pairs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Key.String())
		b.WriteString(": ")
		b.WriteString(p.Value.String())
	}
	b.WriteByte('}')
	return b.String()
}

// IfExpression is an if/else expression: both branches, when present,
// yield a value (the tail expression statement of the chosen block).
type IfExpression struct {
	Sp          token.Span
	Condition   Expression
	Consequence *BlockStatement
	Alternative *BlockStatement // nil if no else branch
}

func (e *IfExpression) Span() token.Span { return e.Sp }
func (e *IfExpression) exprNode()        {}
func (e *IfExpression) String() string {
	var b strings.Builder
	b.WriteString("if ")
	b.WriteString(e.Condition.String())
	b.WriteByte(' ')
	b.WriteString(e.Consequence.String())
	if e.Alternative != nil {
		b.WriteString(" else ")
		b.WriteString(e.Alternative.String())
	}
	return b.String()
}

// FunctionLiteral is a lambda expression `fn(params) { body }`. Name is
// non-empty only when the literal is the direct value of a let/function
// binding, in which case the compiler registers it via
// symtab.DefineFunctionName so the body can call itself without a free
// capture.
type FunctionLiteral struct {
	Sp         token.Span
	Name       string
	Parameters []*Identifier
	Body       *BlockStatement
}

func (e *FunctionLiteral) Span() token.Span { return e.Sp }
func (e *FunctionLiteral) exprNode()        {}
func (e *FunctionLiteral) String() string {
	var b strings.Builder
	b.WriteString("fn(")
	for i, p := range e.Parameters {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(") ")
	b.WriteString(e.Body.String())
	return b.String()
}

// Pattern is implemented by every match-arm pattern kind.
type Pattern interface {
	Node
	patternNode()
}

// WildcardPattern matches any value and binds nothing (`_`).
type WildcardPattern struct {
	Sp token.Span
}

func (p *WildcardPattern) Span() token.Span { return p.Sp }
func (p *WildcardPattern) patternNode()     {}
func (p *WildcardPattern) String() string   { return "_" }

// BindPattern matches any value and binds it to Name.
type BindPattern struct {
	Sp   token.Span
	Name string
}

func (p *BindPattern) Span() token.Span { return p.Sp }
func (p *BindPattern) patternNode()     {}
func (p *BindPattern) String() string   { return p.Name }

// LiteralPattern matches a value structurally equal to Value.
type LiteralPattern struct {
	Sp    token.Span
	Value Expression
}

func (p *LiteralPattern) Span() token.Span { return p.Sp }
func (p *LiteralPattern) patternNode()     {}
func (p *LiteralPattern) String() string   { return p.Value.String() }

// SomePattern matches Some(Inner), binding Inner's pattern to the wrapped
// value; NonePattern matches the None value.
type SomePattern struct {
	Sp    token.Span
	Inner Pattern
}

func (p *SomePattern) Span() token.Span { return p.Sp }
func (p *SomePattern) patternNode()     {}
func (p *SomePattern) String() string   { return "Some(" + p.Inner.String() + ")" }

type NonePattern struct {
	Sp token.Span
}

func (p *NonePattern) Span() token.Span { return p.Sp }
func (p *NonePattern) patternNode()     {}
func (p *NonePattern) String() string   { return "None" }

// LeftPattern and RightPattern match either-values.
type LeftPattern struct {
	Sp    token.Span
	Inner Pattern
}

func (p *LeftPattern) Span() token.Span { return p.Sp }
func (p *LeftPattern) patternNode()     {}
func (p *LeftPattern) String() string   { return "Left(" + p.Inner.String() + ")" }

type RightPattern struct {
	Sp    token.Span
	Inner Pattern
}

func (p *RightPattern) Span() token.Span { return p.Sp }
func (p *RightPattern) patternNode()     {}
func (p *RightPattern) String() string   { return "Right(" + p.Inner.String() + ")" }

// MatchArm pairs a Pattern with the Body expression evaluated when it
// matches.
type MatchArm struct {
	Pattern Pattern
	Body    Expression
}

// MatchExpression evaluates Subject once and dispatches to the first arm
// whose pattern matches it.
type MatchExpression struct {
	Sp      token.Span
	Subject Expression
	Arms    []MatchArm
}

func (e *MatchExpression) Span() token.Span { return e.Sp }
func (e *MatchExpression) exprNode()        {}
func (e *MatchExpression) String() string {
	var b strings.Builder
	b.WriteString("match ")
	b.WriteString(e.Subject.String())
	b.WriteString(" {")
	for _, a := range e.Arms {
		b.WriteString(a.Pattern.String())
		b.WriteString(" => ")
		b.WriteString(a.Body.String())
		b.WriteString(", ")
	}
	b.WriteByte('}')
	return b.String()
}
