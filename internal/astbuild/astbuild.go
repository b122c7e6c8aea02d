// Package astbuild provides terse constructors for hand-building the AST
// trees the compiler consumes, used by tests across the repository in
// place of the external parser. Spans are zeroed: tests that care about
// positions set them explicitly.
package astbuild

import "github.com/mna/wisteria/lang/ast"

// Prog wraps statements into a Program.
func Prog(stmts ...ast.Statement) *ast.Program {
	return &ast.Program{Statements: stmts}
}

// Let builds `let name = value;`.
func Let(name string, value ast.Expression) *ast.LetStatement {
	return &ast.LetStatement{Name: Id(name), Value: value}
}

// Ret builds `return value;` (value may be nil for a bare return).
func Ret(value ast.Expression) *ast.ReturnStatement {
	return &ast.ReturnStatement{Value: value}
}

// Expr wraps an expression into an expression statement.
func Expr(e ast.Expression) *ast.ExpressionStatement {
	return &ast.ExpressionStatement{Expression: e}
}

// FnStmt builds `fn name(params) { body }`.
func FnStmt(name string, params []string, body ...ast.Statement) *ast.FunctionStatement {
	return &ast.FunctionStatement{Name: Id(name), Parameters: ids(params), Body: Block(body...)}
}

// Module builds `module name { body }`.
func Module(name string, body ...ast.Statement) *ast.ModuleStatement {
	return &ast.ModuleStatement{Name: Id(name), Body: body}
}

// Import builds `import "path";`, optionally aliased.
func Import(path, alias string) *ast.ImportStatement {
	s := &ast.ImportStatement{Path: path}
	if alias != "" {
		s.Alias = Id(alias)
	}
	return s
}

// Block wraps statements into a block statement.
func Block(stmts ...ast.Statement) *ast.BlockStatement {
	return &ast.BlockStatement{Statements: stmts}
}

// Id builds an identifier reference.
func Id(name string) *ast.Identifier { return &ast.Identifier{Name: name} }

func ids(names []string) []*ast.Identifier {
	out := make([]*ast.Identifier, len(names))
	for i, n := range names {
		out[i] = Id(n)
	}
	return out
}

// Int, Float, Str, Bool and None build the literal expressions.
func Int(v int64) *ast.IntegerLiteral   { return &ast.IntegerLiteral{Value: v} }
func Float(v float64) *ast.FloatLiteral { return &ast.FloatLiteral{Value: v} }
func Str(v string) *ast.StringLiteral   { return &ast.StringLiteral{Value: v} }
func Bool(v bool) *ast.BooleanLiteral   { return &ast.BooleanLiteral{Value: v} }
func None() *ast.NoneLiteral            { return &ast.NoneLiteral{} }

// Prefix builds `op right`.
func Prefix(op string, right ast.Expression) *ast.PrefixExpression {
	return &ast.PrefixExpression{Operator: op, Right: right}
}

// Infix builds `left op right`.
func Infix(left ast.Expression, op string, right ast.Expression) *ast.InfixExpression {
	return &ast.InfixExpression{Left: left, Operator: op, Right: right}
}

// Call builds `fn(args...)`.
func Call(fn ast.Expression, args ...ast.Expression) *ast.CallExpression {
	return &ast.CallExpression{Function: fn, Arguments: args}
}

// Index builds `left[index]`.
func Index(left, index ast.Expression) *ast.IndexExpression {
	return &ast.IndexExpression{Left: left, Index: index}
}

// Arr builds `[elems...]`.
func Arr(elems ...ast.Expression) *ast.ArrayLiteral {
	return &ast.ArrayLiteral{Elements: elems}
}

// HashPair pairs a key and value for Hash.
func HashPair(k, v ast.Expression) ast.HashPair { return ast.HashPair{Key: k, Value: v} }

// Hash builds `{pairs...}`.
func Hash(pairs ...ast.HashPair) *ast.HashLiteral {
	return &ast.HashLiteral{Pairs: pairs}
}

// If builds `if cond { cons } else { alt }`; alt may be nil.
func If(cond ast.Expression, cons, alt *ast.BlockStatement) *ast.IfExpression {
	return &ast.IfExpression{Condition: cond, Consequence: cons, Alternative: alt}
}

// Fn builds an anonymous `fn(params) { body }` lambda.
func Fn(params []string, body ...ast.Statement) *ast.FunctionLiteral {
	return &ast.FunctionLiteral{Parameters: ids(params), Body: Block(body...)}
}

// Match builds `match subject { arms... }`.
func Match(subject ast.Expression, arms ...ast.MatchArm) *ast.MatchExpression {
	return &ast.MatchExpression{Subject: subject, Arms: arms}
}

// Arm pairs a pattern with its body expression.
func Arm(p ast.Pattern, body ast.Expression) ast.MatchArm {
	return ast.MatchArm{Pattern: p, Body: body}
}

// Pattern constructors.
func PWild() *ast.WildcardPattern               { return &ast.WildcardPattern{} }
func PBind(name string) *ast.BindPattern        { return &ast.BindPattern{Name: name} }
func PLit(v ast.Expression) *ast.LiteralPattern { return &ast.LiteralPattern{Value: v} }
func PNone() *ast.NonePattern                   { return &ast.NonePattern{} }
func PSome(inner ast.Pattern) *ast.SomePattern  { return &ast.SomePattern{Inner: inner} }
func PLeft(inner ast.Pattern) *ast.LeftPattern  { return &ast.LeftPattern{Inner: inner} }
func PRight(inner ast.Pattern) *ast.RightPattern {
	return &ast.RightPattern{Inner: inner}
}
