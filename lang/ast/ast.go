// Package ast defines the contract data shapes the parser (an external
// collaborator) hands to the compiler: a Program of Statements built
// from Let, Return, Expression, Function, Module and Import statements,
// with integer/float/string/bool literals, identifier, prefix, infix,
// call, index, array, hash, if/else, block, lambda and match-with-arms
// expressions, each carrying a token.Span.
//
// This package is data only: no scanning or parsing logic lives here,
// that machinery belongs to the parser.
package ast

import (
	"strings"

	"github.com/mna/wisteria/lang/token"
)

// Node is implemented by every statement and expression in the tree.
type Node interface {
	Span() token.Span
	String() string
}

// Statement is implemented by every statement-level node.
type Statement interface {
	Node
	stmtNode()
}

// Expression is implemented by every expression-level node.
type Expression interface {
	Node
	exprNode()
}

// Program is the root of a parsed source unit.
type Program struct {
	Statements []Statement
}

func (p *Program) Span() token.Span {
	if len(p.Statements) == 0 {
		return token.Span{}
	}
	first := p.Statements[0].Span()
	last := p.Statements[len(p.Statements)-1].Span()
	return token.Span{Start: first.Start, End: last.End}
}

func (p *Program) String() string {
	var b strings.Builder
	for _, s := range p.Statements {
		b.WriteString(s.String())
		b.WriteByte('\n')
	}
	return b.String()
}
