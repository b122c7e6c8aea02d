// Package diag implements the structured diagnostic surface: the core
// never panics or returns bare strings across a compile/run unit
// boundary, it produces Diagnostic records with a severity, an error
// code, a message, an optional source span, an optional hint chain,
// optional labels and optional related entries. Rendering those records
// to text/ANSI is the CLI's job, not the core's: the core only produces
// data.
package diag

import (
	"fmt"

	"github.com/mna/wisteria/lang/token"
)

// Severity classifies a Diagnostic.
type Severity uint8

const (
	Error Severity = iota
	Warning
	Hint
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Hint:
		return "hint"
	default:
		return "error"
	}
}

// Error code families: E0xx-E1xx are compile-time, E10xx runtime. A
// runtime Diagnostic usually carries one of the Kind names below as its
// code instead of a bare "Exxxx" string, since runtime failures are
// identified by kind (DIVISION_BY_ZERO) rather than by a decimal
// number.
const (
	CodeDuplicateName       = "E007"
	CodeUnresolvedName      = "E008"
	CodeOuterScopeAssign    = "E009"
	CodeDuplicateParam      = "E010"
	CodePrivateMember       = "E011"
	CodeImportCycle         = "E012"
	CodeInvalidModuleLayout = "E013"
	CodeCircularDependency  = "E014"
	CodeConstEvalError      = "E015"
	CodeMisplacedReturn     = "E016"
	CodeUnknownOperator     = "E017"
	CodeImportUnavailable   = "E018"

	CodeRuntimeError = "E1000"
)

// Runtime error kinds, used as the Code of a runtime Diagnostic.
const (
	KindDivisionByZero        = "DIVISION_BY_ZERO"
	KindModuloByZero          = "MODULO_BY_ZERO"
	KindIntegerOverflow       = "INTEGER_OVERFLOW"
	KindInvalidOperation      = "INVALID_OPERATION"
	KindNotIndexable          = "NOT_INDEXABLE"
	KindNotCallable           = "NOT_CALLABLE"
	KindUnhashableKey         = "UNHASHABLE_KEY"
	KindWrongNumberOfArgs     = "WRONG_NUMBER_OF_ARGUMENTS"
	KindOptionUnwrapNone      = "OPTION_UNWRAP_NONE"
	KindEitherUnwrapWrongSide = "EITHER_UNWRAP_WRONG_SIDE"
	KindStackOverflow         = "STACK_OVERFLOW"
)

// Label annotates a secondary span within the same diagnostic (e.g. "this
// parameter" alongside the primary "duplicate parameter" span).
type Label struct {
	Span    token.Span
	Message string
}

// Diagnostic is the single record shape the core ever hands to a
// caller: error code, title, message,
// the precise span, an optional multi-step hint chain, optional labels,
// optional related diagnostics and (runtime only) a stack trace.
type Diagnostic struct {
	Severity Severity
	Code     string
	Title    string
	Message  string
	File     *token.File
	Span     token.Span
	Hints    []string
	Labels   []Label
	Related  []*Diagnostic

	// StackTrace holds the VM's assembled "at <function> (<file>:<line>:<col>)"
	// lines, nil for compile-time diagnostics.
	StackTrace []string
}

// New builds a bare Diagnostic at Error severity.
func New(code, title, message string) *Diagnostic {
	return &Diagnostic{Severity: Error, Code: code, Title: title, Message: message}
}

// WithSpan returns d with File/Span set, for chaining at the call site.
func (d *Diagnostic) WithSpan(file *token.File, span token.Span) *Diagnostic {
	d.File = file
	d.Span = span
	return d
}

// WithHint appends one hint to the chain and returns d.
func (d *Diagnostic) WithHint(hint string) *Diagnostic {
	d.Hints = append(d.Hints, hint)
	return d
}

// WithLabel appends a label and returns d.
func (d *Diagnostic) WithLabel(span token.Span, message string) *Diagnostic {
	d.Labels = append(d.Labels, Label{Span: span, Message: message})
	return d
}

// formattedHeaderGlyph is the structural marker the VM's runtime
// failure path (lang/vm) uses to detect whether an error string already
// carries a rendered Diagnostic: a header glyph followed by a
// code-in-brackets.
const formattedHeaderGlyph = "✖" // heavy multiplication x, used as the header bullet

// IsFormatted reports whether s already looks like a rendered
// Diagnostic (starts with the header glyph and contains a bracketed
// code) - a pragmatic, intentionally imperfect shortcut that avoids
// threading structured diagnostics through every opcode handler.
func IsFormatted(s string) bool {
	if len(s) == 0 || []rune(s)[0] != []rune(formattedHeaderGlyph)[0] {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '[' {
			for j := i + 1; j < len(s); j++ {
				if s[j] == ']' {
					return true
				}
			}
		}
	}
	return false
}

// Render produces the one-line-header form IsFormatted detects; it is
// also the Diagnostic's Error text.
func (d *Diagnostic) Render() string {
	return fmt.Sprintf("%s [%s] %s: %s", formattedHeaderGlyph, d.Code, d.Title, d.Message)
}

func (d *Diagnostic) Error() string { return d.Render() }

// Aggregator collects diagnostics for one compile unit, deduplicating
// byte-identical entries and enforcing a --max-errors ceiling. A zero
// Aggregator has no ceiling.
type Aggregator struct {
	MaxErrors int

	diags     []*Diagnostic
	seen      map[string]bool
	suppressed int
}

// Add records d unless it is byte-identical to one already recorded or the
// ceiling has been reached (in which case it is counted as suppressed).
func (a *Aggregator) Add(d *Diagnostic) {
	key := d.Render() + d.Span.String()
	if a.seen == nil {
		a.seen = make(map[string]bool)
	}
	if a.seen[key] {
		return
	}
	if a.MaxErrors > 0 && len(a.diags) >= a.MaxErrors {
		a.suppressed++
		return
	}
	a.seen[key] = true
	a.diags = append(a.diags, d)
}

// Diagnostics returns every recorded diagnostic, in insertion order.
func (a *Aggregator) Diagnostics() []*Diagnostic { return a.diags }

// Suppressed returns the count of diagnostics dropped past MaxErrors.
func (a *Aggregator) Suppressed() int { return a.suppressed }

// HasErrors reports whether any Error-severity diagnostic was recorded.
func (a *Aggregator) HasErrors() bool {
	for _, d := range a.diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}
