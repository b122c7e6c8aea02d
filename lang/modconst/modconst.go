// Package modconst implements the compile-time module-constant
// evaluator: it discovers top-level `let name = expr` bindings,
// builds their inter-constant dependency graph, topologically sorts them
// with a deterministic tiebreak, and folds each initializer's value so
// the bytecode compiler (lang/compiler) can bypass runtime evaluation for
// bindings whose initializer is a pure constant expression.
//
// The dependency-sort-then-evaluate shape is Kahn's algorithm with a
// deterministic tiebreak by ascending interned-symbol index, so repeated
// compilation of the same unit always folds in the same order.
package modconst

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/mna/wisteria/lang/ast"
	"github.com/mna/wisteria/lang/intern"
	"github.com/mna/wisteria/lang/token"
	"github.com/mna/wisteria/lang/value"
)

// EvalError reports a constant-expression shape the evaluator does not
// support, or a circular dependency among top-level constants.
type EvalError struct {
	Code    string
	Message string
	Hint    string
	Span    token.Span
}

func (e *EvalError) Error() string { return e.Message }

// Binding is one discovered top-level `let name = expr` statement.
type Binding struct {
	Name  string
	Expr  ast.Expression
	Index int // discovery order, used as the deterministic tiebreak
}

// Discover finds every top-level LetStatement in prog, in source order.
func Discover(prog *ast.Program) []Binding {
	var out []Binding
	for _, stmt := range prog.Statements {
		if let, ok := stmt.(*ast.LetStatement); ok {
			out = append(out, Binding{Name: let.Name.Name, Expr: let.Value, Index: len(out)})
		}
	}
	return out
}

// Evaluate folds every top-level constant binding it can. It returns a
// map from qualified name ("module.NAME", or bare "NAME" if module is
// "") to the folded value, plus any errors encountered. An EvalError for
// an unsupported shape leaves that binding for ordinary runtime
// evaluation while the others still fold; a cycle returns a nil map and
// a single CircularDependency error, and nothing is folded.
func Evaluate(prog *ast.Program, module string) (map[string]value.Value, []*EvalError) {
	bindings := Discover(prog)
	byName := make(map[string]*Binding, len(bindings))
	for i := range bindings {
		byName[bindings[i].Name] = &bindings[i]
	}

	deps := make(map[string][]string, len(bindings))
	for _, b := range bindings {
		// a function literal bound by let is named after its binding, so a
		// call to that name inside its own body resolves to the function
		// itself at runtime, not to the module constant being folded
		var bound map[string]bool
		if _, ok := b.Expr.(*ast.FunctionLiteral); ok {
			bound = map[string]bool{b.Name: true}
		}
		deps[b.Name] = depsOf(b.Expr, byName, bound)
	}

	order, cycleErr := topoSort(bindings, deps)
	if cycleErr != nil {
		return nil, []*EvalError{cycleErr}
	}

	env := make(map[string]value.Value, len(bindings))
	var errs []*EvalError
	result := make(map[string]value.Value, len(bindings))
	for _, name := range order {
		b := byName[name]
		v, err := evalConst(b.Expr, env)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		env[name] = v
		qualified := name
		if module != "" {
			qualified = module + "." + name
		}
		result[qualified] = v
		result[name] = v
	}
	return result, errs
}

// depsOf collects identifier references in expr that name another
// top-level binding, excluding identifiers bound as parameters of a
// nested function literal; bare parameter names never count as
// dependencies. bound tracks parameter names shadowing a module constant
// within the current lexical position.
func depsOf(expr ast.Expression, byName map[string]*Binding, bound map[string]bool) []string {
	var out []string
	var seen map[string]bool
	add := func(name string) {
		if bound[name] {
			return
		}
		if _, ok := byName[name]; !ok {
			return
		}
		if seen == nil {
			seen = make(map[string]bool)
		}
		if seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}

	var walk func(e ast.Expression)
	walk = func(e ast.Expression) {
		switch e := e.(type) {
		case nil:
		case *ast.Identifier:
			add(e.Name)
		case *ast.PrefixExpression:
			walk(e.Right)
		case *ast.InfixExpression:
			walk(e.Left)
			walk(e.Right)
		case *ast.CallExpression:
			walk(e.Function)
			for _, a := range e.Arguments {
				walk(a)
			}
		case *ast.IndexExpression:
			walk(e.Left)
			walk(e.Index)
		case *ast.ArrayLiteral:
			for _, el := range e.Elements {
				walk(el)
			}
		case *ast.HashLiteral:
			for _, p := range e.Pairs {
				walk(p.Key)
				walk(p.Value)
			}
		case *ast.FunctionLiteral:
			inner := make(map[string]bool, len(bound)+len(e.Parameters))
			for k := range bound {
				inner[k] = true
			}
			for _, p := range e.Parameters {
				inner[p.Name] = true
			}
			for _, d := range depsOf(blockExpr(e.Body), byName, inner) {
				add(d)
			}
		case *ast.IfExpression:
			walk(e.Condition)
		}
	}
	walk(expr)
	return out
}

// blockExpr is a crude adapter letting depsOf recurse into a block's
// trailing expression statement without a separate statement-walking
// path. Only that tail expression is scanned: references to module
// constants in earlier statements of the block (a let initializer, a
// return) are not collected as dependencies.
func blockExpr(b *ast.BlockStatement) ast.Expression {
	if b == nil || len(b.Statements) == 0 {
		return nil
	}
	if es, ok := b.Statements[len(b.Statements)-1].(*ast.ExpressionStatement); ok {
		return es.Expression
	}
	return nil
}

// topoSort orders bindings so every dependency precedes its dependent,
// breaking ties by ascending interned-symbol index: names are
// interned in discovery order, so the tiebreak is deterministic
// across runs regardless of map iteration. It returns a
// CircularDependency EvalError naming the cycle's symbol chain if one
// exists.
func topoSort(bindings []Binding, deps map[string][]string) ([]string, *EvalError) {
	in := intern.New()
	indegree := make(map[string]int, len(bindings))
	dependents := make(map[string][]string, len(bindings))
	indexOf := make(map[string]int, len(bindings))
	for _, b := range bindings {
		indegree[b.Name] = 0
		indexOf[b.Name] = int(in.Intern(b.Name))
	}
	for name, ds := range deps {
		indegree[name] = len(ds)
		for _, d := range ds {
			dependents[d] = append(dependents[d], name)
		}
	}

	bySym := func(a, b string) int { return indexOf[a] - indexOf[b] }
	var ready []string
	for _, b := range bindings {
		if indegree[b.Name] == 0 {
			ready = append(ready, b.Name)
		}
	}

	var order []string
	for len(ready) > 0 {
		slices.SortFunc(ready, bySym)
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)
		for _, dep := range dependents[name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(bindings) {
		var chain []string
		for _, b := range bindings {
			if indegree[b.Name] > 0 {
				chain = append(chain, b.Name)
			}
		}
		slices.SortFunc(chain, bySym)
		return nil, &EvalError{
			Code:    "CircularDependency",
			Message: fmt.Sprintf("circular dependency among module constants: %v", chain),
		}
	}
	return order, nil
}

func evalConst(expr ast.Expression, env map[string]value.Value) (value.Value, *EvalError) {
	switch e := expr.(type) {
	case nil:
		return nil, &EvalError{Code: "EvalError", Message: "empty constant initializer"}
	case *ast.IntegerLiteral:
		return value.Integer(e.Value), nil
	case *ast.FloatLiteral:
		return value.Float(e.Value), nil
	case *ast.StringLiteral:
		return value.NewString(e.Value), nil
	case *ast.BooleanLiteral:
		return value.Boolean(e.Value), nil
	case *ast.NoneLiteral:
		return value.NoneValue, nil
	case *ast.Identifier:
		if v, ok := env[e.Name]; ok {
			return v, nil
		}
		return nil, &EvalError{
			Code:    "EvalError",
			Message: fmt.Sprintf("%q is not a previously evaluated module constant", e.Name),
			Span:    e.Sp,
		}
	case *ast.PrefixExpression:
		right, err := evalConst(e.Right, env)
		if err != nil {
			return nil, err
		}
		return evalConstPrefix(e.Operator, right, e.Sp)
	case *ast.InfixExpression:
		left, err := evalConst(e.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := evalConst(e.Right, env)
		if err != nil {
			return nil, err
		}
		return evalConstInfix(e.Operator, left, right, e.Sp)
	default:
		return nil, &EvalError{
			Code:    "EvalError",
			Message: "unsupported expression shape in constant context",
			Hint:    "only literals, arithmetic/logical operators and references to previously evaluated module constants are allowed here",
			Span:    expr.Span(),
		}
	}
}

func evalConstPrefix(op string, right value.Value, sp token.Span) (value.Value, *EvalError) {
	switch op {
	case "-":
		switch r := right.(type) {
		case value.Integer:
			return -r, nil
		case value.Float:
			return -r, nil
		}
	case "!":
		if b, ok := right.(value.Boolean); ok {
			return !b, nil
		}
	}
	return nil, &EvalError{Code: "EvalError", Message: fmt.Sprintf("unsupported constant prefix operator %q on %s", op, right.Type()), Span: sp}
}

func evalConstInfix(op string, left, right value.Value, sp token.Span) (value.Value, *EvalError) {
	li, liok := left.(value.Integer)
	ri, riok := right.(value.Integer)
	lf, lfok := left.(value.Float)
	rf, rfok := right.(value.Float)

	asFloat := func(v value.Value) (float64, bool) {
		switch v := v.(type) {
		case value.Integer:
			return float64(v), true
		case value.Float:
			return float64(v), true
		}
		return 0, false
	}

	switch op {
	case "+", "-", "*", "/", "%":
		if liok && riok {
			switch op {
			case "+":
				return li + ri, nil
			case "-":
				return li - ri, nil
			case "*":
				return li * ri, nil
			case "/":
				if ri == 0 {
					return nil, &EvalError{Code: "EvalError", Message: "division by zero in constant expression", Span: sp}
				}
				return li / ri, nil
			case "%":
				if ri == 0 {
					return nil, &EvalError{Code: "EvalError", Message: "modulo by zero in constant expression", Span: sp}
				}
				return li % ri, nil
			}
		}
		lfv, lok := asFloat(left)
		rfv, rok := asFloat(right)
		if lok && rok && (!liok || !riok) {
			switch op {
			case "+":
				return value.Float(lfv + rfv), nil
			case "-":
				return value.Float(lfv - rfv), nil
			case "*":
				return value.Float(lfv * rfv), nil
			case "/":
				return value.Float(lfv / rfv), nil
			}
		}
		_ = lf
		_ = rf
		_ = lfok
		_ = rfok
	case "&&", "||":
		lb, lok := left.(value.Boolean)
		rb, rok := right.(value.Boolean)
		if lok && rok {
			if op == "&&" {
				return lb && rb, nil
			}
			return lb || rb, nil
		}
	case "==", "!=":
		eq, ok := left.(value.HasEqual)
		if ok {
			equal, err := eq.Equal(right)
			if err == nil {
				if op == "==" {
					return value.Boolean(equal), nil
				}
				return value.Boolean(!equal), nil
			}
		}
	case "<", ">", "<=", ">=":
		ord, ok := left.(value.Ordered)
		if ok {
			var less, eq bool
			var err error
			less, err = ord.Less(right)
			if err == nil {
				if he, ok := left.(value.HasEqual); ok {
					eq, _ = he.Equal(right)
				}
				switch op {
				case "<":
					return value.Boolean(less), nil
				case ">":
					return value.Boolean(!less && !eq), nil
				case "<=":
					return value.Boolean(less || eq), nil
				case ">=":
					return value.Boolean(!less), nil
				}
			}
		}
	}
	return nil, &EvalError{Code: "EvalError", Message: fmt.Sprintf("unsupported constant operator %q between %s and %s", op, left.Type(), right.Type()), Span: sp}
}
