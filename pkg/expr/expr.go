package expr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/types"
)

// Decl describes a declared variable for type checking
type Decl struct {
	Kind    types.Kind
	Options []string
}

// Expr is a parsed condition
type Expr struct {
	src  string
	root node
}

type node interface {
	// check returns the static type of the node: "bool" or "string"
	check(decls map[string]Decl) (string, error)
	eval(vars types.Variables) (operandValue, error)
	refs(into map[string]struct{})
}

type operandValue struct {
	isBool bool
	b      bool
	s      string
}

// Parse parses src. An empty or blank src yields an expression that is always true.
func Parse(src string) (*Expr, error) {
	e := &Expr{src: src}
	if strings.TrimSpace(src) == "" {
		e.root = &literal{isBool: true, b: true}
		return e, nil
	}

	tokens, err := lex(src)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "invalid condition %q", src)
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "invalid condition %q", src)
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, errors.Newf(errors.ErrInvalidInput,
			"invalid condition %q: unexpected %s at position %d", src, tok.kind, tok.pos)
	}
	e.root = root
	return e, nil
}

// MustParse is Parse that panics, for fixed expressions in tests and built-ins
func MustParse(src string) *Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Expr) String() string { return e.src }

// Refs returns the variable names referenced by the expression, sorted
func (e *Expr) Refs() []string {
	set := map[string]struct{}{}
	e.root.refs(set)
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check type-checks the expression against the declared variables.
// Undeclared names, non-boolean results and mismatched comparisons are rejected.
func (e *Expr) Check(decls map[string]Decl) error {
	t, err := e.root.check(decls)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInvalidInput, "condition %q", e.src)
	}
	if t != "bool" {
		return errors.Newf(errors.ErrInvalidInput, "condition %q does not evaluate to a boolean", e.src)
	}
	return nil
}

// Eval evaluates the expression. Every referenced variable must be bound.
func (e *Expr) Eval(vars types.Variables) (bool, error) {
	v, err := e.root.eval(vars)
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrInvalidInput, "evaluating condition %q", e.src)
	}
	if !v.isBool {
		return false, errors.Newf(errors.ErrInvalidInput, "condition %q does not evaluate to a boolean", e.src)
	}
	return v.b, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binary{op: tokOr, l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binary{op: tokAnd, l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.peek().kind == tokNot {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &not{x: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	if p.peek().kind == tokLParen {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if tok := p.next(); tok.kind != tokRParen {
			return nil, fmt.Errorf("position %d: expected ')', found %s", tok.pos, tok.kind)
		}
		return inner, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if k := p.peek().kind; k == tokEq || k == tokNeq {
		p.next()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &compare{negate: k == tokNeq, l: left, r: right}, nil
	}
	return left, nil
}

func (p *parser) parseOperand() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokIdent:
		return &ident{name: tok.text}, nil
	case tokString:
		return &literal{s: tok.text}, nil
	case tokTrue:
		return &literal{isBool: true, b: true}, nil
	case tokFalse:
		return &literal{isBool: true, b: false}, nil
	}
	return nil, fmt.Errorf("position %d: expected operand, found %s", tok.pos, tok.kind)
}

type ident struct{ name string }

func (n *ident) check(decls map[string]Decl) (string, error) {
	d, ok := decls[n.name]
	if !ok {
		return "", fmt.Errorf("undeclared variable %q", n.name)
	}
	if d.Kind == types.KindBoolean {
		return "bool", nil
	}
	return "string", nil
}

func (n *ident) eval(vars types.Variables) (operandValue, error) {
	v, ok := vars.Get(n.name)
	if !ok {
		return operandValue{}, fmt.Errorf("variable %q is not resolved", n.name)
	}
	if v.Kind() == types.KindBoolean {
		return operandValue{isBool: true, b: v.Bool()}, nil
	}
	return operandValue{s: v.String()}, nil
}

func (n *ident) refs(into map[string]struct{}) { into[n.name] = struct{}{} }

type literal struct {
	isBool bool
	b      bool
	s      string
}

func (n *literal) check(map[string]Decl) (string, error) {
	if n.isBool {
		return "bool", nil
	}
	return "string", nil
}

func (n *literal) eval(types.Variables) (operandValue, error) {
	return operandValue{isBool: n.isBool, b: n.b, s: n.s}, nil
}

func (n *literal) refs(map[string]struct{}) {}

type compare struct {
	negate bool
	l, r   node
}

func (n *compare) check(decls map[string]Decl) (string, error) {
	lid, lIsIdent := n.l.(*ident)
	rid, rIsIdent := n.r.(*ident)
	if !lIsIdent && !rIsIdent {
		return "", fmt.Errorf("comparison needs at least one variable")
	}

	lt, err := n.l.check(decls)
	if err != nil {
		return "", err
	}
	rt, err := n.r.check(decls)
	if err != nil {
		return "", err
	}
	if lt != rt {
		return "", fmt.Errorf("cannot compare %s with %s", lt, rt)
	}

	// A choice compared against a literal must name one of its options.
	checkOption := func(id *ident, other node) error {
		lit, ok := other.(*literal)
		if !ok || lit.isBool {
			return nil
		}
		d := decls[id.name]
		if d.Kind != types.KindChoice {
			return nil
		}
		for _, opt := range d.Options {
			if opt == lit.s {
				return nil
			}
		}
		return fmt.Errorf("%q is not an option of choice variable %q", lit.s, id.name)
	}
	if lIsIdent {
		if err := checkOption(lid, n.r); err != nil {
			return "", err
		}
	}
	if rIsIdent {
		if err := checkOption(rid, n.l); err != nil {
			return "", err
		}
	}
	return "bool", nil
}

func (n *compare) eval(vars types.Variables) (operandValue, error) {
	l, err := n.l.eval(vars)
	if err != nil {
		return operandValue{}, err
	}
	r, err := n.r.eval(vars)
	if err != nil {
		return operandValue{}, err
	}
	if l.isBool != r.isBool {
		return operandValue{}, fmt.Errorf("cannot compare boolean with string")
	}
	eq := l == r
	return operandValue{isBool: true, b: eq != n.negate}, nil
}

func (n *compare) refs(into map[string]struct{}) {
	n.l.refs(into)
	n.r.refs(into)
}

type not struct{ x node }

func (n *not) check(decls map[string]Decl) (string, error) {
	t, err := n.x.check(decls)
	if err != nil {
		return "", err
	}
	if t != "bool" {
		return "", fmt.Errorf("'!' needs a boolean operand")
	}
	return "bool", nil
}

func (n *not) eval(vars types.Variables) (operandValue, error) {
	v, err := n.x.eval(vars)
	if err != nil {
		return operandValue{}, err
	}
	if !v.isBool {
		return operandValue{}, fmt.Errorf("'!' needs a boolean operand")
	}
	return operandValue{isBool: true, b: !v.b}, nil
}

func (n *not) refs(into map[string]struct{}) { n.x.refs(into) }

type binary struct {
	op   tokenKind
	l, r node
}

func (n *binary) check(decls map[string]Decl) (string, error) {
	for _, side := range []node{n.l, n.r} {
		t, err := side.check(decls)
		if err != nil {
			return "", err
		}
		if t != "bool" {
			return "", fmt.Errorf("%s needs boolean operands", n.op)
		}
	}
	return "bool", nil
}

func (n *binary) eval(vars types.Variables) (operandValue, error) {
	l, err := n.l.eval(vars)
	if err != nil {
		return operandValue{}, err
	}
	if !l.isBool {
		return operandValue{}, fmt.Errorf("%s needs boolean operands", n.op)
	}
	// short circuit
	if n.op == tokAnd && !l.b {
		return operandValue{isBool: true, b: false}, nil
	}
	if n.op == tokOr && l.b {
		return operandValue{isBool: true, b: true}, nil
	}
	r, err := n.r.eval(vars)
	if err != nil {
		return operandValue{}, err
	}
	if !r.isBool {
		return operandValue{}, fmt.Errorf("%s needs boolean operands", n.op)
	}
	return operandValue{isBool: true, b: r.b}, nil
}

func (n *binary) refs(into map[string]struct{}) {
	n.l.refs(into)
	n.r.refs(into)
}
