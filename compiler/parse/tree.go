package parse

import (
	"context"
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/simplec/compiler/ast"
	"github.com/slowlang/simplec/compiler/src"
)

var binaryOps = map[string]ast.Op{
	"+":  ast.Add,
	"-":  ast.Sub,
	"*":  ast.Mul,
	"/":  ast.Div,
	"**": ast.Pow,
	"&&": ast.And,
	"||": ast.Or,
	"==": ast.Eq,
	"!=": ast.Ne,
	"<":  ast.Lt,
	">":  ast.Gt,
	"<=": ast.Le,
	">=": ast.Ge,
}

var keywords = map[string]struct{}{
	"true": {}, "false": {},
	"int": {}, "boolean": {}, "String": {}, "void": {},
}

func (s *State) program(ctx context.Context, n *Node) (p *ast.Program, err error) {
	if n.Head() != "program" || len(n.Items) < 2 {
		return nil, s.expected(n, "(program Name DECL*)")
	}

	p = &ast.Program{
		Base: ast.Base{Pos: n.Position()},
		Body: &ast.ClassBody{Base: ast.Base{Pos: n.Position()}},
	}

	p.Name, err = s.ident(n.Items[1])
	if err != nil {
		return nil, errors.Wrap(err, "program name")
	}

	for _, d := range n.Items[2:] {
		x, err := s.decl(d)
		if err != nil {
			return nil, errors.Wrap(err, "class %v", p.Name.Name)
		}

		p.Body.Decls = append(p.Body.Decls, x)
	}

	if tr := tlog.SpanFromContext(ctx); tr.If("parse") {
		tr.Printw("program", "name", p.Name.Name, "decls", len(p.Body.Decls))
	}

	return p, nil
}

func (s *State) decl(n *Node) (d ast.Decl, err error) {
	switch n.Head() {
	case "field":
		if len(n.Items) != 3 {
			return nil, s.expected(n, "(field TYPE name)")
		}

		f := &ast.FieldDecl{Base: ast.Base{Pos: n.Position()}}

		f.Type, f.Name, err = s.typedName(n.Items[1], n.Items[2], false)
		if err != nil {
			return nil, err
		}

		return f, nil
	case "method":
		return s.method(n)
	default:
		return nil, s.expected(n, "field or method declaration")
	}
}

func (s *State) method(n *Node) (m *ast.MethodDecl, err error) {
	if len(n.Items) < 4 || n.Items[3].Kind != List {
		return nil, s.expected(n, "(method RTYPE name (FORMAL*) ...)")
	}

	m = &ast.MethodDecl{
		Base: ast.Base{Pos: n.Position()},
		Body: &ast.MethodBody{},
	}

	m.Result, m.Name, err = s.typedName(n.Items[1], n.Items[2], true)
	if err != nil {
		return nil, err
	}

	for _, f := range n.Items[3].Items {
		if f.Kind != List || len(f.Items) != 2 {
			return nil, s.expected(f, "(TYPE name)")
		}

		x := &ast.FormalDecl{Base: ast.Base{Pos: f.Position()}}

		x.Type, x.Name, err = s.typedName(f.Items[0], f.Items[1], false)
		if err != nil {
			return nil, errors.Wrap(err, "method %v", m.Name.Name)
		}

		m.Formals = append(m.Formals, x)
	}

	rest := n.Items[4:]

	m.Body.Decls, rest, err = s.vars(rest)
	if err != nil {
		return nil, errors.Wrap(err, "method %v", m.Name.Name)
	}

	m.Body.Stmts, err = s.stmts(rest)
	if err != nil {
		return nil, errors.Wrap(err, "method %v", m.Name.Name)
	}

	m.Body.Pos = m.Name.Pos

	return m, nil
}

// vars consumes the leading (var TYPE name) items.
func (s *State) vars(l []*Node) (vs []*ast.VarDecl, rest []*Node, err error) {
	for len(l) != 0 && l[0].Head() == "var" {
		n := l[0]
		l = l[1:]

		if len(n.Items) != 3 {
			return nil, nil, s.expected(n, "(var TYPE name)")
		}

		v := &ast.VarDecl{Base: ast.Base{Pos: n.Position()}}

		v.Type, v.Name, err = s.typedName(n.Items[1], n.Items[2], false)
		if err != nil {
			return nil, nil, err
		}

		vs = append(vs, v)
	}

	return vs, l, nil
}

func (s *State) stmts(l []*Node) (ss ast.StmtList, err error) {
	for _, n := range l {
		x, err := s.stmt(n)
		if err != nil {
			return nil, err
		}

		ss = append(ss, x)
	}

	return ss, nil
}

// stmtList reads a parenthesized statement sequence.
func (s *State) stmtList(n *Node) (ast.StmtList, error) {
	if n.Kind != List || n.Head() != "" {
		return nil, s.expected(n, "(STMT*)")
	}

	return s.stmts(n.Items)
}

func (s *State) stmt(n *Node) (x ast.Stmt, err error) {
	b := ast.Base{Pos: n.Position()}
	args := len(n.Items) - 1

	switch h := n.Head(); {
	case h == "print" && args == 1:
		e, err := s.expr(n.Items[1])
		if err != nil {
			return nil, err
		}

		return &ast.Print{Base: b, X: e}, nil
	case h == "assign" && args == 2:
		id, err := s.ident(n.Items[1])
		if err != nil {
			return nil, err
		}

		e, err := s.expr(n.Items[2])
		if err != nil {
			return nil, err
		}

		return &ast.Assign{Base: b, LHS: id, X: e}, nil
	case h == "if" && (args == 2 || args == 3):
		cond, err := s.expr(n.Items[1])
		if err != nil {
			return nil, err
		}

		then, err := s.stmtList(n.Items[2])
		if err != nil {
			return nil, errors.Wrap(err, "then")
		}

		if args == 2 {
			return &ast.If{Base: b, Cond: cond, Then: then}, nil
		}

		els, err := s.stmtList(n.Items[3])
		if err != nil {
			return nil, errors.Wrap(err, "else")
		}

		return &ast.IfElse{Base: b, Cond: cond, Then: then, Else: els}, nil
	case h == "while" && args == 2:
		cond, err := s.expr(n.Items[1])
		if err != nil {
			return nil, err
		}

		body, err := s.stmtList(n.Items[2])
		if err != nil {
			return nil, errors.Wrap(err, "while body")
		}

		return &ast.While{Base: b, Cond: cond, Body: body}, nil
	case h == "call" && args >= 1:
		c, err := s.call(n)
		if err != nil {
			return nil, err
		}

		return &ast.CallStmt{Base: b, Call: c}, nil
	case h == "return" && args <= 1:
		r := &ast.Return{Base: b}

		if args == 1 {
			r.X, err = s.expr(n.Items[1])
			if err != nil {
				return nil, err
			}
		}

		return r, nil
	case h == "block":
		blk := &ast.Block{Base: b}

		var rest []*Node

		blk.Decls, rest, err = s.vars(n.Items[1:])
		if err != nil {
			return nil, errors.Wrap(err, "block")
		}

		blk.Stmts, err = s.stmts(rest)
		if err != nil {
			return nil, errors.Wrap(err, "block")
		}

		return blk, nil
	default:
		return nil, s.expected(n, "statement")
	}
}

func (s *State) call(n *Node) (c *ast.Call, err error) {
	c = &ast.Call{ExprBase: exprBase(n.Position())}

	c.Name, err = s.ident(n.Items[1])
	if err != nil {
		return nil, errors.Wrap(err, "callee")
	}

	for _, a := range n.Items[2:] {
		x, err := s.expr(a)
		if err != nil {
			return nil, errors.Wrap(err, "call %v", c.Name.Name)
		}

		c.Args = append(c.Args, x)
	}

	return c, nil
}

func (s *State) expr(n *Node) (x ast.Expr, err error) {
	p := n.Position()

	switch n.Kind {
	case Str:
		return &ast.StringLit{ExprBase: exprBase(p), Value: n.Text}, nil
	case Atom:
		switch c := n.Text[0]; {
		case n.Text == "true" || n.Text == "false":
			return &ast.BoolLit{ExprBase: exprBase(p), Value: n.Text == "true"}, nil
		case c >= '0' && c <= '9':
			v, err := strconv.ParseInt(n.Text, 10, 32)
			if err != nil {
				return nil, s.syntaxErr(n.Off, "bad integer literal: "+n.Text)
			}

			return &ast.IntLit{ExprBase: exprBase(p), Value: int32(v)}, nil
		default:
			return s.ident(n)
		}
	}

	h := n.Head()
	args := len(n.Items) - 1

	switch {
	case h == "call" && args >= 1:
		return s.call(n)
	case h == "paren" && args == 1:
		e, err := s.expr(n.Items[1])
		if err != nil {
			return nil, err
		}

		return &ast.Paren{ExprBase: exprBase(p), X: e}, nil
	case (h == "neg" || h == "!" || h == "not") && args == 1:
		e, err := s.expr(n.Items[1])
		if err != nil {
			return nil, err
		}

		op := ast.Neg
		if h != "neg" {
			op = ast.Not
		}

		return &ast.Unary{ExprBase: exprBase(p), Op: op, X: e}, nil
	}

	op, ok := binaryOps[h]
	if !ok || args != 2 {
		return nil, s.expected(n, "expression")
	}

	l, err := s.expr(n.Items[1])
	if err != nil {
		return nil, errors.Wrap(err, "left of %v", op)
	}

	r, err := s.expr(n.Items[2])
	if err != nil {
		return nil, errors.Wrap(err, "right of %v", op)
	}

	return &ast.Binary{ExprBase: exprBase(p), Op: op, L: l, R: r}, nil
}

func (s *State) typedName(tn, nn *Node, void bool) (t ast.TypeNode, id *ast.Ident, err error) {
	t, err = s.typ(tn, void)
	if err != nil {
		return nil, nil, err
	}

	id, err = s.ident(nn)
	if err != nil {
		return nil, nil, err
	}

	return t, id, nil
}

func (s *State) typ(n *Node, void bool) (ast.TypeNode, error) {
	b := ast.Base{Pos: n.Pos}

	switch {
	case n.IsAtom("int"):
		return &ast.Int{Base: b}, nil
	case n.IsAtom("boolean"):
		return &ast.Bool{Base: b}, nil
	case n.IsAtom("String"):
		return &ast.String{Base: b}, nil
	case void && n.IsAtom("void"):
		return &ast.Void{Base: b}, nil
	}

	return nil, s.expected(n, "type")
}

func (s *State) ident(n *Node) (*ast.Ident, error) {
	if n.Kind != Atom || !isName(n.Text) {
		return nil, s.expected(n, "identifier")
	}

	if _, ok := keywords[n.Text]; ok {
		return nil, s.expected(n, "identifier")
	}

	return &ast.Ident{ExprBase: exprBase(n.Pos), Name: n.Text}, nil
}

func exprBase(p src.Pos) ast.ExprBase {
	return ast.ExprBase{Base: ast.Base{Pos: p}}
}

func isName(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_':
		case c >= '0' && c <= '9' && i != 0:
		default:
			return false
		}
	}

	return s != ""
}
