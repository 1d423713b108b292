package front

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/simplec/compiler/ast"
	"github.com/slowlang/simplec/compiler/diag"
	"github.com/slowlang/simplec/compiler/src"
	"github.com/slowlang/simplec/compiler/tp"
)

type (
	checker struct {
		sink *diag.Sink

		method *ast.MethodDecl
		result tp.Type

		// next free offset in the current frame
		off int

		err error
	}
)

// Check types prog and lays out its storage.
// Resolve must have been run on prog first.
func Check(ctx context.Context, prog *ast.Program, sink *diag.Sink) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: check", "class", prog.Name.Name)
	defer tr.Finish("err", &err)

	c := &checker{
		sink: sink,
	}

	for _, f := range prog.Fields() {
		c.layout(f.Name)
	}

	prog.GlobalSize = c.off

	for _, m := range prog.Methods() {
		c.checkMethod(ctx, m)

		if c.err != nil {
			return errors.Wrap(c.err, "method %v", m.Name.Name)
		}
	}

	tr.Printw("checked", "fatal", sink.Errors(), "warnings", sink.Warnings(), "global_size", prog.GlobalSize)

	return nil
}

func (c *checker) checkMethod(ctx context.Context, m *ast.MethodDecl) {
	c.method = m
	c.result = m.Result.Type()
	c.off = 0

	for _, f := range m.Formals {
		c.layout(f.Name)
	}

	for _, v := range m.Body.Decls {
		c.layout(v.Name)
	}

	returns := c.stmts(m.Body.Stmts)

	if c.result != tp.Void && !returns {
		c.sink.Fatal(m.Name.Pos, "Missing return statement in method %v", m.Name.Name)
	}

	if m.Name.Sym != nil {
		m.Name.Sym.Frame = c.off
	}

	if tr := tlog.SpanFromContext(ctx); tr.If("check") {
		tr.Printw("method", "name", m.Name.Name, "result", c.result, "frame", c.off, "returns", returns)
	}
}

// layout gives a declared variable the next slot of the current region.
// Duplicates have no Symbol and take no space.
func (c *checker) layout(id *ast.Ident) {
	if id.Sym == nil {
		return
	}

	id.Sym.SetOffset(c.off)
	c.off += id.Sym.Type.Size()
}

// stmts checks l and reports whether it definitely returns.
func (c *checker) stmts(l ast.StmtList) (returns bool) {
	warned := false

	for _, x := range l {
		if returns && !warned {
			c.sink.Warn(x.Position(), "Unreachable statement")
			warned = true
		}

		if c.stmt(x) {
			returns = true
		}
	}

	return returns
}

func (c *checker) stmt(x ast.Stmt) (returns bool) {
	switch x := x.(type) {
	case *ast.Print:
		if t := c.expr(x.X); t == tp.Void {
			c.sink.Fatal(x.Pos, "Cannot print expression of type void")
		}
	case *ast.Assign:
		c.assign(x)
	case *ast.If:
		c.cond(x.Pos, "If", x.Cond)
		c.stmts(x.Then)
	case *ast.IfElse:
		c.cond(x.Pos, "If", x.Cond)

		th := c.stmts(x.Then)
		el := c.stmts(x.Else)

		return th && el
	case *ast.While:
		returns = c.stmts(x.Body)

		c.cond(x.Pos, "While", x.Cond)

		return returns
	case *ast.CallStmt:
		c.expr(x.Call)
	case *ast.Return:
		have := tp.Void
		if x.X != nil {
			have = c.expr(x.X)
		}

		if have != tp.Error && have != c.result {
			c.sink.Fatal(x.Pos, "Return type mismatch: expected %v | provided %v", c.result, have)
		}

		return true
	case *ast.Block:
		for _, v := range x.Decls {
			c.layout(v.Name)
		}

		return c.stmts(x.Stmts)
	default:
		c.fail(errors.New("unexpected statement: %T", x))
	}

	return false
}

func (c *checker) assign(x *ast.Assign) {
	rt := c.expr(x.X)

	id := x.LHS

	if !c.bound(id) {
		return
	}

	if id.Sym.IsMethod() {
		c.sink.Fatal(x.Pos, "Cannot assign to method %v", id.Name)
		return
	}

	lt := id.Sym.Type
	id.SetType(lt)

	if rt != tp.Error && rt != lt {
		c.sink.Fatal(x.Pos, "Assign type mismatch -- expected: %v | provided: %v", lt, rt)
	}
}

func (c *checker) cond(p src.Pos, what string, x ast.Expr) {
	t := c.expr(x)

	if t != tp.Error && t != tp.Bool {
		c.sink.Fatal(p, "%v condition -- expected: boolean | provided: %v", what, t)
	}
}

func (c *checker) expr(x ast.Expr) (t tp.Type) {
	switch x := x.(type) {
	case *ast.IntLit:
		t = tp.Int
	case *ast.StringLit:
		t = tp.String
	case *ast.BoolLit:
		t = tp.Bool
	case *ast.Ident:
		t = c.ident(x)
	case *ast.Paren:
		t = c.expr(x.X)
	case *ast.Call:
		t = c.call(x)
	case *ast.Unary:
		t = c.unary(x)
	case *ast.Binary:
		t = c.binary(x)
	default:
		c.fail(errors.New("unexpected expression: %T", x))
		return tp.Error
	}

	x.SetType(t)

	return t
}

func (c *checker) ident(x *ast.Ident) tp.Type {
	if !c.bound(x) {
		return tp.Error
	}

	if x.Sym.IsMethod() {
		c.sink.Fatal(x.Pos, "Method %v used as a value", x.Name)
		return tp.Error
	}

	return x.Sym.Type
}

func (c *checker) call(x *ast.Call) tp.Type {
	args := make([]tp.Type, len(x.Args))

	for i, a := range x.Args {
		args[i] = c.expr(a)
	}

	id := x.Name

	if !c.bound(id) {
		return tp.Error
	}

	sym := id.Sym

	if !sym.IsMethod() {
		c.sink.Fatal(id.Pos, "%v is not a method", id.Name)
		return tp.Error
	}

	id.SetType(sym.Result)

	if len(args) != len(sym.Params) {
		c.sink.Fatal(x.Pos, "Wrong amount of parameters for method %v -- expected: %d | provided: %d", id.Name, len(sym.Params), len(args))
		return tp.Error
	}

	ok := true

	for i, at := range args {
		if at == tp.Error {
			continue
		}

		if pt := sym.Params[i]; at != pt {
			c.sink.Fatal(x.Args[i].Position(), "Parameter type mismatch for method call %v -- expected: %v | provided: %v", id.Name, pt, at)
			ok = false
		}
	}

	if !ok {
		return tp.Error
	}

	return sym.Result
}

func (c *checker) unary(x *ast.Unary) tp.Type {
	t := c.expr(x.X)

	switch x.Op {
	case ast.Neg:
		if t != tp.Error && t != tp.Int {
			c.sink.Fatal(x.Pos, "Non-Integer expression applied to unary minus, provided %v", t)
			return tp.Error
		}

		return tp.Int
	case ast.Not:
		if t != tp.Error && t != tp.Bool {
			c.sink.Fatal(x.Pos, "Non-Boolean expression applied to not operator, provided %v", t)
			return tp.Error
		}

		return tp.Bool
	default:
		c.fail(errors.New("unexpected unary operator: %v", x.Op))
		return tp.Error
	}
}

func (c *checker) binary(x *ast.Binary) tp.Type {
	l := c.expr(x.L)
	r := c.expr(x.R)

	op := x.Op

	switch {
	case op.IsArith():
		return c.operands(x, l, r, tp.Int, "Non-Integer", tp.Int)
	case op.IsRelational():
		return c.operands(x, l, r, tp.Int, "Non-Integer", tp.Bool)
	case op.IsLogical():
		return c.operands(x, l, r, tp.Bool, "Non-Boolean", tp.Bool)
	case op.IsEquality():
		if l == tp.Error || r == tp.Error {
			return tp.Bool
		}

		if l != r || !l.IsValue() {
			c.sink.Fatal(x.Pos, "Type mismatch at %v operator: %v vs %v", op.Word(), l, r)
			return tp.Error
		}

		return tp.Bool
	default:
		c.fail(errors.New("unexpected binary operator: %v", op))
		return tp.Error
	}
}

// operands reports each side of x that is not of type want.
func (c *checker) operands(x *ast.Binary, l, r, want tp.Type, kind string, res tp.Type) tp.Type {
	ok := true

	for _, side := range [...]struct {
		name string
		t    tp.Type
	}{
		{"left", l},
		{"right", r},
	} {
		if side.t == tp.Error || side.t == want {
			continue
		}

		c.sink.Fatal(x.Pos, "%s expression applied to %s side of %s operator, provided %v", kind, side.name, x.Op.Word(), side.t)
		ok = false
	}

	if !ok {
		return tp.Error
	}

	return res
}

// bound reports whether id has a Symbol.
// Unresolved identifiers were already reported.
func (c *checker) bound(id *ast.Ident) bool {
	if id.Sym != nil {
		return true
	}

	if !id.Unresolved {
		c.fail(errors.New("identifier %v at %v was not resolved", id.Name, id.Pos))
	}

	return false
}

func (c *checker) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}
