package front

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/simplec/compiler/ast"
	"github.com/slowlang/simplec/compiler/diag"
	"github.com/slowlang/simplec/compiler/src"
	"github.com/slowlang/simplec/compiler/symtab"
	"github.com/slowlang/simplec/compiler/tp"
)

type (
	resolver struct {
		tab  *symtab.Table
		sink *diag.Sink

		// uses of the entry name that were not visible yet
		entryUses []*ast.Ident
	}
)

// Resolve binds every identifier of prog to its declaration.
// User mistakes go to sink, the returned error means a malformed tree.
func Resolve(ctx context.Context, prog *ast.Program, sink *diag.Sink) (tab *symtab.Table, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: resolve", "class", prog.Name.Name)
	defer tr.Finish("err", &err)

	r := &resolver{
		tab:  symtab.New(),
		sink: sink,
	}

	for _, d := range prog.Body.Decls {
		switch d := d.(type) {
		case *ast.FieldDecl:
			r.declareVar(symtab.Global, d.Type, d.Name)
		case *ast.MethodDecl:
			err = r.method(ctx, d)
		default:
			err = errors.New("unexpected declaration: %T", d)
		}

		if err != nil {
			return nil, errors.Wrap(err, "class %v", prog.Name.Name)
		}
	}

	r.entry()

	if tr.If("dump_scopes") {
		tr.Printw("scopes", "dump", tlog.FormatNext("%s"), r.tab.AppendDump(nil))
	}

	return r.tab, nil
}

// entry checks the program has an entry method and binds the uses of it
// that preceded its declaration.
func (r *resolver) entry() {
	sym, ok := r.tab.Local(symtab.Global, symtab.EntryName)
	if !ok || sym.Kind != symtab.Method {
		r.sink.Fatal(src.Pos{}, "No main method declared")
		return
	}

	for _, id := range r.entryUses {
		id.Sym = sym
		id.Unresolved = false
	}
}

func (r *resolver) method(ctx context.Context, m *ast.MethodDecl) (err error) {
	params := make([]tp.Type, len(m.Formals))

	for i, f := range m.Formals {
		params[i] = f.Type.Type()
	}

	if sym := r.declare(symtab.Global, m.Name); sym != nil {
		sym.Kind = symtab.Method
		sym.Type = m.Result.Type()
		sym.Result = m.Result.Type()
		sym.Params = params
	}

	m.Scope = r.tab.Open(symtab.Global, symtab.ScopeMethod)

	if tr := tlog.SpanFromContext(ctx); tr.If("resolve") {
		tr.Printw("method", "name", m.Name.Name, "scope", m.Scope, "formals", len(m.Formals))
	}

	for _, f := range m.Formals {
		r.declareVar(m.Scope, f.Type, f.Name)
	}

	for _, v := range m.Body.Decls {
		r.declareVar(m.Scope, v.Type, v.Name)
	}

	err = r.resolveStmts(ctx, m.Scope, m.Body.Stmts)
	if err != nil {
		return errors.Wrap(err, "method %v", m.Name.Name)
	}

	return nil
}

func (r *resolver) declareVar(s symtab.ScopeID, t ast.TypeNode, id *ast.Ident) {
	sym := r.declare(s, id)
	if sym == nil {
		return
	}

	sym.Kind = symtab.Var
	sym.Type = t.Type()

	id.SetType(sym.Type)
}

// declare reports a duplicate and returns nil for it.
func (r *resolver) declare(s symtab.ScopeID, id *ast.Ident) *symtab.Symbol {
	sym, err := r.tab.Declare(s, id.Name, id.Pos)

	if dup, ok := err.(*symtab.AlreadyDeclaredError); ok {
		r.sink.Fatal(id.Pos, "%s", dup.Error())
		return nil
	}

	id.Sym = sym

	return sym
}

func (r *resolver) resolveStmts(ctx context.Context, s symtab.ScopeID, l ast.StmtList) (err error) {
	for _, x := range l {
		err = r.resolveStmt(ctx, s, x)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *resolver) resolveStmt(ctx context.Context, s symtab.ScopeID, x ast.Stmt) (err error) {
	switch x := x.(type) {
	case *ast.Print:
		return r.resolveExpr(s, x.X)
	case *ast.Assign:
		r.use(s, x.LHS)

		return r.resolveExpr(s, x.X)
	case *ast.If:
		err = r.resolveExpr(s, x.Cond)
		if err != nil {
			return err
		}

		return r.resolveStmts(ctx, s, x.Then)
	case *ast.IfElse:
		err = r.resolveExpr(s, x.Cond)
		if err != nil {
			return err
		}

		err = r.resolveStmts(ctx, s, x.Then)
		if err != nil {
			return err
		}

		return r.resolveStmts(ctx, s, x.Else)
	case *ast.While:
		err = r.resolveStmts(ctx, s, x.Body)
		if err != nil {
			return err
		}

		return r.resolveExpr(s, x.Cond)
	case *ast.CallStmt:
		return r.resolveExpr(s, x.Call)
	case *ast.Return:
		if x.X == nil {
			return nil
		}

		return r.resolveExpr(s, x.X)
	case *ast.Block:
		x.Scope = r.tab.Open(s, symtab.ScopeBlock)

		for _, v := range x.Decls {
			r.declareVar(x.Scope, v.Type, v.Name)
		}

		return r.resolveStmts(ctx, x.Scope, x.Stmts)
	case nil:
		return errors.New("nil statement")
	default:
		return errors.New("unexpected statement: %T", x)
	}
}

func (r *resolver) resolveExpr(s symtab.ScopeID, x ast.Expr) (err error) {
	switch x := x.(type) {
	case *ast.IntLit, *ast.StringLit, *ast.BoolLit:
		return nil
	case *ast.Ident:
		r.use(s, x)
	case *ast.Call:
		r.use(s, x.Name)

		for _, a := range x.Args {
			err = r.resolveExpr(s, a)
			if err != nil {
				return err
			}
		}
	case *ast.Paren:
		return r.resolveExpr(s, x.X)
	case *ast.Unary:
		return r.resolveExpr(s, x.X)
	case *ast.Binary:
		err = r.resolveExpr(s, x.L)
		if err != nil {
			return err
		}

		return r.resolveExpr(s, x.R)
	case nil:
		return errors.New("nil expression")
	default:
		return errors.New("unexpected expression: %T", x)
	}

	return nil
}

func (r *resolver) use(s symtab.ScopeID, id *ast.Ident) {
	sym, ok := r.tab.Lookup(s, id.Name)
	if ok {
		id.Sym = sym
		return
	}

	id.Unresolved = true

	if symtab.IsEntry(id.Name) {
		r.entryUses = append(r.entryUses, id)
		return
	}

	r.sink.Fatal(id.Pos, "Variable was not declared: %v", id.Name)
}
