package format

import (
	"context"
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/simplec/compiler/ast"
)

type (
	Options struct {
		// Offsets annotates declarations with their storage offset: x(4).
		Offsets bool
	}

	printer struct {
		Options
	}
)

// Format renders x back as Simple source.
func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	return FormatOptions(ctx, b, x, Options{})
}

func FormatOptions(ctx context.Context, b []byte, x any, opts Options) ([]byte, error) {
	p := printer{Options: opts}

	return p.format(ctx, b, x, 0)
}

func (p printer) format(ctx context.Context, b []byte, x any, d int) (_ []byte, err error) {
	switch x := x.(type) {
	case *ast.Program:
		return p.formatProgram(ctx, b, x, d)
	case *ast.MethodDecl:
		return p.formatMethod(ctx, b, x, d)
	case ast.Stmt:
		return p.formatStmt(ctx, b, x, d)
	case ast.Expr:
		return p.formatExpr(ctx, b, x)
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

func (p printer) formatProgram(ctx context.Context, b []byte, x *ast.Program, d int) (_ []byte, err error) {
	b = app(b, d, "public class %s {\n", x.Name.Name)

	for i, decl := range x.Body.Decls {
		switch decl := decl.(type) {
		case *ast.FieldDecl:
			b = app(b, d+1, "static %v ", decl.Type.Type())
			b = p.decl(b, decl.Name)
			b = append(b, ";\n"...)
		case *ast.MethodDecl:
			if i != 0 {
				b = append(b, '\n')
			}

			b, err = p.formatMethod(ctx, b, decl, d+1)
			if err != nil {
				return nil, errors.Wrap(err, "method %v", decl.Name.Name)
			}
		default:
			return nil, errors.New("unsupported decl: %T", decl)
		}
	}

	b = app(b, d, "}\n")

	return b, nil
}

func (p printer) formatMethod(ctx context.Context, b []byte, x *ast.MethodDecl, d int) (_ []byte, err error) {
	b = app(b, d, "public static %v %s(", x.Result.Type(), x.Name.Name)

	for i, f := range x.Formals {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = app(b, 0, "%v ", f.Type.Type())
		b = p.decl(b, f.Name)
	}

	b = append(b, ") {\n"...)

	b, err = p.formatBody(ctx, b, x.Body.Decls, x.Body.Stmts, d+1)
	if err != nil {
		return nil, errors.Wrap(err, "body")
	}

	b = app(b, d, "}\n")

	return b, nil
}

func (p printer) formatBody(ctx context.Context, b []byte, vars []*ast.VarDecl, l ast.StmtList, d int) (_ []byte, err error) {
	for _, v := range vars {
		b = app(b, d, "%v ", v.Type.Type())
		b = p.decl(b, v.Name)
		b = append(b, ";\n"...)
	}

	return p.formatStmts(ctx, b, l, d)
}

func (p printer) formatStmts(ctx context.Context, b []byte, l ast.StmtList, d int) (_ []byte, err error) {
	for _, s := range l {
		b, err = p.formatStmt(ctx, b, s, d)
		if err != nil {
			return nil, err
		}
	}

	return b, nil
}

func (p printer) formatStmt(ctx context.Context, b []byte, s ast.Stmt, d int) (_ []byte, err error) {
	switch s := s.(type) {
	case *ast.Print:
		b = app(b, d, "System.out.println(")

		b, err = p.formatExpr(ctx, b, s.X)
		if err != nil {
			return nil, errors.Wrap(err, "print")
		}

		b = append(b, ");\n"...)
	case *ast.Assign:
		b = app(b, d, "%s = ", s.LHS.Name)

		b, err = p.formatExpr(ctx, b, s.X)
		if err != nil {
			return nil, errors.Wrap(err, "rhs")
		}

		b = append(b, ";\n"...)
	case *ast.If:
		b, err = p.formatIf(ctx, b, s.Cond, s.Then, d)
		if err != nil {
			return nil, err
		}

		b = append(b, '\n')
	case *ast.IfElse:
		b, err = p.formatIf(ctx, b, s.Cond, s.Then, d)
		if err != nil {
			return nil, err
		}

		b = append(b, " else {\n"...)

		b, err = p.formatStmts(ctx, b, s.Else, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "else")
		}

		b = app(b, d, "}\n")
	case *ast.While:
		b = app(b, d, "do {\n")

		b, err = p.formatStmts(ctx, b, s.Body, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "while body")
		}

		b = app(b, d, "} while (")

		b, err = p.formatExpr(ctx, b, s.Cond)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}

		b = append(b, ");\n"...)
	case *ast.CallStmt:
		b = app(b, d, "")

		b, err = p.formatExpr(ctx, b, s.Call)
		if err != nil {
			return nil, err
		}

		b = append(b, ";\n"...)
	case *ast.Return:
		b = app(b, d, "return")

		if s.X != nil {
			b = append(b, ' ')

			b, err = p.formatExpr(ctx, b, s.X)
			if err != nil {
				return nil, errors.Wrap(err, "return")
			}
		}

		b = append(b, ";\n"...)
	case *ast.Block:
		b = app(b, d, "{\n")

		b, err = p.formatBody(ctx, b, s.Decls, s.Stmts, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "block")
		}

		b = app(b, d, "}\n")
	default:
		return nil, errors.New("unsupported stmt: %T", s)
	}

	return b, nil
}

func (p printer) formatIf(ctx context.Context, b []byte, cond ast.Expr, then ast.StmtList, d int) (_ []byte, err error) {
	b = app(b, d, "if (")

	b, err = p.formatExpr(ctx, b, cond)
	if err != nil {
		return nil, errors.Wrap(err, "cond")
	}

	b = append(b, ") {\n"...)

	b, err = p.formatStmts(ctx, b, then, d+1)
	if err != nil {
		return nil, errors.Wrap(err, "then")
	}

	b = app(b, d, "}")

	return b, nil
}

func (p printer) formatExpr(ctx context.Context, b []byte, x ast.Expr) (_ []byte, err error) {
	switch x := x.(type) {
	case *ast.IntLit:
		b = strconv.AppendInt(b, int64(x.Value), 10)
	case *ast.StringLit:
		b = strconv.AppendQuote(b, x.Value)
	case *ast.BoolLit:
		b = strconv.AppendBool(b, x.Value)
	case *ast.Ident:
		b = append(b, x.Name...)
	case *ast.Call:
		b = append(b, x.Name.Name...)
		b = append(b, '(')

		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b, err = p.formatExpr(ctx, b, a)
			if err != nil {
				return nil, errors.Wrap(err, "arg %d", i)
			}
		}

		b = append(b, ')')
	case *ast.Paren:
		b = append(b, '(')

		b, err = p.formatExpr(ctx, b, x.X)
		if err != nil {
			return nil, err
		}

		b = append(b, ')')
	case *ast.Unary:
		b = append(b, '(')
		b = append(b, x.Op.String()...)

		b, err = p.formatExpr(ctx, b, x.X)
		if err != nil {
			return nil, err
		}

		b = append(b, ')')
	case *ast.Binary:
		b = append(b, '(')

		b, err = p.formatExpr(ctx, b, x.L)
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}

		b = app(b, 0, " %s ", x.Op)

		b, err = p.formatExpr(ctx, b, x.R)
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}

		b = append(b, ')')
	default:
		return nil, errors.New("unsupported expr: %T", x)
	}

	return b, nil
}

func (p printer) decl(b []byte, id *ast.Ident) []byte {
	b = append(b, id.Name...)

	if p.Offsets && id.Sym != nil && id.Sym.HasOffset() {
		b = app(b, 0, "(%d)", id.Sym.Offset())
	}

	return b
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
