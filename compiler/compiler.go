package compiler

import (
	"context"
	"os"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/simplec/compiler/ast"
	"github.com/slowlang/simplec/compiler/back"
	"github.com/slowlang/simplec/compiler/diag"
	"github.com/slowlang/simplec/compiler/front"
	"github.com/slowlang/simplec/compiler/parse"
	"github.com/slowlang/simplec/compiler/symtab"
)

type (
	Options struct {
		// DumpScopes fills Result.ScopeDump with the scope table.
		DumpScopes bool
	}

	Result struct {
		Program *ast.Program
		Scopes  *symtab.Table
		Diags   *diag.Sink

		ScopeDump []byte

		// Asm is the generated assembly, nil if any fatal was reported.
		Asm []byte
	}

	// FailedError means the program had fatal diagnostics.
	// They are in Result.Diags.
	FailedError struct {
		Errors int
	}
)

func CompileFile(ctx context.Context, name string, opts Options) (res *Result, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text, opts)
}

// Compile reads the tree text and compiles it.
func Compile(ctx context.Context, name string, text []byte, opts Options) (res *Result, err error) {
	st := parse.New()

	st.AddFile(name, text)

	prog, err := st.Parse(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "parse tree")
	}

	return CompileTree(ctx, prog, opts)
}

// Analyze runs name resolution and type checking on prog.
// The returned error is not nil only for internal failures.
func Analyze(ctx context.Context, prog *ast.Program, opts Options) (res *Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compiler: analyze", "class", prog.Name.Name)
	defer tr.Finish("err", &err)

	res = &Result{
		Program: prog,
		Diags:   diag.New(),
	}

	res.Scopes, err = front.Resolve(ctx, prog, res.Diags)
	if err != nil {
		return nil, errors.Wrap(err, "resolve")
	}

	err = front.Check(ctx, prog, res.Diags)
	if err != nil {
		return nil, errors.Wrap(err, "check")
	}

	if opts.DumpScopes {
		res.ScopeDump = res.Scopes.AppendDump(nil)
	}

	return res, nil
}

// CompileTree analyzes prog and generates code if no fatal was reported.
// Diagnostics are returned in res even when err is *FailedError.
func CompileTree(ctx context.Context, prog *ast.Program, opts Options) (res *Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compiler: compile", "class", prog.Name.Name)
	defer tr.Finish("err", &err)

	res, err = Analyze(ctx, prog, opts)
	if err != nil {
		return nil, err
	}

	if n := res.Diags.Errors(); n != 0 {
		return res, &FailedError{Errors: n}
	}

	res.Asm, err = back.Generate(ctx, prog)
	if err != nil {
		return res, errors.Wrap(err, "generate")
	}

	return res, nil
}

func (e *FailedError) Error() string {
	return string(hfmt.Appendf(nil, "compilation failed: %d errors", e.Errors))
}
