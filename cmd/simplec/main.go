package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/simplec/compiler"
	"github.com/slowlang/simplec/compiler/format"
	"github.com/slowlang/simplec/compiler/parse"
	"github.com/slowlang/simplec/compiler/testcase"
)

func main() {
	checkCmd := &cli.Command{
		Name:        "check",
		Description: "resolve names and check types, print diagnostics",
		Action:      checkAct,
		Args:        cli.Args{},
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile a tree into MIPS assembly",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "", "assembly output file, stdout if empty"),
		},
	}

	formatCmd := &cli.Command{
		Name:        "format",
		Description: "print a tree as Simple source",
		Action:      formatAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("offsets", false, "annotate declarations with storage offsets"),
		},
	}

	scopesCmd := &cli.Command{
		Name:        "scopes",
		Description: "print the scope table",
		Action:      scopesAct,
		Args:        cli.Args{},
	}

	testCmd := &cli.Command{
		Name:        "test",
		Description: "run Markdown test cases",
		Action:      testAct,
		Args:        cli.Args{},
	}

	app := &cli.Command{
		Name:        "simplec",
		Description: "simplec is the Simple language compiler back end",
		Flags: []*cli.Flag{
			cli.NewFlag("verbose,v", "", "tlog verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			checkCmd,
			compileCmd,
			formatCmd,
			scopesCmd,
			testCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func setup(c *cli.Command) context.Context {
	if v := c.String("verbose"); v != "" {
		tlog.SetVerbosity(v)
	}

	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	return ctx
}

func checkAct(c *cli.Command) (err error) {
	ctx := setup(c)

	var fatal int

	for _, a := range c.Args {
		prog, err := parse.ParseFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		res, err := compiler.Analyze(ctx, prog, compiler.Options{})
		if err != nil {
			return errors.Wrap(err, "check %v", a)
		}

		_, err = res.Diags.WriteTo(os.Stderr)
		if err != nil {
			return errors.Wrap(err, "write diagnostics")
		}

		fatal += res.Diags.Errors()
	}

	if fatal != 0 {
		return &compiler.FailedError{Errors: fatal}
	}

	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx := setup(c)

	if len(c.Args) != 1 {
		return errors.New("expected exactly one file, got %d", len(c.Args))
	}

	res, err := compiler.CompileFile(ctx, c.Args[0], compiler.Options{})
	if res != nil {
		_, werr := res.Diags.WriteTo(os.Stderr)
		if werr != nil {
			return errors.Wrap(werr, "write diagnostics")
		}
	}
	if err != nil {
		return errors.Wrap(err, "compile %v", c.Args[0])
	}

	out := c.String("output")
	if out == "" {
		_, err = os.Stdout.Write(res.Asm)
		return err
	}

	err = os.WriteFile(out, res.Asm, 0o644)
	if err != nil {
		return errors.Wrap(err, "write output")
	}

	return nil
}

func formatAct(c *cli.Command) (err error) {
	ctx := setup(c)

	opts := format.Options{
		Offsets: c.Bool("offsets"),
	}

	for _, a := range c.Args {
		prog, err := parse.ParseFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		if opts.Offsets {
			_, err = compiler.Analyze(ctx, prog, compiler.Options{})
			if err != nil {
				return errors.Wrap(err, "check %v", a)
			}
		}

		b, err := format.FormatOptions(ctx, nil, prog, opts)
		if err != nil {
			return errors.Wrap(err, "format %v", a)
		}

		fmt.Printf("%s", b)
	}

	return nil
}

func scopesAct(c *cli.Command) (err error) {
	ctx := setup(c)

	for _, a := range c.Args {
		prog, err := parse.ParseFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		res, err := compiler.Analyze(ctx, prog, compiler.Options{DumpScopes: true})
		if err != nil {
			return errors.Wrap(err, "check %v", a)
		}

		fmt.Printf("%s", res.ScopeDump)
	}

	return nil
}

func testAct(c *cli.Command) (err error) {
	ctx := setup(c)

	var total, failed int

	for _, a := range c.Args {
		cs, err := testcase.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read cases")
		}

		fails := testcase.RunAll(ctx, cs)

		names := make([]string, 0, len(fails))
		for name := range fails {
			names = append(names, name)
		}

		sort.Strings(names)

		for _, name := range names {
			fmt.Printf("FAIL %v: %v\n%v\n", a, name, fails[name])
		}

		total += len(cs)
		failed += len(fails)
	}

	fmt.Printf("%d cases, %d failed\n", total, failed)

	if failed != 0 {
		return errors.New("%d cases failed", failed)
	}

	return nil
}
