package testcase

import (
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	mdast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/simplec/compiler"
)

type (
	Kind string

	// Case is one "## Test: name" section of a Markdown document.
	Case struct {
		Name string
		Line int

		Input      string
		Assertions []Assertion
	}

	Assertion struct {
		Kind    Kind
		Line    int
		Content string
	}
)

const (
	InputSexpr Kind = "sexpr"

	// Diagnostics lists every expected diagnostic line, in source order.
	Diagnostics Kind = "diagnostics"

	// Asm lists lines that must appear contiguously in the text section.
	Asm Kind = "asm"
)

const testPrefix = "Test: "

func ReadFile(name string) ([]Case, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	cs, err := Extract(data)
	if err != nil {
		return nil, errors.Wrap(err, "%v", name)
	}

	return cs, nil
}

// Extract finds test cases in a Markdown document.
func Extract(source []byte) (cs []Case, err error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var cur *Case

	flush := func() error {
		if cur == nil {
			return nil
		}

		if cur.Input == "" {
			return errors.New("line %d: test %q has no %s fence", cur.Line, cur.Name, InputSexpr)
		}

		if len(cur.Assertions) == 0 {
			return errors.New("line %d: test %q has no assertions", cur.Line, cur.Name)
		}

		cs = append(cs, *cur)

		return nil
	}

	err = mdast.Walk(doc, func(n mdast.Node, entering bool) (mdast.WalkStatus, error) {
		if !entering {
			return mdast.WalkContinue, nil
		}

		switch n := n.(type) {
		case *mdast.Heading:
			title := nodeText(n, source)
			if !strings.HasPrefix(title, testPrefix) {
				return mdast.WalkSkipChildren, nil
			}

			if err := flush(); err != nil {
				return mdast.WalkStop, err
			}

			cur = &Case{
				Name: strings.TrimSpace(strings.TrimPrefix(title, testPrefix)),
				Line: lineOf(n, source),
			}

			return mdast.WalkSkipChildren, nil
		case *mdast.FencedCodeBlock:
			lang := Kind(n.Language(source))
			line := lineOf(n, source)
			content := blockText(n, source)

			if cur == nil {
				if lang != "" {
					return mdast.WalkStop, errors.New("line %d: %s fence outside of test case", line, lang)
				}

				return mdast.WalkContinue, nil
			}

			switch lang {
			case InputSexpr:
				if cur.Input != "" {
					return mdast.WalkStop, errors.New("line %d: second input fence in test %q", line, cur.Name)
				}

				cur.Input = content
			case Diagnostics, Asm:
				cur.Assertions = append(cur.Assertions, Assertion{
					Kind:    lang,
					Line:    line,
					Content: content,
				})
			default:
				return mdast.WalkStop, errors.New("line %d: unknown fence %q in test %q", line, lang, cur.Name)
			}
		}

		return mdast.WalkContinue, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walk markdown")
	}

	err = flush()
	if err != nil {
		return nil, err
	}

	return cs, nil
}

// Run compiles the case input and checks every assertion.
func Run(ctx context.Context, c Case) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "testcase: run", "name", c.Name, "line", c.Line)
	defer tr.Finish("err", &err)

	res, err := compiler.Compile(ctx, c.Name, []byte(c.Input), compiler.Options{})
	if _, ok := err.(*compiler.FailedError); err != nil && !ok {
		return errors.Wrap(err, "compile")
	}

	for _, a := range c.Assertions {
		switch a.Kind {
		case Diagnostics:
			var got []string

			for _, d := range res.Diags.Sorted() {
				got = append(got, d.String())
			}

			want := splitLines(a.Content)

			if strings.Join(got, "\n") != strings.Join(want, "\n") {
				return errors.New("line %d: diagnostics mismatch\nwant:\n%s\ngot:\n%s", a.Line, strings.Join(want, "\n"), strings.Join(got, "\n"))
			}
		case Asm:
			if res.Asm == nil {
				return errors.New("line %d: no code generated: %v", a.Line, err)
			}

			want := splitLines(a.Content)

			if !containsLines(textSection(res.Asm), want) {
				return errors.New("line %d: asm lines not found\nwant:\n%s\ngot:\n%s", a.Line, strings.Join(want, "\n"), res.Asm)
			}
		}
	}

	return nil
}

// RunAll runs every case and returns the failures keyed by case name.
func RunAll(ctx context.Context, cs []Case) (failed map[string]error) {
	for _, c := range cs {
		err := Run(ctx, c)
		if err == nil {
			continue
		}

		if failed == nil {
			failed = map[string]error{}
		}

		failed[c.Name] = err
	}

	return failed
}

// textSection returns the trimmed lines following the .text directive.
func textSection(b []byte) []string {
	if i := bytes.Index(b, []byte("\t.text\n")); i >= 0 {
		b = b[i:]
	}

	return splitLines(string(b))
}

func containsLines(have, want []string) bool {
	if len(want) == 0 {
		return true
	}

outer:
	for i := 0; i+len(want) <= len(have); i++ {
		for j, w := range want {
			if have[i+j] != w {
				continue outer
			}
		}

		return true
	}

	return false
}

// splitLines returns non-empty lines with surrounding spaces removed.
func splitLines(s string) (l []string) {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		l = append(l, line)
	}

	return l
}

func nodeText(n mdast.Node, source []byte) string {
	var b bytes.Buffer

	_ = mdast.Walk(n, func(n mdast.Node, entering bool) (mdast.WalkStatus, error) {
		if t, ok := n.(*mdast.Text); ok && entering {
			b.Write(t.Segment.Value(source))
		}

		return mdast.WalkContinue, nil
	})

	return b.String()
}

func blockText(n *mdast.FencedCodeBlock, source []byte) string {
	var b bytes.Buffer

	lines := n.Lines()

	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}

	return b.String()
}

func lineOf(n mdast.Node, source []byte) int {
	lines := n.Lines()
	if lines == nil || lines.Len() == 0 {
		return 0
	}

	return 1 + bytes.Count(source[:lines.At(0).Start], []byte{'\n'})
}
