package parse

import (
	"bytes"
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/simplec/compiler/ast"
)

type (
	State struct {
		b []byte // all files concatenated

		files []file
	}

	file struct {
		base int
		size int
		name string
	}

	// SyntaxError is a malformed tree text.
	// Where is the location in the tree text, not in the Simple program.
	SyntaxError struct {
		Where string
		Msg   string
	}

	// TypeExpectedError is a well-formed datum of the wrong shape.
	TypeExpectedError struct {
		Where string
		T     string
		Got   string
	}

	PartialReadError struct {
		Where string
		End   int
	}
)

func ParseFile(ctx context.Context, name string) (*ast.Program, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	s := New()

	s.AddFile(name, data)

	return s.Parse(ctx)
}

func Parse(ctx context.Context, text []byte) (x *ast.Program, err error) {
	s := New()

	s.AddFile("", text)

	return s.Parse(ctx)
}

func New() *State {
	return &State{}
}

// Parse reads exactly one program from the concatenated files.
func (s *State) Parse(ctx context.Context) (x *ast.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "parse: read tree", "files", len(s.files), "size", len(s.b))
	defer tr.Finish("err", &err)

	n, i, err := s.readDatum(0)
	if err != nil {
		return nil, errors.Wrap(err, "read datum")
	}

	if tr.If("dump_sexpr") {
		tr.Printw("datum", "sexpr", n.String())
	}

	x, err = s.program(ctx, n)
	if err != nil {
		return nil, errors.Wrap(err, "build tree")
	}

	i = SpaceAll.SkipComments(s.b, i)

	if i != len(s.b) {
		return x, PartialReadError{Where: s.where(i), End: i}
	}

	return x, nil
}

func (s *State) AddFile(name string, text []byte) {
	f := file{
		name: name,
		base: len(s.b),
		size: len(text),
	}

	s.b = append(s.b, text...)

	s.files = append(s.files, f)
}

func (s *State) Text(pos, end int) []byte {
	return s.b[pos:end]
}

// where renders buffer offset off as file:line:col.
func (s *State) where(off int) string {
	var f file

	for _, q := range s.files {
		if off >= q.base && off <= q.base+q.size {
			f = q
			break
		}
	}

	text := s.b[f.base:off]

	line := 1 + bytes.Count(text, []byte{'\n'})
	col := 1 + len(text)

	if p := bytes.LastIndexByte(text, '\n'); p >= 0 {
		col = len(text) - p
	}

	name := f.name
	if name == "" {
		name = "<input>"
	}

	return string(appendWhere(nil, name, line, col))
}

func (s *State) syntaxErr(off int, msg string) error {
	return SyntaxError{Where: s.where(off), Msg: msg}
}

func (s *State) expected(n *Node, t string) error {
	return TypeExpectedError{Where: s.where(n.Off), T: t, Got: n.String()}
}

func (e SyntaxError) Error() string {
	return e.Where + ": " + e.Msg
}

func (e TypeExpectedError) Error() string {
	return e.Where + ": " + e.T + " expected, got " + e.Got
}

func (e PartialReadError) Error() string {
	return e.Where + ": partial read"
}
