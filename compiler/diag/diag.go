package diag

import (
	"io"

	"github.com/nikandfor/hacked/hfmt"
	"nikand.dev/go/heap"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/simplec/compiler/src"
)

type (
	Severity int8

	Diagnostic struct {
		Pos      src.Pos
		Severity Severity
		Msg      string

		seq int
	}

	// Sink accumulates the diagnostics of one compilation.
	// It is shared by every pass and only ever appended to.
	Sink struct {
		list []Diagnostic

		errors   int
		warnings int
	}
)

const (
	Fatal Severity = iota
	Warning
)

func New() *Sink {
	return &Sink{}
}

func (s *Sink) Fatal(p src.Pos, format string, args ...any) {
	s.add(p, Fatal, format, args)
	s.errors++
}

func (s *Sink) Warn(p src.Pos, format string, args ...any) {
	s.add(p, Warning, format, args)
	s.warnings++
}

func (s *Sink) add(p src.Pos, sev Severity, format string, args []any) {
	d := Diagnostic{
		Pos:      p,
		Severity: sev,
		Msg:      string(hfmt.Appendf(nil, format, args...)),
		seq:      len(s.list),
	}

	s.list = append(s.list, d)

	tlog.V("diag").Printw("diagnostic", "pos", p, "severity", sev, "msg", d.Msg, "from", loc.Caller(2))
}

// Errors is the number of fatal diagnostics reported so far.
func (s *Sink) Errors() int { return s.errors }

func (s *Sink) Warnings() int { return s.warnings }

// All returns diagnostics in report order.
func (s *Sink) All() []Diagnostic { return s.list }

// Sorted returns diagnostics ordered by source position.
// Diagnostics at the same position keep their report order.
func (s *Sink) Sorted() []Diagnostic {
	h := heap.Heap[Diagnostic]{Less: diagLess}

	for _, d := range s.list {
		h.Push(d)
	}

	res := make([]Diagnostic, 0, len(s.list))

	for h.Len() != 0 {
		res = append(res, h.Pop())
	}

	return res
}

// WriteTo writes one line per diagnostic in source order.
func (s *Sink) WriteTo(w io.Writer) (n int64, err error) {
	var b []byte

	for _, d := range s.Sorted() {
		b = d.AppendText(b)
		b = append(b, '\n')
	}

	m, err := w.Write(b)

	return int64(m), err
}

func (d Diagnostic) AppendText(b []byte) []byte {
	b = d.Pos.AppendText(b)
	b = append(b, ' ')
	b = append(b, d.Severity.String()...)
	b = append(b, ' ')
	b = append(b, d.Msg...)

	return b
}

func (d Diagnostic) String() string {
	return string(d.AppendText(nil))
}

func (s Severity) String() string {
	switch s {
	case Fatal:
		return "**ERROR**"
	case Warning:
		return "**WARNING**"
	default:
		return "**UNKNOWN**"
	}
}

func diagLess(d []Diagnostic, i, j int) bool {
	if d[i].Pos != d[j].Pos {
		return d[i].Pos.Less(d[j].Pos)
	}

	return d[i].seq < d[j].seq
}
