package src

import "github.com/nikandfor/hacked/hfmt"

type (
	// Pos is a 1-based line and column in the program source.
	// The zero Pos means the position is unknown.
	Pos struct {
		Line int
		Col  int
	}
)

func (p Pos) Less(q Pos) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}

	return p.Col < q.Col
}

func (p Pos) IsZero() bool {
	return p == Pos{}
}

func (p Pos) AppendText(b []byte) []byte {
	return hfmt.Appendf(b, "%d:%d", p.Line, p.Col)
}

func (p Pos) String() string {
	return string(p.AppendText(nil))
}
