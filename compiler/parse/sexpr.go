package parse

import (
	"strconv"

	"github.com/nikandfor/hacked/hfmt"

	"github.com/slowlang/simplec/compiler/src"
)

type (
	Kind int8

	// Node is one datum of the tree text.
	Node struct {
		Kind  Kind
		Text  string // atom text or decoded string
		Items []*Node

		Pos src.Pos // @line:col annotation, zero if absent
		Off int     // offset in State buffer
	}
)

const (
	Atom Kind = iota
	Str
	List
)

func (s *State) readDatum(st int) (n *Node, i int, err error) {
	i = SpaceAll.SkipComments(s.b, st)
	if i == len(s.b) {
		return nil, i, s.syntaxErr(i, "unexpected end of input")
	}

	switch s.b[i] {
	case '(':
		n, i, err = s.readList(i)
	case ')':
		return nil, i, s.syntaxErr(i, "unexpected )")
	case '"':
		n, i, err = s.readString(i)
	default:
		n, i, err = s.readAtom(i)
	}
	if err != nil {
		return nil, i, err
	}

	if i < len(s.b) && s.b[i] == '@' {
		n.Pos, i, err = s.readPos(i + 1)
	}

	return n, i, err
}

func (s *State) readList(st int) (n *Node, i int, err error) {
	n = &Node{Kind: List, Off: st}

	i = st + 1

	for {
		i = SpaceAll.SkipComments(s.b, i)

		if i == len(s.b) {
			return nil, i, s.syntaxErr(st, "unclosed list")
		}

		if s.b[i] == ')' {
			return n, i + 1, nil
		}

		var x *Node

		x, i, err = s.readDatum(i)
		if err != nil {
			return nil, i, err
		}

		n.Items = append(n.Items, x)
	}
}

func (s *State) readString(st int) (n *Node, i int, err error) {
	var text []byte

	i = st + 1

	for i < len(s.b) && s.b[i] != '"' {
		c := s.b[i]

		if c == '\n' {
			return nil, i, s.syntaxErr(st, "unterminated string")
		}

		if c != '\\' {
			text = append(text, c)
			i++

			continue
		}

		if i+1 == len(s.b) {
			return nil, i, s.syntaxErr(st, "unterminated string")
		}

		switch q := s.b[i+1]; q {
		case 'n':
			text = append(text, '\n')
		case 't':
			text = append(text, '\t')
		case '"', '\\', '\'':
			text = append(text, q)
		default:
			return nil, i, s.syntaxErr(i, "bad escape sequence")
		}

		i += 2
	}

	if i == len(s.b) {
		return nil, i, s.syntaxErr(st, "unterminated string")
	}

	return &Node{Kind: Str, Text: string(text), Off: st}, i + 1, nil
}

func (s *State) readAtom(st int) (n *Node, i int, err error) {
	i = st

	for i < len(s.b) && !atomEnd(s.b[i]) {
		i++
	}

	if i == st {
		return nil, i, s.syntaxErr(i, "unexpected "+strconv.QuoteRune(rune(s.b[i])))
	}

	return &Node{Kind: Atom, Text: string(s.b[st:i]), Off: st}, i, nil
}

func (s *State) readPos(st int) (p src.Pos, i int, err error) {
	i = st

	num := func() (x int, err error) {
		j := i

		for i < len(s.b) && s.b[i] >= '0' && s.b[i] <= '9' {
			i++
		}

		if j == i {
			return 0, s.syntaxErr(i, "position expected")
		}

		return strconv.Atoi(string(s.b[j:i]))
	}

	p.Line, err = num()
	if err != nil {
		return p, i, err
	}

	if i == len(s.b) || s.b[i] != ':' {
		return p, i, s.syntaxErr(i, "':' expected in position")
	}

	i++

	p.Col, err = num()

	return p, i, err
}

func atomEnd(c byte) bool {
	return SpaceAll.Is(c) || c == '(' || c == ')' || c == '"' || c == '@' || c == ';'
}

func (n *Node) String() string {
	return string(n.AppendText(nil))
}

// AppendText renders the datum back without position annotations.
func (n *Node) AppendText(b []byte) []byte {
	switch n.Kind {
	case Str:
		return strconv.AppendQuote(b, n.Text)
	case List:
		b = append(b, '(')

		for j, x := range n.Items {
			if j != 0 {
				b = append(b, ' ')
			}

			b = x.AppendText(b)
		}

		return append(b, ')')
	default:
		return append(b, n.Text...)
	}
}

func (n *Node) IsAtom(text string) bool {
	return n.Kind == Atom && n.Text == text
}

// Head is the leading atom of a list, or "".
func (n *Node) Head() string {
	if n.Kind != List || len(n.Items) == 0 || n.Items[0].Kind != Atom {
		return ""
	}

	return n.Items[0].Text
}

// Position is the first annotation found on the node, its head, or its items.
func (n *Node) Position() src.Pos {
	if !n.Pos.IsZero() {
		return n.Pos
	}

	for _, x := range n.Items {
		if p := x.Position(); !p.IsZero() {
			return p
		}
	}

	return src.Pos{}
}

func appendWhere(b []byte, name string, line, col int) []byte {
	return hfmt.Appendf(b, "%s:%d:%d", name, line, col)
}
