package symtab

import (
	"fmt"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/loc"

	"github.com/slowlang/simplec/compiler/src"
	"github.com/slowlang/simplec/compiler/tp"
)

type (
	ScopeID int

	ScopeKind int8

	Kind int8

	Symbol struct {
		Name string
		Pos  src.Pos
		Kind Kind

		Type   tp.Type
		Result tp.Type   // methods only, tp.Void for void methods
		Params []tp.Type // methods only

		Global bool

		// Frame is the size in bytes of a method's frame: parameters and every local.
		Frame int

		offset    int
		offsetSet bool
	}

	Scope struct {
		Parent ScopeID
		Kind   ScopeKind

		names map[string]int
		syms  []*Symbol
	}

	// Table is an arena of scopes. Scopes refer to their parents by ScopeID,
	// so the whole tree is owned by the Table.
	Table struct {
		scopes []Scope
	}

	AlreadyDeclaredError struct {
		Name string
		Pos  src.Pos
		Prev *Symbol
	}
)

const (
	NoScope ScopeID = -1
	Global  ScopeID = 0
)

const (
	ScopeGlobal ScopeKind = iota
	ScopeMethod
	ScopeBlock
)

const (
	Var Kind = iota
	Method
)

// EntryName is the name of the program entry method.
// Its presence is checked once after name resolution instead of at each use.
const EntryName = "main"

func IsEntry(name string) bool { return name == EntryName }

func New() *Table {
	t := &Table{}

	t.scopes = append(t.scopes, Scope{
		Parent: NoScope,
		Kind:   ScopeGlobal,
		names:  map[string]int{},
	})

	return t
}

func (t *Table) Open(parent ScopeID, kind ScopeKind) ScopeID {
	t.check(parent)

	id := ScopeID(len(t.scopes))

	t.scopes = append(t.scopes, Scope{
		Parent: parent,
		Kind:   kind,
		names:  map[string]int{},
	})

	return id
}

// Declare adds name to scope s.
// A name already declared in the same scope is left bound to its first Symbol
// and *AlreadyDeclaredError is returned.
func (t *Table) Declare(s ScopeID, name string, pos src.Pos) (*Symbol, error) {
	t.check(s)

	sc := &t.scopes[s]

	if i, ok := sc.names[name]; ok {
		return nil, &AlreadyDeclaredError{
			Name: name,
			Pos:  pos,
			Prev: sc.syms[i],
		}
	}

	sym := &Symbol{
		Name:   name,
		Pos:    pos,
		Global: s == Global,
	}

	sc.names[name] = len(sc.syms)
	sc.syms = append(sc.syms, sym)

	return sym, nil
}

// Lookup finds the nearest declaration of name visible from scope s.
func (t *Table) Lookup(s ScopeID, name string) (*Symbol, bool) {
	for s != NoScope {
		if sym, ok := t.Local(s, name); ok {
			return sym, true
		}

		s = t.scopes[s].Parent
	}

	return nil, false
}

func (t *Table) Local(s ScopeID, name string) (*Symbol, bool) {
	t.check(s)

	sc := &t.scopes[s]

	i, ok := sc.names[name]
	if !ok {
		return nil, false
	}

	return sc.syms[i], true
}

func (t *Table) Parent(s ScopeID) ScopeID {
	t.check(s)

	return t.scopes[s].Parent
}

func (t *Table) Kind(s ScopeID) ScopeKind {
	t.check(s)

	return t.scopes[s].Kind
}

// Symbols returns the symbols of s in declaration order.
func (t *Table) Symbols(s ScopeID) []*Symbol {
	t.check(s)

	return t.scopes[s].syms
}

func (t *Table) Len() int { return len(t.scopes) }

// Depth is the number of ancestors of s.
func (t *Table) Depth(s ScopeID) (d int) {
	for s = t.Parent(s); s != NoScope; s = t.Parent(s) {
		d++
	}

	return d
}

func (t *Table) check(s ScopeID) {
	if s < 0 || int(s) >= len(t.scopes) {
		panic(errors.New("bad scope %d (of %d) at %v", s, len(t.scopes), loc.Caller(2)))
	}
}

// AppendDump renders every scope with its symbols.
func (t *Table) AppendDump(b []byte) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"

	for id := range t.scopes {
		s := ScopeID(id)
		d := t.Depth(s)

		b = hfmt.Appendf(b, "Namespace %d (%v):\n", id, t.scopes[id].Kind)

		for _, sym := range t.scopes[id].syms {
			b = append(b, tabs[:min(d+1, len(tabs))]...)
			b = sym.AppendText(b)
			b = append(b, '\n')
		}
	}

	return b
}

// SetOffset assigns the storage offset. It must be called once per symbol.
func (s *Symbol) SetOffset(off int) {
	if s.offsetSet {
		panic(errors.New("offset of %v assigned twice (%d, then %d) at %v", s.Name, s.offset, off, loc.Caller(1)))
	}

	s.offset = off
	s.offsetSet = true
}

func (s *Symbol) Offset() int {
	if !s.offsetSet {
		panic(errors.New("offset of %v read before assignment at %v", s.Name, loc.Caller(1)))
	}

	return s.offset
}

func (s *Symbol) HasOffset() bool { return s.offsetSet }

func (s *Symbol) IsMethod() bool { return s.Kind == Method }

func (s *Symbol) AppendText(b []byte) []byte {
	switch s.Kind {
	case Method:
		b = hfmt.Appendf(b, "%s:\tmethod\t%v", s.Name, s.Result)

		b = append(b, " --ParamList:"...)

		for _, p := range s.Params {
			b = append(b, ' ')
			b = append(b, p.String()...)
		}
	default:
		b = hfmt.Appendf(b, "%s:\t%v", s.Name, s.Type)

		if s.offsetSet {
			b = hfmt.Appendf(b, "\toffset %d", s.offset)
		}

		if s.Global {
			b = append(b, "\tglobal"...)
		}
	}

	return b
}

func (k Kind) String() string {
	switch k {
	case Var:
		return "variable"
	case Method:
		return "method"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k ScopeKind) String() string {
	switch k {
	case ScopeGlobal:
		return "global"
	case ScopeMethod:
		return "method"
	case ScopeBlock:
		return "block"
	default:
		return fmt.Sprintf("scope(%d)", int(k))
	}
}

func (e *AlreadyDeclaredError) Error() string {
	return fmt.Sprintf("Already declared: %v", e.Name)
}
