package asm

import (
	"github.com/nikandfor/hacked/hfmt"
)

type (
	Reg   int8
	Label string

	// Program is an assembly unit for a SPIM-style MIPS machine.
	Program struct {
		Data []Data
		Text []Instr
	}

	Data struct {
		Label Label
		Str   string
	}

	Instr interface {
		AppendAsm(b []byte) []byte
	}

	// Def defines a label at the current position.
	Def struct {
		Label Label
	}

	Globl struct {
		Label Label
	}

	Comment struct {
		Text string
	}

	Li struct {
		Out Reg
		Imm int32
	}

	La struct {
		Out   Reg
		Label Label
	}

	Move struct {
		Out Reg
		In  Reg
	}

	// Lw loads the word at Off(Base).
	Lw struct {
		Out  Reg
		Off  int
		Base Reg
	}

	// Sw stores In at Off(Base).
	Sw struct {
		In   Reg
		Off  int
		Base Reg
	}

	// Op3 is a three register instruction: add, sub, mul, div, and, or, nor.
	Op3 struct {
		Op  string
		Out Reg
		In  [2]Reg
	}

	// OpImm is a register and immediate instruction: addu, subu.
	OpImm struct {
		Op  string
		Out Reg
		In  Reg
		Imm int
	}

	// Branch compares two registers: beq, bne, blt, bgt, ble, bge.
	Branch struct {
		Op    string
		In    [2]Reg
		Label Label
	}

	// BranchZ compares a register with zero: blez.
	BranchZ struct {
		Op    string
		In    Reg
		Label Label
	}

	J struct {
		Label Label
	}

	Jal struct {
		Label Label
	}

	Jr struct {
		In Reg
	}

	Syscall struct{}
)

const (
	Zero Reg = iota
	V0
	A0
	T0
	T1
	T2
	S1
	SP
	FP
	RA
)

// Syscall codes.
const (
	PrintInt    = 1
	PrintString = 4
	Exit        = 10
)

// WordSize is the size of every stack slot.
const WordSize = 4

var regNames = [...]string{
	Zero: "$zero",
	V0:   "$v0",
	A0:   "$a0",
	T0:   "$t0",
	T1:   "$t1",
	T2:   "$t2",
	S1:   "$s1",
	SP:   "$sp",
	FP:   "$fp",
	RA:   "$ra",
}

func (p *Program) Emit(x ...Instr) {
	p.Text = append(p.Text, x...)
}

// Push stores r on top of the stack.
func (p *Program) Push(r Reg) {
	p.Emit(
		Sw{In: r, Off: 0, Base: SP},
		OpImm{Op: "subu", Out: SP, In: SP, Imm: WordSize},
	)
}

// Pop loads the top of the stack into r.
func (p *Program) Pop(r Reg) {
	p.Emit(
		Lw{Out: r, Off: WordSize, Base: SP},
		OpImm{Op: "addu", Out: SP, In: SP, Imm: WordSize},
	)
}

func (p *Program) AddData(l Label, s string) {
	p.Data = append(p.Data, Data{Label: l, Str: s})
}

func (p *Program) AppendAsm(b []byte) []byte {
	b = p.AppendData(b)
	b = p.AppendText(b)

	return b
}

func (p *Program) AppendData(b []byte) []byte {
	b = append(b, "\t.data\n"...)

	for _, d := range p.Data {
		b = hfmt.Appendf(b, "%s:\t.asciiz\t", d.Label)
		b = AppendQuote(b, d.Str)
		b = append(b, '\n')
	}

	return b
}

func (p *Program) AppendText(b []byte) []byte {
	b = append(b, "\t.text\n"...)

	for _, x := range p.Text {
		b = x.AppendAsm(b)
		b = append(b, '\n')
	}

	return b
}

func (x Def) AppendAsm(b []byte) []byte {
	return hfmt.Appendf(b, "%s:", x.Label)
}

func (x Globl) AppendAsm(b []byte) []byte {
	return hfmt.Appendf(b, "\t.globl %s", x.Label)
}

func (x Comment) AppendAsm(b []byte) []byte {
	return hfmt.Appendf(b, "\t# %s", x.Text)
}

func (x Li) AppendAsm(b []byte) []byte {
	return hfmt.Appendf(b, "\tli %s, %d", x.Out, x.Imm)
}

func (x La) AppendAsm(b []byte) []byte {
	return hfmt.Appendf(b, "\tla %s, %s", x.Out, x.Label)
}

func (x Move) AppendAsm(b []byte) []byte {
	return hfmt.Appendf(b, "\tmove %s, %s", x.Out, x.In)
}

func (x Lw) AppendAsm(b []byte) []byte {
	return hfmt.Appendf(b, "\tlw %s, %d(%s)", x.Out, x.Off, x.Base)
}

func (x Sw) AppendAsm(b []byte) []byte {
	return hfmt.Appendf(b, "\tsw %s, %d(%s)", x.In, x.Off, x.Base)
}

func (x Op3) AppendAsm(b []byte) []byte {
	return hfmt.Appendf(b, "\t%s %s, %s, %s", x.Op, x.Out, x.In[0], x.In[1])
}

func (x OpImm) AppendAsm(b []byte) []byte {
	return hfmt.Appendf(b, "\t%s %s, %s, %d", x.Op, x.Out, x.In, x.Imm)
}

func (x Branch) AppendAsm(b []byte) []byte {
	return hfmt.Appendf(b, "\t%s %s, %s, %s", x.Op, x.In[0], x.In[1], x.Label)
}

func (x BranchZ) AppendAsm(b []byte) []byte {
	return hfmt.Appendf(b, "\t%s %s, %s", x.Op, x.In, x.Label)
}

func (x J) AppendAsm(b []byte) []byte {
	return hfmt.Appendf(b, "\tj %s", x.Label)
}

func (x Jal) AppendAsm(b []byte) []byte {
	return hfmt.Appendf(b, "\tjal %s", x.Label)
}

func (x Jr) AppendAsm(b []byte) []byte {
	return hfmt.Appendf(b, "\tjr %s", x.In)
}

func (Syscall) AppendAsm(b []byte) []byte {
	return append(b, "\tsyscall"...)
}

func (r Reg) String() string {
	if int(r) < len(regNames) && regNames[r] != "" {
		return regNames[r]
	}

	return "$?"
}

// AppendQuote renders s as an .asciiz string literal.
func AppendQuote(b []byte, s string) []byte {
	b = append(b, '"')

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			b = append(b, '\\', c)
		case '\n':
			b = append(b, '\\', 'n')
		case '\t':
			b = append(b, '\\', 't')
		default:
			b = append(b, c)
		}
	}

	return append(b, '"')
}
