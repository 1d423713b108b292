package back

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/simplec/compiler/asm"
	"github.com/slowlang/simplec/compiler/ast"
	"github.com/slowlang/simplec/compiler/symtab"
	"github.com/slowlang/simplec/compiler/tp"
)

type (
	// progContext is the state of one code generation run.
	progContext struct {
		asm.Program

		labels  int
		strings map[string]asm.Label

		method *ast.MethodDecl

		err error
	}
)

const (
	trueLabel    asm.Label = "_true"
	falseLabel   asm.Label = "_false"
	newlineLabel asm.Label = "_newline"

	printBoolLabel asm.Label = "_printBool"
	exitLabel      asm.Label = "_exit"
	entryLabel     asm.Label = "_main"
)

const (
	boolTrue  = -1
	boolFalse = 0
)

var arithOps = map[ast.Op]string{
	ast.Add: "add",
	ast.Sub: "sub",
	ast.Mul: "mul",
	ast.Div: "div",
	ast.And: "and",
	ast.Or:  "or",
}

var branchOps = map[ast.Op]string{
	ast.Eq: "beq",
	ast.Ne: "bne",
	ast.Lt: "blt",
	ast.Gt: "bgt",
	ast.Le: "ble",
	ast.Ge: "bge",
}

// Generate renders the assembly text of a checked program.
func Generate(ctx context.Context, prog *ast.Program) ([]byte, error) {
	p, err := Compile(ctx, prog)
	if err != nil {
		return nil, err
	}

	return p.AppendAsm(nil), nil
}

// Compile translates a checked program into an assembly program.
// prog must have passed name resolution and type checking without fatals.
func Compile(ctx context.Context, prog *ast.Program) (_ *asm.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: generate", "class", prog.Name.Name)
	defer tr.Finish("err", &err)

	p := &progContext{
		strings: map[string]asm.Label{},
	}

	p.AddData(trueLabel, "true")
	p.AddData(falseLabel, "false")
	p.AddData(newlineLabel, "\n")

	p.Emit(
		asm.Globl{Label: "main"},
		asm.Def{Label: "main"},
		asm.Move{Out: asm.S1, In: asm.SP},
	)

	for _, f := range prog.Fields() {
		p.Emit(asm.OpImm{Op: "subu", Out: asm.SP, In: asm.SP, Imm: f.Type.Type().Size()})
	}

	p.Emit(asm.J{Label: entryLabel})

	p.printBool()

	for _, m := range prog.Methods() {
		err = p.compileMethod(ctx, m)
		if err != nil {
			return nil, errors.Wrap(err, "method %v", m.Name.Name)
		}
	}

	p.Emit(
		asm.Def{Label: exitLabel},
		asm.Li{Out: asm.V0, Imm: asm.Exit},
		asm.Syscall{},
	)

	if tr.If("dump_asm") {
		tr.Printw("asm", "text", tlog.FormatNext("%s"), p.AppendAsm(nil))
	}

	return &p.Program, nil
}

// printBool replaces the boolean on top of the stack with the address of its text.
func (p *progContext) printBool() {
	done := asm.Label(printBoolLabel + "Done")

	p.Emit(asm.Def{Label: printBoolLabel})
	p.Pop(asm.T0)
	p.Emit(
		asm.La{Out: asm.T1, Label: trueLabel},
		asm.Branch{Op: "bne", In: [2]asm.Reg{asm.T0, asm.Zero}, Label: done},
		asm.La{Out: asm.T1, Label: falseLabel},
		asm.Def{Label: done},
	)
	p.Push(asm.T1)
	p.Emit(asm.Jr{In: asm.RA})
}

func (p *progContext) compileMethod(ctx context.Context, m *ast.MethodDecl) (err error) {
	sym := m.Name.Sym
	if sym == nil {
		return errors.New("method is not resolved")
	}

	if tr := tlog.SpanFromContext(ctx); tr.If("gen") {
		tr.Printw("method", "name", m.Name.Name, "frame", sym.Frame, "label", methodLabel(m.Name.Name))
	}

	p.method = m

	p.Emit(
		asm.Comment{Text: "method " + m.Name.Name},
		asm.Def{Label: methodLabel(m.Name.Name)},
	)

	p.Push(asm.FP)
	p.Push(asm.RA)
	p.Emit(asm.Move{Out: asm.FP, In: asm.SP})

	if sym.Frame > 0 {
		p.Emit(asm.OpImm{Op: "subu", Out: asm.SP, In: asm.SP, Imm: sym.Frame})
	}

	p.stmts(m.Body.Stmts)

	if m.IsVoid() {
		p.ret(false)
	}

	return p.err
}

// ret leaves the current method, keeping the returned word if value is set.
func (p *progContext) ret(value bool) {
	if value {
		p.Pop(asm.T0)
	}

	p.Emit(asm.Move{Out: asm.SP, In: asm.FP})
	p.Pop(asm.RA)
	p.Pop(asm.FP)

	if value {
		p.Push(asm.T0)
	}

	if symtab.IsEntry(p.method.Name.Name) {
		p.Emit(asm.J{Label: exitLabel})
	} else {
		p.Emit(asm.Jr{In: asm.RA})
	}
}

func (p *progContext) stmts(l ast.StmtList) {
	for _, x := range l {
		p.stmt(x)
	}
}

func (p *progContext) stmt(x ast.Stmt) {
	switch x := x.(type) {
	case *ast.Print:
		p.print(x)
	case *ast.Assign:
		p.expr(x.X)
		p.Pop(asm.T0)

		off, base := p.addr(x.LHS)
		p.Emit(asm.Sw{In: asm.T0, Off: off, Base: base})
	case *ast.If:
		end := p.label()

		p.expr(x.Cond)
		p.Pop(asm.T0)
		p.Emit(asm.Branch{Op: "beq", In: [2]asm.Reg{asm.T0, asm.Zero}, Label: end})
		p.stmts(x.Then)
		p.Emit(asm.Def{Label: end})
	case *ast.IfElse:
		els := p.label()
		end := p.label()

		p.expr(x.Cond)
		p.Pop(asm.T0)
		p.Emit(asm.Branch{Op: "beq", In: [2]asm.Reg{asm.T0, asm.Zero}, Label: els})
		p.stmts(x.Then)
		p.Emit(asm.J{Label: end}, asm.Def{Label: els})
		p.stmts(x.Else)
		p.Emit(asm.Def{Label: end})
	case *ast.While:
		top := p.label()

		p.Emit(asm.Def{Label: top})
		p.stmts(x.Body)
		p.expr(x.Cond)
		p.Pop(asm.T0)
		p.Emit(asm.Branch{Op: "bne", In: [2]asm.Reg{asm.T0, asm.Zero}, Label: top})
	case *ast.CallStmt:
		p.call(x.Call)

		if x.Call.Name.Sym.Result != tp.Void {
			p.Emit(asm.OpImm{Op: "addu", Out: asm.SP, In: asm.SP, Imm: asm.WordSize})
		}
	case *ast.Return:
		if x.X != nil {
			p.expr(x.X)
		}

		p.ret(x.X != nil)
	case *ast.Block:
		p.stmts(x.Stmts)
	default:
		p.fail(errors.New("unexpected statement: %T", x))
	}
}

func (p *progContext) print(x *ast.Print) {
	p.expr(x.X)

	code := asm.PrintString

	switch x.X.Type() {
	case tp.Int:
		code = asm.PrintInt
	case tp.Bool:
		p.Emit(asm.Jal{Label: printBoolLabel})
	case tp.String:
	default:
		p.fail(errors.New("print of %v at %v", x.X.Type(), x.Pos))
	}

	p.Pop(asm.A0)
	p.Emit(
		asm.Li{Out: asm.V0, Imm: int32(code)},
		asm.Syscall{},
		asm.La{Out: asm.A0, Label: newlineLabel},
		asm.Li{Out: asm.V0, Imm: asm.PrintString},
		asm.Syscall{},
	)
}

// expr leaves the value of x on top of the stack.
func (p *progContext) expr(x ast.Expr) {
	switch x := x.(type) {
	case *ast.IntLit:
		p.Emit(asm.Li{Out: asm.T0, Imm: x.Value})
		p.Push(asm.T0)
	case *ast.BoolLit:
		v := int32(boolFalse)
		if x.Value {
			v = boolTrue
		}

		p.Emit(asm.Li{Out: asm.T0, Imm: v})
		p.Push(asm.T0)
	case *ast.StringLit:
		p.Emit(asm.La{Out: asm.T0, Label: p.str(x.Value)})
		p.Push(asm.T0)
	case *ast.Ident:
		off, base := p.addr(x)

		p.Emit(asm.Lw{Out: asm.T0, Off: off, Base: base})
		p.Push(asm.T0)
	case *ast.Paren:
		p.expr(x.X)
	case *ast.Call:
		p.call(x)
	case *ast.Unary:
		p.expr(x.X)
		p.Pop(asm.T0)

		switch x.Op {
		case ast.Neg:
			p.Emit(asm.Op3{Op: "subu", Out: asm.T0, In: [2]asm.Reg{asm.Zero, asm.T0}})
		case ast.Not:
			p.Emit(asm.Op3{Op: "nor", Out: asm.T0, In: [2]asm.Reg{asm.T0, asm.T0}})
		default:
			p.fail(errors.New("unexpected unary operator: %v", x.Op))
		}

		p.Push(asm.T0)
	case *ast.Binary:
		p.binary(x)
	default:
		p.fail(errors.New("unexpected expression: %T", x))
	}
}

func (p *progContext) binary(x *ast.Binary) {
	p.expr(x.L)
	p.expr(x.R)

	p.Pop(asm.T1)
	p.Pop(asm.T0)

	if op, ok := arithOps[x.Op]; ok {
		p.Emit(asm.Op3{Op: op, Out: asm.T0, In: [2]asm.Reg{asm.T0, asm.T1}})
		p.Push(asm.T0)

		return
	}

	if op, ok := branchOps[x.Op]; ok {
		l := p.label()

		p.Emit(
			asm.Li{Out: asm.T2, Imm: boolTrue},
			asm.Branch{Op: op, In: [2]asm.Reg{asm.T0, asm.T1}, Label: l},
			asm.Li{Out: asm.T2, Imm: boolFalse},
			asm.Def{Label: l},
		)
		p.Push(asm.T2)

		return
	}

	if x.Op != ast.Pow {
		p.fail(errors.New("unexpected binary operator: %v", x.Op))
		return
	}

	top := p.label()
	end := p.label()

	p.Emit(
		asm.Li{Out: asm.T2, Imm: 1},
		asm.Def{Label: top},
		asm.BranchZ{Op: "blez", In: asm.T1, Label: end},
		asm.Op3{Op: "mul", Out: asm.T2, In: [2]asm.Reg{asm.T2, asm.T0}},
		asm.OpImm{Op: "subu", Out: asm.T1, In: asm.T1, Imm: 1},
		asm.J{Label: top},
		asm.Def{Label: end},
	)
	p.Push(asm.T2)
}

// call evaluates the arguments and moves them into the callee's parameter slots.
// After popping argument i the stack pointer is i words below the call site one,
// so -8($sp) is the slot the callee addresses as -4i($fp).
func (p *progContext) call(x *ast.Call) {
	for _, a := range x.Args {
		p.expr(a)
	}

	for range x.Args {
		p.Pop(asm.T0)
		p.Emit(asm.Sw{In: asm.T0, Off: -2 * asm.WordSize, Base: asm.SP})
	}

	p.Emit(asm.Jal{Label: methodLabel(x.Name.Name)})
}

func (p *progContext) addr(id *ast.Ident) (off int, base asm.Reg) {
	if id.Sym == nil {
		p.fail(errors.New("identifier %v at %v is not resolved", id.Name, id.Pos))
		return 0, asm.FP
	}

	base = asm.FP
	if id.Sym.Global {
		base = asm.S1
	}

	return -id.Sym.Offset(), base
}

// str returns the data label of a string literal, one per distinct text.
func (p *progContext) str(s string) asm.Label {
	if l, ok := p.strings[s]; ok {
		return l
	}

	l := p.label()

	p.strings[s] = l
	p.AddData(l, s)

	return l
}

func (p *progContext) label() asm.Label {
	l := asm.Label(hfmt.Appendf(nil, "_L%d", p.labels))
	p.labels++

	return l
}

func (p *progContext) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func methodLabel(name string) asm.Label {
	if symtab.IsEntry(name) {
		return entryLabel
	}

	return asm.Label("m_" + name)
}
