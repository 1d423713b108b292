package ast

import (
	"github.com/slowlang/simplec/compiler/src"
	"github.com/slowlang/simplec/compiler/symtab"
	"github.com/slowlang/simplec/compiler/tp"
)

type (
	Node interface {
		Position() src.Pos
	}

	Decl interface {
		Node
		declNode()
	}

	Stmt interface {
		Node
		stmtNode()
	}

	Expr interface {
		Node
		exprNode()

		Type() tp.Type
		SetType(tp.Type)
	}

	TypeNode interface {
		Node
		typeNode()

		Type() tp.Type
	}

	Base struct {
		Pos src.Pos
	}

	// ExprBase holds the type computed by the checker.
	ExprBase struct {
		Base `tlog:",embed"`

		T tp.Type
	}

	// Containers.

	Program struct {
		Base `tlog:",embed"`

		Name *Ident
		Body *ClassBody

		// GlobalSize is the size of the field region, set by the checker.
		GlobalSize int
	}

	ClassBody struct {
		Base `tlog:",embed"`

		Decls DeclList
	}

	DeclList []Decl

	FormalsList []*FormalDecl

	MethodBody struct {
		Base `tlog:",embed"`

		Decls []*VarDecl
		Stmts StmtList
	}

	StmtList []Stmt

	ExpList []Expr

	// Declarations.

	FieldDecl struct {
		Base `tlog:",embed"`

		Type TypeNode
		Name *Ident
	}

	VarDecl struct {
		Base `tlog:",embed"`

		Type TypeNode
		Name *Ident
	}

	FormalDecl struct {
		Base `tlog:",embed"`

		Type TypeNode
		Name *Ident
	}

	MethodDecl struct {
		Base `tlog:",embed"`

		Result  TypeNode // *Void for void methods
		Name    *Ident
		Formals FormalsList
		Body    *MethodBody

		Scope symtab.ScopeID
	}

	// Types.

	Int    struct{ Base }
	Bool   struct{ Base }
	String struct{ Base }
	Void   struct{ Base }

	// Statements.

	Print struct {
		Base `tlog:",embed"`

		X Expr
	}

	Assign struct {
		Base `tlog:",embed"`

		LHS *Ident
		X   Expr
	}

	If struct {
		Base `tlog:",embed"`

		Cond Expr
		Then StmtList
	}

	IfElse struct {
		Base `tlog:",embed"`

		Cond Expr
		Then StmtList
		Else StmtList
	}

	// While is post-tested: the body runs once before Cond is evaluated.
	While struct {
		Base `tlog:",embed"`

		Cond Expr
		Body StmtList
	}

	CallStmt struct {
		Base `tlog:",embed"`

		Call *Call
	}

	Return struct {
		Base `tlog:",embed"`

		X Expr // nil for a bare return
	}

	Block struct {
		Base `tlog:",embed"`

		Decls []*VarDecl
		Stmts StmtList

		Scope symtab.ScopeID
	}

	// Expressions.

	IntLit struct {
		ExprBase `tlog:",embed"`

		Value int32
	}

	StringLit struct {
		ExprBase `tlog:",embed"`

		Value string
	}

	BoolLit struct {
		ExprBase `tlog:",embed"`

		Value bool
	}

	Ident struct {
		ExprBase `tlog:",embed"`

		Name string

		Sym        *symtab.Symbol
		Unresolved bool
	}

	Call struct {
		ExprBase `tlog:",embed"`

		Name *Ident
		Args ExpList
	}

	Paren struct {
		ExprBase `tlog:",embed"`

		X Expr
	}

	Unary struct {
		ExprBase `tlog:",embed"`

		Op Op
		X  Expr
	}

	Binary struct {
		ExprBase `tlog:",embed"`

		Op   Op
		L, R Expr
	}

	Op int8
)

const (
	_ Op = iota

	Neg
	Not

	Add
	Sub
	Mul
	Div
	Pow
	And
	Or
	Eq
	Ne
	Lt
	Gt
	Le
	Ge
)

var opNames = [...]string{
	Neg: "-",
	Not: "!",
	Add: "+",
	Sub: "-",
	Mul: "*",
	Div: "/",
	Pow: "**",
	And: "&&",
	Or:  "||",
	Eq:  "==",
	Ne:  "!=",
	Lt:  "<",
	Gt:  ">",
	Le:  "<=",
	Ge:  ">=",
}

var opWords = [...]string{
	Neg: "Unary Minus",
	Not: "Not",
	Add: "Plus",
	Sub: "Minus",
	Mul: "Multiplication",
	Div: "Division",
	Pow: "Potentiation",
	And: "And",
	Or:  "Or",
	Eq:  "Equal",
	Ne:  "NotEqual",
	Lt:  "Less",
	Gt:  "Greater",
	Le:  "LessEqual",
	Ge:  "GreaterEqual",
}

func (b Base) Position() src.Pos { return b.Pos }

func (x *ExprBase) Type() tp.Type     { return x.T }
func (x *ExprBase) SetType(t tp.Type) { x.T = t }

func (*FieldDecl) declNode()  {}
func (*VarDecl) declNode()    {}
func (*FormalDecl) declNode() {}
func (*MethodDecl) declNode() {}

func (*Int) typeNode()    {}
func (*Bool) typeNode()   {}
func (*String) typeNode() {}
func (*Void) typeNode()   {}

func (*Int) Type() tp.Type    { return tp.Int }
func (*Bool) Type() tp.Type   { return tp.Bool }
func (*String) Type() tp.Type { return tp.String }
func (*Void) Type() tp.Type   { return tp.Void }

func (*Print) stmtNode()    {}
func (*Assign) stmtNode()   {}
func (*If) stmtNode()       {}
func (*IfElse) stmtNode()   {}
func (*While) stmtNode()    {}
func (*CallStmt) stmtNode() {}
func (*Return) stmtNode()   {}
func (*Block) stmtNode()    {}

func (*IntLit) exprNode()    {}
func (*StringLit) exprNode() {}
func (*BoolLit) exprNode()   {}
func (*Ident) exprNode()     {}
func (*Call) exprNode()      {}
func (*Paren) exprNode()     {}
func (*Unary) exprNode()     {}
func (*Binary) exprNode()    {}

// Methods returns the method declarations of the class in declaration order.
func (p *Program) Methods() (ms []*MethodDecl) {
	for _, d := range p.Body.Decls {
		if m, ok := d.(*MethodDecl); ok {
			ms = append(ms, m)
		}
	}

	return ms
}

// Fields returns the field declarations of the class in declaration order.
func (p *Program) Fields() (fs []*FieldDecl) {
	for _, d := range p.Body.Decls {
		if f, ok := d.(*FieldDecl); ok {
			fs = append(fs, f)
		}
	}

	return fs
}

func (m *MethodDecl) IsVoid() bool {
	_, ok := m.Result.(*Void)
	return ok
}

// String is the source spelling of the operator.
func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}

	return "op?"
}

// Word names the operator in diagnostics.
func (op Op) Word() string {
	if int(op) < len(opWords) && opWords[op] != "" {
		return opWords[op]
	}

	return "Unknown"
}

func (op Op) IsArith() bool      { return op == Add || op == Sub || op == Mul || op == Div || op == Pow }
func (op Op) IsRelational() bool { return op == Lt || op == Gt || op == Le || op == Ge }
func (op Op) IsLogical() bool    { return op == And || op == Or }
func (op Op) IsEquality() bool   { return op == Eq || op == Ne }
