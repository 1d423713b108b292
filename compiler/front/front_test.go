package front

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/simplec/compiler/ast"
	"github.com/slowlang/simplec/compiler/diag"
	"github.com/slowlang/simplec/compiler/parse"
	"github.com/slowlang/simplec/compiler/symtab"
	"github.com/slowlang/simplec/compiler/tp"
)

func analyze(t *testing.T, text string) (*ast.Program, *symtab.Table, *diag.Sink) {
	t.Helper()

	ctx := context.Background()

	p, err := parse.Parse(ctx, []byte(text))
	require.NoError(t, err)

	sink := diag.New()

	tab, err := Resolve(ctx, p, sink)
	require.NoError(t, err)

	err = Check(ctx, p, sink)
	require.NoError(t, err)

	return p, tab, sink
}

func messages(s *diag.Sink) (l []string) {
	for _, d := range s.Sorted() {
		l = append(l, d.String())
	}

	return l
}

const mainVoid = `(method void main () (return))`

func TestWellTyped(t *testing.T) {
	t.Parallel()

	_, _, sink := analyze(t, `(program P
  (field int total)
  (field String name)
  (method int sq ((int x)) (return (* x x)))
  (method boolean even ((int x)) (return (== (- x (* (/ x 2) 2)) 0)))
  (method void main ()
    (var int i)
    (var boolean done)
    (assign i 0)
    (assign name "n")
    (while (< i 10) ((assign total (+ total (call sq i))) (assign i (+ i 1))))
    (if (&& (call even total) (! (!= name "m"))) ((print total)) ((print name)))
    (assign done (|| (>= i 10) (<= (neg i) (** 2 3))))
    (print done)
    (block (var int i) (assign i 5) (print (paren i)))
    (call sq 3)))`)

	assert.Empty(t, messages(sink))
	assert.Equal(t, 0, sink.Errors())
	assert.Equal(t, 0, sink.Warnings())
}

func TestShadowing(t *testing.T) {
	t.Parallel()

	p, _, sink := analyze(t, `(program P
  (field int x)
  (method void main ()
    (var boolean x)
    (assign x true)
    (block (var String x) (assign x "s"))
    (assign x false)))`)

	assert.Empty(t, messages(sink))

	m := p.Methods()[0]
	field := p.Fields()[0].Name.Sym
	local := m.Body.Decls[0].Name.Sym

	a0 := m.Body.Stmts[0].(*ast.Assign)
	blk := m.Body.Stmts[1].(*ast.Block)
	a1 := blk.Stmts[0].(*ast.Assign)
	a2 := m.Body.Stmts[2].(*ast.Assign)

	assert.Same(t, local, a0.LHS.Sym)
	assert.Same(t, blk.Decls[0].Name.Sym, a1.LHS.Sym)
	assert.Same(t, local, a2.LHS.Sym)
	assert.NotSame(t, field, a0.LHS.Sym)

	assert.True(t, field.Global)
	assert.False(t, local.Global)
	assert.Equal(t, tp.String, a1.LHS.Type())
}

func TestDuplicateDeclaration(t *testing.T) {
	t.Parallel()

	p, _, sink := analyze(t, `(program P
  (method void main ()
    (var int a@2:9)
    (var boolean a@3:13)
    (assign a 1)))`)

	assert.Equal(t, []string{"3:13 **ERROR** Already declared: a"}, messages(sink))

	m := p.Methods()[0]
	first := m.Body.Decls[0].Name.Sym

	assert.Same(t, first, m.Body.Stmts[0].(*ast.Assign).LHS.Sym)
	assert.Nil(t, m.Body.Decls[1].Name.Sym)
	assert.Equal(t, 4, m.Name.Sym.Frame, "duplicate takes no space")
}

func TestDuplicateMethod(t *testing.T) {
	t.Parallel()

	_, _, sink := analyze(t, `(program P
  (method void f@1:14 ())
  (method int f@2:13 () (return 1))
  `+mainVoid+`)`)

	assert.Equal(t, []string{"2:13 **ERROR** Already declared: f"}, messages(sink))
}

func TestUndeclared(t *testing.T) {
	t.Parallel()

	_, _, sink := analyze(t, `(program P
  (method void main ()
    (var int a)
    (assign a (+ b@3:15 1))
    (print (call g@4:17))))`)

	assert.Equal(t, []string{
		"3:15 **ERROR** Variable was not declared: b",
		"4:17 **ERROR** Variable was not declared: g",
	}, messages(sink))
}

func TestForwardReferenceIsUndeclared(t *testing.T) {
	t.Parallel()

	_, _, sink := analyze(t, `(program P
  (method void main () (call later@2:30))
  (method void later ()))`)

	assert.Equal(t, []string{"2:30 **ERROR** Variable was not declared: later"}, messages(sink))
}

func TestEntryUsedBeforeDeclared(t *testing.T) {
	t.Parallel()

	p, _, sink := analyze(t, `(program P
  (method void f () (call main))
  `+mainVoid+`)`)

	assert.Empty(t, messages(sink))

	c := p.Methods()[0].Body.Stmts[0].(*ast.CallStmt)
	assert.Same(t, p.Methods()[1].Name.Sym, c.Call.Name.Sym)
	assert.False(t, c.Call.Name.Unresolved)
}

func TestMissingEntry(t *testing.T) {
	t.Parallel()

	_, _, sink := analyze(t, `(program P
  (method void f () (call main) (assign q@2:33 1)))`)

	assert.Equal(t, []string{
		"0:0 **ERROR** No main method declared",
		"2:33 **ERROR** Variable was not declared: q",
	}, messages(sink))
}

func TestMissingEntryOnly(t *testing.T) {
	t.Parallel()

	_, _, sink := analyze(t, `(program P (method void f ()))`)

	assert.Equal(t, []string{"0:0 **ERROR** No main method declared"}, messages(sink))
}

func TestMissingReturn(t *testing.T) {
	t.Parallel()

	_, _, sink := analyze(t, `(program P
  (method boolean f@2:19 ())
  `+mainVoid+`)`)

	assert.Equal(t, []string{"2:19 **ERROR** Missing return statement in method f"}, messages(sink))
}

func TestReturnPaths(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name  string
		body  string
		fatal int
	}{
		{"plain", `(return 1)`, 0},
		{"if_else_both", `(if true ((return 1)) ((return 2)))`, 0},
		{"if_else_one", `(if true ((return 1)) ((print 2)))`, 1},
		{"if_only", `(if true ((return 1)))`, 1},
		{"if_then_tail", `(if true ((return 1))) (return 2)`, 0},
		{"while_body", `(while false ((return 1)))`, 0},
		{"block", `(block (var int a) (assign a 1) (return a))`, 0},
		{"nested", `(block (if false ((block (return 1))) ((while true ((return 2))))))`, 0},
		{"empty", ``, 1},
	} {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, _, sink := analyze(t, `(program P (method int f () `+tc.body+`) `+mainVoid+`)`)

			assert.Equal(t, tc.fatal, sink.Errors(), "%v", messages(sink))

			if tc.fatal != 0 {
				assert.Contains(t, messages(sink)[0], "Missing return statement in method f")
			}
		})
	}
}

func TestUnreachable(t *testing.T) {
	t.Parallel()

	_, _, sink := analyze(t, `(program P
  (method int f ()
    (return 1)
    (print@4:5 2)
    (print 3))
  `+mainVoid+`)`)

	assert.Equal(t, 0, sink.Errors())
	assert.Equal(t, []string{"4:5 **WARNING** Unreachable statement"}, messages(sink))
}

func TestAssignMismatch(t *testing.T) {
	t.Parallel()

	p, _, sink := analyze(t, `(program P
  (field int x)
  (field boolean y)
  (method void main () (assign@4:24 x y)))`)

	assert.Equal(t, []string{"4:24 **ERROR** Assign type mismatch -- expected: int | provided: boolean"}, messages(sink))
	assert.Equal(t, 8, p.GlobalSize)
}

func TestOperatorMismatch(t *testing.T) {
	t.Parallel()

	_, _, sink := analyze(t, `(program P
  (method void main ()
    (var int i)
    (var boolean b)
    (var String s)
    (assign i (+@5:17 b s))
    (assign b (&&@6:17 i true))
    (assign b (==@7:17 i b))
    (assign i (neg@8:15 b))
    (assign b (!@9:15 s))
    (assign b (<@10:17 i s))))`)

	assert.Equal(t, []string{
		"5:17 **ERROR** Non-Integer expression applied to left side of Plus operator, provided boolean",
		"5:17 **ERROR** Non-Integer expression applied to right side of Plus operator, provided String",
		"6:17 **ERROR** Non-Boolean expression applied to left side of And operator, provided int",
		"7:17 **ERROR** Type mismatch at Equal operator: int vs boolean",
		"8:15 **ERROR** Non-Integer expression applied to unary minus, provided boolean",
		"9:15 **ERROR** Non-Boolean expression applied to not operator, provided String",
		"10:17 **ERROR** Non-Integer expression applied to right side of Less operator, provided String",
	}, messages(sink))
}

func TestErrorDoesNotCascade(t *testing.T) {
	t.Parallel()

	_, _, sink := analyze(t, `(program P
  (method void main ()
    (var int i)
    (assign i (+ (* u@3:20 2) (neg (paren u@3:35))))
    (if (< (+ u@4:16 1) 2) ((print (== u@4:33 "s"))))
    (assign i (+ (&&@5:18 i true) 1))))`)

	assert.Equal(t, []string{
		"3:20 **ERROR** Variable was not declared: u",
		"3:35 **ERROR** Variable was not declared: u",
		"4:16 **ERROR** Variable was not declared: u",
		"4:33 **ERROR** Variable was not declared: u",
	}, messages(sink)[:4])

	assert.Equal(t, 5, sink.Errors(), "only the And operand is a new mismatch")
}

func TestCallArity(t *testing.T) {
	t.Parallel()

	p, _, sink := analyze(t, `(program P
  (method int g ((int a)) (return a))
  (method void main () (var int r) (assign r (call@3:46 g 1 2))))`)

	assert.Equal(t, []string{"3:46 **ERROR** Wrong amount of parameters for method g -- expected: 1 | provided: 2"}, messages(sink))

	a := p.Methods()[1].Body.Stmts[0].(*ast.Assign)
	assert.Equal(t, tp.Error, a.X.Type())
}

func TestCallParams(t *testing.T) {
	t.Parallel()

	p, _, sink := analyze(t, `(program P
  (field int x)
  (method int g ((int a) (boolean b)) (return a))
  (method void main ()
    (call g true@5:13 false)
    (call x@6:11)
    (print (call g 1 true))))`)

	assert.Equal(t, []string{
		"5:13 **ERROR** Parameter type mismatch for method call g -- expected: int | provided: boolean",
		"6:11 **ERROR** x is not a method",
	}, messages(sink))

	pr := p.Methods()[1].Body.Stmts[2].(*ast.Print)
	assert.Equal(t, tp.Int, pr.X.Type())

	cs := p.Methods()[1].Body.Stmts[0].(*ast.CallStmt)
	assert.Equal(t, tp.Error, cs.Call.Type())
}

func TestMethodMisuse(t *testing.T) {
	t.Parallel()

	_, _, sink := analyze(t, `(program P
  (method void v ())
  (method void main ()
    (var int i)
    (assign@5:5 v 1)
    (assign i (+ v@6:18 1))
    (print@7:5 (call v))
    (if@8:5 (call v) ())
    (while@9:5 1 ())
    (return@10:5 1)))`)

	assert.Equal(t, []string{
		"5:5 **ERROR** Cannot assign to method v",
		"6:18 **ERROR** Method v used as a value",
		"7:5 **ERROR** Cannot print expression of type void",
		"8:5 **ERROR** If condition -- expected: boolean | provided: void",
		"9:5 **ERROR** While condition -- expected: boolean | provided: int",
		"10:5 **ERROR** Return type mismatch: expected void | provided int",
	}, messages(sink))
}

func TestReturnMismatch(t *testing.T) {
	t.Parallel()

	_, _, sink := analyze(t, `(program P
  (method int f () (return@2:20 true))
  (method String g () (return@3:23))
  `+mainVoid+`)`)

	assert.Equal(t, []string{
		"2:20 **ERROR** Return type mismatch: expected int | provided boolean",
		"3:23 **ERROR** Return type mismatch: expected String | provided void",
	}, messages(sink))
}

func TestOffsets(t *testing.T) {
	t.Parallel()

	p, _, sink := analyze(t, `(program P
  (field int a)
  (method int f ((int x) (boolean y))
    (var int l1)
    (var String l2)
    (block (var int b1) (block (var int b2) (assign b2 1)))
    (block (var int b3) (assign b3 1))
    (return x))
  (field int b)
  `+mainVoid+`)`)

	require.Empty(t, messages(sink))

	fs := p.Fields()
	assert.Equal(t, 0, fs[0].Name.Sym.Offset())
	assert.Equal(t, 4, fs[1].Name.Sym.Offset())
	assert.Equal(t, 8, p.GlobalSize)

	f := p.Methods()[0]

	var offs []int

	for _, x := range f.Formals {
		offs = append(offs, x.Name.Sym.Offset())
	}

	for _, v := range f.Body.Decls {
		offs = append(offs, v.Name.Sym.Offset())
	}

	b0 := f.Body.Stmts[0].(*ast.Block)
	b1 := b0.Stmts[0].(*ast.Block)
	b2 := f.Body.Stmts[1].(*ast.Block)

	offs = append(offs, b0.Decls[0].Name.Sym.Offset(), b1.Decls[0].Name.Sym.Offset(), b2.Decls[0].Name.Sym.Offset())

	assert.Equal(t, []int{0, 4, 8, 12, 16, 20, 24}, offs)
	assert.Equal(t, 28, f.Name.Sym.Frame)

	entry := p.Methods()[1]
	assert.Equal(t, 0, entry.Name.Sym.Frame)
}

func TestMethodSymbol(t *testing.T) {
	t.Parallel()

	_, tab, sink := analyze(t, `(program P
  (method boolean f ((int a) (String s)) (return true))
  `+mainVoid+`)`)

	require.Empty(t, messages(sink))

	f, ok := tab.Lookup(symtab.Global, "f")
	require.True(t, ok)

	assert.True(t, f.IsMethod())
	assert.Equal(t, tp.Bool, f.Result)
	assert.Equal(t, []tp.Type{tp.Int, tp.String}, f.Params)

	m, ok := tab.Lookup(symtab.Global, "main")
	require.True(t, ok)
	assert.Equal(t, tp.Void, m.Result)
}
