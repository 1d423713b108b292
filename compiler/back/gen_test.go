package back

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/simplec/compiler/diag"
	"github.com/slowlang/simplec/compiler/front"
	"github.com/slowlang/simplec/compiler/parse"
)

var (
	push0 = []string{"\tsw $t0, 0($sp)", "\tsubu $sp, $sp, 4"}
	pop0  = []string{"\tlw $t0, 4($sp)", "\taddu $sp, $sp, 4"}
	pop1  = []string{"\tlw $t1, 4($sp)", "\taddu $sp, $sp, 4"}
	push2 = []string{"\tsw $t2, 0($sp)", "\tsubu $sp, $sp, 4"}

	leave = []string{
		"\tmove $sp, $fp",
		"\tlw $ra, 4($sp)",
		"\taddu $sp, $sp, 4",
		"\tlw $fp, 4($sp)",
		"\taddu $sp, $sp, 4",
	}
)

func generate(t *testing.T, text string) string {
	t.Helper()

	ctx := context.Background()

	p, err := parse.Parse(ctx, []byte(text))
	require.NoError(t, err)

	sink := diag.New()

	_, err = front.Resolve(ctx, p, sink)
	require.NoError(t, err)

	err = front.Check(ctx, p, sink)
	require.NoError(t, err)
	require.Equal(t, 0, sink.Errors(), "%v", sink.All())

	b, err := Generate(ctx, p)
	require.NoError(t, err)

	return string(b)
}

func lines(parts ...[]string) string {
	var l []string

	for _, p := range parts {
		l = append(l, p...)
	}

	return strings.Join(l, "\n") + "\n"
}

func seq(l ...string) []string { return l }

func TestPrintSum(t *testing.T) {
	t.Parallel()

	text := generate(t, `(program P (method void main () (print (+ 1 2))))`)

	exp := lines(
		seq(
			"\t.data",
			"_true:\t.asciiz\t\"true\"",
			"_false:\t.asciiz\t\"false\"",
			"_newline:\t.asciiz\t\"\\n\"",
			"\t.text",
			"\t.globl main",
			"main:",
			"\tmove $s1, $sp",
			"\tj _main",
			"_printBool:",
		),
		pop0,
		seq(
			"\tla $t1, _true",
			"\tbne $t0, $zero, _printBoolDone",
			"\tla $t1, _false",
			"_printBoolDone:",
			"\tsw $t1, 0($sp)",
			"\tsubu $sp, $sp, 4",
			"\tjr $ra",
			"\t# method main",
			"_main:",
			"\tsw $fp, 0($sp)",
			"\tsubu $sp, $sp, 4",
			"\tsw $ra, 0($sp)",
			"\tsubu $sp, $sp, 4",
			"\tmove $fp, $sp",
			"\tli $t0, 1",
		),
		push0,
		seq("\tli $t0, 2"),
		push0,
		pop1,
		pop0,
		seq("\tadd $t0, $t0, $t1"),
		push0,
		seq(
			"\tlw $a0, 4($sp)",
			"\taddu $sp, $sp, 4",
			"\tli $v0, 1",
			"\tsyscall",
			"\tla $a0, _newline",
			"\tli $v0, 4",
			"\tsyscall",
		),
		leave,
		seq(
			"\tj _exit",
			"_exit:",
			"\tli $v0, 10",
			"\tsyscall",
		),
	)

	assert.Equal(t, exp, text)
}

func TestReturnSequence(t *testing.T) {
	t.Parallel()

	text := generate(t, `(program P
  (method int f () (return 1))
  (method void main () (call f)))`)

	assert.Contains(t, text, lines(
		seq("m_f:"),
		seq("\tsw $fp, 0($sp)", "\tsubu $sp, $sp, 4", "\tsw $ra, 0($sp)", "\tsubu $sp, $sp, 4", "\tmove $fp, $sp"),
		seq("\tli $t0, 1"),
		push0,
		pop0,
		leave,
		push0,
		seq("\tjr $ra"),
	))

	// the returned word is dropped by a call statement
	assert.Contains(t, text, "\tjal m_f\n\taddu $sp, $sp, 4\n")
}

func TestVariables(t *testing.T) {
	t.Parallel()

	text := generate(t, `(program P
  (field int g)
  (field boolean h)
  (method void f ((int a) (int b)) (var int c)
    (assign c (- a b))
    (assign g c))
  (method void main () (call f 5 7) (assign h true)))`)

	assert.Contains(t, text, "main:\n\tmove $s1, $sp\n\tsubu $sp, $sp, 4\n\tsubu $sp, $sp, 4\n\tj _main\n")

	// frame of f: two formals and one local
	assert.Contains(t, text, "\tmove $fp, $sp\n\tsubu $sp, $sp, 12\n")

	assert.Contains(t, text, lines(
		seq("\tlw $t0, 0($fp)"),
		push0,
		seq("\tlw $t0, -4($fp)"),
		push0,
		pop1,
		pop0,
		seq("\tsub $t0, $t0, $t1"),
		push0,
		pop0,
		seq("\tsw $t0, -8($fp)", "\tlw $t0, -8($fp)"),
		push0,
		pop0,
		seq("\tsw $t0, 0($s1)"),
	))

	assert.Contains(t, text, lines(seq("\tli $t0, -1"), push0, pop0, seq("\tsw $t0, -4($s1)")))
}

func TestCallArguments(t *testing.T) {
	t.Parallel()

	text := generate(t, `(program P
  (method void f ((int a) (int b)))
  (method void main () (call f 5 7)))`)

	assert.Contains(t, text, lines(
		seq("\tli $t0, 5"),
		push0,
		seq("\tli $t0, 7"),
		push0,
		pop0,
		seq("\tsw $t0, -8($sp)"),
		pop0,
		seq("\tsw $t0, -8($sp)", "\tjal m_f"),
	))

	assert.NotContains(t, text, "\tjal m_f\n\taddu")
}

func TestStrings(t *testing.T) {
	t.Parallel()

	text := generate(t, `(program P (method void main ()
  (print "a\"b")
  (print "x")
  (print "a\"b")))`)

	assert.Contains(t, text, "_newline:\t.asciiz\t\"\\n\"\n_L0:\t.asciiz\t\"a\\\"b\"\n_L1:\t.asciiz\t\"x\"\n\t.text\n")
	assert.Equal(t, 2, strings.Count(text, "\tla $t0, _L0\n"))
	assert.Contains(t, text, lines(seq("\tla $t0, _L1"), push0, seq("\tlw $a0, 4($sp)", "\taddu $sp, $sp, 4", "\tli $v0, 4", "\tsyscall")))
}

func TestPrintBool(t *testing.T) {
	t.Parallel()

	text := generate(t, `(program P (method void main () (print false)))`)

	assert.Contains(t, text, lines(
		seq("\tli $t0, 0"),
		push0,
		seq("\tjal _printBool", "\tlw $a0, 4($sp)", "\taddu $sp, $sp, 4", "\tli $v0, 4", "\tsyscall", "\tla $a0, _newline"),
	))
}

func TestOperators(t *testing.T) {
	t.Parallel()

	text := generate(t, `(program P (method void main ()
  (var int i) (var boolean b)
  (assign i (** 2 10))
  (assign b (<= i 3))
  (assign b (! (&& b (|| b false))))
  (assign i (neg i))))`)

	// labels are allocated in walk order
	assert.Contains(t, text, lines(
		pop1,
		pop0,
		seq(
			"\tli $t2, 1",
			"_L0:",
			"\tblez $t1, _L1",
			"\tmul $t2, $t2, $t0",
			"\tsubu $t1, $t1, 1",
			"\tj _L0",
			"_L1:",
		),
		push2,
	))

	assert.Contains(t, text, lines(
		pop1,
		pop0,
		seq("\tli $t2, -1", "\tble $t0, $t1, _L2", "\tli $t2, 0", "_L2:"),
		push2,
	))

	assert.Contains(t, text, "\tor $t0, $t0, $t1\n")
	assert.Contains(t, text, "\tand $t0, $t0, $t1\n")
	assert.Contains(t, text, lines(pop0, seq("\tnor $t0, $t0, $t0"), push0))
	assert.Contains(t, text, lines(pop0, seq("\tsubu $t0, $zero, $t0"), push0))
}

func TestControlFlow(t *testing.T) {
	t.Parallel()

	text := generate(t, `(program P (method void main ()
  (var int i)
  (if true ((print 1)))
  (if false ((print 2)) ((print 3)))
  (while (< i 3) ((assign i (+ i 1))))))`)

	assert.Contains(t, text, lines(pop0, seq("\tbeq $t0, $zero, _L0")))
	assert.Contains(t, text, "\tsyscall\n_L0:\n")

	assert.Contains(t, text, lines(pop0, seq("\tbeq $t0, $zero, _L1")))
	assert.Contains(t, text, "\tsyscall\n\tj _L2\n_L1:\n")
	assert.Contains(t, text, "\tsyscall\n_L2:\n")

	assert.Contains(t, text, "_L2:\n_L3:\n\tlw $t0, 0($fp)\n")
	assert.Contains(t, text, lines(push2, pop0, seq("\tbne $t0, $zero, _L3")))
}

func TestRecursion(t *testing.T) {
	t.Parallel()

	text := generate(t, `(program P
  (method int fact ((int n))
    (if (<= n 1) ((return 1)))
    (return (* n (call fact (- n 1)))))
  (method void main () (print (call fact 5))))`)

	assert.Contains(t, text, "\tsw $t0, -8($sp)\n\tjal m_fact\n\tlw $t1, 4($sp)\n")
	assert.Contains(t, text, "\tsw $t0, -8($sp)\n\tjal m_fact\n\tlw $a0, 4($sp)\n")
	assert.Equal(t, 3, strings.Count(text, "\tjr $ra\n"), "two returns in fact, one in _printBool")
}
