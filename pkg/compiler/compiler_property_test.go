package compiler

import (
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/mylang/my/pkg/compiler/lexer"
	"github.com/mylang/my/pkg/opcode"
	"github.com/mylang/my/pkg/vm"
)

var chainOps = []struct {
	spelling string
	eval     func(a, b float64) float64
}{
	{"+", func(a, b float64) float64 { return a + b }},
	{"-", func(a, b float64) float64 { return a - b }},
	{"*", func(a, b float64) float64 { return a * b }},
	{"/", func(a, b float64) float64 { return a / b }},
}

// chainSource builds `x = a0 op a1 op a2 ... ;` from operand and
// operator index slices.
func chainSource(operands []int, ops []int) string {
	var b strings.Builder
	b.WriteString("x = ")
	b.WriteString(strconv.Itoa(operands[0]))
	for i, op := range ops {
		b.WriteString(" ")
		b.WriteString(chainOps[op].spelling)
		b.WriteString(" ")
		b.WriteString(strconv.Itoa(operands[i+1]))
	}
	b.WriteString(" ;")
	return b.String()
}

func compileAndRun(source string) (*vm.VM, error) {
	program, err := Compile(lexer.New("prop.my", source).Tokens())
	if err != nil {
		return nil, err
	}
	machine := vm.New(program, vm.WithOutput(io.Discard))
	if err := machine.Run(); err != nil {
		return nil, err
	}
	return machine, nil
}

func sameFloat(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b
}

func TestExpressionChainsEvaluateLeftToRight(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// Same-priority chains only, so the oracle is a plain left fold.
	// Operands are positive, keeping division away from zero.
	properties.Property("equal-priority chains compile to a left fold", prop.ForAll(
		func(operands []int, opIdx int) bool {
			ops := make([]int, len(operands)-1)
			for i := range ops {
				ops[i] = opIdx
			}

			machine, err := compileAndRun(chainSource(operands, ops))
			if err != nil {
				return false
			}

			want := float64(operands[0])
			for i, op := range ops {
				want = chainOps[op].eval(want, float64(operands[i+1]))
			}
			x, ok := machine.Var("x")
			return ok && sameFloat(x, want)
		},
		gen.SliceOfN(6, gen.IntRange(1, 99)),
		gen.IntRange(0, 3),
	))

	properties.Property("mixed chains honor precedence against a two-level oracle", prop.ForAll(
		func(operands []int, ops []int) bool {
			machine, err := compileAndRun(chainSource(operands, ops))
			if err != nil {
				return false
			}

			// Oracle: reduce * and / first, then fold + and - over the
			// surviving terms.
			terms := []float64{float64(operands[0])}
			addOps := []int{}
			for i, op := range ops {
				next := float64(operands[i+1])
				if op >= 2 {
					terms[len(terms)-1] = chainOps[op].eval(terms[len(terms)-1], next)
				} else {
					addOps = append(addOps, op)
					terms = append(terms, next)
				}
			}
			want := terms[0]
			for i, op := range addOps {
				want = chainOps[op].eval(want, terms[i+1])
			}

			x, ok := machine.Var("x")
			return ok && sameFloat(x, want)
		},
		gen.SliceOfN(5, gen.IntRange(1, 99)),
		gen.SliceOfN(4, gen.IntRange(0, 3)),
	))

	properties.TestingRun(t)
}

func TestSingleOperandCompilesToOneCopy(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("a lone literal assignment is exactly one Copy", prop.ForAll(
		func(n int) bool {
			source := "x = " + strconv.Itoa(n) + " ;"
			program, err := Compile(lexer.New("prop.my", source).Tokens())
			if err != nil {
				return false
			}
			if len(program) != 1 || program[0].Op != opcode.Copy {
				return false
			}

			machine := vm.New(program, vm.WithOutput(io.Discard))
			if err := machine.Run(); err != nil {
				return false
			}
			x, ok := machine.Var("x")
			return ok && x == float64(n)
		},
		gen.IntRange(0, 1000000),
	))

	properties.TestingRun(t)
}

func TestNestedBlockJumpTargetsStayInRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	jumps := map[opcode.Op]bool{
		opcode.Goto:      true,
		opcode.GotoIf:    true,
		opcode.GotoIfNot: true,
	}

	properties.Property("arbitrarily nested blocks patch every jump into [0, len]", prop.ForAll(
		func(depth int, useLoop bool) bool {
			var b strings.Builder
			for i := 0; i < depth; i++ {
				if useLoop && i%2 == 1 {
					b.WriteString("whilenot [ 1 ] { ")
				} else {
					b.WriteString("if [ 1 ] { ")
				}
			}
			b.WriteString("write> 1 ; ")
			for i := 0; i < depth; i++ {
				b.WriteString("} ")
			}

			program, err := Compile(lexer.New("prop.my", b.String()).Tokens())
			if err != nil {
				return false
			}

			for _, in := range program {
				if !jumps[in.Op] {
					continue
				}
				target, err := strconv.Atoi(in.Args[len(in.Args)-1])
				if err != nil || target < 0 || target > len(program) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestBytecodeRoundTripPreservesPrograms(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("parse(encode(compile(src))) equals compile(src)", prop.ForAll(
		func(operands []int, ops []int) bool {
			program, err := Compile(lexer.New("prop.my", chainSource(operands, ops)).Tokens())
			if err != nil {
				return false
			}
			parsed, err := opcode.Parse(program.Encode())
			if err != nil {
				return false
			}
			return reflect.DeepEqual(parsed, program)
		},
		gen.SliceOfN(5, gen.IntRange(1, 99)),
		gen.SliceOfN(4, gen.IntRange(0, 3)),
	))

	properties.TestingRun(t)
}
