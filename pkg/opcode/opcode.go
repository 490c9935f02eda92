// Package opcode defines the instruction set for the MY virtual machine.
// This package is the foundation that both the compiler and VM depend on:
// the compiler generates instruction sequences, and the VM executes them.
//
// A program is an ordered, densely indexed sequence of instructions, and
// the index is the sole addressing space for jumps. There are no labels.
package opcode

import (
	"fmt"
	"strings"
)

// Op identifies an instruction's operation.
type Op string

const (
	// Arithmetic. Args: [left, right, destination].
	Add Op = "Add"
	Sub Op = "Sub"
	Mul Op = "Mul"
	Div Op = "Div"

	// Copy resolves a source operand and writes it to a destination.
	// Args: [source, destination].
	Copy Op = "Copy"

	// Read blocks for one externally supplied numeric value.
	// Args: [destination].
	Read Op = "Read"

	// Write resolves its operand and emits it as one line of output.
	// Args: [operand].
	Write Op = "Write"

	// ArrayInit materializes a fixed-length array from element operands,
	// replacing any prior binding. Args: [name, element...].
	ArrayInit Op = "ArrayInit"

	// Goto jumps unconditionally. Args: [target].
	Goto Op = "Goto"

	// GotoIfNot jumps when the condition operand is false (<= 0).
	// Args: [condition, target].
	GotoIfNot Op = "GotoIfNot"

	// GotoIf jumps when the condition operand is true (> 0).
	// Args: [condition, target].
	GotoIf Op = "GotoIf"
)

// argCounts gives the required operand count per operation. A count of
// -1 means "one or more" (ArrayInit: name plus any number of elements).
var argCounts = map[Op]int{
	Add:       3,
	Sub:       3,
	Mul:       3,
	Div:       3,
	Copy:      2,
	Read:      1,
	Write:     1,
	ArrayInit: -1,
	Goto:      1,
	GotoIfNot: 2,
	GotoIf:    2,
}

// Instruction is a single VM instruction: an operation plus its ordered
// operand list. Operands are textual: numeric literals, variable names,
// array-element references (name#indexExpr), or, for jumps, absolute
// instruction indices in decimal. For arithmetic operations and Copy the
// destination is always the last operand.
type Instruction struct {
	Op   Op
	Args []string
}

// String renders the instruction in the bytecode text format: the
// operation name and its operands separated by single spaces.
func (in Instruction) String() string {
	if len(in.Args) == 0 {
		return string(in.Op)
	}
	return string(in.Op) + " " + strings.Join(in.Args, " ")
}

// Program is an instruction sequence addressed by index.
type Program []Instruction

// Encode renders the program in the bytecode text format, one
// instruction per line. Encode and Parse round-trip: a parsed encoding
// executes identically to the in-memory program.
func (p Program) Encode() string {
	var b strings.Builder
	for _, in := range p {
		b.WriteString(in.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Parse reads a program from its bytecode text form. Blank lines are
// skipped. An unknown operation name or a wrong operand count is an
// error; there is no recovery.
func Parse(text string) (Program, error) {
	var p Program
	for i, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		op := Op(fields[0])
		want, ok := argCounts[op]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown instruction %q", i+1, fields[0])
		}

		args := fields[1:]
		if want == -1 {
			if len(args) < 1 {
				return nil, fmt.Errorf("line %d: %s needs at least 1 operand, got %d", i+1, op, len(args))
			}
		} else if len(args) != want {
			return nil, fmt.Errorf("line %d: %s needs %d operands, got %d", i+1, op, want, len(args))
		}

		p = append(p, Instruction{Op: op, Args: args})
	}
	return p, nil
}
