// Package vm provides the interpreter for compiled MY programs.
//
// A VM owns a program counter, a variable store, and an array store,
// and executes one instruction sequence synchronously on one logical
// thread of control. Runtime faults (unknown names, out-of-range
// indices, malformed jump targets) are fatal: they abort Run with an
// error and are never retried or recovered.
package vm

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/mylang/my/pkg/opcode"
)

// InputFunc supplies one numeric value per Read instruction. The call
// blocks until a value is available; there is no timeout.
type InputFunc func() (float64, error)

// VM executes a program against a variable store and an array store.
type VM struct {
	program opcode.Program
	pc      int

	vars   map[string]float64
	arrays map[string][]float64

	input InputFunc
	out   io.Writer
	log   *slog.Logger
}

// Option is a functional option for configuring the VM.
type Option func(*VM)

// WithInput sets the source of Read values.
func WithInput(fn InputFunc) Option {
	return func(vm *VM) {
		vm.input = fn
	}
}

// WithOutput sets the destination of Write lines.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) {
		vm.out = w
	}
}

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(vm *VM) {
		vm.log = log
	}
}

// New creates a VM for the given program. Both stores start empty and
// live until the run ends. By default Read scans os.Stdin and Write
// prints to os.Stdout.
func New(program opcode.Program, opts ...Option) *VM {
	vm := &VM{
		program: program,
		vars:    make(map[string]float64),
		arrays:  make(map[string][]float64),
		input:   ScanInput(os.Stdin),
		out:     os.Stdout,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// ScanInput returns an InputFunc that reads one line per value from r.
func ScanInput(r io.Reader) InputFunc {
	scanner := bufio.NewScanner(r)
	return func() (float64, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		return strconv.ParseFloat(strings.TrimSpace(scanner.Text()), 64)
	}
}

// Run executes the program until the program counter leaves the valid
// index range, which is the normal termination condition. The first
// runtime fault aborts the run.
func (vm *VM) Run() error {
	vm.log.Debug("run started", "instructions", len(vm.program))

	for vm.pc >= 0 && vm.pc < len(vm.program) {
		if err := vm.step(); err != nil {
			return fmt.Errorf("instruction %d (%s): %w", vm.pc, vm.program[vm.pc], err)
		}
	}

	vm.log.Debug("run halted", "pc", vm.pc)
	return nil
}

// step decodes and executes the instruction at the program counter.
func (vm *VM) step() error {
	in := vm.program[vm.pc]

	switch in.Op {
	case opcode.Add, opcode.Sub, opcode.Mul, opcode.Div:
		left, err := vm.resolve(in.Args[0])
		if err != nil {
			return err
		}
		right, err := vm.resolve(in.Args[1])
		if err != nil {
			return err
		}
		var result float64
		switch in.Op {
		case opcode.Add:
			result = left + right
		case opcode.Sub:
			result = left - right
		case opcode.Mul:
			result = left * right
		case opcode.Div:
			// IEEE-754 division: a zero divisor yields an infinity
			// or NaN, not an error.
			result = left / right
		}
		if err := vm.store(in.Args[2], result); err != nil {
			return err
		}

	case opcode.Copy:
		value, err := vm.resolve(in.Args[0])
		if err != nil {
			return err
		}
		if err := vm.store(in.Args[1], value); err != nil {
			return err
		}

	case opcode.Read:
		value, err := vm.input()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if err := vm.store(in.Args[0], value); err != nil {
			return err
		}

	case opcode.Write:
		value, err := vm.resolve(in.Args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(vm.out, formatNum(value))

	case opcode.ArrayInit:
		elems := make([]float64, 0, len(in.Args)-1)
		for _, arg := range in.Args[1:] {
			value, err := vm.resolve(arg)
			if err != nil {
				return err
			}
			elems = append(elems, value)
		}
		vm.arrays[in.Args[0]] = elems

	case opcode.Goto:
		target, err := jumpTarget(in.Args[0])
		if err != nil {
			return err
		}
		vm.pc = target
		return nil

	case opcode.GotoIfNot, opcode.GotoIf:
		cond, err := vm.resolve(in.Args[0])
		if err != nil {
			return err
		}
		jump := truthy(cond) == (in.Op == opcode.GotoIf)
		if jump {
			target, err := jumpTarget(in.Args[1])
			if err != nil {
				return err
			}
			vm.pc = target
			return nil
		}

	default:
		return fmt.Errorf("unknown instruction %q", in.Op)
	}

	vm.pc++
	return nil
}

// truthy is the MY truth rule: a value is true only when strictly
// greater than zero. Zero and negative values are both false.
func truthy(v float64) bool {
	return v > 0
}

// resolve evaluates an operand to a float. An array-element reference
// name#indexExpr resolves its index expression recursively (computed
// and nested indices are allowed); otherwise variables are looked up
// first and anything that parses as a float is a literal.
func (vm *VM) resolve(operand string) (float64, error) {
	if i := strings.IndexByte(operand, '#'); i >= 0 {
		return vm.resolveElement(operand[:i], operand[i+1:])
	}
	if value, ok := vm.vars[operand]; ok {
		return value, nil
	}
	if value, err := strconv.ParseFloat(operand, 64); err == nil {
		return value, nil
	}
	return 0, fmt.Errorf("undefined variable %q", operand)
}

// resolveElement reads one array element.
func (vm *VM) resolveElement(name, indexExpr string) (float64, error) {
	arr, index, err := vm.element(name, indexExpr)
	if err != nil {
		return 0, err
	}
	return arr[index], nil
}

// element resolves an array binding and a valid index into it.
func (vm *VM) element(name, indexExpr string) ([]float64, int, error) {
	arr, ok := vm.arrays[name]
	if !ok {
		return nil, 0, fmt.Errorf("undefined array %q", name)
	}
	indexValue, err := vm.resolve(indexExpr)
	if err != nil {
		return nil, 0, err
	}
	index := int(indexValue)
	if index < 0 || index >= len(arr) {
		return nil, 0, fmt.Errorf("index %d out of range for array %q (length %d)", index, name, len(arr))
	}
	return arr, index, nil
}

// store writes a value to a variable or an array element.
func (vm *VM) store(dest string, value float64) error {
	if i := strings.IndexByte(dest, '#'); i >= 0 {
		arr, index, err := vm.element(dest[:i], dest[i+1:])
		if err != nil {
			return err
		}
		arr[index] = value
		return nil
	}
	vm.vars[dest] = value
	return nil
}

// jumpTarget parses an absolute instruction index.
func jumpTarget(arg string) (int, error) {
	target, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("bad jump target %q", arg)
	}
	return target, nil
}

// formatNum renders a float in its shortest form, so whole numbers
// print without a decimal point.
func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Var reports the current value of a scalar variable.
func (vm *VM) Var(name string) (float64, bool) {
	value, ok := vm.vars[name]
	return value, ok
}

// Array reports the current binding of an array.
func (vm *VM) Array(name string) ([]float64, bool) {
	arr, ok := vm.arrays[name]
	return arr, ok
}
