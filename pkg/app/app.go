// Package app wires the command line to the compile and run pipelines.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/mylang/my/pkg/cli"
	"github.com/mylang/my/pkg/compiler"
	"github.com/mylang/my/pkg/compiler/lexer"
	"github.com/mylang/my/pkg/logger"
	"github.com/mylang/my/pkg/opcode"
	"github.com/mylang/my/pkg/vm"
)

// Application runs one toolchain command end to end. The streams are
// fields so tests can substitute buffers.
type Application struct {
	Stdin  io.Reader
	Stdout io.Writer

	log *slog.Logger
}

// New creates an Application bound to the process streams.
func New() *Application {
	return &Application{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}
}

// Run parses the arguments and executes the requested command.
func (app *Application) Run(args []string) error {
	config, err := cli.Parse(args)
	if err != nil {
		return err
	}
	if config.ShowHelp {
		cli.PrintHelp()
		return nil
	}

	if err := logger.Init(config.LogLevel); err != nil {
		return err
	}
	app.log = logger.Get()

	switch config.Command {
	case cli.Compile:
		return app.compileToFile(config.Input, config.Output)
	case cli.Run:
		return app.runBytecode(config.Input)
	case cli.Go:
		return app.compileAndRun(config.Input)
	}
	return fmt.Errorf("unhandled command %d", config.Command)
}

// compileToFile compiles a source file and writes the bytecode text.
// The output file is written only after a clean compile, so a failed
// compilation never leaves a partial artifact behind.
func (app *Application) compileToFile(input, output string) error {
	program, err := app.compile(input)
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, []byte(program.Encode()), 0o644); err != nil {
		return fmt.Errorf("failed to write bytecode: %w", err)
	}
	app.log.Info("bytecode written", "path", output, "instructions", len(program))
	return nil
}

// runBytecode loads a compiled bytecode file and executes it.
func (app *Application) runBytecode(input string) error {
	text, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read bytecode file: %w", err)
	}
	program, err := opcode.Parse(string(text))
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}
	return app.execute(program)
}

// compileAndRun compiles a source file and executes the program
// in-memory without writing an artifact.
func (app *Application) compileAndRun(input string) error {
	program, err := app.compile(input)
	if err != nil {
		return err
	}
	return app.execute(program)
}

func (app *Application) compile(path string) (opcode.Program, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}

	tokens := lexer.New(path, string(source)).Tokens()
	app.log.Debug("lexed", "path", path, "tokens", len(tokens))

	program, err := compiler.Compile(tokens)
	if err != nil {
		return nil, err
	}
	app.log.Debug("compiled", "path", path, "instructions", len(program))
	return program, nil
}

func (app *Application) execute(program opcode.Program) error {
	input, cleanup := app.inputSource()
	defer cleanup()

	machine := vm.New(program,
		vm.WithInput(input),
		vm.WithOutput(app.Stdout),
		vm.WithLogger(app.log),
	)
	return machine.Run()
}

// inputSource picks where read> values come from: a line-editing prompt
// when stdin is an interactive terminal, a plain scanner otherwise.
func (app *Application) inputSource() (vm.InputFunc, func()) {
	if app.Stdin != io.Reader(os.Stdin) || !interactive() {
		return vm.ScanInput(app.Stdin), func() {}
	}

	ln := liner.NewLiner()
	ln.SetCtrlCAborts(true)
	prompt := func() (float64, error) {
		line, err := ln.Prompt("read> ")
		if err != nil {
			return 0, err
		}
		return strconv.ParseFloat(strings.TrimSpace(line), 64)
	}
	return prompt, func() { ln.Close() }
}

func interactive() bool {
	if !liner.TerminalSupported() {
		return false
	}
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
