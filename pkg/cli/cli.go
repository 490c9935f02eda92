// Package cli parses the my command line: one of three operations over
// one input file, with the file extension validated before any work
// begins.
package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xyproto/env/v2"
)

// Command selects one of the toolchain's operations.
type Command int

const (
	Compile Command = iota // compile source to a bytecode file
	Run                    // execute a bytecode file
	Go                     // compile and execute in one step
)

// File extensions accepted per operation.
const (
	SourceExt   = ".my"
	BytecodeExt = ".myb"
)

// Config holds the settings parsed from the command line.
type Config struct {
	Command  Command
	Input    string // the one input file
	Output   string // compile only: bytecode destination
	LogLevel string // debug, info, warn, error
	ShowHelp bool
}

// Parse parses command-line arguments into a Config. The log level
// falls back to the MY_LOG_LEVEL environment variable.
func Parse(args []string) (*Config, error) {
	if len(args) == 0 {
		return &Config{ShowHelp: true}, nil
	}
	switch args[0] {
	case "help", "-h", "--help":
		return &Config{ShowHelp: true}, nil
	}

	config := &Config{}
	switch args[0] {
	case "compile":
		config.Command = Compile
	case "run":
		config.Command = Run
	case "go":
		config.Command = Go
	default:
		return nil, fmt.Errorf("unknown command %q (want compile, run, or go)", args[0])
	}

	fs := flag.NewFlagSet("my "+args[0], flag.ContinueOnError)
	defaultLevel := env.Str("MY_LOG_LEVEL", "info")
	fs.StringVar(&config.Output, "o", "", "output path for compiled bytecode")
	fs.StringVar(&config.LogLevel, "log-level", defaultLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&config.LogLevel, "l", defaultLevel, "log level (shorthand)")

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	if fs.NArg() != 1 {
		return nil, fmt.Errorf("%s takes exactly one input file", args[0])
	}
	config.Input = fs.Arg(0)

	if err := validateExt(config.Command, config.Input); err != nil {
		return nil, err
	}

	if config.Command == Compile && config.Output == "" {
		config.Output = strings.TrimSuffix(config.Input, filepath.Ext(config.Input)) + BytecodeExt
	}

	return config, nil
}

// validateExt rejects an input file whose extension does not match the
// requested operation, before the file is even opened.
func validateExt(command Command, input string) error {
	ext := strings.ToLower(filepath.Ext(input))
	switch command {
	case Compile, Go:
		if ext != SourceExt {
			return fmt.Errorf("source file must have the %s extension, got %q", SourceExt, input)
		}
	case Run:
		if ext != BytecodeExt {
			return fmt.Errorf("bytecode file must have the %s extension, got %q", BytecodeExt, input)
		}
	}
	return nil
}

// PrintHelp prints the usage message.
func PrintHelp() {
	fmt.Fprintf(os.Stdout, `my - MY language toolchain

Usage:
  my <command> [options] <file>

Commands:
  compile <file%[1]s>   compile source to a bytecode text file (%[2]s)
  run <file%[2]s>      execute a compiled bytecode file
  go <file%[1]s>        compile and execute without writing an artifact

Options:
  -o <path>           output path for compiled bytecode (compile only)
  -l, --log-level     log level: debug, info, warn, error (default: info)
  -h, --help          show this help

Environment Variables:
  MY_LOG_LEVEL=<level>   default log level

Examples:
  my compile prog.my          writes prog.myb
  my run prog.myb             executes the compiled program
  my go prog.my               compiles and runs in one step
  my compile -o out.myb prog.my
`, SourceExt, BytecodeExt)
}
