// Package compiler provides the compilation pipeline for MY scripts
// (.my files): a single forward pass over the token stream that emits a
// flat instruction sequence with backpatched jump targets.
//
// This file defines the CompileError type for structured error
// reporting. Compilation aborts on the first error; there is no error
// accumulation and no resynchronization.
package compiler

import (
	"fmt"

	"github.com/mylang/my/pkg/compiler/token"
)

// CompileError is a fatal, location-tagged diagnostic. It carries the
// source position, the construct the compiler expected, and the text it
// actually found.
type CompileError struct {
	Pos      token.Pos
	Expected string
	Found    string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: expected %s, found %s", e.Pos, e.Expected, e.Found)
}

// errAt creates a CompileError at the given token.
func errAt(tok token.Token, expected string) *CompileError {
	return &CompileError{
		Pos:      tok.Pos,
		Expected: expected,
		Found:    fmt.Sprintf("%q", tok.Literal),
	}
}

// errAtEnd creates a CompileError for running out of tokens.
func errAtEnd(pos token.Pos, expected string) *CompileError {
	return &CompileError{
		Pos:      pos,
		Expected: expected,
		Found:    "end of file",
	}
}
