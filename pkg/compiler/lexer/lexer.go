// Package lexer tokenizes MY source code (.my files).
//
// The lexer never fails: text that is neither a number nor a known
// keyword becomes a Word token, and all rejection is deferred to the
// compiler.
package lexer

import (
	"strconv"
	"strings"

	"github.com/mylang/my/pkg/compiler/token"
)

// continuation are the characters that extend an alphanumeric token
// beyond letters and digits: command markers (read>, write>), decimal
// points, and array-element syntax (name#indexExpr).
const continuation = ">.#"

// Lexer produces a finite, non-restartable sequence of tokens.
type Lexer struct {
	file         string
	input        string
	position     int  // current position in input
	readPosition int  // current reading position (after current char)
	ch           byte // current char
	row          int  // current line number
	col          int  // current column number
}

// New creates a new Lexer for the given file name and source text.
func New(file, input string) *Lexer {
	l := &Lexer{
		file:  file,
		input: input,
		row:   1,
		col:   0,
	}
	l.readChar()
	return l
}

// Next returns the next token. The second result is false once the
// input is exhausted.
func (l *Lexer) Next() (token.Token, bool) {
	l.skipWhitespace()

	if l.ch == 0 {
		return token.Token{}, false
	}

	pos := token.Pos{File: l.file, Row: l.row, Col: l.col}

	if isAlnum(l.ch) {
		return classify(l.readRun(), pos), true
	}

	// A recognized single-character symbol is a token by itself;
	// anything else still lexes, as a one-character Word.
	literal := string(l.ch)
	l.readChar()
	return classify(literal, pos), true
}

// Tokens drains the lexer and returns all remaining tokens.
func (l *Lexer) Tokens() []token.Token {
	var tokens []token.Token
	for {
		tok, ok := l.Next()
		if !ok {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

// classify resolves the token kind from the extracted text: numeric
// parse first, then the keyword table, else Word.
func classify(literal string, pos token.Pos) token.Token {
	if num, err := strconv.ParseFloat(literal, 64); err == nil {
		return token.Token{
			Kind:    token.Number,
			Literal: literal,
			Pos:     pos,
			Value:   token.Value{Num: num},
		}
	}
	if sym, ok := token.Lookup(literal); ok {
		return token.Token{
			Kind:    token.Keyword,
			Literal: literal,
			Pos:     pos,
			Value:   token.Value{Sym: sym},
		}
	}
	return token.Token{
		Kind:    token.Word,
		Literal: literal,
		Pos:     pos,
		Value:   token.Value{Ident: literal},
	}
}

// readRun reads an alphanumeric run including continuation characters.
func (l *Lexer) readRun() string {
	position := l.position
	for isAlnum(l.ch) || strings.IndexByte(continuation, l.ch) >= 0 {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.col++

	if l.ch == '\n' {
		l.row++
		l.col = 0
	}
}

// skipWhitespace skips whitespace characters.
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// isAlnum checks if a character is a letter or digit.
func isAlnum(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || '0' <= ch && ch <= '9'
}
