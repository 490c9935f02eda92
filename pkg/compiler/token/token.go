// Package token defines the lexical vocabulary of MY source files.
package token

import "fmt"

// Kind classifies a token. The token's Value field is a tagged union
// discriminated by Kind: Number carries a float, Word an identifier,
// Keyword a symbol tag.
type Kind int

const (
	Number Kind = iota // numeric literal
	Word               // identifier
	Keyword            // fixed language symbol
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case Word:
		return "word"
	case Keyword:
		return "keyword"
	}
	return "unknown"
}

// Sym identifies one symbol of the closed MY keyword set.
type Sym int

const (
	If Sym = iota
	Ifnot
	While
	Whilenot
	Read
	Write
	Assign
	Plus
	Minus
	Star
	Slash
	Semicolon
	Comma
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Bar
)

// spellings maps each symbol to its unique source spelling.
// The mapping is total and fixed: exactly one spelling per symbol.
var spellings = map[Sym]string{
	If:        "if",
	Ifnot:     "ifnot",
	While:     "while",
	Whilenot:  "whilenot",
	Read:      "read>",
	Write:     "write>",
	Assign:    "=",
	Plus:      "+",
	Minus:     "-",
	Star:      "*",
	Slash:     "/",
	Semicolon: ";",
	Comma:     ",",
	LParen:    "(",
	RParen:    ")",
	LBrace:    "{",
	RBrace:    "}",
	LBracket:  "[",
	RBracket:  "]",
	Bar:       "|",
}

// keywords is the inverse of spellings, built once at init.
var keywords = func() map[string]Sym {
	m := make(map[string]Sym, len(spellings))
	for sym, text := range spellings {
		m[text] = sym
	}
	return m
}()

// Lookup reports whether text is the spelling of a keyword symbol.
func Lookup(text string) (Sym, bool) {
	sym, ok := keywords[text]
	return sym, ok
}

// String returns the source spelling of the symbol.
func (s Sym) String() string {
	if text, ok := spellings[s]; ok {
		return text
	}
	return "unknown"
}

// Pos is a location in a source file. Row and Col are 1-indexed.
type Pos struct {
	File string
	Row  int
	Col  int
}

// String formats the position as file:row:col.
func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Row, p.Col)
}

// Value is the payload of a token. Exactly one field is meaningful,
// selected by the owning token's Kind.
type Value struct {
	Num   float64 // Kind == Number
	Ident string  // Kind == Word
	Sym   Sym     // Kind == Keyword
}

// Token is one lexical unit of a MY source file. Tokens are immutable
// once produced by the lexer.
type Token struct {
	Kind    Kind
	Literal string
	Pos     Pos
	Value   Value
}

// Is reports whether the token is the given keyword symbol.
func (t Token) Is(sym Sym) bool {
	return t.Kind == Keyword && t.Value.Sym == sym
}
