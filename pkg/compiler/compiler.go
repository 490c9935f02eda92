package compiler

import (
	"strconv"

	"github.com/mylang/my/pkg/compiler/token"
	"github.com/mylang/my/pkg/opcode"
)

// Compiler consumes a token sequence in one forward pass and emits
// instructions to one growing program. Open control blocks are tracked
// on an explicit pending-block stack; the stack never escapes the
// compiler and does not appear in the emitted program.
type Compiler struct {
	tokens  []token.Token
	pos     int
	program opcode.Program
	temps   int
	blocks  []pendingBlock
}

// pendingBlock is one open control block awaiting its closing brace.
type pendingBlock struct {
	opener    token.Token // the control keyword, kept for diagnostics
	jumpIdx   int         // instruction whose jump target awaits patching
	condStart int         // first instruction of the condition, for loop re-entry
}

// Compile compiles a full token sequence into a program. The first
// malformed construct aborts compilation with a location-tagged
// diagnostic; no partial program is returned.
func Compile(tokens []token.Token) (opcode.Program, error) {
	c := &Compiler{tokens: tokens, program: opcode.Program{}}

	for c.pos < len(c.tokens) {
		if err := c.compileStatement(); err != nil {
			return nil, err
		}
	}

	if len(c.blocks) > 0 {
		open := c.blocks[len(c.blocks)-1]
		return nil, &CompileError{
			Pos:      open.opener.Pos,
			Expected: `"}" closing "` + open.opener.Literal + `" block`,
			Found:    "end of file",
		}
	}
	return c.program, nil
}

// compileStatement dispatches on the statement's leading token.
func (c *Compiler) compileStatement() error {
	tok := c.advance()

	switch tok.Kind {
	case token.Number:
		// A bare numeric literal is permitted as a statement but
		// produces no instruction.
		_, err := c.expect(token.Semicolon, `";"`)
		return err

	case token.Word:
		return c.compileAssignment(tok)

	case token.Keyword:
		switch tok.Value.Sym {
		case token.Read:
			return c.compileRead()
		case token.Write:
			return c.compileWrite()
		case token.If, token.Ifnot, token.While, token.Whilenot:
			return c.compileBlockOpen(tok)
		case token.RBrace:
			return c.compileBlockClose(tok)
		}
	}
	return errAt(tok, "statement")
}

// compileAssignment handles `name = expression ;` and the array-literal
// form `name = | e1 , e2 , ... | ;`.
func (c *Compiler) compileAssignment(name token.Token) error {
	if _, err := c.expect(token.Assign, `"="`); err != nil {
		return err
	}

	if next, ok := c.peek(); ok && next.Is(token.Bar) {
		c.advance()
		return c.compileArrayLiteral(name)
	}

	run, term, err := c.collectUntil(token.Semicolon, `";"`)
	if err != nil {
		return err
	}
	if len(run) == 0 {
		return errAt(term, "expression")
	}
	if _, err := c.compileExpression(run); err != nil {
		return err
	}

	// The expression's value lives in the last instruction's
	// destination; renaming it to the assigned name avoids an extra
	// Copy.
	last := c.program[len(c.program)-1].Args
	last[len(last)-1] = name.Literal
	return nil
}

// compileArrayLiteral collects single-token elements up to the closing
// array marker and emits one ArrayInit. Elements resolve to values at
// run time, not at compile time.
func (c *Compiler) compileArrayLiteral(name token.Token) error {
	args := []string{name.Literal}
	for {
		elem, ok := c.next()
		if !ok {
			return errAtEnd(c.lastPos(), "array element")
		}
		if elem.Kind == token.Keyword {
			return errAt(elem, "array element")
		}
		args = append(args, elem.Literal)

		sep, ok := c.next()
		if !ok {
			return errAtEnd(c.lastPos(), `"," or "|"`)
		}
		if sep.Is(token.Bar) {
			break
		}
		if !sep.Is(token.Comma) {
			return errAt(sep, `"," or "|"`)
		}
	}

	if _, err := c.expect(token.Semicolon, `";"`); err != nil {
		return err
	}
	c.emit(opcode.ArrayInit, args...)
	return nil
}

// compileRead handles `read> name ;`.
func (c *Compiler) compileRead() error {
	operand, ok := c.next()
	if !ok {
		return errAtEnd(c.lastPos(), "variable name")
	}
	if operand.Kind != token.Word {
		return errAt(operand, "variable name")
	}
	if _, err := c.expect(token.Semicolon, `";"`); err != nil {
		return err
	}
	c.emit(opcode.Read, operand.Literal)
	return nil
}

// compileWrite handles `write> operand ;` where operand is a variable
// or a number.
func (c *Compiler) compileWrite() error {
	operand, ok := c.next()
	if !ok {
		return errAtEnd(c.lastPos(), "variable name or number")
	}
	if operand.Kind == token.Keyword {
		return errAt(operand, "variable name or number")
	}
	if _, err := c.expect(token.Semicolon, `";"`); err != nil {
		return err
	}
	c.emit(opcode.Write, operand.Literal)
	return nil
}

// compileBlockOpen handles `if [ cond ] {` and the ifnot/while/whilenot
// variants. It compiles the condition, emits a conditional jump with an
// unresolved target, and pushes the block onto the pending stack.
//
// if and while skip/exit via GotoIfNot (jump when the condition <= 0);
// the "not" variants flip the polarity and skip/exit via GotoIf.
func (c *Compiler) compileBlockOpen(opener token.Token) error {
	if _, err := c.expect(token.LBracket, `"["`); err != nil {
		return err
	}
	run, term, err := c.collectUntil(token.RBracket, `"]"`)
	if err != nil {
		return err
	}
	if len(run) == 0 {
		return errAt(term, "condition expression")
	}

	condStart := len(c.program)
	result, err := c.compileExpression(run)
	if err != nil {
		return err
	}

	jump := opcode.GotoIfNot
	if opener.Is(token.Ifnot) || opener.Is(token.Whilenot) {
		jump = opcode.GotoIf
	}
	jumpIdx := c.emit(jump, result, "0") // target patched at block close

	c.blocks = append(c.blocks, pendingBlock{
		opener:    opener,
		jumpIdx:   jumpIdx,
		condStart: condStart,
	})

	_, err = c.expect(token.LBrace, `"{"`)
	return err
}

// compileBlockClose pops the innermost open block and patches its jump
// target. For if/ifnot the jump skips past the block; for the loop
// forms a Goto back to the condition is appended first, so the patched
// jump exits past that Goto.
func (c *Compiler) compileBlockClose(brace token.Token) error {
	if len(c.blocks) == 0 {
		return &CompileError{
			Pos:      brace.Pos,
			Expected: "statement",
			Found:    `"}" with no open block`,
		}
	}
	blk := c.blocks[len(c.blocks)-1]
	c.blocks = c.blocks[:len(c.blocks)-1]

	if blk.opener.Is(token.While) || blk.opener.Is(token.Whilenot) {
		c.emit(opcode.Goto, strconv.Itoa(blk.condStart))
	}
	c.patch(blk.jumpIdx, len(c.program))
	return nil
}

// emit appends an instruction and returns its index.
func (c *Compiler) emit(op opcode.Op, args ...string) int {
	c.program = append(c.program, opcode.Instruction{Op: op, Args: args})
	return len(c.program) - 1
}

// patch resolves a previously emitted jump's target operand.
func (c *Compiler) patch(idx, target int) {
	args := c.program[idx].Args
	args[len(args)-1] = strconv.Itoa(target)
}

// newTemp allocates a fresh temporary name. The counter threads through
// the whole compilation and is never reused, even when a temporary is
// renamed away by an assignment.
func (c *Compiler) newTemp() string {
	name := "t" + strconv.Itoa(c.temps)
	c.temps++
	return name
}

// peek returns the current token without consuming it.
func (c *Compiler) peek() (token.Token, bool) {
	if c.pos >= len(c.tokens) {
		return token.Token{}, false
	}
	return c.tokens[c.pos], true
}

// next consumes and returns the current token.
func (c *Compiler) next() (token.Token, bool) {
	if c.pos >= len(c.tokens) {
		return token.Token{}, false
	}
	tok := c.tokens[c.pos]
	c.pos++
	return tok, true
}

// advance consumes the current token; callers must know one exists.
func (c *Compiler) advance() token.Token {
	tok := c.tokens[c.pos]
	c.pos++
	return tok
}

// expect consumes the next token and requires it to be the given
// keyword symbol.
func (c *Compiler) expect(sym token.Sym, desc string) (token.Token, error) {
	tok, ok := c.next()
	if !ok {
		return token.Token{}, errAtEnd(c.lastPos(), desc)
	}
	if !tok.Is(sym) {
		return token.Token{}, errAt(tok, desc)
	}
	return tok, nil
}

// collectUntil consumes tokens up to and including the given terminator
// and returns the run before it plus the terminator itself.
func (c *Compiler) collectUntil(sym token.Sym, desc string) ([]token.Token, token.Token, error) {
	var run []token.Token
	for {
		tok, ok := c.next()
		if !ok {
			return nil, token.Token{}, errAtEnd(c.lastPos(), desc)
		}
		if tok.Is(sym) {
			return run, tok, nil
		}
		run = append(run, tok)
	}
}

// lastPos is the position of the final token, used when the stream ends
// where more input was expected.
func (c *Compiler) lastPos() token.Pos {
	if len(c.tokens) == 0 {
		return token.Pos{Row: 1, Col: 1}
	}
	return c.tokens[len(c.tokens)-1].Pos
}
