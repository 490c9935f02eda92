package compiler

import (
	"github.com/mylang/my/pkg/compiler/token"
	"github.com/mylang/my/pkg/opcode"
)

// arithmetic maps the four expression operators to their instructions.
// Any other keyword inside an expression is a diagnostic.
var arithmetic = map[token.Sym]opcode.Op{
	token.Plus:  opcode.Add,
	token.Minus: opcode.Sub,
	token.Star:  opcode.Mul,
	token.Slash: opcode.Div,
}

// priority gives the operator-precedence level used by the postfix
// conversion. Parentheses are handled structurally and never emitted.
func priority(sym token.Sym) int {
	switch sym {
	case token.Plus, token.Minus:
		return 1
	case token.Star, token.Slash:
		return 2
	}
	return 0
}

// compileExpression flattens one infix token run into arithmetic
// instructions appended to the program and returns the name of the
// temporary holding the result. Evaluation order is left-to-right and
// left-associative for equal-priority operators: a - b - c compiles as
// (a-b)-c.
func (c *Compiler) compileExpression(run []token.Token) (string, error) {
	postfix, err := toPostfix(run)
	if err != nil {
		return "", err
	}
	if len(postfix) == 0 {
		return "", errAt(run[0], "expression")
	}

	// A single operand short-circuits to one Copy so that every
	// expression produces at least one instruction.
	if len(postfix) == 1 {
		tok := postfix[0]
		if tok.Kind == token.Keyword {
			return "", errAt(tok, "variable or number")
		}
		temp := c.newTemp()
		c.emit(opcode.Copy, tok.Literal, temp)
		return temp, nil
	}

	var stack []string
	for _, tok := range postfix {
		if tok.Kind != token.Keyword {
			stack = append(stack, tok.Literal)
			continue
		}
		if len(stack) < 2 {
			return "", errAt(tok, "two operands")
		}
		right := stack[len(stack)-1]
		left := stack[len(stack)-2]
		stack = stack[:len(stack)-2]

		temp := c.newTemp()
		c.emit(arithmetic[tok.Value.Sym], left, right, temp)
		stack = append(stack, temp)
	}

	if len(stack) != 1 {
		return "", errAt(run[len(run)-1], "operator between operands")
	}
	return stack[0], nil
}

// toPostfix reorders an infix token run into postfix order with the
// standard shunting algorithm: while the operator stack's top has
// priority >= the incoming operator's, pop it to the output.
func toPostfix(run []token.Token) ([]token.Token, error) {
	var out, ops []token.Token

	for _, tok := range run {
		if tok.Kind != token.Keyword {
			out = append(out, tok)
			continue
		}

		switch tok.Value.Sym {
		case token.LParen:
			ops = append(ops, tok)

		case token.RParen:
			matched := false
			for len(ops) > 0 {
				top := ops[len(ops)-1]
				ops = ops[:len(ops)-1]
				if top.Is(token.LParen) {
					matched = true
					break
				}
				out = append(out, top)
			}
			if !matched {
				return nil, errAt(tok, `matching "("`)
			}

		case token.Plus, token.Minus, token.Star, token.Slash:
			for len(ops) > 0 {
				top := ops[len(ops)-1]
				if top.Is(token.LParen) || priority(top.Value.Sym) < priority(tok.Value.Sym) {
					break
				}
				out = append(out, top)
				ops = ops[:len(ops)-1]
			}
			ops = append(ops, tok)

		default:
			return nil, errAt(tok, "arithmetic operator")
		}
	}

	for len(ops) > 0 {
		top := ops[len(ops)-1]
		ops = ops[:len(ops)-1]
		if top.Is(token.LParen) {
			return nil, errAt(top, `matching ")"`)
		}
		out = append(out, top)
	}
	return out, nil
}
