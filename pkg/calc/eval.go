package calc

import (
	"math"
)

// Evaluate computes the value of a token sequence.
//
// Percent is folded first: each Number followed by Percent becomes n/100,
// left to right. The remaining tokens are evaluated by precedence climbing,
// highest to lowest:
//
//	^        right-associative
//	× ÷      left-associative
//	+ -      left-associative
//
// A Subtract in operand position (start of the expression or right after a
// binary operator) negates the number that follows it.
func Evaluate(tokens []Token) (float64, error) {
	if len(tokens) == 0 {
		return 0, newError(KindMalformedExpression, -1, "no tokens to evaluate")
	}

	folded, err := foldPercent(tokens)
	if err != nil {
		return 0, err
	}

	p := &evaluator{tokens: folded}
	v, err := p.evalSum()
	if err != nil {
		return 0, err
	}

	if tok := p.current(); tok.Type != TokenEOF {
		return 0, newError(KindMalformedExpression, tok.Pos, "unexpected %s", tok)
	}
	return v, nil
}

// Compute tokenizes and evaluates input.
func Compute(input string) (float64, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return 0, err
	}
	return Evaluate(tokens)
}

// foldPercent rewrites every Number, Percent pair into a single Number
// holding n/100. Chains apply repeatedly, so 50%% is 0.005.
func foldPercent(tokens []Token) ([]Token, error) {
	out := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Type != TokenOperator || tok.Op != OpPercent {
			out = append(out, tok)
			continue
		}
		if len(out) == 0 || out[len(out)-1].Type != TokenNumber {
			return nil, newError(KindMalformedExpression, tok.Pos, "percent must follow a number")
		}
		prev := out[len(out)-1]
		out[len(out)-1] = Token{
			Type:   TokenNumber,
			Value:  prev.Value / 100,
			Lexeme: prev.Lexeme + tok.Lexeme,
			Pos:    prev.Pos,
		}
	}
	return out, nil
}

// evaluator walks a percent-folded token slice.
type evaluator struct {
	tokens []Token
	pos    int
}

// current returns the current token.
func (p *evaluator) current() Token {
	if p.pos >= len(p.tokens) {
		end := 0
		if n := len(p.tokens); n > 0 {
			end = p.tokens[n-1].Pos + len(p.tokens[n-1].Lexeme)
		}
		return Token{Type: TokenEOF, Pos: end}
	}
	return p.tokens[p.pos]
}

// advance consumes the current token and returns it.
func (p *evaluator) advance() Token {
	tok := p.current()
	p.pos++
	return tok
}

// atOperator reports whether the current token is one of ops.
func (p *evaluator) atOperator(ops ...Operator) bool {
	tok := p.current()
	if tok.Type != TokenOperator {
		return false
	}
	for _, op := range ops {
		if tok.Op == op {
			return true
		}
	}
	return false
}

// evalSum handles + and -.
func (p *evaluator) evalSum() (float64, error) {
	left, err := p.evalProduct()
	if err != nil {
		return 0, err
	}

	for p.atOperator(OpAdd, OpSubtract) {
		op := p.advance()
		right, err := p.evalProduct()
		if err != nil {
			return 0, err
		}
		if op.Op == OpAdd {
			left += right
		} else {
			left -= right
		}
		if err := checkFinite(left, op.Pos); err != nil {
			return 0, err
		}
	}
	return left, nil
}

// evalProduct handles × and ÷.
func (p *evaluator) evalProduct() (float64, error) {
	left, err := p.evalPower()
	if err != nil {
		return 0, err
	}

	for p.atOperator(OpMultiply, OpDivide) {
		op := p.advance()
		right, err := p.evalPower()
		if err != nil {
			return 0, err
		}
		if op.Op == OpMultiply {
			left *= right
		} else {
			if right == 0 {
				return 0, newError(KindDivisionByZero, op.Pos, "division by zero")
			}
			left /= right
		}
		if err := checkFinite(left, op.Pos); err != nil {
			return 0, err
		}
	}
	return left, nil
}

// evalPower handles ^, recursing on the right for right associativity.
func (p *evaluator) evalPower() (float64, error) {
	base, err := p.evalOperand()
	if err != nil {
		return 0, err
	}

	if !p.atOperator(OpPower) {
		return base, nil
	}
	op := p.advance()
	exp, err := p.evalPower()
	if err != nil {
		return 0, err
	}
	v := math.Pow(base, exp)
	if err := checkFinite(v, op.Pos); err != nil {
		return 0, err
	}
	return v, nil
}

// evalOperand reads a number, optionally preceded by a single negating Subtract.
func (p *evaluator) evalOperand() (float64, error) {
	tok := p.current()
	negate := false
	if tok.Type == TokenOperator && tok.Op == OpSubtract {
		negate = true
		p.advance()
		tok = p.current()
	}

	switch tok.Type {
	case TokenNumber:
		p.advance()
		if err := checkFinite(tok.Value, tok.Pos); err != nil {
			return 0, err
		}
		if negate {
			return -tok.Value, nil
		}
		return tok.Value, nil
	case TokenEOF:
		return 0, newError(KindMalformedExpression, tok.Pos, "expected a number, got end of expression")
	default:
		return 0, newError(KindMalformedExpression, tok.Pos, "expected a number, got %s", tok.Op)
	}
}

func checkFinite(v float64, pos int) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return newError(KindDomainError, pos, "result is not a finite number")
	}
	return nil
}
