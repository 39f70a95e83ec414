package template

import "fmt"

// ParseExpr parses one expression string (the inside of a {{ }} block,
// or an if/for clause) into the uniform AST.
func ParseExpr(src string) (*Node, error) {
	toks, err := tokenizeAll(src)
	if err != nil {
		return nil, err
	}
	p := &exprParser{toks: toks}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected trailing input at token %d (%q)", p.pos, p.peek().text)
	}
	return n, nil
}

func tokenizeAll(src string) ([]token, error) {
	l := newExprLexer(src)
	var toks []token
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.kind == tokEOF {
			return toks, nil
		}
	}
}

type exprParser struct {
	toks []token
	pos  int
}

func (p *exprParser) peek() token {
	if p.pos >= len(p.toks) {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *exprParser) advance() token {
	t := p.peek()
	if p.pos < len(p.toks)-1 {
		p.pos++
	} else {
		p.pos = len(p.toks)
	}
	return t
}

func (p *exprParser) isWord(t token, word string) bool {
	return t.kind == tokIdent && t.text == word
}

// precedence (low to high): or, and, equality, relational, additive,
// multiplicative, pipe, primary/calls/parens — matching §4.2 exactly.

func (p *exprParser) parseOr() (*Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isWord(p.peek(), "or") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = binOp("or", left, right)
	}
	return left, nil
}

func (p *exprParser) parseAnd() (*Node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.isWord(p.peek(), "and") {
		p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = binOp("and", left, right)
	}
	return left, nil
}

func (p *exprParser) parseEquality() (*Node, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind == tokOp && (t.text == "==" || t.text == "!=") {
			p.advance()
			right, err := p.parseRelational()
			if err != nil {
				return nil, err
			}
			left = binOp(t.text, left, right)
			continue
		}
		break
	}
	return left, nil
}

func (p *exprParser) parseRelational() (*Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind == tokOp && (t.text == "<" || t.text == "<=" || t.text == ">" || t.text == ">=") {
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = binOp(t.text, left, right)
			continue
		}
		if p.isWord(t, "in") {
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = binOp("in", left, right)
			continue
		}
		break
	}
	return left, nil
}

func (p *exprParser) parseAdditive() (*Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind == tokOp && (t.text == "+" || t.text == "-" || t.text == "++" || t.text == "--") {
			p.advance()
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = binOp(t.text, left, right)
			continue
		}
		break
	}
	return left, nil
}

func (p *exprParser) parseMultiplicative() (*Node, error) {
	left, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind == tokOp && (t.text == "*" || t.text == "/") {
			p.advance()
			right, err := p.parsePipe()
			if err != nil {
				return nil, err
			}
			left = binOp(t.text, left, right)
			continue
		}
		break
	}
	return left, nil
}

// parsePipe implements `a | f(x)` sugar: rewrite into call(f, [a, x, ...]).
// Chains left-to-right: `a | f | g(2)` == g(f(a), 2).
func (p *exprParser) parsePipe() (*Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokPipe {
		p.advance()
		t := p.peek()
		if t.kind != tokIdent {
			return nil, fmt.Errorf("expected filter name after '|', got %q", t.text)
		}
		fn := t.text
		p.advance()
		args := []*Node{left}
		if p.peek().kind == tokLParen {
			p.advance()
			extra, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			args = append(args, extra...)
		}
		left = call(fn, args)
	}
	return left, nil
}

func (p *exprParser) parseArgList() ([]*Node, error) {
	var args []*Node
	if p.peek().kind == tokRParen {
		p.advance()
		return args, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		t := p.peek()
		if t.kind == tokComma {
			p.advance()
			continue
		}
		if t.kind == tokRParen {
			p.advance()
			break
		}
		return nil, fmt.Errorf("expected ',' or ')' in argument list, got %q", t.text)
	}
	return args, nil
}

func (p *exprParser) parsePrimary() (*Node, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.advance()
		if t.isInt {
			return lit(int64(t.num)), nil
		}
		return lit(t.num), nil
	case tokString:
		p.advance()
		return lit(t.text), nil
	case tokLParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("expected ')' to close group")
		}
		p.advance()
		return grouped(inner), nil
	case tokIdent:
		return p.parseIdentOrCall(t)
	default:
		return nil, fmt.Errorf("unexpected token %q", t.text)
	}
}

func (p *exprParser) parseIdentOrCall(t token) (*Node, error) {
	p.advance()
	switch t.text {
	case "true":
		return lit(true), nil
	case "false":
		return lit(false), nil
	case "null", "nil":
		return lit(nil), nil
	}
	if p.peek().kind == tokLParen {
		p.advance()
		args, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		return call(t.text, args), nil
	}
	return varNode(t.text), nil
}
