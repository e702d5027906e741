package main

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/Xuexl-Mack/Formality/pkg/core"
)

// The loader reads a flat definition file into a Book. It is deliberately
// tiny: the kernel's real surface syntax lives in the front-end, which hands
// the kernel a resolved Defs mapping. Definitions look like
//
//	id : (A : Type;) -> (x : A) -> A = (A;) => (x) => x
//	two = ((n : Num) => n .+. 1)(1)
//
// with one definition per line (blank lines and #-comments skipped).

type token struct {
	kind string // "ident", "num", "oper", "newline", "eof", or punctuation
	text string
	loc  core.Loc
}

type lexer struct {
	file string
	src  string
	pos  int
	row  int
	col  int
	toks []token
}

func lexFile(file, src string) ([]token, error) {
	l := &lexer{file: file, src: src, row: 1, col: 1}
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		switch {
		case ch == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance()
			}
		case ch == '\n':
			l.emit("newline", "\n", 1)
			l.advance()
		case ch == ' ' || ch == '\t' || ch == '\r':
			l.advance()
		case ch == '.':
			if err := l.lexOper(); err != nil {
				return nil, err
			}
		case isIdentStart(ch):
			end := l.pos
			for end < len(l.src) && isIdentPart(l.src[end]) {
				end++
			}
			l.emit("ident", l.src[l.pos:end], end-l.pos)
			l.advanceN(end - l.pos)
		case ch >= '0' && ch <= '9':
			end := l.pos
			for end < len(l.src) && l.src[end] >= '0' && l.src[end] <= '9' {
				end++
			}
			l.emit("num", l.src[l.pos:end], end-l.pos)
			l.advanceN(end - l.pos)
		default:
			if err := l.lexPunct(ch); err != nil {
				return nil, err
			}
		}
	}
	l.emit("eof", "", 0)
	return l.toks, nil
}

func (l *lexer) lexOper() error {
	end := l.pos + 1
	for end < len(l.src) && strings.ContainsRune("+-*/%&|^~><=.", rune(l.src[end])) {
		end++
		if l.src[end-1] == '.' {
			break
		}
	}
	text := l.src[l.pos:end]
	if _, ok := core.ParseOper(text); !ok {
		return fmt.Errorf("%s:%d:%d: bad operator %q", l.file, l.row, l.col, text)
	}
	l.emit("oper", text, len(text))
	l.advanceN(len(text))
	return nil
}

func (l *lexer) lexPunct(ch byte) error {
	if l.pos+1 < len(l.src) {
		two := l.src[l.pos : l.pos+2]
		switch two {
		case "=>", "->", "${":
			l.emit(two, two, 2)
			l.advanceN(2)
			return nil
		}
	}
	switch ch {
	case '(', ')', '{', '}', ':', ';', '=', '?':
		l.emit(string(ch), string(ch), 1)
		l.advance()
		return nil
	}
	return fmt.Errorf("%s:%d:%d: stray character %q", l.file, l.row, l.col, ch)
}

func (l *lexer) emit(kind, text string, width int) {
	l.toks = append(l.toks, token{
		kind: kind,
		text: text,
		loc:  core.Loc{File: l.file, Row: l.row, Col: l.col, Idx: l.pos, Len: width},
	})
}

func (l *lexer) advance() {
	if l.src[l.pos] == '\n' {
		l.row++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
}

func (l *lexer) advanceN(n int) {
	for i := 0; i < n; i++ {
		l.advance()
	}
}

func isIdentStart(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || ch == '_'
}

func isIdentPart(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || unicode.IsDigit(rune(ch)) || ch == '_'
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != "eof" {
		p.pos++
	}
	return t
}

func (p *parser) accept(kind string) (token, bool) {
	if p.peek().kind == kind {
		return p.next(), true
	}
	return token{}, false
}

func (p *parser) expect(kind string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, fmt.Errorf("%s: expected %q, found %q", t.loc.String(), kind, t.text)
	}
	return t, nil
}

func (p *parser) skipNewlines() {
	for p.peek().kind == "newline" {
		p.next()
	}
}

// LoadBook parses a definition file into a fresh book.
func LoadBook(file, src string) (*core.Book, error) {
	toks, err := lexFile(file, src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	book := core.NewBook()

	for {
		p.skipNewlines()
		if p.peek().kind == "eof" {
			return book, nil
		}
		name, err := p.expect("ident")
		if err != nil {
			return nil, err
		}
		var typ core.Term
		if _, ok := p.accept(":"); ok {
			typ, err = p.parseTerm(nil)
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect("="); err != nil {
			return nil, err
		}
		body, err := p.parseTerm(nil)
		if err != nil {
			return nil, err
		}
		if typ != nil {
			loc := name.loc
			body = core.At(&core.Ann{Type: typ, Expr: body}, &loc)
		}
		book.Define(name.text, body)
	}
}

// parseTerm parses a term under the given binder scope (innermost last):
// an atom, its application chain, then left-associative operator chains.
func (p *parser) parseTerm(scope []string) (core.Term, error) {
	lhs, err := p.parseCall(scope)
	if err != nil {
		return nil, err
	}
	for p.peek().kind == "oper" {
		op := p.next()
		oper, _ := core.ParseOper(op.text)
		rhs, err := p.parseCall(scope)
		if err != nil {
			return nil, err
		}
		loc := op.loc
		lhs = core.At(&core.Op2{Oper: oper, Num0: lhs, Num1: rhs}, &loc)
	}
	return lhs, nil
}

func (p *parser) parseCall(scope []string) (core.Term, error) {
	fn, err := p.parseAtom(scope)
	if err != nil {
		return nil, err
	}
	for p.peek().kind == "(" {
		open := p.next()
		arg, err := p.parseTerm(scope)
		if err != nil {
			return nil, err
		}
		_, eras := p.accept(";")
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		loc := open.loc
		fn = core.At(&core.App{Func: fn, Argm: arg, Eras: eras}, &loc)
	}
	return fn, nil
}

func (p *parser) parseAtom(scope []string) (core.Term, error) {
	t := p.peek()
	loc := t.loc
	switch t.kind {
	case "num":
		p.next()
		v, err := strconv.ParseUint(t.text, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", t.loc.String(), err)
		}
		return core.At(&core.Val{Numb: uint32(v)}, &loc), nil

	case "?":
		p.next()
		name, err := p.expect("ident")
		if err != nil {
			return nil, err
		}
		return core.At(&core.Hol{Name: name.text}, &loc), nil

	case "${":
		p.next()
		name, err := p.expect("ident")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect("}"); err != nil {
			return nil, err
		}
		body, err := p.parseTerm(append(scope, name.text))
		if err != nil {
			return nil, err
		}
		return core.At(&core.Slf{Name: name.text, Type: body}, &loc), nil

	case "(":
		return p.parseGroup(scope)

	case "ident":
		p.next()
		switch t.text {
		case "Type":
			return core.At(&core.Typ{}, &loc), nil
		case "Num":
			return core.At(&core.Num{}, &loc), nil
		case "if":
			return p.parseIf(scope, loc)
		case "new":
			if _, err := p.expect("("); err != nil {
				return nil, err
			}
			typ, err := p.parseTerm(scope)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			expr, err := p.parseCall(scope)
			if err != nil {
				return nil, err
			}
			return core.At(&core.New{Type: typ, Expr: expr}, &loc), nil
		case "use":
			if _, err := p.expect("("); err != nil {
				return nil, err
			}
			expr, err := p.parseTerm(scope)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			return core.At(&core.Use{Expr: expr}, &loc), nil
		case "log":
			if _, err := p.expect("("); err != nil {
				return nil, err
			}
			msg, err := p.parseTerm(scope)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			expr, err := p.parseTerm(scope)
			if err != nil {
				return nil, err
			}
			return core.At(&core.Log{Msge: msg, Expr: expr}, &loc), nil
		}
		for i := len(scope) - 1; i >= 0; i-- {
			if scope[i] == t.text {
				return core.At(&core.Var{Indx: len(scope) - 1 - i}, &loc), nil
			}
		}
		return core.At(&core.Ref{Name: t.text}, &loc), nil
	}
	return nil, fmt.Errorf("%s: unexpected %q", t.loc.String(), t.text)
}

func (p *parser) parseIf(scope []string, loc core.Loc) (core.Term, error) {
	cond, err := p.parseTerm(scope)
	if err != nil {
		return nil, err
	}
	if err := p.expectIdent("then"); err != nil {
		return nil, err
	}
	ift, err := p.parseTerm(scope)
	if err != nil {
		return nil, err
	}
	if err := p.expectIdent("else"); err != nil {
		return nil, err
	}
	iff, err := p.parseTerm(scope)
	if err != nil {
		return nil, err
	}
	return core.At(&core.Ite{Cond: cond, IfT: ift, IfF: iff}, &loc), nil
}

func (p *parser) expectIdent(word string) error {
	t := p.next()
	if t.kind != "ident" || t.text != word {
		return fmt.Errorf("%s: expected %q, found %q", t.loc.String(), word, t.text)
	}
	return nil
}

// parseGroup resolves the '(' ambiguity: binder groups ((x : A) -> B,
// (x : A;) -> B, (x) => b, (x;) => b, (x : A;) => b) versus parenthesized
// terms, by saving and restoring the cursor.
func (p *parser) parseGroup(scope []string) (core.Term, error) {
	save := p.pos
	open, _ := p.accept("(")
	loc := open.loc

	name, ok := p.accept("ident")
	if !ok {
		p.pos = save
		return p.parseParen(scope)
	}

	if _, ok := p.accept(";"); ok {
		if _, ok := p.accept(")"); ok {
			if _, ok := p.accept("=>"); ok {
				body, err := p.parseTerm(append(scope, name.text))
				if err != nil {
					return nil, err
				}
				return core.At(&core.Lam{Name: name.text, Body: body, Eras: true}, &loc), nil
			}
		}
		p.pos = save
		return p.parseParen(scope)
	}

	if _, ok := p.accept(")"); ok {
		if _, ok := p.accept("=>"); ok {
			body, err := p.parseTerm(append(scope, name.text))
			if err != nil {
				return nil, err
			}
			return core.At(&core.Lam{Name: name.text, Body: body}, &loc), nil
		}
		p.pos = save
		return p.parseParen(scope)
	}

	if _, ok := p.accept(":"); ok {
		bind, err := p.parseTerm(scope)
		if err != nil {
			p.pos = save
			return p.parseParen(scope)
		}
		_, eras := p.accept(";")
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		arrow := p.next()
		body, err := p.parseTerm(append(scope, name.text))
		if err != nil {
			return nil, err
		}
		switch arrow.kind {
		case "->":
			return core.At(&core.All{Name: name.text, Bind: bind, Body: body, Eras: eras}, &loc), nil
		case "=>":
			return core.At(&core.Lam{Name: name.text, Bind: bind, Body: body, Eras: eras}, &loc), nil
		default:
			return nil, fmt.Errorf("%s: expected -> or => after binder", arrow.loc.String())
		}
	}

	p.pos = save
	return p.parseParen(scope)
}

func (p *parser) parseParen(scope []string) (core.Term, error) {
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	t, err := p.parseTerm(scope)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	return t, nil
}
