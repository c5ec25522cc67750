// This file is part of lumi-lang - https://github.com/martin-bucinskas/lumi-lang
//
// Copyright 2025 Martin Bucinskas
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package asm

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/scanner"
	"unicode"
)

// The grammar is line-oriented: `;` comments to end of line, newline
// terminates a statement, space and tab are insignificant. Registers
// are `$N`, label declarations `name:`, label references `@name`,
// directives `.name`, strings double-quoted with no escape processing.

type stmtKind uint8

const (
	stmtComment stmtKind = iota
	stmtSection          // bare .data/.bss/.text
	stmtLabel            // bare label declaration
	stmtData             // label: .asciiz/.integer/.float [literal]
	stmtInstr            // [label:] opcode operands...
)

type directive uint8

const (
	dirNone directive = iota
	dirData
	dirBss
	dirText
	dirAsciiz
	dirInteger
	dirFloat
)

var directives = map[string]directive{
	"data":    dirData,
	"bss":     dirBss,
	"text":    dirText,
	"asciiz":  dirAsciiz,
	"integer": dirInteger,
	"float":   dirFloat,
}

type operandKind uint8

const (
	opdReg operandKind = iota
	opdInt
	opdFloat
	opdLabel
	opdString
)

type operand struct {
	pos  scanner.Position
	kind operandKind
	reg  int
	num  int64
	fnum float64
	name string // label reference
	str  string // string literal
}

// stmt is one parsed source line.
type stmt struct {
	pos   scanner.Position
	kind  stmtKind
	label string // leading label, if any
	dir   directive
	op    string // mnemonic, as written
	args  []operand
}

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokEOL
	tokComment
	tokReg
	tokInt
	tokFloat
	tokString
	tokLabelRef
	tokLabelDecl
	tokDirective
	tokIdent
	tokBad
)

type token struct {
	pos  scanner.Position
	kind tokKind
	text string
	reg  int
	num  int64
	fnum float64
	dir  directive
}

// parser carries all state for one Parse call; concurrent parses share
// nothing.
type parser struct {
	s      scanner.Scanner
	err    error
	peeked *token
}

func newParser() *parser { return new(parser) }

func isIdentRune(ch rune, i int) bool {
	if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '.' {
		return true
	}
	switch ch {
	case '$', '@', '-':
		return i == 0
	case ':':
		return i > 0
	}
	return false
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, ch := range s {
		if unicode.IsLetter(ch) || ch == '_' || (i > 0 && unicode.IsDigit(ch)) {
			continue
		}
		return false
	}
	return true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

// Parse tokenizes and parses the source read from r into ordered
// statements. The name parameter is used in error positions only. The
// first syntax error aborts the parse.
func (p *parser) Parse(name string, r io.Reader) ([]stmt, error) {
	p.s.Init(r)
	p.s.Filename = name
	p.s.Mode = scanner.ScanIdents
	p.s.Whitespace = 1<<' ' | 1<<'\t' | 1<<'\r'
	p.s.IsIdentRune = isIdentRune
	p.s.Error = func(s *scanner.Scanner, msg string) {
		pos := s.Position
		if !pos.IsValid() {
			pos = s.Pos()
		}
		p.fail(pos, msg)
	}

	var prog []stmt
	for p.err == nil {
		st, eof := p.line()
		if st != nil {
			prog = append(prog, *st)
		}
		if eof {
			break
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return prog, nil
}

func (p *parser) fail(pos scanner.Position, format string, args ...interface{}) {
	if p.err == nil {
		p.err = &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
	}
}

func (p *parser) next() token {
	if p.peeked != nil {
		t := *p.peeked
		p.peeked = nil
		return t
	}
	return p.scan()
}

func (p *parser) peek() token {
	if p.peeked == nil {
		t := p.scan()
		p.peeked = &t
	}
	return *p.peeked
}

func (p *parser) scan() token {
	t := p.s.Scan()
	pos := p.s.Position
	if p.err != nil {
		return token{pos: pos, kind: tokBad}
	}
	switch t {
	case scanner.EOF:
		return token{pos: pos, kind: tokEOF}
	case '\n':
		return token{pos: pos, kind: tokEOL}
	case ';':
		return p.scanComment(pos)
	case '"':
		return p.scanString(pos)
	case scanner.Ident:
		return p.classify(pos, p.s.TokenText())
	default:
		p.fail(pos, "unexpected character %s", strconv.QuoteRune(t))
		return token{pos: pos, kind: tokBad}
	}
}

// scanComment consumes to end of line, leaving the newline in place.
func (p *parser) scanComment(pos scanner.Position) token {
	var b strings.Builder
	for ch := p.s.Peek(); ch != '\n' && ch != scanner.EOF; ch = p.s.Peek() {
		b.WriteRune(p.s.Next())
	}
	return token{pos: pos, kind: tokComment, text: strings.TrimSpace(b.String())}
}

// scanString consumes a double-quoted string. There is no escape
// processing: every byte up to the next quote is taken literally.
func (p *parser) scanString(pos scanner.Position) token {
	var b strings.Builder
	for {
		ch := p.s.Next()
		switch ch {
		case '"':
			return token{pos: pos, kind: tokString, text: b.String()}
		case '\n', scanner.EOF:
			p.fail(pos, "unterminated string")
			return token{pos: pos, kind: tokBad}
		}
		b.WriteRune(ch)
	}
}

func (p *parser) classify(pos scanner.Position, text string) token {
	switch {
	case strings.HasPrefix(text, "$"):
		if !allDigits(text[1:]) {
			p.fail(pos, "invalid register %q", text)
			return token{pos: pos, kind: tokBad}
		}
		n, err := strconv.Atoi(text[1:])
		if err != nil {
			p.fail(pos, "invalid register %q", text)
			return token{pos: pos, kind: tokBad}
		}
		return token{pos: pos, kind: tokReg, text: text, reg: n}

	case strings.HasPrefix(text, "@"):
		if !isIdentifier(text[1:]) {
			p.fail(pos, "invalid label reference %q", text)
			return token{pos: pos, kind: tokBad}
		}
		return token{pos: pos, kind: tokLabelRef, text: text[1:]}

	case strings.HasPrefix(text, "."):
		d, ok := directives[text[1:]]
		if !ok {
			p.fail(pos, "unknown directive %q", text)
			return token{pos: pos, kind: tokBad}
		}
		return token{pos: pos, kind: tokDirective, text: text, dir: d}

	case strings.HasSuffix(text, ":"):
		name := text[:len(text)-1]
		if !isIdentifier(name) {
			p.fail(pos, "invalid label declaration %q", text)
			return token{pos: pos, kind: tokBad}
		}
		return token{pos: pos, kind: tokLabelDecl, text: name}

	case text[0] == '-' || (text[0] >= '0' && text[0] <= '9'):
		if strings.ContainsRune(text, '.') {
			halves := strings.SplitN(text, ".", 2)
			if len(halves) != 2 || !allDigits(halves[0]) || !allDigits(halves[1]) {
				p.fail(pos, "invalid float literal %q", text)
				return token{pos: pos, kind: tokBad}
			}
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				p.fail(pos, "invalid float literal %q", text)
				return token{pos: pos, kind: tokBad}
			}
			return token{pos: pos, kind: tokFloat, text: text, fnum: f}
		}
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			p.fail(pos, "invalid integer literal %q", text)
			return token{pos: pos, kind: tokBad}
		}
		return token{pos: pos, kind: tokInt, text: text, num: n}

	case isIdentifier(text):
		return token{pos: pos, kind: tokIdent, text: text}
	}
	p.fail(pos, "invalid token %q", text)
	return token{pos: pos, kind: tokBad}
}

// line parses one source line into a statement, or nil for a blank
// line. The second return value reports end of input.
func (p *parser) line() (*stmt, bool) {
	t := p.next()
	switch t.kind {
	case tokEOF, tokBad:
		return nil, true
	case tokEOL:
		return nil, false
	case tokComment:
		return &stmt{pos: t.pos, kind: stmtComment}, p.endOfLine()

	case tokDirective:
		return p.directiveLine(t, "")

	case tokLabelDecl:
		switch n := p.peek(); n.kind {
		case tokEOL, tokEOF, tokComment:
			// bare label: defines a name at the current offset
			st := &stmt{pos: t.pos, kind: stmtLabel, label: t.text}
			return st, p.endOfLine()
		case tokDirective:
			return p.directiveLine(p.next(), t.text)
		case tokIdent:
			return p.instrLine(t.pos, t.text, p.next())
		case tokBad:
			return nil, true
		default:
			p.fail(n.pos, "expected directive, opcode or end of line after label %q", t.text)
			return nil, true
		}

	case tokIdent:
		return p.instrLine(t.pos, "", t)
	}
	p.fail(t.pos, "unexpected token %q at start of line", t.text)
	return nil, true
}

// directiveLine parses a section switch or a data declaration.
func (p *parser) directiveLine(dt token, label string) (*stmt, bool) {
	switch dt.dir {
	case dirData, dirBss, dirText:
		if label != "" {
			p.fail(dt.pos, "section directive %s cannot carry a label", dt.text)
			return nil, true
		}
		st := &stmt{pos: dt.pos, kind: stmtSection, dir: dt.dir}
		return st, p.endOfLine()
	}
	// .asciiz/.integer/.float
	if label == "" {
		p.fail(dt.pos, "%s declaration requires a label", dt.text)
		return nil, true
	}
	st := &stmt{pos: dt.pos, kind: stmtData, label: label, dir: dt.dir}
	for {
		t := p.next()
		switch t.kind {
		case tokEOL, tokEOF:
			return st, t.kind == tokEOF
		case tokComment:
			return st, p.endOfLine()
		case tokBad:
			return nil, true
		}
		if len(st.args) == 1 {
			p.fail(t.pos, "%s takes at most one operand", dt.text)
			return nil, true
		}
		switch t.kind {
		case tokInt:
			st.args = append(st.args, operand{pos: t.pos, kind: opdInt, num: t.num})
		case tokFloat:
			st.args = append(st.args, operand{pos: t.pos, kind: opdFloat, fnum: t.fnum})
		case tokString:
			st.args = append(st.args, operand{pos: t.pos, kind: opdString, str: t.text})
		default:
			p.fail(t.pos, "invalid %s operand %q", dt.text, t.text)
			return nil, true
		}
	}
}

// instrLine parses an instruction with up to three operands.
func (p *parser) instrLine(pos scanner.Position, label string, op token) (*stmt, bool) {
	st := &stmt{pos: pos, kind: stmtInstr, label: label, op: op.text}
	for {
		t := p.next()
		switch t.kind {
		case tokEOL, tokEOF:
			return st, t.kind == tokEOF
		case tokComment:
			return st, p.endOfLine()
		case tokBad:
			return nil, true
		}
		if len(st.args) == 3 {
			p.fail(t.pos, "too many operands for %s", st.op)
			return nil, true
		}
		switch t.kind {
		case tokReg:
			st.args = append(st.args, operand{pos: t.pos, kind: opdReg, reg: t.reg})
		case tokInt:
			st.args = append(st.args, operand{pos: t.pos, kind: opdInt, num: t.num})
		case tokFloat:
			st.args = append(st.args, operand{pos: t.pos, kind: opdFloat, fnum: t.fnum})
		case tokLabelRef:
			st.args = append(st.args, operand{pos: t.pos, kind: opdLabel, name: t.text})
		default:
			p.fail(t.pos, "invalid operand %q for %s", t.text, st.op)
			return nil, true
		}
	}
}

// endOfLine consumes an optional trailing comment and the newline
// terminating the current statement.
func (p *parser) endOfLine() bool {
	t := p.next()
	if t.kind == tokComment {
		t = p.next()
	}
	switch t.kind {
	case tokEOL:
		return false
	case tokEOF, tokBad:
		return true
	default:
		p.fail(t.pos, "unexpected token %q at end of line", t.text)
		return true
	}
}
