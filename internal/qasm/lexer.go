package qasm

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/scanner"
)

// tokPragma carries a decoded "// @unitary" matrix; the operands that follow
// it on the same line are lexed as ordinary tokens.
const tokPragma rune = -100

const pragmaPrefix = "// @unitary"

type token struct {
	kind   rune
	text   string
	line   int
	matrix [][][2]float64
}

func (t token) String() string {
	switch t.kind {
	case scanner.EOF:
		return "end of input"
	case tokPragma:
		return "@unitary pragma"
	}
	return fmt.Sprintf("%q", t.text)
}

// lex splits src into tokens. Comments are dropped except unitary pragmas.
func lex(src string, firstLine int) ([]token, error) {
	var s scanner.Scanner
	s.Init(strings.NewReader(src))
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats |
		scanner.ScanStrings | scanner.ScanComments
	var lexErr error
	s.Error = func(s *scanner.Scanner, msg string) {
		if lexErr == nil {
			lexErr = &SyntaxError{Line: s.Pos().Line + firstLine - 1, Msg: msg}
		}
	}

	var toks []token
	for r := s.Scan(); r != scanner.EOF; r = s.Scan() {
		line := s.Position.Line + firstLine - 1
		text := s.TokenText()
		if r == scanner.Comment {
			if !strings.HasPrefix(text, pragmaPrefix) {
				continue
			}
			pragma, err := lexPragma(strings.TrimPrefix(text, pragmaPrefix), line)
			if err != nil {
				return nil, err
			}
			toks = append(toks, pragma...)
			continue
		}
		toks = append(toks, token{kind: r, text: text, line: line})
	}
	if lexErr != nil {
		return nil, lexErr
	}
	return append(toks, token{kind: scanner.EOF, line: s.Pos().Line + firstLine - 1}), nil
}

// lexPragma decodes "[[[re, im], ...], ...] operands;" into a pragma token
// followed by the operand tokens.
func lexPragma(rest string, line int) ([]token, error) {
	dec := json.NewDecoder(strings.NewReader(rest))
	var m [][][2]float64
	if err := dec.Decode(&m); err != nil {
		return nil, &SyntaxError{Line: line, Msg: "malformed @unitary matrix", Err: err}
	}
	operands, err := lex(rest[dec.InputOffset():], line)
	if err != nil {
		return nil, err
	}
	out := []token{{kind: tokPragma, text: pragmaPrefix, line: line, matrix: m}}
	return append(out, operands[:len(operands)-1]...), nil
}
