package scanner_test

import (
	"testing"

	"github.com/mna/kscript/lang/scanner"
	"github.com/mna/kscript/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(src string) []token.Token {
	s := scanner.New(src)
	var toks []token.Token
	for {
		tok := s.Scan()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestScanPunctuationAndKeywords(t *testing.T) {
	toks := scanAll(`var a = 1 + 2; // a comment
class Foo extend Bar { fun bar() { return this.x >= 3 and !false or nil; } }`)

	want := []token.Kind{
		token.VAR, token.IDENT, token.EQ, token.NUMBER, token.PLUS, token.NUMBER, token.SEMI,
		token.CLASS, token.IDENT, token.EXTEND, token.IDENT, token.LBRACE,
		token.FUN, token.IDENT, token.LPAREN, token.RPAREN, token.LBRACE,
		token.RETURN, token.THIS, token.DOT, token.IDENT, token.GT_EQ, token.NUMBER,
		token.AND, token.BANG, token.FALSE, token.OR, token.NIL, token.SEMI,
		token.RBRACE, token.RBRACE, token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, k := range want {
		assert.Equalf(t, k, toks[i].Kind, "token %d (%q)", i, toks[i].Lexeme)
	}
}

func TestScanNumbers(t *testing.T) {
	toks := scanAll("1 2.5 300")
	for _, tok := range toks[:3] {
		assert.Equal(t, token.NUMBER, tok.Kind)
	}
	assert.Equal(t, "2.5", toks[1].Lexeme)
}

func TestScanString(t *testing.T) {
	toks := scanAll(`"hello, world"`)
	require.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, `"hello, world"`, toks[0].Lexeme)
}

func TestScanUnterminatedString(t *testing.T) {
	toks := scanAll(`"hello`)
	require.Equal(t, token.ILLEGAL, toks[0].Kind)
	assert.Contains(t, toks[0].Lexeme, "unterminated")
}

func TestScanLineTracking(t *testing.T) {
	toks := scanAll("var a = 1;\nvar b = 2;")
	assert.Equal(t, 1, toks[0].Line)
	// find the second "var"
	var secondVarLine int
	count := 0
	for _, tok := range toks {
		if tok.Kind == token.VAR {
			count++
			if count == 2 {
				secondVarLine = tok.Line
			}
		}
	}
	assert.Equal(t, 2, secondVarLine)
}

func TestScanIllegalCharacter(t *testing.T) {
	toks := scanAll("@")
	require.Equal(t, token.ILLEGAL, toks[0].Kind)
}
