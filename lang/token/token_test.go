package token_test

import (
	"testing"

	"github.com/mna/kscript/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	cases := []struct {
		ident string
		want  token.Kind
	}{
		{"and", token.AND},
		{"class", token.CLASS},
		{"extend", token.EXTEND},
		{"while", token.WHILE},
		{"this", token.THIS},
		{"super", token.SUPER},
		{"notAKeyword", token.IDENT},
		{"Class", token.IDENT}, // case-sensitive
	}
	for _, c := range cases {
		t.Run(c.ident, func(t *testing.T) {
			assert.Equal(t, c.want, token.Lookup(c.ident))
		})
	}
}

func TestKindString(t *testing.T) {
	require.Equal(t, "(", token.LPAREN.String())
	require.Equal(t, "end of file", token.EOF.String())
	require.Equal(t, "unknown token", token.Kind(127).String())
}

func TestTokenString(t *testing.T) {
	tok := token.Token{Kind: token.IDENT, Lexeme: "foo", Line: 3}
	assert.Equal(t, "foo", tok.String())
}
