package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loxlang/golox/internal/token"
)

func collect(src string) []token.Token {
	l := New(src)
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestNextTokenPunctuationAndOperators(t *testing.T) {
	toks := collect("(){};,.-+*/ ! != = == < <= > >=")
	kinds := make([]token.Kind, 0, len(toks))
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	require.Equal(t, []token.Kind{
		token.LEFT_PAREN, token.RIGHT_PAREN, token.LEFT_BRACE, token.RIGHT_BRACE,
		token.SEMICOLON, token.COMMA, token.DOT, token.MINUS, token.PLUS,
		token.STAR, token.SLASH,
		token.BANG, token.BANG_EQUAL, token.EQUAL, token.EQUAL_EQUAL,
		token.LESS, token.LESS_EQUAL, token.GREATER, token.GREATER_EQUAL,
		token.EOF,
	}, kinds)
}

func TestNextTokenKeywordsAndIdentifiers(t *testing.T) {
	toks := collect("class fun var myVar init this super")
	require.Equal(t, token.CLASS, toks[0].Kind)
	require.Equal(t, token.FUN, toks[1].Kind)
	require.Equal(t, token.VAR, toks[2].Kind)
	require.Equal(t, token.IDENTIFIER, toks[3].Kind)
	require.Equal(t, "myVar", toks[3].Lexeme)
	require.Equal(t, token.IDENTIFIER, toks[4].Kind)
	require.Equal(t, "init", toks[4].Lexeme)
	require.Equal(t, token.THIS, toks[5].Kind)
	require.Equal(t, token.SUPER, toks[6].Kind)
}

func TestNextTokenNumbers(t *testing.T) {
	toks := collect("123 45.67 0")
	require.Equal(t, "123", toks[0].Lexeme)
	require.Equal(t, "45.67", toks[1].Lexeme)
	require.Equal(t, "0", toks[2].Lexeme)
}

func TestNextTokenStrings(t *testing.T) {
	toks := collect(`"hello world"`)
	require.Equal(t, token.STRING, toks[0].Kind)
	require.Equal(t, `"hello world"`, toks[0].Lexeme)
}

func TestNextTokenUnterminatedString(t *testing.T) {
	toks := collect(`"unterminated`)
	require.Equal(t, token.ERROR, toks[0].Kind)
	require.Equal(t, "Unterminated string.", toks[0].Lexeme)
}

func TestNextTokenUnknownCharacter(t *testing.T) {
	toks := collect("@")
	require.Equal(t, token.ERROR, toks[0].Kind)
}

func TestNextTokenSkipsLineComments(t *testing.T) {
	toks := collect("1 // a comment\n2")
	require.Equal(t, token.NUMBER, toks[0].Kind)
	require.Equal(t, "1", toks[0].Lexeme)
	require.Equal(t, token.NUMBER, toks[1].Kind)
	require.Equal(t, "2", toks[1].Lexeme)
	require.Equal(t, 2, toks[1].Line)
}

func TestNextTokenTracksLines(t *testing.T) {
	toks := collect("1\n2\n3")
	require.Equal(t, 1, toks[0].Line)
	require.Equal(t, 2, toks[1].Line)
	require.Equal(t, 3, toks[2].Line)
}
