package lexer

import (
	"io"
	"testing"

	"github.com/pattyshack/gt/parseutil"
	"github.com/stretchr/testify/require"
)

type lexed struct {
	SymbolId
	Value string
}

func lexAll(t *testing.T, content string) []lexed {
	t.Helper()

	lexer := NewLexer(
		parseutil.NewBufferedByteLocationReaderFromSlice(
			"test.ir",
			[]byte(content)))

	result := []lexed{}
	for {
		token, err := lexer.Next()
		if err == io.EOF {
			return result
		}
		require.NoError(t, err)

		value := token.Value
		if token.SymbolId == NewlinesToken {
			value = ""
		}
		result = append(result, lexed{token.SymbolId, value})
	}
}

func TestLexInstruction(t *testing.T) {
	tokens := lexAll(t, "%buf = call @malloc(8192) !access_count(400)")

	require.Equal(
		t,
		[]lexed{
			{PercentToken, "%"},
			{IdentifierToken, "buf"},
			{EqualToken, "="},
			{IdentifierToken, "call"},
			{AtToken, "@"},
			{IdentifierToken, "malloc"},
			{LparenToken, "("},
			{IntegerLiteralToken, "8192"},
			{RparenToken, ")"},
			{BangToken, "!"},
			{IdentifierToken, "access_count"},
			{LparenToken, "("},
			{IntegerLiteralToken, "400"},
			{RparenToken, ")"},
		},
		tokens)
}

func TestLexLiterals(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected lexed
	}{
		{"integer", "42", lexed{IntegerLiteralToken, "42"}},
		{"negative integer", "-7", lexed{IntegerLiteralToken, "-7"}},
		{"float", "1.5", lexed{FloatLiteralToken, "1.5"}},
		{"exponent", "2e-3", lexed{FloatLiteralToken, "2e-3"}},
		{"identifier", "a_b.c1", lexed{IdentifierToken, "a_b.c1"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, []lexed{test.expected}, lexAll(t, test.content))
		})
	}
}

func TestCommentsAndNewlines(t *testing.T) {
	tokens := lexAll(
		t,
		"ret // trailing comment\n\n\n  /* inline */ jmp :a /* multi\nline */ ret\n")

	require.Equal(
		t,
		[]lexed{
			{IdentifierToken, "ret"},
			{NewlinesToken, ""},
			{IdentifierToken, "jmp"},
			{ColonToken, ":"},
			{IdentifierToken, "a"},
			{NewlinesToken, ""},
			{IdentifierToken, "ret"},
			{NewlinesToken, ""},
		},
		tokens)
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unterminated block comment", "/* never closed"},
		{"unexpected character", "#"},
		{"dangling minus", "- 1"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			lexer := NewLexer(
				parseutil.NewBufferedByteLocationReaderFromSlice(
					"test.ir",
					[]byte(test.content)))

			_, err := lexer.Next()
			require.Error(t, err)
			require.NotEqual(t, io.EOF, err)
		})
	}
}
