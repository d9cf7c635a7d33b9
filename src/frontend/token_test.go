package frontend_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"subtilisgo/src/cerr"
	"subtilisgo/src/frontend"
)

func TestSliceTokensAppendsTrailingEOF(t *testing.T) {
	toks := frontend.NewSliceTokens([]frontend.Token{
		{Kind: frontend.IntLit, IntVal: 1, Pos: cerr.Pos{Line: 1}},
	})
	assert.Equal(t, frontend.IntLit, toks.Next().Kind)
	assert.Equal(t, frontend.EOF, toks.Next().Kind)
}

func TestSliceTokensRepeatsFinalEOFForever(t *testing.T) {
	toks := frontend.NewSliceTokens(nil)
	for i := 0; i < 3; i++ {
		assert.Equal(t, frontend.EOF, toks.Next().Kind)
	}
}

func TestSliceTokensPeekDoesNotAdvance(t *testing.T) {
	toks := frontend.NewSliceTokens([]frontend.Token{
		{Kind: frontend.Plus},
		{Kind: frontend.Minus},
	})
	assert.Equal(t, frontend.Plus, toks.Peek().Kind)
	assert.Equal(t, frontend.Plus, toks.Peek().Kind)
	assert.Equal(t, frontend.Plus, toks.Next().Kind)
	assert.Equal(t, frontend.Minus, toks.Next().Kind)
}

func TestSliceTokensDoesNotDoubleAppendEOF(t *testing.T) {
	toks := frontend.NewSliceTokens([]frontend.Token{
		{Kind: frontend.IntLit},
		{Kind: frontend.EOF, Pos: cerr.Pos{Line: 7}},
	})
	toks.Next()
	eof := toks.Next()
	assert.Equal(t, 7, eof.Pos.Line)
	assert.Equal(t, frontend.EOF, toks.Next().Kind, "reading past the recorded EOF keeps returning EOF")
}

func TestKeywordVocabularyMapsToExpectedKinds(t *testing.T) {
	cases := map[string]frontend.Kind{
		"PRINT": frontend.KwPrint, "WHILE": frontend.KwWhile, "ENDWHILE": frontend.KwEndwhile,
		"PROC": frontend.KwProc, "ENDPROC": frontend.KwEndproc, "DIV": frontend.KwDiv,
		"MOD": frontend.KwMod, "TRUE": frontend.KwTrue, "FALSE": frontend.KwFalse,
	}
	for word, kind := range cases {
		assert.Equal(t, kind, frontend.Keywords[word], word)
	}
	assert.NotContains(t, frontend.Keywords, "NOTAKEYWORD")
}

func TestKindStringIsHumanReadable(t *testing.T) {
	assert.Equal(t, "PRINT", frontend.KwPrint.String())
	assert.Equal(t, "+", frontend.Plus.String())
	assert.Equal(t, "UNKNOWN", frontend.Kind(-1).String())
}
