package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtilisgo/src/cerr"
	"subtilisgo/src/compiler"
	"subtilisgo/src/frontend"
)

func tokens(ks ...frontend.Token) *frontend.SliceTokens {
	return frontend.NewSliceTokens(ks)
}

func TestCompileMainExpressionHappyPath(t *testing.T) {
	toks := tokens(
		frontend.Token{Kind: frontend.IntLit, IntVal: 2},
		frontend.Token{Kind: frontend.Plus},
		frontend.Token{Kind: frontend.IntLit, IntVal: 3},
	)
	res, err := compiler.CompileMainExpression(toks)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Program.Len())
	snap := res.Stats.Snapshot()
	assert.Equal(t, 1.0, snap["sections_compiled"])
	assert.Greater(t, snap["instructions_emitted"], 0.0)
	assert.Greater(t, snap["registers_allocated"], 0.0, "materialising the folded sum must allocate at least one register")
}

func TestCompileMainExpressionRejectsTrailingTokens(t *testing.T) {
	toks := tokens(
		frontend.Token{Kind: frontend.IntLit, IntVal: 1},
		frontend.Token{Kind: frontend.IntLit, IntVal: 2},
	)
	_, err := compiler.CompileMainExpression(toks)
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.CompoundNotTerminated))
}

func TestCompileMainExpressionPropagatesParseErrors(t *testing.T) {
	toks := tokens(frontend.Token{Kind: frontend.Identifier, Text: "undeclared"})
	_, err := compiler.CompileMainExpression(toks)
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.UnknownVariable))
}
