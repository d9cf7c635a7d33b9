package symtab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtilisgo/src/cerr"
	"subtilisgo/src/ir"
	"subtilisgo/src/symtab"
	"subtilisgo/src/types"
)

func TestInsertAndLookupAcrossScopes(t *testing.T) {
	tab := symtab.NewTable()

	_, err := tab.Insert("x", types.TInt, 4, 4, cerr.Pos{})
	require.NoError(t, err)

	tab.LevelUp(0)
	inner, err := tab.Insert("y", types.TInt, 4, 4, cerr.Pos{})
	require.NoError(t, err)
	assert.Same(t, inner, tab.Lookup("y"))
	assert.NotNil(t, tab.Lookup("x"), "outer scope must remain visible from inner scope")

	_, _, err2 := tab.LevelDown()
	require.NoError(t, err2)
	assert.Nil(t, tab.Lookup("y"), "y must not be visible once its scope is popped")
}

func TestShadowingIsAllowedAcrossScopesNotWithinOne(t *testing.T) {
	tab := symtab.NewTable()
	_, err := tab.Insert("x", types.TInt, 4, 4, cerr.Pos{})
	require.NoError(t, err)

	_, err = tab.Insert("x", types.TReal, 8, 8, cerr.Pos{})
	require.Error(t, err, "duplicate name within the same scope must fail")
	assert.True(t, cerr.Is(err, cerr.AlreadyDefined))

	tab.LevelUp(0)
	_, err = tab.Insert("x", types.TReal, 8, 8, cerr.Pos{})
	require.NoError(t, err, "shadowing an outer-scope name from an inner scope is allowed")
	assert.Equal(t, types.TReal, tab.Lookup("x").Type)
}

func TestLevelDownReturnsSymbolsInReverseInsertionOrder(t *testing.T) {
	tab := symtab.NewTable()
	tab.LevelUp(3)
	a, _ := tab.Insert("a", types.TInt, 4, 4, cerr.Pos{})
	b, _ := tab.Insert("b", types.TInt, 4, 4, cerr.Pos{})
	c, _ := tab.Insert("c", types.TInt, 4, 4, cerr.Pos{})

	syms, depth, err := tab.LevelDown()
	require.NoError(t, err)
	assert.Equal(t, 3, depth)
	assert.Equal(t, []*symtab.Symbol{c, b, a}, syms)
}

func TestInsertAlignsOffsetsAndTracksMaxAllocated(t *testing.T) {
	tab := symtab.NewTable()
	b, err := tab.Insert("b", types.TByte, 1, 1, cerr.Pos{})
	require.NoError(t, err)
	assert.Equal(t, 0, b.Offset)

	i, err := tab.Insert("i", types.TInt, 4, 4, cerr.Pos{})
	require.NoError(t, err)
	assert.Equal(t, 4, i.Offset, "4-byte-aligned field must round up past the 1-byte field")
	assert.Equal(t, 8, tab.MaxAllocated())
}

func TestInsertRegBindsParameterRegisterDirectly(t *testing.T) {
	tab := symtab.NewTable()
	reg := ir.Reg{Idx: 0, Class: ir.IntReg}
	sym, err := tab.InsertReg("n", types.TInt, reg, cerr.Pos{})
	require.NoError(t, err)
	assert.Equal(t, symtab.StorageReg, sym.Storage)
	assert.Equal(t, reg, sym.Reg)
}

func TestLevelDownOnEmptyStackFails(t *testing.T) {
	tab := &symtab.Table{}
	_, _, err := tab.LevelDown()
	require.Error(t, err)
}
