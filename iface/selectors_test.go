package iface

import (
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/facetreg/model"
	"xdao.co/facetreg/selector"
)

func TestSelectors_FunctionsOnly(t *testing.T) {
	decls := []model.Declaration{
		fn("get", "uint256"),
		ev("Got"),
		{Type: "constructor"},
		fn("set", "uint256", "address"),
	}
	entries, err := Selectors(decls)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "get(uint256)", entries[0].Signature)
	require.Equal(t, selector.MustCompute("get", "uint256"), entries[0].Selector)
	require.Equal(t, "set(uint256,address)", entries[1].Signature)
}

func TestSelectors_TupleComponents(t *testing.T) {
	cut := decl(t, `{"type":"function","name":"diamondCut","inputs":[
		{"name":"_diamondCut","type":"tuple[]","components":[
			{"name":"facetAddress","type":"address"},
			{"name":"action","type":"uint8"},
			{"name":"functionSelectors","type":"bytes4[]"}]},
		{"name":"_init","type":"address"},
		{"name":"_calldata","type":"bytes"}],"outputs":[]}`)

	entries, err := Selectors([]model.Declaration{cut})
	require.NoError(t, err)
	require.Equal(t, "diamondCut((address,uint8,bytes4[])[],address,bytes)", entries[0].Signature)
	require.Equal(t, uint32(0x1f931c1c), entries[0].Selector.Uint32())
}

func TestSelectors_DuplicateDeclarationCollides(t *testing.T) {
	_, err := Selectors([]model.Declaration{fn("get", "uint256"), fn("get", "uint256")})
	require.Error(t, err)
	require.True(t, model.IsKind(err, model.KindSelectorCollision))
}

func TestSelectors_OverloadsAreDistinct(t *testing.T) {
	entries, err := Selectors([]model.Declaration{fn("get"), fn("get", "uint256")})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NotEqual(t, entries[0].Selector, entries[1].Selector)
}

func TestSelectors_InvalidTypeTag(t *testing.T) {
	_, err := Selectors([]model.Declaration{fn("get", "uint")})
	require.True(t, model.IsKind(err, model.KindInvalidSignature))
}

func TestExclude(t *testing.T) {
	entries, err := Selectors([]model.Declaration{fn("init"), fn("get", "uint256")})
	require.NoError(t, err)
	got := Exclude(entries, []string{"init()"})
	require.Len(t, got, 1)
	require.Equal(t, "get(uint256)", got[0].Signature)
	require.Len(t, SelectorsOf(got), 1)
}

func TestConflicts(t *testing.T) {
	existing := []model.Declaration{fn("get", "uint256"), fn("owner"), ev("Set")}
	incoming := []model.Declaration{fn("get", "bytes32"), fn("owner"), ev("Set")}

	got, err := Conflicts(existing, incoming)
	require.NoError(t, err)
	require.Equal(t, []Conflict{{Name: "get", Existing: "get(uint256)", Incoming: "get(bytes32)"}}, got)
}
