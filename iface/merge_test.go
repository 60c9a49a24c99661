package iface

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"xdao.co/facetreg/model"
)

func decl(t *testing.T, js string) model.Declaration {
	t.Helper()
	var d model.Declaration
	require.NoError(t, json.Unmarshal([]byte(js), &d))
	return d
}

func fn(name string, types ...string) model.Declaration {
	d := model.Declaration{Type: "function", Name: name}
	for i, ty := range types {
		d.Inputs = append(d.Inputs, model.Param{Name: fmt.Sprintf("a%d", i), Type: ty})
	}
	return d
}

func ev(name string) model.Declaration { return model.Declaration{Type: "event", Name: name} }

func TestMerge_ReplacesByNameAndAppends(t *testing.T) {
	oldGet := decl(t, `{"type":"function","name":"get","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"}`)
	newGet := decl(t, `{"type":"function","name":"get","inputs":[{"name":"id","type":"uint256"}],"outputs":[],"stateMutability":"view"}`)
	newSet := decl(t, `{"type":"function","name":"set","inputs":[{"name":"v","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"}`)

	got := Merge([]model.Declaration{oldGet}, []model.Declaration{newGet, newSet})

	require.Len(t, got, 2)
	require.True(t, Equal(got, []model.Declaration{newGet, newSet}))
	require.Empty(t, cmp.Diff([]string{"get", "set"}, Names(got)))
}

func TestMerge_EmptyIncomingReturnsExisting(t *testing.T) {
	existing := []model.Declaration{fn("a"), ev("E"), {Type: "constructor"}}
	got := Merge(existing, nil)
	require.True(t, Equal(existing, got))
}

func TestMerge_KeepsUnrelatedInOrder(t *testing.T) {
	existing := []model.Declaration{fn("a"), ev("Moved"), fn("b"), fn("c")}
	incoming := []model.Declaration{fn("b", "uint256"), ev("Moved")}

	got := Merge(existing, incoming)
	require.Empty(t, cmp.Diff([]string{"a", "c", "b", "Moved"}, Names(got)))
}

func TestMerge_NameMatchIgnoresKind(t *testing.T) {
	existing := []model.Declaration{fn("Transfer"), fn("x")}
	incoming := []model.Declaration{ev("Transfer")}

	got := Merge(existing, incoming)
	require.Len(t, got, 2)
	require.Equal(t, model.DeclEvent, got[1].Kind())
}

func TestMerge_OtherKindsPassThrough(t *testing.T) {
	ctor := decl(t, `{"type":"constructor","inputs":[{"name":"owner","type":"address"}],"stateMutability":"nonpayable"}`)
	fallback := decl(t, `{"type":"fallback","stateMutability":"payable"}`)
	errDecl := decl(t, `{"type":"error","name":"NotOwner","inputs":[]}`)

	existing := []model.Declaration{ctor, fn("a"), fallback}
	incoming := []model.Declaration{errDecl, fn("a", "address")}

	got := Merge(existing, incoming)
	require.Len(t, got, 4)
	require.Equal(t, "constructor", got[0].Type)
	require.Equal(t, "fallback", got[1].Type)
	require.Equal(t, "error", got[2].Type)
	require.Equal(t, "a", got[3].Name)
	require.JSONEq(t, string(ctor.Raw), string(got[0].Raw))
}

func TestMerge_Idempotent(t *testing.T) {
	ctor := decl(t, `{"type":"constructor","inputs":[]}`)
	a := []model.Declaration{fn("get"), fn("keep"), ctor, ev("Log")}
	b := []model.Declaration{fn("get", "uint256"), fn("set", "uint256"), ctor, ev("Log")}

	once := Merge(a, b)
	twice := Merge(once, b)
	require.True(t, Equal(once, twice), "once=%v twice=%v", Names(once), Names(twice))
}

func TestMerge_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	names := []string{"get", "set", "owner", "Transfer", "confirm", "list"}
	gen := func() []model.Declaration {
		n := rng.Intn(7)
		out := make([]model.Declaration, 0, n)
		for i := 0; i < n; i++ {
			switch rng.Intn(4) {
			case 0:
				out = append(out, ev(names[rng.Intn(len(names))]))
			case 1:
				out = append(out, model.Declaration{Type: "receive"})
			default:
				out = append(out, fn(names[rng.Intn(len(names))], []string{"uint256", "address", "bytes4[]"}[:rng.Intn(3)]...))
			}
		}
		return out
	}

	for i := 0; i < 500; i++ {
		a, b := gen(), gen()
		once := Merge(a, b)

		seen := map[string]bool{}
		for _, n := range Names(once) {
			require.False(t, seen[n], "duplicate name %q in %v", n, Names(once))
			seen[n] = true
		}

		require.True(t, Equal(once, Merge(once, b)), "iteration %d not idempotent", i)
	}
}

func TestEncodeDecode(t *testing.T) {
	in := []model.Declaration{
		decl(t, `{"type":"function","name":"get","inputs":[{"name":"id","type":"uint256"}],"outputs":[],"stateMutability":"view"}`),
		fn("set", "uint256"),
	}
	b, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(b)
	require.NoError(t, err)
	require.True(t, Equal(in, out))

	again, err := Encode(out)
	require.NoError(t, err)
	require.Equal(t, string(b), string(again))

	empty, err := Decode(nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}
