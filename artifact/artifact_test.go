package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/facetreg/iface"
	"xdao.co/facetreg/model"
	"xdao.co/facetreg/selector"
)

const widgetJSON = `{
  "contractName": "Widget",
  "abi": [
    {"type":"function","name":"get","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
    {"type":"event","name":"Updated","inputs":[{"name":"id","type":"uint256","indexed":true}],"anonymous":false}
  ],
  "bytecode": "0x6080604052348015600f57600080fd5b50"
}`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestDir_LoadNestedLayout(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "contracts", "facets", "Widget.sol", "Widget.json"), widgetJSON)
	writeFile(t, filepath.Join(root, "contracts", "facets", "Widget.sol", "Widget.dbg.json"), `{}`)

	m, err := Dir{Root: root}.Load(context.Background(), "Widget")
	require.NoError(t, err)
	require.Equal(t, "Widget", m.Name)
	require.Len(t, m.Declarations, 2)
	require.NotEmpty(t, m.Bytecode)
	require.False(t, m.Deployed())

	entries, err := iface.Selectors(m.Declarations)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, selector.MustCompute("get", "uint256"), entries[0].Selector)
}

func TestDir_LoadFlatLayout(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Widget.json"), widgetJSON)

	_, err := Dir{Root: root}.Load(context.Background(), "Widget")
	require.NoError(t, err)
}

func TestDir_MissingModuleFailsLoudly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "contracts", "Other.sol", "Other.json"), widgetJSON)

	_, err := Dir{Root: root}.Load(context.Background(), "Widget")
	require.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	_, err = Dir{Root: filepath.Join(root, "missing")}.Load(context.Background(), "Widget")
	require.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestParse_Rejects(t *testing.T) {
	_, err := Parse("Widget", []byte(`{"contractName":"Widget","abi":[],"bytecode":"0x60"}`))
	require.ErrorContains(t, err, "no interface")

	_, err = Parse("Widget", []byte(`{"contractName":"Widget","abi":[{"type":"function","name":"get","inputs":[]}],"bytecode":"0x"}`))
	require.ErrorContains(t, err, "no bytecode")

	_, err = Parse("Gadget", []byte(widgetJSON))
	require.ErrorContains(t, err, "names contract Widget")

	_, err = Parse("Widget", []byte(`{"contractName":"Widget","abi":[{"type":"function","name":"get","inputs":[{"name":"a","type":"uint"}]}],"bytecode":"0x60"}`))
	require.True(t, model.IsKind(err, model.KindInvalidSignature), "got %v", err)
}

func TestDir_InvalidName(t *testing.T) {
	_, err := Dir{Root: t.TempDir()}.Load(context.Background(), "../Widget")
	require.Error(t, err)
}
