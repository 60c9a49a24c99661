package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"xdao.co/facetreg/iface"
	"xdao.co/facetreg/manifest"
	"xdao.co/facetreg/manifest/filestore"
	"xdao.co/facetreg/model"
)

func runCLI(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return out.String(), errOut.String(), code
}

func TestSelectorCommand(t *testing.T) {
	out, _, code := runCLI(t, "selector", "transfer(address,uint256)")
	require.Equal(t, 0, code)
	require.Equal(t, "0xa9059cbb\ttransfer(address,uint256)\n", out)

	_, errOut, code := runCLI(t, "selector", "transfer(address, uint)")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "error:")
}

func TestSelectorCommand_FromArtifact(t *testing.T) {
	dir := t.TempDir()
	art := `{"contractName":"Widget","abi":[{"type":"function","name":"get","inputs":[{"name":"id","type":"uint256"}],"outputs":[],"stateMutability":"view"}],"bytecode":"0x6080"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Widget.json"), []byte(art), 0o644))

	out, errOut, code := runCLI(t, "selector", "--artifacts", dir, "--module", "Widget")
	require.Equal(t, 0, code, errOut)
	require.Equal(t, "0x9507d39a\tget(uint256)\n", out)
}

func TestRoleIDCommand(t *testing.T) {
	out, _, code := runCLI(t, "role-id", "ADMIN_ROLE", "admin_role")
	require.Equal(t, 0, code)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.NotEqual(t, strings.Fields(lines[0])[0], strings.Fields(lines[1])[0])
}

func TestRolesCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles:\n  STOCK_ROLE:\n    - category: Stock\n      items: [Count, Move]\n"), 0o644))

	out, errOut, code := runCLI(t, "roles", "--roles-file", path)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "STOCK_ROLE")
	require.Contains(t, out, "Count,Move")
}

func TestVerifyAndResolve(t *testing.T) {
	dir := t.TempDir()
	store, err := filestore.New(dir)
	require.NoError(t, err)

	decls := []model.Declaration{{Type: "function", Name: "get"}}
	entries, err := iface.Selectors(decls)
	require.NoError(t, err)
	w := &manifest.Writer{Store: store}
	_, err = w.Record(context.Background(), model.Module{Name: "Alpha", Declarations: decls, Address: common.HexToAddress("0xa1")}, entries)
	require.NoError(t, err)

	out, errOut, code := runCLI(t, "verify", "--manifest", dir)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "manifest consistent: 1 modules")

	out, errOut, code = runCLI(t, "resolve", "--manifest", dir, "get()")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "Alpha")

	require.NoError(t, store.WriteInterface(context.Background(), []byte("[]\n")))
	_, errOut, code = runCLI(t, "verify", "--manifest", dir)
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "ManifestInconsistent")
}

func TestKeyCommands(t *testing.T) {
	dir := t.TempDir()
	out, errOut, code := runCLI(t, "key", "init", "ops", "--key-dir", dir)
	require.Equal(t, 0, code, errOut)
	addr := strings.Fields(out)[0]
	require.True(t, common.IsHexAddress(addr))

	_, _, code = runCLI(t, "key", "derive", "ops", "deployer", "--key-dir", dir)
	require.Equal(t, 0, code)

	out, errOut, code = runCLI(t, "key", "list", "--key-dir", dir)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "ops\t"+addr+"\tdeployer")
}

func TestUpgradeRequiresConfiguration(t *testing.T) {
	t.Setenv("FACETREG_RPC_URL", "")
	_, errOut, code := runCLI(t, "upgrade", "Widget", "--manifest", t.TempDir())
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "rpc url is required")
}

func TestBackendsCommand(t *testing.T) {
	out, _, code := runCLI(t, "backends")
	require.Equal(t, 0, code)
	require.Contains(t, out, "file\t")
	require.Contains(t, out, "sqlite\t")
}
