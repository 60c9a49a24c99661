package config

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)
	require.Equal(t, "file", cfg.ManifestBackend)
	require.Equal(t, "deployments", cfg.ManifestPath)
	require.Equal(t, 5*time.Minute, cfg.DeployTimeout)
	require.Equal(t, 2*time.Second, cfg.PollInterval)
	require.Equal(t, uint64(20), cfg.GasBuffer)
	require.False(t, cfg.StrictMerge)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"FACETREG_RPC_URL":            "http://127.0.0.1:8545",
		"FACETREG_DIAMOND":            "0x00000000000000000000000000000000000000dd",
		"FACETREG_KEY_NAME":           "ops",
		"FACETREG_STRICT_MERGE":       "true",
		"FACETREG_BIND_TIMEOUT":       "90s",
		"FACETREG_EXCLUDE_SIGNATURES": "init();initialize(address)",
		"FACETREG_MANIFEST_BACKEND":   "sqlite",
	})
	require.NoError(t, err)
	require.True(t, cfg.StrictMerge)
	require.Equal(t, 90*time.Second, cfg.BindTimeout)
	require.Equal(t, []string{"init()", "initialize(address)"}, cfg.Exclude)
	require.Equal(t, "sqlite", cfg.ManifestBackend)
	require.NoError(t, cfg.Validate())

	addr, err := cfg.DiamondAddress()
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0xdd"), addr)
}

func TestLoadFrom_BadDuration(t *testing.T) {
	_, err := LoadFrom(map[string]string{"FACETREG_DEPLOY_TIMEOUT": "soon"})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{RPCURL: "http://x", Diamond: "0x00000000000000000000000000000000000000dd", KeyName: "ops"}
	require.NoError(t, base.Validate())

	noRPC := base
	noRPC.RPCURL = ""
	require.Error(t, noRPC.Validate())

	badAddr := base
	badAddr.Diamond = "0x1234"
	require.Error(t, badAddr.Validate())

	noKey := base
	noKey.KeyName = ""
	require.Error(t, noKey.Validate())
}
