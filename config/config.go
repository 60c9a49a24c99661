// Package config loads operator settings from FACETREG_* environment
// variables. Command-line flags override individual fields after loading.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
)

// Config is the full runtime configuration.
type Config struct {
	RPCURL  string `env:"FACETREG_RPC_URL"`
	Diamond string `env:"FACETREG_DIAMOND"`

	KeyDir  string `env:"FACETREG_KEY_DIR"`
	KeyName string `env:"FACETREG_KEY_NAME"`
	KeyRole string `env:"FACETREG_KEY_ROLE"`
	KeyHex  string `env:"FACETREG_KEY_HEX"`
	KeyFile string `env:"FACETREG_KEY_FILE"`

	ArtifactsDir    string `env:"FACETREG_ARTIFACTS_DIR"    envDefault:"artifacts"`
	ManifestBackend string `env:"FACETREG_MANIFEST_BACKEND" envDefault:"file"`
	ManifestPath    string `env:"FACETREG_MANIFEST_PATH"    envDefault:"deployments"`
	SnapshotDir     string `env:"FACETREG_SNAPSHOT_DIR"`
	RolesFile       string `env:"FACETREG_ROLES_FILE"`

	DeployTimeout time.Duration `env:"FACETREG_DEPLOY_TIMEOUT" envDefault:"5m"`
	BindTimeout   time.Duration `env:"FACETREG_BIND_TIMEOUT"   envDefault:"5m"`
	LockTimeout   time.Duration `env:"FACETREG_LOCK_TIMEOUT"   envDefault:"30s"`
	PollInterval  time.Duration `env:"FACETREG_POLL_INTERVAL"  envDefault:"2s"`
	GasBuffer     uint64        `env:"FACETREG_GAS_BUFFER_PERCENT" envDefault:"20"`

	StrictMerge bool     `env:"FACETREG_STRICT_MERGE"`
	Exclude     []string `env:"FACETREG_EXCLUDE_SIGNATURES" envSeparator:";"`

	GRPCListen string `env:"FACETREG_GRPC_LISTEN" envDefault:"127.0.0.1:7788"`
	LogLevel   string `env:"FACETREG_LOG_LEVEL"   envDefault:"info"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// DiamondAddress validates and returns the proxy address.
func (c Config) DiamondAddress() (common.Address, error) {
	s := strings.TrimSpace(c.Diamond)
	if s == "" {
		return common.Address{}, fmt.Errorf("proxy address is required (FACETREG_DIAMOND or --diamond)")
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid proxy address %q", s)
	}
	return common.HexToAddress(s), nil
}

// Validate checks settings every ledger-touching command needs.
func (c Config) Validate() error {
	if strings.TrimSpace(c.RPCURL) == "" {
		return fmt.Errorf("rpc url is required (FACETREG_RPC_URL or --rpc)")
	}
	if _, err := c.DiamondAddress(); err != nil {
		return err
	}
	if c.KeyHex == "" && c.KeyFile == "" && c.KeyName == "" {
		return fmt.Errorf("a signer is required (FACETREG_KEY_NAME, FACETREG_KEY_FILE or FACETREG_KEY_HEX)")
	}
	if c.DeployTimeout < 0 || c.BindTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}
