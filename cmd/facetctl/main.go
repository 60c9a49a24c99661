package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"xdao.co/facetreg/config"
	"xdao.co/facetreg/model"

	_ "xdao.co/facetreg/manifest/filestore"
	_ "xdao.co/facetreg/manifest/sqlitestore"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	a := &app{out: out}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		if model.IsCritical(err) {
			fmt.Fprintln(errOut, "routing changed but the manifest was not recorded; run `facetctl recover`")
			return 3
		}
		return 1
	}
	return 0
}

// app carries state shared by every command of one invocation.
type app struct {
	out     io.Writer
	cfg     config.Config
	logger  *zap.Logger
	verbose bool
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "facetctl",
		Short:         "Deploy facets, bind their selectors on a diamond proxy and record the ABI manifest",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.applyFlags(cmd, &cfg)
			a.cfg = cfg

			zc := zap.NewProductionConfig()
			if a.verbose {
				zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			} else if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
				zc.Level = zap.NewAtomicLevelAt(lvl)
			}
			logger, err := zc.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	f := root.PersistentFlags()
	f.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	f.String("rpc", "", "JSON-RPC endpoint (FACETREG_RPC_URL)")
	f.String("diamond", "", "Diamond proxy address (FACETREG_DIAMOND)")
	f.String("key", "", "Stored signer key name (FACETREG_KEY_NAME)")
	f.String("key-role", "", "Derived role key of --key (FACETREG_KEY_ROLE)")
	f.String("key-file", "", "Signer key file (FACETREG_KEY_FILE)")
	f.String("key-dir", "", "Key store directory (FACETREG_KEY_DIR)")
	f.String("artifacts", "", "Compiled artifacts directory (FACETREG_ARTIFACTS_DIR)")
	f.String("manifest-backend", "", "Manifest backend name (FACETREG_MANIFEST_BACKEND)")
	f.String("manifest", "", "Manifest directory or database (FACETREG_MANIFEST_PATH)")
	f.String("snapshots", "", "Interface snapshot directory (FACETREG_SNAPSHOT_DIR)")
	f.String("roles-file", "", "Role menu table (FACETREG_ROLES_FILE)")

	root.AddCommand(
		a.selectorCmd(),
		a.roleIDCmd(),
		a.rolesCmd(),
		a.upgradeCmd(),
		a.recoverCmd(),
		a.verifyCmd(),
		a.resolveCmd(),
		a.grantRoleCmd(),
		a.hasRoleCmd(),
		a.keyCmd(),
		a.backendsCmd(),
	)
	return root
}

// applyFlags overrides environment values with flags the user set.
func (a *app) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	set := func(name string, dst *string) {
		if fl := cmd.Flags().Lookup(name); fl != nil && fl.Changed {
			*dst = fl.Value.String()
		}
	}
	set("rpc", &cfg.RPCURL)
	set("diamond", &cfg.Diamond)
	set("key", &cfg.KeyName)
	set("key-role", &cfg.KeyRole)
	set("key-file", &cfg.KeyFile)
	set("key-dir", &cfg.KeyDir)
	set("artifacts", &cfg.ArtifactsDir)
	set("manifest-backend", &cfg.ManifestBackend)
	set("manifest", &cfg.ManifestPath)
	set("snapshots", &cfg.SnapshotDir)
	set("roles-file", &cfg.RolesFile)
}
