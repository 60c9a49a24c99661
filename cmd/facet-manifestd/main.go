package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"xdao.co/facetreg/config"
	"xdao.co/facetreg/manifest"
	"xdao.co/facetreg/manifest/backends"
	"xdao.co/facetreg/manifest/grpcmanifest"
	"xdao.co/facetreg/storage"
	"xdao.co/facetreg/storage/localfs"

	_ "xdao.co/facetreg/manifest/filestore"
	_ "xdao.co/facetreg/manifest/sqlitestore"
)

func main() {
	if err := newRootCmd(os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(errOut io.Writer) *cobra.Command {
	var listen, backend, location, snapshots string
	cmd := &cobra.Command{
		Use:           "facet-manifestd",
		Short:         "Serve the deployment manifest read-only over gRPC",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			override := func(name string, dst *string, val string) {
				if cmd.Flags().Changed(name) {
					*dst = val
				}
			}
			override("listen", &cfg.GRPCListen, listen)
			override("backend", &cfg.ManifestBackend, backend)
			override("manifest", &cfg.ManifestPath, location)
			override("snapshots", &cfg.SnapshotDir, snapshots)

			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			store, closeStore, err := backends.Open(cfg.ManifestBackend, backends.Options{Location: cfg.ManifestPath})
			if err != nil {
				return err
			}
			defer closeStore()

			var snaps storage.CAS
			if cfg.SnapshotDir != "" {
				if snaps, err = localfs.New(cfg.SnapshotDir); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg.GRPCListen, store, snaps, logger)
		},
	}
	cmd.SetErr(errOut)
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (FACETREG_GRPC_LISTEN)")
	cmd.Flags().StringVar(&backend, "backend", "", "Manifest backend name (FACETREG_MANIFEST_BACKEND)")
	cmd.Flags().StringVar(&location, "manifest", "", "Manifest directory or database (FACETREG_MANIFEST_PATH)")
	cmd.Flags().StringVar(&snapshots, "snapshots", "", "Interface snapshot directory (FACETREG_SNAPSHOT_DIR)")
	return cmd
}

func serve(ctx context.Context, addr string, r manifest.Reader, snaps storage.CAS, logger *zap.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s := grpc.NewServer()
	grpcmanifest.RegisterManifestServer(s, &grpcmanifest.Server{Reader: r, Snapshots: snaps, Logger: logger})

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	logger.Info("manifest service listening", zap.String("addr", lis.Addr().String()))
	if err := s.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}
