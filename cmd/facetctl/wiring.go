package main

import (
	"context"
	"fmt"

	"xdao.co/facetreg/artifact"
	"xdao.co/facetreg/deploy"
	"xdao.co/facetreg/keys"
	"xdao.co/facetreg/ledger"
	"xdao.co/facetreg/ledger/ethledger"
	"xdao.co/facetreg/manifest"
	"xdao.co/facetreg/manifest/backends"
	"xdao.co/facetreg/pipeline"
	"xdao.co/facetreg/proxy/diamond"
	"xdao.co/facetreg/registry"
	"xdao.co/facetreg/storage"
	"xdao.co/facetreg/storage/localfs"
)

func (a *app) openManifest() (manifest.Store, func() error, error) {
	return backends.Open(a.cfg.ManifestBackend, backends.Options{Location: a.cfg.ManifestPath})
}

func (a *app) openSnapshots() (storage.CAS, error) {
	if a.cfg.SnapshotDir == "" {
		return nil, nil
	}
	return localfs.New(a.cfg.SnapshotDir)
}

func (a *app) openLedger(ctx context.Context) (ledger.Submitter, func(), error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	ks, err := keys.CreateKeyStore(a.cfg.KeyDir)
	if err != nil {
		return nil, nil, err
	}
	key, err := ks.Load(a.cfg.KeyHex, a.cfg.KeyName, a.cfg.KeyRole, a.cfg.KeyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load signer: %w", err)
	}
	return ethledger.Dial(ctx, a.cfg.RPCURL, key, ethledger.Options{
		PollInterval:     a.cfg.PollInterval,
		GasBufferPercent: a.cfg.GasBuffer,
		Logger:           a.logger.Named("ledger"),
	})
}

func (a *app) proxy(l ledger.Submitter) (*diamond.Proxy, error) {
	addr, err := a.cfg.DiamondAddress()
	if err != nil {
		return nil, err
	}
	return &diamond.Proxy{Ledger: l, Address: addr, Logger: a.logger.Named("proxy")}, nil
}

// upgrader wires a pipeline over a live ledger. The returned function
// releases the ledger connection and the manifest store.
func (a *app) upgrader(ctx context.Context) (*pipeline.Upgrader, func(), error) {
	l, closeLedger, err := a.openLedger(ctx)
	if err != nil {
		return nil, nil, err
	}
	p, err := a.proxy(l)
	if err != nil {
		closeLedger()
		return nil, nil, err
	}
	store, closeStore, err := a.openManifest()
	if err != nil {
		closeLedger()
		return nil, nil, err
	}
	snaps, err := a.openSnapshots()
	if err != nil {
		closeLedger()
		_ = closeStore()
		return nil, nil, err
	}

	up := &pipeline.Upgrader{
		Source:        artifact.Dir{Root: a.cfg.ArtifactsDir},
		Deployer:      &deploy.Deployer{Ledger: l, Logger: a.logger.Named("deploy")},
		Updater:       &registry.Updater{Proxy: p, Caller: l.From(), Logger: a.logger.Named("registry")},
		Writer:        &manifest.Writer{Store: store, Snapshots: snaps, Logger: a.logger.Named("manifest"), LockTimeout: a.cfg.LockTimeout},
		Logger:        a.logger.Named("pipeline"),
		Observer:      pipeline.ObserverFunc(a.printTransition),
		Strict:        a.cfg.StrictMerge,
		Exclude:       a.cfg.Exclude,
		DeployTimeout: a.cfg.DeployTimeout,
		BindTimeout:   a.cfg.BindTimeout,
	}
	return up, func() {
		_ = closeStore()
		closeLedger()
	}, nil
}

func (a *app) printTransition(t pipeline.Transition) {
	if t.Err != nil {
		fmt.Fprintf(a.out, "%s: %s -> %s (%v)\n", t.Module, t.From, t.To, t.Err)
		return
	}
	fmt.Fprintf(a.out, "%s: %s -> %s\n", t.Module, t.From, t.To)
}
