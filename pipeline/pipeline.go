// Package pipeline sequences an upgrade: select, deploy, bind, record.
//
// Each run moves one module from Pending through Built, Deployed, Bound and
// Recorded, or stops in Failed. Stages run strictly in order and a stage
// never starts after an earlier one failed, so a failed deploy leaves the
// proxy and the manifest untouched.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"xdao.co/facetreg/artifact"
	"xdao.co/facetreg/deploy"
	"xdao.co/facetreg/iface"
	"xdao.co/facetreg/manifest"
	"xdao.co/facetreg/model"
	"xdao.co/facetreg/registry"
)

// Transition is one state change of a run.
type Transition struct {
	Module string
	From   model.State
	To     model.State
	// Err is set when To is StateFailed.
	Err error
}

// Observer receives every transition synchronously, in order.
type Observer interface {
	Observe(Transition)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Transition)

func (f ObserverFunc) Observe(t Transition) { f(t) }

// Result describes a completed run.
type Result struct {
	Module    model.Module
	Selectors []iface.Entry
	Manifest  *manifest.Snapshot
	State     model.State
}

// Upgrader runs upgrades one at a time.
type Upgrader struct {
	Source   artifact.Source
	Deployer *deploy.Deployer
	Updater  *registry.Updater
	Writer   *manifest.Writer
	Logger   *zap.Logger
	Observer Observer

	// Strict refuses a module that declares a function under a name another
	// module recorded with a different signature, instead of letting the
	// interface merge drop the older declaration.
	Strict bool

	// Exclude lists function signatures that are never bound, such as
	// initializers meant to be called once through the cut.
	Exclude []string

	// DeployTimeout and BindTimeout bound the respective stage when non-zero.
	DeployTimeout time.Duration
	BindTimeout   time.Duration

	mu sync.Mutex
}

// Run upgrades the named module. ctorArgs are appended to the module's code
// at deployment.
//
// Stage errors are *model.Error values carrying the failing stage; a
// misconfigured Upgrader yields a plain error before any stage runs. Errors raised
// after the proxy changed are marked Critical; Recover completes such a run.
func (u *Upgrader) Run(ctx context.Context, name string, ctorArgs []byte) (*Result, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	log := u.logger().With(zap.String("module", name))
	r := &run{u: u, name: name, log: log}

	m, entries, err := u.prepare(ctx, name)
	if err != nil {
		return nil, r.fail(err)
	}
	r.to(model.StateBuilt)
	log.Info("module built", zap.Int("selectors", len(entries)))

	deployCtx, cancel := withTimeout(ctx, u.DeployTimeout)
	m, err = u.Deployer.Deploy(deployCtx, m, ctorArgs)
	cancel()
	if err != nil {
		return nil, r.fail(err)
	}
	r.to(model.StateDeployed)

	binding := registry.Binding{Facet: m.Address, Selectors: iface.SelectorsOf(entries)}
	bindCtx, cancel := withTimeout(ctx, u.BindTimeout)
	err = u.Updater.Update(bindCtx, binding)
	cancel()
	if err != nil {
		return nil, r.fail(err)
	}
	r.to(model.StateBound)

	snap, err := u.Writer.Record(ctx, m, entries)
	if err != nil {
		return nil, r.fail(critical(err))
	}
	r.to(model.StateRecorded)

	return &Result{Module: m, Selectors: entries, Manifest: snap, State: model.StateRecorded}, nil
}

// Recover re-runs only the record stage for a module already deployed at
// addr and bound on the proxy. It refuses unless every selector of the
// module resolves to addr.
func (u *Upgrader) Recover(ctx context.Context, name string, addr common.Address) (*Result, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	log := u.logger().With(zap.String("module", name), zap.String("address", addr.Hex()))
	if addr == (common.Address{}) {
		return nil, model.NewError(model.KindManifestInconsistent, model.StageVerify, "recovery needs the bound module address")
	}

	m, entries, err := u.load(ctx, name)
	if err != nil {
		return nil, err
	}
	m = m.WithAddress(addr)

	binding := registry.Binding{Facet: addr, Selectors: iface.SelectorsOf(entries)}
	if err := u.Updater.Verify(ctx, binding); err != nil {
		return nil, err
	}
	log.Info("binding verified; rewriting manifest")

	snap, err := u.Writer.Record(ctx, m, entries)
	if err != nil {
		return nil, critical(err)
	}
	u.observe(Transition{Module: name, From: model.StateBound, To: model.StateRecorded})
	return &Result{Module: m, Selectors: entries, Manifest: snap, State: model.StateRecorded}, nil
}

// prepare loads the module and runs every check that must pass before the
// ledger is touched.
func (u *Upgrader) prepare(ctx context.Context, name string) (model.Module, []iface.Entry, error) {
	if u.Source == nil || u.Deployer == nil || u.Updater == nil || u.Writer == nil || u.Writer.Store == nil {
		return model.Module{}, nil, errors.New("pipeline: upgrader is missing a collaborator")
	}
	m, entries, err := u.load(ctx, name)
	if err != nil {
		return model.Module{}, nil, err
	}
	if err := manifest.Check(ctx, u.Writer.Store); err != nil {
		return model.Module{}, nil, err
	}
	if u.Strict {
		if err := u.checkConflicts(ctx, m); err != nil {
			return model.Module{}, nil, err
		}
	}
	return m, entries, nil
}

func (u *Upgrader) load(ctx context.Context, name string) (model.Module, []iface.Entry, error) {
	m, err := u.Source.Load(ctx, name)
	if err != nil {
		if model.KindOf(err) != "" {
			return model.Module{}, nil, err
		}
		return model.Module{}, nil, model.WrapError(model.KindInvalidSignature, model.StageSelect, "load module "+name, err)
	}
	entries, err := iface.Selectors(m.Declarations)
	if err != nil {
		if model.KindOf(err) != "" {
			return model.Module{}, nil, err
		}
		return model.Module{}, nil, model.WrapError(model.KindInvalidSignature, model.StageSelect, "compute selectors", err)
	}
	entries = iface.Exclude(entries, u.Exclude)
	if len(entries) == 0 {
		return model.Module{}, nil, model.Errorf(model.KindInvalidSignature, model.StageSelect, "module %s declares no bindable functions", name)
	}
	return m, entries, nil
}

func (u *Upgrader) checkConflicts(ctx context.Context, m model.Module) error {
	addrs, existing, err := manifest.Load(ctx, u.Writer.Store)
	if err != nil {
		return model.WrapError(model.KindManifestInconsistent, model.StageSelect, "read interface document", err)
	}
	all, err := iface.Conflicts(existing, m.Declarations)
	if err != nil {
		return model.WrapError(model.KindInvalidSignature, model.StageSelect, "compare signatures", err)
	}
	// A module may change the signatures it recorded itself.
	own := make(map[string]bool)
	for _, sig := range addrs.Modules[m.Name].Signatures {
		own[sig] = true
	}
	var conflicts []iface.Conflict
	for _, c := range all {
		if !own[c.Existing] {
			conflicts = append(conflicts, c)
		}
	}
	if len(conflicts) > 0 {
		c := conflicts[0]
		return model.Errorf(model.KindSelectorCollision, model.StageSelect,
			"%s would replace %s in the interface document (%d conflicting names)", c.Incoming, c.Existing, len(conflicts))
	}
	return nil
}

func (u *Upgrader) observe(t Transition) {
	if u.Observer != nil {
		u.Observer.Observe(t)
	}
}

func (u *Upgrader) logger() *zap.Logger {
	if u.Logger == nil {
		return zap.NewNop()
	}
	return u.Logger
}

// run tracks the state of one Run call.
type run struct {
	u     *Upgrader
	name  string
	log   *zap.Logger
	state model.State
}

func (r *run) to(s model.State) {
	from := r.state
	r.state = s
	r.u.observe(Transition{Module: r.name, From: from, To: s})
}

func (r *run) fail(err error) error {
	fields := []zap.Field{zap.Error(err), zap.String("stage", string(model.StageOf(err)))}
	if model.IsCritical(err) {
		r.log.Error("upgrade failed after routing changed; run recover", fields...)
	} else {
		r.log.Warn("upgrade failed", fields...)
	}
	from := r.state
	r.state = model.StateFailed
	r.u.observe(Transition{Module: r.name, From: from, To: model.StateFailed, Err: err})
	return err
}

// critical marks err as raised after the proxy's routing changed.
func critical(err error) error {
	var me *model.Error
	if errors.As(err, &me) {
		cp := *me
		cp.Critical = true
		return &cp
	}
	return &model.Error{Kind: model.KindManifestInconsistent, Stage: model.StageRecord, Message: "record", Cause: err, Critical: true}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
