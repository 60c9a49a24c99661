package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"xdao.co/facetreg/artifact"
	"xdao.co/facetreg/deploy"
	"xdao.co/facetreg/iface"
	"xdao.co/facetreg/ledger/memledger"
	"xdao.co/facetreg/manifest"
	"xdao.co/facetreg/manifest/filestore"
	"xdao.co/facetreg/model"
	"xdao.co/facetreg/proxy/diamond"
	"xdao.co/facetreg/registry"
	"xdao.co/facetreg/selector"
	"xdao.co/facetreg/storage/localfs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	owner       = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	stranger    = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	diamondAddr = common.HexToAddress("0x00000000000000000000000000000000000000dd")
)

type mapSource map[string]model.Module

func (s mapSource) Load(_ context.Context, name string) (model.Module, error) {
	m, ok := s[name]
	if !ok {
		return model.Module{}, fmt.Errorf("%w: %s", artifact.ErrNotFound, name)
	}
	return m, nil
}

// flakyStore fails interface writes on demand, simulating a crash between
// the two document writes.
type flakyStore struct {
	*filestore.Store
	failInterface bool
}

func (s *flakyStore) WriteInterface(ctx context.Context, b []byte) error {
	if s.failInterface {
		return errors.New("process killed")
	}
	return s.Store.WriteInterface(ctx, b)
}

type recorder struct {
	mu  sync.Mutex
	got []Transition
}

func (r *recorder) Observe(t Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, t)
}

func (r *recorder) states() []model.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.State, len(r.got))
	for i, t := range r.got {
		out[i] = t.To
	}
	return out
}

func fn(name string, types ...string) model.Declaration {
	d := model.Declaration{Type: "function", Name: name}
	for i, ty := range types {
		d.Inputs = append(d.Inputs, model.Param{Name: fmt.Sprintf("a%d", i), Type: ty})
	}
	return d
}

func module(name string, decls ...model.Declaration) model.Module {
	return model.Module{Name: name, Declarations: decls, Bytecode: []byte{0x60, 0x80, 0x60, 0x40, byte(len(name))}}
}

type harness struct {
	ledger   *memledger.Ledger
	sim      *diamond.Simulator
	proxy    *diamond.Proxy
	store    *flakyStore
	dir      string
	observed *recorder
	up       *Upgrader
}

func newHarness(t *testing.T, src mapSource) *harness {
	t.Helper()
	l := memledger.New(owner)
	sim := diamond.NewSimulator(owner)
	l.Install(diamondAddr, sim)
	p := &diamond.Proxy{Ledger: l, Address: diamondAddr}

	dir := t.TempDir()
	fs, err := filestore.New(dir)
	require.NoError(t, err)
	store := &flakyStore{Store: fs}
	cas, err := localfs.New(t.TempDir())
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	obs := &recorder{}
	return &harness{
		ledger:   l,
		sim:      sim,
		proxy:    p,
		store:    store,
		dir:      dir,
		observed: obs,
		up: &Upgrader{
			Source:   src,
			Deployer: &deploy.Deployer{Ledger: l, Logger: log},
			Updater:  &registry.Updater{Proxy: p, Caller: owner, Logger: log},
			Writer:   &manifest.Writer{Store: store, Snapshots: cas, Logger: log},
			Logger:   log,
			Observer: obs,
		},
	}
}

func (h *harness) files(t *testing.T) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, name := range []string{filestore.AddressesFile, filestore.InterfaceFile} {
		b, err := os.ReadFile(filepath.Join(h.dir, name))
		if os.IsNotExist(err) {
			continue
		}
		require.NoError(t, err)
		out[name] = string(b)
	}
	return out
}

func TestRun_DeployBindResolve(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, mapSource{"Widget": module("Widget", fn("get", "uint256"))})

	res, err := h.up.Run(ctx, "Widget", nil)
	require.NoError(t, err)
	require.Equal(t, model.StateRecorded, res.State)
	require.True(t, res.Module.Deployed())

	want := selector.Selector(crypto.Keccak256([]byte("get(uint256)"))[:4])
	require.Equal(t, want, res.Selectors[0].Selector)

	addr, ok, err := h.proxy.Resolve(ctx, want)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, res.Module.Address, addr)

	require.Equal(t, []model.State{model.StateBuilt, model.StateDeployed, model.StateBound, model.StateRecorded}, h.observed.states())
	require.Equal(t, model.StatePending, h.observed.got[0].From)
	require.NoError(t, manifest.Check(ctx, h.store))
}

func TestRun_UpgradeReplacesByName(t *testing.T) {
	ctx := context.Background()
	src := mapSource{
		"V1": module("V1", fn("get")),
		"V2": module("V2", fn("get"), fn("set", "uint256")),
	}
	h := newHarness(t, src)

	v1, err := h.up.Run(ctx, "V1", nil)
	require.NoError(t, err)
	v2, err := h.up.Run(ctx, "V2", nil)
	require.NoError(t, err)
	require.NotEqual(t, v1.Module.Address, v2.Module.Address)

	require.Equal(t, []string{"get", "set"}, iface.Names(v2.Manifest.Interface))

	addr, ok, err := h.proxy.Resolve(ctx, selector.MustCompute("get"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, v2.Module.Address, addr)

	// The manifest names the module the proxy routes to.
	addrs, _, err := manifest.Load(ctx, h.store)
	require.NoError(t, err)
	owner, ok := addrs.Owner(selector.MustCompute("get"))
	require.True(t, ok)
	require.Equal(t, "V2", owner)
	require.Equal(t, []string{"V2"}, addrs.Names())
	for _, name := range addrs.Names() {
		rec := addrs.Modules[name]
		require.NoError(t, h.up.Updater.Verify(ctx, registry.Binding{Facet: rec.Address, Selectors: rec.Selectors}))
	}
}

func TestRun_DeployFailureTouchesNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, mapSource{
		"Alpha": module("Alpha", fn("get")),
		"Beta":  module("Beta", fn("burn")),
	})
	_, err := h.up.Run(ctx, "Alpha", nil)
	require.NoError(t, err)

	beforeFiles := h.files(t)
	beforeTable := h.sim.Table.Snapshot()
	beforeCuts := h.sim.Table.Cuts()

	h.ledger.FailNext(errors.New("connection reset"))
	_, err = h.up.Run(ctx, "Beta", nil)
	require.Error(t, err)
	require.True(t, model.IsKind(err, model.KindDeploymentFailed))
	require.Equal(t, model.StageDeploy, model.StageOf(err))
	require.False(t, model.IsCritical(err))

	require.Equal(t, beforeFiles, h.files(t))
	require.Equal(t, beforeTable, h.sim.Table.Snapshot())
	require.Equal(t, beforeCuts, h.sim.Table.Cuts())

	last := h.observed.got[len(h.observed.got)-1]
	require.Equal(t, model.StateFailed, last.To)
	require.Equal(t, model.StateBuilt, last.From)
}

func TestRun_InterruptedRecordIsDetected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, mapSource{
		"Alpha": module("Alpha", fn("get")),
		"Beta":  module("Beta", fn("burn")),
	})
	_, err := h.up.Run(ctx, "Alpha", nil)
	require.NoError(t, err)

	h.store.failInterface = true
	_, err = h.up.Run(ctx, "Beta", nil)
	require.Error(t, err)
	require.True(t, model.IsKind(err, model.KindManifestInconsistent))
	require.True(t, model.IsCritical(err))
	h.store.failInterface = false

	err = manifest.Check(ctx, h.store)
	require.True(t, model.IsKind(err, model.KindManifestInconsistent))

	// The next upgrade refuses to build on the inconsistent manifest.
	submissions := h.ledger.Submissions
	_, err = h.up.Run(ctx, "Alpha", nil)
	require.True(t, model.IsKind(err, model.KindManifestInconsistent))
	require.Equal(t, submissions, h.ledger.Submissions)

	// Beta is live; recovery rewrites the manifest without touching the proxy.
	addrs, _, err := manifest.Load(ctx, h.store)
	require.NoError(t, err)
	betaAddr := addrs.Modules["Beta"].Address

	res, err := h.up.Recover(ctx, "Beta", betaAddr)
	require.NoError(t, err)
	require.Equal(t, []string{"get", "burn"}, iface.Names(res.Manifest.Interface))
	require.Equal(t, submissions, h.ledger.Submissions)
	require.NoError(t, manifest.Check(ctx, h.store))
}

func TestRecover_RefusesUnboundAddress(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, mapSource{"Alpha": module("Alpha", fn("get"))})

	_, err := h.up.Recover(ctx, "Alpha", common.HexToAddress("0x0f01"))
	require.Error(t, err)
	require.Equal(t, model.StageVerify, model.StageOf(err))
	require.Empty(t, h.files(t))
}

func TestRun_UnauthorizedCaller(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, mapSource{"Alpha": module("Alpha", fn("get"))})
	h.up.Updater.Caller = stranger

	_, err := h.up.Run(ctx, "Alpha", nil)
	require.True(t, model.IsKind(err, model.KindUnauthorized))
	require.Equal(t, model.StageBind, model.StageOf(err))
	require.Empty(t, h.files(t))
	require.Equal(t, 0, h.sim.Table.Cuts())
}

func TestRun_StrictRejectsSignatureChange(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, mapSource{
		"Alpha": module("Alpha", fn("get")),
		"Beta":  module("Beta", fn("get", "uint256")),
	})
	h.up.Strict = true

	_, err := h.up.Run(ctx, "Alpha", nil)
	require.NoError(t, err)

	submissions := h.ledger.Submissions
	_, err = h.up.Run(ctx, "Beta", nil)
	require.True(t, model.IsKind(err, model.KindSelectorCollision))
	require.Equal(t, model.StageSelect, model.StageOf(err))
	require.Equal(t, submissions, h.ledger.Submissions)

	h.up.Strict = false
	_, err = h.up.Run(ctx, "Beta", nil)
	require.NoError(t, err)
}

func TestRun_StrictAllowsModuleToChangeItsOwnSignature(t *testing.T) {
	ctx := context.Background()
	src := mapSource{"Widget": module("Widget", fn("get"))}
	h := newHarness(t, src)
	h.up.Strict = true

	_, err := h.up.Run(ctx, "Widget", nil)
	require.NoError(t, err)

	src["Widget"] = module("Widget", fn("get", "uint256"))
	res, err := h.up.Run(ctx, "Widget", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"get(uint256)"}, res.Manifest.Addresses.Modules["Widget"].Signatures)

	// Another module still may not take the name over.
	src["Gadget"] = module("Gadget", fn("get", "address"))
	_, err = h.up.Run(ctx, "Gadget", nil)
	require.True(t, model.IsKind(err, model.KindSelectorCollision))
}

func TestRun_ExcludedSignaturesAreNotBound(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, mapSource{"Alpha": module("Alpha", fn("init"), fn("get"))})
	h.up.Exclude = []string{"init()"}

	res, err := h.up.Run(ctx, "Alpha", nil)
	require.NoError(t, err)
	require.Len(t, res.Selectors, 1)

	_, ok, err := h.proxy.Resolve(ctx, selector.MustCompute("init"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRun_UnknownModule(t *testing.T) {
	h := newHarness(t, mapSource{})
	_, err := h.up.Run(context.Background(), "Ghost", nil)
	require.Error(t, err)
	require.Equal(t, model.StageSelect, model.StageOf(err))
	require.ErrorIs(t, err, artifact.ErrNotFound)
}

func TestRun_DuplicateDeclarationIsCollision(t *testing.T) {
	h := newHarness(t, mapSource{"Alpha": module("Alpha", fn("get"), fn("get"))})
	_, err := h.up.Run(context.Background(), "Alpha", nil)
	require.True(t, model.IsKind(err, model.KindSelectorCollision))
	require.Equal(t, 0, h.ledger.Submissions)
}
