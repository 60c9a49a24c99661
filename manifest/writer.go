package manifest

import (
	"context"
	"time"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"xdao.co/facetreg/cidutil"
	"xdao.co/facetreg/iface"
	"xdao.co/facetreg/model"
	"xdao.co/facetreg/storage"
)

// Writer records deployed modules into a Store.
//
// Snapshots, when set, receives every interface document before it is
// written, keyed by the CID recorded in the addresses document.
type Writer struct {
	Store     Store
	Snapshots storage.CAS
	Logger    *zap.Logger

	// LockTimeout bounds the wait for the store lock when non-zero. A lock
	// left behind by a crashed writer is never released on its own.
	LockTimeout time.Duration
}

// Snapshot is the manifest state after a successful Record.
type Snapshot struct {
	Addresses    Addresses
	Interface    []model.Declaration
	InterfaceCID cid.Cid
}

// Record merges m's declarations into the interface document and sets m's
// entry in the addresses document, holding the store lock throughout.
// Selectors in entries are removed from every other module's record, and a
// record left with no selectors is dropped.
//
// Recording the same module twice yields the same documents. Any failure is
// reported as ManifestInconsistent: by the time Record runs, routing has
// already changed and the documents no longer describe it.
func (w *Writer) Record(ctx context.Context, m model.Module, entries []iface.Entry) (*Snapshot, error) {
	log := w.logger().With(zap.String("module", m.Name), zap.String("address", m.Address.Hex()))
	if w.Store == nil {
		return nil, model.NewError(model.KindManifestInconsistent, model.StageRecord, "no manifest store configured")
	}
	if !m.Deployed() {
		return nil, model.NewError(model.KindManifestInconsistent, model.StageRecord, "module has no address")
	}

	unlock, err := w.lock(ctx)
	if err != nil {
		return nil, model.WrapError(model.KindManifestInconsistent, model.StageRecord, "acquire manifest lock", err)
	}
	defer unlock()

	addrs, base, err := w.load(ctx)
	if err != nil {
		return nil, err
	}

	merged := iface.Merge(base, m.Declarations)
	ifaceBytes, err := iface.Encode(merged)
	if err != nil {
		return nil, model.WrapError(model.KindManifestInconsistent, model.StageRecord, "encode interface", err)
	}
	id, err := cidutil.Sum(ifaceBytes)
	if err != nil {
		return nil, model.WrapError(model.KindManifestInconsistent, model.StageRecord, "hash interface", err)
	}

	rec := ModuleRecord{Address: m.Address}
	for _, e := range entries {
		rec.Selectors = append(rec.Selectors, e.Selector)
		rec.Signatures = append(rec.Signatures, e.Signature)
	}
	addrs.Version = Version
	addrs.InterfaceCID = id.String()
	for _, name := range addrs.release(m.Name, rec.Selectors) {
		log.Info("module record superseded", zap.String("previous", name))
	}
	addrs.Modules[m.Name] = rec
	addrBytes, err := EncodeAddresses(addrs)
	if err != nil {
		return nil, model.WrapError(model.KindManifestInconsistent, model.StageRecord, "encode addresses", err)
	}

	if w.Snapshots != nil {
		if _, err := w.Snapshots.Put(ctx, ifaceBytes); err != nil {
			return nil, model.WrapError(model.KindManifestInconsistent, model.StageRecord, "store interface snapshot", err)
		}
	}

	if aw, ok := w.Store.(AtomicWriter); ok {
		if err := aw.WriteAll(ctx, addrBytes, ifaceBytes); err != nil {
			return nil, model.WrapError(model.KindManifestInconsistent, model.StageRecord, "write manifest", err)
		}
	} else {
		if err := w.Store.WriteAddresses(ctx, addrBytes); err != nil {
			return nil, model.WrapError(model.KindManifestInconsistent, model.StageRecord, "write addresses document", err)
		}
		if err := w.Store.WriteInterface(ctx, ifaceBytes); err != nil {
			log.Error("interface document not written; addresses document is ahead", zap.Error(err))
			return nil, model.WrapError(model.KindManifestInconsistent, model.StageRecord, "write interface document", err)
		}
	}

	log.Info("manifest recorded", zap.String("interface_cid", id.String()), zap.Int("declarations", len(merged)))
	return &Snapshot{Addresses: addrs, Interface: merged, InterfaceCID: id}, nil
}

// load reads the current documents. If the interface document does not match
// the CID recorded in the addresses document, the recorded snapshot is used
// as the merge base when one is available.
func (w *Writer) load(ctx context.Context) (Addresses, []model.Declaration, error) {
	rawAddrs, err := w.Store.ReadAddresses(ctx)
	if err != nil {
		return Addresses{}, nil, model.WrapError(model.KindManifestInconsistent, model.StageRecord, "read addresses document", err)
	}
	addrs, err := DecodeAddresses(rawAddrs)
	if err != nil {
		return Addresses{}, nil, model.WrapError(model.KindManifestInconsistent, model.StageRecord, "read addresses document", err)
	}
	rawIface, err := w.Store.ReadInterface(ctx)
	if err != nil {
		return Addresses{}, nil, model.WrapError(model.KindManifestInconsistent, model.StageRecord, "read interface document", err)
	}

	if addrs.InterfaceCID != "" {
		if err := matchCID(addrs.InterfaceCID, rawIface); err != nil && w.Snapshots != nil {
			if want, perr := cidutil.Parse(addrs.InterfaceCID); perr == nil {
				if snap, gerr := w.Snapshots.Get(ctx, want); gerr == nil {
					w.logger().Warn("interface document is stale; merging from recorded snapshot",
						zap.String("interface_cid", addrs.InterfaceCID))
					rawIface = snap
				}
			}
		}
	}

	decls, err := iface.Decode(rawIface)
	if err != nil {
		return Addresses{}, nil, model.WrapError(model.KindManifestInconsistent, model.StageRecord, "read interface document", err)
	}
	return addrs, decls, nil
}

func (w *Writer) lock(ctx context.Context) (func(), error) {
	if w.LockTimeout <= 0 {
		return w.Store.Lock(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, w.LockTimeout)
	defer cancel()
	return w.Store.Lock(ctx)
}

func (w *Writer) logger() *zap.Logger {
	if w.Logger == nil {
		return zap.NewNop()
	}
	return w.Logger
}
