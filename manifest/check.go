package manifest

import (
	"context"

	"xdao.co/facetreg/cidutil"
	"xdao.co/facetreg/iface"
	"xdao.co/facetreg/model"
)

// Load reads and decodes both documents without checking their consistency.
func Load(ctx context.Context, r Reader) (Addresses, []model.Declaration, error) {
	rawAddrs, err := r.ReadAddresses(ctx)
	if err != nil {
		return Addresses{}, nil, err
	}
	addrs, err := DecodeAddresses(rawAddrs)
	if err != nil {
		return Addresses{}, nil, err
	}
	rawIface, err := r.ReadInterface(ctx)
	if err != nil {
		return Addresses{}, nil, err
	}
	decls, err := iface.Decode(rawIface)
	if err != nil {
		return Addresses{}, nil, err
	}
	return addrs, decls, nil
}

// Check returns ManifestInconsistent unless the stored interface bytes hash
// to the CID recorded in the addresses document. A manifest that has never
// been written is consistent.
func Check(ctx context.Context, r Reader) error {
	rawAddrs, err := r.ReadAddresses(ctx)
	if err != nil {
		return model.WrapError(model.KindManifestInconsistent, model.StageVerify, "read addresses document", err)
	}
	addrs, err := DecodeAddresses(rawAddrs)
	if err != nil {
		return model.WrapError(model.KindManifestInconsistent, model.StageVerify, "read addresses document", err)
	}
	rawIface, err := r.ReadInterface(ctx)
	if err != nil {
		return model.WrapError(model.KindManifestInconsistent, model.StageVerify, "read interface document", err)
	}

	if addrs.InterfaceCID == "" {
		if len(addrs.Modules) > 0 {
			return model.NewError(model.KindManifestInconsistent, model.StageVerify, "addresses document has no interface CID")
		}
		if _, err := iface.Decode(rawIface); err != nil {
			return model.WrapError(model.KindManifestInconsistent, model.StageVerify, "read interface document", err)
		}
		return nil
	}
	return matchCID(addrs.InterfaceCID, rawIface)
}

func matchCID(recorded string, b []byte) error {
	want, err := cidutil.Parse(recorded)
	if err != nil {
		return model.WrapError(model.KindManifestInconsistent, model.StageVerify, "recorded interface CID is invalid", err)
	}
	got, err := cidutil.Sum(b)
	if err != nil {
		return model.WrapError(model.KindManifestInconsistent, model.StageVerify, "hash interface document", err)
	}
	if got != want {
		return model.Errorf(model.KindManifestInconsistent, model.StageVerify,
			"interface document hashes to %s, addresses document records %s", got, want)
	}
	return nil
}
