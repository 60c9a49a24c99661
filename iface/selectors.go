package iface

import (
	"sort"
	"strings"

	"xdao.co/facetreg/model"
	"xdao.co/facetreg/selector"
)

// Entry pairs a function's canonical signature with its selector.
type Entry struct {
	Signature string
	Selector  selector.Selector
}

// CanonicalType returns the canonical type tag of p, expanding tuple
// components into (t1,t2,...) form.
func CanonicalType(p model.Param) (string, error) {
	if !strings.HasPrefix(p.Type, "tuple") {
		return p.Type, nil
	}
	parts := make([]string, 0, len(p.Components))
	for _, c := range p.Components {
		t, err := CanonicalType(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, t)
	}
	return "(" + strings.Join(parts, ",") + ")" + p.Type[len("tuple"):], nil
}

// Signature returns the canonical signature of a function or event declaration.
func Signature(d model.Declaration) (string, error) {
	types := make([]string, 0, len(d.Inputs))
	for _, in := range d.Inputs {
		t, err := CanonicalType(in)
		if err != nil {
			return "", err
		}
		types = append(types, t)
	}
	return selector.Signature(d.Name, types)
}

// Selectors computes the selector of every function in decls, in declaration
// order. Two functions that map to the same selector (including a function
// declared twice) are a structural error and fail with SelectorCollision.
func Selectors(decls []model.Declaration) ([]Entry, error) {
	seen := make(map[selector.Selector]string)
	var out []Entry
	for _, d := range decls {
		if d.Kind() != model.DeclFunction {
			continue
		}
		sig, err := Signature(d)
		if err != nil {
			return nil, err
		}
		sel, err := selector.FromSignature(sig)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[sel]; dup {
			return nil, model.Errorf(model.KindSelectorCollision, model.StageSelect,
				"%s and %s share selector %s", prev, sig, sel.Hex())
		}
		seen[sel] = sig
		out = append(out, Entry{Signature: sig, Selector: sel})
	}
	return out, nil
}

// SelectorsOf extracts only the selector column of entries.
func SelectorsOf(entries []Entry) []selector.Selector {
	out := make([]selector.Selector, len(entries))
	for i, e := range entries {
		out[i] = e.Selector
	}
	return out
}

// Exclude drops entries whose signature is listed in sigs.
func Exclude(entries []Entry, sigs []string) []Entry {
	if len(sigs) == 0 {
		return entries
	}
	skip := make(map[string]struct{}, len(sigs))
	for _, s := range sigs {
		skip[s] = struct{}{}
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if _, ok := skip[e.Signature]; ok {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Conflict is a same-name function pair whose signatures differ; merging the
// incoming one silently drops the existing one from the interface registry.
type Conflict struct {
	Name     string
	Existing string
	Incoming string
}

// Conflicts lists same-name/different-signature functions between existing
// and incoming. The result is sorted by name.
func Conflicts(existing, incoming []model.Declaration) ([]Conflict, error) {
	have := make(map[string]string)
	for _, d := range existing {
		if d.Kind() != model.DeclFunction {
			continue
		}
		sig, err := Signature(d)
		if err != nil {
			return nil, err
		}
		have[d.Name] = sig
	}
	var out []Conflict
	for _, d := range incoming {
		if d.Kind() != model.DeclFunction {
			continue
		}
		prev, ok := have[d.Name]
		if !ok {
			continue
		}
		sig, err := Signature(d)
		if err != nil {
			return nil, err
		}
		if sig != prev {
			out = append(out, Conflict{Name: d.Name, Existing: prev, Incoming: sig})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
