// Package iface maintains the client-facing interface registry: the merged,
// name-deduplicated ABI of every module installed behind the proxy.
//
// The merged list is a lossy convenience projection. The authoritative
// routing information is the per-selector binding held by the proxy, which is
// computed from each module's full declaration list (see Selectors).
package iface

import (
	"bytes"

	"xdao.co/facetreg/model"
)

// Merge folds incoming into existing.
//
// Every function or event in existing whose name appears among incoming's
// function/event names is dropped; the remaining entries keep their relative
// order and incoming is appended in its given order. If a name still occurs
// more than once (duplicate names inside one input) the last occurrence wins.
// Other declarations (constructor, fallback, receive, error) pass through
// unmodified; an existing one that is byte-identical to an incoming one is
// dropped so repeated merges do not accumulate copies.
//
// Merge(Merge(a, b), b) equals Merge(a, b).
func Merge(existing, incoming []model.Declaration) []model.Declaration {
	if len(incoming) == 0 {
		return append([]model.Declaration(nil), existing...)
	}

	names := make(map[string]struct{}, len(incoming))
	others := make(map[string]struct{})
	for _, d := range incoming {
		if d.Named() {
			names[d.Name] = struct{}{}
			continue
		}
		others[canonicalKey(d)] = struct{}{}
	}

	combined := make([]model.Declaration, 0, len(existing)+len(incoming))
	for _, d := range existing {
		if d.Named() {
			if _, drop := names[d.Name]; drop {
				continue
			}
		} else if _, dup := others[canonicalKey(d)]; dup {
			continue
		}
		combined = append(combined, d)
	}
	combined = append(combined, incoming...)
	return lastByName(combined)
}

// lastByName removes earlier function/event declarations that share a name
// with a later one.
func lastByName(decls []model.Declaration) []model.Declaration {
	last := make(map[string]int, len(decls))
	for i, d := range decls {
		if d.Named() {
			last[d.Name] = i
		}
	}
	out := decls[:0:0]
	for i, d := range decls {
		if d.Named() && last[d.Name] != i {
			continue
		}
		out = append(out, d)
	}
	return out
}

func canonicalKey(d model.Declaration) string {
	b, err := d.Canonical()
	if err != nil {
		// Unencodable declarations never compare equal to anything.
		return "\x00" + d.Type + "\x00" + d.Name
	}
	return string(b)
}

// Names returns the function/event names of decls in order.
func Names(decls []model.Declaration) []string {
	out := make([]string, 0, len(decls))
	for _, d := range decls {
		if d.Named() {
			out = append(out, d.Name)
		}
	}
	return out
}

// Equal reports whether two declaration lists are identical entry by entry.
func Equal(a, b []model.Declaration) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ab, err := a[i].Canonical()
		if err != nil {
			return false
		}
		bb, err := b[i].Canonical()
		if err != nil {
			return false
		}
		if !bytes.Equal(ab, bb) {
			return false
		}
	}
	return true
}
