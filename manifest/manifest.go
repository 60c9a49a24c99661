// Package manifest persists the two client-facing deployment records: the
// addresses document (module name to address and selectors) and the merged
// interface document. Both are written under one store lock, and the
// addresses document carries the CID of the interface bytes it was written
// with so a half-applied write is detectable.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"xdao.co/facetreg/selector"
)

// Version is the addresses document format version.
const Version = 1

// ModuleRecord is one module's entry in the addresses document.
type ModuleRecord struct {
	Address    common.Address      `json:"address"`
	Selectors  []selector.Selector `json:"selectors"`
	Signatures []string            `json:"signatures,omitempty"`
}

// Addresses is the addresses document.
type Addresses struct {
	Version      int                     `json:"version"`
	InterfaceCID string                  `json:"interfaceCID,omitempty"`
	Modules      map[string]ModuleRecord `json:"modules"`
}

// NewAddresses returns an empty document at the current version.
func NewAddresses() Addresses {
	return Addresses{Version: Version, Modules: map[string]ModuleRecord{}}
}

// Names returns the recorded module names, sorted.
func (a Addresses) Names() []string {
	out := make([]string, 0, len(a.Modules))
	for name := range a.Modules {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Owner returns the module that records sel, if any.
func (a Addresses) Owner(sel selector.Selector) (string, bool) {
	for _, name := range a.Names() {
		for _, s := range a.Modules[name].Selectors {
			if s == sel {
				return name, true
			}
		}
	}
	return "", false
}

// release removes sels from every module record other than keep and deletes
// records left with no selectors. It returns the deleted names.
func (a Addresses) release(keep string, sels []selector.Selector) []string {
	taken := make(map[selector.Selector]bool, len(sels))
	for _, s := range sels {
		taken[s] = true
	}
	var dropped []string
	for _, name := range a.Names() {
		if name == keep {
			continue
		}
		rec := a.Modules[name]
		paired := len(rec.Signatures) == len(rec.Selectors)
		var out ModuleRecord
		out.Address = rec.Address
		for i, s := range rec.Selectors {
			if taken[s] {
				continue
			}
			out.Selectors = append(out.Selectors, s)
			if paired {
				out.Signatures = append(out.Signatures, rec.Signatures[i])
			}
		}
		switch {
		case len(out.Selectors) == 0:
			delete(a.Modules, name)
			dropped = append(dropped, name)
		case len(out.Selectors) != len(rec.Selectors):
			a.Modules[name] = out
		}
	}
	return dropped
}

// EncodeAddresses renders a deterministically: map keys are sorted by
// encoding/json and the output ends with a newline.
func EncodeAddresses(a Addresses) ([]byte, error) {
	if a.Modules == nil {
		a.Modules = map[string]ModuleRecord{}
	}
	if a.Version == 0 {
		a.Version = Version
	}
	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("manifest: encode addresses: %w", err)
	}
	return append(b, '\n'), nil
}

// DecodeAddresses parses an addresses document. Empty input yields an empty
// document.
func DecodeAddresses(b []byte) (Addresses, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return NewAddresses(), nil
	}
	var a Addresses
	if err := json.Unmarshal(b, &a); err != nil {
		return Addresses{}, fmt.Errorf("manifest: decode addresses: %w", err)
	}
	if a.Version > Version {
		return Addresses{}, fmt.Errorf("manifest: unsupported addresses version %d", a.Version)
	}
	if a.Modules == nil {
		a.Modules = map[string]ModuleRecord{}
	}
	return a, nil
}
