package iface

import (
	"encoding/json"
	"fmt"

	"xdao.co/facetreg/model"
)

// Encode renders decls as the client-facing interface document: an indented
// JSON array with one declaration per element. Output is deterministic for a
// given list.
func Encode(decls []model.Declaration) ([]byte, error) {
	if decls == nil {
		decls = []model.Declaration{}
	}
	b, err := json.MarshalIndent(decls, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("iface: encode: %w", err)
	}
	return append(b, '\n'), nil
}

// Decode parses an interface document. Empty input decodes to an empty list.
func Decode(b []byte) ([]model.Declaration, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var out []model.Declaration
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("iface: decode: %w", err)
	}
	return out, nil
}
