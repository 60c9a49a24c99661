package selector

import "encoding/hex"

// RoleID is the 32-byte access-control tag derived from a role label.
type RoleID [32]byte

// ComputeRoleID hashes the label bytes exactly as given. Labels are case and
// byte sensitive; no trimming or normalisation is applied.
func ComputeRoleID(label string) RoleID {
	var out RoleID
	copy(out[:], keccak256([]byte(label)))
	return out
}

func (r RoleID) Hex() string { return "0x" + hex.EncodeToString(r[:]) }

func (r RoleID) String() string { return r.Hex() }
