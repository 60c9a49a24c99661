// Package selector derives the 4-byte function selectors used as routing keys
// by the proxy, and the 32-byte role identifiers used as access-control tags.
//
// Both are prefixes of Keccak-256 (the original, pre-standard padding used by
// the EVM) over the exact UTF-8 bytes of a canonical string.
package selector

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	"xdao.co/facetreg/model"
)

// Size is the byte width of a selector.
const Size = 4

// Selector is a function routing key. It is compared and stored as bytes,
// never as a display string.
type Selector [Size]byte

// Hex renders the selector as 0x-prefixed lower-case hex.
func (s Selector) Hex() string { return "0x" + hex.EncodeToString(s[:]) }

func (s Selector) String() string { return s.Hex() }

// Uint32 returns the big-endian value of the selector.
func (s Selector) Uint32() uint32 {
	return uint32(s[0])<<24 | uint32(s[1])<<16 | uint32(s[2])<<8 | uint32(s[3])
}

// MarshalText implements encoding.TextMarshaler.
func (s Selector) MarshalText() ([]byte, error) { return []byte(s.Hex()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Selector) UnmarshalText(b []byte) error {
	v, err := ParseHex(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseHex parses an 8-hex-digit selector with optional 0x prefix, either case.
func ParseHex(s string) (Selector, error) {
	var out Selector
	raw := s
	if len(raw) >= 2 && raw[0] == '0' && (raw[1] == 'x' || raw[1] == 'X') {
		raw = raw[2:]
	}
	if len(raw) != 2*Size {
		return out, model.Errorf(model.KindInvalidSignature, model.StageSelect, "selector %q must be %d hex digits", s, 2*Size)
	}
	if _, err := hex.Decode(out[:], []byte(raw)); err != nil {
		return out, model.WrapError(model.KindInvalidSignature, model.StageSelect, "selector "+s+" is not hex", err)
	}
	return out, nil
}

// Signature builds the canonical signature name(t1,t2,...) with no spaces.
func Signature(name string, types []string) (string, error) {
	if err := CheckName(name); err != nil {
		return "", err
	}
	for _, t := range types {
		if err := CheckType(t); err != nil {
			return "", err
		}
	}
	return name + "(" + strings.Join(types, ",") + ")", nil
}

// Compute returns the selector of name(types...).
func Compute(name string, types []string) (Selector, error) {
	sig, err := Signature(name, types)
	if err != nil {
		return Selector{}, err
	}
	return hashSignature(sig), nil
}

// MustCompute is like Compute but panics on error. Use for constants.
func MustCompute(name string, types ...string) Selector {
	s, err := Compute(name, types)
	if err != nil {
		panic(err)
	}
	return s
}

// FromSignature validates a textual signature such as "get(uint256)" and
// returns its selector. Whitespace anywhere is rejected, not normalised.
func FromSignature(sig string) (Selector, error) {
	name, types, err := SplitSignature(sig)
	if err != nil {
		return Selector{}, err
	}
	return Compute(name, types)
}

// SplitSignature splits a canonical signature into its name and top-level
// parameter types.
func SplitSignature(sig string) (string, []string, error) {
	open := strings.IndexByte(sig, '(')
	if open <= 0 || !strings.HasSuffix(sig, ")") {
		return "", nil, model.Errorf(model.KindInvalidSignature, model.StageSelect, "malformed signature %q", sig)
	}
	name := sig[:open]
	body := sig[open+1 : len(sig)-1]
	if err := CheckName(name); err != nil {
		return "", nil, err
	}
	if body == "" {
		return name, nil, nil
	}
	types, ok := splitTopLevel(body)
	if !ok {
		return "", nil, model.Errorf(model.KindInvalidSignature, model.StageSelect, "unbalanced parentheses in %q", sig)
	}
	return name, types, nil
}

func hashSignature(sig string) Selector {
	var out Selector
	copy(out[:], keccak256([]byte(sig)))
	return out
}

func keccak256(b []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(b)
	return h.Sum(nil)
}
