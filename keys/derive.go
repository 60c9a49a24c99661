package keys

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeySize is the length of a secp256k1 private scalar.
const KeySize = 32

const derivationDomain = "xdao-facetreg-keys-v1"

// AddressOf returns the account address controlled by key.
func AddressOf(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

// DeriveRoleKey deterministically derives a role-specific key from a root
// key's scalar. The rare digest that is not a valid scalar is re-hashed.
func DeriveRoleKey(root []byte, role string) ([]byte, error) {
	if len(root) != KeySize {
		return nil, fmt.Errorf("root key must be %d bytes", KeySize)
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}

	sum := crypto.Keccak256(root, []byte{0}, []byte(derivationDomain), []byte{0}, []byte("role:"+role))
	for i := 0; i < 8; i++ {
		if _, err := crypto.ToECDSA(sum); err == nil {
			return sum, nil
		}
		sum = crypto.Keccak256(sum)
	}
	return nil, errors.New("keys: derivation produced no valid scalar")
}
