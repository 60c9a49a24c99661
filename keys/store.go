package keys

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// KeyStore keeps keys under Directory as <name>/root.key and
// <name>/roles/<role>.key, each a hex scalar readable only by the owner.
type KeyStore struct {
	Directory string
}

type KeyEntry struct {
	Name  string
	Roles []string
}

func GetDefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".facetreg", "keys"), nil
}

func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) rootPath(name string) string {
	return filepath.Join(ks.Directory, name, "root.key")
}

func (ks *KeyStore) rolePath(name, role string) string {
	return filepath.Join(ks.Directory, name, "roles", role+".key")
}

func checkIdent(what, s string) error {
	if s == "" {
		return fmt.Errorf("%s cannot be empty", what)
	}
	for _, char := range s {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in %s", char, what)
	}
	return nil
}

func CheckKeyName(name string) error { return checkIdent("key name", name) }

func CheckRole(role string) error { return checkIdent("role", role) }

// ParseKeyHex decodes a hex private key, with or without 0x prefix.
func ParseKeyHex(keyHex string) (*ecdsa.PrivateKey, error) {
	keyHex = strings.TrimPrefix(strings.TrimSpace(keyHex), "0x")
	data, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, err
	}
	if len(data) != KeySize {
		return nil, fmt.Errorf("expected key length of %d bytes, got %d", KeySize, len(data))
	}
	return crypto.ToECDSA(data)
}

func (ks *KeyStore) save(path string, key *ecdsa.PrivateKey, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(crypto.FromECDSA(key)) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

func (ks *KeyStore) load(path string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseKeyHex(string(data))
}

// Generate creates a fresh root key for name.
func (ks *KeyStore) Generate(name string, overwrite bool) (*ecdsa.PrivateKey, string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, "", err
	}
	path, err := ks.Import(name, key, overwrite)
	if err != nil {
		return nil, "", err
	}
	return key, path, nil
}

// Import stores key as the root key for name.
func (ks *KeyStore) Import(name string, key *ecdsa.PrivateKey, overwrite bool) (string, error) {
	if err := CheckKeyName(name); err != nil {
		return "", err
	}
	path := ks.rootPath(name)
	if err := ks.save(path, key, overwrite); err != nil {
		return "", err
	}
	return path, nil
}

// DeriveRole derives and stores the role key for name.
func (ks *KeyStore) DeriveRole(name, role string, overwrite bool) (*ecdsa.PrivateKey, string, error) {
	if err := CheckKeyName(name); err != nil {
		return nil, "", err
	}
	root, err := ks.load(ks.rootPath(name))
	if err != nil {
		return nil, "", err
	}
	scalar, err := DeriveRoleKey(crypto.FromECDSA(root), role)
	if err != nil {
		return nil, "", err
	}
	key, err := crypto.ToECDSA(scalar)
	if err != nil {
		return nil, "", err
	}
	path := ks.rolePath(name, role)
	if err := ks.save(path, key, overwrite); err != nil {
		return nil, "", err
	}
	return key, path, nil
}

// Load resolves a signing key from, in order: an explicit hex key, a key
// file, or a stored name (with optional role).
func (ks *KeyStore) Load(keyHex, name, role, keyFile string) (*ecdsa.PrivateKey, error) {
	if keyHex != "" {
		return ParseKeyHex(keyHex)
	}
	if keyFile != "" {
		return ks.load(keyFile)
	}
	if name != "" {
		if err := CheckKeyName(name); err != nil {
			return nil, err
		}
		if role == "" {
			return ks.load(ks.rootPath(name))
		}
		if err := CheckRole(role); err != nil {
			return nil, err
		}
		return ks.load(ks.rolePath(name, role))
	}
	return nil, errors.New("no signer provided")
}

// List returns stored names with their derived roles, sorted.
func (ks *KeyStore) List() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var result []KeyEntry
	for _, name := range names {
		roleEntries, rerr := os.ReadDir(filepath.Join(ks.Directory, name, "roles"))
		var roles []string
		if rerr == nil {
			for _, roleEntry := range roleEntries {
				if !roleEntry.IsDir() && strings.HasSuffix(roleEntry.Name(), ".key") {
					roles = append(roles, strings.TrimSuffix(roleEntry.Name(), ".key"))
				}
			}
			sort.Strings(roles)
		}
		result = append(result, KeyEntry{Name: name, Roles: roles})
	}
	return result, nil
}
