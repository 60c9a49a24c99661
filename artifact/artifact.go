// Package artifact loads compiled modules: executable code plus the full
// function/event declaration list with canonical type tags.
package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"xdao.co/facetreg/iface"
	"xdao.co/facetreg/model"
)

// ErrNotFound is returned when no artifact exists for a module name.
var ErrNotFound = errors.New("artifact: module not found")

// Source resolves a module's logical name to its compiled form.
//
// Contract: Load MUST fail (never return an empty declaration list) when the
// module is unknown.
type Source interface {
	Load(ctx context.Context, name string) (model.Module, error)
}

// File is the on-disk shape of a compiled artifact (Hardhat/Foundry style).
type File struct {
	ContractName string              `json:"contractName"`
	ABI          []model.Declaration `json:"abi"`
	Bytecode     string              `json:"bytecode"`
}

// Dir is a Source backed by an artifacts directory. It accepts both the
// nested layout (contracts/Widget.sol/Widget.json) and a flat one
// (Widget.json).
type Dir struct {
	Root string
}

func (d Dir) Load(ctx context.Context, name string) (model.Module, error) {
	if err := ctx.Err(); err != nil {
		return model.Module{}, err
	}
	if name == "" || strings.ContainsAny(name, `/\`) {
		return model.Module{}, fmt.Errorf("artifact: invalid module name %q", name)
	}
	path, err := d.find(name)
	if err != nil {
		return model.Module{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return model.Module{}, fmt.Errorf("artifact: read %s: %w", path, err)
	}
	return Parse(name, b)
}

func (d Dir) find(name string) (string, error) {
	flat := filepath.Join(d.Root, name+".json")
	if _, err := os.Stat(flat); err == nil {
		return flat, nil
	}
	want := name + ".json"
	var found string
	err := filepath.WalkDir(d.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || entry.Name() != want {
			return nil
		}
		// Skip Hardhat debug files (Widget.dbg.json never matches) and
		// sources whose directory names another contract.
		if filepath.Base(filepath.Dir(path)) != name+".sol" && filepath.Dir(path) != d.Root {
			return nil
		}
		found = path
		return fs.SkipAll
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("artifact: scan %s: %w", d.Root, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return found, nil
}

// Parse decodes one artifact file and checks it is deployable and that its
// selectors agree with go-ethereum's ABI parser.
func Parse(name string, b []byte) (model.Module, error) {
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return model.Module{}, fmt.Errorf("artifact: decode %s: %w", name, err)
	}
	if len(f.ABI) == 0 {
		return model.Module{}, fmt.Errorf("artifact: %s declares no interface", name)
	}
	code := common.FromHex(f.Bytecode)
	if len(code) == 0 {
		return model.Module{}, fmt.Errorf("artifact: %s has no bytecode", name)
	}
	if err := crossCheck(name, f.ABI); err != nil {
		return model.Module{}, err
	}
	if f.ContractName != "" && f.ContractName != name {
		return model.Module{}, fmt.Errorf("artifact: file for %s names contract %s", name, f.ContractName)
	}
	return model.Module{Name: name, Declarations: f.ABI, Bytecode: code}, nil
}

func crossCheck(name string, decls []model.Declaration) error {
	entries, err := iface.Selectors(decls)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(decls)
	if err != nil {
		return fmt.Errorf("artifact: %s: %w", name, err)
	}
	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return model.WrapError(model.KindInvalidSignature, model.StageSelect, "abi of "+name+" does not parse", err)
	}
	ids := make(map[string][]byte, len(parsed.Methods))
	for _, m := range parsed.Methods {
		ids[m.Sig] = m.ID
	}
	for _, e := range entries {
		id, ok := ids[e.Signature]
		if !ok {
			return model.Errorf(model.KindInvalidSignature, model.StageSelect, "%s: %s unknown to abi parser", name, e.Signature)
		}
		if !bytes.Equal(id, e.Selector[:]) {
			return model.Errorf(model.KindInvalidSignature, model.StageSelect, "%s: selector mismatch for %s", name, e.Signature)
		}
	}
	return nil
}
