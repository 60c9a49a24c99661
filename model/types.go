package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// DeclKind classifies declarations for merge purposes.
type DeclKind string

const (
	DeclFunction DeclKind = "function"
	DeclEvent    DeclKind = "event"
	DeclOther    DeclKind = "other"
)

// Param is one ABI parameter. Components is set for tuple types.
type Param struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	InternalType string  `json:"internalType,omitempty"`
	Components   []Param `json:"components,omitempty"`
	Indexed      bool    `json:"indexed,omitempty"`
}

// Declaration is one entry of a contract ABI.
//
// Only Type, Name and Inputs are interpreted. Raw keeps the entry exactly as
// it was decoded (compacted) so kind-specific fields such as outputs,
// stateMutability or anonymous survive a merge untouched.
type Declaration struct {
	Type   string
	Name   string
	Inputs []Param
	Raw    json.RawMessage
}

// Kind maps the ABI "type" field onto the merge classification.
func (d Declaration) Kind() DeclKind {
	switch d.Type {
	case "function", "":
		return DeclFunction
	case "event":
		return DeclEvent
	default:
		return DeclOther
	}
}

// Named reports whether the declaration participates in name-keyed merging.
func (d Declaration) Named() bool {
	k := d.Kind()
	return k == DeclFunction || k == DeclEvent
}

func (d *Declaration) UnmarshalJSON(b []byte) error {
	var head struct {
		Type   string  `json:"type"`
		Name   string  `json:"name"`
		Inputs []Param `json:"inputs"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return err
	}
	if head.Type == "" {
		// Solidity ABI: type defaults to "function".
		head.Type = "function"
	}
	d.Type = head.Type
	d.Name = head.Name
	d.Inputs = head.Inputs
	d.Raw = buf.Bytes()
	return nil
}

func (d Declaration) MarshalJSON() ([]byte, error) {
	if len(d.Raw) > 0 {
		return d.Raw, nil
	}
	typ := d.Type
	if typ == "" {
		typ = "function"
	}
	inputs := d.Inputs
	if inputs == nil {
		inputs = []Param{}
	}
	out := struct {
		Type   string  `json:"type"`
		Name   string  `json:"name,omitempty"`
		Inputs []Param `json:"inputs"`
	}{typ, d.Name, inputs}
	return json.Marshal(out)
}

// Canonical returns the compact JSON form used for content equality.
func (d Declaration) Canonical() ([]byte, error) {
	b, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Module describes one deployable facet.
//
// Address is zero until deployment assigns it. Descriptors are never mutated
// after that; an upgrade produces a new descriptor.
type Module struct {
	Name         string
	Declarations []Declaration
	Bytecode     []byte
	Address      common.Address
}

// Deployed reports whether an address has been assigned.
func (m Module) Deployed() bool { return m.Address != (common.Address{}) }

// WithAddress returns a copy of m bound to addr.
func (m Module) WithAddress(addr common.Address) Module {
	out := m
	out.Declarations = append([]Declaration(nil), m.Declarations...)
	out.Bytecode = append([]byte(nil), m.Bytecode...)
	out.Address = addr
	return out
}

// State is a step in the per-upgrade state machine.
type State int

const (
	// StatePending is the state of a run before its module is built.
	StatePending State = iota
	StateBuilt
	StateDeployed
	StateBound
	StateRecorded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateBuilt:
		return "Built"
	case StateDeployed:
		return "Deployed"
	case StateBound:
		return "Bound"
	case StateRecorded:
		return "Recorded"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateRecorded || s == StateFailed }
