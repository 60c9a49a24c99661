package diamond

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"xdao.co/facetreg/ledger/memledger"
	"xdao.co/facetreg/proxy"
	"xdao.co/facetreg/proxy/memproxy"
	"xdao.co/facetreg/selector"
)

// Simulator hosts a diamond on a memledger: it decodes administrative
// calldata and applies it to an in-memory table.
type Simulator struct {
	Table *memproxy.Proxy

	mu    sync.Mutex
	roles map[[32]byte]map[common.Address]bool
}

var _ memledger.Handler = (*Simulator)(nil)

// NewSimulator returns a diamond owned by owner.
func NewSimulator(owner common.Address) *Simulator {
	return &Simulator{Table: memproxy.New(owner), roles: make(map[[32]byte]map[common.Address]bool)}
}

func (s *Simulator) Transact(from common.Address, data []byte) error {
	method, args, err := decode(data)
	if err != nil {
		return err
	}
	switch method.Name {
	case "diamondCut":
		var cuts []facetCut
		if err := convert(args[0], &cuts); err != nil {
			return err
		}
		out := make([]proxy.Cut, 0, len(cuts))
		for _, c := range cuts {
			sels := make([]selector.Selector, len(c.FunctionSelectors))
			for i, b := range c.FunctionSelectors {
				sels[i] = selector.Selector(b)
			}
			out = append(out, proxy.Cut{Facet: c.FacetAddress, Action: proxy.Action(c.Action), Selectors: sels})
		}
		return s.Table.Cut(from, out)
	case "grantRole":
		if from != s.Table.Owner() {
			return errors.New("AccessControl: sender must be an admin to grant")
		}
		role := args[0].([32]byte)
		account := args[1].(common.Address)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.roles[role] == nil {
			s.roles[role] = make(map[common.Address]bool)
		}
		s.roles[role][account] = true
		return nil
	default:
		return fmt.Errorf("diamond: %s is not a transaction", method.Name)
	}
}

func (s *Simulator) Call(_ common.Address, data []byte) ([]byte, error) {
	method, args, err := decode(data)
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "facetAddress":
		sel := selector.Selector(args[0].([4]byte))
		addr := s.Table.Snapshot()[sel]
		return method.Outputs.Pack(addr)
	case "owner":
		return method.Outputs.Pack(s.Table.Owner())
	case "hasRole":
		role := args[0].([32]byte)
		account := args[1].(common.Address)
		s.mu.Lock()
		ok := s.roles[role][account]
		s.mu.Unlock()
		return method.Outputs.Pack(ok)
	default:
		return nil, fmt.Errorf("diamond: %s is not a view", method.Name)
	}
}

func decode(data []byte) (*abi.Method, []interface{}, error) {
	if len(data) < selector.Size {
		return nil, nil, errors.New("Diamond: Function does not exist")
	}
	method, err := AdminABI.MethodById(data[:selector.Size])
	if err != nil {
		return nil, nil, errors.New("Diamond: Function does not exist")
	}
	args, err := method.Inputs.Unpack(data[selector.Size:])
	if err != nil {
		return nil, nil, fmt.Errorf("diamond: decode %s: %w", method.Name, err)
	}
	return method, args, nil
}

func convert(in interface{}, out *[]facetCut) error {
	conv, ok := abi.ConvertType(in, new([]facetCut)).(*[]facetCut)
	if !ok {
		return fmt.Errorf("diamond: unexpected cut argument %T", in)
	}
	*out = *conv
	return nil
}
