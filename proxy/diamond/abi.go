package diamond

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// adminABI covers IDiamondCut, the facetAddress loupe call, IERC173 owner and
// the AccessControl role calls served through the diamond.
const adminABI = `[
  {"type":"function","name":"diamondCut","stateMutability":"nonpayable","outputs":[],"inputs":[
    {"name":"_diamondCut","type":"tuple[]","components":[
      {"name":"facetAddress","type":"address"},
      {"name":"action","type":"uint8"},
      {"name":"functionSelectors","type":"bytes4[]"}]},
    {"name":"_init","type":"address"},
    {"name":"_calldata","type":"bytes"}]},
  {"type":"function","name":"facetAddress","stateMutability":"view",
    "inputs":[{"name":"_functionSelector","type":"bytes4"}],
    "outputs":[{"name":"facetAddress_","type":"address"}]},
  {"type":"function","name":"owner","stateMutability":"view","inputs":[],
    "outputs":[{"name":"owner_","type":"address"}]},
  {"type":"function","name":"grantRole","stateMutability":"nonpayable","outputs":[],
    "inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}]},
  {"type":"function","name":"hasRole","stateMutability":"view",
    "inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],
    "outputs":[{"name":"","type":"bool"}]}
]`

// AdminABI is the parsed administrative interface.
var AdminABI = mustParse(adminABI)

func mustParse(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

// facetCut mirrors IDiamondCut.FacetCut; field names follow the ABI component
// names so go-ethereum can pack and convert it.
type facetCut struct {
	FacetAddress      common.Address
	Action            uint8
	FunctionSelectors [][4]byte
}
