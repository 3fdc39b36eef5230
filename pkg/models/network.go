package models

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
)

// Network selects the Bitcoin network a deployment runs against.
type Network string

// Supported networks. Each has its own bech32 prefix, which keeps encoded
// addresses distinct across networks.
const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkRegtest Network = "regtest"
)

// Networks lists every supported network.
func Networks() []Network {
	return []Network{NetworkMainnet, NetworkTestnet, NetworkRegtest}
}

// ParseNetwork accepts a network name, case-insensitively.
func ParseNetwork(s string) (Network, error) {
	n := Network(strings.ToLower(strings.TrimSpace(s)))
	if _, err := n.Params(); err != nil {
		return "", err
	}
	return n, nil
}

// Params returns the chain parameters of the network.
func (n Network) Params() (*chaincfg.Params, error) {
	switch n {
	case NetworkMainnet:
		return &chaincfg.MainNetParams, nil
	case NetworkTestnet:
		return &chaincfg.TestNet3Params, nil
	case NetworkRegtest:
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedNetwork, string(n))
	}
}

func (n Network) String() string {
	return string(n)
}
