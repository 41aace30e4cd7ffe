package domain

import (
	"fmt"
	"strings"
)

// Network identifies which CKB ledger a session talks to.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// Address prefixes per network.
const (
	PrefixMainnet = "ckb"
	PrefixTestnet = "ckt"
)

// ParseNetwork validates a network name.
func ParseNetwork(s string) (Network, error) {
	switch Network(strings.ToLower(strings.TrimSpace(s))) {
	case NetworkMainnet:
		return NetworkMainnet, nil
	case NetworkTestnet:
		return NetworkTestnet, nil
	default:
		return "", fmt.Errorf("unknown network %q", s)
	}
}

func (n Network) IsMainnet() bool {
	return n == NetworkMainnet
}

// AddressPrefix returns the human readable part used by addresses on n.
func (n Network) AddressPrefix() string {
	if n == NetworkTestnet {
		return PrefixTestnet
	}
	return PrefixMainnet
}

func (n Network) String() string {
	return string(n)
}

// NetworkOfAddress infers the network from the address prefix.
// Anything that is not a testnet address is treated as mainnet.
func NetworkOfAddress(addr Address) Network {
	if strings.HasPrefix(string(addr), PrefixTestnet) {
		return NetworkTestnet
	}
	return NetworkMainnet
}
