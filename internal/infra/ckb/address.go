package ckb

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vietddude/walletview/internal/core/domain"
)

const (
	formatFull        byte = 0x00
	formatShort       byte = 0x01
	formatFullData    byte = 0x02
	formatFullType    byte = 0x04
	shortIndexSecp    byte = 0x00
	shortIndexMultisg byte = 0x01
)

var hashTypeBytes = map[HashType]byte{
	HashTypeData:  0x00,
	HashTypeType:  0x01,
	HashTypeData1: 0x02,
	HashTypeData2: 0x04,
}

func hashTypeFromByte(b byte) (HashType, error) {
	for ht, v := range hashTypeBytes {
		if v == b {
			return ht, nil
		}
	}
	return "", fmt.Errorf("%w: unknown hash type 0x%02x", ErrInvalidAddress, b)
}

// ParseAddress decodes an address into its lock script and network.
func ParseAddress(addr string) (*Script, domain.Network, error) {
	hrp, data, err := bech32.DecodeNoLimit(addr)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	var network domain.Network
	switch hrp {
	case domain.PrefixMainnet:
		network = domain.NetworkMainnet
	case domain.PrefixTestnet:
		network = domain.NetworkTestnet
	default:
		return nil, "", fmt.Errorf("%w: unknown prefix %q", ErrInvalidAddress, hrp)
	}

	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(payload) == 0 {
		return nil, "", fmt.Errorf("%w: empty payload", ErrInvalidAddress)
	}

	scripts := DefaultScripts(network)

	switch payload[0] {
	case formatFull:
		if len(payload) < 34 {
			return nil, "", fmt.Errorf("%w: short full payload", ErrInvalidAddress)
		}
		ht, err := hashTypeFromByte(payload[33])
		if err != nil {
			return nil, "", err
		}
		return &Script{
			CodeHash: common.BytesToHash(payload[1:33]),
			HashType: ht,
			Args:     append([]byte{}, payload[34:]...),
		}, network, nil

	case formatShort:
		if len(payload) < 2 {
			return nil, "", fmt.Errorf("%w: short payload", ErrInvalidAddress)
		}
		var info ScriptInfo
		switch payload[1] {
		case shortIndexSecp:
			info = scripts.Secp256k1
		case shortIndexMultisg:
			info = scripts.Multisig
		default:
			return nil, "", fmt.Errorf("%w: unsupported short index %d", ErrInvalidAddress, payload[1])
		}
		return &Script{
			CodeHash: info.CodeHash,
			HashType: info.HashType,
			Args:     append([]byte{}, payload[2:]...),
		}, network, nil

	case formatFullData, formatFullType:
		if len(payload) < 33 {
			return nil, "", fmt.Errorf("%w: short full payload", ErrInvalidAddress)
		}
		ht := HashTypeData
		if payload[0] == formatFullType {
			ht = HashTypeType
		}
		return &Script{
			CodeHash: common.BytesToHash(payload[1:33]),
			HashType: ht,
			Args:     append([]byte{}, payload[33:]...),
		}, network, nil

	default:
		return nil, "", fmt.Errorf("%w: unknown format 0x%02x", ErrInvalidAddress, payload[0])
	}
}

// ParseAddressOn decodes addr and checks it belongs to network.
func ParseAddressOn(addr string, network domain.Network) (*Script, error) {
	script, got, err := ParseAddress(addr)
	if err != nil {
		return nil, err
	}
	if got != network {
		return nil, fmt.Errorf("%w: %s is a %s address", ErrNetworkMismatch, addr, got)
	}
	return script, nil
}

// EncodeAddress encodes script in the full bech32m format.
func EncodeAddress(script *Script, network domain.Network) (string, error) {
	htByte, ok := hashTypeBytes[script.HashType]
	if !ok {
		return "", fmt.Errorf("unknown hash type %q", script.HashType)
	}

	payload := make([]byte, 0, 34+len(script.Args))
	payload = append(payload, formatFull)
	payload = append(payload, script.CodeHash.Bytes()...)
	payload = append(payload, htByte)
	payload = append(payload, script.Args...)

	data, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.EncodeM(network.AddressPrefix(), data)
}
