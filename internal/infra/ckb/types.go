// Package ckb is a small CKB SDK: address codec, indexer client, cell
// collection and xUDT transfer construction.
package ckb

import (
	"bytes"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrInvalidAddress       = errors.New("invalid ckb address")
	ErrNetworkMismatch      = errors.New("address belongs to another network")
	ErrInsufficientToken    = errors.New("insufficient token balance")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrFeeTooHigh           = errors.New("fee exceeds limit")
	ErrCellNotLive          = errors.New("cell is not live")
)

// ShannonsPerCKB converts capacity bytes to shannons.
const ShannonsPerCKB = 100_000_000

type HashType string

const (
	HashTypeData  HashType = "data"
	HashTypeType  HashType = "type"
	HashTypeData1 HashType = "data1"
	HashTypeData2 HashType = "data2"
)

// Script is a lock or type script.
type Script struct {
	CodeHash common.Hash   `json:"code_hash"`
	HashType HashType      `json:"hash_type"`
	Args     hexutil.Bytes `json:"args"`
}

// Equals compares two scripts field by field.
func (s *Script) Equals(o *Script) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.CodeHash == o.CodeHash && s.HashType == o.HashType && bytes.Equal(s.Args, o.Args)
}

// HasPrefix reports whether s has the same code and hash type as p and
// its args start with p's args.
func (s *Script) HasPrefix(p *Script) bool {
	if s == nil || p == nil {
		return false
	}
	return s.CodeHash == p.CodeHash && s.HashType == p.HashType && bytes.HasPrefix(s.Args, p.Args)
}

// OccupiedBytes is the on-chain footprint of the script.
func (s *Script) OccupiedBytes() uint64 {
	if s == nil {
		return 0
	}
	return 32 + 1 + uint64(len(s.Args))
}

func (s *Script) key() string {
	return s.CodeHash.Hex() + string(s.HashType) + hexutil.Encode(s.Args)
}

type OutPoint struct {
	TxHash common.Hash  `json:"tx_hash"`
	Index  hexutil.Uint `json:"index"`
}

type CellInput struct {
	Since          hexutil.Uint64 `json:"since"`
	PreviousOutput OutPoint       `json:"previous_output"`
}

type CellOutput struct {
	Capacity hexutil.Uint64 `json:"capacity"`
	Lock     *Script        `json:"lock"`
	Type     *Script        `json:"type"`
}

// OccupiedCapacity returns the minimum capacity in shannons for the output
// carrying dataLen bytes.
func (o *CellOutput) OccupiedCapacity(dataLen int) uint64 {
	return (8 + o.Lock.OccupiedBytes() + o.Type.OccupiedBytes() + uint64(dataLen)) * ShannonsPerCKB
}

type DepType string

const (
	DepTypeCode     DepType = "code"
	DepTypeDepGroup DepType = "dep_group"
)

type CellDep struct {
	OutPoint OutPoint `json:"out_point"`
	DepType  DepType  `json:"dep_type"`
}

// Transaction is the JSON shape accepted by nodes and signers.
type Transaction struct {
	Version     hexutil.Uint    `json:"version"`
	CellDeps    []CellDep       `json:"cell_deps"`
	HeaderDeps  []common.Hash   `json:"header_deps"`
	Inputs      []CellInput     `json:"inputs"`
	Outputs     []CellOutput    `json:"outputs"`
	OutputsData []hexutil.Bytes `json:"outputs_data"`
	Witnesses   []hexutil.Bytes `json:"witnesses"`
}

// Cell is a live cell with its location.
type Cell struct {
	OutPoint    OutPoint       `json:"out_point"`
	Output      CellOutput     `json:"output"`
	Data        hexutil.Bytes  `json:"data"`
	BlockNumber hexutil.Uint64 `json:"block_number"`
}
