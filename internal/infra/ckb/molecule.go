package ckb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
)

// Serialized sizes of fixed molecule structs.
const (
	cellDepSize   = 37
	cellInputSize = 44
	headerDepSize = 32
)

// DefaultWitnessLockSize is a secp256k1 recoverable signature.
const DefaultWitnessLockSize = 65

// DefaultFeeRate is in shannons per 1000 bytes.
const DefaultFeeRate uint64 = 1000

var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// DecodeUint128LE reads a token amount from the first 16 bytes of cell data.
func DecodeUint128LE(data []byte) (*big.Int, error) {
	if len(data) < 16 {
		return nil, fmt.Errorf("token data too short: %d bytes", len(data))
	}
	be := make([]byte, 16)
	for i := 0; i < 16; i++ {
		be[15-i] = data[i]
	}
	return new(big.Int).SetBytes(be), nil
}

// EncodeUint128LE writes a token amount as 16 little-endian bytes.
func EncodeUint128LE(v *big.Int) ([]byte, error) {
	if v == nil || v.Sign() < 0 || v.Cmp(maxUint128) > 0 {
		return nil, fmt.Errorf("amount out of uint128 range: %v", v)
	}
	be := v.FillBytes(make([]byte, 16))
	le := make([]byte, 16)
	for i := 0; i < 16; i++ {
		le[i] = be[15-i]
	}
	return le, nil
}

func scriptSize(s *Script) int {
	// table header (4 + 3*4) + code_hash + hash_type + args bytes
	return 16 + 32 + 1 + 4 + len(s.Args)
}

func cellOutputSize(o CellOutput) int {
	// table header (4 + 3*4) + capacity + lock + type option
	n := 16 + 8 + scriptSize(o.Lock)
	if o.Type != nil {
		n += scriptSize(o.Type)
	}
	return n
}

func fixvecSize(count, itemSize int) int {
	return 4 + count*itemSize
}

func dynvecSize(items []int) int {
	if len(items) == 0 {
		return 4
	}
	n := 4 + 4*len(items)
	for _, s := range items {
		n += s
	}
	return n
}

func rawTransactionSize(tx *Transaction) int {
	outputs := make([]int, len(tx.Outputs))
	for i, o := range tx.Outputs {
		outputs[i] = cellOutputSize(o)
	}
	data := make([]int, len(tx.OutputsData))
	for i, d := range tx.OutputsData {
		data[i] = 4 + len(d)
	}

	// table header (4 + 6*4) + version
	return 28 + 4 +
		fixvecSize(len(tx.CellDeps), cellDepSize) +
		fixvecSize(len(tx.HeaderDeps), headerDepSize) +
		fixvecSize(len(tx.Inputs), cellInputSize) +
		dynvecSize(outputs) +
		dynvecSize(data)
}

// SerializedSize is the molecule size of the full transaction.
func SerializedSize(tx *Transaction) int {
	witnesses := make([]int, len(tx.Witnesses))
	for i, w := range tx.Witnesses {
		witnesses[i] = 4 + len(w)
	}
	// table header (4 + 2*4) + raw + witnesses
	return 12 + rawTransactionSize(tx) + dynvecSize(witnesses)
}

// CalculateFee returns the fee in shannons for a transaction of size bytes.
// Four extra bytes account for the offset the block adds per transaction.
func CalculateFee(size int, feeRate uint64) uint64 {
	total := uint64(size+4) * feeRate
	fee := total / 1000
	if total%1000 != 0 {
		fee++
	}
	return fee
}

// WitnessArgsPlaceholder serializes a WitnessArgs whose lock field holds
// lockSize zero bytes and whose type fields are empty.
func WitnessArgsPlaceholder(lockSize int) []byte {
	total := 16 + 4 + lockSize
	buf := make([]byte, total)
	binary.LittleEndian.PutUint32(buf[0:], uint32(total))
	binary.LittleEndian.PutUint32(buf[4:], 16)
	binary.LittleEndian.PutUint32(buf[8:], uint32(total))
	binary.LittleEndian.PutUint32(buf[12:], uint32(total))
	binary.LittleEndian.PutUint32(buf[16:], uint32(lockSize))
	return buf
}

var errMolecule = errors.New("malformed molecule data")

// readTable splits a molecule table into raw field slices.
func readTable(data []byte) ([][]byte, error) {
	if len(data) < 4 {
		return nil, errMolecule
	}
	total := int(binary.LittleEndian.Uint32(data))
	if total != len(data) {
		return nil, fmt.Errorf("%w: size %d, have %d bytes", errMolecule, total, len(data))
	}
	if total == 4 {
		return nil, nil
	}
	if total < 8 {
		return nil, errMolecule
	}
	first := int(binary.LittleEndian.Uint32(data[4:]))
	if first%4 != 0 || first < 8 || first > total {
		return nil, errMolecule
	}
	count := first/4 - 1

	offsets := make([]int, count+1)
	for i := 0; i < count; i++ {
		offsets[i] = int(binary.LittleEndian.Uint32(data[4+4*i:]))
	}
	offsets[count] = total

	fields := make([][]byte, count)
	for i := 0; i < count; i++ {
		if offsets[i] > offsets[i+1] || offsets[i+1] > total {
			return nil, errMolecule
		}
		fields[i] = data[offsets[i]:offsets[i+1]]
	}
	return fields, nil
}

func readBytes(field []byte) ([]byte, error) {
	if len(field) < 4 {
		return nil, errMolecule
	}
	n := int(binary.LittleEndian.Uint32(field))
	if n != len(field)-4 {
		return nil, errMolecule
	}
	return field[4:], nil
}

func writeBytes(b []byte) []byte {
	out := make([]byte, 4+len(b))
	binary.LittleEndian.PutUint32(out, uint32(len(b)))
	copy(out[4:], b)
	return out
}

func writeTable(fields ...[]byte) []byte {
	header := 4 + 4*len(fields)
	total := header
	for _, f := range fields {
		total += len(f)
	}
	out := make([]byte, 0, total)
	out = binary.LittleEndian.AppendUint32(out, uint32(total))
	offset := header
	for _, f := range fields {
		out = binary.LittleEndian.AppendUint32(out, uint32(offset))
		offset += len(f)
	}
	for _, f := range fields {
		out = append(out, f...)
	}
	return out
}
