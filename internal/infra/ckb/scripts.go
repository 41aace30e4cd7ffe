package ckb

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vietddude/walletview/internal/core/domain"
)

// ScriptInfo describes a deployed script and the deps needed to run it.
type ScriptInfo struct {
	CodeHash common.Hash
	HashType HashType
	CellDeps []CellDep
}

// Template returns a script with the given args.
func (i ScriptInfo) Template(args []byte) *Script {
	return &Script{CodeHash: i.CodeHash, HashType: i.HashType, Args: args}
}

// Matches reports whether s runs this script code.
func (i ScriptInfo) Matches(s *Script) bool {
	return s != nil && s.CodeHash == i.CodeHash && s.HashType == i.HashType
}

// Scripts is the set of well-known deployments on one network.
type Scripts struct {
	Secp256k1 ScriptInfo
	Multisig  ScriptInfo
	JoyID     ScriptInfo
	XUDT      ScriptInfo
	Spore     ScriptInfo
}

// LockDeps returns the cell deps for a known lock, or nil.
func (s Scripts) LockDeps(lock *Script) []CellDep {
	for _, info := range []ScriptInfo{s.Secp256k1, s.Multisig, s.JoyID} {
		if info.Matches(lock) {
			return info.CellDeps
		}
	}
	return nil
}

func dep(txHash string, index uint, depType DepType) CellDep {
	return CellDep{
		OutPoint: OutPoint{TxHash: common.HexToHash(txHash), Index: hexutil.Uint(index)},
		DepType:  depType,
	}
}

var mainnetScripts = Scripts{
	Secp256k1: ScriptInfo{
		CodeHash: common.HexToHash("0x9bd7e06f3ecf4be0f2fcd2188b23f1b9fcc88e5d4b65a8637b17723bbda3cce8"),
		HashType: HashTypeType,
		CellDeps: []CellDep{dep("0x71a7ba8fc96349fea0ed3a5c47992e3b4084b031a42264a018e0072e8172e46c", 0, DepTypeDepGroup)},
	},
	Multisig: ScriptInfo{
		CodeHash: common.HexToHash("0x5c5069eb0857efc65e1bca0c07df34c31663b3622fd3876c876320fc9634e2a8"),
		HashType: HashTypeType,
		CellDeps: []CellDep{dep("0x71a7ba8fc96349fea0ed3a5c47992e3b4084b031a42264a018e0072e8172e46c", 1, DepTypeDepGroup)},
	},
	JoyID: ScriptInfo{
		CodeHash: common.HexToHash("0xd00c84f0ec8fd441c38bc3f87a371f547190f2fcff88e642bc5bf54b9e318323"),
		HashType: HashTypeType,
		CellDeps: []CellDep{dep("0xf05188e5f3a6767fc4687faf45ba5f1a6e25d3ada6129dae8722cb282f262493", 0, DepTypeDepGroup)},
	},
	XUDT: ScriptInfo{
		CodeHash: common.HexToHash("0x50bd8d6680b8b9cf98b73f3c08faf8b2a21914311954118ad6609be6e78a1b95"),
		HashType: HashTypeData1,
		CellDeps: []CellDep{dep("0xc07844ce21b38e4b071dd0e1ee3b0e27afd8d7532491327f39b786343f558ab7", 0, DepTypeCode)},
	},
	Spore: ScriptInfo{
		CodeHash: common.HexToHash("0x4a4dce1df3dffff7f8b2cd7dff7303df3b6150c9788cb75dcf6747247132b9f5"),
		HashType: HashTypeData1,
		CellDeps: []CellDep{dep("0x96b198fb5ddbd1eed57ed667068f1f1e55d07907b4c0dbd38675a69ea1b69824", 0, DepTypeCode)},
	},
}

var testnetScripts = Scripts{
	Secp256k1: ScriptInfo{
		CodeHash: common.HexToHash("0x9bd7e06f3ecf4be0f2fcd2188b23f1b9fcc88e5d4b65a8637b17723bbda3cce8"),
		HashType: HashTypeType,
		CellDeps: []CellDep{dep("0xf8de3bb47d055cdf460d93a2a6e1b05f7432f9777c8c474abf4eec1d4aee5d37", 0, DepTypeDepGroup)},
	},
	Multisig: ScriptInfo{
		CodeHash: common.HexToHash("0x5c5069eb0857efc65e1bca0c07df34c31663b3622fd3876c876320fc9634e2a8"),
		HashType: HashTypeType,
		CellDeps: []CellDep{dep("0xf8de3bb47d055cdf460d93a2a6e1b05f7432f9777c8c474abf4eec1d4aee5d37", 1, DepTypeDepGroup)},
	},
	JoyID: ScriptInfo{
		CodeHash: common.HexToHash("0xd23761b364210735c19c60561d213fb3beae2fd6172743719eff6920e020baac"),
		HashType: HashTypeType,
		CellDeps: []CellDep{dep("0x4dcf3f3b09efac8995d6cbee87c5345e812d310094651e0c3d9a730f32dc9263", 0, DepTypeDepGroup)},
	},
	XUDT: ScriptInfo{
		CodeHash: common.HexToHash("0x25c29dc317811a6f6f3985a7a9ebc4838bd388d19d0feeecf0bcd60f6c0975bb"),
		HashType: HashTypeType,
		CellDeps: []CellDep{dep("0xbf6fb538763efec2a70a6a3dcb7242787087e1030c4e7d86585bc63a9d337f5f", 0, DepTypeCode)},
	},
	Spore: ScriptInfo{
		CodeHash: common.HexToHash("0x685a60219309029d01310311dba953d67029170ca4848a4ff638e57002130a0d"),
		HashType: HashTypeData1,
		CellDeps: []CellDep{dep("0x5e8d2a517d50fd4bb4d01737a7952a1f1d35c8afc77240695bb569cd7d9d5a1f", 0, DepTypeCode)},
	},
}

// DefaultScripts returns the well-known deployments for network.
func DefaultScripts(network domain.Network) Scripts {
	if network == domain.NetworkTestnet {
		return testnetScripts
	}
	return mainnetScripts
}
