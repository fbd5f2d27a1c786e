package node

import (
	"context"
	"fmt"
)

// AssetLovelace is the valueMap key of the base currency. Every UTXO carries
// this entry; any other key is a native asset attached to the output.
const AssetLovelace = "lovelace"

// LedgerService is the primary interface for interacting with the Cardano
// node. The transaction assembler and the wallet operations consume it; the
// Client implements it over cardano-cli.
type LedgerService interface {
	// QueryTip returns the current chain tip.
	QueryTip(ctx context.Context) (*Tip, error)

	// QueryUTXOs returns the unspent outputs at address, newest query
	// order, optionally narrowed by filter (nil keeps everything).
	QueryUTXOs(ctx context.Context, address string, filter UTXOFilter) ([]*UTXO, error)

	// QueryStakeInfo returns registration, delegation and reward state for
	// a stake address.
	QueryStakeInfo(ctx context.Context, stakeAddr string) ([]*StakeInfo, error)

	// QueryProtocolParameters snapshots the current protocol parameters
	// into outFile on the node host and returns the parsed values.
	QueryProtocolParameters(ctx context.Context, outFile string) (*ProtocolParameters, error)

	// GenesisParameters reads the genesis document from the node host.
	GenesisParameters(ctx context.Context, genesisFile string) (*GenesisParameters, error)

	// BuildRaw writes a transaction body assembled from p.
	BuildRaw(ctx context.Context, p BuildRawParams) error

	// CalculateMinFee returns the minimum fee for the body at bodyFile
	// given its input, output and witness counts.
	CalculateMinFee(ctx context.Context, bodyFile string, inCount, outCount, witnessCount, byronWitnessCount int, paramsFile string) (uint64, error)

	// Sign signs the body at bodyFile with the given signing keys.
	Sign(ctx context.Context, bodyFile string, signingKeyFiles []string, outFile string) error

	// Witness produces a detached witness for the body at bodyFile.
	Witness(ctx context.Context, bodyFile, signingKeyFile, outFile string) error

	// Assemble combines a body with detached witnesses into a signed
	// transaction.
	Assemble(ctx context.Context, bodyFile string, witnessFiles []string, outFile string) error

	// Submit broadcasts a signed transaction.
	Submit(ctx context.Context, signedFile string) error
}

// UTXO is one unspent transaction output. Value always contains the
// AssetLovelace entry; additional entries are native assets.
type UTXO struct {
	TxHash string            `json:"tx_hash"`
	TxIx   uint32            `json:"tx_ix"`
	Value  map[string]uint64 `json:"value"`
}

// Amount returns the lovelace carried by the output.
func (u *UTXO) Amount() uint64 { return u.Value[AssetLovelace] }

// TxIn returns the reference to this output as a transaction input.
func (u *UTXO) TxIn() TxIn { return TxIn{TxHash: u.TxHash, TxIx: u.TxIx} }

// UTXOFilter narrows a UTXO query result. A nil filter keeps everything.
type UTXOFilter func(*UTXO) bool

// LovelaceOnly keeps outputs that carry no native assets. Selection uses it
// so change never has to return tokens to the source address.
func LovelaceOnly(u *UTXO) bool { return len(u.Value) == 1 }

// HasAsset keeps outputs that carry the given asset.
func HasAsset(assetID string) UTXOFilter {
	return func(u *UTXO) bool {
		_, ok := u.Value[assetID]
		return ok
	}
}

// Tip is the node's view of the end of the chain.
type Tip struct {
	Slot  uint64 `json:"slot"`
	Block uint64 `json:"block"`
	Epoch uint64 `json:"epoch"`
}

// StakeInfo is one row of a stake-address-info query.
type StakeInfo struct {
	Address              string `json:"address"`
	RewardAccountBalance uint64 `json:"rewardAccountBalance"`
	Delegation           string `json:"delegation"`
}

// ProtocolParameters is the immutable per-operation snapshot of the network
// parameters the assembler needs. File is the on-host path of the snapshot
// document, handed back to calculate-min-fee.
type ProtocolParameters struct {
	MinUTxOValue        uint64 `json:"minUTxOValue"`
	StakeAddressDeposit uint64 `json:"stakeAddressDeposit"`
	PoolDeposit         uint64 `json:"poolDeposit"`
	EMax                uint64 `json:"eMax"`
	File                string `json:"-"`
}

// GenesisParameters are the chain constants read from the genesis document.
type GenesisParameters struct {
	SlotsPerKESPeriod uint64
	EpochLength       uint64
	PoolDeposit       uint64
}

// TxIn references an output being spent.
type TxIn struct {
	TxHash string
	TxIx   uint32
}

// String renders the reference in the form build-raw expects.
func (in TxIn) String() string { return fmt.Sprintf("%s#%d", in.TxHash, in.TxIx) }

// TxOut pays Amount lovelace to Address.
type TxOut struct {
	Address string
	Amount  uint64
}

// Withdrawal drains Amount lovelace from a reward account.
type Withdrawal struct {
	StakeAddress string
	Amount       uint64
}

// BuildRawParams describes one build-raw invocation.
type BuildRawParams struct {
	Inputs       []TxIn
	Outputs      []TxOut
	Certificates []string
	Withdrawals  []Withdrawal
	TTL          uint64
	Fee          uint64
	OutFile      string
}
