package wallet

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Canuckz-NFT/Cardano-Tools/config"
	"github.com/Canuckz-NFT/Cardano-Tools/keys"
	"github.com/Canuckz-NFT/Cardano-Tools/node"
	"github.com/Canuckz-NFT/Cardano-Tools/txlog"
)

const (
	srcAddr     = "addr_test1qpw0djgj0x59ngrjvqthn7enhvruxnsavsw5th63la3mjel3tkc974sr23jmlzgq5zda4gtv8k9cy38756r9y3qgmkqqjz6aa7"
	destAddr    = "addr_test1qrt2f6d9cauxlvmywpeqk9nmm7fvetcp9p2xhyyqxkrzye45c76dk06yapysyk5zdjvnv2rcgafaqmkhqsf6rr6ycymq6gv0fl"
	stakeAddrTn = "stake_test1uzp8yh9jomuradstk95d8wky7pkr3pyx3tvv4naqpz0aw4gd3ezmf"

	hashA = "81acd93b2a1e9ea1ebaf752fa98a246bbf3a7e25f49b3ffbd4c487a2eb4c8f9a"
	hashB = "2e5f0f10ab0b9cbe1cf0f304553a82aa7dc0b1a26b4b795bb1b6cda2f50bbc5d"
)

type signCall struct {
	bodyFile string
	keys     []string
	outFile  string
}

type feeCall struct {
	inCount      int
	outCount     int
	witnessCount int
}

// walletHost scripts the node side of a wallet operation: canned UTXOs,
// rewards, tip and parameters in, every build, sign, submit, cert
// command and file removal recorded on the way out.
type walletHost struct {
	utxos   []*node.UTXO
	rewards uint64
	fee     uint64
	tip     node.Tip
	genesis node.GenesisParameters
	params  node.ProtocolParameters

	removeErr error

	utxoQueries    []string
	genesisQueries []string
	builds         []node.BuildRawParams
	feeCalls       []feeCall
	signCalls      []signCall
	submits        []string
	removed        []string
	cmds           []node.Command
}

func (h *walletHost) ledger() *node.MockLedger {
	return &node.MockLedger{
		QueryTipFn: func(ctx context.Context) (*node.Tip, error) {
			tip := h.tip
			return &tip, nil
		},
		QueryUTXOsFn: func(ctx context.Context, address string, filter node.UTXOFilter) ([]*node.UTXO, error) {
			h.utxoQueries = append(h.utxoQueries, address)
			var out []*node.UTXO
			for _, u := range h.utxos {
				if filter == nil || filter(u) {
					out = append(out, u)
				}
			}
			return out, nil
		},
		QueryStakeInfoFn: func(ctx context.Context, stakeAddr string) ([]*node.StakeInfo, error) {
			return []*node.StakeInfo{{Address: stakeAddr, RewardAccountBalance: h.rewards}}, nil
		},
		QueryProtocolParametersFn: func(ctx context.Context, outFile string) (*node.ProtocolParameters, error) {
			p := h.params
			p.File = outFile
			return &p, nil
		},
		GenesisParametersFn: func(ctx context.Context, genesisFile string) (*node.GenesisParameters, error) {
			h.genesisQueries = append(h.genesisQueries, genesisFile)
			g := h.genesis
			return &g, nil
		},
		BuildRawFn: func(ctx context.Context, p node.BuildRawParams) error {
			h.builds = append(h.builds, p)
			return nil
		},
		CalculateMinFeeFn: func(ctx context.Context, bodyFile string, inCount, outCount, witnessCount, byronWitnessCount int, paramsFile string) (uint64, error) {
			h.feeCalls = append(h.feeCalls, feeCall{inCount, outCount, witnessCount})
			return h.fee, nil
		},
		SignFn: func(ctx context.Context, bodyFile string, signingKeyFiles []string, outFile string) error {
			h.signCalls = append(h.signCalls, signCall{bodyFile, signingKeyFiles, outFile})
			return nil
		},
		SubmitFn: func(ctx context.Context, signedFile string) error {
			h.submits = append(h.submits, signedFile)
			return nil
		},
	}
}

func (h *walletHost) exec() *node.MockExecutor {
	return &node.MockExecutor{
		RunFn: func(ctx context.Context, cmd node.Command) (string, string, error) {
			h.cmds = append(h.cmds, cmd)
			return "", "", nil
		},
		RemoveFileFn: func(ctx context.Context, path string) error {
			h.removed = append(h.removed, path)
			return h.removeErr
		},
		MkdirAllFn: func(ctx context.Context, path string) error { return nil },
	}
}

func walletConfig() config.Config {
	return config.Config{
		CLIPath:      "cardano-cli",
		SocketPath:   "/run/cardano/node.socket",
		WorkingDir:   "/work",
		Network:      "testnet",
		TestnetMagic: 42,
		Era:          "mary",
		TTLBuffer:    1000,
	}
}

func newWalletHost() *walletHost {
	return &walletHost{
		fee: 200_000,
		tip: node.Tip{Slot: 41_000_000, Block: 5_100_000, Epoch: 255},
		genesis: node.GenesisParameters{
			SlotsPerKESPeriod: 3600,
			EpochLength:       432_000,
			PoolDeposit:       500_000_000,
		},
		params: node.ProtocolParameters{
			MinUTxOValue:        1_000_000,
			StakeAddressDeposit: 2_000_000,
			EMax:                18,
		},
	}
}

func newTestWallet(t *testing.T, h *walletHost, journal *txlog.Journal) *Wallet {
	t.Helper()
	cfg := walletConfig()
	ledger := h.ledger()
	exec := h.exec()
	issuer, err := keys.NewIssuer(cfg, ledger, exec, zerolog.Nop())
	require.NoError(t, err)
	w, err := New(cfg, ledger, exec, issuer, journal, zerolog.Nop())
	require.NoError(t, err)
	return w
}

func lovelaceUTXO(hash string, ix uint32, amount uint64) *node.UTXO {
	return &node.UTXO{
		TxHash: hash,
		TxIx:   ix,
		Value:  map[string]uint64{node.AssetLovelace: amount},
	}
}

func sendParams() SendPaymentParams {
	return SendPaymentParams{
		FromAddr:       srcAddr,
		ToAddr:         destAddr,
		AmountLovelace: 3_000_000,
		PaymentKeyFile: "/keys/payment.skey",
		Cleanup:        true,
	}
}

func TestSendPayment_SubmitsAndCleansUp(t *testing.T) {
	h := newWalletHost()
	h.utxos = []*node.UTXO{lovelaceUTXO(hashA, 0, 10_000_000)}
	w := newTestWallet(t, h, nil)

	res, err := w.SendPayment(context.Background(), sendParams())
	require.NoError(t, err)

	assert.Equal(t, StateSubmitted, res.State)
	assert.Equal(t, uint64(200_000), res.Fee)

	// One estimation draft plus the final body, named tx_<stamp>.
	require.Len(t, h.builds, 2)
	assert.True(t, strings.HasPrefix(h.builds[0].OutFile, "/work/tx_"))
	assert.True(t, strings.HasSuffix(h.builds[0].OutFile, ".draft"))

	final := h.builds[1]
	assert.Equal(t, final.OutFile, res.TxFile)
	assert.True(t, strings.HasSuffix(final.OutFile, ".raw"))
	require.Len(t, final.Outputs, 2)
	assert.Equal(t, node.TxOut{Address: srcAddr, Amount: 6_800_000}, final.Outputs[0])
	assert.Equal(t, node.TxOut{Address: destAddr, Amount: 3_000_000}, final.Outputs[1])
	assert.Equal(t, uint64(200_000), final.Fee)
	assert.Equal(t, uint64(41_001_000), final.TTL)

	// Signed with the payment key only, then broadcast.
	require.Len(t, h.signCalls, 1)
	assert.Equal(t, final.OutFile, h.signCalls[0].bodyFile)
	assert.Equal(t, []string{"/keys/payment.skey"}, h.signCalls[0].keys)
	assert.Equal(t, res.SignedFile, h.signCalls[0].outFile)
	assert.Equal(t, []string{res.SignedFile}, h.submits)
	require.Len(t, h.feeCalls, 1)
	assert.Equal(t, 1, h.feeCalls[0].witnessCount)

	// Draft, body and the broadcast signed file are all removed.
	assert.Equal(t, []string{h.builds[0].OutFile, res.TxFile, res.SignedFile}, h.removed)
}

func TestSendPayment_OfflineNeverSubmits(t *testing.T) {
	h := newWalletHost()
	h.utxos = []*node.UTXO{lovelaceUTXO(hashA, 0, 10_000_000)}
	w := newTestWallet(t, h, nil)

	p := sendParams()
	p.Offline = true
	res, err := w.SendPayment(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, StatePersistedOffline, res.State)
	assert.Empty(t, h.submits)
	require.Len(t, h.signCalls, 1)

	// The signed artifact is the deliverable; only draft and body go.
	assert.Equal(t, []string{h.builds[0].OutFile, res.TxFile}, h.removed)
	assert.True(t, strings.HasSuffix(res.SignedFile, ".signed"))
}

func TestSendPayment_CleanupDisabledKeepsFiles(t *testing.T) {
	h := newWalletHost()
	h.utxos = []*node.UTXO{lovelaceUTXO(hashA, 0, 10_000_000)}
	w := newTestWallet(t, h, nil)

	p := sendParams()
	p.Cleanup = false
	_, err := w.SendPayment(context.Background(), p)
	require.NoError(t, err)
	assert.Empty(t, h.removed)
}

func TestSendPayment_CleanupFailureKeepsResult(t *testing.T) {
	h := newWalletHost()
	h.utxos = []*node.UTXO{lovelaceUTXO(hashA, 0, 10_000_000)}
	h.removeErr = errors.New("permission denied")
	w := newTestWallet(t, h, nil)

	res, err := w.SendPayment(context.Background(), sendParams())
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, res.State)
	assert.Len(t, h.removed, 3, "every removal is still attempted")
}

func TestSendPayment_InvalidParams(t *testing.T) {
	w := newTestWallet(t, newWalletHost(), nil)

	cases := []struct {
		name   string
		mutate func(*SendPaymentParams)
	}{
		{"no source", func(p *SendPaymentParams) { p.FromAddr = "" }},
		{"no destination", func(p *SendPaymentParams) { p.ToAddr = "" }},
		{"zero amount", func(p *SendPaymentParams) { p.AmountLovelace = 0 }},
		{"no signing key", func(p *SendPaymentParams) { p.PaymentKeyFile = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := sendParams()
			tc.mutate(&p)
			_, err := w.SendPayment(context.Background(), p)
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}

func TestSendPayment_JournalRecordsOutcome(t *testing.T) {
	journal, err := txlog.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer journal.Close()

	h := newWalletHost()
	h.utxos = []*node.UTXO{lovelaceUTXO(hashA, 0, 10_000_000)}
	w := newTestWallet(t, h, journal)

	res, err := w.SendPayment(context.Background(), sendParams())
	require.NoError(t, err)

	recs, err := journal.List()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "send", recs[0].Op)
	assert.Equal(t, StateSubmitted, recs[0].State)
	assert.Equal(t, res.TxFile, recs[0].TxFile)
	assert.Equal(t, res.SignedFile, recs[0].SignedFile)
	assert.Equal(t, uint64(200_000), recs[0].Fee)
}

func TestSendPayment_AssemblyFailurePassesThrough(t *testing.T) {
	h := newWalletHost()
	// No UTXOs at all: the assembler reports the empty account and the
	// lifecycle never reaches signing.
	w := newTestWallet(t, h, nil)

	_, err := w.SendPayment(context.Background(), sendParams())
	require.Error(t, err)
	assert.Empty(t, h.signCalls)
	assert.Empty(t, h.submits)
	assert.Empty(t, h.removed)
}

func TestWallet_Balance(t *testing.T) {
	h := newWalletHost()
	h.utxos = []*node.UTXO{
		lovelaceUTXO(hashA, 0, 2_000_000),
		lovelaceUTXO(hashA, 1, 3_500_000),
		// Token-carrying outputs still count toward the lovelace total.
		{TxHash: hashB, TxIx: 0, Value: map[string]uint64{
			node.AssetLovelace: 1_400_000,
			"pid.SpaceCoin":    77,
		}},
	}
	w := newTestWallet(t, h, nil)

	total, err := w.Balance(context.Background(), srcAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(6_900_000), total)
	assert.Equal(t, []string{srcAddr}, h.utxoQueries)
}

func TestWallet_RewardsBalance(t *testing.T) {
	h := newWalletHost()
	h.rewards = 1_234_567
	w := newTestWallet(t, h, nil)

	rewards, err := w.RewardsBalance(context.Background(), stakeAddrTn)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_234_567), rewards)
}
