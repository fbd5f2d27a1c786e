package keys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Canuckz-NFT/Cardano-Tools/node"
)

func kesLedger(slot, slotsPerPeriod uint64) *node.MockLedger {
	return &node.MockLedger{
		QueryTipFn: func(context.Context) (*node.Tip, error) {
			return &node.Tip{Slot: slot}, nil
		},
		GenesisParametersFn: func(context.Context, string) (*node.GenesisParameters, error) {
			return &node.GenesisParameters{SlotsPerKESPeriod: slotsPerPeriod, EpochLength: 432_000}, nil
		},
	}
}

func TestGenerateKESKeys(t *testing.T) {
	h := newFakeHost()

	vkey, skey, err := newTestIssuer(t, h, nil).GenerateKESKeys(context.Background(), "pool")
	require.NoError(t, err)
	assert.Equal(t, "/work/pool_kes.vkey", vkey)
	assert.Equal(t, "/work/pool_kes.skey", skey)

	require.Len(t, h.cmds, 1)
	assert.Contains(t, h.argLines()[0], "node key-gen-KES")
}

func TestBlockProducerKeys(t *testing.T) {
	h := newFakeHost()
	h.stdout["stake-pool id"] = "pool1hxqz2w9kcu3kvq5p8j6tghnm0vdl4xk8sr9u7a2fenc5jmv3y4d\n"

	// Slot 7201234 at 3600 slots per period puts the chain in period 2000.
	iss := newTestIssuer(t, h, kesLedger(7_201_234, 3600))
	bp, err := iss.BlockProducerKeys(context.Background(), "/config/genesis.json", "pool")
	require.NoError(t, err)

	assert.Equal(t, "pool1hxqz2w9kcu3kvq5p8j6tghnm0vdl4xk8sr9u7a2fenc5jmv3y4d", bp.PoolID)
	assert.Equal(t, "/work/pool_cold.vkey", bp.ColdVKeyFile)
	assert.Equal(t, "/work/pool_cold.skey", bp.ColdSKeyFile)
	assert.Equal(t, "/work/pool_cold.counter", bp.ColdCounterFile)
	assert.Equal(t, "/work/pool_vrf.vkey", bp.VRFVKeyFile)
	assert.Equal(t, "/work/pool_kes.vkey", bp.KESVKeyFile)
	assert.Equal(t, "/work/pool.cert", bp.OpCertFile)

	lines := h.argLines()
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "node key-gen ")
	assert.Contains(t, lines[0], "--operational-certificate-issue-counter-file /work/pool_cold.counter")
	assert.Contains(t, lines[1], "node key-gen-VRF")
	assert.Contains(t, lines[2], "node key-gen-KES")
	assert.Contains(t, lines[3], "node issue-op-cert")
	assert.Contains(t, lines[3], "--kes-period 2000")
	assert.Contains(t, lines[4], "stake-pool id")

	// The pool ID is kept on disk next to the keys.
	assert.Equal(t, []byte(bp.PoolID+"\n"), h.files["/work/pool.id"])
}

func TestBlockProducerKeys_BadGenesis(t *testing.T) {
	h := newFakeHost()

	iss := newTestIssuer(t, h, kesLedger(7_201_234, 0))
	_, err := iss.BlockProducerKeys(context.Background(), "/config/genesis.json", "pool")
	assert.ErrorIs(t, err, ErrInvalidGenesis)
}

func TestRotateKESKeys(t *testing.T) {
	h := newFakeHost()

	iss := newTestIssuer(t, h, kesLedger(10_800_000, 3600))
	certFile, err := iss.RotateKESKeys(context.Background(),
		"/config/genesis.json", "/cold/pool_cold.skey", "/cold/pool_cold.counter", "pool")
	require.NoError(t, err)
	assert.Equal(t, "/work/pool.cert", certFile)

	lines := h.argLines()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "node key-gen-KES")
	assert.Contains(t, lines[1], "node issue-op-cert")
	assert.Contains(t, lines[1], "--cold-signing-key-file /cold/pool_cold.skey")
	assert.Contains(t, lines[1], "--operational-certificate-issue-counter /cold/pool_cold.counter")
	assert.Contains(t, lines[1], "--kes-period 3000")
}
