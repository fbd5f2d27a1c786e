package keys

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Canuckz-NFT/Cardano-Tools/config"
	"github.com/Canuckz-NFT/Cardano-Tools/node"
)

// fakeHost records every command and models the execution host's filesystem
// in a map. Canned stdout is selected by argument prefix. Commands that take
// --out-file leave an empty placeholder behind, like the real CLI leaves a
// file, unless the test pre-seeded content for the path.
type fakeHost struct {
	cmds      []node.Command
	stdout    map[string]string
	files     map[string][]byte
	downloads map[string]string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		stdout:    map[string]string{},
		files:     map[string][]byte{},
		downloads: map[string]string{},
	}
}

func (h *fakeHost) exec() *node.MockExecutor {
	return &node.MockExecutor{
		RunFn: func(_ context.Context, cmd node.Command) (string, string, error) {
			h.cmds = append(h.cmds, cmd)
			for i, a := range cmd.Args {
				if a == "--out-file" && i+1 < len(cmd.Args) {
					if _, ok := h.files[cmd.Args[i+1]]; !ok {
						h.files[cmd.Args[i+1]] = []byte{}
					}
				}
			}
			joined := strings.Join(cmd.Args, " ")
			for prefix, out := range h.stdout {
				if strings.HasPrefix(joined, prefix) {
					return out, "", nil
				}
			}
			return "", "", nil
		},
		ReadFileFn: func(_ context.Context, path string) ([]byte, error) {
			data, ok := h.files[path]
			if !ok {
				return nil, errors.New("read " + path + ": no such file")
			}
			return data, nil
		},
		WriteFileFn: func(_ context.Context, path string, data []byte, _ fs.FileMode) error {
			h.files[path] = data
			return nil
		},
		RemoveFileFn: func(_ context.Context, path string) error {
			delete(h.files, path)
			return nil
		},
		MkdirAllFn: func(context.Context, string) error { return nil },
		DownloadFn: func(_ context.Context, url, path string) error {
			h.downloads[url] = path
			h.files[path] = []byte(`{"name":"downloaded"}`)
			return nil
		},
	}
}

// argLines flattens the recorded commands for sequence assertions.
func (h *fakeHost) argLines() []string {
	lines := make([]string, 0, len(h.cmds))
	for _, c := range h.cmds {
		lines = append(lines, strings.Join(c.Args, " "))
	}
	return lines
}

func issuerConfig() config.Config {
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

func newTestIssuer(t *testing.T, h *fakeHost, ledger *node.MockLedger) *Issuer {
	t.Helper()
	if ledger == nil {
		ledger = &node.MockLedger{}
	}
	iss, err := NewIssuer(issuerConfig(), ledger, h.exec(), zerolog.Nop())
	require.NoError(t, err)
	return iss
}

func TestNewIssuer_InvalidConfig(t *testing.T) {
	cfg := issuerConfig()
	cfg.Network = "devnet"

	_, err := NewIssuer(cfg, &node.MockLedger{}, newFakeHost().exec(), zerolog.Nop())
	assert.ErrorIs(t, err, config.ErrInvalidNetwork)
}

func TestNewAddress(t *testing.T) {
	h := newFakeHost()
	h.files["/work/alice.addr"] = []byte("addr_test1qp0al5v8mvwv9mzn77ls0tev3t8\n")
	h.files["/work/alice_stake.addr"] = []byte("stake_test1upyz3fsc8wz6pt4dcp2m9qz5\n")

	addr, err := newTestIssuer(t, h, nil).NewAddress(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, "addr_test1qp0al5v8mvwv9mzn77ls0tev3t8", addr.PaymentAddr)
	assert.Equal(t, "stake_test1upyz3fsc8wz6pt4dcp2m9qz5", addr.StakeAddr)
	assert.Equal(t, "/work/alice.vkey", addr.PaymentVKeyFile)
	assert.Equal(t, "/work/alice.skey", addr.PaymentSKeyFile)
	assert.Equal(t, "/work/alice_stake.vkey", addr.StakeVKeyFile)
	assert.Equal(t, "/work/alice_stake.skey", addr.StakeSKeyFile)

	lines := h.argLines()
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "address key-gen")
	assert.Contains(t, lines[1], "stake-address key-gen")
	assert.Contains(t, lines[2], "address build")
	assert.Contains(t, lines[2], "--testnet-magic 42")
	assert.Contains(t, lines[3], "stake-address build")
	assert.Contains(t, lines[3], "--testnet-magic 42")
}

func TestNewAddress_EmptyName(t *testing.T) {
	_, err := newTestIssuer(t, newFakeHost(), nil).NewAddress(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidCertificateParams)
}

func TestKeyHash(t *testing.T) {
	h := newFakeHost()
	h.stdout["address key-hash"] = "b5f82c2b4c1f3d8a9e7b6a5c4d3e2f1a0b9c8d7e6f5a4b3c2d1e0f9a\n"

	hash, err := newTestIssuer(t, h, nil).KeyHash(context.Background(), "/work/alice.vkey")
	require.NoError(t, err)
	assert.Equal(t, "b5f82c2b4c1f3d8a9e7b6a5c4d3e2f1a0b9c8d7e6f5a4b3c2d1e0f9a", hash)

	require.Len(t, h.cmds, 1)
	assert.Contains(t, h.argLines()[0], "--payment-verification-key-file /work/alice.vkey")
}

func TestPoolID(t *testing.T) {
	h := newFakeHost()
	h.stdout["stake-pool id"] = "pool1hxqz2w9kcu3kvq5p8j6tghnm0vdl4xk8sr9u7a2fenc5jmv3y4d\n"

	id, err := newTestIssuer(t, h, nil).PoolID(context.Background(), "/work/pool_cold.vkey")
	require.NoError(t, err)
	assert.Equal(t, "pool1hxqz2w9kcu3kvq5p8j6tghnm0vdl4xk8sr9u7a2fenc5jmv3y4d", id)
	assert.Contains(t, h.argLines()[0], "--cold-verification-key-file /work/pool_cold.vkey")
}

func TestIssuer_StderrIsFailure(t *testing.T) {
	h := newFakeHost()
	exec := h.exec()
	exec.RunFn = func(_ context.Context, cmd node.Command) (string, string, error) {
		return "", "option --payment-verification-key-file: unrecognized\n", nil
	}
	iss, err := NewIssuer(issuerConfig(), &node.MockLedger{}, exec, zerolog.Nop())
	require.NoError(t, err)

	_, err = iss.KeyHash(context.Background(), "/work/alice.vkey")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized")
}
