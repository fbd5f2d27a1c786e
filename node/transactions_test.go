package node

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// argString flattens a command's arguments for substring assertions.
func argString(cmd Command) string { return strings.Join(cmd.Args, " ") }

// ---------------------------------------------------------------------------
// BuildRaw
// ---------------------------------------------------------------------------

func TestBuildRawArguments(t *testing.T) {
	var got Command
	client := newTestClient(t, runOnly(func(cmd Command) (string, string, error) {
		got = cmd
		return "", "", nil
	}))

	err := client.BuildRaw(context.Background(), BuildRawParams{
		Inputs: []TxIn{
			{TxHash: "aa11", TxIx: 0},
			{TxHash: "bb22", TxIx: 3},
		},
		Outputs: []TxOut{
			{Address: "addr_test1change", Amount: 2000000},
			{Address: "addr_test1dest", Amount: 5000000},
		},
		Certificates: []string{"/work/stake.cert"},
		Withdrawals:  []Withdrawal{{StakeAddress: "stake_test1abc", Amount: 420}},
		TTL:          31103873,
		Fee:          171000,
		OutFile:      "/work/tx.raw",
	})
	require.NoError(t, err)

	args := argString(got)
	assert.Contains(t, args, "transaction build-raw --mary-era")
	assert.Contains(t, args, "--tx-in aa11#0")
	assert.Contains(t, args, "--tx-in bb22#3")
	assert.Contains(t, args, "--tx-out addr_test1change+2000000")
	assert.Contains(t, args, "--tx-out addr_test1dest+5000000")
	assert.Contains(t, args, "--certificate-file /work/stake.cert")
	assert.Contains(t, args, "--withdrawal stake_test1abc+420")
	assert.Contains(t, args, "--invalid-hereafter 31103873")
	assert.Contains(t, args, "--fee 171000")
	assert.Contains(t, args, "--out-file /work/tx.raw")

	// Inputs come before outputs, outputs before the trailing fee block.
	assert.Less(t, strings.Index(args, "--tx-in"), strings.Index(args, "--tx-out"))
	assert.Less(t, strings.Index(args, "--tx-out"), strings.Index(args, "--fee"))
}

func TestBuildRawZeroDraft(t *testing.T) {
	// Fee-estimation drafts carry zero fee and zero TTL.
	var got Command
	client := newTestClient(t, runOnly(func(cmd Command) (string, string, error) {
		got = cmd
		return "", "", nil
	}))

	err := client.BuildRaw(context.Background(), BuildRawParams{
		Inputs:  []TxIn{{TxHash: "aa11", TxIx: 0}},
		Outputs: []TxOut{{Address: "addr_test1change", Amount: 0}},
		OutFile: "/work/tx.draft",
	})
	require.NoError(t, err)

	args := argString(got)
	assert.Contains(t, args, "--invalid-hereafter 0")
	assert.Contains(t, args, "--fee 0")
	assert.Contains(t, args, "--tx-out addr_test1change+0")
}

func TestBuildRawFailure(t *testing.T) {
	client := newTestClient(t, runOnly(func(Command) (string, string, error) {
		return "", "option --tx-in: cannot parse", errors.New("exit status 1")
	}))

	err := client.BuildRaw(context.Background(), BuildRawParams{OutFile: "/work/tx.raw"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNodeQuery)
}

// ---------------------------------------------------------------------------
// CalculateMinFee
// ---------------------------------------------------------------------------

func TestCalculateMinFee(t *testing.T) {
	var got Command
	client := newTestClient(t, runOnly(func(cmd Command) (string, string, error) {
		got = cmd
		return "178393 Lovelace\n", "", nil
	}))

	fee, err := client.CalculateMinFee(context.Background(), "/work/tx.draft", 2, 3, 1, 0, "/work/params.json")
	require.NoError(t, err)
	assert.Equal(t, uint64(178393), fee)

	args := argString(got)
	assert.Contains(t, args, "--tx-body-file /work/tx.draft")
	assert.Contains(t, args, "--tx-in-count 2")
	assert.Contains(t, args, "--tx-out-count 3")
	assert.Contains(t, args, "--witness-count 1")
	assert.Contains(t, args, "--byron-witness-count 0")
	assert.Contains(t, args, "--protocol-params-file /work/params.json")
	assert.Contains(t, args, "--testnet-magic 42")
}

func TestCalculateMinFeeBadOutput(t *testing.T) {
	tests := []struct {
		name string
		out  string
	}{
		{"empty", ""},
		{"not_a_number", "Lovelace 123"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, runOnly(func(Command) (string, string, error) {
				return tc.out, "", nil
			}))

			_, err := client.CalculateMinFee(context.Background(), "/work/tx.draft", 1, 1, 1, 0, "/work/params.json")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNodeQuery)
		})
	}
}

// ---------------------------------------------------------------------------
// Sign / Witness / Assemble / Submit
// ---------------------------------------------------------------------------

func TestSign(t *testing.T) {
	var got Command
	client := newTestClient(t, runOnly(func(cmd Command) (string, string, error) {
		got = cmd
		return "", "", nil
	}))

	err := client.Sign(context.Background(), "/work/tx.raw",
		[]string{"/keys/payment.skey", "/keys/stake.skey"}, "/work/tx.signed")
	require.NoError(t, err)

	args := argString(got)
	assert.Contains(t, args, "transaction sign")
	assert.Contains(t, args, "--tx-body-file /work/tx.raw")
	assert.Contains(t, args, "--signing-key-file /keys/payment.skey")
	assert.Contains(t, args, "--signing-key-file /keys/stake.skey")
	assert.Contains(t, args, "--out-file /work/tx.signed")
}

func TestSignStderrIsFailure(t *testing.T) {
	client := newTestClient(t, runOnly(func(Command) (string, string, error) {
		// Output file may exist; the populated error channel still fails
		// the call.
		return "", "TextEnvelope decode error", nil
	}))

	err := client.Sign(context.Background(), "/work/tx.raw", []string{"/keys/p.skey"}, "/work/tx.signed")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSigning)
	assert.Contains(t, err.Error(), "TextEnvelope")
}

func TestWitnessAndAssemble(t *testing.T) {
	var commands []string
	client := newTestClient(t, runOnly(func(cmd Command) (string, string, error) {
		commands = append(commands, argString(cmd))
		return "", "", nil
	}))

	require.NoError(t, client.Witness(context.Background(), "/work/tx.raw", "/keys/owner1.skey", "/work/owner1.witness"))
	require.NoError(t, client.Assemble(context.Background(), "/work/tx.raw",
		[]string{"/work/owner1.witness", "/work/owner2.witness"}, "/work/tx.signed"))

	require.Len(t, commands, 2)
	assert.Contains(t, commands[0], "transaction witness")
	assert.Contains(t, commands[0], "--signing-key-file /keys/owner1.skey")
	assert.Contains(t, commands[1], "transaction assemble")
	assert.Contains(t, commands[1], "--witness-file /work/owner1.witness")
	assert.Contains(t, commands[1], "--witness-file /work/owner2.witness")
}

func TestSubmit(t *testing.T) {
	var got Command
	client := newTestClient(t, runOnly(func(cmd Command) (string, string, error) {
		got = cmd
		return "Transaction successfully submitted.", "", nil
	}))

	err := client.Submit(context.Background(), "/work/tx.signed")
	require.NoError(t, err)
	assert.Contains(t, argString(got), "transaction submit --tx-file /work/tx.signed")
}

func TestSubmitRejected(t *testing.T) {
	client := newTestClient(t, runOnly(func(Command) (string, string, error) {
		return "", "ApplyTxError [UtxowFailure (ValueNotConservedUTxO)]", errors.New("exit status 1")
	}))

	err := client.Submit(context.Background(), "/work/tx.signed")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmission)
	assert.Contains(t, err.Error(), "ValueNotConserved")
}

func TestSubmitExitErrorWithoutStderr(t *testing.T) {
	client := newTestClient(t, runOnly(func(Command) (string, string, error) {
		return "", "", fmt.Errorf("exit status 1")
	}))

	err := client.Submit(context.Background(), "/work/tx.signed")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmission)
}
