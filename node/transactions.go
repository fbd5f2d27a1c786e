package node

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// BuildRaw writes a transaction body assembled from p to p.OutFile on the
// node host. The era flag follows the client configuration.
func (c *Client) BuildRaw(ctx context.Context, p BuildRawParams) error {
	args := []string{"transaction", "build-raw", c.era}
	for _, in := range p.Inputs {
		args = append(args, "--tx-in", in.String())
	}
	for _, out := range p.Outputs {
		args = append(args, "--tx-out", fmt.Sprintf("%s+%d", out.Address, out.Amount))
	}
	for _, w := range p.Withdrawals {
		args = append(args, "--withdrawal", fmt.Sprintf("%s+%d", w.StakeAddress, w.Amount))
	}
	for _, cert := range p.Certificates {
		args = append(args, "--certificate-file", cert)
	}
	args = append(args,
		"--invalid-hereafter", strconv.FormatUint(p.TTL, 10),
		"--fee", strconv.FormatUint(p.Fee, 10),
		"--out-file", p.OutFile,
	)

	if _, err := c.run(ctx, args...); err != nil {
		return fmt.Errorf("%w: build-raw: %v", ErrNodeQuery, err)
	}
	return nil
}

// CalculateMinFee returns the minimum fee for the body at bodyFile. The fee
// is a function of the serialized body size plus a per-witness surcharge, so
// the body must be rebuilt before each call whenever its shape changes.
func (c *Client) CalculateMinFee(ctx context.Context, bodyFile string, inCount, outCount, witnessCount, byronWitnessCount int, paramsFile string) (uint64, error) {
	args := []string{
		"transaction", "calculate-min-fee",
		"--tx-body-file", bodyFile,
		"--tx-in-count", strconv.Itoa(inCount),
		"--tx-out-count", strconv.Itoa(outCount),
		"--witness-count", strconv.Itoa(witnessCount),
		"--byron-witness-count", strconv.Itoa(byronWitnessCount),
		"--protocol-params-file", paramsFile,
	}
	args = append(args, c.network...)

	out, err := c.run(ctx, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: calculate-min-fee: %v", ErrNodeQuery, err)
	}

	// Output shape: "<fee> Lovelace".
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: calculate-min-fee: empty response", ErrNodeQuery)
	}
	fee, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: calculate-min-fee: parse %q: %v", ErrNodeQuery, fields[0], err)
	}
	return fee, nil
}

// Sign signs the body at bodyFile with every key in signingKeyFiles, writing
// the signed transaction to outFile. Any reported error text fails the call
// even when an output file was produced.
func (c *Client) Sign(ctx context.Context, bodyFile string, signingKeyFiles []string, outFile string) error {
	args := []string{"transaction", "sign", "--tx-body-file", bodyFile}
	for _, key := range signingKeyFiles {
		args = append(args, "--signing-key-file", key)
	}
	args = append(args, c.network...)
	args = append(args, "--out-file", outFile)

	if _, err := c.run(ctx, args...); err != nil {
		return fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return nil
}

// Witness produces a detached witness for the body at bodyFile.
func (c *Client) Witness(ctx context.Context, bodyFile, signingKeyFile, outFile string) error {
	args := []string{
		"transaction", "witness",
		"--tx-body-file", bodyFile,
		"--signing-key-file", signingKeyFile,
	}
	args = append(args, c.network...)
	args = append(args, "--out-file", outFile)

	if _, err := c.run(ctx, args...); err != nil {
		return fmt.Errorf("%w: witness: %v", ErrSigning, err)
	}
	return nil
}

// Assemble combines a body with detached witnesses into a signed
// transaction.
func (c *Client) Assemble(ctx context.Context, bodyFile string, witnessFiles []string, outFile string) error {
	args := []string{"transaction", "assemble", "--tx-body-file", bodyFile}
	for _, w := range witnessFiles {
		args = append(args, "--witness-file", w)
	}
	args = append(args, "--out-file", outFile)

	if _, err := c.run(ctx, args...); err != nil {
		return fmt.Errorf("%w: assemble: %v", ErrSigning, err)
	}
	return nil
}

// Submit broadcasts the signed transaction at signedFile.
func (c *Client) Submit(ctx context.Context, signedFile string) error {
	args := []string{"transaction", "submit", "--tx-file", signedFile}
	args = append(args, c.network...)

	if _, err := c.run(ctx, args...); err != nil {
		return fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	return nil
}
