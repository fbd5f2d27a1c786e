package node

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// QueryTip returns the current chain tip.
func (c *Client) QueryTip(ctx context.Context) (*Tip, error) {
	args := append([]string{"query", "tip"}, c.network...)
	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: tip: %v", ErrNodeQuery, err)
	}

	slot := gjson.Get(out, "slot")
	if !slot.Exists() {
		// Older node releases spell the field slotNo.
		slot = gjson.Get(out, "slotNo")
	}
	if !slot.Exists() {
		return nil, fmt.Errorf("%w: tip response carries no slot", ErrNodeQuery)
	}

	return &Tip{
		Slot:  slot.Uint(),
		Block: gjson.Get(out, "block").Uint(),
		Epoch: gjson.Get(out, "epoch").Uint(),
	}, nil
}

// QueryUTXOs returns the unspent outputs at address. The node prints a
// whitespace table (TxHash TxIx Amount, then any number of "+ qty asset"
// groups); rows whose asset groups cannot be parsed are dropped with a
// warning rather than failing the query.
func (c *Client) QueryUTXOs(ctx context.Context, address string, filter UTXOFilter) ([]*UTXO, error) {
	args := append([]string{"query", "utxo", "--address", address}, c.network...)
	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: utxo %s: %v", ErrNodeQuery, address, err)
	}

	utxos, err := c.parseUTXOTable(out)
	if err != nil {
		return nil, fmt.Errorf("%w: utxo %s: %v", ErrNodeQuery, address, err)
	}

	if filter == nil {
		return utxos, nil
	}
	kept := utxos[:0]
	for _, u := range utxos {
		if filter(u) {
			kept = append(kept, u)
		}
	}
	return kept, nil
}

// parseUTXOTable converts the human-readable utxo table into the stable
// schema. The first two lines are headers.
func (c *Client) parseUTXOTable(out string) ([]*UTXO, error) {
	lines := strings.Split(out, "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("table too short (%d lines)", len(lines))
	}

	var utxos []*UTXO
	seen := make(map[TxIn]bool)

	for _, line := range lines[2:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("row %q: expected at least 3 columns", line)
		}

		ix, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("row %q: output index: %v", line, err)
		}
		amount, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %q: amount: %v", line, err)
		}

		u := &UTXO{
			TxHash: fields[0],
			TxIx:   uint32(ix),
			Value:  map[string]uint64{AssetLovelace: amount},
		}

		ref := u.TxIn()
		if seen[ref] {
			return nil, fmt.Errorf("duplicate output reference %s", ref)
		}
		seen[ref] = true

		if ok := parseAssetGroups(u, fields[3:]); !ok {
			c.log.Warn().Stringer("utxo", ref).Msg("skipping output with unparseable asset tokens")
			continue
		}
		utxos = append(utxos, u)
	}
	return utxos, nil
}

// parseAssetGroups folds trailing "+ qty asset" groups into the value map.
// Some node releases print the unit word after the amount; it is consumed
// silently. Returns false when the remainder does not follow the group
// shape, in which case the whole row must be dropped: a partially parsed
// value map would make a token-bearing output look like pure lovelace.
func parseAssetGroups(u *UTXO, rest []string) bool {
	if len(rest) > 0 && rest[0] == AssetLovelace {
		rest = rest[1:]
	}
	for len(rest) > 0 {
		if rest[0] != "+" || len(rest) < 3 {
			return false
		}
		qty, err := strconv.ParseUint(rest[1], 10, 64)
		if err != nil {
			return false
		}
		u.Value[rest[2]] += qty
		rest = rest[3:]
	}
	return true
}

// QueryStakeInfo returns registration, delegation and reward state for a
// stake address. An unregistered address yields an empty slice.
func (c *Client) QueryStakeInfo(ctx context.Context, stakeAddr string) ([]*StakeInfo, error) {
	args := append([]string{"query", "stake-address-info", "--address", stakeAddr}, c.network...)
	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: stake info %s: %v", ErrNodeQuery, stakeAddr, err)
	}

	var info []*StakeInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		return nil, fmt.Errorf("%w: stake info %s: decode: %v", ErrNodeQuery, stakeAddr, err)
	}
	return info, nil
}

// QueryProtocolParameters snapshots the protocol parameters into outFile on
// the node host and returns the parsed values. The snapshot is taken once
// per top-level operation and never refreshed mid-operation.
func (c *Client) QueryProtocolParameters(ctx context.Context, outFile string) (*ProtocolParameters, error) {
	args := append([]string{"query", "protocol-parameters"}, c.network...)
	args = append(args, "--out-file", outFile)
	if _, err := c.run(ctx, args...); err != nil {
		return nil, fmt.Errorf("%w: protocol parameters: %v", ErrNodeQuery, err)
	}

	data, err := c.exec.ReadFile(ctx, outFile)
	if err != nil {
		return nil, fmt.Errorf("%w: protocol parameters: read snapshot: %v", ErrNodeQuery, err)
	}

	var params ProtocolParameters
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("%w: protocol parameters: decode: %v", ErrNodeQuery, err)
	}
	params.File = outFile
	return &params, nil
}

// genesisDoc mirrors the genesis JSON layout; the pool deposit sits inside
// the nested protocolParams object.
type genesisDoc struct {
	SlotsPerKESPeriod uint64 `json:"slotsPerKESPeriod"`
	EpochLength       uint64 `json:"epochLength"`
	ProtocolParams    struct {
		PoolDeposit uint64 `json:"poolDeposit"`
	} `json:"protocolParams"`
}

// GenesisParameters reads the chain constants from the genesis document on
// the node host.
func (c *Client) GenesisParameters(ctx context.Context, genesisFile string) (*GenesisParameters, error) {
	data, err := c.exec.ReadFile(ctx, genesisFile)
	if err != nil {
		return nil, fmt.Errorf("%w: genesis: read %s: %v", ErrNodeQuery, genesisFile, err)
	}

	var doc genesisDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: genesis: decode %s: %v", ErrNodeQuery, genesisFile, err)
	}
	return &GenesisParameters{
		SlotsPerKESPeriod: doc.SlotsPerKESPeriod,
		EpochLength:       doc.EpochLength,
		PoolDeposit:       doc.ProtocolParams.PoolDeposit,
	}, nil
}
