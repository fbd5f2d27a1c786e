package keys

import (
	"context"
	"fmt"
	"strconv"
)

// BlockProducer is the full key set a block-producing node runs with. All
// fields are paths on the execution host except PoolID.
type BlockProducer struct {
	PoolID string

	ColdVKeyFile    string
	ColdSKeyFile    string
	ColdCounterFile string
	VRFVKeyFile     string
	VRFSKeyFile     string
	KESVKeyFile     string
	KESSKeyFile     string
	OpCertFile      string
}

// GenerateKESKeys generates a fresh KES key pair named after the pool.
func (i *Issuer) GenerateKESKeys(ctx context.Context, poolName string) (vkeyFile, skeyFile string, err error) {
	if err := i.exec.MkdirAll(ctx, i.workDir); err != nil {
		return "", "", err
	}
	vkeyFile = i.workPath(poolName + "_kes.vkey")
	skeyFile = i.workPath(poolName + "_kes.skey")

	_, err = i.run(ctx, "node", "key-gen-KES",
		"--verification-key-file", vkeyFile,
		"--signing-key-file", skeyFile)
	if err != nil {
		return "", "", err
	}
	return vkeyFile, skeyFile, nil
}

// BlockProducerKeys creates everything a new block producer needs: cold keys
// with their issue counter, VRF keys, KES keys and an operational certificate
// for the current KES period. The cold keys should be moved to offline
// storage once the certificate is issued.
func (i *Issuer) BlockProducerKeys(ctx context.Context, genesisFile, poolName string) (*BlockProducer, error) {
	if err := i.exec.MkdirAll(ctx, i.workDir); err != nil {
		return nil, err
	}

	bp := &BlockProducer{
		ColdVKeyFile:    i.workPath(poolName + "_cold.vkey"),
		ColdSKeyFile:    i.workPath(poolName + "_cold.skey"),
		ColdCounterFile: i.workPath(poolName + "_cold.counter"),
		VRFVKeyFile:     i.workPath(poolName + "_vrf.vkey"),
		VRFSKeyFile:     i.workPath(poolName + "_vrf.skey"),
		OpCertFile:      i.workPath(poolName + ".cert"),
	}

	_, err := i.run(ctx, "node", "key-gen",
		"--cold-verification-key-file", bp.ColdVKeyFile,
		"--cold-signing-key-file", bp.ColdSKeyFile,
		"--operational-certificate-issue-counter-file", bp.ColdCounterFile)
	if err != nil {
		return nil, err
	}
	_, err = i.run(ctx, "node", "key-gen-VRF",
		"--verification-key-file", bp.VRFVKeyFile,
		"--signing-key-file", bp.VRFSKeyFile)
	if err != nil {
		return nil, err
	}
	if bp.KESVKeyFile, bp.KESSKeyFile, err = i.GenerateKESKeys(ctx, poolName); err != nil {
		return nil, err
	}

	period, err := i.currentKESPeriod(ctx, genesisFile)
	if err != nil {
		return nil, err
	}
	err = i.issueOpCert(ctx, bp.KESVKeyFile, bp.ColdSKeyFile, bp.ColdCounterFile, period, bp.OpCertFile)
	if err != nil {
		return nil, err
	}

	if bp.PoolID, err = i.PoolID(ctx, bp.ColdVKeyFile); err != nil {
		return nil, err
	}
	err = i.exec.WriteFile(ctx, i.workPath(poolName+".id"), []byte(bp.PoolID+"\n"), 0o644)
	if err != nil {
		return nil, err
	}

	i.log.Info().Str("pool", poolName).Str("pool_id", bp.PoolID).Msg("block producer keys issued")
	return bp, nil
}

// RotateKESKeys generates a fresh KES pair for an existing pool and issues a
// new operational certificate against the pool's cold counter.
func (i *Issuer) RotateKESKeys(ctx context.Context, genesisFile, coldSKeyFile, coldCounterFile, poolName string) (opCertFile string, err error) {
	kesVKey, _, err := i.GenerateKESKeys(ctx, poolName)
	if err != nil {
		return "", err
	}

	period, err := i.currentKESPeriod(ctx, genesisFile)
	if err != nil {
		return "", err
	}
	opCertFile = i.workPath(poolName + ".cert")
	if err := i.issueOpCert(ctx, kesVKey, coldSKeyFile, coldCounterFile, period, opCertFile); err != nil {
		return "", err
	}

	i.log.Info().Str("pool", poolName).Uint64("kes_period", period).Msg("kes keys rotated")
	return opCertFile, nil
}

// currentKESPeriod derives the KES period the chain is in from the tip slot
// and the genesis KES period length.
func (i *Issuer) currentKESPeriod(ctx context.Context, genesisFile string) (uint64, error) {
	genesis, err := i.ledger.GenesisParameters(ctx, genesisFile)
	if err != nil {
		return 0, err
	}
	if genesis.SlotsPerKESPeriod == 0 {
		return 0, fmt.Errorf("%w: slotsPerKESPeriod is zero", ErrInvalidGenesis)
	}
	tip, err := i.ledger.QueryTip(ctx)
	if err != nil {
		return 0, err
	}
	return tip.Slot / genesis.SlotsPerKESPeriod, nil
}

func (i *Issuer) issueOpCert(ctx context.Context, kesVKeyFile, coldSKeyFile, coldCounterFile string, kesPeriod uint64, outFile string) error {
	_, err := i.run(ctx, "node", "issue-op-cert",
		"--kes-verification-key-file", kesVKeyFile,
		"--cold-signing-key-file", coldSKeyFile,
		"--operational-certificate-issue-counter", coldCounterFile,
		"--kes-period", strconv.FormatUint(kesPeriod, 10),
		"--out-file", outFile)
	return err
}
