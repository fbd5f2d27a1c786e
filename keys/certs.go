package keys

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

// certTimestamp names certificate files so re-registrations never clobber
// earlier ones.
func certTimestamp() string {
	return time.Now().Format("2006-01-02_15h04m05s")
}

// StakeRegistrationCert writes a stake address registration certificate.
func (i *Issuer) StakeRegistrationCert(ctx context.Context, stakeVKeyFile, outFile string) error {
	_, err := i.run(ctx, "stake-address", "registration-certificate",
		"--stake-verification-key-file", stakeVKeyFile,
		"--out-file", outFile)
	return err
}

// RelayKind selects which relay flag family a pool relay is announced with.
type RelayKind string

const (
	// RelayIPv4 announces a numeric IPv4 address and port.
	RelayIPv4 RelayKind = "ipv4"
	// RelayIPv6 announces a numeric IPv6 address and port.
	RelayIPv6 RelayKind = "ipv6"
	// RelayDNS announces a DNS name resolving to A/AAAA records, with a port.
	RelayDNS RelayKind = "dns"
	// RelaySRV announces a DNS SRV name; ports come from the SRV records.
	RelaySRV RelayKind = "srv"
)

// Relay is one relay entry in a pool registration.
type Relay struct {
	Kind RelayKind
	Host string
	Port uint16
}

func (r Relay) args() ([]string, error) {
	if r.Host == "" {
		return nil, fmt.Errorf("%w: relay host is empty", ErrInvalidCertificateParams)
	}
	port := strconv.Itoa(int(r.Port))
	switch r.Kind {
	case RelayIPv4:
		return []string{"--pool-relay-ipv4", r.Host, "--pool-relay-port", port}, nil
	case RelayIPv6:
		return []string{"--pool-relay-ipv6", r.Host, "--pool-relay-port", port}, nil
	case RelayDNS:
		return []string{"--single-host-pool-relay", r.Host, "--pool-relay-port", port}, nil
	case RelaySRV:
		return []string{"--multi-host-pool-relay", r.Host}, nil
	}
	return nil, fmt.Errorf("%w: unknown relay kind %q", ErrInvalidCertificateParams, r.Kind)
}

func (r Relay) needsPort() bool { return r.Kind != RelaySRV }

// PoolMetadata is the off-chain JSON document a pool publishes.
type PoolMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Ticker      string `json:"ticker"`
	Homepage    string `json:"homepage"`
}

// WriteMetadataFile writes the pool metadata JSON to the working directory
// and returns its path together with the hash the registration certificate
// must embed. The written file is what must be published at the metadata URL.
func (i *Issuer) WriteMetadataFile(ctx context.Context, meta PoolMetadata) (metaFile, hash string, err error) {
	if meta.Ticker == "" {
		return "", "", fmt.Errorf("%w: metadata ticker is empty", ErrInvalidCertificateParams)
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "", "", err
	}
	if err := i.exec.MkdirAll(ctx, i.workDir); err != nil {
		return "", "", err
	}
	metaFile = i.workPath(meta.Ticker + "_metadata.json")
	if err := i.exec.WriteFile(ctx, metaFile, data, 0o644); err != nil {
		return "", "", err
	}
	if hash, err = i.metadataHash(ctx, metaFile); err != nil {
		return "", "", err
	}
	return metaFile, hash, nil
}

func (i *Issuer) metadataHash(ctx context.Context, metaFile string) (string, error) {
	out, err := i.run(ctx, "stake-pool", "metadata-hash",
		"--pool-metadata-file", metaFile)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// PoolCertParams describes a stake pool registration certificate.
type PoolCertParams struct {
	PoolName string

	// Pledge and Cost are in lovelace; Margin is the pool's variable fee
	// as a fraction between 0 and 1.
	Pledge uint64
	Cost   uint64
	Margin float64

	ColdVKeyFile        string
	VRFVKeyFile         string
	RewardStakeVKeyFile string
	OwnerStakeVKeyFiles []string

	Relays []Relay

	// MetadataURL is where the metadata JSON is published. When the hash
	// is left empty the document is downloaded and hashed here.
	MetadataURL  string
	MetadataHash string
}

func (p *PoolCertParams) validate() error {
	if p.PoolName == "" {
		return fmt.Errorf("%w: pool name is empty", ErrInvalidCertificateParams)
	}
	if p.Margin < 0 || p.Margin > 1 {
		return fmt.Errorf("%w: margin %v is not in [0, 1]", ErrInvalidCertificateParams, p.Margin)
	}
	if p.ColdVKeyFile == "" || p.VRFVKeyFile == "" || p.RewardStakeVKeyFile == "" {
		return fmt.Errorf("%w: cold, VRF and reward keys are all required", ErrInvalidCertificateParams)
	}
	if len(p.OwnerStakeVKeyFiles) == 0 {
		return fmt.Errorf("%w: at least one owner stake key is required", ErrInvalidCertificateParams)
	}
	for _, r := range p.Relays {
		if r.needsPort() && r.Port == 0 {
			return fmt.Errorf("%w: relay %s has no port", ErrInvalidCertificateParams, r.Host)
		}
	}
	return nil
}

// StakePoolCert writes a pool registration certificate and returns its path.
func (i *Issuer) StakePoolCert(ctx context.Context, p PoolCertParams) (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}
	if err := i.exec.MkdirAll(ctx, i.workDir); err != nil {
		return "", err
	}

	args := []string{"stake-pool", "registration-certificate",
		"--cold-verification-key-file", p.ColdVKeyFile,
		"--vrf-verification-key-file", p.VRFVKeyFile,
		"--pool-pledge", strconv.FormatUint(p.Pledge, 10),
		"--pool-cost", strconv.FormatUint(p.Cost, 10),
		"--pool-margin", strconv.FormatFloat(p.Margin, 'f', -1, 64),
		"--pool-reward-account-verification-key-file", p.RewardStakeVKeyFile,
	}
	for _, owner := range p.OwnerStakeVKeyFiles {
		args = append(args, "--pool-owner-stake-verification-key-file", owner)
	}
	for _, r := range p.Relays {
		relayArgs, err := r.args()
		if err != nil {
			return "", err
		}
		args = append(args, relayArgs...)
	}
	if p.MetadataURL != "" {
		hash := p.MetadataHash
		if hash == "" {
			var err error
			if hash, err = i.fetchMetadataHash(ctx, p.MetadataURL); err != nil {
				return "", err
			}
		}
		args = append(args, "--metadata-url", p.MetadataURL, "--metadata-hash", hash)
	}

	certFile := i.workPath(p.PoolName + "_registration_" + certTimestamp() + ".cert")
	args = append(args, i.network...)
	args = append(args, "--out-file", certFile)

	if _, err := i.run(ctx, args...); err != nil {
		return "", err
	}
	return certFile, nil
}

// fetchMetadataHash downloads the published metadata document and hashes it,
// for registrations that do not supply the hash up front.
func (i *Issuer) fetchMetadataHash(ctx context.Context, url string) (string, error) {
	metaFile := i.workPath("metadata_download.json")
	if err := i.exec.Download(ctx, url, metaFile); err != nil {
		return "", err
	}
	return i.metadataHash(ctx, metaFile)
}

// DelegationCerts writes one delegation certificate per owner stake key,
// pledging each owner's stake to the pool. The certificates are written next
// to their stake keys.
func (i *Issuer) DelegationCerts(ctx context.Context, ownerStakeVKeyFiles []string, coldVKeyFile string) ([]string, error) {
	if len(ownerStakeVKeyFiles) == 0 {
		return nil, fmt.Errorf("%w: at least one owner stake key is required", ErrInvalidCertificateParams)
	}
	ts := certTimestamp()
	certs := make([]string, 0, len(ownerStakeVKeyFiles))
	for _, vkey := range ownerStakeVKeyFiles {
		stem := strings.TrimSuffix(vkey, path.Ext(vkey))
		certFile := stem + "_delegation_" + ts + ".cert"
		_, err := i.run(ctx, "stake-address", "delegation-certificate",
			"--stake-verification-key-file", vkey,
			"--cold-verification-key-file", coldVKeyFile,
			"--out-file", certFile)
		if err != nil {
			return nil, err
		}
		certs = append(certs, certFile)
	}
	return certs, nil
}

// DeregistrationCert writes a pool retirement certificate effective at the
// given epoch and returns its path.
func (i *Issuer) DeregistrationCert(ctx context.Context, coldVKeyFile string, epoch uint64, poolName string) (string, error) {
	certFile := i.workPath(poolName + ".dereg")
	_, err := i.run(ctx, "stake-pool", "deregistration-certificate",
		"--cold-verification-key-file", coldVKeyFile,
		"--epoch", strconv.FormatUint(epoch, 10),
		"--out-file", certFile)
	if err != nil {
		return "", err
	}
	return certFile, nil
}
