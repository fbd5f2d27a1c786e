package keys

import (
	"context"
	"fmt"
	"strings"
)

// ConvertITNKeys converts an Incentivized Testnet key pair into node stake
// keys and returns the stake address rebuilt from them. The converted keys
// are written as name_stake.skey and name_stake.vkey so the rest of the
// tooling can use them like any other stake keys.
//
// The signing key prefix decides the conversion: plain ed25519, extended
// (ed25519e) and BIP32 (ed25519bip32) keys are supported.
func (i *Issuer) ConvertITNKeys(ctx context.Context, itnSKeyFile, itnVKeyFile, name string) (string, error) {
	data, err := i.exec.ReadFile(ctx, itnSKeyFile)
	if err != nil {
		return "", err
	}

	// Longest prefix first: every ITN key starts with "ed25519".
	var convert string
	switch key := string(data); {
	case strings.HasPrefix(key, "ed25519e"):
		convert = "convert-itn-extended-key"
	case strings.HasPrefix(key, "ed25519b"):
		convert = "convert-itn-bip32-key"
	case strings.HasPrefix(key, "ed25519"):
		convert = "convert-itn-key"
	default:
		return "", fmt.Errorf("%w: unrecognized signing key prefix in %s", ErrUnsupportedKeyFormat, itnSKeyFile)
	}

	if err := i.exec.MkdirAll(ctx, i.workDir); err != nil {
		return "", err
	}
	skeyFile := i.workPath(name + "_stake.skey")
	vkeyFile := i.workPath(name + "_stake.vkey")
	addrFile := i.workPath(name + "_stake.addr")

	_, err = i.run(ctx, "key", convert,
		"--itn-signing-key-file", itnSKeyFile,
		"--out-file", skeyFile)
	if err != nil {
		return "", err
	}
	_, err = i.run(ctx, "key", "convert-itn-key",
		"--itn-verification-key-file", itnVKeyFile,
		"--out-file", vkeyFile)
	if err != nil {
		return "", err
	}

	args := []string{"stake-address", "build",
		"--stake-verification-key-file", vkeyFile,
		"--out-file", addrFile}
	if _, err := i.run(ctx, append(args, i.network...)...); err != nil {
		return "", err
	}

	addr, err := i.readText(ctx, addrFile)
	if err != nil {
		return "", err
	}
	i.log.Info().Str("name", name).Str("stake_addr", addr).Msg("itn keys converted")
	return addr, nil
}
