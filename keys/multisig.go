package keys

import (
	"context"
	"encoding/json"
	"fmt"
)

// ScriptKind selects how many of a multisig script's keys must sign.
type ScriptKind string

const (
	ScriptAll     ScriptKind = "all"
	ScriptAny     ScriptKind = "any"
	ScriptAtLeast ScriptKind = "atLeast"
)

// MultiSigParams describes a simple multi-signature script document.
type MultiSigParams struct {
	Name      string
	Kind      ScriptKind
	KeyHashes []string

	// Required is the signature quorum, used only with ScriptAtLeast.
	Required int

	// AfterSlot and BeforeSlot bound the slots in which the script
	// validates. Zero leaves the bound off.
	AfterSlot  uint64
	BeforeSlot uint64
}

// scriptTerm is one clause of the simple-script JSON grammar. The same shape
// serves the top-level document and its leaves.
type scriptTerm struct {
	Type     string       `json:"type"`
	KeyHash  string       `json:"keyHash,omitempty"`
	Slot     uint64       `json:"slot,omitempty"`
	Required int          `json:"required,omitempty"`
	Scripts  []scriptTerm `json:"scripts,omitempty"`
}

func (p *MultiSigParams) validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: script name is empty", ErrInvalidCertificateParams)
	}
	if len(p.KeyHashes) == 0 {
		return fmt.Errorf("%w: at least one key hash is required", ErrInvalidCertificateParams)
	}
	switch p.Kind {
	case ScriptAll, ScriptAny:
	case ScriptAtLeast:
		if p.Required < 1 || p.Required >= len(p.KeyHashes) {
			return fmt.Errorf("%w: required signatures %d out of range for %d keys",
				ErrInvalidCertificateParams, p.Required, len(p.KeyHashes))
		}
	default:
		return fmt.Errorf("%w: unknown script kind %q", ErrInvalidCertificateParams, p.Kind)
	}
	return nil
}

// MultiSigScript writes a simple multi-signature script document to the
// working directory and returns its path. The document can be used as a
// payment script or a minting policy.
func (i *Issuer) MultiSigScript(ctx context.Context, p MultiSigParams) (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}

	terms := make([]scriptTerm, 0, len(p.KeyHashes)+2)
	for _, h := range p.KeyHashes {
		terms = append(terms, scriptTerm{Type: "sig", KeyHash: h})
	}
	if p.AfterSlot > 0 {
		terms = append(terms, scriptTerm{Type: "after", Slot: p.AfterSlot})
	}
	if p.BeforeSlot > 0 {
		terms = append(terms, scriptTerm{Type: "before", Slot: p.BeforeSlot})
	}

	doc := scriptTerm{Type: string(p.Kind), Scripts: terms}
	if p.Kind == ScriptAtLeast {
		doc.Required = p.Required
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return "", err
	}

	if err := i.exec.MkdirAll(ctx, i.workDir); err != nil {
		return "", err
	}
	scriptFile := i.workPath(p.Name + ".json")
	if err := i.exec.WriteFile(ctx, scriptFile, data, 0o644); err != nil {
		return "", err
	}
	return scriptFile, nil
}
