// Package wallet is the transaction lifecycle controller. Each
// operation snapshots the protocol parameters once, assembles a
// balanced body through the tx package, signs it, and either submits it
// to the node or persists the signed artifact for offline submission.
// Intermediate files are removed best-effort on success; removal
// failures are logged and never override the primary result.
package wallet

import (
	"context"
	"path"
	"time"

	"github.com/rs/zerolog"

	"github.com/Canuckz-NFT/Cardano-Tools/config"
	"github.com/Canuckz-NFT/Cardano-Tools/keys"
	"github.com/Canuckz-NFT/Cardano-Tools/node"
	"github.com/Canuckz-NFT/Cardano-Tools/tx"
	"github.com/Canuckz-NFT/Cardano-Tools/txlog"
)

// Wallet drives transactions through the lifecycle. journal may be nil,
// in which case no history is kept.
type Wallet struct {
	ledger    node.LedgerService
	exec      node.Executor
	issuer    *keys.Issuer
	assembler *tx.Assembler
	journal   *txlog.Journal
	workDir   string
	log       zerolog.Logger
}

// New builds a Wallet over an already-connected ledger and executor.
// journal may be nil to disable the transaction history.
func New(cfg config.Config, ledger node.LedgerService, exec node.Executor, issuer *keys.Issuer, journal *txlog.Journal, log zerolog.Logger) (*Wallet, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &Wallet{
		ledger:    ledger,
		exec:      exec,
		issuer:    issuer,
		assembler: tx.NewAssembler(ledger, cfg.TTLBuffer, log),
		journal:   journal,
		workDir:   cfg.WorkingDir,
		log:       log.With().Str("component", "wallet").Logger(),
	}, nil
}

// Result reports where a transaction ended up. TxFile and SignedFile
// name the artifacts that were produced; with cleanup enabled the files
// a terminal state no longer needs have been removed again.
type Result struct {
	State      string
	TxFile     string
	SignedFile string
	Fee        uint64
}

// txName stamps an operation prefix with the wall clock, giving every
// run distinct artifact names.
func txName(prefix string) string {
	return prefix + time.Now().Format("2006-01-02_15h04m05s")
}

// txFiles are the per-transaction artifact paths on the node host.
type txFiles struct {
	draft  string
	body   string
	signed string
}

// Artifacts on the node host use POSIX paths regardless of the local
// platform, the same as the rest of the tooling.
func (w *Wallet) workPath(name string) string {
	return path.Join(w.workDir, name)
}

func (w *Wallet) txFiles(name string) txFiles {
	return txFiles{
		draft:  w.workPath(name + ".draft"),
		body:   w.workPath(name + ".raw"),
		signed: w.workPath(name + ".signed"),
	}
}

// operation carries the parts of a transaction the lifecycle walk needs
// beyond the assembled draft itself.
type operation struct {
	op      string   // journal operation name
	name    string   // artifact file stem
	signing []string // signing key files, in witness order
	offline bool
	cleanup bool
}

// assembleFunc produces the balanced draft for one operation. It runs
// after the protocol parameter snapshot and before any signing.
type assembleFunc func(ctx context.Context, params *node.ProtocolParameters, files txFiles) (*tx.Draft, error)

// execute walks one transaction through the lifecycle: snapshot the
// protocol parameters, assemble, sign, then submit or persist. The
// journal record and the cleanup both happen only after a terminal
// state is reached.
func (w *Wallet) execute(ctx context.Context, op operation, assemble assembleFunc) (*Result, error) {
	life := newLifecycle()
	log := w.log.With().Str("op", op.op).Str("tx", op.name).Logger()

	params, err := w.ledger.QueryProtocolParameters(ctx, w.workPath("params.json"))
	if err != nil {
		return nil, err
	}

	files := w.txFiles(op.name)
	draft, err := assemble(ctx, params, files)
	if err != nil {
		return nil, err
	}
	if err := life.Event(ctx, eventBuild); err != nil {
		return nil, err
	}
	log.Debug().
		Uint64("fee", draft.Fee).
		Uint64("change", draft.Change).
		Int("inputs", len(draft.Inputs)).
		Msg("transaction assembled")

	if err := w.ledger.Sign(ctx, draft.BodyFile, op.signing, files.signed); err != nil {
		return nil, err
	}
	if err := life.Event(ctx, eventSign); err != nil {
		return nil, err
	}

	if op.offline {
		if err := life.Event(ctx, eventPersist); err != nil {
			return nil, err
		}
		log.Info().Str("signed_file", files.signed).Msg("signed transaction persisted for offline submission")
	} else {
		if err := w.ledger.Submit(ctx, files.signed); err != nil {
			return nil, err
		}
		if err := life.Event(ctx, eventSubmit); err != nil {
			return nil, err
		}
		log.Info().Uint64("fee", draft.Fee).Msg("transaction submitted")
	}

	res := &Result{
		State:      life.Current(),
		TxFile:     draft.BodyFile,
		SignedFile: files.signed,
		Fee:        draft.Fee,
	}

	w.journalRecord(op.op, res)

	if op.cleanup {
		remove := []string{files.draft, files.body}
		if !op.offline {
			// The signed file is only an intermediate once it has been
			// broadcast; offline it is the deliverable.
			remove = append(remove, files.signed)
		}
		w.removeFiles(ctx, remove)
	}

	return res, nil
}

// journalRecord appends a terminal outcome to the journal when one is
// attached. Failures are logged and do not affect the operation result.
func (w *Wallet) journalRecord(op string, res *Result) {
	if w.journal == nil {
		return
	}
	id, err := w.journal.Append(txlog.Record{
		Op:         op,
		State:      res.State,
		TxFile:     res.TxFile,
		SignedFile: res.SignedFile,
		Fee:        res.Fee,
	})
	if err != nil {
		w.log.Warn().Err(err).Str("op", op).Msg("journal append failed")
		return
	}
	w.log.Debug().Uint64("journal_id", id).Msg("journal record appended")
}

// removeFiles deletes intermediate artifacts best-effort.
func (w *Wallet) removeFiles(ctx context.Context, paths []string) {
	for _, p := range paths {
		if err := w.exec.RemoveFile(ctx, p); err != nil {
			w.log.Warn().Err(err).Str("file", p).Msg("cleanup failed")
		}
	}
}

// Balance returns the lovelace held across all UTXOs at addr, native
// assets excluded.
func (w *Wallet) Balance(ctx context.Context, addr string) (uint64, error) {
	utxos, err := w.ledger.QueryUTXOs(ctx, addr, nil)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, u := range utxos {
		total += u.Amount()
	}
	return total, nil
}

// RewardsBalance returns the undistributed staking rewards of a stake
// address.
func (w *Wallet) RewardsBalance(ctx context.Context, stakeAddr string) (uint64, error) {
	infos, err := w.ledger.QueryStakeInfo(ctx, stakeAddr)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, info := range infos {
		total += info.RewardAccountBalance
	}
	return total, nil
}
