package node

import (
	"context"
	"io/fs"
)

// MockLedger is a test double for LedgerService. All function fields must be
// set before the corresponding method is called.
type MockLedger struct {
	QueryTipFn                func(ctx context.Context) (*Tip, error)
	QueryUTXOsFn              func(ctx context.Context, address string, filter UTXOFilter) ([]*UTXO, error)
	QueryStakeInfoFn          func(ctx context.Context, stakeAddr string) ([]*StakeInfo, error)
	QueryProtocolParametersFn func(ctx context.Context, outFile string) (*ProtocolParameters, error)
	GenesisParametersFn       func(ctx context.Context, genesisFile string) (*GenesisParameters, error)
	BuildRawFn                func(ctx context.Context, p BuildRawParams) error
	CalculateMinFeeFn         func(ctx context.Context, bodyFile string, inCount, outCount, witnessCount, byronWitnessCount int, paramsFile string) (uint64, error)
	SignFn                    func(ctx context.Context, bodyFile string, signingKeyFiles []string, outFile string) error
	WitnessFn                 func(ctx context.Context, bodyFile, signingKeyFile, outFile string) error
	AssembleFn                func(ctx context.Context, bodyFile string, witnessFiles []string, outFile string) error
	SubmitFn                  func(ctx context.Context, signedFile string) error
}

// Compile-time interface check.
var _ LedgerService = (*MockLedger)(nil)

func (m *MockLedger) QueryTip(ctx context.Context) (*Tip, error) {
	return m.QueryTipFn(ctx)
}
func (m *MockLedger) QueryUTXOs(ctx context.Context, address string, filter UTXOFilter) ([]*UTXO, error) {
	return m.QueryUTXOsFn(ctx, address, filter)
}
func (m *MockLedger) QueryStakeInfo(ctx context.Context, stakeAddr string) ([]*StakeInfo, error) {
	return m.QueryStakeInfoFn(ctx, stakeAddr)
}
func (m *MockLedger) QueryProtocolParameters(ctx context.Context, outFile string) (*ProtocolParameters, error) {
	return m.QueryProtocolParametersFn(ctx, outFile)
}
func (m *MockLedger) GenesisParameters(ctx context.Context, genesisFile string) (*GenesisParameters, error) {
	return m.GenesisParametersFn(ctx, genesisFile)
}
func (m *MockLedger) BuildRaw(ctx context.Context, p BuildRawParams) error {
	return m.BuildRawFn(ctx, p)
}
func (m *MockLedger) CalculateMinFee(ctx context.Context, bodyFile string, inCount, outCount, witnessCount, byronWitnessCount int, paramsFile string) (uint64, error) {
	return m.CalculateMinFeeFn(ctx, bodyFile, inCount, outCount, witnessCount, byronWitnessCount, paramsFile)
}
func (m *MockLedger) Sign(ctx context.Context, bodyFile string, signingKeyFiles []string, outFile string) error {
	return m.SignFn(ctx, bodyFile, signingKeyFiles, outFile)
}
func (m *MockLedger) Witness(ctx context.Context, bodyFile, signingKeyFile, outFile string) error {
	return m.WitnessFn(ctx, bodyFile, signingKeyFile, outFile)
}
func (m *MockLedger) Assemble(ctx context.Context, bodyFile string, witnessFiles []string, outFile string) error {
	return m.AssembleFn(ctx, bodyFile, witnessFiles, outFile)
}
func (m *MockLedger) Submit(ctx context.Context, signedFile string) error {
	return m.SubmitFn(ctx, signedFile)
}

// MockExecutor is a test double for Executor, used to feed canned command
// output to the Client without running cardano-cli.
type MockExecutor struct {
	RunFn        func(ctx context.Context, cmd Command) (string, string, error)
	ReadFileFn   func(ctx context.Context, path string) ([]byte, error)
	WriteFileFn  func(ctx context.Context, path string, data []byte, perm fs.FileMode) error
	RemoveFileFn func(ctx context.Context, path string) error
	MkdirAllFn   func(ctx context.Context, path string) error
	DownloadFn   func(ctx context.Context, url, path string) error
}

// Compile-time interface check.
var _ Executor = (*MockExecutor)(nil)

func (m *MockExecutor) Run(ctx context.Context, cmd Command) (string, string, error) {
	return m.RunFn(ctx, cmd)
}
func (m *MockExecutor) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return m.ReadFileFn(ctx, path)
}
func (m *MockExecutor) WriteFile(ctx context.Context, path string, data []byte, perm fs.FileMode) error {
	return m.WriteFileFn(ctx, path, data, perm)
}
func (m *MockExecutor) RemoveFile(ctx context.Context, path string) error {
	return m.RemoveFileFn(ctx, path)
}
func (m *MockExecutor) MkdirAll(ctx context.Context, path string) error {
	return m.MkdirAllFn(ctx, path)
}
func (m *MockExecutor) Download(ctx context.Context, url, path string) error {
	return m.DownloadFn(ctx, url, path)
}
