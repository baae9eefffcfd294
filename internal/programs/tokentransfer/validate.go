package tokentransfer

import (
	"errors"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/layout"
	"solana-token-transfer/internal/runtime"
	"solana-token-transfer/internal/solana"
)

// The checks below run before any handler logic, in account order: every
// account is loaded and type-checked first, then mut constraints are applied.

func requireAccounts(accounts []*runtime.AccountInfo, n int) error {
	if len(accounts) < n {
		return ErrAccountNotEnoughKeys
	}
	return nil
}

func requireSigner(name string, info *runtime.AccountInfo) error {
	if !info.IsSigner {
		return accountErr(name, ErrAccountNotSigner)
	}
	return nil
}

func requireMut(name string, info *runtime.AccountInfo) error {
	if !info.IsWritable {
		return accountErr(name, ErrConstraintMut)
	}
	return nil
}

func requireProgram(name string, info *runtime.AccountInfo, id solana.PublicKey) error {
	if info.Key != id {
		return accountErr(name, ErrInvalidProgramID)
	}
	if !info.Executable() {
		return accountErr(name, ErrInvalidProgramExecutable)
	}
	return nil
}

func requireRentSysvar(name string, info *runtime.AccountInfo) error {
	if info.Key != solana.SysVarRentPubkey {
		return accountErr(name, ErrAccountSysvarMismatch)
	}
	return nil
}

func requireRentExempt(name string, ic *runtime.InvokeContext, info *runtime.AccountInfo) error {
	if !ic.Rent().IsExempt(info.Lamports(), len(info.Data())) {
		return accountErr(name, ErrConstraintRentExempt)
	}
	return nil
}

// checkOwned applies the typed-account checks shared by mints and token accounts.
func checkOwned(name string, info *runtime.AccountInfo, owner solana.PublicKey) error {
	if info.Owner() == solana.SystemProgramID && info.Lamports() == 0 {
		return accountErr(name, ErrAccountNotInitialized)
	}
	if info.Owner() != owner {
		return accountErr(name, ErrAccountOwnedByWrongProgram)
	}
	return nil
}

func loadMint(name string, info *runtime.AccountInfo) (*domain.Mint, error) {
	if err := checkOwned(name, info, solana.TokenProgramID); err != nil {
		return nil, err
	}
	m, err := layout.DecodeMint(info.Data())
	if err != nil {
		return nil, accountErr(name, ErrAccountDidNotDeserialize)
	}
	return m, nil
}

func loadTokenAccount(name string, info *runtime.AccountInfo) (*domain.TokenAccount, error) {
	if err := checkOwned(name, info, solana.TokenProgramID); err != nil {
		return nil, err
	}
	a, err := layout.DecodeTokenAccount(info.Data())
	if err != nil {
		return nil, accountErr(name, ErrAccountDidNotDeserialize)
	}
	return a, nil
}

// initializeAccounts are the validated accounts of initialize_token.
type initializeAccounts struct {
	tokenInfo     *runtime.AccountInfo
	mint          *runtime.AccountInfo
	authority     *runtime.AccountInfo
	systemProgram *runtime.AccountInfo
	tokenProgram  *runtime.AccountInfo
	rent          *runtime.AccountInfo
}

func validateInitialize(accounts []*runtime.AccountInfo) (*initializeAccounts, error) {
	if err := requireAccounts(accounts, 6); err != nil {
		return nil, err
	}
	a := &initializeAccounts{
		tokenInfo:     accounts[0],
		mint:          accounts[1],
		authority:     accounts[2],
		systemProgram: accounts[3],
		tokenProgram:  accounts[4],
		rent:          accounts[5],
	}

	// Accounts created here are plain keypairs and must sign their creation.
	if err := requireSigner("token_info", a.tokenInfo); err != nil {
		return nil, err
	}
	if err := requireSigner("mint", a.mint); err != nil {
		return nil, err
	}
	if err := requireSigner("authority", a.authority); err != nil {
		return nil, err
	}
	if err := requireProgram("system_program", a.systemProgram, solana.SystemProgramID); err != nil {
		return nil, err
	}
	if err := requireProgram("token_program", a.tokenProgram, solana.TokenProgramID); err != nil {
		return nil, err
	}
	if err := requireRentSysvar("rent", a.rent); err != nil {
		return nil, err
	}

	for _, c := range []struct {
		name string
		info *runtime.AccountInfo
	}{{"token_info", a.tokenInfo}, {"mint", a.mint}, {"authority", a.authority}} {
		if err := requireMut(c.name, c.info); err != nil {
			return nil, err
		}
	}
	if a.authority.Key == a.tokenInfo.Key {
		return nil, accountErr("token_info", ErrTryingToInitPayerAsProgramAccount)
	}
	if a.authority.Key == a.mint.Key {
		return nil, accountErr("mint", ErrTryingToInitPayerAsProgramAccount)
	}
	return a, nil
}

// mintAccounts are the validated accounts of mint_token and burn_token.
type mintAccounts struct {
	mintInfo     *runtime.AccountInfo
	tokenAccount *runtime.AccountInfo
	authority    *runtime.AccountInfo
	tokenProgram *runtime.AccountInfo
	mint         *domain.Mint
	balance      *domain.TokenAccount
}

func validateMintOrBurn(accounts []*runtime.AccountInfo) (*mintAccounts, error) {
	if err := requireAccounts(accounts, 4); err != nil {
		return nil, err
	}
	a := &mintAccounts{
		mintInfo:     accounts[0],
		tokenAccount: accounts[1],
		authority:    accounts[2],
		tokenProgram: accounts[3],
	}

	var err error
	if a.mint, err = loadMint("mint", a.mintInfo); err != nil {
		return nil, err
	}
	if a.balance, err = loadTokenAccount("token_account", a.tokenAccount); err != nil {
		return nil, err
	}
	if err := requireSigner("authority", a.authority); err != nil {
		return nil, err
	}
	if err := requireProgram("token_program", a.tokenProgram, solana.TokenProgramID); err != nil {
		return nil, err
	}

	if err := requireMut("mint", a.mintInfo); err != nil {
		return nil, err
	}
	if err := requireMut("token_account", a.tokenAccount); err != nil {
		return nil, err
	}
	return a, nil
}

// balanceAccounts are the validated accounts of get_balance.
type balanceAccounts struct {
	tokenAccount *runtime.AccountInfo
	balance      *domain.TokenAccount
}

func validateGetBalance(accounts []*runtime.AccountInfo) (*balanceAccounts, error) {
	if err := requireAccounts(accounts, 1); err != nil {
		return nil, err
	}
	a := &balanceAccounts{tokenAccount: accounts[0]}

	var err error
	if a.balance, err = loadTokenAccount("token_account", a.tokenAccount); err != nil {
		return nil, err
	}
	if err := requireMut("token_account", a.tokenAccount); err != nil {
		return nil, err
	}
	return a, nil
}

// transferAccounts are the validated accounts of transfer_token.
type transferAccounts struct {
	from         *runtime.AccountInfo
	to           *runtime.AccountInfo
	authority    *runtime.AccountInfo
	tokenProgram *runtime.AccountInfo
}

func validateTransfer(accounts []*runtime.AccountInfo) (*transferAccounts, error) {
	if err := requireAccounts(accounts, 4); err != nil {
		return nil, err
	}
	a := &transferAccounts{
		from:         accounts[0],
		to:           accounts[1],
		authority:    accounts[2],
		tokenProgram: accounts[3],
	}

	if _, err := loadTokenAccount("from", a.from); err != nil {
		return nil, err
	}
	if _, err := loadTokenAccount("to", a.to); err != nil {
		return nil, err
	}
	if err := requireSigner("authority", a.authority); err != nil {
		return nil, err
	}
	if err := requireProgram("token_program", a.tokenProgram, solana.TokenProgramID); err != nil {
		return nil, err
	}

	if err := requireMut("from", a.from); err != nil {
		return nil, err
	}
	if err := requireMut("to", a.to); err != nil {
		return nil, err
	}
	return a, nil
}

// accountName extracts the offending account of a validation error, if any.
func accountName(err error) (string, bool) {
	var ae *AccountError
	if errors.As(err, &ae) {
		return ae.Account, true
	}
	return "", false
}
