package token

import (
	"errors"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/layout"
	"solana-token-transfer/internal/runtime"
	"solana-token-transfer/internal/solana"
)

// Program is the native token program.
type Program struct{}

var _ runtime.Program = (*Program)(nil)

// New creates the token program.
func New() *Program {
	return &Program{}
}

// Process dispatches a token instruction and logs any failure the way the
// on-chain program does.
func (p *Program) Process(ic *runtime.InvokeContext, accounts []*runtime.AccountInfo, data []byte) error {
	err := p.process(ic, accounts, data)
	if err != nil {
		var tokenErr Error
		if errors.As(err, &tokenErr) {
			ic.Log("Error: %s", tokenErr.Error())
		}
	}
	return err
}

func (p *Program) process(ic *runtime.InvokeContext, accounts []*runtime.AccountInfo, data []byte) error {
	ix, err := DecodeInstruction(data)
	if err != nil {
		return err
	}
	ic.Log("Instruction: %s", ix.Name())

	switch ix.Tag {
	case InstructionInitializeMint:
		if len(accounts) < 2 {
			return runtime.ErrNotEnoughAccountKeys
		}
		rent, err := rentFromSysvar(accounts[1])
		if err != nil {
			return err
		}
		return initializeMint(accounts[0], ix, rent)
	case InstructionInitializeMint2:
		if len(accounts) < 1 {
			return runtime.ErrNotEnoughAccountKeys
		}
		return initializeMint(accounts[0], ix, ic.Rent())
	case InstructionInitializeAccount:
		if len(accounts) < 4 {
			return runtime.ErrNotEnoughAccountKeys
		}
		rent, err := rentFromSysvar(accounts[3])
		if err != nil {
			return err
		}
		return initializeAccount(accounts[0], accounts[1], accounts[2].Key, rent)
	case InstructionInitializeAccount3:
		if len(accounts) < 2 {
			return runtime.ErrNotEnoughAccountKeys
		}
		return initializeAccount(accounts[0], accounts[1], ix.Owner, ic.Rent())
	case InstructionTransfer:
		if len(accounts) < 3 {
			return runtime.ErrNotEnoughAccountKeys
		}
		return transfer(accounts[0], accounts[1], accounts[2], ix.Amount)
	case InstructionApprove:
		if len(accounts) < 3 {
			return runtime.ErrNotEnoughAccountKeys
		}
		return approve(accounts[0], accounts[1].Key, accounts[2], ix.Amount)
	case InstructionRevoke:
		if len(accounts) < 2 {
			return runtime.ErrNotEnoughAccountKeys
		}
		return revoke(accounts[0], accounts[1])
	case InstructionMintTo:
		if len(accounts) < 3 {
			return runtime.ErrNotEnoughAccountKeys
		}
		return mintTo(accounts[0], accounts[1], accounts[2], ix.Amount)
	case InstructionBurn:
		if len(accounts) < 3 {
			return runtime.ErrNotEnoughAccountKeys
		}
		return burn(accounts[0], accounts[1], accounts[2], ix.Amount)
	}
	return ErrInvalidInstruction
}

func rentFromSysvar(info *runtime.AccountInfo) (runtime.Rent, error) {
	if info.Key != solana.SysVarRentPubkey {
		return runtime.Rent{}, runtime.ErrInvalidArgument
	}
	rent, err := runtime.RentFromBytes(info.Data())
	if err != nil {
		return runtime.Rent{}, runtime.ErrInvalidArgument
	}
	return rent, nil
}

func initializeMint(mintInfo *runtime.AccountInfo, ix *Instruction, rent runtime.Rent) error {
	if len(mintInfo.Data()) != layout.MintSize {
		return runtime.ErrInvalidAccountData
	}
	if layout.IsMintInitialized(mintInfo.Data()) {
		return ErrAlreadyInUse
	}
	if !rent.IsExempt(mintInfo.Lamports(), len(mintInfo.Data())) {
		return ErrNotRentExempt
	}

	authority := ix.MintAuthority
	return storeMint(mintInfo, &domain.Mint{
		MintAuthority:   &authority,
		Decimals:        ix.Decimals,
		IsInitialized:   true,
		FreezeAuthority: ix.FreezeAuthority,
	})
}

func initializeAccount(accountInfo, mintInfo *runtime.AccountInfo, owner solana.PublicKey, rent runtime.Rent) error {
	if len(accountInfo.Data()) != layout.TokenAccountSize {
		return runtime.ErrInvalidAccountData
	}
	if layout.IsTokenAccountInitialized(accountInfo.Data()) {
		return ErrAlreadyInUse
	}
	if !rent.IsExempt(accountInfo.Lamports(), len(accountInfo.Data())) {
		return ErrNotRentExempt
	}
	if mintInfo.Owner() != solana.TokenProgramID {
		return runtime.ErrIncorrectProgramID
	}
	if _, err := layout.DecodeMint(mintInfo.Data()); err != nil {
		return ErrInvalidMint
	}

	return storeAccount(accountInfo, &domain.TokenAccount{
		Mint:  mintInfo.Key,
		Owner: owner,
		State: domain.AccountStateInitialized,
	})
}

func transfer(sourceInfo, destInfo, authorityInfo *runtime.AccountInfo, amount uint64) error {
	source, err := loadAccount(sourceInfo)
	if err != nil {
		return err
	}
	dest, err := loadAccount(destInfo)
	if err != nil {
		return err
	}

	if source.IsFrozen() || dest.IsFrozen() {
		return ErrAccountFrozen
	}
	if source.Amount < amount {
		return ErrInsufficientFunds
	}
	if source.Mint != dest.Mint {
		return ErrMintMismatch
	}

	if err := authorizeDebit(source, authorityInfo, amount); err != nil {
		return err
	}

	if sourceInfo.Key == destInfo.Key {
		// Self transfers are validated but change nothing.
		return nil
	}

	source.Amount -= amount
	sum := dest.Amount + amount
	if sum < dest.Amount {
		return ErrOverflow
	}
	dest.Amount = sum

	if err := storeAccount(sourceInfo, source); err != nil {
		return err
	}
	return storeAccount(destInfo, dest)
}

func approve(sourceInfo *runtime.AccountInfo, delegate solana.PublicKey, ownerInfo *runtime.AccountInfo, amount uint64) error {
	source, err := loadAccount(sourceInfo)
	if err != nil {
		return err
	}
	if source.IsFrozen() {
		return ErrAccountFrozen
	}
	if err := validateOwner(source.Owner, ownerInfo); err != nil {
		return err
	}
	source.Delegate = &delegate
	source.DelegatedAmount = amount
	return storeAccount(sourceInfo, source)
}

func revoke(sourceInfo, ownerInfo *runtime.AccountInfo) error {
	source, err := loadAccount(sourceInfo)
	if err != nil {
		return err
	}
	if source.IsFrozen() {
		return ErrAccountFrozen
	}
	if err := validateOwner(source.Owner, ownerInfo); err != nil {
		return err
	}
	source.Delegate = nil
	source.DelegatedAmount = 0
	return storeAccount(sourceInfo, source)
}

func mintTo(mintInfo, destInfo, authorityInfo *runtime.AccountInfo, amount uint64) error {
	dest, err := loadAccount(destInfo)
	if err != nil {
		return err
	}
	if dest.IsFrozen() {
		return ErrAccountFrozen
	}
	if dest.IsNative != nil {
		return ErrNativeNotSupported
	}
	if dest.Mint != mintInfo.Key {
		return ErrMintMismatch
	}

	mint, err := loadMint(mintInfo)
	if err != nil {
		return err
	}
	if mint.MintAuthority == nil {
		return ErrFixedSupply
	}
	if err := validateOwner(*mint.MintAuthority, authorityInfo); err != nil {
		return err
	}

	sum := dest.Amount + amount
	if sum < dest.Amount {
		return ErrOverflow
	}
	supply := mint.Supply + amount
	if supply < mint.Supply {
		return ErrOverflow
	}
	dest.Amount = sum
	mint.Supply = supply

	if err := storeAccount(destInfo, dest); err != nil {
		return err
	}
	return storeMint(mintInfo, mint)
}

func burn(sourceInfo, mintInfo, authorityInfo *runtime.AccountInfo, amount uint64) error {
	source, err := loadAccount(sourceInfo)
	if err != nil {
		return err
	}
	mint, err := loadMint(mintInfo)
	if err != nil {
		return err
	}

	if source.IsFrozen() {
		return ErrAccountFrozen
	}
	if source.IsNative != nil {
		return ErrNativeNotSupported
	}
	if source.Amount < amount {
		return ErrInsufficientFunds
	}
	if source.Mint != mintInfo.Key {
		return ErrMintMismatch
	}
	if err := authorizeDebit(source, authorityInfo, amount); err != nil {
		return err
	}

	if mint.Supply < amount {
		return ErrOverflow
	}
	source.Amount -= amount
	mint.Supply -= amount

	if err := storeAccount(sourceInfo, source); err != nil {
		return err
	}
	return storeMint(mintInfo, mint)
}

// authorizeDebit accepts either the account's delegate, within its allowance,
// or the account owner.
func authorizeDebit(source *domain.TokenAccount, authorityInfo *runtime.AccountInfo, amount uint64) error {
	if source.Delegate != nil && *source.Delegate == authorityInfo.Key {
		if err := validateOwner(*source.Delegate, authorityInfo); err != nil {
			return err
		}
		if source.DelegatedAmount < amount {
			return ErrInsufficientFunds
		}
		source.DelegatedAmount -= amount
		if source.DelegatedAmount == 0 {
			source.Delegate = nil
		}
		return nil
	}
	return validateOwner(source.Owner, authorityInfo)
}

func validateOwner(expected solana.PublicKey, authorityInfo *runtime.AccountInfo) error {
	if expected != authorityInfo.Key {
		return ErrOwnerMismatch
	}
	if !authorityInfo.IsSigner {
		return runtime.ErrMissingRequiredSignature
	}
	return nil
}

func loadMint(info *runtime.AccountInfo) (*domain.Mint, error) {
	m, err := layout.DecodeMint(info.Data())
	if err != nil {
		return nil, stateError(err)
	}
	return m, nil
}

func loadAccount(info *runtime.AccountInfo) (*domain.TokenAccount, error) {
	a, err := layout.DecodeTokenAccount(info.Data())
	if err != nil {
		return nil, stateError(err)
	}
	return a, nil
}

func stateError(err error) error {
	if errors.Is(err, layout.ErrUninitialized) {
		return runtime.ErrUninitializedAccount
	}
	return runtime.ErrInvalidAccountData
}

func storeMint(info *runtime.AccountInfo, m *domain.Mint) error {
	data, err := layout.EncodeMint(m)
	if err != nil {
		return runtime.ErrInvalidAccountData
	}
	copy(info.Data(), data)
	return nil
}

func storeAccount(info *runtime.AccountInfo, a *domain.TokenAccount) error {
	data, err := layout.EncodeTokenAccount(a)
	if err != nil {
		return runtime.ErrInvalidAccountData
	}
	copy(info.Data(), data)
	return nil
}
