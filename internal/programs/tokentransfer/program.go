package tokentransfer

import (
	"bytes"
	"errors"

	bin "github.com/gagliardetto/binary"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/layout"
	"solana-token-transfer/internal/programs/system"
	"solana-token-transfer/internal/programs/token"
	"solana-token-transfer/internal/runtime"
	"solana-token-transfer/internal/solana"
)

var instructionTitles = map[string]string{
	InstructionInitializeToken: "InitializeToken",
	InstructionMintToken:       "MintToken",
	InstructionGetBalance:      "GetBalance",
	InstructionTransferToken:   "TransferToken",
	InstructionBurnToken:       "BurnToken",
}

// Program is the token-transfer program: five operations that validate their
// accounts and then delegate to the token program.
type Program struct{}

var _ runtime.Program = (*Program)(nil)

// New creates the token-transfer program.
func New() *Program {
	return &Program{}
}

// Process validates and executes one instruction. Validation failures are
// logged with the offending account; delegated failures surface unchanged.
func (p *Program) Process(ic *runtime.InvokeContext, accounts []*runtime.AccountInfo, data []byte) error {
	err := p.process(ic, accounts, data)
	if err != nil {
		logError(ic, err)
	}
	return err
}

func (p *Program) process(ic *runtime.InvokeContext, accounts []*runtime.AccountInfo, data []byte) error {
	ix, err := DecodeInstruction(data)
	if err != nil {
		return err
	}
	ic.Log("Instruction: %s", instructionTitles[ix.Name])

	switch ix.Name {
	case InstructionInitializeToken:
		return initializeToken(ic, accounts, ix.Initialize)
	case InstructionMintToken:
		return mintToken(ic, accounts, ix.Amount)
	case InstructionGetBalance:
		return getBalance(ic, accounts)
	case InstructionTransferToken:
		return transferToken(ic, accounts, ix.Amount)
	case InstructionBurnToken:
		return burnToken(ic, accounts, ix.Amount)
	}
	return ErrInstructionFallbackNotFound
}

func logError(ic *runtime.InvokeContext, err error) {
	var code ErrorCode
	if !errors.As(err, &code) {
		return
	}
	if name, ok := accountName(err); ok {
		ic.Log("AnchorError caused by account: %s. Error Code: %s. Error Number: %d. Error Message: %s.",
			name, code.Name(), uint32(code), code.Error())
		return
	}
	ic.Log("AnchorError occurred. Error Code: %s. Error Number: %d. Error Message: %s.",
		code.Name(), uint32(code), code.Error())
}

func initializeToken(ic *runtime.InvokeContext, accounts []*runtime.AccountInfo, args *InitializeTokenArgs) error {
	a, err := validateInitialize(accounts)
	if err != nil {
		return err
	}

	if err := system.InvokeCreateAccount(ic, a.authority, a.tokenInfo, layout.TokenInfoSpace, ProgramID, nil); err != nil {
		return err
	}
	if err := requireRentExempt("token_info", ic, a.tokenInfo); err != nil {
		return err
	}

	if err := system.InvokeCreateAccount(ic, a.authority, a.mint, layout.MintSize, solana.TokenProgramID, nil); err != nil {
		return err
	}
	if err := ic.Invoke(token.NewInitializeMint2Instruction(a.mint.Key, a.authority.Key, nil, args.Decimals)); err != nil {
		return err
	}
	if err := requireRentExempt("mint", ic, a.mint); err != nil {
		return err
	}

	ic.Log("Initializing token with name: %s, symbol: %s", args.Name, args.Symbol)
	info := &domain.TokenInfo{
		Name:      args.Name,
		Symbol:    args.Symbol,
		Decimals:  args.Decimals,
		Mint:      a.mint.Key,
		Authority: a.authority.Key,
	}
	ic.Log("Token initialized successfully")

	data, err := layout.EncodeTokenInfo(info, len(a.tokenInfo.Data()))
	if err != nil {
		return accountErr("token_info", ErrAccountDidNotSerialize)
	}
	copy(a.tokenInfo.Data(), data)
	return nil
}

func mintToken(ic *runtime.InvokeContext, accounts []*runtime.AccountInfo, amount uint64) error {
	a, err := validateMintOrBurn(accounts)
	if err != nil {
		return err
	}

	ic.Log("Minting %d tokens", amount)
	if err := ic.Invoke(token.NewMintToInstruction(a.mintInfo.Key, a.tokenAccount.Key, a.authority.Key, amount)); err != nil {
		return err
	}
	ic.Log("Tokens minted successfully")
	return nil
}

func getBalance(ic *runtime.InvokeContext, accounts []*runtime.AccountInfo) error {
	a, err := validateGetBalance(accounts)
	if err != nil {
		return err
	}

	ic.Log("The balance of the account is: %d", a.balance.Amount)

	var buf bytes.Buffer
	if err := bin.NewBorshEncoder(&buf).WriteUint64(a.balance.Amount, bin.LE); err != nil {
		return err
	}
	return ic.SetReturnData(buf.Bytes())
}

func transferToken(ic *runtime.InvokeContext, accounts []*runtime.AccountInfo, amount uint64) error {
	a, err := validateTransfer(accounts)
	if err != nil {
		return err
	}

	ic.Log("Transferring %d tokens", amount)
	if err := ic.Invoke(token.NewTransferInstruction(a.from.Key, a.to.Key, a.authority.Key, amount)); err != nil {
		return err
	}
	ic.Log("Tokens transferred successfully")
	return nil
}

func burnToken(ic *runtime.InvokeContext, accounts []*runtime.AccountInfo, amount uint64) error {
	a, err := validateMintOrBurn(accounts)
	if err != nil {
		return err
	}

	ic.Log("Burning %d tokens", amount)
	if err := ic.Invoke(token.NewBurnInstruction(a.tokenAccount.Key, a.mintInfo.Key, a.authority.Key, amount)); err != nil {
		return err
	}
	ic.Log("Tokens burned successfully")
	return nil
}
