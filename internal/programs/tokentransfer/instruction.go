package tokentransfer

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	bin "github.com/gagliardetto/binary"

	"solana-token-transfer/internal/layout"
	"solana-token-transfer/internal/solana"
)

// ProgramID is the deployed address of the token-transfer program.
var ProgramID = solana.MustPublicKeyFromBase58("9gUWiVPnEXmYrqe9KStaqSzq6spyqGhMpCRxVLEGk54N")

// Instruction names as used for discriminators.
const (
	InstructionInitializeToken = "initialize_token"
	InstructionMintToken       = "mint_token"
	InstructionGetBalance      = "get_balance"
	InstructionTransferToken   = "transfer_token"
	InstructionBurnToken       = "burn_token"
)

var (
	discInitializeToken = layout.InstructionDiscriminator(InstructionInitializeToken)
	discMintToken       = layout.InstructionDiscriminator(InstructionMintToken)
	discGetBalance      = layout.InstructionDiscriminator(InstructionGetBalance)
	discTransferToken   = layout.InstructionDiscriminator(InstructionTransferToken)
	discBurnToken       = layout.InstructionDiscriminator(InstructionBurnToken)
)

// InitializeTokenArgs are the Borsh arguments of initialize_token.
type InitializeTokenArgs struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// AmountArgs are the Borsh arguments of mint_token, transfer_token and burn_token.
type AmountArgs struct {
	Amount uint64
}

// Instruction is a decoded token-transfer instruction.
type Instruction struct {
	Name       string
	Initialize *InitializeTokenArgs
	Amount     uint64
}

// DecodeInstruction matches the discriminator and decodes the arguments.
func DecodeInstruction(data []byte) (*Instruction, error) {
	if len(data) < layout.DiscriminatorLength {
		return nil, ErrInstructionMissing
	}
	var disc [layout.DiscriminatorLength]byte
	copy(disc[:], data)
	args := data[layout.DiscriminatorLength:]

	switch disc {
	case discInitializeToken:
		var a InitializeTokenArgs
		if err := bin.UnmarshalBorsh(&a, args); err != nil {
			return nil, ErrInstructionDidNotDeserialize
		}
		if !utf8.ValidString(a.Name) || !utf8.ValidString(a.Symbol) {
			return nil, ErrInstructionDidNotDeserialize
		}
		return &Instruction{Name: InstructionInitializeToken, Initialize: &a}, nil
	case discGetBalance:
		return &Instruction{Name: InstructionGetBalance}, nil
	case discMintToken:
		return decodeAmount(InstructionMintToken, args)
	case discTransferToken:
		return decodeAmount(InstructionTransferToken, args)
	case discBurnToken:
		return decodeAmount(InstructionBurnToken, args)
	}
	return nil, ErrInstructionFallbackNotFound
}

func decodeAmount(name string, args []byte) (*Instruction, error) {
	var a AmountArgs
	if err := bin.UnmarshalBorsh(&a, args); err != nil {
		return nil, ErrInstructionDidNotDeserialize
	}
	return &Instruction{Name: name, Amount: a.Amount}, nil
}

func mustEncode(disc [layout.DiscriminatorLength]byte, args interface{}) []byte {
	var buf bytes.Buffer
	buf.Write(disc[:])
	if args != nil {
		raw, err := bin.MarshalBorsh(args)
		if err != nil {
			// Only fixed argument structs are encoded here.
			panic(fmt.Sprintf("encode instruction args: %v", err))
		}
		buf.Write(raw)
	}
	return buf.Bytes()
}

// NewInitializeTokenInstruction builds initialize_token. tokenInfo and mint must be
// fresh keypairs that sign the transaction; authority pays for both accounts.
func NewInitializeTokenInstruction(tokenInfo, mint, authority solana.PublicKey, name, symbol string, decimals uint8) solana.Instruction {
	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(tokenInfo).WRITE().SIGNER(),
		solana.Meta(mint).WRITE().SIGNER(),
		solana.Meta(authority).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SysVarRentPubkey),
	}, mustEncode(discInitializeToken, &InitializeTokenArgs{Name: name, Symbol: symbol, Decimals: decimals}))
}

// NewMintTokenInstruction builds mint_token.
func NewMintTokenInstruction(mint, tokenAccount, authority solana.PublicKey, amount uint64) solana.Instruction {
	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(mint).WRITE(),
		solana.Meta(tokenAccount).WRITE(),
		solana.Meta(authority).SIGNER(),
		solana.Meta(solana.TokenProgramID),
	}, mustEncode(discMintToken, &AmountArgs{Amount: amount}))
}

// NewGetBalanceInstruction builds get_balance. The balance is returned as
// little-endian u64 return data.
func NewGetBalanceInstruction(tokenAccount solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(tokenAccount).WRITE(),
	}, mustEncode(discGetBalance, nil))
}

// NewTransferTokenInstruction builds transfer_token.
func NewTransferTokenInstruction(from, to, authority solana.PublicKey, amount uint64) solana.Instruction {
	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(from).WRITE(),
		solana.Meta(to).WRITE(),
		solana.Meta(authority).SIGNER(),
		solana.Meta(solana.TokenProgramID),
	}, mustEncode(discTransferToken, &AmountArgs{Amount: amount}))
}

// NewBurnTokenInstruction builds burn_token.
func NewBurnTokenInstruction(mint, tokenAccount, authority solana.PublicKey, amount uint64) solana.Instruction {
	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(mint).WRITE(),
		solana.Meta(tokenAccount).WRITE(),
		solana.Meta(authority).SIGNER(),
		solana.Meta(solana.TokenProgramID),
	}, mustEncode(discBurnToken, &AmountArgs{Amount: amount}))
}

// DecodeBalance reads the get_balance return data.
func DecodeBalance(returnData []byte) (uint64, error) {
	if len(returnData) != 8 {
		return 0, fmt.Errorf("balance return data is %d bytes, want 8", len(returnData))
	}
	return bin.NewBorshDecoder(returnData).ReadUint64(bin.LE)
}
