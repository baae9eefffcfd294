package token

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"solana-token-transfer/internal/solana"
)

// Instruction tags, encoded as the first data byte.
const (
	InstructionInitializeMint     uint8 = 0
	InstructionInitializeAccount  uint8 = 1
	InstructionTransfer           uint8 = 3
	InstructionApprove            uint8 = 4
	InstructionRevoke             uint8 = 5
	InstructionMintTo             uint8 = 7
	InstructionBurn               uint8 = 8
	InstructionInitializeAccount3 uint8 = 18
	InstructionInitializeMint2    uint8 = 20
)

var instructionNames = map[uint8]string{
	InstructionInitializeMint:     "InitializeMint",
	InstructionInitializeAccount:  "InitializeAccount",
	InstructionTransfer:           "Transfer",
	InstructionApprove:            "Approve",
	InstructionRevoke:             "Revoke",
	InstructionMintTo:             "MintTo",
	InstructionBurn:               "Burn",
	InstructionInitializeAccount3: "InitializeAccount3",
	InstructionInitializeMint2:    "InitializeMint2",
}

// Instruction is a decoded token instruction. Only the fields used by Tag are set.
type Instruction struct {
	Tag             uint8
	Amount          uint64
	Decimals        uint8
	MintAuthority   solana.PublicKey
	FreezeAuthority *solana.PublicKey
	Owner           solana.PublicKey
}

// Name returns the instruction name used in program logs.
func (ix *Instruction) Name() string {
	if name, ok := instructionNames[ix.Tag]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", ix.Tag)
}

// DecodeInstruction parses token instruction data.
func DecodeInstruction(data []byte) (*Instruction, error) {
	dec := bin.NewBinDecoder(data)
	tag, err := dec.ReadUint8()
	if err != nil {
		return nil, ErrInvalidInstruction
	}
	ix := &Instruction{Tag: tag}

	switch tag {
	case InstructionInitializeMint, InstructionInitializeMint2:
		if ix.Decimals, err = dec.ReadUint8(); err != nil {
			return nil, ErrInvalidInstruction
		}
		if ix.MintAuthority, err = readKey(dec); err != nil {
			return nil, ErrInvalidInstruction
		}
		if ix.FreezeAuthority, err = readKeyOption(dec); err != nil {
			return nil, ErrInvalidInstruction
		}
	case InstructionInitializeAccount, InstructionRevoke:
	case InstructionTransfer, InstructionApprove, InstructionMintTo, InstructionBurn:
		if ix.Amount, err = dec.ReadUint64(bin.LE); err != nil {
			return nil, ErrInvalidInstruction
		}
	case InstructionInitializeAccount3:
		if ix.Owner, err = readKey(dec); err != nil {
			return nil, ErrInvalidInstruction
		}
	default:
		return nil, ErrInvalidInstruction
	}
	return ix, nil
}

func readKey(dec *bin.Decoder) (solana.PublicKey, error) {
	raw, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(raw)
}

// readKeyOption reads the instruction-side option encoding: a one-byte tag
// followed by the key only when present.
func readKeyOption(dec *bin.Decoder) (*solana.PublicKey, error) {
	tag, err := dec.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		return nil, nil
	case 1:
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		return &key, nil
	default:
		return nil, fmt.Errorf("invalid option tag %d", tag)
	}
}

func encodeInitializeMint(tag, decimals uint8, mintAuthority solana.PublicKey, freezeAuthority *solana.PublicKey) []byte {
	var buf bytes.Buffer
	enc := bin.NewBinEncoder(&buf)
	_ = enc.WriteUint8(tag)
	_ = enc.WriteUint8(decimals)
	_ = enc.WriteBytes(mintAuthority[:], false)
	if freezeAuthority == nil {
		_ = enc.WriteUint8(0)
	} else {
		_ = enc.WriteUint8(1)
		_ = enc.WriteBytes(freezeAuthority[:], false)
	}
	return buf.Bytes()
}

func encodeAmount(tag uint8, amount uint64) []byte {
	var buf bytes.Buffer
	enc := bin.NewBinEncoder(&buf)
	_ = enc.WriteUint8(tag)
	_ = enc.WriteUint64(amount, bin.LE)
	return buf.Bytes()
}

// NewInitializeMintInstruction builds InitializeMint: [mint (w), rent sysvar].
func NewInitializeMintInstruction(mint, mintAuthority solana.PublicKey, freezeAuthority *solana.PublicKey, decimals uint8) solana.Instruction {
	return solana.NewInstruction(solana.TokenProgramID, solana.AccountMetaSlice{
		solana.Meta(mint).WRITE(),
		solana.Meta(solana.SysVarRentPubkey),
	}, encodeInitializeMint(InstructionInitializeMint, decimals, mintAuthority, freezeAuthority))
}

// NewInitializeMint2Instruction builds InitializeMint2: [mint (w)].
func NewInitializeMint2Instruction(mint, mintAuthority solana.PublicKey, freezeAuthority *solana.PublicKey, decimals uint8) solana.Instruction {
	return solana.NewInstruction(solana.TokenProgramID, solana.AccountMetaSlice{
		solana.Meta(mint).WRITE(),
	}, encodeInitializeMint(InstructionInitializeMint2, decimals, mintAuthority, freezeAuthority))
}

// NewInitializeAccountInstruction builds InitializeAccount: [account (w), mint, owner, rent sysvar].
func NewInitializeAccountInstruction(account, mint, owner solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(solana.TokenProgramID, solana.AccountMetaSlice{
		solana.Meta(account).WRITE(),
		solana.Meta(mint),
		solana.Meta(owner),
		solana.Meta(solana.SysVarRentPubkey),
	}, []byte{InstructionInitializeAccount})
}

// NewInitializeAccount3Instruction builds InitializeAccount3: [account (w), mint].
func NewInitializeAccount3Instruction(account, mint, owner solana.PublicKey) solana.Instruction {
	data := append([]byte{InstructionInitializeAccount3}, owner[:]...)
	return solana.NewInstruction(solana.TokenProgramID, solana.AccountMetaSlice{
		solana.Meta(account).WRITE(),
		solana.Meta(mint),
	}, data)
}

// NewTransferInstruction builds Transfer: [source (w), destination (w), authority (s)].
func NewTransferInstruction(source, destination, authority solana.PublicKey, amount uint64) solana.Instruction {
	return solana.NewInstruction(solana.TokenProgramID, solana.AccountMetaSlice{
		solana.Meta(source).WRITE(),
		solana.Meta(destination).WRITE(),
		solana.Meta(authority).SIGNER(),
	}, encodeAmount(InstructionTransfer, amount))
}

// NewApproveInstruction builds Approve: [source (w), delegate, owner (s)].
func NewApproveInstruction(source, delegate, owner solana.PublicKey, amount uint64) solana.Instruction {
	return solana.NewInstruction(solana.TokenProgramID, solana.AccountMetaSlice{
		solana.Meta(source).WRITE(),
		solana.Meta(delegate),
		solana.Meta(owner).SIGNER(),
	}, encodeAmount(InstructionApprove, amount))
}

// NewRevokeInstruction builds Revoke: [source (w), owner (s)].
func NewRevokeInstruction(source, owner solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(solana.TokenProgramID, solana.AccountMetaSlice{
		solana.Meta(source).WRITE(),
		solana.Meta(owner).SIGNER(),
	}, []byte{InstructionRevoke})
}

// NewMintToInstruction builds MintTo: [mint (w), destination (w), mint authority (s)].
func NewMintToInstruction(mint, destination, authority solana.PublicKey, amount uint64) solana.Instruction {
	return solana.NewInstruction(solana.TokenProgramID, solana.AccountMetaSlice{
		solana.Meta(mint).WRITE(),
		solana.Meta(destination).WRITE(),
		solana.Meta(authority).SIGNER(),
	}, encodeAmount(InstructionMintTo, amount))
}

// NewBurnInstruction builds Burn: [account (w), mint (w), authority (s)].
func NewBurnInstruction(account, mint, authority solana.PublicKey, amount uint64) solana.Instruction {
	return solana.NewInstruction(solana.TokenProgramID, solana.AccountMetaSlice{
		solana.Meta(account).WRITE(),
		solana.Meta(mint).WRITE(),
		solana.Meta(authority).SIGNER(),
	}, encodeAmount(InstructionBurn, amount))
}
