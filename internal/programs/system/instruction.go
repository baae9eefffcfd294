package system

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"solana-token-transfer/internal/solana"
)

// Instruction tags, encoded as a little-endian u32.
const (
	InstructionCreateAccount uint32 = 0
	InstructionAssign        uint32 = 1
	InstructionTransfer      uint32 = 2
	InstructionAllocate      uint32 = 8
)

// CreateAccount funds a new account, allocates space and assigns its owner.
type CreateAccount struct {
	Lamports uint64
	Space    uint64
	Owner    solana.PublicKey
}

// Assign changes the owner of a system account.
type Assign struct {
	Owner solana.PublicKey
}

// Transfer moves lamports between system accounts.
type Transfer struct {
	Lamports uint64
}

// Allocate sizes the data of a system account.
type Allocate struct {
	Space uint64
}

// NewCreateAccountInstruction builds CreateAccount: [funder (w,s), new account (w,s)].
func NewCreateAccountInstruction(from, newAccount solana.PublicKey, lamports, space uint64, owner solana.PublicKey) solana.Instruction {
	var buf bytes.Buffer
	enc := bin.NewBinEncoder(&buf)
	_ = enc.WriteUint32(InstructionCreateAccount, bin.LE)
	_ = enc.WriteUint64(lamports, bin.LE)
	_ = enc.WriteUint64(space, bin.LE)
	_ = enc.WriteBytes(owner[:], false)
	return solana.NewInstruction(solana.SystemProgramID, solana.AccountMetaSlice{
		solana.Meta(from).WRITE().SIGNER(),
		solana.Meta(newAccount).WRITE().SIGNER(),
	}, buf.Bytes())
}

// NewTransferInstruction builds Transfer: [from (w,s), to (w)].
func NewTransferInstruction(from, to solana.PublicKey, lamports uint64) solana.Instruction {
	var buf bytes.Buffer
	enc := bin.NewBinEncoder(&buf)
	_ = enc.WriteUint32(InstructionTransfer, bin.LE)
	_ = enc.WriteUint64(lamports, bin.LE)
	return solana.NewInstruction(solana.SystemProgramID, solana.AccountMetaSlice{
		solana.Meta(from).WRITE().SIGNER(),
		solana.Meta(to).WRITE(),
	}, buf.Bytes())
}

// NewAssignInstruction builds Assign: [account (w,s)].
func NewAssignInstruction(account, owner solana.PublicKey) solana.Instruction {
	var buf bytes.Buffer
	enc := bin.NewBinEncoder(&buf)
	_ = enc.WriteUint32(InstructionAssign, bin.LE)
	_ = enc.WriteBytes(owner[:], false)
	return solana.NewInstruction(solana.SystemProgramID, solana.AccountMetaSlice{
		solana.Meta(account).WRITE().SIGNER(),
	}, buf.Bytes())
}

// NewAllocateInstruction builds Allocate: [account (w,s)].
func NewAllocateInstruction(account solana.PublicKey, space uint64) solana.Instruction {
	var buf bytes.Buffer
	enc := bin.NewBinEncoder(&buf)
	_ = enc.WriteUint32(InstructionAllocate, bin.LE)
	_ = enc.WriteUint64(space, bin.LE)
	return solana.NewInstruction(solana.SystemProgramID, solana.AccountMetaSlice{
		solana.Meta(account).WRITE().SIGNER(),
	}, buf.Bytes())
}

// DecodeInstruction parses system instruction data into one of
// *CreateAccount, *Assign, *Transfer or *Allocate.
func DecodeInstruction(data []byte) (interface{}, error) {
	dec := bin.NewBinDecoder(data)
	tag, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, fmt.Errorf("read tag: %w", err)
	}

	switch tag {
	case InstructionCreateAccount:
		var ix CreateAccount
		if ix.Lamports, err = dec.ReadUint64(bin.LE); err != nil {
			return nil, err
		}
		if ix.Space, err = dec.ReadUint64(bin.LE); err != nil {
			return nil, err
		}
		if ix.Owner, err = readKey(dec); err != nil {
			return nil, err
		}
		return &ix, nil
	case InstructionAssign:
		owner, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		return &Assign{Owner: owner}, nil
	case InstructionTransfer:
		lamports, err := dec.ReadUint64(bin.LE)
		if err != nil {
			return nil, err
		}
		return &Transfer{Lamports: lamports}, nil
	case InstructionAllocate:
		space, err := dec.ReadUint64(bin.LE)
		if err != nil {
			return nil, err
		}
		return &Allocate{Space: space}, nil
	default:
		return nil, fmt.Errorf("unsupported system instruction %d", tag)
	}
}

func readKey(dec *bin.Decoder) (solana.PublicKey, error) {
	raw, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(raw)
}
