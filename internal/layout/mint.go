package layout

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"solana-token-transfer/internal/domain"
)

// MintSize is the packed size of a token mint.
const MintSize = 82

// EncodeMint packs a mint into its 82-byte layout:
// mint_authority COption<Pubkey> | supply u64 | decimals u8 | is_initialized u8 | freeze_authority COption<Pubkey>.
func EncodeMint(m *domain.Mint) ([]byte, error) {
	var buf bytes.Buffer
	enc := bin.NewBorshEncoder(&buf)

	if err := writeOptionalKey(enc, m.MintAuthority); err != nil {
		return nil, fmt.Errorf("encode mint authority: %w", err)
	}
	if err := enc.WriteUint64(m.Supply, bin.LE); err != nil {
		return nil, fmt.Errorf("encode supply: %w", err)
	}
	if err := enc.WriteUint8(m.Decimals); err != nil {
		return nil, fmt.Errorf("encode decimals: %w", err)
	}
	if err := enc.WriteBool(m.IsInitialized); err != nil {
		return nil, fmt.Errorf("encode is_initialized: %w", err)
	}
	if err := writeOptionalKey(enc, m.FreezeAuthority); err != nil {
		return nil, fmt.Errorf("encode freeze authority: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeMint unpacks mint state. Uninitialized mints return ErrUninitialized.
func DecodeMint(data []byte) (*domain.Mint, error) {
	m, err := decodeMintUnchecked(data)
	if err != nil {
		return nil, err
	}
	if !m.IsInitialized {
		return nil, ErrUninitialized
	}
	return m, nil
}

// IsMintInitialized reports whether data holds an initialized mint, without
// failing on zeroed buffers.
func IsMintInitialized(data []byte) bool {
	m, err := decodeMintUnchecked(data)
	return err == nil && m.IsInitialized
}

func decodeMintUnchecked(data []byte) (*domain.Mint, error) {
	if len(data) != MintSize {
		return nil, fmt.Errorf("%w: mint is %d bytes, want %d", ErrInvalidLength, len(data), MintSize)
	}
	dec := bin.NewBorshDecoder(data)

	var m domain.Mint
	var err error
	if m.MintAuthority, err = readOptionalKey(dec); err != nil {
		return nil, fmt.Errorf("decode mint authority: %w", err)
	}
	if m.Supply, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, fmt.Errorf("decode supply: %w", err)
	}
	if m.Decimals, err = dec.ReadUint8(); err != nil {
		return nil, fmt.Errorf("decode decimals: %w", err)
	}
	if m.IsInitialized, err = readBool(dec); err != nil {
		return nil, fmt.Errorf("decode is_initialized: %w", err)
	}
	if m.FreezeAuthority, err = readOptionalKey(dec); err != nil {
		return nil, fmt.Errorf("decode freeze authority: %w", err)
	}
	return &m, nil
}
