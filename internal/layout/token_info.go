package layout

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	bin "github.com/gagliardetto/binary"

	"solana-token-transfer/internal/domain"
)

// TokenInfoSpace is the space allocated for a TokenInfo account: 8+32+32+1+32+32.
const TokenInfoSpace = 8 + 32 + 32 + 1 + 32 + 32

// TokenInfoDiscriminator prefixes every TokenInfo account.
var TokenInfoDiscriminator = AccountDiscriminator("TokenInfo")

// MaxTokenInfoTextLength is the combined byte budget for name and symbol:
// the allocation minus discriminator, two u32 length prefixes, decimals and two keys.
const MaxTokenInfoTextLength = TokenInfoSpace - DiscriminatorLength - 4 - 4 - 1 - 32 - 32

// EncodeTokenInfo writes the discriminator and Borsh body, zero padded to space bytes.
func EncodeTokenInfo(info *domain.TokenInfo, space int) ([]byte, error) {
	var buf bytes.Buffer
	enc := bin.NewBorshEncoder(&buf)

	if err := enc.WriteBytes(TokenInfoDiscriminator[:], false); err != nil {
		return nil, err
	}
	if err := writeString(enc, info.Name); err != nil {
		return nil, fmt.Errorf("encode name: %w", err)
	}
	if err := writeString(enc, info.Symbol); err != nil {
		return nil, fmt.Errorf("encode symbol: %w", err)
	}
	if err := enc.WriteUint8(info.Decimals); err != nil {
		return nil, fmt.Errorf("encode decimals: %w", err)
	}
	if err := enc.WriteBytes(info.Mint[:], false); err != nil {
		return nil, fmt.Errorf("encode mint: %w", err)
	}
	if err := enc.WriteBytes(info.Authority[:], false); err != nil {
		return nil, fmt.Errorf("encode authority: %w", err)
	}

	if buf.Len() > space {
		return nil, fmt.Errorf("%w: token info needs %d bytes, have %d", ErrDataTooLarge, buf.Len(), space)
	}
	out := make([]byte, space)
	copy(out, buf.Bytes())
	return out, nil
}

// DecodeTokenInfo checks the discriminator and decodes the Borsh body.
// Trailing zero padding is ignored.
func DecodeTokenInfo(data []byte) (*domain.TokenInfo, error) {
	if len(data) < DiscriminatorLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidLength, len(data))
	}
	if !bytes.Equal(data[:DiscriminatorLength], TokenInfoDiscriminator[:]) {
		return nil, ErrDiscriminatorMismatch
	}
	dec := bin.NewBorshDecoder(data[DiscriminatorLength:])

	var info domain.TokenInfo
	var err error
	if info.Name, err = readString(dec); err != nil {
		return nil, fmt.Errorf("decode name: %w", err)
	}
	if info.Symbol, err = readString(dec); err != nil {
		return nil, fmt.Errorf("decode symbol: %w", err)
	}
	if info.Decimals, err = dec.ReadUint8(); err != nil {
		return nil, fmt.Errorf("decode decimals: %w", err)
	}
	if info.Mint, err = readKey(dec); err != nil {
		return nil, fmt.Errorf("decode mint: %w", err)
	}
	if info.Authority, err = readKey(dec); err != nil {
		return nil, fmt.Errorf("decode authority: %w", err)
	}
	return &info, nil
}

// writeString writes a Borsh string: u32 LE length then UTF-8 bytes.
func writeString(enc *bin.Encoder, s string) error {
	if err := enc.WriteUint32(uint32(len(s)), bin.LE); err != nil {
		return err
	}
	return enc.WriteBytes([]byte(s), false)
}

func readString(dec *bin.Decoder) (string, error) {
	n, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return "", err
	}
	if int(n) > dec.Remaining() {
		return "", fmt.Errorf("string length %d exceeds remaining %d bytes", n, dec.Remaining())
	}
	raw, err := dec.ReadNBytes(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", ErrInvalidUTF8
	}
	return string(raw), nil
}
