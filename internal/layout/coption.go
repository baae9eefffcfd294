package layout

import (
	bin "github.com/gagliardetto/binary"

	"solana-token-transfer/internal/solana"
)

// COption<Pubkey> and COption<u64> use a 4-byte little-endian tag.

func writeOptionalKey(enc *bin.Encoder, key *solana.PublicKey) error {
	if key == nil {
		if err := enc.WriteUint32(0, bin.LE); err != nil {
			return err
		}
		return enc.WriteBytes(make([]byte, solana.PublicKeyLength), false)
	}
	if err := enc.WriteUint32(1, bin.LE); err != nil {
		return err
	}
	return enc.WriteBytes(key[:], false)
}

func readOptionalKey(dec *bin.Decoder) (*solana.PublicKey, error) {
	tag, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, err
	}
	key, err := readKey(dec)
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		return nil, nil
	case 1:
		return &key, nil
	default:
		return nil, ErrInvalidOption
	}
}

func writeOptionalUint64(enc *bin.Encoder, v *uint64) error {
	if v == nil {
		if err := enc.WriteUint32(0, bin.LE); err != nil {
			return err
		}
		return enc.WriteUint64(0, bin.LE)
	}
	if err := enc.WriteUint32(1, bin.LE); err != nil {
		return err
	}
	return enc.WriteUint64(*v, bin.LE)
}

func readOptionalUint64(dec *bin.Decoder) (*uint64, error) {
	tag, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, err
	}
	v, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		return nil, nil
	case 1:
		return &v, nil
	default:
		return nil, ErrInvalidOption
	}
}

func readKey(dec *bin.Decoder) (solana.PublicKey, error) {
	raw, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(raw)
}

func readBool(dec *bin.Decoder) (bool, error) {
	b, err := dec.ReadUint8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrInvalidOption
	}
}
