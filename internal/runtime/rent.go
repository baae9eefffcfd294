package runtime

import (
	"bytes"
	"fmt"
	"math"

	bin "github.com/gagliardetto/binary"
)

const (
	// AccountStorageOverhead is the per-account byte overhead charged for rent.
	AccountStorageOverhead = 128

	DefaultLamportsPerByteYear = 3480
	DefaultExemptionThreshold  = 2.0
	DefaultBurnPercent         = 50

	// RentSysvarSize is the bincode size of the rent sysvar.
	RentSysvarSize = 17
)

// Rent holds the rent parameters published through the rent sysvar.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
	BurnPercent         uint8
}

// DefaultRent returns mainnet rent parameters.
func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionThreshold:  DefaultExemptionThreshold,
		BurnPercent:         DefaultBurnPercent,
	}
}

// MinimumBalance returns the lamports needed for an account of dataLen bytes to be rent exempt.
func (r Rent) MinimumBalance(dataLen int) uint64 {
	bytesYear := uint64(AccountStorageOverhead+dataLen) * r.LamportsPerByteYear
	return uint64(float64(bytesYear) * r.ExemptionThreshold)
}

// IsExempt reports whether lamports cover the exemption minimum.
func (r Rent) IsExempt(lamports uint64, dataLen int) bool {
	return lamports >= r.MinimumBalance(dataLen)
}

// MarshalBinary encodes the sysvar: u64 LE, f64 LE, u8.
func (r Rent) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	enc := bin.NewBinEncoder(&buf)
	if err := enc.WriteUint64(r.LamportsPerByteYear, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(math.Float64bits(r.ExemptionThreshold), bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(r.BurnPercent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RentFromBytes decodes the rent sysvar account data.
func RentFromBytes(data []byte) (Rent, error) {
	if len(data) < RentSysvarSize {
		return Rent{}, fmt.Errorf("rent sysvar: %d bytes, want %d", len(data), RentSysvarSize)
	}
	dec := bin.NewBinDecoder(data)
	perByte, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return Rent{}, err
	}
	threshold, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return Rent{}, err
	}
	burn, err := dec.ReadUint8()
	if err != nil {
		return Rent{}, err
	}
	return Rent{
		LamportsPerByteYear: perByte,
		ExemptionThreshold:  math.Float64frombits(threshold),
		BurnPercent:         burn,
	}, nil
}
