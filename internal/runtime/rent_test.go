package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRent_MinimumBalance(t *testing.T) {
	rent := DefaultRent()

	tests := []struct {
		name    string
		dataLen int
		want    uint64
	}{
		{"system account", 0, 890_880},
		{"mint", 82, 1_461_600},
		{"token info", 137, 1_844_400},
		{"token account", 165, 2_039_280},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rent.MinimumBalance(tt.dataLen))
			assert.True(t, rent.IsExempt(tt.want, tt.dataLen))
			assert.False(t, rent.IsExempt(tt.want-1, tt.dataLen))
		})
	}
}

func TestRent_SysvarEncoding(t *testing.T) {
	data, err := DefaultRent().MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, RentSysvarSize)
	assert.Equal(t, []byte{0x98, 0x0d, 0, 0, 0, 0, 0, 0}, data[:8])

	decoded, err := RentFromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, DefaultRent(), decoded)

	_, err = RentFromBytes(data[:10])
	assert.Error(t, err)
}
