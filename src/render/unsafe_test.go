package render

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSliceUint32(t *testing.T) {
	words := sliceUint32([]byte{0x01, 0x00, 0x00, 0x00, 0xff, 0x00, 0x00, 0x00})
	require.Len(t, words, 2)
	require.Equal(t, uint32(1), words[0])
	require.Equal(t, uint32(255), words[1])
}

func TestStructBytes(t *testing.T) {
	type payload struct {
		A uint32
		B uint32
	}
	p := payload{A: 1, B: 2}
	raw := structBytes(&p)
	require.Len(t, raw, 8)
	require.Equal(t, byte(1), raw[0])
	require.Equal(t, byte(2), raw[4])
}

func TestSliceBytes(t *testing.T) {
	require.Nil(t, sliceBytes([]uint32(nil)))

	raw := sliceBytes([]uint32{7, 9})
	require.Len(t, raw, 8)
	require.Equal(t, byte(7), raw[0])
	require.Equal(t, byte(9), raw[4])
}
