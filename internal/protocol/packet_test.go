package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/uart-reader/internal/errors"
)

func TestChecksum(t *testing.T) {
	// CRC-8/SMBUS 标准校验值
	assert.Equal(t, byte(0xF4), Checksum([]byte("123456789")))
	assert.Equal(t, byte(0x00), Checksum(nil))

	head := []byte{0x07, 0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47}
	head = append(head, bytes.Repeat([]byte{0xFF}, 9)...)
	assert.Equal(t, byte(0x39), Checksum(head))
}

func TestEncode(t *testing.T) {
	p, err := Encode([]byte("ABCDEFG"))
	require.NoError(t, err)

	want := []byte{
		0x07, 0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
		0xFF, 0x39,
	}
	assert.Equal(t, want, p.Bytes())
	assert.Equal(t, 7, p.Length())
	assert.Equal(t, []byte("ABCDEFG"), p.Data())
	assert.Equal(t, byte(0x39), p.CRC())
	assert.True(t, p.Valid())
}

func TestEncode_Bounds(t *testing.T) {
	empty, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Length())
	assert.Equal(t, bytes.Repeat([]byte{PaddingByte}, DataLength), empty.Bytes()[1:17])
	assert.True(t, empty.Valid())

	full, err := Encode(bytes.Repeat([]byte{0x5A}, DataLength))
	require.NoError(t, err)
	assert.Equal(t, DataLength, full.Length())
	assert.True(t, full.Valid())

	_, err = Encode(make([]byte, DataLength+1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPacketTooLong))
}

func TestPacket_Valid(t *testing.T) {
	p, err := Encode([]byte{0x01, 0x02})
	require.NoError(t, err)

	corrupted := p
	corrupted[2] ^= 0x01
	assert.False(t, corrupted.Valid())

	badLength := p
	badLength[0] = 0x20
	badLength[CRCInputLength] = Checksum(badLength[:CRCInputLength])
	assert.False(t, badLength.Valid())
	assert.Len(t, badLength.Data(), DataLength)
}
