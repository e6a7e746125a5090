package smart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeSizes(t *testing.T) {
	assert.Equal(t, 33, commandSize)
	assert.Equal(t, 16, resultHeaderSize)
	assert.Equal(t, 6162, attributeResultSize)
	assert.Equal(t, 528, identifyResultSize)
	assert.Equal(t, 24, statusResultSize)
	assert.Equal(t, 24, versionSize)
}

func TestEncodeCommandLayout(t *testing.T) {
	b := encodeCommand(CommandParameter{
		BufferSize:  0x0200,
		Registers:   smartRegisters(ReadData),
		DriveNumber: 3,
	})
	require.Len(t, b, commandSize)
	assert.Equal(t, []byte{0x00, 0x02, 0x00, 0x00}, b[0:4])
	assert.Equal(t, []byte{0xD0, 0, 0, 0x4F, 0xC2, 0, 0xB0, 0}, b[4:12])
	assert.Equal(t, byte(3), b[12])
	assert.Equal(t, make([]byte, 20), b[13:])

	_, ok := DecodeCommand(b[:12])
	assert.False(t, ok)
}

func TestNewResultHeader(t *testing.T) {
	b := NewResult(statusResultSize, DriverStatus{DriverError: 1, IDEError: 4}, []byte{0xAA})
	require.Len(t, b, statusResultSize)
	assert.Equal(t, []byte{8, 0, 0, 0, 1, 4}, b[0:6])
	assert.Equal(t, byte(0xAA), b[resultHeaderSize])
	assert.Equal(t, DriverStatus{DriverError: 1, IDEError: 4}, decodeDriverStatus(b))
}

func TestAttributeRecordLayout(t *testing.T) {
	a := AttributeValue{ID: 0xC2, Flags: 0x1234, Value: 36, Worst: 52, Raw: [6]byte{1, 2, 3, 4, 5, 6}, Reserved: 9}
	b := make([]byte, recordSize)
	a.put(b)
	assert.Equal(t, []byte{0xC2, 0x34, 0x12, 36, 52, 1, 2, 3, 4, 5, 6, 9}, b)
	assert.Equal(t, uint64(0x060504030201), a.RawValue())
}

func TestDecodeATAString(t *testing.T) {
	assert.Equal(t, "AD", DecodeATAString([]byte{0x44, 0x41, 0x20, 0x20}))
	assert.Equal(t, "", DecodeATAString([]byte{0, 0, 0x20, 0x20}))
	assert.Equal(t, "ST31000524AS", DecodeATAString(EncodeATAString("ST31000524AS", 40)))
	// odd trailing byte is kept as is
	assert.Equal(t, "BAC", DecodeATAString([]byte{'A', 'B', 'C'}))
	// bytes map to Latin-1 code points
	assert.Equal(t, "é", DecodeATAString([]byte{0x20, 0xE9}))
}

func TestAttributeName(t *testing.T) {
	assert.Equal(t, "Temperature", AttributeName(Temperature))
	assert.Equal(t, "Power-On Hours", AttributeName(0x09))
	assert.Equal(t, "Unknown (0xFE)", AttributeName(0xFE))
}
