package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemperature(t *testing.T) {
	v, ok := Temperature(thermStatusValid|20<<16, 90, 1)
	assert.True(t, ok)
	assert.Equal(t, float32(70), v)

	// delta is seven bits wide
	v, ok = Temperature(thermStatusValid|0xFF<<16, 100, 1)
	assert.True(t, ok)
	assert.Equal(t, float32(100-0x7F), v)

	for _, eax := range []uint32{0, 20 << 16, 0x7FFFFFFF} {
		_, ok = Temperature(eax, 90, 1)
		assert.False(t, ok, "eax %#x", eax)
	}
}

func TestCoreMultiplier(t *testing.T) {
	eax := uint32(0x0000_4A1C)
	assert.Equal(t, 28.0, CoreMultiplier(Nehalem, eax))
	assert.Equal(t, 74.0, CoreMultiplier(SandyBridge, eax))
	assert.Equal(t, 10.5, CoreMultiplier(Core, eax))
	assert.Equal(t, 10.5, CoreMultiplier(Atom, eax))
	assert.Equal(t, 10.5, CoreMultiplier(Unknown, eax))
}

func TestCoreClockIsPure(t *testing.T) {
	eax := uint32(0x0000_0C00)
	c1, b1 := CoreClock(Core, eax, 2666, 10)
	c2, b2 := CoreClock(Core, eax, 2666, 10)
	assert.Equal(t, c1, c2)
	assert.Equal(t, b1, b2)
	assert.InDelta(t, 266.6, b1, 1e-9)
	assert.InDelta(t, 12*266.6, c1, 1e-9)
}

func TestTSCMultiplierDecoders(t *testing.T) {
	assert.Equal(t, 9.5, perfStatusTSCMultiplier(0x0000_4900))
	assert.Equal(t, 11.0, perfStatusTSCMultiplier(0x0000_0B00))
	assert.Equal(t, 34.0, platformInfoTSCMultiplier(0x0001_2200))
	assert.Equal(t, float32(98), decodeTjMax(0x0A62_0000))
}
