package ads1115

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type txRecorder struct {
	writes [][]byte
	reads  [][]byte
	addrs  []uint16
}

func (r *txRecorder) Tx(addr uint16, w, read []byte) error {
	r.addrs = append(r.addrs, addr)
	r.writes = append(r.writes, w)
	if len(read) > 0 && len(r.reads) > 0 {
		copy(read, r.reads[0])
		r.reads = r.reads[1:]
	}
	return nil
}

func TestRegisterAddresses(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(byte(0), REG_CONVERSION)
	assert.Equal(byte(1), REG_CONFIG)
	assert.Equal(byte(2), REG_LO_THRESH)
	assert.Equal(byte(3), REG_HI_THRESH)
	assert.Equal(uint16(0x3000), CONFIG_MUX_23)
	assert.Equal(uint16(0x0400), CONFIG_PGA_2V)
	assert.Equal(uint16(0x0080), CONFIG_DR_128)
}

func TestWriteRegister(t *testing.T) {
	bus := new(txRecorder)
	require.NoError(t, WriteRegister(bus, ADDR_GND, REG_CONFIG, 0x1243))
	assert.Equal(t, []uint16{0x48}, bus.addrs)
	assert.Equal(t, [][]byte{{REG_CONFIG, 0x12, 0x43}}, bus.writes)
}

func TestReadRegister(t *testing.T) {
	bus := &txRecorder{reads: [][]byte{{0x7f, 0xff}, {0xff, 0xfe}}}
	v, err := ReadRegister(bus, ADDR_VDD, REG_CONVERSION)
	require.NoError(t, err)
	assert.Equal(t, int16(0x7fff), v)
	assert.Equal(t, []byte{REG_CONVERSION}, bus.writes[0])

	v, err = ReadRegisterDirectly(bus, ADDR_VDD)
	require.NoError(t, err)
	assert.Equal(t, int16(-2), v)
	assert.Nil(t, bus.writes[1])
}

func TestParseConversionRegister(t *testing.T) {
	_, err := ParseConversionRegister([]byte{1})
	assert.Error(t, err)
	v, err := ParseConversionRegister([]byte{0x80, 0x00})
	assert.NoError(t, err)
	assert.Equal(t, int16(-32768), v)
}
