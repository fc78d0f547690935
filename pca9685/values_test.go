package pca9685

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type testSuite struct {
	t *testing.T
	*require.Assertions
}

func (suite *testSuite) T() *testing.T {
	return suite.t
}

func (suite *testSuite) SetT(t *testing.T) {
	suite.t = t
	suite.Assertions = require.New(t)
}

func TestAll(t *testing.T) {
	suite.Run(t, new(testSuite))
}

// Examples from the PCA9685 manual page 17

func (s *testSuite) TestExample1() {
	onL, onH, offL, offH := ValuesDelayed(0.1, 0.2)
	s.Equal(byte(0x01), onH, "LED ON HIGH")
	s.Equal(byte(0x99), onL, "LED ON LOW")
	s.Equal(byte(0x04), offH, "LED OFF HIGH")
	s.Equal(byte(0xcc), offL, "LED OFF LOW")
}

func (s *testSuite) TestExample2() {
	onL, onH, offL, offH := ValuesDelayed(0.9, 0.9)
	s.Equal(byte(0x0e), onH, "LED ON HIGH")
	s.Equal(byte(0x65), onL, "LED ON LOW")
	s.Equal(byte(0x0c), offH, "LED OFF HIGH")
	s.Equal(byte(0xcb), offL, "LED OFF LOW")
}

// Example from the PCA9685 manual page 25

func (s *testSuite) TestPrescale() {
	s.Equal(FREQ_MIN_PRESALE, Prescaler(FREQ_MIN), "min freq prescale")
	s.Equal(FREQ_MAX_PRESCALE, Prescaler(FREQ_MAX), "max freq prescale")
	s.Equal(byte(0x1e), Prescaler(200), "example prescale")
}

func (s *testSuite) TestFullValues() {
	onL, onH, offL, offH := Values(0)
	s.Equal([]byte{0, 0, 0, FULL_OFF_BIT}, []byte{onL, onH, offL, offH})
	onL, onH, offL, offH = Values(1)
	s.Equal([]byte{0, FULL_ON_BIT, 0, 0}, []byte{onL, onH, offL, offH})
	onL, onH, offL, offH = Values(0.5)
	s.Equal([]byte{0, 0, 0xff, 0x07}, []byte{onL, onH, offL, offH})
}

func (s *testSuite) TestOutputRegisters() {
	s.Equal(byte(0x06), Output(0))
	s.Equal(byte(0x0a), Output(1))
	s.Equal(byte(0x42), Output(15))
}

func (s *testSuite) TestPwmOutputUpdate() {
	var out PwmOutput

	// First update writes everything
	b := out.Update(LED0, []float64{0, 1, 0, 0})
	s.Len(b, 1+4*BYTE_PER_OUTPUT)
	s.Equal(LED0, b[0])

	// Unchanged state writes nothing
	s.Nil(out.Update(LED0, []float64{0, 1, 0, 0}))

	// Only the changed middle range is written
	b = out.Update(LED0, []float64{0, 0, 1, 0})
	s.Equal(append([]byte{Output(1)}, 0, 0, 0, FULL_OFF_BIT, 0, FULL_ON_BIT, 0, 0), b)

	out.Invalidate()
	b = out.Update(LED0, []float64{0, 0, 1, 0})
	s.Len(b, 1+4*BYTE_PER_OUTPUT)
}
