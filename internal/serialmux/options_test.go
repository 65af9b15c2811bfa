package serialmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestPortOptions_Normalise_Defaults(t *testing.T) {
	got, err := PortOptions{}.Normalise()
	require.NoError(t, err)
	assert.Equal(t, PortOptions{BaudRate: ScannerBaudRate, DataBits: 8, StopBits: 1, Parity: "N"}, got)
}

func TestPortOptions_Normalise_Errors(t *testing.T) {
	for _, opts := range []PortOptions{
		{DataBits: 4},
		{DataBits: 9},
		{StopBits: 3},
		{Parity: "M"},
	} {
		_, err := opts.Normalise()
		assert.Error(t, err, "%+v", opts)
	}
}

func TestPortOptions_Normalise_ParityAliases(t *testing.T) {
	for in, want := range map[string]string{"none": "N", " even ": "E", "Odd": "O", "n": "N"} {
		got, err := PortOptions{Parity: in}.Normalise()
		require.NoError(t, err)
		assert.Equal(t, want, got.Parity, in)
	}
}

func TestPortOptions_SerialMode(t *testing.T) {
	mode, err := PortOptions{BaudRate: GridBaudRate, StopBits: 2, Parity: "E"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, &serial.Mode{
		BaudRate: GridBaudRate,
		DataBits: 8,
		Parity:   serial.EvenParity,
		StopBits: serial.TwoStopBits,
	}, mode)

	mode, err = PortOptions{}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)
	assert.Equal(t, serial.NoParity, mode.Parity)

	_, err = PortOptions{Parity: "X"}.SerialMode()
	assert.Error(t, err)
}

func TestNewRealSerialMux_BadOptions(t *testing.T) {
	_, err := NewRealSerialMux("/dev/null", PortOptions{DataBits: 12})
	assert.Error(t, err)

	_, err = NewRealSerialMux("/dev/null", PortOptions{ReadTimeout: "soon"})
	assert.ErrorContains(t, err, "read_timeout")
}
