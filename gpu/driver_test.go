package gpu

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDriver struct {
	name    string
	formats ShaderFormat
	err     error
	opened  int
}

func (d *testDriver) Name() string          { return d.name }
func (d *testDriver) Formats() ShaderFormat { return d.formats }

func (d *testDriver) Open(debug bool) (Device, error) {
	d.opened++
	if d.err != nil {
		return nil, d.err
	}
	return nil, nil
}

func withDrivers(t *testing.T, drvs ...Driver) {
	mu.Lock()
	saved := drivers
	drivers = nil
	mu.Unlock()
	for _, d := range drvs {
		Register(d)
	}
	t.Cleanup(func() {
		mu.Lock()
		drivers = saved
		mu.Unlock()
	})
}

func TestRegisterReplacesByName(t *testing.T) {
	first := &testDriver{name: "a", formats: ShaderFormatSPIRV}
	second := &testDriver{name: "a", formats: ShaderFormatMSL}
	withDrivers(t, first, &testDriver{name: "b"}, second)

	assert.Equal(t, []string{"a", "b"}, Drivers())

	_, err := CreateDevice(ShaderFormatMSL, false, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, first.opened)
	assert.Equal(t, 1, second.opened)
}

func TestCreateDeviceSelectsByFormat(t *testing.T) {
	dxil := &testDriver{name: "dxil", formats: ShaderFormatDXIL}
	spirv := &testDriver{name: "spirv", formats: ShaderFormatSPIRV}
	withDrivers(t, dxil, spirv)

	_, err := CreateDevice(ShaderFormatSPIRV|ShaderFormatMSL, true, "")
	require.NoError(t, err)
	assert.Equal(t, 0, dxil.opened)
	assert.Equal(t, 1, spirv.opened)
}

func TestCreateDeviceFallsThroughFailedDrivers(t *testing.T) {
	broken := &testDriver{name: "broken", formats: ShaderFormatSPIRV, err: errors.New("no icd")}
	working := &testDriver{name: "working", formats: ShaderFormatSPIRV}
	withDrivers(t, broken, working)

	_, err := CreateDevice(ShaderFormatSPIRV, false, "")
	require.NoError(t, err)
	assert.Equal(t, 1, broken.opened)
	assert.Equal(t, 1, working.opened)
}

func TestCreateDeviceErrors(t *testing.T) {
	broken := &testDriver{name: "broken", formats: ShaderFormatSPIRV, err: errors.New("no icd")}
	withDrivers(t, broken)

	_, err := CreateDevice(ShaderFormatSPIRV, false, "")
	assert.True(t, errors.Is(err, ErrNoDriver))

	_, err = CreateDevice(ShaderFormatSPIRV, false, "missing")
	assert.True(t, errors.Is(err, ErrNoDriver))

	_, err = CreateDevice(ShaderFormatDXIL, false, "broken")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = CreateDevice(ShaderFormatSPIRV, false, "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no icd")
}

func TestShaderFormatString(t *testing.T) {
	assert.Equal(t, "SPIRV|DXIL|MSL", (ShaderFormatSPIRV | ShaderFormatDXIL | ShaderFormatMSL).String())
	assert.Equal(t, "MSL", ShaderFormatMSL.String())
	assert.Equal(t, "Invalid", ShaderFormatInvalid.String())
}
