package refdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const catalogCSV = "Pump,Compressor,Sensor\n" +
	"Seal leak,Surge,Drift\n" +
	"Bearing wear,Valve damage,Stuck reading\n" +
	",Fouling,\n"

func TestFailureModes(t *testing.T) {
	path := writeFile(t, "catalog.csv", catalogCSV)

	modes, err := FailureModes(path, "pump")
	require.NoError(t, err)
	assert.Equal(t, []string{"Seal leak", "Bearing wear"}, modes)

	modes, err = FailureModes(path, "Compressor")
	require.NoError(t, err)
	assert.Equal(t, []string{"Surge", "Valve damage", "Fouling"}, modes)

	_, err = FailureModes(path, "Turbine")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestFailureModesSensorMapping(t *testing.T) {
	path := writeFile(t, "catalog.csv", catalogCSV)

	// Every instrument-style type name folds into the Sensor column.
	for _, typ := range []string{
		"Pressure Transmitter", "level switch", "Gas Detector", "Temperature Gauge",
	} {
		modes, err := FailureModes(path, typ)
		require.NoError(t, err, typ)
		assert.Equal(t, []string{"Drift", "Stuck reading"}, modes, typ)
	}
}

func TestAddFailureMode(t *testing.T) {
	path := writeFile(t, "catalog.csv", catalogCSV)

	added, err := AddFailureMode(path, "Pump", "Cavitation")
	require.NoError(t, err)
	assert.True(t, added)

	modes, err := FailureModes(path, "Pump")
	require.NoError(t, err)
	assert.Equal(t, []string{"Seal leak", "Bearing wear", "Cavitation"}, modes)

	// Duplicates are rejected case-insensitively.
	added, err = AddFailureMode(path, "Pump", "cavitation")
	require.NoError(t, err)
	assert.False(t, added)
}

func TestAddFailureModeNewColumn(t *testing.T) {
	path := writeFile(t, "catalog.csv", catalogCSV)

	added, err := AddFailureMode(path, "Turbine", "Blade erosion")
	require.NoError(t, err)
	assert.True(t, added)

	modes, err := FailureModes(path, "Turbine")
	require.NoError(t, err)
	assert.Equal(t, []string{"Blade erosion"}, modes)

	// The existing columns survive the rewrite.
	modes, err = FailureModes(path, "Pump")
	require.NoError(t, err)
	assert.Equal(t, []string{"Seal leak", "Bearing wear"}, modes)
}

func TestAddFailureModeCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.csv")

	added, err := AddFailureMode(path, "Pump", "Seal leak")
	require.NoError(t, err)
	assert.True(t, added)

	modes, err := FailureModes(path, "Pump")
	require.NoError(t, err)
	assert.Equal(t, []string{"Seal leak"}, modes)
}

const specsCSV = "ITEM,POWER,RPM,VOLTAGE\n" +
	"103-KM-101,250 kW,2975,6.6 kV\n" +
	"113-PM-116A,45 kW,1480,\n"

func TestMotorSpecs(t *testing.T) {
	path := writeFile(t, "specs.csv", specsCSV)

	specs, found, err := MotorSpecs(path, "103-km-101")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, map[string]string{
		"ITEM": "103-KM-101", "POWER": "250 kW", "RPM": "2975", "VOLTAGE": "6.6 kV",
	}, specs)

	// Blank cells are dropped from the result.
	specs, found, err = MotorSpecs(path, "113-PM-116A")
	require.NoError(t, err)
	require.True(t, found)
	_, hasVoltage := specs["VOLTAGE"]
	assert.False(t, hasVoltage)

	_, found, err = MotorSpecs(path, "999-XX-999")
	require.NoError(t, err)
	assert.False(t, found)
}
