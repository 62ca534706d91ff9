package alerting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRulesEmptyPath(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)
}

func TestLoadRulesOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "temperature_high: 750\nvibration_warning: 4.5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)

	assert.Equal(t, 750.0, rules.TemperatureHigh)
	assert.Equal(t, 4.5, rules.VibrationWarning)
	// Untouched fields keep their defaults.
	assert.Equal(t, 400.0, rules.GasIndexHigh)
	assert.Equal(t, 8.0, rules.VibrationCritical)
}

func TestLoadRulesBadFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("temperature_high: [nope"), 0o600))
	_, err = LoadRules(path)
	require.Error(t, err)
}
