package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/nenuphar/config"
)

func TestDefaultMatchesDocumentedDefaults(t *testing.T) {
	f := config.Default()
	assert.False(t, f.DebugElaborate)
	assert.True(t, f.WarnPortBinding)
	assert.True(t, f.WarnInfLoop)
	assert.True(t, f.SpecifyBlocks)
	assert.False(t, f.Synthesis)
	assert.False(t, f.ErrorImplicit)
}

func TestFromEnvironReadsProcessEnvironment(t *testing.T) {
	t.Setenv("IVL_DEBUG_ELABORATE", "true")
	t.Setenv("IVL_WARN_PORTBINDING", "false")
	t.Setenv("IVL_SYNTHESIS", "true")

	f, err := config.FromEnviron()
	require.NoError(t, err)
	assert.True(t, f.DebugElaborate)
	assert.False(t, f.WarnPortBinding)
	assert.True(t, f.Synthesis)
	// unset variables still fall back to their documented defaults.
	assert.True(t, f.WarnInfLoop)
	assert.True(t, f.SpecifyBlocks)
}

func TestFromEnviron0IgnoresProcessEnvironment(t *testing.T) {
	t.Setenv("IVL_DEBUG_ELABORATE", "true")

	f, err := config.FromEnviron0()
	require.NoError(t, err)
	assert.False(t, f.DebugElaborate, "FromEnviron0 must not read the real environment")
}
