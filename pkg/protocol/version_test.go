package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNegotiateVersion(t *testing.T) {
	t.Run("supported as requested", func(t *testing.T) {
		for _, v := range SupportedVersions {
			got, err := NegotiateVersion(v)
			require.NoError(t, err)
			assert.Equal(t, v, got)
		}
	})

	t.Run("future revision falls back to newest supported", func(t *testing.T) {
		got, err := NegotiateVersion("2099-12-31")
		require.NoError(t, err)
		assert.Equal(t, LatestVersion(), got)
	})

	t.Run("revision between supported picks older", func(t *testing.T) {
		got, err := NegotiateVersion("2025-01-01")
		require.NoError(t, err)
		assert.Equal(t, "2024-11-05", got)
	})

	t.Run("prehistoric revision has no overlap", func(t *testing.T) {
		_, err := NegotiateVersion("2020-01-01")
		require.Error(t, err)

		var mismatch *VersionMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "2020-01-01", mismatch.Requested)
		assert.Equal(t, SupportedVersions, mismatch.Supported)
	})
}

func TestLatestVersionIsNewest(t *testing.T) {
	latest := LatestVersion()
	for _, v := range SupportedVersions {
		assert.LessOrEqual(t, v, latest)
	}
}

func TestCapabilityTable(t *testing.T) {
	assert.Equal(t, CapabilityTools, RequiredCapability(MethodListTools))
	assert.Equal(t, CapabilityTools, RequiredCapability(MethodCallTool))
	assert.Equal(t, CapabilitySampling, RequiredCapability(MethodCreateMessage))
	assert.Equal(t, CapabilityCompletion, RequiredCapability(MethodComplete))

	// Lifecycle and utility methods are ungated.
	assert.Empty(t, RequiredCapability(MethodInitialize))
	assert.Empty(t, RequiredCapability(MethodPing))
	assert.Empty(t, RequiredCapability(MethodCancelRequest))
	assert.Empty(t, RequiredCapability(MethodProgress))
}

func TestCapabilityOwnership(t *testing.T) {
	assert.True(t, ClientOwnedCapability(CapabilitySampling))
	assert.False(t, ClientOwnedCapability(CapabilityTools))
	assert.False(t, ClientOwnedCapability(CapabilityLogging))
}
