package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onboardhq/sharefile-connect/internal/config"
)

func TestEnvVars_GetPort(t *testing.T) {
	t.Run("default when unset", func(t *testing.T) {
		t.Setenv("PORT", "")
		require.Equal(t, ":8080", config.EnvVars{}.GetPort())
	})

	t.Run("bare port gets a colon prefix", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		require.Equal(t, ":9090", config.EnvVars{}.GetPort())
	})

	t.Run("already prefixed port is kept as-is", func(t *testing.T) {
		t.Setenv("PORT", ":9090")
		require.Equal(t, ":9090", config.EnvVars{}.GetPort())
	})
}
