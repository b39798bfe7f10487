package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyPrefersEnvironment(t *testing.T) {
	t.Setenv(OpenRouterEnv, "sk-or-test")

	key, err := APIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-or-test", key)
}
