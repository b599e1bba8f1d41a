package orders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFormat(t *testing.T) {
	gen, err := NewOrderNumberGenerator("test-salt")
	require.NoError(t, err)

	n := gen.Generate()
	assert.True(t, strings.HasPrefix(n, "SOUK-"), "got %q", n)
	assert.GreaterOrEqual(t, len(n), len("SOUK-")+10)
}

func TestGenerateUnique(t *testing.T) {
	gen, err := NewOrderNumberGenerator("test-salt")
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		n := gen.Generate()
		_, dup := seen[n]
		require.False(t, dup, "duplicate order number %q", n)
		seen[n] = struct{}{}
	}
}
