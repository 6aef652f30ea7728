package sessioncode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateLengthAndAlphabet(t *testing.T) {
	code, err := Generate(16)
	require.NoError(t, err)
	require.Len(t, code, 16)
	for _, r := range code {
		require.True(t, strings.ContainsRune(alphabet, r), "unexpected character %q", r)
	}
}

func TestGenerateDefaultsLength(t *testing.T) {
	code, err := Generate(0)
	require.NoError(t, err)
	require.Len(t, code, DefaultLength)
}

func TestGenerateUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		code, err := Generate(16)
		require.NoError(t, err)
		_, dup := seen[code]
		require.False(t, dup, "duplicate code %s after %d draws", code, i)
		seen[code] = struct{}{}
	}
}
