package lobby

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.True(t, ValidCodeFormat(code), code)
		assert.False(t, strings.ContainsAny(code, "IO01"), code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestValidCodeFormat(t *testing.T) {
	for code, want := range map[string]bool{
		"AB12CD":  true,
		"ab12cd":  false,
		"AB12C":   false,
		"AB12CDE": false,
		"AB-2CD":  false,
		"":        false,
	} {
		assert.Equal(t, want, ValidCodeFormat(code), code)
	}
}
