package util

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTPFormat(t *testing.T) {
	re := regexp.MustCompile(`^[0-9]{4}$`)
	for i := 0; i < 200; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		assert.Regexp(t, re, code)
	}
}

func TestGeneratePrescriptionIDFormat(t *testing.T) {
	re := regexp.MustCompile(`^RX-[0-9A-F]{8}$`)
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		id, err := GeneratePrescriptionID()
		require.NoError(t, err)
		assert.Regexp(t, re, id)
		seen[id] = struct{}{}
	}
	assert.Greater(t, len(seen), 190)
}

func TestResetTokenHashing(t *testing.T) {
	raw, err := GenerateResetToken()
	require.NoError(t, err)
	assert.Len(t, raw, 64)

	h := HashToken(raw)
	assert.Len(t, h, 64)
	assert.NotEqual(t, raw, h)
	assert.Equal(t, h, HashToken(raw))
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, SecureCompare("1234", "1234"))
	assert.False(t, SecureCompare("1234", "1235"))
	assert.False(t, SecureCompare("1234", ""))
}
