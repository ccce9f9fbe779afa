package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "onsd/pkg/domain-errors"
)

// TestParseKey_Invariants validates the token invariant enforced at trust
// boundaries: keys are non-empty, bounded, printable-ASCII tokens.
func TestParseKey_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseCodeKey("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects oversized token", func(t *testing.T) {
		_, err := ParseRecordKey(strings.Repeat("a", MaxKeyLen+1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("accepts token at the length bound", func(t *testing.T) {
		key, err := ParseRecordKey(strings.Repeat("a", MaxKeyLen))
		require.NoError(t, err)
		assert.Len(t, key.String(), MaxKeyLen)
	})

	t.Run("rejects whitespace", func(t *testing.T) {
		_, err := ParseServiceKey("SVC 1")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects non-ASCII bytes", func(t *testing.T) {
		_, err := ParseCallerID("owner\x80")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("accepts opaque printable tokens", func(t *testing.T) {
		key, err := ParseCodeKey("urn:epc:id:sgtin:0614141.107346.2017")
		require.NoError(t, err)
		assert.Equal(t, "urn:epc:id:sgtin:0614141.107346.2017", key.String())
	})
}
