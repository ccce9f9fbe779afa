package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onsd/pkg/domain"
)

func TestValidator_RoundTrip(t *testing.T) {
	v := NewValidator("test-key")

	signed, err := v.Sign(domain.CallerID("owner"))
	require.NoError(t, err)

	caller, err := v.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, domain.CallerID("owner"), caller)
}

func TestValidator_RejectsWrongKey(t *testing.T) {
	signed, err := NewValidator("key-a").Sign(domain.CallerID("owner"))
	require.NoError(t, err)

	_, err = NewValidator("key-b").ValidateToken(signed)
	assert.Error(t, err)
}

func TestValidator_RejectsGarbage(t *testing.T) {
	_, err := NewValidator("test-key").ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestValidator_RejectsEmptySubject(t *testing.T) {
	v := NewValidator("test-key")
	signed, err := v.Sign(domain.CallerID(""))
	require.NoError(t, err)

	_, err = v.ValidateToken(signed)
	assert.Error(t, err, "empty subject must not resolve to a caller")
}
