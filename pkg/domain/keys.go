// Package domain holds the typed identifiers shared across the registry.
// Keys are caller-supplied opaque tokens; the registry never generates them.
// Typed wrappers keep a record key from being passed where a code key is
// expected, and parsing enforces the token invariants at trust boundaries.
package domain

import (
	"fmt"

	dErrors "onsd/pkg/domain-errors"
)

// MaxKeyLen bounds key tokens. The wire format of the original resolution
// records used fixed 32-byte identifiers; 64 leaves room for hex encodings.
const MaxKeyLen = 64

// CodeKey identifies a GS1 code.
type CodeKey string

// RecordKey identifies an ONS resolution record.
type RecordKey string

// ServiceKey identifies a service type.
type ServiceKey string

// CallerID identifies the principal performing a mutation. It is threaded
// explicitly through every mutating call rather than read from ambient state.
type CallerID string

// LanguageCode selects a per-language documentation entry, e.g. "en" or
// "de-CH". It is not validated against any language registry.
type LanguageCode string

func (k CodeKey) String() string    { return string(k) }
func (k RecordKey) String() string  { return string(k) }
func (k ServiceKey) String() string { return string(k) }
func (c CallerID) String() string   { return string(c) }

// validateToken enforces the shared key invariants: non-empty, bounded, and
// printable ASCII with no whitespace. Tokens are otherwise opaque.
func validateToken(kind, s string) error {
	if s == "" {
		return dErrors.New(dErrors.CodeValidation, kind+" must not be empty")
	}
	if len(s) > MaxKeyLen {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("%s exceeds %d bytes", kind, MaxKeyLen))
	}
	for i := 0; i < len(s); i++ {
		if s[i] <= 0x20 || s[i] > 0x7e {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("%s contains invalid byte at position %d", kind, i))
		}
	}
	return nil
}

func ParseCodeKey(s string) (CodeKey, error) {
	if err := validateToken("code key", s); err != nil {
		return "", err
	}
	return CodeKey(s), nil
}

func ParseRecordKey(s string) (RecordKey, error) {
	if err := validateToken("record key", s); err != nil {
		return "", err
	}
	return RecordKey(s), nil
}

func ParseServiceKey(s string) (ServiceKey, error) {
	if err := validateToken("service key", s); err != nil {
		return "", err
	}
	return ServiceKey(s), nil
}

func ParseCallerID(s string) (CallerID, error) {
	if err := validateToken("caller id", s); err != nil {
		return "", err
	}
	return CallerID(s), nil
}
