// Package token validates the HMAC-signed bearer tokens callers present.
// The subject claim is the caller identity; no other claims are interpreted.
package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"onsd/pkg/domain"
)

type Validator struct {
	signingKey []byte
}

func NewValidator(signingKey string) *Validator {
	return &Validator{signingKey: []byte(signingKey)}
}

// ValidateToken parses and verifies an HS256 token and returns its subject
// as the caller identity.
func (v *Validator) ValidateToken(tokenString string) (domain.CallerID, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.signingKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return "", errors.New("invalid token")
	}
	subject, err := parsed.Claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("subject claim: %w", err)
	}
	return domain.ParseCallerID(subject)
}

// Sign issues a token for caller. Used by tests and by operators minting
// admin credentials out of band.
func (v *Validator) Sign(caller domain.CallerID) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": caller.String(),
	})
	return t.SignedString(v.signingKey)
}
