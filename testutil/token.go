package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// MakeToken signs a JWT for subject that expires at exp.
// A zero exp produces a token without an expiry claim.
func MakeToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: subject}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return token
}
