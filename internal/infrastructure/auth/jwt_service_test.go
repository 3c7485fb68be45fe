package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/you/incidentsvc/domain"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", "incidentsvc-admin", time.Hour)

	token, err := svc.GenerateAdminToken("ops@example.org")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := svc.ValidateAdminToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "ops@example.org" {
		t.Errorf("expected subject ops@example.org, got %q", claims.Subject)
	}
	if !claims.Admin {
		t.Error("expected admin claim")
	}
	if claims.ExpiresAt-claims.IssuedAt != int64(time.Hour.Seconds()) {
		t.Errorf("unexpected lifetime %d", claims.ExpiresAt-claims.IssuedAt)
	}
}

func TestJWTService_ValidateAdminToken(t *testing.T) {
	svc := NewJWTService("secret", "incidentsvc-admin", time.Hour)
	now := time.Now()

	sign := func(method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	tests := []struct {
		name          string
		token         string
		expectedError error
	}{
		{
			name: "expired token",
			token: sign(jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{
				"sub": "a", "admin": true, "iss": "incidentsvc-admin",
				"iat": now.Add(-2 * time.Hour).Unix(), "exp": now.Add(-time.Hour).Unix(),
			}),
			expectedError: domain.ErrTokenExpired,
		},
		{
			name: "missing admin claim",
			token: sign(jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{
				"sub": "a", "iss": "incidentsvc-admin", "exp": now.Add(time.Hour).Unix(),
			}),
			expectedError: domain.ErrNotAdmin,
		},
		{
			name: "admin claim false",
			token: sign(jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{
				"sub": "a", "admin": false, "iss": "incidentsvc-admin", "exp": now.Add(time.Hour).Unix(),
			}),
			expectedError: domain.ErrNotAdmin,
		},
		{
			name: "wrong secret",
			token: sign(jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{
				"sub": "a", "admin": true, "iss": "incidentsvc-admin", "exp": now.Add(time.Hour).Unix(),
			}),
			expectedError: domain.ErrTokenInvalid,
		},
		{
			name: "wrong issuer",
			token: sign(jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{
				"sub": "a", "admin": true, "iss": "someone-else", "exp": now.Add(time.Hour).Unix(),
			}),
			expectedError: domain.ErrTokenInvalid,
		},
		{
			name: "no expiry",
			token: sign(jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{
				"sub": "a", "admin": true, "iss": "incidentsvc-admin",
			}),
			expectedError: domain.ErrTokenInvalid,
		},
		{
			name:          "garbage",
			token:         "not.a.jwt",
			expectedError: domain.ErrTokenMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAdminToken(tt.token)
			if !errors.Is(err, tt.expectedError) {
				t.Errorf("expected %v, got %v", tt.expectedError, err)
			}
		})
	}
}
