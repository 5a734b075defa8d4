package jwt

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndValidate(t *testing.T) {
	s := NewSigner("secret", "go-inventory-uom", time.Hour)
	token, err := s.GenerateToken("u-1", "gudang@example.com", "Gudang", []string{"transformation:execute"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := s.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "u-1" || claims.Name != "Gudang" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.HasPrivilege("transformation:execute") || claims.HasPrivilege("stock:restore") {
		t.Fatalf("unexpected privileges: %v", claims.Privileges)
	}
}

func TestValidateRejects(t *testing.T) {
	s := NewSigner("secret", "go-inventory-uom", time.Hour)
	other := NewSigner("other", "go-inventory-uom", time.Hour)
	foreign, _ := other.GenerateToken("u-1", "", "", nil)
	defaultTTL, _ := NewSigner("secret", "go-inventory-uom", -1).GenerateToken("u-1", "", "", nil)
	wrongIssuer, _ := NewSigner("secret", "someone-else", time.Hour).GenerateToken("u-1", "", "", nil)

	cases := map[string]struct {
		token string
		want  error
	}{
		"empty":        {"", ErrMissingToken},
		"garbage":      {"not-a-token", ErrInvalidToken},
		"wrong secret": {foreign, ErrInvalidToken},
		"wrong issuer": {wrongIssuer, ErrInvalidToken},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := s.ValidateToken(tc.token); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	// A negative ttl falls back to the default, so this token is still valid.
	if _, err := s.ValidateToken(defaultTTL); err != nil {
		t.Fatalf("expected default ttl token to validate, got %v", err)
	}
}
