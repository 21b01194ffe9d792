package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "taskflow-test-secret"

func init() {
	SetJWTSecret(testSecret)
}

func TestGenerateToken_RoundTripPerRole(t *testing.T) {
	tests := []struct {
		userID   uint
		username string
		role     string
	}{
		{1, "root", "admin"},
		{2, "mia", "manager"},
		{3, "alice", "member"},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			token, err := GenerateToken(tt.userID, tt.username, tt.role, 24)
			if err != nil {
				t.Fatalf("GenerateToken() error = %v", err)
			}
			claims, err := ParseToken(token)
			if err != nil {
				t.Fatalf("ParseToken() error = %v", err)
			}
			if claims.UserID != tt.userID || claims.Username != tt.username || claims.Role != tt.role {
				t.Errorf("claims = %+v", claims)
			}
			if claims.Issuer != "taskflow" {
				t.Errorf("Issuer = %q, expected taskflow", claims.Issuer)
			}
		})
	}
}

func TestGenerateToken_DistinctIDs(t *testing.T) {
	token1, _ := GenerateToken(7, "alice", "member", 24)
	token2, _ := GenerateToken(7, "alice", "member", 24)
	if token1 == token2 {
		t.Fatal("tokens issued back to back must differ")
	}

	c1, _ := ParseToken(token1)
	c2, _ := ParseToken(token2)
	if c1.ID == "" || c1.ID == c2.ID {
		t.Errorf("token ids %q and %q should be set and distinct", c1.ID, c2.ID)
	}
}

func TestGenerateToken_ExpiryWindow(t *testing.T) {
	before := time.Now()
	token, _ := GenerateToken(1, "alice", "member", 2)
	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	diff := claims.ExpiresAt.Time.Sub(before.Add(2 * time.Hour))
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("expiry off by %v", diff)
	}
	if claims.IssuedAt == nil || claims.NotBefore == nil {
		t.Error("iat and nbf should be set")
	}
}

func TestParseToken_Expired(t *testing.T) {
	token, _ := GenerateToken(1, "alice", "member", -1)

	_, err := ParseToken(token)
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseToken_Malformed(t *testing.T) {
	for _, token := range []string{
		"",
		"garbage",
		"a.b.c",
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.e30.bad-signature",
	} {
		if _, err := ParseToken(token); err == nil {
			t.Errorf("ParseToken(%q) should fail", token)
		}
	}
}

func TestParseToken_RejectsUnsignedToken(t *testing.T) {
	claims := Claims{UserID: 1, Username: "root", Role: "admin"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	if _, err := ParseToken(token); err == nil {
		t.Error("alg=none tokens must be rejected")
	}
}

func TestSetJWTSecret_RotationInvalidatesTokens(t *testing.T) {
	defer SetJWTSecret(testSecret)

	SetJWTSecret("first")
	token, _ := GenerateToken(1, "alice", "member", 24)
	if _, err := ParseToken(token); err != nil {
		t.Fatalf("token should parse under its own secret: %v", err)
	}

	SetJWTSecret("second")
	if _, err := ParseToken(token); err == nil {
		t.Error("token signed with the old secret should be rejected")
	}
}
