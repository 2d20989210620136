package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWTValidator_HS256(t *testing.T) {
	t.Parallel()

	v, err := NewJWTValidator("s3cret", "")
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	token, err := SignHS256("s3cret", "alice", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := v.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Username() != "alice" {
		t.Fatalf("unexpected subject %q", claims.Username())
	}
}

func TestJWTValidator_Rejections(t *testing.T) {
	t.Parallel()

	v, err := NewJWTValidator("s3cret", "")
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	wrongKey, _ := SignHS256("other", "alice", time.Minute)
	expired, _ := SignHS256("s3cret", "alice", -time.Hour)
	noSubject, _ := SignHS256("s3cret", "", time.Minute)

	cases := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "  ", ErrMissingToken},
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"wrong key", wrongKey, ErrInvalidToken},
		{"expired", expired, ErrInvalidToken},
		{"missing subject", noSubject, ErrInvalidToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.Validate(tc.token); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v got %v", tc.want, err)
			}
		})
	}
}

func TestJWTValidator_RS256(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	pub := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	v, err := NewJWTValidator("", string(pub))
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   "bob",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.Validate(token); err != nil {
		t.Fatalf("validate: %v", err)
	}

	hmacToken, _ := SignHS256("s3cret", "bob", time.Minute)
	if _, err := v.Validate(hmacToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("HS256 token must be rejected when a public key is set, got %v", err)
	}
}

func TestNewJWTValidator_BadPEM(t *testing.T) {
	t.Parallel()

	if _, err := NewJWTValidator("", "-----BEGIN PUBLIC KEY-----\nnope\n-----END PUBLIC KEY-----"); err == nil {
		t.Fatal("expected error for malformed public key")
	}
}

func TestExtractToken(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/ws/auth?token=from-query", nil)
	if got := ExtractToken(req, ""); got != "from-query" {
		t.Fatalf("query token: %q", got)
	}
	req.Header.Set("Authorization", "bearer from-header")
	if got := ExtractToken(req, "token"); got != "from-header" {
		t.Fatalf("header token should win: %q", got)
	}
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if got := ExtractToken(req, "token"); got != "from-query" {
		t.Fatalf("non-bearer schemes should be ignored: %q", got)
	}
}
