// Package auth verifies the bearer capability tokens presented to the
// bridge.
//
// Tokens are JWTs signed with the community's Ed25519 root key (EdDSA). The
// bridge holds only the public half and verifies offline; it never issues
// tokens itself. A token carries a "role" claim ("cosigner" or "watch-only")
// and, for cosigners, the "xpub" claim identifying the wallet.
package auth

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token roles.
const (
	RoleCosigner  = "cosigner"
	RoleWatchOnly = "watch-only"
)

// ErrInvalidToken is returned for any token that fails verification:
// bad signature, wrong algorithm, malformed claims or expired.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the custom claims carried by bridge tokens.
type Claims struct {
	Role string `json:"role"`
	Xpub string `json:"xpub,omitempty"`
	jwt.RegisteredClaims
}

// TokenService verifies bearer tokens against the root public key.
type TokenService struct {
	rootKey ed25519.PublicKey
}

// NewTokenService creates a TokenService for the given root public key.
func NewTokenService(rootKey ed25519.PublicKey) *TokenService {
	return &TokenService{rootKey: rootKey}
}

// Verify parses and verifies a bearer token, returning its claims.
// Expiry is enforced when the token carries an "exp" claim.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.rootKey, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateToken signs a token with the root private key. The bridge never
// calls this in production; it exists for token issuance tooling and tests.
func GenerateToken(rootKey ed25519.PrivateKey, role, xpub string, expiresAt *time.Time) (string, error) {
	claims := Claims{
		Role: role,
		Xpub: xpub,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	if expiresAt != nil {
		claims.ExpiresAt = jwt.NewNumericDate(*expiresAt)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(rootKey)
}

// ParseRootPublicKey decodes a 32-byte hex-encoded Ed25519 public key.
func ParseRootPublicKey(s string) (ed25519.PublicKey, error) {
	keyBytes, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("root public key is not valid hex: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("root public key must be %d bytes, got %d",
			ed25519.PublicKeySize, len(keyBytes))
	}
	return ed25519.PublicKey(keyBytes), nil
}
