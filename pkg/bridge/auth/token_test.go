package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeyPair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub, priv
}

func TestVerifyCosignerToken(t *testing.T) {
	pub, priv := newKeyPair(t)
	svc := NewTokenService(pub)

	tok, err := GenerateToken(priv, RoleCosigner, "xpub1", nil)
	require.NoError(t, err)

	claims, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, RoleCosigner, claims.Role)
	assert.Equal(t, "xpub1", claims.Xpub)
}

func TestVerifyWatchOnlyToken(t *testing.T) {
	pub, priv := newKeyPair(t)
	svc := NewTokenService(pub)

	tok, err := GenerateToken(priv, RoleWatchOnly, "", nil)
	require.NoError(t, err)

	claims, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, RoleWatchOnly, claims.Role)
	assert.Empty(t, claims.Xpub)
}

func TestVerifyExpiredToken(t *testing.T) {
	pub, priv := newKeyPair(t)
	svc := NewTokenService(pub)

	past := time.Now().Add(-time.Minute)
	tok, err := GenerateToken(priv, RoleCosigner, "xpub1", &past)
	require.NoError(t, err)

	_, err = svc.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyNotYetExpiredToken(t *testing.T) {
	pub, priv := newKeyPair(t)
	svc := NewTokenService(pub)

	future := time.Now().Add(time.Hour)
	tok, err := GenerateToken(priv, RoleCosigner, "xpub1", &future)
	require.NoError(t, err)

	_, err = svc.Verify(tok)
	assert.NoError(t, err)
}

func TestVerifyWrongKey(t *testing.T) {
	_, priv := newKeyPair(t)
	otherPub, _ := newKeyPair(t)
	svc := NewTokenService(otherPub)

	tok, err := GenerateToken(priv, RoleCosigner, "xpub1", nil)
	require.NoError(t, err)

	_, err = svc.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbageToken(t *testing.T) {
	pub, _ := newKeyPair(t)
	svc := NewTokenService(pub)

	_, err := svc.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRootPublicKey(t *testing.T) {
	pub, _ := newKeyPair(t)

	// round trip through hex
	parsed, err := ParseRootPublicKey(hex.EncodeToString(pub))
	require.NoError(t, err)
	assert.Equal(t, pub, parsed)

	// not hex
	_, err = ParseRootPublicKey("invalid")
	assert.Error(t, err)

	// wrong length
	_, err = ParseRootPublicKey("0606bc5f1e32cb636c96911fc3e97174609d51ee5304a319610f451e8b1112")
	assert.Error(t, err)
}
