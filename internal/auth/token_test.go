package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/videotube/backend/internal/models"
)

func testAccount() *models.Account {
	return &models.Account{
		ID:       primitive.NewObjectID(),
		Email:    "a@x.com",
		Username: "alice",
		FullName: "Alice A",
	}
}

func TestNewTokenIssuerValidatesConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mut  func(*TokenConfig)
	}{
		{"missing access secret", func(c *TokenConfig) { c.AccessSecret = "" }},
		{"missing refresh secret", func(c *TokenConfig) { c.RefreshSecret = "" }},
		{"shared secret", func(c *TokenConfig) { c.RefreshSecret = c.AccessSecret }},
		{"zero access ttl", func(c *TokenConfig) { c.AccessTTL = 0 }},
		{"negative refresh ttl", func(c *TokenConfig) { c.RefreshTTL = -time.Second }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testTokenConfig
			tt.mut(&cfg)
			_, err := NewTokenIssuer(cfg)
			require.Error(t, err)
		})
	}
}

func TestAccessTokenClaims(t *testing.T) {
	t.Parallel()

	now := t0
	issuer := newTestIssuer(t, &now)
	acct := testAccount()

	raw, err := issuer.IssueAccess(acct)
	require.NoError(t, err)

	claims, err := issuer.VerifyAccess(raw)
	require.NoError(t, err)
	require.Equal(t, acct.ID.Hex(), claims.AccountID)
	require.Equal(t, "a@x.com", claims.Email)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "Alice A", claims.FullName)
	require.True(t, t0.Add(time.Hour).Equal(claims.ExpiresAt.Time))
}

func TestRefreshTokenCarriesOnlyID(t *testing.T) {
	t.Parallel()

	now := t0
	issuer := newTestIssuer(t, &now)
	id := primitive.NewObjectID().Hex()

	first, err := issuer.IssueRefresh(id)
	require.NoError(t, err)
	second, err := issuer.IssueRefresh(id)
	require.NoError(t, err)
	require.NotEqual(t, first, second, "tokens minted in the same second must differ")

	claims, err := issuer.VerifyRefresh(first)
	require.NoError(t, err)
	require.Equal(t, id, claims.AccountID)

	var raw jwt.MapClaims
	_, _, err = jwt.NewParser().ParseUnverified(first, &raw)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"_id", "jti", "iat", "exp"}, keys(raw))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestSecretsAreNotInterchangeable(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, nil)
	acct := testAccount()

	access, err := issuer.IssueAccess(acct)
	require.NoError(t, err)
	refresh, err := issuer.IssueRefresh(acct.ID.Hex())
	require.NoError(t, err)

	_, err = issuer.VerifyRefresh(access)
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = issuer.VerifyAccess(refresh)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpiryBoundaryIsExclusive(t *testing.T) {
	t.Parallel()

	now := t0
	issuer := newTestIssuer(t, &now)

	raw, err := issuer.IssueAccess(testAccount())
	require.NoError(t, err)

	now = t0.Add(time.Hour - time.Second)
	_, err = issuer.VerifyAccess(raw)
	require.NoError(t, err)

	now = t0.Add(time.Hour)
	_, err = issuer.VerifyAccess(raw)
	require.ErrorIs(t, err, ErrTokenExpired)

	now = t0.Add(2 * time.Hour)
	_, err = issuer.VerifyAccess(raw)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRejectsTampering(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, nil)
	raw, err := issuer.IssueAccess(testAccount())
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.VerifyAccess("not.a.token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("foreign secret", func(t *testing.T) {
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
			AccountID: primitive.NewObjectID().Hex(),
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString([]byte("someone-else"))
		require.NoError(t, err)
		_, err = issuer.VerifyAccess(forged)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{
			AccountID: primitive.NewObjectID().Hex(),
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.VerifyAccess(unsigned)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing expiry", func(t *testing.T) {
		noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
			AccountID: primitive.NewObjectID().Hex(),
		}).SignedString([]byte(testTokenConfig.AccessSecret))
		require.NoError(t, err)
		_, err = issuer.VerifyAccess(noExp)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("flipped signature", func(t *testing.T) {
		i := strings.LastIndex(raw, ".") + 1
		flipped := "A"
		if raw[i] == 'A' {
			flipped = "B"
		}
		_, err := issuer.VerifyAccess(raw[:i] + flipped + raw[i+1:])
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}
