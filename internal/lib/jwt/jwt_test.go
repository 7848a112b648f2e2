package jwt

import (
	"strings"
	"testing"
	"time"

	"blog_auth/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUser = models.User{ID: 42, Email: "a@x.com", Name: "A", Role: models.RoleAdmin}

func testConfig() Config {
	return Config{
		Issuer:  "blog-api",
		Access:  SigningConfig{Secret: "access-secret", TTL: 15 * time.Minute},
		Refresh: SigningConfig{Secret: "refresh-secret", TTL: 7 * 24 * time.Hour},
	}
}

func newIssuer(t *testing.T, opts ...Option) *Issuer {
	t.Helper()

	i, err := New(testConfig(), opts...)
	require.NoError(t, err)

	return i
}

func TestIssue_RoundTrip(t *testing.T) {
	i := newIssuer(t)

	pair, err := i.Issue(testUser)
	require.NoError(t, err)

	p, err := i.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.Principal{UserID: 42, Email: "a@x.com", Role: models.RoleAdmin}, p)

	p, err = i.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.UserID)
}

func TestIssue_TokensAreNotInterchangeable(t *testing.T) {
	i := newIssuer(t)

	pair, err := i.Issue(testUser)
	require.NoError(t, err)

	_, err = i.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = i.ParseRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssue_SameInstantYieldsDistinctTokens(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	i := newIssuer(t, WithClock(func() time.Time { return now }))

	first, err := i.Issue(testUser)
	require.NoError(t, err)
	second, err := i.Issue(testUser)
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
}

func TestParse_Expired(t *testing.T) {
	issuedAt := time.Now().Add(-time.Hour)
	past := newIssuer(t, WithClock(func() time.Time { return issuedAt }))

	pair, err := past.Issue(testUser)
	require.NoError(t, err)

	_, err = newIssuer(t).ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// refresh ttl еще не истек
	_, err = newIssuer(t).ParseRefresh(pair.RefreshToken)
	assert.NoError(t, err)
}

func TestParse_FlippedBitFails(t *testing.T) {
	i := newIssuer(t)

	pair, err := i.Issue(testUser)
	require.NoError(t, err)

	segments := strings.Split(pair.AccessToken, ".")
	require.Len(t, segments, 3)

	for s := range segments {
		parts := strings.Split(pair.AccessToken, ".")
		b := []byte(parts[s])
		b[len(b)/2] ^= 0x01
		parts[s] = string(b)

		_, err := i.ParseAccess(strings.Join(parts, "."))
		assert.ErrorIs(t, err, ErrInvalidToken, "segment %d", s)
	}
}

func TestParse_RejectsForeignSecretAndAlgNone(t *testing.T) {
	i := newIssuer(t)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: models.RoleAdmin,
		Type: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    "blog-api",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := forged.SignedString([]byte("attacker"))
	require.NoError(t, err)

	_, err = i.ParseAccess(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, forged.Claims)
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = i.ParseAccess(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_RejectsUnknownRole(t *testing.T) {
	i := newIssuer(t)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: models.Role("ROOT"),
		Type: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    "blog-api",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := tok.SignedString([]byte("access-secret"))
	require.NoError(t, err)

	_, err = i.ParseAccess(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNew_ValidatesConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"empty secret":      func(c *Config) { c.Access.Secret = "" },
		"same secret":       func(c *Config) { c.Refresh.Secret = c.Access.Secret },
		"zero access ttl":   func(c *Config) { c.Access.TTL = 0 },
		"access >= refresh": func(c *Config) { c.Access.TTL = c.Refresh.TTL },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(&cfg)

			_, err := New(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
