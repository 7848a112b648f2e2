package session

import (
	"strings"
	"testing"
	"time"

	"blog_auth/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "edge-session-key-0123456789abcdef"

func testPayload() Payload {
	return Payload{
		User: User{
			ID:    7,
			Name:  "Alice",
			Email: "a@x.com",
			Role:  models.RoleUser,
		},
		AccessToken:  "access.jwt.token",
		RefreshToken: "refresh.jwt.token",
	}
}

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	c, err := New(testKey, fixedClock(now))
	require.NoError(t, err)

	tok, err := c.Encode(testPayload())
	require.NoError(t, err)

	env, err := c.Decode(tok)
	require.NoError(t, err)

	assert.Equal(t, testPayload(), env.Payload)
	assert.Equal(t, now.UTC(), env.IssuedAt)
	assert.Equal(t, now.Add(DefaultTTL).UTC(), env.ExpiresAt)
}

func TestDecode_Expired(t *testing.T) {
	issued := time.Now().Add(-DefaultTTL - time.Minute)

	old, err := New(testKey, fixedClock(issued))
	require.NoError(t, err)

	tok, err := old.Encode(testPayload())
	require.NoError(t, err)

	current, err := New(testKey)
	require.NoError(t, err)

	_, err = current.Decode(tok)
	assert.ErrorIs(t, err, ErrInvalidEnvelope)
}

func TestDecode_JustBeforeExpiry(t *testing.T) {
	issued := time.Now().Add(-DefaultTTL + time.Minute)

	old, err := New(testKey, fixedClock(issued))
	require.NoError(t, err)

	tok, err := old.Encode(testPayload())
	require.NoError(t, err)

	current, err := New(testKey)
	require.NoError(t, err)

	_, err = current.Decode(tok)
	assert.NoError(t, err)
}

func TestDecode_WrongKey(t *testing.T) {
	a, err := New(testKey)
	require.NoError(t, err)
	b, err := New(strings.Repeat("k", 40))
	require.NoError(t, err)

	tok, err := a.Encode(testPayload())
	require.NoError(t, err)

	_, err = b.Decode(tok)
	assert.ErrorIs(t, err, ErrInvalidEnvelope)
}

func TestDecode_Tampered(t *testing.T) {
	c, err := New(testKey)
	require.NoError(t, err)

	tok, err := c.Encode(testPayload())
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	b := []byte(parts[1])
	b[len(b)/2] ^= 0x01
	parts[1] = string(b)

	_, err = c.Decode(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrInvalidEnvelope)

	_, err = c.Decode("")
	assert.ErrorIs(t, err, ErrInvalidEnvelope)
}

func TestDecode_RejectsInvalidUser(t *testing.T) {
	c, err := New(testKey)
	require.NoError(t, err)

	p := testPayload()
	p.User.Role = models.Role("ROOT")

	tok, err := c.Encode(p)
	require.NoError(t, err)

	_, err = c.Decode(tok)
	assert.ErrorIs(t, err, ErrInvalidEnvelope)
}

func TestNew_RejectsShortKey(t *testing.T) {
	_, err := New("short")
	assert.ErrorIs(t, err, ErrWeakKey)
}

func TestWithTTL(t *testing.T) {
	c, err := New(testKey, WithTTL(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, time.Hour, c.TTL())
}
