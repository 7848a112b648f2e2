package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"blog_auth/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultTTL   = 7 * 24 * time.Hour
	minKeyLength = 32
	issuer       = "blog-edge"
)

var (
	ErrInvalidEnvelope = errors.New("invalid session envelope")
	ErrWeakKey         = errors.New("session key is too short")
)

type User struct {
	ID    int64       `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

// * Payload то, что кладет edge слой в cookie: пользователь и пара токенов API
type Payload struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Envelope struct {
	Payload
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type claims struct {
	Payload
	jwt.RegisteredClaims
}

// * Codec подписывает конверт сессии ключом edge слоя (не ключами API)
type Codec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

type Option func(*Codec)

func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(c *Codec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func New(secret string, opts ...Option) (*Codec, error) {
	const op = "session.New"

	if len(secret) < minKeyLength {
		return nil, fmt.Errorf("%s: %w", op, ErrWeakKey)
	}

	c := &Codec{
		key: []byte(secret),
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// * Encode выставляет iat=now и exp=now+ttl, переданные значения не учитываются
func (c *Codec) Encode(p Payload) (string, error) {
	const op = "session.Encode"

	now := c.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Payload: p,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.User.ID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	})

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

func (c *Codec) Decode(tokenStr string) (Envelope, error) {
	const op = "session.Decode"

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(c.now),
	)

	var cl claims

	token, err := parser.ParseWithClaims(tokenStr, &cl, func(t *jwt.Token) (interface{}, error) {
		return c.key, nil
	})
	if err != nil {
		return Envelope{}, fmt.Errorf("%s: %w: %v", op, ErrInvalidEnvelope, err)
	}

	if !token.Valid || cl.IssuedAt == nil || cl.User.ID <= 0 || !cl.User.Role.Valid() {
		return Envelope{}, fmt.Errorf("%s: %w", op, ErrInvalidEnvelope)
	}

	if cl.Subject != strconv.FormatInt(cl.User.ID, 10) {
		return Envelope{}, fmt.Errorf("%s: %w: subject mismatch", op, ErrInvalidEnvelope)
	}

	return Envelope{
		Payload:   cl.Payload,
		IssuedAt:  cl.IssuedAt.Time.UTC(),
		ExpiresAt: cl.ExpiresAt.Time.UTC(),
	}, nil
}
