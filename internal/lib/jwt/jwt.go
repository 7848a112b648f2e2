package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"blog_auth/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidConfig = errors.New("invalid token config")
)

// * SigningConfig отдельный секрет и срок жизни для каждого типа токена
type SigningConfig struct {
	Secret string
	TTL    time.Duration
}

type Config struct {
	Issuer  string
	Access  SigningConfig
	Refresh SigningConfig
}

type Claims struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	Type  string      `json:"typ"`
	jwt.RegisteredClaims
}

type Issuer struct {
	cfg Config
	now func() time.Time
}

type Option func(*Issuer)

func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

func New(cfg Config, opts ...Option) (*Issuer, error) {
	const op = "jwt.New"

	switch {
	case cfg.Access.Secret == "" || cfg.Refresh.Secret == "":
		return nil, fmt.Errorf("%s: %w: empty secret", op, ErrInvalidConfig)
	case cfg.Access.Secret == cfg.Refresh.Secret:
		return nil, fmt.Errorf("%s: %w: access and refresh secrets must differ", op, ErrInvalidConfig)
	case cfg.Access.TTL <= 0:
		return nil, fmt.Errorf("%s: %w: access ttl must be positive", op, ErrInvalidConfig)
	case cfg.Access.TTL >= cfg.Refresh.TTL:
		return nil, fmt.Errorf("%s: %w: access ttl must be shorter than refresh ttl", op, ErrInvalidConfig)
	}

	i := &Issuer{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}

	return i, nil
}

func (i *Issuer) AccessTTL() time.Duration {
	return i.cfg.Access.TTL
}

// * Issue подписывает один и тот же набор claims дважды: access и refresh ключами
func (i *Issuer) Issue(user models.User) (models.TokenPair, error) {
	const op = "jwt.Issue"

	access, err := i.sign(user, TypeAccess, i.cfg.Access)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: access: %w", op, err)
	}

	refresh, err := i.sign(user, TypeRefresh, i.cfg.Refresh)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: refresh: %w", op, err)
	}

	return models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func (i *Issuer) ParseAccess(tokenStr string) (models.Principal, error) {
	return i.parse(tokenStr, TypeAccess, i.cfg.Access.Secret)
}

func (i *Issuer) ParseRefresh(tokenStr string) (models.Principal, error) {
	return i.parse(tokenStr, TypeRefresh, i.cfg.Refresh.Secret)
}

func (i *Issuer) sign(user models.User, typ string, sc SigningConfig) (string, error) {
	now := i.now()

	claims := Claims{
		Email: user.Email,
		Role:  user.Role,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sc.TTL)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(sc.Secret))
}

func (i *Issuer) parse(tokenStr, typ, secret string) (models.Principal, error) {
	const op = "jwt.parse"

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithTimeFunc(i.now),
	)

	claims := &Claims{}

	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return models.Principal{}, fmt.Errorf("%s: %w: %v", op, ErrInvalidToken, err)
	}

	if !token.Valid || claims.Type != typ {
		return models.Principal{}, fmt.Errorf("%s: %w: unexpected token type", op, ErrInvalidToken)
	}

	uid, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return models.Principal{}, fmt.Errorf("%s: %w: bad subject", op, ErrInvalidToken)
	}

	if !claims.Role.Valid() {
		return models.Principal{}, fmt.Errorf("%s: %w: bad role", op, ErrInvalidToken)
	}

	return models.Principal{
		UserID: uid,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}
