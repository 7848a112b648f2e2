package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB uint32 = 8 * 1024
	minSaltLen  uint32 = 16
	minKeyLen   uint32 = 16
	algorithmID        = "argon2id"
)

var (
	ErrInvalidConfig = errors.New("invalid argon2 config")
	ErrInvalidHash   = errors.New("invalid argon2 hash")
)

type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// * Argon2 хеширует пароли и refresh токены в формате PHC ($argon2id$v=19$m=...,t=...,p=...$salt$hash)
type Argon2 struct {
	cfg Config
}

func New(cfg Config) (*Argon2, error) {
	const op = "password.New"

	switch {
	case cfg.Memory < minMemoryKB:
		return nil, fmt.Errorf("%s: %w: memory must be >= %d KB", op, ErrInvalidConfig, minMemoryKB)
	case cfg.Time < 1:
		return nil, fmt.Errorf("%s: %w: time must be >= 1", op, ErrInvalidConfig)
	case cfg.Parallelism < 1:
		return nil, fmt.Errorf("%s: %w: parallelism must be >= 1", op, ErrInvalidConfig)
	case cfg.SaltLength < minSaltLen:
		return nil, fmt.Errorf("%s: %w: salt length must be >= %d", op, ErrInvalidConfig, minSaltLen)
	case cfg.KeyLength < minKeyLen:
		return nil, fmt.Errorf("%s: %w: key length must be >= %d", op, ErrInvalidConfig, minKeyLen)
	}

	return &Argon2{cfg: cfg}, nil
}

func (a *Argon2) Hash(secret string) (string, error) {
	const op = "password.Hash"

	salt := make([]byte, a.cfg.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	key := argon2.IDKey([]byte(secret), salt, a.cfg.Time, a.cfg.Memory, a.cfg.Parallelism, a.cfg.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		a.cfg.Memory,
		a.cfg.Time,
		a.cfg.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// * Verify пересчитывает ключ с параметрами из хеша и сравнивает за постоянное время
func (a *Argon2) Verify(secret, encoded string) (bool, error) {
	const op = "password.Verify"

	p, err := parse(encoded)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	key := argon2.IDKey([]byte(secret), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))

	return subtle.ConstantTimeCompare(key, p.key) == 1, nil
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func parse(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return nil, ErrInvalidHash
	}

	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, ErrInvalidHash
	}

	var p phc

	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, ErrInvalidHash
		}

		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			return nil, ErrInvalidHash
		}

		switch k {
		case "m":
			p.memory = uint32(n)
		case "t":
			p.time = uint32(n)
		case "p":
			if n > 255 {
				return nil, ErrInvalidHash
			}
			p.parallelism = uint8(n)
		default:
			return nil, ErrInvalidHash
		}
	}

	if p.memory < minMemoryKB || p.time == 0 || p.parallelism == 0 {
		return nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < int(minSaltLen) {
		return nil, ErrInvalidHash
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) < int(minKeyLen) {
		return nil, ErrInvalidHash
	}

	p.salt = salt
	p.key = key

	return &p, nil
}
