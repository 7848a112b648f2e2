package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"blog_auth/internal/lib/logger/sl"
	"blog_auth/internal/models"
	"blog_auth/internal/storage"
)

var ErrSessionRevoked = errors.New("refresh session revoked or unknown")

type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, encoded string) (bool, error)
}

// * TokenHashStore хранит единственный хеш refresh токена пользователя
type TokenHashStore interface {
	UserByID(ctx context.Context, id int64) (models.User, error)
	UpdateRefreshTokenHash(ctx context.Context, userID int64, hash *string) error
}

type Registry struct {
	log    *slog.Logger
	hasher Hasher
	store  TokenHashStore
}

func New(log *slog.Logger, hasher Hasher, store TokenHashStore) *Registry {
	return &Registry{
		log:    log,
		hasher: hasher,
		store:  store,
	}
}

// * Rotate перезаписывает хеш; предыдущий refresh токен пользователя перестает проходить Validate
func (r *Registry) Rotate(ctx context.Context, userID int64, refreshToken string) error {
	const op = "registry.Rotate"

	log := r.log.With(slog.String("op", op), slog.Int64("user_id", userID))

	hash, err := r.hasher.Hash(refreshToken)
	if err != nil {
		log.Error("failed to hash refresh token", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := r.store.UpdateRefreshTokenHash(ctx, userID, &hash); err != nil {
		log.Error("failed to store refresh token hash", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("refresh token rotated")

	return nil
}

// * Revoke очищает хеш; все выданные refresh токены пользователя становятся недействительными
func (r *Registry) Revoke(ctx context.Context, userID int64) error {
	const op = "registry.Revoke"

	log := r.log.With(slog.String("op", op), slog.Int64("user_id", userID))

	if err := r.store.UpdateRefreshTokenHash(ctx, userID, nil); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", op, ErrSessionRevoked)
		}

		log.Error("failed to clear refresh token hash", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("refresh session revoked")

	return nil
}

func (r *Registry) Validate(ctx context.Context, userID int64, refreshToken string) error {
	const op = "registry.Validate"

	log := r.log.With(slog.String("op", op), slog.Int64("user_id", userID))

	user, err := r.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("refresh for unknown user")

			return fmt.Errorf("%s: %w", op, ErrSessionRevoked)
		}

		log.Error("failed to load user", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	if user.HashedRefreshToken == nil {
		log.Info("no active refresh session")

		return fmt.Errorf("%s: %w", op, ErrSessionRevoked)
	}

	ok, err := r.hasher.Verify(refreshToken, *user.HashedRefreshToken)
	if err != nil {
		log.Error("stored refresh token hash is malformed", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	if !ok {
		log.Info("refresh token does not match active session")

		return fmt.Errorf("%s: %w", op, ErrSessionRevoked)
	}

	return nil
}
