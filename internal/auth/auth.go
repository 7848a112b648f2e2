package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"blog_auth/internal/lib/logger/sl"
	"blog_auth/internal/models"
	"blog_auth/internal/registry"
	"blog_auth/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrLoginLocked        = errors.New("too many failed login attempts")
)

// * LoginLockedError несет время до снятия блокировки, errors.Is(err, ErrLoginLocked) == true
type LoginLockedError struct {
	RetryAfter time.Duration
}

func (e *LoginLockedError) Error() string {
	return fmt.Sprintf("%s, retry after %s", ErrLoginLocked, e.RetryAfter)
}

func (e *LoginLockedError) Is(target error) bool {
	return target == ErrLoginLocked
}

type UserStore interface {
	SaveUser(ctx context.Context, email, name, passHash string, role models.Role) (int64, error)
	User(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id int64) (models.User, error)
	Users(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, encoded string) (bool, error)
}

type TokenIssuer interface {
	Issue(user models.User) (models.TokenPair, error)
	ParseRefresh(tokenStr string) (models.Principal, error)
}

type SessionRegistry interface {
	Rotate(ctx context.Context, userID int64, refreshToken string) error
	Revoke(ctx context.Context, userID int64) error
	Validate(ctx context.Context, userID int64, refreshToken string) error
}

type LoginThrottle interface {
	LoginLockedFor(ctx context.Context, email string, maxAttempts int) (time.Duration, error)
	RegisterLoginFailure(ctx context.Context, email string, window time.Duration) (int64, error)
	ResetLoginFailures(ctx context.Context, email string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event models.AccountEvent) error
}

type ThrottleConfig struct {
	MaxAttempts int
	Window      time.Duration
}

type LoginResult struct {
	User   models.PublicUser
	Tokens models.TokenPair
}

type Auth struct {
	log         *slog.Logger
	store       UserStore
	hasher      PasswordHasher
	issuer      TokenIssuer
	sessions    SessionRegistry
	throttle    LoginThrottle
	throttleCfg ThrottleConfig
	publisher   EventPublisher
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

type Option func(*Auth)

func WithThrottle(t LoginThrottle, cfg ThrottleConfig) Option {
	return func(a *Auth) {
		a.throttle = t
		a.throttleCfg = cfg
	}
}

func WithPublisher(p EventPublisher) Option {
	return func(a *Auth) {
		a.publisher = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Auth) {
		a.now = now
	}
}

func New(
	log *slog.Logger,
	store UserStore,
	hasher PasswordHasher,
	issuer TokenIssuer,
	sessions SessionRegistry,
	opts ...Option,
) *Auth {
	a := &Auth{
		log:      log,
		store:    store,
		hasher:   hasher,
		issuer:   issuer,
		sessions: sessions,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// * Register создает пользователя с ролью USER
func (a *Auth) Register(ctx context.Context, email, pass, name string) (models.PublicUser, error) {
	const op = "auth.Register"

	email = normalizeEmail(email)

	log := a.log.With(slog.String("op", op))

	log.Info("registering new user")

	passHash, err := a.hasher.Hash(pass)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))

		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := a.store.SaveUser(ctx, email, name, passHash, models.RoleUser)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists")

			return models.PublicUser{}, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		log.Error("failed to save user", sl.Err(err))

		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	user := models.PublicUser{
		ID:    id,
		Email: email,
		Name:  name,
		Role:  models.RoleUser,
	}

	a.publish(ctx, models.AccountEvent{
		Type:   models.EventUserRegistered,
		UserID: id,
		Email:  email,
		Name:   name,
	})

	log.Info("user registered", slog.Int64("uid", id))

	return user, nil
}

// * ValidateCredentials не различает "нет пользователя" и "неверный пароль"
func (a *Auth) ValidateCredentials(ctx context.Context, email, pass string) (models.User, error) {
	const op = "auth.ValidateCredentials"

	email = normalizeEmail(email)

	log := a.log.With(slog.String("op", op))

	if err := a.checkLocked(ctx, email); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.store.User(ctx, email)
	if err != nil {
		if !errors.Is(err, storage.ErrUserNotFound) {
			log.Error("failed to get user", sl.Err(err))

			return models.User{}, fmt.Errorf("%s: %w", op, err)
		}

		// выравниваем время ответа с веткой существующего пользователя
		a.verifyDummy(pass)
		a.registerFailure(ctx, email)

		log.Info("invalid credentials")

		return models.User{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	ok, err := a.hasher.Verify(pass, user.PassHash)
	if err != nil {
		log.Error("failed to verify password hash", sl.Err(err))

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if !ok {
		a.registerFailure(ctx, email)

		log.Info("invalid credentials")

		return models.User{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	a.resetFailures(ctx, email)

	return user, nil
}

// * Login проверяет учетные данные, выпускает пару токенов и сохраняет хеш refresh токена до возврата
func (a *Auth) Login(ctx context.Context, email, pass string) (LoginResult, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.ValidateCredentials(ctx, email, pass)
	if err != nil {
		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}

	tokens, err := a.startSession(ctx, user)
	if err != nil {
		log.Error("failed to start session", sl.Err(err))

		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully", slog.Int64("uid", user.ID))

	return LoginResult{
		User:   user.Public(),
		Tokens: tokens,
	}, nil
}

// * Refresh принимает только refresh токен, совпадающий с сохраненным хешем, и ротирует его
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	const op = "auth.Refresh"

	log := a.log.With(slog.String("op", op))

	principal, err := a.issuer.ParseRefresh(refreshToken)
	if err != nil {
		log.Info("refresh token rejected", sl.Err(err))

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	log = log.With(slog.Int64("uid", principal.UserID))

	if err := a.sessions.Validate(ctx, principal.UserID, refreshToken); err != nil {
		if errors.Is(err, registry.ErrSessionRevoked) {
			return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.store.UserByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		log.Error("failed to load user", sl.Err(err))

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	tokens, err := a.startSession(ctx, user)
	if err != nil {
		log.Error("failed to rotate session", sl.Err(err))

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("refresh successful")

	return tokens, nil
}

func (a *Auth) Logout(ctx context.Context, userID int64) error {
	const op = "auth.Logout"

	log := a.log.With(slog.String("op", op), slog.Int64("uid", userID))

	if err := a.sessions.Revoke(ctx, userID); err != nil {
		if errors.Is(err, registry.ErrSessionRevoked) {
			return fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("logout successful")

	return nil
}

func (a *Auth) Profile(ctx context.Context, userID int64) (models.PublicUser, error) {
	const op = "auth.Profile"

	user, err := a.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.PublicUser{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	return user.Public(), nil
}

func (a *Auth) ListUsers(ctx context.Context) ([]models.PublicUser, error) {
	const op = "auth.ListUsers"

	users, err := a.store.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}

	return out, nil
}

func (a *Auth) DeleteUser(ctx context.Context, id int64) error {
	const op = "auth.DeleteUser"

	log := a.log.With(slog.String("op", op), slog.Int64("uid", id))

	user, err := a.store.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.store.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		log.Error("failed to delete user", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	a.publish(ctx, models.AccountEvent{
		Type:   models.EventUserDeleted,
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	})

	log.Info("user deleted")

	return nil
}

// * EnsureAdmin создает ADMIN аккаунт, если его нет; существующий аккаунт не меняется
func (a *Auth) EnsureAdmin(ctx context.Context, email, pass, name string) (bool, error) {
	const op = "auth.EnsureAdmin"

	email = normalizeEmail(email)

	log := a.log.With(slog.String("op", op))

	_, err := a.store.User(ctx, email)
	if err == nil {
		return false, nil
	}

	if !errors.Is(err, storage.ErrUserNotFound) {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := a.hasher.Hash(pass)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	id, err := a.store.SaveUser(ctx, email, name, passHash, models.RoleAdmin)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return false, nil
		}

		return false, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("admin account created", slog.Int64("uid", id))

	return true, nil
}

func (a *Auth) startSession(ctx context.Context, user models.User) (models.TokenPair, error) {
	tokens, err := a.issuer.Issue(user)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}

	if err := a.sessions.Rotate(ctx, user.ID, tokens.RefreshToken); err != nil {
		return models.TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return tokens, nil
}

func (a *Auth) checkLocked(ctx context.Context, email string) error {
	if a.throttle == nil {
		return nil
	}

	retryAfter, err := a.throttle.LoginLockedFor(ctx, email, a.throttleCfg.MaxAttempts)
	if err != nil {
		// недоступный redis не должен блокировать вход
		a.log.Warn("login throttle unavailable", sl.Err(err))

		return nil
	}

	if retryAfter > 0 {
		return &LoginLockedError{RetryAfter: retryAfter}
	}

	return nil
}

func (a *Auth) registerFailure(ctx context.Context, email string) {
	if a.throttle == nil {
		return
	}

	if _, err := a.throttle.RegisterLoginFailure(ctx, email, a.throttleCfg.Window); err != nil {
		a.log.Warn("failed to register login failure", sl.Err(err))
	}
}

func (a *Auth) resetFailures(ctx context.Context, email string) {
	if a.throttle == nil {
		return
	}

	if err := a.throttle.ResetLoginFailures(ctx, email); err != nil {
		a.log.Warn("failed to reset login failures", sl.Err(err))
	}
}

func (a *Auth) verifyDummy(pass string) {
	a.dummyOnce.Do(func() {
		hash, err := a.hasher.Hash("dummy-password-for-timing")
		if err != nil {
			a.log.Error("failed to build dummy hash", sl.Err(err))

			return
		}

		a.dummyHash = hash
	})

	if a.dummyHash != "" {
		_, _ = a.hasher.Verify(pass, a.dummyHash)
	}
}

// * publish отправляет событие без влияния на результат запроса
func (a *Auth) publish(ctx context.Context, event models.AccountEvent) {
	if a.publisher == nil {
		return
	}

	event.OccurredAt = a.now().UTC()

	if err := a.publisher.Publish(ctx, event); err != nil {
		a.log.Warn("failed to publish account event",
			slog.String("type", event.Type),
			sl.Err(err),
		)
	}
}
