package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

func NewWithClient(client *redis.Client) *RedisRepo {
	return &RedisRepo{client: client}
}

func failuresKey(email string) string {
	return fmt.Sprintf("login:failures:%s", strings.ToLower(strings.TrimSpace(email)))
}

// * LoginLockedFor возвращает оставшееся время блокировки; 0 если вход разрешен
func (r *RedisRepo) LoginLockedFor(ctx context.Context, email string, maxAttempts int) (time.Duration, error) {
	const op = "storage.redis.LoginLockedFor"

	key := failuresKey(email)

	count, err := r.client.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if count < maxAttempts {
		return 0, nil
	}

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	// счетчик без срока жизни сбрасывается, иначе блокировка была бы вечной
	if ttl < 0 {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}

		return 0, nil
	}

	if ttl == 0 {
		return time.Second, nil
	}

	return ttl, nil
}

// * RegisterLoginFailure увеличивает счетчик неудачных входов; окно стартует с первой ошибки
func (r *RedisRepo) RegisterLoginFailure(ctx context.Context, email string, window time.Duration) (int64, error) {
	const op = "storage.redis.RegisterLoginFailure"

	key := failuresKey(email)

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	// окно ставится, пока у счетчика нет срока жизни, в том числе после неудачного EXPIRE
	if ttl.Val() < 0 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	return incr.Val(), nil
}

func (r *RedisRepo) ResetLoginFailures(ctx context.Context, email string) error {
	const op = "storage.redis.ResetLoginFailures"

	if err := r.client.Del(ctx, failuresKey(email)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * Close закрывает соединение с базой данных.
func (r *RedisRepo) Close() {
	r.client.Close()
}
