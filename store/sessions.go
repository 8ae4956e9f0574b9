package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace-auth/config"

	"github.com/redis/go-redis/v9"
)

// RefreshSession is what the service remembers about an issued refresh
// token, keyed by the token's hash. The provider refresh token is kept
// so logout can revoke the upstream session too.
type RefreshSession struct {
	UID                  string    `json:"uid"`
	UserType             string    `json:"userType"`
	ProviderRefreshToken string    `json:"providerRefreshToken"`
	IssuedAt             time.Time `json:"issuedAt"`
}

type RefreshTokenStore interface {
	Save(ctx context.Context, tokenHash string, session RefreshSession, ttl time.Duration) error
	Get(ctx context.Context, tokenHash string) (RefreshSession, bool, error)
	Revoke(ctx context.Context, tokenHash string) error
	Close() error
}

type RedisRefreshStore struct {
	client *redis.Client
	prefix string
}

func NewRedisRefreshStore(cfg config.StoreConfig) (*RedisRefreshStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("refresh store ping failed: %w", err)
	}

	return &RedisRefreshStore{client: client, prefix: cfg.Prefix + ":refresh"}, nil
}

func (s *RedisRefreshStore) Save(ctx context.Context, tokenHash string, session RefreshSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(tokenHash), payload, ttl).Err()
}

func (s *RedisRefreshStore) Get(ctx context.Context, tokenHash string) (RefreshSession, bool, error) {
	payload, err := s.client.Get(ctx, s.key(tokenHash)).Bytes()
	if err == redis.Nil {
		return RefreshSession{}, false, nil
	}
	if err != nil {
		return RefreshSession{}, false, err
	}
	var session RefreshSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return RefreshSession{}, false, err
	}
	return session, true, nil
}

func (s *RedisRefreshStore) Revoke(ctx context.Context, tokenHash string) error {
	return s.client.Del(ctx, s.key(tokenHash)).Err()
}

func (s *RedisRefreshStore) Close() error {
	return s.client.Close()
}

func (s *RedisRefreshStore) key(tokenHash string) string {
	return fmt.Sprintf("%s:%s", s.prefix, tokenHash)
}
