package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	kindSelection = "selection"
	kindProfile   = "profile"
	kindSidebar   = "sidebar"
)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:  client,
		baseTTL: 7 * 24 * time.Hour,
	}
}

type RedisStore struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisStore) SaveSelection(ctx context.Context, cartKey string, lineIDs []string) error {
	if lineIDs == nil {
		lineIDs = []string{}
	}
	return r.set(ctx, stateKey(kindSelection, cartKey), lineIDs)
}

func (r RedisStore) LoadSelection(ctx context.Context, cartKey string) ([]string, error) {
	var ids []string
	if err := r.get(ctx, stateKey(kindSelection, cartKey), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r RedisStore) SaveProfile(ctx context.Context, cartKey string, profile domain.Profile) error {
	return r.set(ctx, stateKey(kindProfile, cartKey), profile)
}

func (r RedisStore) LoadProfile(ctx context.Context, cartKey string) (*domain.Profile, error) {
	var p domain.Profile
	if err := r.get(ctx, stateKey(kindProfile, cartKey), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r RedisStore) SetSidebarOpen(ctx context.Context, cartKey string, open bool) error {
	return r.set(ctx, stateKey(kindSidebar, cartKey), open)
}

// SidebarOpen defaults to closed when nothing was stored.
func (r RedisStore) SidebarOpen(ctx context.Context, cartKey string) (bool, error) {
	var open bool
	err := r.get(ctx, stateKey(kindSidebar, cartKey), &open)
	if errors.Is(err, ErrCacheMiss) {
		return false, nil
	}
	return open, err
}

// Delete wipes every persisted value of cartKey (logout).
func (r RedisStore) Delete(ctx context.Context, cartKey string) error {
	keys := []string{
		stateKey(kindSelection, cartKey),
		stateKey(kindProfile, cartKey),
		stateKey(kindSidebar, cartKey),
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r RedisStore) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}

	jitter := time.Duration(rand.Intn(60)) * time.Minute
	ttl := r.baseTTL + jitter
	if err := r.client.Set(ctx, key, string(data), ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r RedisStore) get(ctx context.Context, key string, out any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func stateKey(kind, cartKey string) string {
	if cartKey == "" {
		cartKey = "guest"
	}
	return fmt.Sprintf("storefront:%s:%s", kind, cartKey)
}
