// Package redis provides a Redis implementation of the renewal.Storage interface.
// Each subscription is a JSON document; a set per owner indexes the owner's documents.
// Writes that touch both run as Lua scripts so the index never disagrees with the data.
package redis

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mihaimyh/gorenew/pkg/renewal"
)

// Storage implements renewal.Storage using Redis
type Storage struct {
	client  redis.UniversalClient
	config  Config
	scripts map[string]*redis.Script
}

// Config holds Redis storage configuration
type Config struct {
	// KeyPrefix is prepended to all Redis keys (default: "gorenew:")
	KeyPrefix string
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		KeyPrefix: "gorenew:",
	}
}

// New creates a new Redis storage adapter
// The client can be *redis.Client, *redis.ClusterClient, or *redis.Ring
func New(client redis.UniversalClient, config Config) (*Storage, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	// Set defaults
	if config.KeyPrefix == "" {
		config.KeyPrefix = "gorenew:"
	}

	s := &Storage{
		client:  client,
		config:  config,
		scripts: make(map[string]*redis.Script),
	}

	// Load Lua scripts
	s.loadScripts()

	return s, nil
}

// loadScripts loads and compiles Lua scripts for atomic operations
func (s *Storage) loadScripts() {
	// Store a document and move it between owner indexes when its owner changed
	s.scripts["put"] = redis.NewScript(`
		local subKey = KEYS[1]
		local ownerKey = KEYS[2]
		local data = ARGV[1]
		local id = ARGV[2]
		local ownerPrefix = ARGV[3]

		local old = redis.call('GET', subKey)
		if old then
			local cjson = cjson or require('cjson')
			local ok, rec = pcall(cjson.decode, old)
			if ok and rec and rec.owner_id then
				local oldOwnerKey = ownerPrefix .. rec.owner_id
				if oldOwnerKey ~= ownerKey then
					redis.call('SREM', oldOwnerKey, id)
				end
			end
		end

		redis.call('SET', subKey, data)
		redis.call('SADD', ownerKey, id)
		return 1
	`)

	// Delete a document and its index entry; 0 when it did not exist
	s.scripts["delete"] = redis.NewScript(`
		local subKey = KEYS[1]
		local id = ARGV[1]
		local ownerPrefix = ARGV[2]

		local old = redis.call('GET', subKey)
		if not old then
			return 0
		end

		local cjson = cjson or require('cjson')
		local ok, rec = pcall(cjson.decode, old)
		if ok and rec and rec.owner_id then
			redis.call('SREM', ownerPrefix .. rec.owner_id, id)
		end
		redis.call('DEL', subKey)
		return 1
	`)
}

// GetSubscription implements renewal.Storage
func (s *Storage) GetSubscription(ctx context.Context, id string) (*renewal.Subscription, error) {
	data, err := s.client.Get(ctx, s.subscriptionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, renewal.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	var sub renewal.Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	return &sub, nil
}

// PutSubscription implements renewal.Storage
func (s *Storage) PutSubscription(ctx context.Context, sub *renewal.Subscription) error {
	if sub == nil || sub.ID == "" || sub.OwnerID == "" {
		return fmt.Errorf("%w: missing id or owner", renewal.ErrInvalidSubscription)
	}

	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription: %w", err)
	}

	keys := []string{s.subscriptionKey(sub.ID), s.ownerKey(sub.OwnerID)}
	err = s.scripts["put"].Run(ctx, s.client, keys, data, sub.ID, s.ownerKey("")).Err()
	if err != nil {
		return fmt.Errorf("failed to put subscription: %w", err)
	}

	return nil
}

// DeleteSubscription implements renewal.Storage
func (s *Storage) DeleteSubscription(ctx context.Context, id string) error {
	keys := []string{s.subscriptionKey(id)}
	deleted, err := s.scripts["delete"].Run(ctx, s.client, keys, id, s.ownerKey("")).Int()
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if deleted == 0 {
		return renewal.ErrSubscriptionNotFound
	}
	return nil
}

// ListSubscriptions implements renewal.Storage
func (s *Storage) ListSubscriptions(ctx context.Context, ownerID string) ([]renewal.Subscription, error) {
	ids, err := s.client.SMembers(ctx, s.ownerKey(ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	if len(ids) == 0 {
		return []renewal.Subscription{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.subscriptionKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	subs := make([]renewal.Subscription, 0, len(values))
	for _, v := range values {
		data, ok := v.(string)
		if !ok {
			continue // deleted between SMEMBERS and MGET
		}
		var sub renewal.Subscription
		if err := json.Unmarshal([]byte(data), &sub); err != nil {
			return nil, fmt.Errorf("failed to unmarshal subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	slices.SortFunc(subs, func(a, b renewal.Subscription) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return subs, nil
}

// Now implements renewal.TimeSource using the Redis server clock.
func (s *Storage) Now(ctx context.Context) (time.Time, error) {
	t, err := s.client.Time(ctx).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get redis time: %w", err)
	}
	return t.UTC(), nil
}

func (s *Storage) subscriptionKey(id string) string {
	return fmt.Sprintf("%ssub:%s", s.config.KeyPrefix, id)
}

func (s *Storage) ownerKey(ownerID string) string {
	return fmt.Sprintf("%sowner:%s", s.config.KeyPrefix, ownerID)
}

// Close closes the Redis client connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
