// Package redis caches session-scoped combat state in Redis so a session
// survives a process restart or page reload.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cory-johannsen/starfall/internal/config"
	"github.com/cory-johannsen/starfall/internal/game/combat"
)

// DefaultKeyPrefix namespaces snapshot keys.
const DefaultKeyPrefix = "starfall:combat:"

// NewClient connects to the server described by cfg and pings it.
//
// Precondition: cfg.Addr must be non-empty.
// Postcondition: Returns a reachable client or an error; the caller closes it.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// SnapshotStore implements combat.SnapshotStore with one JSON value per
// session. Every Save refreshes the TTL, so idle sessions expire.
type SnapshotStore struct {
	rdb    goredis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewSnapshotStore creates a SnapshotStore. ttl <= 0 keeps snapshots until
// deleted.
//
// Precondition: rdb must be non-nil.
func NewSnapshotStore(rdb goredis.Cmdable, ttl time.Duration) *SnapshotStore {
	if ttl < 0 {
		ttl = 0
	}
	return &SnapshotStore{rdb: rdb, prefix: DefaultKeyPrefix, ttl: ttl}
}

func (s *SnapshotStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// Save implements combat.SnapshotStore.
func (s *SnapshotStore) Save(ctx context.Context, sessionID string, st *combat.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding snapshot for %q: %w", sessionID, err)
	}
	if err := s.rdb.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving snapshot for %q: %w", sessionID, err)
	}
	return nil
}

// Load implements combat.SnapshotStore.
//
// Postcondition: Returns combat.ErrSnapshotNotFound when the key is absent
// or expired.
func (s *SnapshotStore) Load(ctx context.Context, sessionID string) (*combat.State, error) {
	data, err := s.rdb.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("session %q: %w", sessionID, combat.ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot for %q: %w", sessionID, err)
	}
	var st combat.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decoding snapshot for %q: %w", sessionID, err)
	}
	return &st, nil
}

// Delete implements combat.SnapshotStore. Deleting a missing key is not an error.
func (s *SnapshotStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("deleting snapshot for %q: %w", sessionID, err)
	}
	return nil
}
