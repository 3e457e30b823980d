package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "depot:access"

// SetCache keeps combined sets in Redis, keyed by session and actor. Per-user and
// per-role version counters are part of every key, so bumping a version makes older
// entries unreachable.
type SetCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSetCache instantiates the cache helper.
func NewSetCache(client *redis.Client, ttl time.Duration) *SetCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &SetCache{client: client, ttl: ttl}
}

// Slot returns the versioned key for the session and actor as of now. Resolve takes the
// slot before loading grants: a version bump during the load moves later lookups to a
// new slot, so the set built from the old rows is never served.
func (c *SetCache) Slot(ctx context.Context, sessionID string, actor Actor) (string, error) {
	return c.entryKey(ctx, sessionID, actor)
}

// Load returns the set stored in slot, if any.
func (c *SetCache) Load(ctx context.Context, slot string) (CombinedSet, bool, error) {
	payload, err := c.client.Get(ctx, slot).Bytes()
	if errors.Is(err, redis.Nil) {
		return CombinedSet{}, false, nil
	}
	if err != nil {
		return CombinedSet{}, false, err
	}
	var set CombinedSet
	if err := json.Unmarshal(payload, &set); err != nil {
		return CombinedSet{}, false, err
	}
	return set, true, nil
}

// Store writes set into slot and indexes it under the session.
func (c *SetCache) Store(ctx context.Context, sessionID, slot string, set CombinedSet) error {
	raw, err := json.Marshal(set)
	if err != nil {
		return err
	}
	index := sessionIndexKey(sessionID)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, slot, raw, c.ttl)
		pipe.SAdd(ctx, index, slot)
		pipe.Expire(ctx, index, c.ttl)
		return nil
	})
	return err
}

// Forget removes every set cached for the session.
func (c *SetCache) Forget(ctx context.Context, sessionID string) error {
	index := sessionIndexKey(sessionID)
	keys, err := c.client.SMembers(ctx, index).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	keys = append(keys, index)
	return c.client.Del(ctx, keys...).Err()
}

// InvalidateGrants bumps the version of the role or user so cached sets built from its
// old rows are no longer served.
func (c *SetCache) InvalidateGrants(ctx context.Context, scope Scope, ownerID int64) error {
	if !scope.Valid() {
		return fmt.Errorf("access: invalid scope %q", scope)
	}
	return c.client.Incr(ctx, versionKey(scope, ownerID)).Err()
}

func (c *SetCache) entryKey(ctx context.Context, sessionID string, actor Actor) (string, error) {
	versions, err := c.client.MGet(ctx, versionKey(ScopeUser, actor.UserID), versionKey(ScopeRole, actor.RoleID)).Result()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:set:%s:%d:%d:%s.%s", cachePrefix, sessionID, actor.UserID, actor.RoleID, version(versions[0]), version(versions[1])), nil
}

func version(v interface{}) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return "0"
}

func versionKey(scope Scope, ownerID int64) string {
	return fmt.Sprintf("%s:version:%s:%d", cachePrefix, scope, ownerID)
}

func sessionIndexKey(sessionID string) string {
	return cachePrefix + ":session:" + sessionID
}

var _ SetStore = (*SetCache)(nil)
