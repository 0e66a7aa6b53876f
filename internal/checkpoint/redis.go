package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/petasbytes/agentloop/memory"
)

const defaultRedisPrefix = "agentloop"

// RedisStore keeps each record under <prefix>:session:<id> and tracks ids in <prefix>:sessions.
type RedisStore struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
	locks  *keyedMutex
}

type RedisOption func(*redisConfig)

type redisConfig struct {
	password string
	db       int
	ttl      time.Duration
	prefix   string
	client   *goredis.Client
}

func WithRedisPassword(password string) RedisOption {
	return func(c *redisConfig) { c.password = password }
}

func WithRedisDB(db int) RedisOption {
	return func(c *redisConfig) { c.db = db }
}

// WithRedisTTL expires records after ttl. Zero keeps them forever.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(c *redisConfig) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithRedisPrefix(prefix string) RedisOption {
	return func(c *redisConfig) {
		if p := strings.TrimSpace(prefix); p != "" {
			c.prefix = p
		}
	}
}

func WithRedisClient(client *goredis.Client) RedisOption {
	return func(c *redisConfig) { c.client = client }
}

// NewRedisStore connects to addr and pings it.
func NewRedisStore(ctx context.Context, addr string, opts ...RedisOption) (*RedisStore, error) {
	cfg := redisConfig{prefix: defaultRedisPrefix}
	for _, opt := range opts {
		opt(&cfg)
	}
	client := cfg.client
	if client == nil {
		if strings.TrimSpace(addr) == "" {
			return nil, storageErr("open", "", fmt.Errorf("redis addr is required"))
		}
		client = goredis.NewClient(&goredis.Options{
			Addr:     addr,
			Password: cfg.password,
			DB:       cfg.db,
		})
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, storageErr("open", "", fmt.Errorf("redis ping failed: %w", err))
	}
	return &RedisStore{client: client, prefix: cfg.prefix, ttl: cfg.ttl, locks: newKeyedMutex()}, nil
}

func (s *RedisStore) sessionKey(id string) string {
	return s.prefix + ":session:" + id
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":sessions"
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*memory.Session, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, storageErr("load", sessionID, err)
	}
	raw, err := s.client.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, storageErr("load", sessionID, err)
	}
	turns, err := DecodeTurns(raw)
	if err != nil {
		return nil, storageErr("load", sessionID, err)
	}
	return &memory.Session{ID: sessionID, Turns: turns}, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, session memory.Session) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return storageErr("save", sessionID, err)
	}
	data, err := EncodeTurns(session.Turns)
	if err != nil {
		return storageErr("save", sessionID, err)
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessionKey(sessionID), data, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), sessionID)
	if s.ttl > 0 {
		// The index outlives no record by more than one ttl.
		pipe.Expire(ctx, s.indexKey(), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return storageErr("save", sessionID, err)
	}
	return nil
}

// Sessions lists the ids saved through this prefix whose record still
// exists, sorted. Ids whose record expired are dropped from the index.
func (s *RedisStore) Sessions(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, storageErr("list", "", err)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	pipe := s.client.Pipeline()
	exists := make([]*goredis.IntCmd, len(ids))
	for i, id := range ids {
		exists[i] = pipe.Exists(ctx, s.sessionKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, storageErr("list", "", err)
	}

	live := make([]string, 0, len(ids))
	var stale []any
	for i, id := range ids {
		if exists[i].Val() > 0 {
			live = append(live, id)
		} else {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := s.client.SRem(ctx, s.indexKey(), stale...).Err(); err != nil {
			return nil, storageErr("list", "", err)
		}
	}
	sort.Strings(live)
	return live, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
