package checkpoint

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Path is the directory for file, or the database file for sqlite.
	Path string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
	RedisPrefix   string
}

// Backends lists the accepted backend names.
func Backends() []string {
	return []string{BackendFile, BackendSQLite, BackendRedis, BackendMemory}
}

// Open builds the Store named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case BackendFile, "":
		dir := opts.Path
		if dir == "" {
			dir = filepath.Join(".agent", "sessions")
		}
		var fs *FileStore
		if fs, err = NewFileStore(dir); err == nil {
			s = fs
		}
	case BackendSQLite:
		path := opts.Path
		if path == "" {
			path = filepath.Join(".agent", "checkpoints.db")
		}
		var ss *SQLiteStore
		if ss, err = NewSQLiteStore(path); err == nil {
			s = ss
		}
	case BackendRedis:
		var rs *RedisStore
		rs, err = NewRedisStore(ctx, opts.RedisAddr,
			WithRedisPassword(opts.RedisPassword),
			WithRedisDB(opts.RedisDB),
			WithRedisTTL(opts.RedisTTL),
			WithRedisPrefix(opts.RedisPrefix),
		)
		if err == nil {
			s = rs
		}
	case BackendMemory:
		s = NewMemoryStore()
	default:
		err = fmt.Errorf("unknown checkpoint backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
