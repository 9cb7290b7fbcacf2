// Package persist writes (row id, cluster id) pairs to Redis.
package persist

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KaramelBytes/segmenta/internal/apperr"
	"github.com/KaramelBytes/segmenta/internal/cluster"
)

const connectionTimeout = 3 * time.Second

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidKey reports whether key is an identifier, optionally namespaced once
// ("segments" or "survey.segments").
func ValidKey(key string) bool { return keyPattern.MatchString(key) }

// Redis stores each assignment set as one hash: field = row id, value = cluster id.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New wraps an existing client. ttl <= 0 keeps keys forever.
func New(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, logger: slog.Default().With("component", "persist")}
}

// Dial connects to addr and pings it.
func Dial(ctx context.Context, addr string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	timeoutCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := client.Ping(timeoutCtx).Err(); err != nil {
		_ = client.Close()
		return nil, apperr.Wrap(apperr.ErrPersistence, "persist", err)
	}
	return New(client, ttl), nil
}

// Close releases the client.
func (r *Redis) Close() error { return r.client.Close() }

// Save replaces the hash at key with pairs in one MULTI/EXEC and returns the
// number of rows written. Row ids must be unique; a repeated id is rejected
// before anything is written.
func (r *Redis) Save(ctx context.Context, key string, pairs []cluster.Assignment) (int, error) {
	if !ValidKey(key) {
		return 0, apperr.New(apperr.ErrBadRequest, "persist", "invalid key %q", key)
	}
	fields := make(map[string]any, len(pairs))
	for _, p := range pairs {
		if _, dup := fields[p.RowID]; dup {
			return 0, apperr.New(apperr.ErrBadRequest, "persist", "duplicate row id %q", p.RowID)
		}
		fields[p.RowID] = strconv.Itoa(p.Cluster)
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(fields) == 0 {
			return nil
		}
		pipe.HSet(ctx, key, fields)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrPersistence, "persist", err)
	}
	r.logger.Info("assignments persisted", "key", key, "rows", len(fields))
	return len(fields), nil
}

// Load reads back the assignments stored at key.
func (r *Redis) Load(ctx context.Context, key string) (map[string]int, error) {
	raw, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrPersistence, "persist", err)
	}
	out := make(map[string]int, len(raw))
	for id, v := range raw {
		c, err := strconv.Atoi(v)
		if err != nil {
			return nil, apperr.New(apperr.ErrPersistence, "persist", "field %q holds non-integer %q", id, v)
		}
		out[id] = c
	}
	return out, nil
}
