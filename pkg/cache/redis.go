package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/daftar/daftar/pkg/analysis"
	"github.com/daftar/daftar/pkg/errors"
)

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	// Address is the Redis server address (e.g., "localhost:6379")
	Address string

	// Password for Redis authentication (optional)
	Password string

	// Database number to use (default: 0)
	Database int

	// Prefix is prepended to all cache keys (e.g., "daftar:reports:")
	Prefix string

	// TTL is the time-to-live for cached reports (0 = no expiration)
	TTL time.Duration

	// Timeout for Redis operations
	Timeout time.Duration

	// PoolSize is the maximum number of connections
	PoolSize int
}

// DefaultRedisConfig returns sensible defaults.
func DefaultRedisConfig(address string) RedisConfig {
	return RedisConfig{
		Address:  address,
		Prefix:   "daftar:reports:",
		TTL:      time.Hour,
		Timeout:  5 * time.Second,
		PoolSize: 10,
	}
}

// Redis stores reports in Redis so multiple dashboard instances share
// one cache.
type Redis struct {
	cfg    RedisConfig
	client *redis.Client
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "daftar:reports:"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, errors.CodeCacheFailed, "redis ping").
			WithContext("address", cfg.Address)
	}

	return &Redis{cfg: cfg, client: client}, nil
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, checksum string) (*analysis.Report, bool, error) {
	data, err := r.client.Get(ctx, r.key(checksum)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, errors.CodeCacheFailed, "redis get")
	}

	var rep analysis.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		// A corrupt entry is treated as a miss; it will be overwritten.
		return nil, false, nil
	}
	return &rep, true, nil
}

// Put implements Cache.
func (r *Redis) Put(ctx context.Context, checksum string, rep *analysis.Report) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return errors.Wrap(err, errors.CodeCacheFailed, "marshal report")
	}
	if err := r.client.Set(ctx, r.key(checksum), data, r.cfg.TTL).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCacheFailed, "redis set")
	}
	return nil
}

// Close implements Cache.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) key(checksum string) string {
	return fmt.Sprintf("%s%s", r.cfg.Prefix, checksum)
}
