package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"mock-server/domain"
)

const (
	DefaultFeedStream  = "tasks:changes"
	DefaultFeedChannel = "tasks.changes"
	DefaultFeedMaxLen  = 1000
)

// FeedConfig names the Redis keys a RedisFeed writes to. An empty Stream or
// Channel disables that half of the feed.
type FeedConfig struct {
	Stream  string
	Channel string
	MaxLen  int64
}

// RedisFeed mirrors task changes into Redis so tools outside the process can
// follow what clients did to the mock. It is write-only; the in-memory store
// stays authoritative.
type RedisFeed struct {
	client  *redis.Client
	stream  string
	channel string
	maxLen  int64
}

// NewRedisFeed creates a feed writing through client.
func NewRedisFeed(client *redis.Client, cfg FeedConfig) *RedisFeed {
	if client == nil {
		panic("storage.NewRedisFeed: redis client is nil")
	}
	if cfg.MaxLen < 0 {
		cfg.MaxLen = 0
	}
	return &RedisFeed{
		client:  client,
		stream:  cfg.Stream,
		channel: cfg.Channel,
		maxLen:  cfg.MaxLen,
	}
}

// Publish appends change to the stream and announces it on the channel in a
// single round trip.
func (f *RedisFeed) Publish(ctx context.Context, change domain.Change) error {
	data, err := sonic.ConfigStd.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	if f.stream == "" && f.channel == "" {
		return nil
	}

	_, err = f.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		if f.stream != "" {
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: f.stream,
				MaxLen: f.maxLen,
				Approx: f.maxLen > 0,
				Values: map[string]any{
					"type":     change.Type,
					"taskId":   change.TaskID,
					"revision": change.Revision,
					"data":     data,
				},
			})
		}
		if f.channel != "" {
			pipe.Publish(ctx, f.channel, data)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish change %d: %w", change.Revision, err)
	}
	return nil
}

// ParseRedisOptions accepts either a redis:// URL or the
// "host:port,password=...,ssl=true" form used by hosted Redis dashboards.
func ParseRedisOptions(conn string) (*redis.Options, error) {
	conn = strings.TrimSpace(conn)
	if conn == "" {
		return nil, fmt.Errorf("empty redis connection string")
	}
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts, nil
	}

	parts := strings.Split(conn, ",")
	if strings.Contains(parts[0], "=") {
		return nil, fmt.Errorf("redis connection string must start with host:port")
	}
	opts := &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(strings.TrimSpace(kv[1]), "true") {
				opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			}
		}
	}
	return opts, nil
}
