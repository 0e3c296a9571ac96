package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kirillkom/dalylak/internal/core/domain"
)

const defaultPrefix = "dalylak:retrieval:"

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// RetrievalCache stores raw vector candidates under
// <prefix><collection>:<sha256(query|limit)>.
type RetrievalCache struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

func New(ctx context.Context, cfg Config) (*RetrievalCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newWithClient(client, cfg), nil
}

func newWithClient(client *goredis.Client, cfg Config) *RetrievalCache {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RetrievalCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RetrievalCache) Get(ctx context.Context, collection, query string, limit int) ([]domain.RetrievedDocument, bool, error) {
	raw, err := c.client.Get(ctx, c.key(collection, query, limit)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var docs []domain.RetrievedDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, false, fmt.Errorf("decode cached candidates: %w", err)
	}
	return docs, true, nil
}

func (c *RetrievalCache) Set(ctx context.Context, collection, query string, limit int, docs []domain.RetrievedDocument) error {
	raw, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode candidates: %w", err)
	}
	if err := c.client.Set(ctx, c.key(collection, query, limit), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RetrievalCache) InvalidateCollection(ctx context.Context, collection string) error {
	iter := c.client.Scan(ctx, 0, c.collectionPattern(collection), 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis delete: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	return nil
}

func (c *RetrievalCache) Close() error {
	return c.client.Close()
}

func (c *RetrievalCache) key(collection, query string, limit int) string {
	sum := sha256.Sum256([]byte(query + "|" + strconv.Itoa(limit)))
	return c.prefix + collection + ":" + hex.EncodeToString(sum[:])
}

func (c *RetrievalCache) collectionPattern(collection string) string {
	return c.prefix + collection + ":*"
}
