package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"
	"github.com/redis/go-redis/v9"

	"mdrp-solver/internal/platform/obs"
	"mdrp-solver/internal/ports"
)

// RedisCutCache is the distributed, shard-aware illegal-path signature
// cache: a fleet of solver workers running the callback share previously
// discovered lazy cuts, keyed by the signature of the active untimed arc
// set that produced them, so no two workers pay the IIS re-solve for the
// same illegal path.
//
// Sharding uses rendezvous (highest random weight) hashing over the
// configured Redis addresses, the same scheme go-redis's own Ring client
// uses internally, so adding or removing a shard only remaps the keys that
// hashed to the changed node.
type RedisCutCache struct {
	clients map[string]*redis.Client
	ring *rendezvous.Rendezvous
}

// NewRedisCutCache dials one client per address and builds the rendezvous
// ring over them. addrs must be non-empty.
func NewRedisCutCache(addrs []string) (*RedisCutCache, error) {
	if len(addrs) == 0 {
		return nil, errors.New("cut cache: no redis addresses configured")
	}

	clients := make(map[string]*redis.Client, len(addrs))
	for _, addr := range addrs {
		clients[addr] = redis.NewClient(&redis.Options{Addr: addr})
	}

	ring := rendezvous.New(addrs, xxhashSum)
	return &RedisCutCache{clients: clients, ring: ring}, nil
}

func xxhashSum(s string) uint64 {
	return xxhash.Sum64String(s)
}

func (c *RedisCutCache) clientFor(signature string) *redis.Client {
	return c.clients[c.ring.Lookup(signature)]
}

func cutCacheKey(signature string) string {
	return "mdrp:cuts:" + signature
}

func (c *RedisCutCache) GetCuts(ctx context.Context, signature string) (_ []ports.LazyCut, _ bool, err error) {
	defer obs.Time(ctx, "cache.cut.Get")(&err)

	if signature == "" {
		return nil, false, errors.New("cut cache: signature must not be empty")
	}

	raw, err := c.clientFor(signature).Get(ctx, cutCacheKey(signature)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cut cache: get %s: %w", signature, err)
	}

	var cuts []ports.LazyCut
	if err := json.Unmarshal(raw, &cuts); err != nil {
		return nil, false, fmt.Errorf("cut cache: decode %s: %w", signature, err)
	}
	return cuts, true, nil
}

func (c *RedisCutCache) PutCuts(ctx context.Context, signature string, cuts []ports.LazyCut) (err error) {
	defer obs.Time(ctx, "cache.cut.Put")(&err)

	if signature == "" {
		return errors.New("cut cache: signature must not be empty")
	}

	raw, err := json.Marshal(cuts)
	if err != nil {
		return fmt.Errorf("cut cache: encode %s: %w", signature, err)
	}

	if err := c.clientFor(signature).Set(ctx, cutCacheKey(signature), raw, 0).Err(); err != nil {
		return fmt.Errorf("cut cache: set %s: %w", signature, err)
	}
	return nil
}

// Close releases every shard's connection pool.
func (c *RedisCutCache) Close() error {
	var first error
	for _, cl := range c.clients {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ ports.CutCache = (*RedisCutCache)(nil)
