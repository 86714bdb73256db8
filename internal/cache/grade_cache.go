package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mind-engage/mindengage-grading/internal/grading"
)

// CachedGrader memoises results of a grading.Grader in Redis. Any cache
// failure falls through to the wrapped grader.
type CachedGrader struct {
	next   grading.Grader
	client redis.UniversalClient
	ttl    time.Duration
}

func NewCachedGrader(next grading.Grader, client redis.UniversalClient, ttl time.Duration) *CachedGrader {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedGrader{next: next, client: client, ttl: ttl}
}

// Key derives the cache key from the canonical JSON of the grading inputs.
// encoding/json sorts map keys, so equal inputs hash equally.
func Key(q grading.Definition, answer any, maxPoints float64) (string, error) {
	b, err := json.Marshal(struct {
		Q grading.Definition `json:"q"`
		A any                `json:"a"`
		M float64            `json:"m"`
	}{q, answer, maxPoints})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return "grade:" + hex.EncodeToString(sum[:]), nil
}

func (c *CachedGrader) Grade(ctx context.Context, q grading.Definition, answer any, maxPoints float64) grading.Result {
	key, err := Key(q, answer, maxPoints)
	if err != nil {
		return c.next.Grade(ctx, q, answer, maxPoints)
	}
	if res, ok := c.get(ctx, key); ok {
		return res
	}
	res := c.next.Grade(ctx, q, answer, maxPoints)
	if cacheable(q, res) {
		c.set(ctx, key, res)
	}
	return res
}

func (c *CachedGrader) get(ctx context.Context, key string) (grading.Result, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return grading.Result{}, false
	}
	if err != nil {
		log.Printf("grade cache: get %s: %v", key, err)
		return grading.Result{}, false
	}
	var res grading.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return grading.Result{}, false
	}
	return res, true
}

func (c *CachedGrader) set(ctx context.Context, key string, res grading.Result) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("grade cache: set %s: %v", key, err)
	}
}

// cacheable skips code results, which depend on the sandbox being reachable,
// and anything waiting on a reviewer.
func cacheable(q grading.Definition, res grading.Result) bool {
	return q.Type != string(grading.KindCode) && !res.NeedsManual()
}
