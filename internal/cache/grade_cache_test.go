package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mind-engage/mindengage-grading/internal/grading"
)

type countingGrader struct {
	calls int
	inner grading.Grader
}

func (c *countingGrader) Grade(ctx context.Context, q grading.Definition, answer any, max float64) grading.Result {
	c.calls++
	return c.inner.Grade(ctx, q, answer, max)
}

func TestKeyIsCanonical(t *testing.T) {
	q1 := grading.Definition{Type: "matching", CorrectAnswer: map[string]any{"a": "1", "b": "2"}}
	q2 := grading.Definition{Type: "matching", CorrectAnswer: map[string]any{"b": "2", "a": "1"}}
	k1, err := Key(q1, map[string]any{"a": "1"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	k2, _ := Key(q2, map[string]any{"a": "1"}, 0)
	if k1 != k2 {
		t.Fatalf("map order changed the key: %s vs %s", k1, k2)
	}
	k3, _ := Key(q1, map[string]any{"a": "1"}, 5)
	if k1 == k3 {
		t.Fatal("max points should be part of the key")
	}
	if len(k1) != len("grade:")+64 {
		t.Fatalf("unexpected key %q", k1)
	}
}

func TestUnreachableRedisFallsThrough(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	inner := &countingGrader{inner: grading.NewEngine()}
	g := NewCachedGrader(inner, client, time.Minute)

	q := grading.Definition{Type: "multiple_choice", CorrectAnswer: "A"}
	for i := 0; i < 2; i++ {
		res := g.Grade(context.Background(), q, "A", 0)
		if !res.IsCorrect {
			t.Fatalf("got %+v", res)
		}
	}
	if inner.calls != 2 {
		t.Fatalf("inner calls = %d, want 2", inner.calls)
	}
}

// TestRedisRoundTrip needs a live Redis; set REDIS_ADDR to run it.
func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()

	inner := &countingGrader{inner: grading.NewEngine()}
	g := NewCachedGrader(inner, client, time.Minute)
	q := grading.Definition{ID: t.Name() + time.Now().String(), Type: "short_answer", CorrectAnswer: "mitochondria"}
	key, _ := Key(q, "mitokondri", 0)
	defer client.Del(ctx, key)

	first := g.Grade(ctx, q, "mitokondri", 0)
	second := g.Grade(ctx, q, "mitokondri", 0)
	if inner.calls != 1 {
		t.Fatalf("inner calls = %d, want 1", inner.calls)
	}
	if first.Score != second.Score || first.Feedback != second.Feedback {
		t.Fatalf("cached result differs: %+v vs %+v", first, second)
	}

	essay := grading.Definition{ID: q.ID, Type: "long_answer"}
	g.Grade(ctx, essay, "text", 0)
	g.Grade(ctx, essay, "text", 0)
	if inner.calls != 3 {
		t.Fatalf("manual results should not be cached, inner calls = %d", inner.calls)
	}
}
