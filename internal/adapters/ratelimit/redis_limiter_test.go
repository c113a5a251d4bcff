package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeScripter counts INCR calls per key the way the window script does
type fakeScripter struct {
	redis.Scripter

	mu      sync.Mutex
	counts  map[string]int64
	expires map[string]string
	err     error
}

func newFakeScripter() *fakeScripter {
	return &fakeScripter{counts: make(map[string]int64), expires: make(map[string]string)}
}

func (f *fakeScripter) run(keys []string, args []interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewCmdResult(nil, f.err)
	}
	f.counts[keys[0]]++
	if f.counts[keys[0]] == 1 && len(args) > 0 {
		f.expires[keys[0]] = fmt.Sprint(args[0])
	}
	return redis.NewCmdResult(f.counts[keys[0]], nil)
}

func (f *fakeScripter) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	return f.run(keys, args)
}

func (f *fakeScripter) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	return f.run(keys, args)
}

func newTestRedisLimiter(client redis.Scripter, max int, window time.Duration) (*RedisLimiter, *fakeNow) {
	clock := &fakeNow{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	l := NewRedisLimiterWithClient(client, "eg:", max, window, zap.NewNop())
	l.now = clock.now
	return l, clock
}

func TestRedisLimiterAllow(t *testing.T) {
	tests := []struct {
		name    string
		advance time.Duration
		want    []bool
	}{
		{name: "budget then reject", want: []bool{true, true, true, false, false}},
		{name: "new bucket after the window", advance: time.Hour, want: []bool{true, true, true, false, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeScripter()
			l, clock := newTestRedisLimiter(client, 3, time.Hour)
			ctx := context.Background()

			for i, want := range tt.want {
				if i == len(tt.want)-1 {
					clock.advance(tt.advance)
				}
				ok, err := l.Allow(ctx, "10.0.0.1")
				require.NoError(t, err)
				assert.Equal(t, want, ok, "request %d", i)
			}
		})
	}
}

func TestRedisLimiterSetsExpiryOnce(t *testing.T) {
	client := newFakeScripter()
	l, clock := newTestRedisLimiter(client, 5, time.Minute)

	l.Allow(context.Background(), "client")
	l.Allow(context.Background(), "client")

	key := l.key("client", clock.now())
	assert.Equal(t, int64(2), client.counts[key])
	assert.Equal(t, "60000", client.expires[key])
}

func TestRedisLimiterSeparatesClients(t *testing.T) {
	l, _ := newTestRedisLimiter(newFakeScripter(), 1, time.Hour)
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "a")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "b")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "a")
	assert.False(t, ok)
}

func TestRedisLimiterError(t *testing.T) {
	client := newFakeScripter()
	client.err = errors.New("connection refused")
	l, _ := newTestRedisLimiter(client, 3, time.Hour)

	ok, err := l.Allow(context.Background(), "10.0.0.1")

	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisLimiterKeyBuckets(t *testing.T) {
	l := NewRedisLimiterWithClient(nil, "eg:", 10, time.Hour, nil)
	at := time.Date(2026, 5, 1, 10, 15, 0, 0, time.UTC)

	assert.Equal(t, l.key("k", at), l.key("k", at.Add(30*time.Minute)))
	assert.NotEqual(t, l.key("k", at), l.key("k", at.Add(time.Hour)))
	assert.Contains(t, l.key("k", at), "eg:k:")
}
