package httpapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRateLimiter_EvictsIdleLimiters(t *testing.T) {
	rl := newRateLimiter(1, 1, zap.NewNop())
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }
	rl.lastSweep = clock

	rl.get("uid-a")
	rl.get("uid-b")
	assert.Equal(t, 2, rl.size())

	// uid-b 仍活跃，uid-a 空闲超过 idleTTL
	clock = clock.Add(limiterIdleTTL / 2)
	rl.get("uid-b")
	clock = clock.Add(limiterIdleTTL / 2)
	rl.get("uid-c")

	assert.Equal(t, 2, rl.size())
	rl.mu.Lock()
	_, okA := rl.limiters["uid-a"]
	_, okB := rl.limiters["uid-b"]
	rl.mu.Unlock()
	assert.False(t, okA)
	assert.True(t, okB)
}

func TestRateLimiter_KeepsStateWhileActive(t *testing.T) {
	rl := newRateLimiter(0.001, 1, zap.NewNop())
	assert.True(t, rl.get("uid-a").Allow())
	// 同一身份复用同一个 limiter，令牌未恢复
	assert.False(t, rl.get("uid-a").Allow())
}
