package scdash

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginLimiter(t *testing.T) {
	limiter := NewLoginLimiter(2, 150*time.Millisecond)
	defer limiter.Close()

	assert.True(t, limiter.Allow("203.0.113.10"), "first login redirect")
	assert.True(t, limiter.Allow("203.0.113.10"), "second login redirect")
	assert.False(t, limiter.Allow("203.0.113.10"), "third login redirect inside the window")
	assert.True(t, limiter.Allow("203.0.113.11"), "another address has its own budget")

	time.Sleep(200 * time.Millisecond)
	assert.True(t, limiter.Allow("203.0.113.10"), "budget returns after the window")
}

func TestLoginLimiterBlockedAttemptsDoNotExtendWindow(t *testing.T) {
	limiter := NewLoginLimiter(1, 150*time.Millisecond)
	defer limiter.Close()
	ip := "203.0.113.20"

	assert.True(t, limiter.Allow(ip))
	time.Sleep(100 * time.Millisecond)
	assert.False(t, limiter.Allow(ip))
	time.Sleep(100 * time.Millisecond)
	assert.True(t, limiter.Allow(ip), "only allowed attempts count against the window")
}

func TestLoginLimiterCloseTwice(t *testing.T) {
	limiter := NewLoginLimiter(1, time.Minute)
	limiter.Close()
	assert.NotPanics(t, limiter.Close)
}

func TestRecentDropsExpiredHits(t *testing.T) {
	now := time.Now()
	hits := []time.Time{now.Add(-3 * time.Minute), now.Add(-30 * time.Second), now}
	kept := recent(hits, now.Add(-time.Minute))
	assert.Len(t, kept, 2)
}
