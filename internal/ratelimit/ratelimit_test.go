package ratelimit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readalong/readalong-server/internal/ratelimit"
)

func TestAllowExhaustsBurst(t *testing.T) {
	rl := ratelimit.New(1, 2)

	assert.True(t, rl.Allow("client-a"))
	assert.True(t, rl.Allow("client-a"))
	assert.False(t, rl.Allow("client-a"))
}

func TestKeysAreIndependent(t *testing.T) {
	rl := ratelimit.New(1, 1)

	assert.True(t, rl.Allow("client-a"))
	assert.False(t, rl.Allow("client-a"))

	// A different key still has its full burst.
	assert.True(t, rl.Allow("client-b"))
}

func TestResetRestoresBurst(t *testing.T) {
	rl := ratelimit.New(1, 1)

	require.True(t, rl.Allow("client-a"))
	require.False(t, rl.Allow("client-a"))

	rl.Reset("client-a")
	assert.True(t, rl.Allow("client-a"))
}

func TestWaitHonorsCanceledContext(t *testing.T) {
	rl := ratelimit.New(0.001, 1)
	require.True(t, rl.Allow("client-a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rl.Wait(ctx, "client-a")
	assert.Error(t, err)
}
