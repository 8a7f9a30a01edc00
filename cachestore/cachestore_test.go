package cachestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemCacheStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(10, time.Hour)

	v, err := cs.Get(ctx, "admins", "room1")
	assert.NoError(err)
	assert.Empty(v)

	assert.NoError(cs.Set(ctx, "admins", "room1", `["u1"]`))
	v, err = cs.Get(ctx, "admins", "room1")
	assert.NoError(err)
	assert.Equal(`["u1"]`, v)

	// namespaces do not collide
	v, _ = cs.Get(ctx, "other", "room1")
	assert.Empty(v)

	assert.NoError(cs.Purge(ctx, "admins", "room1"))
	v, _ = cs.Get(ctx, "admins", "room1")
	assert.Empty(v)
}

func TestMemCacheStoreExpiry(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(10, 20*time.Millisecond)
	assert.NoError(cs.Set(ctx, "admins", "room1", "x"))
	assert.Eventually(func() bool {
		v, _ := cs.Get(ctx, "admins", "room1")
		return v == ""
	}, time.Second, 10*time.Millisecond)
}
