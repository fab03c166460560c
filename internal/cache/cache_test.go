package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "sellerqi-insights/internal/common/errors"
	"sellerqi-insights/internal/common/logger"
	"sellerqi-insights/internal/models"
)

func createCache(t *testing.T) (*CategoryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, 24*time.Hour, logger.NewNoOpLogger()), mr
}

func TestCategoryCache_MissThenHit(t *testing.T) {
	c, _ := createCache(t)
	ctx := context.Background()

	lookup, err := c.Get(ctx, "acct-1", models.CategoryRanking, 5*time.Minute)
	require.NoError(t, err)
	assert.Nil(t, lookup.Entry, "absent key is a miss, not an error")

	payload := json.RawMessage(`{"products":[]}`)
	require.NoError(t, c.Put(ctx, "acct-1", models.CategoryRanking, payload))

	lookup, err = c.Get(ctx, "acct-1", models.CategoryRanking, 5*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, lookup.Entry)
	assert.True(t, lookup.Fresh)
	assert.JSONEq(t, string(payload), string(lookup.Entry.Data))
	assert.Equal(t, models.CategoryRanking, lookup.Entry.Category)
}

func TestCategoryCache_StaleEntryStillReadable(t *testing.T) {
	c, _ := createCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "acct-1", models.CategoryConversion, json.RawMessage(`{"products":[]}`)))

	// Move the clock past the freshness TTL but inside the janitor TTL.
	c.now = func() time.Time { return time.Now().Add(10 * time.Minute) }

	lookup, err := c.Get(ctx, "acct-1", models.CategoryConversion, 5*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, lookup.Entry, "stale entries are returned for immediate display")
	assert.False(t, lookup.Fresh)
}

func TestCategoryCache_PutReplacesWholeEntry(t *testing.T) {
	c, _ := createCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "acct-1", models.CategoryInventory, json.RawMessage(`{"products":[{"asin":"B1"}]}`)))
	require.NoError(t, c.Put(ctx, "acct-1", models.CategoryInventory, json.RawMessage(`{"products":[{"asin":"B2"}]}`)))

	lookup, err := c.Get(ctx, "acct-1", models.CategoryInventory, 5*time.Minute)
	require.NoError(t, err)
	assert.JSONEq(t, `{"products":[{"asin":"B2"}]}`, string(lookup.Entry.Data))
}

func TestCategoryCache_KeysAreScopedPerAccountAndCategory(t *testing.T) {
	c, _ := createCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "acct-1", models.CategoryRanking, json.RawMessage(`{"v":1}`)))
	require.NoError(t, c.Put(ctx, "acct-2", models.CategoryRanking, json.RawMessage(`{"v":2}`)))
	require.NoError(t, c.Put(ctx, "acct-1", models.CategoryAccount, json.RawMessage(`{"v":3}`)))

	lookup, err := c.Get(ctx, "acct-1", models.CategoryRanking, time.Minute)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(lookup.Entry.Data))

	lookup, err = c.Get(ctx, "acct-2", models.CategoryRanking, time.Minute)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(lookup.Entry.Data))
}

func TestCategoryCache_CorruptEntryTreatedAsMiss(t *testing.T) {
	c, mr := createCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("issues:acct-1:ranking", "{not json"))

	lookup, err := c.Get(ctx, "acct-1", models.CategoryRanking, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, lookup.Entry)
}

func TestCategoryCache_JanitorExpiryClearsEntry(t *testing.T) {
	c, mr := createCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "acct-1", models.CategoryRanking, json.RawMessage(`{}`)))
	mr.FastForward(25 * time.Hour)

	lookup, err := c.Get(ctx, "acct-1", models.CategoryRanking, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, lookup.Entry)
}

func TestCategoryCache_Invalidate(t *testing.T) {
	c, _ := createCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "acct-1", models.CategoryRanking, json.RawMessage(`{}`)))
	require.NoError(t, c.Put(ctx, "acct-1", models.CategoryConversion, json.RawMessage(`{}`)))

	require.NoError(t, c.Invalidate(ctx, "acct-1", models.CategoryRanking))
	lookup, err := c.Get(ctx, "acct-1", models.CategoryRanking, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, lookup.Entry)

	require.NoError(t, c.InvalidateAccount(ctx, "acct-1"))
	lookup, err = c.Get(ctx, "acct-1", models.CategoryConversion, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, lookup.Entry)
}

func TestCategoryCache_RedisDownSurfacesCacheUnavailable(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := New(rdb, 24*time.Hour, logger.NewNoOpLogger())

	mock.ExpectGet("issues:acct-1:ranking").SetErr(errors.New("connection refused"))

	_, err := c.Get(context.Background(), "acct-1", models.CategoryRanking, time.Minute)
	require.Error(t, err)

	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeCacheUnavailable, stdErr.Code)
	assert.Equal(t, "ranking", stdErr.Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}
