package locale

import (
	"context"
	"testing"

	"github.com/momacs/localedb/internal/core"
	"github.com/momacs/localedb/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingResolver struct {
	nameCalls    int
	fipsCalls    int
	partialCalls int
	id           int64
	ids          []int64
	err          error
}

func (m *countingResolver) ResolveByName(_ context.Context, _ string, _, _ *string) (int64, error) {
	m.nameCalls++
	return m.id, m.err
}

func (m *countingResolver) ResolveByFIPS(_ context.Context, _ string) (int64, error) {
	m.fipsCalls++
	return m.id, m.err
}

func (m *countingResolver) ResolveAdmin1Partial(_ context.Context, _, _ string, _ *string) ([]int64, error) {
	m.partialCalls++
	return m.ids, m.err
}

func (m *countingResolver) ResolveFIPSPrefix(ctx context.Context, code string, n int) (int64, error) {
	return m.ResolveByFIPS(ctx, code[:n])
}

// --- CachedResolver tests ---

func TestCachedResolver_NameCacheHit(t *testing.T) {
	inner := &countingResolver{id: 39}
	m := observability.NewMetricsForTesting()
	cached := NewCachedResolver(inner, 10, m)
	ohio := "Ohio"

	id, err := cached.ResolveByName(context.Background(), "US", &ohio, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(39), id)

	id, err = cached.ResolveByName(context.Background(), "US", &ohio, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(39), id)

	assert.Equal(t, 1, inner.nameCalls, "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(m.ResolverCache.WithLabelValues("name", "hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ResolverCache.WithLabelValues("name", "miss")), 0)
}

func TestCachedResolver_NullAndEmptyAreDistinct(t *testing.T) {
	inner := &countingResolver{id: 1}
	cached := NewCachedResolver(inner, 10, nil)
	empty := ""

	_, _ = cached.ResolveByName(context.Background(), "US", nil, nil)
	_, _ = cached.ResolveByName(context.Background(), "US", &empty, nil)

	assert.Equal(t, 2, inner.nameCalls)
}

func TestCachedResolver_FailuresNotCached(t *testing.T) {
	inner := &countingResolver{err: &core.LocaleNotFoundError{Key: core.LocaleKey{FIPS: "99"}}}
	cached := NewCachedResolver(inner, 10, nil)

	_, err := cached.ResolveByFIPS(context.Background(), "99")
	require.Error(t, err)
	_, err = cached.ResolveByFIPS(context.Background(), "99")
	require.Error(t, err)

	assert.Equal(t, 2, inner.fipsCalls, "not-found results must be retried")
}

func TestCachedResolver_PrefixSharesFIPSEntries(t *testing.T) {
	inner := &countingResolver{id: 2}
	cached := NewCachedResolver(inner, 10, nil)

	_, err := cached.ResolveFIPSPrefix(context.Background(), "390490071001", 5)
	require.NoError(t, err)
	_, err = cached.ResolveFIPSPrefix(context.Background(), "390490072002", 5)
	require.NoError(t, err)
	_, err = cached.ResolveByFIPS(context.Background(), "39049")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.fipsCalls)
}

func TestCachedResolver_PartialReturnsCopy(t *testing.T) {
	inner := &countingResolver{ids: []int64{7, 8}}
	cached := NewCachedResolver(inner, 10, nil)
	county := "Franklin"

	ids, err := cached.ResolveAdmin1Partial(context.Background(), "US", "Ohio", &county)
	require.NoError(t, err)
	ids[0] = 99

	again, err := cached.ResolveAdmin1Partial(context.Background(), "US", "Ohio", &county)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 8}, again)
	assert.Equal(t, 1, inner.partialCalls)
}

// --- LRU cache unit tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache[int64](3)

	c.put("a", 1)
	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, int64(1), v)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newLRUCache[int64](2)

	c.put("a", 1)
	c.put("b", 2)
	c.get("a") // a is now most recent
	c.put("c", 3)

	_, ok := c.get("b")
	assert.False(t, ok, "b should be evicted")
	_, ok = c.get("a")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache[int64](2)

	c.put("a", 1)
	c.put("a", 5)

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, int64(5), v)
	assert.Equal(t, 1, c.len())
}
