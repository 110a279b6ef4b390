package stats

import (
	"context"
	"testing"
	"time"

	"backend/internal/config"
	"backend/internal/timekey"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func newTestService(store Repository) *service {
	cfg := &config.Config{
		EntityCacheSize:  128,
		EntityCacheTTL:   time.Minute,
		SummaryCacheSize: 32,
		SummaryCacheTTL:  time.Minute,
		RankingCacheSize: 32,
		RankingCacheTTL:  time.Minute,
		GlobalCacheSize:  8,
		GlobalCacheTTL:   time.Minute,
	}
	svc := NewService(store, timekey.NewDeriver(time.UTC), nil, zap.NewNop(), cfg).(*service)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestUpdateUserStatsSameDay(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	for _, words := range []int{5, 0, 12} {
		svc.UpdateUserStats(ctx, 1, 42, "alice", words, testNow, "")
	}

	entity := svc.GetUserData(ctx, 1, 42)
	require.NotNil(t, entity)
	assert.Equal(t, int64(3), entity.TotalCount)
	assert.Equal(t, int64(17), entity.TotalWords)
	assert.Equal(t, 1, entity.ActiveDays)
	assert.Equal(t, 1, entity.ContinuousDays)
	assert.Equal(t, BucketTotals{Count: 3, Words: 17}, entity.Days["2026-08-31"])
	require.NotNil(t, entity.LastSpeakingTime)
	assert.Equal(t, testNow, *entity.LastSpeakingTime)
}

func TestRollupAdditivity(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	words := []int{3, 0, 7, 1, 9}
	days := []int{0, 0, -1, -1, -2}
	var sum int64
	for i, w := range words {
		svc.UpdateUserStats(ctx, 1, 42, "alice", w, testNow.AddDate(0, 0, days[i]), "")
		sum += int64(w)
	}

	entity := svc.GetUserData(ctx, 1, 42)
	require.NotNil(t, entity)
	assert.Equal(t, int64(len(words)), entity.TotalCount)
	assert.Equal(t, sum, entity.TotalWords)

	var dayCounts, dayWords int64
	for _, totals := range entity.Days {
		dayCounts += totals.Count
		dayWords += totals.Words
	}
	assert.Equal(t, entity.TotalCount, dayCounts, "day buckets must sum to the running total inside the retention window")
	assert.Equal(t, entity.TotalWords, dayWords)

	assert.Equal(t, 3, entity.ActiveDays)
	assert.Equal(t, 3, entity.ContinuousDays)
}

func TestContinuousDaysIsMaxStreakOverWindow(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	// A four-day run ending well before today beats the single message today.
	for _, offset := range []int{-11, -10, -9, -8, 0} {
		svc.UpdateUserStats(ctx, 1, 42, "alice", 1, testNow.AddDate(0, 0, offset), "")
	}

	entity := svc.GetUserData(ctx, 1, 42)
	require.NotNil(t, entity)
	assert.Equal(t, 5, entity.ActiveDays)
	assert.Equal(t, 4, entity.ContinuousDays)
}

func TestUpdateWritesAllGranularities(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	svc.UpdateUserStats(context.Background(), 1, 42, "alice", 4, testNow, "")

	expected := map[bucketID]Bucket{
		{1, 42, GranularityDay, "2026-08-31"}: {MessageCount: 1, WordCount: 4},
		{1, 42, GranularityWeek, "2026-W36"}:  {MessageCount: 1, WordCount: 4},
		{1, 42, GranularityMonth, "2026-08"}:  {MessageCount: 1, WordCount: 4},
		{1, 42, GranularityYear, "2026"}:      {MessageCount: 1, WordCount: 4},
	}
	for id, want := range expected {
		got, ok := store.buckets[id]
		require.True(t, ok, "missing bucket %v", id)
		assert.Equal(t, want.MessageCount, got.MessageCount)
		assert.Equal(t, want.WordCount, got.WordCount)
	}
}

func TestGetUserDataCacheAside(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	svc.UpdateUserStats(ctx, 1, 42, "alice", 5, testNow, "")

	first := svc.GetUserData(ctx, 1, 42)
	require.NotNil(t, first)
	afterMiss := store.queryCalls

	second := svc.GetUserData(ctx, 1, 42)
	assert.Equal(t, afterMiss, store.queryCalls, "cache hit must not touch the store")
	assert.Equal(t, first, second)

	// A forced miss assembles the same shape the hit returned.
	svc.ClearCache(1, nil)
	third := svc.GetUserData(ctx, 1, 42)
	assert.Equal(t, first, third)
	assert.Greater(t, store.queryCalls, afterMiss)
}

func TestGetUserDataUnknownUser(t *testing.T) {
	svc := newTestService(newFakeStore())

	assert.Nil(t, svc.GetUserData(context.Background(), 1, 999))
}

func TestReadPathSwallowsStoreFailures(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	store.failMembers = true
	store.failBuckets = true
	store.failGroups = true

	assert.Nil(t, svc.GetUserData(ctx, 1, 42))
	assert.Empty(t, svc.GetRankingData(ctx, 1, PeriodTotal, 10))
	assert.Nil(t, svc.GetUserRankData(ctx, 42, 1, PeriodTotal))
	assert.Nil(t, svc.GetGroupSummary(ctx, 1))

	global := svc.GetGlobalStats(ctx, 1, 10)
	require.NotNil(t, global)
	assert.Zero(t, global.TotalGroups)
	assert.Empty(t, global.Groups)
}

func TestWriteDropsEventOnPersistFailure(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	svc.UpdateUserStats(ctx, 1, 42, "alice", 5, testNow, "")
	require.NotNil(t, svc.GetUserData(ctx, 1, 42))

	store.failMembers = true
	svc.UpdateUserStats(ctx, 1, 42, "alice", 100, testNow, "")
	store.failMembers = false

	entity := svc.GetUserData(ctx, 1, 42)
	require.NotNil(t, entity)
	assert.Equal(t, int64(1), entity.TotalCount, "failed update must be dropped, not partially applied")
	assert.Equal(t, int64(5), entity.TotalWords)
}

func TestWriteToArchivedGroupIsDropped(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	store.archived[1] = true
	svc.UpdateUserStats(ctx, 1, 42, "alice", 5, testNow, "")

	assert.Empty(t, store.members, "an archived group must not regain live rows")
	assert.Empty(t, store.buckets)

	// After a restore clears the marker, writes flow again.
	delete(store.archived, 1)
	svc.UpdateUserStats(ctx, 1, 42, "alice", 5, testNow, "")
	assert.Len(t, store.members, 1)
}

func TestFullResyncRewritesAllRetainedBuckets(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	svc.fullResync = true
	ctx := context.Background()

	svc.UpdateUserStats(ctx, 1, 42, "alice", 2, testNow.AddDate(0, 0, -1), "")
	svc.UpdateUserStats(ctx, 1, 42, "alice", 3, testNow, "")

	require.Len(t, store.saveAll, 2)
	// The second write rewrites both days, both ISO weeks (Aug 30 2026 is a
	// Sunday, Aug 31 a Monday), the month and the year.
	last := store.saveAll[1]
	assert.Len(t, last, 6)

	entity := svc.GetUserData(ctx, 1, 42)
	require.NotNil(t, entity)
	assert.Equal(t, BucketTotals{Count: 1, Words: 2}, entity.Days["2026-08-30"])
	assert.Equal(t, BucketTotals{Count: 1, Words: 3}, entity.Days["2026-08-31"])
}

func TestClearCachePerUser(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	svc.UpdateUserStats(ctx, 1, 42, "alice", 5, testNow, "")
	svc.GetUserData(ctx, 1, 42)
	cached := store.queryCalls
	svc.GetUserData(ctx, 1, 42)
	require.Equal(t, cached, store.queryCalls)

	userID := int64(42)
	svc.ClearCache(1, &userID)
	svc.GetUserData(ctx, 1, 42)
	assert.Greater(t, store.queryCalls, cached)
}
