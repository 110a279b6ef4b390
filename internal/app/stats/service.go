package stats

import (
	"context"
	"sort"
	"time"

	"backend/internal/cache"
	"backend/internal/config"
	"backend/internal/timekey"

	"go.uber.org/zap"
)

// Service is the aggregation engine. Read paths never propagate store
// failures outward: they log and return nil/empty so a failing query turns
// into an empty dashboard, not a crash. The write path logs and drops the
// event on failure rather than applying backpressure to the message
// pipeline.
type Service interface {
	GetUserData(ctx context.Context, groupID, userID int64) *Entity
	UpdateUserStats(ctx context.Context, groupID, userID int64, nickname string, wordCount int, eventTime time.Time, eventID string)
	GetRankingData(ctx context.Context, groupID int64, period Period, limit int) []RankingRow
	GetMonthlyRanking(ctx context.Context, groupID int64, monthKey string, limit int) []RankingRow
	GetUserRankData(ctx context.Context, userID, groupID int64, period Period) *RankingRow
	GetGroupSummary(ctx context.Context, groupID int64) *GroupSummary
	GetGlobalStats(ctx context.Context, page, pageSize int) *GlobalStats
	IsGroupArchived(ctx context.Context, groupID int64) bool
	ClearCache(groupID int64, userID *int64)
	InvalidateGroup(groupID int64)
}

type entityKey struct {
	GroupID int64
	UserID  int64
}

type rankingKey struct {
	GroupID int64
	Period  Period
	Key     string
	Limit   int
}

type globalKey struct {
	Page     int
	PageSize int
}

type service struct {
	repo       Repository
	keys       *timekey.Deriver
	notifier   *Notifier
	logger     *zap.SugaredLogger
	fullResync bool
	now        func() time.Time

	entityCache  *cache.Cache[entityKey, *Entity]
	summaryCache *cache.Cache[int64, *GroupSummary]
	rankingCache *cache.Cache[rankingKey, []RankingRow]
	globalCache  *cache.Cache[globalKey, *GlobalStats]
}

func NewService(repo Repository, keys *timekey.Deriver, notifier *Notifier, logger *zap.Logger, cfg *config.Config) Service {
	return &service{
		repo:         repo,
		keys:         keys,
		notifier:     notifier,
		logger:       logger.Sugar(),
		fullResync:   cfg.FullResync,
		now:          time.Now,
		entityCache:  cache.New[entityKey, *Entity](cfg.EntityCacheSize, cfg.EntityCacheTTL),
		summaryCache: cache.New[int64, *GroupSummary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL),
		rankingCache: cache.New[rankingKey, []RankingRow](cfg.RankingCacheSize, cfg.RankingCacheTTL),
		globalCache:  cache.New[globalKey, *GlobalStats](cfg.GlobalCacheSize, cfg.GlobalCacheTTL),
	}
}

func (s *service) GetUserData(ctx context.Context, groupID, userID int64) *Entity {
	entity, err := s.loadEntity(ctx, groupID, userID)
	if err != nil {
		s.logger.Errorw("Failed to load user stats", "group_id", groupID, "user_id", userID, "error", err)
		return nil
	}
	return entity
}

// loadEntity is the cache-aside read: on a miss the running totals row and
// the retained bucket windows are fetched separately and assembled into the
// same shape a hit returns. Absent users are (nil, nil), not an error.
func (s *service) loadEntity(_ context.Context, groupID, userID int64) (*Entity, error) {
	key := entityKey{GroupID: groupID, UserID: userID}
	if entity, ok := s.entityCache.Get(key); ok {
		return entity, nil
	}

	member, err := s.repo.GetMember(groupID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, nil
	}

	now := s.now()
	entity := &Entity{
		GroupID:          member.GroupID,
		UserID:           member.UserID,
		Nickname:         member.Nickname,
		TotalCount:       member.TotalCount,
		TotalWords:       member.TotalWords,
		ActiveDays:       member.ActiveDays,
		ContinuousDays:   member.ContinuousDays,
		LastSpeakingTime: member.LastSpeakingTime,
		Days:             map[string]BucketTotals{},
		Weeks:            map[string]BucketTotals{},
		Months:           map[string]BucketTotals{},
		Years:            map[string]BucketTotals{},
	}

	windows := []struct {
		granularity string
		keys        []string
		dest        map[string]BucketTotals
	}{
		{GranularityDay, s.keys.LastNDays(dayWindow, now), entity.Days},
		{GranularityWeek, s.keys.LastNWeeks(weekWindow, now), entity.Weeks},
		{GranularityMonth, s.keys.LastNMonths(monthWindow, now), entity.Months},
		{GranularityYear, []string{s.keys.YearKey(now)}, entity.Years},
	}
	for _, w := range windows {
		buckets, err := s.repo.GetBuckets(groupID, userID, w.granularity, w.keys)
		if err != nil {
			return nil, err
		}
		for _, b := range buckets {
			w.dest[b.PeriodKey] = BucketTotals{Count: b.MessageCount, Words: b.WordCount}
		}
	}

	s.entityCache.Set(key, entity)
	return entity, nil
}

// UpdateUserStats runs the sequential write path: load-or-init, mutate,
// persist the current period's rows, invalidate, notify. Any failure before
// the invalidation step aborts the update; the event is logged and dropped.
// Events for archived groups are dropped too: their rows live in the archive
// tables, and recreating live rows would collide with a later restore.
func (s *service) UpdateUserStats(ctx context.Context, groupID, userID int64, nickname string, wordCount int, eventTime time.Time, eventID string) {
	if eventTime.IsZero() {
		eventTime = s.now()
	}

	if s.IsGroupArchived(ctx, groupID) {
		s.logger.Warnw("Dropping stats event: group is archived",
			"group_id", groupID, "user_id", userID, "event_id", eventID)
		return
	}

	loaded, err := s.loadEntity(ctx, groupID, userID)
	if err != nil {
		s.logger.Errorw("Dropping stats event: load failed",
			"group_id", groupID, "user_id", userID, "event_id", eventID, "error", err)
		return
	}

	var entity *Entity
	if loaded != nil {
		entity = loaded.clone()
	} else {
		entity = newEntity(groupID, userID, nickname)
	}

	before := entity.TotalCount
	if nickname != "" {
		entity.Nickname = nickname
	}
	entity.TotalCount++
	entity.TotalWords += int64(wordCount)
	t := eventTime
	entity.LastSpeakingTime = &t

	keys := s.keys.At(eventTime)
	bump(entity.Days, keys.Day, wordCount)
	bump(entity.Weeks, keys.Week, wordCount)
	bump(entity.Months, keys.Month, wordCount)
	bump(entity.Years, keys.Year, wordCount)
	entity.ActiveDays = len(entity.Days)
	entity.ContinuousDays = s.longestStreak(entity.Days)

	if err := s.persist(entity, keys, wordCount); err != nil {
		s.logger.Errorw("Dropping stats event: persist failed",
			"group_id", groupID, "user_id", userID, "event_id", eventID, "error", err)
		return
	}

	// Coarse invalidation: any write can reshuffle top-N order, so the
	// ranking and global caches are cleared wholesale.
	s.entityCache.Delete(entityKey{GroupID: groupID, UserID: userID})
	s.rankingCache.Clear()
	s.summaryCache.Delete(groupID)
	s.globalCache.Clear()

	if s.notifier != nil {
		s.notifier.Notify(ctx, groupID, userID, eventID, entity.Nickname, before, entity.TotalCount)
	}
}

func (s *service) persist(entity *Entity, keys timekey.Keys, wordCount int) error {
	member := &Member{
		GroupID:          entity.GroupID,
		UserID:           entity.UserID,
		Nickname:         entity.Nickname,
		TotalCount:       entity.TotalCount,
		TotalWords:       entity.TotalWords,
		ActiveDays:       entity.ActiveDays,
		ContinuousDays:   entity.ContinuousDays,
		LastSpeakingTime: entity.LastSpeakingTime,
	}
	if err := s.repo.UpsertMember(member, 1, int64(wordCount)); err != nil {
		return err
	}

	if s.fullResync {
		return s.repo.SaveBuckets(entity.buckets())
	}

	current := []struct {
		granularity string
		key         string
	}{
		{GranularityDay, keys.Day},
		{GranularityWeek, keys.Week},
		{GranularityMonth, keys.Month},
		{GranularityYear, keys.Year},
	}
	for _, c := range current {
		if err := s.repo.UpsertBucket(entity.GroupID, entity.UserID, c.granularity, c.key, 1, int64(wordCount)); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) IsGroupArchived(_ context.Context, groupID int64) bool {
	archived, err := s.repo.IsGroupArchived(groupID)
	if err != nil {
		s.logger.Warnw("Failed to check archived flag", "group_id", groupID, "error", err)
		return false
	}
	return archived
}

func (s *service) ClearCache(groupID int64, userID *int64) {
	if userID != nil {
		s.entityCache.Delete(entityKey{GroupID: groupID, UserID: *userID})
	} else {
		s.entityCache.Clear()
	}
	s.rankingCache.Clear()
	s.summaryCache.Delete(groupID)
	s.globalCache.Clear()
}

// InvalidateGroup drops every cache layer that could hold data for the
// group. Entity keys cannot be enumerated per group, so the entity cache is
// cleared wholesale; archive and restore are rare enough for that to be
// fine.
func (s *service) InvalidateGroup(groupID int64) {
	s.entityCache.Clear()
	s.rankingCache.Clear()
	s.summaryCache.Delete(groupID)
	s.globalCache.Clear()
}

// longestStreak is the longest run of consecutive calendar dates in the
// retained day-bucket window, not the currently active streak ending today.
func (s *service) longestStreak(days map[string]BucketTotals) int {
	dates := make([]time.Time, 0, len(days))
	for key := range days {
		if d, err := s.keys.ParseDay(key); err == nil {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	best, run := 0, 0
	for i, d := range dates {
		if i > 0 && dates[i-1].AddDate(0, 0, 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}

func newEntity(groupID, userID int64, nickname string) *Entity {
	return &Entity{
		GroupID:  groupID,
		UserID:   userID,
		Nickname: nickname,
		Days:     map[string]BucketTotals{},
		Weeks:    map[string]BucketTotals{},
		Months:   map[string]BucketTotals{},
		Years:    map[string]BucketTotals{},
	}
}

// clone keeps write-path mutation off the cached instance, so an aborted
// update never leaves a half-mutated entity behind in the cache.
func (e *Entity) clone() *Entity {
	out := *e
	out.Days = copyTotals(e.Days)
	out.Weeks = copyTotals(e.Weeks)
	out.Months = copyTotals(e.Months)
	out.Years = copyTotals(e.Years)
	return &out
}

func (e *Entity) buckets() []Bucket {
	out := make([]Bucket, 0, len(e.Days)+len(e.Weeks)+len(e.Months)+len(e.Years))
	appendAll := func(granularity string, m map[string]BucketTotals) {
		for key, totals := range m {
			out = append(out, Bucket{
				GroupID:      e.GroupID,
				UserID:       e.UserID,
				Granularity:  granularity,
				PeriodKey:    key,
				MessageCount: totals.Count,
				WordCount:    totals.Words,
			})
		}
	}
	appendAll(GranularityDay, e.Days)
	appendAll(GranularityWeek, e.Weeks)
	appendAll(GranularityMonth, e.Months)
	appendAll(GranularityYear, e.Years)
	return out
}

func copyTotals(m map[string]BucketTotals) map[string]BucketTotals {
	out := make(map[string]BucketTotals, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func bump(m map[string]BucketTotals, key string, words int) {
	totals := m[key]
	totals.Count++
	totals.Words += int64(words)
	m[key] = totals
}
