package stats

import (
	"context"
	"sort"
)

// GetRankingData returns the leaderboard for one group, or across every
// non-archived group when groupID is AllGroups and the period is total.
// limit <= 0 means the entire sorted set. Results are cached per
// (group, period, limit) with a short TTL; every write to the group clears
// the ranking cache, so the TTL mostly absorbs read bursts between writes.
func (s *service) GetRankingData(ctx context.Context, groupID int64, period Period, limit int) []RankingRow {
	key := rankingKey{GroupID: groupID, Period: period, Limit: limit}
	if rows, ok := s.rankingCache.Get(key); ok {
		return rows
	}

	rows := s.computeRanking(ctx, groupID, period, limit)
	s.rankingCache.Set(key, rows)
	return rows
}

// GetMonthlyRanking serves the leaderboard for one specific calendar month.
// A malformed month key is silently replaced with the current month rather
// than rejected.
func (s *service) GetMonthlyRanking(ctx context.Context, groupID int64, monthKey string, limit int) []RankingRow {
	resolved := s.keys.MonthKeyOrCurrent(monthKey, s.now())
	key := rankingKey{GroupID: groupID, Period: PeriodMonthly, Key: resolved, Limit: limit}
	if rows, ok := s.rankingCache.Get(key); ok {
		return rows
	}

	rows := []RankingRow{}
	if groupID != AllGroups && !s.IsGroupArchived(ctx, groupID) {
		rows = s.periodRankingForKey(groupID, PeriodMonthly, GranularityMonth, resolved, limit)
	}
	s.rankingCache.Set(key, rows)
	return rows
}

// GetUserRankData locates the user's 1-based rank inside the full sorted
// set. Fetching the whole set is an accepted O(n) cost bounded by group
// size.
func (s *service) GetUserRankData(ctx context.Context, userID, groupID int64, period Period) *RankingRow {
	rows := s.GetRankingData(ctx, groupID, period, 0)
	for i := range rows {
		if rows[i].UserID == userID {
			row := rows[i]
			return &row
		}
	}
	return nil
}

func (s *service) computeRanking(ctx context.Context, groupID int64, period Period, limit int) []RankingRow {
	rows := []RankingRow{}

	if groupID != AllGroups && s.IsGroupArchived(ctx, groupID) {
		return rows
	}

	if period == PeriodTotal {
		return s.totalRanking(groupID, limit)
	}
	if groupID == AllGroups {
		// Cross-group mode only exists for the total period.
		return rows
	}
	return s.periodRanking(groupID, period, limit)
}

func (s *service) totalRanking(groupID int64, limit int) []RankingRow {
	var members []Member
	var err error

	if groupID == AllGroups {
		members, err = s.repo.GetTopMembersAllGroups(limit, s.archivedGroupIDs())
	} else {
		members, err = s.repo.GetTopMembers(groupID, limit)
	}
	if err != nil {
		s.logger.Errorw("Ranking query failed", "group_id", groupID, "error", err)
		return []RankingRow{}
	}

	rows := make([]RankingRow, 0, len(members))
	for i, m := range members {
		rows = append(rows, RankingRow{
			UserID:   m.UserID,
			Nickname: m.Nickname,
			Count:    m.TotalCount,
			Words:    m.TotalWords,
			Rank:     i + 1,
		})
	}
	return rows
}

// periodRanking reads the pre-aggregated buckets for exactly the current
// period key; each bucket already covers the whole period, so no
// cross-period merge is needed.
func (s *service) periodRanking(groupID int64, period Period, limit int) []RankingRow {
	granularity := period.granularity()
	return s.periodRankingForKey(groupID, period, granularity, s.currentKey(granularity), limit)
}

func (s *service) periodRankingForKey(groupID int64, period Period, granularity, key string, limit int) []RankingRow {
	buckets, err := s.repo.QueryBucketsByGroupAndKey(granularity, groupID, key)
	if err != nil {
		s.logger.Errorw("Period ranking query failed",
			"group_id", groupID, "period", period, "error", err)
		return []RankingRow{}
	}

	nicknames := s.nicknamesByUser(groupID)

	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].MessageCount != buckets[j].MessageCount {
			return buckets[i].MessageCount > buckets[j].MessageCount
		}
		return buckets[i].UserID < buckets[j].UserID
	})

	rows := make([]RankingRow, 0, len(buckets))
	for i, b := range buckets {
		if limit > 0 && i >= limit {
			break
		}
		rows = append(rows, RankingRow{
			UserID:   b.UserID,
			Nickname: nicknames[b.UserID],
			Count:    b.MessageCount,
			Words:    b.WordCount,
			Rank:     i + 1,
		})
	}
	return rows
}

func (s *service) GetGroupSummary(ctx context.Context, groupID int64) *GroupSummary {
	if summary, ok := s.summaryCache.Get(groupID); ok {
		return summary
	}
	if s.IsGroupArchived(ctx, groupID) {
		return nil
	}

	members, err := s.repo.ListMembers(groupID)
	if err != nil {
		s.logger.Errorw("Group summary member query failed", "group_id", groupID, "error", err)
		return nil
	}
	if len(members) == 0 {
		return nil
	}

	summary := &GroupSummary{GroupID: groupID, MemberCount: len(members)}
	if group, err := s.repo.GetGroup(groupID); err == nil && group != nil {
		summary.Title = group.Title
	}
	for _, m := range members {
		summary.TotalMessages += m.TotalCount
		summary.TotalWords += m.TotalWords
	}

	now := s.now()
	if today, err := s.repo.QueryBucketsByGroupAndKey(GranularityDay, groupID, s.keys.DayKey(now)); err == nil {
		for _, b := range today {
			summary.TodayMessages += b.MessageCount
			summary.TodayWords += b.WordCount
		}
		summary.ActiveToday = len(today)
	} else {
		s.logger.Warnw("Group summary day query failed", "group_id", groupID, "error", err)
	}
	if month, err := s.repo.QueryBucketsByGroupAndKey(GranularityMonth, groupID, s.keys.MonthKey(now)); err == nil {
		for _, b := range month {
			summary.MonthMessages += b.MessageCount
		}
	} else {
		s.logger.Warnw("Group summary month query failed", "group_id", groupID, "error", err)
	}

	s.summaryCache.Set(groupID, summary)
	return summary
}

// GetGlobalStats aggregates across every non-archived group with one query
// per concern (all members, all of today's buckets, all of this month's
// buckets, group metadata) and joins in memory, avoiding a round trip per
// group. Users present in several groups are deduplicated before counting.
func (s *service) GetGlobalStats(_ context.Context, page, pageSize int) *GlobalStats {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 50 {
		pageSize = 50
	}

	key := globalKey{Page: page, PageSize: pageSize}
	if global, ok := s.globalCache.Get(key); ok {
		return global
	}

	archived := map[int64]bool{}
	excluded := s.archivedGroupIDs()
	for _, id := range excluded {
		archived[id] = true
	}

	degraded := false

	allGroups, err := s.repo.ListGroups()
	if err != nil {
		s.logger.Errorw("Global stats group query failed", "error", err)
		return emptyGlobalStats(page, pageSize)
	}

	members, err := s.repo.ListMembersAllGroups(excluded)
	if err != nil {
		s.logger.Errorw("Global stats member query failed", "error", err)
		members = nil
		degraded = true
	}

	now := s.now()
	todayBuckets, err := s.repo.QueryBucketsByKeyAllGroups(GranularityDay, s.keys.DayKey(now))
	if err != nil {
		s.logger.Warnw("Global stats day query failed", "error", err)
		todayBuckets = nil
		degraded = true
	}
	monthBuckets, err := s.repo.QueryBucketsByKeyAllGroups(GranularityMonth, s.keys.MonthKey(now))
	if err != nil {
		s.logger.Warnw("Global stats month query failed", "error", err)
		monthBuckets = nil
		degraded = true
	}

	// The group set is the union of metadata rows and member rows: a group
	// whose activity arrived before any chat_groups row exists still counts,
	// just without a title.
	summaries := make(map[int64]*GroupSummary, len(allGroups))
	for _, g := range allGroups {
		if !archived[g.ID] {
			summaries[g.ID] = &GroupSummary{GroupID: g.ID, Title: g.Title}
		}
	}

	global := &GlobalStats{}
	distinctUsers := map[int64]bool{}
	for _, m := range members {
		summary, ok := summaries[m.GroupID]
		if !ok {
			summary = &GroupSummary{GroupID: m.GroupID}
			summaries[m.GroupID] = summary
		}
		summary.MemberCount++
		summary.TotalMessages += m.TotalCount
		summary.TotalWords += m.TotalWords
		distinctUsers[m.UserID] = true
		global.TotalMessages += m.TotalCount
		global.TotalWords += m.TotalWords
	}
	for _, b := range todayBuckets {
		summary, ok := summaries[b.GroupID]
		if !ok {
			continue
		}
		summary.TodayMessages += b.MessageCount
		summary.TodayWords += b.WordCount
		summary.ActiveToday++
		global.MessagesToday += b.MessageCount
	}
	for _, b := range monthBuckets {
		summary, ok := summaries[b.GroupID]
		if !ok {
			continue
		}
		summary.MonthMessages += b.MessageCount
		global.MessagesThisMonth += b.MessageCount
	}

	ordered := make([]GroupSummary, 0, len(summaries))
	for _, summary := range summaries {
		ordered = append(ordered, *summary)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].TotalMessages != ordered[j].TotalMessages {
			return ordered[i].TotalMessages > ordered[j].TotalMessages
		}
		return ordered[i].GroupID < ordered[j].GroupID
	})

	global.TotalGroups = len(ordered)
	global.TotalUsers = len(distinctUsers)

	total := int64(len(ordered))
	totalPages := (total + int64(pageSize) - 1) / int64(pageSize)
	start := (page - 1) * pageSize
	if start > len(ordered) {
		start = len(ordered)
	}
	end := start + pageSize
	if end > len(ordered) {
		end = len(ordered)
	}
	global.Groups = ordered[start:end]
	global.Pagination = Pagination{Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages}

	// A result assembled while any batch query was failing is served but not
	// cached, so the next read retries instead of pinning zeros for the TTL.
	if !degraded {
		s.globalCache.Set(key, global)
	}
	return global
}

func (s *service) currentKey(granularity string) string {
	now := s.now()
	switch granularity {
	case GranularityDay:
		return s.keys.DayKey(now)
	case GranularityWeek:
		return s.keys.WeekKey(now)
	case GranularityMonth:
		return s.keys.MonthKey(now)
	default:
		return s.keys.YearKey(now)
	}
}

func (s *service) archivedGroupIDs() []int64 {
	ids, err := s.repo.ListArchivedGroupIDs()
	if err != nil {
		s.logger.Warnw("Failed to list archived groups", "error", err)
		return nil
	}
	return ids
}

func (s *service) nicknamesByUser(groupID int64) map[int64]string {
	members, err := s.repo.ListMembers(groupID)
	if err != nil {
		s.logger.Warnw("Nickname lookup failed", "group_id", groupID, "error", err)
		return map[int64]string{}
	}
	out := make(map[int64]string, len(members))
	for _, m := range members {
		out[m.UserID] = m.Nickname
	}
	return out
}

func emptyGlobalStats(page, pageSize int) *GlobalStats {
	return &GlobalStats{
		Groups:     []GroupSummary{},
		Pagination: Pagination{Page: page, PageSize: pageSize},
	}
}
