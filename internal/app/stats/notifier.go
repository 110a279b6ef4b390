package stats

import (
	"context"
	"fmt"
	"time"

	"backend/internal/cache"
	"backend/internal/providers/redis"
	"backend/internal/utils"

	"go.uber.org/zap"
)

type notifyKey struct {
	GroupID int64
	UserID  int64
}

// Notifier is the optional post-write side channel: a de-duplicated,
// rate-limited log line describing the before/after totals, plus a
// stats_updated event on the bus for the dashboard feed.
//
// Dedup keys off the event ID so a retried or duplicate-delivered event is
// logged once. When redis is available the dedup marker survives restarts;
// otherwise an in-process TTL cache stands in.
type Notifier struct {
	bus         *utils.EventBus
	redisP      *redis.RedisProvider
	logger      *zap.SugaredLogger
	dedupTTL    time.Duration
	seenEvents  *cache.Cache[string, struct{}]
	recentLogs  *cache.Cache[notifyKey, struct{}]
	minInterval time.Duration
}

func NewNotifier(bus *utils.EventBus, redisP *redis.RedisProvider, logger *zap.Logger, minInterval, dedupTTL time.Duration) *Notifier {
	return &Notifier{
		bus:         bus,
		redisP:      redisP,
		logger:      logger.Sugar(),
		dedupTTL:    dedupTTL,
		seenEvents:  cache.New[string, struct{}](8192, dedupTTL),
		recentLogs:  cache.New[notifyKey, struct{}](4096, minInterval),
		minInterval: minInterval,
	}
}

func (n *Notifier) Notify(ctx context.Context, groupID, userID int64, eventID, nickname string, before, after int64) {
	if eventID != "" && n.isDuplicate(ctx, eventID) {
		return
	}

	if n.bus != nil {
		n.bus.Publish("stats_updated", map[string]interface{}{
			"group_id":    groupID,
			"user_id":     userID,
			"nickname":    nickname,
			"total_count": after,
			"timestamp":   time.Now().UTC().Unix(),
		})
	}

	key := notifyKey{GroupID: groupID, UserID: userID}
	if n.recentLogs.Has(key) {
		return
	}
	n.recentLogs.Set(key, struct{}{})

	n.logger.Infow("Stats updated",
		"group_id", groupID,
		"user_id", userID,
		"nickname", nickname,
		"before_total", before,
		"after_total", after,
		"event_id", eventID,
	)
}

func (n *Notifier) isDuplicate(ctx context.Context, eventID string) bool {
	if n.redisP != nil {
		set, err := n.redisP.SetNX(ctx, fmt.Sprintf("stats:event:%s", eventID), 1, n.dedupTTL)
		if err == nil {
			return !set
		}
		n.logger.Warnw("Event dedup check failed, falling back to local cache",
			"event_id", eventID, "error", err)
	}

	if n.seenEvents.Has(eventID) {
		return true
	}
	n.seenEvents.Set(eventID, struct{}{})
	return false
}
