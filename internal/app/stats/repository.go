package stats

import (
	"errors"

	"gorm.io/gorm"
)

// Repository is the narrow persistence surface the aggregation engine
// consumes. Archival mutations live in the archive package; the engine only
// reads the archived markers to exclude parked groups.
type Repository interface {
	GetMember(groupID, userID int64) (*Member, error)
	UpsertMember(m *Member, countDelta, wordDelta int64) error
	GetBuckets(groupID, userID int64, granularity string, keys []string) ([]Bucket, error)
	UpsertBucket(groupID, userID int64, granularity, key string, countDelta, wordDelta int64) error
	SaveBuckets(buckets []Bucket) error
	QueryBucketsByGroupAndKey(granularity string, groupID int64, key string) ([]Bucket, error)
	QueryBucketsByKeyAllGroups(granularity, key string) ([]Bucket, error)
	GetTopMembers(groupID int64, limit int) ([]Member, error)
	GetTopMembersAllGroups(limit int, excludedGroups []int64) ([]Member, error)
	ListMembers(groupID int64) ([]Member, error)
	ListMembersAllGroups(excludedGroups []int64) ([]Member, error)
	ListGroups() ([]Group, error)
	GetGroup(groupID int64) (*Group, error)
	IsGroupArchived(groupID int64) (bool, error)
	ListArchivedGroupIDs() ([]int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetMember(groupID, userID int64) (*Member, error) {
	var member Member
	err := r.db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// UpsertMember applies the running-totals increment store-side so that two
// interleaved updates to the same member never lose a count. Derived fields
// (nickname, active/continuous days, last speaking time) are taken from the
// caller's freshly mutated view.
func (r *repository) UpsertMember(m *Member, countDelta, wordDelta int64) error {
	return r.db.Exec(`
		INSERT INTO group_members
			(group_id, user_id, nickname, total_count, total_words, active_days, continuous_days, last_speaking_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
		ON CONFLICT (group_id, user_id) DO UPDATE SET
			nickname = EXCLUDED.nickname,
			total_count = group_members.total_count + ?,
			total_words = group_members.total_words + ?,
			active_days = EXCLUDED.active_days,
			continuous_days = EXCLUDED.continuous_days,
			last_speaking_time = EXCLUDED.last_speaking_time,
			updated_at = NOW()
	`, m.GroupID, m.UserID, m.Nickname, countDelta, wordDelta,
		m.ActiveDays, m.ContinuousDays, m.LastSpeakingTime,
		countDelta, wordDelta).Error
}

func (r *repository) GetBuckets(groupID, userID int64, granularity string, keys []string) ([]Bucket, error) {
	var buckets []Bucket
	if len(keys) == 0 {
		return buckets, nil
	}
	err := r.db.
		Where("group_id = ? AND user_id = ? AND granularity = ? AND period_key IN ?",
			groupID, userID, granularity, keys).
		Find(&buckets).Error
	if err != nil {
		return nil, err
	}
	return buckets, nil
}

func (r *repository) UpsertBucket(groupID, userID int64, granularity, key string, countDelta, wordDelta int64) error {
	return r.db.Exec(`
		INSERT INTO stat_buckets
			(group_id, user_id, granularity, period_key, message_count, word_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NOW())
		ON CONFLICT (group_id, user_id, granularity, period_key) DO UPDATE SET
			message_count = stat_buckets.message_count + ?,
			word_count = stat_buckets.word_count + ?,
			updated_at = NOW()
	`, groupID, userID, granularity, key, countDelta, wordDelta,
		countDelta, wordDelta).Error
}

// SaveBuckets rewrites buckets with absolute values, used by the full
// resync persist mode after bulk operations.
func (r *repository) SaveBuckets(buckets []Bucket) error {
	if len(buckets) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		for i := range buckets {
			b := buckets[i]
			err := tx.Exec(`
				INSERT INTO stat_buckets
					(group_id, user_id, granularity, period_key, message_count, word_count, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, NOW())
				ON CONFLICT (group_id, user_id, granularity, period_key) DO UPDATE SET
					message_count = EXCLUDED.message_count,
					word_count = EXCLUDED.word_count,
					updated_at = NOW()
			`, b.GroupID, b.UserID, b.Granularity, b.PeriodKey, b.MessageCount, b.WordCount).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repository) QueryBucketsByGroupAndKey(granularity string, groupID int64, key string) ([]Bucket, error) {
	var buckets []Bucket
	err := r.db.
		Where("group_id = ? AND granularity = ? AND period_key = ?", groupID, granularity, key).
		Order("message_count DESC, user_id ASC").
		Find(&buckets).Error
	if err != nil {
		return nil, err
	}
	return buckets, nil
}

func (r *repository) QueryBucketsByKeyAllGroups(granularity, key string) ([]Bucket, error) {
	var buckets []Bucket
	err := r.db.
		Where("granularity = ? AND period_key = ?", granularity, key).
		Find(&buckets).Error
	if err != nil {
		return nil, err
	}
	return buckets, nil
}

func (r *repository) GetTopMembers(groupID int64, limit int) ([]Member, error) {
	var members []Member
	q := r.db.
		Where("group_id = ?", groupID).
		Order("total_count DESC, user_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) GetTopMembersAllGroups(limit int, excludedGroups []int64) ([]Member, error) {
	var members []Member
	q := r.db.Order("total_count DESC, user_id ASC")
	if len(excludedGroups) > 0 {
		q = q.Where("group_id NOT IN ?", excludedGroups)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) ListMembers(groupID int64) ([]Member, error) {
	var members []Member
	err := r.db.Where("group_id = ?", groupID).Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) ListMembersAllGroups(excludedGroups []int64) ([]Member, error) {
	var members []Member
	q := r.db.Session(&gorm.Session{})
	if len(excludedGroups) > 0 {
		q = q.Where("group_id NOT IN ?", excludedGroups)
	}
	if err := q.Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) ListGroups() ([]Group, error) {
	var groups []Group
	if err := r.db.Order("id ASC").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *repository) GetGroup(groupID int64) (*Group, error) {
	var group Group
	err := r.db.Where("id = ?", groupID).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *repository) IsGroupArchived(groupID int64) (bool, error) {
	var count int64
	err := r.db.Table("archived_groups").Where("group_id = ?", groupID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListArchivedGroupIDs() ([]int64, error) {
	var ids []int64
	err := r.db.Table("archived_groups").Order("group_id ASC").Pluck("group_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
