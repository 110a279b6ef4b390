package archive

import "time"

// ArchivedGroup marks a group whose rows are parked. Membership here is
// what excludes a group from rankings and global stats.
type ArchivedGroup struct {
	GroupID    int64     `json:"group_id" gorm:"primaryKey;autoIncrement:false"`
	ArchivedAt time.Time `json:"archived_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ArchivedGroup) TableName() string {
	return "archived_groups"
}

// MemberArchive mirrors group_members. One parked snapshot per group; a
// second archive overwrites it.
type MemberArchive struct {
	GroupID          int64      `gorm:"primaryKey;autoIncrement:false"`
	UserID           int64      `gorm:"primaryKey;autoIncrement:false"`
	Nickname         string     `gorm:"not null;default:''"`
	TotalCount       int64      `gorm:"not null;default:0"`
	TotalWords       int64      `gorm:"not null;default:0"`
	ActiveDays       int        `gorm:"not null;default:0"`
	ContinuousDays   int        `gorm:"not null;default:0"`
	LastSpeakingTime *time.Time
	CreatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (MemberArchive) TableName() string {
	return "group_members_archive"
}

// BucketArchive mirrors stat_buckets.
type BucketArchive struct {
	GroupID      int64     `gorm:"primaryKey;autoIncrement:false"`
	UserID       int64     `gorm:"primaryKey;autoIncrement:false"`
	Granularity  string    `gorm:"primaryKey;size:8"`
	PeriodKey    string    `gorm:"primaryKey;size:10"`
	MessageCount int64     `gorm:"not null;default:0"`
	WordCount    int64     `gorm:"not null;default:0"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (BucketArchive) TableName() string {
	return "stat_buckets_archive"
}
