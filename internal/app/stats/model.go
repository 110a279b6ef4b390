package stats

import "time"

// Granularities of the pre-aggregated period buckets.
const (
	GranularityDay   = "day"
	GranularityWeek  = "week"
	GranularityMonth = "month"
	GranularityYear  = "year"
)

// Retention windows loaded when assembling an entity view.
const (
	dayWindow   = 30
	weekWindow  = 12
	monthWindow = 12
)

// AllGroups selects the cross-group mode of the total ranking.
const AllGroups int64 = 0

type Group struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Group) TableName() string {
	return "chat_groups"
}

// Member is the running-totals row for one (group, user) pair.
type Member struct {
	GroupID          int64      `json:"group_id" gorm:"primaryKey;autoIncrement:false"`
	UserID           int64      `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	Nickname         string     `json:"nickname" gorm:"not null;default:''"`
	TotalCount       int64      `json:"total_count" gorm:"not null;default:0"`
	TotalWords       int64      `json:"total_words" gorm:"not null;default:0"`
	ActiveDays       int        `json:"active_days" gorm:"not null;default:0"`
	ContinuousDays   int        `json:"continuous_days" gorm:"not null;default:0"`
	LastSpeakingTime *time.Time `json:"last_speaking_time"`
	CreatedAt        time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time  `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Member) TableName() string {
	return "group_members"
}

// Bucket is a fixed-period partial aggregate for one (group, user).
type Bucket struct {
	GroupID      int64     `json:"group_id" gorm:"primaryKey;autoIncrement:false"`
	UserID       int64     `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	Granularity  string    `json:"granularity" gorm:"primaryKey;size:8"`
	PeriodKey    string    `json:"period_key" gorm:"primaryKey;size:10"`
	MessageCount int64     `json:"message_count" gorm:"not null;default:0"`
	WordCount    int64     `json:"word_count" gorm:"not null;default:0"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Bucket) TableName() string {
	return "stat_buckets"
}

type BucketTotals struct {
	Count int64 `json:"count"`
	Words int64 `json:"words"`
}

// Entity is the assembled view served upward: running totals plus the
// retained bucket windows (last 30 days, 12 weeks, 12 months, current
// year). A cache hit and a cache miss return this same shape.
type Entity struct {
	GroupID          int64                   `json:"group_id"`
	UserID           int64                   `json:"user_id"`
	Nickname         string                  `json:"nickname"`
	TotalCount       int64                   `json:"total_count"`
	TotalWords       int64                   `json:"total_words"`
	ActiveDays       int                     `json:"active_days"`
	ContinuousDays   int                     `json:"continuous_days"`
	LastSpeakingTime *time.Time              `json:"last_speaking_time"`
	Days             map[string]BucketTotals `json:"days"`
	Weeks            map[string]BucketTotals `json:"weeks"`
	Months           map[string]BucketTotals `json:"months"`
	Years            map[string]BucketTotals `json:"years"`
}

// RankingRow is derived, never persisted.
type RankingRow struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Count    int64  `json:"count"`
	Words    int64  `json:"words"`
	Rank     int    `json:"rank"`
}

type GroupSummary struct {
	GroupID       int64  `json:"group_id"`
	Title         string `json:"title"`
	MemberCount   int    `json:"member_count"`
	TotalMessages int64  `json:"total_messages"`
	TotalWords    int64  `json:"total_words"`
	TodayMessages int64  `json:"today_messages"`
	TodayWords    int64  `json:"today_words"`
	MonthMessages int64  `json:"month_messages"`
	ActiveToday   int    `json:"active_today"`
}

type GlobalStats struct {
	TotalGroups       int            `json:"total_groups"`
	TotalUsers        int            `json:"total_users"`
	TotalMessages     int64          `json:"total_messages"`
	TotalWords        int64          `json:"total_words"`
	MessagesToday     int64          `json:"messages_today"`
	MessagesThisMonth int64          `json:"messages_this_month"`
	Groups            []GroupSummary `json:"groups"`
	Pagination        Pagination     `json:"pagination"`
}

type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

type UpdateEventRequest struct {
	GroupID   int64  `json:"group_id" binding:"required"`
	UserID    int64  `json:"user_id" binding:"required"`
	Nickname  string `json:"nickname"`
	WordCount int    `json:"word_count"`
	EventTime *int64 `json:"event_time,omitempty"`
	EventID   string `json:"event_id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
