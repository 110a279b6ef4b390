package stats

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler interface {
	GetUserData(c *gin.Context)
	UpdateUserStats(c *gin.Context)
	GetRanking(c *gin.Context)
	GetUserRank(c *gin.Context)
	GetGroupSummary(c *gin.Context)
	GetGlobalStats(c *gin.Context)
	ClearCache(c *gin.Context)
}

type handler struct {
	service Service
}

func NewHandler(service Service) Handler {
	return &handler{service: service}
}

func (h *handler) GetUserData(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("group_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group ID"})
		return
	}
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	entity := h.service.GetUserData(c.Request.Context(), groupID, userID)
	if entity == nil {
		c.JSON(http.StatusNotFound, gin.H{"user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": entity})
}

// UpdateUserStats always answers 202: the engine logs and drops failed
// updates instead of pushing errors back into the message pipeline.
func (h *handler) UpdateUserStats(c *gin.Context) {
	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	eventTime := time.Time{}
	if req.EventTime != nil {
		eventTime = time.Unix(*req.EventTime, 0)
	}

	h.service.UpdateUserStats(c.Request.Context(), req.GroupID, req.UserID, req.Nickname, req.WordCount, eventTime, req.EventID)
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

func (h *handler) GetRanking(c *gin.Context) {
	groupID, ok := parseGroupParam(c.DefaultQuery("group_id", "all"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group ID"})
		return
	}

	period := ParsePeriod(c.DefaultQuery("period", "total"))

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	// An explicit month selects a historical monthly leaderboard.
	if month := c.Query("month"); month != "" && period == PeriodMonthly {
		rows := h.service.GetMonthlyRanking(c.Request.Context(), groupID, month, limit)
		c.JSON(http.StatusOK, gin.H{"period": period, "month": month, "ranking": rows})
		return
	}

	rows := h.service.GetRankingData(c.Request.Context(), groupID, period, limit)
	c.JSON(http.StatusOK, gin.H{"period": period, "ranking": rows})
}

func (h *handler) GetUserRank(c *gin.Context) {
	groupID, ok := parseGroupParam(c.DefaultQuery("group_id", "all"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group ID"})
		return
	}
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	period := ParsePeriod(c.DefaultQuery("period", "total"))

	row := h.service.GetUserRankData(c.Request.Context(), userID, groupID, period)
	if row == nil {
		c.JSON(http.StatusNotFound, gin.H{"rank": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rank": row})
}

func (h *handler) GetGroupSummary(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("group_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group ID"})
		return
	}

	summary := h.service.GetGroupSummary(c.Request.Context(), groupID)
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"summary": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (h *handler) GetGlobalStats(c *gin.Context) {
	// Bounds are clamped by the service; unparsable values become zero and
	// fall back to the defaults there.
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	c.JSON(http.StatusOK, h.service.GetGlobalStats(c.Request.Context(), page, pageSize))
}

func (h *handler) ClearCache(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Query("group_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group ID"})
		return
	}

	var userID *int64
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
			return
		}
		userID = &id
	}

	h.service.ClearCache(groupID, userID)
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

func parseGroupParam(raw string) (int64, bool) {
	if raw == "all" || raw == "" {
		return AllGroups, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
