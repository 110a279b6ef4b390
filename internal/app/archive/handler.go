package archive

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler interface {
	ClearGroupStats(c *gin.Context)
	RestoreGroupStats(c *gin.Context)
	IsGroupArchived(c *gin.Context)
}

type handler struct {
	service Service
}

func NewHandler(service Service) Handler {
	return &handler{service: service}
}

func (h *handler) ClearGroupStats(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("group_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group ID"})
		return
	}

	ok := h.service.Archive(c.Request.Context(), groupID)
	c.JSON(http.StatusOK, gin.H{"success": ok})
}

func (h *handler) RestoreGroupStats(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("group_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group ID"})
		return
	}

	ok := h.service.Restore(c.Request.Context(), groupID)
	c.JSON(http.StatusOK, gin.H{"success": ok})
}

func (h *handler) IsGroupArchived(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("group_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group ID"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"archived": h.service.IsArchived(c.Request.Context(), groupID)})
}
