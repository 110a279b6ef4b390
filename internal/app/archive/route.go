package archive

import "github.com/gin-gonic/gin"

func RegisterRoutes(rg *gin.RouterGroup, handler Handler) {
	groups := rg.Group("/stats/groups")
	{
		groups.POST("/:group_id/clear", handler.ClearGroupStats)
		groups.POST("/:group_id/restore", handler.RestoreGroupStats)
		groups.GET("/:group_id/archived", handler.IsGroupArchived)
	}
}
