package stats

import "github.com/gin-gonic/gin"

func RegisterRoutes(rg *gin.RouterGroup, handler Handler) {
	statsGroup := rg.Group("/stats")
	{
		statsGroup.GET("/users/:group_id/:user_id", handler.GetUserData)
		statsGroup.POST("/events", handler.UpdateUserStats)
		statsGroup.GET("/ranking", handler.GetRanking)
		statsGroup.GET("/rank", handler.GetUserRank)
		statsGroup.GET("/groups/:group_id/summary", handler.GetGroupSummary)
		statsGroup.GET("/global", handler.GetGlobalStats)
		statsGroup.POST("/cache/clear", handler.ClearCache)
	}
}
