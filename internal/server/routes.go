package server

import "github.com/gin-gonic/gin"

func (s *Server) setupRoutes(v1 *gin.RouterGroup) {
	tools := v1.Group("/tools")
	{
		tools.GET("", s.listTools)
		tools.POST("", s.createTool)
		tools.GET("/:id", s.getTool)
		tools.PUT("/:id", s.updateTool)
		tools.DELETE("/:id", s.deleteTool)
	}

	v1.GET("/categories", s.listCategories)
	v1.POST("/categories", s.createCategory)
	v1.GET("/stats", s.stats)

	compat := v1.Group("/compatibility")
	{
		compat.GET("", s.getCompatibility)
		compat.POST("", s.createCompatibility)
		compat.PUT("", s.updateCompatibility)
	}

	stacks := v1.Group("/stacks")
	{
		stacks.POST("/harmony", s.harmony)
		stacks.POST("/validate", s.validate)
		stacks.POST("/recommend", s.recommend)
		stacks.POST("/matrix", s.matrix)
		stacks.POST("/compare", s.compare)
	}
}
