package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nutribunda/mpasi-backend/internal/handlers"
)

type RouterConfig struct {
	MenuHandler *handlers.MenuHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/generate-menu", cfg.MenuHandler.GenerateMenu)
		api.POST("/search", cfg.MenuHandler.Search)
		api.POST("/search-with-scores", cfg.MenuHandler.SearchWithScores)
		api.GET("/nutrition-requirements/:age", cfg.MenuHandler.NutritionRequirements)
		api.GET("/status", cfg.MenuHandler.Status)
		api.GET("/models", cfg.MenuHandler.Models)
	}

	return router
}
