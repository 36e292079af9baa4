package api

import (
	"time"

	_ "rescuephoto/api/docs"
	"rescuephoto/api/handler"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Rescue Photo API
// @version 1.0
// @description Perceptual hashing and duplicate detection for rescue-case photos
// @BasePath /
func Router(hand *handler.Handler) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.POST("/hash", hand.HashHandler)
	r.POST("/recognize", hand.RecognizeHandler)
	r.POST("/compare", hand.CompareHandler)

	admin := r.Group("/admin")
	{
		admin.POST("/add", hand.AddImageHandler)
		admin.GET("/images", hand.ListImagesHandler)
		admin.DELETE("/images/:filename", hand.DeleteImageHandler)
		admin.GET("/hello", hand.Hello)
	}
	return r
}
