package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/catalog-s3/internal/api/handlers"
	"github.com/andresuchdata/catalog-s3/internal/api/middleware"
	"github.com/andresuchdata/catalog-s3/internal/metrics"
	"github.com/andresuchdata/catalog-s3/internal/service"
)

// maxMultipartMemory keeps a full product image in memory while parsing.
const maxMultipartMemory = 8 << 20

type Services struct {
	CatalogService  *service.CatalogService
	SettingsService *service.SettingsService
	BackupService   *service.BackupService
}

func NewRouter(services *Services, allowedOrigins []string, m *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = maxMultipartMemory

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.Metrics(m))

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.CatalogService != nil {
			productHandler := handlers.NewProductHandler(services.CatalogService)
			productGroup := apiGroup.Group("/products")
			{
				productGroup.GET("", productHandler.ListProducts)
				productGroup.POST("", productHandler.CreateProduct)
				productGroup.GET("/:id", productHandler.GetProduct)
				productGroup.PUT("/:id", productHandler.UpdateProduct)
				productGroup.DELETE("/:id", productHandler.DeleteProduct)
			}
		}

		if services.SettingsService != nil && services.BackupService != nil {
			adminHandler := handlers.NewAdminHandler(services.SettingsService, services.BackupService)
			adminGroup := apiGroup.Group("/admin")
			{
				adminGroup.GET("/settings", adminHandler.GetSettings)
				adminGroup.PUT("/settings", adminHandler.UpdateSettings)
				adminGroup.POST("/backup", adminHandler.RunBackup)
				adminGroup.GET("/buckets", adminHandler.CheckBuckets)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
