package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flavor-remix/internal/api/handlers/health"
	substituteHandler "flavor-remix/internal/api/handlers/substitute"
	"flavor-remix/internal/api/middleware"
	substituteService "flavor-remix/internal/core/substitute"
	"flavor-remix/internal/infrastructure/config"
	"flavor-remix/internal/infrastructure/flavordb"
	"flavor-remix/internal/infrastructure/recipedb"
	"flavor-remix/internal/pkg/common"
)

const (
	// 超時設置
	timeoutDuration = 60 * time.Second
	// 請求體大小限制 (1MB)
	maxBodySize = 1 << 20
)

// SetupRouter 設置路由並組裝服務依賴
// 回傳 cleanup 供關閉快取資源
func SetupRouter(cfg *config.Config) (*gin.Engine, func(), error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New()) // 自動生成請求 ID

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 速率限制
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	common.LogInfo("Initializing services",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("flavordb_base_url", cfg.FlavorDB.BaseURL),
		zap.String("recipedb_base_url", cfg.RecipeDB.BaseURL),
		zap.Duration("timeout", timeoutDuration),
	)

	// 初始化上游客戶端
	flavorClient := flavordb.NewClient(cfg)
	recipeClient := recipedb.NewClient(cfg)

	// 輪廓來源依配置決定是否套快取
	var profiles substituteService.ProfileSource = flavorClient
	var profileCache *substituteService.ProfileCache
	cleanup := func() {}

	if cfg.Cache.Enabled {
		switch cfg.Cache.Backend {
		case "redis":
			redisCache, err := substituteService.NewRedisProfileCache(cfg, flavorClient)
			if err != nil {
				common.LogError("Failed to initialize redis profile cache", zap.Error(err))
				return nil, nil, fmt.Errorf("failed to initialize redis profile cache: %w", err)
			}
			profiles = redisCache
			cleanup = func() {
				if err := redisCache.Close(); err != nil {
					common.LogError("Failed to close redis profile cache", zap.Error(err))
				}
			}
		default:
			profileCache = substituteService.NewProfileCache(cfg, flavorClient)
			profiles = profileCache
			cleanup = func() {
				if err := profileCache.Close(); err != nil {
					common.LogError("Failed to close profile cache", zap.Error(err))
				}
			}
		}
	}

	// 初始化替代服務
	svc := substituteService.NewService(cfg, profiles, flavorClient, recipeClient)

	common.LogInfo("Substitute service initialized successfully",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.String("environment", cfg.App.Env),
	)

	// 全局中間件：設置超時和配置
	router.Use(func(c *gin.Context) {
		// 設置請求超時
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		// 設置配置與快取，供健康檢查使用
		c.Set("config", cfg)
		if profileCache != nil {
			c.Set("profile_cache", profileCache)
		}

		// 處理請求
		c.Next()

		// 檢查是否超時
		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  common.ErrCodeGatewayTimeout,
				"details": gin.H{
					"timeout": timeoutDuration.String(),
				},
			})
			c.Abort()
			return
		}
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	{
		// 風味相關路由
		flavorGroup := api.Group("/flavor")
		{
			// 風味輪廓查詢
			flavorGroup.GET("/profile", substituteHandler.HandleProfile(profiles))

			// 兩組輪廓的相似度計算
			flavorGroup.POST("/similarity", substituteHandler.HandleSimilarity())
		}

		// 替代食材路由
		substituteGroup := api.Group("/substitute")
		{
			// 食材名稱比對
			substituteGroup.POST("/match", substituteHandler.HandleMatch())

			// 從任意 JSON 結構擷取候選
			substituteGroup.POST("/candidates", substituteHandler.HandleCandidates())

			// 候選池排名
			substituteGroup.POST("/rank", substituteHandler.HandleRank(svc, profiles))

			// 食譜替代建議
			substituteGroup.POST("/recipe", substituteHandler.HandleRecipeSubstitute(svc))
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, cleanup, nil
}
