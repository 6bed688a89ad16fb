package routers

import (
	"time"

	"github.com/haierkeys/artifact-git-sync/internal/app"
	"github.com/haierkeys/artifact-git-sync/internal/middleware"
	"github.com/haierkeys/artifact-git-sync/internal/routers/api_router"
	"github.com/haierkeys/artifact-git-sync/pkg/limiter"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
)

// 整库操作开销较大，按路由单独限流
func newMethodLimiters() limiter.Face {
	return limiter.NewMethodLimiter().AddBuckets(
		limiter.BucketRule{
			Key:          "/api/repositories/:id/sync",
			FillInterval: time.Second,
			Capacity:     5,
			Quantum:      1,
		},
		limiter.BucketRule{
			Key:          "/api/repositories/:id/export-all",
			FillInterval: time.Second,
			Capacity:     5,
			Quantum:      1,
		},
		limiter.BucketRule{
			Key:          "/api/repositories/:id/import-all",
			FillInterval: time.Second,
			Capacity:     5,
			Quantum:      1,
		},
	)
}

// NewRouter 创建 API 路由
func NewRouter(appContainer *app.App, uni *ut.UniversalTranslator) *gin.Engine {
	cfg := appContainer.Config()
	log := appContainer.Logger()

	r := gin.New()

	api := r.Group("/api")
	{
		api.Use(middleware.AppInfo(app.Name, appContainer.Version().Version))
		api.Use(middleware.TraceMiddleware(cfg.Tracer.Enabled, cfg.Tracer.Header))
		if cfg.Server.RateLimitPerSecond > 0 {
			api.Use(middleware.RateLimiter(limiter.NewIPLimiter(cfg.Server.RateLimitPerSecond, cfg.Server.RateLimitCapacity)))
		}
		api.Use(middleware.RateLimiter(newMethodLimiters()))
		api.Use(middleware.ContextTimeout(cfg.GetContextTimeout()))
		api.Use(middleware.LangWithTranslator(uni))
		api.Use(middleware.AccessLogWithLogger(log))
		api.Use(middleware.RecoveryWithLogger(log))

		healthHandler := api_router.NewHealthHandler(appContainer)
		versionHandler := api_router.NewVersionHandler(appContainer)
		repoHandler := api_router.NewRepositoryHandler(appContainer)
		syncHandler := api_router.NewSyncHandler(appContainer)

		// 无需认证
		api.GET("/health", healthHandler.Check)
		api.GET("/version", versionHandler.ServerVersion)

		repos := api.Group("/repositories", middleware.SimpleAuthTokenWithConfig(cfg.Security.AuthToken))
		{
			repos.GET("", repoHandler.List)
			repos.POST("", repoHandler.Create)
			repos.GET("/:id", repoHandler.Get)
			repos.PUT("/:id", repoHandler.Update)
			repos.DELETE("/:id", repoHandler.Delete)

			// Git 操作
			repos.POST("/:id/clone", repoHandler.Clone)
			repos.GET("/:id/status", repoHandler.Status)
			repos.POST("/:id/commit", repoHandler.Commit)
			repos.POST("/:id/push", repoHandler.Push)
			repos.POST("/:id/pull", repoHandler.Pull)
			repos.GET("/:id/branches", repoHandler.Branches)
			repos.POST("/:id/branches", repoHandler.CreateBranch)
			repos.POST("/:id/checkout", repoHandler.Checkout)
			repos.GET("/:id/history", repoHandler.History)
			repos.GET("/:id/diff", repoHandler.Diff)
			repos.GET("/:id/files", repoHandler.Files)

			// 同步
			repos.POST("/:id/export", syncHandler.ExportArtifact)
			repos.POST("/:id/workflows/:artifactId/export", syncHandler.ExportWorkflow)
			repos.POST("/:id/applications/:artifactId/export", syncHandler.ExportApplication)
			repos.POST("/:id/export-all", syncHandler.ExportAll)
			repos.POST("/:id/import", syncHandler.ImportArtifact)
			repos.POST("/:id/import-all", syncHandler.ImportAll)
			repos.POST("/:id/sync", syncHandler.Sync)
			repos.GET("/:id/sync-status", syncHandler.SyncStatus)
		}
	}

	r.NoRoute(middleware.NoFound())

	return r
}
