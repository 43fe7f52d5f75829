package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/deskroute/internal/ai"
	"github.com/xxxsen/deskroute/internal/config"
	"github.com/xxxsen/deskroute/internal/db"
	"github.com/xxxsen/deskroute/internal/embedcache"
	"github.com/xxxsen/deskroute/internal/handler"
	"github.com/xxxsen/deskroute/internal/job"
	"github.com/xxxsen/deskroute/internal/middleware"
	"github.com/xxxsen/deskroute/internal/repo"
	"github.com/xxxsen/deskroute/internal/schedule"
	"github.com/xxxsen/deskroute/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "deskroute",
		Short: "deskroute message routing server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run deskroute server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			database, err := db.Open(cfg.DB)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(database); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, database)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildChat(cfg *config.Config) (ai.IChat, error) {
	entries := make([]ai.ChatEntry, 0, 1+len(cfg.AI.Fallbacks))
	items := append([]config.ProviderConfig{cfg.AI.Chat}, cfg.AI.Fallbacks...)
	for _, item := range items {
		provider, err := ai.NewProvider(item.Provider, item.Data)
		if err != nil {
			return nil, fmt.Errorf("init chat provider %s: %w", item.Provider, err)
		}
		entries = append(entries, ai.ChatEntry{
			Name: item.Provider + "/" + item.Model,
			Chat: ai.NewChat(provider, item.Model),
		})
	}
	if len(entries) == 1 {
		return entries[0].Chat, nil
	}
	return ai.NewGroupChat(entries), nil
}

func buildEmbedder(cfg *config.Config, cacheRepo *repo.EmbeddingCacheRepo) (ai.IEmbedder, error) {
	provider, err := ai.NewEmbedProvider(cfg.AI.Embed.Provider, cfg.AI.Embed.Data)
	if err != nil {
		return nil, fmt.Errorf("init embed provider %s: %w", cfg.AI.Embed.Provider, err)
	}
	embedder := ai.NewEmbedder(provider, cfg.AI.Embed.Model)
	// db cache behind the lru, so an lru miss still avoids the provider
	embedder = embedcache.WrapDBCacheToEmbedder(embedder, cacheRepo)
	embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.Router.EmbedCacheSize,
		time.Duration(cfg.Router.EmbedCacheTTLMin)*time.Minute)
	return embedder, nil
}

func runServer(cfg *config.Config, database *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("mode", cfg.Router.Mode),
		zap.Float64("threshold", *cfg.Router.Threshold),
		zap.Int("top_k", cfg.Router.TopK),
	)

	messageRepo := repo.NewMessageRepo(database)
	departmentRepo := repo.NewDepartmentRepo(database)
	assignmentRepo := repo.NewAssignmentRepo(database)
	cacheRepo := repo.NewEmbeddingCacheRepo(database)

	chat, err := buildChat(cfg)
	if err != nil {
		return err
	}
	embedder, err := buildEmbedder(cfg, cacheRepo)
	if err != nil {
		return err
	}
	manager := ai.NewManager(chat, embedder, ai.ManagerConfig{Timeout: cfg.AI.Timeout})

	ingestService := service.NewIngestService(messageRepo)
	departmentService := service.NewDepartmentService(departmentRepo)
	statsService := service.NewStatsService(assignmentRepo, departmentRepo)
	routerService := service.NewRouterService(messageRepo, departmentRepo, assignmentRepo,
		manager, *cfg.Router.Threshold, cfg.Router.TopK)

	var assigner handler.Assigner = routerService
	if cfg.Router.Mode == "agent" {
		assigner = service.NewAgentService(messageRepo, assignmentRepo, routerService, manager)
	}

	var importLimiter gin.HandlerFunc
	if cfg.Router.ImportRateLimitSeconds > 0 {
		importLimiter = middleware.RateLimit(time.Duration(cfg.Router.ImportRateLimitSeconds) * time.Second)
	}

	deps := handler.RouterDeps{
		Webhook:       handler.NewWebhookHandler(ingestService, assigner),
		Departments:   handler.NewDepartmentHandler(departmentService),
		Messages:      handler.NewMessageHandler(statsService),
		Dashboard:     handler.NewDashboardHandler(statsService),
		ImportLimiter: importLimiter,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORS),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if cfg.Router.WarmCron != "" {
		warmJob := job.NewCatalogWarmJob(departmentRepo, embedder)
		if err := scheduler.AddJob(warmJob, cfg.Router.WarmCron); err != nil {
			return fmt.Errorf("schedule warm job: %w", err)
		}
	}
	cleanupJob := job.NewEmbeddingCacheCleanupJob(cacheRepo, cfg.Router.CacheMaxAgeDays)
	if err := scheduler.AddJob(cleanupJob, "30 3 * * *"); err != nil {
		return fmt.Errorf("schedule cleanup job: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
