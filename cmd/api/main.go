package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	v1 "convohub/cmd/api/router/v1"
	cacheAdapter "convohub/internal/infrastructure/cache/adapter"
	cacheport "convohub/internal/infrastructure/cache/port"
	"convohub/internal/infrastructure/config"
	"convohub/internal/infrastructure/database"
	idAdapter "convohub/internal/infrastructure/identity/adapter"
	queueAdapter "convohub/internal/infrastructure/queue/adapter"
	"convohub/internal/infrastructure/realtime"
	"convohub/internal/pkg/chat/application/task"
	repoAdapter "convohub/internal/pkg/chat/persistence/repository/adapter"
	"convohub/internal/pkg/chat/presentation/controller"
	httpHandler "convohub/internal/pkg/chat/presentation/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var logger *zap.Logger
	if cfg.Env == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	pool, err := database.Connect(connectCtx, cfg.Database.URL)
	cancel()
	if err != nil {
		sugar.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	var cache cacheport.Cache
	if cfg.Redis.URL != "" {
		redisCache, err := cacheAdapter.NewRedisAdapter(cfg.Redis.URL)
		if err != nil {
			sugar.Fatalw("failed to connect to redis", "error", err)
		}
		defer func() { _ = redisCache.Close() }()
		cache = redisCache
	}

	hub := realtime.NewHub(cache, cfg.TypingTTL, sugar)
	repo := repoAdapter.NewPgChatRepository(pool)
	resolver := idAdapter.NewJWTResolver(cfg.Auth.JWTSecret)

	deps := httpHandler.Deps{
		Repo:     repo,
		Hub:      hub,
		Resolver: resolver,
		Log:      sugar,
		Socket: controller.SocketOptions{
			ReadLimit:  cfg.Realtime.ReadLimitBytes,
			PingPeriod: cfg.PingPeriod,
			WriteWait:  cfg.WriteWait,
			SendBuffer: cfg.Realtime.SendBuffer,
		},
	}

	// Background workers need redis; without it sends still work, offline
	// recipients just get nothing until they reconnect.
	if cfg.Redis.URL != "" {
		client, err := queueAdapter.NewAsynqClient(cfg.Redis.URL)
		if err != nil {
			sugar.Fatalw("failed to init queue client", "error", err)
		}
		defer func() { _ = client.Close() }()

		server, err := queueAdapter.NewAsynqServer(cfg.Redis.URL, cfg.Queue.Concurrency, cfg.Queue.Queues, sugar)
		if err != nil {
			sugar.Fatalw("failed to init queue server", "error", err)
		}
		task.RegisterNotifyOfflineTask(server, hub, sugar)
		task.RegisterDailyRollupTask(server, client, pool, "default", sugar)
		task.ScheduleDailyRollup(ctx, client, "default", time.Now().UTC())

		go func() {
			if err := server.Run(ctx); err != nil {
				sugar.Errorw("queue server stopped", "error", err)
			}
		}()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = server.Stop(stopCtx)
		}()

		deps.Notifier = task.NewOfflineNotifier(client, "chat")
	}

	go hub.RunTypingSweeper(ctx, cfg.TypingTTL/2)

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(sugar))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	v1.RegisterRoutes(r, deps)

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}
	go func() {
		sugar.Infow("listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("graceful shutdown failed", "error", err)
	}
}

func requestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
