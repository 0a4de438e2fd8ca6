package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/scarramanga/StackMotive-V12-sub006/internal/alert"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/clock"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/config"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/db"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/handler"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/logger"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/notifier"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/repository"
	gormrepository "github.com/scarramanga/StackMotive-V12-sub006/internal/repository/gorm"
	memoryrepository "github.com/scarramanga/StackMotive-V12-sub006/internal/repository/memory"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/rule"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/schedule"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/scheduler"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/stats"
)

func main() {
	cfgPath := os.Getenv("SM_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("SM_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	clk := clock.System()

	var store repository.Repository
	var dbConn *db.DB
	switch strings.ToLower(cfg.DB.Driver) {
	case "postgres":
		dbConn, err = db.Open(cfg.DB)
		if err != nil {
			logger.Fatal("db open failed", zap.Error(err))
		}
		defer db.Close(dbConn)
		if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
			logger.Warn("failed to set timezone", zap.Error(err))
		}
		if err := db.AutoMigrate(dbConn); err != nil {
			logger.Fatal("auto-migrate failed", zap.Error(err))
		}
		store = gormrepository.New(dbConn.Gorm)
	case "memory", "":
		store = memoryrepository.New()
		logger.Info("using in-memory storage, state is not persisted")
	default:
		logger.Fatal("unknown db driver", zap.String("driver", cfg.DB.Driver))
	}

	calc := &schedule.Calculator{
		FallbackInterval:  cfg.Scheduler.DefaultInterval,
		MarketCloseHour:   cfg.Scheduler.MarketCloseHour,
		MarketCloseMinute: cfg.Scheduler.MarketCloseMinute,
		Expressions:       schedule.NewCronEvaluator(),
	}

	var delivery alert.Notifier
	switch strings.ToLower(cfg.Notifier.Kind) {
	case "webhook":
		if cfg.Notifier.WebhookURL == "" {
			logger.Fatal("notifier.webhook_url required for webhook notifier")
		}
		delivery = notifier.NewWebhookNotifier(cfg.Notifier.WebhookURL, cfg.Notifier.Timeout, logger)
	default:
		delivery = &notifier.LogNotifier{Logger: logger}
	}

	ruleEngine := &rule.Engine{Logger: logger}
	sink := &alert.Sink{
		Repo:     store,
		Rules:    ruleEngine,
		Notifier: delivery,
		Clock:    clk,
		Logger:   logger,
	}
	sched := scheduler.New(store, calc, sink, clk, logger, cfg.Scheduler.ScanInterval)
	statsProvider := &stats.Provider{
		Repo:              store,
		Clock:             clk,
		AccuracyTolerance: cfg.Stats.AccuracyTolerance,
		TrailingWindow:    cfg.Stats.TrailingWindow,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{}
	if dbConn != nil {
		healthHandler.DB = dbConn.Gorm
	}
	healthHandler.Register(engine)
	timerHandler := &handler.TimerHandler{Repo: store, Scheduler: sched}
	timerHandler.Register(engine)
	alertHandler := &handler.AlertHandler{Repo: store, Clock: clk}
	alertHandler.Register(engine)
	ruleHandler := &handler.RuleHandler{Repo: store, Clock: clk}
	ruleHandler.Register(engine)
	statsHandler := &handler.StatsHandler{Provider: statsProvider}
	statsHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("scheduler stopped", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
