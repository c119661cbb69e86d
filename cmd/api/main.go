package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"billsplit/internal/auth"
	"billsplit/internal/bot"
	"billsplit/internal/config"
	"billsplit/internal/db"
	"billsplit/internal/history"
	"billsplit/internal/llm"
	"billsplit/internal/router"
	"billsplit/internal/storage"
	"billsplit/internal/telegram"
	"billsplit/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "billsplit-bot"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ───────────────────────── ENV ─────────────────────────
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// ───────────────────────── TELEMETRY ─────────────────────────
	log, tracer, meter, shutdown, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: serviceName,
		Version:     cfg.Version,
		Environment: cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		panic("failed to initialize telemetry: " + err.Error())
	}
	defer shutdown(context.Background())

	metrics, err := telemetry.NewMetrics(meter)
	if err != nil {
		log.Fatal("failed to create metrics", zap.Error(err))
	}

	// ───────────────────────── HISTORY ─────────────────────────
	var repo history.Repository = history.NewInMemoryRepository()
	if cfg.PersistenceEnabled() {
		pool, err := db.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("postgres init failed", zap.Error(err))
		}
		defer pool.Close()
		repo = history.NewPostgresRepository(pool)
		log.Info("connected to postgres")
	} else {
		log.Warn("DATABASE_URL not set, split history kept in memory")
	}

	// ───────────────────────── STORAGE ─────────────────────────
	var archive bot.Archive = storage.Nop{}
	if cfg.R2Enabled() {
		r2Client, err := storage.NewR2Client(ctx, cfg.R2)
		if err != nil {
			log.Fatal("R2 init failed", zap.Error(err))
		}
		archive = r2Client
	}

	// ───────────────────────── TELEGRAM ─────────────────────────
	tg := telegram.NewClient(cfg.BotToken)

	username := cfg.BotUsername
	if username == "" {
		me, err := tg.GetMe(ctx)
		if err != nil {
			log.Fatal("getMe failed, set BOT_USERNAME to skip discovery", zap.Error(err))
		}
		username = me.Username
	}
	log.Info("bot identity resolved", zap.String("username", username))

	// ───────────────────────── PIPELINE ─────────────────────────
	vision := llm.NewGeminiClient(
		cfg.GeminiAPIKey,
		cfg.GeminiModel,
		llm.WithMaxAttempts(cfg.GeminiMaxAttempts),
		llm.WithLogger(log),
	)

	service := bot.NewService(tg, vision, archive, repo, username, log, tracer, metrics)

	dispatcher := bot.NewDispatcher(cfg.WorkerCount, cfg.QueueSize, cfg.ProcessTimeout, service, log)
	dispatcher.Start(ctx)

	// ───────────────────────── HTTP ─────────────────────────
	deps := router.Deps{
		ServiceName:   serviceName,
		Webhook:       bot.NewHandler(dispatcher, metrics, log),
		WebhookSecret: cfg.WebhookSecret,
		CORSOrigins:   cfg.CORSOrigins,
		Log:           log,
	}

	if cfg.AdminEnabled() {
		issuer, err := auth.NewTokenIssuer(cfg.JWTSecret, 24*time.Hour)
		if err != nil {
			log.Fatal("jwt init failed", zap.Error(err))
		}
		deps.Admin = &router.Admin{
			Issuer:  issuer,
			Auth:    auth.NewHandler(auth.NewService(cfg.AdminPasswordHash, issuer)),
			Webhook: bot.NewAdminHandler(tg, cfg.WebhookURL, cfg.WebhookSecret),
			History: history.NewHandler(repo),
		}
	} else {
		log.Info("JWT_SECRET or ADMIN_PASSWORD_HASH not set, admin routes disabled")
	}

	if cfg.WebhookURL == "" {
		log.Warn("WEBHOOK_URL not set, webhook registration will not work")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down billsplit-bot...")

		shutdownCtx, done := context.WithTimeout(context.Background(), 30*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown failed", zap.Error(err))
		}
		dispatcher.Stop()
		cancel()
	}()

	log.Info("billsplit-bot listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", zap.Error(err))
		dispatcher.Stop()
		return
	}

	// wait for the dispatcher to drain
	<-ctx.Done()
}
