package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/satranslator/translator/internal/auth"
	"github.com/satranslator/translator/internal/config"
	"github.com/satranslator/translator/internal/db"
	httphandler "github.com/satranslator/translator/internal/http"
	"github.com/satranslator/translator/internal/http/handlers"
	"github.com/satranslator/translator/internal/middleware"
	"github.com/satranslator/translator/internal/repo"
	"github.com/satranslator/translator/internal/translate"
)

func main() {
	// env vars override .env
	_ = godotenv.Load(".env")

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open database")
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		logger.WithError(err).Fatal("failed to run migrations")
	}

	// Initialize repositories
	userRepo := repo.NewUserRepo(database)
	sessionRepo := repo.NewSessionRepo(database)
	tokenRepo := repo.NewTokenRepo(database)
	chatRepo := repo.NewChatRepo(database)

	// Initialize auth services
	if cfg.DevMode {
		logger.Warn("OTP_DEV_MODE is on: every verification code is 123456")
	}
	codes := auth.NewCodeIssuer(tokenRepo, auth.LogMailer{Logger: logger}, cfg.OTPSalt, cfg.DevMode, logger)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.ResetTokenTTL)
	authService := auth.NewAuthService(codes, jwtService, userRepo, sessionRepo, logger)

	var engine translate.Engine = translate.EchoEngine{}
	if cfg.OpenAIKey != "" {
		engine = translate.NewOpenAIEngine(cfg.OpenAIKey, cfg.OpenAIModel, logger)
		logger.WithField("model", cfg.OpenAIModel).Info("using OpenAI translation engine")
	} else {
		logger.Warn("OPENAI_API_KEY not set, replies echo the input")
	}
	chatService := translate.NewService(chatRepo, engine, logger)

	// 30 auth requests per client address per 10 minutes
	authLimiter := middleware.NewRateLimiter(10*time.Minute, 30)
	defer authLimiter.Stop()

	router := httphandler.NewRouter(httphandler.Routes{
		Auth:          handlers.NewAuthHandler(authService, logger),
		Account:       handlers.NewAccountHandler(authService, logger),
		Chat:          handlers.NewChatHandler(chatService, logger),
		Health:        handlers.NewHealthHandler(database),
		Authenticator: authService,
		AuthLimiter:   authLimiter,
		CORSOrigins:   cfg.CORSOrigins,
		Logger:        logger,
	})

	// Create HTTP server with timeouts. Translation calls can be slow, so writes get more room.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
		return
	}

	logger.Info("server exited")
}
