package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/letscodeshivansh/taskchat/internal/auth"
	"github.com/letscodeshivansh/taskchat/internal/config"
	"github.com/letscodeshivansh/taskchat/internal/database"
	"github.com/letscodeshivansh/taskchat/internal/directory"
	"github.com/letscodeshivansh/taskchat/internal/domain"
	"github.com/letscodeshivansh/taskchat/internal/handler"
	"github.com/letscodeshivansh/taskchat/internal/hub"
	"github.com/letscodeshivansh/taskchat/internal/logging"
	"github.com/letscodeshivansh/taskchat/internal/presence"
	"github.com/letscodeshivansh/taskchat/internal/repository"
	"github.com/letscodeshivansh/taskchat/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	logging.Init(logging.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "taskchat",
	})
	logger := logging.L()

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	// The tasks table belongs to the marketplace; migrating it here keeps
	// standalone deployments working without the outer app.
	if err := database.AutoMigrate(db, &domain.MessageModel{}, &domain.TaskModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	msgRepo := repository.NewGormMessageRepository(db)
	taskDir := directory.NewGormTaskDirectory(db)
	resolver := auth.NewJWTResolver(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	wsHub := hub.NewHub()
	tracker := presence.NewTracker(wsHub)
	chatSvc := service.NewChatService(wsHub, msgRepo, taskDir, cfg.Chat)

	wsHandler := handler.NewWSHandler(wsHub, chatSvc, tracker, resolver, cfg.WebSocket)
	httpHandler := handler.NewHTTPHandler(chatSvc, tracker)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.GinMiddleware(logger))

	wsHandler.RegisterRoutes(router)
	httpHandler.RegisterRoutes(router)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("taskchat listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("stopped")
}
