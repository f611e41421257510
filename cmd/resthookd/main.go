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
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openlend/openlend-go/internal/config"
	"github.com/openlend/openlend-go/internal/handler"
	"github.com/openlend/openlend-go/pkg/openlend"
)

// main is the entrypoint for resthookd, the resthook event listener. It
// subscribes the configured events on every service account and then serves
// the target endpoint the platform delivers events to.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.RestHook.Target == "" || len(cfg.RestHook.Events) == 0 {
		fmt.Fprintln(os.Stderr, "resthook configuration incomplete: ensure RESTHOOK_TARGET and RESTHOOK_EVENTS are set")
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Str("base_url", cfg.Platform.BaseURL).Msg("starting resthookd")

	// 3. Build the API client
	client := openlend.New(cfg.Platform.BaseURL, cfg.Platform.Credentials(), &openlend.Options{
		Debug:      cfg.Debug,
		Logger:     &log.Logger,
		APIVersion: cfg.Platform.APIVersion,
	})

	// 4. Subscribe every service account to the configured events
	initCtx, initCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer initCancel()
	if err := client.InitRestHooks(initCtx, cfg.RestHook.Target, cfg.RestHook.Events, cfg.RestHook.Secret); err != nil {
		log.Error().Err(err).Msg("resthook reconciliation failed")
		os.Exit(1)
	}
	log.Info().Int("service_accounts", len(client.ServiceAccounts)).Msg("resthook subscriptions reconciled")

	// 5. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	hooks := handler.NewRestHookHandler(client)
	router.POST("/v1/hooks", hooks.HandleEvent)
	router.GET("/v1/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 6. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.RestHook.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.RestHook.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 7. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 8. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
