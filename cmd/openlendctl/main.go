package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openlend/openlend-go/internal/config"
	"github.com/openlend/openlend-go/pkg/openlend"
)

// main is the entrypoint for openlendctl, the one-shot resthook
// reconciliation command. It discovers the service accounts visible to the
// configured credentials and subscribes each of them to the configured
// events.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Str("base_url", cfg.Platform.BaseURL).Msg("starting openlendctl")

	// 3. Build the API client
	client := openlend.New(cfg.Platform.BaseURL, cfg.Platform.Credentials(), &openlend.Options{
		Debug:      cfg.Debug,
		Logger:     &log.Logger,
		APIVersion: cfg.Platform.APIVersion,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// 4. Reconcile subscriptions across all service accounts
	if cfg.RestHook.Target == "" || len(cfg.RestHook.Events) == 0 {
		log.Warn().Msg("RESTHOOK_TARGET or RESTHOOK_EVENTS not set, discovering accounts only")
		if _, err := client.GetServiceAccounts(ctx); err != nil {
			log.Error().Err(err).Msg("service account discovery failed")
			os.Exit(1)
		}
	} else if err := client.InitRestHooks(ctx, cfg.RestHook.Target, cfg.RestHook.Events, cfg.RestHook.Secret); err != nil {
		log.Error().Err(err).Msg("resthook reconciliation failed")
		os.Exit(1)
	}

	// 5. Report the resulting state
	for _, account := range client.ServiceAccounts {
		for _, subscription := range account.Subscriptions {
			log.Info().
				Str("service_account", account.ID).
				Str("subscription", subscription.ID).
				Str("event", string(subscription.EventName)).
				Str("status", string(subscription.Status)).
				Msg("subscription reconciled")
		}
	}
	log.Info().Int("service_accounts", len(client.ServiceAccounts)).Msg("openlendctl finished")
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
