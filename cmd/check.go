package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Brieuc-fav/scrapping-naf-domains-v2/internal/config"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/keypool"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/logger"
)

// checkCommand verifies the setup without running a collection: registry
// reachability and configured search credentials.
func checkCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verifies registry connectivity and configured credentials",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := getRegistry(cfg).Ping(ctx); err != nil {
				logger.Fatal(ctx, "registry is not reachable", zap.Error(err))
			}
			logger.Info(ctx, "registry is reachable", zap.String("base_url", cfg.Registry.BaseURL))

			tokens := cfg.SerperTokens()
			if cfg.Search.UseSerper {
				logger.Info(ctx, "serper strategy enabled", zap.Int("keys", len(tokens)))
				for _, t := range tokens {
					logger.Info(ctx, "serper key", zap.String("key", keypool.MaskToken(t)))
				}
			} else {
				logger.Info(ctx, "serper strategy disabled")
			}

			if cfg.Search.UseSerpAPI {
				logger.Info(ctx, "serpapi strategy enabled",
					zap.String("key", keypool.MaskToken(cfg.Search.SerpAPIKey)),
					zap.String("engine", cfg.Search.Engine))
			} else {
				logger.Info(ctx, "serpapi strategy disabled")
			}

			logger.Info(ctx, "domain guessing strategy always on")
		},
	}

	return cmd
}
