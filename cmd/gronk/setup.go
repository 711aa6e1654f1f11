package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sandevgo/gronkbot/internal/config"
	"github.com/sandevgo/gronkbot/internal/providers/llm"
	"github.com/sandevgo/gronkbot/internal/providers/nlp"
	"github.com/sandevgo/gronkbot/internal/service/search"
	"github.com/sandevgo/gronkbot/internal/storage/sqlite"
	"github.com/sandevgo/gronkbot/internal/transport/discord"
	"github.com/sandevgo/gronkbot/pkg/log"
	"github.com/sandevgo/gronkbot/pkg/retry"
	"github.com/sandevgo/gronkbot/pkg/srv"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	if err := initEnv(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	discordCfg := config.NewDiscordConfig(ctx)
	grokCfg := config.NewGrokConfig(ctx)

	// 2. Storage
	if err := os.MkdirAll(appCfg.RuntimePath, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("failed to create runtime dir")
	}
	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	services = append(services, srv.NewCleanup(db.Close))

	conversations := sqlite.NewConversations(db)
	retention := time.Duration(appCfg.RetentionHours) * time.Hour
	services = append(services, sqlite.NewCleaner(conversations, retention, appCfg.CleanupInterval))

	// 3. Model backend
	grok := llm.NewGrok(grokCfg)
	pricing := llm.NewPricing(grokCfg)
	retrier := retry.NewDefaultRetrier()

	// 4. Intent routing
	router := search.NewRouter(nlp.NewExtractor(), grok, appCfg.DefaultSearchLimit)

	// 5. Discord session; the history scanner reads through it, so it is
	// created before the pipeline.
	session, err := discord.NewSession(discordCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create discord session")
	}

	// 6. Search pipeline
	scanner := search.NewScanner(discord.NewHistory(session), appCfg.MaxKeywordScan, appCfg.ProgressInterval)
	builder := search.NewContextBuilder(appCfg.MaxMessagesAnalyzed, appCfg.Location(), appCfg.Timezone)
	cache := search.NewFollowUpCache(appCfg.FollowUpTTL, appCfg.FollowUpMaxEntries, nil)
	pipeline := search.NewPipeline(scanner, builder, grok, retrier, cache, search.Config{
		MaxKeywordScan:   appCfg.MaxKeywordScan,
		EnableWebSearch:  appCfg.EnableWebSearch,
		MaxSearchResults: appCfg.MaxSearchResults,
	})

	// 7. Transport
	bot := discord.NewBot(ctx, session, discord.Deps{
		App:           appCfg,
		Router:        router,
		Pipeline:      pipeline,
		Completer:     grok,
		Pricing:       pricing,
		Conversations: conversations,
		Retrier:       retrier,
	})
	services = append(services, bot)

	return services
}

func initEnv(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(".", ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
