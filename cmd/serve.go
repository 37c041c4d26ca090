package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cyberxz2077/Startup-Hub/internal/ai"
	"github.com/cyberxz2077/Startup-Hub/internal/ai/gemini"
	"github.com/cyberxz2077/Startup-Hub/internal/inbox"
	"github.com/cyberxz2077/Startup-Hub/internal/logger"
	"github.com/cyberxz2077/Startup-Hub/internal/matching"
	"github.com/cyberxz2077/Startup-Hub/internal/secrets"
	"github.com/cyberxz2077/Startup-Hub/internal/server"
	"github.com/cyberxz2077/Startup-Hub/internal/session"
	"github.com/cyberxz2077/Startup-Hub/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the startup-hub API server",
	Run: func(cmd *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "listen host (overrides config)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")

	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func serve() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the startup-hub", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}
	if config.Database == nil || config.Database.Postgres == nil || config.Database.Postgres.DSN == "" {
		logger.Fatal("postgres dsn is required under database.postgres.dsn")
	}
	if config.Database.Redis == nil || config.Database.Redis.Addr == "" {
		logger.Fatal("redis address is required under database.redis.addr")
	}

	pg, err := store.NewPostgres(store.Config{
		DSN:            config.Database.Postgres.DSN,
		MaxConnections: config.Database.Postgres.MaxConnections,
		MaxIdle:        config.Database.Postgres.MaxIdle,
	})
	if err != nil {
		logger.Fatal("connecting to postgres", zap.Error(err))
	}
	defer pg.Close()

	if err := pg.Ping(ctx); err != nil {
		logger.Fatal("pinging postgres", zap.Error(err))
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		logger.Fatal("preparing schema", zap.Error(err))
	}

	ttl := time.Duration(0)
	if config.Session != nil {
		ttl = config.Session.TTL
	}
	sessions := session.NewStore(session.Config{
		Addr:     config.Database.Redis.Addr,
		Password: config.Database.Redis.Password,
		DB:       config.Database.Redis.DB,
		TTL:      ttl,
	})
	defer sessions.Close()

	if err := sessions.Ping(ctx); err != nil {
		logger.Fatal("pinging redis", zap.Error(err))
	}

	invoker, err := newInvoker(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building ai provider", zap.Error(err))
	}

	maxLogLength := 0
	if config.AI != nil && config.AI.Gemini != nil {
		maxLogLength = config.AI.Gemini.MaxLogLength
	}
	scorer := gemini.NewScorer(invoker, logger, maxLogLength)
	assistant := newAssistant(invoker, config.AI, logger, maxLogLength)

	candidateLimit, concurrency := 0, 0
	if config.Matching != nil {
		candidateLimit = config.Matching.CandidateLimit
		concurrency = config.Matching.Concurrency
	}
	orchestrator := matching.NewOrchestrator(pg, scorer, logger, candidateLimit, concurrency)

	inboxSvc := inbox.NewService(pg, logger)

	serverCfg := &server.Config{Host: "0.0.0.0", Port: 8080}
	if config.Server != nil {
		if config.Server.Host != "" {
			serverCfg.Host = config.Server.Host
		}
		if config.Server.Port != 0 {
			serverCfg.Port = config.Server.Port
		}
	}

	srv := server.NewServer(orchestrator, assistant, inboxSvc, pg, sessions, serverCfg, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}

func newInvoker(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Invoker, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, errors.New("gemini configuration is required under ai.gemini")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.With(
		zap.String("provider", "gemini"),
		zap.String("model", cfg.Gemini.Model),
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	return gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, cfg.Gemini.Timeout, genLogger)
}

func newAssistant(invoker ai.Invoker, cfg *AIConfig, logger *zap.Logger, maxLogLength int) ai.Assistant {
	opts := gemini.AssistantOptions{MaxLogLength: maxLogLength}
	if cfg != nil {
		opts.ErrorApology = cfg.FallbackReply
		opts.ParseApology = cfg.ParseApology
	}
	return gemini.NewAssistant(invoker, logger, opts)
}
