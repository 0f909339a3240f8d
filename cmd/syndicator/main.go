package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"media_syndicator/internal/classifier"
	"media_syndicator/internal/config"
	"media_syndicator/internal/health"
	"media_syndicator/internal/publisher"
	"media_syndicator/internal/scheduler"
	"media_syndicator/internal/service"
	discordsink "media_syndicator/internal/sink/discord"
	"media_syndicator/internal/source/reddit"
	"media_syndicator/internal/storage/memory"
	"media_syndicator/internal/storage/sqlstore"
	"media_syndicator/internal/transport/discord"
)

type stores struct {
	mappings service.MappingStore
	settings service.SettingsStore
	ledger   service.Ledger
	checks   map[string]health.Check
	close    func() error
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	st, err := openStores(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer st.close()

	media, err := newClassifier(cfg.Classifier)
	if err != nil {
		logger.Error("invalid classifier policy", "error", err)
		os.Exit(1)
	}

	redditSource := reddit.New(reddit.Config{
		BaseURL:           cfg.Reddit.BaseURL,
		TokenURL:          cfg.Reddit.TokenURL,
		ClientID:          cfg.Reddit.ClientID,
		ClientSecret:      cfg.Reddit.ClientSecret,
		UserAgent:         cfg.Reddit.UserAgent,
		Timeout:           cfg.Reddit.Timeout,
		RequestsPerMinute: cfg.Reddit.RequestsPerMinute,
		MaxAttempts:       cfg.Reddit.Retry.MaxAttempts,
		InitialBackoff:    cfg.Reddit.Retry.InitialBackoff,
		MaxBackoff:        cfg.Reddit.Retry.MaxBackoff,
	}, logger)

	var session *discordgo.Session
	if cfg.Discord.Token != "" {
		session, err = discordgo.New("Bot " + cfg.Discord.Token)
		if err != nil {
			logger.Error("failed to create discord session", "error", err)
			os.Exit(1)
		}
		session.Identify.Intents = discordgo.IntentsGuilds
		if err := session.Open(); err != nil {
			logger.Error("failed to connect to discord", "error", err)
			os.Exit(1)
		}
		defer session.Close()
		logger.Info("connected to discord", "user", session.State.User.Username)
	}

	var sink service.Sink
	switch cfg.Delivery.Sink {
	case config.SinkRabbitMQ:
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:      cfg.RabbitMQ.URL,
			Exchange: cfg.RabbitMQ.Exchange,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		sink = rabbitMQ
	default:
		sink = discordsink.New(session, session.State, logger)
	}

	syndicator := service.NewSyndicator(
		redditSource,
		sink,
		st.mappings,
		st.settings,
		st.ledger,
		media,
		logger,
		cfg.Cycle,
	)
	admin := service.NewAdmin(redditSource, sink, st.mappings, st.settings, logger, cfg.Cycle)

	if session != nil {
		commands := discord.NewHandler(admin, syndicator, discord.IsAdministrator, cfg.Cycle.MappingTimeout, logger)
		if err := commands.Register(session, cfg.Discord.GuildID); err != nil {
			logger.Error("failed to register commands", "error", err)
			os.Exit(1)
		}
	}

	sched := scheduler.NewScheduler(syndicator, cfg.Cycle.Tick, logger)
	healthServer := health.NewServer(cfg.Health.Addr, st.checks, logger)

	logger.Info("starting media syndicator",
		"sink", cfg.Delivery.Sink,
		"database", cfg.Database.Driver,
		"tick", cfg.Cycle.Tick,
		"concurrency", cfg.Cycle.Concurrency,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return healthServer.Run(gctx) })
	g.Go(func() error { return sched.Start(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("syndicator error", "error", err)
		os.Exit(1)
	}
}

func newClassifier(cfg config.ClassifierConfig) (*classifier.Classifier, error) {
	kinds, err := cfg.Kinds()
	if err != nil {
		return nil, err
	}
	return classifier.New(classifier.Policy{
		EligibleKinds: kinds,
		EmbedHosts:    cfg.EmbedHosts,
	}), nil
}

func openStores(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*stores, error) {
	if cfg.Driver == config.DriverMemory {
		logger.Warn("using in-memory storage, state is lost on restart")
		return &stores{
			mappings: memory.NewMappingStore(),
			settings: memory.NewSettingsStore(),
			ledger:   memory.NewLedger(),
			close:    func() error { return nil },
		}, nil
	}

	db, err := sqlstore.Open(ctx, cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, err
	}
	logger.Info("connected to database", "driver", cfg.Driver)

	return &stores{
		mappings: sqlstore.NewMappingStore(db),
		settings: sqlstore.NewSettingsStore(db),
		ledger:   sqlstore.NewLedger(db),
		checks: map[string]health.Check{
			"database": db.PingContext,
		},
		close: db.Close,
	}, nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
