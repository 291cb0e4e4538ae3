package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tele "gopkg.in/telebot.v3"

	"BandSentinel/internal/cache"
	"BandSentinel/internal/calculator"
	"BandSentinel/internal/collector"
	"BandSentinel/internal/config"
	"BandSentinel/internal/engine"
	"BandSentinel/internal/handler"
	"BandSentinel/internal/holding"
	"BandSentinel/internal/logging"
	"BandSentinel/internal/notifier"
	"BandSentinel/internal/recorder"
	"BandSentinel/internal/scheduler"
	"BandSentinel/internal/strategy"
	"BandSentinel/internal/window"
)

const serviceName = "bandsentinel"

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.NewLogger(cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	log.Info().Strs("tickers", cfg.Tickers).Int("window", cfg.Strategy.WindowSize).Msg("BandSentinel starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutting down tracer provider")
		}
	}()
	tracer := otel.Tracer(serviceName)

	// Core
	store, err := window.NewStore(cfg.Strategy.WindowSize)
	if err != nil {
		log.Fatal().Err(err).Msg("init window store")
	}
	calc, err := calculator.NewBandCalculator(cfg.Strategy.WindowSize, cfg.Strategy.BandMultiplier)
	if err != nil {
		log.Fatal().Err(err).Msg("init band calculator")
	}
	eval, err := strategy.NewEvaluator(cfg.Strategy.StopLossPercent)
	if err != nil {
		log.Fatal().Err(err).Msg("init evaluator")
	}
	book, err := holding.NewBook(cfg.Holdings.StateFile)
	if err != nil {
		log.Fatal().Err(err).Msg("init holdings")
	}

	rec, closeRec := openRecorder(ctx, cfg, tracer, log)
	defer closeRec()

	// Redis is optional; without it the latest-price cache and signal bus are skipped.
	var (
		latest    *cache.LatestPrices
		publisher *cache.SignalPublisher
	)
	notifiers := notifier.Fanout{notifier.NewConsoleNotifier(os.Stdout)}
	if cfg.Redis.Addr != "" {
		client, err := cache.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing without it")
		} else {
			defer client.Close()
			latest = cache.NewLatestPrices(client, cfg.Redis.TTL)
			publisher = cache.NewSignalPublisher(client, cfg.Redis.Channel)
			notifiers = append(notifiers, publisher)
		}
	}

	var bot *tele.Bot
	if cfg.Telegram.BotToken != "" {
		if bot, err = notifier.NewBot(cfg.Telegram.BotToken, cfg.Proxy); err != nil {
			log.Fatal().Err(err).Msg("init telegram bot")
		}
		notifiers = append(notifiers, notifier.NewTelegramNotifier(bot, cfg.Telegram.ChatID, log))
	}

	eng, err := engine.New(engine.Options{
		Store:      store,
		Calculator: calc,
		Evaluator:  eval,
		Holdings:   book,
		Recorder:   rec,
		Latest:     latestCache(latest),
		Notifier:   notifiers,
		Tracer:     tracer,
		Log:        log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init engine")
	}
	if err := eng.Warmup(ctx, cfg.Tickers); err != nil {
		log.Warn().Err(err).Msg("warm-up incomplete")
	}

	source, err := newSource(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init price source")
	}
	log.Info().Str("source", source.Name()).Msg("data source ready")
	col := collector.NewCollector(source, cfg.Tickers, log)

	sched := scheduler.NewScheduler(ctx, col, eng, book, rec, log)
	if err := sched.RegisterAll(cfg.Schedule.PollCron, cfg.Schedule.TrimCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	if bot != nil {
		notifier.RegisterCommands(bot, cfg.Telegram.ChatID, sched.HandleCommand, log)
		go bot.Start()
		defer bot.Stop()
		log.Info().Msg("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, polling now")
		go sched.RunPollNow(ctx)
	}

	// HTTP status API
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware(serviceName))
	h := handler.New(tracer, eng, book, latestReader(latest), signalReader(publisher))
	h.RegisterRoutes(r)

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http listen")
		}
	}()
	log.Info().Str("addr", cfg.HTTP.Addr).Msg("BandSentinel is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server forced to shutdown")
	}
	log.Info().Msg("BandSentinel stopped")
}

// newSource picks the configured price provider.
func newSource(cfg *config.Config) (collector.PriceSource, error) {
	switch cfg.DataSource.Provider {
	case "alpaca":
		src := collector.NewAlpacaSource(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.DataSource.APISecret, cfg.Proxy)
		src.Feed = cfg.DataSource.Feed
		return src, nil
	case "yahoo":
		return collector.NewYahooSource(cfg.DataSource.BaseURL, cfg.Proxy), nil
	case "mock":
		return &collector.MockSource{Start: time.Now().UTC()}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.DataSource.Provider)
	}
}

// openRecorder falls back to the no-op recorder when the database cannot be
// opened, so signals keep flowing without history.
func openRecorder(ctx context.Context, cfg *config.Config, tracer trace.Tracer, log zerolog.Logger) (recorder.Recorder, func()) {
	switch cfg.Database.Driver {
	case "sqlite":
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			return recorder.NewNoopRecorder(), func() {}
		}
		return sr, func() { sr.Close() }
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Database.PostgresURL)
		if err != nil {
			log.Warn().Err(err).Msg("init postgres pool failed, using noop")
			return recorder.NewNoopRecorder(), func() {}
		}
		pr := recorder.NewPostgresRecorder(pool, tracer)
		if err := pr.RunMigrations(ctx); err != nil {
			log.Warn().Err(err).Msg("postgres migrations failed, using noop")
			pool.Close()
			return recorder.NewNoopRecorder(), func() {}
		}
		return pr, pool.Close
	default:
		return recorder.NewNoopRecorder(), func() {}
	}
}

// The helpers below keep typed nil pointers out of interface values.

func latestCache(c *cache.LatestPrices) engine.LatestCache {
	if c == nil {
		return nil
	}
	return c
}

func latestReader(c *cache.LatestPrices) handler.LatestReader {
	if c == nil {
		return nil
	}
	return c
}

func signalReader(p *cache.SignalPublisher) handler.SignalReader {
	if p == nil {
		return nil
	}
	return p
}
