package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"BandSentinel/internal/collector"
	"BandSentinel/internal/engine"
	"BandSentinel/internal/holding"
	"BandSentinel/internal/model"
	"BandSentinel/internal/notifier"
	"BandSentinel/internal/recorder"
)

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Engine    *engine.Engine
	Holdings  *holding.Book
	Recorder  recorder.Recorder
	Ctx       context.Context
	log       zerolog.Logger
}

// NewScheduler creates a new Scheduler. A poll still running when the next
// one is due is skipped rather than queued.
func NewScheduler(ctx context.Context, col *collector.Collector, eng *engine.Engine, book *holding.Book, rec recorder.Recorder, log zerolog.Logger) *Scheduler {
	cl := cronLogger{log: log}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Collector: col,
		Engine:    eng,
		Holdings:  book,
		Recorder:  rec,
		Ctx:       ctx,
		log:       log,
	}
}

// RegisterAll registers the poll and trim jobs.
func (s *Scheduler) RegisterAll(pollCron, trimCron string) error {
	if _, err := s.Cron.AddFunc(pollCron, s.pollTask); err != nil {
		return fmt.Errorf("register poll task: %w", err)
	}
	if _, err := s.Cron.AddFunc(trimCron, s.trimTask); err != nil {
		return fmt.Errorf("register trim task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) pollTask() {
	if _, err := s.RunPollNow(s.Ctx); err != nil {
		s.log.Error().Err(err).Msg("poll failed")
	}
}

// RunPollNow collects one observation per ticker and processes the symbols
// in parallel. A failing symbol does not stop the others; its error is
// joined into the returned error. Only actionable signals are returned.
func (s *Scheduler) RunPollNow(ctx context.Context) ([]model.Signal, error) {
	observations, err := s.Collector.Collect(ctx)
	if err != nil {
		return nil, err
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		signals []model.Signal
		errs    []error
	)
	for _, obs := range observations {
		wg.Add(1)
		go func(obs model.PriceObservation) {
			defer wg.Done()
			sig, err := s.Engine.Process(ctx, obs)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.Warn().Err(err).Str("symbol", obs.Symbol).Msg("observation rejected")
				errs = append(errs, err)
				return
			}
			if sig.Actionable() {
				signals = append(signals, sig)
			}
		}(obs)
	}
	wg.Wait()

	sort.Slice(signals, func(i, j int) bool { return signals[i].Symbol < signals[j].Symbol })
	s.log.Info().Int("observations", len(observations)).Int("signals", len(signals)).Msg("poll complete")
	return signals, errors.Join(errs...)
}

func (s *Scheduler) trimTask() {
	if err := s.RunTrimNow(s.Ctx); err != nil {
		s.log.Error().Err(err).Msg("trim failed")
	}
}

// RunTrimNow drops persisted history older than one window per ticker.
func (s *Scheduler) RunTrimNow(ctx context.Context) error {
	var errs []error
	for _, sym := range s.Collector.Tickers {
		n, err := s.Recorder.Trim(ctx, sym, s.Engine.Capacity())
		if err != nil {
			errs = append(errs, fmt.Errorf("trim %s: %w", sym, err))
			continue
		}
		if n > 0 {
			s.log.Info().Str("symbol", sym).Int64("deleted", n).Msg("trimmed price history")
		}
	}
	return errors.Join(errs...)
}

const helpText = "Available commands:\n" +
	"/bands SYM - current bands\n" +
	"/latest SYM - latest price\n" +
	"/hold SYM [PRICE] - mark as held\n" +
	"/release SYM - mark as not held\n" +
	"/holdings - list holdings\n" +
	"/poll - poll prices now"

// HandleCommand processes a user command and returns a reply. Replies are
// sent as Telegram HTML, so anything echoed from the user is escaped.
func (s *Scheduler) HandleCommand(command string, args []string) string {
	switch command {
	case "/bands":
		if len(args) == 0 {
			return "Usage: /bands SYM"
		}
		sym := model.NormalizeSymbol(args[0])
		bands, ready, err := s.Engine.Bands(sym)
		if err != nil {
			return fmt.Sprintf("❌ %s: %s", html.EscapeString(sym), html.EscapeString(err.Error()))
		}
		if !ready {
			bands = nil
		}
		price, _ := s.Engine.Latest(sym)
		return notifier.FormatBands(sym, price, bands, s.Engine.WindowLen(sym), s.Engine.Capacity())
	case "/latest":
		if len(args) == 0 {
			return "Usage: /latest SYM"
		}
		sym := model.NormalizeSymbol(args[0])
		price, ok := s.Engine.Latest(sym)
		sym = html.EscapeString(sym)
		if !ok {
			return fmt.Sprintf("%s: no price yet", sym)
		}
		return fmt.Sprintf("%s: %.2f", sym, price)
	case "/hold":
		if len(args) == 0 {
			return "Usage: /hold SYM [PRICE]"
		}
		var entry float64
		if len(args) > 1 {
			p, err := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
			if err != nil {
				return fmt.Sprintf("❌ invalid price %s", html.EscapeString(strconv.Quote(args[1])))
			}
			entry = p
		}
		if err := s.Holdings.Hold(args[0], entry); err != nil {
			return "❌ " + html.EscapeString(err.Error())
		}
		return fmt.Sprintf("✅ %s marked as held", html.EscapeString(model.NormalizeSymbol(args[0])))
	case "/release":
		if len(args) == 0 {
			return "Usage: /release SYM"
		}
		ok, err := s.Holdings.Release(args[0])
		if err != nil {
			return "❌ " + html.EscapeString(err.Error())
		}
		sym := html.EscapeString(model.NormalizeSymbol(args[0]))
		if !ok {
			return fmt.Sprintf("%s was not held", sym)
		}
		return fmt.Sprintf("✅ %s released", sym)
	case "/holdings":
		return notifier.FormatHoldings(s.Holdings.All())
	case "/poll":
		signals, err := s.RunPollNow(s.Ctx)
		lines := make([]string, 0, len(signals)+1)
		for _, sig := range signals {
			lines = append(lines, html.EscapeString(notifier.FormatPlain(sig)))
		}
		if err != nil {
			lines = append(lines, "⚠️ "+html.EscapeString(err.Error()))
		}
		if len(lines) == 0 {
			return "Poll complete, no signals"
		}
		return strings.Join(lines, "\n")
	default:
		return helpText
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
