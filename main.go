package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/zeeguu/internal/ai"
	"github.com/example/zeeguu/internal/api"
	"github.com/example/zeeguu/internal/bot"
	"github.com/example/zeeguu/internal/cache"
	"github.com/example/zeeguu/internal/config"
	"github.com/example/zeeguu/internal/database"
	"github.com/example/zeeguu/internal/exercises"
	"github.com/example/zeeguu/internal/feeds"
	"github.com/example/zeeguu/internal/logging"
	mailer "github.com/example/zeeguu/internal/mail"
	"github.com/example/zeeguu/internal/scheduler"
	"github.com/example/zeeguu/internal/service"
	"github.com/example/zeeguu/internal/spaced_repetition"
	"github.com/example/zeeguu/internal/tokenizer"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.Connect(database.Options{Type: cfg.DBType, DSN: cfg.DBDSN, DataDir: cfg.DataDir}); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close()

	sessionCache := newSessionCache(ctx, cfg, logger)
	mail := newMailer(cfg, logger)
	assistant := ai.NewAssistant(newProvider(cfg, logger), logger)

	tok, err := tokenizer.New()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load tokenizer")
	}
	extractor := feeds.NewExtractor(nil)
	crawler := feeds.NewCrawler(extractor, tok, cfg.CrawlWorkers, logger)

	algorithm, err := spaced_repetition.ByName(cfg.SRAlgorithm)
	if err != nil {
		logger.WithError(err).Fatal("Unknown spaced repetition algorithm")
	}

	accounts := service.NewAccountService(sessionCache, mail, service.AccountOptions{
		BcryptCost:        cfg.BcryptCost,
		SessionTTL:        cfg.SessionTTL,
		RequireInviteCode: cfg.RequireInviteCode,
	}, logger)
	bookmarks := service.NewBookmarkService(assistant, logger)
	study := service.NewStudyService(algorithm, exercises.NewBuilder(nil), logger)

	server := api.NewServer(api.Services{
		Accounts:  accounts,
		Cohorts:   service.NewCohortService(logger),
		Articles:  service.NewArticleService(extractor, tok, logger),
		Bookmarks: bookmarks,
		Study:     study,
		Activity:  service.NewActivityService(),
	}, api.Options{RatePerSec: cfg.APIRatePerSec, Burst: cfg.APIBurst}, logger)
	server.Limiter().StartCleanup(ctx, 10*time.Minute)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	jobs := scheduler.Jobs{
		Crawler:  crawler,
		Study:    study,
		Sessions: accounts,
	}
	if assistant.Enabled() {
		jobs.Classifier = bookmarks
	}

	var telegram *bot.Bot
	if cfg.TelegramToken != "" {
		telegram, err = bot.New(bot.DefaultConfig(cfg.TelegramToken), accounts, study, logger)
		if err != nil {
			logger.WithError(err).Error("Telegram bot disabled")
		} else {
			jobs.Notifier = telegram
		}
	}

	sched := scheduler.New(jobs, scheduler.Config{
		CrawlInterval:         cfg.FeedCrawlInterval,
		NotificationStartHour: cfg.NotificationStartHour,
		NotificationEndHour:   cfg.NotificationEndHour,
	}, logger)
	if err := sched.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start scheduler")
	}

	if telegram != nil {
		go func() {
			if err := telegram.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("Telegram bot stopped")
			}
		}()
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	sig := <-sigChan
	logger.WithField("signal", sig.String()).Info("Shutting down")
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error during shutdown")
	}
	if c, ok := sessionCache.(interface{ Close() error }); ok {
		c.Close()
	}
	logger.Info("Stopped")
}

func newSessionCache(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) cache.SessionCache {
	if cfg.RedisURL == "" {
		return cache.NewMemory()
	}
	r, err := cache.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, caching sessions in memory")
		return cache.NewMemory()
	}
	return r
}

func newMailer(cfg *config.Config, logger logrus.FieldLogger) mailer.Mailer {
	if cfg.ResendAPIKey == "" {
		logger.Warn("RESEND_API_KEY not set, emails are only logged")
		return mailer.NewLog(logger)
	}
	return mailer.NewResend(cfg.ResendAPIKey, cfg.EmailSender, logger)
}

// newProvider chains the configured LLM providers, or returns nil when none is
func newProvider(cfg *config.Config, logger logrus.FieldLogger) ai.Provider {
	var providers []ai.Provider
	if cfg.AnthropicAPIKey != "" {
		providers = append(providers, ai.WithRetry(ai.NewAnthropic(ai.ProviderConfig{
			APIKey:     cfg.AnthropicAPIKey,
			Model:      cfg.AnthropicModel,
			RatePerSec: cfg.LLMRatePerSec,
		}), 3, time.Second))
	}
	if cfg.DeepSeekAPIKey != "" {
		providers = append(providers, ai.WithRetry(ai.NewDeepSeek(ai.ProviderConfig{
			APIKey:     cfg.DeepSeekAPIKey,
			Model:      cfg.DeepSeekModel,
			RatePerSec: cfg.LLMRatePerSec,
		}), 3, time.Second))
	}
	switch len(providers) {
	case 0:
		logger.Warn("No LLM provider configured, example sentences and validation are disabled")
		return nil
	case 1:
		return providers[0]
	default:
		return ai.Fallback(providers...)
	}
}
