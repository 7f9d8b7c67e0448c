// Package scheduler runs the periodic background jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/example/zeeguu/internal/database"
	"github.com/example/zeeguu/internal/feeds"
	"github.com/example/zeeguu/internal/metrics"
	"github.com/example/zeeguu/pkg/models"
)

// Notifier delivers study reminders
type Notifier interface {
	SendReminder(ctx context.Context, user *models.User, due int) error
}

// FeedCrawler fetches new articles from all active feeds
type FeedCrawler interface {
	CrawlAll(ctx context.Context) (feeds.CrawlReport, error)
}

// DueCounter counts due bookmarks per user
type DueCounter interface {
	DueCounts(ctx context.Context) (map[int64]int, error)
}

// SessionPurger removes expired sessions
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// MeaningClassifier labels meanings that have not been classified yet
type MeaningClassifier interface {
	ClassifyPending(ctx context.Context, limit int) (int, error)
}

// Jobs are the dependencies of the scheduled jobs; nil entries disable their job
type Jobs struct {
	Crawler    FeedCrawler
	Study      DueCounter
	Sessions   SessionPurger
	Classifier MeaningClassifier
	Notifier   Notifier
}

// Config holds the job timings
type Config struct {
	CrawlInterval time.Duration
	// Reminders go out only between these hours (UTC), inclusive
	NotificationStartHour int
	NotificationEndHour   int
	ClassifyInterval      time.Duration
	ClassifyBatch         int
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	jobs      Jobs
	cfg       Config
	users     *database.UserRepository
	logger    logrus.FieldLogger
	now       func() time.Time
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a new scheduler instance
func New(jobs Jobs, cfg Config, logger logrus.FieldLogger) *Scheduler {
	if cfg.CrawlInterval <= 0 {
		cfg.CrawlInterval = 2 * time.Hour
	}
	if cfg.ClassifyInterval <= 0 {
		cfg.ClassifyInterval = 15 * time.Minute
	}
	if cfg.ClassifyBatch <= 0 {
		cfg.ClassifyBatch = 20
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		jobs:      jobs,
		cfg:       cfg,
		users:     database.NewUserRepository(),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start registers the jobs and runs them in the background
func (s *Scheduler) Start() error {
	if s.jobs.Crawler != nil {
		if _, err := s.scheduler.Every(s.cfg.CrawlInterval).SingletonMode().Do(s.run, "crawl_feeds", s.crawl); err != nil {
			return fmt.Errorf("failed to schedule feed crawl: %w", err)
		}
	}
	if s.jobs.Notifier != nil && s.jobs.Study != nil {
		// top of every hour
		if _, err := s.scheduler.Cron("0 * * * *").SingletonMode().Do(s.run, "study_reminders", s.reminders); err != nil {
			return fmt.Errorf("failed to schedule reminders: %w", err)
		}
	}
	if s.jobs.Sessions != nil {
		if _, err := s.scheduler.Every(1).Day().At("03:00").SingletonMode().Do(s.run, "purge_sessions", s.purgeSessions); err != nil {
			return fmt.Errorf("failed to schedule session purge: %w", err)
		}
	}
	if s.jobs.Classifier != nil {
		if _, err := s.scheduler.Every(s.cfg.ClassifyInterval).SingletonMode().Do(s.run, "classify_meanings", s.classify); err != nil {
			return fmt.Errorf("failed to schedule meaning classification: %w", err)
		}
	}

	s.scheduler.StartAsync()
	s.logger.WithField("jobs", len(s.scheduler.Jobs())).Info("Scheduler started")
	return nil
}

// Stop terminates all scheduled tasks and cancels running ones
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
}

// run executes a job and records its outcome
func (s *Scheduler) run(name string, job func(ctx context.Context) error) {
	start := time.Now()
	err := job(s.ctx)
	metrics.RecordJobRun(name, time.Since(start), err == nil)
	if err != nil {
		s.logger.WithError(err).WithField("job", name).Error("Scheduled job failed")
	}
}

func (s *Scheduler) crawl(ctx context.Context) error {
	report, err := s.jobs.Crawler.CrawlAll(ctx)
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"feeds":   report.Feeds,
		"new":     report.New,
		"skipped": report.Skipped,
		"failed":  report.Failed,
	}).Info("Feeds crawled")
	return nil
}

func (s *Scheduler) reminders(ctx context.Context) error {
	_, err := s.SendReminders(ctx)
	return err
}

// SendReminders notifies the users whose notification hour is now and who
// have bookmarks due. It returns the number of reminders sent.
func (s *Scheduler) SendReminders(ctx context.Context) (int, error) {
	hour := s.now().Hour()
	if !inWindow(hour, s.cfg.NotificationStartHour, s.cfg.NotificationEndHour) {
		s.logger.WithFields(logrus.Fields{
			"hour":  hour,
			"start": s.cfg.NotificationStartHour,
			"end":   s.cfg.NotificationEndHour,
		}).Debug("Outside notification hours, skipping reminders")
		return 0, nil
	}

	users, err := s.users.ListForNotification(ctx, hour)
	if err != nil {
		return 0, err
	}
	if len(users) == 0 {
		return 0, nil
	}
	due, err := s.jobs.Study.DueCounts(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range users {
		user := &users[i]
		count := due[user.ID]
		if count == 0 {
			continue
		}
		if err := s.jobs.Notifier.SendReminder(ctx, user, count); err != nil {
			s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to send reminder")
			continue
		}
		sent++
	}
	s.logger.WithFields(logrus.Fields{"hour": hour, "sent": sent}).Info("Study reminders sent")
	return sent, nil
}

func (s *Scheduler) purgeSessions(ctx context.Context) error {
	n, err := s.jobs.Sessions.PurgeExpiredSessions(ctx)
	if err != nil {
		return err
	}
	s.logger.WithField("purged", n).Info("Expired sessions purged")
	return nil
}

func (s *Scheduler) classify(ctx context.Context) error {
	n, err := s.jobs.Classifier.ClassifyPending(ctx, s.cfg.ClassifyBatch)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.WithField("classified", n).Info("Meanings classified")
	}
	return nil
}

// inWindow reports whether hour lies in [start, end]; a window with
// start > end wraps around midnight
func inWindow(hour, start, end int) bool {
	if start <= end {
		return hour >= start && hour <= end
	}
	return hour >= start || hour <= end
}
