package app

import (
	"context"
	"fmt"
	"time"

	"github.com/aliuyar1234/printshop/internal/retention"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// NewScheduler schedules outbox delivery every minute and the retention
// sweep nightly (every minute in dev). The caller starts and stops it.
func (a *App) NewScheduler() (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))

	if _, err := c.AddFunc("* * * * *", guarded("mail", func(ctx context.Context) error {
		res, err := a.Mail.RunOnce(ctx)
		if err != nil {
			return err
		}
		if res.Sent+res.Retried+res.Failed > 0 {
			log.Info().
				Int("sent", res.Sent).
				Int("retried", res.Retried).
				Int("failed", res.Failed).
				Msg("Mail outbox processed")
		}
		return nil
	})); err != nil {
		return nil, fmt.Errorf("failed to schedule mail job: %w", err)
	}

	schedule := "0 3 * * *"
	if a.Config.IsDev() {
		schedule = "* * * * *"
	}
	if _, err := c.AddFunc(schedule, guarded("retention", func(ctx context.Context) error {
		return retention.RunRetentionJob(ctx, a.DB, a.Config.MailRetentionDays, a.Config.AuditRetentionDays)
	})); err != nil {
		return nil, fmt.Errorf("failed to schedule retention job: %w", err)
	}

	return c, nil
}

// guarded runs job with a deadline and keeps a panic from killing the scheduler.
func guarded(name string, job func(ctx context.Context) error) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("job", name).Interface("panic", r).Msg("Scheduled job panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Second)
		defer cancel()
		if err := job(ctx); err != nil {
			log.Error().Err(err).Str("job", name).Msg("Scheduled job failed")
		}
	}
}
