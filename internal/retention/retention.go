package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Execer is the part of pgxpool.Pool the retention job needs.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// DeleteOldMail deletes delivered and permanently failed outbox rows older
// than retentionDays. Pending rows are never touched.
// The function is idempotent - safe to run repeatedly.
//
// Returns the number of rows deleted.
func DeleteOldMail(ctx context.Context, db Execer, retentionDays int) (int64, error) {
	tag, err := db.Exec(ctx, `
		DELETE FROM mail_outbox
		WHERE status IN ('sent', 'failed')
		  AND created_at < NOW() - INTERVAL '1 day' * $1
	`, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old mail: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteOldAuditEntries deletes audit_log rows older than retentionDays.
//
// Returns the number of rows deleted.
func DeleteOldAuditEntries(ctx context.Context, db Execer, retentionDays int) (int64, error) {
	tag, err := db.Exec(ctx, `
		DELETE FROM audit_log
		WHERE created_at < NOW() - INTERVAL '1 day' * $1
	`, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RunRetentionJob executes both retention operations and logs the results.
// This is the main entry point called by the cron scheduler.
func RunRetentionJob(ctx context.Context, db Execer, mailDays, auditDays int) error {
	log.Info().
		Int("mail_retention_days", mailDays).
		Int("audit_retention_days", auditDays).
		Msg("Starting retention job")

	startTime := time.Now()

	mailDeleted, err := DeleteOldMail(ctx, db, mailDays)
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete old mail")
		return fmt.Errorf("mail cleanup failed: %w", err)
	}

	auditDeleted, err := DeleteOldAuditEntries(ctx, db, auditDays)
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete old audit entries")
		return fmt.Errorf("audit cleanup failed: %w", err)
	}

	log.Info().
		Int64("mail_deleted", mailDeleted).
		Int64("audit_entries_deleted", auditDeleted).
		Dur("duration", time.Since(startTime)).
		Msg("Retention job completed")

	return nil
}
