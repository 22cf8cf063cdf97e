package mail

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBatchSize is the number of messages claimed per run.
	DefaultBatchSize = 20
	// MaxAttempts is the number of deliveries tried before a message is failed.
	MaxAttempts = 5
	// DefaultLease is how long a claimed message is withheld from other runs.
	DefaultLease = 5 * time.Minute
)

// DeliveryRecorder counts delivery outcomes.
type DeliveryRecorder interface {
	RecordMailDelivery(result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordMailDelivery(string) {}

// Worker delivers pending outbox messages.
type Worker struct {
	pool     *pgxpool.Pool
	sender   Sender
	recorder DeliveryRecorder
	batch    int
	lease    time.Duration
	logger   zerolog.Logger
}

func NewWorker(pool *pgxpool.Pool, sender Sender, recorder DeliveryRecorder) *Worker {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Worker{
		pool:     pool,
		sender:   sender,
		recorder: recorder,
		batch:    DefaultBatchSize,
		lease:    DefaultLease,
		logger:   log.With().Str("component", "mail_worker").Logger(),
	}
}

// RunResult summarizes one worker run.
type RunResult struct {
	Sent    int
	Retried int
	Failed  int
}

// outcome decides the row state after a delivery attempt.
func outcome(attempts int, sendErr error) (status string, lastError *string) {
	if sendErr == nil {
		return StatusSent, nil
	}
	msg := sendErr.Error()
	if attempts >= MaxAttempts {
		return StatusFailed, &msg
	}
	return StatusPending, &msg
}

type claimed struct {
	id        uuid.UUID
	msg       Message
	attempts  int
	createdAt time.Time
}

// RunOnce claims a batch of pending messages and tries to deliver each.
//
// The claim is committed before anything is sent and every outcome is
// recorded on its own, so a failure part way never returns a delivered
// message to the queue. Rows whose outcome could not be recorded stay leased
// until the lease expires and are then retried.
func (w *Worker) RunOnce(ctx context.Context) (RunResult, error) {
	var result RunResult

	batch, err := w.claim(ctx)
	if err != nil {
		return result, err
	}

	for _, c := range batch {
		attempts := c.attempts + 1
		sendErr := w.sender.Send(ctx, c.msg)
		status, lastError := outcome(attempts, sendErr)

		if err := w.record(ctx, c.id, status, attempts, lastError); err != nil {
			return result, err
		}

		switch status {
		case StatusSent:
			result.Sent++
		case StatusFailed:
			result.Failed++
			w.logger.Error().Err(sendErr).Str("mail_id", c.id.String()).Int("attempts", attempts).Msg("Mail delivery failed permanently")
		default:
			result.Retried++
			w.logger.Warn().Err(sendErr).Str("mail_id", c.id.String()).Int("attempts", attempts).Msg("Mail delivery failed, will retry")
		}
		w.recorder.RecordMailDelivery(status)
	}

	if len(batch) > 0 {
		w.logger.Info().
			Int("sent", result.Sent).
			Int("retried", result.Retried).
			Int("failed", result.Failed).
			Msg("Mail worker run complete")
	}
	return result, nil
}

// claim leases up to w.batch pending messages, oldest first. SKIP LOCKED keeps
// concurrent workers from claiming the same rows.
func (w *Worker) claim(ctx context.Context) ([]claimed, error) {
	rows, err := w.pool.Query(ctx, `
		UPDATE mail_outbox
		SET claimed_until = NOW() + make_interval(secs => $2)
		WHERE id IN (
			SELECT id
			FROM mail_outbox
			WHERE status = 'pending'
			  AND (claimed_until IS NULL OR claimed_until < NOW())
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, recipient, subject, html_body, attempts, created_at
	`, w.batch, w.lease.Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to claim mail: %w", err)
	}
	defer rows.Close()

	var batch []claimed
	for rows.Next() {
		var c claimed
		if err := rows.Scan(&c.id, &c.msg.To, &c.msg.Subject, &c.msg.HTML, &c.attempts, &c.createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan mail: %w", err)
		}
		batch = append(batch, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mail rows: %w", err)
	}

	// RETURNING carries no order.
	slices.SortFunc(batch, func(a, b claimed) int {
		return a.createdAt.Compare(b.createdAt)
	})
	return batch, nil
}

// record stores the outcome of one delivery attempt and releases the lease.
func (w *Worker) record(ctx context.Context, id uuid.UUID, status string, attempts int, lastError *string) error {
	_, err := w.pool.Exec(ctx, `
		UPDATE mail_outbox
		SET status = $2,
		    attempts = $3,
		    last_error = $4,
		    claimed_until = NULL,
		    sent_at = CASE WHEN $2 = 'sent' THEN NOW() ELSE sent_at END
		WHERE id = $1
	`, id, status, attempts, lastError)
	if err != nil {
		return fmt.Errorf("failed to record delivery of %s: %w", id, err)
	}
	return nil
}
