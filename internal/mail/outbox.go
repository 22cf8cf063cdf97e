// Package mail queues outbound mail in PostgreSQL and delivers it in the
// background. Enqueueing is the only guarantee callers get.
package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Entry is a queued message as stored in mail_outbox.
type Entry struct {
	ID        uuid.UUID
	Message   Message
	Status    string
	Attempts  int
	LastError string
	CreatedAt time.Time
	SentAt    *time.Time
}

// Outbox writes messages to mail_outbox.
type Outbox struct {
	pool *pgxpool.Pool
}

func NewOutbox(pool *pgxpool.Pool) *Outbox {
	return &Outbox{pool: pool}
}

// Enqueue stores msg for delivery and returns its ID.
func (o *Outbox) Enqueue(ctx context.Context, msg Message) (uuid.UUID, error) {
	var id uuid.UUID
	err := o.pool.QueryRow(ctx, `
		INSERT INTO mail_outbox (recipient, subject, html_body)
		VALUES ($1, $2, $3)
		RETURNING id
	`, msg.To, msg.Subject, msg.HTML).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to enqueue mail: %w", err)
	}
	return id, nil
}

// Get returns one outbox entry.
func (o *Outbox) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	var e Entry
	var lastError *string
	err := o.pool.QueryRow(ctx, `
		SELECT id, recipient, subject, html_body, status, attempts, last_error, created_at, sent_at
		FROM mail_outbox
		WHERE id = $1
	`, id).Scan(
		&e.ID,
		&e.Message.To,
		&e.Message.Subject,
		&e.Message.HTML,
		&e.Status,
		&e.Attempts,
		&lastError,
		&e.CreatedAt,
		&e.SentAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get mail: %w", err)
	}
	if lastError != nil {
		e.LastError = *lastError
	}
	return &e, nil
}
