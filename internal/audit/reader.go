package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Reader pages through an organization's audit trail.
type Reader struct {
	pool *pgxpool.Pool
}

func NewReader(pool *pgxpool.Pool) *Reader {
	return &Reader{pool: pool}
}

// Cursor marks the last entry of a page. Entries are ordered by
// (created_at, id) descending, so equal timestamps never straddle two pages.
type Cursor struct {
	Before time.Time `json:"before"`
	ID     uuid.UUID `json:"id"`
}

// Query selects a page of the trail.
type Query struct {
	Limit int
	// After continues from a previous page. Nil starts at the newest entry.
	After *Cursor
	// ActionPrefix keeps actions starting with it, e.g. "org.invite".
	ActionPrefix string
}

func (q Query) pageSize() int {
	if q.Limit <= 0 {
		return DefaultPageSize
	}
	return min(q.Limit, MaxPageSize)
}

// Actor is the user behind an entry. System jobs have none.
type Actor struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email,omitempty"`
	Name  string    `json:"name,omitempty"`
}

// Entry is one audited action as shown to organization admins.
type Entry struct {
	ID        uuid.UUID      `json:"id"`
	Action    string         `json:"action"`
	Actor     *Actor         `json:"actor,omitempty"`
	Meta      map[string]any `json:"meta"`
	CreatedAt time.Time      `json:"created_at"`
}

// Page holds entries newest first. Next is nil on the last page.
type Page struct {
	Entries []Entry `json:"entries"`
	Next    *Cursor `json:"next,omitempty"`
}

// paginate trims a result fetched with one extra row into a Page.
func paginate(entries []Entry, size int) *Page {
	if entries == nil {
		entries = []Entry{}
	}
	if len(entries) <= size {
		return &Page{Entries: entries}
	}
	entries = entries[:size]
	last := entries[size-1]
	return &Page{Entries: entries, Next: &Cursor{Before: last.CreatedAt, ID: last.ID}}
}

func decodeMeta(raw []byte) map[string]any {
	meta := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return map[string]any{}
		}
	}
	return meta
}

// ListByOrg returns one page of orgID's trail.
func (r *Reader) ListByOrg(ctx context.Context, orgID uuid.UUID, q Query) (*Page, error) {
	size := q.pageSize()
	var (
		before   *time.Time
		beforeID uuid.NullUUID
	)
	if q.After != nil {
		before = &q.After.Before
		beforeID = uuid.NullUUID{UUID: q.After.ID, Valid: true}
	}

	rows, err := r.pool.Query(ctx, `
		SELECT al.id, al.action, al.actor_user_id, COALESCE(u.email, ''), COALESCE(u.display_name, ''),
		       al.meta, al.created_at
		FROM audit_log al
		LEFT JOIN users u ON u.id = al.actor_user_id
		WHERE al.org_id = $1
		  AND ($2::timestamptz IS NULL OR (al.created_at, al.id) < ($2, $3::uuid))
		  AND ($4::text = '' OR starts_with(al.action, $4))
		ORDER BY al.created_at DESC, al.id DESC
		LIMIT $5
	`, orgID, before, beforeID, q.ActionPrefix, size+1)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e           Entry
			actorID     uuid.NullUUID
			email, name string
			meta        []byte
		)
		if err := rows.Scan(&e.ID, &e.Action, &actorID, &email, &name, &meta, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		if actorID.Valid {
			e.Actor = &Actor{ID: actorID.UUID, Email: email, Name: name}
		}
		e.Meta = decodeMeta(meta)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}
	return paginate(entries, size), nil
}
