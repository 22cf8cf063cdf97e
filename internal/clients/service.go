package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/aliuyar1234/printshop/internal/orgs"
	"github.com/aliuyar1234/printshop/internal/validation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Collection is the live collection name.
const Collection = "clients"

// ErrClientNotFound is returned when a client is not found in the organization
var ErrClientNotFound = errors.New("client not found")

// Service provides client operations. Every method checks the actor's role
// before touching the database.
type Service struct {
	pool     *pgxpool.Pool
	authz    orgs.Authorizer
	notifier orgs.ChangeNotifier
}

// NewService creates a new client service
func NewService(pool *pgxpool.Pool, authz orgs.Authorizer, notifier orgs.ChangeNotifier) *Service {
	return &Service{pool: pool, authz: authz, notifier: notifier}
}

const clientColumns = `id, org_id, name, email, phone, notes, created_at, updated_at`

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(
		&c.ID,
		&c.OrgID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.Notes,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List returns the organization's clients, newest first.
func (s *Service) List(ctx context.Context, actorID, orgID uuid.UUID) ([]Client, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleViewer); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE org_id = $1
		ORDER BY created_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := []Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating client rows: %w", err)
	}

	return clients, nil
}

// Get returns one client.
func (s *Service) Get(ctx context.Context, actorID, orgID, clientID uuid.UUID) (*Client, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleViewer); err != nil {
		return nil, err
	}

	c, err := scanClient(s.pool.QueryRow(ctx, `
		SELECT `+clientColumns+` FROM clients WHERE org_id = $1 AND id = $2
	`, orgID, clientID))
	if err != nil && !errors.Is(err, ErrClientNotFound) {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, err
}

// Create adds a client. Editors and above only.
func (s *Service) Create(ctx context.Context, actorID, orgID uuid.UUID, in Input) (*Client, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleEditor); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	c, err := scanClient(s.pool.QueryRow(ctx, `
		INSERT INTO clients (org_id, name, email, phone, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+clientColumns,
		orgID, in.Name, in.Email, in.Phone, in.Notes))
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	s.notifier.Changed(ctx, orgID, Collection)
	return c, nil
}

// Update replaces the writable fields of a client.
func (s *Service) Update(ctx context.Context, actorID, orgID, clientID uuid.UUID, in Input) (*Client, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleEditor); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	c, err := scanClient(s.pool.QueryRow(ctx, `
		UPDATE clients
		SET name = $3, email = $4, phone = $5, notes = $6, updated_at = NOW()
		WHERE org_id = $1 AND id = $2
		RETURNING `+clientColumns,
		orgID, clientID, in.Name, in.Email, in.Phone, in.Notes))
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update client: %w", err)
	}

	s.notifier.Changed(ctx, orgID, Collection)
	return c, nil
}

// Delete removes a client.
func (s *Service) Delete(ctx context.Context, actorID, orgID, clientID uuid.UUID) error {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleEditor); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM clients WHERE org_id = $1 AND id = $2`, orgID, clientID)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClientNotFound
	}

	s.notifier.Changed(ctx, orgID, Collection)
	return nil
}

// PurgeOrg deletes up to batch clients of orgID. It is used by the
// organization delete and performs no authorization of its own.
func (s *Service) PurgeOrg(ctx context.Context, orgID uuid.UUID, batch int) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM clients
		WHERE id IN (SELECT id FROM clients WHERE org_id = $1 LIMIT $2)
	`, orgID, batch)
	if err != nil {
		return 0, fmt.Errorf("failed to purge clients: %w", err)
	}
	return tag.RowsAffected(), nil
}
