package projects

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
const Collection = "projects"

var (
	// ErrProjectNotFound is returned when a project is not found in the organization
	ErrProjectNotFound = errors.New("project not found")

	// ErrProjectCompleted is returned when a quote is saved on a completed project
	ErrProjectCompleted = errors.New("project is completed")
)

// Service provides project-related operations
type Service struct {
	pool     *pgxpool.Pool
	authz    orgs.Authorizer
	notifier orgs.ChangeNotifier
}

// NewService creates a new project service
func NewService(pool *pgxpool.Pool, authz orgs.Authorizer, notifier orgs.ChangeNotifier) *Service {
	return &Service{pool: pool, authz: authz, notifier: notifier}
}

const projectColumns = `id, org_id, name, client_name, status, type, description, material,
	weight_grams, design_hours, quantity, budget, estimated_delivery, created_at, updated_at`

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	err := row.Scan(
		&p.ID,
		&p.OrgID,
		&p.Name,
		&p.ClientName,
		&p.Status,
		&p.Type,
		&p.Description,
		&p.Material,
		&p.WeightGrams,
		&p.DesignHours,
		&p.Quantity,
		&p.Budget,
		&p.EstimatedDelivery,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

// List returns the organization's projects, newest first.
func (s *Service) List(ctx context.Context, actorID, orgID uuid.UUID) ([]Project, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleViewer); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE org_id = $1
		ORDER BY created_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}

	return projects, nil
}

// Get returns one project.
func (s *Service) Get(ctx context.Context, actorID, orgID, projectID uuid.UUID) (*Project, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleViewer); err != nil {
		return nil, err
	}

	p, err := scanProject(s.pool.QueryRow(ctx, `
		SELECT `+projectColumns+` FROM projects WHERE org_id = $1 AND id = $2
	`, orgID, projectID))
	if err != nil && !errors.Is(err, ErrProjectNotFound) {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, err
}

// Create adds a project. Status defaults to queued and quantity to 1.
func (s *Service) Create(ctx context.Context, actorID, orgID uuid.UUID, in Input) (*Project, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleEditor); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	p, err := scanProject(s.pool.QueryRow(ctx, `
		INSERT INTO projects (org_id, name, client_name, status, type, description, material,
			weight_grams, design_hours, quantity, budget, estimated_delivery)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+projectColumns,
		orgID, in.Name, in.ClientName, in.Status, in.Type, in.Description, in.Material,
		in.WeightGrams, in.DesignHours, in.Quantity, in.Budget, in.deliveryDate()))
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.notifier.Changed(ctx, orgID, Collection)
	return p, nil
}

// Update replaces the writable fields of a project.
func (s *Service) Update(ctx context.Context, actorID, orgID, projectID uuid.UUID, in Input) (*Project, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleEditor); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	p, err := scanProject(s.pool.QueryRow(ctx, `
		UPDATE projects
		SET name = $3, client_name = $4, status = $5, type = $6, description = $7, material = $8,
			weight_grams = $9, design_hours = $10, quantity = $11, budget = $12,
			estimated_delivery = $13, updated_at = NOW()
		WHERE org_id = $1 AND id = $2
		RETURNING `+projectColumns,
		orgID, projectID, in.Name, in.ClientName, in.Status, in.Type, in.Description, in.Material,
		in.WeightGrams, in.DesignHours, in.Quantity, in.Budget, in.deliveryDate()))
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	s.notifier.Changed(ctx, orgID, Collection)
	return p, nil
}

// SetStatus moves a project to status.
func (s *Service) SetStatus(ctx context.Context, actorID, orgID, projectID uuid.UUID, status Status) (*Project, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleEditor); err != nil {
		return nil, err
	}
	if err := validation.Struct(StatusRequest{Status: status}); err != nil {
		return nil, err
	}

	p, err := scanProject(s.pool.QueryRow(ctx, `
		UPDATE projects SET status = $3, updated_at = NOW()
		WHERE org_id = $1 AND id = $2
		RETURNING `+projectColumns,
		orgID, projectID, status))
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update project status: %w", err)
	}

	s.notifier.Changed(ctx, orgID, Collection)
	return p, nil
}

// SaveQuote stores a computed quote on the project. Completed projects are
// locked and return ErrProjectCompleted.
func (s *Service) SaveQuote(ctx context.Context, actorID, orgID, projectID uuid.UUID, q QuoteFields) (*Project, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleEditor); err != nil {
		return nil, err
	}
	if err := validation.Struct(q); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status Status
	err = tx.QueryRow(ctx, `
		SELECT status FROM projects WHERE org_id = $1 AND id = $2 FOR UPDATE
	`, orgID, projectID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to lock project: %w", err)
	}
	if status == StatusCompleted {
		return nil, ErrProjectCompleted
	}

	p, err := scanProject(tx.QueryRow(ctx, `
		UPDATE projects
		SET material = $3, weight_grams = $4, design_hours = $5, quantity = $6, budget = $7,
			updated_at = NOW()
		WHERE org_id = $1 AND id = $2
		RETURNING `+projectColumns,
		orgID, projectID, q.Material, q.WeightGrams, q.DesignHours, q.Quantity, q.Budget))
	if err != nil {
		return nil, fmt.Errorf("failed to save quote: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.notifier.Changed(ctx, orgID, Collection)
	return p, nil
}

// Delete removes a project.
func (s *Service) Delete(ctx context.Context, actorID, orgID, projectID uuid.UUID) error {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleEditor); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE org_id = $1 AND id = $2`, orgID, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}

	s.notifier.Changed(ctx, orgID, Collection)
	return nil
}

// PurgeOrg deletes up to batch projects of orgID for the organization delete.
func (s *Service) PurgeOrg(ctx context.Context, orgID uuid.UUID, batch int) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM projects
		WHERE id IN (SELECT id FROM projects WHERE org_id = $1 LIMIT $2)
	`, orgID, batch)
	if err != nil {
		return 0, fmt.Errorf("failed to purge projects: %w", err)
	}
	return tag.RowsAffected(), nil
}
