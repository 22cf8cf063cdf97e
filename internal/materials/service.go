package materials

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
const Collection = "materials"

// ErrMaterialNotFound is returned when no material matches in the organization
var ErrMaterialNotFound = errors.New("material not found")

// Service manages the material inventory.
type Service struct {
	pool     *pgxpool.Pool
	authz    orgs.Authorizer
	notifier orgs.ChangeNotifier
}

func NewService(pool *pgxpool.Pool, authz orgs.Authorizer, notifier orgs.ChangeNotifier) *Service {
	return &Service{pool: pool, authz: authz, notifier: notifier}
}

const materialColumns = `id, org_id, name, brand, type, color, price_per_kg, stock_grams,
	reorder_threshold, created_at, updated_at`

func scanMaterial(row pgx.Row) (*Material, error) {
	var m Material
	err := row.Scan(
		&m.ID,
		&m.OrgID,
		&m.Name,
		&m.Brand,
		&m.Type,
		&m.Color,
		&m.PricePerKg,
		&m.StockGrams,
		&m.ReorderThreshold,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMaterialNotFound
		}
		return nil, err
	}
	return &m, nil
}

// List returns the organization's materials, newest first.
func (s *Service) List(ctx context.Context, actorID, orgID uuid.UUID) ([]Material, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleViewer); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+materialColumns+`
		FROM materials
		WHERE org_id = $1
		ORDER BY created_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	defer rows.Close()

	materials := []Material{}
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan material: %w", err)
		}
		materials = append(materials, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating material rows: %w", err)
	}

	return materials, nil
}

// Get returns one material.
func (s *Service) Get(ctx context.Context, actorID, orgID, materialID uuid.UUID) (*Material, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleViewer); err != nil {
		return nil, err
	}

	m, err := scanMaterial(s.pool.QueryRow(ctx, `
		SELECT `+materialColumns+` FROM materials WHERE org_id = $1 AND id = $2
	`, orgID, materialID))
	if err != nil && !errors.Is(err, ErrMaterialNotFound) {
		return nil, fmt.Errorf("failed to get material: %w", err)
	}
	return m, err
}

// FindByType returns the earliest created material of the given type. Prices
// are read here at quote time and never copied onto projects.
func (s *Service) FindByType(ctx context.Context, actorID, orgID uuid.UUID, materialType string) (*Material, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleViewer); err != nil {
		return nil, err
	}

	m, err := scanMaterial(s.pool.QueryRow(ctx, `
		SELECT `+materialColumns+`
		FROM materials
		WHERE org_id = $1 AND type = $2
		ORDER BY created_at, id
		LIMIT 1
	`, orgID, materialType))
	if err != nil && !errors.Is(err, ErrMaterialNotFound) {
		return nil, fmt.Errorf("failed to find material by type: %w", err)
	}
	return m, err
}

// Create adds a material. Editors and above only.
func (s *Service) Create(ctx context.Context, actorID, orgID uuid.UUID, in Input) (*Material, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleEditor); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	m, err := scanMaterial(s.pool.QueryRow(ctx, `
		INSERT INTO materials (org_id, name, brand, type, color, price_per_kg, stock_grams, reorder_threshold)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+materialColumns,
		orgID, in.Name, in.Brand, in.Type, in.Color, in.PricePerKg, in.StockGrams, in.ReorderThreshold))
	if err != nil {
		return nil, fmt.Errorf("failed to create material: %w", err)
	}

	s.notifier.Changed(ctx, orgID, Collection)
	return m, nil
}

// Update replaces the writable fields of a material.
func (s *Service) Update(ctx context.Context, actorID, orgID, materialID uuid.UUID, in Input) (*Material, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleEditor); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	m, err := scanMaterial(s.pool.QueryRow(ctx, `
		UPDATE materials
		SET name = $3, brand = $4, type = $5, color = $6, price_per_kg = $7, stock_grams = $8,
			reorder_threshold = $9, updated_at = NOW()
		WHERE org_id = $1 AND id = $2
		RETURNING `+materialColumns,
		orgID, materialID, in.Name, in.Brand, in.Type, in.Color, in.PricePerKg, in.StockGrams, in.ReorderThreshold))
	if err != nil {
		if errors.Is(err, ErrMaterialNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update material: %w", err)
	}

	s.notifier.Changed(ctx, orgID, Collection)
	return m, nil
}

// Delete removes a material.
func (s *Service) Delete(ctx context.Context, actorID, orgID, materialID uuid.UUID) error {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleEditor); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM materials WHERE org_id = $1 AND id = $2`, orgID, materialID)
	if err != nil {
		return fmt.Errorf("failed to delete material: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMaterialNotFound
	}

	s.notifier.Changed(ctx, orgID, Collection)
	return nil
}

// PurgeOrg deletes up to batch materials of orgID.
func (s *Service) PurgeOrg(ctx context.Context, orgID uuid.UUID, batch int) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM materials
		WHERE id IN (SELECT id FROM materials WHERE org_id = $1 LIMIT $2)
	`, orgID, batch)
	if err != nil {
		return 0, fmt.Errorf("failed to purge materials: %w", err)
	}
	return tag.RowsAffected(), nil
}
