package expenses

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
const Collection = "expenses"

// ErrExpenseNotFound is returned when an expense is not found in the organization
var ErrExpenseNotFound = errors.New("expense not found")

type Service struct {
	pool     *pgxpool.Pool
	authz    orgs.Authorizer
	notifier orgs.ChangeNotifier
}

func NewService(pool *pgxpool.Pool, authz orgs.Authorizer, notifier orgs.ChangeNotifier) *Service {
	return &Service{pool: pool, authz: authz, notifier: notifier}
}

const expenseColumns = `id, org_id, description, amount, category, spent_on, created_at, updated_at`

func scanExpense(row pgx.Row) (*Expense, error) {
	var e Expense
	err := row.Scan(
		&e.ID,
		&e.OrgID,
		&e.Description,
		&e.Amount,
		&e.Category,
		&e.SpentOn,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExpenseNotFound
		}
		return nil, err
	}
	return &e, nil
}

// List returns the organization's expenses, newest first.
func (s *Service) List(ctx context.Context, actorID, orgID uuid.UUID) ([]Expense, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleViewer); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses
		WHERE org_id = $1
		ORDER BY created_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expense rows: %w", err)
	}

	return expenses, nil
}

func (s *Service) Get(ctx context.Context, actorID, orgID, expenseID uuid.UUID) (*Expense, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleViewer); err != nil {
		return nil, err
	}

	e, err := scanExpense(s.pool.QueryRow(ctx, `
		SELECT `+expenseColumns+` FROM expenses WHERE org_id = $1 AND id = $2
	`, orgID, expenseID))
	if err != nil && !errors.Is(err, ErrExpenseNotFound) {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, err
}

// Create records an expense. The amount must be positive and the date set.
func (s *Service) Create(ctx context.Context, actorID, orgID uuid.UUID, in Input) (*Expense, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleEditor); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	e, err := scanExpense(s.pool.QueryRow(ctx, `
		INSERT INTO expenses (org_id, description, amount, category, spent_on)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+expenseColumns,
		orgID, in.Description, in.Amount, in.Category, in.spentOn()))
	if err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	s.notifier.Changed(ctx, orgID, Collection)
	return e, nil
}

func (s *Service) Update(ctx context.Context, actorID, orgID, expenseID uuid.UUID, in Input) (*Expense, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleEditor); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	e, err := scanExpense(s.pool.QueryRow(ctx, `
		UPDATE expenses
		SET description = $3, amount = $4, category = $5, spent_on = $6, updated_at = NOW()
		WHERE org_id = $1 AND id = $2
		RETURNING `+expenseColumns,
		orgID, expenseID, in.Description, in.Amount, in.Category, in.spentOn()))
	if err != nil {
		if errors.Is(err, ErrExpenseNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}

	s.notifier.Changed(ctx, orgID, Collection)
	return e, nil
}

func (s *Service) Delete(ctx context.Context, actorID, orgID, expenseID uuid.UUID) error {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleEditor); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM expenses WHERE org_id = $1 AND id = $2`, orgID, expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}

	s.notifier.Changed(ctx, orgID, Collection)
	return nil
}

// PurgeOrg deletes up to batch expenses of orgID.
func (s *Service) PurgeOrg(ctx context.Context, orgID uuid.UUID, batch int) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM expenses
		WHERE id IN (SELECT id FROM expenses WHERE org_id = $1 LIMIT $2)
	`, orgID, batch)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expenses: %w", err)
	}
	return tag.RowsAffected(), nil
}
