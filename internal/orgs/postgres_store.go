package orgs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps organizations in the orgs table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const orgColumns = `
	id, owner_id, name, members,
	member_uids IS NULL, COALESCE(member_uids::text[], '{}'),
	pending_invites, invite_roles, created_at`

func scanOrg(row pgx.Row) (*Organization, error) {
	var (
		org         Organization
		membersRaw  []byte
		rolesRaw    []byte
		mirrorNull  bool
		mirrorTexts []string
	)

	err := row.Scan(
		&org.ID,
		&org.OwnerID,
		&org.Name,
		&membersRaw,
		&mirrorNull,
		&mirrorTexts,
		&org.PendingInvites,
		&rolesRaw,
		&org.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(membersRaw, &org.Members); err != nil {
		return nil, fmt.Errorf("failed to decode members of org %s: %w", org.ID, err)
	}
	if len(rolesRaw) > 0 {
		if err := json.Unmarshal(rolesRaw, &org.InviteRoles); err != nil {
			return nil, fmt.Errorf("failed to decode invite roles of org %s: %w", org.ID, err)
		}
	}

	org.memberIndexMissing = mirrorNull
	org.MemberUIDs = make([]uuid.UUID, 0, len(mirrorTexts))
	for _, s := range mirrorTexts {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse member uid %q: %w", s, err)
		}
		org.MemberUIDs = append(org.MemberUIDs, id)
	}
	if org.PendingInvites == nil {
		org.PendingInvites = []string{}
	}
	return &org, nil
}

func uuidTexts(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func encodeMembership(org *Organization) (members, roles []byte, err error) {
	if org.Members == nil {
		org.Members = []Member{}
	}
	members, err = json.Marshal(org.Members)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode members: %w", err)
	}
	if org.InviteRoles == nil {
		org.InviteRoles = map[string]Role{}
	}
	roles, err = json.Marshal(org.InviteRoles)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode invite roles: %w", err)
	}
	if org.PendingInvites == nil {
		org.PendingInvites = []string{}
	}
	return members, roles, nil
}

func (s *PostgresStore) Create(ctx context.Context, org *Organization) error {
	org.MemberUIDs = org.DeriveMemberUIDs()
	members, roles, err := encodeMembership(org)
	if err != nil {
		return err
	}

	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO orgs (id, owner_id, name, members, member_uids, pending_invites, invite_roles)
		VALUES ($1, $2, $3, $4, $5::uuid[], $6, $7)
		RETURNING created_at
	`, org.ID, org.OwnerID, org.Name, members, uuidTexts(org.MemberUIDs), org.PendingInvites, roles).Scan(&org.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Organization, error) {
	org, err := scanOrg(s.pool.QueryRow(ctx, `SELECT `+orgColumns+` FROM orgs WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrOrgNotFound) {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, err
}

func (s *PostgresStore) FindByMember(ctx context.Context, uid uuid.UUID) (*Organization, error) {
	org, err := scanOrg(s.pool.QueryRow(ctx, `
		SELECT `+orgColumns+`
		FROM orgs
		WHERE member_uids @> ARRAY[$1::uuid]
		  AND members @> jsonb_build_array(jsonb_build_object('uid', $1::text))
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`, uid))
	if err != nil && !errors.Is(err, ErrOrgNotFound) {
		return nil, fmt.Errorf("failed to find organization by member: %w", err)
	}
	return org, err
}

func (s *PostgresStore) FindByPendingInvite(ctx context.Context, email string) (*Organization, error) {
	org, err := scanOrg(s.pool.QueryRow(ctx, `
		SELECT `+orgColumns+`
		FROM orgs
		WHERE pending_invites @> ARRAY[$1::text]
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`, email))
	if err != nil && !errors.Is(err, ErrOrgNotFound) {
		return nil, fmt.Errorf("failed to find organization by invite: %w", err)
	}
	return org, err
}

func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*Organization, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	org, err := scanOrg(tx.QueryRow(ctx, `SELECT `+orgColumns+` FROM orgs WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to lock organization: %w", err)
	}

	ownerID, createdAt := org.OwnerID, org.CreatedAt
	if err := fn(org); err != nil {
		return nil, err
	}
	org.ID, org.OwnerID, org.CreatedAt = id, ownerID, createdAt
	org.MemberUIDs = org.DeriveMemberUIDs()
	org.memberIndexMissing = false

	members, roles, err := encodeMembership(org)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orgs
		SET name = $2,
		    members = $3,
		    member_uids = $4::uuid[],
		    pending_invites = $5,
		    invite_roles = $6,
		    updated_at = NOW()
		WHERE id = $1
	`, id, org.Name, members, uuidTexts(org.MemberUIDs), org.PendingInvites, roles); err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return org, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM orgs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrgNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Organization, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+orgColumns+` FROM orgs ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var out []*Organization
	for rows.Next() {
		org, err := scanOrg(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		out = append(out, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organization rows: %w", err)
	}
	return out, nil
}
