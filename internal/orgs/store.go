package orgs

import (
	"context"

	"github.com/google/uuid"
)

// UpdateFunc mutates an organization inside Store.Update. Returning an error
// aborts the update and leaves the stored record unchanged.
type UpdateFunc func(org *Organization) error

// Store persists organizations.
//
// Update is the only write path for an existing record. It runs fn against the
// locked current state and writes members, the derived member_uids mirror,
// pending invites and invite roles in one statement. No store method writes
// the mirror on its own.
type Store interface {
	Create(ctx context.Context, org *Organization) error
	Get(ctx context.Context, id uuid.UUID) (*Organization, error)
	// FindByMember and FindByPendingInvite return the earliest created match
	// or ErrOrgNotFound. FindByMember only matches records whose Members
	// holds uid; a stale mirror entry alone is not a membership.
	FindByMember(ctx context.Context, uid uuid.UUID) (*Organization, error)
	FindByPendingInvite(ctx context.Context, email string) (*Organization, error)
	Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*Organization, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*Organization, error)
}
