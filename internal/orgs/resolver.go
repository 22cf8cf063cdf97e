package orgs

import (
	"context"
	"errors"
	"fmt"

	"github.com/aliuyar1234/printshop/internal/auth"
)

// Resolve decides which state an identity is in. Membership, as recorded in
// Members, wins over a pending invite. Any store failure yields ErrResolveUnavailable; only a
// clean miss on both lookups produces StateUnassigned.
func (s *Service) Resolve(ctx context.Context, identity auth.Identity) (*Session, error) {
	org, err := s.store.FindByMember(ctx, identity.ID)
	switch {
	case err == nil:
		member, _ := org.Member(identity.ID)
		return &Session{State: StateActiveMember, Organization: org, Role: member.Role}, nil
	case !errors.Is(err, ErrOrgNotFound):
		return nil, fmt.Errorf("%w: %w", ErrResolveUnavailable, err)
	}

	email := normalizeEmail(identity.Email)
	if email != "" {
		invited, err := s.store.FindByPendingInvite(ctx, email)
		switch {
		case err == nil:
			return &Session{
				State:  StatePendingInvite,
				Invite: &PendingInvite{OrgID: invited.ID, OrgName: invited.Name},
			}, nil
		case !errors.Is(err, ErrOrgNotFound):
			return nil, fmt.Errorf("%w: %w", ErrResolveUnavailable, err)
		}
	}

	return &Session{State: StateUnassigned}, nil
}
