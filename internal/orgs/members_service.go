package orgs

import (
	"context"
	"errors"
	"slices"

	"github.com/aliuyar1234/printshop/internal/audit"
	"github.com/google/uuid"
)

// checkMemberMutation applies the gates shared by role changes and removals.
// It returns the index of the target entry in org.Members.
func (s *Service) checkMemberMutation(org *Organization, actorID, targetID uuid.UUID) (int, error) {
	if _, err := authorizeMember(org, actorID, RoleOwner, s.logger); err != nil {
		return -1, err
	}
	if actorID == targetID {
		return -1, ErrCannotModifySelf
	}
	i := slices.IndexFunc(org.Members, func(m Member) bool { return m.UID == targetID })
	if i < 0 {
		return -1, ErrMemberNotFound
	}
	if org.Members[i].Role == RoleOwner || targetID == org.OwnerID {
		return -1, ErrCannotModifyOwner
	}
	return i, nil
}

// ChangeRole replaces the target member's role. Only the owner may do this.
func (s *Service) ChangeRole(ctx context.Context, actorID, orgID, targetID uuid.UUID, role Role) (previous Role, err error) {
	if !role.Assignable() {
		return "", ErrInvalidOrgRole
	}

	_, err = s.store.Update(ctx, orgID, func(org *Organization) error {
		i, err := s.checkMemberMutation(org, actorID, targetID)
		if err != nil {
			return err
		}
		previous = org.Members[i].Role
		org.Members[i].Role = role
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return "", ErrNotMember
		}
		return "", err
	}

	s.changed(ctx, orgID, actorID, audit.EventOrgMemberRoleUpdated, map[string]interface{}{
		"target_user_id": targetID.String(),
		"previous_role":  string(previous),
		"new_role":       string(role),
	})
	return previous, nil
}

// RemoveMember drops the target from the organization and closes the target's
// live subscriptions for it.
func (s *Service) RemoveMember(ctx context.Context, actorID, orgID, targetID uuid.UUID) (removed Member, err error) {
	_, err = s.store.Update(ctx, orgID, func(org *Organization) error {
		i, err := s.checkMemberMutation(org, actorID, targetID)
		if err != nil {
			return err
		}
		removed = org.Members[i]
		org.Members = slices.Delete(org.Members, i, i+1)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return Member{}, ErrNotMember
		}
		return Member{}, err
	}

	s.notifier.RevokeMember(ctx, orgID, targetID)
	s.changed(ctx, orgID, actorID, audit.EventOrgMemberRemoved, map[string]interface{}{
		"target_user_id": targetID.String(),
		"email":          removed.Email,
		"role":           string(removed.Role),
	})
	return removed, nil
}
