package orgs

import (
	"context"
	"errors"
	"fmt"

	"github.com/aliuyar1234/printshop/internal/audit"
	"github.com/aliuyar1234/printshop/internal/auth"
	"github.com/aliuyar1234/printshop/internal/validation"
	"github.com/google/uuid"
)

// Invite is one pending invitation of an organization.
type Invite struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func invitesOf(org *Organization) []Invite {
	out := make([]Invite, 0, len(org.PendingInvites))
	for _, email := range org.PendingInvites {
		out = append(out, Invite{Email: email, Role: org.InviteRole(email)})
	}
	return out
}

// CreateInvite records a pending invite for email and queues the invitation
// mail. Owners may invite admins, editors and viewers; admins only editors and
// viewers. An empty role means viewer.
//
// This organization's own members and invites are checked first. The check
// against invites held by other organizations is best effort: two
// organizations inviting the same address concurrently can both succeed.
func (s *Service) CreateInvite(ctx context.Context, actor auth.Identity, orgID uuid.UUID, email string, role Role) (*Invite, error) {
	email = normalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if role == "" {
		role = RoleViewer
	}
	if !role.Assignable() {
		return nil, ErrInvalidOrgRole
	}

	current, err := s.store.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	if err := s.canInvite(current, actor.ID, email, role); err != nil {
		return nil, err
	}

	other, err := s.store.FindByPendingInvite(ctx, email)
	switch {
	case err == nil && other.ID != orgID:
		return nil, ErrInvitedElsewhere
	case err != nil && !errors.Is(err, ErrOrgNotFound):
		return nil, fmt.Errorf("failed to check existing invites: %w", err)
	}

	org, err := s.store.Update(ctx, orgID, func(org *Organization) error {
		if err := s.canInvite(org, actor.ID, email, role); err != nil {
			return err
		}
		org.PendingInvites = append(org.PendingInvites, email)
		if org.InviteRoles == nil {
			org.InviteRoles = make(map[string]Role)
		}
		org.InviteRoles[email] = role
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}

	if err := s.mailer.SendInvitation(ctx, Invitation{
		OrgID:        org.ID,
		OrgName:      org.Name,
		Email:        email,
		Role:         role,
		InviterEmail: actor.Email,
	}); err != nil {
		s.logger.Error().Err(err).
			Str("org_id", org.ID.String()).
			Str("email", email).
			Msg("Failed to queue invitation email")
	}

	s.changed(ctx, org.ID, actor.ID, audit.EventOrgInviteCreated, map[string]interface{}{
		"email": email,
		"role":  string(role),
	})

	return &Invite{Email: email, Role: role}, nil
}

// canInvite checks the actor may grant role in org and that email is neither
// a member nor already pending there.
func (s *Service) canInvite(org *Organization, actorID uuid.UUID, email string, role Role) error {
	actorRole, err := authorizeMember(org, actorID, RoleAdmin, s.logger)
	if err != nil {
		return err
	}
	if actorRole == RoleAdmin && role == RoleAdmin {
		return ErrInsufficientPermissions
	}
	if _, ok := org.MemberByEmail(email); ok {
		return ErrAlreadyMember
	}
	if org.HasPendingInvite(email) {
		return ErrAlreadyInvited
	}
	return nil
}

// ListInvites returns the pending invites of an organization.
func (s *Service) ListInvites(ctx context.Context, actorID, orgID uuid.UUID) ([]Invite, error) {
	org, err := s.store.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	if _, err := authorizeMember(org, actorID, RoleAdmin, s.logger); err != nil {
		return nil, err
	}
	return invitesOf(org), nil
}

// RevokeInvite withdraws a pending invite.
func (s *Service) RevokeInvite(ctx context.Context, actorID, orgID uuid.UUID, email string) error {
	email = normalizeEmail(email)
	_, err := s.store.Update(ctx, orgID, func(org *Organization) error {
		if _, err := authorizeMember(org, actorID, RoleAdmin, s.logger); err != nil {
			return err
		}
		if !org.removeInvite(email) {
			return ErrInviteNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return ErrNotMember
		}
		return err
	}

	s.changed(ctx, orgID, actorID, audit.EventOrgInviteRevoked, map[string]interface{}{"email": email})
	return nil
}

// AcceptInvite turns the identity's pending invite into a membership with the
// role chosen by the inviter. Membership and invite removal are written in a
// single update.
func (s *Service) AcceptInvite(ctx context.Context, identity auth.Identity, orgID uuid.UUID) (*Organization, error) {
	email := normalizeEmail(identity.Email)

	current, err := s.store.FindByMember(ctx, identity.ID)
	switch {
	case err == nil && current.ID != orgID:
		return nil, ErrAlreadyMember
	case err != nil && !errors.Is(err, ErrOrgNotFound):
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	var role Role
	org, err := s.store.Update(ctx, orgID, func(org *Organization) error {
		if _, ok := org.Member(identity.ID); ok {
			return ErrAlreadyMember
		}
		if !org.HasPendingInvite(email) {
			return ErrInviteNotFound
		}
		role = org.InviteRole(email)
		org.Members = append(org.Members, Member{UID: identity.ID, Email: email, Role: role})
		org.removeInvite(email)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}

	s.changed(ctx, org.ID, identity.ID, audit.EventOrgInviteAccepted, map[string]interface{}{
		"email": email,
		"role":  string(role),
	})
	return org, nil
}

// DeclineInvite drops the identity's pending invite and provisions a fresh
// organization for it. When provisioning fails the decline stands and the
// error wraps ErrProvisionAfterDecline; calling Provision again completes it.
func (s *Service) DeclineInvite(ctx context.Context, identity auth.Identity, orgID uuid.UUID) (*Organization, error) {
	email := normalizeEmail(identity.Email)

	_, err := s.store.Update(ctx, orgID, func(org *Organization) error {
		if !org.removeInvite(email) {
			return ErrInviteNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}

	s.changed(ctx, orgID, identity.ID, audit.EventOrgInviteDeclined, map[string]interface{}{"email": email})

	org, err := s.Provision(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvisionAfterDecline, err)
	}
	return org, nil
}

// Provision creates an organization owned by an unassigned identity.
func (s *Service) Provision(ctx context.Context, identity auth.Identity) (*Organization, error) {
	email := normalizeEmail(identity.Email)

	_, err := s.store.FindByMember(ctx, identity.ID)
	switch {
	case err == nil:
		return nil, ErrAlreadyMember
	case !errors.Is(err, ErrOrgNotFound):
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	if email != "" {
		_, err = s.store.FindByPendingInvite(ctx, email)
		switch {
		case err == nil:
			return nil, ErrPendingInviteExists
		case !errors.Is(err, ErrOrgNotFound):
			return nil, fmt.Errorf("failed to check pending invites: %w", err)
		}
	}

	org := &Organization{
		OwnerID:        identity.ID,
		Name:           teamName(email),
		Members:        []Member{{UID: identity.ID, Email: email, Role: RoleOwner}},
		PendingInvites: []string{},
		InviteRoles:    map[string]Role{},
	}
	if err := s.store.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to provision organization: %w", err)
	}

	s.recorder.RecordMembershipEvent(audit.EventOrgProvisioned)
	s.audit(ctx, org.ID, identity.ID, audit.EventOrgProvisioned, map[string]interface{}{"name": org.Name})

	s.logger.Info().
		Str("org_id", org.ID.String()).
		Str("user_id", identity.ID.String()).
		Msg("Organization provisioned")

	return org, nil
}

func teamName(email string) string {
	local := validation.EmailLocalPart(email)
	if local == "" {
		return "My Team"
	}
	return local + "'s Team"
}
