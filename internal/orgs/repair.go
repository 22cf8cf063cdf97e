package orgs

import (
	"context"
	"fmt"

	"github.com/aliuyar1234/printshop/internal/audit"
	"github.com/aliuyar1234/printshop/internal/auth"
)

// RepairMemberIndex rewrites the member_uids mirror of every organization
// whose mirror is missing or differs from its members. Running it again
// finds nothing to do.
func (s *Service) RepairMemberIndex(ctx context.Context) (int, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list organizations: %w", err)
	}

	repaired := 0
	for _, org := range all {
		if org.MemberIndexInSync() {
			continue
		}
		// The store derives the mirror on every update.
		if _, err := s.store.Update(ctx, org.ID, func(*Organization) error { return nil }); err != nil {
			return repaired, fmt.Errorf("failed to repair organization %s: %w", org.ID, err)
		}
		repaired++

		s.logger.Info().
			Str("org_id", org.ID.String()).
			Int("members", len(org.Members)).
			Msg("Repaired member index")
		if err := s.auditor.Log(ctx, audit.LogParams{
			OrgID:  &org.ID,
			Action: audit.EventOrgMemberIndexRepaired,
		}); err != nil {
			s.logger.Error().Err(err).Msg("Failed to log audit event")
		}
	}
	return repaired, nil
}

// ProvisionOrphans gives every unassigned identity its own organization.
// Identities that are members or hold a pending invite are left alone.
func (s *Service) ProvisionOrphans(ctx context.Context, identities []auth.Identity) (int, error) {
	provisioned := 0
	for _, identity := range identities {
		session, err := s.Resolve(ctx, identity)
		if err != nil {
			return provisioned, err
		}
		if session.State != StateUnassigned {
			continue
		}
		if _, err := s.Provision(ctx, identity); err != nil {
			return provisioned, fmt.Errorf("failed to provision %s: %w", identity.Email, err)
		}
		provisioned++
	}
	return provisioned, nil
}
