package orgs

import (
	"context"
	"errors"
	"fmt"

	"github.com/aliuyar1234/printshop/internal/audit"
	"github.com/google/uuid"
)

// DeleteOrganization removes an organization and every record it owns. The
// owner must repeat the organization name exactly.
//
// Collections are purged stage by stage in batches. The sequence is not
// atomic: when a stage fails the error wraps ErrPartialDelete, the
// organization record itself is kept and the call can be repeated.
func (s *Service) DeleteOrganization(ctx context.Context, actorID, orgID uuid.UUID, confirmName string) error {
	org, err := s.store.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return ErrNotMember
		}
		return fmt.Errorf("failed to load organization: %w", err)
	}
	if _, err := authorizeMember(org, actorID, RoleOwner, s.logger); err != nil {
		return err
	}
	if confirmName != org.Name {
		return ErrConfirmationMismatch
	}

	logger := s.logger.With().Str("org_id", orgID.String()).Logger()

	for _, stage := range s.purgers {
		var total int64
		for {
			n, err := stage.Purger.PurgeOrg(ctx, orgID, s.purgeBatch)
			if err != nil {
				logger.Error().Err(err).
					Str("stage", stage.Name).
					Int64("deleted", total).
					Msg("Organization delete stopped")
				return fmt.Errorf("%w: stage %s: %w", ErrPartialDelete, stage.Name, err)
			}
			total += n
			if n < int64(s.purgeBatch) {
				break
			}
		}
		logger.Debug().Str("stage", stage.Name).Int64("deleted", total).Msg("Purged collection")
	}

	if err := s.store.Delete(ctx, orgID); err != nil && !errors.Is(err, ErrOrgNotFound) {
		return fmt.Errorf("%w: stage organization: %w", ErrPartialDelete, err)
	}

	s.notifier.RevokeOrg(ctx, orgID)
	s.recorder.RecordMembershipEvent(audit.EventOrgDeleted)
	s.audit(ctx, orgID, actorID, audit.EventOrgDeleted, map[string]interface{}{"name": org.Name})

	logger.Info().Msg("Organization deleted")
	return nil
}
