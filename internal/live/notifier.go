package live

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Notifier turns domain events into Changes. Publish failures are logged;
// the write that triggered them has already succeeded.
type Notifier struct {
	publisher Publisher
	logger    zerolog.Logger
}

func NewNotifier(publisher Publisher) *Notifier {
	return &Notifier{
		publisher: publisher,
		logger:    log.With().Str("component", "live_notifier").Logger(),
	}
}

func (n *Notifier) publish(ctx context.Context, change Change) {
	if err := n.publisher.Publish(context.WithoutCancel(ctx), change); err != nil {
		n.logger.Error().Err(err).
			Str("kind", string(change.Kind)).
			Str("org_id", change.OrgID.String()).
			Msg("Failed to publish change")
	}
}

// Changed marks collection of orgID as modified.
func (n *Notifier) Changed(ctx context.Context, orgID uuid.UUID, collection string) {
	n.publish(ctx, Change{Kind: KindChanged, OrgID: orgID, Collection: collection})
}

// RevokeUser closes every subscription of userID, on every instance.
func (n *Notifier) RevokeUser(ctx context.Context, userID uuid.UUID) {
	n.publish(ctx, Change{Kind: KindRevokeUser, UserID: userID})
}

func (n *Notifier) RevokeMember(ctx context.Context, orgID, userID uuid.UUID) {
	n.publish(ctx, Change{Kind: KindRevokeMember, OrgID: orgID, UserID: userID})
}

func (n *Notifier) RevokeOrg(ctx context.Context, orgID uuid.UUID) {
	n.publish(ctx, Change{Kind: KindRevokeOrg, OrgID: orgID})
}
