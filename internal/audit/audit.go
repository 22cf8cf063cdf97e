package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const (
	EventUserSignup             = "user.signup"
	EventLoginFailed            = "auth.login_failed"
	EventOrgProvisioned         = "org.provisioned"
	EventOrgInviteCreated       = "org.invite_created"
	EventOrgInviteRevoked       = "org.invite_revoked"
	EventOrgInviteAccepted      = "org.invite_accepted"
	EventOrgInviteDeclined      = "org.invite_declined"
	EventOrgMemberRoleUpdated   = "org.member_role_updated"
	EventOrgMemberRemoved       = "org.member_removed"
	EventOrgDeleted             = "org.deleted"
	EventOrgMemberIndexRepaired = "org.member_index_repaired"
)

// LogParams describes one audit entry.
type LogParams struct {
	OrgID       *uuid.UUID
	ActorUserID *uuid.UUID
	Action      string
	Meta        map[string]interface{}
}

// Writer appends entries to audit_log.
type Writer struct {
	pool *pgxpool.Pool
}

func NewWriter(pool *pgxpool.Pool) *Writer {
	return &Writer{pool: pool}
}

func (w *Writer) Log(ctx context.Context, params LogParams) error {
	metaJSON := []byte("{}")
	if params.Meta != nil {
		b, err := json.Marshal(params.Meta)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal audit meta")
			return err
		}
		metaJSON = b
	}

	_, err := w.pool.Exec(ctx, `
		INSERT INTO audit_log (org_id, actor_user_id, action, meta)
		VALUES ($1, $2, $3, $4)
	`, toNullUUID(params.OrgID), toNullUUID(params.ActorUserID), params.Action, metaJSON)
	if err != nil {
		log.Error().Err(err).Str("action", params.Action).Msg("Failed to write audit log")
		return err
	}

	log.Debug().
		Str("action", params.Action).
		Interface("org_id", params.OrgID).
		Interface("actor_user_id", params.ActorUserID).
		Msg("Audit event logged")

	return nil
}

func toNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func (w *Writer) LogUserSignup(ctx context.Context, userID uuid.UUID, email string) error {
	return w.Log(ctx, LogParams{
		ActorUserID: &userID,
		Action:      EventUserSignup,
		Meta:        map[string]interface{}{"email": email},
	})
}

func (w *Writer) LogLoginFailed(ctx context.Context, email, ip string) error {
	return w.Log(ctx, LogParams{
		Action: EventLoginFailed,
		Meta: map[string]interface{}{
			"email": email,
			"ip":    ip,
		},
	})
}
