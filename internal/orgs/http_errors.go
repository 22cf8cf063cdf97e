package orgs

import (
	"errors"
	"net/http"

	"github.com/aliuyar1234/printshop/internal/apperrors"
	"github.com/aliuyar1234/printshop/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WriteAccessError writes the response for authorization failures and reports
// whether err was one. Non-members get 404 so organization IDs cannot be enumerated.
func WriteAccessError(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case errors.Is(err, ErrNotMember):
		apperrors.WriteNotFound(w, r, "Organization not found")
	case errors.Is(err, ErrInsufficientPermissions):
		apperrors.WriteForbidden(w, r, "Insufficient permissions")
	default:
		return false
	}
	return true
}

// writeServiceError maps organization errors onto the error envelope. action
// names the failed operation in logs and in the 500 message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	if WriteAccessError(w, r, err) {
		return
	}

	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		apperrors.WriteBadRequest(w, r, verr.Error())
	case errors.Is(err, validation.ErrInvalid):
		apperrors.WriteBadRequest(w, r, err.Error())
	case errors.Is(err, ErrInvalidOrgRole):
		apperrors.WriteBadRequest(w, r, "Invalid role")
	case errors.Is(err, ErrConfirmationMismatch):
		apperrors.WriteBadRequest(w, r, "Confirmation does not match the organization name")
	case errors.Is(err, ErrCannotModifySelf):
		apperrors.WriteForbidden(w, r, "You cannot change your own membership")
	case errors.Is(err, ErrCannotModifyOwner):
		apperrors.WriteForbidden(w, r, "The owner's membership cannot be changed")
	case errors.Is(err, ErrMemberNotFound):
		apperrors.WriteNotFound(w, r, "Member not found")
	case errors.Is(err, ErrInviteNotFound):
		apperrors.WriteNotFound(w, r, "Invite not found")
	case errors.Is(err, ErrProvisionAfterDecline):
		log.Error().Err(err).Msg("Provisioning after decline failed")
		apperrors.WriteServiceUnavailable(w, r, "Invite declined, but creating your organization failed. Please retry.")
	case errors.Is(err, ErrAlreadyMember):
		apperrors.WriteConflict(w, r, "Already a member of an organization")
	case errors.Is(err, ErrAlreadyInvited):
		apperrors.WriteConflict(w, r, "This email already has a pending invite")
	case errors.Is(err, ErrInvitedElsewhere):
		apperrors.WriteConflict(w, r, "This email has a pending invite to another organization")
	case errors.Is(err, ErrPendingInviteExists):
		apperrors.WriteConflict(w, r, "Accept or decline your pending invite first")
	case errors.Is(err, ErrResolveUnavailable):
		log.Error().Err(err).Msg("Session resolution unavailable")
		apperrors.WriteServiceUnavailable(w, r, "Organization lookup is temporarily unavailable")
	case errors.Is(err, ErrPartialDelete):
		log.Error().Err(err).Msg("Organization partially deleted")
		apperrors.WriteInternalError(w, r, "Organization delete did not finish. Please retry.")
	default:
		log.Error().Err(err).Msg("Failed to " + action)
		apperrors.WriteInternalError(w, r, "Failed to "+action)
	}
}

// URLUUID parses the named chi URL parameter.
func URLUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}
