package orgs

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/aliuyar1234/printshop/internal/apperrors"
	"github.com/aliuyar1234/printshop/internal/auth"
	"github.com/go-chi/chi/v5"
)

type InviteCreateRequest struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// HandleCreateInvite handles POST /api/v1/orgs/{org_id}/invites
func HandleCreateInvite(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, _ := auth.GetIdentity(ctx)

		orgID, ok := URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		var req InviteCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		invite, err := service.CreateInvite(ctx, identity, orgID, req.Email, req.Role)
		if err != nil {
			writeServiceError(w, r, err, "create invite")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"invite": invite,
		})
	}
}

// HandleListInvites handles GET /api/v1/orgs/{org_id}/invites
func HandleListInvites(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		invites, err := service.ListInvites(r.Context(), auth.GetUserID(r.Context()), orgID)
		if err != nil {
			writeServiceError(w, r, err, "list invites")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"invites": invites,
		})
	}
}

// HandleRevokeInvite handles DELETE /api/v1/orgs/{org_id}/invites/{email}
func HandleRevokeInvite(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		email, err := url.PathUnescape(chi.URLParam(r, "email"))
		if err != nil || email == "" {
			apperrors.WriteBadRequest(w, r, "Invalid email")
			return
		}

		if err := service.RevokeInvite(r.Context(), auth.GetUserID(r.Context()), orgID, email); err != nil {
			writeServiceError(w, r, err, "revoke invite")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"revoked": true,
		})
	}
}

// HandleAcceptInvite handles POST /api/v1/orgs/{org_id}/invites/accept
func HandleAcceptInvite(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := auth.GetIdentity(r.Context())

		orgID, ok := URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		org, err := service.AcceptInvite(r.Context(), identity, orgID)
		if err != nil {
			writeServiceError(w, r, err, "accept invite")
			return
		}

		member, _ := org.Member(identity.ID)
		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"org":  org,
			"role": member.Role,
		})
	}
}

// HandleDeclineInvite handles POST /api/v1/orgs/{org_id}/invites/decline
func HandleDeclineInvite(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := auth.GetIdentity(r.Context())

		orgID, ok := URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		org, err := service.DeclineInvite(r.Context(), identity, orgID)
		if err != nil {
			writeServiceError(w, r, err, "decline invite")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"org": org,
		})
	}
}
