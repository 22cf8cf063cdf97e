package orgs

import (
	"encoding/json"
	"net/http"

	"github.com/aliuyar1234/printshop/internal/apperrors"
	"github.com/aliuyar1234/printshop/internal/auth"
)

type MemberRoleUpdateRequest struct {
	Role Role `json:"role"`
}

// HandleUpdateMemberRole handles PUT /api/v1/orgs/{org_id}/members/{user_id}
func HandleUpdateMemberRole(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}
		targetID, ok := URLUUID(r, "user_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid user ID")
			return
		}

		var req MemberRoleUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		previous, err := service.ChangeRole(r.Context(), auth.GetUserID(r.Context()), orgID, targetID, req.Role)
		if err != nil {
			writeServiceError(w, r, err, "update member role")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"updated":       true,
			"previous_role": previous,
			"role":          req.Role,
		})
	}
}

// HandleRemoveMember handles DELETE /api/v1/orgs/{org_id}/members/{user_id}
func HandleRemoveMember(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}
		targetID, ok := URLUUID(r, "user_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid user ID")
			return
		}

		removed, err := service.RemoveMember(r.Context(), auth.GetUserID(r.Context()), orgID, targetID)
		if err != nil {
			writeServiceError(w, r, err, "remove member")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"removed": true,
			"member":  removed,
		})
	}
}
