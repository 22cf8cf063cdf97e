package orgs

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aliuyar1234/printshop/internal/apperrors"
	"github.com/aliuyar1234/printshop/internal/audit"
	"github.com/aliuyar1234/printshop/internal/auth"
	"github.com/google/uuid"
)

// HandleSession handles GET /api/v1/session
func HandleSession(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := auth.GetIdentity(r.Context())

		session, err := service.Resolve(r.Context(), identity)
		if err != nil {
			writeServiceError(w, r, err, "resolve session")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"user":    identity,
			"session": session,
		})
	}
}

// HandleProvision handles POST /api/v1/orgs/provision
func HandleProvision(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := auth.GetIdentity(r.Context())

		org, err := service.Provision(r.Context(), identity)
		if err != nil {
			writeServiceError(w, r, err, "create organization")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"org": org,
		})
	}
}

// HandleGet handles GET /api/v1/orgs/{org_id}
func HandleGet(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		org, role, err := service.GetForMember(r.Context(), auth.GetUserID(r.Context()), orgID)
		if err != nil {
			writeServiceError(w, r, err, "get organization")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"org":  org,
			"role": role,
		})
	}
}

type DeleteRequest struct {
	ConfirmName string `json:"confirm_name"`
}

// HandleDelete handles DELETE /api/v1/orgs/{org_id}
func HandleDelete(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		var req DeleteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		if err := service.DeleteOrganization(r.Context(), auth.GetUserID(r.Context()), orgID, req.ConfirmName); err != nil {
			writeServiceError(w, r, err, "delete organization")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"deleted": true,
		})
	}
}

// auditQuery reads ?limit, ?action and the ?before + ?before_id cursor.
func auditQuery(r *http.Request) (audit.Query, error) {
	params := r.URL.Query()
	q := audit.Query{ActionPrefix: strings.TrimSpace(params.Get("action"))}

	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return q, errors.New("limit must be a positive integer")
		}
		q.Limit = limit
	}

	rawBefore, rawID := params.Get("before"), params.Get("before_id")
	if rawBefore == "" && rawID == "" {
		return q, nil
	}
	before, err := time.Parse(time.RFC3339Nano, rawBefore)
	if err != nil {
		return q, errors.New("before must be an RFC 3339 timestamp")
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return q, errors.New("before_id must be a UUID")
	}
	q.After = &audit.Cursor{Before: before, ID: id}
	return q, nil
}

// HandleListAudit handles GET /api/v1/orgs/{org_id}/audit
//
// Admins and owners only. Pages are newest first; pass the previous page's
// next.before and next.id as ?before and ?before_id to continue.
func HandleListAudit(service *Service, reader *audit.Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orgID, ok := URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		if _, err := service.Authorize(ctx, auth.GetUserID(ctx), orgID, RoleAdmin); err != nil {
			writeServiceError(w, r, err, "check permissions")
			return
		}

		query, err := auditQuery(r)
		if err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		page, err := reader.ListByOrg(ctx, orgID, query)
		if err != nil {
			writeServiceError(w, r, err, "list audit log")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, page)
	}
}
