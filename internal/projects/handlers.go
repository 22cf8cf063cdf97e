package projects

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aliuyar1234/printshop/internal/apperrors"
	"github.com/aliuyar1234/printshop/internal/auth"
	"github.com/aliuyar1234/printshop/internal/orgs"
	"github.com/aliuyar1234/printshop/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func writeError(w http.ResponseWriter, r *http.Request, err error, action string) {
	if orgs.WriteAccessError(w, r, err) {
		return
	}
	switch {
	case errors.Is(err, validation.ErrInvalid):
		apperrors.WriteBadRequest(w, r, err.Error())
	case errors.Is(err, ErrProjectNotFound):
		apperrors.WriteNotFound(w, r, "Project not found")
	case errors.Is(err, ErrProjectCompleted):
		apperrors.WriteConflict(w, r, "Completed projects cannot be re-quoted")
	default:
		log.Error().Err(err).Msg("Failed to " + action)
		apperrors.WriteInternalError(w, r, "Failed to "+action)
	}
}

// WriteError maps project errors for handlers outside this package.
func WriteError(w http.ResponseWriter, r *http.Request, err error, action string) {
	writeError(w, r, err, action)
}

func pathIDs(w http.ResponseWriter, r *http.Request) (orgID, projectID uuid.UUID, ok bool) {
	orgID, ok = orgs.URLUUID(r, "org_id")
	if !ok {
		apperrors.WriteBadRequest(w, r, "Invalid organization ID")
		return
	}
	projectID, ok = orgs.URLUUID(r, "id")
	if !ok {
		apperrors.WriteBadRequest(w, r, "Invalid project ID")
	}
	return
}

// HandleList handles GET /api/v1/orgs/{org_id}/projects
func HandleList(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgs.URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		projects, err := service.List(r.Context(), auth.GetUserID(r.Context()), orgID)
		if err != nil {
			writeError(w, r, err, "list projects")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"projects": projects,
		})
	}
}

// HandleGet handles GET /api/v1/orgs/{org_id}/projects/{id}
func HandleGet(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, projectID, ok := pathIDs(w, r)
		if !ok {
			return
		}

		project, err := service.Get(r.Context(), auth.GetUserID(r.Context()), orgID, projectID)
		if err != nil {
			writeError(w, r, err, "get project")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"project": project,
		})
	}
}

// HandleCreate handles POST /api/v1/orgs/{org_id}/projects
func HandleCreate(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgs.URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		var req Input
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		project, err := service.Create(r.Context(), auth.GetUserID(r.Context()), orgID, req)
		if err != nil {
			writeError(w, r, err, "create project")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"project": project,
		})
	}
}

// HandleUpdate handles PUT /api/v1/orgs/{org_id}/projects/{id}
func HandleUpdate(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, projectID, ok := pathIDs(w, r)
		if !ok {
			return
		}

		var req Input
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		project, err := service.Update(r.Context(), auth.GetUserID(r.Context()), orgID, projectID, req)
		if err != nil {
			writeError(w, r, err, "update project")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"project": project,
		})
	}
}

// HandleSetStatus handles PUT /api/v1/orgs/{org_id}/projects/{id}/status
func HandleSetStatus(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, projectID, ok := pathIDs(w, r)
		if !ok {
			return
		}

		var req StatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		project, err := service.SetStatus(r.Context(), auth.GetUserID(r.Context()), orgID, projectID, req.Status)
		if err != nil {
			writeError(w, r, err, "update project status")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"project": project,
		})
	}
}

// HandleDelete handles DELETE /api/v1/orgs/{org_id}/projects/{id}
func HandleDelete(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, projectID, ok := pathIDs(w, r)
		if !ok {
			return
		}

		if err := service.Delete(r.Context(), auth.GetUserID(r.Context()), orgID, projectID); err != nil {
			writeError(w, r, err, "delete project")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"deleted": true,
		})
	}
}
