package pricing

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aliuyar1234/printshop/internal/apperrors"
	"github.com/aliuyar1234/printshop/internal/auth"
	"github.com/aliuyar1234/printshop/internal/orgs"
	"github.com/aliuyar1234/printshop/internal/projects"
)

func writeError(w http.ResponseWriter, r *http.Request, err error, action string) {
	if errors.Is(err, ErrMaterialNotInInventory) {
		apperrors.WriteUnprocessable(w, r, err.Error())
		return
	}
	projects.WriteError(w, r, err, action)
}

// HandleQuote handles POST /api/v1/orgs/{org_id}/pricing/quote
func HandleQuote(service *Service) http.HandlerFunc {
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

		quote, err := service.Quote(r.Context(), auth.GetUserID(r.Context()), orgID, req)
		if err != nil {
			writeError(w, r, err, "calculate quote")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"quote": quote,
		})
	}
}

// HandleSaveProjectQuote handles POST /api/v1/orgs/{org_id}/projects/{id}/quote
func HandleSaveProjectQuote(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgs.URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}
		projectID, ok := orgs.URLUUID(r, "id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid project ID")
			return
		}

		var req Input
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		project, quote, err := service.SaveProjectQuote(r.Context(), auth.GetUserID(r.Context()), orgID, projectID, req)
		if err != nil {
			writeError(w, r, err, "save quote")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"project": project,
			"quote":   quote,
		})
	}
}
