package materials

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aliuyar1234/printshop/internal/apperrors"
	"github.com/aliuyar1234/printshop/internal/auth"
	"github.com/aliuyar1234/printshop/internal/orgs"
	"github.com/aliuyar1234/printshop/internal/validation"
	"github.com/rs/zerolog/log"
)

func writeError(w http.ResponseWriter, r *http.Request, err error, action string) {
	if orgs.WriteAccessError(w, r, err) {
		return
	}
	switch {
	case errors.Is(err, validation.ErrInvalid):
		apperrors.WriteBadRequest(w, r, err.Error())
	case errors.Is(err, ErrMaterialNotFound):
		apperrors.WriteNotFound(w, r, "Material not found")
	default:
		log.Error().Err(err).Msg("Failed to " + action)
		apperrors.WriteInternalError(w, r, "Failed to "+action)
	}
}

// HandleList handles GET /api/v1/orgs/{org_id}/materials
//
// With ?low_stock=true only materials below their reorder threshold are returned.
func HandleList(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgs.URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		materials, err := service.List(r.Context(), auth.GetUserID(r.Context()), orgID)
		if err != nil {
			writeError(w, r, err, "list materials")
			return
		}
		if r.URL.Query().Get("low_stock") == "true" {
			materials = LowStock(materials)
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"materials": materials,
		})
	}
}

// HandleGet handles GET /api/v1/orgs/{org_id}/materials/{id}
func HandleGet(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgs.URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}
		materialID, ok := orgs.URLUUID(r, "id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid material ID")
			return
		}

		material, err := service.Get(r.Context(), auth.GetUserID(r.Context()), orgID, materialID)
		if err != nil {
			writeError(w, r, err, "get material")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"material": material,
		})
	}
}

// HandleCreate handles POST /api/v1/orgs/{org_id}/materials
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

		material, err := service.Create(r.Context(), auth.GetUserID(r.Context()), orgID, req)
		if err != nil {
			writeError(w, r, err, "create material")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"material": material,
		})
	}
}

// HandleUpdate handles PUT /api/v1/orgs/{org_id}/materials/{id}
func HandleUpdate(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgs.URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}
		materialID, ok := orgs.URLUUID(r, "id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid material ID")
			return
		}

		var req Input
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		material, err := service.Update(r.Context(), auth.GetUserID(r.Context()), orgID, materialID, req)
		if err != nil {
			writeError(w, r, err, "update material")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"material": material,
		})
	}
}

// HandleDelete handles DELETE /api/v1/orgs/{org_id}/materials/{id}
func HandleDelete(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgs.URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}
		materialID, ok := orgs.URLUUID(r, "id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid material ID")
			return
		}

		if err := service.Delete(r.Context(), auth.GetUserID(r.Context()), orgID, materialID); err != nil {
			writeError(w, r, err, "delete material")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"deleted": true,
		})
	}
}
