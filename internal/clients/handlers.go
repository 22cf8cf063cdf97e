package clients

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
	case errors.Is(err, ErrClientNotFound):
		apperrors.WriteNotFound(w, r, "Client not found")
	default:
		log.Error().Err(err).Msg("Failed to " + action)
		apperrors.WriteInternalError(w, r, "Failed to "+action)
	}
}

// HandleList handles GET /api/v1/orgs/{org_id}/clients
func HandleList(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgs.URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		clients, err := service.List(r.Context(), auth.GetUserID(r.Context()), orgID)
		if err != nil {
			writeError(w, r, err, "list clients")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"clients": clients,
		})
	}
}

// HandleGet handles GET /api/v1/orgs/{org_id}/clients/{id}
func HandleGet(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgs.URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}
		clientID, ok := orgs.URLUUID(r, "id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid client ID")
			return
		}

		client, err := service.Get(r.Context(), auth.GetUserID(r.Context()), orgID, clientID)
		if err != nil {
			writeError(w, r, err, "get client")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"client": client,
		})
	}
}

// HandleCreate handles POST /api/v1/orgs/{org_id}/clients
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

		client, err := service.Create(r.Context(), auth.GetUserID(r.Context()), orgID, req)
		if err != nil {
			writeError(w, r, err, "create client")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"client": client,
		})
	}
}

// HandleUpdate handles PUT /api/v1/orgs/{org_id}/clients/{id}
func HandleUpdate(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgs.URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}
		clientID, ok := orgs.URLUUID(r, "id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid client ID")
			return
		}

		var req Input
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		client, err := service.Update(r.Context(), auth.GetUserID(r.Context()), orgID, clientID, req)
		if err != nil {
			writeError(w, r, err, "update client")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"client": client,
		})
	}
}

// HandleDelete handles DELETE /api/v1/orgs/{org_id}/clients/{id}
func HandleDelete(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgs.URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}
		clientID, ok := orgs.URLUUID(r, "id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid client ID")
			return
		}

		if err := service.Delete(r.Context(), auth.GetUserID(r.Context()), orgID, clientID); err != nil {
			writeError(w, r, err, "delete client")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"deleted": true,
		})
	}
}
