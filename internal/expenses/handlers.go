package expenses

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
	case errors.Is(err, ErrExpenseNotFound):
		apperrors.WriteNotFound(w, r, "Expense not found")
	default:
		log.Error().Err(err).Msg("Failed to " + action)
		apperrors.WriteInternalError(w, r, "Failed to "+action)
	}
}

// HandleList handles GET /api/v1/orgs/{org_id}/expenses
func HandleList(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgs.URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		expenses, err := service.List(r.Context(), auth.GetUserID(r.Context()), orgID)
		if err != nil {
			writeError(w, r, err, "list expenses")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"expenses": expenses,
			"total":    Total(expenses),
		})
	}
}

// HandleGet handles GET /api/v1/orgs/{org_id}/expenses/{id}
func HandleGet(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgs.URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}
		expenseID, ok := orgs.URLUUID(r, "id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid expense ID")
			return
		}

		expense, err := service.Get(r.Context(), auth.GetUserID(r.Context()), orgID, expenseID)
		if err != nil {
			writeError(w, r, err, "get expense")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"expense": expense,
		})
	}
}

// HandleCreate handles POST /api/v1/orgs/{org_id}/expenses
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

		expense, err := service.Create(r.Context(), auth.GetUserID(r.Context()), orgID, req)
		if err != nil {
			writeError(w, r, err, "create expense")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"expense": expense,
		})
	}
}

// HandleUpdate handles PUT /api/v1/orgs/{org_id}/expenses/{id}
func HandleUpdate(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgs.URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}
		expenseID, ok := orgs.URLUUID(r, "id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid expense ID")
			return
		}

		var req Input
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		expense, err := service.Update(r.Context(), auth.GetUserID(r.Context()), orgID, expenseID, req)
		if err != nil {
			writeError(w, r, err, "update expense")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"expense": expense,
		})
	}
}

// HandleDelete handles DELETE /api/v1/orgs/{org_id}/expenses/{id}
func HandleDelete(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgs.URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}
		expenseID, ok := orgs.URLUUID(r, "id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid expense ID")
			return
		}

		if err := service.Delete(r.Context(), auth.GetUserID(r.Context()), orgID, expenseID); err != nil {
			writeError(w, r, err, "delete expense")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"deleted": true,
		})
	}
}
