package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aliuyar1234/printshop/internal/apperrors"
	"github.com/aliuyar1234/printshop/internal/audit"
	"github.com/aliuyar1234/printshop/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SessionRevoker releases everything tied to a user's session, such as live
// subscriptions, when the user signs out.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID uuid.UUID)
}

// SessionSettings controls how sessions are issued.
type SessionSettings struct {
	Secret       string
	Days         int
	IsProduction bool
}

type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned by signup and login. Token is usable as a bearer token.
type SessionResponse struct {
	User  Identity `json:"user"`
	Token string   `json:"token"`
}

// HandleCSRF handles GET /api/v1/auth/csrf and issues the double-submit cookie.
func HandleCSRF(isProduction bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := GenerateCSRFToken()
		if err != nil {
			log.Error().Err(err).Msg("Failed to generate CSRF token")
			apperrors.WriteInternalError(w, r, "Failed to issue CSRF token")
			return
		}
		SetCSRFCookie(w, token, isProduction)
		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{"csrf_token": token})
	}
}

// HandleSignup handles POST /api/v1/auth/signup
func HandleSignup(users *Users, auditor *audit.Writer, session SessionSettings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		email := validation.NormalizeEmail(req.Email)
		if err := validation.ValidateEmail(email); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid email address")
			return
		}

		hash, err := HashPassword(req.Password)
		if err != nil {
			if errors.Is(err, ErrPasswordTooShort) {
				apperrors.WriteBadRequest(w, r, err.Error())
				return
			}
			log.Error().Err(err).Msg("Failed to hash password")
			apperrors.WriteInternalError(w, r, "Failed to create account")
			return
		}

		user, err := users.Create(r.Context(), email, strings.TrimSpace(req.DisplayName), hash)
		if err != nil {
			if errors.Is(err, ErrEmailTaken) {
				apperrors.WriteConflict(w, r, "Email address already registered")
				return
			}
			log.Error().Err(err).Msg("Failed to create user")
			apperrors.WriteInternalError(w, r, "Failed to create account")
			return
		}

		if err := auditor.LogUserSignup(r.Context(), user.ID, user.Email); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		writeSession(w, r, user.Identity(), session, http.StatusCreated)
	}
}

// HandleLogin handles POST /api/v1/auth/login
func HandleLogin(users *Users, auditor *audit.Writer, session SessionSettings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		email := validation.NormalizeEmail(req.Email)
		if email == "" || req.Password == "" {
			apperrors.WriteUnauthorized(w, r, "Invalid credentials")
			return
		}

		user, err := users.GetByEmail(r.Context(), email)
		if err != nil && !errors.Is(err, ErrUserNotFound) {
			log.Error().Err(err).Msg("Failed to look up user")
			apperrors.WriteInternalError(w, r, "Login failed")
			return
		}

		if user == nil || user.PasswordHash == nil || VerifyPassword(*user.PasswordHash, req.Password) != nil {
			if err := auditor.LogLoginFailed(r.Context(), email, r.RemoteAddr); err != nil {
				log.Error().Err(err).Msg("Failed to log audit event")
			}
			apperrors.WriteUnauthorized(w, r, "Invalid credentials")
			return
		}

		writeSession(w, r, user.Identity(), session, http.StatusOK)
	}
}

// HandleLogout handles POST /api/v1/auth/logout. Live subscriptions of the
// user are released before the cookie is cleared.
func HandleLogout(revoker SessionRevoker, isProduction bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := GetUserID(r.Context())
		if userID != uuid.Nil {
			revoker.RevokeUser(r.Context(), userID)
			log.Info().Str("user_id", userID.String()).Msg("User logged out")
		}

		ClearSessionCookie(w, isProduction)
		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]bool{"logged_out": true})
	}
}

// HandleMe handles GET /api/v1/auth/me
func HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, _ := GetIdentity(r.Context())
	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{"user": identity})
}

func writeSession(w http.ResponseWriter, r *http.Request, identity Identity, session SessionSettings, status int) {
	token, err := CreateToken(identity, session.Secret, session.Days)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create token")
		apperrors.WriteInternalError(w, r, "Failed to create session")
		return
	}

	SetSessionCookie(w, token, session.Days, session.IsProduction)

	log.Info().
		Str("user_id", identity.ID.String()).
		Str("email", identity.Email).
		Msg("Session issued")

	apperrors.WriteSuccess(w, r, status, SessionResponse{User: identity, Token: token})
}
