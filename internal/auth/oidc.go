package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/aliuyar1234/printshop/internal/apperrors"
	"github.com/aliuyar1234/printshop/internal/validation"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const oidcStateCookieName = "ps_oidc_state"

// OIDCConfig holds OpenID Connect provider settings.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OIDC signs users in through an external identity provider.
type OIDC struct {
	oauth2Config oauth2.Config
	verifier     *oidc.IDTokenVerifier
	logger       zerolog.Logger
}

// NewOIDC discovers the provider at cfg.Issuer.
func NewOIDC(ctx context.Context, cfg OIDCConfig) (*OIDC, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("create OIDC provider: %w", err)
	}

	o := &OIDC{
		oauth2Config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		logger:   log.With().Str("component", "oidc").Logger(),
	}

	o.logger.Info().Str("issuer", cfg.Issuer).Msg("OIDC provider initialized")
	return o, nil
}

type idTokenClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
}

func (o *OIDC) exchange(ctx context.Context, code string) (*idTokenClaims, error) {
	token, err := o.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("no id_token in token response")
	}

	idToken, err := o.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify ID token: %w", err)
	}

	var claims idTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("extract claims: %w", err)
	}
	return &claims, nil
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HandleOIDCLogin handles GET /api/v1/auth/oidc/login
func HandleOIDCLogin(o *OIDC, isProduction bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := generateState()
		if err != nil {
			log.Error().Err(err).Msg("Failed to generate OIDC state")
			apperrors.WriteInternalError(w, r, "Failed to start sign-in")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     oidcStateCookieName,
			Value:    state,
			Path:     "/api/v1/auth/oidc",
			MaxAge:   600,
			HttpOnly: true,
			Secure:   isProduction,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, o.oauth2Config.AuthCodeURL(state), http.StatusFound)
	}
}

// HandleOIDCCallback handles GET /api/v1/auth/oidc/callback. The provider's
// email is trusted only when it reports it as verified.
func HandleOIDCCallback(o *OIDC, users *Users, session SessionSettings, redirectTo string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stateCookie, err := r.Cookie(oidcStateCookieName)
		if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
			apperrors.WriteBadRequest(w, r, "Invalid sign-in state")
			return
		}
		http.SetCookie(w, &http.Cookie{Name: oidcStateCookieName, Path: "/api/v1/auth/oidc", MaxAge: -1})

		claims, err := o.exchange(r.Context(), r.URL.Query().Get("code"))
		if err != nil {
			o.logger.Warn().Err(err).Msg("OIDC exchange failed")
			apperrors.WriteUnauthorized(w, r, "Sign-in failed")
			return
		}

		email := validation.NormalizeEmail(claims.Email)
		if validation.ValidateEmail(email) != nil || (claims.EmailVerified != nil && !*claims.EmailVerified) {
			apperrors.WriteForbidden(w, r, "A verified email address is required")
			return
		}

		user, err := users.UpsertOIDC(r.Context(), claims.Subject, email, claims.Name)
		if err != nil {
			log.Error().Err(err).Msg("Failed to upsert OIDC user")
			apperrors.WriteInternalError(w, r, "Sign-in failed")
			return
		}

		token, err := CreateToken(user.Identity(), session.Secret, session.Days)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create token")
			apperrors.WriteInternalError(w, r, "Failed to create session")
			return
		}
		SetSessionCookie(w, token, session.Days, session.IsProduction)

		o.logger.Info().Str("user_id", user.ID.String()).Msg("OIDC sign-in completed")
		http.Redirect(w, r, redirectTo, http.StatusFound)
	}
}
