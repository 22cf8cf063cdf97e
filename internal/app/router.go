package app

import (
	"context"
	"net/http"

	"github.com/aliuyar1234/printshop/internal/apperrors"
	"github.com/aliuyar1234/printshop/internal/auth"
	"github.com/aliuyar1234/printshop/internal/clients"
	"github.com/aliuyar1234/printshop/internal/config"
	"github.com/aliuyar1234/printshop/internal/dashboard"
	"github.com/aliuyar1234/printshop/internal/expenses"
	"github.com/aliuyar1234/printshop/internal/materials"
	"github.com/aliuyar1234/printshop/internal/metrics"
	"github.com/aliuyar1234/printshop/internal/orgs"
	"github.com/aliuyar1234/printshop/internal/pricing"
	"github.com/aliuyar1234/printshop/internal/projects"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Pinger reports database reachability for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps carries everything the router mounts. OIDC and Metrics may be nil.
type RouterDeps struct {
	Config   *config.Config
	DB       Pinger
	Services *Services
	Metrics  *metrics.Metrics
	Live     http.Handler
	OIDC     *auth.OIDC
}

// crud is the handler set of one resource collection.
type crud struct {
	list, get, create, update, remove http.HandlerFunc
}

func mountCRUD(r chi.Router, path string, h crud) {
	r.Get(path, h.list)
	r.Post(path, h.create)
	r.Get(path+"/{id}", h.get)
	r.Put(path+"/{id}", h.update)
	r.Delete(path+"/{id}", h.remove)
}

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	cfg := deps.Config
	svc := deps.Services
	isProduction := !cfg.IsDev()
	session := auth.SessionSettings{
		Secret:       cfg.JWTSecret,
		Days:         cfg.SessionDays,
		IsProduction: isProduction,
	}

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(apperrors.RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(deps.Metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.BaseURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", auth.CSRFHeaderName, apperrors.RequestIDHeader},
		ExposedHeaders:   []string{apperrors.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(auth.AuthMiddleware(cfg.JWTSecret, isProduction))

	// Health check routes (no authentication required)
	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(deps.DB))
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	// API routes - Authentication
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(NoCacheMiddleware)

		if deps.OIDC != nil {
			r.Get("/oidc/login", auth.HandleOIDCLogin(deps.OIDC, isProduction))
			r.Get("/oidc/callback", auth.HandleOIDCCallback(deps.OIDC, svc.Users, session, cfg.BaseURL+"/"))
		}

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Use(CSRFMiddleware)

			r.Get("/csrf", auth.HandleCSRF(isProduction))
			r.Post("/signup", auth.HandleSignup(svc.Users, svc.Auditor, session))
			r.With(LoginRateLimitMiddleware(cfg.LoginRateLimit)).Post("/login", auth.HandleLogin(svc.Users, svc.Auditor, session))
			r.With(auth.RequireAuth).Post("/logout", auth.HandleLogout(svc.Notifier, isProduction))
			r.With(auth.RequireAuth).Get("/me", auth.HandleMe)
		})
	})

	r.With(auth.RequireAuth, ContentTypeJSON).Get("/api/v1/session", orgs.HandleSession(svc.Orgs))

	// API routes - Organizations and everything they own
	r.Route("/api/v1/orgs", func(r chi.Router) {
		r.Use(auth.RequireAuth)

		// Live subscriptions upgrade the connection and write their own frames.
		r.Get("/{org_id}/live/{collection}", deps.Live.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Use(CSRFMiddleware)

			r.Post("/provision", orgs.HandleProvision(svc.Orgs))

			r.Route("/{org_id}", func(r chi.Router) {
				r.Get("/", orgs.HandleGet(svc.Orgs))
				r.Delete("/", orgs.HandleDelete(svc.Orgs))
				r.Get("/audit", orgs.HandleListAudit(svc.Orgs, svc.AuditReader))
				r.Get("/dashboard", dashboard.HandleGet(svc.Dashboard))

				// Invitations
				r.Get("/invites", orgs.HandleListInvites(svc.Orgs))
				r.Post("/invites", orgs.HandleCreateInvite(svc.Orgs))
				r.Post("/invites/accept", orgs.HandleAcceptInvite(svc.Orgs))
				r.Post("/invites/decline", orgs.HandleDeclineInvite(svc.Orgs))
				r.Delete("/invites/{email}", orgs.HandleRevokeInvite(svc.Orgs))

				// Members
				r.Put("/members/{user_id}", orgs.HandleUpdateMemberRole(svc.Orgs))
				r.Delete("/members/{user_id}", orgs.HandleRemoveMember(svc.Orgs))

				// Resources
				mountCRUD(r, "/clients", crud{
					list:   clients.HandleList(svc.Clients),
					get:    clients.HandleGet(svc.Clients),
					create: clients.HandleCreate(svc.Clients),
					update: clients.HandleUpdate(svc.Clients),
					remove: clients.HandleDelete(svc.Clients),
				})
				mountCRUD(r, "/projects", crud{
					list:   projects.HandleList(svc.Projects),
					get:    projects.HandleGet(svc.Projects),
					create: projects.HandleCreate(svc.Projects),
					update: projects.HandleUpdate(svc.Projects),
					remove: projects.HandleDelete(svc.Projects),
				})
				r.Put("/projects/{id}/status", projects.HandleSetStatus(svc.Projects))
				r.Post("/projects/{id}/quote", pricing.HandleSaveProjectQuote(svc.Pricing))
				mountCRUD(r, "/materials", crud{
					list:   materials.HandleList(svc.Materials),
					get:    materials.HandleGet(svc.Materials),
					create: materials.HandleCreate(svc.Materials),
					update: materials.HandleUpdate(svc.Materials),
					remove: materials.HandleDelete(svc.Materials),
				})
				mountCRUD(r, "/expenses", crud{
					list:   expenses.HandleList(svc.Expenses),
					get:    expenses.HandleGet(svc.Expenses),
					create: expenses.HandleCreate(svc.Expenses),
					update: expenses.HandleUpdate(svc.Expenses),
					remove: expenses.HandleDelete(svc.Expenses),
				})

				// Pricing
				r.Post("/pricing/quote", pricing.HandleQuote(svc.Pricing))
			})
		})
	})

	return r
}

// handleHealthz returns a simple liveness check
// Always returns 200 OK if the service is running
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleReadyz returns a readiness check that includes database connectivity
// Returns 200 OK if service is ready to accept traffic, 503 if not
func handleReadyz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			apperrors.WriteServiceUnavailable(w, r, "Database connection failed")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
			"status": "ready",
			"db":     "ok",
		})
	}
}
