package dashboard

import (
	"context"
	"net/http"

	"github.com/aliuyar1234/printshop/internal/apperrors"
	"github.com/aliuyar1234/printshop/internal/auth"
	"github.com/aliuyar1234/printshop/internal/clients"
	"github.com/aliuyar1234/printshop/internal/materials"
	"github.com/aliuyar1234/printshop/internal/orgs"
	"github.com/aliuyar1234/printshop/internal/projects"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type ClientLister interface {
	List(ctx context.Context, actorID, orgID uuid.UUID) ([]clients.Client, error)
}

type ProjectLister interface {
	List(ctx context.Context, actorID, orgID uuid.UUID) ([]projects.Project, error)
}

type MaterialLister interface {
	List(ctx context.Context, actorID, orgID uuid.UUID) ([]materials.Material, error)
}

// Service loads the collections behind the dashboard.
type Service struct {
	authz     orgs.Authorizer
	clients   ClientLister
	projects  ProjectLister
	materials MaterialLister
}

func NewService(authz orgs.Authorizer, c ClientLister, p ProjectLister, m MaterialLister) *Service {
	return &Service{authz: authz, clients: c, projects: p, materials: m}
}

// Summary loads the three collections concurrently and summarizes them.
func (s *Service) Summary(ctx context.Context, actorID, orgID uuid.UUID) (*Summary, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleViewer); err != nil {
		return nil, err
	}

	var (
		cs []clients.Client
		ps []projects.Project
		ms []materials.Material
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cs, err = s.clients.List(gctx, actorID, orgID)
		return err
	})
	g.Go(func() (err error) {
		ps, err = s.projects.List(gctx, actorID, orgID)
		return err
	})
	g.Go(func() (err error) {
		ms, err = s.materials.List(gctx, actorID, orgID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := Summarize(len(cs), ps, ms)
	return &summary, nil
}

// HandleGet handles GET /api/v1/orgs/{org_id}/dashboard
func HandleGet(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgs.URLUUID(r, "org_id")
		if !ok {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		summary, err := service.Summary(r.Context(), auth.GetUserID(r.Context()), orgID)
		if err != nil {
			if orgs.WriteAccessError(w, r, err) {
				return
			}
			log.Error().Err(err).Str("org_id", orgID.String()).Msg("Failed to load dashboard")
			apperrors.WriteInternalError(w, r, "Failed to load dashboard")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"dashboard": summary,
		})
	}
}
