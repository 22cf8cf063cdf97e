package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/aliuyar1234/printshop/internal/materials"
	"github.com/aliuyar1234/printshop/internal/orgs"
	"github.com/aliuyar1234/printshop/internal/projects"
	"github.com/aliuyar1234/printshop/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrMaterialNotInInventory is returned when the quoted material type has no
// inventory entry to take a price from.
var ErrMaterialNotInInventory = errors.New("material is not in inventory")

// MaterialFinder looks up the inventory entry for a material type.
type MaterialFinder interface {
	FindByType(ctx context.Context, actorID, orgID uuid.UUID, materialType string) (*materials.Material, error)
}

// QuoteStore persists a quote on a project.
type QuoteStore interface {
	SaveQuote(ctx context.Context, actorID, orgID, projectID uuid.UUID, q projects.QuoteFields) (*projects.Project, error)
}

type Service struct {
	authz      orgs.Authorizer
	materials  MaterialFinder
	projects   QuoteStore
	hourlyRate float64
	logger     zerolog.Logger
}

// NewService creates a pricing service charging hourlyRate per design hour.
func NewService(authz orgs.Authorizer, materials MaterialFinder, projects QuoteStore, hourlyRate float64) *Service {
	return &Service{
		authz:      authz,
		materials:  materials,
		projects:   projects,
		hourlyRate: hourlyRate,
		logger:     log.With().Str("component", "pricing").Logger(),
	}
}

// Quote prices in with the current inventory price of its material.
func (s *Service) Quote(ctx context.Context, actorID, orgID uuid.UUID, in Input) (*Quote, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleViewer); err != nil {
		return nil, err
	}
	return s.quote(ctx, actorID, orgID, in)
}

func (s *Service) quote(ctx context.Context, actorID, orgID uuid.UUID, in Input) (*Quote, error) {
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	material, err := s.materials.FindByType(ctx, actorID, orgID, in.Material)
	if err != nil {
		if errors.Is(err, materials.ErrMaterialNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMaterialNotInInventory, in.Material)
		}
		return nil, fmt.Errorf("failed to look up material price: %w", err)
	}

	q := Calculate(in, material.PricePerKg, s.hourlyRate)
	return &q, nil
}

// SaveProjectQuote prices in and stores the result as the project's budget.
// Completed projects are refused with projects.ErrProjectCompleted.
func (s *Service) SaveProjectQuote(ctx context.Context, actorID, orgID, projectID uuid.UUID, in Input) (*projects.Project, *Quote, error) {
	if _, err := s.authz.Authorize(ctx, actorID, orgID, orgs.RoleEditor); err != nil {
		return nil, nil, err
	}

	q, err := s.quote(ctx, actorID, orgID, in)
	if err != nil {
		return nil, nil, err
	}

	project, err := s.projects.SaveQuote(ctx, actorID, orgID, projectID, projects.QuoteFields{
		Material:    q.Material,
		WeightGrams: in.WeightGrams,
		DesignHours: in.DesignHours,
		Quantity:    q.Quantity,
		Budget:      q.FinalPrice,
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().
		Str("org_id", orgID.String()).
		Str("project_id", projectID.String()).
		Float64("final_price", q.FinalPrice).
		Msg("Saved project quote")
	return project, q, nil
}
