package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/aliuyar1234/printshop/internal/audit"
	"github.com/aliuyar1234/printshop/internal/auth"
	"github.com/aliuyar1234/printshop/internal/clients"
	"github.com/aliuyar1234/printshop/internal/config"
	"github.com/aliuyar1234/printshop/internal/dashboard"
	"github.com/aliuyar1234/printshop/internal/expenses"
	"github.com/aliuyar1234/printshop/internal/live"
	"github.com/aliuyar1234/printshop/internal/mail"
	"github.com/aliuyar1234/printshop/internal/materials"
	"github.com/aliuyar1234/printshop/internal/metrics"
	"github.com/aliuyar1234/printshop/internal/orgs"
	"github.com/aliuyar1234/printshop/internal/pricing"
	"github.com/aliuyar1234/printshop/internal/projects"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Services bundles the domain services sharing one pool.
type Services struct {
	Users       *auth.Users
	Auditor     *audit.Writer
	AuditReader *audit.Reader
	Outbox      *mail.Outbox
	Notifier    *live.Notifier

	Orgs      *orgs.Service
	Clients   *clients.Service
	Projects  *projects.Service
	Materials *materials.Service
	Expenses  *expenses.Service
	Pricing   *pricing.Service
	Dashboard *dashboard.Service
}

// NewServices wires every service to pool. Changes are announced on
// publisher; m may be nil.
func NewServices(pool *pgxpool.Pool, cfg *config.Config, publisher live.Publisher, m *metrics.Metrics) *Services {
	store := orgs.NewPostgresStore(pool)
	access := orgs.NewAccess(store)
	notifier := live.NewNotifier(publisher)

	s := &Services{
		Users:       auth.NewUsers(pool),
		Auditor:     audit.NewWriter(pool),
		AuditReader: audit.NewReader(pool),
		Outbox:      mail.NewOutbox(pool),
		Notifier:    notifier,
		Clients:     clients.NewService(pool, access, notifier),
		Projects:    projects.NewService(pool, access, notifier),
		Materials:   materials.NewService(pool, access, notifier),
		Expenses:    expenses.NewService(pool, access, notifier),
	}
	s.Pricing = pricing.NewService(access, s.Materials, s.Projects, cfg.DesignHourlyRate)
	s.Dashboard = dashboard.NewService(access, s.Clients, s.Projects, s.Materials)

	s.Orgs = orgs.NewService(store,
		orgs.WithMailer(mail.NewInvitationMailer(s.Outbox, cfg.BaseURL)),
		orgs.WithNotifier(notifier),
		orgs.WithAuditor(s.Auditor),
		orgs.WithMetrics(m),
		orgs.WithPurgers(
			orgs.NamedPurger{Name: projects.Collection, Purger: s.Projects},
			orgs.NamedPurger{Name: materials.Collection, Purger: s.Materials},
			orgs.NamedPurger{Name: clients.Collection, Purger: s.Clients},
			orgs.NamedPurger{Name: expenses.Collection, Purger: s.Expenses},
		),
	)
	return s
}

// LiveSources maps every live collection to the read it streams.
func (s *Services) LiveSources() map[string]live.Source {
	return map[string]live.Source{
		orgs.CollectionOrganization: func(ctx context.Context, actorID, orgID uuid.UUID) (any, error) {
			org, role, err := s.Orgs.GetForMember(ctx, actorID, orgID)
			if err != nil {
				return nil, liveError(err)
			}
			return map[string]any{"org": org, "role": role}, nil
		},
		clients.Collection:   listSource(s.Clients.List),
		projects.Collection:  listSource(s.Projects.List),
		materials.Collection: listSource(s.Materials.List),
		expenses.Collection:  listSource(s.Expenses.List),
	}
}

func listSource[T any](list func(ctx context.Context, actorID, orgID uuid.UUID) ([]T, error)) live.Source {
	return func(ctx context.Context, actorID, orgID uuid.UUID) (any, error) {
		items, err := list(ctx, actorID, orgID)
		if err != nil {
			return nil, liveError(err)
		}
		return items, nil
	}
}

// liveError turns lost access into live.ErrUnauthorized so the hub ends the
// subscription instead of retrying.
func liveError(err error) error {
	if errors.Is(err, orgs.ErrNotMember) || errors.Is(err, orgs.ErrInsufficientPermissions) {
		return fmt.Errorf("%w: %w", live.ErrUnauthorized, err)
	}
	return err
}
