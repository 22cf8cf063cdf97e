package orgs

import (
	"context"
	"errors"
	"fmt"

	"github.com/aliuyar1234/printshop/internal/audit"
	"github.com/aliuyar1234/printshop/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultPurgeBatch is the number of rows a Purger removes per round trip.
const DefaultPurgeBatch = 500

// Mailer queues outbound invitation mail.
type Mailer interface {
	SendInvitation(ctx context.Context, inv Invitation) error
}

// ChangeNotifier announces that a collection of an organization changed.
type ChangeNotifier interface {
	Changed(ctx context.Context, orgID uuid.UUID, collection string)
}

// Notifier additionally revokes live subscriptions when access is lost.
type Notifier interface {
	ChangeNotifier
	RevokeMember(ctx context.Context, orgID, userID uuid.UUID)
	RevokeOrg(ctx context.Context, orgID uuid.UUID)
}

// Auditor records security relevant events.
type Auditor interface {
	Log(ctx context.Context, params audit.LogParams) error
}

// Purger deletes up to batch rows of one collection belonging to orgID and
// reports how many were removed.
type Purger interface {
	PurgeOrg(ctx context.Context, orgID uuid.UUID, batch int) (int64, error)
}

// NamedPurger is one stage of the cascading organization delete.
type NamedPurger struct {
	Name   string
	Purger Purger
}

// Authorizer checks an actor's role inside an organization.
type Authorizer interface {
	Authorize(ctx context.Context, actorID, orgID uuid.UUID, min Role) (Role, error)
}

// EventRecorder counts membership transitions.
type EventRecorder interface {
	RecordMembershipEvent(event string)
}

// CollectionOrganization is the live collection name of the organization record.
const CollectionOrganization = "organization"

type nopMailer struct{}

func (nopMailer) SendInvitation(context.Context, Invitation) error { return nil }

type nopNotifier struct{}

func (nopNotifier) Changed(context.Context, uuid.UUID, string)         {}
func (nopNotifier) RevokeMember(context.Context, uuid.UUID, uuid.UUID) {}
func (nopNotifier) RevokeOrg(context.Context, uuid.UUID)               {}

type nopAuditor struct{}

func (nopAuditor) Log(context.Context, audit.LogParams) error { return nil }

type nopRecorder struct{}

func (nopRecorder) RecordMembershipEvent(string) {}

// Service owns the organization state machine: resolution, invitations,
// membership changes and deletion. Every mutation goes through Store.Update.
type Service struct {
	store      Store
	access     *Access
	mailer     Mailer
	notifier   Notifier
	auditor    Auditor
	recorder   EventRecorder
	purgers    []NamedPurger
	purgeBatch int
	logger     zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithMailer(m Mailer) Option {
	return func(s *Service) { s.mailer = m }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

func WithMetrics(r EventRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithPurgers sets the cascade stages, run in the given order.
func WithPurgers(purgers ...NamedPurger) Option {
	return func(s *Service) { s.purgers = purgers }
}

func WithPurgeBatch(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.purgeBatch = n
		}
	}
}

// NewService creates an organization service backed by store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		access:     NewAccess(store),
		mailer:     nopMailer{},
		notifier:   nopNotifier{},
		auditor:    nopAuditor{},
		recorder:   nopRecorder{},
		purgeBatch: DefaultPurgeBatch,
		logger:     log.With().Str("component", "orgs").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeEmail(email string) string {
	return validation.NormalizeEmail(email)
}

// Authorize returns the actor's role when it is at least min.
// Unknown organizations and non-members both yield ErrNotMember.
func (s *Service) Authorize(ctx context.Context, actorID, orgID uuid.UUID, min Role) (Role, error) {
	return s.access.Authorize(ctx, actorID, orgID, min)
}

// Access answers role checks from the store alone. It carries no
// collaborators, so resource services can hold one.
type Access struct {
	store  Store
	logger zerolog.Logger
}

func NewAccess(store Store) *Access {
	return &Access{store: store, logger: log.With().Str("component", "rbac").Logger()}
}

// Authorize implements Authorizer.
func (a *Access) Authorize(ctx context.Context, actorID, orgID uuid.UUID, min Role) (Role, error) {
	org, err := a.store.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return "", ErrNotMember
		}
		return "", fmt.Errorf("failed to load organization: %w", err)
	}
	return authorizeMember(org, actorID, min, a.logger)
}

func authorizeMember(org *Organization, actorID uuid.UUID, min Role, logger zerolog.Logger) (Role, error) {
	member, ok := org.Member(actorID)
	if !ok {
		logger.Debug().
			Str("user_id", actorID.String()).
			Str("org_id", org.ID.String()).
			Msg("RBAC: User is not a member of organization")
		return "", ErrNotMember
	}
	if !member.Role.AtLeast(min) {
		logger.Warn().
			Str("user_id", actorID.String()).
			Str("org_id", org.ID.String()).
			Str("user_role", string(member.Role)).
			Str("required_role", string(min)).
			Msg("RBAC: Insufficient permissions")
		return member.Role, ErrInsufficientPermissions
	}
	return member.Role, nil
}

// GetForMember returns the organization record to any member.
func (s *Service) GetForMember(ctx context.Context, actorID, orgID uuid.UUID) (*Organization, Role, error) {
	org, err := s.store.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return nil, "", ErrNotMember
		}
		return nil, "", fmt.Errorf("failed to load organization: %w", err)
	}
	role, err := authorizeMember(org, actorID, RoleViewer, s.logger)
	if err != nil {
		return nil, "", err
	}
	return org, role, nil
}

func (s *Service) audit(ctx context.Context, orgID, actorID uuid.UUID, action string, meta map[string]interface{}) {
	if err := s.auditor.Log(ctx, audit.LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorID,
		Action:      action,
		Meta:        meta,
	}); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("Failed to log audit event")
	}
}

// changed records a membership event and notifies organization subscribers.
func (s *Service) changed(ctx context.Context, orgID, actorID uuid.UUID, action string, meta map[string]interface{}) {
	s.recorder.RecordMembershipEvent(action)
	s.audit(ctx, orgID, actorID, action, meta)
	s.notifier.Changed(ctx, orgID, CollectionOrganization)
}
