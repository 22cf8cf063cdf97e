package live

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrUnauthorized is returned by a FetchFunc when the subscriber has lost
// access. The subscription is closed instead of reporting the error.
var ErrUnauthorized = errors.New("subscriber is not authorized")

// FetchFunc loads the full current result set of a subscription.
type FetchFunc func(ctx context.Context) (any, error)

// Snapshot is one delivery to a subscriber: either data or an error.
type Snapshot struct {
	Collection string
	Data       any
	Err        error
}

// Gauge receives the number of open subscriptions.
type Gauge interface {
	Set(float64)
}

// Hub tracks open subscriptions and refreshes them when their collection
// changes.
type Hub struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]*Subscription
	gauge  Gauge
	logger zerolog.Logger
}

type HubOption func(*Hub)

// WithGauge reports the subscription count to g.
func WithGauge(g Gauge) HubOption {
	return func(h *Hub) { h.gauge = g }
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subs:   make(map[uuid.UUID]*Subscription),
		logger: log.With().Str("component", "live_hub").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscription delivers the latest result set of one collection. Only the
// newest snapshot is kept: a slow reader skips intermediate states.
type Subscription struct {
	id         uuid.UUID
	orgID      uuid.UUID
	userID     uuid.UUID
	collection string
	fetch      FetchFunc

	hub     *Hub
	ctx     context.Context
	cancel  context.CancelFunc
	dirty   chan struct{}
	updates chan Snapshot
	done    chan struct{}
	once    sync.Once
}

// Subscribe starts a subscription. The first snapshot is fetched at once;
// later ones follow every matching change until Close, ctx cancellation or
// revocation.
func (h *Hub) Subscribe(ctx context.Context, orgID, userID uuid.UUID, collection string, fetch FetchFunc) *Subscription {
	subCtx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		id:         uuid.New(),
		orgID:      orgID,
		userID:     userID,
		collection: collection,
		fetch:      fetch,
		hub:        h,
		ctx:        subCtx,
		cancel:     cancel,
		dirty:      make(chan struct{}, 1),
		updates:    make(chan Snapshot, 1),
		done:       make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[s.id] = s
	n := len(h.subs)
	h.mu.Unlock()
	h.report(n)

	h.logger.Debug().
		Str("subscription_id", s.id.String()).
		Str("org_id", orgID.String()).
		Str("user_id", userID.String()).
		Str("collection", collection).
		Msg("Subscription opened")

	go s.run()
	return s
}

// Updates yields snapshots. It is closed once the subscription ends.
func (s *Subscription) Updates() <-chan Snapshot {
	return s.updates
}

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close ends the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		// Deregister before done is closed so Updates never closes while the
		// hub still counts the subscription.
		s.hub.remove(s)
		close(s.done)
		s.cancel()
	})
}

func (s *Subscription) run() {
	defer close(s.updates)
	stop := context.AfterFunc(s.ctx, s.Close)
	defer stop()

	for {
		data, err := s.fetch(s.ctx)
		if errors.Is(err, ErrUnauthorized) {
			s.hub.logger.Info().
				Str("subscription_id", s.id.String()).
				Str("user_id", s.userID.String()).
				Msg("Subscription revoked")
			s.Close()
			return
		}
		select {
		case <-s.done:
			return
		default:
		}
		s.deliver(Snapshot{Collection: s.collection, Data: data, Err: err})

		select {
		case <-s.done:
			return
		case <-s.dirty:
		}
	}
}

// deliver replaces any unread snapshot with snap.
func (s *Subscription) deliver(snap Snapshot) {
	for {
		select {
		case s.updates <- snap:
			return
		case <-s.done:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

func (s *Subscription) markDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s.id)
	n := len(h.subs)
	h.mu.Unlock()
	h.report(n)
}

func (h *Hub) report(n int) {
	if h.gauge != nil {
		h.gauge.Set(float64(n))
	}
}

func (h *Hub) matching(match func(*Subscription) bool) []*Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*Subscription
	for _, s := range h.subs {
		if match(s) {
			out = append(out, s)
		}
	}
	return out
}

func (h *Hub) closeMatching(match func(*Subscription) bool) int {
	subs := h.matching(match)
	for _, s := range subs {
		s.Close()
	}
	return len(subs)
}

// Handle applies a Change to local subscriptions.
func (h *Hub) Handle(change Change) {
	switch change.Kind {
	case KindChanged:
		for _, s := range h.matching(func(s *Subscription) bool {
			return s.orgID == change.OrgID && (change.Collection == "" || s.collection == change.Collection)
		}) {
			s.markDirty()
		}
	case KindRevokeUser:
		h.CloseUser(change.UserID)
	case KindRevokeMember:
		h.CloseMember(change.OrgID, change.UserID)
	case KindRevokeOrg:
		h.CloseOrg(change.OrgID)
	default:
		h.logger.Warn().Str("kind", string(change.Kind)).Msg("Ignoring unknown change kind")
	}
}

// Run feeds changes from bus into the hub until ctx is done.
func (h *Hub) Run(ctx context.Context, bus Bus) error {
	return bus.Listen(ctx, h.Handle)
}

// CloseUser ends every subscription held by userID.
func (h *Hub) CloseUser(userID uuid.UUID) int {
	return h.closeMatching(func(s *Subscription) bool { return s.userID == userID })
}

// CloseMember ends userID's subscriptions to orgID.
func (h *Hub) CloseMember(orgID, userID uuid.UUID) int {
	return h.closeMatching(func(s *Subscription) bool { return s.orgID == orgID && s.userID == userID })
}

// CloseOrg ends every subscription to orgID.
func (h *Hub) CloseOrg(orgID uuid.UUID) int {
	return h.closeMatching(func(s *Subscription) bool { return s.orgID == orgID })
}

// CloseAll ends every subscription, used at shutdown.
func (h *Hub) CloseAll() int {
	return h.closeMatching(func(*Subscription) bool { return true })
}

// Len returns the number of open subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
