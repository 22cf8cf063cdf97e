package live

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func next(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Updates():
		require.True(t, ok, "subscription closed unexpectedly")
		return snap
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func requireClosed(t *testing.T, sub *Subscription) {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case _, ok := <-sub.Updates():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription was not closed")
		}
	}
}

type countingGauge struct{ v atomic.Int64 }

func (g *countingGauge) Set(v float64) { g.v.Store(int64(v)) }

func counter() (FetchFunc, *atomic.Int64) {
	var n atomic.Int64
	return func(context.Context) (any, error) {
		return n.Add(1), nil
	}, &n
}

func TestHub_InitialSnapshotAndRefreshOnChange(t *testing.T) {
	hub := NewHub()
	orgID := uuid.New()
	fetch, _ := counter()

	sub := hub.Subscribe(context.Background(), orgID, uuid.New(), "clients", fetch)
	defer sub.Close()

	snap := next(t, sub)
	require.Equal(t, "clients", snap.Collection)
	require.Equal(t, int64(1), snap.Data)

	hub.Handle(Change{Kind: KindChanged, OrgID: orgID, Collection: "clients"})
	require.Equal(t, int64(2), next(t, sub).Data)
}

func TestHub_IgnoresOtherOrgsAndCollections(t *testing.T) {
	hub := NewHub()
	orgID := uuid.New()
	fetch, calls := counter()

	sub := hub.Subscribe(context.Background(), orgID, uuid.New(), "clients", fetch)
	defer sub.Close()
	next(t, sub)

	hub.Handle(Change{Kind: KindChanged, OrgID: uuid.New(), Collection: "clients"})
	hub.Handle(Change{Kind: KindChanged, OrgID: orgID, Collection: "projects"})

	select {
	case snap := <-sub.Updates():
		t.Fatalf("unexpected snapshot %v", snap)
	case <-time.After(100 * time.Millisecond):
	}
	require.Equal(t, int64(1), calls.Load())
}

func TestHub_LatestWins(t *testing.T) {
	hub := NewHub()
	orgID := uuid.New()
	fetch, calls := counter()

	sub := hub.Subscribe(context.Background(), orgID, uuid.New(), "materials", fetch)
	defer sub.Close()

	// Nobody reads while several changes arrive.
	for i := 0; i < 5; i++ {
		hub.Handle(Change{Kind: KindChanged, OrgID: orgID, Collection: "materials"})
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, waitFor, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	snap := next(t, sub)
	require.Equal(t, calls.Load(), snap.Data)
}

func TestHub_FetchErrorIsDeliveredAndRetried(t *testing.T) {
	hub := NewHub()
	orgID := uuid.New()
	var fail atomic.Bool
	fail.Store(true)
	fetch := func(context.Context) (any, error) {
		if fail.Load() {
			return nil, errors.New("db down")
		}
		return "ok", nil
	}

	sub := hub.Subscribe(context.Background(), orgID, uuid.New(), "expenses", fetch)
	defer sub.Close()

	require.Error(t, next(t, sub).Err)

	fail.Store(false)
	hub.Handle(Change{Kind: KindChanged, OrgID: orgID, Collection: "expenses"})
	snap := next(t, sub)
	require.NoError(t, snap.Err)
	require.Equal(t, "ok", snap.Data)
}

func TestHub_UnauthorizedFetchClosesSubscription(t *testing.T) {
	gauge := &countingGauge{}
	hub := NewHub(WithGauge(gauge))
	orgID := uuid.New()
	var revoked atomic.Bool
	fetch := func(context.Context) (any, error) {
		if revoked.Load() {
			return nil, ErrUnauthorized
		}
		return "rows", nil
	}

	sub := hub.Subscribe(context.Background(), orgID, uuid.New(), "projects", fetch)
	next(t, sub)
	require.Equal(t, int64(1), gauge.v.Load())

	revoked.Store(true)
	hub.Handle(Change{Kind: KindChanged, OrgID: orgID, Collection: "projects"})
	requireClosed(t, sub)
	require.Zero(t, hub.Len())
	require.Zero(t, gauge.v.Load())
}

func TestHub_Revocations(t *testing.T) {
	hub := NewHub()
	orgA, orgB := uuid.New(), uuid.New()
	alice, bob := uuid.New(), uuid.New()
	fetch, _ := counter()
	ctx := context.Background()

	aliceA := hub.Subscribe(ctx, orgA, alice, "clients", fetch)
	bobA := hub.Subscribe(ctx, orgA, bob, "clients", fetch)
	bobB := hub.Subscribe(ctx, orgB, bob, "projects", fetch)
	require.Equal(t, 3, hub.Len())

	hub.Handle(Change{Kind: KindRevokeMember, OrgID: orgA, UserID: bob})
	requireClosed(t, bobA)
	require.Equal(t, 2, hub.Len())

	hub.Handle(Change{Kind: KindRevokeUser, UserID: bob})
	requireClosed(t, bobB)

	hub.Handle(Change{Kind: KindRevokeOrg, OrgID: orgA})
	requireClosed(t, aliceA)
	require.Zero(t, hub.Len())
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	hub := NewHub()
	fetch, _ := counter()
	sub := hub.Subscribe(context.Background(), uuid.New(), uuid.New(), "clients", fetch)

	sub.Close()
	sub.Close()
	requireClosed(t, sub)
	require.Zero(t, hub.Len())
}

func TestSubscription_ContextCancelCloses(t *testing.T) {
	hub := NewHub()
	fetch, _ := counter()
	ctx, cancel := context.WithCancel(context.Background())
	sub := hub.Subscribe(ctx, uuid.New(), uuid.New(), "clients", fetch)

	cancel()
	requireClosed(t, sub)
	require.Eventually(t, func() bool { return hub.Len() == 0 }, waitFor, 10*time.Millisecond)
}

func TestHub_RunWithMemoryBus(t *testing.T) {
	hub := NewHub()
	bus := NewMemoryBus()
	orgID := uuid.New()
	fetch, _ := counter()

	unsubscribe := bus.Subscribe(hub.Handle)
	defer unsubscribe()

	sub := hub.Subscribe(context.Background(), orgID, uuid.New(), "clients", fetch)
	next(t, sub)

	notifier := NewNotifier(bus)
	notifier.Changed(context.Background(), orgID, "clients")
	require.Equal(t, int64(2), next(t, sub).Data)

	notifier.RevokeOrg(context.Background(), orgID)
	requireClosed(t, sub)
}
