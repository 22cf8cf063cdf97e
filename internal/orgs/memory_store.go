package orgs

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. Every method works on copies, so callers
// never share state with the store.
type MemoryStore struct {
	mu    sync.Mutex
	orgs  map[uuid.UUID]*Organization
	order []uuid.UUID
	now   func() time.Time

	// failNext, when set, is returned by the next call and then cleared.
	failNext error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orgs: make(map[uuid.UUID]*Organization),
		now:  time.Now,
	}
}

// FailNext makes the next store call return err.
func (s *MemoryStore) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *MemoryStore) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

// Put stores org exactly as given, including a stale or missing member
// mirror. Used to load legacy records.
func (s *MemoryStore) Put(org *Organization, mirrorMissing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := org.Clone()
	c.memberIndexMissing = mirrorMissing
	if mirrorMissing {
		c.MemberUIDs = nil
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	if _, exists := s.orgs[c.ID]; !exists {
		s.order = append(s.order, c.ID)
	}
	s.orgs[c.ID] = c
}

func (s *MemoryStore) Create(ctx context.Context, org *Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}

	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	org.CreatedAt = s.now()
	org.MemberUIDs = org.DeriveMemberUIDs()
	if org.PendingInvites == nil {
		org.PendingInvites = []string{}
	}

	s.orgs[org.ID] = org.Clone()
	s.order = append(s.order, org.ID)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	org, ok := s.orgs[id]
	if !ok {
		return nil, ErrOrgNotFound
	}
	return org.Clone(), nil
}

// FindByMember narrows on the mirror, as the database index does, and
// confirms the entry in Members.
func (s *MemoryStore) FindByMember(ctx context.Context, uid uuid.UUID) (*Organization, error) {
	return s.findFirst(func(o *Organization) bool {
		if !slices.Contains(o.MemberUIDs, uid) {
			return false
		}
		_, ok := o.Member(uid)
		return ok
	})
}

func (s *MemoryStore) FindByPendingInvite(ctx context.Context, email string) (*Organization, error) {
	return s.findFirst(func(o *Organization) bool {
		return o.HasPendingInvite(email)
	})
}

func (s *MemoryStore) findFirst(match func(*Organization) bool) (*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	for _, id := range s.order {
		if org := s.orgs[id]; match(org) {
			return org.Clone(), nil
		}
	}
	return nil, ErrOrgNotFound
}

func (s *MemoryStore) Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	current, ok := s.orgs[id]
	if !ok {
		return nil, ErrOrgNotFound
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}

	// Identity fields are immutable through Update.
	next.ID = current.ID
	next.OwnerID = current.OwnerID
	next.CreatedAt = current.CreatedAt
	next.MemberUIDs = next.DeriveMemberUIDs()
	next.memberIndexMissing = false

	s.orgs[id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}

	if _, ok := s.orgs[id]; !ok {
		return ErrOrgNotFound
	}
	delete(s.orgs, id)
	s.order = slices.DeleteFunc(s.order, func(v uuid.UUID) bool { return v == id })
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	out := make([]*Organization, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.orgs[id].Clone())
	}
	return out, nil
}
