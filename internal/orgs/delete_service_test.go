package orgs

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	name    string
	rows    int64
	err     error
	calls   int
	journal *[]string
}

func (p *fakePurger) PurgeOrg(_ context.Context, _ uuid.UUID, batch int) (int64, error) {
	p.calls++
	*p.journal = append(*p.journal, p.name)
	if p.err != nil {
		return 0, p.err
	}
	n := min(p.rows, int64(batch))
	p.rows -= n
	return n, nil
}

func TestDeleteOrganization_PurgesInOrderThenDeletes(t *testing.T) {
	var journal []string
	projects := &fakePurger{name: "projects", rows: 5, journal: &journal}
	materials := &fakePurger{name: "materials", rows: 2, journal: &journal}
	clients := &fakePurger{name: "clients", rows: 0, journal: &journal}
	expenses := &fakePurger{name: "expenses", rows: 4, journal: &journal}

	f := newFixture(t,
		WithPurgeBatch(2),
		WithPurgers(
			NamedPurger{Name: "projects", Purger: projects},
			NamedPurger{Name: "materials", Purger: materials},
			NamedPurger{Name: "clients", Purger: clients},
			NamedPurger{Name: "expenses", Purger: expenses},
		),
	)
	ctx := context.Background()
	owner, org := f.ownedOrg(t, "owner@example.com")

	require.NoError(t, f.service.DeleteOrganization(ctx, owner.ID, org.ID, org.Name))

	require.Equal(t, []string{
		"projects", "projects", "projects",
		"materials", "materials",
		"clients",
		"expenses", "expenses", "expenses",
	}, journal)
	require.Zero(t, projects.rows)
	require.Zero(t, expenses.rows)

	_, err := f.store.Get(ctx, org.ID)
	require.ErrorIs(t, err, ErrOrgNotFound)
	require.Equal(t, []uuid.UUID{org.ID}, f.notifier.revokedOrgs)

	session, err := f.service.Resolve(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, StateUnassigned, session.State)
}

func TestDeleteOrganization_RequiresOwnerAndExactName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, org := f.ownedOrg(t, "owner@example.com")
	admin := newIdentity("admin@example.com")
	f.join(t, owner, org.ID, admin, RoleAdmin)

	err := f.service.DeleteOrganization(ctx, admin.ID, org.ID, org.Name)
	require.ErrorIs(t, err, ErrInsufficientPermissions)

	err = f.service.DeleteOrganization(ctx, owner.ID, org.ID, "owner's team")
	require.ErrorIs(t, err, ErrConfirmationMismatch)

	err = f.service.DeleteOrganization(ctx, owner.ID, org.ID, "")
	require.ErrorIs(t, err, ErrConfirmationMismatch)

	_, err = f.store.Get(ctx, org.ID)
	require.NoError(t, err)
}

func TestDeleteOrganization_StopsOnFailedStage(t *testing.T) {
	var journal []string
	projects := &fakePurger{name: "projects", rows: 1, journal: &journal}
	materials := &fakePurger{name: "materials", err: errors.New("timeout"), journal: &journal}
	clients := &fakePurger{name: "clients", journal: &journal}

	f := newFixture(t, WithPurgers(
		NamedPurger{Name: "projects", Purger: projects},
		NamedPurger{Name: "materials", Purger: materials},
		NamedPurger{Name: "clients", Purger: clients},
	))
	ctx := context.Background()
	owner, org := f.ownedOrg(t, "owner@example.com")

	err := f.service.DeleteOrganization(ctx, owner.ID, org.ID, org.Name)
	require.ErrorIs(t, err, ErrPartialDelete)
	require.ErrorContains(t, err, "materials")
	require.Zero(t, clients.calls)

	_, err = f.store.Get(ctx, org.ID)
	require.NoError(t, err)
	require.Empty(t, f.notifier.revokedOrgs)
}
