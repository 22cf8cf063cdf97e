package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aliuyar1234/printshop/internal/auth"
	"github.com/aliuyar1234/printshop/internal/clients"
	"github.com/aliuyar1234/printshop/internal/materials"
	"github.com/aliuyar1234/printshop/internal/orgs"
	"github.com/aliuyar1234/printshop/internal/projects"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	projs := []projects.Project{
		{Name: "a", Status: projects.StatusCompleted, Budget: 67.6, Material: "PLA", CreatedAt: base},
		{Name: "b", Status: projects.StatusInProgress, Budget: 10, Material: "PETG", CreatedAt: base.Add(5 * time.Hour)},
		{Name: "c", Status: projects.StatusCompleted, Budget: 32.45, Material: "PLA", CreatedAt: base.Add(2 * time.Hour)},
		{Name: "d", Status: projects.StatusQueued, CreatedAt: base.Add(3 * time.Hour)},
		{Name: "e", Status: projects.StatusQueued, Material: "TPU", CreatedAt: base.Add(1 * time.Hour)},
	}
	mats := []materials.Material{
		{Name: "m1", StockGrams: 100, ReorderThreshold: 200},
		{Name: "m2", StockGrams: 900},
		{Name: "m3", StockGrams: 500},
		{Name: "m4", StockGrams: 1250},
		{Name: "m5", StockGrams: 300, ReorderThreshold: 250},
		{Name: "m6", StockGrams: 50, ReorderThreshold: 100},
	}

	s := Summarize(7, projs, mats)

	require.Equal(t, 7, s.ClientCount)
	require.Equal(t, 1, s.ActiveProjects)
	require.Equal(t, 2, s.CompletedProjects)
	require.Equal(t, 100.05, s.Revenue)
	require.Equal(t, 3.1, s.TotalStockKg)
	require.Equal(t, map[projects.Status]int{
		projects.StatusQueued:     2,
		projects.StatusInProgress: 1,
		projects.StatusCompleted:  2,
	}, s.ProjectsByStatus)
	require.Equal(t, []MaterialUsage{
		{Material: "PLA", Projects: 2},
		{Material: "PETG", Projects: 1},
		{Material: "TPU", Projects: 1},
	}, s.MaterialUsage)

	var recent []string
	for _, p := range s.RecentProjects {
		recent = append(recent, p.Name)
	}
	require.Equal(t, []string{"b", "d", "c", "e"}, recent)

	var top []string
	for _, m := range s.TopMaterials {
		top = append(top, m.Name)
	}
	require.Equal(t, []string{"m4", "m2", "m3", "m5", "m1"}, top)

	require.Len(t, s.LowStock, 2)
	require.Equal(t, "m1", s.LowStock[0].Name)
	require.Equal(t, "m6", s.LowStock[1].Name)

	// Inputs are not reordered.
	require.Equal(t, "a", projs[0].Name)
	require.Equal(t, "m1", mats[0].Name)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(0, nil, nil)
	require.NotNil(t, s.RecentProjects)
	require.NotNil(t, s.TopMaterials)
	require.NotNil(t, s.MaterialUsage)
	require.NotNil(t, s.LowStock)
	require.Zero(t, s.Revenue)
	require.Len(t, s.ProjectsByStatus, 3)
}

type roles map[uuid.UUID]orgs.Role

func (r roles) Authorize(_ context.Context, actorID, _ uuid.UUID, min orgs.Role) (orgs.Role, error) {
	role, ok := r[actorID]
	if !ok {
		return "", orgs.ErrNotMember
	}
	if !role.AtLeast(min) {
		return role, orgs.ErrInsufficientPermissions
	}
	return role, nil
}

type listers struct {
	clients   []clients.Client
	projects  []projects.Project
	materials []materials.Material
	err       error
}

type clientList struct{ *listers }

func (l clientList) List(context.Context, uuid.UUID, uuid.UUID) ([]clients.Client, error) {
	return l.clients, nil
}

type projectList struct{ *listers }

func (l projectList) List(context.Context, uuid.UUID, uuid.UUID) ([]projects.Project, error) {
	return l.projects, l.err
}

type materialList struct{ *listers }

func (l materialList) List(context.Context, uuid.UUID, uuid.UUID) ([]materials.Material, error) {
	return l.materials, nil
}

func TestService_Summary(t *testing.T) {
	viewer := uuid.New()
	data := &listers{
		clients:   []clients.Client{{Name: "Ada"}, {Name: "Grace"}},
		projects:  []projects.Project{{Status: projects.StatusCompleted, Budget: 12}},
		materials: []materials.Material{{StockGrams: 1500}},
	}
	svc := NewService(roles{viewer: orgs.RoleViewer}, clientList{data}, projectList{data}, materialList{data})

	s, err := svc.Summary(context.Background(), viewer, uuid.New())
	require.NoError(t, err)
	require.Equal(t, 2, s.ClientCount)
	require.Equal(t, 12.0, s.Revenue)
	require.Equal(t, 1.5, s.TotalStockKg)

	_, err = svc.Summary(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, orgs.ErrNotMember)

	data.err = errors.New("connection refused")
	_, err = svc.Summary(context.Background(), viewer, uuid.New())
	require.Error(t, err)
}

func TestHandleGet(t *testing.T) {
	viewer := uuid.New()
	data := &listers{}
	svc := NewService(roles{viewer: orgs.RoleViewer}, clientList{data}, projectList{data}, materialList{data})

	r := chi.NewRouter()
	r.Get("/orgs/{org_id}/dashboard", HandleGet(svc))

	do := func(user uuid.UUID) int {
		req := httptest.NewRequest(http.MethodGet, "/orgs/"+uuid.NewString()+"/dashboard", nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{ID: user}))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, do(viewer))
	require.Equal(t, http.StatusNotFound, do(uuid.New()))

	data.err = errors.New("boom")
	require.Equal(t, http.StatusInternalServerError, do(viewer))
}
