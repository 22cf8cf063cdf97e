package projects

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aliuyar1234/printshop/internal/auth"
	"github.com/aliuyar1234/printshop/internal/orgs"
	"github.com/aliuyar1234/printshop/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

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

type nopNotifier struct{}

func (nopNotifier) Changed(context.Context, uuid.UUID, string) {}

func TestService_RejectsBeforeQuerying(t *testing.T) {
	viewer, editor := uuid.New(), uuid.New()
	svc := NewService(nil, roles{viewer: orgs.RoleViewer, editor: orgs.RoleEditor}, nopNotifier{})
	ctx := context.Background()
	orgID, projectID := uuid.New(), uuid.New()

	_, err := svc.Create(ctx, viewer, orgID, Input{Name: "Bracket"})
	require.ErrorIs(t, err, orgs.ErrInsufficientPermissions)

	_, err = svc.SetStatus(ctx, viewer, orgID, projectID, StatusCompleted)
	require.ErrorIs(t, err, orgs.ErrInsufficientPermissions)

	_, err = svc.SaveQuote(ctx, viewer, orgID, projectID, QuoteFields{Material: "PLA", Quantity: 1})
	require.ErrorIs(t, err, orgs.ErrInsufficientPermissions)

	require.ErrorIs(t, svc.Delete(ctx, viewer, orgID, projectID), orgs.ErrInsufficientPermissions)

	_, err = svc.Get(ctx, uuid.New(), orgID, projectID)
	require.ErrorIs(t, err, orgs.ErrNotMember)

	cases := []Input{
		{Name: ""},
		{Name: "Bracket", Status: "shipped"},
		{Name: "Bracket", WeightGrams: -1},
		{Name: "Bracket", Quantity: -2},
		{Name: "Bracket", EstimatedDelivery: "next week"},
	}
	for _, in := range cases {
		_, err := svc.Create(ctx, editor, orgID, in)
		require.ErrorIs(t, err, validation.ErrInvalid, "%+v", in)
	}

	_, err = svc.SetStatus(ctx, editor, orgID, projectID, "archived")
	require.ErrorIs(t, err, validation.ErrInvalid)

	_, err = svc.SaveQuote(ctx, editor, orgID, projectID, QuoteFields{Material: "PLA", Quantity: 0})
	require.ErrorIs(t, err, validation.ErrInvalid)
}

func TestInput_NormalizeDefaults(t *testing.T) {
	in := Input{Name: " Bracket ", EstimatedDelivery: " 2026-03-14 "}
	in.normalize()

	require.Equal(t, "Bracket", in.Name)
	require.Equal(t, StatusQueued, in.Status)
	require.Equal(t, 1, in.Quantity)
	require.NoError(t, validation.Struct(in))

	d := in.deliveryDate()
	require.NotNil(t, d)
	require.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), *d)

	in.EstimatedDelivery = ""
	require.Nil(t, in.deliveryDate())
}

func TestStatus_Valid(t *testing.T) {
	require.True(t, StatusQueued.Valid())
	require.True(t, StatusInProgress.Valid())
	require.True(t, StatusCompleted.Valid())
	require.False(t, Status("done").Valid())
}

func TestWriteError_CompletedIsConflict(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	writeError(rec, req, ErrProjectCompleted, "save quote")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	writeError(rec, req, ErrProjectNotFound, "save quote")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSetStatus_Validation(t *testing.T) {
	editor := uuid.New()
	svc := NewService(nil, roles{editor: orgs.RoleEditor}, nopNotifier{})

	r := chi.NewRouter()
	r.Put("/orgs/{org_id}/projects/{id}/status", HandleSetStatus(svc))

	do := func(path, body string) int {
		req := httptest.NewRequest(http.MethodPut, path, bytes.NewBufferString(body))
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{ID: editor}))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	base := "/orgs/" + uuid.NewString() + "/projects/"
	require.Equal(t, http.StatusBadRequest, do(base+uuid.NewString()+"/status", `{"status":"lost"}`))
	require.Equal(t, http.StatusBadRequest, do(base+"nope/status", `{"status":"queued"}`))
}
