package clients

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aliuyar1234/printshop/internal/auth"
	"github.com/aliuyar1234/printshop/internal/orgs"
	"github.com/aliuyar1234/printshop/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// roles is an Authorizer over a fixed membership table.
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
	viewer, editor, stranger := uuid.New(), uuid.New(), uuid.New()
	// A nil pool proves no query runs.
	svc := NewService(nil, roles{viewer: orgs.RoleViewer, editor: orgs.RoleEditor}, nopNotifier{})
	ctx := context.Background()
	orgID := uuid.New()

	_, err := svc.Create(ctx, viewer, orgID, Input{Name: "Ada"})
	require.ErrorIs(t, err, orgs.ErrInsufficientPermissions)

	_, err = svc.Update(ctx, viewer, orgID, uuid.New(), Input{Name: "Ada"})
	require.ErrorIs(t, err, orgs.ErrInsufficientPermissions)

	require.ErrorIs(t, svc.Delete(ctx, viewer, orgID, uuid.New()), orgs.ErrInsufficientPermissions)

	_, err = svc.List(ctx, stranger, orgID)
	require.ErrorIs(t, err, orgs.ErrNotMember)

	_, err = svc.Create(ctx, editor, orgID, Input{Name: "   "})
	require.ErrorIs(t, err, validation.ErrInvalid)

	_, err = svc.Create(ctx, editor, orgID, Input{Name: "Ada", Email: "not-an-email"})
	require.ErrorIs(t, err, validation.ErrInvalid)
}

func TestInput_Normalize(t *testing.T) {
	in := Input{Name: "  Ada Lovelace ", Email: " Ada@Example.COM ", Phone: " 555 "}
	in.normalize()
	require.Equal(t, Input{Name: "Ada Lovelace", Email: "ada@example.com", Phone: "555"}, in)
	require.NoError(t, validation.Struct(in))
}

func TestHandlers_MapAccessErrors(t *testing.T) {
	viewer := uuid.New()
	svc := NewService(nil, roles{viewer: orgs.RoleViewer}, nopNotifier{})

	r := chi.NewRouter()
	r.Post("/orgs/{org_id}/clients", HandleCreate(svc))
	r.Get("/orgs/{org_id}/clients", HandleList(svc))

	do := func(method, path string, user uuid.UUID, body string) int {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{ID: user}))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	orgPath := "/orgs/" + uuid.NewString() + "/clients"
	require.Equal(t, http.StatusForbidden, do(http.MethodPost, orgPath, viewer, `{"name":"Ada"}`))
	require.Equal(t, http.StatusNotFound, do(http.MethodGet, orgPath, uuid.New(), ""))
	require.Equal(t, http.StatusBadRequest, do(http.MethodGet, "/orgs/not-a-uuid/clients", viewer, ""))
	require.Equal(t, http.StatusBadRequest, do(http.MethodPost, orgPath, viewer, `{`))
}
