package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aliuyar1234/printshop/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newLiveServer(t *testing.T, hub *Hub, userID uuid.UUID, sources map[string]Source) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), auth.Identity{ID: userID})))
		})
	})
	r.Get("/orgs/{org_id}/live/{collection}", NewHandler(hub, sources, DefaultConfig(), nil).ServeHTTP)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestHandler_StreamsSnapshots(t *testing.T) {
	hub := NewHub()
	orgID, userID := uuid.New(), uuid.New()
	version := 0
	srv := newLiveServer(t, hub, userID, map[string]Source{
		"clients": func(_ context.Context, actorID, org uuid.UUID) (any, error) {
			if actorID != userID || org != orgID {
				return nil, ErrUnauthorized
			}
			version++
			return map[string]int{"version": version}, nil
		},
	})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/orgs/"+orgID.String()+"/live/clients"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))

	var frame struct {
		Collection string         `json:"collection"`
		Data       map[string]int `json:"data"`
		Error      string         `json:"error"`
	}
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, "clients", frame.Collection)
	require.Equal(t, 1, frame.Data["version"])

	hub.Handle(Change{Kind: KindChanged, OrgID: orgID, Collection: "clients"})
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, 2, frame.Data["version"])

	hub.Handle(Change{Kind: KindRevokeOrg, OrgID: orgID})
	_, _, err = conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestHandler_RejectsBeforeUpgrade(t *testing.T) {
	hub := NewHub()
	srv := newLiveServer(t, hub, uuid.New(), map[string]Source{
		"clients": func(context.Context, uuid.UUID, uuid.UUID) (any, error) {
			return nil, ErrUnauthorized
		},
	})

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/orgs/"+uuid.NewString()+"/live/clients"), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(srv, "/orgs/"+uuid.NewString()+"/live/unknown"), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.Zero(t, hub.Len())
}
