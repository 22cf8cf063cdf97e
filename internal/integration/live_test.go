package integration

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aliuyar1234/printshop/internal/live"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dialLive(t *testing.T, c *apiClient, path string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(c.base, "http") + path
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)
	return websocket.DefaultDialer.Dial(url, header)
}

func readFrame(t *testing.T, conn *websocket.Conn) live.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame live.Frame
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame
}

func TestLive_MaterialsStreamFollowsWrites(t *testing.T) {
	pool := newTestDB(t)
	srv := newTestServer(t, pool)

	owner := signup(t, srv.URL, "live@example.com")
	org := owner.provision()
	orgPath := "/api/v1/orgs/" + org.Org.ID.String()

	conn, _, err := dialLive(t, owner, orgPath+"/live/materials")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	first := readFrame(t, conn)
	require.Equal(t, "materials", first.Collection)
	require.Empty(t, first.Data)

	owner.do(http.MethodPost, orgPath+"/materials", map[string]any{
		"name": "Silk Gold", "brand": "Polymaker", "type": "PLA", "price_per_kg": 25,
	}, http.StatusCreated)

	next := readFrame(t, conn)
	items, ok := next.Data.([]any)
	require.True(t, ok, "data: %#v", next.Data)
	require.Len(t, items, 1)
	require.Equal(t, "Silk Gold", items[0].(map[string]any)["name"])
}

func TestLive_RejectsOutsidersAndUnknownCollections(t *testing.T) {
	pool := newTestDB(t)
	srv := newTestServer(t, pool)

	owner := signup(t, srv.URL, "member@example.com")
	org := owner.provision()
	orgPath := "/api/v1/orgs/" + org.Org.ID.String()

	outsider := signup(t, srv.URL, "stranger@example.com")
	_, resp, err := dialLive(t, outsider, orgPath+"/live/projects")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = dialLive(t, owner, orgPath+"/live/invoices")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
