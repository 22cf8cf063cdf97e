package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aliuyar1234/printshop/internal/app"
	"github.com/aliuyar1234/printshop/internal/auth"
	"github.com/aliuyar1234/printshop/internal/config"
	"github.com/aliuyar1234/printshop/internal/live"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

type errorEnvelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func testConfig() *config.Config {
	return &config.Config{
		Env:              "dev",
		HTTPAddr:         ":0",
		BaseURL:          "http://localhost",
		DBDSN:            "unused",
		JWTSecret:        "test-secret",
		LogLevel:         "error",
		SessionDays:      7,
		LoginRateLimit:   100,
		DesignHourlyRate: 25,
	}
}

// newTestServer serves the full router over pool with an in-process bus.
func newTestServer(t *testing.T, pool *pgxpool.Pool) *httptest.Server {
	t.Helper()

	cfg := testConfig()
	bus := live.NewMemoryBus()
	hub := live.NewHub()
	services := app.NewServices(pool, cfg, bus, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx, bus) }()

	srv := httptest.NewServer(app.NewRouter(app.RouterDeps{
		Config:   cfg,
		DB:       pool,
		Services: services,
		Live:     live.NewHandler(hub, services.LiveSources(), live.DefaultConfig(), nil),
	}))
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
		cancel()
	})
	return srv
}

// apiClient calls the API with a bearer token.
type apiClient struct {
	t     *testing.T
	base  string
	token string
	id    uuid.UUID
}

func signup(t *testing.T, base, email string) *apiClient {
	t.Helper()

	csrf, err := auth.GenerateCSRFToken()
	require.NoError(t, err)

	body, err := json.Marshal(map[string]any{"email": email, "password": "password123"})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, base+"/api/v1/auth/signup", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: auth.CSRFCookieName, Value: csrf})
	req.Header.Set(auth.CSRFHeaderName, csrf)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", raw)

	var env struct {
		Data auth.SessionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	require.NotEmpty(t, env.Data.Token)

	return &apiClient{t: t, base: base, token: env.Data.Token, id: env.Data.User.ID}
}

// do sends body as JSON and returns the raw response body after checking the status.
func (c *apiClient) do(method, path string, body any, wantStatus int) []byte {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	require.Equal(c.t, wantStatus, resp.StatusCode, "%s %s: %s", method, path, raw)
	return raw
}

// data decodes the success envelope's data into out.
func (c *apiClient) data(method, path string, body any, wantStatus int, out any) {
	c.t.Helper()
	raw := c.do(method, path, body, wantStatus)
	env := struct {
		RequestID string `json:"request_id"`
		Data      any    `json:"data"`
	}{Data: out}
	require.NoError(c.t, json.Unmarshal(raw, &env))
	require.NotEmpty(c.t, env.RequestID)
}

func (c *apiClient) errorCode(method, path string, body any, wantStatus int) string {
	c.t.Helper()
	var env errorEnvelope
	require.NoError(c.t, json.Unmarshal(c.do(method, path, body, wantStatus), &env))
	return env.Error.Code
}

type sessionData struct {
	Session struct {
		State        string `json:"state"`
		Role         string `json:"role"`
		Organization *struct {
			ID uuid.UUID `json:"id"`
		} `json:"organization"`
		Invite *struct {
			OrgID uuid.UUID `json:"org_id"`
		} `json:"invite"`
	} `json:"session"`
}

type orgData struct {
	Org struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	} `json:"org"`
}

func (c *apiClient) session() sessionData {
	c.t.Helper()
	var s sessionData
	c.data(http.MethodGet, "/api/v1/session", nil, http.StatusOK, &s)
	return s
}

func (c *apiClient) provision() orgData {
	c.t.Helper()
	var o orgData
	c.data(http.MethodPost, "/api/v1/orgs/provision", nil, http.StatusCreated, &o)
	require.NotEqual(c.t, uuid.Nil, o.Org.ID)
	return o
}

func TestE2E_InviteQuoteDashboardAndDelete(t *testing.T) {
	pool := newTestDB(t)
	srv := newTestServer(t, pool)
	ctx := context.Background()

	owner := signup(t, srv.URL, "owner@example.com")
	require.Equal(t, "unassigned", owner.session().Session.State)

	org := owner.provision()
	orgPath := "/api/v1/orgs/" + org.Org.ID.String()

	s := owner.session()
	require.Equal(t, "active_member", s.Session.State)
	require.Equal(t, "owner", s.Session.Role)
	require.Equal(t, org.Org.ID, s.Session.Organization.ID)

	// Provisioning twice is refused.
	require.Equal(t, "conflict", owner.errorCode(http.MethodPost, "/api/v1/orgs/provision", nil, http.StatusConflict))

	// Invite an editor; the invitation mail lands in the outbox.
	editor := signup(t, srv.URL, "editor@example.com")
	owner.do(http.MethodPost, orgPath+"/invites", map[string]any{"email": "Editor@Example.com", "role": "editor"}, http.StatusCreated)

	var queued int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM mail_outbox WHERE recipient = 'editor@example.com'`).Scan(&queued))
	require.Equal(t, 1, queued)

	pending := editor.session()
	require.Equal(t, "pending_invite", pending.Session.State)
	require.Equal(t, org.Org.ID, pending.Session.Invite.OrgID)

	var accepted struct {
		Role string `json:"role"`
	}
	editor.data(http.MethodPost, orgPath+"/invites/accept", nil, http.StatusOK, &accepted)
	require.Equal(t, "editor", accepted.Role)
	require.Equal(t, "active_member", editor.session().Session.State)

	// Outsiders cannot see the organization or its resources.
	outsider := signup(t, srv.URL, "outsider@example.com")
	require.Equal(t, "not_found", outsider.errorCode(http.MethodGet, orgPath+"/materials", nil, http.StatusNotFound))

	// The editor stocks a material and quotes a project from it.
	editor.do(http.MethodPost, orgPath+"/materials", map[string]any{
		"name": "Galaxy Black", "brand": "Prusament", "type": "PLA",
		"price_per_kg": 20, "stock_grams": 100, "reorder_threshold": 200,
	}, http.StatusCreated)

	var created struct {
		Project struct {
			ID       uuid.UUID `json:"id"`
			Status   string    `json:"status"`
			Quantity int       `json:"quantity"`
		} `json:"project"`
	}
	editor.data(http.MethodPost, orgPath+"/projects", map[string]any{"name": "Bracket", "client_name": "Ada"}, http.StatusCreated, &created)
	require.Equal(t, "queued", created.Project.Status)
	require.Equal(t, 1, created.Project.Quantity)
	projectPath := orgPath + "/projects/" + created.Project.ID.String()

	quoteBody := map[string]any{"material": "PLA", "weight_grams": 100, "design_hours": 2, "margin_percent": 30}

	var preview struct {
		Quote struct {
			FinalPrice float64 `json:"final_price"`
		} `json:"quote"`
	}
	editor.data(http.MethodPost, orgPath+"/pricing/quote", quoteBody, http.StatusOK, &preview)
	require.Equal(t, 67.6, preview.Quote.FinalPrice)

	var saved struct {
		Project struct {
			Budget   float64 `json:"budget"`
			Material string  `json:"material"`
		} `json:"project"`
	}
	editor.data(http.MethodPost, projectPath+"/quote", quoteBody, http.StatusOK, &saved)
	require.Equal(t, 67.6, saved.Project.Budget)
	require.Equal(t, "PLA", saved.Project.Material)

	require.Equal(t, "unprocessable", editor.errorCode(http.MethodPost, orgPath+"/pricing/quote",
		map[string]any{"material": "ABS", "weight_grams": 10}, http.StatusUnprocessableEntity))

	editor.do(http.MethodPut, projectPath+"/status", map[string]any{"status": "completed"}, http.StatusOK)
	require.Equal(t, "conflict", editor.errorCode(http.MethodPost, projectPath+"/quote", quoteBody, http.StatusConflict))

	editor.do(http.MethodPost, orgPath+"/expenses", map[string]any{
		"description": "Filament restock", "amount": 42.5, "category": "Material", "spent_on": "2026-01-15",
	}, http.StatusCreated)
	editor.do(http.MethodPost, orgPath+"/clients", map[string]any{"name": "Ada Lovelace", "email": "ada@example.com"}, http.StatusCreated)

	var summary struct {
		ClientCount       int     `json:"client_count"`
		CompletedProjects int     `json:"completed_projects"`
		Revenue           float64 `json:"revenue"`
		TotalStockKg      float64 `json:"total_stock_kg"`
		LowStock          []any   `json:"low_stock"`
	}
	editor.data(http.MethodGet, orgPath+"/dashboard", nil, http.StatusOK, &summary)
	require.Equal(t, 1, summary.ClientCount)
	require.Equal(t, 1, summary.CompletedProjects)
	require.Equal(t, 67.6, summary.Revenue)
	require.Equal(t, 0.1, summary.TotalStockKg)
	require.Len(t, summary.LowStock, 1)

	// Demoted to viewer, the editor can read but no longer write.
	owner.do(http.MethodPut, orgPath+"/members/"+editor.id.String(), map[string]any{"role": "viewer"}, http.StatusOK)
	editor.do(http.MethodGet, orgPath+"/materials", nil, http.StatusOK)
	require.Equal(t, "forbidden", editor.errorCode(http.MethodPost, orgPath+"/clients", map[string]any{"name": "Grace"}, http.StatusForbidden))

	// Only the owner deletes, and only with the exact name.
	require.Equal(t, "forbidden", editor.errorCode(http.MethodDelete, orgPath, map[string]any{"confirm_name": org.Org.Name}, http.StatusForbidden))
	owner.do(http.MethodDelete, orgPath, map[string]any{"confirm_name": org.Org.Name + "x"}, http.StatusBadRequest)
	owner.do(http.MethodDelete, orgPath, map[string]any{"confirm_name": org.Org.Name}, http.StatusOK)

	for _, table := range []string{"clients", "projects", "materials", "expenses"} {
		var n int
		require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table+` WHERE org_id = $1`, org.Org.ID).Scan(&n))
		require.Zero(t, n, "table %s", table)
	}
	require.Equal(t, "unassigned", owner.session().Session.State)
	require.Equal(t, "unassigned", editor.session().Session.State)
}

func TestE2E_DeclineInviteProvisionsOwnOrg(t *testing.T) {
	pool := newTestDB(t)
	srv := newTestServer(t, pool)

	owner := signup(t, srv.URL, "boss@example.com")
	org := owner.provision()
	orgPath := "/api/v1/orgs/" + org.Org.ID.String()

	guest := signup(t, srv.URL, "guest@example.com")
	owner.do(http.MethodPost, orgPath+"/invites", map[string]any{"email": "guest@example.com"}, http.StatusCreated)

	var invites struct {
		Invites []struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"invites"`
	}
	owner.data(http.MethodGet, orgPath+"/invites", nil, http.StatusOK, &invites)
	require.Len(t, invites.Invites, 1)
	require.Equal(t, "viewer", invites.Invites[0].Role)

	// While the invite is pending the guest cannot provision.
	require.Equal(t, "conflict", guest.errorCode(http.MethodPost, "/api/v1/orgs/provision", nil, http.StatusConflict))

	var declined orgData
	guest.data(http.MethodPost, orgPath+"/invites/decline", nil, http.StatusCreated, &declined)
	require.NotEqual(t, org.Org.ID, declined.Org.ID)

	s := guest.session()
	require.Equal(t, "active_member", s.Session.State)
	require.Equal(t, declined.Org.ID, s.Session.Organization.ID)

	owner.data(http.MethodGet, orgPath+"/invites", nil, http.StatusOK, &invites)
	require.Empty(t, invites.Invites)
}
