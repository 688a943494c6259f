package restapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"trackinghub/internal/adapters/out/restapi"
	"trackinghub/internal/core/domain/model/agent"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/domain/model/order"
	"trackinghub/internal/core/ports"
	"trackinghub/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

type backend struct {
	t        *testing.T
	mu       sync.Mutex
	requests []recordedRequest
	mux      *http.ServeMux
}

func newBackend(t *testing.T) (*backend, *restapi.Client) {
	t.Helper()

	b := &backend{t: t, mux: http.NewServeMux()}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
		if r.Body != nil && r.ContentLength != 0 {
			_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		}
		b.mu.Lock()
		b.requests = append(b.requests, rec)
		b.mu.Unlock()
		b.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := restapi.NewClient(srv.URL+"/api", restapi.WithTimeout(2*time.Second))
	require.NoError(t, err)
	return b, client
}

func (b *backend) handle(pattern string, status int, body string) {
	b.mux.HandleFunc(pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func (b *backend) last() recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(b.t, b.requests)
	return b.requests[len(b.requests)-1]
}

const trackingBody = `{
	"order": {"id": 42, "delivery_status": "out_for_delivery", "delivery_agent_id": 7,
		"pickup_address": "Kenyatta Ave 1", "updated_at": "2026-10-01T12:00:00Z"},
	"tracking": {
		"status": "out_for_delivery",
		"dropoff": {"address": "Moi Ave 9"},
		"agent": {"id": 7, "name": "Wanjiku", "phone": "+254700000007", "is_available": false,
			"location": {"lat": "-1.2864", "lng": 36.8172, "updated_at": "2026-10-01T12:05:00Z"}}
	}
}`

func TestClient_GetOrderTracking(t *testing.T) {
	b, client := newBackend(t)
	b.handle("GET /api/orders/42/tracking", http.StatusOK, trackingBody)

	snapshot, err := client.GetOrderTracking(t.Context(), "buyer-token", 42)
	require.NoError(t, err)

	assert.Equal(t, "Bearer buyer-token", b.last().Auth)
	require.NotNil(t, snapshot.Order)
	assert.Equal(t, kernel.ID(42), snapshot.Order.ID())
	assert.Equal(t, order.OutForDelivery, snapshot.Order.Status())
	assert.Equal(t, "Kenyatta Ave 1", snapshot.Order.PickupAddress())
	assert.Equal(t, "Moi Ave 9", snapshot.Order.DropoffAddress())
	require.NotNil(t, snapshot.Order.Agent())
	assert.Equal(t, kernel.ID(7), *snapshot.Order.Agent())

	require.NotNil(t, snapshot.Agent)
	assert.Equal(t, "Wanjiku", snapshot.Agent.Name())
	loc := snapshot.Agent.LastKnownLocation()
	require.NotNil(t, loc)
	assert.InDelta(t, -1.2864, loc.Coordinates.Lat(), 1e-9)
	assert.InDelta(t, 36.8172, loc.Coordinates.Lng(), 1e-9)
	assert.True(t, time.Date(2026, 10, 1, 12, 5, 0, 0, time.UTC).Equal(loc.ObservedAt))
}

func TestClient_GetOrderTracking_UnassignedOrder(t *testing.T) {
	b, client := newBackend(t)
	b.handle("GET /api/orders/42/tracking", http.StatusOK,
		`{"order": {"id": 42, "delivery_status": "processing"}, "tracking": {"status": "processing"}}`)

	snapshot, err := client.GetOrderTracking(t.Context(), "buyer-token", 42)
	require.NoError(t, err)
	assert.Equal(t, order.Processing, snapshot.Order.Status())
	assert.Nil(t, snapshot.Order.Agent())
	assert.Nil(t, snapshot.Agent)
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: errs.ErrUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, wantErr: errs.ErrUnauthorized},
		{name: "not found", status: http.StatusNotFound, wantErr: errs.ErrObjectNotFound},
		{name: "server error", status: http.StatusBadGateway, wantErr: errs.ErrSnapshotFetchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, client := newBackend(t)
			b.handle("GET /api/orders/42/tracking", tt.status, `{"error":"nope"}`)

			_, err := client.GetOrderTracking(t.Context(), "token", 42)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestClient_MalformedSnapshotIsRetryable(t *testing.T) {
	b, client := newBackend(t)
	b.handle("GET /api/orders/42/tracking", http.StatusOK, `{"order": {"id": 42, "delivery_status": "assigned"}}`)

	_, err := client.GetOrderTracking(t.Context(), "token", 42)
	require.ErrorIs(t, err, errs.ErrSnapshotFetchFailed, "assigned order without agent violates the order invariant")
	assert.True(t, errs.IsRetryable(err))
}

func TestClient_UnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client, err := restapi.NewClient(srv.URL)
	require.NoError(t, err)

	_, err = client.GetAgentStatus(t.Context(), "token", 7)
	require.ErrorIs(t, err, errs.ErrSnapshotFetchFailed)
}

func TestClient_GetAgentStatus(t *testing.T) {
	b, client := newBackend(t)
	b.handle("GET /api/agents/7/status", http.StatusOK,
		`{"agent": {"id": 7, "name": "Wanjiku", "phone": "+254700000007", "is_available": true}}`)

	a, err := client.GetAgentStatus(t.Context(), "token", 7)
	require.NoError(t, err)
	assert.Equal(t, kernel.ID(7), a.ID())
	assert.True(t, a.IsAvailable())
	assert.Nil(t, a.LastKnownLocation())
}

func TestClient_UpdateOrderStatus(t *testing.T) {
	b, client := newBackend(t)
	b.handle("PATCH /api/orders/42/status", http.StatusOK, `{"order": {"id": 42}}`)

	require.NoError(t, client.UpdateOrderStatus(t.Context(), "agent-token", 42, order.Delivered))

	req := b.last()
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "Bearer agent-token", req.Auth)
	assert.Equal(t, map[string]any{"delivery_status": "delivered"}, req.Body)
}

func TestClient_UpdateAgentLocation(t *testing.T) {
	b, client := newBackend(t)
	b.handle("PATCH /api/agents/7/status", http.StatusNoContent, ``)

	sample, err := agent.NewLocationSample(7, -1.2864, 36.8172, time.Now())
	require.NoError(t, err)
	require.NoError(t, client.UpdateAgentLocation(t.Context(), "service-token", sample))

	assert.Equal(t, map[string]any{"latitude": -1.2864, "longitude": 36.8172}, b.last().Body)
}

func TestClient_Authenticate(t *testing.T) {
	b, client := newBackend(t)
	b.handle("GET /api/auth/profile", http.StatusOK,
		`{"user": {"id": 107, "role": "delivery_agent", "delivery_agent_id": 7}}`)

	cred, err := client.Authenticate(t.Context(), "agent-token")
	require.NoError(t, err)
	assert.Equal(t, "agent-token", cred.Token)
	assert.Equal(t, kernel.ID(107), cred.UserID)
	assert.Equal(t, ports.RoleAgent, cred.Role)
	assert.True(t, cred.IsAgentID(7))
}

func TestClient_Authenticate_Rejections(t *testing.T) {
	t.Run("empty token", func(t *testing.T) {
		_, client := newBackend(t)
		_, err := client.Authenticate(t.Context(), "")
		require.ErrorIs(t, err, errs.ErrUnauthorized)
	})

	t.Run("expired token", func(t *testing.T) {
		b, client := newBackend(t)
		b.handle("GET /api/auth/profile", http.StatusUnauthorized, `{"error":"token expired"}`)
		_, err := client.Authenticate(t.Context(), "old")
		require.ErrorIs(t, err, errs.ErrUnauthorized)
	})

	t.Run("agent profile without agent id", func(t *testing.T) {
		b, client := newBackend(t)
		b.handle("GET /api/auth/profile", http.StatusOK, `{"user": {"id": 107, "role": "delivery_agent"}}`)
		_, err := client.Authenticate(t.Context(), "agent-token")
		require.ErrorIs(t, err, errs.ErrUnauthorized)
	})
}

func TestClient_Authorize(t *testing.T) {
	b, client := newBackend(t)
	b.handle("GET /api/orders/42/tracking", http.StatusOK, trackingBody)
	b.handle("GET /api/orders/99/tracking", http.StatusForbidden, `{"error":"not your order"}`)
	b.handle("GET /api/agents/7/status", http.StatusOK, `{"agent": {"id": 7, "name": "Wanjiku"}}`)
	b.handle("GET /api/agents/8/status", http.StatusNotFound, `{}`)

	buyer := ports.Credential{Token: "buyer-token", UserID: 5, Role: ports.RoleBuyer}

	require.NoError(t, client.Authorize(t.Context(), buyer, kernel.OrderTopic(42)))
	require.NoError(t, client.Authorize(t.Context(), buyer, kernel.AgentTopic(7)))
	require.ErrorIs(t, client.Authorize(t.Context(), buyer, kernel.OrderTopic(99)), errs.ErrUnauthorized)
	require.ErrorIs(t, client.Authorize(t.Context(), buyer, kernel.AgentTopic(8)), errs.ErrUnauthorized)
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := restapi.NewClient("ftp://example.com")
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)
}
