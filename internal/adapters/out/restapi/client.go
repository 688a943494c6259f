// Package restapi is the client of the marketplace REST backend and its
// auth endpoint. It implements ports.TrackingClient, ports.Authenticator
// and the hub's topic authorizer on top of them.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trackinghub/internal/core/domain/model/agent"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/domain/model/order"
	"trackinghub/internal/core/ports"
	"trackinghub/internal/metrics"
	"trackinghub/internal/pkg/errs"
)

// DefaultTimeout bounds each backend call unless the caller's context is shorter.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is read into the error.
const maxErrorBody = 4 << 10

// Client calls the REST backend on behalf of the token given per call.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

// NewClient creates a client for the backend rooted at baseURL.
//
// Example:
//
//	client, err := restapi.NewClient("https://api.example.com", restapi.WithTimeout(5*time.Second))
//	if err != nil {
//	    return err
//	}
//	snapshot, err := client.GetOrderTracking(ctx, token, 42)
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errs.NewValueIsInvalidErrorWithCause("baseURL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errs.NewValueIsInvalidErrorWithCause("baseURL", fmt.Errorf("unsupported scheme %q", u.Scheme))
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "restapi")

	return c, nil
}

// GetOrderTracking fetches GET /orders/{id}/tracking.
func (c *Client) GetOrderTracking(ctx context.Context, token string, orderID kernel.ID) (ports.OrderTracking, error) {
	resource := "order " + orderID.String()

	var resp orderTrackingResponse
	if err := c.do(ctx, "get_order_tracking", http.MethodGet, "/orders/"+orderID.String()+"/tracking",
		token, resource, nil, &resp); err != nil {
		return ports.OrderTracking{}, err
	}

	snapshot, err := resp.toDomain()
	if err != nil {
		return ports.OrderTracking{}, errs.NewSnapshotFetchFailedError(resource, err)
	}
	if snapshot.Order.ID() != orderID {
		return ports.OrderTracking{}, errs.NewSnapshotFetchFailedError(resource,
			fmt.Errorf("backend returned order %s", snapshot.Order.ID()))
	}
	return snapshot, nil
}

// GetAgentStatus fetches GET /agents/{id}/status.
func (c *Client) GetAgentStatus(ctx context.Context, token string, agentID kernel.ID) (*agent.Agent, error) {
	resource := "agent " + agentID.String()

	var resp agentStatusResponse
	if err := c.do(ctx, "get_agent_status", http.MethodGet, "/agents/"+agentID.String()+"/status",
		token, resource, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Agent == nil {
		return nil, errs.NewSnapshotFetchFailedError(resource, errs.NewValueIsRequiredError("agent"))
	}

	a, err := resp.Agent.toDomain()
	if err != nil {
		return nil, errs.NewSnapshotFetchFailedError(resource, err)
	}
	return a, nil
}

// UpdateOrderStatus sends PATCH /orders/{id}/status.
func (c *Client) UpdateOrderStatus(ctx context.Context, token string, orderID kernel.ID, status order.Status) error {
	if err := status.Validate(); err != nil {
		return err
	}

	body := orderStatusRequest{DeliveryStatus: status.String()}
	return c.do(ctx, "update_order_status", http.MethodPatch, "/orders/"+orderID.String()+"/status",
		token, "order "+orderID.String(), body, nil)
}

// UpdateAgentLocation sends PATCH /agents/{id}/status with the coordinates.
func (c *Client) UpdateAgentLocation(ctx context.Context, token string, sample agent.LocationSample) error {
	if err := sample.Validate(); err != nil {
		return err
	}

	body := agentLocationRequest{Latitude: sample.Lat(), Longitude: sample.Lng()}
	return c.do(ctx, "update_agent_location", http.MethodPatch, "/agents/"+sample.AgentID().String()+"/status",
		token, "agent "+sample.AgentID().String(), body, nil)
}

// Authenticate resolves token through GET /auth/profile.
func (c *Client) Authenticate(ctx context.Context, token string) (ports.Credential, error) {
	if token == "" {
		return ports.Credential{}, errs.NewUnauthorizedError("empty token")
	}

	var resp profileResponse
	if err := c.do(ctx, "auth_profile", http.MethodGet, "/auth/profile", token, "profile", nil, &resp); err != nil {
		if errors.Is(err, errs.ErrObjectNotFound) {
			return ports.Credential{}, errs.NewUnauthorizedErrorWithCause("profile", err)
		}
		return ports.Credential{}, err
	}

	cred, err := resp.User.toCredential(token)
	if err != nil {
		return ports.Credential{}, errs.NewUnauthorizedErrorWithCause("profile", err)
	}
	return cred, nil
}

// Authorize lets the backend decide whether cred may observe topic: the
// subscriber must be able to read the order's tracking, or the agent's
// status, with its own token.
func (c *Client) Authorize(ctx context.Context, cred ports.Credential, topic kernel.Topic) error {
	var err error
	switch {
	case topic.IsOrder():
		_, err = c.GetOrderTracking(ctx, cred.Token, topic.ID())
	case topic.IsAgent():
		_, err = c.GetAgentStatus(ctx, cred.Token, topic.ID())
	default:
		return kernel.ErrTopicIsNotConstructed
	}

	if errors.Is(err, errs.ErrObjectNotFound) {
		return errs.NewUnauthorizedErrorWithCause(topic.String(), err)
	}
	return err
}

func (c *Client) do(
	ctx context.Context,
	operation, method, path, token, resource string,
	in, out any,
) error {
	start := time.Now()
	defer func() {
		metrics.RestRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return errs.NewSnapshotFetchFailedError(resource, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.NewSnapshotFetchFailedError(resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := readError(resp)
		c.logger.DebugContext(ctx, "backend call failed",
			"operation", operation,
			"status", resp.StatusCode,
			"error", statusErr,
		)
		return classifyStatus(resp.StatusCode, resource, statusErr)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.NewSnapshotFetchFailedError(resource, err)
	}
	return nil
}

func readError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload errorResponse
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return fmt.Errorf("%s: %s", resp.Status, payload.Error)
	}
	return errors.New(resp.Status)
}

func classifyStatus(code int, resource string, cause error) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errs.NewUnauthorizedErrorWithCause(resource, cause)
	case http.StatusNotFound:
		return errs.NewObjectNotFoundErrorWithCause("resource", resource, cause)
	default:
		return errs.NewSnapshotFetchFailedError(resource, cause)
	}
}
