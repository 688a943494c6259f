package commands_test

import (
	"context"
	"sync"
	"time"

	"trackinghub/internal/core/domain/model/agent"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/domain/model/order"
	"trackinghub/internal/core/ports"
	"trackinghub/internal/hub"

	"github.com/stretchr/testify/mock"
)

type MockLocationRepository struct{ mock.Mock }

func (m *MockLocationRepository) Save(ctx context.Context, s agent.LocationSample) (bool, error) {
	args := m.Called(ctx, s)
	return args.Bool(0), args.Error(1)
}

func (m *MockLocationRepository) Get(ctx context.Context, id kernel.ID) (agent.LocationSample, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(agent.LocationSample), args.Error(1)
}

func (m *MockLocationRepository) GetUnflushed(ctx context.Context, limit int) ([]agent.LocationSample, error) {
	args := m.Called(ctx, limit)
	samples, _ := args.Get(0).([]agent.LocationSample)
	return samples, args.Error(1)
}

func (m *MockLocationRepository) MarkFlushed(ctx context.Context, s agent.LocationSample) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

type MockTransitionRepository struct{ mock.Mock }

func (m *MockTransitionRepository) Add(ctx context.Context, ev order.StatusEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

type MockUoW struct{ mock.Mock }

func (m *MockUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) LocationRepository() ports.LocationRepository {
	args := m.Called()
	return args.Get(0).(ports.LocationRepository)
}

func (m *MockUoW) TransitionRepository() ports.TransitionRepository {
	args := m.Called()
	return args.Get(0).(ports.TransitionRepository)
}

type MockUoWFactory struct{ mock.Mock }

func (m *MockUoWFactory) Create() ports.UnitOfWork {
	args := m.Called()
	return args.Get(0).(ports.UnitOfWork)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(topic kernel.Topic, ev hub.Event) int {
	args := m.Called(topic, ev)
	return args.Int(0)
}

type MockStatusClient struct{ mock.Mock }

func (m *MockStatusClient) GetOrderTracking(ctx context.Context, token string, id kernel.ID) (ports.OrderTracking, error) {
	args := m.Called(ctx, token, id)
	return args.Get(0).(ports.OrderTracking), args.Error(1)
}

func (m *MockStatusClient) UpdateOrderStatus(ctx context.Context, token string, id kernel.ID, s order.Status) error {
	args := m.Called(ctx, token, id, s)
	return args.Error(0)
}

type MockLocationWriter struct{ mock.Mock }

func (m *MockLocationWriter) UpdateAgentLocation(ctx context.Context, token string, s agent.LocationSample) error {
	args := m.Called(ctx, token, s)
	return args.Error(0)
}

// backendStub is a stateful REST backend holding one order.
type backendStub struct {
	mu      sync.Mutex
	order   kernel.ID
	status  order.Status
	agentID kernel.ID
	patches int
}

func (b *backendStub) GetOrderTracking(_ context.Context, _ string, id kernel.ID) (ports.OrderTracking, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	agentID := b.agentID
	o, err := order.RestoreOrder(id, b.status, "Kenyatta Ave 1", "Moi Ave 9", &agentID, time.Now())
	if err != nil {
		return ports.OrderTracking{}, err
	}
	return ports.OrderTracking{Order: o}, nil
}

func (b *backendStub) UpdateOrderStatus(_ context.Context, _ string, _ kernel.ID, s order.Status) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.status = s
	b.patches++
	return nil
}

func agentCredential(id kernel.ID) ports.Credential {
	return ports.Credential{Token: "agent-token", UserID: 100 + id, Role: ports.RoleAgent, AgentID: &id}
}

func buyerCredential() ports.Credential {
	return ports.Credential{Token: "buyer-token", UserID: 5, Role: ports.RoleBuyer}
}
