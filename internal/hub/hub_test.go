package hub_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trackinghub/internal/core/domain/model/agent"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/domain/model/order"
	"trackinghub/internal/core/ports"
	"trackinghub/internal/hub"
	"trackinghub/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type chanSink struct {
	ch chan hub.Event
}

func newChanSink() *chanSink {
	return &chanSink{ch: make(chan hub.Event, 256)}
}

func (s *chanSink) Deliver(ev hub.Event) error {
	s.ch <- ev
	return nil
}

func (s *chanSink) next(t *testing.T) hub.Event {
	t.Helper()
	select {
	case ev := <-s.ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return hub.Event{}
	}
}

func (s *chanSink) assertEmpty(t *testing.T) {
	t.Helper()
	select {
	case ev := <-s.ch:
		t.Fatalf("unexpected event on %s", ev.Topic)
	case <-time.After(50 * time.Millisecond):
	}
}

type mockAuthorizer struct {
	mock.Mock
}

func (m *mockAuthorizer) Authorize(ctx context.Context, cred ports.Credential, topic kernel.Topic) error {
	args := m.Called(ctx, cred, topic)
	return args.Error(0)
}

func buyer() ports.Credential {
	return ports.Credential{Token: "buyer-token", UserID: 11, Role: ports.RoleBuyer}
}

func agentCred(id kernel.ID) ports.Credential {
	return ports.Credential{Token: "agent-token", UserID: 21, Role: ports.RoleAgent, AgentID: &id}
}

func statusEvent(t *testing.T, orderID kernel.ID, from, to order.Status) hub.Event {
	t.Helper()
	ev, err := order.NewStatusEvent(orderID, from, to, nil, t0)
	require.NoError(t, err)
	return hub.StatusEvent(ev)
}

func register(t *testing.T, h *hub.Hub, cred ports.Credential) (kernel.UUID, *chanSink) {
	t.Helper()
	id := kernel.NewUUID()
	sink := newChanSink()
	require.NoError(t, h.Register(id, cred, sink))
	t.Cleanup(func() { h.Unregister(id) })
	return id, sink
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	h := hub.New()

	accepted := h.Publish(kernel.OrderTopic(42), statusEvent(t, 42, order.Assigned, order.OutForDelivery))

	assert.Equal(t, 0, accepted)
	assert.Equal(t, 0, h.Subscribers(kernel.OrderTopic(42)))
}

func TestHub_FanOutByTopic(t *testing.T) {
	ctx := context.Background()
	h := hub.New(hub.WithAuthorizer(hub.AllowAll))

	a, sinkA := register(t, h, buyer())
	b, sinkB := register(t, h, buyer())
	c, sinkC := register(t, h, buyer())

	require.NoError(t, h.Subscribe(ctx, a, kernel.OrderTopic(42)))
	require.NoError(t, h.Subscribe(ctx, b, kernel.OrderTopic(99)))
	require.NoError(t, h.Subscribe(ctx, c, kernel.OrderTopic(42)))
	require.NoError(t, h.Subscribe(ctx, c, kernel.OrderTopic(99)))

	accepted := h.Publish(kernel.OrderTopic(42), statusEvent(t, 42, order.Assigned, order.OutForDelivery))
	assert.Equal(t, 2, accepted)

	for _, sink := range []*chanSink{sinkA, sinkC} {
		ev := sink.next(t)
		assert.Equal(t, kernel.OrderTopic(42), ev.Topic)
		require.NotNil(t, ev.Status)
		assert.Equal(t, order.OutForDelivery, ev.Status.To)
		assert.False(t, ev.PublishedAt.IsZero())
	}
	sinkB.assertEmpty(t)

	h.Publish(kernel.OrderTopic(99), statusEvent(t, 99, order.OutForDelivery, order.Delivered))
	assert.Equal(t, kernel.OrderTopic(99), sinkB.next(t).Topic)
	assert.Equal(t, kernel.OrderTopic(99), sinkC.next(t).Topic)
	sinkA.assertEmpty(t)
}

func TestHub_PreservesPublishOrderPerTopic(t *testing.T) {
	ctx := context.Background()
	h := hub.New(hub.WithBufferSize(128))
	id, sink := register(t, h, agentCred(7))
	require.NoError(t, h.Subscribe(ctx, id, kernel.AgentTopic(7)))

	for i := range 100 {
		s, err := agent.NewLocationSample(7, float64(i%90), 36.8, t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		h.Publish(kernel.AgentTopic(7), hub.LocationEvent(s))
	}

	for i := range 100 {
		ev := sink.next(t)
		require.NotNil(t, ev.Location)
		assert.Equal(t, t0.Add(time.Duration(i)*time.Second), ev.Location.ObservedAt())
	}
}

func TestHub_LateJoinerSeesOnlyLaterEvents(t *testing.T) {
	ctx := context.Background()
	h := hub.New(hub.WithAuthorizer(hub.AllowAll))
	early, earlySink := register(t, h, buyer())
	late, lateSink := register(t, h, buyer())

	require.NoError(t, h.Subscribe(ctx, early, kernel.OrderTopic(42)))
	h.Publish(kernel.OrderTopic(42), statusEvent(t, 42, order.Processing, order.Assigned))

	require.NoError(t, h.Subscribe(ctx, late, kernel.OrderTopic(42)))
	h.Publish(kernel.OrderTopic(42), statusEvent(t, 42, order.Assigned, order.OutForDelivery))

	assert.Equal(t, order.Assigned, earlySink.next(t).Status.To)
	assert.Equal(t, order.OutForDelivery, earlySink.next(t).Status.To)
	assert.Equal(t, order.OutForDelivery, lateSink.next(t).Status.To)
	lateSink.assertEmpty(t)
}

func TestHub_Authorization(t *testing.T) {
	ctx := context.Background()

	t.Run("own agent topic is admitted without the authorizer", func(t *testing.T) {
		auth := &mockAuthorizer{}
		h := hub.New(hub.WithAuthorizer(auth))
		id, _ := register(t, h, agentCred(7))

		require.NoError(t, h.Subscribe(ctx, id, kernel.AgentTopic(7)))
		auth.AssertNotCalled(t, "Authorize", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("order topic is delegated", func(t *testing.T) {
		auth := &mockAuthorizer{}
		auth.On("Authorize", mock.Anything, buyer(), kernel.OrderTopic(42)).Return(nil).Once()
		h := hub.New(hub.WithAuthorizer(auth))
		id, _ := register(t, h, buyer())

		require.NoError(t, h.Subscribe(ctx, id, kernel.OrderTopic(42)))
		require.NoError(t, h.Subscribe(ctx, id, kernel.OrderTopic(42)))

		auth.AssertExpectations(t)
		assert.Equal(t, 1, h.Subscribers(kernel.OrderTopic(42)))
	})

	t.Run("rejected topic wraps ErrUnauthorized", func(t *testing.T) {
		auth := &mockAuthorizer{}
		auth.On("Authorize", mock.Anything, mock.Anything, kernel.AgentTopic(8)).Return(errors.New("forbidden"))
		h := hub.New(hub.WithAuthorizer(auth))
		id, sink := register(t, h, agentCred(7))

		err := h.Subscribe(ctx, id, kernel.AgentTopic(8))

		require.ErrorIs(t, err, errs.ErrUnauthorized)
		assert.Equal(t, 0, h.Subscribers(kernel.AgentTopic(8)))

		s, sErr := agent.NewLocationSample(8, 1, 1, t0)
		require.NoError(t, sErr)
		h.Publish(kernel.AgentTopic(8), hub.LocationEvent(s))
		sink.assertEmpty(t)
	})

	t.Run("default authorizer denies delegated topics", func(t *testing.T) {
		h := hub.New()
		id, _ := register(t, h, buyer())

		require.ErrorIs(t, h.Subscribe(ctx, id, kernel.OrderTopic(42)), errs.ErrUnauthorized)
	})
}

func TestHub_UnknownConnection(t *testing.T) {
	h := hub.New(hub.WithAuthorizer(hub.AllowAll))

	err := h.Subscribe(context.Background(), kernel.NewUUID(), kernel.OrderTopic(1))

	require.ErrorIs(t, err, errs.ErrObjectNotFound)
	h.Unsubscribe(kernel.NewUUID(), kernel.OrderTopic(1))
	h.UnsubscribeAll(kernel.NewUUID())
	h.Unregister(kernel.NewUUID())
}

func TestHub_RegisterTwice(t *testing.T) {
	h := hub.New()
	id, _ := register(t, h, buyer())

	require.ErrorIs(t, h.Register(id, buyer(), newChanSink()), errs.ErrValueIsInvalid)
	require.ErrorIs(t, h.Register(kernel.UUID{}, buyer(), newChanSink()), errs.ErrValueIsRequired)
}

func TestHub_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	h := hub.New(hub.WithAuthorizer(hub.AllowAll))
	id, sink := register(t, h, buyer())

	require.NoError(t, h.Subscribe(ctx, id, kernel.OrderTopic(42)))
	require.NoError(t, h.Subscribe(ctx, id, kernel.OrderTopic(99)))

	h.Unsubscribe(id, kernel.OrderTopic(42))
	h.Unsubscribe(id, kernel.OrderTopic(42))

	h.Publish(kernel.OrderTopic(42), statusEvent(t, 42, order.Assigned, order.OutForDelivery))
	h.Publish(kernel.OrderTopic(99), statusEvent(t, 99, order.Assigned, order.OutForDelivery))

	assert.Equal(t, kernel.OrderTopic(99), sink.next(t).Topic)
	sink.assertEmpty(t)
	assert.Equal(t, 0, h.Subscribers(kernel.OrderTopic(42)))

	h.UnsubscribeAll(id)
	h.Publish(kernel.OrderTopic(99), statusEvent(t, 99, order.OutForDelivery, order.Delivered))
	sink.assertEmpty(t)

	require.NoError(t, h.Subscribe(ctx, id, kernel.OrderTopic(99)), "connection stays registered")
}

func TestHub_NothingDeliveredAfterUnsubscribeReturns(t *testing.T) {
	ctx := context.Background()
	h := hub.New(hub.WithAuthorizer(hub.AllowAll))

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	var mu sync.Mutex
	delivered := 0
	sink := hub.SinkFunc(func(hub.Event) error {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		mu.Lock()
		delivered++
		mu.Unlock()
		return nil
	})

	id := kernel.NewUUID()
	require.NoError(t, h.Register(id, buyer(), sink))
	defer h.Unregister(id)
	require.NoError(t, h.Subscribe(ctx, id, kernel.OrderTopic(42)))

	for range 3 {
		h.Publish(kernel.OrderTopic(42), statusEvent(t, 42, order.Assigned, order.OutForDelivery))
	}
	<-entered

	done := make(chan struct{})
	go func() {
		h.Unsubscribe(id, kernel.OrderTopic(42))
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("unsubscribe returned while a delivery was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-done

	mu.Lock()
	assert.Equal(t, 1, delivered)
	mu.Unlock()

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, delivered, "queued events must be discarded")
	mu.Unlock()
}

func TestHub_SlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	ctx := context.Background()
	h := hub.New(hub.WithBufferSize(2))

	release := make(chan struct{})
	slow := hub.SinkFunc(func(hub.Event) error {
		<-release
		return nil
	})
	slowID := kernel.NewUUID()
	require.NoError(t, h.Register(slowID, agentCred(7), slow))
	require.NoError(t, h.Subscribe(ctx, slowID, kernel.AgentTopic(7)))

	s, err := agent.NewLocationSample(7, 1, 1, t0)
	require.NoError(t, err)

	done := make(chan int)
	go func() {
		accepted := 0
		for range 20 {
			accepted += h.Publish(kernel.AgentTopic(7), hub.LocationEvent(s))
		}
		done <- accepted
	}()

	select {
	case accepted := <-done:
		assert.Less(t, accepted, 20)
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	close(release)
	h.Unregister(slowID)
}

func TestHub_Unregister(t *testing.T) {
	ctx := context.Background()
	h := hub.New(hub.WithAuthorizer(hub.AllowAll))
	id := kernel.NewUUID()
	sink := newChanSink()
	require.NoError(t, h.Register(id, buyer(), sink))
	require.NoError(t, h.Subscribe(ctx, id, kernel.OrderTopic(42)))

	h.Unregister(id)

	assert.Equal(t, 0, h.Publish(kernel.OrderTopic(42), statusEvent(t, 42, order.Assigned, order.OutForDelivery)))
	sink.assertEmpty(t)
	require.ErrorIs(t, h.Subscribe(ctx, id, kernel.OrderTopic(42)), errs.ErrObjectNotFound)
	require.NoError(t, h.Register(id, buyer(), sink), "id may be reused after unregister")
	h.Unregister(id)
}

func TestHub_SinkErrorDoesNotStopDelivery(t *testing.T) {
	ctx := context.Background()
	h := hub.New(hub.WithAuthorizer(hub.AllowAll))

	calls := make(chan struct{}, 2)
	sink := hub.SinkFunc(func(hub.Event) error {
		calls <- struct{}{}
		return errors.New("write failed")
	})
	id := kernel.NewUUID()
	require.NoError(t, h.Register(id, buyer(), sink))
	defer h.Unregister(id)
	require.NoError(t, h.Subscribe(ctx, id, kernel.OrderTopic(1)))

	h.Publish(kernel.OrderTopic(1), statusEvent(t, 1, order.Processing, order.Cancelled))
	h.Publish(kernel.OrderTopic(1), statusEvent(t, 1, order.Processing, order.Cancelled))

	for range 2 {
		select {
		case <-calls:
		case <-time.After(time.Second):
			t.Fatal("delivery stopped after a sink error")
		}
	}
}

func TestHub_ConcurrentUse(t *testing.T) {
	ctx := context.Background()
	h := hub.New(hub.WithAuthorizer(hub.AllowAll), hub.WithBufferSize(8))
	topics := []kernel.Topic{kernel.OrderTopic(1), kernel.OrderTopic(2), kernel.AgentTopic(3)}
	ev := statusEvent(t, 1, order.Processing, order.Cancelled)

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := kernel.NewUUID()
			sink := hub.SinkFunc(func(hub.Event) error { return nil })
			if err := h.Register(id, buyer(), sink); err != nil {
				t.Error(err)
				return
			}
			defer h.Unregister(id)

			for i := range 200 {
				topic := topics[(w+i)%len(topics)]
				switch i % 4 {
				case 0:
					_ = h.Subscribe(ctx, id, topic)
				case 1:
					h.Publish(topic, ev)
				case 2:
					h.Unsubscribe(id, topic)
				default:
					if i%20 == 3 {
						h.UnsubscribeAll(id)
					}
				}
			}
		}()
	}
	wg.Wait()

	for _, topic := range topics {
		assert.Equal(t, 0, h.Subscribers(topic))
	}
}
