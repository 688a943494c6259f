package agentfeed

import (
	"context"
	"testing"
	"time"

	"trackinghub/internal/codec"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/domain/model/order"
	"trackinghub/internal/geo"
	"trackinghub/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEmitter struct {
	mock.Mock
}

func (m *mockEmitter) Emit(ctx context.Context, msg codec.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type sliceProvider []geo.Fix

func (p sliceProvider) Watch(context.Context, geo.Options) (<-chan geo.Fix, error) {
	ch := make(chan geo.Fix, len(p))
	for _, fix := range p {
		ch <- fix
	}
	close(ch)
	return ch, nil
}

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestFeeder(t *testing.T, p geo.Provider, e Emitter) *Feeder {
	t.Helper()
	f, err := NewFeeder(7, p, e, geo.DefaultOptions(), nil)
	require.NoError(t, err)
	f.now = func() time.Time { return now }
	return f
}

func TestFeeder_Run(t *testing.T) {
	provider := sliceProvider{
		{Lat: -1.28, Lng: 36.81, ObservedAt: now.Add(-time.Second)},
		{Lat: 95, Lng: 36.81, ObservedAt: now},
		{Lat: -1.29, Lng: 36.82, ObservedAt: now.Add(-time.Minute)},
		{Err: geo.ErrTimeout},
		{Lat: -1.30, Lng: 36.83, ObservedAt: now},
	}
	e := &mockEmitter{}
	e.On("Emit", mock.Anything, mock.MatchedBy(func(msg codec.Message) bool {
		return msg.Type == codec.TypeLocationUpdate && msg.Topic == "agent:7"
	})).Return(nil).Once()
	e.On("Emit", mock.Anything, mock.Anything).Return(errs.ErrTransportDropped).Once()

	f := newTestFeeder(t, provider, e)
	require.NoError(t, f.Run(context.Background()))

	assert.Equal(t, Stats{Sent: 1, Invalid: 1, Stale: 1, Failed: 1}, f.Stats())
	e.AssertExpectations(t)

	first := e.Calls[0].Arguments.Get(1).(codec.Message)
	sample, err := codec.DecodeLocation(first.Payload)
	require.NoError(t, err)
	assert.Equal(t, kernel.ID(7), sample.AgentID())
	assert.InDelta(t, -1.28, sample.Lat(), 1e-9)
}

func TestFeeder_RequestStatus(t *testing.T) {
	e := &mockEmitter{}
	e.On("Emit", mock.Anything, mock.Anything).Return(nil).Once()
	f := newTestFeeder(t, sliceProvider{}, e)

	require.NoError(t, f.RequestStatus(context.Background(), 42, order.OutForDelivery))

	msg := e.Calls[0].Arguments.Get(1).(codec.Message)
	assert.Equal(t, codec.TypeStatusUpdate, msg.Type)
	assert.Equal(t, "order:42", msg.Topic)
	req, err := codec.DecodeStatusRequest(msg.Payload)
	require.NoError(t, err)
	assert.Equal(t, order.OutForDelivery, req.ToStatus)
}

func TestNewFeeder(t *testing.T) {
	_, err := NewFeeder(0, sliceProvider{}, &mockEmitter{}, geo.Options{}, nil)
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)

	_, err = NewFeeder(7, nil, &mockEmitter{}, geo.Options{}, nil)
	require.ErrorIs(t, err, errs.ErrValueIsRequired)

	_, err = NewFeeder(7, sliceProvider{}, nil, geo.Options{}, nil)
	require.ErrorIs(t, err, errs.ErrValueIsRequired)

	f, err := NewFeeder(7, sliceProvider{}, &mockEmitter{}, geo.Options{}, nil)
	require.NoError(t, err)
	require.NoError(t, f.Run(context.Background()))
	assert.Equal(t, Stats{}, f.Stats())
}
