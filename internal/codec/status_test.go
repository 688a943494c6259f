package codec_test

import (
	"testing"

	"trackinghub/internal/codec"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/domain/model/order"
	"trackinghub/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStatusRequest(t *testing.T) {
	req, err := codec.DecodeStatusRequest([]byte(`{"orderId":42,"toStatus":"out_for_delivery"}`))
	require.NoError(t, err)
	assert.Equal(t, kernel.ID(42), req.OrderID)
	assert.Equal(t, order.OutForDelivery, req.ToStatus)

	for _, raw := range []string{
		`{"toStatus":"delivered"}`,
		`{"orderId":0,"toStatus":"delivered"}`,
		`{"orderId":42,"toStatus":"teleported"}`,
		`{"orderId":42}`,
		`[]`,
	} {
		_, err := codec.DecodeStatusRequest([]byte(raw))
		require.ErrorIs(t, err, errs.ErrInvalidPayload, raw)
	}
}

func TestEncodeStatusRequest(t *testing.T) {
	raw, err := codec.EncodeStatusRequest(codec.StatusRequest{OrderID: 42, ToStatus: order.Delivered})
	require.NoError(t, err)
	assert.JSONEq(t, `{"orderId":42,"toStatus":"delivered"}`, string(raw))
}

func TestStatusUpdate_RoundTrip(t *testing.T) {
	actor := kernel.ID(7)
	ev, err := order.NewStatusEvent(42, order.Assigned, order.OutForDelivery, &actor, clock)
	require.NoError(t, err)

	raw, err := codec.EncodeStatusUpdate(ev)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"orderId":42,"status":"out_for_delivery","fromStatus":"assigned","actorAgentId":7,"observedAt":"2025-03-01T12:00:00Z"}`,
		string(raw))

	decoded, err := codec.DecodeStatusUpdate(raw)
	require.NoError(t, err)
	assert.Equal(t, ev.OrderID, decoded.OrderID)
	assert.Equal(t, ev.From, decoded.From)
	assert.Equal(t, ev.To, decoded.To)
	require.NotNil(t, decoded.ActorAgentID)
	assert.Equal(t, actor, *decoded.ActorAgentID)
}

func TestDecodeStatusUpdate_Invalid(t *testing.T) {
	_, err := codec.DecodeStatusUpdate([]byte(`{"orderId":42,"status":"delivered","fromStatus":"lost","observedAt":"2025-03-01T12:00:00Z"}`))
	require.ErrorIs(t, err, errs.ErrInvalidPayload)

	_, err = codec.DecodeStatusUpdate([]byte(`{"orderId":42,"status":"delivered","fromStatus":"out_for_delivery"}`))
	require.ErrorIs(t, err, errs.ErrInvalidPayload)
}
