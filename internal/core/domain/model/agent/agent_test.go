package agent_test

import (
	"testing"
	"time"

	"trackinghub/internal/core/domain/model/agent"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func sample(t *testing.T, agentID kernel.ID, lat, lng float64, at time.Time) agent.LocationSample {
	t.Helper()
	s, err := agent.NewLocationSample(agentID, lat, lng, at)
	require.NoError(t, err)
	return s
}

func TestNewLocationSample(t *testing.T) {
	t.Run("valid sample", func(t *testing.T) {
		s := sample(t, 7, -1.2864, 36.8172, t0)

		require.NoError(t, s.Validate())
		assert.Equal(t, kernel.ID(7), s.AgentID())
		assert.InDelta(t, -1.2864, s.Lat(), 1e-9)
		assert.InDelta(t, 36.8172, s.Lng(), 1e-9)
		assert.Equal(t, t0, s.ObservedAt())
		assert.Equal(t, "agent 7 at (-1.2864,36.8172)", s.String())
	})

	t.Run("latitude 95 is rejected", func(t *testing.T) {
		_, err := agent.NewLocationSample(7, 95, 36.8, t0)

		require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
	})

	t.Run("missing agent and time are joined", func(t *testing.T) {
		_, err := agent.NewLocationSample(0, 1, 1, time.Time{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "0 is not greater than 0")
		assert.Contains(t, err.Error(), "observedAt")
	})

	t.Run("zero value is not constructed", func(t *testing.T) {
		require.ErrorIs(t, agent.LocationSample{}.Validate(), agent.ErrSampleIsNotConstructed)
	})
}

func TestAgent_ObserveLocation(t *testing.T) {
	newAgent := func(t *testing.T) *agent.Agent {
		a, err := agent.NewAgent(7, "Wanjiru", "+254700000000", true, nil)
		require.NoError(t, err)
		return a
	}

	t.Run("first sample is stored", func(t *testing.T) {
		a := newAgent(t)

		applied, err := a.ObserveLocation(sample(t, 7, -1.28, 36.81, t0))

		require.NoError(t, err)
		assert.True(t, applied)
		require.NotNil(t, a.LastKnownLocation())
		assert.Equal(t, t0, a.LastKnownLocation().ObservedAt)
	})

	t.Run("reverse arrival keeps the newest position", func(t *testing.T) {
		a := newAgent(t)
		newer := sample(t, 7, -1.30, 36.80, t0.Add(2*time.Second))
		older := sample(t, 7, -1.28, 36.81, t0)

		applied, err := a.ObserveLocation(newer)
		require.NoError(t, err)
		assert.True(t, applied)

		applied, err = a.ObserveLocation(older)
		require.NoError(t, err)
		assert.False(t, applied)

		assert.InDelta(t, -1.30, a.LastKnownLocation().Coordinates.Lat(), 1e-9)
	})

	t.Run("equal timestamp is dropped", func(t *testing.T) {
		a := newAgent(t)
		_, _ = a.ObserveLocation(sample(t, 7, -1.28, 36.81, t0))

		applied, err := a.ObserveLocation(sample(t, 7, -1.5, 36.5, t0))

		require.NoError(t, err)
		assert.False(t, applied)
		assert.InDelta(t, -1.28, a.LastKnownLocation().Coordinates.Lat(), 1e-9)
	})

	t.Run("sample of another agent is rejected", func(t *testing.T) {
		a := newAgent(t)

		_, err := a.ObserveLocation(sample(t, 8, -1.28, 36.81, t0))

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
		assert.Nil(t, a.LastKnownLocation())
	})

	t.Run("returned location is a copy", func(t *testing.T) {
		a := newAgent(t)
		_, _ = a.ObserveLocation(sample(t, 7, -1.28, 36.81, t0))

		loc := a.LastKnownLocation()
		loc.ObservedAt = t0.Add(time.Hour)

		assert.Equal(t, t0, a.LastKnownLocation().ObservedAt)
	})
}

func TestNewAgent(t *testing.T) {
	_, err := agent.NewAgent(0, "", "", false, nil)
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)

	_, err = agent.NewAgent(7, "", "", false, &agent.Location{ObservedAt: t0})
	require.ErrorIs(t, err, kernel.ErrCoordinatesAreNotConstructed)

	var a *agent.Agent
	require.ErrorIs(t, a.Validate(), agent.ErrAgentIsNotConstructed)
}
