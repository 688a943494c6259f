package codec

import (
	"encoding/json"
	"errors"
	"time"

	"trackinghub/internal/core/domain/model/agent"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/pkg/errs"
)

type locationIn struct {
	AgentID    *flexInt   `json:"agentId"`
	Lat        *flexFloat `json:"lat"`
	Lng        *flexFloat `json:"lng"`
	ObservedAt *time.Time `json:"observedAt"`
}

type locationOut struct {
	AgentID    int64     `json:"agentId"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	ObservedAt time.Time `json:"observedAt"`
}

// Decoder decodes inbound payloads. Its clock stamps location samples that
// arrive without an observation time.
type Decoder struct {
	now func() time.Time
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithClock replaces the decoder clock.
func WithClock(now func() time.Time) DecoderOption {
	return func(d *Decoder) {
		d.now = now
	}
}

// NewDecoder creates a decoder using time.Now unless a clock is given.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDecoder = NewDecoder()

// DecodeLocation decodes a locationUpdate payload with the wall clock.
func DecodeLocation(raw []byte) (agent.LocationSample, error) {
	return defaultDecoder.DecodeLocation(raw)
}

// DecodeLocation parses and validates a locationUpdate payload.
//
// Latitude and longitude may be numbers or numeric strings. The payload is
// rejected when agentId is missing or not positive, or when either
// coordinate is missing, non-finite or out of range. A missing observedAt
// is stamped with the decoder clock.
//
// Example:
//
//	sample, err := codec.DecodeLocation([]byte(`{"agentId":7,"lat":-1.28,"lng":36.82}`))
//	if errors.Is(err, errs.ErrInvalidPayload) {
//	    // drop
//	}
func (d *Decoder) DecodeLocation(raw []byte) (agent.LocationSample, error) {
	var in locationIn
	if err := json.Unmarshal(raw, &in); err != nil {
		return agent.LocationSample{}, errs.NewInvalidPayloadErrorWithCause("locationUpdate", err)
	}

	var missing []error
	if in.AgentID == nil {
		missing = append(missing, errs.NewValueIsRequiredError("agentId"))
	}
	if in.Lat == nil {
		missing = append(missing, errs.NewValueIsRequiredError("lat"))
	}
	if in.Lng == nil {
		missing = append(missing, errs.NewValueIsRequiredError("lng"))
	}
	if len(missing) > 0 {
		return agent.LocationSample{}, errs.NewInvalidPayloadErrorWithCause("locationUpdate", errors.Join(missing...))
	}

	observedAt := d.now()
	if in.ObservedAt != nil && !in.ObservedAt.IsZero() {
		observedAt = *in.ObservedAt
	}

	sample, err := agent.NewLocationSample(kernel.ID(*in.AgentID), float64(*in.Lat), float64(*in.Lng), observedAt)
	if err != nil {
		return agent.LocationSample{}, errs.NewInvalidPayloadErrorWithCause("locationUpdate", err)
	}
	return sample, nil
}

// EncodeLocation renders a sample as the outbound locationUpdate payload.
func EncodeLocation(sample agent.LocationSample) ([]byte, error) {
	if err := sample.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(locationOut{
		AgentID:    sample.AgentID().Int64(),
		Lat:        sample.Lat(),
		Lng:        sample.Lng(),
		ObservedAt: sample.ObservedAt(),
	})
}
