// Package geo defines the geolocation provider the agent device samples.
package geo

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is reported on a Fix when no position arrived within
// Options.Timeout.
var ErrTimeout = errors.New("geolocation timeout")

// Options are passed through to the platform geolocation service.
type Options struct {
	HighAccuracy bool
	// MaxAge is the oldest cached position the caller accepts.
	MaxAge time.Duration
	// Timeout is the longest wait for a position.
	Timeout time.Duration
}

// DefaultOptions returns the options the agent dashboard watches with.
func DefaultOptions() Options {
	return Options{
		HighAccuracy: true,
		MaxAge:       10 * time.Second,
		Timeout:      5 * time.Second,
	}
}

// Fix is one position reading or a provider error.
type Fix struct {
	Lat        float64
	Lng        float64
	Accuracy   float64
	ObservedAt time.Time
	Err        error
}

// Provider streams position fixes until ctx is cancelled or the source is
// exhausted, then closes the channel.
type Provider interface {
	Watch(ctx context.Context, opts Options) (<-chan Fix, error)
}
