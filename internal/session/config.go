package session

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config holds the credential and the reconnect policy of a session.
type Config struct {
	Token string

	// AuthTimeout bounds the wait for auth_ok after dialing.
	AuthTimeout time.Duration

	InitialInterval     time.Duration
	MaxInterval         time.Duration
	MaxElapsedTime      time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

// DefaultConfig returns the reconnect policy used by the CLI.
func DefaultConfig(token string) Config {
	return Config{
		Token:               token,
		AuthTimeout:         5 * time.Second,
		InitialInterval:     500 * time.Millisecond,
		MaxInterval:         30 * time.Second,
		MaxElapsedTime:      5 * time.Minute,
		Multiplier:          backoff.DefaultMultiplier,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
	}
}

func (c Config) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if c.InitialInterval > 0 {
		b.InitialInterval = c.InitialInterval
	}
	if c.MaxInterval > 0 {
		b.MaxInterval = c.MaxInterval
	}
	if c.MaxElapsedTime > 0 {
		b.MaxElapsedTime = c.MaxElapsedTime
	}
	if c.Multiplier > 0 {
		b.Multiplier = c.Multiplier
	}
	if c.RandomizationFactor > 0 {
		b.RandomizationFactor = c.RandomizationFactor
	}
	b.Reset()
	return b
}
