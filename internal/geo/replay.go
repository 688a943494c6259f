package geo

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

type replayLine struct {
	Lat        float64    `json:"lat"`
	Lng        float64    `json:"lng"`
	Accuracy   float64    `json:"accuracy"`
	ObservedAt *time.Time `json:"observedAt"`
}

// ReplayProvider replays newline-delimited JSON fixes, one per Interval.
// Lines without observedAt are stamped with the provider clock; malformed
// lines are reported as error fixes.
type ReplayProvider struct {
	src      io.Reader
	Interval time.Duration
	Now      func() time.Time
}

// NewReplayProvider reads fixes from src.
func NewReplayProvider(src io.Reader, interval time.Duration) *ReplayProvider {
	return &ReplayProvider{src: src, Interval: interval, Now: time.Now}
}

// Watch starts the replay. Options.Timeout bounds the wait for the next
// line; when it expires an ErrTimeout fix is sent and reading continues.
func (p *ReplayProvider) Watch(ctx context.Context, opts Options) (<-chan Fix, error) {
	lines := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(p.src)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	out := make(chan Fix)
	go func() {
		defer close(out)

		var ticker *time.Ticker
		if p.Interval > 0 {
			ticker = time.NewTicker(p.Interval)
			defer ticker.Stop()
		}

		for {
			fix, ok := p.next(ctx, lines, readErr, opts.Timeout)
			if !ok {
				return
			}
			select {
			case out <- fix:
			case <-ctx.Done():
				return
			}
			if ticker != nil {
				select {
				case <-ticker.C:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (p *ReplayProvider) next(ctx context.Context, lines <-chan []byte, readErr <-chan error, timeout time.Duration) (Fix, bool) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return Fix{}, false
		case <-expired:
			return Fix{Err: ErrTimeout}, true
		case line, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return Fix{Err: fmt.Errorf("read fixes: %w", err)}, true
				}
				return Fix{}, false
			}
			if len(line) == 0 {
				continue
			}
			return p.parse(line), true
		}
	}
}

func (p *ReplayProvider) parse(line []byte) Fix {
	var in replayLine
	if err := json.Unmarshal(line, &in); err != nil {
		return Fix{Err: fmt.Errorf("parse fix: %w", err)}
	}

	observedAt := p.Now()
	if in.ObservedAt != nil {
		observedAt = *in.ObservedAt
	}
	return Fix{Lat: in.Lat, Lng: in.Lng, Accuracy: in.Accuracy, ObservedAt: observedAt}
}
