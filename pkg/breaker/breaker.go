// Package breaker is a sliding-window circuit breaker guarding outbound
// calls to third-party APIs.
package breaker

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

type state uint8

const (
	closed state = iota + 1
	open
	halfOpen
)

var ErrOpen = errors.New("circuit breaker is open")

// Breaker trips open when the failure share of the last windowSize calls
// reaches failureRate, rejects calls for cooldown, then lets probes through
// until recoveryCalls consecutive successes close it again.
type Breaker struct {
	mu sync.Mutex

	state       state
	window      []bool
	pos         int
	failureRate float64
	cooldown    time.Duration
	openedAt    time.Time

	recoveryCalls int
	successStreak int
}

func New(windowSize int, cooldown time.Duration, failureRate float64, recoveryCalls int) *Breaker {
	return &Breaker{
		state:         closed,
		window:        make([]bool, windowSize),
		failureRate:   failureRate,
		cooldown:      cooldown,
		recoveryCalls: recoveryCalls,
	}
}

// Do runs fn unless the breaker is open. The fn error is returned as-is;
// ErrOpen means fn was never invoked.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	if b.state == open {
		if time.Since(b.openedAt) <= b.cooldown {
			b.mu.Unlock()
			return ErrOpen
		}
		b.state = halfOpen
		b.successStreak = 0
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.window[b.pos] = err != nil
	b.pos = (b.pos + 1) % len(b.window)

	if b.state == halfOpen {
		if err != nil {
			b.trip()
		} else {
			b.successStreak++
			if b.successStreak >= b.recoveryCalls {
				b.reset()
			}
		}
		return err
	}

	failed := 0
	for _, f := range b.window {
		if f {
			failed++
		}
	}
	if float64(failed)/float64(len(b.window)) >= b.failureRate {
		b.trip()
	}
	return err
}

func (b *Breaker) trip() {
	b.state = open
	b.successStreak = 0
	b.openedAt = time.Now()
}

func (b *Breaker) reset() {
	for i := range b.window {
		b.window[i] = false
	}
	b.pos = 0
	b.successStreak = 0
	b.state = closed
}
