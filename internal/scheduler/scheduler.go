// Package scheduler multiplexes one shared repeating timer per distinct
// flush interval. Every consumer registered at the same interval is flushed
// in the same synchronous pass, so independently-created consumers with the
// same throttle appear to update in lockstep.
package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nsbm60/marketdata-ui-sub001/internal/logger"
	"github.com/nsbm60/marketdata-ui-sub001/pkg/errors"
)

// FlushFunc drains one consumer's pending-update buffer. Implementations own
// their buffer and must be a no-op when it is empty: a flush must never force
// a spurious downstream update.
type FlushFunc func()

// Scheduler owns one shared ticker per distinct interval and fans each tick
// out synchronously to every callback registered at that interval. Different
// intervals run fully independent tickers.
type Scheduler struct {
	mu     sync.Mutex
	groups map[time.Duration]*intervalGroup
	nextID int
	closed bool
	log    *logger.Logger
}

// registration is one consumer's entry in an interval group. Entries keep
// registration order so every pass visits consumers deterministically.
type registration struct {
	id    int
	flush FlushFunc
}

type intervalGroup struct {
	ticker  *time.Ticker
	stop    chan struct{}
	entries []registration
}

// New creates an empty Scheduler.
func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		groups: make(map[time.Duration]*intervalGroup),
		log:    log,
	}
}

// Register adds a flush callback at the given interval. The first
// registration for an interval starts its shared ticker; the returned handle
// unregisters and is idempotent.
func (s *Scheduler) Register(interval time.Duration, flush FlushFunc) (*Handle, error) {
	if interval <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "flush interval must be positive, got %s", interval)
	}

	if flush == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "flush callback is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "scheduler is closed")
	}

	group, ok := s.groups[interval]
	if !ok {
		group = &intervalGroup{
			ticker: time.NewTicker(interval),
			stop:   make(chan struct{}),
		}
		s.groups[interval] = group

		go s.run(interval, group)

		s.log.Debug("Started shared flush timer",
			zap.Duration("interval", interval),
		)
	}

	s.nextID++
	id := s.nextID
	group.entries = append(group.entries, registration{id: id, flush: flush})

	return &Handle{scheduler: s, interval: interval, id: id}, nil
}

// Close stops every ticker and drops all registrations.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true

	for interval, group := range s.groups {
		group.ticker.Stop()
		close(group.stop)
		delete(s.groups, interval)
	}
}

// run drives one interval group until its last consumer unregisters.
func (s *Scheduler) run(interval time.Duration, group *intervalGroup) {
	for {
		select {
		case <-group.stop:
			return
		case <-group.ticker.C:
			s.flushPass(interval, group)
		}
	}
}

// flushPass invokes every callback registered at the interval once, in
// registration order, within one synchronous pass.
func (s *Scheduler) flushPass(interval time.Duration, group *intervalGroup) {
	s.mu.Lock()

	if s.groups[interval] != group {
		// Group was torn down between the tick firing and the pass running.
		s.mu.Unlock()

		return
	}

	entries := make([]registration, len(group.entries))
	copy(entries, group.entries)
	s.mu.Unlock()

	for _, entry := range entries {
		entry.flush()
	}
}

// unregister removes one registration; the last removal for an interval
// stops its ticker.
func (s *Scheduler) unregister(interval time.Duration, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[interval]
	if !ok {
		return
	}

	for i, entry := range group.entries {
		if entry.id == id {
			group.entries = append(group.entries[:i], group.entries[i+1:]...)

			break
		}
	}

	if len(group.entries) == 0 {
		group.ticker.Stop()
		close(group.stop)
		delete(s.groups, interval)

		s.log.Debug("Stopped shared flush timer",
			zap.Duration("interval", interval),
		)
	}
}

// Handle unregisters one consumer from its interval group.
type Handle struct {
	scheduler *Scheduler
	interval  time.Duration
	id        int
	once      sync.Once
}

// Unregister removes the consumer. Repeat calls are no-ops.
func (h *Handle) Unregister() {
	h.once.Do(func() {
		h.scheduler.unregister(h.interval, h.id)
	})
}
