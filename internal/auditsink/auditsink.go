// Package auditsink implements the bounded, asynchronous audit emission
// path the Pricing Orchestrator fires into after constructing a response.
// This package owns the bounded queue and the worker; the worker writes
// each entry to the append-only audit_log table through
// refdata.Repository.InsertAuditLog.
package auditsink

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/locate-pricing/internal/refdata"
)

const defaultCapacity = 1024

// Sink is a bounded, drop-oldest audit queue backed by a single worker
// goroutine. Overflow never blocks the request path: once capacity is
// reached, the oldest queued entry is discarded and counted rather than
// the caller stalling or the newest entry being refused.
type Sink struct {
	mu       sync.Mutex
	buf      []refdata.AuditEntry
	capacity int
	dropped  int64

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup

	repo   *refdata.Repository
	logger zerolog.Logger
}

func New(repo *refdata.Repository, logger zerolog.Logger) *Sink {
	return &Sink{
		buf:      make([]refdata.AuditEntry, 0, defaultCapacity),
		capacity: defaultCapacity,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		repo:     repo,
		logger:   logger.With().Str("component", "auditsink").Logger(),
	}
}

// Start launches the worker goroutine. Call once.
func (s *Sink) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop signals the worker to drain and exit, waiting up to ctx's deadline.
func (s *Sink) Stop(ctx context.Context) error {
	close(s.done)
	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Emit enqueues an entry without blocking the caller. Never returns an
// error: a full queue drops its oldest entry and increments Dropped
// rather than failing the request that triggered the audit write.
func (s *Sink) Emit(e refdata.AuditEntry) {
	s.mu.Lock()
	if len(s.buf) >= s.capacity {
		s.buf = s.buf[1:]
		atomic.AddInt64(&s.dropped, 1)
	}
	s.buf = append(s.buf, e)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Dropped returns the cumulative count of entries discarded due to
// overflow, surfaced on the health endpoint.
func (s *Sink) Dropped() int64 {
	return atomic.LoadInt64(&s.dropped)
}

func (s *Sink) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.wake:
			s.drain()
		case <-s.done:
			s.drain()
			return
		}
	}
}

func (s *Sink) drain() {
	for {
		s.mu.Lock()
		if len(s.buf) == 0 {
			s.mu.Unlock()
			return
		}
		e := s.buf[0]
		s.buf = s.buf[1:]
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.repo.InsertAuditLog(ctx, e)
		cancel()
		if err != nil {
			s.logger.Error().Err(err).Str("correlation_id", e.CorrelationID).Msg("failed to persist audit entry")
		}
	}
}
