package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/checkpoint/internal/domain/model"
	"github.com/okian/checkpoint/pkg/metrics"
)

// InMemoryStore keeps events in process memory. Contents are lost on restart.
//
// Live events are s.events[s.head:], oldest first. Evictions advance head and
// the backing slice is compacted once the dead prefix outgrows the live part.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []model.Event
	head   int
	lastID int64
	closed bool

	maxEvents             int
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore constructs a store and starts its metrics updater, which
// runs until ctx is done or Close is called.
func NewInMemoryStore(ctx context.Context, opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	metrics.UpdateEventsStored(0)
	s.startMetricsUpdater(ctx)
	return s
}

// Append implements Store.Append.
func (s *InMemoryStore) Append(ctx context.Context, e model.Event) (model.Event, error) {
	if err := ctx.Err(); err != nil {
		return model.Event{}, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.Event{}, ErrClosed
	}
	s.lastID++
	e.ID = s.lastID
	s.events = append(s.events, e)
	evicted := 0
	if s.maxEvents > 0 {
		for len(s.events)-s.head > s.maxEvents {
			s.events[s.head] = model.Event{}
			s.head++
			evicted++
		}
		if s.head > len(s.events)-s.head {
			s.events = append([]model.Event(nil), s.events[s.head:]...)
			s.head = 0
		}
	}
	s.mu.Unlock()

	metrics.RecordEventRecorded()
	for range evicted {
		metrics.RecordEventEvicted()
	}
	return e, nil
}

// List implements Store.List.
func (s *InMemoryStore) List(ctx context.Context, f model.Filter) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Limit < 0 {
		return nil, fmt.Errorf("%w: limit %d", ErrInvalidFilter, f.Limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Event, 0, capHint(f.Limit, len(s.events)-s.head))
	for i := len(s.events) - 1; i >= s.head; i-- {
		e := s.events[i]
		if !f.Matches(e) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// Count implements Store.Count.
func (s *InMemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events) - s.head
}

// Close stops the metrics updater. Appends after Close fail with ErrClosed.
func (s *InMemoryStore) Close() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.stopChan)
	})
	s.wg.Wait()
	return nil
}

func capHint(limit, n int) int {
	if limit > 0 && limit < n {
		return limit
	}
	return n
}

// startMetricsUpdater starts a background goroutine that publishes the stored event count.
func (s *InMemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateEventsStored(s.Count(ctx))
			}
		}
	}()
}
