package repository

import "time"

// Option applies a configuration option to the InMemoryStore.
type Option func(*InMemoryStore)

// WithMaxEvents caps the number of events held. Once exceeded the oldest
// events are dropped. Zero means unbounded.
func WithMaxEvents(n int) Option {
	return func(s *InMemoryStore) {
		if n >= 0 {
			s.maxEvents = n
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *InMemoryStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}
