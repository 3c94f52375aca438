package artifact

import "github.com/okian/checkpoint/pkg/logger"

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the loader's logger.
func WithLogger(l logger.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.log = l
		}
	}
}

// WithMaxSize caps the artifact size in bytes.
func WithMaxSize(n int64) Option {
	return func(ld *Loader) {
		if n > 0 {
			ld.maxSize = n
		}
	}
}
