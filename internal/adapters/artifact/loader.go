package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/okian/checkpoint/internal/domain/scoring"
	"github.com/okian/checkpoint/pkg/logger"
)

const defaultMaxSize = 8 << 20

// Loaded is a model ready for scoring.
type Loaded struct {
	Scorer     scoring.Scorer
	Name       string
	Kind       string
	Capability string
	Path       string
}

// Loader reads model artifacts from disk.
type Loader struct {
	log     logger.Logger
	maxSize int64
}

// NewLoader builds a loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{log: logger.Nop(), maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads, decodes and adapts the artifact at path.
func (l *Loader) Load(ctx context.Context, path string) (*Loaded, error) {
	doc, err := l.read(ctx, path)
	if err != nil {
		return nil, err
	}
	m, err := doc.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s, err := scoring.Adapt(m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	out := &Loaded{
		Scorer:     s,
		Name:       doc.Name,
		Kind:       doc.Kind,
		Capability: scoring.Capability(m),
		Path:       path,
	}
	if out.Name == "" {
		out.Name = doc.Kind
	}
	l.log.Debug(ctx, "model artifact decoded",
		logger.String("path", path),
		logger.String("kind", out.Kind),
		logger.String("capability", out.Capability))
	return out, nil
}

func (l *Loader) read(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, l.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(raw)) > l.maxSize {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrTooLarge, path, l.maxSize)
	}
	doc, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Load reads the artifact at path and returns the raw model value, which
// exposes PredictProba, Predict, or both.
func Load(ctx context.Context, path string) (any, error) {
	doc, err := NewLoader().read(ctx, path)
	if err != nil {
		return nil, err
	}
	m, err := doc.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
