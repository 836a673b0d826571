package entitlements

import (
	"context"
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/meterkit/pkg/meter"
)

// Source defines how the entitlement configuration is loaded.
type Source interface {
	Load(ctx context.Context) (Config, error)
}

// inMemSource implements Source with a fixed configuration.
type inMemSource struct {
	cfg Config
}

// NewInMemSource returns a Source serving a deep copy of cfg.
func NewInMemSource(cfg Config) Source {
	return &inMemSource{cfg: cloneConfig(cfg)}
}

func (s *inMemSource) Load(ctx context.Context) (Config, error) {
	return cloneConfig(s.cfg), nil
}

// ParseYAML decodes a YAML entitlement configuration into a Source.
func ParseYAML(data []byte) (Source, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToLoadPlans, err)
	}
	return NewInMemSource(cfg), nil
}

// LoadYAML reads and decodes the YAML file at path.
func LoadYAML(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToLoadPlans, err)
	}
	return ParseYAML(data)
}

type fileSource struct {
	path string
}

// NewFileSource returns a Source that reads the YAML file at path on every
// Load, so Catalog.Reload picks up edits.
func NewFileSource(path string) Source {
	return &fileSource{path: path}
}

func (s *fileSource) Load(ctx context.Context) (Config, error) {
	src, err := LoadYAML(s.path)
	if err != nil {
		return Config{}, err
	}
	return src.Load(ctx)
}

func cloneConfig(cfg Config) Config {
	out := Config{
		Defaults: maps.Clone(cfg.Defaults),
		Plans:    make(map[meter.OwnerClass]Plans, len(cfg.Plans)),
	}
	for class, plans := range cfg.Plans {
		out.Plans[class] = maps.Clone(plans)
	}
	return out
}
