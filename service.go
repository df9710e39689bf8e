package docview

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/gobeaver/beaver-kit/config"

	"github.com/gobeaver/docview/filetype"
)

// Global instance
var (
	defaultViewer *Viewer
	defaultOnce   sync.Once
	defaultErr    error
)

// Builder creates viewers from environment variables under a custom prefix
type Builder struct {
	prefix string
}

// WithPrefix creates a Builder reading PREFIX_DOCVIEW_* variables
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// Config loads the configuration using the builder's prefix
func (b *Builder) Config() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init initializes the global viewer using the builder's prefix
func (b *Builder) Init() error {
	cfg, err := b.Config()
	if err != nil {
		return err
	}
	return Init(cfg)
}

// New creates a viewer using the builder's prefix
func (b *Builder) New(opts ...Option) (*Viewer, error) {
	cfg, err := b.Config()
	if err != nil {
		return nil, err
	}
	return NewViewerFromConfig(cfg, opts...)
}

// Init initializes the global viewer, from the given config or else from
// the environment. Only the first call has an effect.
func Init(configs ...*Config) error {
	defaultOnce.Do(func() {
		var cfg *Config
		if len(configs) > 0 {
			cfg = configs[0]
		} else {
			cfg, defaultErr = GetConfig()
			if defaultErr != nil {
				return
			}
		}

		defaultViewer, defaultErr = NewViewerFromConfig(cfg)
	})

	return defaultErr
}

// Default returns the global viewer, initializing it from the environment
// if needed
func Default() (*Viewer, error) {
	if defaultViewer == nil {
		if err := Init(); err != nil {
			return nil, err
		}
	}
	return defaultViewer, nil
}

// Reset clears the global viewer (for testing)
func Reset() {
	if defaultViewer != nil {
		defaultViewer.Close()
	}
	defaultViewer = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}

// NewViewerFromConfig wires a Viewer from cfg: the store driver, an optional
// listing cache, the classifier options, the downloader and the logger.
// opts are applied last and override the configured values.
func NewViewerFromConfig(cfg *Config, opts ...Option) (*Viewer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := NewLogger(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}

	maxSize, err := cfg.MaxDocumentBytes()
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	var closers []func()
	if c, ok := store.(io.Closer); ok {
		closers = append(closers, func() {
			if err := c.Close(); err != nil {
				logger.Warn("closing store", "driver", cfg.Driver, "error", err)
			}
		})
	}
	if ttl := cfg.ListCacheTTL(); ttl > 0 {
		cached := NewCachingReader(store, ttl)
		closers = append(closers, cached.InvalidateOnChange(context.Background(), "**"))
		store = cached
	}

	var classifierOpts []filetype.Option
	if cfg.TrailerHeuristics {
		classifierOpts = append(classifierOpts, filetype.WithTrailerHeuristics())
	}
	if cfg.ContainerInspection {
		classifierOpts = append(classifierOpts, filetype.WithContainerInspection())
	}
	classifierOpts = append(classifierOpts, filetype.WithLogger(logger.With("component", "classifier")))

	identification := cfg.Identification
	if identification == "" {
		identification = IdentifyByContent
	}

	base := []Option{
		WithLogger(logger),
		WithClassifier(filetype.New(classifierOpts...)),
		WithDownloader(NewDownloader(nil, cfg.DownloadTimeout(), maxSize,
			WithDownloadLogger(logger.With("component", "downloader")))),
		WithDisabledPlugins(cfg.DisabledPluginList()...),
		WithMaxSize(maxSize),
		WithIdentification(identification),
	}

	v := NewViewer(store, append(base, opts...)...)
	v.closers = closers
	return v, nil
}

// createStore creates the configured driver and mounts any extra stores
// over it
func createStore(cfg *Config) (FileReader, error) {
	store, err := CreateDriver(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}

	specs, err := cfg.MountList()
	if err != nil || len(specs) == 0 {
		return store, err
	}

	mounts := NewMounts(store)
	for _, spec := range specs {
		mountCfg := *cfg
		mountCfg.Driver = spec.Driver()
		mountCfg.LocalBasePath = spec.Path
		mountCfg.ZipPath = spec.Path

		mounted, err := CreateDriver(&mountCfg)
		if err == nil {
			err = mounts.Mount(spec.Name, mounted)
		}
		if err != nil {
			mounts.Close()
			return nil, fmt.Errorf("failed to mount %s: %w", spec.Name, err)
		}
	}
	return mounts, nil
}
