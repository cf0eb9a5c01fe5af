package visualizer

import (
	"log/slog"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/visualizer/gpu"
	"github.com/gogpu/visualizer/text"
)

// Option configures an Engine during creation.
//
// Example:
//
//	// Headless engine with default settings
//	e, err := visualizer.New()
//
//	// Engine sharing the host's GPU device
//	e, err := visualizer.New(visualizer.WithDevice(provider))
type Option func(*options)

// options holds optional configuration for Engine creation.
type options struct {
	config   Config
	backend  gpu.Backend
	provider gpucontext.DeviceProvider
	font     text.Font
	logger   *slog.Logger
}

// defaultOptions returns the default engine options.
func defaultOptions() options {
	return options{
		config: DefaultConfig(),
		logger: nil, // Logger() at New time
	}
}

// WithConfig replaces the default settings.
func WithConfig(c Config) Option {
	return func(o *options) {
		o.config = c
	}
}

// WithBackend sets the GPU backend buffers are created on. It takes
// precedence over WithDevice.
//
// Example:
//
//	dev := gpu.NewMemoryDevice()
//	e, err := visualizer.New(visualizer.WithBackend(dev))
func WithBackend(b gpu.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithDevice shares the GPU device of a host application. The provider
// must expose its HAL device and queue, as gogpu does.
func WithDevice(p gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithFont sets the font texts are drawn with. It takes precedence over
// the configured font path.
func WithFont(f text.Font) Option {
	return func(o *options) {
		o.font = f
	}
}

// WithLogger sets the engine logger. By default the engine uses Logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
