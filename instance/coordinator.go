package instance

import (
	"log/slog"

	"github.com/gogpu/visualizer/gpu"
)

// Default coordinator settings.
const (
	DefaultInitialCapacity = 16
	DefaultGrowthFactor    = 16
)

// Config configures a Coordinator.
type Config struct {
	// InitialCapacity is the starting slot capacity of every buffer.
	InitialCapacity uint32

	// GrowthFactor is the capacity step used when slots outgrow the buffers.
	GrowthFactor uint32

	// Logger receives growth events. Nil disables logging.
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.InitialCapacity == 0 {
		c.InitialCapacity = DefaultInitialCapacity
	}
	if c.GrowthFactor == 0 {
		c.GrowthFactor = DefaultGrowthFactor
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Coordinator ties an Indexer to the Registry of buffers it indexes.
//
// Slots are allocated and freed through the coordinator so that compaction
// moves are applied to every buffer, and growth resizes every buffer in the
// same Prepare call.
//
// A frame uses the coordinator in this order: Remove and Insert keys,
// Prepare, write attributes, Flush.
type Coordinator[K comparable] struct {
	indexer  *Indexer[K]
	registry *Registry
	queue    gpu.Queue
	growth   uint32
	log      *slog.Logger
}

// NewCoordinator creates a coordinator whose buffers are created on backend.
// Attribute buffers are added with Register on Registry.
func NewCoordinator[K comparable](backend gpu.Backend, label string, cfg Config) *Coordinator[K] {
	cfg = cfg.withDefaults()
	return &Coordinator[K]{
		indexer:  NewIndexer[K](cfg.InitialCapacity),
		registry: NewRegistry(backend, label, cfg.InitialCapacity),
		queue:    backend,
		growth:   cfg.GrowthFactor,
		log:      cfg.Logger.With("instances", label),
	}
}

// Registry returns the attribute buffers.
func (c *Coordinator[K]) Registry() *Registry { return c.registry }

// Insert returns the slot of key, allocating one for a new key. The boolean
// reports whether the key is new. A new slot may lie beyond the buffer
// capacity until Prepare runs.
func (c *Coordinator[K]) Insert(key K) (Index, bool, error) {
	if i, ok := c.indexer.Get(key); ok {
		return i, false, nil
	}
	i, err := c.indexer.Next(key)
	if err != nil {
		return 0, false, err
	}
	return i, true, nil
}

// Remove frees the slot of key, moving the last slot's attributes into it.
func (c *Coordinator[K]) Remove(key K) (Removal, error) {
	r, err := c.indexer.Remove(key)
	if err != nil {
		return Removal{}, err
	}
	// A tail slot past capacity was never written; its key is new this frame
	// and receives all of its attributes after Prepare.
	if r.Moved != nil && uint32(r.Moved.From) < c.registry.Capacity() {
		if err := c.registry.move(r.Moved.From, r.Moved.To); err != nil {
			return Removal{}, err
		}
	}
	return r, nil
}

// Index returns the slot of key.
func (c *Coordinator[K]) Index(key K) (Index, bool) { return c.indexer.Get(key) }

// Key returns the key in slot i.
func (c *Coordinator[K]) Key(i Index) (K, bool) { return c.indexer.Key(i) }

// Count returns the number of live instances.
func (c *Coordinator[K]) Count() uint32 { return c.indexer.Current() }

// Capacity returns the buffer capacity in slots.
func (c *Coordinator[K]) Capacity() uint32 { return c.registry.Capacity() }

// Prepare grows every buffer when slots were allocated past capacity. The
// grown buffers hold the full mirror before Prepare returns. A resize that
// failed part way is resumed by the next Prepare.
func (c *Coordinator[K]) Prepare() error {
	if c.indexer.ShouldGrow() {
		if _, err := c.indexer.Grow(c.growth); err != nil {
			return err
		}
	}
	old := c.registry.Capacity()
	if old >= c.indexer.Max() {
		return nil
	}
	if err := c.registry.resize(c.queue, c.indexer.Max()); err != nil {
		return err
	}
	c.log.Debug("instance buffers grown",
		slog.Uint64("capacity", uint64(c.indexer.Max())),
		slog.Uint64("delta", uint64(c.indexer.Max()-old)),
		slog.Uint64("count", uint64(c.indexer.Current())))
	return nil
}

// Flush uploads pending writes in every buffer and returns the number of
// queue writes issued.
func (c *Coordinator[K]) Flush() (int, error) {
	return c.registry.flush(c.queue)
}

// Release frees every GPU buffer.
func (c *Coordinator[K]) Release() { c.registry.Release() }
