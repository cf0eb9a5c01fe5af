package visualizer

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/visualizer/attr"
	"github.com/gogpu/visualizer/ecs"
	"github.com/gogpu/visualizer/extract"
	"github.com/gogpu/visualizer/gpu"
	"github.com/gogpu/visualizer/render"
	"github.com/gogpu/visualizer/schedule"
	"github.com/gogpu/visualizer/text"
)

// FrameStats summarizes one frame.
type FrameStats struct {
	Frame uint64

	// Panels and Letters are the live instance counts after the frame.
	Panels  uint32
	Letters uint32

	// Writes is the number of GPU queue writes the frame issued.
	Writes int
}

// Engine owns the logic world of panels and texts and the renderers that
// mirror it into GPU instance buffers.
//
// Mutations through the Engine methods are recorded in the logic world.
// Frame runs the logic stage, which diffs the world against the last
// extracted state and publishes the differences, then the render stage,
// which applies them to the instance buffers.
//
// Engine is safe for concurrent use; frames are serialized.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	log     *slog.Logger
	backend gpu.Backend
	font    text.Font

	world      *ecs.World
	positions  *ecs.Store[attr.Position]
	areas      *ecs.Store[attr.Area]
	colors     *ecs.Store[attr.Color]
	depths     *ecs.Store[attr.Depth]
	layers     *ecs.Store[attr.Layer]
	texts      *ecs.Store[Text]
	bounds     *ecs.Store[attr.Section]
	visibility *ecs.Store[Visibility]

	panelTracker *extract.Tracker[Entity]
	textTracker  *extract.Tracker[Entity]
	panelMail    extract.Mailbox[Entity]
	textMail     extract.Mailbox[Entity]

	panels    *render.Instances[Entity]
	textDraws *render.TextRenderer[Entity]
	schedule  *schedule.Schedule

	frame uint64
	since ecs.Tick
	stats FrameStats

	// Logic-stage work sets, filled by setters and earlier systems.
	spawned       map[Entity]struct{}
	relayout      map[Entity]struct{}
	recull        map[Entity]struct{}
	relabel       map[Entity]struct{}
	boundsCleared map[Entity]struct{}

	layouts   map[Entity][]text.PlacedGlyph
	culled    map[Entity][]text.PlacedGlyph
	viewport  *attr.Section
	viewDirty bool
}

// New creates an engine. Without WithBackend or WithDevice it runs on a
// headless gpu.MemoryDevice.
func New(opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.config.Validate(); err != nil {
		return nil, err
	}
	log := o.logger
	if log == nil {
		log = Logger()
	}

	backend, err := resolveBackend(o)
	if err != nil {
		return nil, err
	}
	font, err := resolveFont(o)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:           o.config,
		log:           log,
		backend:       backend,
		font:          font,
		world:         ecs.NewWorld(),
		panelTracker:  extract.NewTracker[Entity](),
		textTracker:   extract.NewTracker[Entity](),
		spawned:       make(map[Entity]struct{}),
		relayout:      make(map[Entity]struct{}),
		recull:        make(map[Entity]struct{}),
		relabel:       make(map[Entity]struct{}),
		boundsCleared: make(map[Entity]struct{}),
		layouts:       make(map[Entity][]text.PlacedGlyph),
		culled:        make(map[Entity][]text.PlacedGlyph),
	}
	e.positions = ecs.NewStore[attr.Position](e.world)
	e.areas = ecs.NewStore[attr.Area](e.world)
	e.colors = ecs.NewStore[attr.Color](e.world)
	e.depths = ecs.NewStore[attr.Depth](e.world)
	e.layers = ecs.NewStore[attr.Layer](e.world)
	e.texts = ecs.NewStore[Text](e.world)
	e.bounds = ecs.NewStore[attr.Section](e.world)
	e.visibility = ecs.NewStore[Visibility](e.world)
	e.since = e.world.Tick()

	e.panels, err = render.NewInstances[Entity](backend, "panels", o.config.instanceConfig(log))
	if err != nil {
		return nil, err
	}
	e.textDraws, err = render.NewTextRenderer[Entity](backend, font, "text", render.TextConfig{
		Instances: o.config.instanceConfig(log),
		Atlas:     o.config.atlasConfig(log),
		Logger:    log,
	})
	if err != nil {
		e.panels.Release()
		return nil, err
	}

	e.schedule = e.buildSchedule()
	e.log.Info("visualizer: engine started",
		slog.String("backend", fmt.Sprintf("%T", backend)),
		slog.Uint64("font", uint64(font.ID())))
	e.log.Debug("visualizer: schedule",
		slog.Any("logic", e.schedule.Names(schedule.StageLogic)),
		slog.Any("render", e.schedule.Names(schedule.StageRender)))
	return e, nil
}

func resolveBackend(o options) (gpu.Backend, error) {
	switch {
	case o.backend != nil:
		return o.backend, nil
	case o.provider != nil:
		return gpu.FromProvider(o.provider)
	default:
		return gpu.NewMemoryDevice(), nil
	}
}

func resolveFont(o options) (text.Font, error) {
	if o.font != nil {
		return o.font, nil
	}
	data := goregular.TTF
	if path := o.config.Text.FontPath; path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("visualizer: read font: %w", err)
		}
	}
	return text.ParseOpenType(data)
}

func (e *Engine) buildSchedule() *schedule.Schedule {
	s := schedule.New()
	s.Add(schedule.StageLogic, schedule.PhaseTrack, "despawn", e.despawnSystem)
	s.Add(schedule.StageLogic, schedule.PhaseTrack, "track", e.trackSystem)
	s.Add(schedule.StageLogic, schedule.PhaseLayout, "place", e.placeSystem)
	s.Add(schedule.StageLogic, schedule.PhaseCull, "cull", e.cullSystem)
	s.Add(schedule.StageLogic, schedule.PhaseDiff, "position", e.positionDiff)
	s.Add(schedule.StageLogic, schedule.PhaseDiff, "area", e.areaDiff)
	s.Add(schedule.StageLogic, schedule.PhaseDiff, "color", e.colorDiff)
	s.Add(schedule.StageLogic, schedule.PhaseDiff, "depth", e.depthDiff)
	s.Add(schedule.StageLogic, schedule.PhaseDiff, "layer", e.layerDiff)
	s.Add(schedule.StageLogic, schedule.PhaseDiff, "bounds", e.boundsDiff)
	s.Add(schedule.StageLogic, schedule.PhaseDiff, "letters", e.letterDiff)
	s.Add(schedule.StageLogic, schedule.PhaseExtract, "extract", e.extractSystem)
	s.Add(schedule.StageRender, schedule.PhasePrepare, "prepare", e.prepareSystem)
	s.Add(schedule.StageRender, schedule.PhaseWrite, "write", e.writeSystem)
	s.Add(schedule.StageRender, schedule.PhaseFlush, "flush", e.flushSystem)
	return s
}

// Frame runs the logic stage and then the render stage. A failing system
// aborts the rest of the frame.
func (e *Engine) Frame() (FrameStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frame++
	e.stats = FrameStats{Frame: e.frame}
	return e.finish(e.schedule.Run(e.frame))
}

// Update runs only the logic stage. Its extraction waits in the mailbox
// until the next Render or Frame.
func (e *Engine) Update() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.logic()
}

// Render runs only the render stage, applying every extraction published
// since the last render in order.
func (e *Engine) Render() (FrameStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.render()
}

func (e *Engine) logic() error {
	e.frame++
	err := e.schedule.RunStage(schedule.StageLogic, e.frame)
	if err != nil {
		e.log.Error("visualizer: frame aborted", slog.Uint64("frame", e.frame), slog.Any("error", err))
	}
	return err
}

func (e *Engine) render() (FrameStats, error) {
	e.stats = FrameStats{Frame: e.frame}
	return e.finish(e.schedule.RunStage(schedule.StageRender, e.frame))
}

// finish completes the stats of a frame whose render stage ended with err.
func (e *Engine) finish(err error) (FrameStats, error) {
	if err != nil {
		e.log.Error("visualizer: frame aborted", slog.Uint64("frame", e.frame), slog.Any("error", err))
		return e.stats, err
	}
	e.stats.Panels = e.panels.Count()
	e.stats.Letters = e.textDraws.Count()
	return e.stats, nil
}

// SetViewport sets the visible section. Letters outside it are not drawn.
// Nil disables viewport culling.
func (e *Engine) SetViewport(s *attr.Section) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s != nil {
		v := *s
		s = &v
	}
	e.viewport = s
	e.viewDirty = true
}

// Panels returns the panel renderer.
func (e *Engine) Panels() *render.Instances[Entity] { return e.panels }

// Texts returns the text renderer.
func (e *Engine) Texts() *render.TextRenderer[Entity] { return e.textDraws }

// Backend returns the GPU backend.
func (e *Engine) Backend() gpu.Backend { return e.backend }

// Font returns the font texts are drawn with.
func (e *Engine) Font() text.Font { return e.font }

// Close releases the GPU buffers.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.panels.Release()
	e.textDraws.Release()
}
