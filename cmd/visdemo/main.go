// Command visdemo drives a headless visualizer engine with animated panels
// and texts and logs what every frame uploads.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gogpu/visualizer"
	"github.com/gogpu/visualizer/attr"
	"github.com/gogpu/visualizer/render"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		cfgPath = flag.String("config", "", "TOML or YAML config file")
		panels  = flag.Int("panels", 16, "number of animated panels")
		fps     = flag.Int("fps", 60, "frames per second, 0 for unpaced")
		shaders = flag.Bool("shaders", false, "generate and compile the instance shaders")
	)
	flag.Parse()

	cfg := visualizer.DefaultConfig()
	if *cfgPath != "" {
		var err error
		cfg, err = visualizer.LoadConfig(*cfgPath)
		if err != nil {
			return err
		}
	}

	zl, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()
	log := slog.New(newZapHandler(zl))
	visualizer.SetLogger(log)

	e, err := visualizer.New(visualizer.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer e.Close()

	if *shaders {
		if err := compileShaders(log, e); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scene := newScene(e, *panels)
	var tick <-chan time.Time
	if *fps > 0 {
		t := time.NewTicker(time.Second / time.Duration(*fps))
		defer t.Stop()
		tick = t.C
	}

	var total visualizer.FrameStats
	for n := 0; cfg.Frames == 0 || n < cfg.Frames; n++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return report(log, total)
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return report(log, total)
		}

		if err := scene.animate(n); err != nil {
			return err
		}
		stats, err := e.Frame()
		if err != nil {
			return err
		}
		total.Frame = stats.Frame
		total.Panels, total.Letters = stats.Panels, stats.Letters
		total.Writes += stats.Writes
		log.Debug("frame",
			slog.Uint64("frame", stats.Frame),
			slog.Int("writes", stats.Writes),
			slog.Any("letters", stats.Letters))
	}
	return report(log, total)
}

func report(log *slog.Logger, total visualizer.FrameStats) error {
	log.Info("done",
		slog.Uint64("frames", total.Frame),
		slog.Any("panels", total.Panels),
		slog.Any("letters", total.Letters),
		slog.Int("writes", total.Writes))
	return nil
}

// scene moves a row of panels along a sine wave under a frame counter.
type scene struct {
	e       *visualizer.Engine
	panels  []visualizer.Entity
	counter visualizer.Entity
}

func newScene(e *visualizer.Engine, panels int) *scene {
	s := &scene{e: e}
	for i := range panels {
		s.panels = append(s.panels, e.SpawnPanel(visualizer.Panel{
			Position: attr.Position{X: float32(i) * 40},
			Area:     attr.Area{Width: 32, Height: 32},
			Color:    attr.RGBA(float32(i)/float32(max(panels, 1)), 0.4, 0.8, 1),
			Layer:    attr.Layer(i % 2),
		}))
	}
	s.counter = e.SpawnText(visualizer.Label{
		Position: attr.Position{X: 8, Y: 8},
		Color:    attr.White,
		Depth:    1,
		Text:     "frame 0",
	})
	return s
}

func (s *scene) animate(n int) error {
	for i, id := range s.panels {
		y := 100 + 50*math.Sin(float64(n+i*4)/20)
		if err := s.e.SetPosition(id, attr.Position{X: float32(i) * 40, Y: float32(y)}); err != nil {
			return err
		}
		// Every fourth panel blinks.
		if i%4 == 0 {
			if err := s.e.SetVisible(id, (n/30)%2 == 0); err != nil {
				return err
			}
		}
	}
	if n%10 == 0 {
		return s.e.SetText(s.counter, fmt.Sprintf("frame %d", n))
	}
	return nil
}

func compileShaders(log *slog.Logger, e *visualizer.Engine) error {
	for name, gen := range map[string]func() (string, error){
		"panels": func() (string, error) { return render.InstanceShader(e.Panels().Registry()) },
		"text":   func() (string, error) { return render.InstanceShader(e.Texts().Registry()) },
	} {
		wgsl, err := gen()
		if err != nil {
			return fmt.Errorf("generate %s shader: %w", name, err)
		}
		spirv, err := render.CompileShader(wgsl)
		if err != nil {
			log.Warn("shader compilation failed", slog.String("shader", name), slog.Any("error", err))
			continue
		}
		log.Info("shader compiled", slog.String("shader", name), slog.Int("words", len(spirv)))
	}
	return nil
}

func newLogger(cfg visualizer.LoggingConfig) (*zap.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	return zapCfg.Build()
}
