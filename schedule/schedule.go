// Package schedule runs the systems of a frame in a fixed order: every
// logic-stage system, then every render-stage system, each stage sorted by
// phase.
package schedule

import (
	"fmt"
	"sort"
)

// Stage is one of the two worlds a frame runs.
type Stage int

const (
	StageLogic  Stage = iota // mutate components, diff, extract
	StageRender              // consume extractions, write GPU buffers
)

func (s Stage) String() string {
	switch s {
	case StageLogic:
		return "logic"
	case StageRender:
		return "render"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Phase defines execution ordering within a stage.
type Phase int

// Logic phases.
const (
	PhaseTrack   Phase = iota // 0: start and stop tracking entities
	PhaseLayout               // 1: place glyphs
	PhaseCull                 // 2: drop glyphs outside bounds
	PhaseDiff                 // 3: field and letter diffs
	PhaseExtract              // 4: drain differences, publish
)

// Render phases.
const (
	PhasePrepare Phase = iota // 0: take extractions, removals, additions, growth
	PhaseWrite                // 1: translate differences into attribute writes
	PhaseFlush                // 2: upload pending writes
)

// SystemFunc runs one system for a frame.
type SystemFunc func(frame uint64) error

type system struct {
	stage Stage
	phase Phase
	name  string
	run   SystemFunc
}

// Schedule executes systems in stage and phase order. Systems sharing a
// phase run in registration order.
type Schedule struct {
	systems []system
	sorted  bool
}

func New() *Schedule {
	return &Schedule{systems: make([]system, 0, 16)}
}

// Add registers fn under stage and phase.
func (s *Schedule) Add(stage Stage, phase Phase, name string, fn SystemFunc) {
	s.systems = append(s.systems, system{stage: stage, phase: phase, name: name, run: fn})
	s.sorted = false
}

// Run executes every system for frame. The first error aborts the frame.
func (s *Schedule) Run(frame uint64) error {
	if err := s.RunStage(StageLogic, frame); err != nil {
		return err
	}
	return s.RunStage(StageRender, frame)
}

// RunStage executes the systems of one stage.
func (s *Schedule) RunStage(stage Stage, frame uint64) error {
	s.ensureSorted()
	for _, sys := range s.systems {
		if sys.stage != stage {
			continue
		}
		if err := sys.run(frame); err != nil {
			return fmt.Errorf("schedule: %s/%s: %w", stage, sys.name, err)
		}
	}
	return nil
}

// Names returns the system names of a stage in execution order.
func (s *Schedule) Names(stage Stage) []string {
	s.ensureSorted()
	var out []string
	for _, sys := range s.systems {
		if sys.stage == stage {
			out = append(out, sys.name)
		}
	}
	return out
}

func (s *Schedule) ensureSorted() {
	if !s.sorted {
		sort.SliceStable(s.systems, func(i, j int) bool {
			if s.systems[i].stage != s.systems[j].stage {
				return s.systems[i].stage < s.systems[j].stage
			}
			return s.systems[i].phase < s.systems[j].phase
		})
		s.sorted = true
	}
}
