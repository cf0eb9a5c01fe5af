package visualizer

import (
	"errors"
	"maps"

	"github.com/gogpu/visualizer/attr"
	"github.com/gogpu/visualizer/ecs"
	"github.com/gogpu/visualizer/extract"
)

// Entity identifies a panel or text of an Engine.
type Entity = ecs.EntityID

// Entity errors.
var (
	// ErrUnknownEntity is returned for despawned or foreign entities.
	ErrUnknownEntity = errors.New("visualizer: unknown entity")

	// ErrNotText is returned by text setters called on a panel.
	ErrNotText = errors.New("visualizer: entity is not a text")
)

// Panel describes a solid rectangle.
type Panel struct {
	Position attr.Position
	Area     attr.Area
	Color    attr.Color
	Depth    attr.Depth
	Layer    attr.Layer
}

// Label describes a text. A zero Scale uses the configured text scale.
// Letters outside Bounds are not drawn.
type Label struct {
	Position attr.Position
	Color    attr.Color
	Depth    attr.Depth
	Text     string
	Scale    float32
	Bounds   *attr.Section
}

// Text is the content component of a text entity. Overrides recolors
// individual letters, keyed by the byte offset of the letter in the
// NFC-normalized text.
type Text struct {
	Value     string
	Scale     float32
	Overrides map[extract.LetterKey]attr.Color
}

func (t Text) clone() Text {
	t.Overrides = maps.Clone(t.Overrides)
	return t
}

// Visibility hides an entity without despawning it. Entities without a
// Visibility component are visible.
type Visibility bool

// Visibility values.
const (
	Visible Visibility = true
	Hidden  Visibility = false
)
