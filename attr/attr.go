// Package attr defines the plain value types that describe a visual element.
//
// Every type here is fixed-size and pointer-free, so the same values serve as
// ECS component data on the logic side and as per-instance GPU attributes on
// the render side. The byte layout is the packed little-endian encoding of the
// fields in declaration order.
package attr

// Position is a logical position in pixels, origin top-left, y down.
type Position struct {
	X, Y float32
}

// Add returns p translated by o.
func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y}
}

// Area is a width/height extent in pixels.
type Area struct {
	Width, Height float32
}

// Color is a straight-alpha RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// RGBA returns a Color from its components.
func RGBA(r, g, b, a float32) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// Common colors.
var (
	Black       = Color{A: 1}
	White       = Color{R: 1, G: 1, B: 1, A: 1}
	Transparent = Color{}
)

// Depth orders overlapping elements; larger is further away.
type Depth float32

// Layer groups elements drawn by the same pass.
type Layer uint32

// Section is an axis-aligned rectangle.
type Section struct {
	Position Position
	Area     Area
}

// NewSection returns the section at (x, y) with the given size.
func NewSection(x, y, w, h float32) Section {
	return Section{Position: Position{X: x, Y: y}, Area: Area{Width: w, Height: h}}
}

// Left returns the minimum x.
func (s Section) Left() float32 { return s.Position.X }

// Top returns the minimum y.
func (s Section) Top() float32 { return s.Position.Y }

// Right returns the maximum x.
func (s Section) Right() float32 { return s.Position.X + s.Area.Width }

// Bottom returns the maximum y.
func (s Section) Bottom() float32 { return s.Position.Y + s.Area.Height }

// Empty reports whether the section has no area.
func (s Section) Empty() bool {
	return s.Area.Width <= 0 || s.Area.Height <= 0
}

// Overlaps reports whether s and o share a region of positive area.
func (s Section) Overlaps(o Section) bool {
	return s.Left() < o.Right() && o.Left() < s.Right() &&
		s.Top() < o.Bottom() && o.Top() < s.Bottom()
}

// Contains reports whether p lies inside s. The right and bottom edges are exclusive.
func (s Section) Contains(p Position) bool {
	return p.X >= s.Left() && p.X < s.Right() && p.Y >= s.Top() && p.Y < s.Bottom()
}

// Intersection returns the overlap of s and o. The boolean is false when the
// sections do not overlap.
func (s Section) Intersection(o Section) (Section, bool) {
	left := max(s.Left(), o.Left())
	top := max(s.Top(), o.Top())
	right := min(s.Right(), o.Right())
	bottom := min(s.Bottom(), o.Bottom())
	if right <= left || bottom <= top {
		return Section{}, false
	}
	return NewSection(left, top, right-left, bottom-top), true
}
