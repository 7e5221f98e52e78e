package dzi

import (
	"fmt"
	"math"
)

// Mode is the interaction state of a viewer.
type Mode int

const (
	// Idle is both the initial and the final state of every interaction.
	Idle Mode = iota
	// Dragging lasts from BeginDrag to EndDrag.
	Dragging
	// Animating is advisory: the scale is already updated, the presentation
	// layer is still transitioning to it.
	Animating
)

var modeNames = []string{"idle", "dragging", "animating"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if m < 0 || int(m) >= len(modeNames) {
		return nil, fmt.Errorf("unknown mode %d", int(m))
	}
	return []byte(modeNames[m]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	for i, name := range modeNames {
		if name == string(text) {
			*m = Mode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown mode %q", text)
}

// Point is a pointer position in screen pixels, or a position in normalized
// image coordinates for a zoom pivot.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) valid() bool {
	return finite(p.X) && finite(p.Y)
}

// State is the pan/zoom state of one viewer. The center is in normalized
// image coordinates.
type State struct {
	Scale   float64 `json:"scale"`
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`
	Mode    Mode    `json:"mode"`
	// Pointer is the last pointer position while dragging.
	Pointer Point `json:"pointer"`
}

// Home is the state of a freshly opened viewer.
func Home() State {
	return State{Scale: 1, CenterX: 0.5, CenterY: 0.5}
}

// WheelDelta is the wheel delta of one notch.
const WheelDelta = 100.

// Options bounds the state machine and describes where the image is shown.
type Options struct {
	MinScale   float64 `toml:"minScale" json:"minScale"`
	MaxScale   float64 `toml:"maxScale" json:"maxScale"`
	ZoomStep   float64 `toml:"zoomStep" json:"zoomStep"`
	ScrollStep float64 `toml:"scrollStep" json:"scrollStep"`

	// Container size in pointer pixels, and device pixels per pointer pixel.
	ContainerWidth  float64 `toml:"-" json:"-"`
	ContainerHeight float64 `toml:"-" json:"-"`
	PixelRatio      float64 `toml:"-" json:"-"`

	// Size of the image on screen at scale 1, and the screen pixels per
	// image pixel at that scale. Set by Fit.
	FrameWidth  float64 `toml:"-" json:"-"`
	FrameHeight float64 `toml:"-" json:"-"`
	Resolution  float64 `toml:"-" json:"-"`
}

var defaults = Options{
	MinScale:   0.5,
	MaxScale:   8,
	ZoomStep:   1.5,
	ScrollStep: 1.2,
}

// DefaultOptions mirrors the legacy viewers. Until Fit is called the frame
// is one unit wide, pointer positions being fractions of the image.
func DefaultOptions() Options {
	return defaults.Normalize()
}

// Normalize replaces unusable settings with the defaults. The transitions
// normalize their options, so the zero Options is usable.
func (o Options) Normalize() Options {
	def := defaults
	if !finite(o.MinScale) || o.MinScale <= 0 {
		o.MinScale = def.MinScale
	}
	if !finite(o.MaxScale) || o.MaxScale <= 0 {
		o.MaxScale = def.MaxScale
	}
	if o.MaxScale < o.MinScale {
		o.MinScale, o.MaxScale = o.MaxScale, o.MinScale
	}
	if !finite(o.ZoomStep) || o.ZoomStep <= 1 {
		o.ZoomStep = def.ZoomStep
	}
	if !finite(o.ScrollStep) || o.ScrollStep <= 1 {
		o.ScrollStep = def.ScrollStep
	}
	if !finite(o.PixelRatio) || o.PixelRatio <= 0 {
		o.PixelRatio = 1
	}
	if !finite(o.FrameWidth) || o.FrameWidth <= 0 {
		o.FrameWidth = 1
	}
	if !finite(o.FrameHeight) || o.FrameHeight <= 0 {
		o.FrameHeight = 1
	}
	if !finite(o.Resolution) || o.Resolution <= 0 {
		o.Resolution = 1
	}
	if !finite(o.ContainerWidth) || o.ContainerWidth <= 0 {
		o.ContainerWidth = o.FrameWidth
	}
	if !finite(o.ContainerHeight) || o.ContainerHeight <= 0 {
		o.ContainerHeight = o.FrameHeight
	}
	return o
}

// Fit places the whole image inside a container of the given size at scale 1.
func (o Options) Fit(desc *Descriptor, width, height float64) Options {
	o.ContainerWidth = width
	o.ContainerHeight = height

	w := float64(desc.Width)
	h := float64(desc.Height)
	if !finite(width) || !finite(height) || width <= 0 || height <= 0 {
		o.ContainerWidth, o.ContainerHeight = w, h
	}

	o.Resolution = math.Min(o.ContainerWidth/w, o.ContainerHeight/h)
	o.FrameWidth = w * o.Resolution
	o.FrameHeight = h * o.Resolution
	return o.Normalize()
}

// Clamp brings any state back within the bounds.
func (o Options) Clamp(s State) State {
	o = o.Normalize()
	if !finite(s.Scale) {
		s.Scale = 1
	}
	if !finite(s.CenterX) {
		s.CenterX = 0.5
	}
	if !finite(s.CenterY) {
		s.CenterY = 0.5
	}
	if s.Mode < Idle || s.Mode > Animating {
		s.Mode = Idle
	}
	if !s.Pointer.valid() {
		s.Pointer = Point{}
	}
	s.Scale = o.clampScale(s.Scale)
	s.CenterX = clamp01(s.CenterX)
	s.CenterY = clamp01(s.CenterY)
	return s
}

func (o Options) clampScale(scale float64) float64 {
	return math.Min(math.Max(scale, o.MinScale), o.MaxScale)
}

// ZoomIn multiplies the scale by the zoom step.
func (o Options) ZoomIn(s State) State {
	o = o.Normalize()
	s.Scale = o.clampScale(s.Scale * o.ZoomStep)
	s.Mode = Animating
	return s
}

// ZoomOut divides the scale by the zoom step.
func (o Options) ZoomOut(s State) State {
	o = o.Normalize()
	s.Scale = o.clampScale(s.Scale / o.ZoomStep)
	s.Mode = Animating
	return s
}

// Settle ends an animation.
func (o Options) Settle(s State) State {
	if s.Mode == Animating {
		s.Mode = Idle
	}
	return s
}

// Reset goes back home.
func (o Options) Reset(s State) State {
	o = o.Normalize()
	home := Home()
	home.Scale = o.clampScale(home.Scale)
	return home
}

// BeginDrag starts a drag at the pointer position.
func (o Options) BeginDrag(s State, p Point) State {
	if !p.valid() {
		return s
	}
	s.Mode = Dragging
	s.Pointer = p
	return s
}

// DragTo pans by the pointer movement since the last position. Dragging the
// pointer right moves the image right, so the center moves left. The center
// never leaves the image, keeping it partially visible.
func (o Options) DragTo(s State, p Point) State {
	if s.Mode != Dragging || !p.valid() {
		return s
	}
	o = o.Normalize()
	dx := p.X - s.Pointer.X
	dy := p.Y - s.Pointer.Y
	s.CenterX = clamp01(s.CenterX - dx/(o.FrameWidth*s.Scale))
	s.CenterY = clamp01(s.CenterY - dy/(o.FrameHeight*s.Scale))
	s.Pointer = p
	return s
}

// EndDrag releases the pointer.
func (o Options) EndDrag(s State) State {
	if s.Mode == Dragging {
		s.Mode = Idle
		s.Pointer = Point{}
	}
	return s
}

// ScrollZoom zooms by one scroll step per wheel notch, negative deltas zoom
// in. The pivot, in normalized image coordinates, stays still on screen.
func (o Options) ScrollZoom(s State, delta float64, pivot Point) State {
	if !finite(delta) || !pivot.valid() {
		return s
	}
	o = o.Normalize()
	scale := o.clampScale(s.Scale * math.Pow(o.ScrollStep, -delta/WheelDelta))
	ratio := s.Scale / scale
	s.CenterX = clamp01(pivot.X - (pivot.X-s.CenterX)*ratio)
	s.CenterY = clamp01(pivot.Y - (pivot.Y-s.CenterY)*ratio)
	s.Scale = scale
	return s
}

// View describes the visible part of the image for the tile selector.
func (o Options) View(s State) View {
	o = o.Normalize()
	s = o.Clamp(s)
	w := o.ContainerWidth / (o.FrameWidth * s.Scale)
	h := o.ContainerHeight / (o.FrameHeight * s.Scale)
	return View{
		Scale: o.Resolution * s.Scale * o.PixelRatio,
		Rect: Rect{
			X: s.CenterX - w/2,
			Y: s.CenterY - h/2,
			W: w,
			H: h,
		},
	}
}

// ActionType names a transition.
type ActionType string

// Transitions available through Apply.
const (
	ActionZoomIn    ActionType = "zoomIn"
	ActionZoomOut   ActionType = "zoomOut"
	ActionReset     ActionType = "reset"
	ActionSettle    ActionType = "settle"
	ActionBeginDrag ActionType = "beginDrag"
	ActionDragTo    ActionType = "dragTo"
	ActionEndDrag   ActionType = "endDrag"
	ActionScroll    ActionType = "scroll"
)

// Valid tells whether Apply knows the action.
func (t ActionType) Valid() bool {
	switch t {
	case ActionZoomIn, ActionZoomOut, ActionReset, ActionSettle,
		ActionBeginDrag, ActionDragTo, ActionEndDrag, ActionScroll:
		return true
	}
	return false
}

// Action is a serialisable user gesture.
type Action struct {
	Type    ActionType `json:"type"`
	Pointer Point      `json:"pointer"`
	Delta   float64    `json:"delta"`
	Pivot   Point      `json:"pivot"`
}

// Apply runs the transition named by the action. Unknown actions leave the
// state untouched, apart from clamping.
func (o Options) Apply(s State, a Action) State {
	o = o.Normalize()
	s = o.Clamp(s)
	switch a.Type {
	case ActionZoomIn:
		return o.ZoomIn(s)
	case ActionZoomOut:
		return o.ZoomOut(s)
	case ActionReset:
		return o.Reset(s)
	case ActionSettle:
		return o.Settle(s)
	case ActionBeginDrag:
		return o.BeginDrag(s, a.Pointer)
	case ActionDragTo:
		return o.DragTo(s, a.Pointer)
	case ActionEndDrag:
		return o.EndDrag(s)
	case ActionScroll:
		return o.ScrollZoom(s, a.Delta, a.Pivot)
	}
	return s
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clamp01(f float64) float64 {
	return math.Min(math.Max(f, 0), 1)
}
