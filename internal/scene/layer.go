// Package scene owns the live scene state: the loaded dataset, the mutable
// per-layer render parameters, and the derivation of immutable render-ready
// scene descriptions from the two.
package scene

import (
	"errors"
	"fmt"

	"github.com/stviewer-data/stviewer/internal/geom"
)

// State mutation failure categories.
var (
	// ErrNotFound marks a layer id absent from the live dataset. Stale
	// interaction events referencing a replaced dataset fail with this.
	ErrNotFound = errors.New("layer not found")
	// ErrInvalidPatch marks a layer patch with an out-of-range value.
	ErrInvalidPatch = errors.New("invalid layer patch")
)

// RGB is an 8-bit display color.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// FullPath disables trajectory step scrubbing: all path segments are drawn.
const FullPath = -1

// LayerState is the mutable render state of one layer. One exists per model
// id from the moment the model is admitted into the store until the dataset
// is replaced; states are never shared across datasets.
type LayerState struct {
	Visible         bool    `json:"visible"`
	Opacity         float64 `json:"opacity"`
	Color           RGB     `json:"color"`
	PointSize       float64 `json:"point_size"`
	LineWidth       float64 `json:"line_width"`
	ActiveAttribute string  `json:"active_attribute"`
	// Step limits how many trajectory paths are drawn, for scrubbing through
	// developmental time. FullPath draws everything. Ignored for other kinds.
	Step int `json:"step"`
}

// LayerPatch updates a subset of a LayerState. Nil fields are left unchanged.
type LayerPatch struct {
	Visible         *bool    `json:"visible,omitempty"`
	Opacity         *float64 `json:"opacity,omitempty"`
	Color           *RGB     `json:"color,omitempty"`
	PointSize       *float64 `json:"point_size,omitempty"`
	LineWidth       *float64 `json:"line_width,omitempty"`
	ActiveAttribute *string  `json:"active_attribute,omitempty"`
	Step            *int     `json:"step,omitempty"`
}

// Defaults carries the configurable initial render parameters. Zero values
// mean "use the built-in default": opacity 1.0, point size 3, line width 2.
type Defaults struct {
	PointSize             float64
	LineWidth             float64
	MeshOpacity           float64
	Colormap              string
	AutoSelectCategorical bool
}

// defaultPalette supplies fixed layer colors, cycled by ordinal so adjacent
// layers are distinguishable before any attribute is selected.
var defaultPalette = []RGB{
	{R: 220, G: 220, B: 220}, // gainsboro, the whole-embryo convention
	{R: 102, G: 194, B: 165},
	{R: 252, G: 141, B: 98},
	{R: 141, G: 160, B: 203},
	{R: 231, G: 138, B: 195},
	{R: 166, G: 216, B: 84},
}

// DefaultLayerState builds the initial state for a model of the given kind.
func DefaultLayerState(m *geom.Model, d Defaults) LayerState {
	st := LayerState{
		Visible:   true,
		Opacity:   1.0,
		Color:     defaultPalette[m.Ordinal%len(defaultPalette)],
		PointSize: 3,
		LineWidth: 2,
		Step:      FullPath,
	}
	if m.Kind == geom.KindMesh && d.MeshOpacity > 0 {
		st.Opacity = d.MeshOpacity
	}
	if d.PointSize > 0 {
		st.PointSize = d.PointSize
	}
	if d.LineWidth > 0 {
		st.LineWidth = d.LineWidth
	}
	return st
}

// apply validates the patch against the model and merges it into the state.
// On any validation failure the state is returned unchanged.
func (st LayerState) apply(p LayerPatch, m *geom.Model) (LayerState, error) {
	if p.Opacity != nil && (*p.Opacity < 0 || *p.Opacity > 1) {
		return st, fmt.Errorf("opacity %v outside [0,1]: %w", *p.Opacity, ErrInvalidPatch)
	}
	if p.PointSize != nil && *p.PointSize <= 0 {
		return st, fmt.Errorf("point size %v must be positive: %w", *p.PointSize, ErrInvalidPatch)
	}
	if p.LineWidth != nil && *p.LineWidth <= 0 {
		return st, fmt.Errorf("line width %v must be positive: %w", *p.LineWidth, ErrInvalidPatch)
	}
	if p.ActiveAttribute != nil && *p.ActiveAttribute != "" {
		if _, ok := m.Attribute(*p.ActiveAttribute); !ok {
			return st, fmt.Errorf("model %s has no attribute %q: %w", m.ID, *p.ActiveAttribute, ErrInvalidPatch)
		}
	}
	if p.Step != nil {
		if *p.Step < FullPath || (*p.Step != FullPath && *p.Step >= len(m.Paths)) {
			return st, fmt.Errorf("step %d outside [0,%d): %w", *p.Step, len(m.Paths), ErrInvalidPatch)
		}
	}

	if p.Visible != nil {
		st.Visible = *p.Visible
	}
	if p.Opacity != nil {
		st.Opacity = *p.Opacity
	}
	if p.Color != nil {
		st.Color = *p.Color
	}
	if p.PointSize != nil {
		st.PointSize = *p.PointSize
	}
	if p.LineWidth != nil {
		st.LineWidth = *p.LineWidth
	}
	if p.ActiveAttribute != nil {
		st.ActiveAttribute = *p.ActiveAttribute
	}
	if p.Step != nil {
		st.Step = *p.Step
	}
	return st, nil
}
