package engine

import (
	"github.com/stviewer-data/stviewer/internal/geom"
	"github.com/stviewer-data/stviewer/internal/scene"
)

// Event is the closed set of interactions the coordinator accepts from the
// transport layer. The concrete wire encoding of these is the transport's
// concern; the engine only sees the decoded values.
type Event interface {
	isEvent()
}

// ToggleLayer flips a layer's visibility.
type ToggleLayer struct {
	ID string
}

// SetColor sets a layer's fixed color.
type SetColor struct {
	ID    string
	Color scene.RGB
}

// SetOpacity sets a layer's opacity in [0,1].
type SetOpacity struct {
	ID      string
	Opacity float64
}

// SetPointSize sets a point-cloud layer's point size.
type SetPointSize struct {
	ID   string
	Size float64
}

// SetLineWidth sets a trajectory or vector-field layer's line width.
type SetLineWidth struct {
	ID    string
	Width float64
}

// SetAttribute selects the attribute driving a layer's coloring. An empty
// name reverts to the fixed layer color.
type SetAttribute struct {
	ID   string
	Name string
}

// SetStep scrubs a trajectory layer to a path step; scene.FullPath shows all.
type SetStep struct {
	ID   string
	Step int
}

// ReloadDataset swaps the live dataset for the one under Root.
type ReloadDataset struct {
	Root string
}

// Pick resolves the visible scene element nearest to Target.
type Pick struct {
	Target geom.Vec3
}

func (ToggleLayer) isEvent()   {}
func (SetColor) isEvent()      {}
func (SetOpacity) isEvent()    {}
func (SetPointSize) isEvent()  {}
func (SetLineWidth) isEvent()  {}
func (SetAttribute) isEvent()  {}
func (SetStep) isEvent()       {}
func (ReloadDataset) isEvent() {}
func (Pick) isEvent()          {}
