// Package geom defines the normalized in-memory representation of the 3D
// artifacts the viewer composes: point clouds, surface meshes, developmental
// trajectories and morphogenesis vector fields. All models loaded from one
// dataset root share a single coordinate space; alignment happens upstream.
package geom

import "fmt"

// Vec3 is a point or direction in dataset space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ModelKind identifies the geometry variant a Model carries. The declared
// order is also the compositor's draw-group order: meshes first so that
// translucent point and vector overlays render correctly against them.
type ModelKind int

const (
	KindMesh ModelKind = iota
	KindPointCloud
	KindTrajectory
	KindVectorField
)

var kindNames = map[ModelKind]string{
	KindMesh:        "mesh",
	KindPointCloud:  "pc",
	KindTrajectory:  "trajectory",
	KindVectorField: "vf",
}

// String returns the filename token for the kind ("mesh", "pc", "trajectory", "vf").
func (k ModelKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// KindFromToken resolves a filename kind token to a ModelKind.
func KindFromToken(tok string) (ModelKind, bool) {
	for k, name := range kindNames {
		if name == tok {
			return k, true
		}
	}
	return 0, false
}

// AttributeKind distinguishes numeric from categorical per-element data.
type AttributeKind int

const (
	AttrNumeric AttributeKind = iota
	AttrCategorical
)

// Attribute is one named per-element array. Exactly one of Floats or Labels
// is populated, matching Kind. Its length always equals the owning model's
// element count; mismatched arrays are dropped at parse time.
type Attribute struct {
	Name   string        `json:"name"`
	Kind   AttributeKind `json:"kind"`
	Floats []float64     `json:"floats,omitempty"`
	Labels []string      `json:"labels,omitempty"`
}

// Len returns the number of per-element values.
func (a Attribute) Len() int {
	if a.Kind == AttrCategorical {
		return len(a.Labels)
	}
	return len(a.Floats)
}

// Polyline is one temporal path of a trajectory model, in step order.
type Polyline []Vec3
