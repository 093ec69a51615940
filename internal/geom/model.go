package geom

import (
	"fmt"
	"sort"
)

// Model is one loaded artifact. The populated geometry fields depend on Kind:
// Points for point clouds and meshes (meshes additionally carry Faces), Paths
// for trajectories, Origins/Directions for vector fields.
type Model struct {
	ID          string
	Kind        ModelKind
	Ordinal     int
	DisplayName string

	Points     []Vec3
	Faces      [][]int
	Paths      []Polyline
	Origins    []Vec3
	Directions []Vec3

	Attributes map[string]Attribute
}

// ModelID derives the stable layer identifier for an ordinal and kind.
func ModelID(ordinal int, kind ModelKind) string {
	return fmt.Sprintf("%d:%s", ordinal, kind)
}

// ElementCount returns the number of attribute-bearing elements: coordinates
// for point clouds and meshes, vectors for vector fields, and the total
// vertex count across all paths for trajectories.
func (m *Model) ElementCount() int {
	switch m.Kind {
	case KindVectorField:
		return len(m.Directions)
	case KindTrajectory:
		n := 0
		for _, p := range m.Paths {
			n += len(p)
		}
		return n
	default:
		return len(m.Points)
	}
}

// Attribute looks up a named per-element array.
func (m *Model) Attribute(name string) (Attribute, bool) {
	a, ok := m.Attributes[name]
	return a, ok
}

// AttributeNames returns all attribute names in sorted order.
func (m *Model) AttributeNames() []string {
	names := make([]string, 0, len(m.Attributes))
	for name := range m.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Element returns the coordinates of the element at flat index i.
func (m *Model) Element(i int) (Vec3, bool) {
	if i < 0 {
		return Vec3{}, false
	}
	switch m.Kind {
	case KindVectorField:
		if i >= len(m.Origins) {
			return Vec3{}, false
		}
		return m.Origins[i], true
	case KindTrajectory:
		for _, p := range m.Paths {
			if i < len(p) {
				return p[i], true
			}
			i -= len(p)
		}
		return Vec3{}, false
	default:
		if i >= len(m.Points) {
			return Vec3{}, false
		}
		return m.Points[i], true
	}
}
