package engine

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/stviewer-data/stviewer/internal/geom"
	"github.com/stviewer-data/stviewer/internal/scene"
)

// PickResult identifies the element nearest to a pick target and carries its
// attribute values for display. Picking never mutates state.
type PickResult struct {
	LayerID     string
	DisplayName string
	Element     int
	Position    geom.Vec3
	Distance    float64
	Attributes  map[string]interface{}
}

// picker caches one kd-tree per layer of a dataset. Trees are built lazily:
// a layer that is never picked against never pays for one. The cache dies
// with its dataset.
type picker struct {
	ds    *scene.Dataset
	trees map[string]*kdtree.Tree
}

func newPicker(ds *scene.Dataset) *picker {
	return &picker{ds: ds, trees: make(map[string]*kdtree.Tree)}
}

func (p *picker) tree(m *geom.Model) *kdtree.Tree {
	if t, ok := p.trees[m.ID]; ok {
		return t
	}
	n := m.ElementCount()
	pts := make(pickPoints, 0, n)
	for i := 0; i < n; i++ {
		pos, ok := m.Element(i)
		if !ok {
			break
		}
		pts = append(pts, pickPoint{pos: pos, idx: i})
	}
	var t *kdtree.Tree
	if len(pts) > 0 {
		t = kdtree.New(pts, false)
	}
	p.trees[m.ID] = t
	return t
}

// nearest searches the visible layers of a snapshot for the element closest
// to target. ok is false when nothing pickable is visible.
func (p *picker) nearest(snap scene.Snapshot, target geom.Vec3) (PickResult, bool) {
	best := PickResult{Distance: math.Inf(1)}
	found := false

	q := pickPoint{pos: target}
	for _, m := range snap.Models {
		st, ok := snap.Layers[m.ID]
		if !ok || !st.Visible {
			continue
		}
		t := p.tree(m)
		if t == nil {
			continue
		}
		got, distSq := t.Nearest(q)
		if got == nil || distSq >= best.Distance {
			continue
		}
		hit := got.(pickPoint)
		best = PickResult{
			LayerID:     m.ID,
			DisplayName: m.DisplayName,
			Element:     hit.idx,
			Position:    hit.pos,
			Distance:    distSq,
			Attributes:  elementAttributes(m, hit.idx),
		}
		found = true
	}

	if !found {
		return PickResult{}, false
	}
	best.Distance = math.Sqrt(best.Distance)
	return best, true
}

func elementAttributes(m *geom.Model, idx int) map[string]interface{} {
	attrs := make(map[string]interface{}, len(m.Attributes))
	for name, a := range m.Attributes {
		if a.Kind == geom.AttrCategorical {
			attrs[name] = a.Labels[idx]
		} else {
			attrs[name] = a.Floats[idx]
		}
	}
	return attrs
}

// pickPoint is one pickable element in the kd-tree.
type pickPoint struct {
	pos geom.Vec3
	idx int
}

func (p pickPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(pickPoint)
	switch d {
	case 0:
		return p.pos.X - q.pos.X
	case 1:
		return p.pos.Y - q.pos.Y
	default:
		return p.pos.Z - q.pos.Z
	}
}

func (p pickPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance, per kdtree's contract.
func (p pickPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(pickPoint)
	dx := p.pos.X - q.pos.X
	dy := p.pos.Y - q.pos.Y
	dz := p.pos.Z - q.pos.Z
	return dx*dx + dy*dy + dz*dz
}

// pickPoints implements kdtree.Interface.
type pickPoints []pickPoint

func (p pickPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p pickPoints) Len() int                              { return len(p) }
func (p pickPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p pickPoints) Pivot(d kdtree.Dim) int {
	return pickPlane{pickPoints: p, Dim: d}.Pivot()
}

// pickPlane sorts pickPoints along one dimension for tree construction.
type pickPlane struct {
	pickPoints
	kdtree.Dim
}

func (p pickPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.pickPoints[i].pos.X < p.pickPoints[j].pos.X
	case 1:
		return p.pickPoints[i].pos.Y < p.pickPoints[j].pos.Y
	default:
		return p.pickPoints[i].pos.Z < p.pickPoints[j].pos.Z
	}
}

func (p pickPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p pickPlane) Slice(start, end int) kdtree.SortSlicer {
	p.pickPoints = p.pickPoints[start:end]
	return p
}

func (p pickPlane) Swap(i, j int) {
	p.pickPoints[i], p.pickPoints[j] = p.pickPoints[j], p.pickPoints[i]
}
