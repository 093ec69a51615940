package scene

import (
	"sort"

	"github.com/stviewer-data/stviewer/internal/geom"
)

// SceneLayer is one renderable entry of a SceneDescription: a geometry
// reference plus fully resolved render parameters.
type SceneLayer struct {
	ID          string
	Kind        geom.ModelKind
	Ordinal     int
	DisplayName string

	// Model is an immutable geometry reference; the renderer must not
	// mutate it.
	Model *geom.Model

	Opacity   float64
	PointSize float64
	LineWidth float64

	// StepLimit caps how many trajectory paths to draw; FullPath means all.
	StepLimit int

	// Color is the fixed layer color, used when ElementColors is nil.
	Color RGB

	// ElementColors carries per-element colors when an attribute drives the
	// coloring; its length equals the model's element count.
	ElementColors []RGB

	// Legend lists category colors for categorical coloring, sorted by
	// label. Nil for fixed or continuous coloring.
	Legend []LegendEntry
}

// SceneDescription is the derived, immutable draw list handed to the
// renderer. It is recomputed from a store snapshot on every relevant
// mutation and never patched in place.
type SceneDescription struct {
	Root   string
	Layers []SceneLayer
}

// Compose derives the scene description for a snapshot. It is deterministic:
// identical snapshots yield identical descriptions, including ordering and
// resolved colors. Layers are grouped mesh, point cloud, trajectory, vector
// field — meshes first so translucent overlays draw correctly against them —
// and ordered by ascending ordinal within each group. Invisible layers are
// excluded entirely.
func Compose(snap Snapshot, cm Colormap) SceneDescription {
	desc := SceneDescription{Root: snap.Root}

	models := make([]*geom.Model, len(snap.Models))
	copy(models, snap.Models)
	sort.SliceStable(models, func(i, j int) bool {
		if models[i].Kind != models[j].Kind {
			return models[i].Kind < models[j].Kind
		}
		return models[i].Ordinal < models[j].Ordinal
	})

	for _, m := range models {
		st, ok := snap.Layers[m.ID]
		if !ok || !st.Visible {
			continue
		}

		layer := SceneLayer{
			ID:          m.ID,
			Kind:        m.Kind,
			Ordinal:     m.Ordinal,
			DisplayName: m.DisplayName,
			Model:       m,
			Opacity:     st.Opacity,
			PointSize:   st.PointSize,
			LineWidth:   st.LineWidth,
			StepLimit:   stepLimit(m, st),
			Color:       st.Color,
		}

		if attr, ok := m.Attribute(st.ActiveAttribute); ok && st.ActiveAttribute != "" {
			switch attr.Kind {
			case geom.AttrCategorical:
				layer.ElementColors, layer.Legend = Categorical(attr.Labels)
			default:
				layer.ElementColors = cm.Numeric(attr.Floats)
			}
		}

		desc.Layers = append(desc.Layers, layer)
	}

	return desc
}

func stepLimit(m *geom.Model, st LayerState) int {
	if m.Kind != geom.KindTrajectory {
		return FullPath
	}
	return st.Step
}
