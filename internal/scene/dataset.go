package scene

import (
	"time"

	"github.com/stviewer-data/stviewer/internal/geom"
)

// Dataset is the full set of models and layer states loaded from one root
// directory. Exactly one dataset is live in a Store at a time; loading a new
// one replaces the old atomically. Layer states are owned by the Store and
// must only be touched through it.
type Dataset struct {
	Root     string
	H5ADPath string
	LoadedAt time.Time

	// Models in manifest order: kind group, then ascending ordinal.
	Models []*geom.Model

	// Warnings collected while this dataset was scanned and parsed.
	Warnings []string

	byID   map[string]*geom.Model
	layers map[string]*LayerState
}

// NewDataset assembles a dataset from parsed models, creating a default
// layer state for each as it is admitted.
func NewDataset(root, h5adPath string, models []*geom.Model, warnings []string, d Defaults) *Dataset {
	ds := &Dataset{
		Root:     root,
		H5ADPath: h5adPath,
		LoadedAt: time.Now(),
		Models:   models,
		Warnings: warnings,
		byID:     make(map[string]*geom.Model, len(models)),
		layers:   make(map[string]*LayerState, len(models)),
	}
	for _, m := range models {
		st := DefaultLayerState(m, d)
		if d.AutoSelectCategorical && m.Kind == geom.KindPointCloud {
			if name, ok := soleCategorical(m); ok {
				st.ActiveAttribute = name
			}
		}
		ds.byID[m.ID] = m
		ds.layers[m.ID] = &st
	}
	return ds
}

// soleCategorical reports the name of the model's only categorical attribute,
// if it has exactly one.
func soleCategorical(m *geom.Model) (string, bool) {
	found := ""
	for name, a := range m.Attributes {
		if a.Kind != geom.AttrCategorical {
			continue
		}
		if found != "" {
			return "", false
		}
		found = name
	}
	return found, found != ""
}

// Model looks up a model by layer id.
func (ds *Dataset) Model(id string) (*geom.Model, bool) {
	m, ok := ds.byID[id]
	return m, ok
}

// Snapshot is a point-in-time view handed to the compositor: the dataset's
// immutable models plus a value copy of every layer state.
type Snapshot struct {
	Root   string
	Models []*geom.Model
	Layers map[string]LayerState
}
