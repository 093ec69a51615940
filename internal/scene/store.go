package scene

import (
	"fmt"
	"sync"

	"github.com/stviewer-data/stviewer/internal/catalog"
	"github.com/stviewer-data/stviewer/internal/geom"
	"github.com/stviewer-data/stviewer/internal/monitoring"
)

// ParseFunc turns one manifest entry into a model. Supplied by the caller so
// the store does not depend on any concrete file format.
type ParseFunc func(e catalog.Entry) (*geom.Model, error)

// Store is the single source of truth for the live dataset and its layer
// states. Reads are served against the current dataset pointer at all times;
// LoadDataset builds the replacement entirely off-lock and only the final
// pointer swap excludes readers. Readers therefore never observe a
// half-loaded dataset, and events racing a reload either land on the old
// dataset or fail ErrNotFound once the swap is visible.
type Store struct {
	mu       sync.RWMutex
	current  *Dataset
	defaults Defaults
}

// NewStore creates an empty store with the given layer-state defaults.
func NewStore(d Defaults) *Store {
	return &Store{defaults: d}
}

// LoadDataset parses every manifest entry and installs the result as the new
// live dataset. Entries that fail to parse are skipped with a recorded
// warning; one corrupt mesh never blocks the point cloud next to it. The
// swap is atomic: until it happens the previous dataset keeps serving.
func (s *Store) LoadDataset(man *catalog.Manifest, parse ParseFunc, rec *monitoring.Recorder) (*Dataset, error) {
	ds := BuildDataset(man, parse, s.defaults, rec)
	s.Install(ds)
	monitoring.Logf("loaded dataset %s: %d of %d models, %d warnings",
		man.Root, len(ds.Models), len(man.Entries), len(ds.Warnings))
	return ds, nil
}

// BuildDataset parses every manifest entry into a dataset ready to install.
// Entries that fail to parse are skipped with a recorded warning; one corrupt
// mesh never blocks the point cloud next to it.
func BuildDataset(man *catalog.Manifest, parse ParseFunc, d Defaults, rec *monitoring.Recorder) *Dataset {
	models := make([]*geom.Model, 0, len(man.Entries))
	for _, e := range man.Entries {
		m, err := parse(e)
		if err != nil {
			rec.Warnf("skipping %s: %v", e.Path, err)
			continue
		}
		models = append(models, m)
	}
	return NewDataset(man.Root, man.H5ADPath, models, rec.Warnings(), d)
}

// Install atomically replaces the live dataset.
func (s *Store) Install(ds *Dataset) {
	s.mu.Lock()
	s.current = ds
	s.mu.Unlock()
}

// Current returns the live dataset, or nil before the first load.
func (s *Store) Current() *Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// GetModel looks up a model in the live dataset.
func (s *Store) GetModel(id string) (*geom.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, fmt.Errorf("no dataset loaded: %w", ErrNotFound)
	}
	m, ok := s.current.Model(id)
	if !ok {
		return nil, fmt.Errorf("layer %q: %w", id, ErrNotFound)
	}
	return m, nil
}

// LayerState returns a copy of the current state for one layer.
func (s *Store) LayerState(id string) (LayerState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return LayerState{}, fmt.Errorf("no dataset loaded: %w", ErrNotFound)
	}
	st, ok := s.current.layers[id]
	if !ok {
		return LayerState{}, fmt.Errorf("layer %q: %w", id, ErrNotFound)
	}
	return *st, nil
}

// SetLayerState validates and applies a patch to one layer. Unknown ids fail
// with ErrNotFound, which is what stale events referencing a replaced
// dataset resolve to. On validation failure no state changes.
func (s *Store) SetLayerState(id string, p LayerPatch) (LayerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return LayerState{}, fmt.Errorf("no dataset loaded: %w", ErrNotFound)
	}
	st, ok := s.current.layers[id]
	if !ok {
		return LayerState{}, fmt.Errorf("layer %q: %w", id, ErrNotFound)
	}
	m := s.current.byID[id]

	next, err := st.apply(p, m)
	if err != nil {
		return LayerState{}, err
	}
	*st = next
	return next, nil
}

// ToggleVisible flips one layer's visibility as a single read-modify-write
// under the store lock, so the flip is always computed from the dataset that
// receives it, never from one that was swapped out in between.
func (s *Store) ToggleVisible(id string) (LayerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return LayerState{}, fmt.Errorf("no dataset loaded: %w", ErrNotFound)
	}
	st, ok := s.current.layers[id]
	if !ok {
		return LayerState{}, fmt.Errorf("layer %q: %w", id, ErrNotFound)
	}
	st.Visible = !st.Visible
	return *st, nil
}

// LayerInfo pairs a layer id with its state and display metadata.
type LayerInfo struct {
	ID          string
	DisplayName string
	Kind        geom.ModelKind
	State       LayerState
}

// ListLayers returns all layers of the live dataset in draw order.
func (s *Store) ListLayers() []LayerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	out := make([]LayerInfo, 0, len(s.current.Models))
	for _, m := range s.current.Models {
		out = append(out, LayerInfo{
			ID:          m.ID,
			DisplayName: m.DisplayName,
			Kind:        m.Kind,
			State:       *s.current.layers[m.ID],
		})
	}
	return out
}

// Snapshot captures the live dataset and a value copy of all layer states
// for composition. The bool is false before the first load.
func (s *Store) Snapshot() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Snapshot{}, false
	}
	layers := make(map[string]LayerState, len(s.current.layers))
	for id, st := range s.current.layers {
		layers[id] = *st
	}
	return Snapshot{
		Root:   s.current.Root,
		Models: s.current.Models,
		Layers: layers,
	}, true
}
