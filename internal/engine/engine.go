// Package engine coordinates interaction events against the live scene:
// layer patches, dataset reloads and element picking all funnel through one
// Engine so that every event observes a consistent dataset.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/stviewer-data/stviewer/internal/catalog"
	"github.com/stviewer-data/stviewer/internal/fsutil"
	"github.com/stviewer-data/stviewer/internal/geom"
	"github.com/stviewer-data/stviewer/internal/monitoring"
	"github.com/stviewer-data/stviewer/internal/presets"
	"github.com/stviewer-data/stviewer/internal/scene"
	"github.com/stviewer-data/stviewer/internal/vtk"
)

// ErrSuperseded marks a reload whose result was discarded because a newer
// reload was requested while it was still parsing. The newer reload wins;
// the superseded one installs nothing.
var ErrSuperseded = errors.New("reload superseded")

// Engine serializes interaction events against the scene store. Dataset
// builds run outside the event lock so a slow reload never blocks reads of
// the previous dataset, but installation and every state mutation happen
// under it, one event at a time.
type Engine struct {
	fsys     fsutil.FileSystem
	store    *scene.Store
	cm       scene.Colormap
	defaults scene.Defaults
	presets  *presets.Store // nil disables persistence

	// reloadGen increments on every reload request; a build only installs
	// if it still holds the newest generation when it finishes.
	reloadGen atomic.Int64

	mu sync.Mutex
	pk *picker
}

// Result is the outcome of one handled event. Scene is set for every event
// that can change what is rendered; Pick only for pick events; LoadID and
// Warnings only for reloads.
type Result struct {
	Scene    *scene.SceneDescription
	Pick     *PickResult
	LoadID   string
	Warnings []string
}

// New creates an engine reading datasets through fsys. A nil preset store
// turns persistence off.
func New(fsys fsutil.FileSystem, defaults scene.Defaults, ps *presets.Store) (*Engine, error) {
	cm, err := scene.NewColormap(defaults.Colormap)
	if err != nil {
		return nil, err
	}
	return &Engine{
		fsys:     fsys,
		store:    scene.NewStore(defaults),
		cm:       cm,
		defaults: defaults,
		presets:  ps,
	}, nil
}

// Store exposes the underlying scene store for read-only inspection such as
// listing layers.
func (e *Engine) Store() *scene.Store { return e.store }

// Handle processes one event and returns its result. Events are applied
// one at a time; an error leaves all state as it was, except that a failed
// reload still consumes its generation so an older in-flight reload cannot
// install over a newer request.
func (e *Engine) Handle(ctx context.Context, ev Event) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch ev := ev.(type) {
	case ReloadDataset:
		return e.reload(ctx, ev.Root)
	case Pick:
		return e.pick(ev.Target)
	case ToggleLayer:
		return e.toggle(ev.ID)
	case SetColor:
		return e.patch(ev.ID, scene.LayerPatch{Color: &ev.Color})
	case SetOpacity:
		return e.patch(ev.ID, scene.LayerPatch{Opacity: &ev.Opacity})
	case SetPointSize:
		return e.patch(ev.ID, scene.LayerPatch{PointSize: &ev.Size})
	case SetLineWidth:
		return e.patch(ev.ID, scene.LayerPatch{LineWidth: &ev.Width})
	case SetAttribute:
		return e.patch(ev.ID, scene.LayerPatch{ActiveAttribute: &ev.Name})
	case SetStep:
		return e.patch(ev.ID, scene.LayerPatch{Step: &ev.Step})
	default:
		return nil, fmt.Errorf("unhandled event type %T", ev)
	}
}

// reload scans and parses the dataset under root and, if no newer reload has
// started in the meantime, installs it as the live dataset. Scan and parse
// failures leave the previous dataset serving.
func (e *Engine) reload(ctx context.Context, root string) (*Result, error) {
	gen := e.reloadGen.Add(1)
	rec := &monitoring.Recorder{}

	man, err := catalog.Scan(e.fsys, root, rec)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds := scene.BuildDataset(man, func(en catalog.Entry) (*geom.Model, error) {
		return vtk.Parse(e.fsys, en.Path, en.Kind, en.Ordinal, en.DisplayName, rec)
	}, e.defaults, rec)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.reloadGen.Load() {
		return nil, fmt.Errorf("reload of %s: %w", root, ErrSuperseded)
	}

	e.store.Install(ds)
	e.pk = newPicker(ds)
	e.applyPresets(root, rec)

	res := &Result{Warnings: rec.Warnings()}
	if e.presets != nil {
		loadID, err := e.presets.RecordLoad(root, len(ds.Models), ds.Warnings)
		if err != nil {
			monitoring.Logf("recording load of %s: %v", root, err)
		} else {
			res.LoadID = loadID
		}
	}
	monitoring.Logf("loaded dataset %s: %d of %d models, %d warnings",
		root, len(ds.Models), len(man.Entries), len(ds.Warnings))

	res.Scene = e.composeLocked()
	return res, nil
}

// applyPresets restores saved layer states for a root onto the freshly
// installed dataset. Presets for layers the dataset no longer has, or whose
// values no longer validate, are skipped.
func (e *Engine) applyPresets(root string, rec *monitoring.Recorder) {
	if e.presets == nil {
		return
	}
	saved, err := e.presets.LayerStates(root)
	if err != nil {
		monitoring.Logf("loading presets for %s: %v", root, err)
		return
	}
	for id, st := range saved {
		st := st
		p := scene.LayerPatch{
			Visible:   &st.Visible,
			Opacity:   &st.Opacity,
			Color:     &st.Color,
			PointSize: &st.PointSize,
			LineWidth: &st.LineWidth,
			Step:      &st.Step,
		}
		if st.ActiveAttribute != "" {
			p.ActiveAttribute = &st.ActiveAttribute
		}
		if _, err := e.store.SetLayerState(id, p); err != nil {
			if errors.Is(err, scene.ErrNotFound) {
				continue
			}
			rec.Warnf("preset for layer %s no longer applies: %v", id, err)
		}
	}
}

// patch applies a single-layer update, persists the new state as a preset,
// and returns the recomposed scene.
func (e *Engine) patch(id string, p scene.LayerPatch) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := e.store.SetLayerState(id, p)
	if err != nil {
		return nil, err
	}
	e.persistLocked(id, st)
	return &Result{Scene: e.composeLocked()}, nil
}

// toggle flips a layer's visibility. The flip is a read-modify-write inside
// the store lock while e.mu is held, so it cannot straddle a dataset swap:
// it lands wholly on whichever dataset is live when the event is processed.
func (e *Engine) toggle(id string) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := e.store.ToggleVisible(id)
	if err != nil {
		return nil, err
	}
	e.persistLocked(id, st)
	return &Result{Scene: e.composeLocked()}, nil
}

func (e *Engine) persistLocked(id string, st scene.LayerState) {
	if e.presets == nil {
		return
	}
	if ds := e.store.Current(); ds != nil {
		if err := e.presets.SaveLayerState(ds.Root, id, st); err != nil {
			monitoring.Logf("saving preset for layer %s: %v", id, err)
		}
	}
}

// pick resolves the visible element nearest to target against the live
// dataset. Hidden layers are never pick targets.
func (e *Engine) pick(target geom.Vec3) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, ok := e.store.Snapshot()
	if !ok || e.pk == nil {
		return nil, fmt.Errorf("pick: no dataset loaded: %w", scene.ErrNotFound)
	}
	hit, found := e.pk.nearest(snap, target)
	if !found {
		return nil, fmt.Errorf("pick: no visible element: %w", scene.ErrNotFound)
	}
	return &Result{Pick: &hit}, nil
}

func (e *Engine) composeLocked() *scene.SceneDescription {
	snap, ok := e.store.Snapshot()
	if !ok {
		return nil
	}
	desc := scene.Compose(snap, e.cm)
	return &desc
}
