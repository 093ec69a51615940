// Package catalog discovers model files under a dataset root directory.
//
// The on-disk layout is the upload protocol: a required h5ad/ folder holding
// exactly one expression-matrix file, plus optional model folders whose files
// follow the pattern <ordinal>_<name>_<kind>_model.<ext>. The catalog only
// classifies; geometry parsing is deferred so a single bad file never aborts
// the scan.
package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/stviewer-data/stviewer/internal/fsutil"
	"github.com/stviewer-data/stviewer/internal/geom"
	"github.com/stviewer-data/stviewer/internal/monitoring"
)

// ErrMissingRequiredData marks a root whose h5ad/ folder is absent or does
// not contain exactly one file. Fatal for that root: nothing is loaded and
// any previously live dataset stays in place.
var ErrMissingRequiredData = errors.New("missing required h5ad data")

// kindFolders maps each model subfolder to the kind token its filenames must
// carry. vf_models and trajectory_models hold artifacts materialized by the
// morphogenesis pipeline.
var kindFolders = []struct {
	dir  string
	kind geom.ModelKind
}{
	{"mesh_models", geom.KindMesh},
	{"pc_models", geom.KindPointCloud},
	{"trajectory_models", geom.KindTrajectory},
	{"vf_models", geom.KindVectorField},
}

var entryPattern = regexp.MustCompile(`^(\d+)_(.+)_(mesh|pc|trajectory|vf)_model\.[^.]+$`)

// Entry is one classified model file, not yet parsed.
type Entry struct {
	Path        string
	Kind        geom.ModelKind
	Ordinal     int
	DisplayName string
}

// ID returns the layer identifier the entry's model will carry.
func (e Entry) ID() string {
	return geom.ModelID(e.Ordinal, e.Kind)
}

// Manifest lists everything a scan found under one root.
type Manifest struct {
	Root     string
	H5ADPath string
	Entries  []Entry
}

// Scan builds a manifest for the given root. Files that do not match the
// naming pattern are skipped with a recorded warning; a missing or ambiguous
// h5ad folder fails the whole scan with ErrMissingRequiredData.
//
// Entries are ordered by kind group (mesh, pc, trajectory, vf), then
// ascending ordinal, then filename, so manifests are deterministic and the
// ordinal fixes draw priority within each group.
func Scan(fsys fsutil.FileSystem, root string, rec *monitoring.Recorder) (*Manifest, error) {
	h5adPath, err := findH5AD(fsys, root)
	if err != nil {
		return nil, err
	}

	man := &Manifest{Root: root, H5ADPath: h5adPath}

	for _, folder := range kindFolders {
		dir := filepath.Join(root, folder.dir)
		if !fsys.Exists(dir) {
			continue
		}
		files, err := fsys.ReadDir(dir)
		if err != nil {
			rec.Warnf("cannot list %s: %v", dir, err)
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			entry, ok := classify(dir, f.Name(), folder.kind, rec)
			if ok {
				man.Entries = append(man.Entries, entry)
			}
		}
	}

	sort.Slice(man.Entries, func(i, j int) bool {
		a, b := man.Entries[i], man.Entries[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Ordinal != b.Ordinal {
			return a.Ordinal < b.Ordinal
		}
		return a.Path < b.Path
	})

	// Layer identity is (ordinal, kind); a second file claiming the same
	// slot would shadow the first, so it is skipped instead.
	seen := make(map[string]string)
	kept := man.Entries[:0]
	for _, e := range man.Entries {
		if prev, dup := seen[e.ID()]; dup {
			rec.Warnf("skipping %s: ordinal %d already used by %s", e.Path, e.Ordinal, prev)
			continue
		}
		seen[e.ID()] = e.Path
		kept = append(kept, e)
	}
	man.Entries = kept

	return man, nil
}

// findH5AD locates the single required expression-matrix file. The file is
// consumed by the attribute service, not parsed here; only its existence and
// uniqueness are part of the directory contract.
func findH5AD(fsys fsutil.FileSystem, root string) (string, error) {
	dir := filepath.Join(root, "h5ad")
	if !fsys.Exists(dir) {
		return "", fmt.Errorf("%s has no h5ad folder: %w", root, ErrMissingRequiredData)
	}
	files, err := fsys.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%s: %v: %w", dir, err, ErrMissingRequiredData)
	}
	var regular []string
	for _, f := range files {
		if !f.IsDir() {
			regular = append(regular, f.Name())
		}
	}
	if len(regular) != 1 {
		return "", fmt.Errorf("%s must contain exactly one file, found %d: %w",
			dir, len(regular), ErrMissingRequiredData)
	}
	return filepath.Join(dir, regular[0]), nil
}

// classify matches one filename against the model pattern for its folder.
func classify(dir, name string, want geom.ModelKind, rec *monitoring.Recorder) (Entry, bool) {
	m := entryPattern.FindStringSubmatch(name)
	if m == nil {
		rec.Warnf("skipping %s: filename does not match <ordinal>_<name>_<kind>_model pattern",
			filepath.Join(dir, name))
		return Entry{}, false
	}

	kind, _ := geom.KindFromToken(m[3])
	if kind != want {
		rec.Warnf("skipping %s: %s file in %s folder", filepath.Join(dir, name), m[3], want)
		return Entry{}, false
	}

	ordinal, err := strconv.Atoi(m[1])
	if err != nil {
		rec.Warnf("skipping %s: bad ordinal %q", filepath.Join(dir, name), m[1])
		return Entry{}, false
	}

	return Entry{
		Path:        filepath.Join(dir, name),
		Kind:        kind,
		Ordinal:     ordinal,
		DisplayName: m[2],
	}, true
}
