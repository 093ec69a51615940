package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stviewer-data/stviewer/internal/fsutil"
	"github.com/stviewer-data/stviewer/internal/geom"
	"github.com/stviewer-data/stviewer/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

func validRoot(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("root/h5ad/drosophila_E7_9h.h5ad", []byte("hdf5"), 0644))
	return fsys
}

func TestScan_FullLayout(t *testing.T) {
	t.Parallel()

	fsys := validRoot(t)
	for _, p := range []string{
		"root/mesh_models/0_Embryo_mesh_model.vtk",
		"root/mesh_models/1_CNS_mesh_model.vtk",
		"root/pc_models/0_Embryo_pc_model.vtk",
		"root/trajectory_models/0_Fate_trajectory_model.vtk",
		"root/vf_models/0_Morpho_vf_model.vtk",
	} {
		require.NoError(t, fsys.WriteFile(p, []byte("x"), 0644))
	}

	rec := &monitoring.Recorder{}
	man, err := Scan(fsys, "root", rec)
	require.NoError(t, err)

	assert.Equal(t, "root", man.Root)
	assert.Equal(t, "root/h5ad/drosophila_E7_9h.h5ad", man.H5ADPath)
	assert.Equal(t, 0, rec.Len())

	require.Len(t, man.Entries, 5)
	// Kind-group order: mesh, pc, trajectory, vf; ordinal ascending inside.
	assert.Equal(t, "0:mesh", man.Entries[0].ID())
	assert.Equal(t, "1:mesh", man.Entries[1].ID())
	assert.Equal(t, "0:pc", man.Entries[2].ID())
	assert.Equal(t, "0:trajectory", man.Entries[3].ID())
	assert.Equal(t, "0:vf", man.Entries[4].ID())

	assert.Equal(t, "CNS", man.Entries[1].DisplayName)
	assert.Equal(t, geom.KindVectorField, man.Entries[4].Kind)
}

func TestScan_MissingH5AD(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("root/pc_models/0_Embryo_pc_model.vtk", []byte("x"), 0644))

	_, err := Scan(fsys, "root", nil)
	assert.ErrorIs(t, err, ErrMissingRequiredData)
}

func TestScan_H5ADMustHoldExactlyOneFile(t *testing.T) {
	t.Parallel()

	t.Run("empty folder", func(t *testing.T) {
		t.Parallel()
		fsys := fsutil.NewMemoryFileSystem()
		require.NoError(t, fsys.MkdirAll("root/h5ad", 0755))
		_, err := Scan(fsys, "root", nil)
		assert.ErrorIs(t, err, ErrMissingRequiredData)
	})

	t.Run("two files", func(t *testing.T) {
		t.Parallel()
		fsys := fsutil.NewMemoryFileSystem()
		require.NoError(t, fsys.WriteFile("root/h5ad/a.h5ad", []byte("x"), 0644))
		require.NoError(t, fsys.WriteFile("root/h5ad/b.h5ad", []byte("x"), 0644))
		_, err := Scan(fsys, "root", nil)
		assert.ErrorIs(t, err, ErrMissingRequiredData)
	})
}

func TestScan_PatternMismatchSkippedWithWarning(t *testing.T) {
	t.Parallel()

	fsys := validRoot(t)
	require.NoError(t, fsys.WriteFile("root/pc_models/0_Embryo_pc_model.vtk", []byte("x"), 0644))
	require.NoError(t, fsys.WriteFile("root/pc_models/notes.txt", []byte("x"), 0644))
	// Mesh-named file dropped into the pc folder.
	require.NoError(t, fsys.WriteFile("root/pc_models/1_CNS_mesh_model.vtk", []byte("x"), 0644))

	rec := &monitoring.Recorder{}
	man, err := Scan(fsys, "root", rec)
	require.NoError(t, err)

	require.Len(t, man.Entries, 1)
	assert.Equal(t, "0:pc", man.Entries[0].ID())
	assert.Equal(t, 2, rec.Len())
}

func TestScan_DuplicateOrdinalSkipped(t *testing.T) {
	t.Parallel()

	fsys := validRoot(t)
	require.NoError(t, fsys.WriteFile("root/mesh_models/0_Embryo_mesh_model.vtk", []byte("x"), 0644))
	require.NoError(t, fsys.WriteFile("root/mesh_models/0_Shell_mesh_model.vtk", []byte("x"), 0644))

	rec := &monitoring.Recorder{}
	man, err := Scan(fsys, "root", rec)
	require.NoError(t, err)

	require.Len(t, man.Entries, 1)
	assert.Equal(t, "Embryo", man.Entries[0].DisplayName)
	require.Equal(t, 1, rec.Len())
	assert.Contains(t, rec.Warnings()[0], "0_Shell_mesh_model.vtk")
}

func TestScan_OptionalFoldersAbsent(t *testing.T) {
	t.Parallel()

	fsys := validRoot(t)
	man, err := Scan(fsys, "root", nil)
	require.NoError(t, err)
	assert.Empty(t, man.Entries)
}

func TestScan_DisplayNameKeepsInnerUnderscores(t *testing.T) {
	t.Parallel()

	fsys := validRoot(t)
	require.NoError(t, fsys.WriteFile("root/mesh_models/2_Germ_band_mesh_model.vtk", []byte("x"), 0644))

	man, err := Scan(fsys, "root", nil)
	require.NoError(t, err)
	require.Len(t, man.Entries, 1)
	assert.Equal(t, "Germ_band", man.Entries[0].DisplayName)
	assert.Equal(t, 2, man.Entries[0].Ordinal)
}
