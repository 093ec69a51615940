package vtk

import (
	"strings"
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

const header = "# vtk DataFile Version 3.0\ngenerated for test\nASCII\nDATASET POLYDATA\n"

func writeModel(t *testing.T, fsys *fsutil.MemoryFileSystem, path, body string) {
	t.Helper()
	require.NoError(t, fsys.WriteFile(path, []byte(header+body), 0644))
}

func TestParse_PointCloudWithAttributes(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	writeModel(t, fsys, "pc.vtk", strings.Join([]string{
		"POINTS 4 float",
		"0 0 0  1 0 0  0 1 0  0 0 1",
		"VERTICES 4 8",
		"1 0  1 1  1 2  1 3",
		"POINT_DATA 4",
		"SCALARS curvature float 1",
		"LOOKUP_TABLE default",
		"0.1 0.2 0.3 0.4",
		"SCALARS cluster string 1",
		"A B A B",
	}, "\n"))

	rec := &monitoring.Recorder{}
	m, err := Parse(fsys, "pc.vtk", geom.KindPointCloud, 0, "Embryo", rec)
	require.NoError(t, err)

	assert.Equal(t, "0:pc", m.ID)
	assert.Equal(t, "Embryo", m.DisplayName)
	assert.Len(t, m.Points, 4)
	assert.Equal(t, geom.Vec3{Y: 1}, m.Points[2])
	assert.Equal(t, 0, rec.Len())

	curv, ok := m.Attribute("curvature")
	require.True(t, ok)
	assert.Equal(t, geom.AttrNumeric, curv.Kind)
	assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.4}, curv.Floats)

	cluster, ok := m.Attribute("cluster")
	require.True(t, ok)
	assert.Equal(t, geom.AttrCategorical, cluster.Kind)
	assert.Equal(t, []string{"A", "B", "A", "B"}, cluster.Labels)
}

func TestParse_ScalarsWithoutComponentCount(t *testing.T) {
	t.Parallel()

	// Legacy VTK allows omitting the SCALARS component count, in which case
	// the first data value of an integer array sits where the count would
	// be. It must be read as data, not as a count.
	fsys := fsutil.NewMemoryFileSystem()
	writeModel(t, fsys, "pc.vtk", strings.Join([]string{
		"POINTS 3 float",
		"0 0 0  1 0 0  0 1 0",
		"POINT_DATA 3",
		"SCALARS flag int",
		"1 0 1",
		"SCALARS count int",
		"2 6 7",
	}, "\n"))

	rec := &monitoring.Recorder{}
	m, err := Parse(fsys, "pc.vtk", geom.KindPointCloud, 0, "Embryo", rec)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Len())

	flag, ok := m.Attribute("flag")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 0, 1}, flag.Floats)

	count, ok := m.Attribute("count")
	require.True(t, ok)
	assert.Equal(t, []float64{2, 6, 7}, count.Floats)
}

func TestParse_ScalarsExplicitComponentCountWithoutLookupTable(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	writeModel(t, fsys, "pc.vtk", strings.Join([]string{
		"POINTS 3 float",
		"0 0 0  1 0 0  0 1 0",
		"POINT_DATA 3",
		"SCALARS v float 1",
		"0.5 0.6 0.7",
	}, "\n"))

	m, err := Parse(fsys, "pc.vtk", geom.KindPointCloud, 0, "Embryo", nil)
	require.NoError(t, err)

	v, ok := m.Attribute("v")
	require.True(t, ok)
	assert.Equal(t, []float64{0.5, 0.6, 0.7}, v.Floats)
}

func TestParse_MeshFaces(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	writeModel(t, fsys, "mesh.vtk", strings.Join([]string{
		"POINTS 4 float",
		"0 0 0  1 0 0  0 1 0  0 0 1",
		"POLYGONS 2 8",
		"3 0 1 2",
		"3 0 2 3",
	}, "\n"))

	m, err := Parse(fsys, "mesh.vtk", geom.KindMesh, 1, "Shell", nil)
	require.NoError(t, err)
	assert.Equal(t, "1:mesh", m.ID)
	require.Len(t, m.Faces, 2)
	assert.Equal(t, []int{0, 2, 3}, m.Faces[1])
}

func TestParse_MeshWithoutFacesIsNotDowngraded(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	writeModel(t, fsys, "mesh.vtk", strings.Join([]string{
		"POINTS 2 float",
		"0 0 0  1 1 1",
	}, "\n"))

	_, err := Parse(fsys, "mesh.vtk", geom.KindMesh, 0, "Shell", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedTopology)
}

func TestParse_FaceIndexOutOfRange(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	writeModel(t, fsys, "mesh.vtk", strings.Join([]string{
		"POINTS 3 float",
		"0 0 0  1 0 0  0 1 0",
		"POLYGONS 1 4",
		"3 0 1 7",
	}, "\n"))

	_, err := Parse(fsys, "mesh.vtk", geom.KindMesh, 0, "Shell", nil)
	assert.ErrorIs(t, err, ErrMalformedTopology)
}

func TestParse_Trajectory(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	writeModel(t, fsys, "traj.vtk", strings.Join([]string{
		"POINTS 5 float",
		"0 0 0  1 0 0  2 0 0  0 1 0  0 2 0",
		"LINES 2 9",
		"3 0 1 2",
		"2 3 4",
		"POINT_DATA 5",
		"SCALARS stage float 1",
		"LOOKUP_TABLE default",
		"0 1 2 0 1",
	}, "\n"))

	m, err := Parse(fsys, "traj.vtk", geom.KindTrajectory, 0, "Fate", nil)
	require.NoError(t, err)
	require.Len(t, m.Paths, 2)
	assert.Equal(t, geom.Polyline{{X: 0}, {X: 1}, {X: 2}}, m.Paths[0])
	assert.Equal(t, geom.Polyline{{Y: 1}, {Y: 2}}, m.Paths[1])
	assert.Equal(t, 5, m.ElementCount())

	stage, ok := m.Attribute("stage")
	require.True(t, ok)
	assert.Equal(t, []float64{0, 1, 2, 0, 1}, stage.Floats)
}

func TestParse_VectorField(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	writeModel(t, fsys, "vf.vtk", strings.Join([]string{
		"POINTS 2 float",
		"0 0 0  1 1 1",
		"POINT_DATA 2",
		"VECTORS vectors float",
		"0 0 1  0 0 -1",
		"SCALARS V_Z float 1",
		"LOOKUP_TABLE default",
		"1 -1",
	}, "\n"))

	m, err := Parse(fsys, "vf.vtk", geom.KindVectorField, 2, "Morpho", nil)
	require.NoError(t, err)
	assert.Equal(t, "2:vf", m.ID)
	require.Len(t, m.Origins, 2)
	require.Len(t, m.Directions, 2)
	assert.Equal(t, geom.Vec3{Z: -1}, m.Directions[1])

	vz, ok := m.Attribute("V_Z")
	require.True(t, ok)
	assert.Equal(t, []float64{1, -1}, vz.Floats)
}

func TestParse_VectorFieldShapeMismatch(t *testing.T) {
	t.Parallel()

	// POINT_DATA declares fewer tuples than there are points, so the
	// directions array comes out shorter than the origins.
	fsys := fsutil.NewMemoryFileSystem()
	writeModel(t, fsys, "vf.vtk", strings.Join([]string{
		"POINTS 3 float",
		"0 0 0  1 1 1  2 2 2",
		"POINT_DATA 2",
		"VECTORS vectors float",
		"0 0 1  0 0 -1",
	}, "\n"))

	_, err := Parse(fsys, "vf.vtk", geom.KindVectorField, 0, "Morpho", nil)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestParse_MismatchedAttributeDroppedWithWarning(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	writeModel(t, fsys, "pc.vtk", strings.Join([]string{
		"POINTS 3 float",
		"0 0 0  1 0 0  0 1 0",
		"POINT_DATA 3",
		"FIELD FieldData 2",
		"good 1 3 float",
		"1 2 3",
		"short 1 2 float",
		"1 2",
	}, "\n"))

	rec := &monitoring.Recorder{}
	m, err := Parse(fsys, "pc.vtk", geom.KindPointCloud, 0, "Embryo", rec)
	require.NoError(t, err)

	_, ok := m.Attribute("good")
	assert.True(t, ok)
	_, ok = m.Attribute("short")
	assert.False(t, ok)

	warnings := rec.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], `"short"`)
}

func TestParse_UnsupportedFormats(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data string
	}{
		{"not vtk", "PLY\nformat ascii 1.0\nend_header\n0 0 0\n"},
		{"binary", "# vtk DataFile Version 3.0\nt\nBINARY\nDATASET POLYDATA\nPOINTS 0 float\n"},
		{"structured grid", header[:len(header)-len("DATASET POLYDATA\n")] + "DATASET STRUCTURED_GRID\nDIMENSIONS 1 1 1\n"},
		{"truncated", "# vtk DataFile Version 3.0\n"},
		{"garbage counts", header + "POINTS banana float\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			fsys := fsutil.NewMemoryFileSystem()
			require.NoError(t, fsys.WriteFile("m.vtk", []byte(tc.data), 0644))
			_, err := Parse(fsys, "m.vtk", geom.KindPointCloud, 0, "x", nil)
			assert.ErrorIs(t, err, ErrUnsupportedFormat)
		})
	}
}

func TestParse_PureFunctionOfBytes(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		"POINTS 2 float",
		"0 0 0  1 1 1",
		"POINT_DATA 2",
		"SCALARS v float 1",
		"LOOKUP_TABLE default",
		"5 6",
	}, "\n")

	fsys := fsutil.NewMemoryFileSystem()
	writeModel(t, fsys, "pc.vtk", body)

	a, err := Parse(fsys, "pc.vtk", geom.KindPointCloud, 0, "x", nil)
	require.NoError(t, err)
	b, err := Parse(fsys, "pc.vtk", geom.KindPointCloud, 0, "x", nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
