package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stviewer-data/stviewer/internal/geom"
	"github.com/stviewer-data/stviewer/internal/scene"
)

func testDataset(t *testing.T) *scene.Dataset {
	t.Helper()
	pc := &geom.Model{
		ID:          "0:pc",
		Kind:        geom.KindPointCloud,
		DisplayName: "Embryo",
		Points:      []geom.Vec3{{}, {X: 1}, {Y: 1}},
		Attributes: map[string]geom.Attribute{
			"cluster": {
				Name:   "cluster",
				Kind:   geom.AttrCategorical,
				Labels: []string{"A", "B", "A"},
			},
			"curvature": {
				Name:   "curvature",
				Kind:   geom.AttrNumeric,
				Floats: []float64{0.1, 0.2, 0.3},
			},
		},
	}
	mesh := &geom.Model{
		ID:          "0:mesh",
		Kind:        geom.KindMesh,
		DisplayName: "Shell",
		Points:      []geom.Vec3{{}, {X: 1}, {Y: 1}},
		Faces:       [][]int{{0, 1, 2}},
	}
	return scene.NewDataset("ds1", "ds1/h5ad/expr.h5ad",
		[]*geom.Model{mesh, pc}, nil, scene.Defaults{})
}

func TestBuild_OneChartPerAttribute(t *testing.T) {
	t.Parallel()

	page := Build(testDataset(t))
	// cluster bar + curvature scatter; the bare mesh contributes nothing.
	assert.Len(t, page.Charts, 2)
}

func TestWriteHTML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(testDataset(t), &buf))

	html := buf.String()
	assert.Contains(t, html, "cluster")
	assert.Contains(t, html, "curvature")
	assert.Contains(t, html, "Embryo")
}

func TestBuild_DownsamplesLargeNumericAttributes(t *testing.T) {
	t.Parallel()

	n := 5000
	floats := make([]float64, n)
	points := make([]geom.Vec3, n)
	for i := range floats {
		floats[i] = float64(i)
		points[i] = geom.Vec3{X: float64(i)}
	}
	m := &geom.Model{
		ID:          "0:pc",
		Kind:        geom.KindPointCloud,
		DisplayName: "Big",
		Points:      points,
		Attributes: map[string]geom.Attribute{
			"value": {Name: "value", Kind: geom.AttrNumeric, Floats: floats},
		},
	}
	ds := scene.NewDataset("big", "big/h5ad/expr.h5ad", []*geom.Model{m}, nil, scene.Defaults{})

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(ds, &buf))
	assert.Contains(t, buf.String(), "stride 3")
}
