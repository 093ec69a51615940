// Package vtk parses legacy ASCII VTK POLYDATA files into normalized models.
//
// The viewer's alignment pipeline emits one POLYDATA file per artifact:
// POLYGONS carry mesh faces, VERTICES (or bare POINTS) carry point clouds,
// LINES carry developmental trajectories, and a POINT_DATA VECTORS array
// carries morphogenesis vector fields. Per-point SCALARS and FIELD arrays
// become model attributes; arrays typed "string" are categorical, everything
// else numeric.
package vtk

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/stviewer-data/stviewer/internal/fsutil"
	"github.com/stviewer-data/stviewer/internal/geom"
	"github.com/stviewer-data/stviewer/internal/monitoring"
)

// Parse failure categories. Callers match with errors.Is.
var (
	// ErrUnsupportedFormat marks files that are not legacy ASCII VTK POLYDATA.
	ErrUnsupportedFormat = errors.New("unsupported geometry format")
	// ErrMalformedTopology marks geometry inconsistent with the declared kind,
	// including face indices outside the coordinate range.
	ErrMalformedTopology = errors.New("malformed topology")
	// ErrShapeMismatch marks vector fields whose origin and direction arrays
	// disagree in length.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// Parse reads one model file and returns its normalized form. The declared
// kind comes from the catalog's filename classification and must be
// consistent with the file's contents; a mesh file without face data is an
// error, never a silent downgrade to a point cloud.
//
// Per-point arrays whose length disagrees with the model's element count are
// dropped with a recorded warning rather than failing the parse, so one
// malformed attribute cannot block visualization of the rest.
func Parse(fsys fsutil.FileSystem, path string, kind geom.ModelKind, ordinal int, displayName string, rec *monitoring.Recorder) (*geom.Model, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	raw, err := parsePolyData(data, filepath.Base(path), rec)
	if err != nil {
		return nil, err
	}

	model := &geom.Model{
		ID:          geom.ModelID(ordinal, kind),
		Kind:        kind,
		Ordinal:     ordinal,
		DisplayName: displayName,
		Attributes:  make(map[string]geom.Attribute),
	}

	if len(raw.points) == 0 {
		return nil, fmt.Errorf("%s: no POINTS section: %w", path, ErrMalformedTopology)
	}

	switch kind {
	case geom.KindMesh:
		if len(raw.faces) == 0 {
			return nil, fmt.Errorf("%s: declared mesh has no face data: %w", path, ErrMalformedTopology)
		}
		model.Points = raw.points
		model.Faces = raw.faces

	case geom.KindPointCloud:
		if len(raw.faces) > 0 {
			rec.Warnf("%s: point cloud file carries %d faces, ignoring them", path, len(raw.faces))
		}
		model.Points = raw.points

	case geom.KindTrajectory:
		if len(raw.lines) == 0 {
			return nil, fmt.Errorf("%s: declared trajectory has no LINES data: %w", path, ErrMalformedTopology)
		}
		model.Paths = make([]geom.Polyline, 0, len(raw.lines))
		for _, line := range raw.lines {
			poly := make(geom.Polyline, 0, len(line))
			for _, idx := range line {
				poly = append(poly, raw.points[idx])
			}
			model.Paths = append(model.Paths, poly)
		}

	case geom.KindVectorField:
		if raw.vectors == nil {
			return nil, fmt.Errorf("%s: declared vector field has no VECTORS data: %w", path, ErrMalformedTopology)
		}
		if len(raw.vectors) != len(raw.points) {
			return nil, fmt.Errorf("%s: %d origins vs %d directions: %w",
				path, len(raw.points), len(raw.vectors), ErrShapeMismatch)
		}
		model.Origins = raw.points
		model.Directions = raw.vectors

	default:
		return nil, fmt.Errorf("%s: unknown declared kind %v: %w", path, kind, ErrUnsupportedFormat)
	}

	want := model.ElementCount()
	for _, arr := range raw.arrays {
		if arr.Len() != want {
			rec.Warnf("%s: attribute %q has %d values for %d elements, dropping it",
				path, arr.Name, arr.Len(), want)
			continue
		}
		model.Attributes[arr.Name] = arr
	}

	return model, nil
}

// rawPolyData is the section-level content of one POLYDATA file before kind
// validation.
type rawPolyData struct {
	points  []geom.Vec3
	faces   [][]int
	lines   [][]int
	vectors []geom.Vec3
	arrays  []geom.Attribute
}

func parsePolyData(data []byte, name string, rec *monitoring.Recorder) (*rawPolyData, error) {
	lines := strings.SplitN(string(data), "\n", 5)
	if len(lines) < 5 {
		return nil, fmt.Errorf("%s: truncated header: %w", name, ErrUnsupportedFormat)
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[0]), "# vtk DataFile") {
		return nil, fmt.Errorf("%s: missing vtk magic: %w", name, ErrUnsupportedFormat)
	}
	// lines[1] is the free-form title.
	if !strings.EqualFold(strings.TrimSpace(lines[2]), "ASCII") {
		return nil, fmt.Errorf("%s: only ASCII encoding is supported: %w", name, ErrUnsupportedFormat)
	}
	dataset := strings.Fields(strings.ToUpper(lines[3]))
	if len(dataset) != 2 || dataset[0] != "DATASET" || dataset[1] != "POLYDATA" {
		return nil, fmt.Errorf("%s: only DATASET POLYDATA is supported: %w", name, ErrUnsupportedFormat)
	}

	s := &tokens{words: strings.Fields(lines[4]), name: name}
	raw := &rawPolyData{}

	// Element count of the data section currently in effect: POINT_DATA
	// opens attribute parsing, CELL_DATA arrays are ignored.
	attrCount := -1
	inPointData := false

	for s.more() && s.err == nil {
		kw := strings.ToUpper(s.next())
		switch kw {
		case "POINTS":
			n := s.count()
			s.next() // value type
			raw.points = s.vec3s(n)

		case "VERTICES":
			// Vertex cells only restate point indices; the point list itself
			// is the cloud.
			n, size := s.count(), s.count()
			_ = n
			s.skip(size)

		case "POLYGONS":
			n, size := s.count(), s.count()
			_ = size
			for i := 0; i < n && s.err == nil; i++ {
				c := s.count()
				if s.err == nil && c < 3 {
					return nil, fmt.Errorf("%s: polygon with %d vertices: %w", name, c, ErrMalformedTopology)
				}
				face := make([]int, 0, c)
				for j := 0; j < c; j++ {
					idx := s.count()
					if s.err != nil {
						break
					}
					if idx < 0 || idx >= len(raw.points) {
						return nil, fmt.Errorf("%s: face index %d out of range [0,%d): %w",
							name, idx, len(raw.points), ErrMalformedTopology)
					}
					face = append(face, idx)
				}
				raw.faces = append(raw.faces, face)
			}

		case "LINES":
			n, size := s.count(), s.count()
			_ = size
			for i := 0; i < n && s.err == nil; i++ {
				c := s.count()
				line := make([]int, 0, c)
				for j := 0; j < c; j++ {
					idx := s.count()
					if s.err != nil {
						break
					}
					if idx < 0 || idx >= len(raw.points) {
						return nil, fmt.Errorf("%s: line index %d out of range [0,%d): %w",
							name, idx, len(raw.points), ErrMalformedTopology)
					}
					line = append(line, idx)
				}
				raw.lines = append(raw.lines, line)
			}

		case "TRIANGLE_STRIPS":
			n, size := s.count(), s.count()
			_ = n
			rec.Warnf("%s: TRIANGLE_STRIPS section is not supported, skipping", name)
			s.skip(size)

		case "POINT_DATA":
			attrCount = s.count()
			inPointData = true

		case "CELL_DATA":
			attrCount = s.count()
			inPointData = false

		case "SCALARS":
			aname, typ := s.next(), s.next()
			comps := s.scalarComps(attrCount)
			if strings.EqualFold(s.peek(), "LOOKUP_TABLE") {
				s.next()
				s.next() // table name
			}
			arr := s.array(aname, typ, comps, attrCount)
			if s.err != nil {
				break
			}
			raw.addArray(arr, comps, inPointData, name, rec)

		case "FIELD":
			s.next() // field name
			m := s.count()
			for i := 0; i < m && s.err == nil; i++ {
				aname := s.next()
				comps, tuples := s.count(), s.count()
				typ := s.next()
				arr := s.array(aname, typ, comps, tuples)
				if s.err != nil {
					break
				}
				raw.addArray(arr, comps, inPointData, name, rec)
			}

		case "VECTORS":
			s.next() // array name
			s.next() // value type
			if attrCount < 0 {
				return nil, fmt.Errorf("%s: VECTORS outside a data section: %w", name, ErrUnsupportedFormat)
			}
			vecs := s.vec3s(attrCount)
			if !inPointData {
				rec.Warnf("%s: ignoring cell-data VECTORS array", name)
				break
			}
			if raw.vectors == nil {
				raw.vectors = vecs
			} else {
				rec.Warnf("%s: multiple VECTORS arrays, keeping the first", name)
			}

		case "NORMALS":
			s.next()
			s.next()
			s.skip(3 * attrCount)

		case "LOOKUP_TABLE":
			s.next() // table name
			size := s.count()
			s.skip(4 * size)

		default:
			return nil, fmt.Errorf("%s: unexpected section %q: %w", name, kw, ErrUnsupportedFormat)
		}
	}

	if s.err != nil {
		return nil, fmt.Errorf("%s: %w", name, s.err)
	}
	return raw, nil
}

// addArray admits a parsed data array as a model attribute candidate.
// Multi-component and cell-data arrays are dropped with a warning: attributes
// are scalar-or-category per element by contract.
func (r *rawPolyData) addArray(arr geom.Attribute, comps int, pointData bool, name string, rec *monitoring.Recorder) {
	if comps != 1 {
		rec.Warnf("%s: array %q has %d components, dropping it", name, arr.Name, comps)
		return
	}
	if !pointData {
		rec.Warnf("%s: ignoring cell-data array %q", name, arr.Name)
		return
	}
	r.arrays = append(r.arrays, arr)
}

// tokens walks the whitespace-separated body of a VTK file with a sticky error.
type tokens struct {
	words []string
	pos   int
	name  string
	err   error
}

func (t *tokens) more() bool { return t.pos < len(t.words) }

func (t *tokens) next() string {
	if t.err != nil {
		return ""
	}
	if t.pos >= len(t.words) {
		t.err = fmt.Errorf("unexpected end of file: %w", ErrUnsupportedFormat)
		return ""
	}
	w := t.words[t.pos]
	t.pos++
	return w
}

func (t *tokens) peek() string {
	if t.err != nil || t.pos >= len(t.words) {
		return ""
	}
	return t.words[t.pos]
}

func (t *tokens) peekAt(off int) string {
	if t.err != nil || t.pos+off >= len(t.words) {
		return ""
	}
	return t.words[t.pos+off]
}

// sectionKeywords are the tokens that can open a new section of the body.
var sectionKeywords = map[string]bool{
	"POINTS": true, "VERTICES": true, "POLYGONS": true, "LINES": true,
	"TRIANGLE_STRIPS": true, "POINT_DATA": true, "CELL_DATA": true,
	"SCALARS": true, "FIELD": true, "VECTORS": true, "NORMALS": true,
	"LOOKUP_TABLE": true,
}

// boundaryAt reports whether a section boundary sits exactly off tokens
// ahead: either the next section keyword or the end of the file.
func (t *tokens) boundaryAt(off int) bool {
	i := t.pos + off
	if i == len(t.words) {
		return true
	}
	if i < 0 || i > len(t.words) {
		return false
	}
	return sectionKeywords[strings.ToUpper(t.words[i])]
}

// scalarComps resolves the optional SCALARS component count. Legacy VTK
// allows omitting it, and for integer-typed arrays the first data value is
// indistinguishable from a count by type alone. The peeked token is consumed
// as the count only when LOOKUP_TABLE follows it, or when reading count *
// tuples values after it lands exactly on a section boundary while reading
// tuples values from the token itself does not.
func (t *tokens) scalarComps(tuples int) int {
	v, err := strconv.Atoi(t.peek())
	if err != nil || v < 1 || v > 4 {
		return 1
	}
	if strings.EqualFold(t.peekAt(1), "LOOKUP_TABLE") {
		t.next()
		return v
	}
	if tuples >= 0 && t.boundaryAt(1+v*tuples) && !t.boundaryAt(tuples) {
		t.next()
		return v
	}
	return 1
}

func (t *tokens) count() int {
	w := t.next()
	if t.err != nil {
		return 0
	}
	v, err := strconv.Atoi(w)
	if err != nil {
		t.err = fmt.Errorf("expected integer, got %q: %w", w, ErrUnsupportedFormat)
		return 0
	}
	return v
}

func (t *tokens) float() float64 {
	w := t.next()
	if t.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(w, 64)
	if err != nil {
		t.err = fmt.Errorf("expected number, got %q: %w", w, ErrUnsupportedFormat)
		return 0
	}
	return v
}

func (t *tokens) skip(n int) {
	for i := 0; i < n && t.err == nil; i++ {
		t.next()
	}
}

func (t *tokens) vec3s(n int) []geom.Vec3 {
	if n < 0 {
		t.err = fmt.Errorf("negative element count: %w", ErrUnsupportedFormat)
		return nil
	}
	out := make([]geom.Vec3, 0, n)
	for i := 0; i < n && t.err == nil; i++ {
		out = append(out, geom.Vec3{X: t.float(), Y: t.float(), Z: t.float()})
	}
	return out
}

// array reads comps*tuples values of the given VTK type. Type "string" yields
// a categorical attribute, anything else numeric.
func (t *tokens) array(name, typ string, comps, tuples int) geom.Attribute {
	total := comps * tuples
	if total < 0 {
		t.err = fmt.Errorf("negative array size for %q: %w", name, ErrUnsupportedFormat)
		return geom.Attribute{}
	}
	if strings.EqualFold(typ, "string") {
		labels := make([]string, 0, total)
		for i := 0; i < total && t.err == nil; i++ {
			labels = append(labels, t.next())
		}
		return geom.Attribute{Name: name, Kind: geom.AttrCategorical, Labels: labels}
	}
	floats := make([]float64, 0, total)
	for i := 0; i < total && t.err == nil; i++ {
		floats = append(floats, t.float())
	}
	return geom.Attribute{Name: name, Kind: geom.AttrNumeric, Floats: floats}
}
