package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorder_CollectsWarnings(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()
	SetLogger(nil)

	rec := &Recorder{}
	rec.Warnf("skipping %s: %s", "file.vtk", "bad header")
	rec.Warnf("dropped attribute %q", "cluster")

	assert.Equal(t, 2, rec.Len())
	warnings := rec.Warnings()
	assert.Equal(t, `skipping file.vtk: bad header`, warnings[0])
	assert.Equal(t, `dropped attribute "cluster"`, warnings[1])

	// Warnings returns a copy; mutating it must not affect the recorder.
	warnings[0] = "mutated"
	assert.Equal(t, `skipping file.vtk: bad header`, rec.Warnings()[0])

	rec.Reset()
	assert.Equal(t, 0, rec.Len())
	assert.Empty(t, rec.Warnings())
}

func TestRecorder_NilSafe(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	logged := ""
	SetLogger(func(format string, v ...interface{}) { logged = format })

	var rec *Recorder
	rec.Warnf("something happened")
	assert.Equal(t, "[warn] %s", logged)
	assert.Equal(t, 0, rec.Len())
	assert.Nil(t, rec.Warnings())
	rec.Reset()
}
