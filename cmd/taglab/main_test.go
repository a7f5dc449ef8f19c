package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/LdDl/taglab-go/internal/config"
	"github.com/LdDl/taglab-go/taglab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(t *testing.T, x, y, size float64) *taglab.Blob {
	t.Helper()
	contour := []taglab.Point{{X: x, Y: y}, {X: x + size, Y: y}, {X: x + size, Y: y + size}, {X: x, Y: y + size}}
	blob, err := taglab.NewBlob(taglab.NoBlob, taglab.Rectangle{X: x, Y: y, Width: size, Height: size}, taglab.NewFilledMask(int(size), int(size)), contour, "Coral")
	require.NoError(t, err)
	return blob
}

func writeProject(t *testing.T) string {
	t.Helper()
	project := taglab.NewProject()
	for i, date := range []string{"2020-06-01", "2021-06-01"} {
		img, err := taglab.NewImage(date, "", date, 1.0)
		require.NoError(t, err)
		require.NoError(t, project.AddNewImage(img, true))
		project.AddBlobs(img, []*taglab.Blob{square(t, float64(i), 0, 10), square(t, 50, 50, 8)}, false)
	}
	filename := filepath.Join(t.TempDir(), "reef.json")
	require.NoError(t, project.Save(filename))
	return filename
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvStorePath, filepath.Join(t.TempDir(), "store"))
	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestMatchAndCheck(t *testing.T) {
	filename := writeProject(t)

	out, err := run(t, "match", filename, "0", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "2020-06-01-2021-06-01: 2 rows")

	project, err := taglab.Load(filename)
	require.NoError(t, err)
	table := project.Correspondences[taglab.TableKey{SourceID: "2020-06-01", TargetID: "2021-06-01"}]
	require.NotNil(t, table)
	for _, row := range table.Rows {
		assert.Equal(t, taglab.ActionSame, row.Action)
	}

	out, err = run(t, "check", filename)
	require.NoError(t, err)
	assert.Contains(t, out, "1 tables consistent")

	out, err = run(t, "genets", filename, "0")
	require.NoError(t, err)
	assert.Contains(t, out, "2021-06-01")

	_, err = run(t, "match", filename)
	assert.Error(t, err)
	_, err = run(t, "match", filename, "0", "x")
	assert.Error(t, err)
}

func TestProjectName(t *testing.T) {
	assert.Equal(t, "reef", projectName("", "/data/reef.json"))
	assert.Equal(t, "site-b", projectName("site-b", "/data/reef.json"))
}
