package taglab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) OnEvent(event Event) {
	r.events = append(r.events, event)
}

func (r *eventRecorder) count(kind EventKind) int {
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// newPairProject returns a project with two images and an empty table between them
func newPairProject(t *testing.T) (*Project, *Image, *Image, *CorrespondenceTable) {
	t.Helper()
	project := NewProject()
	img1 := newTestImage(t, "img1", "2020-06-01")
	img2 := newTestImage(t, "img2", "2021-06-01")
	require.NoError(t, project.AddNewImage(img2, true))
	require.NoError(t, project.AddNewImage(img1, true))
	table, err := project.CreateCorrespondencesTable(0, 1)
	require.NoError(t, err)
	return project, img1, img2, table
}

func rowsWith(table *CorrespondenceTable, isSource bool, id int) int {
	n := 0
	for _, row := range table.Rows {
		if isSource && row.Blob1 == id || !isSource && row.Blob2 == id {
			n++
		}
	}
	return n
}

func TestProjectImagesOrder(t *testing.T) {
	project, img1, img2, table := newPairProject(t)
	assert.Equal(t, []*Image{img1, img2}, project.Images)
	assert.True(t, table.IsSource(img1))
	assert.True(t, table.IsTarget(img2))

	bad := &Image{ID: "bad", AcquisitionDate: "2020-13-45"}
	assert.ErrorIs(t, project.AddNewImage(bad, true), ErrInvalidDate)
	assert.ErrorIs(t, project.AddNewImage(newTestImage(t, "img1", "2019-01-01"), true), ErrDuplicateImage)

	_, err := project.CreateCorrespondencesTable(0, 5)
	assert.ErrorIs(t, err, ErrImageIndex)
	assert.Equal(t, 1, project.IndexOfImage(img2))
	assert.Equal(t, 0, project.IndexByImageName("img1"))
}

func TestUpdateCorrespondencesEmptyAdd(t *testing.T) {
	project, img1, _, table := newPairProject(t)
	a := squareBlob(t, NoBlob, 0, 0, 10, "A")
	require.NoError(t, project.AddBlob(img1, a, false))
	before := append([]Correspondence(nil), table.Rows...)

	recorder := &eventRecorder{}
	project.Subscribe(recorder)
	project.UpdateCorrespondences(OperationAdd, img1, nil, nil, "")

	assert.Equal(t, before, table.Rows)
	assert.Empty(t, recorder.events)
}

func TestUpdateCorrespondencesAdd(t *testing.T) {
	project, img1, img2, table := newPairProject(t)
	recorder := &eventRecorder{}
	project.Subscribe(recorder)

	a := squareBlob(t, NoBlob, 0, 0, 10, "A")
	c := squareBlob(t, NoBlob, 0, 0, 10, "A")
	require.NoError(t, project.AddBlob(img1, a, true))
	require.NoError(t, project.AddBlob(img2, c, true))

	assert.Equal(t, 1, a.ID)
	assert.True(t, a.CorrespondenceToCheck)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 1, rowsWith(table, true, a.ID))
	assert.Equal(t, 1, rowsWith(table, false, c.ID))
	assert.Equal(t, 2, recorder.count(BlobAdded))
	assert.Equal(t, 2, recorder.count(CorrespondenceTableChanged))
	assert.NotEqual(t, recorder.events[0].ID, recorder.events[1].ID)

	// no automatic link: the two blobs stay in separate genets
	assert.NotEqual(t, a.Genet, c.Genet)
}

func TestAddBlobWithoutTables(t *testing.T) {
	project := NewProject()
	img := newTestImage(t, "only", "2020-01-01")
	require.NoError(t, project.AddNewImage(img, true))
	recorder := &eventRecorder{}
	project.Subscribe(recorder)

	blob := squareBlob(t, NoBlob, 0, 0, 10, "A")
	require.NoError(t, project.AddBlob(img, blob, true))
	assert.Equal(t, 1, recorder.count(BlobAdded))
	assert.Equal(t, 0, recorder.count(CorrespondenceTableChanged))
}

func TestAddBlobsSkipsInvalid(t *testing.T) {
	project, img1, _, table := newPairProject(t)
	good := squareBlob(t, NoBlob, 0, 0, 10, "A")
	empty := squareBlob(t, NoBlob, 20, 0, 10, "A")
	empty.Contour = nil
	added := project.AddBlobs(img1, []*Blob{good, empty}, false)
	require.Len(t, added, 1)
	assert.Same(t, good, added[0])
	assert.Len(t, img1.Blobs, 1)
	assert.Len(t, table.Rows, 1)
}

func TestMergeScenario(t *testing.T) {
	project, img1, img2, table := newPairProject(t)
	a := squareBlob(t, NoBlob, 0, 0, 10, "A")
	b := squareBlob(t, NoBlob, 10, 0, 10, "A")
	c := squareBlob(t, NoBlob, 0, 0, 20, "A")
	project.AddBlobs(img1, []*Blob{a, b}, false)
	require.NoError(t, project.AddBlob(img2, c, false))
	project.AddCorrespondences(table, []*Blob{a, b}, []*Blob{c})
	require.Len(t, table.Rows, 2)
	assert.False(t, a.CorrespondenceToCheck)

	d := squareBlob(t, NoBlob, 0, 0, 20, "A")
	require.NoError(t, project.ReplaceBlobs(img1, []*Blob{a, b}, []*Blob{d}, false))

	require.Len(t, table.Rows, 1)
	assert.Equal(t, d.ID, table.Rows[0].Blob1)
	assert.Equal(t, c.ID, table.Rows[0].Blob2)
	assert.Zero(t, rowsWith(table, true, a.ID))
	assert.Zero(t, rowsWith(table, true, b.ID))
	assert.True(t, d.CorrespondenceToCheck)
	assert.True(t, c.CorrespondenceToCheck)
	assert.Equal(t, d.Genet, c.Genet)
	assert.False(t, table.CheckTable())
}

func TestSplitScenario(t *testing.T) {
	project, img1, img2, table := newPairProject(t)
	a := squareBlob(t, NoBlob, 0, 0, 20, "A")
	c := squareBlob(t, NoBlob, 0, 0, 20, "A")
	require.NoError(t, project.AddBlob(img1, a, false))
	require.NoError(t, project.AddBlob(img2, c, false))
	project.AddCorrespondences(table, []*Blob{a}, []*Blob{c})

	d := squareBlob(t, NoBlob, 0, 0, 10, "A")
	e := squareBlob(t, NoBlob, 10, 0, 10, "A")
	require.NoError(t, project.ReplaceBlobs(img1, []*Blob{a}, []*Blob{d, e}, false))

	require.Len(t, table.Rows, 2)
	assert.Equal(t, 1, rowsWith(table, true, d.ID))
	assert.Equal(t, 1, rowsWith(table, true, e.ID))
	assert.Equal(t, 2, rowsWith(table, false, c.ID))
	assert.Zero(t, rowsWith(table, true, a.ID))
	assert.Equal(t, d.Genet, e.Genet)
	assert.Equal(t, d.Genet, c.Genet)
	assert.False(t, table.CheckTable())
}

func TestSplitTargetSide(t *testing.T) {
	project, img1, img2, table := newPairProject(t)
	a := squareBlob(t, NoBlob, 0, 0, 20, "A")
	c := squareBlob(t, NoBlob, 0, 0, 20, "A")
	require.NoError(t, project.AddBlob(img1, a, false))
	require.NoError(t, project.AddBlob(img2, c, false))
	project.AddCorrespondences(table, []*Blob{a}, []*Blob{c})

	d := squareBlob(t, NoBlob, 0, 0, 10, "A")
	e := squareBlob(t, NoBlob, 10, 0, 10, "A")
	require.NoError(t, project.ReplaceBlobs(img2, []*Blob{c}, []*Blob{d, e}, false))
	require.Len(t, table.Rows, 2)
	for _, row := range table.Rows {
		assert.Equal(t, a.ID, row.Blob1)
		assert.Equal(t, SplitFuseSplit, row.SplitFuse)
	}
}

func TestRemoveKeepsClusterConnected(t *testing.T) {
	project, img1, img2, table := newPairProject(t)
	a := squareBlob(t, NoBlob, 0, 0, 10, "A")
	b := squareBlob(t, NoBlob, 10, 0, 10, "A")
	c := squareBlob(t, NoBlob, 0, 0, 20, "A")
	project.AddBlobs(img1, []*Blob{a, b}, false)
	require.NoError(t, project.AddBlob(img2, c, false))
	project.AddCorrespondences(table, []*Blob{a, b}, []*Blob{c})

	recorder := &eventRecorder{}
	project.Subscribe(recorder)
	require.True(t, project.RemoveBlob(img1, a, true))

	assert.Zero(t, rowsWith(table, true, a.ID))
	require.Len(t, table.Rows, 1)
	assert.Equal(t, b.ID, table.Rows[0].Blob1)
	assert.Equal(t, c.ID, table.Rows[0].Blob2)
	assert.True(t, b.CorrespondenceToCheck)
	assert.True(t, c.CorrespondenceToCheck)
	assert.False(t, table.CheckTable())
	assert.Equal(t, 1, recorder.count(BlobRemoved))
	assert.Equal(t, 1, recorder.count(CorrespondenceTableChanged))

	// removing the last source leaves the target born
	require.True(t, project.RemoveBlob(img1, b, false))
	require.Len(t, table.Rows, 1)
	assert.Equal(t, NoBlob, table.Rows[0].Blob1)
	assert.Equal(t, ActionBorn, table.Rows[0].Action)

	// ids are never reused
	f := squareBlob(t, NoBlob, 0, 0, 5, "A")
	require.NoError(t, project.AddBlob(img1, f, false))
	assert.Equal(t, 3, f.ID)
}

func TestRemoveTargetRejoinsRest(t *testing.T) {
	project, img1, img2, table := newPairProject(t)
	a := squareBlob(t, NoBlob, 0, 0, 10, "A")
	b := squareBlob(t, NoBlob, 10, 0, 10, "A")
	c := squareBlob(t, NoBlob, 0, 0, 10, "A")
	d := squareBlob(t, NoBlob, 10, 0, 10, "A")
	project.AddBlobs(img1, []*Blob{a, b}, false)
	project.AddBlobs(img2, []*Blob{c, d}, false)
	project.AddCorrespondences(table, []*Blob{a, b}, []*Blob{c, d})
	require.Len(t, table.Rows, 4)

	require.True(t, project.RemoveBlob(img2, c, false))
	assert.Zero(t, rowsWith(table, false, c.ID))
	assert.Equal(t, 2, rowsWith(table, false, d.ID))
	assert.False(t, table.CheckTable())
}

func TestUpdateBlob(t *testing.T) {
	project, img1, img2, table := newPairProject(t)
	a := squareBlob(t, NoBlob, 0, 0, 10, "A")
	c := squareBlob(t, NoBlob, 0, 0, 10, "A")
	require.NoError(t, project.AddBlob(img1, a, false))
	require.NoError(t, project.AddBlob(img2, c, false))
	project.AddCorrespondences(table, []*Blob{a}, []*Blob{c})

	bigger := squareBlob(t, 9, 0, 0, 20, "A")
	require.True(t, project.UpdateBlob(img1, a, bigger, false))
	require.Len(t, table.Rows, 1)
	assert.Equal(t, 9, table.Rows[0].Blob1)
	assert.Equal(t, 4.0, table.Rows[0].Area1)
	assert.Equal(t, ActionShrink, table.Rows[0].Action)
	assert.False(t, table.CheckTable())
}

func TestClassPropagation(t *testing.T) {
	project := NewProject()
	img1 := newTestImage(t, "2019", "2019-01-01")
	img2 := newTestImage(t, "2020", "2020-01-01")
	img3 := newTestImage(t, "2021", "2021-01-01")
	for _, img := range []*Image{img1, img2, img3} {
		require.NoError(t, project.AddNewImage(img, true))
	}
	t12, err := project.CreateCorrespondencesTable(0, 1)
	require.NoError(t, err)
	t23, err := project.CreateCorrespondencesTable(1, 2)
	require.NoError(t, err)

	a := squareBlob(t, NoBlob, 0, 0, 10, "A")
	b := squareBlob(t, NoBlob, 0, 0, 10, "A")
	c := squareBlob(t, NoBlob, 0, 0, 10, "A")
	other := squareBlob(t, NoBlob, 50, 50, 10, "A")
	require.NoError(t, project.AddBlob(img1, a, false))
	require.NoError(t, project.AddBlob(img2, b, false))
	require.NoError(t, project.AddBlob(img3, c, false))
	require.NoError(t, project.AddBlob(img3, other, false))
	project.AddCorrespondences(t12, []*Blob{a}, []*Blob{b})
	project.AddCorrespondences(t23, []*Blob{b}, []*Blob{c})
	require.Equal(t, a.Genet, b.Genet)
	require.Equal(t, b.Genet, c.Genet)
	require.NotEqual(t, c.Genet, other.Genet)

	recorder := &eventRecorder{}
	project.Subscribe(recorder)
	project.SetBlobClass(img2, b, "Coral", true)

	assert.Equal(t, "Coral", a.ClassName)
	assert.Equal(t, "Coral", b.ClassName)
	assert.Equal(t, "Coral", c.ClassName)
	assert.Equal(t, "A", other.ClassName)
	for _, table := range []*CorrespondenceTable{t12, t23} {
		for _, row := range table.Rows {
			if row.Genet == b.Genet {
				assert.Equal(t, "Coral", row.Class)
			} else {
				assert.Equal(t, "A", row.Class)
			}
		}
	}
	assert.Equal(t, 2, recorder.count(BlobClassChangedByGenet))
	assert.Equal(t, 3, recorder.count(BlobClassChanged))
	assert.Equal(t, 1, recorder.count(CorrespondenceTableChanged))
}

func TestUnknownOperation(t *testing.T) {
	project, img1, _, table := newPairProject(t)
	a := squareBlob(t, NoBlob, 0, 0, 10, "A")
	require.NoError(t, project.AddBlob(img1, a, false))
	before := append([]Correspondence(nil), table.Rows...)
	recorder := &eventRecorder{}
	project.Subscribe(recorder)

	project.UpdateCorrespondences(EditOperation("MOVE"), img1, []*Blob{a}, nil, "")
	assert.Equal(t, before, table.Rows)
	assert.Empty(t, recorder.events)
}

func TestComputeCorrespondences(t *testing.T) {
	project := NewProject()
	img1, err := NewImage("survey-1", "first", "2020-01-01", 2.0)
	require.NoError(t, err)
	img2, err := NewImage("survey-2", "second", "2021-01-01", 2.0)
	require.NoError(t, err)
	require.NoError(t, project.AddNewImage(img1, true))
	require.NoError(t, project.AddNewImage(img2, true))

	a := squareBlob(t, NoBlob, 0, 0, 10, "A")
	gone := squareBlob(t, NoBlob, 100, 100, 10, "A")
	c := squareBlob(t, NoBlob, 1, 1, 10, "A")
	fresh := squareBlob(t, NoBlob, 300, 300, 10, "A")
	project.AddBlobs(img1, []*Blob{a, gone}, false)
	project.AddBlobs(img2, []*Blob{c, fresh}, false)

	table, err := project.ComputeCorrespondences(0, 1)
	require.NoError(t, err)
	assert.Same(t, table, project.Correspondences[TableKey{SourceID: "survey-1", TargetID: "survey-2"}])

	// blobs are untouched by the physical scaling
	assert.Equal(t, Rectangle{X: 0, Y: 0, Width: 10, Height: 10}, a.BBox)
	assert.Equal(t, 100.0, a.Area)
	assert.Equal(t, 10.0, a.Contour[1].X)

	require.Len(t, table.Rows, 3)
	assert.Equal(t, a.ID, table.Rows[0].Blob1)
	assert.Equal(t, c.ID, table.Rows[0].Blob2)
	assert.Equal(t, 4.0, table.Rows[0].Area1)
	assert.Equal(t, ActionSame, table.Rows[0].Action)
	assert.Equal(t, gone.ID, table.Rows[1].Blob1)
	assert.Equal(t, ActionDead, table.Rows[1].Action)
	assert.Equal(t, fresh.ID, table.Rows[2].Blob2)
	assert.Equal(t, ActionBorn, table.Rows[2].Action)
	assert.Equal(t, a.Genet, c.Genet)
	assert.Equal(t, a.Genet, table.Rows[0].Genet)

	// recomputation replaces previous content
	_, err = project.ComputeCorrespondences(0, 1)
	require.NoError(t, err)
	assert.Len(t, project.Correspondences[table.Key()].Rows, 3)
	assert.Empty(t, project.CheckConsistency())
}

func TestDeleteAndRenameImage(t *testing.T) {
	project, img1, img2, _ := newPairProject(t)
	require.NoError(t, project.AddOrUpdateMarkers(0, []MarkerPosition{{X: 1, Y: 2}}, 1, []MarkerPosition{{X: 3, Y: 4}}, []int{1}))

	require.NoError(t, project.RenameImage(img1, "img-1"))
	_, ok := project.Correspondences[TableKey{SourceID: "img-1", TargetID: "img2"}]
	assert.True(t, ok)
	assert.Len(t, project.Correspondences, 1)
	assert.Len(t, project.RetrieveMarkersOrEmpty("img-1", "img2"), 1)
	assert.ErrorIs(t, project.RenameImage(img1, "img2"), ErrDuplicateImage)

	project.DeleteImage(img2)
	assert.Equal(t, []*Image{img1}, project.Images)
	assert.Empty(t, project.Correspondences)
	assert.Empty(t, project.RetrieveMarkersOrEmpty("img-1", "img2"))
}

func TestUpdatePixelSizeInCorrespondences(t *testing.T) {
	project, img1, img2, table := newPairProject(t)
	a := squareBlob(t, NoBlob, 0, 0, 10, "A")
	c := squareBlob(t, NoBlob, 0, 0, 10, "A")
	require.NoError(t, project.AddBlob(img1, a, false))
	require.NoError(t, project.AddBlob(img2, c, false))
	project.AddCorrespondences(table, []*Blob{a}, []*Blob{c})

	img2.PixelSize = 2.0
	c.SurfaceArea = 7.5
	project.UpdatePixelSizeInCorrespondences(img2, false)
	assert.Equal(t, 4.0, table.Rows[0].Area2)
	assert.Equal(t, ActionGrow, table.Rows[0].Action)

	project.UpdatePixelSizeInCorrespondences(img2, true)
	assert.Equal(t, 7.5, table.Rows[0].Area2)
	assert.True(t, table.UseSurfaceArea)
}

func TestPointsAndAttributes(t *testing.T) {
	project, img1, _, _ := newPairProject(t)
	recorder := &eventRecorder{}
	project.Subscribe(recorder)

	point := &PointAnnotation{X: 3, Y: 4}
	project.AddPoint(img1, point, true)
	assert.Equal(t, 1, point.ID)
	assert.Equal(t, EmptyClass, point.ClassName)
	project.SetPointClass(img1, point, "Coral", true)
	project.SetPointClass(img1, point, "Coral", true)
	assert.True(t, project.RemovePoint(img1, point, true))
	assert.False(t, project.RemovePoint(img1, point, true))
	assert.Equal(t, 1, recorder.count(PointAdded))
	assert.Equal(t, 1, recorder.count(PointClassChanged))
	assert.Equal(t, 1, recorder.count(PointRemoved))

	project.RegionAttributes = &AttributeSchema{Fields: []AttributeField{
		{Name: "status", Type: AttributeKeyword, Keywords: []string{"alive", "dead"}},
		{Name: "count", Type: AttributeInteger},
	}}
	blob := squareBlob(t, NoBlob, 0, 0, 10, "A")
	require.NoError(t, project.SetBlobAttribute(blob, "status", "alive"))
	require.NoError(t, project.SetBlobAttribute(blob, "count", 3.0))
	assert.ErrorIs(t, project.SetBlobAttribute(blob, "status", "sleeping"), ErrAttribute)
	assert.ErrorIs(t, project.SetBlobAttribute(blob, "count", 2.5), ErrAttribute)
	assert.ErrorIs(t, project.SetBlobAttribute(blob, "color", "red"), ErrAttribute)
	assert.Equal(t, "alive", blob.Attributes["status"])
}

func TestReplaceBlobsClashLeavesImageUntouched(t *testing.T) {
	project, img1, img2, table := newPairProject(t)
	a := squareBlob(t, NoBlob, 0, 0, 10, "A")
	b := squareBlob(t, NoBlob, 20, 0, 10, "A")
	c := squareBlob(t, NoBlob, 0, 0, 10, "A")
	project.AddBlobs(img1, []*Blob{a, b}, false)
	require.NoError(t, project.AddBlob(img2, c, false))
	project.AddCorrespondences(table, []*Blob{a}, []*Blob{c})
	before := append([]Correspondence(nil), table.Rows...)

	// id of a kept blob
	d := squareBlob(t, b.ID, 0, 0, 12, "A")
	err := project.ReplaceBlobs(img1, []*Blob{a}, []*Blob{d}, false)
	assert.ErrorIs(t, err, ErrDuplicateBlobID)
	assert.Same(t, a, img1.BlobByID(a.ID))
	assert.Same(t, b, img1.BlobByID(b.ID))
	assert.Len(t, img1.Blobs, 2)
	assert.Equal(t, before, table.Rows)
	assert.Equal(t, 1, rowsWith(table, true, a.ID))
	assert.False(t, table.CheckTable())

	// same id twice among added blobs
	e := squareBlob(t, 42, 0, 0, 5, "A")
	f := squareBlob(t, 42, 5, 0, 5, "A")
	err = project.ReplaceBlobs(img1, []*Blob{a}, []*Blob{e, f}, false)
	assert.ErrorIs(t, err, ErrDuplicateBlobID)
	assert.Same(t, a, img1.BlobByID(a.ID))
	assert.Nil(t, img1.BlobByID(42))
	assert.False(t, table.CheckTable())

	// reusing the id of a removed blob is fine
	g := squareBlob(t, a.ID, 0, 0, 12, "A")
	require.NoError(t, project.ReplaceBlobs(img1, []*Blob{a}, []*Blob{g}, false))
	assert.Same(t, g, img1.BlobByID(a.ID))
	assert.Equal(t, 1, rowsWith(table, true, g.ID))
	assert.False(t, table.CheckTable())
}

func TestUpdateBlobThenClassChange(t *testing.T) {
	project, img1, img2, table := newPairProject(t)
	a := squareBlob(t, NoBlob, 0, 0, 10, "A")
	c := squareBlob(t, NoBlob, 0, 0, 10, "A")
	require.NoError(t, project.AddBlob(img1, a, false))
	require.NoError(t, project.AddBlob(img2, c, false))
	project.AddCorrespondences(table, []*Blob{a}, []*Blob{c})

	bigger := squareBlob(t, 9, 0, 0, 20, "A")
	require.True(t, project.UpdateBlob(img1, a, bigger, false))
	assert.Equal(t, a.Genet, bigger.Genet)
	assert.Equal(t, c.Genet, bigger.Genet)

	project.SetBlobClass(img1, bigger, "B", false)
	assert.Equal(t, "B", c.ClassName)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "B", table.Rows[0].Class)
}

func TestUpdateBlobRejectsTakenID(t *testing.T) {
	project, img1, _, _ := newPairProject(t)
	a := squareBlob(t, NoBlob, 0, 0, 10, "A")
	b := squareBlob(t, NoBlob, 20, 0, 10, "A")
	project.AddBlobs(img1, []*Blob{a, b}, false)

	clash := squareBlob(t, b.ID, 0, 0, 12, "A")
	assert.False(t, project.UpdateBlob(img1, a, clash, false))
	assert.Same(t, a, img1.BlobByID(a.ID))
	assert.Same(t, b, img1.BlobByID(b.ID))
	assert.Len(t, img1.Blobs, 2)
}

// newChainProject returns three surveys with tables 0->1 and 1->2
func newChainProject(t *testing.T) (*Project, []*Image, *CorrespondenceTable, *CorrespondenceTable) {
	t.Helper()
	project := NewProject()
	images := []*Image{
		newTestImage(t, "first", "2019-06-01"),
		newTestImage(t, "middle", "2020-06-01"),
		newTestImage(t, "last", "2021-06-01"),
	}
	for _, img := range images {
		require.NoError(t, project.AddNewImage(img, true))
	}
	before, err := project.CreateCorrespondencesTable(0, 1)
	require.NoError(t, err)
	after, err := project.CreateCorrespondencesTable(1, 2)
	require.NoError(t, err)
	return project, images, before, after
}

func TestEditMiddleImageTouchesBothTables(t *testing.T) {
	project, images, before, after := newChainProject(t)
	a := squareBlob(t, NoBlob, 0, 0, 20, "A")
	m1 := squareBlob(t, NoBlob, 0, 0, 10, "A")
	m2 := squareBlob(t, NoBlob, 10, 0, 10, "A")
	z := squareBlob(t, NoBlob, 0, 0, 20, "A")
	require.NoError(t, project.AddBlob(images[0], a, false))
	project.AddBlobs(images[1], []*Blob{m1, m2}, false)
	require.NoError(t, project.AddBlob(images[2], z, false))
	project.AddCorrespondences(before, []*Blob{a}, []*Blob{m1, m2})
	project.AddCorrespondences(after, []*Blob{m1, m2}, []*Blob{z})

	require.True(t, project.RemoveBlob(images[1], m1, false))
	assert.Zero(t, rowsWith(before, false, m1.ID))
	assert.Zero(t, rowsWith(after, true, m1.ID))
	assert.Equal(t, 1, rowsWith(before, false, m2.ID))
	assert.Equal(t, 1, rowsWith(after, true, m2.ID))
	assert.False(t, before.CheckTable())
	assert.False(t, after.CheckTable())
	assert.Equal(t, a.Genet, z.Genet)

	n := squareBlob(t, NoBlob, 0, 0, 20, "A")
	require.NoError(t, project.ReplaceBlobs(images[1], []*Blob{m2}, []*Blob{n}, false))
	assert.Zero(t, rowsWith(before, false, m2.ID))
	assert.Zero(t, rowsWith(after, true, m2.ID))
	require.Len(t, before.Rows, 1)
	require.Len(t, after.Rows, 1)
	assert.Equal(t, a.ID, before.Rows[0].Blob1)
	assert.Equal(t, n.ID, before.Rows[0].Blob2)
	assert.Equal(t, n.ID, after.Rows[0].Blob1)
	assert.Equal(t, z.ID, after.Rows[0].Blob2)
	assert.False(t, before.CheckTable())
	assert.False(t, after.CheckTable())
	assert.Equal(t, a.Genet, n.Genet)
	assert.Equal(t, n.Genet, z.Genet)
	assert.Empty(t, project.CheckConsistency())
}
