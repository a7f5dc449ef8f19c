package taglab

import (
	"sort"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// EditOperation is a blob level edit reconciled against correspondence tables
type EditOperation string

const (
	OperationAdd          EditOperation = "ADD"
	OperationRemove       EditOperation = "REMOVE"
	OperationUpdate       EditOperation = "UPDATE"
	OperationReplace      EditOperation = "REPLACE"
	OperationClassChanged EditOperation = "CLASS_CHANGED"
)

// Project is the aggregate root: images ordered by acquisition date, correspondence tables
// of image pairs, the labels dictionary and alignment markers.
// It is not safe for concurrent use; callers must serialize edits.
type Project struct {
	Filename              string
	DictionaryName        string
	DictionaryDescription string

	Images          []*Image
	Correspondences map[TableKey]*CorrespondenceTable
	Labels          map[string]*Label
	// Markers: reference image id -> registered image id -> markers
	Markers          map[string]map[string]*MarkerSet
	RegionAttributes *AttributeSchema
	Metadata         Attributes

	// MatchOptions drives ComputeCorrespondences
	MatchOptions MatchOptions

	listeners []Listener
}

// NewProject creates an empty project with the "Empty" label and default matching options
func NewProject() *Project {
	project := &Project{
		Images:          make([]*Image, 0),
		Correspondences: make(map[TableKey]*CorrespondenceTable),
		Markers:         make(map[string]map[string]*MarkerSet),
		MatchOptions:    DefaultMatchOptions(),
	}
	project.ensureEmptyLabel()
	return project
}

func (project *Project) imageAt(idx int) (*Image, error) {
	if idx < 0 || idx >= len(project.Images) {
		return nil, errors.Wrapf(ErrImageIndex, "index %d, images %d", idx, len(project.Images))
	}
	return project.Images[idx], nil
}

// OrderImagesByAcquisitionDate sorts images from the oldest to the newest. Images sharing a date keep their order.
func (project *Project) OrderImagesByAcquisitionDate() {
	sort.SliceStable(project.Images, func(i, j int) bool {
		// YYYY-MM-DD compares chronologically as text
		return project.Images[i].AcquisitionDate < project.Images[j].AcquisitionDate
	})
}

// AddNewImage appends image and (optionally) restores date ordering
func (project *Project) AddNewImage(img *Image, sortImages bool) error {
	if !IsValidDate(img.AcquisitionDate) {
		return errors.Wrapf(ErrInvalidDate, "image '%s': '%s'", img.ID, img.AcquisitionDate)
	}
	if project.ImageByID(img.ID) != nil {
		return errors.Wrapf(ErrDuplicateImage, "image '%s'", img.ID)
	}
	project.Images = append(project.Images, img)
	if sortImages {
		project.OrderImagesByAcquisitionDate()
	}
	return nil
}

// DeleteImage removes image together with every table it is an endpoint of and its markers
func (project *Project) DeleteImage(img *Image) {
	kept := make([]*Image, 0, len(project.Images))
	for _, i := range project.Images {
		if i != img {
			kept = append(kept, i)
		}
	}
	project.Images = kept
	for key, table := range project.Correspondences {
		if table.Touches(img) {
			delete(project.Correspondences, key)
		}
	}
	delete(project.Markers, img.ID)
	for _, byCoreg := range project.Markers {
		delete(byCoreg, img.ID)
	}
	project.UpdateGenets()
}

// ImageByID returns image with given id or nil
func (project *Project) ImageByID(id string) *Image {
	for _, img := range project.Images {
		if img.ID == id {
			return img
		}
	}
	return nil
}

// IndexOfImage returns position of img in the timeline or -1
func (project *Project) IndexOfImage(img *Image) int {
	for i, candidate := range project.Images {
		if candidate == img {
			return i
		}
	}
	return -1
}

// IndexByImageName returns position of the first image with the given display name or -1
func (project *Project) IndexByImageName(name string) int {
	for i, img := range project.Images {
		if img.Name == name {
			return i
		}
	}
	return -1
}

// RenameImage changes image id and re-keys its tables and markers
func (project *Project) RenameImage(img *Image, newID string) error {
	if project.IndexOfImage(img) < 0 {
		return errors.Wrapf(ErrUnknownImage, "image '%s'", img.ID)
	}
	if img.ID == newID {
		return nil
	}
	if project.ImageByID(newID) != nil {
		return errors.Wrapf(ErrDuplicateImage, "image '%s'", newID)
	}
	oldID := img.ID
	img.ID = newID

	rekeyed := make(map[TableKey]*CorrespondenceTable, len(project.Correspondences))
	for _, table := range project.Correspondences {
		rekeyed[table.Key()] = table
	}
	project.Correspondences = rekeyed

	if byCoreg, ok := project.Markers[oldID]; ok {
		delete(project.Markers, oldID)
		project.Markers[newID] = byCoreg
	}
	for _, byCoreg := range project.Markers {
		if set, ok := byCoreg[oldID]; ok {
			delete(byCoreg, oldID)
			byCoreg[newID] = set
		}
	}
	return nil
}

func (project *Project) sortedTableKeys() []TableKey {
	keys := make([]TableKey, 0, len(project.Correspondences))
	for key := range project.Correspondences {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].SourceID != keys[j].SourceID {
			return keys[i].SourceID < keys[j].SourceID
		}
		return keys[i].TargetID < keys[j].TargetID
	})
	return keys
}

// FindCorrespTables returns tables where img is source or target (zero, one or two for a timeline)
func (project *Project) FindCorrespTables(img *Image) []*CorrespondenceTable {
	out := make([]*CorrespondenceTable, 0)
	for _, key := range project.sortedTableKeys() {
		table := project.Correspondences[key]
		if table.Touches(img) {
			out = append(out, table)
		}
	}
	return out
}

// CreateCorrespondencesTable creates (or replaces) an empty table for the image pair
func (project *Project) CreateCorrespondencesTable(sourceIdx, targetIdx int) (*CorrespondenceTable, error) {
	source, err := project.imageAt(sourceIdx)
	if err != nil {
		return nil, err
	}
	target, err := project.imageAt(targetIdx)
	if err != nil {
		return nil, err
	}
	table := NewCorrespondenceTable(source, target)
	if project.Correspondences == nil {
		project.Correspondences = make(map[TableKey]*CorrespondenceTable)
	}
	project.Correspondences[table.Key()] = table
	return table, nil
}

// ImagePairCorrespondences returns table of the ordered image pair or nil when there is none.
// Table A->B is not table B->A.
func (project *Project) ImagePairCorrespondences(sourceIdx, targetIdx int) (*CorrespondenceTable, error) {
	source, err := project.imageAt(sourceIdx)
	if err != nil {
		return nil, err
	}
	target, err := project.imageAt(targetIdx)
	if err != nil {
		return nil, err
	}
	return project.Correspondences[TableKey{SourceID: source.ID, TargetID: target.ID}], nil
}

// ClearComparisonTable drops table by key. Missing keys are ignored.
func (project *Project) ClearComparisonTable(key TableKey) {
	if _, ok := project.Correspondences[key]; !ok {
		return
	}
	delete(project.Correspondences, key)
	project.UpdateGenets()
}

// AddCorrespondences links blobs1 (source) to blobs2 (target) by hand. Linked blobs no longer need a check.
func (project *Project) AddCorrespondences(table *CorrespondenceTable, blobs1, blobs2 []*Blob) {
	for _, blob := range blobs1 {
		blob.CorrespondenceToCheck = false
	}
	for _, blob := range blobs2 {
		blob.CorrespondenceToCheck = false
	}
	table.Set(blobs1, blobs2)
	project.UpdateGenets()
	project.emit(Event{Kind: CorrespondenceTableChanged})
}

// UpdatePixelSizeInCorrespondences recomputes area figures of every table touching img
func (project *Project) UpdatePixelSizeInCorrespondences(img *Image, useSurfaceArea bool) {
	for _, table := range project.FindCorrespTables(img) {
		table.UpdateAreas(useSurfaceArea)
	}
}

// ComputeCorrespondences matches every blob of the source image against every blob of the target
// image in physical units and stores the result in a fresh table for the pair.
// Blobs of both images are never modified: matching works on scaled copies.
func (project *Project) ComputeCorrespondences(sourceIdx, targetIdx int) (*CorrespondenceTable, error) {
	source, err := project.imageAt(sourceIdx)
	if err != nil {
		return nil, err
	}
	target, err := project.imageAt(targetIdx)
	if err != nil {
		return nil, err
	}

	// px -> mm for geometry, areas in cm^2
	scaledSources := make([]*Blob, 0, len(source.Blobs))
	for _, blob := range source.Blobs {
		scaledSources = append(scaledSources, blob.Scaled(source.PixelSize))
	}
	scaledTargets := make([]*Blob, 0, len(target.Blobs))
	for _, blob := range target.Blobs {
		scaledTargets = append(scaledTargets, blob.Scaled(target.PixelSize))
	}

	table := NewCorrespondenceTable(source, target)
	result := table.AutoMatch(scaledSources, scaledTargets, project.MatchOptions)

	for _, m := range result.Correspondences {
		table.Rows = append(table.Rows, table.newRow(source.BlobByID(m.Source.ID), target.BlobByID(m.Target.ID), SplitFuseNone))
	}
	for _, dead := range result.Dead {
		table.Rows = append(table.Rows, table.newRow(source.BlobByID(dead.ID), nil, SplitFuseNone))
	}
	for _, born := range result.Born {
		table.Rows = append(table.Rows, table.newRow(nil, target.BlobByID(born.ID), SplitFuseNone))
	}
	table.Sort()

	project.Correspondences[table.Key()] = table
	log.WithFields(log.Fields{
		"table":     table.Key().String(),
		"algorithm": project.MatchOptions.Algorithm.String(),
		"matched":   len(result.Correspondences),
		"dead":      len(result.Dead),
		"born":      len(result.Born),
	}).Debug("Correspondences computed")

	project.UpdateGenets()
	project.emit(Event{Kind: CorrespondenceTableChanged})
	return table, nil
}

// CheckConsistency returns keys of tables referencing vanished blobs. Nothing is repaired.
func (project *Project) CheckConsistency() []TableKey {
	out := make([]TableKey, 0)
	for _, key := range project.sortedTableKeys() {
		if project.Correspondences[key].CheckTable() {
			out = append(out, key)
		}
	}
	return out
}

// UpdateCorrespondences reconciles a blob level edit of img against every table img is an endpoint of.
// For UPDATE, removed[0] is the old blob and added[0] the new one. For CLASS_CHANGED the class of
// added blobs is spread over their genets.
func (project *Project) UpdateCorrespondences(operation EditOperation, img *Image, added, removed []*Blob, className string) {
	tables := project.FindCorrespTables(img)
	updated := false

	switch operation {
	case OperationAdd:
		if len(added) == 0 {
			return
		}
		// new regions are never matched automatically
		for _, blob := range added {
			blob.CorrespondenceToCheck = true
		}
		for _, table := range tables {
			if table.IsSource(img) {
				table.Set(added, nil)
			} else {
				table.Set(nil, added)
			}
		}
		if len(tables) > 0 {
			project.UpdateGenets()
			updated = true
		}
	case OperationRemove, OperationReplace:
		if len(removed) == 0 && len(added) == 0 {
			return
		}
		if operation == OperationReplace {
			for _, blob := range added {
				blob.CorrespondenceToCheck = true
			}
		}
		for _, table := range tables {
			rebuildClusters(table, img, removed, added)
		}
		if len(tables) > 0 {
			project.UpdateGenets()
			updated = true
		}
	case OperationUpdate:
		if len(added) == 0 || len(removed) == 0 {
			log.WithField("image", img.ID).Warn("UPDATE needs both the old and the new blob")
			return
		}
		for _, table := range tables {
			table.UpdateBlobID(img, removed[0].ID, added[0].ID)
			table.UpdateBlobArea(img, added[0].ID, added[0].Area, added[0].SurfaceArea)
		}
		updated = len(tables) > 0
	case OperationClassChanged:
		if len(added) == 0 {
			return
		}
		for _, blob := range added {
			target := className
			if target == "" {
				target = blob.ClassName
			}
			project.AssignClassByGenet(target, blob.Genet)
		}
		updated = len(tables) > 0
	default:
		log.WithFields(log.Fields{"operation": string(operation), "image": img.ID}).Warn("Unknown correspondences operation")
		return
	}

	if updated {
		project.emit(Event{Kind: CorrespondenceTableChanged, Image: img})
	}
}

// rebuildClusters drops removed blobs from the table of img: the clusters they belong to are
// deleted at once and rebuilt joining what is left (plus added blobs on img's side)
// with the other side. Every blob involved is flagged for review.
func rebuildClusters(table *CorrespondenceTable, img *Image, removed, added []*Blob) {
	isSource := table.IsSource(img)
	removedIDs := make(map[int]struct{}, len(removed))
	for _, blob := range removed {
		removedIDs[blob.ID] = struct{}{}
	}

	var sourceIDs, targetIDs, rowIndexes []int
	for _, blob := range removed {
		s, t, rows := table.FindCluster(blob.ID, isSource)
		sourceIDs = append(sourceIDs, s...)
		targetIDs = append(targetIDs, t...)
		rowIndexes = append(rowIndexes, rows...)
	}
	keep := func(ids []int, sameSide bool) []int {
		out := make([]int, 0, len(ids))
		for _, id := range uniqueInts(ids) {
			if _, gone := removedIDs[id]; gone && sameSide {
				continue
			}
			out = append(out, id)
		}
		return sortedInts(out)
	}
	sourceIDs = keep(sourceIDs, isSource)
	targetIDs = keep(targetIDs, !isSource)

	table.DeleteRows(uniqueInts(rowIndexes))

	sourceBlobs := table.SourceBlobsByID(sourceIDs)
	targetBlobs := table.TargetBlobsByID(targetIDs)
	if isSource {
		sourceBlobs = append(append([]*Blob(nil), added...), sourceBlobs...)
	} else {
		targetBlobs = append(append([]*Blob(nil), added...), targetBlobs...)
	}
	table.Set(sourceBlobs, targetBlobs)

	for _, blob := range sourceBlobs {
		blob.CorrespondenceToCheck = true
	}
	for _, blob := range targetBlobs {
		blob.CorrespondenceToCheck = true
	}
}

// AddBlob adds blob to img, registers it as born/dead in the adjacent tables and notifies listeners
func (project *Project) AddBlob(img *Image, blob *Blob, notify bool) error {
	if err := img.AddBlob(blob); err != nil {
		return err
	}
	project.UpdateCorrespondences(OperationAdd, img, []*Blob{blob}, nil, "")
	if notify {
		project.emit(Event{Kind: BlobAdded, Image: img, Blob: blob})
	}
	return nil
}

// AddBlobs adds a segmentation batch. Blobs without contour or with a clashing id are skipped.
// It returns the blobs actually added.
func (project *Project) AddBlobs(img *Image, blobs []*Blob, notify bool) []*Blob {
	added := make([]*Blob, 0, len(blobs))
	for _, blob := range blobs {
		if len(blob.Contour) == 0 {
			log.WithFields(log.Fields{"image": img.ID, "blob": blob.ID}).Warn("Skipping blob with empty contour")
			continue
		}
		if err := img.AddBlob(blob); err != nil {
			log.WithFields(log.Fields{"image": img.ID, "blob": blob.ID}).Warn(err)
			continue
		}
		added = append(added, blob)
	}
	project.UpdateCorrespondences(OperationAdd, img, added, nil, "")
	if notify {
		for _, blob := range added {
			project.emit(Event{Kind: BlobAdded, Image: img, Blob: blob})
		}
	}
	return added
}

// RemoveBlob removes blob from img keeping the surrounding correspondences connected
func (project *Project) RemoveBlob(img *Image, blob *Blob, notify bool) bool {
	if !img.RemoveBlob(blob) {
		return false
	}
	project.UpdateCorrespondences(OperationRemove, img, nil, []*Blob{blob}, "")
	if notify {
		project.emit(Event{Kind: BlobRemoved, Image: img, Blob: blob})
	}
	return true
}

// UpdateBlob swaps oldBlob for newBlob (same region, new geometry or id).
// newBlob takes over the genet and review flag of oldBlob.
func (project *Project) UpdateBlob(img *Image, oldBlob, newBlob *Blob, notify bool) bool {
	if !img.UpdateBlob(oldBlob, newBlob) {
		return false
	}
	newBlob.Genet = oldBlob.Genet
	newBlob.CorrespondenceToCheck = oldBlob.CorrespondenceToCheck
	project.UpdateCorrespondences(OperationUpdate, img, []*Blob{newBlob}, []*Blob{oldBlob}, "")
	if notify {
		project.emit(Event{Kind: BlobUpdated, Image: img, Blob: newBlob, OldBlob: oldBlob})
	}
	return true
}

// ReplaceBlobs substitutes removed with added in img: one to many is a split (cut), many to one a merge.
// The added blobs inherit the correspondences of the removed ones.
// Nothing is changed when an added blob clashes with an id kept in the image or with another added blob.
func (project *Project) ReplaceBlobs(img *Image, removed, added []*Blob, notify bool) error {
	if err := checkReplacement(img, removed, added); err != nil {
		return errors.Wrap(err, "can't replace blobs")
	}
	gone := make([]*Blob, 0, len(removed))
	for _, blob := range removed {
		if current := img.BlobByID(blob.ID); current != nil && img.RemoveBlob(blob) {
			gone = append(gone, current)
		}
	}
	for i, blob := range added {
		if err := img.AddBlob(blob); err != nil {
			for _, done := range added[:i] {
				img.RemoveBlob(done)
			}
			for _, back := range gone {
				img.Blobs = append(img.Blobs, back)
			}
			return errors.Wrap(err, "can't replace blobs")
		}
	}
	project.UpdateCorrespondences(OperationReplace, img, added, removed, "")
	if notify {
		for _, blob := range removed {
			project.emit(Event{Kind: BlobRemoved, Image: img, Blob: blob})
		}
		for _, blob := range added {
			project.emit(Event{Kind: BlobAdded, Image: img, Blob: blob})
		}
	}
	return nil
}

// checkReplacement validates ids of added blobs as they will be once removed blobs are gone
func checkReplacement(img *Image, removed, added []*Blob) error {
	freed := make(map[int]struct{}, len(removed))
	for _, blob := range removed {
		freed[blob.ID] = struct{}{}
	}
	taken := make(map[int]struct{}, len(added))
	for _, blob := range added {
		if blob.ID == NoBlob {
			continue
		}
		if _, ok := taken[blob.ID]; ok {
			return errors.Wrapf(ErrDuplicateBlobID, "image '%s', blob %d added twice", img.ID, blob.ID)
		}
		taken[blob.ID] = struct{}{}
		if _, ok := freed[blob.ID]; ok {
			continue
		}
		if img.BlobByID(blob.ID) != nil {
			return errors.Wrapf(ErrDuplicateBlobID, "image '%s', blob %d", img.ID, blob.ID)
		}
	}
	return nil
}

// SetBlobClass changes blob's class and spreads it over the blob's genet
func (project *Project) SetBlobClass(img *Image, blob *Blob, className string, notify bool) {
	if blob.ClassName == className {
		return
	}
	oldClass := blob.ClassName
	blob.ClassName = className
	project.UpdateCorrespondences(OperationClassChanged, img, []*Blob{blob}, nil, className)
	if notify {
		project.emit(Event{Kind: BlobClassChanged, Image: img, Blob: blob, OldClass: oldClass})
	}
}

// SetBlobAttribute validates value against the region attributes schema and stores it
func (project *Project) SetBlobAttribute(blob *Blob, name string, value any) error {
	if err := project.RegionAttributes.ValidateValue(name, value); err != nil {
		return err
	}
	if blob.Attributes == nil {
		blob.Attributes = make(Attributes)
	}
	blob.Attributes[name] = value
	return nil
}

// AddPoint adds a point annotation to img
func (project *Project) AddPoint(img *Image, point *PointAnnotation, notify bool) {
	img.AddPoint(point)
	if notify {
		project.emit(Event{Kind: PointAdded, Image: img, Point: point})
	}
}

// RemovePoint removes a point annotation from img
func (project *Project) RemovePoint(img *Image, point *PointAnnotation, notify bool) bool {
	if !img.RemovePoint(point) {
		return false
	}
	if notify {
		project.emit(Event{Kind: PointRemoved, Image: img, Point: point})
	}
	return true
}

// SetPointClass changes class of a point annotation
func (project *Project) SetPointClass(img *Image, point *PointAnnotation, className string, notify bool) {
	if point.ClassName == className {
		return
	}
	oldClass := point.ClassName
	point.ClassName = className
	if notify {
		project.emit(Event{Kind: PointClassChanged, Image: img, Point: point, OldClass: oldClass})
	}
}
