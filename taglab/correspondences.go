package taglab

import (
	"sort"

	log "github.com/sirupsen/logrus"
)

// Row actions
const (
	ActionBorn   = "born"
	ActionDead   = "dead"
	ActionGrow   = "grow"
	ActionShrink = "shrink"
	ActionSame   = "same"
)

// Split/fuse markers
const (
	SplitFuseNone  = "none"
	SplitFuseSplit = "split"
	SplitFuseFuse  = "fuse"
)

// TableKey identifies the correspondence table of an ordered image pair.
// It is used instead of the "source-target" string so image ids may contain '-'.
type TableKey struct {
	SourceID string
	TargetID string
}

// String returns the legacy "source-target" form (display only, never parsed)
func (key TableKey) String() string {
	return key.SourceID + "-" + key.TargetID
}

// Correspondence is one row of a correspondence table.
// Blob1 == NoBlob means the region was born in the target, Blob2 == NoBlob means it died.
type Correspondence struct {
	Blob1     int
	Blob2     int
	Area1     float64
	Area2     float64
	Class     string
	Action    string
	SplitFuse string
	Genet     int
}

// CorrespondenceTable stores matched region pairs between a source and a target image.
type CorrespondenceTable struct {
	Source *Image
	Target *Image
	Rows   []Correspondence
	// UseSurfaceArea makes Area1/Area2 carry the blobs' surface area instead of the projected one
	UseSurfaceArea bool
}

// NewCorrespondenceTable creates empty table for the image pair
func NewCorrespondenceTable(source, target *Image) *CorrespondenceTable {
	return &CorrespondenceTable{
		Source: source,
		Target: target,
		Rows:   make([]Correspondence, 0),
	}
}

// Key returns table's key
func (table *CorrespondenceTable) Key() TableKey {
	return TableKey{SourceID: table.Source.ID, TargetID: table.Target.ID}
}

// IsSource returns true if img is the source endpoint of the table
func (table *CorrespondenceTable) IsSource(img *Image) bool {
	return table.Source == img
}

// IsTarget returns true if img is the target endpoint of the table
func (table *CorrespondenceTable) IsTarget(img *Image) bool {
	return table.Target == img
}

// Touches returns true if img is one of table's endpoints
func (table *CorrespondenceTable) Touches(img *Image) bool {
	return table.IsSource(img) || table.IsTarget(img)
}

// SourceBlobsByID resolves ids against the source image; vanished ids are dropped
func (table *CorrespondenceTable) SourceBlobsByID(ids []int) []*Blob {
	blobs := table.Source.BlobsByID(ids)
	if len(blobs) != len(ids) {
		log.WithFields(log.Fields{"table": table.Key().String(), "requested": len(ids), "found": len(blobs)}).Debug("Some source blobs are gone")
	}
	return blobs
}

// TargetBlobsByID resolves ids against the target image; vanished ids are dropped
func (table *CorrespondenceTable) TargetBlobsByID(ids []int) []*Blob {
	blobs := table.Target.BlobsByID(ids)
	if len(blobs) != len(ids) {
		log.WithFields(log.Fields{"table": table.Key().String(), "requested": len(ids), "found": len(blobs)}).Debug("Some target blobs are gone")
	}
	return blobs
}

func areaAction(area1, area2 float64) string {
	switch {
	case area2 > area1:
		return ActionGrow
	case area2 < area1:
		return ActionShrink
	default:
		return ActionSame
	}
}

// newRow builds a row. Either blob may be nil (born/dead).
func (table *CorrespondenceTable) newRow(source, target *Blob, splitFuse string) Correspondence {
	row := Correspondence{
		Blob1:     NoBlob,
		Blob2:     NoBlob,
		SplitFuse: splitFuse,
		Genet:     NoGenet,
	}
	if source != nil {
		row.Blob1 = source.ID
		row.Area1 = table.Source.physicalArea(source, table.UseSurfaceArea)
		row.Class = source.ClassName
		row.Genet = source.Genet
	}
	if target != nil {
		row.Blob2 = target.ID
		row.Area2 = table.Target.physicalArea(target, table.UseSurfaceArea)
		if source == nil {
			row.Class = target.ClassName
			row.Genet = target.Genet
		}
	}
	switch {
	case source == nil:
		row.Action = ActionBorn
	case target == nil:
		row.Action = ActionDead
	default:
		row.Action = areaAction(row.Area1, row.Area2)
	}
	return row
}

// Set connects every source blob to every target blob. With one side empty the blobs
// of the other side are stored as born (target only) or dead (source only).
// Rows already referencing the given blobs are replaced; counterparts left without any
// row by that replacement are kept in the table as born/dead.
func (table *CorrespondenceTable) Set(sourceBlobs, targetBlobs []*Blob) {
	if len(sourceBlobs) == 0 && len(targetBlobs) == 0 {
		return
	}
	sourceIDs := make(map[int]struct{}, len(sourceBlobs))
	for _, b := range sourceBlobs {
		sourceIDs[b.ID] = struct{}{}
	}
	targetIDs := make(map[int]struct{}, len(targetBlobs))
	for _, b := range targetBlobs {
		targetIDs[b.ID] = struct{}{}
	}

	// Collect first, mutate later
	stale := make([]int, 0)
	orphanSources := make([]int, 0)
	orphanTargets := make([]int, 0)
	for i, row := range table.Rows {
		_, srcHit := sourceIDs[row.Blob1]
		_, tgtHit := targetIDs[row.Blob2]
		if row.Blob1 == NoBlob {
			srcHit = false
		}
		if row.Blob2 == NoBlob {
			tgtHit = false
		}
		if !srcHit && !tgtHit {
			continue
		}
		stale = append(stale, i)
		if !srcHit && row.Blob1 != NoBlob {
			orphanSources = append(orphanSources, row.Blob1)
		}
		if !tgtHit && row.Blob2 != NoBlob {
			orphanTargets = append(orphanTargets, row.Blob2)
		}
	}
	table.DeleteRows(stale)

	switch {
	case len(sourceBlobs) == 0:
		for _, t := range targetBlobs {
			table.Rows = append(table.Rows, table.newRow(nil, t, SplitFuseNone))
		}
	case len(targetBlobs) == 0:
		for _, s := range sourceBlobs {
			table.Rows = append(table.Rows, table.newRow(s, nil, SplitFuseNone))
		}
	default:
		splitFuse := SplitFuseNone
		if len(sourceBlobs) > 1 {
			splitFuse = SplitFuseFuse
		}
		if len(targetBlobs) > 1 {
			splitFuse = SplitFuseSplit
		}
		for _, s := range sourceBlobs {
			for _, t := range targetBlobs {
				table.Rows = append(table.Rows, table.newRow(s, t, splitFuse))
			}
		}
	}

	for _, id := range uniqueInts(orphanSources) {
		if table.hasRow(id, true) {
			continue
		}
		if blob := table.Source.BlobByID(id); blob != nil {
			table.Rows = append(table.Rows, table.newRow(blob, nil, SplitFuseNone))
		}
	}
	for _, id := range uniqueInts(orphanTargets) {
		if table.hasRow(id, false) {
			continue
		}
		if blob := table.Target.BlobByID(id); blob != nil {
			table.Rows = append(table.Rows, table.newRow(nil, blob, SplitFuseNone))
		}
	}
}

func (table *CorrespondenceTable) hasRow(blobID int, isSource bool) bool {
	for _, row := range table.Rows {
		if isSource && row.Blob1 == blobID || !isSource && row.Blob2 == blobID {
			return true
		}
	}
	return false
}

type clusterNode struct {
	id       int
	isSource bool
}

// FindCluster returns every blob id and row index transitively linked to blobID inside this table.
// The starting id is always part of the returned ids, even when no row references it.
func (table *CorrespondenceTable) FindCluster(blobID int, isSource bool) (sourceIDs []int, targetIDs []int, rowIndexes []int) {
	sourceIDs = make([]int, 0)
	targetIDs = make([]int, 0)
	seenSource := make(map[int]struct{})
	seenTarget := make(map[int]struct{})
	seenRows := make(map[int]struct{})

	queue := []clusterNode{{id: blobID, isSource: isSource}}
	if isSource {
		seenSource[blobID] = struct{}{}
		sourceIDs = append(sourceIDs, blobID)
	} else {
		seenTarget[blobID] = struct{}{}
		targetIDs = append(targetIDs, blobID)
	}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for i, row := range table.Rows {
			if node.isSource && row.Blob1 != node.id || !node.isSource && row.Blob2 != node.id {
				continue
			}
			seenRows[i] = struct{}{}
			if node.isSource {
				if row.Blob2 == NoBlob {
					continue
				}
				if _, ok := seenTarget[row.Blob2]; !ok {
					seenTarget[row.Blob2] = struct{}{}
					targetIDs = append(targetIDs, row.Blob2)
					queue = append(queue, clusterNode{id: row.Blob2, isSource: false})
				}
			} else {
				if row.Blob1 == NoBlob {
					continue
				}
				if _, ok := seenSource[row.Blob1]; !ok {
					seenSource[row.Blob1] = struct{}{}
					sourceIDs = append(sourceIDs, row.Blob1)
					queue = append(queue, clusterNode{id: row.Blob1, isSource: true})
				}
			}
		}
	}

	rowIndexes = make([]int, 0, len(seenRows))
	for i := range seenRows {
		rowIndexes = append(rowIndexes, i)
	}
	sort.Ints(rowIndexes)
	return sourceIDs, targetIDs, rowIndexes
}

// DeleteRows removes rows by position. Remaining rows keep their relative order.
// Duplicated or out of range indexes are ignored.
func (table *CorrespondenceTable) DeleteRows(rowIndexes []int) {
	if len(rowIndexes) == 0 {
		return
	}
	drop := make(map[int]struct{}, len(rowIndexes))
	for _, idx := range rowIndexes {
		drop[idx] = struct{}{}
	}
	kept := make([]Correspondence, 0, len(table.Rows))
	for i, row := range table.Rows {
		if _, ok := drop[i]; ok {
			continue
		}
		kept = append(kept, row)
	}
	table.Rows = kept
}

// UpdateBlobID rewrites references to oldID on the side of img
func (table *CorrespondenceTable) UpdateBlobID(img *Image, oldID, newID int) {
	isSource := table.IsSource(img)
	isTarget := table.IsTarget(img)
	for i := range table.Rows {
		if isSource && table.Rows[i].Blob1 == oldID {
			table.Rows[i].Blob1 = newID
		}
		if isTarget && table.Rows[i].Blob2 == oldID {
			table.Rows[i].Blob2 = newID
		}
	}
}

// UpdateBlobArea recomputes stored area figures (and the derived action) for rows referencing id on the side of img
func (table *CorrespondenceTable) UpdateBlobArea(img *Image, id int, area, surfaceArea float64) {
	value := img.physicalArea(&Blob{Area: area, SurfaceArea: surfaceArea}, table.UseSurfaceArea)
	isSource := table.IsSource(img)
	isTarget := table.IsTarget(img)
	for i := range table.Rows {
		row := &table.Rows[i]
		if isSource && row.Blob1 == id {
			row.Area1 = value
		} else if isTarget && row.Blob2 == id {
			row.Area2 = value
		} else {
			continue
		}
		if row.Blob1 != NoBlob && row.Blob2 != NoBlob {
			row.Action = areaAction(row.Area1, row.Area2)
		}
	}
}

// UpdateAreas recomputes every area figure from the live blobs
func (table *CorrespondenceTable) UpdateAreas(useSurfaceArea bool) {
	table.UseSurfaceArea = useSurfaceArea
	for i := range table.Rows {
		row := &table.Rows[i]
		if row.Blob1 != NoBlob {
			if blob := table.Source.BlobByID(row.Blob1); blob != nil {
				row.Area1 = table.Source.physicalArea(blob, useSurfaceArea)
			}
		}
		if row.Blob2 != NoBlob {
			if blob := table.Target.BlobByID(row.Blob2); blob != nil {
				row.Area2 = table.Target.physicalArea(blob, useSurfaceArea)
			}
		}
		if row.Blob1 != NoBlob && row.Blob2 != NoBlob {
			row.Action = areaAction(row.Area1, row.Area2)
		}
	}
}

// CheckTable returns true if any row references a blob that is absent from its image.
// Inconsistencies are reported, never repaired.
func (table *CorrespondenceTable) CheckTable() bool {
	for _, row := range table.Rows {
		if row.Blob1 == NoBlob && row.Blob2 == NoBlob {
			return true
		}
		if row.Blob1 != NoBlob && table.Source.BlobByID(row.Blob1) == nil {
			return true
		}
		if row.Blob2 != NoBlob && table.Target.BlobByID(row.Blob2) == nil {
			return true
		}
	}
	return false
}

// RowsWithBlob returns indexes of rows referencing id on the side of img
func (table *CorrespondenceTable) RowsWithBlob(img *Image, id int) []int {
	out := make([]int, 0)
	isSource := table.IsSource(img)
	isTarget := table.IsTarget(img)
	for i, row := range table.Rows {
		if isSource && row.Blob1 == id || isTarget && row.Blob2 == id {
			out = append(out, i)
		}
	}
	return out
}

// Sort orders rows by source id, born rows last, ties by target id
func (table *CorrespondenceTable) Sort() {
	sort.SliceStable(table.Rows, func(i, j int) bool {
		a, b := table.Rows[i], table.Rows[j]
		if (a.Blob1 == NoBlob) != (b.Blob1 == NoBlob) {
			return b.Blob1 == NoBlob
		}
		if a.Blob1 != b.Blob1 {
			return a.Blob1 < b.Blob1
		}
		if (a.Blob2 == NoBlob) != (b.Blob2 == NoBlob) {
			return b.Blob2 == NoBlob
		}
		return a.Blob2 < b.Blob2
	})
}
