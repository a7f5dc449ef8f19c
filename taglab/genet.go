package taglab

// genetNode is a blob addressed across the whole project
type genetNode struct {
	imageID string
	blobID  int
}

// disjointSet is union-find over genet nodes with path compression
type disjointSet struct {
	parent map[genetNode]genetNode
	rank   map[genetNode]int
}

func newDisjointSet() *disjointSet {
	return &disjointSet{
		parent: make(map[genetNode]genetNode),
		rank:   make(map[genetNode]int),
	}
}

func (ds *disjointSet) add(n genetNode) {
	if _, ok := ds.parent[n]; !ok {
		ds.parent[n] = n
	}
}

func (ds *disjointSet) find(n genetNode) genetNode {
	ds.add(n)
	root := n
	for ds.parent[root] != root {
		root = ds.parent[root]
	}
	for n != root {
		next := ds.parent[n]
		ds.parent[n] = root
		n = next
	}
	return root
}

func (ds *disjointSet) union(a, b genetNode) {
	ra, rb := ds.find(a), ds.find(b)
	if ra == rb {
		return
	}
	switch {
	case ds.rank[ra] < ds.rank[rb]:
		ds.parent[ra] = rb
	case ds.rank[ra] > ds.rank[rb]:
		ds.parent[rb] = ra
	default:
		ds.parent[rb] = ra
		ds.rank[ra]++
	}
}

// UpdateGenets recomputes genets of the whole project. Every row with both ids is an edge
// between two (image, blob) nodes; each connected component becomes a genet.
// Genets are numbered from 0 following image order and blob order inside each image,
// so the result depends only on images and table contents.
func (project *Project) UpdateGenets() {
	ds := newDisjointSet()
	for _, img := range project.Images {
		for _, blob := range img.Blobs {
			ds.add(genetNode{imageID: img.ID, blobID: blob.ID})
		}
	}
	for _, table := range project.Correspondences {
		for _, row := range table.Rows {
			if row.Blob1 == NoBlob || row.Blob2 == NoBlob {
				continue
			}
			source := genetNode{imageID: table.Source.ID, blobID: row.Blob1}
			target := genetNode{imageID: table.Target.ID, blobID: row.Blob2}
			// stale references are not part of the graph
			if table.Source.BlobByID(row.Blob1) == nil || table.Target.BlobByID(row.Blob2) == nil {
				continue
			}
			ds.union(source, target)
		}
	}

	genetByRoot := make(map[genetNode]int)
	next := 0
	for _, img := range project.Images {
		for _, blob := range img.Blobs {
			root := ds.find(genetNode{imageID: img.ID, blobID: blob.ID})
			genet, ok := genetByRoot[root]
			if !ok {
				genet = next
				genetByRoot[root] = genet
				next++
			}
			blob.Genet = genet
		}
	}

	for _, table := range project.Correspondences {
		for i := range table.Rows {
			row := &table.Rows[i]
			row.Genet = NoGenet
			if row.Blob1 != NoBlob {
				if blob := table.Source.BlobByID(row.Blob1); blob != nil {
					row.Genet = blob.Genet
					continue
				}
			}
			if row.Blob2 != NoBlob {
				if blob := table.Target.BlobByID(row.Blob2); blob != nil {
					row.Genet = blob.Genet
				}
			}
		}
	}
}

// GenetMembers returns blobs carrying genet, grouped by image id
func (project *Project) GenetMembers(genet int) map[string][]*Blob {
	out := make(map[string][]*Blob)
	if genet == NoGenet {
		return out
	}
	for _, img := range project.Images {
		for _, blob := range img.Blobs {
			if blob.Genet == genet {
				out[img.ID] = append(out[img.ID], blob)
			}
		}
	}
	return out
}

// AssignClassByGenet assigns className to every blob of the genet and to the Class column
// of every row carrying it. Blobs that are gone are skipped.
func (project *Project) AssignClassByGenet(className string, genet int) {
	if genet == NoGenet {
		return
	}
	type changed struct {
		img  *Image
		blob *Blob
	}
	seen := make(map[*Blob]struct{})
	updates := make([]changed, 0)
	visit := func(img *Image, ids []int) {
		for _, blob := range img.BlobsByID(ids) {
			if _, ok := seen[blob]; ok {
				continue
			}
			seen[blob] = struct{}{}
			updates = append(updates, changed{img: img, blob: blob})
		}
	}
	for _, key := range project.sortedTableKeys() {
		table := project.Correspondences[key]
		for i := range table.Rows {
			row := &table.Rows[i]
			if row.Genet != genet {
				continue
			}
			if row.Blob1 != NoBlob {
				visit(table.Source, []int{row.Blob1})
			}
			if row.Blob2 != NoBlob {
				visit(table.Target, []int{row.Blob2})
			}
			row.Class = className
		}
	}
	for _, u := range updates {
		oldClass := u.blob.ClassName
		if oldClass == className {
			continue
		}
		u.blob.ClassName = className
		project.emit(Event{Kind: BlobClassChanged, Image: u.img, Blob: u.blob, OldClass: oldClass})
		project.emit(Event{Kind: BlobClassChangedByGenet, Image: u.img, Blob: u.blob, OldClass: oldClass})
	}
}
