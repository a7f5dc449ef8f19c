package taglab

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type maskDoc struct {
	Width  int   `json:"width"`
	Height int   `json:"height"`
	RLE    []int `json:"rle"`
}

type blobDoc struct {
	ID int `json:"id"`
	// [top, left, width, height]
	BBox                  [4]float64   `json:"bbox"`
	Contour               [][2]float64 `json:"contour"`
	Mask                  *maskDoc     `json:"mask,omitempty"`
	ClassName             string       `json:"class name"`
	Genet                 int          `json:"genet"`
	Area                  float64      `json:"area"`
	SurfaceArea           float64      `json:"surface_area"`
	Note                  string       `json:"note,omitempty"`
	CorrespondenceToCheck bool         `json:"correspondence_to_check,omitempty"`
	Attributes            Attributes   `json:"data,omitempty"`
}

type pointDoc struct {
	ID         int        `json:"id"`
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	ClassName  string     `json:"class name"`
	Note       string     `json:"note,omitempty"`
	Attributes Attributes `json:"data,omitempty"`
}

type imageDoc struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	AcquisitionDate string     `json:"acquisition_date"`
	PixelSize       float64    `json:"pixel_size"`
	Metadata        Attributes `json:"metadata,omitempty"`
	Regions         []blobDoc  `json:"regions"`
	Points          []pointDoc `json:"points"`
}

type rowDoc struct {
	Blob1     int     `json:"blob1"`
	Blob2     int     `json:"blob2"`
	Area1     float64 `json:"area1"`
	Area2     float64 `json:"area2"`
	Class     string  `json:"class"`
	Action    string  `json:"action"`
	SplitFuse string  `json:"split_fuse"`
	Genet     int     `json:"genet"`
}

type tableDoc struct {
	Source          string   `json:"source"`
	Target          string   `json:"target"`
	UseSurfaceArea  bool     `json:"use_surface_area,omitempty"`
	Correspondences []rowDoc `json:"correspondences"`
}

type projectDoc struct {
	DictionaryName        string                           `json:"dictionary_name"`
	DictionaryDescription string                           `json:"dictionary_description"`
	Labels                map[string]*Label                `json:"labels"`
	Images                []imageDoc                       `json:"images"`
	Correspondences       []tableDoc                       `json:"correspondences"`
	Markers               map[string]map[string]*MarkerSet `json:"markers,omitempty"`
	RegionAttributes      *AttributeSchema                 `json:"region_attributes,omitempty"`
	Metadata              Attributes                       `json:"metadata,omitempty"`
}

func newBlobDoc(blob *Blob) blobDoc {
	doc := blobDoc{
		ID:                    blob.ID,
		BBox:                  [4]float64{blob.BBox.Top(), blob.BBox.Left(), blob.BBox.Width, blob.BBox.Height},
		Contour:               make([][2]float64, 0, len(blob.Contour)),
		ClassName:             blob.ClassName,
		Genet:                 blob.Genet,
		Area:                  blob.Area,
		SurfaceArea:           blob.SurfaceArea,
		Note:                  blob.Note,
		CorrespondenceToCheck: blob.CorrespondenceToCheck,
		Attributes:            blob.Attributes,
	}
	for _, p := range blob.Contour {
		doc.Contour = append(doc.Contour, [2]float64{p.X, p.Y})
	}
	if blob.Mask != nil {
		doc.Mask = &maskDoc{Width: blob.Mask.Width, Height: blob.Mask.Height, RLE: blob.Mask.RLE()}
	}
	return doc
}

func (doc blobDoc) toBlob() *Blob {
	blob := &Blob{
		ID:                    doc.ID,
		BBox:                  NewRect(doc.BBox[0], doc.BBox[1], doc.BBox[2], doc.BBox[3]),
		Contour:               make([]Point, 0, len(doc.Contour)),
		ClassName:             doc.ClassName,
		Genet:                 doc.Genet,
		Area:                  doc.Area,
		SurfaceArea:           doc.SurfaceArea,
		Note:                  doc.Note,
		CorrespondenceToCheck: doc.CorrespondenceToCheck,
		Attributes:            doc.Attributes,
	}
	if blob.ClassName == "" {
		blob.ClassName = EmptyClass
	}
	for _, p := range doc.Contour {
		blob.Contour = append(blob.Contour, NewPoint(p[0], p[1]))
	}
	if doc.Mask != nil {
		blob.Mask = MaskFromRLE(doc.Mask.Width, doc.Mask.Height, doc.Mask.RLE)
	}
	return blob
}

// Marshal serializes project into its JSON document
func (project *Project) Marshal() ([]byte, error) {
	doc := projectDoc{
		DictionaryName:        project.DictionaryName,
		DictionaryDescription: project.DictionaryDescription,
		Labels:                project.Labels,
		Images:                make([]imageDoc, 0, len(project.Images)),
		Correspondences:       make([]tableDoc, 0, len(project.Correspondences)),
		Markers:               project.Markers,
		RegionAttributes:      project.RegionAttributes,
		Metadata:              project.Metadata,
	}
	for _, img := range project.Images {
		imgDoc := imageDoc{
			ID:              img.ID,
			Name:            img.Name,
			AcquisitionDate: img.AcquisitionDate,
			PixelSize:       img.PixelSize,
			Metadata:        img.Metadata,
			Regions:         make([]blobDoc, 0, len(img.Blobs)),
			Points:          make([]pointDoc, 0, len(img.Points)),
		}
		for _, blob := range img.Blobs {
			imgDoc.Regions = append(imgDoc.Regions, newBlobDoc(blob))
		}
		for _, p := range img.Points {
			imgDoc.Points = append(imgDoc.Points, pointDoc{ID: p.ID, X: p.X, Y: p.Y, ClassName: p.ClassName, Note: p.Note, Attributes: p.Attributes})
		}
		doc.Images = append(doc.Images, imgDoc)
	}
	for _, key := range project.sortedTableKeys() {
		table := project.Correspondences[key]
		tDoc := tableDoc{
			Source:          key.SourceID,
			Target:          key.TargetID,
			UseSurfaceArea:  table.UseSurfaceArea,
			Correspondences: make([]rowDoc, 0, len(table.Rows)),
		}
		for _, row := range table.Rows {
			tDoc.Correspondences = append(tDoc.Correspondences, rowDoc(row))
		}
		doc.Correspondences = append(doc.Correspondences, tDoc)
	}
	data, err := json.MarshalIndent(doc, "", " ")
	if err != nil {
		return nil, errors.Wrap(err, "can't marshal project")
	}
	return data, nil
}

// Save writes project to filename (or to project.Filename when empty).
// Inconsistent tables are reported but do not prevent saving.
func (project *Project) Save(filename string) error {
	for _, key := range project.CheckConsistency() {
		log.WithField("table", key.String()).Warn("Inconsistent correspondences found")
	}
	if filename == "" {
		filename = project.Filename
	}
	if filename == "" {
		return errors.New("no filename to save the project to")
	}
	data, err := project.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrapf(err, "can't write project '%s'", filename)
	}
	project.Filename = filename
	return nil
}

// Unmarshal restores project from its JSON document. Invalid acquisition dates and missing
// image names get defaults; images are re-sorted and genets recomputed. Row order is kept as stored.
func Unmarshal(data []byte) (*Project, error) {
	doc := projectDoc{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "can't unmarshal project")
	}
	project := NewProject()
	project.DictionaryName = doc.DictionaryName
	project.DictionaryDescription = doc.DictionaryDescription
	project.RegionAttributes = doc.RegionAttributes
	project.Metadata = doc.Metadata
	if doc.Labels != nil {
		project.Labels = doc.Labels
	}
	project.ensureEmptyLabel()
	if doc.Markers != nil {
		project.Markers = doc.Markers
	}

	for i, imgDoc := range doc.Images {
		name := imgDoc.Name
		if name == "" {
			name = fmt.Sprintf("noname%02d", i+1)
		}
		date := imgDoc.AcquisitionDate
		if !IsValidDate(date) {
			log.WithFields(log.Fields{"image": imgDoc.ID, "date": date}).Warn("Invalid acquisition date, using default")
			date = DefaultAcquisitionDate
		}
		img, err := NewImage(imgDoc.ID, name, date, imgDoc.PixelSize)
		if err != nil {
			return nil, err
		}
		img.Metadata = imgDoc.Metadata
		for _, bDoc := range imgDoc.Regions {
			if err := img.AddBlob(bDoc.toBlob()); err != nil {
				return nil, errors.Wrapf(err, "can't load image '%s'", imgDoc.ID)
			}
		}
		for _, pDoc := range imgDoc.Points {
			img.AddPoint(&PointAnnotation{ID: pDoc.ID, X: pDoc.X, Y: pDoc.Y, ClassName: pDoc.ClassName, Note: pDoc.Note, Attributes: pDoc.Attributes})
		}
		if err := project.AddNewImage(img, false); err != nil {
			return nil, err
		}
	}
	project.OrderImagesByAcquisitionDate()

	for _, tDoc := range doc.Correspondences {
		source := project.ImageByID(tDoc.Source)
		target := project.ImageByID(tDoc.Target)
		if source == nil || target == nil {
			log.WithFields(log.Fields{"source": tDoc.Source, "target": tDoc.Target}).Warn("Correspondences refer to a missing image, dropped")
			continue
		}
		table := NewCorrespondenceTable(source, target)
		table.UseSurfaceArea = tDoc.UseSurfaceArea
		for _, row := range tDoc.Correspondences {
			table.Rows = append(table.Rows, Correspondence(row))
		}
		project.Correspondences[table.Key()] = table
	}

	project.UpdateGenets()
	return project, nil
}

// Load reads project from filename
func Load(filename string) (*Project, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read project '%s'", filename)
	}
	project, err := Unmarshal(data)
	if err != nil {
		return nil, errors.Wrapf(err, "can't load project '%s'", filename)
	}
	project.Filename = filename
	return project, nil
}
