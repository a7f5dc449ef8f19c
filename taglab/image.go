package taglab

import (
	"time"

	"github.com/pkg/errors"
)

// PointAnnotation is a labeled point placed on an image
type PointAnnotation struct {
	ID         int
	X          float64
	Y          float64
	ClassName  string
	Note       string
	Attributes Attributes
}

// Image is one entry of the project timeline. It owns its blobs and point annotations.
type Image struct {
	ID              string
	Name            string
	AcquisitionDate string
	// PixelSize is the pixel to millimeter conversion factor
	PixelSize float64
	Metadata  Attributes

	Blobs  []*Blob
	Points []*PointAnnotation

	// highest blob id ever handed out; ids are never reused
	lastBlobID  int
	lastPointID int
}

// NewImage creates an image. The acquisition date must be YYYY-MM-DD.
func NewImage(id, name, acquisitionDate string, pixelSize float64) (*Image, error) {
	if !IsValidDate(acquisitionDate) {
		return nil, errors.Wrapf(ErrInvalidDate, "image '%s': '%s'", id, acquisitionDate)
	}
	if pixelSize <= 0 {
		pixelSize = 1.0
	}
	return &Image{
		ID:              id,
		Name:            name,
		AcquisitionDate: acquisitionDate,
		PixelSize:       pixelSize,
		Blobs:           make([]*Blob, 0),
		Points:          make([]*PointAnnotation, 0),
		lastBlobID:      0,
	}, nil
}

// Date returns parsed acquisition date
func (img *Image) Date() (time.Time, error) {
	t, err := time.Parse(DateLayout, img.AcquisitionDate)
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrInvalidDate, "image '%s': '%s'", img.ID, img.AcquisitionDate)
	}
	return t, nil
}

// NextBlobID returns a fresh blob id for this image
func (img *Image) NextBlobID() int {
	img.lastBlobID++
	return img.lastBlobID
}

// AddBlob appends blob to the image. A blob with NoBlob id gets a fresh one.
func (img *Image) AddBlob(blob *Blob) error {
	if blob.ID == NoBlob {
		blob.ID = img.NextBlobID()
	} else if img.BlobByID(blob.ID) != nil {
		return errors.Wrapf(ErrDuplicateBlobID, "image '%s', blob %d", img.ID, blob.ID)
	}
	if blob.ID > img.lastBlobID {
		img.lastBlobID = blob.ID
	}
	img.Blobs = append(img.Blobs, blob)
	return nil
}

// RemoveBlob removes blob (matched by id) from the image. Returns false when it was not there.
func (img *Image) RemoveBlob(blob *Blob) bool {
	for i, b := range img.Blobs {
		if b.ID == blob.ID {
			img.Blobs = append(img.Blobs[:i], img.Blobs[i+1:]...)
			return true
		}
	}
	return false
}

// UpdateBlob replaces oldBlob with newBlob keeping the position in the collection.
// Returns false when oldBlob is not there or newBlob's id belongs to another blob.
func (img *Image) UpdateBlob(oldBlob, newBlob *Blob) bool {
	if newBlob.ID != oldBlob.ID && img.BlobByID(newBlob.ID) != nil {
		return false
	}
	for i, b := range img.Blobs {
		if b.ID == oldBlob.ID {
			img.Blobs[i] = newBlob
			if newBlob.ID > img.lastBlobID {
				img.lastBlobID = newBlob.ID
			}
			return true
		}
	}
	return false
}

// BlobByID returns blob with given id or nil
func (img *Image) BlobByID(id int) *Blob {
	for _, b := range img.Blobs {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// BlobsByID resolves ids to live blobs. Ids that are gone are silently dropped.
func (img *Image) BlobsByID(ids []int) []*Blob {
	out := make([]*Blob, 0, len(ids))
	for _, id := range ids {
		if b := img.BlobByID(id); b != nil {
			out = append(out, b)
		}
	}
	return out
}

// AddPoint appends point annotation. A point with zero id gets a fresh one.
func (img *Image) AddPoint(point *PointAnnotation) {
	if point.ID == 0 {
		img.lastPointID++
		point.ID = img.lastPointID
	} else if point.ID > img.lastPointID {
		img.lastPointID = point.ID
	}
	if point.ClassName == "" {
		point.ClassName = EmptyClass
	}
	img.Points = append(img.Points, point)
}

// RemovePoint removes point annotation. Returns false when it was not there.
func (img *Image) RemovePoint(point *PointAnnotation) bool {
	for i, p := range img.Points {
		if p.ID == point.ID {
			img.Points = append(img.Points[:i], img.Points[i+1:]...)
			return true
		}
	}
	return false
}

// physicalArea converts blob's pixel area into cm^2 (or uses surface area when asked)
func (img *Image) physicalArea(blob *Blob, useSurfaceArea bool) float64 {
	if useSurfaceArea && blob.SurfaceArea > 0 {
		return blob.SurfaceArea
	}
	return blob.Area * img.PixelSize * img.PixelSize / 100.0
}
