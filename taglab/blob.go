package taglab

import (
	"math"

	"github.com/pkg/errors"
)

const (
	// NoBlob marks an empty Blob1/Blob2 cell of a correspondence row
	NoBlob = -1
	// NoGenet marks a blob (or row) not assigned to any genet yet
	NoGenet = -1
	// EmptyClass is the class of unlabeled regions
	EmptyClass = "Empty"
)

// Blob is a segmented region belonging to exactly one image.
type Blob struct {
	// Identity. Unique within the owning image
	ID int
	// Geometry (pixels unless the blob is a scaled copy)
	BBox    Rectangle
	Contour []Point
	Mask    *Mask
	// Area is the pixel area, SurfaceArea the physical surface (when known)
	Area        float64
	SurfaceArea float64
	// Labeling
	ClassName string
	Note      string
	// CorrespondenceToCheck flags blobs whose correspondences need a human review
	CorrespondenceToCheck bool
	Genet                 int
	Attributes            Attributes

	// mask placement; zero scale means pixel units with the mask anchored at BBox
	maskOrigin Point
	maskScale  float64
}

// NewBlob creates a blob from a segmentation output. Mask may be nil; when given its size must agree with bbox.
func NewBlob(id int, bbox Rectangle, mask *Mask, contour []Point, className string) (*Blob, error) {
	if mask != nil && (mask.Width != int(math.Round(bbox.Width)) || mask.Height != int(math.Round(bbox.Height))) {
		return nil, errors.Wrapf(ErrMaskSize, "mask %dx%d, bbox %vx%v", mask.Width, mask.Height, bbox.Width, bbox.Height)
	}
	if className == "" {
		className = EmptyClass
	}
	blob := &Blob{
		ID:        id,
		BBox:      bbox,
		Contour:   contour,
		Mask:      mask,
		ClassName: className,
		Genet:     NoGenet,
	}
	if mask != nil {
		blob.Area = float64(mask.Count())
	} else {
		blob.Area = bbox.Area()
	}
	return blob, nil
}

// GetCenter returns blob's bounding box center
func (blob *Blob) GetCenter() Point {
	return blob.BBox.Center()
}

// GetDiagonal returns blob's bounding box diagonal
func (blob *Blob) GetDiagonal() float64 {
	return math.Sqrt(math.Pow(blob.BBox.Width, 2) + math.Pow(blob.BBox.Height, 2))
}

// Copy returns deep copy of blob
func (blob *Blob) Copy() *Blob {
	c := *blob
	c.Contour = append([]Point(nil), blob.Contour...)
	c.Mask = blob.Mask.Copy()
	c.Attributes = blob.Attributes.Copy()
	return &c
}

// Scaled returns a disposable copy expressed in physical units: bbox and contour are
// multiplied by factor, area by factor^2/100 (mm^2 to cm^2). The receiver is not modified.
// The mask is shared read-only with the original.
func (blob *Blob) Scaled(factor float64) *Blob {
	origin, scale := blob.maskFrame()
	c := *blob
	c.BBox = blob.BBox.Scale(factor)
	c.Contour = scaleContour(blob.Contour, factor)
	c.Area = blob.Area * factor * factor / 100.0
	c.Attributes = blob.Attributes.Copy()
	c.maskOrigin = Point{X: origin.X * factor, Y: origin.Y * factor}
	c.maskScale = scale * factor
	return &c
}

// maskFrame returns where mask pixel (0,0) starts and the size of one mask pixel
func (blob *Blob) maskFrame() (Point, float64) {
	if blob.maskScale == 0 {
		return Point{X: blob.BBox.X, Y: blob.BBox.Y}, 1.0
	}
	return blob.maskOrigin, blob.maskScale
}

// covers reports whether the point (in the blob's current units) lies on the region
func (blob *Blob) covers(p Point) bool {
	if blob.Mask == nil {
		return blob.BBox.Contains(p)
	}
	origin, scale := blob.maskFrame()
	x := int(math.Floor((p.X - origin.X) / scale))
	y := int(math.Floor((p.Y - origin.Y) / scale))
	return blob.Mask.At(x, y)
}

// OverlapRatio returns the share of the receiver's region covered by other.
// Both blobs must be expressed in the same units.
func (blob *Blob) OverlapRatio(other *Blob) float64 {
	if blob.Mask == nil {
		own := blob.BBox.Area()
		if own <= 0 {
			return 0.0
		}
		if other.Mask == nil {
			return blob.BBox.Intersect(other.BBox).Area() / own
		}
		// sample the other mask at its own resolution inside our box
		origin, scale := other.maskFrame()
		hit := 0.0
		for y := 0; y < other.Mask.Height; y++ {
			for x := 0; x < other.Mask.Width; x++ {
				if !other.Mask.At(x, y) {
					continue
				}
				p := Point{X: origin.X + (float64(x)+0.5)*scale, Y: origin.Y + (float64(y)+0.5)*scale}
				if blob.BBox.Contains(p) {
					hit += scale * scale
				}
			}
		}
		return minFloat64(hit/own, 1.0)
	}
	if blob.BBox.Intersect(other.BBox).Area() == 0 {
		return 0.0
	}
	origin, scale := blob.maskFrame()
	total := 0
	hit := 0
	for y := 0; y < blob.Mask.Height; y++ {
		for x := 0; x < blob.Mask.Width; x++ {
			if !blob.Mask.At(x, y) {
				continue
			}
			total++
			p := Point{X: origin.X + (float64(x)+0.5)*scale, Y: origin.Y + (float64(y)+0.5)*scale}
			if other.covers(p) {
				hit++
			}
		}
	}
	if total == 0 {
		return 0.0
	}
	return float64(hit) / float64(total)
}
