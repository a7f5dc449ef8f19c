package taglab

import "github.com/pkg/errors"

var (
	ErrInvalidDate     = errors.New("taglab: acquisition date is not a valid YYYY-MM-DD date")
	ErrDuplicateImage  = errors.New("taglab: image id already present")
	ErrDuplicateBlobID = errors.New("taglab: blob id already used in image")
	ErrMaskSize        = errors.New("taglab: mask size does not match bounding box")
	ErrEmptyContour    = errors.New("taglab: blob contour is empty")
	ErrImageIndex      = errors.New("taglab: image index out of range")
	ErrUnknownImage    = errors.New("taglab: image is not part of the project")
	ErrUnknownLabel    = errors.New("taglab: missing label")
	ErrAttribute       = errors.New("taglab: invalid region attribute")
	ErrUnknownGenet    = errors.New("taglab: no blob carries the genet")
)
