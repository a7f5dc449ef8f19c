package taglab

import (
	"github.com/pkg/errors"
)

// MarkerPosition is a pixel position on an image
type MarkerPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MarkerSet holds parallel lists of alignment markers between a reference and a registered image
type MarkerSet struct {
	Ref   []MarkerPosition `json:"ref"`
	Coreg []MarkerPosition `json:"coreg"`
	Types []int            `json:"type"`
}

// Marker is one alignment marker pair
type Marker struct {
	RefPos   MarkerPosition
	CoregPos MarkerPosition
	Type     int
}

// AddOrUpdateMarkers stores markers for the registration of image coregIdx onto image refIdx.
// The three lists must be parallel.
func (project *Project) AddOrUpdateMarkers(refIdx int, refMarkers []MarkerPosition, coregIdx int, coregMarkers []MarkerPosition, types []int) error {
	ref, err := project.imageAt(refIdx)
	if err != nil {
		return err
	}
	coreg, err := project.imageAt(coregIdx)
	if err != nil {
		return err
	}
	if len(refMarkers) != len(coregMarkers) || len(refMarkers) != len(types) {
		return errors.Errorf("markers lists must be parallel: ref=%d coreg=%d types=%d", len(refMarkers), len(coregMarkers), len(types))
	}
	if project.Markers == nil {
		project.Markers = make(map[string]map[string]*MarkerSet)
	}
	if project.Markers[ref.ID] == nil {
		project.Markers[ref.ID] = make(map[string]*MarkerSet)
	}
	project.Markers[ref.ID][coreg.ID] = &MarkerSet{
		Ref:   append([]MarkerPosition(nil), refMarkers...),
		Coreg: append([]MarkerPosition(nil), coregMarkers...),
		Types: append([]int(nil), types...),
	}
	return nil
}

// RetrieveMarkersOrEmpty returns markers registering coregID onto refID, or an empty list
func (project *Project) RetrieveMarkersOrEmpty(refID, coregID string) []Marker {
	out := make([]Marker, 0)
	set, ok := project.Markers[refID][coregID]
	if !ok {
		return out
	}
	for i := range set.Ref {
		if i >= len(set.Coreg) || i >= len(set.Types) {
			break
		}
		out = append(out, Marker{RefPos: set.Ref[i], CoregPos: set.Coreg[i], Type: set.Types[i]})
	}
	return out
}
