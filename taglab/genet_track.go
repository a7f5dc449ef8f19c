package taglab

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

// TrajectoryStep is the state of a genet on one image of the timeline.
// Geometry is in physical units (mm), Area in cm^2.
type TrajectoryStep struct {
	ImageID         string
	AcquisitionDate string
	// Present is false when no blob of the genet lies on the image
	Present bool
	Blobs   int
	// BBox is the union of the genet's blobs on the image
	BBox Rectangle
	Area float64
	// Smoothed is the Kalman estimate (prediction only when not Present)
	Smoothed Rectangle
	// GrowthW and GrowthH are the estimated size velocities per survey
	GrowthW float64
	GrowthH float64
	// Drift is the distance between this and the previous smoothed center
	Drift float64
}

func newGenetFilter(bbox Rectangle) *kalman_filter.KalmanBBox {
	center := bbox.Center()
	// Kalman filter props
	dt := 1.0
	uCx := 1.0
	uCy := 1.0
	uW := 0.0
	uH := 0.0
	stdDevA := 2.0
	stdDevMCx := 0.1
	stdDevMCy := 0.1
	stdDevMW := 0.1
	stdDevMH := 0.1
	return kalman_filter.NewKalmanBBox(
		dt, uCx, uCy, uW, uH,
		stdDevA, stdDevMCx, stdDevMCy, stdDevMW, stdDevMH,
		kalman_filter.WithStateBBox(center.X, center.Y, bbox.Width, bbox.Height),
	)
}

func stateRect(cx, cy, w, h float64) Rectangle {
	return Rectangle{
		X:      cx - w/2.0,
		Y:      cy - h/2.0,
		Width:  w,
		Height: h,
	}
}

// GenetTrajectory follows a genet along the timeline, starting at the first image where it appears.
// Each survey is one filter step: predict, then update when the genet is present.
func (project *Project) GenetTrajectory(genet int) ([]TrajectoryStep, error) {
	members := project.GenetMembers(genet)
	if len(members) == 0 {
		return nil, errors.Wrapf(ErrUnknownGenet, "genet %d", genet)
	}

	steps := make([]TrajectoryStep, 0, len(project.Images))
	var tracker *kalman_filter.KalmanBBox
	for _, img := range project.Images {
		blobs := members[img.ID]
		if tracker == nil && len(blobs) == 0 {
			continue
		}
		step := TrajectoryStep{
			ImageID:         img.ID,
			AcquisitionDate: img.AcquisitionDate,
			Present:         len(blobs) > 0,
			Blobs:           len(blobs),
		}
		if step.Present {
			union := blobs[0].BBox
			for _, blob := range blobs[1:] {
				union = union.Union(blob.BBox)
			}
			step.BBox = union.Scale(img.PixelSize)
			for _, blob := range blobs {
				step.Area += img.physicalArea(blob, false)
			}
		}

		if tracker == nil {
			tracker = newGenetFilter(step.BBox)
			step.Smoothed = step.BBox
			steps = append(steps, step)
			continue
		}
		tracker.Predict()
		if step.Present {
			center := step.BBox.Center()
			err := tracker.Update(center.X, center.Y, step.BBox.Width, step.BBox.Height)
			if err != nil {
				return nil, errors.Wrapf(err, "can't update genet %d trajectory on image '%s'", genet, img.ID)
			}
		}
		step.Smoothed = stateRect(tracker.GetState())
		_, _, step.GrowthW, step.GrowthH = tracker.GetVelocity()
		step.Drift = euclideanDistance(steps[len(steps)-1].Smoothed.Center(), step.Smoothed.Center())
		steps = append(steps, step)
	}
	return steps, nil
}
