package taglab

import (
	"sort"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Color is an RGB triplet
type Color [3]int

var (
	emptyFill   = Color{127, 127, 127}
	emptyBorder = Color{200, 200, 200}
	// defaultFill is used for labels created on the fly for unknown classes
	defaultFill = Color{255, 0, 0}
)

// Label is a dictionary entry. The core only relies on Name; the rest is display metadata.
type Label struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Fill        Color  `json:"fill"`
	Border      Color  `json:"border"`
	Visible     bool   `json:"visible"`
	Description string `json:"description,omitempty"`
}

// NewLabel creates a visible label with the default border
func NewLabel(name string, fill Color) *Label {
	return &Label{
		ID:      name,
		Name:    name,
		Fill:    fill,
		Border:  emptyBorder,
		Visible: true,
	}
}

func emptyLabel() *Label {
	return &Label{
		ID:      EmptyClass,
		Name:    EmptyClass,
		Fill:    emptyFill,
		Border:  emptyBorder,
		Visible: true,
	}
}

// SetLabels replaces the dictionary. The "Empty" label is always present.
func (project *Project) SetLabels(labels []*Label) {
	project.Labels = make(map[string]*Label, len(labels)+1)
	for _, label := range labels {
		project.Labels[label.Name] = label
	}
	project.ensureEmptyLabel()
}

func (project *Project) ensureEmptyLabel() {
	if project.Labels == nil {
		project.Labels = make(map[string]*Label)
	}
	if _, ok := project.Labels[EmptyClass]; !ok {
		project.Labels[EmptyClass] = emptyLabel()
	}
}

// LabelsInUse returns sorted class names currently assigned to blobs
func (project *Project) LabelsInUse() []string {
	set := make(map[string]struct{})
	for _, img := range project.Images {
		for _, blob := range img.Blobs {
			set[blob.ClassName] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsLabelVisible returns label's visibility. Unknown labels are reported and treated as hidden.
func (project *Project) IsLabelVisible(name string) bool {
	label, ok := project.Labels[name]
	if !ok {
		log.WithField("label", name).Warn("Unknown label")
		return false
	}
	return label.Visible
}

// ClassColor returns fill color of the class
func (project *Project) ClassColor(className string) (Color, error) {
	if className == EmptyClass {
		return emptyFill, nil
	}
	label, ok := project.Labels[className]
	if !ok {
		return Color{}, errors.Wrapf(ErrUnknownLabel, "class '%s'", className)
	}
	return label.Fill, nil
}

// EnsureLabel returns label for className, creating a red one when missing
func (project *Project) EnsureLabel(className string) *Label {
	project.ensureEmptyLabel()
	if label, ok := project.Labels[className]; ok {
		return label
	}
	log.WithField("label", className).Info("Missing label, creating one")
	label := NewLabel(className, defaultFill)
	project.Labels[className] = label
	return label
}
