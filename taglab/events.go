package taglab

import (
	"fmt"

	"github.com/google/uuid"
)

// EventKind is for notification type
type EventKind uint16

const (
	BlobAdded EventKind = iota + 1
	BlobRemoved
	BlobUpdated
	BlobClassChanged
	// BlobClassChangedByGenet follows BlobClassChanged when the change came from genet propagation
	BlobClassChangedByGenet
	CorrespondenceTableChanged
	PointAdded
	PointRemoved
	PointClassChanged
)

func (kind EventKind) String() string {
	switch kind {
	case BlobAdded:
		return "blob_added"
	case BlobRemoved:
		return "blob_removed"
	case BlobUpdated:
		return "blob_updated"
	case BlobClassChanged:
		return "blob_class_changed"
	case BlobClassChangedByGenet:
		return "blob_class_changed_by_genet"
	case CorrespondenceTableChanged:
		return "correspondence_table_changed"
	case PointAdded:
		return "point_added"
	case PointRemoved:
		return "point_removed"
	case PointClassChanged:
		return "point_class_changed"
	default:
		return fmt.Sprintf("EventKind(%d)", uint16(kind))
	}
}

// Event is a notification emitted by the project. Only the fields relevant to Kind are set.
type Event struct {
	ID    uuid.UUID
	Kind  EventKind
	Image *Image
	Blob  *Blob
	// OldBlob is set for BlobUpdated
	OldBlob  *Blob
	OldClass string
	Point    *PointAnnotation
}

// Listener consumes project notifications
type Listener interface {
	OnEvent(event Event)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(event Event)

// OnEvent calls f(event)
func (f ListenerFunc) OnEvent(event Event) {
	f(event)
}

// Subscribe registers listener. Listeners are called synchronously in registration order.
func (project *Project) Subscribe(listener Listener) {
	project.listeners = append(project.listeners, listener)
}

func (project *Project) emit(event Event) {
	if len(project.listeners) == 0 {
		return
	}
	event.ID = uuid.New()
	for _, listener := range project.listeners {
		listener.OnEvent(event)
	}
}
