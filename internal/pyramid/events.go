package pyramid

// EventKind identifies a point in the generation lifecycle
type EventKind int

const (
	EventStart EventKind = iota
	EventZoomStart
	EventZoomDone
	EventMetadata
	EventDone
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventZoomStart:
		return "zoom start"
	case EventZoomDone:
		return "zoom done"
	case EventMetadata:
		return "metadata"
	case EventDone:
		return "done"
	default:
		return "unknown"
	}
}

// Event reports progress. Zoom, Side and Tiles are set for zoom events;
// Path for EventMetadata; Written is the running tile total.
type Event struct {
	Kind    EventKind
	Layout  Layout
	Zoom    int
	Side    int
	Tiles   int
	Written int
	Path    string
}
