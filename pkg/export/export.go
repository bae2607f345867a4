// Package export renders calendar events into downloadable documents.
package export

import (
	"fmt"
	"strings"
	"time"
)

// Event is a single calendar occurrence to render.
type Event struct {
	UID         string
	Kind        string
	Summary     string
	Description string
	Location    string
	Organizer   string
	Status      string
	Start       time.Time
	End         time.Time
}

// Document is a titled list of events covering [From, To).
type Document struct {
	Title    string
	From     time.Time
	To       time.Time
	Location *time.Location
	Events   []Event
}

// Renderer converts a document into bytes of a single format.
type Renderer interface {
	Render(Document) ([]byte, error)
	ContentType() string
	Extension() string
}

// Columns are the headings used by tabular renderers.
var Columns = []string{"Date", "Start", "End", "Kind", "Title", "Location", "Organizer", "Status"}

// Rows flattens events into tabular records in document order.
func (d Document) Rows() [][]string {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	rows := make([][]string, 0, len(d.Events))
	for _, ev := range d.Events {
		start := ev.Start.In(loc)
		end := ev.End.In(loc)
		rows = append(rows, []string{
			start.Format("2006-01-02"),
			start.Format("15:04"),
			end.Format("15:04"),
			ev.Kind,
			ev.Summary,
			ev.Location,
			ev.Organizer,
			ev.Status,
		})
	}
	return rows
}

// ForFormat returns the renderer registered for the given format name.
func ForFormat(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "csv":
		return NewCSVRenderer(), nil
	case "pdf":
		return NewPDFRenderer(), nil
	case "ics":
		return NewICSRenderer(""), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
