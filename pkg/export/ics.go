package export

import (
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

const defaultProductID = "-//UniTutor//Calendar Export//EN"

// ICSRenderer emits an iCalendar feed with one VEVENT per event.
type ICSRenderer struct {
	productID string
	now       func() time.Time
}

func NewICSRenderer(productID string) *ICSRenderer {
	if productID == "" {
		productID = defaultProductID
	}
	return &ICSRenderer{productID: productID, now: time.Now}
}

func (r *ICSRenderer) ContentType() string { return "text/calendar" }

func (r *ICSRenderer) Extension() string { return "ics" }

// Render serialises the document as a PUBLISH calendar.
func (r *ICSRenderer) Render(doc Document) ([]byte, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(r.productID)
	if doc.Title != "" {
		cal.SetName(doc.Title)
	}

	stamp := r.now().UTC()
	for _, ev := range doc.Events {
		event := cal.AddEvent(ev.UID)
		event.SetDtStampTime(stamp)
		event.SetStartAt(ev.Start.UTC())
		event.SetEndAt(ev.End.UTC())
		event.SetSummary(ev.Summary)
		if ev.Description != "" {
			event.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			event.SetLocation(ev.Location)
		}
		if status, ok := icsStatus(ev.Status); ok {
			event.SetStatus(status)
		}
	}

	return []byte(cal.Serialize()), nil
}

func icsStatus(status string) (ics.ObjectStatus, bool) {
	switch strings.ToUpper(status) {
	case "CANCELLED":
		return ics.ObjectStatusCancelled, true
	case "PENDING":
		return ics.ObjectStatusTentative, true
	case "SCHEDULED", "CONFIRMED", "IN_PROGRESS", "COMPLETED":
		return ics.ObjectStatusConfirmed, true
	default:
		return "", false
	}
}
