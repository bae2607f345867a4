package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return Document{
		Title: "Week of 2026-03-02",
		From:  start.Truncate(24 * time.Hour),
		To:    start.Truncate(24*time.Hour).AddDate(0, 0, 7),
		Events: []Event{
			{UID: "m-1", Kind: "MEETING", Summary: "Thesis review", Location: "Lab 2", Organizer: "Dr. Ana", Status: "SCHEDULED", Start: start, End: start.Add(time.Hour)},
			{UID: "c-1", Kind: "CONSULTATION", Summary: "Office hours", Status: "PENDING", Start: start.Add(2 * time.Hour), End: start.Add(150 * time.Minute)},
		},
	}
}

func TestCSVRendererWritesHeaderAndRows(t *testing.T) {
	out, err := NewCSVRenderer().Render(sampleDocument())
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, []string{"2026-03-02", "09:00", "10:00", "MEETING", "Thesis review", "Lab 2", "Dr. Ana", "SCHEDULED"}, records[1])
	assert.Equal(t, "11:00", records[2][1])
}

func TestRowsUseDocumentLocation(t *testing.T) {
	doc := sampleDocument()
	doc.Location = time.FixedZone("WIB", 7*3600)
	rows := doc.Rows()
	assert.Equal(t, "16:00", rows[0][1])
}

func TestPDFRendererProducesPDF(t *testing.T) {
	out, err := NewPDFRenderer().Render(sampleDocument())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	empty, err := NewPDFRenderer().Render(Document{})
	require.NoError(t, err)
	assert.NotEmpty(t, empty)
}

func TestICSRendererEmitsEvents(t *testing.T) {
	r := NewICSRenderer("")
	r.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	out, err := r.Render(sampleDocument())
	require.NoError(t, err)
	body := string(out)
	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR"))
	assert.Contains(t, body, "METHOD:PUBLISH")
	assert.Equal(t, 2, strings.Count(body, "BEGIN:VEVENT"))
	assert.Contains(t, body, "UID:m-1")
	assert.Contains(t, body, "DTSTART:20260302T090000Z")
	assert.Contains(t, body, "SUMMARY:Thesis review")
	assert.Contains(t, body, "STATUS:TENTATIVE")
}

func TestForFormat(t *testing.T) {
	for format, ext := range map[string]string{"csv": "csv", "PDF": "pdf", "ics": "ics"} {
		r, err := ForFormat(format)
		require.NoError(t, err)
		assert.Equal(t, ext, r.Extension())
	}
	_, err := ForFormat("xlsx")
	assert.Error(t, err)
}
