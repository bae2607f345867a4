package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unitutor-api/internal/models"
)

var meetingRowColumns = []string{"id", "title", "description", "organizer_id", "room_id", "type", "start_time", "end_time", "status", "meeting_url", "series_id", "recurrence_rule", "created_at", "updated_at"}

func TestFindOverlappingExcludesSelf(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM meetings m WHERE m.room_id = $1 AND m.status = ANY($2) AND m.start_time < $3 AND m.end_time > $4 AND m.id <> $5 ORDER BY m.start_time ASC")).
		WithArgs("r-1", sqlmock.AnyArg(), end, start, "m-self").
		WillReturnRows(sqlmock.NewRows(meetingRowColumns).
			AddRow("m-2", "Lab session", "", "f-1", "r-1", "CLASS", start.Add(30*time.Minute), end.Add(30*time.Minute), "SCHEDULED", nil, nil, nil, now, now))

	meetings, err := repo.FindOverlapping(context.Background(), "r-1", start, end, "m-self")
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, "m-2", meetings[0].ID)
	assert.Nil(t, meetings[0].RecurrenceRule)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDDecodesRecurrence(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM meetings m WHERE m.id = $1")).
		WithArgs("m-1").
		WillReturnRows(sqlmock.NewRows(meetingRowColumns).
			AddRow("m-1", "Weekly sync", "", "f-1", nil, "ONLINE", now, now.Add(time.Hour), "SCHEDULED", "https://meet.example/x", "s-1", []byte(`{"frequency":"WEEKLY","count":4}`), now, now))

	meeting, err := repo.FindByID(context.Background(), "m-1")
	require.NoError(t, err)
	require.NotNil(t, meeting.RecurrenceRule)
	assert.Equal(t, models.RecurrenceWeekly, meeting.RecurrenceRule.Frequency)
	assert.Equal(t, 4, meeting.RecurrenceRule.Count)
	assert.Nil(t, meeting.RoomID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSeriesInsertsInOneTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)

	room := "r-1"
	series := "s-1"
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	meetings := []*models.Meeting{
		{Title: "Seminar", OrganizerID: "f-1", RoomID: &room, Type: models.MeetingTypeInPerson, StartTime: start, EndTime: start.Add(time.Hour), SeriesID: &series},
		{Title: "Seminar", OrganizerID: "f-1", RoomID: &room, Type: models.MeetingTypeInPerson, StartTime: start.AddDate(0, 0, 7), EndTime: start.AddDate(0, 0, 7).Add(time.Hour), SeriesID: &series},
	}

	mock.ExpectBegin()
	for range meetings {
		mock.ExpectExec("INSERT INTO meetings").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO meeting_participants").WillReturnResult(sqlmock.NewResult(1, 2))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), meetings, []string{"s-1", "s-2"}))
	assert.NotEmpty(t, meetings[0].ID)
	assert.NotEqual(t, meetings[0].ID, meetings[1].ID)
	assert.Equal(t, models.MeetingStatusScheduled, meetings[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRollsBackOnExclusionViolation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)

	room := "r-1"
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO meetings").WillReturnError(&pq.Error{Code: "23P01", Constraint: "meetings_room_no_overlap"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), []*models.Meeting{{Title: "Exam", OrganizerID: "f-1", RoomID: &room, Type: models.MeetingTypeExam, StartTime: start, EndTime: start.Add(time.Hour)}}, nil)
	assert.ErrorIs(t, err, ErrOverlap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeetingListByParticipant(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM meetings m WHERE (m.organizer_id = $1 OR EXISTS (SELECT 1 FROM meeting_participants p WHERE p.meeting_id = m.id AND p.user_id = $2)) AND m.status = ANY($3) ORDER BY m.start_time ASC, m.id ASC LIMIT 20 OFFSET 0")).
		WithArgs("u-1", "u-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(meetingRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM meetings m WHERE")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.MeetingFilter{OrganizerID: "u-1", ParticipantID: "u-1", Status: []models.MeetingStatus{models.MeetingStatusScheduled}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateParticipantStatusMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)

	mock.ExpectExec("UPDATE meeting_participants SET status").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateParticipantStatus(context.Background(), "m-1", "u-9", models.ParticipantAccepted, time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListParticipants(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM meeting_participants p JOIN users u").
		WithArgs("m-1").
		WillReturnRows(sqlmock.NewRows([]string{"meeting_id", "user_id", "full_name", "status", "responded_at", "created_at"}).
			AddRow("m-1", "s-1", "Budi", "ACCEPTED", now, now))

	participants, err := repo.ListParticipants(context.Background(), "m-1")
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, models.ParticipantAccepted, participants[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
