package scheduling

import "github.com/noah-isme/unitutor-api/internal/models"

var meetingTransitions = map[models.MeetingStatus][]models.MeetingStatus{
	models.MeetingStatusScheduled:  {models.MeetingStatusInProgress, models.MeetingStatusCompleted, models.MeetingStatusCancelled},
	models.MeetingStatusInProgress: {models.MeetingStatusCompleted, models.MeetingStatusCancelled},
}

var consultationTransitions = map[models.ConsultationStatus][]models.ConsultationStatus{
	models.ConsultationPending:   {models.ConsultationConfirmed, models.ConsultationCancelled},
	models.ConsultationConfirmed: {models.ConsultationCompleted, models.ConsultationCancelled},
}

// CanTransitionMeeting reports whether a meeting may move from one status to another.
func CanTransitionMeeting(from, to models.MeetingStatus) bool {
	for _, next := range meetingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransitionConsultation reports whether a consultation may move from one status to another.
// COMPLETED and CANCELLED are terminal.
func CanTransitionConsultation(from, to models.ConsultationStatus) bool {
	for _, next := range consultationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
