// Package checkin computes the gate-keeping view shown when a club arrives on
// site: which required form fields are still unanswered and how many attendees
// have already been marked in. The audit is a pure projection over persisted
// rows; marking arrival lives in the service.
package checkin

import (
	"fmt"

	"cmms/internal/event"
	"cmms/internal/registration"
	id "cmms/pkg/domain"
)

// RegistrationView is the slice of a registration the auditor reads.
type RegistrationView struct {
	Attendees []registration.Attendee
	Responses []ResponseRef
}

// ResponseRef identifies an existing answer without its value; presence is all
// the audit needs.
type ResponseRef struct {
	FieldID    id.FieldID
	AttendeeID *id.RosterMemberID
}

// Audit summarizes one registration's readiness for check-in.
type Audit struct {
	MissingRequiredFields []string
	CheckedInCount        int
}

// HasMissingRequiredFields reports whether arrival should be warned or gated.
func (a Audit) HasMissingRequiredFields() bool {
	return len(a.MissingRequiredFields) > 0
}

// AuditRegistration partitions the event's required fields into global and
// attendee-scoped using the same classification the assembler applies, then
// reports what is still unanswered. Global fields are missing when the
// registration has no registration-scoped answer; attendee-scoped fields are
// reported with the count of selected attendees lacking an answer.
func AuditRegistration(reg RegistrationView, requiredFields []event.FormField) Audit {
	globalAnswered := make(map[id.FieldID]struct{})
	attendeeAnswered := make(map[id.FieldID]map[id.RosterMemberID]struct{})

	for _, response := range reg.Responses {
		if response.AttendeeID == nil {
			globalAnswered[response.FieldID] = struct{}{}
			continue
		}
		byMember := attendeeAnswered[response.FieldID]
		if byMember == nil {
			byMember = make(map[id.RosterMemberID]struct{})
			attendeeAnswered[response.FieldID] = byMember
		}
		byMember[*response.AttendeeID] = struct{}{}
	}

	var missing []string
	for _, field := range requiredFields {
		if registration.IsAttendeeSpecific(field) {
			answered := attendeeAnswered[field.ID]
			unanswered := 0
			for _, attendee := range reg.Attendees {
				if _, ok := answered[attendee.RosterMemberID]; !ok {
					unanswered++
				}
			}
			if unanswered > 0 {
				missing = append(missing, fmt.Sprintf("%s (%d %s)", field.Label, unanswered, pluralizeAttendee(unanswered)))
			}
			continue
		}

		if _, ok := globalAnswered[field.ID]; !ok {
			missing = append(missing, field.Label)
		}
	}

	checkedIn := 0
	for _, attendee := range reg.Attendees {
		if attendee.CheckedInAt != nil {
			checkedIn++
		}
	}

	return Audit{
		MissingRequiredFields: missing,
		CheckedInCount:        checkedIn,
	}
}

func pluralizeAttendee(n int) string {
	if n == 1 {
		return "attendee"
	}
	return "attendees"
}
