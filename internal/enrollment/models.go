// Package enrollment manages class offerings at events and the seats taken in
// them. Enrolling is the one operation in the system where concurrent writers
// contend for a shared resource (the offering's remaining capacity), so the
// store contract requires a locked read-then-insert.
package enrollment

import (
	"time"

	id "cmms/pkg/domain"
)

// Offering is a scheduled instance of a catalog item at an event.
type Offering struct {
	ID               id.OfferingID
	EventID          id.EventID
	CatalogID        id.CatalogID
	Capacity         int
	DayIndex         int
	StartsAt         time.Time
	EndsAt           time.Time
	Location         *string
	InstructorUserID *id.UserID
}

// Enrollment is one seat taken in an offering, unique per (offering, member).
// There is deliberately no removal path: seats are an audit trail once taken.
type Enrollment struct {
	ID             id.EnrollmentID
	OfferingID     id.OfferingID
	RosterMemberID id.RosterMemberID
	EnrolledAt     time.Time
}

// OutcomeKind classifies the result of an enroll attempt. Failures are
// business outcomes, not transport errors: the transaction aborts cleanly and
// the caller gets enough detail to act on.
type OutcomeKind int

const (
	// OutcomeEnrolled: a new seat was taken.
	OutcomeEnrolled OutcomeKind = iota
	// OutcomeAlreadyEnrolled: the member already held a seat; idempotent success.
	OutcomeAlreadyEnrolled
	// OutcomeAttendeeNotRegistered: the member is not on the club's
	// registration for this event.
	OutcomeAttendeeNotRegistered
	// OutcomeOfferingNotFound: the offering does not exist on this event.
	OutcomeOfferingNotFound
	// OutcomePrerequisitesNotMet: one or more requirements failed; Blockers
	// lists every failing rule.
	OutcomePrerequisitesNotMet
	// OutcomeClassFull: every seat is taken.
	OutcomeClassFull
)

// Outcome is the typed result of one enroll attempt.
type Outcome struct {
	Kind     OutcomeKind
	Blockers []string
}

// Code is the stable identifier of the outcome kind, used on the wire and as
// a metric label.
func (k OutcomeKind) Code() string {
	switch k {
	case OutcomeEnrolled:
		return "ENROLLED"
	case OutcomeAlreadyEnrolled:
		return "ALREADY_ENROLLED"
	case OutcomeAttendeeNotRegistered:
		return "ATTENDEE_NOT_REGISTERED"
	case OutcomeOfferingNotFound:
		return "OFFERING_NOT_FOUND"
	case OutcomePrerequisitesNotMet:
		return "PREREQUISITES_NOT_MET"
	case OutcomeClassFull:
		return "CLASS_FULL"
	}
	return "UNKNOWN"
}

// Succeeded reports whether the attempt left the member holding a seat.
func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeEnrolled || o.Kind == OutcomeAlreadyEnrolled
}

// Message renders the outcome for display.
func (o Outcome) Message() string {
	switch o.Kind {
	case OutcomeEnrolled:
		return "Attendee enrolled."
	case OutcomeAlreadyEnrolled:
		return "Attendee is already enrolled in this class."
	case OutcomeAttendeeNotRegistered:
		return "Attendee is not registered for this event under your club."
	case OutcomeOfferingNotFound:
		return "Class offering was not found for this event."
	case OutcomePrerequisitesNotMet:
		return "Attendee does not meet class prerequisites: " + joinBlockers(o.Blockers) + "."
	case OutcomeClassFull:
		return "This class is full. Please choose another class."
	}
	return "Unknown enrollment outcome."
}

func joinBlockers(blockers []string) string {
	out := ""
	for i, b := range blockers {
		if i > 0 {
			out += ", "
		}
		out += b
	}
	return out
}
