package handler

import (
	"time"

	"cmms/internal/enrollment"
	"cmms/internal/enrollment/service"
)

// OfferingResponse is one scheduled class with its seat usage.
type OfferingResponse struct {
	ID               string    `json:"id"`
	EventID          string    `json:"event_id"`
	CatalogID        string    `json:"catalog_id"`
	Capacity         int       `json:"capacity"`
	Enrolled         int       `json:"enrolled"`
	DayIndex         int       `json:"day_index"`
	StartsAt         time.Time `json:"starts_at"`
	EndsAt           time.Time `json:"ends_at"`
	Location         *string   `json:"location,omitempty"`
	InstructorUserID *string   `json:"instructor_user_id,omitempty"`
}

func FromOffering(offering enrollment.Offering, enrolled int) OfferingResponse {
	resp := OfferingResponse{
		ID:        offering.ID.String(),
		EventID:   offering.EventID.String(),
		CatalogID: offering.CatalogID.String(),
		Capacity:  offering.Capacity,
		Enrolled:  enrolled,
		DayIndex:  offering.DayIndex,
		StartsAt:  offering.StartsAt,
		EndsAt:    offering.EndsAt,
		Location:  offering.Location,
	}
	if offering.InstructorUserID != nil {
		instructor := offering.InstructorUserID.String()
		resp.InstructorUserID = &instructor
	}
	return resp
}

// OutcomeResponse reports one enroll attempt. Every business outcome,
// including rejections, is delivered with HTTP 200; Enrolled distinguishes
// them.
type OutcomeResponse struct {
	Outcome  string   `json:"outcome"`
	Enrolled bool     `json:"enrolled"`
	Message  string   `json:"message"`
	Blockers []string `json:"blockers,omitempty"`
}

func FromOutcome(outcome enrollment.Outcome) OutcomeResponse {
	return OutcomeResponse{
		Outcome:  outcome.Kind.Code(),
		Enrolled: outcome.Succeeded(),
		Message:  outcome.Message(),
		Blockers: outcome.Blockers,
	}
}

// EligibilityRowResponse is one attendee in the advisory eligibility view.
type EligibilityRowResponse struct {
	RosterMemberID string   `json:"roster_member_id"`
	Eligible       bool     `json:"eligible"`
	Blockers       []string `json:"blockers,omitempty"`
}

func FromEligibilityView(view []service.AttendeeEligibility) []EligibilityRowResponse {
	rows := make([]EligibilityRowResponse, 0, len(view))
	for _, row := range view {
		rows = append(rows, EligibilityRowResponse{
			RosterMemberID: row.RosterMemberID.String(),
			Eligible:       row.Eligible,
			Blockers:       row.Blockers,
		})
	}
	return rows
}
