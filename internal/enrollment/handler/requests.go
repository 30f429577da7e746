package handler

import "time"

// CreateOfferingRequest schedules a catalog item at an event.
type CreateOfferingRequest struct {
	CatalogID        string    `json:"catalog_id"`
	Capacity         int       `json:"capacity"`
	DayIndex         int       `json:"day_index"`
	StartsAt         time.Time `json:"starts_at"`
	EndsAt           time.Time `json:"ends_at"`
	Location         *string   `json:"location,omitempty"`
	InstructorUserID *string   `json:"instructor_user_id,omitempty"`
}

// EnrollRequest seats one of the club's registered attendees.
type EnrollRequest struct {
	RosterMemberID string `json:"roster_member_id"`
}
