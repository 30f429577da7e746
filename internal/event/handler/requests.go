package handler

import (
	"time"

	"cmms/internal/event/schema"
)

// CreateEventRequest is the HTTP request for POST /events. Fields is the
// dynamic form batch; each draft's id is a client correlation id used to wire
// parent references.
type CreateEventRequest struct {
	Name                 string         `json:"name"`
	StartsAt             time.Time      `json:"startsAt"`
	EndsAt               time.Time      `json:"endsAt"`
	RegistrationOpensAt  time.Time      `json:"registrationOpensAt"`
	RegistrationClosesAt time.Time      `json:"registrationClosesAt"`
	LocationName         *string        `json:"locationName"`
	LocationAddress      *string        `json:"locationAddress"`
	Fields               []schema.Draft `json:"fields"`
}
