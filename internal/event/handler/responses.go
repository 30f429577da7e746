package handler

import (
	"encoding/json"
	"time"

	"cmms/internal/event"
	"cmms/internal/registration"
)

// EventResponse is the HTTP representation of an event.
type EventResponse struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Slug                 string    `json:"slug"`
	StartsAt             time.Time `json:"startsAt"`
	EndsAt               time.Time `json:"endsAt"`
	RegistrationOpensAt  time.Time `json:"registrationOpensAt"`
	RegistrationClosesAt time.Time `json:"registrationClosesAt"`
	LocationName         *string   `json:"locationName,omitempty"`
	LocationAddress      *string   `json:"locationAddress,omitempty"`
}

func FromEvent(ev event.Event) EventResponse {
	return EventResponse{
		ID:                   ev.ID.String(),
		Name:                 ev.Name,
		Slug:                 ev.Slug,
		StartsAt:             ev.StartsAt,
		EndsAt:               ev.EndsAt,
		RegistrationOpensAt:  ev.RegistrationOpensAt,
		RegistrationClosesAt: ev.RegistrationClosesAt,
		LocationName:         ev.LocationName,
		LocationAddress:      ev.LocationAddress,
	}
}

// FieldResponse is one dynamic field as the form renderer consumes it.
// AttendeeSpecific is derived, not stored; the renderer uses it to decide
// whether to ask the question once or per attendee.
type FieldResponse struct {
	ID               string          `json:"id"`
	ParentFieldID    *string         `json:"parentFieldId,omitempty"`
	Key              string          `json:"key"`
	Label            string          `json:"label"`
	Description      *string         `json:"description,omitempty"`
	Type             string          `json:"type"`
	Options          json.RawMessage `json:"options,omitempty"`
	IsRequired       bool            `json:"isRequired"`
	SortOrder        int             `json:"sortOrder"`
	AttendeeSpecific bool            `json:"attendeeSpecific"`
}

func FromFields(fields []event.FormField) []FieldResponse {
	out := make([]FieldResponse, 0, len(fields))
	for _, field := range fields {
		resp := FieldResponse{
			ID:               field.ID.String(),
			Key:              field.Key,
			Label:            field.Label,
			Description:      field.Description,
			Type:             string(field.Type),
			Options:          field.Options,
			IsRequired:       field.IsRequired,
			SortOrder:        field.SortOrder,
			AttendeeSpecific: registration.IsAttendeeSpecific(field),
		}
		if field.ParentFieldID != nil {
			parent := field.ParentFieldID.String()
			resp.ParentFieldID = &parent
		}
		out = append(out, resp)
	}
	return out
}
