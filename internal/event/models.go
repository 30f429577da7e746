// Package event models conference events and their dynamic registration form
// fields. Fields are created atomically with the event and treated as
// immutable afterwards.
package event

import (
	"encoding/json"
	"time"

	id "cmms/pkg/domain"
)

// FieldType enumerates the supported dynamic field kinds. FIELD_GROUP is a
// container for other fields, not an answerable question.
type FieldType string

const (
	FieldShortText         FieldType = "SHORT_TEXT"
	FieldNumber            FieldType = "NUMBER"
	FieldBoolean           FieldType = "BOOLEAN"
	FieldMultiSelect       FieldType = "MULTI_SELECT"
	FieldRosterSelect      FieldType = "ROSTER_SELECT"
	FieldRosterMultiSelect FieldType = "ROSTER_MULTI_SELECT"
	FieldGroup             FieldType = "FIELD_GROUP"
)

func (t FieldType) IsValid() bool {
	switch t {
	case FieldShortText, FieldNumber, FieldBoolean, FieldMultiSelect,
		FieldRosterSelect, FieldRosterMultiSelect, FieldGroup:
		return true
	}
	return false
}

// Event is a conference-wide gathering clubs register for. Its dynamic form
// fields and class offerings are owned rows created with the event.
type Event struct {
	ID                   id.EventID
	Name                 string
	Slug                 string
	StartsAt             time.Time
	EndsAt               time.Time
	RegistrationOpensAt  time.Time
	RegistrationClosesAt time.Time
	LocationName         *string
	LocationAddress      *string
	CreatedByUserID      id.UserID
}

// FormField is one dynamic registration question on an event. Key is the
// stable identifier unique per event; Label is what users see. Options is the
// raw JSON payload (an array of option strings for MULTI_SELECT, or arbitrary
// metadata) kept opaque here and interpreted by consumers.
type FormField struct {
	ID            id.FieldID
	EventID       id.EventID
	ParentFieldID *id.FieldID
	Key           string
	Label         string
	Description   *string
	Type          FieldType
	Options       json.RawMessage
	IsRequired    bool
	SortOrder     int
}
