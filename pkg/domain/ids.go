// Package domain defines typed identifiers shared across services. Distinct
// types keep an event ID from being passed where a club ID is expected; the
// compiler enforces what the store schema can only assume.
package domain

import (
	"github.com/google/uuid"

	dErrors "cmms/pkg/domain-errors"
)

type (
	UserID         uuid.UUID
	ClubID         uuid.UUID
	EventID        uuid.UUID
	FieldID        uuid.UUID
	RegistrationID uuid.UUID
	AttendeeID     uuid.UUID
	RosterYearID   uuid.UUID
	RosterMemberID uuid.UUID
	CatalogID      uuid.UUID
	OfferingID     uuid.UUID
	EnrollmentID   uuid.UUID
)

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id ClubID) String() string         { return uuid.UUID(id).String() }
func (id EventID) String() string        { return uuid.UUID(id).String() }
func (id FieldID) String() string        { return uuid.UUID(id).String() }
func (id RegistrationID) String() string { return uuid.UUID(id).String() }
func (id AttendeeID) String() string     { return uuid.UUID(id).String() }
func (id RosterYearID) String() string   { return uuid.UUID(id).String() }
func (id RosterMemberID) String() string { return uuid.UUID(id).String() }
func (id CatalogID) String() string      { return uuid.UUID(id).String() }
func (id OfferingID) String() string     { return uuid.UUID(id).String() }
func (id EnrollmentID) String() string   { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ClubID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id FieldID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id RegistrationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AttendeeID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id RosterYearID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id RosterMemberID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CatalogID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id OfferingID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id EnrollmentID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the invariant that IDs are valid, non-empty, non-nil UUIDs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id is required", kind)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id is not a valid identifier", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id must not be the zero identifier", kind)
	}
	return parsed, nil
}

func ParseUserID(raw string) (UserID, error) {
	id, err := parseUUID(raw, "user")
	return UserID(id), err
}

func ParseClubID(raw string) (ClubID, error) {
	id, err := parseUUID(raw, "club")
	return ClubID(id), err
}

func ParseEventID(raw string) (EventID, error) {
	id, err := parseUUID(raw, "event")
	return EventID(id), err
}

func ParseFieldID(raw string) (FieldID, error) {
	id, err := parseUUID(raw, "field")
	return FieldID(id), err
}

func ParseRegistrationID(raw string) (RegistrationID, error) {
	id, err := parseUUID(raw, "registration")
	return RegistrationID(id), err
}

func ParseRosterYearID(raw string) (RosterYearID, error) {
	id, err := parseUUID(raw, "roster year")
	return RosterYearID(id), err
}

func ParseRosterMemberID(raw string) (RosterMemberID, error) {
	id, err := parseUUID(raw, "roster member")
	return RosterMemberID(id), err
}

func ParseCatalogID(raw string) (CatalogID, error) {
	id, err := parseUUID(raw, "catalog item")
	return CatalogID(id), err
}

func ParseOfferingID(raw string) (OfferingID, error) {
	id, err := parseUUID(raw, "class offering")
	return OfferingID(id), err
}
