package registration

import (
	"encoding/json"

	id "cmms/pkg/domain"
)

// Payload is the dynamic-field submission shape sent by the registration
// form. Value stays raw JSON until the assembler validates it.
type Payload struct {
	AttendeeIDs []string          `json:"attendeeIds"`
	Responses   []PayloadResponse `json:"responses"`
}

type PayloadResponse struct {
	FieldID    string          `json:"fieldId"`
	AttendeeID *string         `json:"attendeeId"`
	Value      json.RawMessage `json:"value"`
}

// SubmissionResponse is one validated answer ready for persistence.
type SubmissionResponse struct {
	FieldID    id.FieldID
	AttendeeID *id.RosterMemberID
	Value      Value
}

// Submission is the sanitized result of assembling a payload: the final
// attendee selection and the responses that survived filtering.
type Submission struct {
	AttendeeIDs []id.RosterMemberID
	Responses   []SubmissionResponse
}

// Assemble reconciles a club's submitted payload against the event's field
// schema and the club's active roster. Invalid references are dropped rather
// than rejected: a tampered or stale payload must not block an otherwise valid
// save, and the surviving rows replace the registration's previous contents
// wholesale.
//
// Filtering rules, in order:
//   - attendee ids are deduplicated, then ids outside validAttendeeIDs are
//     dropped (cross-roster tampering protection)
//   - responses referencing unknown field ids are dropped
//   - attendee-scoped responses whose attendee is not in the final selection
//     are dropped (an attendee must be selected to carry an answer)
//   - empty values (null, "", []) are treated as "no answer" and dropped
func Assemble(payload Payload, validAttendeeIDs map[id.RosterMemberID]struct{}, validFieldIDs map[id.FieldID]struct{}) Submission {
	seen := make(map[id.RosterMemberID]struct{}, len(payload.AttendeeIDs))
	attendees := make([]id.RosterMemberID, 0, len(payload.AttendeeIDs))
	for _, raw := range payload.AttendeeIDs {
		memberID, err := id.ParseRosterMemberID(raw)
		if err != nil {
			continue
		}
		if _, dup := seen[memberID]; dup {
			continue
		}
		if _, ok := validAttendeeIDs[memberID]; !ok {
			continue
		}
		seen[memberID] = struct{}{}
		attendees = append(attendees, memberID)
	}

	responses := make([]SubmissionResponse, 0, len(payload.Responses))
	for _, raw := range payload.Responses {
		fieldID, err := id.ParseFieldID(raw.FieldID)
		if err != nil {
			continue
		}
		if _, ok := validFieldIDs[fieldID]; !ok {
			continue
		}

		var attendeeID *id.RosterMemberID
		if raw.AttendeeID != nil {
			memberID, err := id.ParseRosterMemberID(*raw.AttendeeID)
			if err != nil {
				continue
			}
			if _, selected := seen[memberID]; !selected {
				continue
			}
			attendeeID = &memberID
		}

		value, answered, err := ParseValue(raw.Value)
		if err != nil || !answered {
			continue
		}

		responses = append(responses, SubmissionResponse{
			FieldID:    fieldID,
			AttendeeID: attendeeID,
			Value:      value,
		})
	}

	return Submission{AttendeeIDs: attendees, Responses: responses}
}
