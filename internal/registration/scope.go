package registration

import (
	"encoding/json"
	"strings"

	"cmms/internal/event"
)

// Attendee-specific classification markers. A field whose answer belongs to a
// single attendee (rather than the registration as a whole) is recognized by
// convention, not by a stored attribute. The rules are heuristic and must be
// preserved exactly: the registration form renderer and the check-in auditor
// both depend on this classification, so hardening it (or loosening it) would
// silently change which responses are accepted and which fields gate check-in.
const (
	attendeeKeyPrefix  = "attendee_"
	memberKeyPrefix    = "member_"
	descriptionMarker  = "[attendee]"
	optionListSentinel = "__ATTENDEE_LIST__"
)

// IsAttendeeSpecific reports whether a field's answers are scoped to
// individual attendees. A field qualifies when any of the following hold:
//   - its key starts with "attendee_" or "member_"
//   - its description contains "[attendee]" (case-insensitive)
//   - its options payload is a JSON object with attendeeSpecific=true or
//     scope="ATTENDEE"
//   - its options payload is a JSON array containing "__ATTENDEE_LIST__"
func IsAttendeeSpecific(field event.FormField) bool {
	if strings.HasPrefix(field.Key, attendeeKeyPrefix) || strings.HasPrefix(field.Key, memberKeyPrefix) {
		return true
	}

	if field.Description != nil && strings.Contains(strings.ToLower(*field.Description), descriptionMarker) {
		return true
	}

	if len(field.Options) == 0 {
		return false
	}

	var metadata map[string]any
	if err := json.Unmarshal(field.Options, &metadata); err == nil {
		if attendeeSpecific, ok := metadata["attendeeSpecific"].(bool); ok && attendeeSpecific {
			return true
		}
		if scope, ok := metadata["scope"].(string); ok && scope == "ATTENDEE" {
			return true
		}
		return false
	}

	var options []any
	if err := json.Unmarshal(field.Options, &options); err == nil {
		for _, option := range options {
			if s, ok := option.(string); ok && s == optionListSentinel {
				return true
			}
		}
	}

	return false
}
