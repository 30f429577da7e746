package registration

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"cmms/internal/event"
)

func fieldWith(key string, description string, options string) event.FormField {
	f := event.FormField{Key: key, Type: event.FieldShortText}
	if description != "" {
		f.Description = &description
	}
	if options != "" {
		f.Options = json.RawMessage(options)
	}
	return f
}

func TestIsAttendeeSpecific(t *testing.T) {
	tests := []struct {
		name  string
		field event.FormField
		want  bool
	}{
		{"plain field", fieldWith("duty_first", "", ""), false},
		{"attendee_ prefix", fieldWith("attendee_shirt_size", "", ""), true},
		{"member_ prefix", fieldWith("member_allergies", "", ""), true},
		// Known sharp edge of the convention: any member_-prefixed key is
		// classified as attendee-scoped, even one like member_count that a
		// form author might intend as a registration total.
		{"member_count false positive", fieldWith("member_count", "", ""), true},
		{"description marker", fieldWith("shirt", "Collected per [ATTENDEE] at check-in", ""), true},
		{"description without marker", fieldWith("shirt", "One per club", ""), false},
		{"options object attendeeSpecific", fieldWith("shirt", "", `{"attendeeSpecific": true}`), true},
		{"options object scope", fieldWith("shirt", "", `{"scope": "ATTENDEE"}`), true},
		{"options object other scope", fieldWith("shirt", "", `{"scope": "REGISTRATION"}`), false},
		{"options array sentinel", fieldWith("shirt", "", `["S", "M", "__ATTENDEE_LIST__"]`), true},
		{"options array plain", fieldWith("shirt", "", `["S", "M", "L"]`), false},
		{"options invalid json", fieldWith("shirt", "", `not-json`), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAttendeeSpecific(tt.field))
		})
	}
}
