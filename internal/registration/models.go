// Package registration models a club's registration for an event: the
// attendee selection plus the answers to the event's dynamic form fields.
// There is exactly one registration per (event, club) pair, enforced by a
// store uniqueness constraint, so saving is an idempotent upsert.
package registration

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	id "cmms/pkg/domain"
)

// Status is the registration state machine. Drafts may be resubmitted freely;
// check-in approval moves SUBMITTED to APPROVED.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
)

// Registration is one club's registration row for one event.
type Registration struct {
	ID               id.RegistrationID
	EventID          id.EventID
	ClubID           id.ClubID
	RegistrationCode string
	Status           Status
	SubmittedAt      *time.Time
	ApprovedAt       *time.Time
	CreatedAt        time.Time
}

// Attendee is a roster member selected on a registration. CheckedInAt is set
// when the attendee arrives on site.
type Attendee struct {
	ID             id.AttendeeID
	RegistrationID id.RegistrationID
	RosterMemberID id.RosterMemberID
	CheckedInAt    *time.Time
	CreatedAt      time.Time
}

// FormResponse is one answer on a registration. AttendeeID is nil for
// registration-scoped answers and set for attendee-scoped ones; the scope is
// not stored on the field, it is derived (see scope.go).
type FormResponse struct {
	RegistrationID id.RegistrationID
	FieldID        id.FieldID
	AttendeeID     *id.RosterMemberID
	Value          Value
	CreatedAt      time.Time
}

// ValueKind discriminates the shapes a dynamic field answer may take.
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueNumber
	ValueBool
	ValueStringList
)

// Value is a dynamic field answer as a tagged union rather than untyped JSON.
// Answers arrive as JSON and are validated once at the assembler boundary;
// downstream code switches on Kind instead of re-parsing.
type Value struct {
	Kind    ValueKind
	Str     string
	Num     float64
	Bool    bool
	Strings []string
}

// ParseValue interprets a raw JSON answer. The second return is false when the
// payload means "no answer" (null, empty string, empty array) and the response
// should be dropped. Shapes other than string, number, boolean, or an array of
// strings are rejected.
func ParseValue(raw json.RawMessage) (Value, bool, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return Value{}, false, nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Value{}, false, fmt.Errorf("decode response value: %w", err)
	}

	switch v := decoded.(type) {
	case string:
		if v == "" {
			return Value{}, false, nil
		}
		return Value{Kind: ValueString, Str: v}, true, nil
	case float64:
		return Value{Kind: ValueNumber, Num: v}, true, nil
	case bool:
		return Value{Kind: ValueBool, Bool: v}, true, nil
	case []any:
		if len(v) == 0 {
			return Value{}, false, nil
		}
		items := make([]string, 0, len(v))
		for _, entry := range v {
			s, ok := entry.(string)
			if !ok {
				return Value{}, false, fmt.Errorf("response array values must be strings")
			}
			items = append(items, s)
		}
		return Value{Kind: ValueStringList, Strings: items}, true, nil
	default:
		return Value{}, false, fmt.Errorf("unsupported response value shape")
	}
}

// JSON re-encodes the value for persistence.
func (v Value) JSON() json.RawMessage {
	var encoded []byte
	switch v.Kind {
	case ValueString:
		encoded, _ = json.Marshal(v.Str)
	case ValueNumber:
		encoded, _ = json.Marshal(v.Num)
	case ValueBool:
		encoded, _ = json.Marshal(v.Bool)
	case ValueStringList:
		encoded, _ = json.Marshal(v.Strings)
	}
	return encoded
}

// Truthy reports whether the answer should count as an affirmative request.
// Free-text "none"/"no"/"n/a" answers are treated as declines.
func (v Value) Truthy() bool {
	switch v.Kind {
	case ValueBool:
		return v.Bool
	case ValueNumber:
		return v.Num > 0
	case ValueString:
		normalized := strings.ToLower(strings.TrimSpace(v.Str))
		if normalized == "" {
			return false
		}
		switch normalized {
		case "false", "none", "no", "n/a", "na":
			return false
		}
		return true
	case ValueStringList:
		return len(v.Strings) > 0
	}
	return false
}

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewRegistrationCode generates the opaque code assigned once at first
// creation, e.g. REG-M9XKQ2-7F3A1B.
func NewRegistrationCode(now time.Time) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return fmt.Sprintf("REG-%s-%s", stamp, suffix)
}
