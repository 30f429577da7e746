// Package schema validates and normalizes an event's dynamic field
// definitions before persistence. The builder is pure: it takes the drafts a
// client submitted and either returns a fully normalized batch or a
// ValidationError naming the offending field. Persistence happens elsewhere.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"cmms/internal/event"
)

// Code identifies which validation rule a field batch violated.
type Code string

const (
	CodeMissingFieldID          Code = "MissingFieldId"
	CodeMissingFieldKey         Code = "MissingFieldKey"
	CodeMissingFieldLabel       Code = "MissingFieldLabel"
	CodeUnsupportedFieldType    Code = "UnsupportedFieldType"
	CodeInvalidOptionsPayload   Code = "InvalidOptionsPayload"
	CodeDuplicateFieldKey       Code = "DuplicateFieldKey"
	CodeUnknownParentField      Code = "UnknownParentField"
	CodeInvalidParentType       Code = "InvalidParentType"
	CodeNestedGroupNotSupported Code = "NestedGroupNotSupported"
)

// ValidationError reports a rejected field batch. Message identifies the
// offending field by position or key and is safe to show directly.
type ValidationError struct {
	Code    Code
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(code Code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Draft is one dynamic field as submitted by the form builder UI. ID is a
// client-generated correlation id used to resolve parent references within
// the batch; durable ids are assigned at persistence time.
type Draft struct {
	ID            string `json:"id"`
	ParentFieldID string `json:"parentFieldId"`
	Key           string `json:"key"`
	Label         string `json:"label"`
	Description   string `json:"description"`
	Type          string `json:"type"`
	IsRequired    bool   `json:"isRequired"`
	OptionsJSON   string `json:"optionsJson"`
}

// Field is a normalized dynamic field ready for persistence. ParentRef still
// holds the client correlation id of the parent; the store maps it to a
// durable id once parents are inserted.
type Field struct {
	Ref         string
	ParentRef   string
	Key         string
	Label       string
	Description *string
	Type        event.FieldType
	Options     json.RawMessage
	IsRequired  bool
	SortOrder   int
}

// BuildSchema validates per-field rules in submission order, then cross-field
// rules over the whole batch. The returned slice lists every root field before
// any child so persistence can assign durable parent ids first.
func BuildSchema(drafts []Draft) ([]Field, error) {
	fields := make([]Field, 0, len(drafts))

	for i, draft := range drafts {
		position := i + 1

		fieldID := strings.TrimSpace(draft.ID)
		if fieldID == "" {
			return nil, validationErrorf(CodeMissingFieldID, "Dynamic field %d is missing an id.", position)
		}

		key := strings.TrimSpace(draft.Key)
		if key == "" {
			return nil, validationErrorf(CodeMissingFieldKey, "Dynamic field %d is missing a key.", position)
		}

		label := strings.TrimSpace(draft.Label)
		if label == "" {
			return nil, validationErrorf(CodeMissingFieldLabel, "Dynamic field %d is missing a label.", position)
		}

		fieldType := event.FieldType(draft.Type)
		if !fieldType.IsValid() {
			return nil, validationErrorf(CodeUnsupportedFieldType,
				"Dynamic field %d has an unsupported type. Use SHORT_TEXT, NUMBER, MULTI_SELECT, BOOLEAN, ROSTER_SELECT, ROSTER_MULTI_SELECT, or FIELD_GROUP.",
				position)
		}

		var options json.RawMessage
		if fieldType == event.FieldMultiSelect {
			normalized, err := parseMultiSelectOptions(draft.OptionsJSON, key)
			if err != nil {
				return nil, err
			}
			options = normalized
		}

		var description *string
		if trimmed := strings.TrimSpace(draft.Description); trimmed != "" {
			description = &trimmed
		}

		// A group is a container, never an answerable field.
		isRequired := draft.IsRequired
		if fieldType == event.FieldGroup {
			isRequired = false
		}

		fields = append(fields, Field{
			Ref:         fieldID,
			ParentRef:   strings.TrimSpace(draft.ParentFieldID),
			Key:         key,
			Label:       label,
			Description: description,
			Type:        fieldType,
			Options:     options,
			IsRequired:  isRequired,
			SortOrder:   i,
		})
	}

	if err := validateBatch(fields); err != nil {
		return nil, err
	}

	return orderParentsFirst(fields), nil
}

func validateBatch(fields []Field) error {
	seenKeys := make(map[string]struct{}, len(fields))
	byRef := make(map[string]*Field, len(fields))

	for i := range fields {
		field := &fields[i]
		if _, dup := seenKeys[field.Key]; dup {
			return validationErrorf(CodeDuplicateFieldKey,
				"Dynamic field keys must be unique. Duplicate key: %s", field.Key)
		}
		seenKeys[field.Key] = struct{}{}
		byRef[field.Ref] = field
	}

	for i := range fields {
		field := &fields[i]
		if field.ParentRef == "" {
			continue
		}

		parent, ok := byRef[field.ParentRef]
		if !ok {
			return validationErrorf(CodeUnknownParentField,
				"Field %q references an unknown parent field.", field.Key)
		}
		if parent.Type != event.FieldGroup {
			return validationErrorf(CodeInvalidParentType,
				"Field %q must reference a FIELD_GROUP parent.", field.Key)
		}
		if field.Type == event.FieldGroup {
			return validationErrorf(CodeNestedGroupNotSupported,
				"Nested FIELD_GROUP values are not supported.")
		}
	}

	return nil
}

// orderParentsFirst lists all root fields before any child while preserving
// relative submission order (SortOrder is untouched). Persistence inserts in
// slice order so every child can reference an already-assigned parent id.
func orderParentsFirst(fields []Field) []Field {
	ordered := make([]Field, 0, len(fields))
	for _, field := range fields {
		if field.ParentRef == "" {
			ordered = append(ordered, field)
		}
	}
	for _, field := range fields {
		if field.ParentRef != "" {
			ordered = append(ordered, field)
		}
	}
	return ordered
}

func parseMultiSelectOptions(raw, fieldKey string) (json.RawMessage, error) {
	payloadErr := validationErrorf(CodeInvalidOptionsPayload,
		"Dynamic field %q requires optionsJson to be a JSON array of non-empty strings.", fieldKey)

	var parsed []any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, payloadErr
	}
	if len(parsed) == 0 {
		return nil, payloadErr
	}

	normalized := make([]string, 0, len(parsed))
	for _, option := range parsed {
		s, ok := option.(string)
		if !ok {
			return nil, payloadErr
		}
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			return nil, payloadErr
		}
		normalized = append(normalized, trimmed)
	}

	encoded, err := json.Marshal(normalized)
	if err != nil {
		return nil, payloadErr
	}
	return encoded, nil
}
