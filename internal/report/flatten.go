// Package report builds the super admin exports: operational rosters keyed by
// reserved form field keys, the medical manifest, and the master attendee
// list, all downloadable as CSV.
package report

import (
	"strconv"
	"strings"

	"cmms/internal/registration"
)

// FlattenValue reduces a dynamic answer to individual display strings. Free
// text is split on commas and newlines because volunteers enter name lists
// either way; numbers and booleans become their literal text; list answers
// flatten entry by entry.
func FlattenValue(v registration.Value) []string {
	switch v.Kind {
	case registration.ValueString:
		return splitEntries(v.Str)
	case registration.ValueNumber:
		return []string{strconv.FormatFloat(v.Num, 'f', -1, 64)}
	case registration.ValueBool:
		return []string{strconv.FormatBool(v.Bool)}
	case registration.ValueStringList:
		var out []string
		for _, entry := range v.Strings {
			out = append(out, splitEntries(entry)...)
		}
		return out
	}
	return nil
}

func splitEntries(s string) []string {
	var out []string
	for _, entry := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' }) {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}
