package report

import (
	"strconv"
	"strings"
	"time"

	"cmms/internal/roster"
)

// MedicalRow is one attendee with a dietary restriction or medical flag.
type MedicalRow struct {
	AttendeeName        string
	Age                 string
	Role                roster.MemberRole
	ClubName            string
	EmergencyContact    string
	DietaryRestrictions *string
	MedicalFlags        *string
}

// Manifest is the on-site medical paperwork: the dietary list for the kitchen
// and the medical list for the nurse station. A row can appear on both.
type Manifest struct {
	DietaryRows []MedicalRow
	MedicalRows []MedicalRow
}

// BuildManifest partitions rows by which concern they carry. Rows with
// neither are dropped.
func BuildManifest(rows []MedicalRow) Manifest {
	var manifest Manifest
	for _, row := range rows {
		row.DietaryRestrictions = normalizeText(row.DietaryRestrictions)
		row.MedicalFlags = normalizeText(row.MedicalFlags)
		if row.DietaryRestrictions != nil {
			manifest.DietaryRows = append(manifest.DietaryRows, row)
		}
		if row.MedicalFlags != nil {
			manifest.MedicalRows = append(manifest.MedicalRows, row)
		}
	}
	return manifest
}

func normalizeText(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// FormatEmergencyContact renders name and phone for the manifest; either part
// may be missing.
func FormatEmergencyContact(name, phone *string) string {
	n := normalizeText(name)
	p := normalizeText(phone)
	switch {
	case n != nil && p != nil:
		return *n + " (" + *p + ")"
	case n != nil:
		return *n
	case p != nil:
		return *p
	}
	return "Not provided"
}

// FormatAge prefers the precomputed roster age and falls back to computing
// from the date of birth as of now.
func FormatAge(dateOfBirth *time.Time, ageAtStart *int, now time.Time) string {
	if ageAtStart != nil {
		return strconv.Itoa(*ageAtStart)
	}
	if age := roster.AgeAt(dateOfBirth, now); age != nil {
		return strconv.Itoa(*age)
	}
	return "Unknown"
}
