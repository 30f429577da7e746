package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestBuildManifest(t *testing.T) {
	manifest := BuildManifest([]MedicalRow{
		{AttendeeName: "Alice Smith", DietaryRestrictions: ptr("vegetarian")},
		{AttendeeName: "Bob Jones", MedicalFlags: ptr("asthma inhaler")},
		{AttendeeName: "Cara Diaz", DietaryRestrictions: ptr("gluten free"), MedicalFlags: ptr("epipen")},
		{AttendeeName: "Dan Evans", DietaryRestrictions: ptr("   "), MedicalFlags: nil},
	})

	require.Len(t, manifest.DietaryRows, 2)
	assert.Equal(t, "Alice Smith", manifest.DietaryRows[0].AttendeeName)
	require.Len(t, manifest.MedicalRows, 2)
	assert.Equal(t, "Bob Jones", manifest.MedicalRows[0].AttendeeName)
	assert.Equal(t, "Cara Diaz", manifest.MedicalRows[1].AttendeeName)
}

func TestFormatEmergencyContact(t *testing.T) {
	assert.Equal(t, "Jane Doe (555-0100)", FormatEmergencyContact(ptr("Jane Doe"), ptr("555-0100")))
	assert.Equal(t, "Jane Doe", FormatEmergencyContact(ptr("Jane Doe"), nil))
	assert.Equal(t, "555-0100", FormatEmergencyContact(ptr("  "), ptr("555-0100")))
	assert.Equal(t, "Not provided", FormatEmergencyContact(nil, nil))
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	dob := time.Date(2014, 8, 15, 0, 0, 0, 0, time.UTC)
	age := 13

	assert.Equal(t, "13", FormatAge(&dob, &age, now))
	assert.Equal(t, "11", FormatAge(&dob, nil, now))
	assert.Equal(t, "Unknown", FormatAge(nil, nil, now))
}
