package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmms/internal/registration"
)

func str(s string) registration.Value {
	return registration.Value{Kind: registration.ValueString, Str: s}
}

func TestBuildOperational(t *testing.T) {
	eagles := ClubRef{Name: "Eastside Eagles", Code: "EAG"}
	falcons := ClubRef{Name: "Downtown Falcons", Code: "FAL"}

	out := BuildOperational([]ClubResponses{
		{
			RegistrationID: "r1",
			Club:           eagles,
			Responses: []KeyedResponse{
				{Key: "baptism_names", Label: "Baptism Candidates", Value: str("Alice Smith, Bob Jones")},
				{Key: "duty_first", Label: "First Duty Choice", Value: str("Kitchen")},
				{Key: "av_equipment", Label: "AV Equipment", Value: str("Projector")},
				{Key: "campsite_notes", Label: "Campsite Notes", Value: str("near the lake")},
			},
		},
		{
			RegistrationID: "r2",
			Club:           falcons,
			Responses: []KeyedResponse{
				{Key: "duty_first", Label: "First Duty Choice", Value: str("kitchen")},
				{Key: "av_request", Label: "Needs AV?", Value: str("none")},
			},
		},
	})

	require.Len(t, out.Spiritual, 2)
	assert.Equal(t, "Alice Smith", out.Spiritual[0].Response)
	assert.Equal(t, "Baptism Candidates", out.Spiritual[0].SourceLabel)

	// the two spellings of kitchen collapse into one assignment
	require.Len(t, out.Duty, 1)
	assert.Equal(t, "Kitchen", out.Duty[0].Assignment)
	require.Len(t, out.Duty[0].Clubs, 2)
	assert.Equal(t, "Downtown Falcons", out.Duty[0].Clubs[0].Name)

	// every av_* answer shows up as a detail line, sorted by club name
	require.Len(t, out.AV, 2)
	assert.Equal(t, falcons, out.AV[0].Club)
	assert.Equal(t, "Needs AV?: none", out.AV[0].RequestedItems)
	assert.Equal(t, "AV Equipment: Projector", out.AV[1].RequestedItems)
}

func TestBuildOperational_TruthyAVWithoutDetails(t *testing.T) {
	out := BuildOperational([]ClubResponses{
		{
			RegistrationID: "r1",
			Club:           ClubRef{Name: "Eastside Eagles", Code: "EAG"},
			Responses: []KeyedResponse{
				{Key: "av_request", Label: "Needs AV?", Value: registration.Value{Kind: registration.ValueStringList, Strings: []string{"   "}}},
			},
		},
	})
	require.Len(t, out.AV, 1)
	assert.Equal(t, "Requested AV support", out.AV[0].RequestedItems)
}

func TestDutyCSV(t *testing.T) {
	csv := DutyCSV([]DutyRow{
		{Assignment: "Kitchen", Clubs: []ClubRef{{Name: "Eastside Eagles", Code: "EAG"}}},
	})
	assert.Equal(t, "Assignment,Club,Club Code\nKitchen,Eastside Eagles,EAG\n", csv)
}
