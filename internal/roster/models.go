// Package roster holds club roster years and their members. A roster year is
// the annual scope for a club's active member list; rollover copies active
// members into the next year.
package roster

import (
	"strings"
	"time"

	id "cmms/pkg/domain"
)

// MemberRole classifies a roster member within their club.
type MemberRole string

const (
	RolePathfinder MemberRole = "PATHFINDER"
	RoleCounselor  MemberRole = "COUNSELOR"
	RoleDirector   MemberRole = "DIRECTOR"
	RoleStaff      MemberRole = "STAFF"
)

func (r MemberRole) IsValid() bool {
	switch r {
	case RolePathfinder, RoleCounselor, RoleDirector, RoleStaff:
		return true
	}
	return false
}

// DisplayLabel renders the role for user-facing text ("CLUB_DIRECTOR" would
// read as "CLUB DIRECTOR").
func (r MemberRole) DisplayLabel() string {
	return strings.ReplaceAll(string(r), "_", " ")
}

// RolloverStatus records how a member entered the current roster year.
type RolloverStatus string

const (
	RolloverNew        RolloverStatus = "NEW"
	RolloverContinuing RolloverStatus = "CONTINUING"
)

// Club is a participating club. Code is the short conference-assigned
// identifier printed on registration paperwork.
type Club struct {
	ID        id.ClubID
	Name      string
	Code      string
	CreatedAt time.Time
}

// RosterYear is one club's member list for a single year. At most one year per
// club is active at a time; (clubID, yearLabel) is unique in the store.
type RosterYear struct {
	ID               id.RosterYearID
	ClubID           id.ClubID
	YearLabel        string
	StartsOn         time.Time
	EndsOn           time.Time
	IsActive         bool
	CopiedFromYearID *id.RosterYearID
}

// Member is a single person on a club's roster for one year. AgeAtStart is
// precomputed when the roster year opens and may be unknown (nil).
type Member struct {
	ID                    id.RosterMemberID
	RosterYearID          id.RosterYearID
	FirstName             string
	LastName              string
	DateOfBirth           *time.Time
	AgeAtStart            *int
	MemberRole            MemberRole
	MedicalFlags          *string
	DietaryRestrictions   *string
	EmergencyContactName  *string
	EmergencyContactPhone *string
	IsFirstTime           bool
	IsMedicalPersonnel    bool
	MasterGuide           bool
	IsActive              bool
	RolloverStatus        RolloverStatus
	CreatedAt             time.Time
}

func (m Member) FullName() string {
	return m.FirstName + " " + m.LastName
}

// AgeAt computes whole years of age at a reference date, nil when the birth
// date was never recorded. Ages are precomputed per roster year so eligibility
// checks never drift as the calendar advances mid-year.
func AgeAt(dateOfBirth *time.Time, asOf time.Time) *int {
	if dateOfBirth == nil {
		return nil
	}
	years := asOf.Year() - dateOfBirth.Year()
	anniversary := time.Date(asOf.Year(), dateOfBirth.Month(), dateOfBirth.Day(), 0, 0, 0, 0, time.UTC)
	if asOf.Before(anniversary) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return &years
}

// CompletedHonor records an honor requirement signed off for a member.
// Honor codes are matched case- and whitespace-insensitively.
type CompletedHonor struct {
	RosterMemberID id.RosterMemberID
	HonorCode      string
	CompletedAt    time.Time
	VerifiedBy     string
	Notes          string
	SignedOffBy    id.UserID
}
