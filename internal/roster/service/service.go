// Package service manages club rosters: clubs, roster years, members, and the
// yearly rollover that carries active members into the next year.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"cmms/internal/eligibility"
	"cmms/internal/roster"
	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
	"cmms/pkg/platform/sentinel"
)

type RosterStore interface {
	CreateClub(ctx context.Context, club roster.Club) (roster.Club, error)
	GetClub(ctx context.Context, clubID id.ClubID) (roster.Club, error)

	CreateYear(ctx context.Context, year roster.RosterYear) (roster.RosterYear, error)
	GetYear(ctx context.Context, yearID id.RosterYearID) (roster.RosterYear, error)
	ActiveYear(ctx context.Context, clubID id.ClubID) (roster.RosterYear, error)
	YearForDate(ctx context.Context, clubID id.ClubID, asOf time.Time) (roster.RosterYear, error)
	RolloverYear(ctx context.Context, previousYearID id.RosterYearID, newYear roster.RosterYear) (roster.RosterYear, int, error)

	SaveMember(ctx context.Context, member roster.Member) (roster.Member, error)
	GetMember(ctx context.Context, memberID id.RosterMemberID) (roster.Member, error)
	ListActiveMembers(ctx context.Context, yearID id.RosterYearID) ([]roster.Member, error)

	AddCompletedHonor(ctx context.Context, honor roster.CompletedHonor) error
	EligibilitySnapshot(ctx context.Context, memberID id.RosterMemberID) (eligibility.Attendee, error)
}

// Service orchestrates roster management.
type Service struct {
	store  RosterStore
	logger *slog.Logger
	now    func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source. Used by tests to pin "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New constructs a Service.
func New(store RosterStore, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateClub registers a new club. Codes are uppercased and unique.
func (s *Service) CreateClub(ctx context.Context, name, code string) (roster.Club, error) {
	name = strings.TrimSpace(name)
	code = strings.ToUpper(strings.TrimSpace(code))
	if name == "" || code == "" {
		return roster.Club{}, dErrors.New(dErrors.CodeInvalidInput, "Club name and code are required.")
	}

	club, err := s.store.CreateClub(ctx, roster.Club{Name: name, Code: code})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return roster.Club{}, dErrors.New(dErrors.CodeConflict, "A club with this code already exists.")
		}
		return roster.Club{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create club")
	}
	return club, nil
}

// GetClub returns one club.
func (s *Service) GetClub(ctx context.Context, clubID id.ClubID) (roster.Club, error) {
	club, err := s.store.GetClub(ctx, clubID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return roster.Club{}, dErrors.New(dErrors.CodeNotFound, "Club not found.")
		}
		return roster.Club{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load club")
	}
	return club, nil
}

// CreateYear opens a roster year for the club. The first year a club creates
// becomes active; later years are created inactive and activated by rollover.
func (s *Service) CreateYear(ctx context.Context, clubID id.ClubID, yearLabel string) (roster.RosterYear, error) {
	span, err := yearSpan(yearLabel)
	if err != nil {
		return roster.RosterYear{}, err
	}

	active := false
	if _, err := s.store.ActiveYear(ctx, clubID); errors.Is(err, sentinel.ErrNotFound) {
		active = true
	}

	year, err := s.store.CreateYear(ctx, roster.RosterYear{
		ClubID:    clubID,
		YearLabel: yearLabel,
		StartsOn:  span.start,
		EndsOn:    span.end,
		IsActive:  active,
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return roster.RosterYear{}, dErrors.New(dErrors.CodeConflict, "A roster year with this label already exists.")
		}
		return roster.RosterYear{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create roster year")
	}
	return year, nil
}

// RolloverResult reports what the yearly rollover produced.
type RolloverResult struct {
	Year          roster.RosterYear
	MembersCopied int
}

// ExecuteYearlyRollover closes out the previous year and opens the next one:
// active years are deactivated, the new year spans the label year, and every
// active member of the previous year is copied forward as CONTINUING with a
// recomputed age. The whole operation is one transaction.
func (s *Service) ExecuteYearlyRollover(ctx context.Context, clubID id.ClubID, previousYearID id.RosterYearID, yearLabel string) (RolloverResult, error) {
	previous, err := s.store.GetYear(ctx, previousYearID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return RolloverResult{}, dErrors.New(dErrors.CodeNotFound, "Previous roster year not found.")
		}
		return RolloverResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load previous roster year")
	}
	if previous.ClubID != clubID {
		return RolloverResult{}, dErrors.New(dErrors.CodeForbidden, "You do not have permission to perform this action.")
	}

	span, err := yearSpan(yearLabel)
	if err != nil {
		return RolloverResult{}, err
	}

	year, copied, err := s.store.RolloverYear(ctx, previousYearID, roster.RosterYear{
		ClubID:           clubID,
		YearLabel:        yearLabel,
		StartsOn:         span.start,
		EndsOn:           span.end,
		IsActive:         true,
		CopiedFromYearID: &previousYearID,
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return RolloverResult{}, dErrors.New(dErrors.CodeConflict, "A roster year with this label already exists.")
		}
		return RolloverResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to roll over roster year")
	}

	s.logger.InfoContext(ctx, "roster year rolled over",
		"club_id", clubID,
		"previous_year", previous.YearLabel,
		"new_year", yearLabel,
		"members_copied", copied,
	)
	return RolloverResult{Year: year, MembersCopied: copied}, nil
}

// CurrentYear resolves the club's roster year as of the injected clock:
// the active year when one is flagged, otherwise the year whose span contains
// today.
func (s *Service) CurrentYear(ctx context.Context, clubID id.ClubID) (roster.RosterYear, error) {
	year, err := s.store.ActiveYear(ctx, clubID)
	if err == nil {
		return year, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return roster.RosterYear{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve roster year")
	}

	year, err = s.store.YearForDate(ctx, clubID, s.now())
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return roster.RosterYear{}, dErrors.New(dErrors.CodeNotFound, "No active roster year for this club.")
		}
		return roster.RosterYear{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve roster year")
	}
	return year, nil
}

// SaveMemberInput carries the editable member attributes.
type SaveMemberInput struct {
	MemberID              id.RosterMemberID // nil for create
	RosterYearID          id.RosterYearID
	FirstName             string
	LastName              string
	DateOfBirth           *time.Time
	MemberRole            roster.MemberRole
	MedicalFlags          *string
	DietaryRestrictions   *string
	EmergencyContactName  *string
	EmergencyContactPhone *string
	IsFirstTime           bool
	IsMedicalPersonnel    bool
	MasterGuide           bool
	IsActive              bool
}

// SaveMember creates or updates a roster member. AgeAtStart is recomputed
// from the birth date and the roster year start on every save so eligibility
// always reads a consistent precomputed age.
func (s *Service) SaveMember(ctx context.Context, input SaveMemberInput) (roster.Member, error) {
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	if firstName == "" || lastName == "" {
		return roster.Member{}, dErrors.New(dErrors.CodeInvalidInput, "Member first and last name are required.")
	}
	if !input.MemberRole.IsValid() {
		return roster.Member{}, dErrors.New(dErrors.CodeInvalidInput, "Member role must be one of PATHFINDER, COUNSELOR, DIRECTOR, STAFF.")
	}

	year, err := s.store.GetYear(ctx, input.RosterYearID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return roster.Member{}, dErrors.New(dErrors.CodeNotFound, "Roster year not found.")
		}
		return roster.Member{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load roster year")
	}

	member := roster.Member{
		ID:                    input.MemberID,
		RosterYearID:          input.RosterYearID,
		FirstName:             firstName,
		LastName:              lastName,
		DateOfBirth:           input.DateOfBirth,
		AgeAtStart:            roster.AgeAt(input.DateOfBirth, year.StartsOn),
		MemberRole:            input.MemberRole,
		MedicalFlags:          input.MedicalFlags,
		DietaryRestrictions:   input.DietaryRestrictions,
		EmergencyContactName:  input.EmergencyContactName,
		EmergencyContactPhone: input.EmergencyContactPhone,
		IsFirstTime:           input.IsFirstTime,
		IsMedicalPersonnel:    input.IsMedicalPersonnel,
		MasterGuide:           input.MasterGuide,
		IsActive:              input.IsActive,
		RolloverStatus:        roster.RolloverNew,
	}
	if !input.MemberID.IsNil() {
		existing, err := s.store.GetMember(ctx, input.MemberID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return roster.Member{}, dErrors.New(dErrors.CodeNotFound, "Roster member not found.")
			}
			return roster.Member{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load roster member")
		}
		member.RolloverStatus = existing.RolloverStatus
		member.CreatedAt = existing.CreatedAt
	}

	saved, err := s.store.SaveMember(ctx, member)
	if err != nil {
		return roster.Member{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save roster member")
	}
	return saved, nil
}

// ListActiveMembers returns the club's current active member list.
func (s *Service) ListActiveMembers(ctx context.Context, yearID id.RosterYearID) ([]roster.Member, error) {
	members, err := s.store.ListActiveMembers(ctx, yearID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list roster members")
	}
	return members, nil
}

// ActiveMemberIDs returns the set of member ids eligible to be selected as
// attendees on a club's registration.
func (s *Service) ActiveMemberIDs(ctx context.Context, clubID id.ClubID) (map[id.RosterMemberID]struct{}, error) {
	year, err := s.CurrentYear(ctx, clubID)
	if err != nil {
		return nil, err
	}
	members, err := s.ListActiveMembers(ctx, year.ID)
	if err != nil {
		return nil, err
	}
	ids := make(map[id.RosterMemberID]struct{}, len(members))
	for _, member := range members {
		ids[member.ID] = struct{}{}
	}
	return ids, nil
}

type span struct {
	start time.Time
	end   time.Time
}

// yearSpan derives the Jan 1 to Dec 31 span from a 4-digit year label.
func yearSpan(label string) (span, error) {
	year, err := strconv.Atoi(strings.TrimSpace(label))
	if err != nil || year < 1900 || year > 9999 {
		return span{}, dErrors.New(dErrors.CodeInvalidInput, "Roster year label must be a 4-digit year.")
	}
	return span{
		start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		end:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	}, nil
}
