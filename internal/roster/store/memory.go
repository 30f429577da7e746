// Package store persists clubs, roster years, members, and completed honors.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"cmms/internal/eligibility"
	"cmms/internal/roster"
	id "cmms/pkg/domain"
	"cmms/pkg/platform/sentinel"
)

// MemoryStore is the in-memory roster store used by unit and handler tests.
type MemoryStore struct {
	mu      sync.RWMutex
	clubs   map[id.ClubID]roster.Club
	years   map[id.RosterYearID]roster.RosterYear
	members map[id.RosterMemberID]roster.Member
	honors  map[id.RosterMemberID][]roster.CompletedHonor
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		clubs:   make(map[id.ClubID]roster.Club),
		years:   make(map[id.RosterYearID]roster.RosterYear),
		members: make(map[id.RosterMemberID]roster.Member),
		honors:  make(map[id.RosterMemberID][]roster.CompletedHonor),
	}
}

func (s *MemoryStore) CreateClub(_ context.Context, club roster.Club) (roster.Club, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.clubs {
		if existing.Code == club.Code {
			return roster.Club{}, sentinel.ErrConflict
		}
	}
	club.ID = id.ClubID(uuid.New())
	club.CreatedAt = time.Now()
	s.clubs[club.ID] = club
	return club, nil
}

func (s *MemoryStore) GetClub(_ context.Context, clubID id.ClubID) (roster.Club, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	club, ok := s.clubs[clubID]
	if !ok {
		return roster.Club{}, sentinel.ErrNotFound
	}
	return club, nil
}

func (s *MemoryStore) CreateYear(_ context.Context, year roster.RosterYear) (roster.RosterYear, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	created, err := s.createYearLocked(year)
	if err != nil {
		return roster.RosterYear{}, err
	}
	return created, nil
}

func (s *MemoryStore) createYearLocked(year roster.RosterYear) (roster.RosterYear, error) {
	for _, existing := range s.years {
		if existing.ClubID == year.ClubID && existing.YearLabel == year.YearLabel {
			return roster.RosterYear{}, sentinel.ErrConflict
		}
	}
	year.ID = id.RosterYearID(uuid.New())
	s.years[year.ID] = year
	return year, nil
}

func (s *MemoryStore) GetYear(_ context.Context, yearID id.RosterYearID) (roster.RosterYear, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	year, ok := s.years[yearID]
	if !ok {
		return roster.RosterYear{}, sentinel.ErrNotFound
	}
	return year, nil
}

// ActiveYear returns the club's single active roster year.
func (s *MemoryStore) ActiveYear(_ context.Context, clubID id.ClubID) (roster.RosterYear, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, year := range s.years {
		if year.ClubID == clubID && year.IsActive {
			return year, nil
		}
	}
	return roster.RosterYear{}, sentinel.ErrNotFound
}

// YearForDate returns the club's roster year whose span contains the given
// date, used as a fallback when no year is flagged active.
func (s *MemoryStore) YearForDate(_ context.Context, clubID id.ClubID, asOf time.Time) (roster.RosterYear, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, year := range s.years {
		if year.ClubID == clubID && !asOf.Before(year.StartsOn) && !asOf.After(year.EndsOn) {
			return year, nil
		}
	}
	return roster.RosterYear{}, sentinel.ErrNotFound
}

// RolloverYear atomically deactivates the club's active years, creates the
// new year, and copies the previous year's active members forward as
// CONTINUING. Returns the created year and the number of members copied.
func (s *MemoryStore) RolloverYear(_ context.Context, previousYearID id.RosterYearID, newYear roster.RosterYear) (roster.RosterYear, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.years[previousYearID]
	if !ok {
		return roster.RosterYear{}, 0, sentinel.ErrNotFound
	}

	for yearID, year := range s.years {
		if year.ClubID == newYear.ClubID && year.IsActive {
			year.IsActive = false
			s.years[yearID] = year
		}
	}

	created, err := s.createYearLocked(newYear)
	if err != nil {
		return roster.RosterYear{}, 0, err
	}

	copied := 0
	for _, member := range s.members {
		if member.RosterYearID != previous.ID || !member.IsActive {
			continue
		}
		carried := member
		carried.ID = id.RosterMemberID(uuid.New())
		carried.RosterYearID = created.ID
		carried.RolloverStatus = roster.RolloverContinuing
		carried.AgeAtStart = roster.AgeAt(member.DateOfBirth, created.StartsOn)
		carried.CreatedAt = time.Now()
		s.members[carried.ID] = carried
		copied++
	}

	return created, copied, nil
}

func (s *MemoryStore) SaveMember(_ context.Context, member roster.Member) (roster.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if member.ID.IsNil() {
		member.ID = id.RosterMemberID(uuid.New())
		member.CreatedAt = time.Now()
	} else if _, ok := s.members[member.ID]; !ok {
		return roster.Member{}, sentinel.ErrNotFound
	}
	s.members[member.ID] = member
	return member, nil
}

func (s *MemoryStore) GetMember(_ context.Context, memberID id.RosterMemberID) (roster.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	member, ok := s.members[memberID]
	if !ok {
		return roster.Member{}, sentinel.ErrNotFound
	}
	return member, nil
}

func (s *MemoryStore) ListActiveMembers(_ context.Context, yearID id.RosterYearID) ([]roster.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var members []roster.Member
	for _, member := range s.members {
		if member.RosterYearID == yearID && member.IsActive {
			members = append(members, member)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].LastName != members[j].LastName {
			return members[i].LastName < members[j].LastName
		}
		return members[i].FirstName < members[j].FirstName
	})
	return members, nil
}

// AddCompletedHonor records a sign-off. Re-recording the same honor code for
// the same member is a no-op.
func (s *MemoryStore) AddCompletedHonor(_ context.Context, honor roster.CompletedHonor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	normalized := eligibility.NormalizeHonorCode(honor.HonorCode)
	for _, existing := range s.honors[honor.RosterMemberID] {
		if eligibility.NormalizeHonorCode(existing.HonorCode) == normalized {
			return nil
		}
	}
	s.honors[honor.RosterMemberID] = append(s.honors[honor.RosterMemberID], honor)
	return nil
}

func (s *MemoryStore) CompletedHonorCodes(_ context.Context, memberID id.RosterMemberID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	honors := s.honors[memberID]
	codes := make([]string, 0, len(honors))
	for _, honor := range honors {
		codes = append(codes, honor.HonorCode)
	}
	return codes, nil
}

// EligibilitySnapshot assembles the member attributes the requirement
// evaluator reads.
func (s *MemoryStore) EligibilitySnapshot(ctx context.Context, memberID id.RosterMemberID) (eligibility.Attendee, error) {
	member, err := s.GetMember(ctx, memberID)
	if err != nil {
		return eligibility.Attendee{}, err
	}
	codes, err := s.CompletedHonorCodes(ctx, memberID)
	if err != nil {
		return eligibility.Attendee{}, err
	}
	return eligibility.Attendee{
		AgeAtStart:          member.AgeAtStart,
		MemberRole:          member.MemberRole,
		MasterGuide:         member.MasterGuide,
		CompletedHonorCodes: codes,
	}, nil
}
