package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"cmms/internal/eligibility"
	"cmms/internal/enrollment"
	id "cmms/pkg/domain"
	"cmms/pkg/platform/sentinel"
)

// RosterReader is the slice of the roster store the enroll transaction reads.
type RosterReader interface {
	EligibilitySnapshot(ctx context.Context, memberID id.RosterMemberID) (eligibility.Attendee, error)
}

// RegistrationReader checks attendee membership on the club's registration.
type RegistrationReader interface {
	HasAttendee(ctx context.Context, eventID id.EventID, clubID id.ClubID, memberID id.RosterMemberID) (bool, error)
}

// CatalogReader loads a catalog item's requirement rows.
type CatalogReader interface {
	Requirements(ctx context.Context, catalogID id.CatalogID) ([]eligibility.Requirement, error)
}

// MemoryStore is the in-memory enrollment store used by unit and handler
// tests. One mutex serializes enroll transactions, giving the same
// count-then-insert safety the postgres store gets from its row lock.
type MemoryStore struct {
	mu          sync.Mutex
	offerings   map[id.OfferingID]enrollment.Offering
	enrollments map[id.OfferingID][]enrollment.Enrollment

	rosters       RosterReader
	registrations RegistrationReader
	catalogs      CatalogReader
}

func NewMemory(rosters RosterReader, registrations RegistrationReader, catalogs CatalogReader) *MemoryStore {
	return &MemoryStore{
		offerings:     make(map[id.OfferingID]enrollment.Offering),
		enrollments:   make(map[id.OfferingID][]enrollment.Enrollment),
		rosters:       rosters,
		registrations: registrations,
		catalogs:      catalogs,
	}
}

func (s *MemoryStore) CreateOffering(_ context.Context, offering enrollment.Offering) (enrollment.Offering, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	offering.ID = id.OfferingID(uuid.New())
	s.offerings[offering.ID] = offering
	return offering, nil
}

func (s *MemoryStore) GetOffering(_ context.Context, offeringID id.OfferingID) (enrollment.Offering, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	offering, ok := s.offerings[offeringID]
	if !ok {
		return enrollment.Offering{}, sentinel.ErrNotFound
	}
	return offering, nil
}

func (s *MemoryStore) ListOfferingsByEvent(_ context.Context, eventID id.EventID) ([]enrollment.Offering, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var offerings []enrollment.Offering
	for _, offering := range s.offerings {
		if offering.EventID == eventID {
			offerings = append(offerings, offering)
		}
	}
	sort.Slice(offerings, func(i, j int) bool {
		if offerings[i].DayIndex != offerings[j].DayIndex {
			return offerings[i].DayIndex < offerings[j].DayIndex
		}
		return offerings[i].StartsAt.Before(offerings[j].StartsAt)
	})
	return offerings, nil
}

func (s *MemoryStore) ListEnrollments(_ context.Context, offeringID id.OfferingID) ([]enrollment.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]enrollment.Enrollment{}, s.enrollments[offeringID]...), nil
}

// WithOfferingLock runs fn while holding the store mutex, so concurrent
// enroll attempts for the same offering observe each other's inserts.
func (s *MemoryStore) WithOfferingLock(_ context.Context, offeringID id.OfferingID, fn func(view TxView) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	offering, ok := s.offerings[offeringID]
	if !ok {
		return sentinel.ErrNotFound
	}
	return fn(&memoryTxView{store: s, offering: offering})
}

type memoryTxView struct {
	store    *MemoryStore
	offering enrollment.Offering
}

func (v *memoryTxView) Offering() enrollment.Offering {
	return v.offering
}

func (v *memoryTxView) AttendeeRegistered(ctx context.Context, eventID id.EventID, clubID id.ClubID, memberID id.RosterMemberID) (bool, error) {
	return v.store.registrations.HasAttendee(ctx, eventID, clubID, memberID)
}

func (v *memoryTxView) EligibilitySnapshot(ctx context.Context, memberID id.RosterMemberID) (eligibility.Attendee, error) {
	return v.store.rosters.EligibilitySnapshot(ctx, memberID)
}

func (v *memoryTxView) RequirementsForCatalog(ctx context.Context, catalogID id.CatalogID) ([]eligibility.Requirement, error) {
	return v.store.catalogs.Requirements(ctx, catalogID)
}

func (v *memoryTxView) ExistingEnrollment(_ context.Context, memberID id.RosterMemberID) (bool, error) {
	for _, enr := range v.store.enrollments[v.offering.ID] {
		if enr.RosterMemberID == memberID {
			return true, nil
		}
	}
	return false, nil
}

func (v *memoryTxView) CountEnrollments(_ context.Context) (int, error) {
	return len(v.store.enrollments[v.offering.ID]), nil
}

func (v *memoryTxView) InsertEnrollment(_ context.Context, enr enrollment.Enrollment) error {
	if enr.ID.IsNil() {
		enr.ID = id.EnrollmentID(uuid.New())
	}
	if enr.EnrolledAt.IsZero() {
		enr.EnrolledAt = time.Now()
	}
	v.store.enrollments[v.offering.ID] = append(v.store.enrollments[v.offering.ID], enr)
	return nil
}
