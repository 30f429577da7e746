// Package store persists event registrations, their attendee selections, and
// their dynamic form responses. Saving a registration replaces its attendees
// and responses wholesale inside one transaction keyed by the unique
// (event, club) row, which makes repeated saves idempotent overwrites.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"cmms/internal/registration"
	id "cmms/pkg/domain"
	"cmms/pkg/platform/sentinel"
)

// SaveParams carries one assembled submission to persist.
type SaveParams struct {
	EventID id.EventID
	ClubID  id.ClubID
	// NewCode is assigned only when the (event, club) row does not exist yet.
	NewCode    string
	Submit     bool
	Now        time.Time
	Submission registration.Submission
}

type memoryKey struct {
	eventID id.EventID
	clubID  id.ClubID
}

// MemoryStore is the in-memory registration store used by unit and handler
// tests.
type MemoryStore struct {
	mu            sync.RWMutex
	registrations map[id.RegistrationID]registration.Registration
	byEventClub   map[memoryKey]id.RegistrationID
	attendees     map[id.RegistrationID][]registration.Attendee
	responses     map[id.RegistrationID][]registration.FormResponse
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		registrations: make(map[id.RegistrationID]registration.Registration),
		byEventClub:   make(map[memoryKey]id.RegistrationID),
		attendees:     make(map[id.RegistrationID][]registration.Attendee),
		responses:     make(map[id.RegistrationID][]registration.FormResponse),
	}
}

// SaveSubmission upserts the (event, club) registration and replaces its
// attendee and response rows with the assembled submission. Check-in stamps
// do not survive the replace; a re-save before the event resets arrival state
// on purpose.
func (s *MemoryStore) SaveSubmission(_ context.Context, params SaveParams) (registration.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey{eventID: params.EventID, clubID: params.ClubID}
	regID, exists := s.byEventClub[key]

	var reg registration.Registration
	if exists {
		reg = s.registrations[regID]
	} else {
		regID = id.RegistrationID(uuid.New())
		reg = registration.Registration{
			ID:               regID,
			EventID:          params.EventID,
			ClubID:           params.ClubID,
			RegistrationCode: params.NewCode,
			Status:           registration.StatusDraft,
			CreatedAt:        params.Now,
		}
		s.byEventClub[key] = regID
	}

	// status and the submission stamp are rewritten on every save; a draft
	// re-save pulls a SUBMITTED registration back to DRAFT
	if params.Submit {
		reg.Status = registration.StatusSubmitted
		submittedAt := params.Now
		reg.SubmittedAt = &submittedAt
	} else {
		reg.Status = registration.StatusDraft
		reg.SubmittedAt = nil
	}
	s.registrations[regID] = reg

	attendees := make([]registration.Attendee, 0, len(params.Submission.AttendeeIDs))
	for _, memberID := range params.Submission.AttendeeIDs {
		attendees = append(attendees, registration.Attendee{
			ID:             id.AttendeeID(uuid.New()),
			RegistrationID: regID,
			RosterMemberID: memberID,
			CreatedAt:      params.Now,
		})
	}
	s.attendees[regID] = attendees

	responses := make([]registration.FormResponse, 0, len(params.Submission.Responses))
	for _, response := range params.Submission.Responses {
		responses = append(responses, registration.FormResponse{
			RegistrationID: regID,
			FieldID:        response.FieldID,
			AttendeeID:     response.AttendeeID,
			Value:          response.Value,
			CreatedAt:      params.Now,
		})
	}
	s.responses[regID] = responses

	return reg, nil
}

func (s *MemoryStore) GetRegistration(_ context.Context, regID id.RegistrationID) (registration.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.registrations[regID]
	if !ok {
		return registration.Registration{}, sentinel.ErrNotFound
	}
	return reg, nil
}

func (s *MemoryStore) GetByEventAndClub(_ context.Context, eventID id.EventID, clubID id.ClubID) (registration.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	regID, ok := s.byEventClub[memoryKey{eventID: eventID, clubID: clubID}]
	if !ok {
		return registration.Registration{}, sentinel.ErrNotFound
	}
	return s.registrations[regID], nil
}

func (s *MemoryStore) ListByEvent(_ context.Context, eventID id.EventID) ([]registration.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var regs []registration.Registration
	for _, reg := range s.registrations {
		if reg.EventID == eventID {
			regs = append(regs, reg)
		}
	}
	return regs, nil
}

func (s *MemoryStore) ListAttendees(_ context.Context, regID id.RegistrationID) ([]registration.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]registration.Attendee{}, s.attendees[regID]...), nil
}

func (s *MemoryStore) ListResponses(_ context.Context, regID id.RegistrationID) ([]registration.FormResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]registration.FormResponse{}, s.responses[regID]...), nil
}

// HasAttendee reports whether the roster member is selected on the club's
// registration for the event. Used by enrollment's advisory path; the
// enrollment transaction re-checks inside its own lock.
func (s *MemoryStore) HasAttendee(_ context.Context, eventID id.EventID, clubID id.ClubID, memberID id.RosterMemberID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	regID, ok := s.byEventClub[memoryKey{eventID: eventID, clubID: clubID}]
	if !ok {
		return false, nil
	}
	for _, attendee := range s.attendees[regID] {
		if attendee.RosterMemberID == memberID {
			return true, nil
		}
	}
	return false, nil
}

// MarkCheckedIn stamps every not-yet-checked-in attendee and moves the
// registration to APPROVED. Returns how many attendees were stamped.
func (s *MemoryStore) MarkCheckedIn(_ context.Context, regID id.RegistrationID, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.registrations[regID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}

	stamped := 0
	attendees := s.attendees[regID]
	for i := range attendees {
		if attendees[i].CheckedInAt == nil {
			at := now
			attendees[i].CheckedInAt = &at
			stamped++
		}
	}
	s.attendees[regID] = attendees

	reg.Status = registration.StatusApproved
	approvedAt := now
	reg.ApprovedAt = &approvedAt
	s.registrations[regID] = reg

	return stamped, nil
}

// SetAttendeeCheckedIn toggles one attendee's arrival stamp, used by teaching
// staff marking class attendance.
func (s *MemoryStore) SetAttendeeCheckedIn(_ context.Context, attendeeID id.AttendeeID, checkedIn bool, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for regID, attendees := range s.attendees {
		for i := range attendees {
			if attendees[i].ID != attendeeID {
				continue
			}
			if checkedIn {
				at := now
				attendees[i].CheckedInAt = &at
			} else {
				attendees[i].CheckedInAt = nil
			}
			s.attendees[regID] = attendees
			return nil
		}
	}
	return sentinel.ErrNotFound
}

// AttendeeForMember finds the attendee row linking a roster member to an
// event registration, across clubs.
func (s *MemoryStore) AttendeeForMember(_ context.Context, eventID id.EventID, memberID id.RosterMemberID) (registration.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for regID, attendees := range s.attendees {
		if s.registrations[regID].EventID != eventID {
			continue
		}
		for _, attendee := range attendees {
			if attendee.RosterMemberID == memberID {
				return attendee, nil
			}
		}
	}
	return registration.Attendee{}, sentinel.ErrNotFound
}
