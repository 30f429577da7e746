// Package store persists class offerings and enrollments. Enroll attempts run
// inside WithOfferingLock, which holds an exclusive lock on the offering row
// for the duration of the callback: the capacity invariant (count then insert
// never oversells) depends on that lock, so it is the store contract, not an
// implementation detail.
//
// The offering row is locked before any check inside the callback runs, and
// locking a missing offering fails with sentinel.ErrNotFound. Callers
// therefore learn that an offering does not exist ahead of any attendee-level
// check, even when the attendee is also unregistered.
package store

import (
	"context"

	"cmms/internal/eligibility"
	"cmms/internal/enrollment"
	id "cmms/pkg/domain"
)

// TxView is the read-and-insert surface available inside one locked enroll
// transaction. Every read observes the same snapshot the insert will commit
// against.
type TxView interface {
	// Offering is the locked offering row.
	Offering() enrollment.Offering

	AttendeeRegistered(ctx context.Context, eventID id.EventID, clubID id.ClubID, memberID id.RosterMemberID) (bool, error)
	EligibilitySnapshot(ctx context.Context, memberID id.RosterMemberID) (eligibility.Attendee, error)
	RequirementsForCatalog(ctx context.Context, catalogID id.CatalogID) ([]eligibility.Requirement, error)
	ExistingEnrollment(ctx context.Context, memberID id.RosterMemberID) (bool, error)
	CountEnrollments(ctx context.Context) (int, error)
	InsertEnrollment(ctx context.Context, enr enrollment.Enrollment) error
}
