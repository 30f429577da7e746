package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cmms/internal/eligibility"
	"cmms/internal/enrollment"
	"cmms/internal/roster"
	id "cmms/pkg/domain"
	"cmms/pkg/platform/sentinel"
)

// PostgresStore persists offerings and enrollments in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateOffering(ctx context.Context, offering enrollment.Offering) (enrollment.Offering, error) {
	offering.ID = id.OfferingID(uuid.New())
	var instructor *string
	if offering.InstructorUserID != nil {
		v := offering.InstructorUserID.String()
		instructor = &v
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO class_offerings (id, event_id, catalog_id, capacity, day_index, starts_at, ends_at, location, instructor_user_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		offering.ID.String(), offering.EventID.String(), offering.CatalogID.String(),
		offering.Capacity, offering.DayIndex, offering.StartsAt, offering.EndsAt,
		offering.Location, instructor)
	if err != nil {
		return enrollment.Offering{}, fmt.Errorf("insert offering: %w", err)
	}
	return offering, nil
}

const offeringColumns = `id, event_id, catalog_id, capacity, day_index, starts_at, ends_at, location, instructor_user_id`

func (s *PostgresStore) GetOffering(ctx context.Context, offeringID id.OfferingID) (enrollment.Offering, error) {
	offering, err := scanOffering(s.db.QueryRow(ctx,
		`SELECT `+offeringColumns+` FROM class_offerings WHERE id = $1`, offeringID.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return enrollment.Offering{}, sentinel.ErrNotFound
		}
		return enrollment.Offering{}, fmt.Errorf("get offering: %w", err)
	}
	return offering, nil
}

func (s *PostgresStore) ListOfferingsByEvent(ctx context.Context, eventID id.EventID) ([]enrollment.Offering, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+offeringColumns+` FROM class_offerings WHERE event_id = $1 ORDER BY day_index, starts_at`,
		eventID.String())
	if err != nil {
		return nil, fmt.Errorf("list offerings: %w", err)
	}
	defer rows.Close()

	var offerings []enrollment.Offering
	for rows.Next() {
		offering, err := scanOffering(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offering: %w", err)
		}
		offerings = append(offerings, offering)
	}
	return offerings, rows.Err()
}

func scanOffering(row pgx.Row) (enrollment.Offering, error) {
	var o enrollment.Offering
	var rawID, rawEvent, rawCatalog string
	var rawInstructor *string
	err := row.Scan(&rawID, &rawEvent, &rawCatalog, &o.Capacity, &o.DayIndex,
		&o.StartsAt, &o.EndsAt, &o.Location, &rawInstructor)
	if err != nil {
		return enrollment.Offering{}, err
	}
	if parsed, err := id.ParseOfferingID(rawID); err == nil {
		o.ID = parsed
	}
	if parsed, err := id.ParseEventID(rawEvent); err == nil {
		o.EventID = parsed
	}
	if parsed, err := id.ParseCatalogID(rawCatalog); err == nil {
		o.CatalogID = parsed
	}
	if rawInstructor != nil {
		if parsed, err := id.ParseUserID(*rawInstructor); err == nil {
			o.InstructorUserID = &parsed
		}
	}
	return o, nil
}

func (s *PostgresStore) ListEnrollments(ctx context.Context, offeringID id.OfferingID) ([]enrollment.Enrollment, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, offering_id, roster_member_id, enrolled_at
		 FROM class_enrollments WHERE offering_id = $1 ORDER BY enrolled_at`,
		offeringID.String())
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []enrollment.Enrollment
	for rows.Next() {
		var e enrollment.Enrollment
		var rawID, rawOffering, rawMember string
		if err := rows.Scan(&rawID, &rawOffering, &rawMember, &e.EnrolledAt); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		if parsed, err := uuid.Parse(rawID); err == nil {
			e.ID = id.EnrollmentID(parsed)
		}
		if parsed, err := id.ParseOfferingID(rawOffering); err == nil {
			e.OfferingID = parsed
		}
		if parsed, err := id.ParseRosterMemberID(rawMember); err == nil {
			e.RosterMemberID = parsed
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

// WithOfferingLock opens a transaction, takes an exclusive row lock on the
// offering with SELECT ... FOR UPDATE, then runs fn against that transaction.
// A concurrent enroll attempt for the same offering blocks on the lock until
// this transaction commits or rolls back, so fn's count-then-insert can never
// observe a stale seat count.
func (s *PostgresStore) WithOfferingLock(ctx context.Context, offeringID id.OfferingID, fn func(view TxView) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	offering, err := scanOffering(tx.QueryRow(ctx,
		`SELECT `+offeringColumns+` FROM class_offerings WHERE id = $1 FOR UPDATE`,
		offeringID.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("lock offering: %w", err)
	}

	if err := fn(&pgTxView{tx: tx, offering: offering}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type pgTxView struct {
	tx       pgx.Tx
	offering enrollment.Offering
}

func (v *pgTxView) Offering() enrollment.Offering {
	return v.offering
}

func (v *pgTxView) AttendeeRegistered(ctx context.Context, eventID id.EventID, clubID id.ClubID, memberID id.RosterMemberID) (bool, error) {
	var exists bool
	err := v.tx.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM registration_attendees ra
		   JOIN event_registrations er ON er.id = ra.registration_id
		   WHERE er.event_id = $1 AND er.club_id = $2 AND ra.roster_member_id = $3)`,
		eventID.String(), clubID.String(), memberID.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check attendee: %w", err)
	}
	return exists, nil
}

func (v *pgTxView) EligibilitySnapshot(ctx context.Context, memberID id.RosterMemberID) (eligibility.Attendee, error) {
	var attendee eligibility.Attendee
	var role string
	err := v.tx.QueryRow(ctx,
		`SELECT age_at_start, member_role, master_guide FROM roster_members WHERE id = $1`,
		memberID.String(),
	).Scan(&attendee.AgeAtStart, &role, &attendee.MasterGuide)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return eligibility.Attendee{}, sentinel.ErrNotFound
		}
		return eligibility.Attendee{}, fmt.Errorf("load member snapshot: %w", err)
	}
	attendee.MemberRole = roster.MemberRole(role)

	rows, err := v.tx.Query(ctx,
		`SELECT honor_code FROM member_requirements WHERE roster_member_id = $1`, memberID.String())
	if err != nil {
		return eligibility.Attendee{}, fmt.Errorf("load completed honors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return eligibility.Attendee{}, fmt.Errorf("scan honor code: %w", err)
		}
		attendee.CompletedHonorCodes = append(attendee.CompletedHonorCodes, code)
	}
	return attendee, rows.Err()
}

func (v *pgTxView) RequirementsForCatalog(ctx context.Context, catalogID id.CatalogID) ([]eligibility.Requirement, error) {
	rows, err := v.tx.Query(ctx,
		`SELECT kind, min_age, max_age, required_member_role, required_honor_code, required_master_guide
		 FROM class_requirements WHERE catalog_id = $1 ORDER BY created_at`,
		catalogID.String())
	if err != nil {
		return nil, fmt.Errorf("load requirements: %w", err)
	}
	defer rows.Close()

	var requirements []eligibility.Requirement
	for rows.Next() {
		var req eligibility.Requirement
		var rawRole *string
		if err := rows.Scan(&req.Kind, &req.MinAge, &req.MaxAge, &rawRole,
			&req.RequiredHonorCode, &req.RequiredMasterGuide); err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		if rawRole != nil {
			role := roster.MemberRole(*rawRole)
			req.RequiredMemberRole = &role
		}
		requirements = append(requirements, req)
	}
	return requirements, rows.Err()
}

func (v *pgTxView) ExistingEnrollment(ctx context.Context, memberID id.RosterMemberID) (bool, error) {
	var exists bool
	err := v.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM class_enrollments WHERE offering_id = $1 AND roster_member_id = $2)`,
		v.offering.ID.String(), memberID.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}

func (v *pgTxView) CountEnrollments(ctx context.Context) (int, error) {
	var count int
	err := v.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM class_enrollments WHERE offering_id = $1`,
		v.offering.ID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

func (v *pgTxView) InsertEnrollment(ctx context.Context, enr enrollment.Enrollment) error {
	if enr.ID.IsNil() {
		enr.ID = id.EnrollmentID(uuid.New())
	}
	if enr.EnrolledAt.IsZero() {
		enr.EnrolledAt = time.Now()
	}
	_, err := v.tx.Exec(ctx,
		`INSERT INTO class_enrollments (id, offering_id, roster_member_id, enrolled_at)
		 VALUES ($1, $2, $3, $4)`,
		enr.ID.String(), enr.OfferingID.String(), enr.RosterMemberID.String(), enr.EnrolledAt)
	if err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}
