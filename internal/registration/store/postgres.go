package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cmms/internal/registration"
	id "cmms/pkg/domain"
	"cmms/pkg/platform/sentinel"
)

// PostgresStore persists registrations in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// SaveSubmission upserts the (event, club) registration row, then replaces
// its attendee and response rows with the assembled submission, all in one
// transaction. The unique (event_id, club_id) constraint is what makes the
// save idempotent; the registration code is only written on first insert.
func (s *PostgresStore) SaveSubmission(ctx context.Context, params SaveParams) (registration.Registration, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return registration.Registration{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Every save writes status and submitted_at: a draft re-save pulls a
	// SUBMITTED registration back to DRAFT and clears the submission stamp.
	status := registration.StatusDraft
	var submittedAt *time.Time
	if params.Submit {
		status = registration.StatusSubmitted
		submittedAt = &params.Now
	}

	var reg registration.Registration
	var rawID string
	err = tx.QueryRow(ctx,
		`INSERT INTO event_registrations (id, event_id, club_id, registration_code, status, submitted_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (event_id, club_id) DO UPDATE SET
		     status = EXCLUDED.status,
		     submitted_at = EXCLUDED.submitted_at
		 RETURNING id, registration_code, status, submitted_at, approved_at, created_at`,
		uuid.NewString(), params.EventID.String(), params.ClubID.String(), params.NewCode,
		string(status), submittedAt, params.Now,
	).Scan(&rawID, &reg.RegistrationCode, &reg.Status, &reg.SubmittedAt, &reg.ApprovedAt, &reg.CreatedAt)
	if err != nil {
		return registration.Registration{}, fmt.Errorf("upsert registration: %w", err)
	}
	regID, err := id.ParseRegistrationID(rawID)
	if err != nil {
		return registration.Registration{}, fmt.Errorf("parse registration id: %w", err)
	}
	reg.ID = regID
	reg.EventID = params.EventID
	reg.ClubID = params.ClubID

	if _, err := tx.Exec(ctx,
		`DELETE FROM form_responses WHERE registration_id = $1`, regID.String()); err != nil {
		return registration.Registration{}, fmt.Errorf("clear responses: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM registration_attendees WHERE registration_id = $1`, regID.String()); err != nil {
		return registration.Registration{}, fmt.Errorf("clear attendees: %w", err)
	}

	for _, memberID := range params.Submission.AttendeeIDs {
		_, err = tx.Exec(ctx,
			`INSERT INTO registration_attendees (id, registration_id, roster_member_id, created_at)
			 VALUES ($1, $2, $3, $4)`,
			uuid.NewString(), regID.String(), memberID.String(), params.Now)
		if err != nil {
			return registration.Registration{}, fmt.Errorf("insert attendee: %w", err)
		}
	}

	for _, response := range params.Submission.Responses {
		var attendeeID *string
		if response.AttendeeID != nil {
			v := response.AttendeeID.String()
			attendeeID = &v
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO form_responses (registration_id, field_id, attendee_id, value, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			regID.String(), response.FieldID.String(), attendeeID,
			[]byte(response.Value.JSON()), params.Now)
		if err != nil {
			return registration.Registration{}, fmt.Errorf("insert response: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return registration.Registration{}, fmt.Errorf("commit transaction: %w", err)
	}
	return reg, nil
}

const registrationColumns = `id, event_id, club_id, registration_code, status, submitted_at, approved_at, created_at`

func (s *PostgresStore) GetRegistration(ctx context.Context, regID id.RegistrationID) (registration.Registration, error) {
	return s.scanRegistration(ctx,
		`SELECT `+registrationColumns+` FROM event_registrations WHERE id = $1`, regID.String())
}

func (s *PostgresStore) GetByEventAndClub(ctx context.Context, eventID id.EventID, clubID id.ClubID) (registration.Registration, error) {
	return s.scanRegistration(ctx,
		`SELECT `+registrationColumns+` FROM event_registrations WHERE event_id = $1 AND club_id = $2`,
		eventID.String(), clubID.String())
}

func (s *PostgresStore) scanRegistration(ctx context.Context, query string, args ...any) (registration.Registration, error) {
	reg, err := scanRegistrationRow(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return registration.Registration{}, sentinel.ErrNotFound
		}
		return registration.Registration{}, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

func scanRegistrationRow(row pgx.Row) (registration.Registration, error) {
	var reg registration.Registration
	var rawID, rawEvent, rawClub string
	err := row.Scan(&rawID, &rawEvent, &rawClub, &reg.RegistrationCode,
		&reg.Status, &reg.SubmittedAt, &reg.ApprovedAt, &reg.CreatedAt)
	if err != nil {
		return registration.Registration{}, err
	}
	if parsed, err := id.ParseRegistrationID(rawID); err == nil {
		reg.ID = parsed
	}
	if parsed, err := id.ParseEventID(rawEvent); err == nil {
		reg.EventID = parsed
	}
	if parsed, err := id.ParseClubID(rawClub); err == nil {
		reg.ClubID = parsed
	}
	return reg, nil
}

func (s *PostgresStore) ListByEvent(ctx context.Context, eventID id.EventID) ([]registration.Registration, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+registrationColumns+` FROM event_registrations WHERE event_id = $1 ORDER BY created_at`,
		eventID.String())
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []registration.Registration
	for rows.Next() {
		reg, err := scanRegistrationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func (s *PostgresStore) ListAttendees(ctx context.Context, regID id.RegistrationID) ([]registration.Attendee, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, registration_id, roster_member_id, checked_in_at, created_at
		 FROM registration_attendees WHERE registration_id = $1 ORDER BY created_at`,
		regID.String())
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	var attendees []registration.Attendee
	for rows.Next() {
		var a registration.Attendee
		var rawID, rawReg, rawMember string
		if err := rows.Scan(&rawID, &rawReg, &rawMember, &a.CheckedInAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		if parsed, err := uuid.Parse(rawID); err == nil {
			a.ID = id.AttendeeID(parsed)
		}
		if parsed, err := id.ParseRegistrationID(rawReg); err == nil {
			a.RegistrationID = parsed
		}
		if parsed, err := id.ParseRosterMemberID(rawMember); err == nil {
			a.RosterMemberID = parsed
		}
		attendees = append(attendees, a)
	}
	return attendees, rows.Err()
}

func (s *PostgresStore) ListResponses(ctx context.Context, regID id.RegistrationID) ([]registration.FormResponse, error) {
	rows, err := s.db.Query(ctx,
		`SELECT registration_id, field_id, attendee_id, value, created_at
		 FROM form_responses WHERE registration_id = $1`,
		regID.String())
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var responses []registration.FormResponse
	for rows.Next() {
		var r registration.FormResponse
		var rawReg, rawField string
		var rawAttendee *string
		var rawValue json.RawMessage
		if err := rows.Scan(&rawReg, &rawField, &rawAttendee, &rawValue, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		if parsed, err := id.ParseRegistrationID(rawReg); err == nil {
			r.RegistrationID = parsed
		}
		if parsed, err := id.ParseFieldID(rawField); err == nil {
			r.FieldID = parsed
		}
		if rawAttendee != nil {
			if parsed, err := id.ParseRosterMemberID(*rawAttendee); err == nil {
				r.AttendeeID = &parsed
			}
		}
		value, answered, err := registration.ParseValue(rawValue)
		if err != nil || !answered {
			// A persisted row always held an answer when written; skip
			// anything unreadable rather than failing the whole list.
			continue
		}
		r.Value = value
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

func (s *PostgresStore) HasAttendee(ctx context.Context, eventID id.EventID, clubID id.ClubID, memberID id.RosterMemberID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
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

func (s *PostgresStore) MarkCheckedIn(ctx context.Context, regID id.RegistrationID, now time.Time) (int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE registration_attendees SET checked_in_at = $2
		 WHERE registration_id = $1 AND checked_in_at IS NULL`,
		regID.String(), now)
	if err != nil {
		return 0, fmt.Errorf("stamp attendees: %w", err)
	}

	updated, err := tx.Exec(ctx,
		`UPDATE event_registrations SET status = 'APPROVED', approved_at = $2 WHERE id = $1`,
		regID.String(), now)
	if err != nil {
		return 0, fmt.Errorf("approve registration: %w", err)
	}
	if updated.RowsAffected() == 0 {
		return 0, sentinel.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) SetAttendeeCheckedIn(ctx context.Context, attendeeID id.AttendeeID, checkedIn bool, now time.Time) error {
	var stamp *time.Time
	if checkedIn {
		stamp = &now
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE registration_attendees SET checked_in_at = $2 WHERE id = $1`,
		attendeeID.String(), stamp)
	if err != nil {
		return fmt.Errorf("update attendee check-in: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AttendeeForMember(ctx context.Context, eventID id.EventID, memberID id.RosterMemberID) (registration.Attendee, error) {
	var a registration.Attendee
	var rawID, rawReg, rawMember string
	err := s.db.QueryRow(ctx,
		`SELECT ra.id, ra.registration_id, ra.roster_member_id, ra.checked_in_at, ra.created_at
		 FROM registration_attendees ra
		 JOIN event_registrations er ON er.id = ra.registration_id
		 WHERE er.event_id = $1 AND ra.roster_member_id = $2`,
		eventID.String(), memberID.String(),
	).Scan(&rawID, &rawReg, &rawMember, &a.CheckedInAt, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return registration.Attendee{}, sentinel.ErrNotFound
		}
		return registration.Attendee{}, fmt.Errorf("find attendee: %w", err)
	}
	if parsed, err := uuid.Parse(rawID); err == nil {
		a.ID = id.AttendeeID(parsed)
	}
	if parsed, err := id.ParseRegistrationID(rawReg); err == nil {
		a.RegistrationID = parsed
	}
	if parsed, err := id.ParseRosterMemberID(rawMember); err == nil {
		a.RosterMemberID = parsed
	}
	return a, nil
}
