package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cmms/internal/eligibility"
	"cmms/internal/roster"
	id "cmms/pkg/domain"
	"cmms/pkg/platform/sentinel"
)

// PostgresStore persists rosters in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (s *PostgresStore) CreateClub(ctx context.Context, club roster.Club) (roster.Club, error) {
	club.ID = id.ClubID(uuid.New())
	club.CreatedAt = time.Now()
	_, err := s.db.Exec(ctx,
		`INSERT INTO clubs (id, name, code, created_at) VALUES ($1, $2, $3, $4)`,
		club.ID.String(), club.Name, club.Code, club.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return roster.Club{}, sentinel.ErrConflict
		}
		return roster.Club{}, fmt.Errorf("insert club: %w", err)
	}
	return club, nil
}

func (s *PostgresStore) GetClub(ctx context.Context, clubID id.ClubID) (roster.Club, error) {
	var club roster.Club
	var rawID string
	err := s.db.QueryRow(ctx,
		`SELECT id, name, code, created_at FROM clubs WHERE id = $1`, clubID.String(),
	).Scan(&rawID, &club.Name, &club.Code, &club.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return roster.Club{}, sentinel.ErrNotFound
		}
		return roster.Club{}, fmt.Errorf("get club: %w", err)
	}
	club.ID = clubID
	return club, nil
}

func (s *PostgresStore) CreateYear(ctx context.Context, year roster.RosterYear) (roster.RosterYear, error) {
	year.ID = id.RosterYearID(uuid.New())
	err := s.insertYear(ctx, s.db, year)
	if err != nil {
		return roster.RosterYear{}, err
	}
	return year, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *PostgresStore) insertYear(ctx context.Context, db execer, year roster.RosterYear) error {
	var copiedFrom *string
	if year.CopiedFromYearID != nil {
		v := year.CopiedFromYearID.String()
		copiedFrom = &v
	}
	_, err := db.Exec(ctx,
		`INSERT INTO roster_years (id, club_id, year_label, starts_on, ends_on, is_active, copied_from_year_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		year.ID.String(), year.ClubID.String(), year.YearLabel,
		year.StartsOn, year.EndsOn, year.IsActive, copiedFrom)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert roster year: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetYear(ctx context.Context, yearID id.RosterYearID) (roster.RosterYear, error) {
	return s.scanYear(ctx,
		`SELECT id, club_id, year_label, starts_on, ends_on, is_active, copied_from_year_id
		 FROM roster_years WHERE id = $1`, yearID.String())
}

func (s *PostgresStore) ActiveYear(ctx context.Context, clubID id.ClubID) (roster.RosterYear, error) {
	return s.scanYear(ctx,
		`SELECT id, club_id, year_label, starts_on, ends_on, is_active, copied_from_year_id
		 FROM roster_years WHERE club_id = $1 AND is_active LIMIT 1`, clubID.String())
}

func (s *PostgresStore) scanYear(ctx context.Context, query string, args ...any) (roster.RosterYear, error) {
	var year roster.RosterYear
	var rawID, rawClub string
	var rawCopied *string
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&rawID, &rawClub, &year.YearLabel, &year.StartsOn, &year.EndsOn, &year.IsActive, &rawCopied)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return roster.RosterYear{}, sentinel.ErrNotFound
		}
		return roster.RosterYear{}, fmt.Errorf("get roster year: %w", err)
	}
	if parsed, err := id.ParseRosterYearID(rawID); err == nil {
		year.ID = parsed
	}
	if parsed, err := id.ParseClubID(rawClub); err == nil {
		year.ClubID = parsed
	}
	if rawCopied != nil {
		if parsed, err := id.ParseRosterYearID(*rawCopied); err == nil {
			year.CopiedFromYearID = &parsed
		}
	}
	return year, nil
}

func (s *PostgresStore) YearForDate(ctx context.Context, clubID id.ClubID, asOf time.Time) (roster.RosterYear, error) {
	return s.scanYear(ctx,
		`SELECT id, club_id, year_label, starts_on, ends_on, is_active, copied_from_year_id
		 FROM roster_years WHERE club_id = $1 AND starts_on <= $2 AND ends_on >= $2
		 ORDER BY starts_on DESC LIMIT 1`, clubID.String(), asOf)
}

// RolloverYear deactivates the club's active years, creates the new year, and
// copies the previous year's active members forward, all in one transaction.
func (s *PostgresStore) RolloverYear(ctx context.Context, previousYearID id.RosterYearID, newYear roster.RosterYear) (roster.RosterYear, int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return roster.RosterYear{}, 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM roster_years WHERE id = $1)`, previousYearID.String(),
	).Scan(&exists)
	if err != nil {
		return roster.RosterYear{}, 0, fmt.Errorf("check previous year: %w", err)
	}
	if !exists {
		return roster.RosterYear{}, 0, sentinel.ErrNotFound
	}

	_, err = tx.Exec(ctx,
		`UPDATE roster_years SET is_active = FALSE WHERE club_id = $1 AND is_active`,
		newYear.ClubID.String())
	if err != nil {
		return roster.RosterYear{}, 0, fmt.Errorf("deactivate years: %w", err)
	}

	newYear.ID = id.RosterYearID(uuid.New())
	if err := s.insertYear(ctx, tx, newYear); err != nil {
		return roster.RosterYear{}, 0, err
	}

	members, err := s.queryMembers(ctx, tx,
		`SELECT id, roster_year_id, first_name, last_name, date_of_birth, age_at_start, member_role,
		        medical_flags, dietary_restrictions, emergency_contact_name, emergency_contact_phone,
		        is_first_time, is_medical_personnel, master_guide, is_active, rollover_status, created_at
		 FROM roster_members WHERE roster_year_id = $1 AND is_active`,
		previousYearID.String())
	if err != nil {
		return roster.RosterYear{}, 0, err
	}

	copied := 0
	for _, member := range members {
		carried := member
		carried.ID = id.RosterMemberID(uuid.New())
		carried.RosterYearID = newYear.ID
		carried.RolloverStatus = roster.RolloverContinuing
		carried.AgeAtStart = roster.AgeAt(member.DateOfBirth, newYear.StartsOn)
		carried.CreatedAt = time.Now()
		if err := insertMember(ctx, tx, carried); err != nil {
			return roster.RosterYear{}, 0, err
		}
		copied++
	}

	if err := tx.Commit(ctx); err != nil {
		return roster.RosterYear{}, 0, fmt.Errorf("commit transaction: %w", err)
	}
	return newYear, copied, nil
}

func (s *PostgresStore) SaveMember(ctx context.Context, member roster.Member) (roster.Member, error) {
	if member.ID.IsNil() {
		member.ID = id.RosterMemberID(uuid.New())
		member.CreatedAt = time.Now()
		if err := insertMember(ctx, s.db, member); err != nil {
			return roster.Member{}, err
		}
		return member, nil
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE roster_members SET
		   first_name = $2, last_name = $3, date_of_birth = $4, age_at_start = $5, member_role = $6,
		   medical_flags = $7, dietary_restrictions = $8, emergency_contact_name = $9,
		   emergency_contact_phone = $10, is_first_time = $11, is_medical_personnel = $12,
		   master_guide = $13, is_active = $14, rollover_status = $15
		 WHERE id = $1`,
		member.ID.String(), member.FirstName, member.LastName, member.DateOfBirth, member.AgeAtStart,
		string(member.MemberRole), member.MedicalFlags, member.DietaryRestrictions,
		member.EmergencyContactName, member.EmergencyContactPhone,
		member.IsFirstTime, member.IsMedicalPersonnel, member.MasterGuide,
		member.IsActive, string(member.RolloverStatus))
	if err != nil {
		return roster.Member{}, fmt.Errorf("update member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return roster.Member{}, sentinel.ErrNotFound
	}
	return member, nil
}

func insertMember(ctx context.Context, db execer, member roster.Member) error {
	_, err := db.Exec(ctx,
		`INSERT INTO roster_members (id, roster_year_id, first_name, last_name, date_of_birth, age_at_start,
		   member_role, medical_flags, dietary_restrictions, emergency_contact_name, emergency_contact_phone,
		   is_first_time, is_medical_personnel, master_guide, is_active, rollover_status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		member.ID.String(), member.RosterYearID.String(), member.FirstName, member.LastName,
		member.DateOfBirth, member.AgeAtStart, string(member.MemberRole),
		member.MedicalFlags, member.DietaryRestrictions,
		member.EmergencyContactName, member.EmergencyContactPhone,
		member.IsFirstTime, member.IsMedicalPersonnel, member.MasterGuide,
		member.IsActive, string(member.RolloverStatus), member.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMember(ctx context.Context, memberID id.RosterMemberID) (roster.Member, error) {
	members, err := s.queryMembers(ctx, s.db,
		`SELECT id, roster_year_id, first_name, last_name, date_of_birth, age_at_start, member_role,
		        medical_flags, dietary_restrictions, emergency_contact_name, emergency_contact_phone,
		        is_first_time, is_medical_personnel, master_guide, is_active, rollover_status, created_at
		 FROM roster_members WHERE id = $1`, memberID.String())
	if err != nil {
		return roster.Member{}, err
	}
	if len(members) == 0 {
		return roster.Member{}, sentinel.ErrNotFound
	}
	return members[0], nil
}

func (s *PostgresStore) ListActiveMembers(ctx context.Context, yearID id.RosterYearID) ([]roster.Member, error) {
	return s.queryMembers(ctx, s.db,
		`SELECT id, roster_year_id, first_name, last_name, date_of_birth, age_at_start, member_role,
		        medical_flags, dietary_restrictions, emergency_contact_name, emergency_contact_phone,
		        is_first_time, is_medical_personnel, master_guide, is_active, rollover_status, created_at
		 FROM roster_members WHERE roster_year_id = $1 AND is_active
		 ORDER BY last_name, first_name`, yearID.String())
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *PostgresStore) queryMembers(ctx context.Context, db querier, query string, args ...any) ([]roster.Member, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []roster.Member
	for rows.Next() {
		var m roster.Member
		var rawID, rawYear string
		if err := rows.Scan(&rawID, &rawYear, &m.FirstName, &m.LastName, &m.DateOfBirth, &m.AgeAtStart,
			&m.MemberRole, &m.MedicalFlags, &m.DietaryRestrictions,
			&m.EmergencyContactName, &m.EmergencyContactPhone,
			&m.IsFirstTime, &m.IsMedicalPersonnel, &m.MasterGuide,
			&m.IsActive, &m.RolloverStatus, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		if parsed, err := id.ParseRosterMemberID(rawID); err == nil {
			m.ID = parsed
		}
		if parsed, err := id.ParseRosterYearID(rawYear); err == nil {
			m.RosterYearID = parsed
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// AddCompletedHonor records a sign-off; the unique index on
// (roster_member_id, honor_code) makes re-recording a no-op.
func (s *PostgresStore) AddCompletedHonor(ctx context.Context, honor roster.CompletedHonor) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO member_requirements (roster_member_id, honor_code, completed_at, verified_by, notes, signed_off_by)
		 VALUES ($1, upper(trim($2)), $3, $4, $5, $6)
		 ON CONFLICT (roster_member_id, honor_code) DO NOTHING`,
		honor.RosterMemberID.String(), honor.HonorCode, honor.CompletedAt,
		honor.VerifiedBy, honor.Notes, honor.SignedOffBy.String())
	if err != nil {
		return fmt.Errorf("insert completed honor: %w", err)
	}
	return nil
}

func (s *PostgresStore) CompletedHonorCodes(ctx context.Context, memberID id.RosterMemberID) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT honor_code FROM member_requirements WHERE roster_member_id = $1`, memberID.String())
	if err != nil {
		return nil, fmt.Errorf("query completed honors: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan honor code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (s *PostgresStore) EligibilitySnapshot(ctx context.Context, memberID id.RosterMemberID) (eligibility.Attendee, error) {
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
