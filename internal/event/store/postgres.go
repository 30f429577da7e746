package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cmms/internal/event"
	"cmms/internal/event/schema"
	id "cmms/pkg/domain"
	"cmms/pkg/platform/sentinel"
)

// PostgresStore persists events and their dynamic fields in PostgreSQL.
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

// CreateEventWithFields inserts the event and all fields in one transaction.
// The field batch is ordered parents-first, so each child's client parent ref
// resolves to a durable id assigned earlier in the same loop. A failure at any
// point rolls the whole event back; fields are never partially written.
func (s *PostgresStore) CreateEventWithFields(ctx context.Context, ev event.Event, fields []schema.Field) (event.Event, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return event.Event{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ev.ID = id.EventID(uuid.New())
	_, err = tx.Exec(ctx,
		`INSERT INTO events (id, name, slug, starts_at, ends_at, registration_opens_at, registration_closes_at, location_name, location_address, created_by_user_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ev.ID.String(), ev.Name, ev.Slug, ev.StartsAt, ev.EndsAt,
		ev.RegistrationOpensAt, ev.RegistrationClosesAt,
		ev.LocationName, ev.LocationAddress, ev.CreatedByUserID.String(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return event.Event{}, sentinel.ErrConflict
		}
		return event.Event{}, fmt.Errorf("insert event: %w", err)
	}

	refToID := make(map[string]id.FieldID, len(fields))
	for _, field := range fields {
		fieldID := id.FieldID(uuid.New())
		refToID[field.Ref] = fieldID

		var parentID *string
		if field.ParentRef != "" {
			durable, ok := refToID[field.ParentRef]
			if !ok {
				return event.Event{}, fmt.Errorf("could not resolve parent for field %q", field.Key)
			}
			v := durable.String()
			parentID = &v
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO event_form_fields (id, event_id, parent_field_id, key, label, description, type, options, is_required, sort_order)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			fieldID.String(), ev.ID.String(), parentID,
			field.Key, field.Label, field.Description,
			string(field.Type), field.Options, field.IsRequired, field.SortOrder,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return event.Event{}, sentinel.ErrConflict
			}
			return event.Event{}, fmt.Errorf("insert field %q: %w", field.Key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return event.Event{}, fmt.Errorf("commit transaction: %w", err)
	}
	return ev, nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, eventID id.EventID) (event.Event, error) {
	var ev event.Event
	var rawID, rawCreator string
	err := s.db.QueryRow(ctx,
		`SELECT id, name, slug, starts_at, ends_at, registration_opens_at, registration_closes_at, location_name, location_address, created_by_user_id
		 FROM events WHERE id = $1`,
		eventID.String(),
	).Scan(&rawID, &ev.Name, &ev.Slug, &ev.StartsAt, &ev.EndsAt,
		&ev.RegistrationOpensAt, &ev.RegistrationClosesAt,
		&ev.LocationName, &ev.LocationAddress, &rawCreator)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, sentinel.ErrNotFound
		}
		return event.Event{}, fmt.Errorf("get event: %w", err)
	}
	ev.ID = eventID
	if creator, err := id.ParseUserID(rawCreator); err == nil {
		ev.CreatedByUserID = creator
	}
	return ev, nil
}

func (s *PostgresStore) ListFields(ctx context.Context, eventID id.EventID) ([]event.FormField, error) {
	return s.queryFields(ctx,
		`SELECT id, event_id, parent_field_id, key, label, description, type, options, is_required, sort_order
		 FROM event_form_fields WHERE event_id = $1 ORDER BY sort_order ASC`,
		eventID.String())
}

func (s *PostgresStore) RequiredFields(ctx context.Context, eventID id.EventID) ([]event.FormField, error) {
	return s.queryFields(ctx,
		`SELECT id, event_id, parent_field_id, key, label, description, type, options, is_required, sort_order
		 FROM event_form_fields WHERE event_id = $1 AND is_required ORDER BY sort_order ASC`,
		eventID.String())
}

func (s *PostgresStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE slug = $1)`, slug,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) queryFields(ctx context.Context, query string, args ...any) ([]event.FormField, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	defer rows.Close()

	var fields []event.FormField
	for rows.Next() {
		var f event.FormField
		var rawID, rawEventID string
		var rawParent *string
		if err := rows.Scan(&rawID, &rawEventID, &rawParent, &f.Key, &f.Label, &f.Description, &f.Type, &f.Options, &f.IsRequired, &f.SortOrder); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		if parsed, err := id.ParseFieldID(rawID); err == nil {
			f.ID = parsed
		}
		if parsed, err := id.ParseEventID(rawEventID); err == nil {
			f.EventID = parsed
		}
		if rawParent != nil {
			if parsed, err := id.ParseFieldID(*rawParent); err == nil {
				f.ParentFieldID = &parsed
			}
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}
