package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cmms/internal/catalog"
	"cmms/internal/eligibility"
	id "cmms/pkg/domain"
	"cmms/pkg/platform/sentinel"
)

// PostgresStore persists the class catalog in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *PostgresStore) CreateItem(ctx context.Context, item catalog.Item) (catalog.Item, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return catalog.Item{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	item.ID = id.CatalogID(uuid.New())
	_, err = tx.Exec(ctx,
		`INSERT INTO class_catalog (id, code, title, description, class_type, active)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID.String(), item.Code, item.Title, item.Description, string(item.ClassType), item.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.Item{}, sentinel.ErrConflict
		}
		return catalog.Item{}, fmt.Errorf("insert catalog item: %w", err)
	}

	if err := insertRequirements(ctx, tx, item.ID, item.Requirements); err != nil {
		return catalog.Item{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return catalog.Item{}, fmt.Errorf("commit transaction: %w", err)
	}
	return item, nil
}

// UpdateItem rewrites the item row and replaces its requirement rows in one
// transaction, so a half-updated requirement set is never observable.
func (s *PostgresStore) UpdateItem(ctx context.Context, item catalog.Item) (catalog.Item, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return catalog.Item{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE class_catalog SET code = $2, title = $3, description = $4, class_type = $5, active = $6
		 WHERE id = $1`,
		item.ID.String(), item.Code, item.Title, item.Description, string(item.ClassType), item.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.Item{}, sentinel.ErrConflict
		}
		return catalog.Item{}, fmt.Errorf("update catalog item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.Item{}, sentinel.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM class_requirements WHERE catalog_id = $1`, item.ID.String()); err != nil {
		return catalog.Item{}, fmt.Errorf("delete requirements: %w", err)
	}
	if err := insertRequirements(ctx, tx, item.ID, item.Requirements); err != nil {
		return catalog.Item{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return catalog.Item{}, fmt.Errorf("commit transaction: %w", err)
	}
	return item, nil
}

func insertRequirements(ctx context.Context, tx pgx.Tx, catalogID id.CatalogID, requirements []eligibility.Requirement) error {
	for _, req := range requirements {
		_, err := tx.Exec(ctx,
			`INSERT INTO class_requirements
			   (id, catalog_id, kind, min_age, max_age, required_member_role, required_honor_code, required_master_guide)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.NewString(), catalogID.String(), string(req.Kind),
			req.MinAge, req.MaxAge, req.RequiredMemberRole, req.RequiredHonorCode, req.RequiredMasterGuide,
		)
		if err != nil {
			return fmt.Errorf("insert requirement: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) GetItem(ctx context.Context, catalogID id.CatalogID) (catalog.Item, error) {
	var item catalog.Item
	var rawID, classType string
	err := s.db.QueryRow(ctx,
		`SELECT id, code, title, description, class_type, active FROM class_catalog WHERE id = $1`,
		catalogID.String(),
	).Scan(&rawID, &item.Code, &item.Title, &item.Description, &classType, &item.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Item{}, sentinel.ErrNotFound
		}
		return catalog.Item{}, fmt.Errorf("select catalog item: %w", err)
	}
	item.ID = catalogID
	item.ClassType = catalog.ClassType(classType)

	item.Requirements, err = queryRequirements(ctx, s.db, catalogID)
	if err != nil {
		return catalog.Item{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListItems(ctx context.Context, activeOnly bool) ([]catalog.Item, error) {
	query := `SELECT id, code, title, description, class_type, active FROM class_catalog`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY title`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select catalog items: %w", err)
	}
	defer rows.Close()

	var items []catalog.Item
	for rows.Next() {
		var item catalog.Item
		var rawID, classType string
		if err := rows.Scan(&rawID, &item.Code, &item.Title, &item.Description, &classType, &item.Active); err != nil {
			return nil, fmt.Errorf("scan catalog item: %w", err)
		}
		catalogID, err := id.ParseCatalogID(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse catalog id: %w", err)
		}
		item.ID = catalogID
		item.ClassType = catalog.ClassType(classType)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog items: %w", err)
	}
	for i := range items {
		items[i].Requirements, err = queryRequirements(ctx, s.db, items[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (s *PostgresStore) Requirements(ctx context.Context, catalogID id.CatalogID) ([]eligibility.Requirement, error) {
	return queryRequirements(ctx, s.db, catalogID)
}

func queryRequirements(ctx context.Context, q querier, catalogID id.CatalogID) ([]eligibility.Requirement, error) {
	rows, err := q.Query(ctx,
		`SELECT kind, min_age, max_age, required_member_role, required_honor_code, required_master_guide
		 FROM class_requirements WHERE catalog_id = $1 ORDER BY created_at`,
		catalogID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("select requirements: %w", err)
	}
	defer rows.Close()

	var requirements []eligibility.Requirement
	for rows.Next() {
		var req eligibility.Requirement
		var kind string
		if err := rows.Scan(&kind, &req.MinAge, &req.MaxAge, &req.RequiredMemberRole, &req.RequiredHonorCode, &req.RequiredMasterGuide); err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		req.Kind = eligibility.RequirementKind(kind)
		requirements = append(requirements, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requirements: %w", err)
	}
	return requirements, nil
}
