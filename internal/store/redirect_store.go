package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sharptier/cms/internal/model"
)

// RedirectStore handles database operations for redirects
type RedirectStore struct {
	db *sql.DB
}

// NewRedirectStore creates a new RedirectStore
func NewRedirectStore(db *sql.DB) *RedirectStore {
	return &RedirectStore{db: db}
}

const redirectColumns = `id, from_path, to_type, to_url, to_relation_to, to_reference_id, updated_at, created_at`

func scanRedirect(row interface{ Scan(...any) error }) (*model.Redirect, error) {
	var r model.Redirect
	var toType, toURL, relationTo sql.NullString
	var refID sql.NullInt64
	err := row.Scan(&r.ID, &r.From, &toType, &toURL, &relationTo, &refID, &r.UpdatedAt, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.To.Type = toType.String
	r.To.URL = toURL.String
	if relationTo.Valid {
		r.To.Reference = &model.Reference{
			RelationTo: relationTo.String,
			Value:      model.DocRef{ID: refID.Int64},
		}
	}
	return &r, nil
}

func redirectArgs(r *model.Redirect) (toType, toURL, relationTo sql.NullString, refID sql.NullInt64) {
	toType = sql.NullString{String: r.To.Type, Valid: r.To.Type != ""}
	toURL = sql.NullString{String: r.To.URL, Valid: r.To.URL != ""}
	if ref := r.To.Reference; ref != nil && ref.RelationTo != "" {
		relationTo = sql.NullString{String: ref.RelationTo, Valid: true}
		refID = sql.NullInt64{Int64: ref.Value.ID, Valid: ref.Value.ID > 0}
	}
	return
}

// GetAll retrieves every redirect ordered by id
func (s *RedirectStore) GetAll(ctx context.Context) ([]model.Redirect, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+redirectColumns+` FROM redirects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get redirects: %w", err)
	}
	defer rows.Close()

	redirects := []model.Redirect{}
	for rows.Next() {
		r, err := scanRedirect(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan redirect: %w", err)
		}
		redirects = append(redirects, *r)
	}
	return redirects, rows.Err()
}

// GetByID retrieves a redirect by id, returning nil when it does not exist
func (s *RedirectStore) GetByID(ctx context.Context, id int64) (*model.Redirect, error) {
	r, err := scanRedirect(s.db.QueryRowContext(ctx, `SELECT `+redirectColumns+` FROM redirects WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get redirect %d: %w", id, err)
	}
	return r, nil
}

// Create inserts a redirect and fills in its id and timestamps
func (s *RedirectStore) Create(ctx context.Context, r *model.Redirect) error {
	toType, toURL, relationTo, refID := redirectArgs(r)

	query := `
		INSERT INTO redirects (from_path, to_type, to_url, to_relation_to, to_reference_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, updated_at, created_at
	`
	err := s.db.QueryRowContext(ctx, query, r.From, toType, toURL, relationTo, refID).Scan(&r.ID, &r.UpdatedAt, &r.CreatedAt)
	if err != nil {
		return wrapWriteErr(err, "failed to create redirect from %q", r.From)
	}
	return nil
}

// Update overwrites a redirect, returning false when it does not exist
func (s *RedirectStore) Update(ctx context.Context, r *model.Redirect) (bool, error) {
	toType, toURL, relationTo, refID := redirectArgs(r)

	query := `
		UPDATE redirects SET from_path = $2, to_type = $3, to_url = $4,
		                     to_relation_to = $5, to_reference_id = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at, created_at
	`
	err := s.db.QueryRowContext(ctx, query, r.ID, r.From, toType, toURL, relationTo, refID).Scan(&r.UpdatedAt, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, wrapWriteErr(err, "failed to update redirect %d", r.ID)
	}
	return true, nil
}

// Delete removes a redirect, returning false when it does not exist
func (s *RedirectStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM redirects WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete redirect %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete redirect %d: %w", id, err)
	}
	return n > 0, nil
}
