package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sharptier/cms/internal/model"
)

// PageStore handles database operations for pages
type PageStore struct {
	db *sql.DB
}

// NewPageStore creates a new PageStore
func NewPageStore(db *sql.DB) *PageStore {
	return &PageStore{db: db}
}

var pageSortColumns = map[string]string{
	"id":        "id",
	"title":     "title",
	"slug":      "slug",
	"updatedAt": "updated_at",
	"createdAt": "created_at",
}

const pageColumns = `id, title, slug, hero, layout, updated_at, created_at`

func scanPage(row interface{ Scan(...any) error }) (*model.Page, error) {
	var p model.Page
	var hero, layout []byte
	if err := row.Scan(&p.ID, &p.Title, &p.Slug, &hero, &layout, &p.UpdatedAt, &p.CreatedAt); err != nil {
		return nil, err
	}
	if err := decodeJSON(hero, &p.Hero); err != nil {
		return nil, fmt.Errorf("failed to decode hero of page %d: %w", p.ID, err)
	}
	if err := decodeJSON(layout, &p.Layout); err != nil {
		return nil, fmt.Errorf("failed to decode layout of page %d: %w", p.ID, err)
	}
	return &p, nil
}

// GetByID retrieves a page by id, returning nil when it does not exist
func (s *PageStore) GetByID(ctx context.Context, id int64) (*model.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE id = $1`

	p, err := scanPage(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page %d: %w", id, err)
	}
	return p, nil
}

// GetBySlug retrieves a page by slug, returning nil when it does not exist
func (s *PageStore) GetBySlug(ctx context.Context, slug string) (*model.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE slug = $1`

	p, err := scanPage(s.db.QueryRowContext(ctx, query, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page %q: %w", slug, err)
	}
	return p, nil
}

// GetAllSorted retrieves all pages with custom sorting
func (s *PageStore) GetAllSorted(ctx context.Context, sortBy, order string) ([]model.Page, error) {
	query := fmt.Sprintf(`SELECT %s FROM pages ORDER BY %s`,
		pageColumns, sortClause(pageSortColumns, "id", sortBy, order))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get pages: %w", err)
	}
	defer rows.Close()

	pages := []model.Page{}
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, *p)
	}

	return pages, rows.Err()
}

// Create inserts a page and fills in its id and timestamps
func (s *PageStore) Create(ctx context.Context, p *model.Page) error {
	hero, layout, err := encodePage(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pages (title, slug, hero, layout)
		VALUES ($1, $2, $3, $4)
		RETURNING id, updated_at, created_at
	`

	err = s.db.QueryRowContext(ctx, query, p.Title, p.Slug, hero, layout).Scan(&p.ID, &p.UpdatedAt, &p.CreatedAt)
	if err != nil {
		return wrapWriteErr(err, "failed to create page %q", p.Slug)
	}
	return nil
}

// Update overwrites a page, returning false when it does not exist
func (s *PageStore) Update(ctx context.Context, p *model.Page) (bool, error) {
	hero, layout, err := encodePage(p)
	if err != nil {
		return false, err
	}

	query := `
		UPDATE pages SET title = $2, slug = $3, hero = $4, layout = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at, created_at
	`

	err = s.db.QueryRowContext(ctx, query, p.ID, p.Title, p.Slug, hero, layout).Scan(&p.UpdatedAt, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, wrapWriteErr(err, "failed to update page %d", p.ID)
	}
	return true, nil
}

// Delete removes a page, returning false when it does not exist
func (s *PageStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete page %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete page %d: %w", id, err)
	}
	return n > 0, nil
}

func encodePage(p *model.Page) (hero, layout []byte, err error) {
	hero, err = encodeJSON(p.Hero)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode page hero: %w", err)
	}
	layout, err = encodeJSON(p.Layout)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode page layout: %w", err)
	}
	return hero, layout, nil
}
