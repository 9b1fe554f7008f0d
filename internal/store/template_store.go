package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sharptier/cms/internal/model"
)

// TemplateStore handles database operations for templates
type TemplateStore struct {
	db *sql.DB
}

// NewTemplateStore creates a new TemplateStore
func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

var templateSortColumns = map[string]string{
	"id":        "id",
	"title":     "title",
	"updatedAt": "updated_at",
	"createdAt": "created_at",
}

const templateColumns = `id, title, content, updated_at, created_at`

func scanTemplate(row interface{ Scan(...any) error }) (*model.Template, error) {
	var t model.Template
	var content []byte
	if err := row.Scan(&t.ID, &t.Title, &content, &t.UpdatedAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	if err := decodeJSON(content, &t.Content); err != nil {
		return nil, fmt.Errorf("failed to decode content of template %d: %w", t.ID, err)
	}
	return &t, nil
}

// GetByID retrieves a template by id, returning nil when it does not exist
func (s *TemplateStore) GetByID(ctx context.Context, id int64) (*model.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE id = $1`

	t, err := scanTemplate(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template %d: %w", id, err)
	}

	return t, nil
}

// GetByTitle retrieves the first template with the given title
func (s *TemplateStore) GetByTitle(ctx context.Context, title string) (*model.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE title = $1 ORDER BY id LIMIT 1`

	t, err := scanTemplate(s.db.QueryRowContext(ctx, query, title))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template %q: %w", title, err)
	}

	return t, nil
}

// GetAllSorted retrieves all templates with custom sorting
func (s *TemplateStore) GetAllSorted(ctx context.Context, sortBy, order string) ([]model.Template, error) {
	query := fmt.Sprintf(`SELECT %s FROM templates ORDER BY %s`,
		templateColumns, sortClause(templateSortColumns, "id", sortBy, order))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get templates: %w", err)
	}
	defer rows.Close()

	templates := []model.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, *t)
	}

	return templates, rows.Err()
}

// Create inserts a template and fills in its id and timestamps
func (s *TemplateStore) Create(ctx context.Context, t *model.Template) error {
	content, err := encodeJSON(t.Content)
	if err != nil {
		return fmt.Errorf("failed to encode template content: %w", err)
	}

	query := `
		INSERT INTO templates (title, content)
		VALUES ($1, $2)
		RETURNING id, updated_at, created_at
	`

	err = s.db.QueryRowContext(ctx, query, t.Title, content).Scan(&t.ID, &t.UpdatedAt, &t.CreatedAt)
	if err != nil {
		return wrapWriteErr(err, "failed to create template %q", t.Title)
	}

	return nil
}

// Update overwrites a template, returning false when it does not exist
func (s *TemplateStore) Update(ctx context.Context, t *model.Template) (bool, error) {
	content, err := encodeJSON(t.Content)
	if err != nil {
		return false, fmt.Errorf("failed to encode template content: %w", err)
	}

	query := `
		UPDATE templates SET title = $2, content = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at, created_at
	`

	err = s.db.QueryRowContext(ctx, query, t.ID, t.Title, content).Scan(&t.UpdatedAt, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, wrapWriteErr(err, "failed to update template %d", t.ID)
	}

	return true, nil
}

// Delete removes a template, returning false when it does not exist
func (s *TemplateStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete template %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete template %d: %w", id, err)
	}
	return n > 0, nil
}

// Count returns the total number of templates
func (s *TemplateStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM templates").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count templates: %w", err)
	}
	return count, nil
}
