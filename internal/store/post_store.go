package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sharptier/cms/internal/model"
)

// PostStore handles database operations for posts
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a new PostStore
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

const postColumns = `id, title, slug, content, updated_at, created_at`

func scanPost(row interface{ Scan(...any) error }) (*model.Post, error) {
	var p model.Post
	var content []byte
	if err := row.Scan(&p.ID, &p.Title, &p.Slug, &content, &p.UpdatedAt, &p.CreatedAt); err != nil {
		return nil, err
	}
	if err := decodeJSON(content, &p.Content); err != nil {
		return nil, fmt.Errorf("failed to decode content of post %d: %w", p.ID, err)
	}
	return &p, nil
}

// GetByID retrieves a post by id, returning nil when it does not exist
func (s *PostStore) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post %d: %w", id, err)
	}
	return p, nil
}

// GetBySlug retrieves a post by slug, returning nil when it does not exist
func (s *PostStore) GetBySlug(ctx context.Context, slug string) (*model.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = $1`, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post %q: %w", slug, err)
	}
	return p, nil
}

// GetAllSorted retrieves all posts with custom sorting
func (s *PostStore) GetAllSorted(ctx context.Context, sortBy, order string) ([]model.Post, error) {
	query := fmt.Sprintf(`SELECT %s FROM posts ORDER BY %s`,
		postColumns, sortClause(pageSortColumns, "id", sortBy, order))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts: %w", err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// Create inserts a post and fills in its id and timestamps
func (s *PostStore) Create(ctx context.Context, p *model.Post) error {
	content, err := encodeJSON(p.Content)
	if err != nil {
		return fmt.Errorf("failed to encode post content: %w", err)
	}

	query := `
		INSERT INTO posts (title, slug, content)
		VALUES ($1, $2, $3)
		RETURNING id, updated_at, created_at
	`
	err = s.db.QueryRowContext(ctx, query, p.Title, p.Slug, content).Scan(&p.ID, &p.UpdatedAt, &p.CreatedAt)
	if err != nil {
		return wrapWriteErr(err, "failed to create post %q", p.Slug)
	}
	return nil
}

// Update overwrites a post, returning false when it does not exist
func (s *PostStore) Update(ctx context.Context, p *model.Post) (bool, error) {
	content, err := encodeJSON(p.Content)
	if err != nil {
		return false, fmt.Errorf("failed to encode post content: %w", err)
	}

	query := `
		UPDATE posts SET title = $2, slug = $3, content = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at, created_at
	`
	err = s.db.QueryRowContext(ctx, query, p.ID, p.Title, p.Slug, content).Scan(&p.UpdatedAt, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, wrapWriteErr(err, "failed to update post %d", p.ID)
	}
	return true, nil
}

// Delete removes a post, returning false when it does not exist
func (s *PostStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete post %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete post %d: %w", id, err)
	}
	return n > 0, nil
}

// DocumentStore resolves routable documents across collections
type DocumentStore struct {
	db *sql.DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// routableTables whitelists the collections a reference may point at
var routableTables = map[string]string{
	model.CollectionPages: "pages",
	model.CollectionPosts: "posts",
}

// FindSlug returns the slug of a document, or "" when it does not exist
func (s *DocumentStore) FindSlug(ctx context.Context, collection string, id int64) (string, error) {
	table, ok := routableTables[collection]
	if !ok {
		return "", fmt.Errorf("collection %q is not routable", collection)
	}

	var slug string
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT slug FROM %s WHERE id = $1`, table), id).Scan(&slug)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s %d: %w", collection, id, err)
	}
	return slug, nil
}
