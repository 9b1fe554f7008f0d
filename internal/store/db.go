package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// ErrConflict is returned when a write violates a unique constraint
var ErrConflict = errors.New("conflicting document")

// NewDB opens and verifies a PostgreSQL connection
func NewDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// wrapWriteErr maps constraint violations to ErrConflict
func wrapWriteErr(err error, format string, args ...any) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// encodeJSON marshals a value for a JSONB column, writing "[]" for nil slices
func encodeJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return []byte("[]"), nil
	}
	return b, nil
}

// decodeJSON unmarshals a JSONB column, ignoring NULL
func decodeJSON(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// sortClause whitelists a sort column to prevent SQL injection
func sortClause(valid map[string]string, fallback, sortBy, order string) string {
	column, ok := valid[sortBy]
	if !ok {
		column = fallback
	}

	sortOrder := "ASC"
	if order == "desc" {
		sortOrder = "DESC"
	}

	return column + " " + sortOrder
}
