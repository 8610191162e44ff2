package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that the directory entry does not exist.
var ErrNotFound = errors.New("directory: not found")

// Repository provides PostgreSQL backed persistence for directory entries.
// A folded copy of the name is kept in search_name so lookups match across
// case and diacritics.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const entryColumns = `id, full_name, department, job_title, extension,
	COALESCE(mobile, ''), email, COALESCE(location, ''), is_active, created_at, updated_at`

// Search returns active entries matching the folded term, paginated.
func (r *Repository) Search(ctx context.Context, term string, limit, offset int) ([]Entry, int, error) {
	conditions := []string{"is_active = TRUE"}
	var args []any
	argPos := 1
	if term != "" {
		pattern := "%" + Fold(term) + "%"
		conditions = append(conditions, fmt.Sprintf(
			"(search_name LIKE $%d OR LOWER(department) LIKE $%d OR extension LIKE $%d)", argPos, argPos, argPos))
		args = append(args, pattern)
		argPos++
	}

	where := "WHERE " + conditions[0]
	for _, c := range conditions[1:] {
		where += " AND " + c
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM directory_entries %s", where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM directory_entries %s
		ORDER BY full_name
		LIMIT $%d OFFSET $%d`, entryColumns, where, argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.FullName, &e.Department, &e.JobTitle, &e.Extension,
			&e.Mobile, &e.Email, &e.Location, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// Get fetches one entry by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Entry, error) {
	var e Entry
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM directory_entries WHERE id = $1`, entryColumns), id).
		Scan(&e.ID, &e.FullName, &e.Department, &e.JobTitle, &e.Extension,
			&e.Mobile, &e.Email, &e.Location, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return e, nil
}

// Create inserts a new entry.
func (r *Repository) Create(ctx context.Context, e Entry) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO directory_entries (
			full_name, search_name, department, job_title, extension,
			mobile, email, location, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, NOW(), NOW())
		RETURNING id`,
		e.FullName, Fold(e.FullName), e.Department, e.JobTitle, e.Extension,
		e.Mobile, e.Email, e.Location).Scan(&id)
	return id, err
}

// Update replaces the editable fields of an entry.
func (r *Repository) Update(ctx context.Context, e Entry) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE directory_entries
		SET full_name = $2, search_name = $3, department = $4, job_title = $5,
		    extension = $6, mobile = $7, email = $8, location = $9,
		    is_active = $10, updated_at = NOW()
		WHERE id = $1`,
		e.ID, e.FullName, Fold(e.FullName), e.Department, e.JobTitle,
		e.Extension, e.Mobile, e.Email, e.Location, e.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
