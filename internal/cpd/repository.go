package cpd

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository persists CPD activities in PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PgRepository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Insert stores an activity and returns it with generated fields.
func (r *PgRepository) Insert(ctx context.Context, a Activity) (Activity, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO cpd_activities (user_id, activity_date, category, hours, notes, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NOW())
		RETURNING id, created_at`,
		a.UserID, a.ActivityDate, a.Category, a.Hours, a.Notes).
		Scan(&a.ID, &a.CreatedAt)
	return a, err
}

// ListByUser returns a user's activities for one year, newest first.
func (r *PgRepository) ListByUser(ctx context.Context, userID int64, year int) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, activity_date, category, hours, COALESCE(notes, ''), created_at
		FROM cpd_activities
		WHERE user_id = $1 AND EXTRACT(YEAR FROM activity_date) = $2
		ORDER BY activity_date DESC, id DESC`,
		userID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var activities []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.UserID, &a.ActivityDate, &a.Category, &a.Hours, &a.Notes, &a.CreatedAt); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// Delete removes an activity owned by the given user.
func (r *PgRepository) Delete(ctx context.Context, id, userID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cpd_activities WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get fetches a single activity.
func (r *PgRepository) Get(ctx context.Context, id int64) (Activity, error) {
	var a Activity
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, activity_date, category, hours, COALESCE(notes, ''), created_at
		FROM cpd_activities WHERE id = $1`, id).
		Scan(&a.ID, &a.UserID, &a.ActivityDate, &a.Category, &a.Hours, &a.Notes, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Activity{}, ErrNotFound
		}
		return Activity{}, err
	}
	return a, nil
}
