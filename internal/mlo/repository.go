package mlo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridianhealth/meridian-hub/internal/platform/db"
)

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// PgRepository is the PostgreSQL implementation of Repository.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PgRepository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// WithTx runs fn with a transaction-scoped TxRepository.
func (r *PgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{db: tx})
	})
}

const targetColumns = `id, user_id, location_id, modality_type_id, target_period,
	period_start, period_end, target_scans, target_referrals, target_revenue,
	version, is_current, superseded_by, superseded_at, created_by, created_at, updated_at`

// GetTarget loads one target version by ID.
func (r *PgRepository) GetTarget(ctx context.Context, id int64) (*ModalityTarget, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM modality_targets WHERE id = $1`, targetColumns), id)
	return scanTarget(row)
}

// ListTargets returns targets matching the filter, current versions first.
func (r *PgRepository) ListTargets(ctx context.Context, filter TargetFilter) ([]ModalityTarget, error) {
	query := fmt.Sprintf(`SELECT %s FROM modality_targets`, targetColumns)
	var conditions []string
	var args []any
	argPos := 1
	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argPos))
		args = append(args, *filter.UserID)
		argPos++
	}
	if filter.LocationID != nil {
		conditions = append(conditions, fmt.Sprintf("location_id = $%d", argPos))
		args = append(args, *filter.LocationID)
		argPos++
	}
	if filter.CurrentOnly {
		conditions = append(conditions, "is_current = TRUE")
	}
	for i, c := range conditions {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY user_id, location_id, modality_type_id, version DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var targets []ModalityTarget
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, *t)
	}
	return targets, rows.Err()
}

// InsertAudit appends one audit record.
func (r *PgRepository) InsertAudit(ctx context.Context, rec TargetAuditRecord) error {
	oldJSON, err := marshalValues(rec.OldValues)
	if err != nil {
		return err
	}
	newJSON, err := marshalValues(rec.NewValues)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO target_audit_records (target_id, action, changed_by, old_values, new_values, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		rec.TargetID, string(rec.Action), rec.ChangedBy, oldJSON, newJSON, rec.Notes)
	return err
}

// AuditHistory returns audit records newest first, optionally filtered by
// target or by the target owner's user ID.
func (r *PgRepository) AuditHistory(ctx context.Context, targetID, userID *int64, limit int) ([]TargetAuditRecord, error) {
	query := `
		SELECT a.id, a.target_id, a.action, a.changed_by, a.old_values, a.new_values, a.notes, a.created_at
		FROM target_audit_records a`
	var args []any
	argPos := 1
	where := ""
	if userID != nil {
		query += " JOIN modality_targets t ON t.id = a.target_id"
		where = fmt.Sprintf(" WHERE t.user_id = $%d", argPos)
		args = append(args, *userID)
		argPos++
	}
	if targetID != nil {
		if where == "" {
			where = fmt.Sprintf(" WHERE a.target_id = $%d", argPos)
		} else {
			where += fmt.Sprintf(" AND a.target_id = $%d", argPos)
		}
		args = append(args, *targetID)
		argPos++
	}
	query += where + fmt.Sprintf(" ORDER BY a.created_at DESC, a.id DESC LIMIT $%d", argPos)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []TargetAuditRecord
	for rows.Next() {
		var rec TargetAuditRecord
		var action string
		var oldJSON, newJSON []byte
		var notes pgtype.Text
		if err := rows.Scan(&rec.ID, &rec.TargetID, &action, &rec.ChangedBy, &oldJSON, &newJSON, &notes, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Action = AuditAction(action)
		if notes.Valid {
			rec.Notes = notes.String
		}
		if len(oldJSON) > 0 {
			if err := json.Unmarshal(oldJSON, &rec.OldValues); err != nil {
				return nil, err
			}
		}
		if len(newJSON) > 0 {
			if err := json.Unmarshal(newJSON, &rec.NewValues); err != nil {
				return nil, err
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CreateVisit inserts one referrer visit.
func (r *PgRepository) CreateVisit(ctx context.Context, v Visit) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO mlo_visits (mlo_user_id, referrer_name, practice, visit_date, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id`,
		v.MLOUserID, v.ReferrerName, v.Practice, v.VisitDate, v.Notes).Scan(&id)
	return id, err
}

// ListVisits returns one MLO's visits newest first with a total count.
func (r *PgRepository) ListVisits(ctx context.Context, mloUserID int64, limit, offset int) ([]Visit, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM mlo_visits WHERE mlo_user_id = $1`, mloUserID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, mlo_user_id, referrer_name, practice, visit_date, COALESCE(notes, ''), created_at
		FROM mlo_visits
		WHERE mlo_user_id = $1
		ORDER BY visit_date DESC, id DESC
		LIMIT $2 OFFSET $3`, mloUserID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var visits []Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.ID, &v.MLOUserID, &v.ReferrerName, &v.Practice, &v.VisitDate, &v.Notes, &v.CreatedAt); err != nil {
			return nil, 0, err
		}
		visits = append(visits, v)
	}
	return visits, total, rows.Err()
}

// ActualsForTarget aggregates recorded activity within the target's period.
func (r *PgRepository) ActualsForTarget(ctx context.Context, t ModalityTarget) (int, int, float64, error) {
	var scans, referrals int
	var revenue pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(scans), 0), COALESCE(SUM(referrals), 0), COALESCE(SUM(revenue), 0)
		FROM mlo_actuals
		WHERE user_id = $1 AND location_id = $2 AND modality_type_id = $3
		  AND activity_date BETWEEN $4 AND $5`,
		t.UserID, t.LocationID, t.ModalityTypeID, t.PeriodStart, t.PeriodEnd).
		Scan(&scans, &referrals, &revenue)
	if err != nil {
		return 0, 0, 0, err
	}
	var rev float64
	if revenue.Valid {
		f, err := revenue.Float64Value()
		if err != nil {
			return 0, 0, 0, err
		}
		rev = f.Float64
	}
	return scans, referrals, rev, nil
}

type txRepository struct {
	db dbtx
}

// GetTargetForUpdate loads a target row with a row lock so concurrent
// updates to the same key serialize.
func (r *txRepository) GetTargetForUpdate(ctx context.Context, id int64) (*ModalityTarget, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM modality_targets WHERE id = $1 FOR UPDATE`, targetColumns), id)
	return scanTarget(row)
}

func (r *txRepository) InsertTarget(ctx context.Context, t ModalityTarget) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO modality_targets (
			user_id, location_id, modality_type_id, target_period,
			period_start, period_end, target_scans, target_referrals, target_revenue,
			version, is_current, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING id`,
		t.UserID, t.LocationID, t.ModalityTypeID, t.TargetPeriod,
		t.PeriodStart, t.PeriodEnd, t.TargetScans, t.TargetReferrals, numeric(t.TargetRevenue),
		t.Version, t.IsCurrent, t.CreatedBy).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateTargetValues(ctx context.Context, id int64, start time.Time, scans, referrals int, revenue float64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE modality_targets
		SET period_start = $2, target_scans = $3, target_referrals = $4, target_revenue = $5, updated_at = NOW()
		WHERE id = $1`,
		id, start, scans, referrals, numeric(revenue))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepository) RetireTarget(ctx context.Context, id int64, periodEnd time.Time, supersededAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE modality_targets
		SET period_end = $2, is_current = FALSE, superseded_at = $3, updated_at = NOW()
		WHERE id = $1`,
		id, periodEnd, supersededAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepository) SetSupersededBy(ctx context.Context, oldID, newID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE modality_targets SET superseded_by = $2 WHERE id = $1`, oldID, newID)
	return err
}

func scanTarget(row pgx.Row) (*ModalityTarget, error) {
	var t ModalityTarget
	var revenue pgtype.Numeric
	var supersededBy pgtype.Int8
	var supersededAt pgtype.Timestamptz
	err := row.Scan(
		&t.ID, &t.UserID, &t.LocationID, &t.ModalityTypeID, &t.TargetPeriod,
		&t.PeriodStart, &t.PeriodEnd, &t.TargetScans, &t.TargetReferrals, &revenue,
		&t.Version, &t.IsCurrent, &supersededBy, &supersededAt, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if revenue.Valid {
		f, err := revenue.Float64Value()
		if err != nil {
			return nil, err
		}
		t.TargetRevenue = f.Float64
	}
	if supersededBy.Valid {
		v := supersededBy.Int64
		t.SupersededBy = &v
	}
	if supersededAt.Valid {
		v := supersededAt.Time
		t.SupersededAt = &v
	}
	return &t, nil
}

func numeric(v float64) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(fmt.Sprintf("%f", v))
	return n
}

func marshalValues(values map[string]any) ([]byte, error) {
	if values == nil {
		return nil, nil
	}
	return json.Marshal(values)
}
