package mlo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"
)

var (
	// ErrNotFound indicates the referenced target does not exist.
	ErrNotFound = errors.New("mlo: target not found")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("mlo: validation failed")
)

// Repository defines persistence operations for targets and visits.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetTarget(ctx context.Context, id int64) (*ModalityTarget, error)
	ListTargets(ctx context.Context, filter TargetFilter) ([]ModalityTarget, error)
	InsertAudit(ctx context.Context, rec TargetAuditRecord) error
	AuditHistory(ctx context.Context, targetID, userID *int64, limit int) ([]TargetAuditRecord, error)
	CreateVisit(ctx context.Context, v Visit) (int64, error)
	ListVisits(ctx context.Context, mloUserID int64, limit, offset int) ([]Visit, int, error)
	ActualsForTarget(ctx context.Context, t ModalityTarget) (scans, referrals int, revenue float64, err error)
}

// TxRepository is the subset of writes that run inside one transaction.
type TxRepository interface {
	GetTargetForUpdate(ctx context.Context, id int64) (*ModalityTarget, error)
	InsertTarget(ctx context.Context, t ModalityTarget) (int64, error)
	UpdateTargetValues(ctx context.Context, id int64, start time.Time, scans, referrals int, revenue float64) error
	RetireTarget(ctx context.Context, id int64, periodEnd time.Time, supersededAt time.Time) error
	SetSupersededBy(ctx context.Context, oldID, newID int64) error
}

// TargetFilter narrows target listings.
type TargetFilter struct {
	UserID      *int64
	LocationID  *int64
	CurrentOnly bool
}

// Service implements target versioning and the MLO CRM operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// CreateTarget inserts version 1 of a new target and audits the creation.
func (s *Service) CreateTarget(ctx context.Context, t ModalityTarget, actorID int64) (*ModalityTarget, error) {
	if t.UserID == 0 || t.LocationID == 0 || t.ModalityTypeID == 0 {
		return nil, fmt.Errorf("%w: user, location and modality are required", ErrValidation)
	}
	if t.PeriodEnd.Before(t.PeriodStart) {
		return nil, fmt.Errorf("%w: period end before period start", ErrValidation)
	}
	if t.TargetScans < 0 || t.TargetReferrals < 0 || t.TargetRevenue < 0 {
		return nil, fmt.Errorf("%w: target values must be non-negative", ErrValidation)
	}
	t.Version = 1
	t.IsCurrent = true
	t.CreatedBy = actorID

	var created *ModalityTarget
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertTarget(ctx, t)
		if err != nil {
			return err
		}
		t.ID = id
		created = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.writeAudit(ctx, TargetAuditRecord{
		TargetID:  created.ID,
		Action:    AuditUpdated,
		ChangedBy: actorID,
		NewValues: snapshot(created),
		Notes:     "Target created",
	})
	return created, nil
}

// UpdateTarget applies new goal values as of effectiveDate without destroying
// history. When effectiveDate is on or before the current version's start the
// row is mutated in place; otherwise the current version is truncated to the
// day before effectiveDate and a successor version covers the remainder.
//
// All writes of the versioning path run in one transaction, so a failure
// cannot strand the key without a current row. The audit record is written
// after commit: the mutation outranks its audit trail, so an audit failure
// is logged rather than returned.
func (s *Service) UpdateTarget(ctx context.Context, id int64, effectiveDate *time.Time, changes TargetChanges, actorID int64) (*ModalityTarget, error) {
	if changes.isEmpty() {
		return nil, fmt.Errorf("%w: no changes supplied", ErrValidation)
	}
	if changes.TargetScans != nil && *changes.TargetScans < 0 {
		return nil, fmt.Errorf("%w: target_scans must be non-negative", ErrValidation)
	}
	if changes.TargetReferrals != nil && *changes.TargetReferrals < 0 {
		return nil, fmt.Errorf("%w: target_referrals must be non-negative", ErrValidation)
	}
	if changes.TargetRevenue != nil && *changes.TargetRevenue < 0 {
		return nil, fmt.Errorf("%w: target_revenue must be non-negative", ErrValidation)
	}

	effective := truncateToDay(s.now())
	if effectiveDate != nil {
		effective = truncateToDay(*effectiveDate)
	}

	var (
		result *ModalityTarget
		audit  TargetAuditRecord
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetTargetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.IsCurrent {
			return fmt.Errorf("%w: target %d is a superseded version", ErrValidation, id)
		}
		if effective.After(current.PeriodEnd) {
			return fmt.Errorf("%w: effective date %s is after period end %s",
				ErrValidation, effective.Format("2006-01-02"), current.PeriodEnd.Format("2006-01-02"))
		}

		scans := current.TargetScans
		referrals := current.TargetReferrals
		revenue := current.TargetRevenue
		if changes.TargetScans != nil {
			scans = *changes.TargetScans
		}
		if changes.TargetReferrals != nil {
			referrals = *changes.TargetReferrals
		}
		if changes.TargetRevenue != nil {
			revenue = *changes.TargetRevenue
		}

		if !effective.After(current.PeriodStart) {
			// No history to protect yet: mutate in place.
			if err := tx.UpdateTargetValues(ctx, current.ID, current.PeriodStart, scans, referrals, revenue); err != nil {
				return err
			}
			updated := *current
			updated.TargetScans = scans
			updated.TargetReferrals = referrals
			updated.TargetRevenue = revenue
			result = &updated
			audit = TargetAuditRecord{
				TargetID:  current.ID,
				Action:    AuditUpdated,
				ChangedBy: actorID,
				OldValues: snapshot(current),
				NewValues: snapshot(&updated),
				Notes:     "Values updated in place (effective date precedes period start)",
			}
			return nil
		}

		previousDay := effective.AddDate(0, 0, -1)
		supersededAt := s.now()
		if err := tx.RetireTarget(ctx, current.ID, previousDay, supersededAt); err != nil {
			return err
		}

		successor := ModalityTarget{
			UserID:          current.UserID,
			LocationID:      current.LocationID,
			ModalityTypeID:  current.ModalityTypeID,
			TargetPeriod:    current.TargetPeriod,
			PeriodStart:     effective,
			PeriodEnd:       current.PeriodEnd,
			TargetScans:     scans,
			TargetReferrals: referrals,
			TargetRevenue:   revenue,
			Version:         current.Version + 1,
			IsCurrent:       true,
			CreatedBy:       actorID,
		}
		newID, err := tx.InsertTarget(ctx, successor)
		if err != nil {
			return err
		}
		successor.ID = newID
		if err := tx.SetSupersededBy(ctx, current.ID, newID); err != nil {
			return err
		}

		retired := *current
		retired.PeriodEnd = previousDay
		retired.IsCurrent = false
		result = &successor
		audit = TargetAuditRecord{
			TargetID:  current.ID,
			Action:    AuditSuperseded,
			ChangedBy: actorID,
			OldValues: snapshot(&retired),
			NewValues: snapshot(&successor),
			Notes: fmt.Sprintf("Period split at %s: v%d now ends %s, v%d covers %s to %s",
				effective.Format("2006-01-02"), current.Version, previousDay.Format("2006-01-02"),
				successor.Version, effective.Format("2006-01-02"), successor.PeriodEnd.Format("2006-01-02")),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.writeAudit(ctx, audit)
	return result, nil
}

// GetTarget loads a single target version.
func (s *Service) GetTarget(ctx context.Context, id int64) (*ModalityTarget, error) {
	return s.repo.GetTarget(ctx, id)
}

// ListTargets returns targets matching the filter.
func (s *Service) ListTargets(ctx context.Context, filter TargetFilter) ([]ModalityTarget, error) {
	return s.repo.ListTargets(ctx, filter)
}

const auditHistoryCap = 100

// AuditHistory returns audit records newest first, capped at 100 rows.
func (s *Service) AuditHistory(ctx context.Context, targetID, userID *int64) ([]TargetAuditRecord, error) {
	return s.repo.AuditHistory(ctx, targetID, userID, auditHistoryCap)
}

// RecordVisit logs a referrer visit for an MLO.
func (s *Service) RecordVisit(ctx context.Context, v Visit) (*Visit, error) {
	if v.MLOUserID == 0 || v.ReferrerName == "" {
		return nil, fmt.Errorf("%w: mlo user and referrer name are required", ErrValidation)
	}
	if v.VisitDate.IsZero() {
		v.VisitDate = truncateToDay(s.now())
	}
	id, err := s.repo.CreateVisit(ctx, v)
	if err != nil {
		return nil, err
	}
	v.ID = id
	return &v, nil
}

// ListVisits returns one MLO's visits, newest first.
func (s *Service) ListVisits(ctx context.Context, mloUserID int64, limit, offset int) ([]Visit, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListVisits(ctx, mloUserID, limit, offset)
}

func (s *Service) writeAudit(ctx context.Context, rec TargetAuditRecord) {
	if err := s.repo.InsertAudit(ctx, rec); err != nil && s.logger != nil {
		s.logger.Error("target audit write failed",
			slog.Int64("target_id", rec.TargetID),
			slog.String("action", string(rec.Action)),
			slog.Any("error", err))
	}
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
