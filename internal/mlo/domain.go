package mlo

import "time"

// ModalityTarget is one time-bounded version of a numeric goal for a
// (user, location, modality) key. Updates supersede rather than overwrite:
// old versions are retired but never deleted.
type ModalityTarget struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	LocationID      int64      `json:"location_id"`
	ModalityTypeID  int64      `json:"modality_type_id"`
	TargetPeriod    string     `json:"target_period"`
	PeriodStart     time.Time  `json:"period_start"`
	PeriodEnd       time.Time  `json:"period_end"`
	TargetScans     int        `json:"target_scans"`
	TargetReferrals int        `json:"target_referrals"`
	TargetRevenue   float64    `json:"target_revenue"`
	Version         int        `json:"version"`
	IsCurrent       bool       `json:"is_current"`
	SupersededBy    *int64     `json:"superseded_by,omitempty"`
	SupersededAt    *time.Time `json:"superseded_at,omitempty"`
	CreatedBy       int64      `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TargetChanges carries the goal fields an update may replace. Nil fields
// keep the current value.
type TargetChanges struct {
	TargetScans     *int     `json:"target_scans"`
	TargetReferrals *int     `json:"target_referrals"`
	TargetRevenue   *float64 `json:"target_revenue"`
}

func (c TargetChanges) isEmpty() bool {
	return c.TargetScans == nil && c.TargetReferrals == nil && c.TargetRevenue == nil
}

// AuditAction labels a target mutation in the audit trail.
type AuditAction string

const (
	AuditUpdated    AuditAction = "updated"
	AuditSuperseded AuditAction = "superseded"
)

// TargetAuditRecord is an append-only log entry for one target mutation.
type TargetAuditRecord struct {
	ID        int64          `json:"id"`
	TargetID  int64          `json:"target_id"`
	Action    AuditAction    `json:"action"`
	ChangedBy int64          `json:"changed_by"`
	OldValues map[string]any `json:"old_values,omitempty"`
	NewValues map[string]any `json:"new_values"`
	Notes     string         `json:"notes,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Visit is one referrer visit logged by a marketing liaison officer.
type Visit struct {
	ID           int64     `json:"id"`
	MLOUserID    int64     `json:"mlo_user_id"`
	ReferrerName string    `json:"referrer_name"`
	Practice     string    `json:"practice"`
	VisitDate    time.Time `json:"visit_date"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Attainment compares a current target against recorded actuals.
type Attainment struct {
	Target          ModalityTarget `json:"target"`
	ActualScans     int            `json:"actual_scans"`
	ActualReferrals int            `json:"actual_referrals"`
	ActualRevenue   float64        `json:"actual_revenue"`
}

// snapshot captures the auditable fields of a target version.
func snapshot(t *ModalityTarget) map[string]any {
	if t == nil {
		return nil
	}
	return map[string]any{
		"period_start":     t.PeriodStart.Format("2006-01-02"),
		"period_end":       t.PeriodEnd.Format("2006-01-02"),
		"target_scans":     t.TargetScans,
		"target_referrals": t.TargetReferrals,
		"target_revenue":   t.TargetRevenue,
		"version":          t.Version,
		"is_current":       t.IsCurrent,
	}
}
