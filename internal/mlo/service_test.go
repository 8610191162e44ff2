package mlo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	targets      map[int64]*ModalityTarget
	nextTargetID int64
	audits       []TargetAuditRecord
	visits       map[int64]*Visit
	nextVisitID  int64

	auditError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		targets:      make(map[int64]*ModalityTarget),
		visits:       make(map[int64]*Visit),
		nextTargetID: 1,
		nextVisitID:  1,
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &mockTxRepo{mock: m})
}

func (m *mockRepository) GetTarget(ctx context.Context, id int64) (*ModalityTarget, error) {
	t, ok := m.targets[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (m *mockRepository) ListTargets(ctx context.Context, filter TargetFilter) ([]ModalityTarget, error) {
	var out []ModalityTarget
	for _, t := range m.targets {
		if filter.UserID != nil && t.UserID != *filter.UserID {
			continue
		}
		if filter.CurrentOnly && !t.IsCurrent {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (m *mockRepository) InsertAudit(ctx context.Context, rec TargetAuditRecord) error {
	if m.auditError != nil {
		return m.auditError
	}
	rec.ID = int64(len(m.audits) + 1)
	rec.CreatedAt = time.Now()
	m.audits = append(m.audits, rec)
	return nil
}

func (m *mockRepository) AuditHistory(ctx context.Context, targetID, userID *int64, limit int) ([]TargetAuditRecord, error) {
	var out []TargetAuditRecord
	for i := len(m.audits) - 1; i >= 0; i-- {
		rec := m.audits[i]
		if targetID != nil && rec.TargetID != *targetID {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockRepository) CreateVisit(ctx context.Context, v Visit) (int64, error) {
	id := m.nextVisitID
	m.nextVisitID++
	v.ID = id
	m.visits[id] = &v
	return id, nil
}

func (m *mockRepository) ListVisits(ctx context.Context, mloUserID int64, limit, offset int) ([]Visit, int, error) {
	var out []Visit
	for _, v := range m.visits {
		if v.MLOUserID == mloUserID {
			out = append(out, *v)
		}
	}
	return out, len(out), nil
}

func (m *mockRepository) ActualsForTarget(ctx context.Context, t ModalityTarget) (int, int, float64, error) {
	return 0, 0, 0, nil
}

type mockTxRepo struct {
	mock *mockRepository
}

func (m *mockTxRepo) GetTargetForUpdate(ctx context.Context, id int64) (*ModalityTarget, error) {
	return m.mock.GetTarget(ctx, id)
}

func (m *mockTxRepo) InsertTarget(ctx context.Context, t ModalityTarget) (int64, error) {
	id := m.mock.nextTargetID
	m.mock.nextTargetID++
	t.ID = id
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	m.mock.targets[id] = &t
	return id, nil
}

func (m *mockTxRepo) UpdateTargetValues(ctx context.Context, id int64, start time.Time, scans, referrals int, revenue float64) error {
	t, ok := m.mock.targets[id]
	if !ok {
		return ErrNotFound
	}
	t.PeriodStart = start
	t.TargetScans = scans
	t.TargetReferrals = referrals
	t.TargetRevenue = revenue
	return nil
}

func (m *mockTxRepo) RetireTarget(ctx context.Context, id int64, periodEnd time.Time, supersededAt time.Time) error {
	t, ok := m.mock.targets[id]
	if !ok {
		return ErrNotFound
	}
	t.PeriodEnd = periodEnd
	t.IsCurrent = false
	t.SupersededAt = &supersededAt
	return nil
}

func (m *mockTxRepo) SetSupersededBy(ctx context.Context, oldID, newID int64) error {
	t, ok := m.mock.targets[oldID]
	if !ok {
		return ErrNotFound
	}
	t.SupersededBy = &newID
	return nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(repo *mockRepository) *Service {
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return day(2025, time.March, 15) }
	return svc
}

func seedTarget(t *testing.T, repo *mockRepository) *ModalityTarget {
	t.Helper()
	svc := newTestService(repo)
	created, err := svc.CreateTarget(context.Background(), ModalityTarget{
		UserID:          10,
		LocationID:      3,
		ModalityTypeID:  2,
		TargetPeriod:    "2025",
		PeriodStart:     day(2025, time.January, 1),
		PeriodEnd:       day(2025, time.December, 31),
		TargetScans:     100,
		TargetReferrals: 40,
		TargetRevenue:   50000,
	}, 99)
	require.NoError(t, err)
	repo.audits = nil // tests below count update audits only
	return created
}

func intPtr(v int) *int { return &v }

func datePtr(t time.Time) *time.Time { return &t }

func TestUpdateTargetVersioningSplitsPeriod(t *testing.T) {
	repo := newMockRepository()
	original := seedTarget(t, repo)
	svc := newTestService(repo)

	effective := day(2025, time.June, 1)
	updated, err := svc.UpdateTarget(context.Background(), original.ID, datePtr(effective), TargetChanges{
		TargetScans: intPtr(150),
	}, 7)
	require.NoError(t, err)

	// Successor covers effectiveDate to the original end with bumped version.
	assert.Equal(t, day(2025, time.June, 1), updated.PeriodStart)
	assert.Equal(t, day(2025, time.December, 31), updated.PeriodEnd)
	assert.Equal(t, 150, updated.TargetScans)
	assert.Equal(t, 40, updated.TargetReferrals, "unchanged fields carry over")
	assert.Equal(t, 2, updated.Version)
	assert.True(t, updated.IsCurrent)

	// Old row is retired, truncated to the previous day, and back-linked.
	old, err := svc.GetTarget(context.Background(), original.ID)
	require.NoError(t, err)
	assert.False(t, old.IsCurrent)
	assert.Equal(t, day(2025, time.May, 31), old.PeriodEnd)
	require.NotNil(t, old.SupersededBy)
	assert.Equal(t, updated.ID, *old.SupersededBy)
	require.NotNil(t, old.SupersededAt)

	// Exactly one current row per key; periods contiguous and spanning.
	userID := original.UserID
	all, err := svc.ListTargets(context.Background(), TargetFilter{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, all, 2)
	currentCount := 0
	for _, row := range all {
		if row.IsCurrent {
			currentCount++
		}
	}
	assert.Equal(t, 1, currentCount)
	assert.Equal(t, old.PeriodEnd.AddDate(0, 0, 1), updated.PeriodStart, "no gap and no overlap at the boundary")

	// One audit record with action superseded and matching snapshots.
	require.Len(t, repo.audits, 1)
	rec := repo.audits[0]
	assert.Equal(t, AuditSuperseded, rec.Action)
	assert.Equal(t, original.ID, rec.TargetID)
	assert.Equal(t, int64(7), rec.ChangedBy)
	assert.Equal(t, "2025-05-31", rec.OldValues["period_end"])
	assert.Equal(t, 150, rec.NewValues["target_scans"])
}

func TestUpdateTargetEarlyUpdateMutatesInPlace(t *testing.T) {
	repo := newMockRepository()
	original := seedTarget(t, repo)
	svc := newTestService(repo)

	// Effective date on the period start: no history to protect.
	updated, err := svc.UpdateTarget(context.Background(), original.ID, datePtr(day(2025, time.January, 1)), TargetChanges{
		TargetScans: intPtr(120),
	}, 7)
	require.NoError(t, err)

	assert.Equal(t, original.ID, updated.ID, "no new row is created")
	assert.Len(t, repo.targets, 1)
	assert.Equal(t, 120, updated.TargetScans)
	assert.Equal(t, 1, updated.Version)
	assert.True(t, updated.IsCurrent)
	assert.Equal(t, original.PeriodEnd, updated.PeriodEnd)

	require.Len(t, repo.audits, 1)
	assert.Equal(t, AuditUpdated, repo.audits[0].Action)
	assert.Equal(t, 100, repo.audits[0].OldValues["target_scans"])
	assert.Equal(t, 120, repo.audits[0].NewValues["target_scans"])
}

func TestUpdateTargetDefaultsEffectiveDateToToday(t *testing.T) {
	repo := newMockRepository()
	original := seedTarget(t, repo)
	svc := newTestService(repo) // now = 2025-03-15

	updated, err := svc.UpdateTarget(context.Background(), original.ID, nil, TargetChanges{
		TargetReferrals: intPtr(60),
	}, 7)
	require.NoError(t, err)
	assert.Equal(t, day(2025, time.March, 15), updated.PeriodStart)
	assert.Equal(t, 2, updated.Version)
}

func TestUpdateTargetNotFound(t *testing.T) {
	svc := newTestService(newMockRepository())
	_, err := svc.UpdateTarget(context.Background(), 404, nil, TargetChanges{TargetScans: intPtr(1)}, 7)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateTargetRejectsEmptyChanges(t *testing.T) {
	repo := newMockRepository()
	original := seedTarget(t, repo)
	svc := newTestService(repo)
	_, err := svc.UpdateTarget(context.Background(), original.ID, nil, TargetChanges{}, 7)
	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, repo.audits)
}

func TestUpdateTargetRejectsEffectiveDateAfterPeriodEnd(t *testing.T) {
	repo := newMockRepository()
	original := seedTarget(t, repo)
	svc := newTestService(repo)
	_, err := svc.UpdateTarget(context.Background(), original.ID, datePtr(day(2026, time.January, 5)), TargetChanges{
		TargetScans: intPtr(1),
	}, 7)
	require.ErrorIs(t, err, ErrValidation)

	// Nothing moved.
	row, err := svc.GetTarget(context.Background(), original.ID)
	require.NoError(t, err)
	assert.True(t, row.IsCurrent)
	assert.Equal(t, day(2025, time.December, 31), row.PeriodEnd)
	assert.Empty(t, repo.audits)
}

func TestUpdateTargetRejectsSupersededVersion(t *testing.T) {
	repo := newMockRepository()
	original := seedTarget(t, repo)
	svc := newTestService(repo)

	_, err := svc.UpdateTarget(context.Background(), original.ID, datePtr(day(2025, time.June, 1)), TargetChanges{
		TargetScans: intPtr(150),
	}, 7)
	require.NoError(t, err)

	// A second update against the retired row must fail.
	_, err = svc.UpdateTarget(context.Background(), original.ID, datePtr(day(2025, time.August, 1)), TargetChanges{
		TargetScans: intPtr(200),
	}, 7)
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateTargetAuditFailureDoesNotFailMutation(t *testing.T) {
	repo := newMockRepository()
	original := seedTarget(t, repo)
	repo.auditError = context.DeadlineExceeded
	svc := newTestService(repo)

	updated, err := svc.UpdateTarget(context.Background(), original.ID, datePtr(day(2025, time.June, 1)), TargetChanges{
		TargetScans: intPtr(150),
	}, 7)
	require.NoError(t, err, "audit failure must not roll back the mutation")
	assert.Equal(t, 150, updated.TargetScans)
}

func TestAuditHistoryNewestFirstAndCapped(t *testing.T) {
	repo := newMockRepository()
	original := seedTarget(t, repo)
	svc := newTestService(repo)

	effective := day(2025, time.February, 1)
	id := original.ID
	for i := 0; i < 3; i++ {
		updated, err := svc.UpdateTarget(context.Background(), id, datePtr(effective), TargetChanges{
			TargetScans: intPtr(110 + i),
		}, 7)
		require.NoError(t, err)
		id = updated.ID
		effective = effective.AddDate(0, 1, 0)
	}

	records, err := svc.AuditHistory(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.True(t, records[0].ID > records[1].ID, "newest first")
}

func TestRecordVisitRequiresReferrer(t *testing.T) {
	svc := newTestService(newMockRepository())
	_, err := svc.RecordVisit(context.Background(), Visit{MLOUserID: 1})
	require.ErrorIs(t, err, ErrValidation)

	visit, err := svc.RecordVisit(context.Background(), Visit{MLOUserID: 1, ReferrerName: "Dr Chen"})
	require.NoError(t, err)
	assert.Equal(t, day(2025, time.March, 15), visit.VisitDate, "defaults to today")
}
