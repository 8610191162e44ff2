package cpd

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	activities []Activity
	nextID     int64
}

func (r *stubRepo) Insert(_ context.Context, a Activity) (Activity, error) {
	r.nextID++
	a.ID = r.nextID
	a.CreatedAt = time.Now()
	r.activities = append(r.activities, a)
	return a, nil
}

func (r *stubRepo) ListByUser(_ context.Context, userID int64, year int) ([]Activity, error) {
	var out []Activity
	for _, a := range r.activities {
		if a.UserID == userID && a.ActivityDate.Year() == year {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *stubRepo) Delete(_ context.Context, id, userID int64) error {
	for i, a := range r.activities {
		if a.ID == id && a.UserID == userID {
			r.activities = append(r.activities[:i], r.activities[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *stubRepo) Get(_ context.Context, id int64) (Activity, error) {
	for _, a := range r.activities {
		if a.ID == id {
			return a, nil
		}
	}
	return Activity{}, ErrNotFound
}

func newTestService(repo *stubRepo) *Service {
	svc := NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time {
		return time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestLogRejectsUnknownCategory(t *testing.T) {
	svc := newTestService(&stubRepo{})
	_, err := svc.Log(context.Background(), Activity{UserID: 1, Category: "nap", Hours: 2})
	require.ErrorIs(t, err, ErrValidation)
}

func TestLogRejectsFutureDate(t *testing.T) {
	svc := newTestService(&stubRepo{})
	_, err := svc.Log(context.Background(), Activity{
		UserID:       1,
		Category:     "course",
		Hours:        2,
		ActivityDate: time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestLogDefaultsDateToToday(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo)
	created, err := svc.Log(context.Background(), Activity{UserID: 1, Category: "course", Hours: 2})
	require.NoError(t, err)
	require.Equal(t, 2025, created.ActivityDate.Year())
	require.Equal(t, time.June, created.ActivityDate.Month())
}

func TestSummaryAggregatesByCategory(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo)
	ctx := context.Background()

	for _, a := range []Activity{
		{UserID: 1, Category: "course", Hours: 3, ActivityDate: time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)},
		{UserID: 1, Category: "course", Hours: 2, ActivityDate: time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC)},
		{UserID: 1, Category: "audit", Hours: 1.5, ActivityDate: time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC)},
		{UserID: 2, Category: "course", Hours: 8, ActivityDate: time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC)},
	} {
		_, err := svc.Log(ctx, a)
		require.NoError(t, err)
	}

	summary, err := svc.Summary(ctx, 1, 0)
	require.NoError(t, err)
	require.Equal(t, 2025, summary.Year)
	require.Equal(t, 3, summary.Entries)
	require.InDelta(t, 6.5, summary.TotalHours, 0.001)
	require.InDelta(t, 5, summary.ByCategory["course"], 0.001)
	require.InDelta(t, 1.5, summary.ByCategory["audit"], 0.001)
}

func TestRemoveOnlyOwnActivities(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo)
	ctx := context.Background()

	created, err := svc.Log(ctx, Activity{UserID: 1, Category: "course", Hours: 2})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Remove(ctx, created.ID, 2), ErrNotFound)
	require.NoError(t, svc.Remove(ctx, created.ID, 1))
}
