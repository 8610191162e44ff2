package mlo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// AttainmentReader serves target-vs-actuals summaries for the dashboard.
// Results are cached briefly in redis and concurrent recomputes for the same
// user collapse through singleflight, since the dashboard fans out one
// request per widget.
type AttainmentReader struct {
	service *Service
	cache   *redis.Client
	ttl     time.Duration
	group   singleflight.Group
}

// NewAttainmentReader constructs an AttainmentReader. cache may be nil.
func NewAttainmentReader(service *Service, cache *redis.Client, ttl time.Duration) *AttainmentReader {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AttainmentReader{service: service, cache: cache, ttl: ttl}
}

// Summary returns attainment for every current target of one user.
func (a *AttainmentReader) Summary(ctx context.Context, userID int64) ([]Attainment, error) {
	key := fmt.Sprintf("mlo:attainment:%d", userID)
	if a.cache != nil {
		payload, err := a.cache.Get(ctx, key).Bytes()
		if err == nil {
			var cached []Attainment
			if err := json.Unmarshal(payload, &cached); err == nil {
				return cached, nil
			}
		} else if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	result, err, _ := a.group.Do(key, func() (any, error) {
		return a.compute(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	summaries := result.([]Attainment)

	if a.cache != nil {
		if payload, err := json.Marshal(summaries); err == nil {
			_ = a.cache.Set(ctx, key, payload, a.ttl).Err()
		}
	}
	return summaries, nil
}

// Invalidate drops the cached summary for one user.
func (a *AttainmentReader) Invalidate(ctx context.Context, userID int64) {
	if a.cache == nil {
		return
	}
	_ = a.cache.Del(ctx, fmt.Sprintf("mlo:attainment:%d", userID)).Err()
}

func (a *AttainmentReader) compute(ctx context.Context, userID int64) ([]Attainment, error) {
	targets, err := a.service.ListTargets(ctx, TargetFilter{UserID: &userID, CurrentOnly: true})
	if err != nil {
		return nil, err
	}
	summaries := make([]Attainment, 0, len(targets))
	for _, t := range targets {
		scans, referrals, revenue, err := a.service.repo.ActualsForTarget(ctx, t)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, Attainment{
			Target:          t,
			ActualScans:     scans,
			ActualReferrals: referrals,
			ActualRevenue:   revenue,
		})
	}
	return summaries, nil
}
