package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iamyinka/reliefproj/internal/domain"
	"github.com/iamyinka/reliefproj/internal/repository"

	"go.uber.org/zap"
)

// StatsService daily activity rollups
type StatsService struct {
	stats  repository.StatsRepository
	loc    *time.Location
	logger *zap.Logger
	now    Clock
}

func NewStatsService(stats repository.StatsRepository, loc *time.Location, logger *zap.Logger) *StatsService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsService{stats: stats, loc: loc, logger: logger, now: systemClock}
}

func (s *StatsService) SetClock(c Clock) { s.now = c }

// Daily computes live counters for the local calendar day containing day.
func (s *StatsService) Daily(ctx context.Context, day time.Time) (*domain.DailyStats, error) {
	from := domain.Day(day, s.loc)
	st, err := s.stats.ComputeDailyStats(ctx, from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats for %s: %w", domain.DateString(from), err)
	}
	st.Date = from
	return st, nil
}

// Stored returns the last snapshot for day, if one was taken.
func (s *StatsService) Stored(ctx context.Context, day time.Time) (*domain.DailyStats, error) {
	return s.stats.GetDailyStats(ctx, domain.Day(day, s.loc))
}

// DailyOrStored serves past days from their snapshot and today live.
func (s *StatsService) DailyOrStored(ctx context.Context, day time.Time) (*domain.DailyStats, error) {
	if domain.Day(day, s.loc).Before(domain.Day(s.now(), s.loc)) {
		st, err := s.Stored(ctx, day)
		if err == nil {
			return st, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return s.Daily(ctx, day)
}

// Snapshot recomputes today's row and stores it; run by the stats cron job.
func (s *StatsService) Snapshot(ctx context.Context) (*domain.DailyStats, error) {
	now := s.now()
	st, err := s.Daily(ctx, now)
	if err != nil {
		return nil, err
	}
	st.UpdatedAt = now
	if err := s.stats.UpsertDailyStats(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to store stats for %s: %w", domain.DateString(st.Date), err)
	}
	s.logger.Info("Daily stats snapshot stored",
		zap.String("date", domain.DateString(st.Date)),
		zap.Int("submitted", st.ApplicationsSubmitted),
		zap.Int("picked_up", st.PackagesPickedUp),
	)
	return st, nil
}
