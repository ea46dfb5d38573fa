package main

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/pkg/logger"
)

const (
	defaultRetentionDays = 30
	sweepInterval        = time.Hour
)

type retentionRepository interface {
	DeleteSettledBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// retentionSweep prunes settled outbox rows at most once per sweepInterval.
type retentionSweep struct {
	logg      *logger.Logger
	db        dbClient
	repo      retentionRepository
	retention int
	now       func() time.Time
	lastRun   time.Time
}

func newRetentionSweep(logg *logger.Logger, db dbClient, repo retentionRepository, retentionDays int) *retentionSweep {
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}
	return &retentionSweep{
		logg:      logg,
		db:        db,
		repo:      repo,
		retention: retentionDays,
		now:       time.Now,
	}
}

// MaybeRun prunes when the previous sweep is older than sweepInterval.
func (j *retentionSweep) MaybeRun(ctx context.Context) error {
	now := j.now()
	if !j.lastRun.IsZero() && now.Sub(j.lastRun) < sweepInterval {
		return nil
	}
	cutoff := now.UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeleteSettledBefore(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.lastRun = now

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}
