package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/pkg/logger"
)

type fakeRetentionRepo struct {
	cutoffs []time.Time
	deleted int64
	err     error
}

func (f *fakeRetentionRepo) DeleteSettledBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.deleted, f.err
}

func TestRetentionSweepRunsOncePerInterval(t *testing.T) {
	repo := &fakeRetentionRepo{deleted: 4}
	sweep := newRetentionSweep(logger.Nop(), &fakeDB{}, repo, 7)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sweep.now = func() time.Time { return now }

	if err := sweep.MaybeRun(context.Background()); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if len(repo.cutoffs) != 1 {
		t.Fatalf("expected one sweep, got %d", len(repo.cutoffs))
	}
	if want := now.Add(-7 * 24 * time.Hour); !repo.cutoffs[0].Equal(want) {
		t.Fatalf("cutoff = %s, want %s", repo.cutoffs[0], want)
	}

	now = now.Add(10 * time.Minute)
	if err := sweep.MaybeRun(context.Background()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(repo.cutoffs) != 1 {
		t.Fatalf("expected sweep skipped inside interval, got %d", len(repo.cutoffs))
	}

	now = now.Add(sweepInterval)
	if err := sweep.MaybeRun(context.Background()); err != nil {
		t.Fatalf("third sweep: %v", err)
	}
	if len(repo.cutoffs) != 2 {
		t.Fatalf("expected sweep after interval, got %d", len(repo.cutoffs))
	}
}

func TestRetentionSweepRetriesAfterFailure(t *testing.T) {
	repo := &fakeRetentionRepo{err: errors.New("locked")}
	sweep := newRetentionSweep(logger.Nop(), &fakeDB{}, repo, 0)

	if err := sweep.MaybeRun(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if sweep.retention != defaultRetentionDays {
		t.Fatalf("expected default retention, got %d", sweep.retention)
	}
	repo.err = nil
	if err := sweep.MaybeRun(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(repo.cutoffs) != 2 {
		t.Fatalf("expected failed sweep not to count, got %d", len(repo.cutoffs))
	}
}
