package rollover

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tradeGate/internal/domain"
	"tradeGate/internal/ports"
)

// DefaultCheckInterval is how often Run looks for a day boundary.
const DefaultCheckInterval = time.Minute

// Resetter is the part of the execution service the rollover drives.
type Resetter interface {
	ListStates(ctx context.Context) ([]domain.TraderRiskState, error)
	ResetDaily(ctx context.Context, identity string) error
}

// Config holds configuration for the DayManager.
type Config struct {
	Location      *time.Location // Trading day boundary; defaults to UTC
	Resetter      Resetter
	Logger        ports.Logger
	CheckInterval time.Duration
	Clock         func() time.Time
}

// DayManager owns the trading-day boundary. It is the only caller of ResetDaily.
type DayManager struct {
	loc      *time.Location
	resetter Resetter
	logger   ports.Logger
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	dayOpen time.Time
}

// NewDayManager creates a DayManager.
func NewDayManager(cfg Config) (*DayManager, error) {
	if cfg.Resetter == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("resetter and logger are required for day manager: %w", ports.ErrConfigurationError)
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &DayManager{
		loc:      loc,
		resetter: cfg.Resetter,
		logger:   cfg.Logger,
		interval: interval,
		now:      clock,
	}, nil
}

// InitAtStartup resets every identity whose state was last touched before
// today's open, so counters from a previous day never survive a restart.
func (dm *DayManager) InitAtStartup(ctx context.Context) (int, error) {
	now := dm.now()
	open := TodayOpen(dm.loc, now)

	dm.mu.Lock()
	dm.dayOpen = open
	dm.mu.Unlock()

	states, err := dm.resetter.ListStates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list states at startup: %w", err)
	}

	var errs []error
	reset := 0
	for _, st := range states {
		if !st.UpdatedAt.Before(open) {
			continue
		}
		if err := dm.resetter.ResetDaily(ctx, st.Identity); err != nil {
			errs = append(errs, err)
			continue
		}
		reset++
	}

	dm.logger.Info(ctx, "Trading day initialized", ports.Fields{
		"dayOpen":  open.Format(time.RFC3339),
		"timezone": dm.loc.String(),
		"reset":    reset,
	})
	return reset, errors.Join(errs...)
}

// RolloverIfNeeded resets every identity when now has crossed into a new
// trading day. It returns true when a rollover happened.
func (dm *DayManager) RolloverIfNeeded(ctx context.Context, now time.Time) (bool, error) {
	dm.mu.Lock()
	if !dm.dayOpen.IsZero() && SameTradingDay(dm.loc, dm.dayOpen, now) {
		dm.mu.Unlock()
		return false, nil
	}
	dm.dayOpen = TodayOpen(dm.loc, now)
	dm.mu.Unlock()

	states, err := dm.resetter.ListStates(ctx)
	if err != nil {
		return true, fmt.Errorf("list states for rollover: %w", err)
	}

	var errs []error
	for _, st := range states {
		if err := dm.resetter.ResetDaily(ctx, st.Identity); err != nil {
			errs = append(errs, err)
		}
	}

	dm.logger.Info(ctx, "New trading day started", ports.Fields{
		"identities": len(states),
		"failed":     len(errs),
		"timezone":   dm.loc.String(),
	})
	return true, errors.Join(errs...)
}

// Run checks for the day boundary until ctx is canceled. Besides the
// periodic check it wakes at the next local open, so counters are reset
// at midnight rather than up to one interval later.
func (dm *DayManager) Run(ctx context.Context) {
	timer := time.NewTimer(dm.nextWait(dm.now()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			dm.logger.Info(ctx, "Day manager stopped")
			return
		case <-timer.C:
			if _, err := dm.RolloverIfNeeded(ctx, dm.now()); err != nil {
				dm.logger.Error(ctx, err, "Daily rollover incomplete")
			}
			timer.Reset(dm.nextWait(dm.now()))
		}
	}
}

// nextWait is the shorter of the check interval and the time left until the
// next open.
func (dm *DayManager) nextWait(now time.Time) time.Duration {
	wait := NextOpen(dm.loc, now).Sub(now)
	if wait <= 0 || wait > dm.interval {
		return dm.interval
	}
	return wait
}
