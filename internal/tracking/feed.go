package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/greenbasket/orderapi/pkg/errors"
)

// DefaultFeedInterval is how often the live feed re-polls the partner
// position.
const DefaultFeedInterval = 30 * time.Second

// Feed is a cancellable polling loop over Tracker.Snapshot. It is created
// when a tracking view opens and must be stopped when the view goes away;
// it also stops itself once the order leaves a trackable state or the
// session is no longer authorized.
type Feed struct {
	tracker  *Tracker
	orderID  uuid.UUID
	interval time.Duration
	out      chan *Snapshot
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	logger   *zap.Logger
}

func NewFeed(tracker *Tracker, orderID uuid.UUID, interval time.Duration, logger *zap.Logger) *Feed {
	if interval <= 0 {
		interval = DefaultFeedInterval
	}
	return &Feed{
		tracker:  tracker,
		orderID:  orderID,
		interval: interval,
		out:      make(chan *Snapshot, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Snapshots is the stream of tracking updates. Closed when the feed stops.
func (f *Feed) Snapshots() <-chan *Snapshot {
	return f.out
}

// Run polls until the context is cancelled, Stop is called, or a
// terminal condition is reached. An authorization failure mid-poll stops
// the feed instead of silently retrying forever.
func (f *Feed) Run(ctx context.Context) {
	defer close(f.done)
	defer close(f.out)

	select {
	case <-f.stop:
		return
	case <-ctx.Done():
		return
	default:
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	// First snapshot immediately so the view isn't blank for a full tick
	if !f.poll(ctx) {
		return
	}

	for {
		select {
		case <-ticker.C:
			if !f.poll(ctx) {
				return
			}
		case <-f.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop signals the loop and waits for it to exit. Safe to call from any
// goroutine, any number of times, but Run must have been started or Stop
// blocks on a loop that never ran.
func (f *Feed) Stop() {
	f.stopOnce.Do(func() { close(f.stop) })
	<-f.done
}

func (f *Feed) poll(ctx context.Context) bool {
	snap, err := f.tracker.Snapshot(ctx, f.orderID)
	if err != nil {
		switch err.(type) {
		case *apperrors.ErrUnauthorized:
			f.logger.Warn("Tracking session no longer authorized, stopping feed",
				zap.String("order_id", f.orderID.String()))
			return false
		case *apperrors.ErrConflict:
			// Order reached a non-trackable (terminal or pre-pickup) state
			f.logger.Info("Order left trackable state, stopping feed",
				zap.String("order_id", f.orderID.String()))
			return false
		default:
			// Transient failure; keep the loop alive and try next tick
			f.logger.Warn("Tracking poll failed", zap.Error(err))
			return true
		}
	}

	select {
	case f.out <- snap:
	default:
		// Consumer hasn't drained the previous snapshot; replace it
		select {
		case <-f.out:
		default:
		}
		f.out <- snap
	}

	return true
}
