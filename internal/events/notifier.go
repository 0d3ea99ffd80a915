package events

import (
	"context"

	"go.uber.org/zap"
)

// AdminNotifier consumes the order lifecycle feed on behalf of the
// operations dashboard.
type AdminNotifier struct {
	bus    Bus
	logger *zap.Logger
}

func NewAdminNotifier(bus Bus, logger *zap.Logger) *AdminNotifier {
	return &AdminNotifier{
		bus:    bus,
		logger: logger,
	}
}

// Run blocks until ctx is cancelled, logging every lifecycle event for the
// ops feed. The subscription is torn down on exit.
func (n *AdminNotifier) Run(ctx context.Context) error {
	ch, cancel, err := n.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			n.logger.Info("Order event",
				zap.String("type", event.Type),
				zap.String("order_id", event.OrderID),
				zap.String("status", event.Status),
				zap.String("reason", event.Reason),
				zap.String("customer", event.Customer),
				zap.Float64("total_price", event.TotalPrice),
			)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
