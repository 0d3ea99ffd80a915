package tracking

import (
	"context"
	"math"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/greenbasket/orderapi/internal/domain"
	"github.com/greenbasket/orderapi/internal/repository"
	apperrors "github.com/greenbasket/orderapi/pkg/errors"
)

// Average courier speed used for the ETA estimate, in km/h
const averageSpeedKmh = 25.0

// Snapshot is one tick of the live tracking view. Destination and ETA are
// optional: a geocoder outage degrades the view to location-only instead
// of failing it.
type Snapshot struct {
	OrderID         uuid.UUID               `json:"orderId"`
	Status          domain.OrderStatus      `json:"status"`
	PartnerLocation *domain.PartnerLocation `json:"partnerLocation,omitempty"`
	Destination     *Coordinates            `json:"destination,omitempty"`
	DistanceKm      *float64                `json:"distanceKm,omitempty"`
	EtaMinutes      *int                    `json:"etaMinutes,omitempty"`
}

// Tracker assembles tracking snapshots for orders that are out for
// delivery. Destinations are geocoded once per order and cached for the
// viewing session, not re-geocoded on every poll.
type Tracker struct {
	locations LocationStore
	geocoder  Geocoder
	orders    repository.OrderRepository
	sfg       singleflight.Group // dedupes concurrent geocodes per order
	mu        sync.RWMutex
	geocache  map[uuid.UUID]Coordinates
	logger    *zap.Logger
}

func NewTracker(locations LocationStore, geocoder Geocoder, orders repository.OrderRepository, logger *zap.Logger) *Tracker {
	return &Tracker{
		locations: locations,
		geocoder:  geocoder,
		orders:    orders,
		geocache:  make(map[uuid.UUID]Coordinates),
		logger:    logger,
	}
}

// Snapshot returns the current tracking state for an order in a trackable
// state with an assigned partner.
func (t *Tracker) Snapshot(ctx context.Context, orderID uuid.UUID) (*Snapshot, error) {
	order, err := t.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.Status.IsTrackable() {
		return nil, &apperrors.ErrConflict{Message: "order is not out for delivery"}
	}
	if order.DeliveryPartnerID == nil {
		return nil, &apperrors.ErrConflict{Message: "no delivery partner assigned to this order"}
	}

	snap := &Snapshot{
		OrderID: order.ID,
		Status:  order.Status,
	}

	loc, err := t.locations.Get(ctx, *order.DeliveryPartnerID)
	if err != nil {
		if _, ok := err.(*apperrors.ErrNotFound); !ok {
			return nil, err
		}
		// Partner hasn't reported a position yet; the view shows the
		// status without a pin
	} else {
		snap.PartnerLocation = loc
	}

	dest, err := t.destination(ctx, order)
	if err != nil {
		// Route failures are non-fatal: degrade to location only
		t.logger.Warn("Geocoding failed, serving location-only view",
			zap.String("order_id", order.ID.String()), zap.Error(err))
	} else {
		snap.Destination = dest
	}

	if snap.PartnerLocation != nil && snap.Destination != nil {
		km := haversineKm(
			snap.PartnerLocation.Latitude, snap.PartnerLocation.Longitude,
			snap.Destination.Latitude, snap.Destination.Longitude,
		)
		eta := int(math.Ceil(km / averageSpeedKmh * 60))
		snap.DistanceKm = &km
		snap.EtaMinutes = &eta
	}

	return snap, nil
}

func (t *Tracker) destination(ctx context.Context, order *domain.Order) (*Coordinates, error) {
	t.mu.RLock()
	cached, ok := t.geocache[order.ID]
	t.mu.RUnlock()
	if ok {
		return &cached, nil
	}

	v, err, _ := t.sfg.Do(order.ID.String(), func() (interface{}, error) {
		coords, err := t.geocoder.Geocode(ctx, order.DeliveryAddress)
		if err != nil {
			return nil, err
		}

		t.mu.Lock()
		t.geocache[order.ID] = *coords
		t.mu.Unlock()

		return coords, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Coordinates), nil
}

// haversineKm is the great-circle distance between two points
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0

	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
