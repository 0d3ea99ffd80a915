package tracking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/domain"
	apperrors "github.com/greenbasket/orderapi/pkg/errors"
)

type memLocations struct {
	mu        sync.RWMutex
	locations map[uuid.UUID]domain.PartnerLocation
}

func newMemLocations() *memLocations {
	return &memLocations{locations: make(map[uuid.UUID]domain.PartnerLocation)}
}

func (s *memLocations) Set(_ context.Context, partnerID uuid.UUID, lat, lng float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[partnerID] = domain.PartnerLocation{Latitude: lat, Longitude: lng, UpdatedAt: time.Now()}
	return nil
}

func (s *memLocations) Get(_ context.Context, partnerID uuid.UUID) (*domain.PartnerLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.locations[partnerID]
	if !ok {
		return nil, &apperrors.ErrNotFound{Resource: "partner location", ID: partnerID.String()}
	}
	return &loc, nil
}

type stubGeocoder struct {
	mu     sync.Mutex
	calls  int
	coords Coordinates
	err    error
}

func (g *stubGeocoder) Geocode(_ context.Context, _ domain.Address) (*Coordinates, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	c := g.coords
	return &c, nil
}

func (g *stubGeocoder) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type stubOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]domain.Order
}

func (r *stubOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, &apperrors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	return &o, nil
}

func (r *stubOrderRepo) setStatus(id uuid.UUID, status domain.OrderStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.orders[id]
	o.Status = status
	r.orders[id] = o
}

func (r *stubOrderRepo) Create(_ context.Context, _ *domain.Order, _ []*domain.OrderItem) error {
	return nil
}

func (r *stubOrderRepo) GetByGatewayOrderID(_ context.Context, id string) (*domain.Order, error) {
	return nil, &apperrors.ErrNotFound{Resource: "order", ID: id}
}

func (r *stubOrderRepo) GetItems(_ context.Context, _ uuid.UUID) ([]*domain.OrderItem, error) {
	return nil, nil
}

func (r *stubOrderRepo) UpdateStatus(_ context.Context, _ uuid.UUID, _ domain.OrderStatus, _ *string) error {
	return nil
}

func (r *stubOrderRepo) AssignPartner(_ context.Context, _ uuid.UUID, _ uuid.UUID) error {
	return nil
}

func (r *stubOrderRepo) ListByAccount(_ context.Context, _ uuid.UUID, _, _ int) ([]*domain.Order, error) {
	return nil, nil
}

func (r *stubOrderRepo) ListByPartner(_ context.Context, _ uuid.UUID, _, _ int) ([]*domain.Order, error) {
	return nil, nil
}

func (r *stubOrderRepo) ListByStatus(_ context.Context, _ domain.OrderStatus, _, _ int) ([]*domain.Order, error) {
	return nil, nil
}

func (r *stubOrderRepo) List(_ context.Context, _, _ int) ([]*domain.Order, error) {
	return nil, nil
}

type trackerFixture struct {
	tracker   *Tracker
	locations *memLocations
	geocoder  *stubGeocoder
	orders    *stubOrderRepo
	orderID   uuid.UUID
	partnerID uuid.UUID
}

func newTrackerFixture(status domain.OrderStatus, assigned bool) *trackerFixture {
	f := &trackerFixture{
		locations: newMemLocations(),
		geocoder:  &stubGeocoder{coords: Coordinates{Latitude: 12.9716, Longitude: 77.5946}},
		orders:    &stubOrderRepo{orders: make(map[uuid.UUID]domain.Order)},
		orderID:   uuid.New(),
		partnerID: uuid.New(),
	}

	order := domain.Order{
		ID:     f.orderID,
		Status: status,
		DeliveryAddress: domain.Address{
			Street: "12 MG Road", City: "Bengaluru", PostalCode: "560001",
		},
	}
	if assigned {
		order.DeliveryPartnerID = &f.partnerID
	}
	f.orders.orders[f.orderID] = order

	f.tracker = NewTracker(f.locations, f.geocoder, f.orders, zap.NewNop())
	return f
}

func TestSnapshotRejectsNonTrackableOrder(t *testing.T) {
	ctx := context.Background()

	for _, status := range []domain.OrderStatus{
		domain.OrderStatusPending, domain.OrderStatusConfirmed,
		domain.OrderStatusDelivered, domain.OrderStatusCancelled,
	} {
		f := newTrackerFixture(status, true)
		_, err := f.tracker.Snapshot(ctx, f.orderID)
		assert.IsType(t, &apperrors.ErrConflict{}, err, "status %s", status)
	}
}

func TestSnapshotRequiresAssignedPartner(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(domain.OrderStatusPicked, false)

	_, err := f.tracker.Snapshot(ctx, f.orderID)
	assert.IsType(t, &apperrors.ErrConflict{}, err)
}

func TestSnapshotComputesDistanceAndEta(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(domain.OrderStatusArriving, true)

	// Partner roughly 5km north of the destination
	require.NoError(t, f.locations.Set(ctx, f.partnerID, 13.0161, 77.5946))

	snap, err := f.tracker.Snapshot(ctx, f.orderID)
	require.NoError(t, err)

	require.NotNil(t, snap.PartnerLocation)
	require.NotNil(t, snap.Destination)
	require.NotNil(t, snap.DistanceKm)
	require.NotNil(t, snap.EtaMinutes)

	assert.InDelta(t, 5.0, *snap.DistanceKm, 0.1)
	// 5km at 25km/h is 12 minutes
	assert.Equal(t, 12, *snap.EtaMinutes)
}

func TestSnapshotToleratesMissingLocation(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(domain.OrderStatusPicked, true)

	snap, err := f.tracker.Snapshot(ctx, f.orderID)
	require.NoError(t, err)

	assert.Nil(t, snap.PartnerLocation)
	assert.NotNil(t, snap.Destination)
	assert.Nil(t, snap.DistanceKm)
	assert.Nil(t, snap.EtaMinutes)
	assert.Equal(t, domain.OrderStatusPicked, snap.Status)
}

func TestSnapshotDegradesOnGeocodeFailure(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(domain.OrderStatusPicked, true)
	f.geocoder.err = &apperrors.ErrUpstreamUnavailable{Service: "geocoder"}

	require.NoError(t, f.locations.Set(ctx, f.partnerID, 12.97, 77.59))

	snap, err := f.tracker.Snapshot(ctx, f.orderID)
	require.NoError(t, err)

	assert.NotNil(t, snap.PartnerLocation)
	assert.Nil(t, snap.Destination)
	assert.Nil(t, snap.EtaMinutes)
}

func TestDestinationGeocodedOncePerOrder(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(domain.OrderStatusPicked, true)

	for i := 0; i < 3; i++ {
		_, err := f.tracker.Snapshot(ctx, f.orderID)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, f.geocoder.callCount())
}

func TestFeedStopsWhenOrderLeavesTrackableState(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(domain.OrderStatusDelivered, true)

	feed := NewFeed(f.tracker, f.orderID, 10*time.Millisecond, zap.NewNop())
	go feed.Run(ctx)

	// The first poll hits the conflict and the feed closes its stream
	select {
	case _, ok := <-feed.Snapshots():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("feed did not stop")
	}
}

func TestFeedDeliversSnapshotsUntilStopped(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(domain.OrderStatusPicked, true)
	require.NoError(t, f.locations.Set(ctx, f.partnerID, 12.97, 77.59))

	feed := NewFeed(f.tracker, f.orderID, 10*time.Millisecond, zap.NewNop())
	go feed.Run(ctx)

	select {
	case snap, ok := <-feed.Snapshots():
		require.True(t, ok)
		assert.Equal(t, f.orderID, snap.OrderID)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	feed.Stop()

	// The stream closes after Stop
	for {
		select {
		case _, ok := <-feed.Snapshots():
			if !ok {
				return
			}
		case <-time.After(time.Second):
			t.Fatal("stream did not close")
		}
	}
}

func TestFeedStopRightAfterStartIsSafe(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(domain.OrderStatusPicked, true)

	// Stop races the first poll; whichever wins, Stop returns and the
	// stream ends closed
	feed := NewFeed(f.tracker, f.orderID, time.Hour, zap.NewNop())
	go feed.Run(ctx)
	feed.Stop()
	feed.Stop()

	for {
		select {
		case _, ok := <-feed.Snapshots():
			if !ok {
				return
			}
		case <-time.After(time.Second):
			t.Fatal("stream did not close")
		}
	}
}

func TestFeedKeepsPollingThroughTransientErrors(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(domain.OrderStatusPicked, true)

	// Geocode failures are transient; the feed keeps serving degraded
	// snapshots rather than dying
	f.geocoder.err = &apperrors.ErrUpstreamUnavailable{Service: "geocoder"}

	feed := NewFeed(f.tracker, f.orderID, 10*time.Millisecond, zap.NewNop())
	go feed.Run(ctx)
	defer feed.Stop()

	select {
	case snap, ok := <-feed.Snapshots():
		require.True(t, ok)
		assert.Nil(t, snap.Destination)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}
