package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/greenbasket/orderapi/internal/domain"
)

// AccountRepository manages platform accounts
type AccountRepository interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*domain.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) error
}

// ProductRepository reads the catalog
type ProductRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error)
}

// CouponRepository reads discount codes
type CouponRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
}

// OrderRepository manages orders and their item snapshots
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order, items []*domain.OrderItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error)
	GetItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, reason *string) error
	AssignPartner(ctx context.Context, id uuid.UUID, partnerID uuid.UUID) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Order, error)
	ListByPartner(ctx context.Context, partnerID uuid.UUID, limit, offset int) ([]*domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Order, error)
}

// OrderEventRepository appends audit events
type OrderEventRepository interface {
	Create(ctx context.Context, event *domain.OrderEvent) error
}

// Repositories bundles every repository implementation
type Repositories struct {
	Account    AccountRepository
	Product    ProductRepository
	Coupon     CouponRepository
	Order      OrderRepository
	OrderEvent OrderEventRepository
}
