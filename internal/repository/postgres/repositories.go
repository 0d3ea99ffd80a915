package postgres

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/repository"
)

// NewRepositories wires every Postgres-backed repository
func NewRepositories(db *sql.DB, logger *zap.Logger) *repository.Repositories {
	return &repository.Repositories{
		Account:    NewAccountRepository(db, logger),
		Product:    NewProductRepository(db, logger),
		Coupon:     NewCouponRepository(db, logger),
		Order:      NewOrderRepository(db, logger),
		OrderEvent: NewOrderEventRepository(db, logger),
	}
}
