package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/greenbasket/orderapi/internal/domain"
	"github.com/greenbasket/orderapi/pkg/errors"
)

type accountRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *sql.DB, logger *zap.Logger) *accountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *accountRepository) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Account, error) {
	// Since bcrypt hashes are salted and different each time, we can't do a
	// direct lookup. We iterate through active accounts and verify the key
	// against each hash. For production scale, add a SHA256 lookup_hash
	// column for efficient lookup.

	query := `
		SELECT id, name, phone, role, api_key_hash, is_active, created_at, updated_at
		FROM accounts
		WHERE is_active = true
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query accounts", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var account domain.Account

		err := rows.Scan(
			&account.ID,
			&account.Name,
			&account.Phone,
			&account.Role,
			&account.APIKeyHash,
			&account.IsActive,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			continue
		}

		// Verify API key against stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(account.APIKeyHash), []byte(apiKey)); err == nil {
			return &account, nil
		}
	}

	return nil, &errors.ErrUnauthorized{Message: "invalid API key"}
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `
		SELECT id, name, phone, role, api_key_hash, is_active, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	var account domain.Account

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.Name,
		&account.Phone,
		&account.Role,
		&account.APIKeyHash,
		&account.IsActive,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "account", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get account by ID", zap.Error(err))
		return nil, err
	}

	return &account, nil
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, name, phone, role, api_key_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	now := time.Now()
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, query,
		account.ID,
		account.Name,
		account.Phone,
		account.Role,
		account.APIKeyHash,
		account.IsActive,
		account.CreatedAt,
		account.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create account", zap.Error(err))
		return err
	}

	return nil
}
