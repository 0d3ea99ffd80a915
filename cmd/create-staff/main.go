package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/config"
	"github.com/greenbasket/orderapi/internal/domain"
	"github.com/greenbasket/orderapi/internal/repository/postgres"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: go run cmd/create-staff/main.go <role> <name> <api-key>")
		fmt.Println("Roles: CUSTOMER, BUSINESS, ADMIN, DELIVERY_PARTNER")
		fmt.Println("Example: go run cmd/create-staff/main.go ADMIN \"Ops Team\" \"ops-api-key-12345\"")
		os.Exit(1)
	}

	role := domain.Role(os.Args[1])
	name := os.Args[2]
	apiKey := os.Args[3]

	if !role.IsValid() {
		fmt.Fprintf(os.Stderr, "Invalid role %q\n", os.Args[1])
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	apiKeyHash, err := bcrypt.GenerateFromPassword([]byte(apiKey), 10)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash API key: %v\n", err)
		os.Exit(1)
	}

	repos := postgres.NewRepositories(db, logger)

	account := &domain.Account{
		Name:       name,
		Role:       role,
		APIKeyHash: string(apiKeyHash),
		IsActive:   true,
	}

	if err := repos.Account.Create(context.Background(), account); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create account: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Account created successfully!\n\n")
	fmt.Printf("Account ID: %s\n", account.ID.String())
	fmt.Printf("Name: %s\n", account.Name)
	fmt.Printf("Role: %s\n", account.Role)
	fmt.Printf("API Key: %s\n", apiKey)
	fmt.Printf("\n⚠️  IMPORTANT: Save this API key securely! You won't be able to see it again.\n")
	fmt.Printf("\nUse this API key in the Authorization header:\n")
	fmt.Printf("Authorization: Bearer %s\n", apiKey)
}
