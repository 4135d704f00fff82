// scripts/generate_password.go
package main

import (
	"fmt"
	"os"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
)

// Prints a bcrypt hash for seeding staff accounts by hand, using the
// configured BCRYPT_COST and the login password policy.
func main() {
	log := logger.New(&config.Config{Logging: config.LoggingConfig{Level: "info", Format: "text"}})
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/generate_password.go <password>")
	}
	password := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := auth.ValidatePassword(password); err != nil {
		log.Fatalf("Password rejected: %v", err)
	}

	passwords := auth.NewPasswordManager(cfg)
	hash, err := passwords.HashPassword(password)
	if err != nil {
		log.Fatalf("Error generating hash: %v", err)
	}
	if err := passwords.VerifyPassword(password, hash); err != nil {
		log.Fatalf("Hash verification failed: %v", err)
	}

	fmt.Println(hash)
}
