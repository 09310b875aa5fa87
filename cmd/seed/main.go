// Seed populates the user directory with sample records for testing.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/glxlabs/chatgate/internal/config"
	"github.com/glxlabs/chatgate/internal/domain"
	"github.com/glxlabs/chatgate/internal/store"
	"github.com/joho/godotenv"
)

var sampleUsers = []*domain.User{
	{
		UserID:     "U1",
		Name:       "Alice Johnson",
		Phone:      "+15551234567",
		ClientCode: "ACME-1001",
		CompanyID:  "acme_corp",
		Email:      "alice@example.com",
		Active:     true,
	},
	{
		UserID:     "U2",
		Name:       "Bob Smith",
		Phone:      "+15559876543",
		ClientCode: "ACME-1002",
		CompanyID:  "acme_corp",
		Email:      "bob@example.com",
		Active:     true,
	},
	{
		UserID:     "U3",
		Name:       "Carol Davis",
		Phone:      "+442071234567",
		ClientCode: "GLX-2001",
		CompanyID:  "globex_inc",
		Email:      "carol@example.com",
		Active:     true,
	},
	{
		UserID:     "U4",
		Name:       "Dan Wilson",
		Phone:      "+919876543210",
		ClientCode: "GLX-2002",
		CompanyID:  "globex_inc",
		Email:      "dan@example.com",
		Active:     true,
	},
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	ctx := context.Background()
	for _, user := range sampleUsers {
		if err := repo.UpsertUser(ctx, user); err != nil {
			slog.Error("Failed to seed user", "user_id", user.UserID, "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Seeded users into the directory", "count", len(sampleUsers), "db", cfg.DBPath)
}
