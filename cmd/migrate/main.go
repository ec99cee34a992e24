package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"instoo/config"
	"instoo/internal/domain/user"
	"instoo/internal/repository"
	"instoo/internal/services"
	"instoo/pkg/database"
)

const usage = `
Instoo - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Create the schema and apply extra SQL migrations
  status      Show database connection status and table sizes
  seed-dev    Seed development users and streamers, print their access tokens
  truncate    Truncate all tables (DANGEROUS)

Flags:
  -migrations string   Path to extra SQL migrations (default "migrations")

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go seed-dev
`

func main() {
	migrationsDir := flag.String("migrations", "migrations", "Path to migrations directory")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg := config.LoadConfig()
	if _, err := database.Connect(cfg); err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch command {
	case "up":
		runMigrationsUp(ctx, *migrationsDir)
	case "status":
		showStatus()
	case "seed-dev":
		runSeedDevelopment(ctx, cfg)
	case "truncate":
		runTruncate()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp(ctx context.Context, migrationsDir string) {
	log.Println("🚀 Running migrations UP...")

	if err := database.Migrate(ctx, migrationsDir); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	log.Println("✅ Migrations completed successfully!")
}

func showStatus() {
	log.Println("🔍 Checking database status...")

	if err := database.Ping(); err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	log.Println("✅ Database connection: OK")

	for _, table := range repository.Tables {
		exists, err := database.TableExists(table)
		if err != nil {
			log.Printf("⚠️  Error checking table %s: %v", table, err)
			continue
		}
		if exists {
			count, _ := database.GetTableCount(table)
			log.Printf("✅ Table %-28s exists (%d rows)", table, count)
		} else {
			log.Printf("❌ Table %-28s does not exist", table)
		}
	}

	if err := database.HealthCheck(); err != nil {
		log.Printf("⚠️  Health check warning: %v", err)
	} else {
		log.Println("✅ Health check: PASSED")
	}
}

func runSeedDevelopment(ctx context.Context, cfg *config.Config) {
	log.Println("🌱 Seeding database (development mode)...")

	result, err := database.SeedDevelopment(ctx)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	auth := services.NewAuthService(repository.NewStore(database.DB).Users(), cfg.JWTSecret, cfg.JWTAccessTTL)

	log.Println("📊 Seed Summary:")
	for _, u := range append([]user.User{result.AdminUser}, result.TestUsers...) {
		token, _, err := auth.IssueAccessToken(u)
		if err != nil {
			log.Fatalf("❌ Token issue failed: %v", err)
		}
		log.Printf("   - %-8s %-6s %s", u.Nickname, u.Role, u.UUID)
		log.Printf("     token: %s", token)
	}
	for _, s := range result.Streamers {
		log.Printf("   - streamer %-8s verified=%t %s", s.Name, s.IsVerified, s.UUID)
	}
	log.Println("✅ Development seeding completed!")
}

func runTruncate() {
	log.Println("⚠️  WARNING: This will TRUNCATE all tables!")

	if err := database.TruncateAllTables(); err != nil {
		log.Fatalf("❌ Truncate failed: %v", err)
	}

	log.Println("✅ All tables truncated!")
}
