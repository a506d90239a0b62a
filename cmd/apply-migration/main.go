package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/iamyinka/reliefproj/internal/common/database"
	"github.com/iamyinka/reliefproj/internal/config"
	"github.com/iamyinka/reliefproj/internal/repository"

	"github.com/joho/godotenv"
)

// Usage:
//
//	apply-migration                 apply the embedded migrations
//	apply-migration <file.sql>      apply one file statement by statement
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Connected to database: %s\n\n", cfg.Database.Database)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if len(os.Args) < 2 {
		names, err := repository.MigrationNames()
		if err != nil {
			log.Fatalf("Failed to list migrations: %v", err)
		}
		for _, name := range names {
			fmt.Printf("Applying %s\n", name)
		}
		if err := repository.Migrate(ctx, db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		fmt.Println("✅ Migrations applied successfully!")
		return
	}

	sqlContent, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to read migration file: %v", err)
	}

	statements := strings.Split(string(sqlContent), ";")
	for i, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || strings.HasPrefix(stmt, "--") {
			continue
		}
		fmt.Printf("Executing statement %d/%d...\n", i+1, len(statements))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Fatalf("Failed to execute statement %d: %v\nStatement: %s", i+1, err, stmt[:min(100, len(stmt))])
		}
	}

	fmt.Println("✅ Migration completed successfully!")
}
