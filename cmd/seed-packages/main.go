package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/iamyinka/reliefproj/internal/common/database"
	"github.com/iamyinka/reliefproj/internal/config"
	"github.com/iamyinka/reliefproj/internal/repository"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	outcomes, err := repository.SeedPackages(ctx, repository.NewPostgresPackagesRepository(db))
	for _, o := range outcomes {
		if o.Created {
			fmt.Printf("✅ %s created (id=%d)\n", o.Type, o.ID)
		} else {
			fmt.Printf("⏭  %s already present (id=%d)\n", o.Type, o.ID)
		}
	}
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
