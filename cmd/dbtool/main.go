package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"tour-synthesis-service/internal/adapters/repositories"
	"tour-synthesis-service/internal/config"
	"tour-synthesis-service/internal/platform/db"
)

func main() {
	log.SetPrefix("[DBTOOL] ")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	dialect, err := db.ParseDialect(config.Get("TOURGEN_DB_DRIVER", "sqlite"))
	if err != nil {
		log.Fatal(err)
	}

	var sqlDB *sql.DB
	if dialect == db.DialectPostgres {
		databaseURL := os.Getenv("TOURGEN_DATABASE_URL")
		if strings.TrimSpace(databaseURL) == "" {
			log.Fatal("TOURGEN_DATABASE_URL is required")
		}
		sqlDB, err = db.Open(databaseURL)
	} else {
		dbPath := config.Get("TOURGEN_DB_PATH", "data/places.db")
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			log.Fatal(err)
		}
		sqlDB, err = db.OpenSqlite(dbPath)
	}
	if err != nil {
		log.Fatal(err)
	}
	defer sqlDB.Close()

	seedPath := config.Get("TOURGEN_SEED_PATH", "data/seeds/places.json")
	if err := initAndSeed(context.Background(), sqlDB, dialect, seedPath); err != nil {
		log.Fatal(err)
	}
}

func initAndSeed(ctx context.Context, sqlDB *sql.DB, dialect db.Dialect, seedPath string) error {
	log.Println("Initializing database schema...")
	if err := repositories.InitSchema(ctx, sqlDB, dialect); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	log.Println("Seeding places...")
	n, err := repositories.SeedFromJSON(ctx, sqlDB, dialect, seedPath)
	if err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Printf("Seeding complete. places=%d", n)

	return nil
}
