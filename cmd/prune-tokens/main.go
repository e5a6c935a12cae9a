package main

import (
	"database/sql"
	"flag"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	migratePostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/yourusername/auth-api/internal/config"
)

// prune-tokens deletes refresh token rows whose expiry has passed. Expired
// rows are terminal whatever their rotation state, so removing them only
// shrinks the table. Intended to run from cron.
func main() {
	dryRun := flag.Bool("dry-run", false, "report the row count without deleting")
	runMigrations := flag.Bool("migrate", false, "apply pending migrations before pruning")
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	if *runMigrations {
		driver, err := migratePostgres.WithInstance(db, &migratePostgres.Config{})
		if err != nil {
			log.Fatalf("Failed to init migration driver: %v", err)
		}
		m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
		if err != nil {
			log.Fatalf("Failed to init migrations: %v", err)
		}
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
		log.Println("Migrations applied")
	}

	if *dryRun {
		var count int64
		err := db.QueryRow("SELECT COUNT(*) FROM refresh_tokens WHERE expires_at < NOW()").Scan(&count)
		if err != nil {
			log.Fatalf("Failed to count expired tokens: %v", err)
		}
		log.Printf("Dry run: %d expired refresh tokens would be deleted", count)
		return
	}

	res, err := db.Exec("DELETE FROM refresh_tokens WHERE expires_at < NOW()")
	if err != nil {
		log.Fatalf("Failed to delete expired tokens: %v", err)
	}
	deleted, _ := res.RowsAffected()
	log.Printf("Deleted %d expired refresh tokens", deleted)
}
