package main

import (
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	dbURL := os.Getenv("MYCELIUM_DATABASE_URL")
	if dbURL == "" {
		log.Fatal("MYCELIUM_DATABASE_URL is required")
	}

	m, err := migrate.New(
		"file://migrations",
		dbURL,
	)
	if err != nil {
		log.Fatalf("migration init failed: %v", err)
	}

	if err := m.Up(); err != nil {
		if err == migrate.ErrNoChange {
			log.Println("database is up to date")
		} else {
			log.Fatalf("migration failed: %v", err)
		}
	} else {
		log.Println("migrations applied successfully")
	}
}
