package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log"

	"linkbio-service/config"

	_ "github.com/lib/pq" // Postgres driver
)

//go:embed schema.sql
var schemaSQL string

var openDB = sql.Open

// ConnString builds the lib/pq keyword/value DSN. It is shared by the pool and
// the LISTEN connection.
func ConnString(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Name, cfg.SSLMode)
}

func Connect(cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.Engine != "postgres" {
		return nil, fmt.Errorf("unsupported database engine: %s", cfg.Engine)
	}

	conn, err := openDB("postgres", ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err = conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	log.Println("Successfully connected to the Postgres database")
	return conn, nil
}

// Migrate applies the embedded schema. Every statement in it is idempotent.
func Migrate(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("error applying schema: %w", err)
	}
	log.Println("Database schema is up to date")
	return nil
}
