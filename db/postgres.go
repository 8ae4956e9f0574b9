package db

import (
	"database/sql"
	"fmt"
	"log"

	"marketplace-auth/config"

	_ "github.com/lib/pq" // Postgres driver
)

var openDB = sql.Open

// Connect opens the audit database and verifies the connection.
func Connect(cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.Engine != "postgres" {
		return nil, fmt.Errorf("unsupported database engine: %s", cfg.Engine)
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Name, cfg.SSLMode)

	conn, err := openDB("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err = conn.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	log.Println("Successfully connected to the Postgres database")
	return conn, nil
}
