package config

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB) error {
	// Create users table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			username VARCHAR(255) PRIMARY KEY,
			password VARCHAR(255) NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create auth_tokens table. Tokens never expire; rows only go away
	// if an operator removes them by hand.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS auth_tokens (
			username VARCHAR(255) NOT NULL REFERENCES users(username) ON DELETE CASCADE,
			token VARCHAR(96) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (username, token)
		)
	`)
	if err != nil {
		return err
	}

	// Create transactions table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id VARCHAR(36) PRIMARY KEY,
			username VARCHAR(255) NOT NULL REFERENCES users(username) ON DELETE CASCADE,
			source VARCHAR(255) NOT NULL,
			destination VARCHAR(255) NOT NULL,
			amount NUMERIC(20,4) NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			notes TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return err
	}

	// Create mobiles table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS mobiles (
			id VARCHAR(36) PRIMARY KEY,
			username VARCHAR(255) NOT NULL REFERENCES users(username) ON DELETE CASCADE,
			registration_id TEXT UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL DEFAULT '',
			last_seen TIMESTAMP NOT NULL,
			notifications BIGINT NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return err
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_transactions_username ON transactions(username)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_user_ts ON transactions(username, timestamp DESC)",
		"CREATE INDEX IF NOT EXISTS idx_mobiles_username ON mobiles(username)",
	}

	for _, idx := range indexes {
		_, err = db.Exec(idx)
		if err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
			// Don't return error here, indexes are not critical
		}
	}

	return nil
}
