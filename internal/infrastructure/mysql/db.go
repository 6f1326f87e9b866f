package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"agriconnect/pkg/logger"
)

// Connect opens a pool for dsn. parseTime is forced on because the repositories scan DATETIME
// columns straight into time.Time.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS participants (
		id VARCHAR(128) PRIMARY KEY,
		role VARCHAR(16) NOT NULL,
		display_name VARCHAR(255) NOT NULL,
		district VARCHAR(255) NOT NULL DEFAULT '',
		commodities TEXT NOT NULL,
		rating DOUBLE NULL,
		experience_years DOUBLE NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_participants_role (role)
	)`,
	`CREATE TABLE IF NOT EXISTS match_requests (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		farmer_id VARCHAR(128) NOT NULL,
		farmer_name VARCHAR(255) NOT NULL,
		seller_id VARCHAR(128) NOT NULL,
		seller_name VARCHAR(255) NOT NULL,
		crop VARCHAR(128) NOT NULL,
		region VARCHAR(128) NOT NULL,
		price DECIMAL(14,2) NOT NULL,
		status VARCHAR(16) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		INDEX idx_requests_farmer (farmer_id, created_at),
		INDEX idx_requests_seller (seller_id, created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		room VARCHAR(300) NOT NULL,
		sender VARCHAR(128) NOT NULL,
		receiver VARCHAR(128) NOT NULL,
		text TEXT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_messages_room (room, id)
	)`,
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, q := range schema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Debug("Executed migration: %s ...", strings.Fields(q)[5])
	}
	return nil
}
