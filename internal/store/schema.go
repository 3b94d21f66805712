package store

import (
	"context"
	"fmt"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL UNIQUE,
		card_number TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		employee_group TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		is_disabled INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS tenants (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		quota INTEGER NOT NULL DEFAULT 0,
		is_limited INTEGER NOT NULL DEFAULT 1,
		verification_code TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS tenant_menu (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		label TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tenant_menu_tenant ON tenant_menu (tenant_id, position)`,
	`CREATE TABLE IF NOT EXISTS devices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_code TEXT NOT NULL UNIQUE,
		tenant_id INTEGER NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL,
		employee_name TEXT NOT NULL,
		employee_group TEXT NOT NULL DEFAULT '',
		card_number TEXT NOT NULL,
		tenant_id INTEGER NOT NULL,
		tenant_name TEXT NOT NULL,
		session_id TEXT NOT NULL,
		queue_number INTEGER NOT NULL,
		menu_label TEXT NOT NULL DEFAULT '',
		order_code TEXT NOT NULL UNIQUE,
		transaction_number TEXT NOT NULL,
		channel TEXT NOT NULL,
		request_id TEXT NULL UNIQUE,
		transaction_date DATETIME NOT NULL,
		UNIQUE (employee_id, session_id),
		UNIQUE (tenant_id, session_id, queue_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions (transaction_date)`,
	`CREATE TABLE IF NOT EXISTS queue_counters (
		tenant_id INTEGER NOT NULL,
		session_id TEXT NOT NULL,
		last_queue INTEGER NOT NULL,
		PRIMARY KEY (tenant_id, session_id)
	)`,
	`CREATE TABLE IF NOT EXISTS portal_overrides (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mode TEXT NOT NULL,
		changed_by TEXT NOT NULL,
		changed_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password TEXT NOT NULL,
		role TEXT NOT NULL,
		is_banned TEXT NOT NULL DEFAULT 'n'
	)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS employees (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		employee_id VARCHAR(64) NOT NULL UNIQUE,
		card_number VARCHAR(64) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		employee_group VARCHAR(255) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		is_disabled TINYINT(1) NOT NULL DEFAULT 0
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tenants (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		quota INT NOT NULL DEFAULT 0,
		is_limited TINYINT(1) NOT NULL DEFAULT 1,
		verification_code VARCHAR(16) NOT NULL UNIQUE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tenant_menu (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		tenant_id BIGINT NOT NULL,
		position INT NOT NULL,
		label VARCHAR(255) NOT NULL,
		INDEX idx_tenant_menu_tenant (tenant_id, position)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS devices (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		device_code VARCHAR(128) NOT NULL UNIQUE,
		tenant_id BIGINT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		employee_id VARCHAR(64) NOT NULL,
		employee_name VARCHAR(255) NOT NULL,
		employee_group VARCHAR(255) NOT NULL DEFAULT '',
		card_number VARCHAR(64) NOT NULL,
		tenant_id BIGINT NOT NULL,
		tenant_name VARCHAR(255) NOT NULL,
		session_id VARCHAR(64) NOT NULL,
		queue_number INT NOT NULL,
		menu_label VARCHAR(255) NOT NULL DEFAULT '',
		order_code VARCHAR(64) NOT NULL UNIQUE,
		transaction_number VARCHAR(32) NOT NULL,
		channel VARCHAR(16) NOT NULL,
		request_id VARCHAR(128) NULL UNIQUE,
		transaction_date DATETIME(6) NOT NULL,
		UNIQUE KEY uq_employee_session (employee_id, session_id),
		UNIQUE KEY uq_tenant_session_queue (tenant_id, session_id, queue_number),
		INDEX idx_transactions_date (transaction_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS queue_counters (
		tenant_id BIGINT NOT NULL,
		session_id VARCHAR(64) NOT NULL,
		last_queue INT NOT NULL,
		PRIMARY KEY (tenant_id, session_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS portal_overrides (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		mode VARCHAR(16) NOT NULL,
		changed_by VARCHAR(255) NOT NULL,
		changed_at DATETIME(6) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(128) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		password VARCHAR(255) NOT NULL,
		role VARCHAR(32) NOT NULL,
		is_banned CHAR(1) NOT NULL DEFAULT 'n'
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates missing tables. It never alters existing ones.
func (s *Store) Migrate(ctx context.Context) error {
	statements := sqliteSchema
	if s.dialect == DialectMySQL {
		statements = mysqlSchema
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}
