package config

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// MySQLDSN susun DSN dari DB_HOST/DB_PORT/... kalau DB_DSN kosong
func MySQLDSN(s Settings) string {
	if s.DBDSN != "" {
		return s.DBDSN
	}
	cfg := mysql.NewConfig()
	cfg.User = s.DBUser
	cfg.Passwd = s.DBPassword
	cfg.Net = "tcp"
	cfg.Addr = s.DBHost + ":" + s.DBPort
	cfg.DBName = s.DBName
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

// SQLiteDSN - file path + pragma. _txlock=immediate supaya writer ambil
// write lock di awal transaksi, bukan saat upgrade dari read.
func SQLiteDSN(path string) string {
	if path == "" {
		path = "data/kantin.db"
	}
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "foreign_keys(OFF)")
	q.Set("_txlock", "immediate")
	q.Set("_time_format", "sqlite")
	return "file:" + path + "?" + q.Encode()
}

func OpenDB(ctx context.Context, s Settings) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch s.DBDriver {
	case DriverMySQL:
		db, err = sql.Open("mysql", MySQLDSN(s))
		if err == nil {
			db.SetMaxOpenConns(25)
			db.SetMaxIdleConns(10)
			db.SetConnMaxLifetime(5 * time.Minute)
		}
	case DriverSQLite:
		db, err = sql.Open("sqlite", SQLiteDSN(s.DBDSN))
	default:
		return nil, fmt.Errorf("DB_DRIVER tidak dikenal: %q", s.DBDriver)
	}
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database tidak nyambung: %w", err)
	}
	return db, nil
}
