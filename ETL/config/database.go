package config

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// DBConnections holds the source and target store handles
type DBConnections struct {
	SourceDB *sql.DB
	TargetDB *sql.DB
}

// SourceDSN builds the MySQL DSN of the source store
func SourceDSN(c DatabaseConfig) string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	cfg.DBName = c.DBName
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

// TargetDSN builds the SQLite DSN of the analytics store with foreign keys enforced.
// Timestamps are written in the sortable "YYYY-MM-DD HH:MM:SS" layout.
// File databases run in WAL mode so readers see the last committed state
// while a run transaction is open.
func TargetDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if !InMemory(path) {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	return dsn + "&_time_format=sqlite"
}

// InMemory reports whether path names an in-memory SQLite database
func InMemory(path string) bool {
	return path == ":memory:" ||
		strings.HasPrefix(path, "file::memory:") ||
		strings.Contains(path, "mode=memory")
}

// OpenSource opens and pings the source store
func OpenSource(ctx context.Context, c DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", SourceDSN(c))
	if err != nil {
		return nil, fmt.Errorf("failed to open source database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to source database: %w", err)
	}
	return db, nil
}

// OpenTarget opens and pings the analytics store.
// Connections never expire so that an in-memory database survives for the life of the handle.
// An in-memory database is private to its connection and always gets a pool of one.
func OpenTarget(ctx context.Context, c TargetConfig) (*sql.DB, error) {
	db, err := sql.Open("sqlite", TargetDSN(c.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to open target database: %w", err)
	}

	maxOpen := c.MaxOpenConns
	if maxOpen < 1 || InMemory(c.Path) {
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to target database: %w", err)
	}
	return db, nil
}

// ConnectDatabases opens both stores
func ConnectDatabases(ctx context.Context, config ETLConfig) (*DBConnections, error) {
	source, err := OpenSource(ctx, config.Source)
	if err != nil {
		return nil, err
	}

	target, err := OpenTarget(ctx, config.Target)
	if err != nil {
		source.Close()
		return nil, err
	}

	return &DBConnections{SourceDB: source, TargetDB: target}, nil
}

// CloseDatabases closes whichever handles are open
func CloseDatabases(connections *DBConnections) error {
	if connections == nil {
		return nil
	}

	var firstErr error
	if connections.SourceDB != nil {
		if err := connections.SourceDB.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close source database: %w", err)
		}
	}
	if connections.TargetDB != nil {
		if err := connections.TargetDB.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close target database: %w", err)
		}
	}
	return firstErr
}
