// Package database manages the connection to the database holding analyzed tables.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver, registered as "pgx"

	"github.com/dbsmedya/fdscan/internal/config"
	"github.com/dbsmedya/fdscan/internal/retry"
	"github.com/dbsmedya/fdscan/internal/sqlutil"
)

// Manager owns the source connection pool.
type Manager struct {
	Source  *sql.DB
	Dialect sqlutil.Dialect
	config  *config.DatabaseConfig
	retry   retry.Config
}

// NewManager creates a new database manager from configuration.
func NewManager(cfg *config.DatabaseConfig) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config cannot be nil")
	}
	dialect, err := sqlutil.DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	return &Manager{
		Dialect: dialect,
		config:  cfg,
		retry:   retry.Config{MaxAttempts: 3, BaseBackoff: time.Second, MaxBackoff: 4 * time.Second},
	}, nil
}

// Schema returns the schema that qualifies table names.
func (m *Manager) Schema() string {
	return m.config.EffectiveSchema()
}

// Connect opens and verifies the source connection, retrying transient failures.
func (m *Manager) Connect(ctx context.Context) error {
	db, err := m.connectWithRetry(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to source database: %w", err)
	}
	m.Source = db
	return nil
}

func (m *Manager) connectWithRetry(ctx context.Context) (*sql.DB, error) {
	var db *sql.DB
	err := retry.Do(ctx, m.retry, func() error {
		conn, err := m.connect()
		if err != nil {
			return err
		}
		if err := conn.PingContext(ctx); err != nil {
			conn.Close()
			return err
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// connect creates a database handle without touching the network.
func (m *Manager) connect() (*sql.DB, error) {
	driverName, dsn := DriverAndDSN(m.config)

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	if m.config.MaxConnections > 0 {
		db.SetMaxOpenConns(m.config.MaxConnections)
	}
	if m.config.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(m.config.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

// DriverAndDSN returns the database/sql driver name and DSN for the configuration.
func DriverAndDSN(cfg *config.DatabaseConfig) (string, string) {
	if cfg.Driver == config.DriverMySQL {
		return "mysql", BuildDSN(cfg)
	}
	return "pgx", BuildPostgresDSN(cfg)
}

// BuildDSN constructs a MySQL DSN from configuration.
func BuildDSN(cfg *config.DatabaseConfig) string {
	// Format: user:password@tcp(host:port)/database?params
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
	)

	if cfg.Database != "" {
		dsn += cfg.Database
	}

	params := "?parseTime=true"
	switch cfg.TLS {
	case "disable":
		params += "&tls=false"
	case "required":
		params += "&tls=true"
	case "preferred", "":
		params += "&tls=preferred"
	}

	return dsn + params
}

// BuildPostgresDSN constructs a PostgreSQL connection URL from configuration.
func BuildPostgresDSN(cfg *config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:   "/" + cfg.Database,
	}

	q := url.Values{}
	switch cfg.TLS {
	case "disable":
		q.Set("sslmode", "disable")
	case "required":
		q.Set("sslmode", "require")
	case "preferred", "":
		q.Set("sslmode", "prefer")
	}
	if cfg.Schema != "" {
		q.Set("search_path", cfg.Schema)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// Close closes the source connection.
func (m *Manager) Close() error {
	if m.Source == nil {
		return nil
	}
	if err := m.Source.Close(); err != nil {
		return fmt.Errorf("source close: %w", err)
	}
	return nil
}

// Ping verifies the source connection is alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.Source == nil {
		return fmt.Errorf("source not connected")
	}
	if err := m.Source.PingContext(ctx); err != nil {
		return fmt.Errorf("source ping failed: %w", err)
	}
	return nil
}
