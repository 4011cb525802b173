package postgres

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rebeliceyang/lazygrid/internal/models"
)

// PasswordFunc looks up a password for a connection target. It returns ""
// with a nil error when none is stored.
type PasswordFunc func(host string, port int, database, user string) (string, error)

// PoolConfig configures the connection pool
type PoolConfig struct {
	DSN      string
	MaxConns int32
	// Password is consulted only when the DSN carries no password
	Password PasswordFunc
}

// Target is the host, port, database and user a DSN connects to
type Target struct {
	Host     string
	Port     int
	Database string
	User     string
}

// ParseTarget resolves the connection target of dsn, applying PG* defaults
func ParseTarget(dsn string) (Target, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return Target{}, fmt.Errorf("failed to parse connection config: %w", err)
	}
	cc := cfg.ConnConfig
	return Target{Host: cc.Host, Port: int(cc.Port), Database: cc.Database, User: cc.User}, nil
}

// Pool wraps pgxpool with our configuration
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool creates a new connection pool
func NewPool(ctx context.Context, config PoolConfig) (*Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}

	if cc := poolConfig.ConnConfig; cc.Password == "" && config.Password != nil {
		password, err := config.Password(cc.Host, int(cc.Port), cc.Database, cc.User)
		if err != nil {
			return nil, fmt.Errorf("failed to look up password: %w", err)
		}
		cc.Password = password
	}

	// Count and page queries run side by side
	poolConfig.MaxConns = max(config.MaxConns, 2)
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Pool{pool: pool}, nil
}

// Close closes the connection pool
func (p *Pool) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// Ping tests the connection
func (p *Pool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Query executes a query and returns one record per row
func (p *Pool) Query(ctx context.Context, sql string, args ...any) ([]models.Record, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescriptions := rows.FieldDescriptions()

	var results []models.Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(models.Record, len(fieldDescriptions))
		for i, fd := range fieldDescriptions {
			row[fd.Name] = normalize(values[i])
		}
		results = append(results, row)
	}

	return results, rows.Err()
}

// QueryCount executes a query returning a single count
func (p *Pool) QueryCount(ctx context.Context, sql string, args ...any) (int64, error) {
	var n int64
	if err := p.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// normalize turns driver specific values into plain Go values
func normalize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case [16]byte:
		return uuid.UUID(val).String()
	case []byte:
		return string(val)
	case driver.Valuer:
		// pgtype.Numeric and friends
		out, err := val.Value()
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return out
	default:
		return v
	}
}
