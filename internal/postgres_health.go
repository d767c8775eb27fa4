package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/lychee-technology/swatches"
)

// ValidatePostgresConfig performs basic sanity checks on Postgres-related settings.
func ValidatePostgresConfig(cfg swatches.DatabaseConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("database.port must be a valid TCP port")
	}
	if cfg.MaxConnections <= 0 {
		return fmt.Errorf("database.maxConnections must be greater than 0")
	}
	if cfg.UseIAMAuth && cfg.Region == "" {
		return fmt.Errorf("database.region is required with IAM auth")
	}
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// PostgresHealthCheck pings the pool and checks that the swatch tables answer a query.
// timeout may be 0 to use 5s.
func PostgresHealthCheck(ctx context.Context, pool pgPool, timeout time.Duration) error {
	if pool == nil {
		return fmt.Errorf("no database pool")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if p, ok := pool.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	var n int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM swatch_options`).Scan(&n); err != nil {
		return fmt.Errorf("postgres swatch tables unavailable: %w", err)
	}
	return nil
}
