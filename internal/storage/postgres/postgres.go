// Package postgres archives finished games in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/hangman/internal/config"
)

// ErrSchemaMissing is returned by Health when the game_results table has not
// been migrated.
var ErrSchemaMissing = errors.New("game_results table missing: run cmd/migrate")

// Pool is the archive's connection pool and the result repository bound to it.
type Pool struct {
	pool    *pgxpool.Pool
	results *ResultRepository
}

// NewPool connects the archive database described by cfg.
//
// Precondition: cfg must contain valid database connection parameters.
// Postcondition: Returns a connected Pool whose Results repository is ready
// for writes, or a non-nil error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "hangman-archive"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Pool{pool: pool, results: &ResultRepository{db: pool}}, nil
}

// Results returns the repository finished games are written to.
func (p *Pool) Results() *ResultRepository {
	return p.results
}

// Health checks within timeout that the database answers and that the
// game_results schema is present.
//
// Precondition: The pool must not be closed.
// Postcondition: Returns nil, ErrSchemaMissing, or the connection error.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var present bool
	if err := p.pool.QueryRow(ctx, `SELECT to_regclass('game_results') IS NOT NULL`).Scan(&present); err != nil {
		return fmt.Errorf("checking archive schema: %w", err)
	}
	if !present {
		return ErrSchemaMissing
	}
	return nil
}

// Close releases all pool resources.
//
// Postcondition: The pool is no longer usable after calling Close.
func (p *Pool) Close() {
	p.pool.Close()
}
