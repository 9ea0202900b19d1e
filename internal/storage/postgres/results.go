package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/hangman/internal/game/session"
)

// ErrResultNotFound is returned when no archived result matches a lookup.
var ErrResultNotFound = errors.New("result not found")

// Result is one archived game.
type Result struct {
	ID         int64
	RoomCode   string
	Word       string
	Status     session.Status
	Wrong      int
	MaxWrong   int
	Guessed    []string
	Players    []string
	StartedAt  time.Time
	FinishedAt time.Time
}

// ResultRepository persists finished games. Obtain one from Pool.Results.
type ResultRepository struct {
	db *pgxpool.Pool
}

// SaveResult inserts one finished game.
//
// Precondition: o.Status must be won or lost.
// Postcondition: One row is added to game_results, or a non-nil error is returned.
func (r *ResultRepository) SaveResult(ctx context.Context, o session.Outcome) error {
	if !o.Status.Terminal() {
		return fmt.Errorf("saving result for room %s: status %q is not terminal", o.RoomCode, o.Status)
	}
	guessed := o.Guessed
	if guessed == nil {
		guessed = []string{}
	}
	players := o.Players
	if players == nil {
		players = []string{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO game_results
		   (room_code, word, status, wrong, max_wrong, guessed, players, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.RoomCode, o.Word, string(o.Status), o.Wrong, o.MaxWrong, guessed, players, o.StartedAt, o.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting result for room %s: %w", o.RoomCode, err)
	}
	return nil
}

// Recent returns up to limit results, newest first.
//
// Precondition: limit must be positive.
func (r *ResultRepository) Recent(ctx context.Context, limit int) ([]Result, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, room_code, word, status, wrong, max_wrong, guessed, players, started_at, finished_at
		 FROM game_results
		 ORDER BY finished_at DESC, id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	results, err := pgx.CollectRows(rows, scanResult)
	if err != nil {
		return nil, fmt.Errorf("scanning results: %w", err)
	}
	return results, nil
}

// LatestForRoom returns the most recent result for a room code.
//
// Postcondition: Returns ErrResultNotFound when the room has no archived game.
func (r *ResultRepository) LatestForRoom(ctx context.Context, code string) (Result, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, room_code, word, status, wrong, max_wrong, guessed, players, started_at, finished_at
		 FROM game_results
		 WHERE room_code = $1
		 ORDER BY finished_at DESC, id DESC
		 LIMIT 1`,
		code,
	)
	if err != nil {
		return Result{}, fmt.Errorf("querying result for room %s: %w", code, err)
	}
	res, err := pgx.CollectExactlyOneRow(rows, scanResult)
	if errors.Is(err, pgx.ErrNoRows) {
		return Result{}, ErrResultNotFound
	}
	if err != nil {
		return Result{}, fmt.Errorf("scanning result for room %s: %w", code, err)
	}
	return res, nil
}

func scanResult(row pgx.CollectableRow) (Result, error) {
	var (
		res    Result
		status string
	)
	err := row.Scan(&res.ID, &res.RoomCode, &res.Word, &status, &res.Wrong, &res.MaxWrong,
		&res.Guessed, &res.Players, &res.StartedAt, &res.FinishedAt)
	res.Status = session.Status(status)
	return res, err
}
