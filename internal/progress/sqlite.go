package progress

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteStore persists progress in the server database. Tables are created
// by the sql/ migrations; see RecordSolve for the write path.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an already-opened database handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, playerID string) (Progress, error) {
	p := Progress{PlayerID: playerID}
	err := s.db.QueryRowContext(ctx,
		`SELECT score, solve_count FROM progress WHERE player_id=?`,
		playerID,
	).Scan(&p.Score, &p.SolveCount)
	if err == sql.ErrNoRows {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("query progress: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM solved WHERE player_id=?`,
		playerID,
	).Scan(&p.SolvedCount); err != nil {
		return p, fmt.Errorf("count solved: %w", err)
	}
	return p, nil
}

// RecordSolve runs one transaction: the solved set gains the puzzle at most
// once (INSERT OR IGNORE) while the score row accumulates on every call, so
// replaying a solved puzzle still pays out.
func (s *SQLiteStore) RecordSolve(ctx context.Context, playerID, puzzleID string, points int) (Progress, bool, error) {
	p := Progress{PlayerID: playerID}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return p, false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
        INSERT OR IGNORE INTO solved (player_id, puzzle_id)
        VALUES (?, ?)`,
		playerID, puzzleID,
	)
	if err != nil {
		return p, false, fmt.Errorf("insert solved: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return p, false, err
	}
	firstSolve := n > 0

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO progress (player_id, score, solve_count)
        VALUES (?, ?, 1)
        ON CONFLICT(player_id) DO UPDATE SET
            score      = score + excluded.score,
            solve_count = solve_count + 1,
            updated_at = CURRENT_TIMESTAMP`,
		playerID, points,
	); err != nil {
		return p, false, fmt.Errorf("update progress: %w", err)
	}

	if err := tx.QueryRowContext(ctx,
		`SELECT score, solve_count FROM progress WHERE player_id=?`,
		playerID,
	).Scan(&p.Score, &p.SolveCount); err != nil {
		return p, false, fmt.Errorf("read back progress: %w", err)
	}
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM solved WHERE player_id=?`,
		playerID,
	).Scan(&p.SolvedCount); err != nil {
		return p, false, fmt.Errorf("count solved: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return p, false, err
	}
	return p, firstSolve, nil
}

func (s *SQLiteStore) SolvedIDs(ctx context.Context, playerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT puzzle_id FROM solved
        WHERE player_id=?
        ORDER BY puzzle_id`,
		playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query solved: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
