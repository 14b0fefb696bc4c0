package daily

import (
	"context"
	"database/sql"
)

// Result is one player's finished daily challenge.
type Result struct {
	PlayerID  string `json:"playerId"`
	Date      string `json:"date"`
	Attempts  int    `json:"attempts"`
	ElapsedMs int    `json:"elapsedMs"`
	Points    int    `json:"points"`
	Won       bool   `json:"won"`
}

// GuestName labels winners without an account.
const GuestName = "Guest"

// LBRow is a leaderboard line. PlayerID may be a guest's cookie value, so
// only Name is published.
type LBRow struct {
	PlayerID  string `json:"-"`
	Name      string `json:"name"`
	Attempts  int    `json:"attempts"`
	ElapsedMs int    `json:"elapsedMs"`
	Points    int    `json:"points"`
}

// Store reads and writes daily_results.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// AlreadyPlayed reports whether the player has a result for date.
func (s *Store) AlreadyPlayed(ctx context.Context, playerID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM daily_results WHERE player_id=? AND date=?",
		playerID, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult records a result; a second result for the same day is ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	won := 0
	if r.Won {
		won = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(player_id, date, attempts, elapsed_ms, points, won)
		VALUES(?,?,?,?,?,?)`, r.PlayerID, r.Date, r.Attempts, r.ElapsedMs, r.Points, won,
	)
	return err
}

// Leaderboard lists the day's winners: fewest attempts, then fastest.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.player_id, COALESCE(u.username, ?), d.attempts, d.elapsed_ms, d.points
		FROM daily_results d
		LEFT JOIN users u ON u.id = d.player_id
		WHERE d.date=? AND d.won=1
		ORDER BY d.attempts ASC, d.elapsed_ms ASC, d.created_at ASC
		LIMIT ?`, GuestName, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LBRow{}
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.PlayerID, &r.Name, &r.Attempts, &r.ElapsedMs, &r.Points); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
