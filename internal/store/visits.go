package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/whereabouts/internal/location"
	"github.com/roach88/whereabouts/internal/model"
)

// RecordVisit appends a visit for userID.
func (s *Store) RecordVisit(ctx context.Context, userID string, v location.Visit) error {
	if err := insertVisit(ctx, s.db, userID, v); err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

func insertVisit(ctx context.Context, ex execer, userID string, v location.Visit) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO visits (user_id, city, region, country, visited_at)
		VALUES (?, ?, ?, ?, ?)
	`, userID, v.Location.City, v.Location.Region, v.Location.Country, toMillis(v.Timestamp))
	return err
}

// RecentVisits implements location.VisitStore. Results are newest first;
// zero From/To bounds and a non-positive Limit are ignored.
func (s *Store) RecentVisits(ctx context.Context, userID string, q location.VisitQuery) ([]location.Visit, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if !q.From.IsZero() {
		where = append(where, "visited_at >= ?")
		args = append(args, toMillis(q.From))
	}
	if !q.To.IsZero() {
		where = append(where, "visited_at < ?")
		args = append(args, toMillis(q.To))
	}

	query := `
		SELECT city, region, country, visited_at
		FROM visits
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY visited_at DESC, seq DESC`
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query visits: %w", err)
	}
	defer rows.Close()

	visits := []location.Visit{}
	for rows.Next() {
		var (
			p  model.Place
			ms int64
		)
		if err := rows.Scan(&p.City, &p.Region, &p.Country, &ms); err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		visits = append(visits, location.Visit{Location: p, Timestamp: fromMillis(ms)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visits: %w", err)
	}
	return visits, nil
}
