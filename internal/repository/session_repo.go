package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"parkpay/internal/models"
)

var (
	// ErrSessionNotFound indicates no session matches the given id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionNotActive indicates the session already left ACTIVE.
	ErrSessionNotActive = errors.New("session is not active")
)

const sessionColumns = `
	id, user_id, vehicle_id, lot_id, pricing_rule_id, status,
	entry_time, exit_time, duration_minutes, total_amount, note, created_at, updated_at`

// SessionRepository persists parking sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new ACTIVE session.
func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	const query = `
		INSERT INTO parking_sessions
			(user_id, vehicle_id, lot_id, pricing_rule_id, status, entry_time, total_amount, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query,
		s.UserID, s.VehicleID, s.LotID, s.PricingRuleID,
		s.Status, s.EntryTime, s.TotalAmount, s.Note,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// GetByID returns a session by id.
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.Session, error) {
	query := `SELECT` + sessionColumns + ` FROM parking_sessions WHERE id = $1`
	s := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.UserID, &s.VehicleID, &s.LotID, &s.PricingRuleID, &s.Status,
		&s.EntryTime, &s.ExitTime, &s.DurationMinutes, &s.TotalAmount, &s.Note,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Complete finalizes an ACTIVE session. The status guard in the UPDATE makes
// a concurrent double-completion lose with ErrSessionNotActive.
func (r *SessionRepository) Complete(ctx context.Context, id int64, exitTime time.Time, durationMinutes int, total decimal.Decimal, note string) error {
	const query = `
		UPDATE parking_sessions
		SET status = $2, exit_time = $3, duration_minutes = $4, total_amount = $5,
		    note = CASE WHEN $6 = '' THEN note ELSE $6 END,
		    updated_at = NOW()
		WHERE id = $1 AND status = $7
	`
	return r.transition(ctx, query, id,
		models.SessionStatusCompleted, exitTime, durationMinutes, total, note,
		models.SessionStatusActive)
}

// Cancel voids an ACTIVE session without charge.
func (r *SessionRepository) Cancel(ctx context.Context, id int64) error {
	const query = `
		UPDATE parking_sessions
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`
	return r.transition(ctx, query, id, models.SessionStatusDeleted, models.SessionStatusActive)
}

func (r *SessionRepository) transition(ctx context.Context, query string, id int64, args ...interface{}) error {
	all := append([]interface{}{id}, args...)
	result, err := r.db.ExecContext(ctx, query, all...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// Lost the guard: distinguish a missing session from a finished one.
	var status string
	err = r.db.QueryRowContext(ctx,
		`SELECT status FROM parking_sessions WHERE id = $1`, id,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	return ErrSessionNotActive
}

// ListByUser returns the user's latest sessions.
func (r *SessionRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT` + sessionColumns + `
		FROM parking_sessions
		WHERE user_id = $1
		ORDER BY entry_time DESC
		LIMIT $2`
	return r.list(ctx, query, userID, limit)
}

// ListActive returns currently running sessions.
func (r *SessionRepository) ListActive(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT` + sessionColumns + `
		FROM parking_sessions
		WHERE status = 'ACTIVE'
		ORDER BY entry_time DESC
		LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *SessionRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Session, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.VehicleID, &s.LotID, &s.PricingRuleID, &s.Status,
			&s.EntryTime, &s.ExitTime, &s.DurationMinutes, &s.TotalAmount, &s.Note,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
