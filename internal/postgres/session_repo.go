package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/virtual-dev/presence-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository keeps live participant records in the sessions table.
// Expiry is a plain expires_at column: every successful Save/Extend pushes it
// out by ttl, reads filter out rows past it. Expired rows are reaped lazily.
type SessionRepository struct {
	db  *pgxpool.Pool
	ttl time.Duration
}

func NewSessionRepository(db *pgxpool.Pool, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionRepository{db: db, ttl: ttl}
}

func (r *SessionRepository) Save(ctx context.Context, p *domain.Participant) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (id, username, color, x, y, expires_at)
		VALUES ($1, $2, $3, $4, $5, now() + $6)
		ON CONFLICT (id) DO UPDATE
		SET username=$2, color=$3, x=$4, y=$5, expires_at=now() + $6
	`, p.ID, p.Username, p.Color, p.Position.X, p.Position.Y, r.ttl)
	if err != nil {
		return storeErr("sessions.Save", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Participant, error) {
	var p domain.Participant
	err := r.db.QueryRow(ctx, `
		SELECT id, username, color, x, y FROM sessions
		WHERE id=$1 AND expires_at > now()
	`, id).Scan(&p.ID, &p.Username, &p.Color, &p.Position.X, &p.Position.Y)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, storeErr("sessions.Get", err)
	}
	return &p, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id=$1`, id); err != nil {
		return storeErr("sessions.Delete", err)
	}
	return nil
}

func (r *SessionRepository) List(ctx context.Context) ([]domain.Participant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, username, color, x, y FROM sessions
		WHERE expires_at > now()
		ORDER BY id
	`)
	if err != nil {
		return nil, storeErr("sessions.List", err)
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ID, &p.Username, &p.Color, &p.Position.X, &p.Position.Y); err != nil {
			return nil, storeErr("sessions.List", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("sessions.List", err)
	}
	return out, nil
}

// Extend refreshes the TTL without touching the record.
func (r *SessionRepository) Extend(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE sessions SET expires_at = now() + $2
		WHERE id=$1 AND expires_at > now()
	`, id, r.ttl)
	if err != nil {
		return storeErr("sessions.Extend", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
