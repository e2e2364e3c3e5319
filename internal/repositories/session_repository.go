package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/juanesgit/validadorPagos/internal/models"
)

type SessionRepository interface {
	Get(ctx context.Context, telegramUserID string) (*models.ConversationSession, error)
	Set(ctx context.Context, telegramUserID string, step models.Step, data models.SessionData) error
	Clear(ctx context.Context, telegramUserID string) error
}

type sessionRepository struct{ db *sql.DB }

func NewSessionRepository(db *sql.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Get(ctx context.Context, telegramUserID string) (*models.ConversationSession, error) {
	const q = `
                SELECT id, telegram_user_id, step, data, updated_at
                FROM conv_state
                WHERE telegram_user_id=$1
        `
	var (
		s   models.ConversationSession
		raw sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, telegramUserID).Scan(&s.ID, &s.TelegramUserID, &s.Step, &raw, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if raw.Valid && raw.String != "" {
		// data corrupta no tumba el flujo: se parte de payload vacío
		_ = json.Unmarshal([]byte(raw.String), &s.Data)
	}
	return &s, nil
}

func (r *sessionRepository) Set(ctx context.Context, telegramUserID string, step models.Step, data models.SessionData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal session data: %w", err)
	}
	const q = `
                INSERT INTO conv_state (telegram_user_id, step, data, updated_at)
                VALUES ($1, $2, $3, $4)
                ON CONFLICT (telegram_user_id)
                DO UPDATE SET step=EXCLUDED.step, data=EXCLUDED.data, updated_at=EXCLUDED.updated_at
        `
	if _, err := r.db.ExecContext(ctx, q, telegramUserID, step, string(raw), time.Now().UTC()); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Clear(ctx context.Context, telegramUserID string) error {
	const q = `DELETE FROM conv_state WHERE telegram_user_id=$1`
	if _, err := r.db.ExecContext(ctx, q, telegramUserID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
