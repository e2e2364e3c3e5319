package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/juanesgit/validadorPagos/internal/models"
)

type VerifiedUserRepository interface {
	Get(ctx context.Context, telegramUserID string) (*models.VerifiedUser, error)
	Upsert(ctx context.Context, telegramUserID, phone, sucursal string) (*models.VerifiedUser, error)
	UpdateSucursal(ctx context.Context, telegramUserID, sucursal string) error
	Delete(ctx context.Context, telegramUserID string) error
}

type verifiedUserRepository struct{ db *sql.DB }

func NewVerifiedUserRepository(db *sql.DB) VerifiedUserRepository {
	return &verifiedUserRepository{db: db}
}

func (r *verifiedUserRepository) Get(ctx context.Context, telegramUserID string) (*models.VerifiedUser, error) {
	const q = `
                SELECT id, telegram_user_id, phone_e164, COALESCE(sucursal, ''), verified_at
                FROM verified_user
                WHERE telegram_user_id=$1
        `
	var v models.VerifiedUser
	err := r.db.QueryRowContext(ctx, q, telegramUserID).Scan(&v.ID, &v.TelegramUserID, &v.PhoneE164, &v.Sucursal, &v.VerifiedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get verified user: %w", err)
	}
	return &v, nil
}

func (r *verifiedUserRepository) Upsert(ctx context.Context, telegramUserID, phone, sucursal string) (*models.VerifiedUser, error) {
	const q = `
                INSERT INTO verified_user (telegram_user_id, phone_e164, sucursal, verified_at)
                VALUES ($1, $2, $3, $4)
                ON CONFLICT (telegram_user_id)
                DO UPDATE SET phone_e164=EXCLUDED.phone_e164, sucursal=EXCLUDED.sucursal, verified_at=EXCLUDED.verified_at
                RETURNING id, telegram_user_id, phone_e164, COALESCE(sucursal, ''), verified_at
        `
	var v models.VerifiedUser
	err := r.db.QueryRowContext(ctx, q, telegramUserID, phone, sucursal, time.Now().UTC()).
		Scan(&v.ID, &v.TelegramUserID, &v.PhoneE164, &v.Sucursal, &v.VerifiedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert verified user: %w", err)
	}
	return &v, nil
}

func (r *verifiedUserRepository) UpdateSucursal(ctx context.Context, telegramUserID, sucursal string) error {
	const q = `UPDATE verified_user SET sucursal=$1 WHERE telegram_user_id=$2`
	if _, err := r.db.ExecContext(ctx, q, sucursal, telegramUserID); err != nil {
		return fmt.Errorf("update verified sucursal: %w", err)
	}
	return nil
}

func (r *verifiedUserRepository) Delete(ctx context.Context, telegramUserID string) error {
	const q = `DELETE FROM verified_user WHERE telegram_user_id=$1`
	if _, err := r.db.ExecContext(ctx, q, telegramUserID); err != nil {
		return fmt.Errorf("delete verified user: %w", err)
	}
	return nil
}
