package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/juanesgit/validadorPagos/internal/models"
)

// WhitelistRepository es de solo lectura: el CRUD vive en el panel de tesorería.
type WhitelistRepository interface {
	GetByPhone(ctx context.Context, phone string) (*models.WhitelistEntry, error)
}

type whitelistRepository struct{ db *sql.DB }

func NewWhitelistRepository(db *sql.DB) WhitelistRepository {
	return &whitelistRepository{db: db}
}

func (r *whitelistRepository) GetByPhone(ctx context.Context, phone string) (*models.WhitelistEntry, error) {
	const q = `
                SELECT id, phone_e164, COALESCE(sucursal, ''), COALESCE(ciudad, ''),
                       COALESCE(sociedad, ''), enabled, COALESCE(nombre, '')
                FROM reporter_whitelist
                WHERE phone_e164=$1
        `
	var w models.WhitelistEntry
	err := r.db.QueryRowContext(ctx, q, phone).
		Scan(&w.ID, &w.PhoneE164, &w.Sucursal, &w.Ciudad, &w.Sociedad, &w.Enabled, &w.Nombre)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get whitelist entry: %w", err)
	}
	return &w, nil
}
