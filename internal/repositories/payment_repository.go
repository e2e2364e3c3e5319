package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/juanesgit/validadorPagos/internal/models"
)

type PaymentRepository interface {
	// CreateWithEvidence inserta la solicitud y su primera evidencia en una
	// transacción: o quedan ambas o ninguna.
	CreateWithEvidence(ctx context.Context, p *models.PaymentRequest, e *models.Evidence) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.PaymentRequest, error)
	SetFechaConsignacion(ctx context.Context, id int64, fecha time.Time) error
	LatestByUserAndCliente(ctx context.Context, telegramUserID, cliente string) (*models.PaymentRequest, error)
	ListByEstado(ctx context.Context, estado models.Estado, limit, offset int) ([]*models.PaymentRequest, error)
	// Decide aplica la transición PENDIENTE -> estado. Devuelve false si la
	// solicitud ya estaba decidida o no existe.
	Decide(ctx context.Context, id int64, estado models.Estado, motivo string) (bool, error)
	GetEvidence(ctx context.Context, evidenceID int64) (*models.Evidence, error)
}

type paymentRepository struct{ db *sql.DB }

func NewPaymentRepository(db *sql.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) CreateWithEvidence(ctx context.Context, p *models.PaymentRequest, e *models.Evidence) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	const qp = `
                INSERT INTO payment_request
                        (telegram_user_id, chat_id_respuesta, sucursal, medio_pago, cliente,
                         valor, sociedad, estado, created_at, updated_at)
                VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $9)
                RETURNING id
        `
	var id int64
	err = tx.QueryRowContext(ctx, qp,
		p.TelegramUserID, p.ChatIDRespuesta, p.Sucursal, p.MedioPago, p.Cliente,
		p.Valor, p.Sociedad, models.EstadoPendiente, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}

	const qe = `
                INSERT INTO evidence (payment_id, telegram_file_id, filename, tipo, created_at)
                VALUES ($1, $2, $3, $4, $5)
        `
	if _, err := tx.ExecContext(ctx, qe, id, e.TelegramFileID, e.Filename, e.Tipo, now); err != nil {
		return 0, fmt.Errorf("insert evidence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit payment: %w", err)
	}
	p.ID = id
	p.Estado = models.EstadoPendiente
	p.CreatedAt = now
	e.PaymentID = id
	return id, nil
}

const paymentCols = `id, telegram_user_id, chat_id_respuesta, COALESCE(sucursal, ''),
        COALESCE(medio_pago, ''), COALESCE(cliente, ''), COALESCE(valor, 0),
        fecha_consignacion, COALESCE(sociedad, ''), estado, COALESCE(motivo_rechazo, ''),
        created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (*models.PaymentRequest, error) {
	var (
		p     models.PaymentRequest
		fecha sql.NullTime
	)
	err := row.Scan(&p.ID, &p.TelegramUserID, &p.ChatIDRespuesta, &p.Sucursal,
		&p.MedioPago, &p.Cliente, &p.Valor, &fecha, &p.Sociedad, &p.Estado,
		&p.MotivoRechazo, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if fecha.Valid {
		f := fecha.Time
		p.FechaConsignacion = &f
	}
	return &p, nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id int64) (*models.PaymentRequest, error) {
	q := `SELECT ` + paymentCols + ` FROM payment_request WHERE id=$1`
	p, err := scanPayment(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (r *paymentRepository) SetFechaConsignacion(ctx context.Context, id int64, fecha time.Time) error {
	const q = `UPDATE payment_request SET fecha_consignacion=$1, updated_at=$2 WHERE id=$3`
	if _, err := r.db.ExecContext(ctx, q, fecha, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set fecha consignacion: %w", err)
	}
	return nil
}

func (r *paymentRepository) LatestByUserAndCliente(ctx context.Context, telegramUserID, cliente string) (*models.PaymentRequest, error) {
	q := `SELECT ` + paymentCols + `
                FROM payment_request
                WHERE telegram_user_id=$1 AND LOWER(cliente)=LOWER($2)
                ORDER BY created_at DESC
                LIMIT 1`
	p, err := scanPayment(r.db.QueryRowContext(ctx, q, telegramUserID, cliente))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("latest payment by cliente: %w", err)
	}
	return p, nil
}

func (r *paymentRepository) ListByEstado(ctx context.Context, estado models.Estado, limit, offset int) ([]*models.PaymentRequest, error) {
	q := `SELECT ` + paymentCols + `
                FROM payment_request
                WHERE ($1 = '' OR estado=$1)
                ORDER BY created_at DESC
                LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, q, string(estado), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var res []*models.PaymentRequest
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r *paymentRepository) Decide(ctx context.Context, id int64, estado models.Estado, motivo string) (bool, error) {
	const q = `
                UPDATE payment_request
                SET estado=$1, motivo_rechazo=NULLIF($2, ''), updated_at=$3
                WHERE id=$4 AND estado=$5
        `
	res, err := r.db.ExecContext(ctx, q, estado, motivo, time.Now().UTC(), id, models.EstadoPendiente)
	if err != nil {
		return false, fmt.Errorf("decide payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decide payment: %w", err)
	}
	return n == 1, nil
}

func (r *paymentRepository) GetEvidence(ctx context.Context, evidenceID int64) (*models.Evidence, error) {
	const q = `
                SELECT id, payment_id, COALESCE(telegram_file_id, ''), COALESCE(filename, ''), tipo, created_at
                FROM evidence
                WHERE id=$1
        `
	var e models.Evidence
	err := r.db.QueryRowContext(ctx, q, evidenceID).
		Scan(&e.ID, &e.PaymentID, &e.TelegramFileID, &e.Filename, &e.Tipo, &e.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get evidence: %w", err)
	}
	return &e, nil
}
