package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS reporter_whitelist (
                id          BIGSERIAL PRIMARY KEY,
                phone_e164  VARCHAR(20) NOT NULL UNIQUE,
                sucursal    VARCHAR(120),
                ciudad      VARCHAR(120),
                sociedad    VARCHAR(40),
                enabled     BOOLEAN NOT NULL DEFAULT TRUE,
                nombre      VARCHAR(120)
        )`,
	`CREATE TABLE IF NOT EXISTS verified_user (
                id               BIGSERIAL PRIMARY KEY,
                telegram_user_id VARCHAR(50) NOT NULL UNIQUE,
                phone_e164       VARCHAR(20) NOT NULL,
                sucursal         VARCHAR(120),
                verified_at      TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
	`CREATE TABLE IF NOT EXISTS conv_state (
                id               BIGSERIAL PRIMARY KEY,
                telegram_user_id VARCHAR(50) NOT NULL UNIQUE,
                step             VARCHAR(40),
                data             TEXT,
                updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
	`CREATE TABLE IF NOT EXISTS payment_request (
                id                 BIGSERIAL PRIMARY KEY,
                telegram_user_id   VARCHAR(50),
                chat_id_respuesta  VARCHAR(50),
                sucursal           VARCHAR(120),
                medio_pago         VARCHAR(80),
                cliente            VARCHAR(120),
                valor              BIGINT,
                fecha_consignacion DATE,
                sociedad           VARCHAR(40),
                estado             VARCHAR(20) NOT NULL DEFAULT 'PENDIENTE',
                motivo_rechazo     TEXT,
                created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
                updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
	`CREATE INDEX IF NOT EXISTS idx_payment_request_user ON payment_request (telegram_user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_request_estado ON payment_request (estado)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_request_created ON payment_request (created_at)`,
	`CREATE TABLE IF NOT EXISTS evidence (
                id               BIGSERIAL PRIMARY KEY,
                payment_id       BIGINT NOT NULL REFERENCES payment_request(id) ON DELETE CASCADE,
                telegram_file_id VARCHAR(200),
                filename         VARCHAR(200),
                tipo             VARCHAR(30),
                created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
	`CREATE INDEX IF NOT EXISTS idx_evidence_payment ON evidence (payment_id)`,
}

// EnsureSchema crea las tablas si no existen. Es idempotente y se ejecuta en el arranque.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
