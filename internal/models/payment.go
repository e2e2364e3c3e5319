package models

import "time"

type Estado string

const (
	EstadoPendiente Estado = "PENDIENTE"
	EstadoAprobado  Estado = "APROBADO"
	EstadoRechazado Estado = "RECHAZADO"
)

// PaymentRequest es una solicitud de pago reportada por un usuario verificado.
// estado solo transiciona PENDIENTE -> APROBADO|RECHAZADO, una única vez.
type PaymentRequest struct {
	ID                int64      `json:"id"`
	TelegramUserID    string     `json:"telegram_user_id"`
	ChatIDRespuesta   string     `json:"chat_id_respuesta"`
	Sucursal          string     `json:"sucursal"`
	MedioPago         string     `json:"medio_pago"`
	Cliente           string     `json:"cliente"`
	Valor             int64      `json:"valor"`
	FechaConsignacion *time.Time `json:"fecha_consignacion,omitempty"`
	Sociedad          string     `json:"sociedad,omitempty"`
	Estado            Estado     `json:"estado"`
	MotivoRechazo     string     `json:"motivo_rechazo,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type EvidenceKind string

const (
	EvidencePhoto    EvidenceKind = "photo"
	EvidenceDocument EvidenceKind = "document"
)

// Evidence pertenece a un PaymentRequest (cascade on delete).
type Evidence struct {
	ID             int64        `json:"id"`
	PaymentID      int64        `json:"payment_id"`
	TelegramFileID string       `json:"telegram_file_id"`
	Filename       string       `json:"filename"`
	Tipo           EvidenceKind `json:"tipo"`
	CreatedAt      time.Time    `json:"created_at"`
}
