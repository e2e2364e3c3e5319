package models

import "time"

// Step identifica el paso actual del diálogo de un usuario.
type Step string

const (
	StepAskValor         Step = "ASK_VALOR"
	StepAskSucursal      Step = "ASK_SUCURSAL"
	StepAskMedio         Step = "ASK_MEDIO"
	StepAskMedioOtro     Step = "ASK_MEDIO_OTRO"
	StepAskCliente       Step = "ASK_CLIENTE"
	StepAwaitEvidence    Step = "AWAIT_EVIDENCE"
	StepAskFechaConsig   Step = "ASK_FECHA_CONSIG"
	StepAskClienteStatus Step = "ASK_CLIENTE_STATUS"
)

// SessionData es el payload cerrado que acompaña cada paso. Se serializa a JSON
// solo en la frontera de persistencia (conv_state.data).
type SessionData struct {
	Valor     int64  `json:"valor,omitempty"`
	Sucursal  string `json:"sucursal,omitempty"`
	MedioPago string `json:"medio_pago,omitempty"`
	Cliente   string `json:"cliente,omitempty"`
	PaymentID int64  `json:"pid,omitempty"`
}

// ConversationSession: a lo sumo una fila viva por usuario (unique key).
type ConversationSession struct {
	ID             int64       `json:"id"`
	TelegramUserID string      `json:"telegram_user_id"`
	Step           Step        `json:"step"`
	Data           SessionData `json:"data"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
