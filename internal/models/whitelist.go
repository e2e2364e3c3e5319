package models

import "time"

// WhitelistEntry es de solo lectura para el bot: las altas/bajas las hace tesorería.
type WhitelistEntry struct {
	ID        int64  `json:"id"`
	PhoneE164 string `json:"phone_e164"`
	Sucursal  string `json:"sucursal"`
	Ciudad    string `json:"ciudad"`
	Sociedad  string `json:"sociedad"`
	Enabled   bool   `json:"enabled"`
	Nombre    string `json:"nombre"`
}

// VerifiedUser liga un telegram_user_id con un número verificado contra la whitelist.
type VerifiedUser struct {
	ID             int64     `json:"id"`
	TelegramUserID string    `json:"telegram_user_id"`
	PhoneE164      string    `json:"phone_e164"`
	Sucursal       string    `json:"sucursal"`
	VerifiedAt     time.Time `json:"verified_at"`
}
