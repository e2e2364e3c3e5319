package services

import (
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/juanesgit/validadorPagos/internal/models"
)

// EmailService avisa a tesorería cuando entra una solicitud nueva. Es un
// canal best-effort: un SMTP caído no afecta la conversación.
type EmailService struct {
	dialer *gomail.Dialer
	from   string
	to     string
	log    zerolog.Logger
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail, treasuryTo string, log zerolog.Logger) *EmailService {
	return &EmailService{
		dialer: gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword),
		from:   fromEmail,
		to:     treasuryTo,
		log:    log.With().Str("component", "email").Logger(),
	}
}

func (s *EmailService) NotifyNewPayment(p *models.PaymentRequest) {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.to)
	m.SetHeader("Subject", fmt.Sprintf("Nuevo pago reportado #%d", p.ID))

	body := fmt.Sprintf(`
                <h3>Nueva solicitud de pago pendiente</h3>
                <p>ID: <strong>%d</strong></p>
                <p>Cliente: <strong>%s</strong></p>
                <p>Valor: <strong>$%d</strong></p>
                <p>Sucursal: %s</p>
                <p>Medio de pago: %s</p>
        `, p.ID, p.Cliente, p.Valor, p.Sucursal, p.MedioPago)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		s.log.Error().Err(err).Int64("payment_id", p.ID).Msg("aviso a tesorería falló")
	}
}
