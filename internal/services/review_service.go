package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/juanesgit/validadorPagos/internal/models"
	"github.com/juanesgit/validadorPagos/internal/repositories"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrAlreadyDecided  = errors.New("payment already decided")
)

// ReviewService implementa las dos operaciones del revisor: aprobar y
// rechazar. Cada una es una transición de una sola vía desde PENDIENTE; una
// solicitud decidida no se reabre nunca.
type ReviewService struct {
	payments repositories.PaymentRepository
	msg      Messenger
	log      zerolog.Logger
}

func NewReviewService(payments repositories.PaymentRepository, msg Messenger, log zerolog.Logger) *ReviewService {
	return &ReviewService{
		payments: payments,
		msg:      msg,
		log:      log.With().Str("component", "review").Logger(),
	}
}

func (s *ReviewService) List(ctx context.Context, estado models.Estado, limit, offset int) ([]*models.PaymentRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.payments.ListByEstado(ctx, estado, limit, offset)
}

func (s *ReviewService) GetEvidence(ctx context.Context, evidenceID int64) (*models.Evidence, error) {
	return s.payments.GetEvidence(ctx, evidenceID)
}

func (s *ReviewService) Approve(ctx context.Context, id int64) (*models.PaymentRequest, error) {
	return s.decide(ctx, id, models.EstadoAprobado, "")
}

func (s *ReviewService) Reject(ctx context.Context, id int64, motivo string) (*models.PaymentRequest, error) {
	if motivo == "" {
		motivo = "No cumple validación"
	}
	return s.decide(ctx, id, models.EstadoRechazado, motivo)
}

func (s *ReviewService) decide(ctx context.Context, id int64, estado models.Estado, motivo string) (*models.PaymentRequest, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}
	ok, err := s.payments.Decide(ctx, id, estado, motivo)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyDecided
	}
	p.Estado = estado
	p.MotivoRechazo = motivo
	s.log.Info().Int64("payment_id", id).Str("estado", string(estado)).Msg("solicitud decidida")

	s.notifyReporter(p)
	return p, nil
}

func (s *ReviewService) notifyReporter(p *models.PaymentRequest) {
	chatID, err := strconv.ParseInt(p.ChatIDRespuesta, 10, 64)
	if err != nil || chatID == 0 {
		return
	}
	switch p.Estado {
	case models.EstadoAprobado:
		s.msg.SendText(chatID,
			fmt.Sprintf("✅ Pago de <b>%s</b> fue <b>APROBADO</b>.\nID: <b>%d</b> | Valor: $%d", p.Cliente, p.ID, p.Valor),
			nil)
	case models.EstadoRechazado:
		s.msg.SendText(chatID,
			fmt.Sprintf("❌ Pago de <b>%s</b> fue <b>RECHAZADO</b>.\nMotivo: %s\nID: <b>%d</b>", p.Cliente, p.MotivoRechazo, p.ID),
			nil)
	}
}
