package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/juanesgit/validadorPagos/internal/models"
	"github.com/juanesgit/validadorPagos/internal/repositories"
)

// Denial clasifica por qué un usuario no está autorizado.
type Denial string

const (
	DenialNone      Denial = ""
	DenialNoSession Denial = "no_session"
	DenialExpired   Denial = "expired"
	DenialNotFound  Denial = "not_found"
	DenialDisabled  Denial = "disabled"
)

var (
	ErrContactNotOwn   = errors.New("contact does not belong to sender")
	ErrPhoneUnreadable = errors.New("phone number unreadable")
	ErrNotWhitelisted  = errors.New("phone not whitelisted")
)

type VerificationService struct {
	verified    repositories.VerifiedUserRepository
	whitelist   repositories.WhitelistRepository
	ttl         time.Duration // 0 = nunca expira
	countryCode string
	log         zerolog.Logger
	now         func() time.Time
}

func NewVerificationService(
	verified repositories.VerifiedUserRepository,
	whitelist repositories.WhitelistRepository,
	ttlMinutes int,
	countryCode string,
	log zerolog.Logger,
) *VerificationService {
	return &VerificationService{
		verified:    verified,
		whitelist:   whitelist,
		ttl:         time.Duration(ttlMinutes) * time.Minute,
		countryCode: countryCode,
		log:         log.With().Str("component", "verification").Logger(),
		now:         time.Now,
	}
}

// Check es la puerta de autorización: se llama en cada evento entrante salvo el
// de compartir contacto. Toda negación es autocurativa (borra la fila vencida)
// e idempotente ante reentregas del webhook.
func (s *VerificationService) Check(ctx context.Context, telegramUserID string) (*models.VerifiedUser, Denial, error) {
	vu, err := s.verified.Get(ctx, telegramUserID)
	if err != nil {
		return nil, DenialNoSession, err
	}
	if vu == nil {
		return nil, DenialNoSession, nil
	}

	if s.ttl > 0 && s.now().UTC().Sub(vu.VerifiedAt) > s.ttl {
		if err := s.verified.Delete(ctx, telegramUserID); err != nil {
			return nil, DenialExpired, err
		}
		return nil, DenialExpired, nil
	}

	wl, err := s.whitelist.GetByPhone(ctx, vu.PhoneE164)
	if err != nil {
		return nil, DenialNotFound, err
	}
	if wl == nil {
		if err := s.verified.Delete(ctx, telegramUserID); err != nil {
			return nil, DenialNotFound, err
		}
		return nil, DenialNotFound, nil
	}
	if !wl.Enabled {
		if err := s.verified.Delete(ctx, telegramUserID); err != nil {
			return nil, DenialDisabled, err
		}
		return nil, DenialDisabled, nil
	}

	// La reasignación de sucursal en la whitelist aplica sin re-verificar.
	if wl.Sucursal != "" && wl.Sucursal != vu.Sucursal {
		if err := s.verified.UpdateSucursal(ctx, telegramUserID, wl.Sucursal); err != nil {
			return nil, DenialNone, err
		}
		vu.Sucursal = wl.Sucursal
	}
	return vu, DenialNone, nil
}

// VerifyContact procesa el handshake de contacto compartido y crea o refresca
// la sesión verificada.
func (s *VerificationService) VerifyContact(ctx context.Context, telegramUserID, contactOwnerID, rawPhone string) (*models.VerifiedUser, *models.WhitelistEntry, error) {
	if contactOwnerID != telegramUserID {
		return nil, nil, ErrContactNotOwn
	}
	phone := NormalizePhone(rawPhone, s.countryCode)
	if phone == "" {
		return nil, nil, ErrPhoneUnreadable
	}
	wl, err := s.whitelist.GetByPhone(ctx, phone)
	if err != nil {
		return nil, nil, err
	}
	if wl == nil || !wl.Enabled {
		return nil, nil, ErrNotWhitelisted
	}
	vu, err := s.verified.Upsert(ctx, telegramUserID, phone, wl.Sucursal)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info().Str("user", telegramUserID).Str("phone", phone).Msg("número verificado")
	return vu, wl, nil
}

// WhitelistByPhone expone la entrada (habilitada o no) del número verificado;
// el finalizador la usa para resolver la sociedad.
func (s *VerificationService) WhitelistByPhone(ctx context.Context, phone string) (*models.WhitelistEntry, error) {
	return s.whitelist.GetByPhone(ctx, phone)
}

// Logout borra la verificación del usuario (cerrar sesión explícito).
func (s *VerificationService) Logout(ctx context.Context, telegramUserID string) error {
	return s.verified.Delete(ctx, telegramUserID)
}
