package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/juanesgit/validadorPagos/internal/models"
	"github.com/juanesgit/validadorPagos/internal/repositories"
	"github.com/juanesgit/validadorPagos/internal/storage"
)

var (
	ErrFileTooLarge = errors.New("evidence exceeds size ceiling")
	ErrBadFileType  = errors.New("evidence type not allowed")
)

var (
	allowedMimes = map[string]struct{}{
		"image/jpeg":      {},
		"image/png":       {},
		"application/pdf": {},
	}
	allowedExts = map[string]struct{}{
		".jpg": {}, ".jpeg": {}, ".png": {}, ".pdf": {},
	}
)

// IntakeJob es una finalización pendiente: payload completo más la referencia
// de la evidencia ya validada en tamaño y tipo.
type IntakeJob struct {
	UserID      string
	ChatID      int64
	Payload     IntakePayload
	FileID      string
	FileName    string
	Tipo        models.EvidenceKind
	FromCaption bool
}

type IntakeService struct {
	files        FileTransport
	store        storage.EvidenceStore
	payments     repositories.PaymentRepository
	sessions     repositories.SessionRepository
	verification *VerificationService
	maxBytes     int
	log          zerolog.Logger
}

func NewIntakeService(
	files FileTransport,
	store storage.EvidenceStore,
	payments repositories.PaymentRepository,
	sessions repositories.SessionRepository,
	verification *VerificationService,
	maxMB int,
	log zerolog.Logger,
) *IntakeService {
	return &IntakeService{
		files:        files,
		store:        store,
		payments:     payments,
		sessions:     sessions,
		verification: verification,
		maxBytes:     maxMB * 1024 * 1024,
		log:          log.With().Str("component", "intake").Logger(),
	}
}

// ValidateMedia aplica las puertas 1 a 3: elige la variante de foto de mayor
// tamaño o el documento, valida el tope de bytes reportado y, para documentos,
// el tipo permitido. No toca la sesión: todo rechazo es reintentarle.
func (s *IntakeService) ValidateMedia(msg *tgbotapi.Message) (fileID, fileName string, tipo models.EvidenceKind, err error) {
	var size int
	switch {
	case len(msg.Photo) > 0:
		best := msg.Photo[0]
		for _, p := range msg.Photo[1:] {
			if p.FileSize > best.FileSize {
				best = p
			}
		}
		fileID, tipo, size = best.FileID, models.EvidencePhoto, best.FileSize
	case msg.Document != nil:
		doc := msg.Document
		fileID, fileName, tipo, size = doc.FileID, doc.FileName, models.EvidenceDocument, doc.FileSize

		mime := strings.ToLower(doc.MimeType)
		ext := strings.ToLower(filepath.Ext(doc.FileName))
		if mime != "" {
			if _, ok := allowedMimes[mime]; !ok {
				return "", "", "", ErrBadFileType
			}
		} else if ext != "" {
			if _, ok := allowedExts[ext]; !ok {
				return "", "", "", ErrBadFileType
			}
		}
	default:
		return "", "", "", errors.New("no media in message")
	}

	if size > 0 && size > s.maxBytes {
		return "", "", "", ErrFileTooLarge
	}
	return fileID, fileName, tipo, nil
}

// FetchAndStore es la puerta 4: resuelve la ruta remota, descarga los bytes y
// los persiste con nombre a prueba de colisiones. Corre fuera del lock por
// usuario: es la única parte lenta de la finalización.
func (s *IntakeService) FetchAndStore(job *IntakeJob) (storedName string, err error) {
	path, err := s.files.ResolveFile(job.FileID)
	if err != nil {
		return "", err
	}
	data, err := s.files.Download(path)
	if err != nil {
		return "", err
	}
	name := job.FileName
	if name == "" {
		name = filepath.Base(path)
	}
	return s.store.Save(data, name)
}

// Commit corre bajo el lock del usuario: re-verifica autorización, re-lee la
// sesión para que una reentrega del mismo evento no cree dos solicitudes,
// fuerza la sucursal verificada, resuelve la sociedad y crea solicitud y
// evidencia en una transacción.
func (s *IntakeService) Commit(ctx context.Context, job *IntakeJob, storedName string) (*models.PaymentRequest, error) {
	vu, denial, err := s.verification.Check(ctx, job.UserID)
	if err != nil {
		return nil, err
	}
	if denial != DenialNone {
		return nil, ErrNotWhitelisted
	}

	sess, err := s.sessions.Get(ctx, job.UserID)
	if err != nil {
		return nil, err
	}
	if job.FromCaption {
		// Ya hay una solicitud esperando fecha: no duplicar por reentrega.
		if sess != nil && sess.Step == models.StepAskFechaConsig {
			return nil, nil
		}
	} else {
		if sess == nil || sess.Step != models.StepAwaitEvidence {
			return nil, nil
		}
	}

	payload := job.Payload
	// La sucursal de la whitelist siempre gana sobre la digitada.
	if vu.Sucursal != "" {
		payload.Sucursal = vu.Sucursal
	}
	sociedad := ""
	if wl, err := s.verification.WhitelistByPhone(ctx, vu.PhoneE164); err == nil && wl != nil {
		sociedad = wl.Sociedad
	}

	p := &models.PaymentRequest{
		TelegramUserID:  job.UserID,
		ChatIDRespuesta: chatIDString(job.ChatID),
		Sucursal:        payload.Sucursal,
		MedioPago:       payload.MedioPago,
		Cliente:         payload.Cliente,
		Valor:           payload.Valor,
		Sociedad:        sociedad,
	}
	e := &models.Evidence{
		TelegramFileID: job.FileID,
		Filename:       storedName,
		Tipo:           job.Tipo,
	}
	if _, err := s.payments.CreateWithEvidence(ctx, p, e); err != nil {
		s.log.Error().Err(err).Str("user", job.UserID).Msg("crear solicitud falló")
		return nil, err
	}

	if err := s.sessions.Set(ctx, job.UserID, models.StepAskFechaConsig, models.SessionData{PaymentID: p.ID}); err != nil {
		// La solicitud ya está escrita: reportar fallo aquí invitaría a un
		// reintento que la duplicaría. Se sigue con el prompt de fecha.
		s.log.Error().Err(err).Int64("payment_id", p.ID).Str("user", job.UserID).Msg("avanzar sesión falló")
	}
	s.log.Info().Int64("payment_id", p.ID).Str("user", job.UserID).Msg("solicitud creada")
	return p, nil
}
