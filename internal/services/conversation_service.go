package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/juanesgit/validadorPagos/internal/models"
	"github.com/juanesgit/validadorPagos/internal/repositories"
)

var (
	errFechaFutura = errors.New("fecha futura")
	errPagoPerdido = errors.New("solicitud no encontrada")
)

// ConversationService es la máquina de estados del diálogo: interpreta cada
// evento entrante a la luz del paso actual y produce prompts y transiciones.
type ConversationService struct {
	sessions     repositories.SessionRepository
	payments     repositories.PaymentRepository
	verification *VerificationService
	intake       *IntakeService
	msg          Messenger
	notifier     *EmailService // opcional, puede ser nil
	locks        *userLocks
	log          zerolog.Logger
	now          func() time.Time
}

func NewConversationService(
	sessions repositories.SessionRepository,
	payments repositories.PaymentRepository,
	verification *VerificationService,
	intake *IntakeService,
	msg Messenger,
	notifier *EmailService,
	log zerolog.Logger,
) *ConversationService {
	return &ConversationService{
		sessions:     sessions,
		payments:     payments,
		verification: verification,
		intake:       intake,
		msg:          msg,
		notifier:     notifier,
		locks:        newUserLocks(),
		log:          log.With().Str("component", "conversation").Logger(),
		now:          time.Now,
	}
}

func chatIDString(chatID int64) string { return strconv.FormatInt(chatID, 10) }

// HandleUpdate procesa una entrega del webhook. Los eventos del mismo usuario
// se serializan con un lock por llave; la descarga de la evidencia corre con
// el lock liberado y la transición final se re-valida al retomarlo.
func (s *ConversationService) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if cb := upd.CallbackQuery; cb != nil {
		uid := strconv.FormatInt(cb.From.ID, 10)
		release := s.locks.Acquire(uid)
		defer release()
		s.handleCallback(ctx, cb)
		return
	}

	msg := upd.Message
	if msg == nil {
		msg = upd.EditedMessage
	}
	if msg == nil || msg.From == nil {
		return
	}
	uid := strconv.FormatInt(msg.From.ID, 10)

	release := s.locks.Acquire(uid)
	job := s.handleMessage(ctx, msg)
	release()

	if job == nil {
		return
	}
	// Puerta 4 sin lock: no bloquear otros eventos del usuario en la descarga.
	stored, err := s.intake.FetchAndStore(job)
	if err != nil {
		s.log.Error().Err(err).Str("user", job.UserID).Msg("descarga de evidencia falló")
		s.msg.SendText(job.ChatID, "⚠️ Error descargando la evidencia. Intenta de nuevo.", nil)
		return
	}

	release = s.locks.Acquire(job.UserID)
	defer release()
	s.finalize(ctx, job, stored)
}

func (s *ConversationService) finalize(ctx context.Context, job *IntakeJob, storedName string) {
	p, err := s.intake.Commit(ctx, job, storedName)
	if err != nil {
		if errors.Is(err, ErrNotWhitelisted) {
			s.askContact(job.ChatID, "🔒 Para reportar, comparte tu <b>número</b>.")
			return
		}
		s.msg.SendText(job.ChatID, "⚠️ No pude registrar la solicitud. Intenta de nuevo más tarde.", nil)
		return
	}
	if p == nil {
		// Reentrega del mismo evento: ya hay una solicitud esperando fecha.
		s.msg.SendText(job.ChatID, "🗓️ Ya registré ese comprobante. Selecciona la <b>fecha de consignación</b>.", nil)
		return
	}

	if s.notifier != nil {
		go s.notifier.NotifyNewPayment(p)
	}

	nowDay := today(s.now())
	kb := buildCalendar(nowDay.Year(), int(nowDay.Month()), s.now())
	s.msg.SendText(job.ChatID,
		fmt.Sprintf("✅ Comprobante recibido. ID solicitud: <b>%d</b>\n🗓️ Selecciona la <b>fecha de consignación</b> en el calendario, o escríbela (AAAA-MM-DD o DD/MM/AAAA).", p.ID),
		kb)
}

// handleMessage corre bajo el lock del usuario. Devuelve un IntakeJob cuando
// llegó una evidencia lista para finalizar.
func (s *ConversationService) handleMessage(ctx context.Context, msg *tgbotapi.Message) *IntakeJob {
	uid := strconv.FormatInt(msg.From.ID, 10)
	chatID := msg.Chat.ID

	// El contacto compartido es el único evento que entra sin pasar la puerta.
	if msg.Contact != nil {
		s.handleContact(ctx, uid, chatID, msg.Contact)
		return nil
	}

	vu, denial, err := s.verification.Check(ctx, uid)
	if err != nil {
		s.log.Error().Err(err).Str("user", uid).Msg("verificación falló")
		s.msg.SendText(chatID, "⚠️ Tuvimos un problema. Intenta de nuevo.", nil)
		return nil
	}
	if denial != DenialNone {
		switch denial {
		case DenialExpired:
			s.askContact(chatID, "⏳ Tu verificación expiró. Comparte tu <b>número</b>.")
		case DenialDisabled, DenialNotFound:
			s.askContact(chatID, "🚫 Tu número ya no está habilitado. Comparte tu número o contacta a tesorería.")
		default:
			s.askContact(chatID, "🔒 Para usar el bot, comparte tu <b>número</b>.")
		}
		return nil
	}

	if text := strings.TrimSpace(msg.Text); text != "" {
		s.handleText(ctx, uid, chatID, text, vu)
		return nil
	}

	if len(msg.Photo) == 0 && msg.Document == nil {
		sess, _ := s.sessions.Get(ctx, uid)
		if sess != nil && sess.Step == models.StepAwaitEvidence {
			s.msg.SendText(chatID, "📸 Envía la <b>foto del comprobante</b>.", cancelKB())
		} else {
			s.msg.SendText(chatID,
				"Envía una <b>foto</b> con caption:\n\nvalor: 150000\nsucursal: BUCARAMANGA-CENTRO\nmedio_pago: Efectivo\ncliente: Juan Pérez\n\nO usa el menú: <b>Reportar pago</b>.",
				nil)
		}
		return nil
	}

	return s.handleMedia(ctx, uid, chatID, msg)
}

func (s *ConversationService) handleContact(ctx context.Context, uid string, chatID int64, contact *tgbotapi.Contact) {
	owner := strconv.FormatInt(contact.UserID, 10)
	vu, wl, err := s.verification.VerifyContact(ctx, uid, owner, contact.PhoneNumber)
	switch {
	case errors.Is(err, ErrContactNotOwn):
		s.msg.SendText(chatID, "⚠️ Comparte tu <b>propio</b> número con el botón.", nil)
		s.askContact(chatID, "Para continuar, comparte tu número de celular.")
	case errors.Is(err, ErrPhoneUnreadable):
		s.msg.SendText(chatID, "⚠️ No pude leer tu número. Intenta de nuevo.", nil)
		s.askContact(chatID, "Para continuar, comparte tu número de celular.")
	case errors.Is(err, ErrNotWhitelisted):
		// Sin prompt de reintento: el alta es fuera de banda, con tesorería.
		s.msg.SendText(chatID, "🚫 Tu número no está habilitado para reportar pagos.", nil)
	case err != nil:
		s.log.Error().Err(err).Str("user", uid).Msg("handshake falló")
		s.msg.SendText(chatID, "⚠️ Tuvimos un problema. Intenta de nuevo.", nil)
	default:
		txt := fmt.Sprintf("✅ Número verificado: <b>%s</b>", vu.PhoneE164)
		if wl.Sucursal != "" {
			txt += fmt.Sprintf("\n🏬 Sucursal asignada: <b>%s</b>", wl.Sucursal)
		}
		s.msg.SendText(chatID, txt, mainMenuKB())
	}
}

func (s *ConversationService) handleText(ctx context.Context, uid string, chatID int64, text string, vu *models.VerifiedUser) {
	lower := strings.ToLower(text)

	// Comandos globales: valen en cualquier paso.
	switch lower {
	case "menú principal", "menu principal", "menu", "volver", "inicio", "hola", "buenas":
		s.clearSession(ctx, uid)
		s.msg.SendText(chatID, "👋 ¿Qué deseas hacer?", mainMenuKB())
		return
	case "ayuda":
		s.msg.SendText(chatID,
			"🆘 <b>Ayuda</b>\n• <b>Reportar pago</b>: te guío paso a paso.\n• <b>Ver estado</b>: consulta por cliente.\n\nEscribe <b>Menú principal</b> para volver.",
			mainMenuKB())
		return
	case "cerrar sesión", "cerrar sesion", "logout":
		s.clearSession(ctx, uid)
		if err := s.verification.Logout(ctx, uid); err != nil {
			s.log.Error().Err(err).Str("user", uid).Msg("logout falló")
		}
		s.askContact(chatID, "🔒 Sesión cerrada. Comparte tu <b>número</b> para continuar.")
		return
	case "cancelar":
		s.clearSession(ctx, uid)
		s.msg.SendText(chatID, "❌ Flujo cancelado. ¿Qué deseas hacer?", mainMenuKB())
		return
	case "reportar pago":
		s.clearSession(ctx, uid)
		s.setSession(ctx, uid, models.StepAskValor, models.SessionData{})
		s.msg.SendText(chatID, "💰 ¿Cuál es el <b>valor</b> del pago? (solo números)", cancelKB())
		return
	case "ver estado":
		s.clearSession(ctx, uid)
		s.setSession(ctx, uid, models.StepAskClienteStatus, models.SessionData{})
		s.msg.SendText(chatID, "🔎 Escribe el <b>nombre del cliente</b> a consultar.", cancelKB())
		return
	}

	sess, err := s.sessions.Get(ctx, uid)
	if err != nil {
		s.log.Error().Err(err).Str("user", uid).Msg("leer sesión falló")
		return
	}
	if sess == nil {
		s.msg.SendText(chatID, "👋 Te ayudo a <b>Reportar pago</b> o <b>Ver estado</b>.", mainMenuKB())
		return
	}

	data := sess.Data
	switch sess.Step {
	case models.StepAskValor:
		valor := ParseAmount(text)
		if valor <= 0 {
			s.msg.SendText(chatID, "⚠️ Valor no válido. Ej: 150000", cancelKB())
			return
		}
		data.Valor = valor
		// Con sucursal verificada en caché se salta el paso de sucursal.
		if vu != nil && vu.Sucursal != "" {
			data.Sucursal = vu.Sucursal
			s.setSession(ctx, uid, models.StepAskMedio, data)
			s.msg.SendText(chatID,
				fmt.Sprintf("🏬 Sucursal: <b>%s</b>\n💳 Selecciona el <b>medio de pago</b>:", vu.Sucursal),
				mediosKB())
			return
		}
		s.setSession(ctx, uid, models.StepAskSucursal, data)
		s.msg.SendText(chatID, "🏬 Ingresa la <b>sucursal</b> (ej: BUCARAMANGA-CENTRO).", cancelKB())

	case models.StepAskSucursal:
		if len(strings.TrimSpace(text)) < 2 {
			s.msg.SendText(chatID, "⚠️ Sucursal no válida.", cancelKB())
			return
		}
		data.Sucursal = text
		s.setSession(ctx, uid, models.StepAskMedio, data)
		s.msg.SendText(chatID, "💳 Selecciona el <b>medio de pago</b>:", mediosKB())

	case models.StepAskMedio:
		if !isMedioPago(text) {
			s.msg.SendText(chatID, "⚠️ Elige una opción del teclado.", mediosKB())
			return
		}
		if strings.ToLower(strings.TrimSpace(text)) == medioOtro {
			s.setSession(ctx, uid, models.StepAskMedioOtro, data)
			s.msg.SendText(chatID, "✍️ Escribe el <b>otro medio de pago</b>.", cancelKB())
			return
		}
		data.MedioPago = strings.TrimSpace(text)
		s.setSession(ctx, uid, models.StepAskCliente, data)
		s.msg.SendText(chatID, "👤 Escribe el <b>nombre del cliente</b>.", cancelKB())

	case models.StepAskMedioOtro:
		if len(strings.TrimSpace(text)) < 3 {
			s.msg.SendText(chatID, "⚠️ Texto muy corto.", cancelKB())
			return
		}
		data.MedioPago = text
		s.setSession(ctx, uid, models.StepAskCliente, data)
		s.msg.SendText(chatID, "👤 Escribe el <b>nombre del cliente</b>.", cancelKB())

	case models.StepAskCliente:
		if len(strings.TrimSpace(text)) < 2 {
			s.msg.SendText(chatID, "⚠️ Nombre muy corto. Intenta de nuevo.", cancelKB())
			return
		}
		data.Cliente = text
		s.setSession(ctx, uid, models.StepAwaitEvidence, data)
		s.msg.SendText(chatID, "📸 Envía la <b>foto del comprobante</b>.", cancelKB())

	case models.StepAwaitEvidence:
		s.msg.SendText(chatID, "📸 Envía la <b>foto del comprobante</b>.", cancelKB())

	case models.StepAskFechaConsig:
		s.handleTypedDate(ctx, uid, chatID, text, data)

	case models.StepAskClienteStatus:
		s.statusLookup(ctx, uid, chatID, text)

	default:
		s.msg.SendText(chatID, "👋 Te ayudo a <b>Reportar pago</b> o <b>Ver estado</b>.", mainMenuKB())
	}
}

func (s *ConversationService) handleTypedDate(ctx context.Context, uid string, chatID int64, text string, data models.SessionData) {
	d, ok := ParseTypedDate(strings.TrimSpace(text))
	if !ok {
		nowDay := today(s.now())
		kb := buildCalendar(nowDay.Year(), int(nowDay.Month()), s.now())
		s.msg.SendText(chatID, "🗓️ Selecciona la <b>fecha de consignación</b> en el calendario, o escríbela como AAAA-MM-DD o DD/MM/AAAA.", kb)
		return
	}
	p, err := s.commitDate(ctx, uid, data.PaymentID, d)
	switch {
	case errors.Is(err, errFechaFutura):
		s.msg.SendText(chatID, "⚠️ La fecha no puede ser futura. Intenta de nuevo.", nil)
	case errors.Is(err, errPagoPerdido):
		s.msg.SendText(chatID, "⚠️ No encontré la solicitud. Vuelve a <b>Reportar pago</b>.", mainMenuKB())
	case err != nil:
		s.msg.SendText(chatID, "⚠️ No pude guardar la fecha. Intenta de nuevo.", nil)
	default:
		s.sendDateConfirmation(chatID, p, d)
	}
}

// commitDate es el único camino de commit de la fecha: lo comparten el modo
// digitado y el calendario inline.
func (s *ConversationService) commitDate(ctx context.Context, uid string, pid int64, d time.Time) (*models.PaymentRequest, error) {
	if pid == 0 {
		s.clearSession(ctx, uid)
		return nil, errPagoPerdido
	}
	p, err := s.payments.GetByID(ctx, pid)
	if err != nil {
		return nil, err
	}
	if p == nil {
		// Condición fatal solo para este sub-diálogo: se limpia la sesión.
		s.clearSession(ctx, uid)
		return nil, errPagoPerdido
	}
	if d.After(today(s.now())) {
		return nil, errFechaFutura
	}
	if err := s.payments.SetFechaConsignacion(ctx, pid, d); err != nil {
		return nil, err
	}
	s.clearSession(ctx, uid)
	return p, nil
}

func (s *ConversationService) sendDateConfirmation(chatID int64, p *models.PaymentRequest, d time.Time) {
	s.msg.SendText(chatID,
		fmt.Sprintf("✅ Fecha registrada: <b>%s</b>\nID solicitud: <b>%d</b>\nCliente: <b>%s</b>\nEstado: <b>%s</b>.",
			d.Format("02/01/2006"), p.ID, p.Cliente, p.Estado),
		nil)
}

func (s *ConversationService) statusLookup(ctx context.Context, uid string, chatID int64, cliente string) {
	// La sesión se limpia siempre, haya o no resultado.
	defer s.clearSession(ctx, uid)

	p, err := s.payments.LatestByUserAndCliente(ctx, uid, cliente)
	if err != nil {
		s.log.Error().Err(err).Str("user", uid).Msg("consulta de estado falló")
		s.msg.SendText(chatID, "⚠️ No pude consultar. Intenta de nuevo.", mainMenuKB())
		return
	}
	if p == nil {
		s.msg.SendText(chatID,
			fmt.Sprintf("ℹ️ No encuentro pagos del cliente <b>%s</b> reportados por ti.", cliente),
			mainMenuKB())
		return
	}
	linea := fmt.Sprintf("👤 Cliente: <b>%s</b>\n💰 Valor: $%d\n📍 Sucursal: %s\n📌 Estado: <b>%s</b>",
		p.Cliente, p.Valor, p.Sucursal, p.Estado)
	if p.MotivoRechazo != "" {
		linea += "\n❗ Motivo: " + p.MotivoRechazo
	}
	s.msg.SendText(chatID, linea, mainMenuKB())
}

func (s *ConversationService) handleMedia(ctx context.Context, uid string, chatID int64, msg *tgbotapi.Message) *IntakeJob {
	sess, err := s.sessions.Get(ctx, uid)
	if err != nil {
		s.log.Error().Err(err).Str("user", uid).Msg("leer sesión falló")
		return nil
	}

	var (
		payload     IntakePayload
		fromCaption bool
	)
	switch {
	case sess != nil && sess.Step == models.StepAwaitEvidence:
		payload = IntakePayload{
			Valor:     sess.Data.Valor,
			Sucursal:  sess.Data.Sucursal,
			MedioPago: sess.Data.MedioPago,
			Cliente:   sess.Data.Cliente,
		}
	case sess != nil && sess.Step == models.StepAskFechaConsig:
		// Ya hay solicitud creada: una reentrega de la evidencia no debe
		// crear otra.
		s.msg.SendText(chatID, "🗓️ Primero selecciona la <b>fecha de consignación</b> de la solicitud anterior.", nil)
		return nil
	default:
		var missing []string
		payload, missing = ParseCaption(msg.Caption)
		if len(missing) > 0 {
			s.msg.SendText(chatID, "Faltan campos en el caption. También puedes usar <b>Reportar pago</b>.", nil)
			return nil
		}
		fromCaption = true
	}

	if !payload.Complete() {
		s.msg.SendText(chatID, "⚠️ Faltan datos del pago. Usa <b>Reportar pago</b> para empezar de nuevo.", mainMenuKB())
		return nil
	}

	fileID, fileName, tipo, err := s.intake.ValidateMedia(msg)
	switch {
	case errors.Is(err, ErrFileTooLarge):
		s.msg.SendText(chatID, fmt.Sprintf("⚠️ El archivo es muy grande (>%d MB). Envía una imagen o documento más liviano.", s.intake.maxBytes/(1024*1024)), nil)
		return nil
	case errors.Is(err, ErrBadFileType):
		s.msg.SendText(chatID, "⚠️ Tipo de archivo no soportado. Envía JPG/PNG o PDF.", nil)
		return nil
	case err != nil:
		s.msg.SendText(chatID, "📸 Envía la <b>foto del comprobante</b>.", cancelKB())
		return nil
	}

	return &IntakeJob{
		UserID:      uid,
		ChatID:      chatID,
		Payload:     payload,
		FileID:      fileID,
		FileName:    fileName,
		Tipo:        tipo,
		FromCaption: fromCaption,
	}
}

func (s *ConversationService) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	uid := strconv.FormatInt(cb.From.ID, 10)
	if cb.Message == nil {
		s.msg.AnswerCallback(cb.ID, "")
		return
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	act, ok := parseCalendarToken(cb.Data, s.now())
	if !ok {
		// Token ajeno o malformado: solo confirmar el callback.
		s.msg.AnswerCallback(cb.ID, "")
		return
	}

	switch act.kind {
	case calActionNop:
		s.msg.AnswerCallback(cb.ID, "")

	case calActionCancel:
		s.clearSession(ctx, uid)
		s.msg.EditMessageText(chatID, messageID, "❌ Operación cancelada.")
		s.msg.AnswerCallback(cb.ID, "Cancelado")

	case calActionNav:
		year, month := act.navigate(s.now())
		s.msg.EditMessageReplyMarkup(chatID, messageID, buildCalendar(year, month, s.now()))
		s.msg.AnswerCallback(cb.ID, "")

	case calActionSet:
		sess, err := s.sessions.Get(ctx, uid)
		if err != nil || sess == nil || sess.Step != models.StepAskFechaConsig {
			s.msg.AnswerCallback(cb.ID, "")
			return
		}
		p, err := s.commitDate(ctx, uid, sess.Data.PaymentID, act.date)
		switch {
		case errors.Is(err, errFechaFutura):
			s.msg.AnswerCallback(cb.ID, "Fecha futura no permitida")
		case errors.Is(err, errPagoPerdido):
			s.msg.AnswerCallback(cb.ID, "No encontrado")
			s.msg.SendText(chatID, "⚠️ No encontré la solicitud. Vuelve a <b>Reportar pago</b>.", mainMenuKB())
		case err != nil:
			s.msg.AnswerCallback(cb.ID, "Error, intenta de nuevo")
		default:
			s.msg.EditMessageText(chatID, messageID,
				fmt.Sprintf("✅ Fecha seleccionada: <b>%s</b>", act.date.Format("02/01/2006")))
			s.sendDateConfirmation(chatID, p, act.date)
			s.msg.AnswerCallback(cb.ID, "Fecha aplicada")
		}
	}
}

func (s *ConversationService) askContact(chatID int64, text string) {
	s.msg.SendText(chatID, text, requestContactKB())
}

func (s *ConversationService) setSession(ctx context.Context, uid string, step models.Step, data models.SessionData) {
	if err := s.sessions.Set(ctx, uid, step, data); err != nil {
		s.log.Error().Err(err).Str("user", uid).Msg("guardar sesión falló")
	}
}

func (s *ConversationService) clearSession(ctx context.Context, uid string) {
	if err := s.sessions.Clear(ctx, uid); err != nil {
		s.log.Error().Err(err).Str("user", uid).Msg("limpiar sesión falló")
	}
}
