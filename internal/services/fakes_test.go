package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/juanesgit/validadorPagos/internal/models"
)

// Fakes en memoria de los repos y colaboradores, para probar el motor sin
// Postgres ni red.

type fakeSessionRepo struct {
	mu      sync.Mutex
	rows    map[string]*models.ConversationSession
	failSet bool
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{rows: make(map[string]*models.ConversationSession)}
}

func (r *fakeSessionRepo) Get(_ context.Context, uid string) (*models.ConversationSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[uid]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) Set(_ context.Context, uid string, step models.Step, data models.SessionData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSet {
		return errors.New("set failed")
	}
	r.rows[uid] = &models.ConversationSession{
		TelegramUserID: uid,
		Step:           step,
		Data:           data,
		UpdatedAt:      time.Now(),
	}
	return nil
}

func (r *fakeSessionRepo) Clear(_ context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, uid)
	return nil
}

type fakeVerifiedRepo struct {
	mu   sync.Mutex
	rows map[string]*models.VerifiedUser
}

func newFakeVerifiedRepo() *fakeVerifiedRepo {
	return &fakeVerifiedRepo{rows: make(map[string]*models.VerifiedUser)}
}

func (r *fakeVerifiedRepo) Get(_ context.Context, uid string) (*models.VerifiedUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.rows[uid]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (r *fakeVerifiedRepo) Upsert(_ context.Context, uid, phone, sucursal string) (*models.VerifiedUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := &models.VerifiedUser{
		TelegramUserID: uid,
		PhoneE164:      phone,
		Sucursal:       sucursal,
		VerifiedAt:     time.Now().UTC(),
	}
	r.rows[uid] = v
	cp := *v
	return &cp, nil
}

func (r *fakeVerifiedRepo) UpdateSucursal(_ context.Context, uid, sucursal string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.rows[uid]; ok {
		v.Sucursal = sucursal
	}
	return nil
}

func (r *fakeVerifiedRepo) Delete(_ context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, uid)
	return nil
}

type fakeWhitelistRepo struct {
	mu   sync.Mutex
	rows map[string]*models.WhitelistEntry
}

func newFakeWhitelistRepo() *fakeWhitelistRepo {
	return &fakeWhitelistRepo{rows: make(map[string]*models.WhitelistEntry)}
}

func (r *fakeWhitelistRepo) put(w *models.WhitelistEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[w.PhoneE164] = w
}

func (r *fakeWhitelistRepo) remove(phone string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, phone)
}

func (r *fakeWhitelistRepo) GetByPhone(_ context.Context, phone string) (*models.WhitelistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.rows[phone]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

type fakePaymentRepo struct {
	mu        sync.Mutex
	nextID    int64
	payments  map[int64]*models.PaymentRequest
	evidences []*models.Evidence
	failTx    bool
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{nextID: 1, payments: make(map[int64]*models.PaymentRequest)}
}

func (r *fakePaymentRepo) CreateWithEvidence(_ context.Context, p *models.PaymentRequest, e *models.Evidence) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failTx {
		return 0, errors.New("tx failed")
	}
	p.ID = r.nextID
	r.nextID++
	p.Estado = models.EstadoPendiente
	p.CreatedAt = time.Now().UTC()
	cp := *p
	r.payments[p.ID] = &cp
	e.PaymentID = p.ID
	ecp := *e
	r.evidences = append(r.evidences, &ecp)
	return p.ID, nil
}

func (r *fakePaymentRepo) GetByID(_ context.Context, id int64) (*models.PaymentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) SetFechaConsignacion(_ context.Context, id int64, fecha time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return errors.New("not found")
	}
	f := fecha
	p.FechaConsignacion = &f
	return nil
}

func (r *fakePaymentRepo) LatestByUserAndCliente(_ context.Context, uid, cliente string) (*models.PaymentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.PaymentRequest
	for _, p := range r.payments {
		if p.TelegramUserID != uid || !strings.EqualFold(p.Cliente, cliente) {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) || (p.CreatedAt.Equal(latest.CreatedAt) && p.ID > latest.ID) {
			latest = p
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *fakePaymentRepo) ListByEstado(_ context.Context, estado models.Estado, limit, offset int) ([]*models.PaymentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*models.PaymentRequest
	for _, p := range r.payments {
		if estado == "" || p.Estado == estado {
			cp := *p
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (r *fakePaymentRepo) Decide(_ context.Context, id int64, estado models.Estado, motivo string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Estado != models.EstadoPendiente {
		return false, nil
	}
	p.Estado = estado
	p.MotivoRechazo = motivo
	return true, nil
}

func (r *fakePaymentRepo) GetEvidence(_ context.Context, id int64) (*models.Evidence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.evidences {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

type sentMsg struct {
	chatID int64
	text   string
	markup interface{}
}

type fakeMessenger struct {
	mu        sync.Mutex
	sent      []sentMsg
	edits     []string
	markups   []tgbotapi.InlineKeyboardMarkup
	callbacks []string
}

func (m *fakeMessenger) SendText(chatID int64, text string, markup interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMsg{chatID: chatID, text: text, markup: markup})
}

func (m *fakeMessenger) EditMessageText(chatID int64, messageID int, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, text)
}

func (m *fakeMessenger) EditMessageReplyMarkup(chatID int64, messageID int, markup tgbotapi.InlineKeyboardMarkup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markups = append(m.markups, markup)
}

func (m *fakeMessenger) AnswerCallback(callbackID, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, text)
}

func (m *fakeMessenger) lastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].text
}

type fakeFileTransport struct {
	failResolve  bool
	failDownload bool
	data         []byte
}

func (f *fakeFileTransport) ResolveFile(fileID string) (string, error) {
	if f.failResolve {
		return "", errors.New("getFile failed")
	}
	return "photos/" + fileID + ".jpg", nil
}

func (f *fakeFileTransport) Download(path string) ([]byte, error) {
	if f.failDownload {
		return nil, errors.New("download failed")
	}
	if f.data != nil {
		return f.data, nil
	}
	return []byte("bytes"), nil
}

type fakeStore struct {
	mu    sync.Mutex
	saved []string
}

func (s *fakeStore) Save(data []byte, suggestedName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := suggestedName
	for _, existing := range s.saved {
		if existing == name {
			name = fmt.Sprintf("dup_%s", name)
			break
		}
	}
	s.saved = append(s.saved, name)
	return name, nil
}

// testEnv arma el motor completo sobre fakes.
type testEnv struct {
	sessions     *fakeSessionRepo
	verified     *fakeVerifiedRepo
	whitelist    *fakeWhitelistRepo
	payments     *fakePaymentRepo
	msg          *fakeMessenger
	files        *fakeFileTransport
	store        *fakeStore
	verification *VerificationService
	intake       *IntakeService
	conv         *ConversationService
}

func newTestEnv(ttlMinutes int) *testEnv {
	env := &testEnv{
		sessions:  newFakeSessionRepo(),
		verified:  newFakeVerifiedRepo(),
		whitelist: newFakeWhitelistRepo(),
		payments:  newFakePaymentRepo(),
		msg:       &fakeMessenger{},
		files:     &fakeFileTransport{},
		store:     &fakeStore{},
	}
	log := zerolog.Nop()
	env.verification = NewVerificationService(env.verified, env.whitelist, ttlMinutes, "57", log)
	env.intake = NewIntakeService(env.files, env.store, env.payments, env.sessions, env.verification, 10, log)
	env.conv = NewConversationService(env.sessions, env.payments, env.verification, env.intake, env.msg, nil, log)
	return env
}

// --- constructores de updates ---

const (
	testUserID  int64 = 777
	testChatID  int64 = 888
	testUserStr       = "777"
)

func textUpdate(text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: testUserID},
		Chat: &tgbotapi.Chat{ID: testChatID},
		Text: text,
	}}
}

func contactUpdate(ownerID int64, phone string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:    &tgbotapi.User{ID: testUserID},
		Chat:    &tgbotapi.Chat{ID: testChatID},
		Contact: &tgbotapi.Contact{UserID: ownerID, PhoneNumber: phone},
	}}
}

func photoUpdate(caption string, sizes ...int) tgbotapi.Update {
	var photos []tgbotapi.PhotoSize
	for i, size := range sizes {
		photos = append(photos, tgbotapi.PhotoSize{
			FileID:   fmt.Sprintf("photo-%d", i),
			FileSize: size,
		})
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:    &tgbotapi.User{ID: testUserID},
		Chat:    &tgbotapi.Chat{ID: testChatID},
		Caption: caption,
		Photo:   photos,
	}}
}

func documentUpdate(caption, name, mime string, size int) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:    &tgbotapi.User{ID: testUserID},
		Chat:    &tgbotapi.Chat{ID: testChatID},
		Caption: caption,
		Document: &tgbotapi.Document{
			FileID:   "doc-1",
			FileName: name,
			MimeType: mime,
			FileSize: size,
		},
	}}
}

func callbackUpdate(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		From: &tgbotapi.User{ID: testUserID},
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: 42,
			Chat:      &tgbotapi.Chat{ID: testChatID},
		},
	}}
}
