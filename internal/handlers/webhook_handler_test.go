package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const updateJSON = `{"update_id":1,"message":{"message_id":1,"text":"hola","chat":{"id":888},"from":{"id":777}}}`

// blockingDispatcher retiene cada update hasta que el test lo libere.
type blockingDispatcher struct {
	started chan struct{}
	release chan struct{}
	mu      sync.Mutex
	handled int
}

func newBlockingDispatcher() *blockingDispatcher {
	return &blockingDispatcher{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (d *blockingDispatcher) HandleUpdate(_ context.Context, _ tgbotapi.Update) {
	d.started <- struct{}{}
	<-d.release
	d.mu.Lock()
	d.handled++
	d.mu.Unlock()
}

func (d *blockingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handled
}

func webhookRouter(d UpdateDispatcher) (*gin.Engine, *WebhookHandler) {
	gin.SetMode(gin.TestMode)
	h := NewWebhookHandler(d, zerolog.Nop())
	r := gin.New()
	r.POST("/telegram/webhook", h.Webhook)
	return r, h
}

func postUpdate(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookRespondeAntesDeProcesar(t *testing.T) {
	d := newBlockingDispatcher()
	r, h := webhookRouter(d)

	w := postUpdate(r, updateJSON)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	// Ya respondimos 200 y el procesamiento sigue en vuelo.
	select {
	case <-d.started:
	case <-time.After(2 * time.Second):
		t.Fatal("el dispatch nunca arrancó")
	}
	if d.count() != 0 {
		t.Fatal("el dispatch terminó antes de liberarse")
	}

	close(d.release)
	h.Drain()
	if d.count() != 1 {
		t.Fatalf("handled = %d", d.count())
	}
}

func TestWebhookCuerpoInvalidoDevuelve200(t *testing.T) {
	d := newBlockingDispatcher()
	close(d.release)
	r, h := webhookRouter(d)

	w := postUpdate(r, `{"update_id":`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, el transporte reintenta ante cualquier otra cosa", w.Code)
	}
	h.Drain()
	if d.count() != 0 {
		t.Fatalf("un cuerpo inválido no debe despacharse: handled = %d", d.count())
	}
}

func TestDrainEsperaLosUpdatesEnVuelo(t *testing.T) {
	d := newBlockingDispatcher()
	r, h := webhookRouter(d)

	for i := 0; i < 3; i++ {
		if w := postUpdate(r, updateJSON); w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	}
	for i := 0; i < 3; i++ {
		select {
		case <-d.started:
		case <-time.After(2 * time.Second):
			t.Fatal("faltó un dispatch")
		}
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(d.release)
	}()
	h.Drain()
	if d.count() != 3 {
		t.Fatalf("handled = %d, Drain debe esperar los tres", d.count())
	}
}
