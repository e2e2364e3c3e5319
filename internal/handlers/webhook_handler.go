package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// UpdateDispatcher procesa una entrega del webhook; lo implementa el motor de
// conversación.
type UpdateDispatcher interface {
	HandleUpdate(ctx context.Context, upd tgbotapi.Update)
}

// WebhookHandler recibe las entregas de Telegram. Siempre responde 200 de
// inmediato: el transporte reintenta ante cualquier otra cosa y el trabajo
// lento (descargas, envíos) no debe frenar el acknowledgment.
type WebhookHandler struct {
	conv UpdateDispatcher
	log  zerolog.Logger
	wg   sync.WaitGroup
}

func NewWebhookHandler(conv UpdateDispatcher, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		conv: conv,
		log:  log.With().Str("component", "webhook").Logger(),
	}
}

func (h *WebhookHandler) Webhook(c *gin.Context) {
	var upd tgbotapi.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		h.log.Error().Err(err).Msg("update inválido")
		c.Status(http.StatusOK)
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()
		h.conv.HandleUpdate(ctx, upd)
	}()

	c.Status(http.StatusOK)
}

// Drain espera los updates en vuelo; se llama en el apagado del servidor.
func (h *WebhookHandler) Drain() {
	h.wg.Wait()
}
