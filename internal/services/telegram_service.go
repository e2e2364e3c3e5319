package services

import (
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Messenger es la salida hacia el chat. Los fallos de entrega se loguean y no
// frenan la conversación: por eso los métodos no devuelven error.
type Messenger interface {
	SendText(chatID int64, text string, markup interface{})
	EditMessageText(chatID int64, messageID int, text string)
	EditMessageReplyMarkup(chatID int64, messageID int, markup tgbotapi.InlineKeyboardMarkup)
	AnswerCallback(callbackID, text string)
}

// FileTransport resuelve y descarga archivos remotos. Sus fallos sí viajan al
// que llama: se convierten en un aviso de reintento para el usuario.
type FileTransport interface {
	ResolveFile(fileID string) (path string, err error)
	Download(path string) ([]byte, error)
}

type TelegramService struct {
	bot        *tgbotapi.BotAPI
	fileClient *http.Client
	log        zerolog.Logger
}

func NewTelegramService(token string, log zerolog.Logger) (*TelegramService, error) {
	client := &http.Client{Timeout: 15 * time.Second}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &TelegramService{
		bot:        bot,
		fileClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.With().Str("component", "telegram").Logger(),
	}, nil
}

func (t *TelegramService) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	if _, err := t.bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	t.log.Info().Str("url", url).Msg("webhook registrado")
	return nil
}

func (t *TelegramService) SendText(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := t.bot.Send(msg); err != nil {
		t.log.Error().Err(err).Int64("chat_id", chatID).Msg("sendMessage falló")
	}
}

func (t *TelegramService) EditMessageText(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := t.bot.Send(edit); err != nil {
		t.log.Error().Err(err).Int64("chat_id", chatID).Msg("editMessageText falló")
	}
}

func (t *TelegramService) EditMessageReplyMarkup(chatID int64, messageID int, markup tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, markup)
	if _, err := t.bot.Send(edit); err != nil {
		t.log.Error().Err(err).Int64("chat_id", chatID).Msg("editMessageReplyMarkup falló")
	}
}

func (t *TelegramService) AnswerCallback(callbackID, text string) {
	cb := tgbotapi.NewCallback(callbackID, text)
	if _, err := t.bot.Request(cb); err != nil {
		t.log.Error().Err(err).Msg("answerCallbackQuery falló")
	}
}

func (t *TelegramService) ResolveFile(fileID string) (string, error) {
	f, err := t.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("getFile: %w", err)
	}
	return f.FilePath, nil
}

func (t *TelegramService) Download(path string) ([]byte, error) {
	url := fmt.Sprintf(tgbotapi.FileEndpoint, t.bot.Token, path)
	resp, err := t.fileClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file body: %w", err)
	}
	return data, nil
}
