package services

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MediosPago es el vocabulario cerrado de medios de pago; "Otro medio" abre el
// paso de texto libre.
var MediosPago = []string{
	"Bancolombia",
	"Davivienda",
	"Banco de Bogota",
	"Banco BBVA",
	"Corresponsal Bancario",
	"Nequi",
	"Daviplata",
	"Otro medio",
}

const medioOtro = "otro medio"

var mediosSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(MediosPago))
	for _, m := range MediosPago {
		set[strings.ToLower(m)] = struct{}{}
	}
	return set
}()

func isMedioPago(text string) bool {
	_, ok := mediosSet[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

func mainMenuKB() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("Reportar pago")),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("Ver estado")),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("Ayuda")),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("Cerrar sesión")),
	)
	kb.ResizeKeyboard = true
	return kb
}

func cancelKB() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Cancelar"),
			tgbotapi.NewKeyboardButton("Menú principal"),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func mediosKB() tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton
	for i, m := range MediosPago {
		row = append(row, tgbotapi.NewKeyboardButton(m))
		if (i+1)%2 == 0 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButton("Cancelar"),
		tgbotapi.NewKeyboardButton("Menú principal"),
	})
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

func requestContactKB() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact("Compartir mi número 📲")),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Ayuda"),
			tgbotapi.NewKeyboardButton("Menú principal"),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}
