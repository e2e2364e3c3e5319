package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Tokens del calendario inline. Un único parser los interpreta tanto para la
// navegación como para la selección.
const (
	calNop    = "CAL_NOP"
	calToday  = "CAL_TODAY"
	calCancel = "CAL_CANCEL"
	calNavPfx = "CAL_NAV:"
	calSetPfx = "CAL_SET:"
)

type calendarActionKind int

const (
	calActionNop calendarActionKind = iota
	calActionNav
	calActionSet
	calActionCancel
)

type calendarAction struct {
	kind calendarActionKind
	// nav
	year, month int
	next        bool
	// set
	date time.Time
}

// parseCalendarToken interpreta un callback token. Tokens malformados o ajenos
// se tratan como no-op: el webhook puede reentregar cualquier cosa.
func parseCalendarToken(token string, now time.Time) (calendarAction, bool) {
	switch {
	case token == calNop:
		return calendarAction{kind: calActionNop}, true
	case token == calCancel:
		return calendarAction{kind: calActionCancel}, true
	case token == calToday:
		return calendarAction{kind: calActionSet, date: today(now)}, true
	case strings.HasPrefix(token, calNavPfx):
		rest := strings.TrimPrefix(token, calNavPfx)
		parts := strings.Split(rest, ":")
		if len(parts) != 2 {
			return calendarAction{}, false
		}
		ym := strings.SplitN(parts[0], "-", 2)
		if len(ym) != 2 {
			return calendarAction{}, false
		}
		year, err1 := strconv.Atoi(ym[0])
		month, err2 := strconv.Atoi(ym[1])
		if err1 != nil || err2 != nil || month < 1 || month > 12 {
			return calendarAction{}, false
		}
		switch parts[1] {
		case "next":
			return calendarAction{kind: calActionNav, year: year, month: month, next: true}, true
		case "prev":
			return calendarAction{kind: calActionNav, year: year, month: month}, true
		}
		return calendarAction{}, false
	case strings.HasPrefix(token, calSetPfx):
		day := strings.TrimPrefix(token, calSetPfx)
		d, err := time.Parse("2006-01-02", day)
		if err != nil {
			return calendarAction{}, false
		}
		return calendarAction{kind: calActionSet, date: d}, true
	}
	return calendarAction{}, false
}

// navigate resuelve el mes destino de una acción CAL_NAV, acotado para que
// nunca pase del mes actual.
func (a calendarAction) navigate(now time.Time) (year, month int) {
	year, month = a.year, a.month
	if a.next {
		month++
		if month > 12 {
			month = 1
			year++
		}
	} else {
		month--
		if month < 1 {
			month = 12
			year--
		}
	}
	ty, tm, _ := now.UTC().Date()
	if year > ty || (year == ty && month > int(tm)) {
		return ty, int(tm)
	}
	return year, month
}

var spanishMonths = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// buildCalendar arma la grilla inline de un mes: encabezado de navegación,
// fila de días de semana (lunes primero), celdas del mes (las futuras quedan
// deshabilitadas como no-op) y fila Hoy/Cancelar.
func buildCalendar(year, month int, now time.Time) tgbotapi.InlineKeyboardMarkup {
	nowDay := today(now)
	ty, tm, _ := nowDay.Date()

	nextToken := fmt.Sprintf("%s%d-%02d:next", calNavPfx, year, month)
	if year > ty || (year == ty && month >= int(tm)) {
		nextToken = calNop
	}
	title := fmt.Sprintf("%s %d", spanishMonths[month-1], year)

	rows := [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData("◀", fmt.Sprintf("%s%d-%02d:prev", calNavPfx, year, month)),
			tgbotapi.NewInlineKeyboardButtonData(title, calNop),
			tgbotapi.NewInlineKeyboardButtonData("▶", nextToken),
		},
	}

	var header []tgbotapi.InlineKeyboardButton
	for _, d := range []string{"Lu", "Ma", "Mi", "Ju", "Vi", "Sa", "Do"} {
		header = append(header, tgbotapi.NewInlineKeyboardButtonData(d, calNop))
	}
	rows = append(rows, header)

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	// time.Weekday: domingo=0; la grilla arranca en lunes
	offset := (int(first.Weekday()) + 6) % 7

	cell := func(day int) tgbotapi.InlineKeyboardButton {
		if day == 0 {
			return tgbotapi.NewInlineKeyboardButtonData(" ", calNop)
		}
		date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if date.After(nowDay) {
			return tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(day), calNop)
		}
		token := calSetPfx + date.Format("2006-01-02")
		return tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(day), token)
	}

	day := 1
	for day <= daysInMonth {
		var week []tgbotapi.InlineKeyboardButton
		for i := 0; i < 7; i++ {
			if (len(rows) == 2 && i < offset) || day > daysInMonth {
				week = append(week, cell(0))
				continue
			}
			week = append(week, cell(day))
			day++
		}
		rows = append(rows, week)
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("Hoy", calToday),
		tgbotapi.NewInlineKeyboardButtonData("Cancelar", calCancel),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
