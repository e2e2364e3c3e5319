package services

import "time"

var typedDateFormats = []string{"2006-01-02", "02/01/2006"}

// ParseTypedDate intenta los formatos aceptados en orden; gana el primero.
func ParseTypedDate(text string) (time.Time, bool) {
	for _, layout := range typedDateFormats {
		if d, err := time.Parse(layout, text); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// today trunca el reloj del proceso a la fecha UTC.
func today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
