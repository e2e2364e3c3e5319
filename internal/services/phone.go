package services

import "strings"

// NormalizePhone lleva un número crudo a E.164. Reglas, en orden:
// el original con "+" conserva sus dígitos tras un "+"; 10 dígitos exactos
// reciben el indicativo por defecto; cualquier otra cosa recibe un "+" al frente.
// Devuelve "" si no hay dígitos.
func NormalizePhone(raw, defaultCountryCode string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if d == "" {
		return ""
	}
	if strings.HasPrefix(strings.TrimSpace(raw), "+") {
		return "+" + d
	}
	if len(d) == 10 {
		return "+" + defaultCountryCode + d
	}
	return "+" + d
}
