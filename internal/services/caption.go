package services

import (
	"regexp"
	"strconv"
	"strings"
)

// IntakePayload son los campos validados que necesita una solicitud de pago.
// Tanto el flujo guiado como el caption producen este mismo valor; el
// finalizador no distingue de dónde salió.
type IntakePayload struct {
	Valor     int64
	Sucursal  string
	MedioPago string
	Cliente   string
}

func (p IntakePayload) Complete() bool {
	return p.Valor > 0 && p.Sucursal != "" && p.MedioPago != "" && p.Cliente != ""
}

// Acepta "nombre" y "ref" como alias de "cliente" (compatibilidad con los
// captions que ya circulan en campo).
var captionLine = regexp.MustCompile(`(?mi)^(valor|sucursal|medio_pago|cliente|nombre|ref)\s*:\s*(.+)$`)

// ParseCaption extrae un IntakePayload de un caption "clave: valor" por línea.
// missing lista las claves canónicas ausentes.
func ParseCaption(caption string) (payload IntakePayload, missing []string) {
	fields := map[string]string{}
	for _, m := range captionLine.FindAllStringSubmatch(caption, -1) {
		key := strings.ToLower(strings.TrimSpace(m[1]))
		if key == "nombre" || key == "ref" {
			key = "cliente"
		}
		fields[key] = strings.TrimSpace(m[2])
	}

	payload.Sucursal = fields["sucursal"]
	payload.MedioPago = fields["medio_pago"]
	payload.Cliente = fields["cliente"]
	if v, ok := fields["valor"]; ok {
		payload.Valor = ParseAmount(v)
	}

	for _, key := range []string{"valor", "sucursal", "medio_pago", "cliente"} {
		if fields[key] == "" {
			missing = append(missing, key)
		}
	}
	return payload, missing
}

// ParseAmount ignora todo lo que no sea dígito ("150,000" -> 150000).
// Devuelve 0 si no queda un entero positivo.
func ParseAmount(txt string) int64 {
	var digits strings.Builder
	for _, r := range txt {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	n, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
