package services

import (
	"context"
	"errors"
	"testing"

	"github.com/juanesgit/validadorPagos/internal/models"
)

func guidedJob(payload IntakePayload) *IntakeJob {
	return &IntakeJob{
		UserID:  testUserStr,
		ChatID:  testChatID,
		Payload: payload,
		FileID:  "photo-0",
		Tipo:    models.EvidencePhoto,
	}
}

func TestCommitGuiadoIdempotente(t *testing.T) {
	env := newTestEnv(480)
	ctx := context.Background()
	env.whitelist.put(wlEntry("+573155551234", "BQ-NORTE", "SOC01", true))
	if _, err := env.verified.Upsert(ctx, testUserStr, "+573155551234", "BQ-NORTE"); err != nil {
		t.Fatal(err)
	}

	payload := IntakePayload{Valor: 150000, Sucursal: "BQ-NORTE", MedioPago: "Nequi", Cliente: "Ana Ruiz"}
	if err := env.sessions.Set(ctx, testUserStr, models.StepAwaitEvidence, models.SessionData{
		Valor: payload.Valor, Sucursal: payload.Sucursal, MedioPago: payload.MedioPago, Cliente: payload.Cliente,
	}); err != nil {
		t.Fatal(err)
	}

	job := guidedJob(payload)
	p, err := env.intake.Commit(ctx, job, "foto.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.ID == 0 {
		t.Fatalf("solicitud = %+v", p)
	}
	if p.Sociedad != "SOC01" {
		t.Fatalf("sociedad = %q", p.Sociedad)
	}

	// La sesión ya no espera evidencia: la segunda finalización es un no-op.
	p2, err := env.intake.Commit(ctx, job, "foto.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if p2 != nil {
		t.Fatalf("la reentrega creó otra solicitud: %+v", p2)
	}
	if len(env.payments.payments) != 1 {
		t.Fatalf("solicitudes = %d", len(env.payments.payments))
	}
}

func TestCommitSesionFallidaNoReportaError(t *testing.T) {
	env := newTestEnv(480)
	ctx := context.Background()
	env.whitelist.put(wlEntry("+573155551234", "BQ", "", true))
	if _, err := env.verified.Upsert(ctx, testUserStr, "+573155551234", "BQ"); err != nil {
		t.Fatal(err)
	}
	payload := IntakePayload{Valor: 100, Sucursal: "BQ", MedioPago: "Nequi", Cliente: "Ana"}
	if err := env.sessions.Set(ctx, testUserStr, models.StepAwaitEvidence, models.SessionData{
		Valor: payload.Valor, Sucursal: payload.Sucursal, MedioPago: payload.MedioPago, Cliente: payload.Cliente,
	}); err != nil {
		t.Fatal(err)
	}

	// La solicitud ya quedó escrita cuando la sesión no se pudo avanzar:
	// devolver error invitaría a un reintento que la duplica.
	env.sessions.failSet = true
	p, err := env.intake.Commit(ctx, guidedJob(payload), "foto.jpg")
	if err != nil {
		t.Fatalf("esperaba éxito con sesión fallida, tengo %v", err)
	}
	if p == nil || p.ID == 0 {
		t.Fatalf("solicitud = %+v", p)
	}
	if len(env.payments.payments) != 1 {
		t.Fatalf("solicitudes = %d", len(env.payments.payments))
	}
}

func TestCommitSucursalWhitelistGana(t *testing.T) {
	env := newTestEnv(480)
	ctx := context.Background()
	env.whitelist.put(wlEntry("+573155551234", "MEDELLIN-SUR", "", true))
	if _, err := env.verified.Upsert(ctx, testUserStr, "+573155551234", "MEDELLIN-SUR"); err != nil {
		t.Fatal(err)
	}

	payload := IntakePayload{Valor: 100, Sucursal: "DIGITADA", MedioPago: "Nequi", Cliente: "Ana"}
	job := guidedJob(payload)
	job.FromCaption = true

	p, err := env.intake.Commit(ctx, job, "foto.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if p.Sucursal != "MEDELLIN-SUR" {
		t.Fatalf("sucursal = %q, la verificada debe ganar", p.Sucursal)
	}
}

func TestCommitSinAutorizacion(t *testing.T) {
	env := newTestEnv(480)
	job := guidedJob(IntakePayload{Valor: 100, Sucursal: "BQ", MedioPago: "Nequi", Cliente: "Ana"})
	_, err := env.intake.Commit(context.Background(), job, "foto.jpg")
	if !errors.Is(err, ErrNotWhitelisted) {
		t.Fatalf("esperaba ErrNotWhitelisted, tengo %v", err)
	}
	if len(env.payments.payments) != 0 {
		t.Fatal("no debía crear solicitud")
	}
}

func TestFetchAndStoreNombrePorDefecto(t *testing.T) {
	env := newTestEnv(480)
	job := guidedJob(IntakePayload{})

	name, err := env.intake.FetchAndStore(job)
	if err != nil {
		t.Fatal(err)
	}
	// Sin FileName del documento se usa la base de la ruta remota.
	if name != "photo-0.jpg" {
		t.Fatalf("name = %q", name)
	}

	job.FileName = "recibo.pdf"
	name, err = env.intake.FetchAndStore(job)
	if err != nil {
		t.Fatal(err)
	}
	if name != "recibo.pdf" {
		t.Fatalf("name = %q", name)
	}
}
