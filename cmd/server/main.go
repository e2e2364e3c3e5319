package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/juanesgit/validadorPagos/internal/app"
	"github.com/juanesgit/validadorPagos/internal/config"
)

func main() {
	// .env es opcional: en producción los secretos llegan por el entorno
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "validador-pagos").Logger()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("configuración inválida")
	}

	if err := app.Run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("el servidor terminó con error")
	}
}
