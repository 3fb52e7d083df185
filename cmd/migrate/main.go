// migrate applies the embedded SQL migrations: go run ./cmd/migrate -direction up
package main

import (
	"flag"
	"os"

	"github.com/KaiavN/Transac/internal/config"
	"github.com/KaiavN/Transac/internal/db/migrate"
	"github.com/KaiavN/Transac/internal/logutil"
)

func main() {
	direction := flag.String("direction", migrate.DirectionUp, "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logutil.New("development").Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	log := logutil.New(cfg.Server.Environment)

	if err := migrate.Run(cfg.Database.URL(), *direction); err != nil {
		log.Error("migration failed", "direction", *direction, "err", err)
		os.Exit(1)
	}
	log.Info("migrations applied", "direction", *direction)
}
