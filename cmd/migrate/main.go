package main

import (
	"database/sql"
	"errors"
	"flag"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"

	"dentalflow/internal/config"
	"dentalflow/internal/logging"
	"dentalflow/migrations"
)

func main() {
	down := flag.Bool("down", false, "roll back every migration")
	steps := flag.Int("steps", 0, "apply n migrations, negative to roll back n")
	force := flag.Int("force", -1, "mark version as applied without running it")
	flag.Parse()

	cfg := config.Load()
	logging.Setup(cfg.LogLevel, false)
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("open db")
	}
	defer func() { _ = db.Close() }()
	if err := db.Ping(); err != nil {
		log.WithError(err).Fatal("ping db")
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.WithError(err).Fatal("db driver")
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		log.WithError(err).Fatal("source driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", dbDriver)
	if err != nil {
		log.WithError(err).Fatal("create migrator")
	}
	defer func() { _, _ = m.Close() }()

	switch {
	case *force >= 0:
		err = m.Force(*force)
	case *down:
		err = m.Down()
	case *steps != 0:
		err = m.Steps(*steps)
	default:
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.WithError(err).Error("migration failed")
		os.Exit(1)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		log.WithError(verr).Warn("read schema version")
	}
	log.WithFields(log.Fields{"version": version, "dirty": dirty}).Info("migrations complete")
}
