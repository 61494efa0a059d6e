package helper

//nolint:revive
import (
	"errors"
	"fmt"
	"net/url"

	"studio/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
)

const migrationSource = "file://migrations/postgres"

type action string

const (
	actionUp     action = "up"
	actionDown   action = "down"
	actionStepUp action = "step-up"
	actionDrop   action = "drop"
)

// migrationURL points golang-migrate at the write database with its own bookkeeping table.
func migrationURL(cfg *config.Config) (string, error) {
	pg := cfg.DB.Postgres

	dsn, err := url.Parse(pg.Write.DSN(pg.Prefix))
	if err != nil {
		return "", fmt.Errorf("invalid database url: %w", err)
	}

	query := dsn.Query()
	if pg.MigrationTable != "" {
		query.Set("x-migrations-table", pg.MigrationTable)
	}

	dsn.RawQuery = query.Encode()

	return dsn.String(), nil
}

func run(cfg *config.Config, act action) error {
	databaseURL, err := migrationURL(cfg)
	if err != nil {
		return err
	}

	mig, err := migrate.New(migrationSource, databaseURL)
	if err != nil {
		return fmt.Errorf("error creating migrate instance: %w", err)
	}

	defer func() {
		if srcErr, dbErr := mig.Close(); srcErr != nil || dbErr != nil {
			log.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("failed to close migrate instance")
		}
	}()

	switch act {
	case actionUp:
		err = mig.Up()
	case actionDown:
		err = mig.Steps(-1)
	case actionStepUp:
		err = mig.Steps(1)
	case actionDrop:
		err = mig.Down()
	default:
		return fmt.Errorf("unknown migration action %q", act)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error running migration %s: %w", act, err)
	}

	version, dirty, verErr := mig.Version()
	if verErr != nil && !errors.Is(verErr, migrate.ErrNilVersion) {
		log.Warn().Err(verErr).Msg("failed to read migration version")
	}

	log.Info().Str("action", string(act)).Uint("version", version).Bool("dirty", dirty).Msg("Database migration finished")

	return nil
}

func Up(cfg *config.Config) error {
	return run(cfg, actionUp)
}

func StepUp(cfg *config.Config) error {
	return run(cfg, actionStepUp)
}

func Down(cfg *config.Config) error {
	return run(cfg, actionDown)
}

func Drop(cfg *config.Config) error {
	return run(cfg, actionDrop)
}
