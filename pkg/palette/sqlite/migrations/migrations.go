package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// ErrDirty means an earlier migration stopped halfway and needs manual repair.
var ErrDirty = errors.New("palette schema is dirty")

//go:embed *.sql
var files embed.FS

// Migrate brings the palette schema up to date and returns its version.
func Migrate(db *sql.DB, log *zap.SugaredLogger) (uint, error) {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return 0, fmt.Errorf("create migration driver: %w", err)
	}

	source, err := iofs.New(files, ".")
	if err != nil {
		return 0, fmt.Errorf("create migration source: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return 0, fmt.Errorf("create migrator: %w", err)
	}

	from, err := version(migrator)
	if err != nil {
		return 0, err
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate up from version %d: %w", from, err)
	}

	to, err := version(migrator)
	if err != nil {
		return 0, err
	}

	if from == to {
		log.Debugw("palette schema up to date", "version", to)
	} else {
		log.Infow("palette schema migrated", "from", from, "to", to)
	}

	return to, nil
}

// version is 0 for a database that has never been migrated.
func version(migrator *migrate.Migrate) (uint, error) {
	v, dirty, err := migrator.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return 0, fmt.Errorf("%w at version %d", ErrDirty, v)
	}
	return v, nil
}
