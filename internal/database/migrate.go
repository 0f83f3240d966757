package database

import (
    "database/sql"
    "embed"

    "github.com/go-sql-driver/mysql"
    "github.com/golang-migrate/migrate/v4"
    migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
    "github.com/golang-migrate/migrate/v4/source/iofs"
    "github.com/pkg/errors"
    "github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies every pending embedded migration.  It opens its own
// connection because the migration files hold several statements each and
// need multiStatements, which the serving pool does not enable.
func Migrate(dsn string, logger zerolog.Logger) error {
    mc, err := mysql.ParseDSN(dsn)
    if err != nil {
        return errors.Wrap(err, "parse dsn")
    }
    mc.MultiStatements = true

    db, err := sql.Open("mysql", mc.FormatDSN())
    if err != nil {
        return errors.Wrap(err, "open migration connection")
    }
    defer db.Close()

    driver, err := migratemysql.WithInstance(db, &migratemysql.Config{})
    if err != nil {
        return errors.Wrap(err, "create mysql migration driver")
    }
    src, err := iofs.New(migrationFiles, "migrations")
    if err != nil {
        return errors.Wrap(err, "open embedded migrations")
    }
    m, err := migrate.NewWithInstance("iofs", src, "mysql", driver)
    if err != nil {
        return errors.Wrap(err, "create migrator")
    }

    if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
        return errors.Wrap(err, "run migrations")
    }

    version, dirty, err := m.Version()
    switch {
    case err == nil:
        logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema migrated")
    case !errors.Is(err, migrate.ErrNilVersion):
        return errors.Wrap(err, "read migration version")
    }
    return nil
}
