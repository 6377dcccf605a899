package sqldb

import (
	stderrors "errors"
	"os"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/logger"
)

// migrateUp applies pending migrations from dir. The migrator is not
// closed because closing it would close the shared pool.
func migrateUp(db *gorm.DB, dir string, log *logger.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Internal(err)
	}

	driver, err := migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
	if err != nil {
		return errors.Configuration("sqldb: create migration driver").WithCause(err)
	}
	source, err := iofs.New(os.DirFS(dir), ".")
	if err != nil {
		return errors.Configurationf("sqldb: read migrations from %s", dir).WithCause(err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return errors.Configuration("sqldb: create migrator").WithCause(err)
	}

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Configurationf("sqldb: migrate up %s", dir).WithCause(err)
	}
	version, dirty, err := m.Version()
	if err != nil && !stderrors.Is(err, migrate.ErrNilVersion) {
		return errors.Internal(err)
	}
	log.Info("migrations applied", logger.Fields("dir", dir, "version", version, "dirty", dirty))
	return nil
}
