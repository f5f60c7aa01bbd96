package database

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

var (
	ErrUnknownDriver = errors.New("unknown database driver")
	ErrInvalidTenant = errors.New("invalid tenant schema name")
	ErrConstraint    = errors.New("constraint violation")
)

// Config selects the engine and its pool.
type Config struct {
	Driver          Driver
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
}

// Tenant names the schema a deployment's tables live in. The zero value uses
// the connection's default schema.
type Tenant string

const DefaultTenant Tenant = ""

var tenantPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ParseTenant validates a schema name so it can be spliced into SQL quoted.
func ParseTenant(s string) (Tenant, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultTenant, nil
	}
	if !tenantPattern.MatchString(s) {
		return DefaultTenant, errors.Wrapf(ErrInvalidTenant, "%q", s)
	}
	return Tenant(s), nil
}

func (t Tenant) quoted() string {
	return `"` + string(t) + `"`
}

// DB is the persistence adapter. Every unit of work goes through Transaction.
type DB struct {
	gorm   *gorm.DB
	driver Driver
}

// Connect opens the configured engine. SQLite gets a single connection so
// writers never contend for the file lock.
func Connect(cfg Config) (*DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DSN,
			PreferSimpleProtocol: true,
		})
	case DriverSQLite:
		if err := ensureDir(cfg.DSN); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	default:
		return nil, errors.Wrapf(ErrUnknownDriver, "%q", cfg.Driver)
	}

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  parseLogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		PrepareStmt:    false,
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql.DB")
	}
	if cfg.Driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return &DB{gorm: db, driver: cfg.Driver}, nil
}

// Gorm exposes the untenanted handle for tooling and tests.
func (d *DB) Gorm() *gorm.DB {
	return d.gorm
}

// Transaction runs fn inside one transaction bound to tenant. fn returning an
// error (or panicking) rolls everything back.
func (d *DB) Transaction(ctx context.Context, tenant Tenant, fn func(tx *gorm.DB) error) error {
	return d.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := d.scope(tx, tenant); err != nil {
			return errors.Wrap(err, "select tenant schema")
		}
		return fn(tx)
	})
}

// scope points the transaction at the tenant schema. SQLite has no schemas;
// one file serves one deployment.
func (d *DB) scope(tx *gorm.DB, tenant Tenant) error {
	if d.driver != DriverPostgres || tenant == DefaultTenant {
		return nil
	}
	return tx.Exec("SET LOCAL search_path TO " + tenant.quoted() + ", public").Error
}

// Migrate creates the tenant schema when needed and auto-migrates models in it.
func (d *DB) Migrate(ctx context.Context, tenant Tenant, models ...interface{}) error {
	if d.driver == DriverSQLite {
		return errors.Wrap(d.gorm.WithContext(ctx).AutoMigrate(models...), "auto migrate")
	}
	if tenant != DefaultTenant {
		if err := d.gorm.WithContext(ctx).Exec("CREATE SCHEMA IF NOT EXISTS " + tenant.quoted()).Error; err != nil {
			return errors.Wrap(err, "create tenant schema")
		}
	}
	return d.Transaction(ctx, tenant, func(tx *gorm.DB) error {
		return errors.Wrap(tx.AutoMigrate(models...), "auto migrate")
	})
}

func (d *DB) Ping(ctx context.Context) error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *DB) Close() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ForUpdate locks the selected rows until the transaction ends. SQLite
// ignores the clause and serialises writers instead.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Classify maps translated driver errors onto ErrConstraint and adds context.
func Classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return errors.Wrapf(ErrConstraint, "%s: %v", op, err)
	}
	return errors.Wrap(err, op)
}

func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func ensureDir(dsn string) error {
	if dsn == "" || strings.HasPrefix(dsn, "file:") || strings.HasPrefix(dsn, ":memory:") {
		return nil
	}
	return errors.Wrap(os.MkdirAll(filepath.Dir(dsn), 0o755), "create data dir")
}

func parseLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
