package config

import (
	"log"
	"path/filepath"
	"time"

	"pilotopos/pkg/database"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Config holds every setting of the service, read from the environment.
type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"pilotopos"`
	Env         string `envconfig:"APP_ENV" default:"development"`
	Port        string `envconfig:"PORT" default:"3000"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DBDriver          string        `envconfig:"DB_DRIVER" default:"sqlite"`
	DatabaseURL       string        `envconfig:"DATABASE_URL"`
	DBMaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	DBMaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"100"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
	DBLogLevel        string        `envconfig:"DB_LOG_LEVEL" default:"warn"`

	// DataDir holds the SQLite file and the JSON export mirror.
	DataDir      string `envconfig:"DATA_DIR" default:"/tmp/pilotopos"`
	TenantSchema string `envconfig:"TENANT_SCHEMA"`
	BusinessTZ   string `envconfig:"BUSINESS_TZ" default:"America/Mexico_City"`

	JWTSecret          string        `envconfig:"JWT_SECRET" default:"change-me-in-production"`
	JWTExpirationHours int           `envconfig:"JWT_EXPIRATION_HOURS" default:"24"`
	SessionTTL         time.Duration `envconfig:"SESSION_TTL" default:"12h"`
	CookieSecure       bool          `envconfig:"COOKIE_SECURE" default:"false"`

	ExportEnabled bool `envconfig:"EXPORT_ENABLED" default:"true"`

	AdminUser     string `envconfig:"ADMIN_USER" default:"admin"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "read environment")
	}
	if _, err := database.ParseTenant(cfg.TenantSchema); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Database builds the persistence settings. An empty DATABASE_URL on SQLite
// points at DATA_DIR/pilotopos.db.
func (c *Config) Database() database.Config {
	dsn := c.DatabaseURL
	if dsn == "" && c.DBDriver == string(database.DriverSQLite) {
		dsn = filepath.Join(c.DataDir, "pilotopos.db")
	}
	return database.Config{
		Driver:          database.Driver(c.DBDriver),
		DSN:             dsn,
		MaxIdleConns:    c.DBMaxIdleConns,
		MaxOpenConns:    c.DBMaxOpenConns,
		ConnMaxLifetime: c.DBConnMaxLifetime,
		LogLevel:        c.DBLogLevel,
	}
}

// Tenant returns the schema this deployment serves. Load has validated it.
func (c *Config) Tenant() database.Tenant {
	t, _ := database.ParseTenant(c.TenantSchema)
	return t
}

// ExportDir is where the JSON mirror is written.
func (c *Config) ExportDir() string {
	return filepath.Join(c.DataDir, "export")
}

// Location resolves BUSINESS_TZ, falling back to UTC-6 when tzdata is missing.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BusinessTZ)
	if err != nil {
		return time.FixedZone("CST", -6*60*60)
	}
	return loc
}

// LogFields is the startup summary, without secrets.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Env),
		zap.String("port", c.Port),
		zap.String("db_driver", c.DBDriver),
		zap.String("tenant", c.TenantSchema),
		zap.String("data_dir", c.DataDir),
		zap.String("business_tz", c.BusinessTZ),
		zap.Bool("export_enabled", c.ExportEnabled),
	}
}
