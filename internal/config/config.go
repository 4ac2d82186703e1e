package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env   string
	Debug bool

	HTTP     HTTP
	Database Database
	Import   Import
	Log      Log

	AdminRealm   string
	RollbarToken string
}

type HTTP struct {
	Addr            string
	BaseURL         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

type Database struct {
	Driver        string
	Host          string
	Port          string
	User          string
	Password      string
	Name          string
	SSLMode       string
	SQLitePath    string
	AdminUser     string
	AdminPassword string
}

// DSN returns the postgres connection string for dbName.
func (d Database) DSN(dbName string, admin bool) string {
	user, pwd := d.User, d.Password
	if admin {
		user, pwd = d.AdminUser, d.AdminPassword
	}
	return "host=" + d.Host + " user=" + user + " password=" + pwd + " dbname=" + dbName +
		" port=" + d.Port + " sslmode=" + d.SSLMode + " TimeZone=UTC"
}

type Import struct {
	BatchSize      int
	MaxWorkers     int
	MaxUploadBytes int64
	// Retention is how long finished jobs stay visible in the progress endpoints.
	Retention time.Duration
}

type Log struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("debug", false)

	v.SetDefault("http.addr", ":8000")
	v.SetDefault("http.base_url", "")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("cors.origins", "http://localhost:3000")

	v.SetDefault("db.driver", DriverPostgres)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "cohorts")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.sqlite_path", "cohorts.db")
	v.SetDefault("db.admin_user", "postgres")
	v.SetDefault("db.admin_password", "")

	v.SetDefault("import.batch_size", 500)
	v.SetDefault("import.max_workers", 0)
	v.SetDefault("import.max_upload_bytes", int64(32<<20))
	v.SetDefault("import.retention", time.Hour)

	v.SetDefault("admin.realm", "cohorts admin")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("rollbar.token", "")
}

// Load reads configuration from defaults, an optional config file, .env files and the environment.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", path)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads .env and .env.<ENV> if they exist. Existing environment variables win.
func loadDotEnv() error {
	env := strings.ToLower(os.Getenv("ENV"))
	if env == "" {
		env = "dev"
	}
	for _, path := range []string{".env." + env, ".env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				return errors.Wrapf(err, "loading %s", filepath.Clean(path))
			}
		} else if !os.IsNotExist(err) {
			return errors.Wrapf(err, "stat %s", path)
		}
	}
	return nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Env:   strings.ToLower(v.GetString("env")),
		Debug: v.GetBool("debug"),
		HTTP: HTTP{
			Addr:            v.GetString("http.addr"),
			BaseURL:         strings.TrimRight(v.GetString("http.base_url"), "/"),
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			CORSOrigins:     splitList(v.GetString("cors.origins")),
		},
		Database: Database{
			Driver:        strings.ToLower(v.GetString("db.driver")),
			Host:          v.GetString("db.host"),
			Port:          v.GetString("db.port"),
			User:          v.GetString("db.user"),
			Password:      v.GetString("db.password"),
			Name:          v.GetString("db.name"),
			SSLMode:       v.GetString("db.sslmode"),
			SQLitePath:    v.GetString("db.sqlite_path"),
			AdminUser:     v.GetString("db.admin_user"),
			AdminPassword: v.GetString("db.admin_password"),
		},
		Import: Import{
			BatchSize:      v.GetInt("import.batch_size"),
			MaxWorkers:     v.GetInt("import.max_workers"),
			MaxUploadBytes: v.GetInt64("import.max_upload_bytes"),
			Retention:      v.GetDuration("import.retention"),
		},
		Log: Log{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		AdminRealm:   v.GetString("admin.realm"),
		RollbarToken: v.GetString("rollbar.token"),
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required for the %s driver", DriverPostgres)
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("DB_SQLITE_PATH is required for the %s driver", DriverSQLite)
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.Log.Format)
	}

	if c.Import.BatchSize <= 0 {
		return fmt.Errorf("IMPORT_BATCH_SIZE must be positive, got %d", c.Import.BatchSize)
	}
	if c.Import.MaxUploadBytes <= 0 {
		return fmt.Errorf("IMPORT_MAX_UPLOAD_BYTES must be positive, got %d", c.Import.MaxUploadBytes)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
