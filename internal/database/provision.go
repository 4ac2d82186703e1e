package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ChristopherDuggan/django-rest-framework/internal/config"
)

var (
	pingAttempts = 30
	pingStep     = 100 * time.Millisecond
)

// ping waits for the database to be ready. Waits pingStep longer between each attempt.
func ping(ctx context.Context, db *sql.DB) error {
	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * pingStep):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

func createRoleSQL(user, password string) string {
	return "CREATE USER " + pq.QuoteIdentifier(user) + " ENCRYPTED PASSWORD " + pq.QuoteLiteral(password)
}

func createDatabaseSQL(name, owner string) string {
	q := "CREATE DATABASE " + pq.QuoteIdentifier(name)
	if owner != "" {
		q += " OWNER " + pq.QuoteIdentifier(owner)
	}
	return q
}

func grantSQL(name, user string) string {
	return "GRANT ALL PRIVILEGES ON DATABASE " + pq.QuoteIdentifier(name) + " TO " + pq.QuoteIdentifier(user)
}

func exists(ctx context.Context, db *sql.DB, query string, arg string) (bool, error) {
	var found bool
	err := db.QueryRowContext(ctx, query, arg).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return found, err
}

// Provision creates the application role and database on postgres if they are missing.
// It connects with the admin credentials.
func Provision(ctx context.Context, cfg config.Database, log *logrus.Logger) error {
	if cfg.Driver != config.DriverPostgres {
		return errors.Errorf("provisioning is only supported for %s, got %q", config.DriverPostgres, cfg.Driver)
	}

	db, err := sql.Open("postgres", cfg.DSN("postgres", true))
	if err != nil {
		return errors.Wrap(err, "opening admin connection")
	}
	defer func() { _ = db.Close() }()

	if err = ping(ctx, db); err != nil {
		return errors.Wrap(err, "pinging database")
	}

	if cfg.User != "" {
		found, err := exists(ctx, db, "SELECT true FROM pg_roles WHERE rolname = $1", cfg.User)
		if err != nil {
			return errors.Wrap(err, "checking app user")
		}
		if !found {
			if _, err = db.ExecContext(ctx, createRoleSQL(cfg.User, cfg.Password)); err != nil {
				return errors.Wrap(err, "creating app user")
			}
			log.WithField("user", cfg.User).Info("created database role")
		}
	}

	found, err := exists(ctx, db, "SELECT true FROM pg_database WHERE datname = $1", cfg.Name)
	if err != nil {
		return errors.Wrap(err, "checking database")
	}
	if !found {
		if _, err = db.ExecContext(ctx, createDatabaseSQL(cfg.Name, cfg.User)); err != nil {
			return errors.Wrap(err, "creating database")
		}
		log.WithField("database", cfg.Name).Info("created database")
	}

	if cfg.User != "" {
		if _, err = db.ExecContext(ctx, grantSQL(cfg.Name, cfg.User)); err != nil {
			return errors.Wrap(err, "granting privileges")
		}
	}
	return nil
}
