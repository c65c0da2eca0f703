package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// redactDSN returns a copy of the DSN with the password replaced by ****
func redactDSN(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "(invalid DATABASE_URL)"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}

// extractDBName returns the database name from the URL path ("/translator" -> "translator")
func extractDBName(u *url.URL) string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(u.Path, "/"))
}

func isDatabaseDoesNotExist(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database") && strings.Contains(msg, "does not exist")
}

// Open connects to PostgreSQL and configures the pool
func Open(ctx context.Context, databaseURL string, logger *logrus.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}

	dbName := extractDBName(u)
	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := u.Port()
	if port == "" {
		port = "5432"
	}

	logger.WithFields(logrus.Fields{
		"host": host,
		"port": port,
		"db":   dbName,
		"dsn":  redactDSN(databaseURL),
	}).Info("connecting to database")

	if dbName != "" {
		precheck(ctx, u, dbName, logger)
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(connectCtx); err != nil {
		_ = db.Close()
		if isDatabaseDoesNotExist(err) {
			return nil, fmt.Errorf("database %q not found on host=%s port=%s: %w", dbName, host, port, err)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// precheck asks the maintenance database whether dbName exists so a wrong instance shows up
// in the logs before the real ping fails.
func precheck(ctx context.Context, u *url.URL, dbName string, logger *logrus.Logger) {
	maintenance := *u
	maintenance.Path = "/postgres"
	maintenance.RawPath = ""

	maintDB, err := sql.Open("postgres", maintenance.String())
	if err != nil {
		logger.WithError(err).Debug("db precheck: could not open maintenance connection")
		return
	}
	defer maintDB.Close()

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var found string
	err = maintDB.QueryRowContext(checkCtx, "SELECT datname FROM pg_database WHERE datname = $1", dbName).Scan(&found)
	switch {
	case err == nil:
		logger.WithField("db", found).Debug("db precheck: database exists")
	case errors.Is(err, sql.ErrNoRows):
		logger.WithField("db", dbName).Warn("db precheck: database not found on this instance")
	default:
		logger.WithError(err).Debug("db precheck: could not query pg_database")
	}
}
