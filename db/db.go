// Package db opens the pooled Dolt handle and runs the handful of statements the
// connectivity endpoints need. Dolt speaks the MySQL wire protocol, so the handle is a
// sqlx.DB over go-sql-driver/mysql.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/onnwee/dolt-app/config"
)

// ErrInvalidName is returned for database names that cannot be safely quoted.
var ErrInvalidName = errors.New("invalid database name")

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_$-]{1,64}$`)

// DSN builds the driver DSN: root without password, utf8mb4, fixed connect timeout and
// no default schema.
func DSN(cfg *config.Config) string {
	// The driver checks pooled connections for liveness before reuse by default.
	return fmt.Sprintf("%s@tcp(%s)/?charset=%s&timeout=%s",
		config.DoltUser, cfg.DoltAddr(), config.DoltCharset, config.DoltConnectTimeout)
}

// Open creates the pooled Dolt handle. It does not dial; the first query does.
func Open(cfg *config.Config) (*sqlx.DB, error) {
	dbx, err := sqlx.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open dolt %s: %w", cfg.DoltAddr(), err)
	}
	dbx.SetConnMaxLifetime(config.DoltConnMaxLife)
	return dbx, nil
}

// TestQuery runs SELECT 1 on a scoped connection and returns the first column of the
// first row, or nil when the server returns no row.
func TestQuery(ctx context.Context, dbx *sqlx.DB) (*int64, error) {
	conn, err := dbx.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close() //nolint:errcheck // returning a conn to the pool

	var v sql.NullInt64
	if err := conn.QueryRowxContext(ctx, "SELECT 1 AS test").Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if !v.Valid {
		return nil, nil
	}
	return &v.Int64, nil
}

// ListDatabases returns the first column of SHOW DATABASES in server order.
func ListDatabases(ctx context.Context, dbx *sqlx.DB) ([]string, error) {
	names := []string{}
	if err := dbx.SelectContext(ctx, &names, "SHOW DATABASES"); err != nil {
		return nil, err
	}
	return names, nil
}

// CreateDatabase runs CREATE DATABASE IF NOT EXISTS on a scoped connection. DDL is
// autocommitted by the server.
func CreateDatabase(ctx context.Context, dbx *sqlx.DB, name string) error {
	stmt, err := createStatement(name)
	if err != nil {
		return err
	}
	conn, err := dbx.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close() //nolint:errcheck // returning a conn to the pool

	_, err = conn.ExecContext(ctx, stmt)
	return err
}

func createStatement(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return "CREATE DATABASE IF NOT EXISTS " + QuoteIdent(name), nil
}

// ValidateName rejects anything but letters, digits, '_', '$' and '-' (max 64 chars).
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// QuoteIdent wraps name in backticks, doubling embedded backticks.
func QuoteIdent(name string) string {
	out := make([]byte, 0, len(name)+2)
	out = append(out, '`')
	for i := 0; i < len(name); i++ {
		if name[i] == '`' {
			out = append(out, '`')
		}
		out = append(out, name[i])
	}
	return string(append(out, '`'))
}

// IsQueryRejected reports whether err came from the server refusing a statement (or
// from local name validation) rather than from the network.
func IsQueryRejected(err error) bool {
	if errors.Is(err, ErrInvalidName) {
		return true
	}
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	_, upstream := serverFaults[me.Number]
	return !upstream
}

// serverFaults are server error numbers that describe the server or the session, not
// the statement.
var serverFaults = map[uint16]struct{}{
	1040: {}, // ER_CON_COUNT_ERROR
	1045: {}, // ER_ACCESS_DENIED_ERROR
	1053: {}, // ER_SERVER_SHUTDOWN
	1129: {}, // ER_HOST_IS_BLOCKED
	1130: {}, // ER_HOST_NOT_PRIVILEGED
}
