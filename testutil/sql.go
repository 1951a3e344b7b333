// Package testutil holds test doubles for the Dolt handle and the identity provider.
package testutil

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure-Go sqlite registered as 'sqlite'
)

// NewMockDB returns a sqlx handle backed by sqlmock with exact statement matching.
func NewMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = raw.Close() })
	return sqlx.NewDb(raw, "mysql"), mock
}

// NewSQLiteDB returns an in-memory sqlite handle. It answers SELECT 1 like Dolt does.
func NewSQLiteDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dbx, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = dbx.Close() })
	return dbx
}
