// Package sqltest provides SQL databases for use in tests.
package sqltest

import (
	"database/sql"
	"os"
	"path/filepath"

	// Register the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	// Register the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

// PostgresDSNVariable is the name of the environment variable that enables
// the PostgreSQL tests.
const PostgresDSNVariable = "EVENTCORE_TEST_POSTGRES_DSN"

// SQLiteDSN returns the DSN of an SQLite database in a temporary directory.
//
// It returns a function that deletes the temporary directory.
func SQLiteDSN() (string, func()) {
	dir, err := os.MkdirTemp("", "eventcore-sqlite-")
	if err != nil {
		panic(err)
	}

	dsn := "file:" + filepath.Join(dir, "data.sqlite3") + "?_pragma=busy_timeout(5000)&_txlock=immediate"

	return dsn, func() {
		os.RemoveAll(dir)
	}
}

// OpenSQLite opens an SQLite database using a temporary file.
//
// The returned function must be used to close the database, instead of
// DB.Close().
func OpenSQLite() (*sql.DB, func()) {
	dsn, remove := SQLiteDSN()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		remove()
		panic(err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)

	return db, func() {
		db.Close()
		remove()
	}
}

// OpenPostgres opens the PostgreSQL database named by the
// EVENTCORE_TEST_POSTGRES_DSN environment variable.
//
// It returns false if the variable is not set.
func OpenPostgres() (*sql.DB, bool) {
	dsn := os.Getenv(PostgresDSNVariable)
	if dsn == "" {
		return nil, false
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		panic(err)
	}

	return db, true
}
