package database

import (
	"fmt"

	"github.com/atelierhq/easel/internal/config"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const DB_NAME = "easel"

const LOCAL_CONNECTION_STRING = "user=postgres password=postgres dbname=easel sslmode=disable"

const MAIN_SCHEMA = "easel"
const TESTING_SCHEMA = "easel_test"

func GetSchemaName(isTesting bool) string {
	if isTesting {
		return TESTING_SCHEMA
	}
	return MAIN_SCHEMA
}

func NewPostgresDatabase(connectionString string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	err = createDatabaseIfNotExists(db, DB_NAME)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	return db, nil
}

// NewArchiveDatabase connects to the job archive database configured for
// the daemon, falling back to a local database in development.
func NewArchiveDatabase(conf config.Config) (*sqlx.DB, error) {
	connectionString := conf.DatabaseURL()
	if connectionString == "" && conf.IsDevelopment() {
		connectionString = LOCAL_CONNECTION_STRING
	}

	db, err := NewPostgresDatabase(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres database: %w", err)
	}

	return db, nil
}

func createDatabaseIfNotExists(db *sqlx.DB, dbName string) error {
	row := db.QueryRowx("SELECT COUNT(*) FROM pg_database WHERE datname = $1", dbName)
	if row.Err() != nil {
		return fmt.Errorf("createDB: failed to check if database exists: %w", row.Err())
	}

	var count int
	if err := row.Scan(&count); err != nil {
		return fmt.Errorf("createDB: failed to scan row: %w", err)
	}

	if count > 0 {
		return nil
	}

	_, err := db.Exec(fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName)))
	if err != nil {
		return fmt.Errorf("createDB: failed to create database: %w", err)
	}

	return nil
}
