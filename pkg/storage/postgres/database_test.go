package postgres_test

import (
	"os"
	"testing"

	"premiumflow/config"
	"premiumflow/pkg/storage/postgres"
)

// go test -v --run TestCreateDatabase
func TestCreateDatabase(t *testing.T) {
	if os.Getenv("PREMIUMFLOW_TEST_POSTGRES_DSN") == "" {
		t.Skip("PREMIUMFLOW_TEST_POSTGRES_DSN not set")
	}
	cfg := config.PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: os.Getenv("PGPASSWORD"),
		DBName:   "test_premiumflow_db",
		SSLMode:  "disable",
	}

	err := postgres.CreateDatabase(cfg, "dev")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
}
