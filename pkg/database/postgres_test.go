package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/tutor-booking-api/pkg/config"
)

func TestConnectionStrings(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss", Name: "tutor_booking", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=app password=p@ss dbname=tutor_booking sslmode=disable", DSN(cfg))
	assert.Equal(t, "postgres://app:p%40ss@db:5432/tutor_booking?sslmode=disable", MigrationURL(cfg))
}
