package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/pkg/config"
	"github.com/noah-isme/tutor-booking-api/pkg/database"
	"github.com/noah-isme/tutor-booking-api/pkg/logger"
)

func main() {
	dir := flag.String("dir", "", "migrations directory (defaults to the nearest ./migrations)")
	steps := flag.Int("steps", 0, "apply n steps instead of the whole set; negative rolls back")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	path := *dir
	if path == "" {
		path, err = findMigrations()
		if err != nil {
			logr.Fatal("locate migrations", zap.Error(err))
		}
	}

	m, err := migrate.New("file://"+filepath.ToSlash(path), database.MigrationURL(cfg.Database))
	if err != nil {
		logr.Fatal("open migrations", zap.Error(err))
	}
	defer m.Close()

	cmd := "up"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	switch {
	case *steps != 0:
		err = m.Steps(*steps)
	case cmd == "down":
		err = m.Down()
	case cmd == "up":
		err = m.Up()
	default:
		logr.Fatal("unknown command", zap.String("command", cmd))
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logr.Fatal("migration failed", zap.String("command", cmd), zap.Error(err))
	}

	version, dirty, _ := m.Version()
	logr.Info("migration complete", zap.String("command", cmd), zap.Uint("version", version), zap.Bool("dirty", dirty))
}

// findMigrations walks up from the working directory looking for a migrations folder.
func findMigrations() (string, error) {
	current, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		candidate := filepath.Join(current, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return filepath.Abs(candidate)
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return "", errors.New("migrations directory not found")
}
