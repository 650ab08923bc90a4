package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/af-corp/containment-gateway/internal/config"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up, down, version or force")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	forceVersion := flag.Int("force-version", -1, "version to force when -direction=force")
	dbURL := flag.String("db-url", "", "database URL (overrides env and config)")
	configDir := flag.String("config", "", "read database settings from gateway.yaml in this directory")
	migrationsPath := flag.String("path", "migrations", "path to migrations directory")
	flag.Parse()

	dsn, err := resolveDSN(*dbURL, *configDir)
	if err != nil {
		log.Fatalf("resolve database URL: %v", err)
	}

	m, err := migrate.New("file://"+*migrationsPath, dsn)
	if err != nil {
		log.Fatalf("failed to create migrator: %v", err)
	}
	defer m.Close()

	switch *direction {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	case "force":
		if *forceVersion < 0 {
			log.Fatal("-force-version is required with -direction=force")
		}
		err = m.Force(*forceVersion)
	case "version":
	default:
		log.Fatalf("invalid direction: %s (use up, down, version or force)", *direction)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migration failed: %v", err)
	}

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Printf("migration %s complete (no migrations applied)\n", *direction)
		return
	}
	fmt.Printf("migration %s complete (version: %d, dirty: %v)\n", *direction, v, dirty)
}

// resolveDSN prefers the explicit flag, then DATABASE_URL, then gateway.yaml,
// then DB_* variables.
func resolveDSN(dbURL, configDir string) (string, error) {
	if dbURL != "" {
		return dbURL, nil
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v, nil
	}
	if configDir != "" {
		cfg := config.DefaultConfig()
		if err := config.LoadFile(filepath.Join(configDir, "gateway.yaml"), cfg); err != nil {
			return "", err
		}
		d := cfg.Database
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", d.User, d.Password, d.Host, d.Port, d.Name), nil
	}
	host := envOrDefault("DB_HOST", "localhost")
	port := envOrDefault("DB_PORT", "5432")
	user := envOrDefault("DB_USER", "containment")
	pass := envOrDefault("DB_PASSWORD", "containment-dev")
	name := envOrDefault("DB_NAME", "containment")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, port, name), nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
