package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/yourusername/examsim-api/internal/config"
)

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "config/config.yaml"), "путь к файлу конфигурации")
	command := flag.String("cmd", "up", "up | down | force | version")
	steps := flag.Int("steps", 0, "число шагов для down (0 = все)")
	version := flag.Int("version", -1, "версия для force (снимает dirty-состояние)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[Migrate] Ошибка загрузки конфигурации: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.PostgresURL())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatal(err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://"+cfg.Database.MigrationsPath,
		"postgres",
		driver,
	)
	if err != nil {
		log.Fatal(err)
	}

	if err := run(m, *command, *steps, *version); err != nil {
		log.Fatalf("[Migrate] %s failed: %v", *command, err)
	}

	v, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Fatalf("[Migrate] Не удалось получить версию: %v", err)
	}
	fmt.Printf("Success! Current version: %d (dirty: %t)\n", v, dirty)
}

func run(m *migrate.Migrate, command string, steps, version int) error {
	var err error
	switch command {
	case "up":
		err = m.Up()
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	case "force":
		if version < 0 {
			return fmt.Errorf("force requires -version")
		}
		fmt.Printf("Forcing migration version to %d to clean dirty state...\n", version)
		err = m.Force(version)
	case "version":
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Println("[Migrate] Изменений нет, база данных уже актуальна.")
		return nil
	}
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
