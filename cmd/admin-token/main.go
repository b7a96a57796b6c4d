package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/yourusername/examsim-api/internal/config"
	"github.com/yourusername/examsim-api/pkg/auth"
)

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "config/config.yaml"), "путь к файлу конфигурации")
	subject := flag.String("sub", "admin", "кому выдаётся токен (попадает в журнал импорта)")
	ttlHours := flag.Int("ttl", 0, "срок действия в часах (0 = auth.admin_token_ttl_hours)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[AdminToken] Ошибка загрузки конфигурации: %v", err)
	}

	hours := cfg.Auth.AdminTokenTTLHours
	if *ttlHours > 0 {
		hours = *ttlHours
	}

	token, err := auth.NewAdminTokens(cfg.Auth.AdminSecret).Generate(*subject, time.Duration(hours)*time.Hour)
	if err != nil {
		log.Fatalf("[AdminToken] Не удалось выпустить токен: %v", err)
	}
	fmt.Println(token)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
