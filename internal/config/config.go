package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// defaultRatios - доли сложностей, если engine.ratios не задан ни в файле, ни в окружении
var defaultRatios = map[string]float64{"easy": 0.3, "medium": 0.5, "hard": 0.2}

// Config хранит все настройки приложения
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Engine     EngineConfig
	Simulation SimulationConfig
	Adaptive   AdaptiveConfig
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Auth       AuthConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	// MigrationsPath: каталог с SQL-миграциями (file source golang-migrate)
	MigrationsPath string `mapstructure:"migrations_path"`

	MaxOpenConns int `mapstructure:"max_open_conns"`
	MaxIdleConns int `mapstructure:"max_idle_conns"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single'.
	// Используется, если Mode="single" и Addrs пустой.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"` // мс
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"` // мс
}

// EngineConfig содержит настройки сборки экзаменов
type EngineConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`

	// Ratios: доли сложностей по умолчанию (easy/medium/hard). Пустая карта = равномерная выборка.
	// Карта из файла заменяет умолчание целиком, см. loadRatios.
	Ratios map[string]float64 `mapstructure:"ratios"`

	AntiGuessing    bool `mapstructure:"anti_guessing"`
	CacheTTLMinutes int  `mapstructure:"cache_ttl_minutes"`
}

// SimulationSection - раздел экзамена-симуляции
type SimulationSection struct {
	Module string `mapstructure:"module"`
	Limit  int    `mapstructure:"limit"`
	// SeedOffset прибавляется к seed запроса, чтобы разделы не совпадали по выборке
	SeedOffset int64 `mapstructure:"seed_offset"`
}

// SimulationConfig содержит состав полного экзамена
type SimulationConfig struct {
	DurationMinutes int                 `mapstructure:"duration_minutes"`
	Sections        []SimulationSection `mapstructure:"sections"`
}

// AdaptiveConfig содержит настройки адаптивных сессий
type AdaptiveConfig struct {
	StartLevel        int  `mapstructure:"start_level"`
	StreakUp          int  `mapstructure:"streak_up"`
	StreakDown        int  `mapstructure:"streak_down"`
	FallbackToHigher  bool `mapstructure:"fallback_to_higher"`
	SessionTTLMinutes int  `mapstructure:"session_ttl_minutes"`
}

// RateLimitConfig содержит настройки ограничения частоты запросов на сборку
type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

// AuthConfig содержит настройки административного доступа
type AuthConfig struct {
	// AdminSecret: ключ подписи административных JWT (HS256). Пустой = админ-маршруты закрыты.
	AdminSecret string `mapstructure:"admin_secret"`
	// AdminTokenTTLHours: срок действия токенов, выпускаемых cmd/admin-token
	AdminTokenTTLHours int `mapstructure:"admin_token_ttl_hours"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// PostgresURL формирует URL подключения (нужен golang-migrate и lib/pq)
func (d *DatabaseConfig) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 30)

	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.migrations_path", "migrations")
	vip.SetDefault("database.max_open_conns", 25)
	vip.SetDefault("database.max_idle_conns", 10)

	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("redis.addr", "localhost:6379")

	vip.SetDefault("engine.default_limit", 30)
	vip.SetDefault("engine.max_limit", 200)
	vip.SetDefault("engine.anti_guessing", true)
	vip.SetDefault("engine.cache_ttl_minutes", 24*60)

	vip.SetDefault("simulation.duration_minutes", 180)
	vip.SetDefault("simulation.sections", []map[string]interface{}{
		{"module": "legislation", "limit": 30, "seed_offset": 0},
		{"module": "specialty", "limit": 60, "seed_offset": 99},
	})

	vip.SetDefault("adaptive.start_level", 2)
	vip.SetDefault("adaptive.streak_up", 2)
	vip.SetDefault("adaptive.streak_down", 2)
	vip.SetDefault("adaptive.fallback_to_higher", true)
	vip.SetDefault("adaptive.session_ttl_minutes", 240)

	vip.SetDefault("rate_limit.max_requests", 30)
	vip.SetDefault("rate_limit.window_seconds", 60)

	vip.SetDefault("auth.admin_token_ttl_hours", 12)
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Отдельный экземпляр Viper, без глобального состояния

	// 1. Значения по умолчанию
	setDefaults(vip)

	// 2. Привязываем переменные окружения ЯВНО
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")
	vip.BindEnv("database.migrations_path", "DATABASE_MIGRATIONS_PATH")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("server.port", "SERVER_PORT")

	vip.BindEnv("engine.default_limit", "ENGINE_DEFAULT_LIMIT")
	vip.BindEnv("engine.max_limit", "ENGINE_MAX_LIMIT")
	vip.BindEnv("engine.anti_guessing", "ENGINE_ANTI_GUESSING")
	vip.BindEnv("engine.cache_ttl_minutes", "ENGINE_CACHE_TTL_MINUTES")

	vip.BindEnv("simulation.duration_minutes", "SIMULATION_DURATION_MINUTES")

	vip.BindEnv("adaptive.start_level", "ADAPTIVE_START_LEVEL")
	vip.BindEnv("adaptive.fallback_to_higher", "ADAPTIVE_FALLBACK_TO_HIGHER")
	vip.BindEnv("adaptive.session_ttl_minutes", "ADAPTIVE_SESSION_TTL_MINUTES")

	vip.BindEnv("rate_limit.max_requests", "RATE_LIMIT_MAX_REQUESTS")
	vip.BindEnv("rate_limit.window_seconds", "RATE_LIMIT_WINDOW_SECONDS")

	vip.BindEnv("auth.admin_secret", "ADMIN_JWT_SECRET")
	vip.BindEnv("auth.admin_token_ttl_hours", "ADMIN_TOKEN_TTL_HOURS")

	vip.BindEnv("gin_mode", "GIN_MODE")

	// 3. Файл конфигурации (не страшно, если его нет, т.к. есть BindEnv)
	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// 4. Анмаршалим конфигурацию
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ratios, err := loadRatios(vip)
	if err != nil {
		return nil, err
	}
	cfg.Engine.Ratios = ratios

	// REDIS_ADDRS приходит одной строкой через запятую
	if len(cfg.Redis.Addrs) == 1 && strings.Contains(cfg.Redis.Addrs[0], ",") {
		cfg.Redis.Addrs = strings.Split(cfg.Redis.Addrs[0], ",")
	}

	ginMode := vip.GetString("gin_mode")
	if ginMode != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Addr: %s (mode: %s)", cfg.Redis.Addr, cfg.Redis.Mode)
		log.Printf("Engine: limit %d (max %d), ratios %v, anti-guessing %t",
			cfg.Engine.DefaultLimit, cfg.Engine.MaxLimit, cfg.Engine.Ratios, cfg.Engine.AntiGuessing)
		log.Printf("Simulation: %d sections, %d min", len(cfg.Simulation.Sections), cfg.Simulation.DurationMinutes)
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("-----------------------------------------")
	}

	if err := cfg.Validate(ginMode); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadRatios читает engine.ratios целиком из одного источника.
// Viper сливает карты умолчаний с картой из файла по ключам, поэтому умолчание
// применяется вручную и только когда ключ не задан: так файл может убрать
// сложность из карты или задать пустую карту (равномерная выборка).
func loadRatios(vip *viper.Viper) (map[string]float64, error) {
	if !vip.IsSet("engine.ratios") {
		out := make(map[string]float64, len(defaultRatios))
		for tag, w := range defaultRatios {
			out[tag] = w
		}
		return out, nil
	}

	raw, err := cast.ToStringMapE(vip.Get("engine.ratios"))
	if err != nil {
		return nil, fmt.Errorf("engine.ratios must be a map of difficulty to weight: %w", err)
	}
	out := make(map[string]float64, len(raw))
	for tag, v := range raw {
		w, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, fmt.Errorf("engine.ratios.%s: %w", tag, err)
		}
		out[tag] = w
	}
	return out, nil
}

// Validate проверяет обязательные параметры и диапазоны значений
func (c *Config) Validate(ginMode string) error {
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if ginMode == "release" && c.Database.Password == "" {
		return fmt.Errorf("database password is required in release mode (check DATABASE_PASSWORD env var)")
	}
	if ginMode == "release" && len(c.Auth.AdminSecret) < 32 {
		return fmt.Errorf("admin secret of at least 32 bytes is required in release mode (check ADMIN_JWT_SECRET env var)")
	}

	if c.Engine.DefaultLimit <= 0 || c.Engine.MaxLimit <= 0 {
		return fmt.Errorf("engine limits must be positive (default %d, max %d)", c.Engine.DefaultLimit, c.Engine.MaxLimit)
	}
	if c.Engine.DefaultLimit > c.Engine.MaxLimit {
		return fmt.Errorf("engine default limit %d exceeds max limit %d", c.Engine.DefaultLimit, c.Engine.MaxLimit)
	}
	for tag, ratio := range c.Engine.Ratios {
		if ratio < 0 {
			return fmt.Errorf("engine ratio for %q must be non-negative, got %v", tag, ratio)
		}
	}

	if len(c.Simulation.Sections) == 0 {
		return fmt.Errorf("simulation requires at least one section")
	}
	for i, s := range c.Simulation.Sections {
		if s.Module == "" || s.Limit <= 0 {
			return fmt.Errorf("simulation section #%d: module and positive limit are required", i)
		}
	}

	if c.RateLimit.MaxRequests <= 0 || c.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("rate limit values must be positive")
	}
	return nil
}
