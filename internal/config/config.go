package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Upstream UpstreamConfig
	Runtime  RuntimeConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig содержит настройки подключения к Redis.
// Поддерживаются режимы single, sentinel и cluster.
type RedisConfig struct {
	Mode       string   `mapstructure:"mode"`
	Addrs      []string `mapstructure:"addrs"`
	Addr       string   `mapstructure:"addr"`
	Password   string   `mapstructure:"password"`
	DB         int      `mapstructure:"db"`
	MasterName string   `mapstructure:"master_name"`
}

// JWTConfig содержит настройки проверки токенов платформы
type JWTConfig struct {
	Secret        string `mapstructure:"secret"`
	ExpirationHrs int    `mapstructure:"expirationHrs"`
}

// UpstreamConfig содержит настройки вышестоящего API платформы
type UpstreamConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// RuntimeConfig содержит настройки рантайма попыток
type RuntimeConfig struct {
	// TickIntervalMs — период отсчета в миллисекундах. 1000 в проде.
	TickIntervalMs int `mapstructure:"tick_interval_ms"`

	// StateRetentionHrs — время жизни записей попытки в Redis
	StateRetentionHrs int `mapstructure:"state_retention_hrs"`

	// GuardRetentionHrs — время жизни флага отправки
	GuardRetentionHrs int `mapstructure:"guard_retention_hrs"`

	// LeaseTTLSec — время жизни лизинга владельца попытки
	LeaseTTLSec int `mapstructure:"lease_ttl_sec"`

	// PersistAnswers — зеркалировать ли ответы в Redis
	PersistAnswers bool `mapstructure:"persist_answers"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// TickInterval возвращает период отсчета как Duration
func (r *RuntimeConfig) TickInterval() time.Duration {
	if r.TickIntervalMs <= 0 {
		return time.Second
	}
	return time.Duration(r.TickIntervalMs) * time.Millisecond
}

// StateRetention возвращает время жизни состояния попытки как Duration
func (r *RuntimeConfig) StateRetention() time.Duration {
	if r.StateRetentionHrs <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(r.StateRetentionHrs) * time.Hour
}

// GuardRetention возвращает время жизни флага отправки как Duration
func (r *RuntimeConfig) GuardRetention() time.Duration {
	if r.GuardRetentionHrs <= 0 {
		return 72 * time.Hour
	}
	return time.Duration(r.GuardRetentionHrs) * time.Hour
}

// LeaseTTL возвращает время жизни лизинга как Duration
func (r *RuntimeConfig) LeaseTTL() time.Duration {
	if r.LeaseTTLSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(r.LeaseTTLSec) * time.Second
}

// Timeout возвращает тайм-аут запросов к API платформы как Duration
func (u *UpstreamConfig) Timeout() time.Duration {
	if u.TimeoutSec <= 0 {
		return 15 * time.Second
	}
	return time.Duration(u.TimeoutSec) * time.Second
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Новый экземпляр Viper, чтобы избежать глобального состояния

	// Привязываем переменные окружения явно
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("jwt.secret", "JWT_SECRET")
	vip.BindEnv("jwt.expirationHrs", "JWT_EXPIRATIONHRS")

	vip.BindEnv("upstream.base_url", "UPSTREAM_BASE_URL")
	vip.BindEnv("upstream.timeout_sec", "UPSTREAM_TIMEOUT_SEC")

	vip.BindEnv("runtime.tick_interval_ms", "RUNTIME_TICK_INTERVAL_MS")
	vip.BindEnv("runtime.state_retention_hrs", "RUNTIME_STATE_RETENTION_HRS")
	vip.BindEnv("runtime.guard_retention_hrs", "RUNTIME_GUARD_RETENTION_HRS")
	vip.BindEnv("runtime.lease_ttl_sec", "RUNTIME_LEASE_TTL_SEC")
	vip.BindEnv("runtime.persist_answers", "RUNTIME_PERSIST_ANSWERS")

	vip.BindEnv("server.port", "SERVER_PORT")

	// Значения по умолчанию
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("runtime.persist_answers", true)

	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Addr: %s", cfg.Redis.Addr)
		log.Printf("Redis Mode: %s", cfg.Redis.Mode)
		log.Printf("Upstream Base URL: %s", cfg.Upstream.BaseURL)
		log.Printf("Tick Interval: %s", cfg.Runtime.TickInterval())
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("-----------------------------------------")
	}

	// Проверка обязательных параметров
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT secret is required in config (check JWT_SECRET env var)")
	}
	if cfg.Upstream.BaseURL == "" {
		return nil, fmt.Errorf("upstream base URL is required in config (check UPSTREAM_BASE_URL env var)")
	}
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}

	return &cfg, nil
}
