// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	AdminKey                string `yaml:"admin_key" env:"ADMIN_KEY"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	Apps                    AppEndpoints `yaml:"apps"`
	Stripe                  Stripe       `yaml:"stripe"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с сессионным jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RabbitMQ структура для настройки подключения к RabbitMQ
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// AppEndpoint админ-эндпоинт одного внешнего приложения.
type AppEndpoint struct {
	BaseURL  string `yaml:"base_url"`
	AdminKey string `yaml:"admin_key"`
}

// AppEndpoints админ-эндпоинты всех приложений семейства.
type AppEndpoints struct {
	SafeTunes AppEndpoint `yaml:"safetunes"`
	SafeTube  AppEndpoint `yaml:"safetube"`
	SafeReads AppEndpoint `yaml:"safereads"`
}

// ForApp возвращает настройки эндпоинта по имени приложения.
func (a AppEndpoints) ForApp(name string) (AppEndpoint, bool) {
	switch name {
	case "safetunes":
		return a.SafeTunes, true
	case "safetube":
		return a.SafeTube, true
	case "safereads":
		return a.SafeReads, true
	}
	return AppEndpoint{}, false
}

// Stripe секция биллинга: секретный ключ и шесть ценовых тарифов
// (1/2/3 приложения, месяц или год).
type Stripe struct {
	SecretKey       string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	PriceOneMonthly string `yaml:"price_one_monthly"`
	PriceOneYearly  string `yaml:"price_one_yearly"`
	PriceTwoMonthly string `yaml:"price_two_monthly"`
	PriceTwoYearly  string `yaml:"price_two_yearly"`
	PriceAllMonthly string `yaml:"price_all_monthly"`
	PriceAllYearly  string `yaml:"price_all_yearly"`
}

// PriceID возвращает идентификатор цены для количества приложений
// и интервала оплаты. Количество вне 1..3 — пустая строка.
func (s Stripe) PriceID(appCount int, yearly bool) string {
	switch appCount {
	case 1:
		if yearly {
			return s.PriceOneYearly
		}
		return s.PriceOneMonthly
	case 2:
		if yearly {
			return s.PriceTwoYearly
		}
		return s.PriceTwoMonthly
	case 3:
		if yearly {
			return s.PriceAllYearly
		}
		return s.PriceAllMonthly
	}
	return ""
}

// MustLoad функция для загрузки конфига из файла, указанного в CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
