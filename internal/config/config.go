// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек витрины
type Config struct {
	Env             string `yaml:"env" env-default:"local"`
	CommerceAPI     `yaml:"commerce_api"`
	RedisConnection `yaml:"redis_connection"`
	HTTPServer      `yaml:"http_server"`
	Checkout        `yaml:"checkout"`
	CartPolicy      `yaml:"cart_policy"`
}

// CommerceAPI структура для настройки клиента коммерческого бэкенда
type CommerceAPI struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout" env-default:"10s"`
	SessionTTL time.Duration `yaml:"session_ttl" env-default:"24h"`
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

// Checkout структура с политикой очистки корзины после заказа
type Checkout struct {
	ClearAttempts int           `yaml:"clear_attempts" env-default:"3"`
	ClearDelay    time.Duration `yaml:"clear_delay" env-default:"1s"`
}

// CartPolicy структура с константами расчёта сводки корзины
type CartPolicy struct {
	TaxRate          float64 `yaml:"tax_rate" env-default:"0.08"`
	FreeShippingOver float64 `yaml:"free_shipping_over" env-default:"50000"`
	ShippingFee      float64 `yaml:"shipping_fee" env-default:"199"`
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH
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

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"CommerceAPI:\n"+
			"  BaseURL: %s\n"+
			"  Timeout: %s\n"+
			"  SessionTTL: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  User: %s\n"+
			"  DB: %d\n"+
			"  MaxRetries: %d\n"+
			"  DialTimeout: %s\n"+
			"  Timeout: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Checkout:\n"+
			"  ClearAttempts: %d\n"+
			"  ClearDelay: %s\n"+
			"CartPolicy:\n"+
			"  TaxRate: %.4f\n"+
			"  FreeShippingOver: %.2f\n"+
			"  ShippingFee: %.2f\n",
		c.Env,
		c.BaseURL,
		c.Timeout,
		c.SessionTTL,
		c.AddressRedis,
		c.User,
		c.DB,
		c.MaxRetries,
		c.DialTimeout,
		c.TimeoutRedis,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.ClearAttempts,
		c.ClearDelay,
		c.TaxRate,
		c.FreeShippingOver,
		c.ShippingFee,
	)
}
