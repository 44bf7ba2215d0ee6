package config

import (
	"fmt"
	"time"
)

type Environment string

const (
	Live Environment = "live"
	Beta Environment = "beta"
	Dev  Environment = "dev"
)

type PortalConfig struct {
	Env         Environment `mapstructure:"env"`
	Addr        string      `mapstructure:"addr"`
	PrivateAddr string      `mapstructure:"private_addr"`
	BaseUrl     string      `mapstructure:"base_url"`
	LogLevel    string      `mapstructure:"log_level"`
	LogFormat   string      `mapstructure:"log_format"` // "pretty" or "json"

	Postgres    PostgresConfig    `mapstructure:"postgres"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Auth        AuthConfig        `mapstructure:"auth"`
	ObjectStore ObjectStoreConfig `mapstructure:"object_store"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	LocalS3     LocalS3Config     `mapstructure:"local_s3"`
}

type PostgresConfig struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Hostname string `mapstructure:"hostname"`
	Port     int    `mapstructure:"port"`
	DbName   string `mapstructure:"dbname"`
	LogLevel string `mapstructure:"log_level"` // a pgx tracelog level: trace, debug, info, warn, error, none
	MinConn  int32  `mapstructure:"min_conn"`
	MaxConn  int32  `mapstructure:"max_conn"`
}

func (info PostgresConfig) DSN() string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s", info.User, info.Password, info.Hostname, info.Port, info.DbName)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type AuthConfig struct {
	// HS256 secret shared with the backend that issues access tokens.
	JWTSecret  string `mapstructure:"jwt_secret"`
	CookieName string `mapstructure:"cookie_name"`
}

type ObjectStoreConfig struct {
	Driver    string `mapstructure:"driver"` // "s3" or "minio"
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type RateLimitConfig struct {
	// Grant and upload requests allowed per user per Window. Zero disables limiting.
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type LocalS3Config struct {
	Dir  string `mapstructure:"dir"`
	Addr string `mapstructure:"addr"`
}
