package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the process-wide settings. It starts out with the defaults
// below and is replaced by Load.
var Config = Defaults()

func Defaults() PortalConfig {
	return PortalConfig{
		Env:         Dev,
		Addr:        ":9001",
		PrivateAddr: "localhost:9002",
		BaseUrl:     "http://localhost:9001",
		LogLevel:    "info",
		LogFormat:   "pretty",
		Postgres: PostgresConfig{
			User:     "portal",
			Password: "password",
			Hostname: "localhost",
			Port:     5432,
			DbName:   "portal",
			LogLevel: "warn",
			MinConn:  2,
			MaxConn:  20,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Auth: AuthConfig{
			CookieName: "portal_access_token",
		},
		ObjectStore: ObjectStoreConfig{
			Driver:   "s3",
			Endpoint: "http://localhost:9003",
			Region:   "us-east-1",
			Bucket:   "chat-attachments",
		},
		RateLimit: RateLimitConfig{
			Requests: 120,
			Window:   time.Minute,
		},
		LocalS3: LocalS3Config{
			Dir:  "./tmp/s3",
			Addr: ":9003",
		},
	}
}

const EnvPrefix = "PORTAL"

/*
Load reads configuration in increasing order of precedence: built-in defaults,
the config file at path (or ./portal.toml when path is empty and the file
exists), then PORTAL_-prefixed environment variables such as
PORTAL_POSTGRES_HOSTNAME. A .env file in the working directory is loaded into
the environment first, without overriding variables that are already set.
*/
func Load(path string) (PortalConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return PortalConfig{}, err
	}

	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return PortalConfig{}, err
		}
	} else {
		v.SetConfigName("portal")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return PortalConfig{}, err
			}
		}
	}

	var cfg PortalConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return PortalConfig{}, err
	}
	return cfg, nil
}

// Viper only consults the environment for keys it already knows about, so
// every field gets a default.
func setDefaults(v *viper.Viper, d PortalConfig) {
	v.SetDefault("env", string(d.Env))
	v.SetDefault("addr", d.Addr)
	v.SetDefault("private_addr", d.PrivateAddr)
	v.SetDefault("base_url", d.BaseUrl)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	v.SetDefault("postgres.user", d.Postgres.User)
	v.SetDefault("postgres.password", d.Postgres.Password)
	v.SetDefault("postgres.hostname", d.Postgres.Hostname)
	v.SetDefault("postgres.port", d.Postgres.Port)
	v.SetDefault("postgres.dbname", d.Postgres.DbName)
	v.SetDefault("postgres.log_level", d.Postgres.LogLevel)
	v.SetDefault("postgres.min_conn", d.Postgres.MinConn)
	v.SetDefault("postgres.max_conn", d.Postgres.MaxConn)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)

	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.cookie_name", d.Auth.CookieName)

	v.SetDefault("object_store.driver", d.ObjectStore.Driver)
	v.SetDefault("object_store.endpoint", d.ObjectStore.Endpoint)
	v.SetDefault("object_store.region", d.ObjectStore.Region)
	v.SetDefault("object_store.bucket", d.ObjectStore.Bucket)
	v.SetDefault("object_store.access_key", d.ObjectStore.AccessKey)
	v.SetDefault("object_store.secret_key", d.ObjectStore.SecretKey)
	v.SetDefault("object_store.use_ssl", d.ObjectStore.UseSSL)

	v.SetDefault("rate_limit.requests", d.RateLimit.Requests)
	v.SetDefault("rate_limit.window", d.RateLimit.Window)

	v.SetDefault("local_s3.dir", d.LocalS3.Dir)
	v.SetDefault("local_s3.addr", d.LocalS3.Addr)
}
