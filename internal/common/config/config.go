// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Gateway  GatewayConfig           `mapstructure:"gateway"`
	Cache    CacheConfig             `mapstructure:"cache"`
	Products ProductsConfig          `mapstructure:"products"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Server   ServerConfig            `mapstructure:"server"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Key sources for the gateway public key.
const (
	KeySourceStatic = "static"
	KeySourceRedis  = "redis"
)

// GatewayConfig describes where the gateway's public encryption key comes from.
// With the static source, KeyID and PublicKey (Base64 X.509 SubjectPublicKeyInfo)
// are used as-is; with the redis source, the hash at RedisKey is read.
type GatewayConfig struct {
	KeyID     string `mapstructure:"key_id"`
	PublicKey string `mapstructure:"public_key"`
	KeySource string `mapstructure:"key_source"`
	RedisKey  string `mapstructure:"redis_key"`
	// KeyringCapacity bounds how many distinct parsed keys are kept, including
	// key material supplied per job.
	KeyringCapacity int `mapstructure:"keyring_capacity"`
}

// DefaultCacheCapacity bounds the product metadata cache when no capacity is configured.
const DefaultCacheCapacity = 100

// DefaultKeyringCapacity bounds the parsed gateway key memo when no capacity is configured.
const DefaultKeyringCapacity = 16

type CacheConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// Product metadata sources.
const (
	ProductSourcePostgres = "postgres"
	ProductSourceRegistry = "registry"
)

type ProductsConfig struct {
	Source       string `mapstructure:"source"`
	RegistryPath string `mapstructure:"registry_path"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}
