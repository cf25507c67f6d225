package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends understood by storage.Open.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendTables   = "tables"
	BackendPostgres = "postgres"
)

type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	Debug        bool     `yaml:"debug"`
	LogFormat    string   `yaml:"log_format"`
	AllowOrigins []string `yaml:"allow_origins"`
}

type StorageConfig struct {
	Backend  string        `yaml:"backend"`
	Path     string        `yaml:"path"`
	Key      string        `yaml:"key"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type RedisConfig struct {
	ConnectionString string        `yaml:"connection_string"`
	UpdatesChannel   string        `yaml:"updates_channel"`
	DedupeTTL        time.Duration `yaml:"dedupe_ttl"`
}

type TablesConfig struct {
	ConnectionString string `yaml:"connection_string"`
	TasksTable       string `yaml:"tasks_table"`
	Partition        string `yaml:"partition"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type QueueConfig struct {
	ConnectionString string        `yaml:"connection_string"`
	Name             string        `yaml:"name"`
	Workers          int           `yaml:"workers"`
	Buffer           int           `yaml:"buffer"`
	Timeout          time.Duration `yaml:"timeout"`
	HandoffTimeout   time.Duration `yaml:"handoff_timeout"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Config is the full runtime configuration shared by all binaries.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	Tables    TablesConfig    `yaml:"tables"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Queue     QueueConfig     `yaml:"queue"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// Default returns the configuration used when nothing is overridden: a
// JSON file next to the working directory and no external services.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			LogFormat:    "text",
			AllowOrigins: []string{"*"},
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			Path:    "tasks.json",
			Key:     "tasks",
		},
		Redis: RedisConfig{
			DedupeTTL: 24 * time.Hour,
		},
		Tables: TablesConfig{
			TasksTable: "BoardTasks",
			Partition:  "board",
		},
		Queue: QueueConfig{
			Workers:        4,
			Buffer:         256,
			Timeout:        30 * time.Second,
			HandoffTimeout: 15 * time.Millisecond,
		},
		Telemetry: TelemetryConfig{
			Enabled:     true,
			ServiceName: "kanban-board",
		},
	}
}

// LoadDotEnv loads variables from the given .env files, or ./.env when
// none are given. Missing files are ignored; set variables win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load builds the configuration from defaults, the optional YAML file at
// path and finally environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func (c *Config) overrideFromEnv() error {
	var errs []error
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	setBool := func(dst *bool, key string) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setDuration := func(dst *time.Duration, key string) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	setString(&c.Server.Addr, "LISTEN_ADDR")
	if port := os.Getenv("FUNCTIONS_CUSTOMHANDLER_PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	setBool(&c.Server.Debug, "DEBUG")
	setString(&c.Server.LogFormat, "LOG_FORMAT")
	if v := os.Getenv("ALLOW_ORIGINS"); v != "" {
		c.Server.AllowOrigins = strings.Split(v, ",")
	}

	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.Path, "TASKS_FILE")
	setString(&c.Storage.Key, "TASKS_KEY")
	setDuration(&c.Storage.CacheTTL, "TASKS_CACHE_TTL")

	setString(&c.Redis.ConnectionString, "REDIS_CONNECTION_STRING")
	setString(&c.Redis.UpdatesChannel, "UPDATES_CHANNEL")
	setDuration(&c.Redis.DedupeTTL, "DEDUPER_TTL")

	setString(&c.Tables.ConnectionString, "STORAGE_CONNECTION_STRING")
	setString(&c.Tables.TasksTable, "TASKS_TABLE")
	setString(&c.Tables.Partition, "TASKS_PARTITION")

	setString(&c.Postgres.DSN, "POSTGRES_DSN", "DATABASE_URL")

	setString(&c.Queue.ConnectionString, "QUEUE_CONNECTION_STRING", "STORAGE_CONNECTION_STRING")
	setString(&c.Queue.Name, "EVENTS_QUEUE")
	setInt(&c.Queue.Workers, "ENQUEUE_WORKERS")
	setInt(&c.Queue.Buffer, "ENQUEUE_BUFFER")
	setDuration(&c.Queue.Timeout, "ENQUEUE_TIMEOUT")
	setDuration(&c.Queue.HandoffTimeout, "ENQUEUE_HANDOFF_TIMEOUT")

	setBool(&c.Telemetry.Enabled, "TELEMETRY_ENABLED")
	setString(&c.Telemetry.ServiceName, "OTEL_SERVICE_NAME")

	return errors.Join(errs...)
}

// Validate reports configuration that cannot be served.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for the file backend"))
		}
	case BackendMemory:
	case BackendRedis:
		if c.Redis.ConnectionString == "" {
			errs = append(errs, errors.New("redis.connection_string is required for the redis backend"))
		}
		if c.Storage.Key == "" {
			errs = append(errs, errors.New("storage.key is required for the redis backend"))
		}
	case BackendTables:
		if c.Tables.ConnectionString == "" || c.Tables.TasksTable == "" || c.Tables.Partition == "" {
			errs = append(errs, errors.New("tables.connection_string, tables.tasks_table and tables.partition are required for the tables backend"))
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	if c.Storage.CacheTTL < 0 {
		errs = append(errs, errors.New("storage.cache_ttl must not be negative"))
	}
	if c.Storage.CacheTTL > 0 && c.Redis.ConnectionString == "" {
		errs = append(errs, errors.New("storage.cache_ttl requires redis.connection_string"))
	}
	if c.Redis.DedupeTTL <= 0 {
		errs = append(errs, errors.New("redis.dedupe_ttl must be greater than zero"))
	}
	if c.Queue.Name != "" {
		if c.Queue.ConnectionString == "" {
			errs = append(errs, errors.New("queue.connection_string is required when queue.name is set"))
		}
		if c.Queue.Workers <= 0 {
			errs = append(errs, errors.New("queue.workers must be greater than zero"))
		}
		if c.Queue.Buffer <= 0 {
			errs = append(errs, errors.New("queue.buffer must be greater than zero"))
		}
	}
	switch c.Server.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Server.LogFormat))
	}
	return errors.Join(errs...)
}
