package config

import (
	"os"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// DBConfig Database config
type DBConfig struct {
	Type     string `yaml:"type"` // postgres | sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// SysConfig System config
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
	SeedDemo bool   `yaml:"seed_demo"`
}

// WebConfig Web server config
type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LogConfig Log config
type LogConfig struct {
	Mode       string `yaml:"mode"` // development | production
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// EngineConfig tunes the consistency engine transaction runner.
type EngineConfig struct {
	MaxRetries     int `yaml:"max_retries"`
	RetryBackoffMs int `yaml:"retry_backoff_ms"`
}

// KafkaConfig order event publishing
type KafkaConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Brokers     []string `yaml:"brokers"`
	TopicPrefix string   `yaml:"topic_prefix"`
}

// JobsConfig housekeeping schedules
type JobsConfig struct {
	OprlogRetentionDays int    `yaml:"oprlog_retention_days"`
	StockReportCron     string `yaml:"stock_report_cron"`
}

type AppConfig struct {
	System   SysConfig    `yaml:"system"`
	Web      WebConfig    `yaml:"web"`
	Database DBConfig     `yaml:"database"`
	Logger   LogConfig    `yaml:"logger"`
	Engine   EngineConfig `yaml:"engine"`
	Kafka    KafkaConfig  `yaml:"kafka"`
	Jobs     JobsConfig   `yaml:"jobs"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) initDirs() error {
	for _, dir := range []string{c.GetLogDir(), c.GetDataDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create dir %s", dir)
		}
	}
	return nil
}

// Validate rejects configurations the application cannot start with.
func (c *AppConfig) Validate() error {
	switch c.Database.Type {
	case "postgres", "sqlite":
	default:
		return errors.Errorf("unsupported database type %q", c.Database.Type)
	}
	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return errors.Errorf("invalid web port %d", c.Web.Port)
	}
	if c.Engine.MaxRetries < 0 {
		return errors.New("engine.max_retries must be >= 0")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.enabled requires at least one broker")
	}
	return nil
}

// DefaultAppConfig returns the built-in configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "ThriftMart",
			Location: "Local",
			Workdir:  "/var/thriftmart",
			Debug:    true,
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 5001,
		},
		Database: DBConfig{
			Type:     "sqlite",
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "thriftmart.db",
			User:     "postgres",
			Passwd:   "myroot",
			MaxConn:  100,
			IdleConn: 10,
			Debug:    false,
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: false,
			Filename:   "/var/thriftmart/logs/thriftmart.log",
		},
		Engine: EngineConfig{
			MaxRetries:     3,
			RetryBackoffMs: 20,
		},
		Kafka: KafkaConfig{
			Enabled:     false,
			Brokers:     []string{"127.0.0.1:9092"},
			TopicPrefix: "thriftmart",
		},
		Jobs: JobsConfig{
			OprlogRetentionDays: 365,
			StockReportCron:     "@every 1h",
		},
	}
}

// LoadConfig reads cfile (or the first existing default location) on top of
// the built-in defaults, then applies THRIFTMART_* environment overrides.
func LoadConfig(cfile string) (*AppConfig, error) {
	if cfile == "" {
		for _, f := range []string{"thriftmart.yml", "/etc/thriftmart.yml"} {
			if fileExists(f) {
				cfile = f
				break
			}
		}
	}

	cfg := DefaultAppConfig()
	if cfile != "" {
		data, err := os.ReadFile(cfile)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", cfile)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", cfile)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Prepare creates the working directories the configuration points at.
func (c *AppConfig) Prepare() error {
	return c.initDirs()
}

func applyEnv(cfg *AppConfig) {
	setEnvValue("THRIFTMART_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvValue("THRIFTMART_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("THRIFTMART_SYSTEM_DEBUG", &cfg.System.Debug)
	setEnvBoolValue("THRIFTMART_SYSTEM_SEED_DEMO", &cfg.System.SeedDemo)

	setEnvValue("THRIFTMART_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("THRIFTMART_WEB_PORT", &cfg.Web.Port)

	setEnvValue("THRIFTMART_DB_TYPE", &cfg.Database.Type)
	setEnvValue("THRIFTMART_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("THRIFTMART_DB_PORT", &cfg.Database.Port)
	setEnvValue("THRIFTMART_DB_NAME", &cfg.Database.Name)
	setEnvValue("THRIFTMART_DB_USER", &cfg.Database.User)
	setEnvValue("THRIFTMART_DB_PWD", &cfg.Database.Passwd)
	setEnvIntValue("THRIFTMART_DB_MAX_CONN", &cfg.Database.MaxConn)
	setEnvIntValue("THRIFTMART_DB_IDLE_CONN", &cfg.Database.IdleConn)
	setEnvBoolValue("THRIFTMART_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("THRIFTMART_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("THRIFTMART_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)
	setEnvValue("THRIFTMART_LOGGER_FILENAME", &cfg.Logger.Filename)

	setEnvIntValue("THRIFTMART_ENGINE_MAX_RETRIES", &cfg.Engine.MaxRetries)
	setEnvIntValue("THRIFTMART_ENGINE_RETRY_BACKOFF_MS", &cfg.Engine.RetryBackoffMs)

	setEnvBoolValue("THRIFTMART_KAFKA_ENABLED", &cfg.Kafka.Enabled)
	setEnvSliceValue("THRIFTMART_KAFKA_BROKERS", &cfg.Kafka.Brokers)
	setEnvValue("THRIFTMART_KAFKA_TOPIC_PREFIX", &cfg.Kafka.TopicPrefix)

	setEnvIntValue("THRIFTMART_JOBS_OPRLOG_RETENTION_DAYS", &cfg.Jobs.OprlogRetentionDays)
	setEnvValue("THRIFTMART_JOBS_STOCK_REPORT_CRON", &cfg.Jobs.StockReportCron)
}

func setEnvValue(name string, val *string) {
	if v := os.Getenv(name); v != "" {
		*val = v
	}
}

func setEnvBoolValue(name string, val *bool) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToBool(v)
	}
}

func setEnvIntValue(name string, val *int) {
	if v := os.Getenv(name); v != "" {
		if i, err := cast.ToIntE(v); err == nil {
			*val = i
		}
	}
}

func setEnvSliceValue(name string, val *[]string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	var items []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			items = append(items, s)
		}
	}
	if len(items) > 0 {
		*val = items
	}
}

func fileExists(file string) bool {
	info, err := os.Stat(file)
	return err == nil && !info.IsDir()
}
