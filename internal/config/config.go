package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v2"

	"counterviz/internal/usage"
	"counterviz/pkg/contracts/domain"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "COUNTERVIZ"

// ScheduleParser parses cron specs with a leading seconds field, the format
// used by the job scheduler.
var ScheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ConfigPathEnv names the variable that points at an explicit YAML file.
const ConfigPathEnv = "COUNTERVIZ_CONFIG"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Library   LibraryConfig   `yaml:"library" envconfig:"LIBRARY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"` // stdout, file, both
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// AnalysisConfig tunes how reports are read and projected.
type AnalysisConfig struct {
	MissingValue          float64  `yaml:"missing_value" envconfig:"MISSING_VALUE"`
	HeaderRows            int      `yaml:"header_rows" envconfig:"HEADER_ROWS"`
	FullYearDays          int      `yaml:"full_year_days" envconfig:"FULL_YEAR_DAYS"`
	Alignment             string   `yaml:"alignment" envconfig:"ALIGNMENT"` // calendar, position
	DefaultMetric         string   `yaml:"default_metric" envconfig:"DEFAULT_METRIC"`
	CostPolicy            string   `yaml:"cost_policy" envconfig:"COST_POLICY"` // auto, actual
	AdministrativeColumns []string `yaml:"administrative_columns" envconfig:"ADMINISTRATIVE_COLUMNS"`
}

// TelemetryConfig controls the OpenTelemetry providers.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled" envconfig:"ENABLED"`
	ServiceName   string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"` // none, stdout
}

// StorageConfig locates report inputs and export outputs.
type StorageConfig struct {
	ReportsDir string   `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	ExportDir  string   `yaml:"export_dir" envconfig:"EXPORT_DIR"`
	S3         S3Config `yaml:"s3" envconfig:"S3"`
}

// S3Config points the report library at a bucket instead of a directory.
type S3Config struct {
	Bucket          string `yaml:"bucket" envconfig:"BUCKET"`
	Prefix          string `yaml:"prefix" envconfig:"PREFIX"`
	Region          string `yaml:"region" envconfig:"REGION"`
	Endpoint        string `yaml:"endpoint" envconfig:"ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" envconfig:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" envconfig:"SECRET_ACCESS_KEY"`
}

// Enabled reports whether a bucket is configured.
func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

// LibraryConfig controls the scheduled rescan of the report library.
type LibraryConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"ENABLED"`
	Schedule string `yaml:"schedule" envconfig:"SCHEDULE"` // cron spec with seconds
}

// Load reads configuration with precedence defaults < YAML file < environment.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit YAML path. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML document onto cfg. Keys absent from the
// file keep their current values.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Address returns the listen address of the HTTP server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	switch c.Logging.Output {
	case "stdout", "file", "both":
	default:
		return fmt.Errorf("invalid logging output: %q", c.Logging.Output)
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	if c.Logging.Output != "stdout" && c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFile
	}

	if c.Analysis.MissingValue < 0 {
		return fmt.Errorf("analysis missing value must not be negative")
	}

	if c.Analysis.HeaderRows < 0 {
		return fmt.Errorf("analysis header rows must not be negative")
	}

	if c.Analysis.FullYearDays <= 0 || c.Analysis.FullYearDays > 366 {
		return fmt.Errorf("analysis full year days out of range: %d", c.Analysis.FullYearDays)
	}

	if _, err := usage.ParseAlignment(c.Analysis.Alignment); err != nil {
		return fmt.Errorf("invalid analysis alignment: %w", err)
	}

	if _, err := domain.ParseMetricType(c.Analysis.DefaultMetric); err != nil {
		return fmt.Errorf("invalid default metric: %w", err)
	}

	switch domain.CostPolicy(c.Analysis.CostPolicy) {
	case domain.CostPolicyAuto, domain.CostPolicyActual:
	default:
		return fmt.Errorf("invalid cost policy: %q", c.Analysis.CostPolicy)
	}

	if c.Library.Enabled {
		if c.Library.Schedule == "" {
			return fmt.Errorf("library schedule is required when the library is enabled")
		}
		if _, err := ScheduleParser.Parse(c.Library.Schedule); err != nil {
			return fmt.Errorf("invalid library schedule %q: %w", c.Library.Schedule, err)
		}
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  DefaultRequestTimeout,
			MaxUploadBytes:  DefaultMaxUploadBytes,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stdout",
			FilePath: DefaultLogFile,
		},
		Analysis: AnalysisConfig{
			MissingValue:          usage.DefaultMissingValue,
			HeaderRows:            DefaultHeaderRows,
			FullYearDays:          usage.DefaultFullYearDays,
			Alignment:             string(usage.AlignCalendar),
			DefaultMetric:         string(domain.MetricTotalItemRequests),
			CostPolicy:            string(domain.CostPolicyAuto),
			AdministrativeColumns: usage.DefaultAdministrativeColumns(),
		},
		Telemetry: TelemetryConfig{
			Enabled:       true,
			ServiceName:   AppName,
			TraceExporter: "none",
		},
		Storage: StorageConfig{
			ReportsDir: DefaultReportsDir,
			ExportDir:  DefaultExportDir,
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		Library: LibraryConfig{
			Enabled:  false,
			Schedule: DefaultLibrarySchedule,
		},
	}
}

// EngineConfig converts the analysis section into engine settings. Call it on
// a validated Config.
func (c *Config) EngineConfig() usage.Config {
	alignment, _ := usage.ParseAlignment(c.Analysis.Alignment)
	metric, _ := domain.ParseMetricType(c.Analysis.DefaultMetric)

	admin := c.Analysis.AdministrativeColumns
	if len(admin) == 0 {
		admin = usage.DefaultAdministrativeColumns()
	}

	return usage.Config{
		Normalizer: usage.NormalizerConfig{
			MissingValue:          c.Analysis.MissingValue,
			AdministrativeColumns: admin,
		},
		FullYearDays:  c.Analysis.FullYearDays,
		Alignment:     alignment,
		DefaultMetric: metric,
	}
}
