package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "weaponcharts.cfg.json"

// GameConfig locates the tables of one game.
type GameConfig struct {
	Weapons     string `json:"weapons" mapstructure:"weapons"`
	Attachments string `json:"attachments" mapstructure:"attachments"`
	Groups      string `json:"groups" mapstructure:"groups"`
	Order       []int  `json:"order" mapstructure:"order"`
}

// DataConfig holds the dataset locations.
type DataConfig struct {
	DefaultGame string
	Timeout     time.Duration
	Games       map[string]GameConfig
}

// SelectionConfig is the initial selection applied at startup.
type SelectionConfig struct {
	Category   string
	Suppressed bool
}

// FilterConfig holds the variant exclusion list.
type FilterConfig struct {
	Exclude []string
}

// ChartConfig holds presentation settings.
type ChartConfig struct {
	Format     string // xlsx, svg or none
	OutputPath string // workbook path for xlsx
	OutputDir  string // directory for svg
	Unit       string
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings for the sqlite gorm backend.
type SQLiteConfig struct {
	Path     string `json:"path" mapstructure:"path"`
	DumpPath string `json:"dumpPath" mapstructure:"dumpPath"`
}

// StorageConfig selects the run storage backend.
type StorageConfig struct {
	Type   string
	Memory MemoryConfig
	SQLite SQLiteConfig
}

// DBConfig holds postgres connection settings.
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// InfluxConfig holds InfluxDB connection settings.
type InfluxConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Protocol string
	Token    string
	Org      string
	Bucket   string
}

// GraylogConfig holds GELF log shipping settings.
type GraylogConfig struct {
	Enabled bool
	Address string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled         bool
	ServiceName     string
	BatchTimeout    time.Duration
	MetricsInterval time.Duration
	Endpoint        string
	Insecure        bool
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. A missing file is
// reported through ErrNotFound while the defaults stay in effect.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("data.defaultGame", "mw")
	viper.SetDefault("data.timeout", "10s")
	viper.SetDefault("data.games", map[string]any{
		"mw": map[string]any{
			"weapons":     "./data/mw/weapons.csv",
			"attachments": "./data/mw/attachments.json",
			"groups":      "./data/mw/groups.json",
		},
	})

	viper.SetDefault("selection.category", "all")
	viper.SetDefault("selection.suppressed", false)

	viper.SetDefault("filter.exclude", []string{"dualoptic", "lefthand", "akimbo"})

	viper.SetDefault("chart.format", "xlsx")
	viper.SetDefault("chart.outputPath", "./charts/weapons.xlsx")
	viper.SetDefault("chart.outputDir", "./charts")
	viper.SetDefault("chart.unit", "meters")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./runs")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./weaponcharts.db")
	viper.SetDefault("storage.sqlite.dumpPath", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "weaponcharts")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "weaponcharts")
	viper.SetDefault("influx.bucket", "breakpoints")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "weaponcharts")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.metricsInterval", "30s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return fmt.Errorf("%w in %s", ErrNotFound, configDir)
		}
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// ErrNotFound is returned by Load when no config file exists.
var ErrNotFound = errors.New("config file not found")

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDataConfig returns the dataset configuration.
func GetDataConfig() (DataConfig, error) {
	games := make(map[string]GameConfig)
	if err := viper.UnmarshalKey("data.games", &games); err != nil {
		return DataConfig{}, fmt.Errorf("invalid data.games: %w", err)
	}
	return DataConfig{
		DefaultGame: viper.GetString("data.defaultGame"),
		Timeout:     viper.GetDuration("data.timeout"),
		Games:       games,
	}, nil
}

// GetSelection returns the startup selection.
func GetSelection() SelectionConfig {
	return SelectionConfig{
		Category:   viper.GetString("selection.category"),
		Suppressed: viper.GetBool("selection.suppressed"),
	}
}

// GetFilterConfig returns the variant filter configuration.
func GetFilterConfig() FilterConfig {
	return FilterConfig{
		Exclude: viper.GetStringSlice("filter.exclude"),
	}
}

// GetChartConfig returns the chart output configuration.
func GetChartConfig() ChartConfig {
	return ChartConfig{
		Format:     viper.GetString("chart.format"),
		OutputPath: viper.GetString("chart.outputPath"),
		OutputDir:  viper.GetString("chart.outputDir"),
		Unit:       viper.GetString("chart.unit"),
	}
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:     viper.GetString("storage.sqlite.path"),
			DumpPath: viper.GetString("storage.sqlite.dumpPath"),
		},
	}
}

// GetDBConfig returns the postgres connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetGraylogConfig returns the GELF settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:         viper.GetBool("otel.enabled"),
		ServiceName:     viper.GetString("otel.serviceName"),
		BatchTimeout:    viper.GetDuration("otel.batchTimeout"),
		MetricsInterval: viper.GetDuration("otel.metricsInterval"),
		Endpoint:        viper.GetString("otel.endpoint"),
		Insecure:        viper.GetBool("otel.insecure"),
	}
}
