package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Input     InputConfig     `yaml:"input" mapstructure:"input"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Analysis  AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	Warehouse WarehouseConfig `yaml:"warehouse" mapstructure:"warehouse"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// InputConfig lists the input files. Each may be csv, xlsx, geojson, shp or a
// zip archive containing one of those.
type InputConfig struct {
	Pings      string `yaml:"pings" mapstructure:"pings"`
	Areas      string `yaml:"areas" mapstructure:"areas"`
	Population string `yaml:"population" mapstructure:"population"`
	Buildings  string `yaml:"buildings" mapstructure:"buildings"`
}

// OutputConfig configures where results are written.
type OutputConfig struct {
	Dir        string `yaml:"dir" mapstructure:"dir"`
	CleanedDir string `yaml:"cleaned_dir" mapstructure:"cleaned_dir"`
	Format     string `yaml:"format" mapstructure:"format"`
}

// AnalysisConfig configures the analyses run by the pipeline.
type AnalysisConfig struct {
	DecayWindowDays int            `yaml:"decay_window_days" mapstructure:"decay_window_days"`
	NearestMetric   string         `yaml:"nearest_metric" mapstructure:"nearest_metric"`
	SpatialIndex    bool           `yaml:"spatial_index" mapstructure:"spatial_index"`
	Areas           []string       `yaml:"areas" mapstructure:"areas"`
	Residence       EstimateConfig `yaml:"residence" mapstructure:"residence"`
	Work            EstimateConfig `yaml:"work" mapstructure:"work"`
	Concurrency     int            `yaml:"concurrency" mapstructure:"concurrency"`
}

// EstimateConfig configures one residence/work estimate.
type EstimateConfig struct {
	Location1 string `yaml:"location1" mapstructure:"location1"`
	Location2 string `yaml:"location2" mapstructure:"location2"`
	StartHour int    `yaml:"start_hour" mapstructure:"start_hour"`
	EndHour   int    `yaml:"end_hour" mapstructure:"end_hour"`
}

// Enabled reports whether both locations are set.
func (e EstimateConfig) Enabled() bool {
	return e.Location1 != "" && e.Location2 != ""
}

// WarehouseConfig configures the Postgres/PostGIS warehouse used by extract.
type WarehouseConfig struct {
	DatabaseURL string       `yaml:"database_url" mapstructure:"database_url"`
	Schema      string       `yaml:"schema" mapstructure:"schema"`
	Tables      TablesConfig `yaml:"tables" mapstructure:"tables"`
}

// TablesConfig names the warehouse tables per entity.
type TablesConfig struct {
	Pings      string `yaml:"pings" mapstructure:"pings"`
	Areas      string `yaml:"areas" mapstructure:"areas"`
	Population string `yaml:"population" mapstructure:"population"`
	Buildings  string `yaml:"buildings" mapstructure:"buildings"`
}

// StoreConfig configures the result store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// FetchConfig configures remote input downloads.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. An empty path looks for
// an optional config.yaml in the working directory; an explicit path must
// exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("MOBILITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input.pings", "data/traffic.csv")
	v.SetDefault("input.areas", "data/locations.csv")
	v.SetDefault("input.population", "")
	v.SetDefault("input.buildings", "")
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.cleaned_dir", "output/cleaned")
	v.SetDefault("output.format", "xlsx")
	v.SetDefault("analysis.decay_window_days", 14)
	v.SetDefault("analysis.nearest_metric", "great_circle")
	v.SetDefault("analysis.spatial_index", true)
	v.SetDefault("analysis.areas", []string{})
	v.SetDefault("analysis.residence.location1", "")
	v.SetDefault("analysis.residence.location2", "")
	v.SetDefault("analysis.residence.start_hour", 22)
	v.SetDefault("analysis.residence.end_hour", 5)
	v.SetDefault("analysis.work.location1", "")
	v.SetDefault("analysis.work.location2", "")
	v.SetDefault("analysis.work.start_hour", 8)
	v.SetDefault("analysis.work.end_hour", 18)
	v.SetDefault("analysis.concurrency", 4)
	v.SetDefault("warehouse.database_url", "")
	v.SetDefault("warehouse.schema", "public")
	v.SetDefault("warehouse.tables.pings", "traffic")
	v.SetDefault("warehouse.tables.areas", "locations")
	v.SetDefault("warehouse.tables.population", "population")
	v.SetDefault("warehouse.tables.buildings", "buildings")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "mobility.db")
	v.SetDefault("fetch.timeout_secs", 120)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_per_sec", 2.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. Mode is the command
// name: analyze, clean, extract, fetch or runs.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "analyze":
		if c.Input.Pings == "" {
			errs = append(errs, "input.pings is required")
		}
		if c.Input.Areas == "" {
			errs = append(errs, "input.areas is required")
		}
		if c.Analysis.DecayWindowDays < 0 {
			errs = append(errs, "analysis.decay_window_days must be >= 0")
		}
		if c.Analysis.Concurrency < 1 || c.Analysis.Concurrency > 32 {
			errs = append(errs, "analysis.concurrency must be between 1 and 32")
		}
		switch c.Analysis.NearestMetric {
		case "", "great_circle", "planar":
		default:
			errs = append(errs, "analysis.nearest_metric must be great_circle or planar")
		}
		errs = append(errs, c.validateWindow("analysis.residence", c.Analysis.Residence)...)
		errs = append(errs, c.validateWindow("analysis.work", c.Analysis.Work)...)
		errs = append(errs, c.validateOutput()...)
		errs = append(errs, c.validateStore()...)
	case "clean":
		if c.Output.CleanedDir == "" {
			errs = append(errs, "output.cleaned_dir is required")
		}
	case "extract":
		if c.Warehouse.DatabaseURL == "" {
			errs = append(errs, "warehouse.database_url is required")
		}
		if c.Output.Dir == "" {
			errs = append(errs, "output.dir is required")
		}
	case "fetch":
		if c.Fetch.TimeoutSecs <= 0 {
			errs = append(errs, "fetch.timeout_secs must be > 0")
		}
		if c.Fetch.MaxRetries < 0 {
			errs = append(errs, "fetch.max_retries must be >= 0")
		}
	case "runs":
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateWindow(key string, e EstimateConfig) []string {
	var errs []string
	if e.StartHour < 0 || e.StartHour > 23 {
		errs = append(errs, key+".start_hour must be between 0 and 23")
	}
	if e.EndHour < 0 || e.EndHour > 24 {
		errs = append(errs, key+".end_hour must be between 0 and 24")
	}
	return errs
}

func (c *Config) validateOutput() []string {
	switch c.Output.Format {
	case "xlsx", "csv":
		return nil
	default:
		return []string{"output.format must be xlsx or csv"}
	}
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return []string{"store.driver must be sqlite or postgres"}
	}
	if c.Store.DatabaseURL == "" {
		return []string{"store.database_url is required"}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
