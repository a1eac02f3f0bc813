package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete pipeline configuration. Values are loaded
// from environment variables (prefix PANEL) layered over an optional YAML
// file; a set environment variable wins over the file, and the file wins
// over built-in defaults. API keys and fetch defaults live here and are
// passed into the adapter constructors, never read from ambient state.
type Config struct {
	Fred      FredConfig      `yaml:"fred" envconfig:"FRED"`
	Census    CensusConfig    `yaml:"census" envconfig:"CENSUS"`
	Fetch     FetchConfig     `yaml:"fetch" envconfig:"FETCH"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Microdata MicrodataConfig `yaml:"microdata" envconfig:"MICRODATA"`
	Series    []SeriesSpec    `yaml:"series" ignored:"true"`
}

// FredConfig configures the time-series API adapter.
type FredConfig struct {
	APIKey  string `yaml:"api_key" envconfig:"API_KEY" validate:"required"`
	BaseURL string `yaml:"base_url" envconfig:"BASE_URL" default:"https://api.stlouisfed.org/fred" validate:"url"`
}

// CensusConfig configures the tabular statistical API adapter.
type CensusConfig struct {
	BaseURL  string `yaml:"base_url" envconfig:"BASE_URL" default:"https://api.census.gov/data/timeseries/poverty/histpov2" validate:"url"`
	FromYear int    `yaml:"from_year" envconfig:"FROM_YEAR" default:"1959" validate:"min=1900"`
	ToYear   int    `yaml:"to_year" envconfig:"TO_YEAR" default:"2024" validate:"gtefield=FromYear"`
}

// FetchConfig contains HTTP timeout, retry and rate-limit settings shared by
// all fetch adapters.
type FetchConfig struct {
	Timeout       time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"25s"`
	MaxAttempts   int           `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS" default:"3" validate:"min=1"`
	InitialDelay  time.Duration `yaml:"initial_delay" envconfig:"INITIAL_DELAY" default:"1500ms"`
	MaxDelay      time.Duration `yaml:"max_delay" envconfig:"MAX_DELAY" default:"30s"`
	Multiplier    float64       `yaml:"multiplier" envconfig:"MULTIPLIER" default:"2.0" validate:"min=1"`
	RatePerSecond float64       `yaml:"rate_per_second" envconfig:"RATE_PER_SECOND" default:"4"`
	RateBurst     int           `yaml:"rate_burst" envconfig:"RATE_BURST" default:"2"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/panel.log"`
}

// OutputConfig contains output artifact locations and merge output options.
// UnemploymentColumn names the panel column the annual unemployment
// category is bucketed from.
type OutputConfig struct {
	Dir                string `yaml:"dir" envconfig:"DIR" default:"."`
	TableFile          string `yaml:"table_file" envconfig:"TABLE_FILE" default:"panel.csv"`
	MetaFile           string `yaml:"meta_file" envconfig:"META_FILE" default:"panel_meta.json"`
	AnnualFile         string `yaml:"annual_file" envconfig:"ANNUAL_FILE" default:"panel_annual.csv"`
	AnnualLabelsFile   string `yaml:"annual_labels_file" envconfig:"ANNUAL_LABELS_FILE" default:"panel_annual_labels.json"`
	WriteAnnual        bool   `yaml:"write_annual" envconfig:"WRITE_ANNUAL" default:"true"`
	KeepUnmatchedYears bool   `yaml:"keep_unmatched_years" envconfig:"KEEP_UNMATCHED_YEARS" default:"false"`
	UnemploymentColumn string `yaml:"unemployment_column" envconfig:"UNEMPLOYMENT_COLUMN" default:"UNEMPLOYMENT_RATE"`
}

// PathTo resolves an artifact file name against the output directory.
func (o OutputConfig) PathTo(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(o.Dir, name)
}

// MicrodataConfig configures the survey microdata source. An empty Path
// disables the microdata source entirely. YearAliases is the explicit,
// ordered list of accepted year column names; it is resolved once into a
// fixed column reference before aggregation starts.
type MicrodataConfig struct {
	Path        string   `yaml:"path" envconfig:"PATH"`
	YearAliases []string `yaml:"year_aliases" envconfig:"YEAR_ALIASES" default:"YEAR,year,Year"`
}

// SeriesSpec names one upstream series and the output column it maps to.
type SeriesSpec struct {
	Source string `yaml:"source" validate:"oneof=fred census"`
	ID     string `yaml:"id" validate:"required"`
	Column string `yaml:"column" validate:"required"`
}

// DefaultSeries returns the standard population-impact series list used when
// no series are configured.
func DefaultSeries() []SeriesSpec {
	return []SeriesSpec{
		{Source: "fred", ID: "UNRATE", Column: "UNEMPLOYMENT_RATE"},
		{Source: "fred", ID: "CIVPART", Column: "LABOR_FORCE_PARTICIPATION"},
		{Source: "fred", ID: "MEHOINUSA672N", Column: "REAL_MEDIAN_HH_INCOME"},
		{Source: "fred", ID: "SIPOVGINIUSA", Column: "GINI_INDEX"},
		{Source: "fred", ID: "A794RC0A052NBEA", Column: "REAL_PCE_PER_CAPITA"},
		{Source: "fred", ID: "SPDYNLE00INUSA", Column: "LIFE_EXPECTANCY_AT_BIRTH"},
		{Source: "census", ID: "CENSUS_HISTPOV2_POV_RATE_ALL_PEOPLE", Column: "POVERTY_RATE_OFFICIAL"},
	}
}

// Load loads configuration from a .env file (if present), environment
// variables and an optional YAML config file.
func Load(configFile string) (*Config, error) {
	// Best effort, matching the upstream tooling's dotenv behavior.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("PANEL", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fromFile, err := loadFromFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
			cfg = mergeConfigs(fromFile, cfg)
		}
	}

	if len(cfg.Series) == 0 {
		cfg.Series = DefaultSeries()
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// fileConfig mirrors Config for YAML decoding with pointer fields, so a key
// omitted from the file is distinguishable from an explicit zero value such
// as write_annual: false.
type fileConfig struct {
	Fred struct {
		APIKey  *string `yaml:"api_key"`
		BaseURL *string `yaml:"base_url"`
	} `yaml:"fred"`
	Census struct {
		BaseURL  *string `yaml:"base_url"`
		FromYear *int    `yaml:"from_year"`
		ToYear   *int    `yaml:"to_year"`
	} `yaml:"census"`
	Fetch struct {
		Timeout       *duration `yaml:"timeout"`
		MaxAttempts   *int      `yaml:"max_attempts"`
		InitialDelay  *duration `yaml:"initial_delay"`
		MaxDelay      *duration `yaml:"max_delay"`
		Multiplier    *float64  `yaml:"multiplier"`
		RatePerSecond *float64  `yaml:"rate_per_second"`
		RateBurst     *int      `yaml:"rate_burst"`
	} `yaml:"fetch"`
	Logging struct {
		Level    *string `yaml:"level"`
		Format   *string `yaml:"format"`
		Output   *string `yaml:"output"`
		FilePath *string `yaml:"file_path"`
	} `yaml:"logging"`
	Output struct {
		Dir                *string `yaml:"dir"`
		TableFile          *string `yaml:"table_file"`
		MetaFile           *string `yaml:"meta_file"`
		AnnualFile         *string `yaml:"annual_file"`
		AnnualLabelsFile   *string `yaml:"annual_labels_file"`
		WriteAnnual        *bool   `yaml:"write_annual"`
		KeepUnmatchedYears *bool   `yaml:"keep_unmatched_years"`
		UnemploymentColumn *string `yaml:"unemployment_column"`
	} `yaml:"output"`
	Microdata struct {
		Path        *string  `yaml:"path"`
		YearAliases []string `yaml:"year_aliases"`
	} `yaml:"microdata"`
	Series []SeriesSpec `yaml:"series"`
}

// duration decodes YAML duration strings such as "40s" or "1500ms".
type duration time.Duration

func (d *duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*fileConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envIsSet reports whether the variable carries a non-empty value, whether
// from the process environment or a loaded .env file.
func envIsSet(key string) bool {
	v, ok := os.LookupEnv(key)
	return ok && v != ""
}

// overlay copies a value the file provides into dst unless the named
// environment variable is set; envconfig has already written the environment
// value (or the envconfig default) into dst.
func overlay[T any](dst *T, file *T, envKey string) {
	if file == nil || envIsSet(envKey) {
		return
	}
	*dst = *file
}

func overlayDuration(dst *time.Duration, file *duration, envKey string) {
	if file == nil || envIsSet(envKey) {
		return
	}
	*dst = time.Duration(*file)
}

// mergeConfigs layers file values under the environment: a set environment
// variable wins, an omitted environment variable yields to the file, and
// fields absent from both keep their envconfig defaults. The series list
// comes from the file only.
func mergeConfigs(file *fileConfig, cfg Config) Config {
	overlay(&cfg.Fred.APIKey, file.Fred.APIKey, "PANEL_FRED_API_KEY")
	overlay(&cfg.Fred.BaseURL, file.Fred.BaseURL, "PANEL_FRED_BASE_URL")

	overlay(&cfg.Census.BaseURL, file.Census.BaseURL, "PANEL_CENSUS_BASE_URL")
	overlay(&cfg.Census.FromYear, file.Census.FromYear, "PANEL_CENSUS_FROM_YEAR")
	overlay(&cfg.Census.ToYear, file.Census.ToYear, "PANEL_CENSUS_TO_YEAR")

	overlayDuration(&cfg.Fetch.Timeout, file.Fetch.Timeout, "PANEL_FETCH_TIMEOUT")
	overlay(&cfg.Fetch.MaxAttempts, file.Fetch.MaxAttempts, "PANEL_FETCH_MAX_ATTEMPTS")
	overlayDuration(&cfg.Fetch.InitialDelay, file.Fetch.InitialDelay, "PANEL_FETCH_INITIAL_DELAY")
	overlayDuration(&cfg.Fetch.MaxDelay, file.Fetch.MaxDelay, "PANEL_FETCH_MAX_DELAY")
	overlay(&cfg.Fetch.Multiplier, file.Fetch.Multiplier, "PANEL_FETCH_MULTIPLIER")
	overlay(&cfg.Fetch.RatePerSecond, file.Fetch.RatePerSecond, "PANEL_FETCH_RATE_PER_SECOND")
	overlay(&cfg.Fetch.RateBurst, file.Fetch.RateBurst, "PANEL_FETCH_RATE_BURST")

	overlay(&cfg.Logging.Level, file.Logging.Level, "PANEL_LOGGING_LEVEL")
	overlay(&cfg.Logging.Format, file.Logging.Format, "PANEL_LOGGING_FORMAT")
	overlay(&cfg.Logging.Output, file.Logging.Output, "PANEL_LOGGING_OUTPUT")
	overlay(&cfg.Logging.FilePath, file.Logging.FilePath, "PANEL_LOGGING_FILE_PATH")

	overlay(&cfg.Output.Dir, file.Output.Dir, "PANEL_OUTPUT_DIR")
	overlay(&cfg.Output.TableFile, file.Output.TableFile, "PANEL_OUTPUT_TABLE_FILE")
	overlay(&cfg.Output.MetaFile, file.Output.MetaFile, "PANEL_OUTPUT_META_FILE")
	overlay(&cfg.Output.AnnualFile, file.Output.AnnualFile, "PANEL_OUTPUT_ANNUAL_FILE")
	overlay(&cfg.Output.AnnualLabelsFile, file.Output.AnnualLabelsFile, "PANEL_OUTPUT_ANNUAL_LABELS_FILE")
	overlay(&cfg.Output.WriteAnnual, file.Output.WriteAnnual, "PANEL_OUTPUT_WRITE_ANNUAL")
	overlay(&cfg.Output.KeepUnmatchedYears, file.Output.KeepUnmatchedYears, "PANEL_OUTPUT_KEEP_UNMATCHED_YEARS")
	overlay(&cfg.Output.UnemploymentColumn, file.Output.UnemploymentColumn, "PANEL_OUTPUT_UNEMPLOYMENT_COLUMN")

	overlay(&cfg.Microdata.Path, file.Microdata.Path, "PANEL_MICRODATA_PATH")
	if len(file.Microdata.YearAliases) > 0 && !envIsSet("PANEL_MICRODATA_YEAR_ALIASES") {
		cfg.Microdata.YearAliases = file.Microdata.YearAliases
	}

	cfg.Series = file.Series

	return cfg
}

// validate checks the loaded configuration
func (c *Config) validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	for i, spec := range c.Series {
		if err := validate.Struct(spec); err != nil {
			return fmt.Errorf("series %d (%s): %w", i, spec.ID, err)
		}
	}
	return nil
}
