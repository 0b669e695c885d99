// Package config provides centralized configuration for the LocaleDB loader.
// It loads configuration from environment variables with defaults and
// validates every setting before any database work starts.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Load     LoadConfig
	Fetch    FetchConfig
	Sources  SourcesConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Not required here: positional connection parameters on the command line
	// replace it. Supports both DATABASE_URL and DB_URL.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
}

// LoadConfig holds upsert engine settings.
type LoadConfig struct {
	// PageSize is the number of rows per round-trip for paged upserts (default: 1000)
	PageSize int `env:"LOAD_PAGE_SIZE" default:"1000"`

	// Vacuum runs VACUUM (FULL, ANALYZE) on affected tables after a load (default: true)
	Vacuum bool `env:"LOAD_VACUUM" default:"true"`

	// DescriptorsFile overrides the embedded table descriptors (optional)
	DescriptorsFile string `env:"LOAD_DESCRIPTORS_FILE"`

	// LockKey is the advisory lock key serializing locale reloads against other loads
	LockKey int64 `env:"LOAD_LOCK_KEY" default:"5003476436418114661"`

	// ResolverCacheSize bounds the locale resolution cache (default: 20000)
	ResolverCacheSize int `env:"LOAD_RESOLVER_CACHE_SIZE" default:"20000"`

	// Timeout bounds one dataset load; 0 disables the bound (default: 0)
	Timeout time.Duration `env:"LOAD_TIMEOUT" default:"0s"`
}

// FetchConfig holds source download settings.
type FetchConfig struct {
	// Attempts is the number of tries per source before giving up (default: 3)
	Attempts int `env:"FETCH_ATTEMPTS" default:"3"`

	// BackoffMin is the lower bound of the randomized retry delay (default: 5s)
	BackoffMin time.Duration `env:"FETCH_BACKOFF_MIN" default:"5s"`

	// BackoffMax is the upper bound of the randomized retry delay (default: 60s)
	BackoffMax time.Duration `env:"FETCH_BACKOFF_MAX" default:"60s"`

	// Timeout bounds a single HTTP request (default: 5m)
	Timeout time.Duration `env:"FETCH_TIMEOUT" default:"5m"`

	// RatePerSecond limits request starts against upstream hosts (default: 2)
	RatePerSecond float64 `env:"FETCH_RATE_PER_SECOND" default:"2"`

	// UserAgent is sent with every request
	UserAgent string `env:"FETCH_USER_AGENT" default:"localedb-etl"`
}

// SourcesConfig holds dataset source locations. Each may be a URL or a local path.
type SourcesConfig struct {
	// DataDir is the root for local extracts such as synthetic population (default: ./data)
	DataDir string `env:"LOCALEDB_DATA_DIR" default:"./data"`

	LocaleLookup string `env:"SOURCE_LOCALE_LOOKUP" default:"https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/UID_ISO_FIPS_LookUp_Table.csv"`

	// JHUBase is the directory holding the CSSE time series files
	JHUBase string `env:"SOURCE_JHU_BASE" default:"https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_time_series"`

	KeystoneNPI string `env:"SOURCE_KEYSTONE_NPI" default:"https://raw.githubusercontent.com/Keystone-Strategy/covid19-intervention-data/master/complete_npis_inherited_policies.csv"`

	// ClimDivBase is the NOAA nClimDiv directory
	ClimDivBase string `env:"SOURCE_CLIMDIV_BASE" default:"https://www.ncei.noaa.gov/pub/data/cirs/climdiv"`

	// ClimDivVersion is the file suffix NOAA stamps on each release, e.g. v1.0.0-20240806
	ClimDivVersion string `env:"SOURCE_CLIMDIV_VERSION" default:"v1.0.0-20240806"`

	Mobility string `env:"SOURCE_MOBILITY" default:"https://www.gstatic.com/covid19/mobility/Global_Mobility_Report.csv"`

	// AirLookupBase holds the state, airport, county-FIPS and world-city lookup tables
	AirLookupBase string `env:"SOURCE_AIR_LOOKUP_BASE" default:"https://raw.githubusercontent.com/jataware/ASKE-weather/main/county_air_travel"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig holds metrics exposition settings.
type MetricsConfig struct {
	// Addr serves /healthz and /metrics while a load runs; empty disables
	Addr string `env:"METRICS_ADDR"`

	// PushURL is a Prometheus pushgateway receiving metrics when the run ends; empty disables
	PushURL string `env:"METRICS_PUSH_URL"`

	// Job is the pushgateway job label (default: localedb)
	Job string `env:"METRICS_JOB" default:"localedb"`
}

// ConnParams are the positional connection parameters accepted by the CLI.
type ConnParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// URL renders the parameters as a PostgreSQL connection URL.
func (p ConnParams) URL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   p.Host + ":" + p.Port,
		Path:   "/" + p.DBName,
	}
	return u.String()
}

// ApplyConn overrides the database URL with positional parameters.
func (c *Config) ApplyConn(p ConnParams) {
	c.Database.URL = p.URL()
}

// DatabaseName returns the database name from the URL for logging.
func (c *DatabaseConfig) DatabaseName() string {
	u, err := url.Parse(c.URL)
	if err != nil {
		return ""
	}
	if len(u.Path) > 1 {
		return u.Path[1:]
	}
	return ""
}

// String returns a safe representation of the config for logging.
// The database URL is masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: {URL: [MASKED], MaxConns: %d}, Load: {PageSize: %d, Vacuum: %v}, "+
		"Fetch: {Attempts: %d, Backoff: %s-%s}, Logging: {Level: %q, Format: %q}, Metrics: {Addr: %q}}",
		c.Database.MaxConns, c.Load.PageSize, c.Load.Vacuum,
		c.Fetch.Attempts, c.Fetch.BackoffMin, c.Fetch.BackoffMax,
		c.Logging.Level, c.Logging.Format, c.Metrics.Addr)
}
