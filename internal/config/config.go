// Package config provides configuration management functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aristath/capm/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is wrapped by every configuration validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

const dateLayout = "2006-01-02"

// Config holds application configuration
type Config struct {
	Settings             domain.RunSettings
	DataDir              string // Base directory for databases (always absolute)
	MarketDBPath         string
	PortfolioDBPath      string
	OutputFileFolderPath string
	ReportEncoding       string // "utf-8" or "gbk"
	LogLevel             string
	LogFile              string
	Schedule             string // Cron expression for serve mode, empty disables
	S3Bucket             string
	S3Prefix             string
	S3Region             string
	PersistRetryDelay    time.Duration
	Port                 int
	LogMaxSizeMB         int
	LogRetentionDays     int
	Concurrency          int
	LogPretty            bool
}

// Load reads configuration from .env, an optional config file and
// CAPM_* environment variables, in increasing precedence.
// configFile may be empty, in which case capm.yaml is looked up in the
// working directory and ./config.
func Load(configFile string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CAPM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("capm")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	cfg.DataDir = absDataDir

	if cfg.MarketDBPath == "" {
		cfg.MarketDBPath = filepath.Join(absDataDir, "market.db")
	}
	if cfg.PortfolioDBPath == "" {
		cfg.PortfolioDBPath = filepath.Join(absDataDir, "portfolio.db")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./data")
	v.SetDefault("market_db_path", "")
	v.SetDefault("portfolio_db_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size_mb", 10)
	v.SetDefault("log_retention_days", 30)
	v.SetDefault("port", 8002)
	v.SetDefault("schedule", "")
	v.SetDefault("report_encoding", "utf-8")
	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_prefix", "reports")
	v.SetDefault("s3_region", "")
	v.SetDefault("persist_retry_delay", "20s")
	v.SetDefault("concurrency", 1)

	v.SetDefault("industry_level", "")
	v.SetDefault("market_type", 0)
	v.SetDefault("start_date", "")
	v.SetDefault("end_date", "")
	v.SetDefault("average_algorithm", "")
	v.SetDefault("portfolio_algo", "")
	v.SetDefault("board_type", "")
	v.SetDefault("risk_type", "")
	v.SetDefault("market_return_rates_source", "")
	v.SetDefault("portfolio_num_of_stocks", 0)
	v.SetDefault("num_of_top_n_companies_in_same_industry", 0)
	v.SetDefault("is_filter_by_board", false)
	v.SetDefault("is_filter_by_specified_symbol", false)
	v.SetDefault("interested_symbols", "")
	v.SetDefault("output_file_folder_path", "")
}

// fromViper parses raw values; enumerated options that fail to parse are
// configuration errors
func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DataDir:              v.GetString("data_dir"),
		MarketDBPath:         v.GetString("market_db_path"),
		PortfolioDBPath:      v.GetString("portfolio_db_path"),
		OutputFileFolderPath: strings.TrimSpace(v.GetString("output_file_folder_path")),
		ReportEncoding:       strings.ToLower(strings.TrimSpace(v.GetString("report_encoding"))),
		LogLevel:             v.GetString("log_level"),
		LogPretty:            v.GetBool("log_pretty"),
		LogFile:              v.GetString("log_file"),
		LogMaxSizeMB:         v.GetInt("log_max_size_mb"),
		LogRetentionDays:     v.GetInt("log_retention_days"),
		Port:                 v.GetInt("port"),
		Schedule:             strings.TrimSpace(v.GetString("schedule")),
		S3Bucket:             v.GetString("s3_bucket"),
		S3Prefix:             v.GetString("s3_prefix"),
		S3Region:             v.GetString("s3_region"),
		PersistRetryDelay:    v.GetDuration("persist_retry_delay"),
		Concurrency:          v.GetInt("concurrency"),
	}

	settings, err := parseSettings(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.Settings = settings

	return cfg, nil
}

func parseSettings(v *viper.Viper) (domain.RunSettings, error) {
	var s domain.RunSettings
	var err error

	if s.IndustryLevel, err = domain.ParseIndustryLevel(v.GetString("industry_level")); err != nil {
		return s, err
	}
	if s.MarketType, err = domain.ParseCompositeMarketType(v.GetInt("market_type")); err != nil {
		return s, err
	}
	if s.AverageAlgorithm, err = domain.ParseAverageAlgorithm(v.GetString("average_algorithm")); err != nil {
		return s, err
	}
	if s.PortfolioAlgo, err = domain.ParsePortfolioAlgo(v.GetString("portfolio_algo")); err != nil {
		return s, err
	}
	// Board type is required even when board filtering is off
	if s.BoardType, err = domain.ParseBoardType(v.GetString("board_type")); err != nil {
		return s, err
	}
	if s.RiskType, err = domain.ParseRiskType(v.GetString("risk_type")); err != nil {
		return s, err
	}
	if s.ReturnSource, err = domain.ParseReturnSource(v.GetString("market_return_rates_source")); err != nil {
		return s, err
	}

	start, err := parseDate("start_date", v.GetString("start_date"))
	if err != nil {
		return s, err
	}
	// An empty end date leaves the window open; each run ends it on its own day
	var end time.Time
	if raw := strings.TrimSpace(v.GetString("end_date")); raw != "" {
		if end, err = parseDate("end_date", raw); err != nil {
			return s, err
		}
	}
	s.Window = domain.DateWindow{Start: start, End: end}

	s.PortfolioSize = v.GetInt("portfolio_num_of_stocks")
	s.TopN = v.GetInt("num_of_top_n_companies_in_same_industry")
	s.FilterByBoard = v.GetBool("is_filter_by_board")
	s.FilterBySymbol = v.GetBool("is_filter_by_specified_symbol")
	s.InterestedSymbols = splitSymbols(v.GetString("interested_symbols"))

	return s, nil
}

func parseDate(key, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s is required", key)
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s %q: %w", key, raw, err)
	}
	return t, nil
}

func splitSymbols(raw string) []string {
	var symbols []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	s := c.Settings

	if s.TopN <= 0 {
		return fmt.Errorf("%w: num_of_top_n_companies_in_same_industry must be positive, got %d", ErrInvalidConfig, s.TopN)
	}
	if s.PortfolioSize < 0 {
		return fmt.Errorf("%w: portfolio_num_of_stocks must not be negative", ErrInvalidConfig)
	}
	if s.FilterBySymbol && !s.FilterByBoard && len(s.InterestedSymbols) == 0 {
		return fmt.Errorf("%w: interested_symbols is empty while symbol filtering is enabled", ErrInvalidConfig)
	}
	if c.OutputFileFolderPath == "" {
		return fmt.Errorf("%w: output_file_folder_path must be present", ErrInvalidConfig)
	}
	switch c.ReportEncoding {
	case "utf-8", "gbk":
	default:
		return fmt.Errorf("%w: report_encoding %q: %w", ErrInvalidConfig, c.ReportEncoding, domain.ErrUnrecognized)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1", ErrInvalidConfig)
	}
	if c.PersistRetryDelay < 0 {
		return fmt.Errorf("%w: persist_retry_delay must not be negative", ErrInvalidConfig)
	}

	return nil
}
