package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const (
	// EnvPrefix is the prefix for environment variable overrides (PROKIT_API_BASE, ...).
	EnvPrefix = "PROKIT"

	// DefaultAPIBase hosts the session endpoints.
	DefaultAPIBase = "https://us-central1-poiyomi-pro-site.cloudfunctions.net"
	// DefaultWebBase hosts the browser verification page.
	DefaultWebBase = "https://pro.poiyomi.com"
	// DefaultVersion is the package version tag requested when none is given.
	DefaultVersion = "latest"
	// DefaultAssetsPrefix is the logical root every grouped package entry must live under.
	DefaultAssetsPrefix = "Assets/"

	DefaultPollInterval    = 2 * time.Second
	DefaultPollAttempts    = 150
	DefaultTransferTimeout = 300 * time.Second
)

// DefaultPackageNames are the package directory names searched when resolving the install target.
var DefaultPackageNames = []string{"com.poiyomi.pro", "com.poiyomi.pro.installer"}

// Config is the resolved runtime configuration.
type Config struct {
	APIBase       string         `mapstructure:"api_base"`
	WebBase       string         `mapstructure:"web_base"`
	Version       string         `mapstructure:"version"`
	ProjectDir    string         `mapstructure:"project_dir"`
	PackageNames  []string       `mapstructure:"package_names"`
	AssetsPrefix  string         `mapstructure:"assets_prefix"`
	DownloadDir   string         `mapstructure:"download_dir"`
	ImportCommand []string       `mapstructure:"import_command"`
	Poll          PollConfig     `mapstructure:"poll"`
	Transfer      TransferConfig `mapstructure:"transfer"`
	Log           LogConfig      `mapstructure:"log"`
}

// PollConfig controls the session polling loop.
type PollConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// TransferConfig controls the package download.
type TransferConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LogConfig controls logrus output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static; failure here is a programming error.
		panic(fmt.Sprintf("unmarshal default config: %v", err))
	}
	return &cfg
}

// Load reads configuration from configFile (or the default search paths
// when empty), a .env file in the working directory, and PROKIT_* environment variables.
func Load(configFile string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setupViper(v, configFile)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// No config file; defaults and environment only
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadEnvFile loads .env if present. A missing file is not an error.
func loadEnvFile() {
	if err := gotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}
}

func setupViper(v *viper.Viper, configFile string) {
	v.SetConfigName("prokit")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "prokit"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_base", DefaultAPIBase)
	v.SetDefault("web_base", DefaultWebBase)
	v.SetDefault("version", DefaultVersion)
	v.SetDefault("project_dir", ".")
	v.SetDefault("package_names", DefaultPackageNames)
	v.SetDefault("assets_prefix", DefaultAssetsPrefix)
	v.SetDefault("download_dir", filepath.Join(os.TempDir(), "prokit"))
	v.SetDefault("import_command", []string{})
	v.SetDefault("poll.interval", DefaultPollInterval)
	v.SetDefault("poll.max_attempts", DefaultPollAttempts)
	v.SetDefault("transfer.timeout", DefaultTransferTimeout)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func (c *Config) normalize() {
	c.APIBase = strings.TrimRight(strings.TrimSpace(c.APIBase), "/")
	c.WebBase = strings.TrimRight(strings.TrimSpace(c.WebBase), "/")
	c.Version = strings.TrimSpace(c.Version)
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.AssetsPrefix != "" && !strings.HasSuffix(c.AssetsPrefix, "/") {
		c.AssetsPrefix += "/"
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{"api_base": c.APIBase, "web_base": c.WebBase} {
		if raw == "" {
			return fmt.Errorf("%s is required", name)
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL: %q", name, raw)
		}
	}

	if c.ProjectDir == "" {
		return fmt.Errorf("project_dir is required")
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("download_dir is required")
	}
	if len(c.PackageNames) == 0 {
		return fmt.Errorf("package_names must list at least one package")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval)
	}
	if c.Poll.MaxAttempts <= 0 {
		return fmt.Errorf("poll.max_attempts must be positive, got %d", c.Poll.MaxAttempts)
	}
	if c.Transfer.Timeout <= 0 {
		return fmt.Errorf("transfer.timeout must be positive, got %s", c.Transfer.Timeout)
	}

	return nil
}
