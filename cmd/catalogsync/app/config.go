package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/agentstation/catalogsync/pkg/constants"
)

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "CATALOGSYNC"

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Store connection
	APIURL       string
	AuthURL      string
	ProjectKey   string
	Token        string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration

	// Import behavior
	BatchSize               int
	ErrorDir                string
	ErrorLimit              int
	ErrorFileLimit          int
	Blacklist               []string
	FilterActions           []string
	EnsureEnums             bool
	FilterUnknownAttributes bool
	IgnoreSlugUpdates       bool
	FailOnDuplicateAttr     bool
	LogOnDuplicateAttr      bool
	PublishingStrategy      string
	PreventRemoveActions    bool
	Language                string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. CATALOGSYNC_* environment variables
// 3. .env files
// 4. Config file (~/.catalogsync.yaml)
// 5. Defaults
//
// flags may be nil before the command line is parsed. Flags are bound by
// name, so a flag only overrides the other sources when it was set.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	// .env files must be loaded before viper reads the environment
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	configFile := v.GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".catalogsync")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing default config is fine; a named one must exist.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || configFile != "" {
			return nil, err
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no-color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		APIURL:       v.GetString("api-url"),
		AuthURL:      v.GetString("auth-url"),
		ProjectKey:   v.GetString("project-key"),
		Token:        v.GetString("token"),
		ClientID:     v.GetString("client-id"),
		ClientSecret: v.GetString("client-secret"),
		Timeout:      v.GetDuration("timeout"),

		BatchSize:               v.GetInt("batch-size"),
		ErrorDir:                v.GetString("error-dir"),
		ErrorLimit:              v.GetInt("error-limit"),
		ErrorFileLimit:          v.GetInt("error-file-limit"),
		Blacklist:               splitList(v.GetStringSlice("blacklist")),
		FilterActions:           splitList(v.GetStringSlice("filter-actions")),
		EnsureEnums:             v.GetBool("ensure-enums"),
		FilterUnknownAttributes: v.GetBool("filter-unknown-attributes"),
		IgnoreSlugUpdates:       v.GetBool("ignore-slug-updates"),
		FailOnDuplicateAttr:     v.GetBool("fail-on-duplicate-attr"),
		LogOnDuplicateAttr:      v.GetBool("log-on-duplicate-attr"),
		PublishingStrategy:      v.GetString("publishing-strategy"),
		PreventRemoveActions:    v.GetBool("prevent-remove-actions"),
		Language:                v.GetString("language"),

		LogLevel:  v.GetString("log-level"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	if config.LogLevel == "" {
		config.LogLevel = os.Getenv("LOG_LEVEL")
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api-url", "https://api.europe-west1.gcp.commercetools.com")
	v.SetDefault("auth-url", "https://auth.europe-west1.gcp.commercetools.com")
	v.SetDefault("timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("batch-size", constants.DefaultBatchSize)
	v.SetDefault("error-dir", constants.DefaultErrorDir)
	v.SetDefault("error-limit", constants.DefaultErrorLimit)
	v.SetDefault("error-file-limit", 0)
	v.SetDefault("language", constants.DefaultLanguage)
	v.SetDefault("log-on-duplicate-attr", true)
}

// splitList flattens comma separated entries, so lists can be given as
// "a,b" in the environment or as a YAML sequence.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
