package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so passwords and tokens can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Gateway.Token = expandEnvVars(cfg.Gateway.Token)
	if cfg.Channels.IRC != nil {
		cfg.Channels.IRC.Password = expandEnvVars(cfg.Channels.IRC.Password)
	}
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// applyDefaults fills zero-value fields with the defaults. Maps from the
// config file replace the defaults wholesale rather than merging, so a
// deployment can restrict the category set.
func applyDefaults(cfg *Config) {
	def := Defaults()

	if cfg.Catalog.BaseURL == "" {
		cfg.Catalog.BaseURL = def.Catalog.BaseURL
	}
	if cfg.Catalog.APIBaseURL == "" {
		cfg.Catalog.APIBaseURL = def.Catalog.APIBaseURL
	}
	if cfg.Catalog.UserAgent == "" {
		cfg.Catalog.UserAgent = def.Catalog.UserAgent
	}
	if cfg.Catalog.TimeoutSeconds == 0 {
		cfg.Catalog.TimeoutSeconds = def.Catalog.TimeoutSeconds
	}
	if cfg.Search.CommandPrefix == "" {
		cfg.Search.CommandPrefix = def.Search.CommandPrefix
	}
	if len(cfg.Search.Categories) == 0 {
		cfg.Search.Categories = def.Search.Categories
	}
	if len(cfg.Search.DisplayNames) == 0 {
		cfg.Search.DisplayNames = def.Search.DisplayNames
	}
	if len(cfg.Search.Limits) == 0 {
		cfg.Search.Limits = def.Search.Limits
	}
	if cfg.Search.VersionPageSize == 0 {
		cfg.Search.VersionPageSize = def.Search.VersionPageSize
	}
	if cfg.Session.TimeoutMinutes == 0 {
		cfg.Session.TimeoutMinutes = def.Session.TimeoutMinutes
	}
	if cfg.Cleanup.RecallGraceSeconds == 0 {
		cfg.Cleanup.RecallGraceSeconds = def.Cleanup.RecallGraceSeconds
	}
	if cfg.Cleanup.TempFileDelaySeconds == 0 {
		cfg.Cleanup.TempFileDelaySeconds = def.Cleanup.TempFileDelaySeconds
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = def.Gateway.Port
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = def.Gateway.Bind
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Style == "" {
		cfg.Logging.Style = def.Logging.Style
	}
	applyMessageDefaults(&cfg.Messages, def.Messages)
}

func applyMessageDefaults(m *MessagesConfig, def MessagesConfig) {
	if m.InvalidCategory == "" {
		m.InvalidCategory = def.InvalidCategory
	}
	if m.EmptyQuery == "" {
		m.EmptyQuery = def.EmptyQuery
	}
	if m.SearchFailed == "" {
		m.SearchFailed = def.SearchFailed
	}
	if m.Loading == "" {
		m.Loading = def.Loading
	}
	if m.PageLoading == "" {
		m.PageLoading = def.PageLoading
	}
	if m.SessionExpired == "" {
		m.SessionExpired = def.SessionExpired
	}
	if m.InvalidPage == "" {
		m.InvalidPage = def.InvalidPage
	}
	if m.NoReplyContext == "" {
		m.NoReplyContext = def.NoReplyContext
	}
	if m.WrongContext == "" {
		m.WrongContext = def.WrongContext
	}
}

// applyEnvOverrides reads MODSEEK_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MODSEEK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("MODSEEK_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("MODSEEK_GATEWAY_TOKEN"); v != "" {
		cfg.Gateway.Token = v
	}
	if v := os.Getenv("MODSEEK_CATALOG_API"); v != "" {
		cfg.Catalog.APIBaseURL = v
	}
}
