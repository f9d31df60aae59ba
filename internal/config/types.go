package config

// Config is the root configuration for modseek.
type Config struct {
	Catalog  CatalogConfig  `yaml:"catalog,omitempty"`
	Search   SearchConfig   `yaml:"search,omitempty"`
	Session  SessionConfig  `yaml:"session,omitempty"`
	Cleanup  CleanupConfig  `yaml:"cleanup,omitempty"`
	Channels ChannelsConfig `yaml:"channels,omitempty"`
	Gateway  GatewayConfig  `yaml:"gateway,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Messages MessagesConfig `yaml:"messages,omitempty"`
}

// CatalogConfig points at the content catalog.
type CatalogConfig struct {
	BaseURL        string `yaml:"baseUrl,omitempty"`    // site, for detail links
	APIBaseURL     string `yaml:"apiBaseUrl,omitempty"` // REST API root
	UserAgent      string `yaml:"userAgent,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
}

// SearchConfig controls the search command and result presentation.
type SearchConfig struct {
	CommandPrefix   string            `yaml:"commandPrefix,omitempty"` // e.g. "!mr"
	Categories      map[string]string `yaml:"categories,omitempty"`    // alias → canonical path segment
	DisplayNames    map[string]string `yaml:"displayNames,omitempty"`  // canonical → shown name
	Limits          map[string]int    `yaml:"limits,omitempty"`        // canonical → results per page
	VersionPageSize int               `yaml:"versionPageSize,omitempty"`
}

// SessionConfig defines conversational session behavior.
type SessionConfig struct {
	TimeoutMinutes int `yaml:"timeoutMinutes,omitempty"`
}

// CleanupConfig governs message recall and temp-file deletion.
type CleanupConfig struct {
	RecallGraceSeconds   int    `yaml:"recallGraceSeconds,omitempty"`   // recall window without elevated privilege
	TempFileDelaySeconds int    `yaml:"tempFileDelaySeconds,omitempty"` // delay before deleting a delivered download
	TempDir              string `yaml:"tempDir,omitempty"`
}

// ChannelsConfig defines channel-specific configurations.
type ChannelsConfig struct {
	IRC *IRCConfig `yaml:"irc,omitempty"`
}

// IRCConfig defines IRC channel settings.
type IRCConfig struct {
	Server   string   `yaml:"server"`
	Port     int      `yaml:"port,omitempty"`
	Nick     string   `yaml:"nick"`
	Password string   `yaml:"password,omitempty"`
	Channels []string `yaml:"channels"`
	UseTLS   bool     `yaml:"useTLS,omitempty"`
	SASL     bool     `yaml:"sasl,omitempty"`
}

// GatewayConfig controls the status HTTP/WebSocket server.
type GatewayConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Port    int    `yaml:"port,omitempty"`
	Bind    string `yaml:"bind,omitempty"`
	Token   string `yaml:"token,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	Style string `yaml:"style,omitempty"` // "pretty" | "json"
}

// MessagesConfig holds the user-facing reply strings.
type MessagesConfig struct {
	InvalidCategory string `yaml:"invalidCategory,omitempty"`
	EmptyQuery      string `yaml:"emptyQuery,omitempty"`
	SearchFailed    string `yaml:"searchFailed,omitempty"`
	Loading         string `yaml:"loading,omitempty"`
	PageLoading     string `yaml:"pageLoading,omitempty"` // "{page}" placeholder
	SessionExpired  string `yaml:"sessionExpired,omitempty"`
	InvalidPage     string `yaml:"invalidPage,omitempty"`
	NoReplyContext  string `yaml:"noReplyContext,omitempty"`
	WrongContext    string `yaml:"wrongContext,omitempty"`
}
