package config

import "fmt"

// Issue is a single validation problem with a config path and message.
type Issue struct {
	Path    string
	Message string
}

// Validate checks the config for problems that would break the bot at
// runtime. It returns all issues found rather than stopping at the first.
func Validate(cfg *Config) []Issue {
	var issues []Issue

	if cfg.Catalog.APIBaseURL == "" {
		issues = append(issues, Issue{Path: "catalog.apiBaseUrl", Message: "catalog API base URL is required"})
	}
	if cfg.Catalog.TimeoutSeconds < 0 {
		issues = append(issues, Issue{Path: "catalog.timeoutSeconds", Message: "timeout must not be negative"})
	}
	if cfg.Session.TimeoutMinutes <= 0 {
		issues = append(issues, Issue{Path: "session.timeoutMinutes", Message: "session timeout must be positive"})
	}
	if cfg.Search.VersionPageSize <= 0 {
		issues = append(issues, Issue{Path: "search.versionPageSize", Message: "version page size must be positive"})
	}
	for canonical, limit := range cfg.Search.Limits {
		if limit <= 0 {
			issues = append(issues, Issue{
				Path:    "search.limits." + canonical,
				Message: fmt.Sprintf("limit must be positive, got %d", limit),
			})
		}
	}
	for alias, canonical := range cfg.Search.Categories {
		if canonical == "" {
			issues = append(issues, Issue{
				Path:    "search.categories." + alias,
				Message: "alias maps to empty category",
			})
		}
	}

	if cfg.Gateway.Enabled {
		if cfg.Gateway.Port < 1 || cfg.Gateway.Port > 65535 {
			issues = append(issues, Issue{Path: "gateway.port", Message: fmt.Sprintf("invalid port %d", cfg.Gateway.Port)})
		}
		if cfg.Gateway.Token == "" {
			issues = append(issues, Issue{Path: "gateway.token", Message: "gateway requires a token when enabled"})
		}
	}

	if irc := cfg.Channels.IRC; irc != nil {
		if irc.Server == "" {
			issues = append(issues, Issue{Path: "channels.irc.server", Message: "IRC server is required"})
		}
		if irc.Nick == "" {
			issues = append(issues, Issue{Path: "channels.irc.nick", Message: "IRC nick is required"})
		}
		if len(irc.Channels) == 0 {
			issues = append(issues, Issue{Path: "channels.irc.channels", Message: "at least one IRC channel is required"})
		}
		if irc.Port < 0 || irc.Port > 65535 {
			issues = append(issues, Issue{Path: "channels.irc.port", Message: fmt.Sprintf("invalid port %d", irc.Port)})
		}
	}

	return issues
}
