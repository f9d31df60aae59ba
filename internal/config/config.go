package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Catalog: CatalogConfig{
			BaseURL:        "https://modrinth.com",
			APIBaseURL:     "https://api.modrinth.com/v2",
			UserAgent:      "modseek/1.0",
			TimeoutSeconds: 30,
		},
		Search: SearchConfig{
			CommandPrefix:   "!mr",
			Categories:      defaultCategories(),
			DisplayNames:    defaultDisplayNames(),
			Limits:          defaultLimits(),
			VersionPageSize: 20,
		},
		Session: SessionConfig{
			TimeoutMinutes: 5,
		},
		Cleanup: CleanupConfig{
			RecallGraceSeconds:   120,
			TempFileDelaySeconds: 60,
		},
		Gateway: GatewayConfig{
			Port: 18790,
			Bind: "127.0.0.1",
		},
		Logging: LoggingConfig{
			Level: "info",
			Style: "pretty",
		},
		Messages: defaultMessages(),
	}
}

// defaultCategories maps every accepted alias to its canonical path segment.
func defaultCategories() map[string]string {
	return map[string]string{
		"mods":          "mods",
		"mod":           "mods",
		"resourcepacks": "resourcepacks",
		"resourcepack":  "resourcepacks",
		"datapacks":     "datapacks",
		"datapack":      "datapacks",
		"shaders":       "shaders",
		"shader":        "shaders",
		"modpacks":      "modpacks",
		"modpack":       "modpacks",
		"plugins":       "plugins",
		"plugin":        "plugins",
	}
}

func defaultDisplayNames() map[string]string {
	return map[string]string{
		"mods":          "Mods",
		"resourcepacks": "Resource Packs",
		"datapacks":     "Data Packs",
		"shaders":       "Shaders",
		"modpacks":      "Modpacks",
		"plugins":       "Plugins",
	}
}

// defaultLimits sets per-category results per page. Categories with denser
// result cards fit one more per capture.
func defaultLimits() map[string]int {
	return map[string]int{
		"mods":          5,
		"shaders":       6,
		"resourcepacks": 6,
		"datapacks":     5,
		"modpacks":      5,
		"plugins":       5,
	}
}

func defaultMessages() MessagesConfig {
	return MessagesConfig{
		InvalidCategory: "Invalid category. Supported: mods, resourcepacks, datapacks, shaders, modpacks, plugins.",
		EmptyQuery:      "Missing search text. Usage: <prefix> <category> <query>",
		SearchFailed:    "Search failed, please try again later",
		Loading:         "Searching the catalog...",
		PageLoading:     "Loading page {page}...",
		SessionExpired:  "Search session expired, please start a new search",
		InvalidPage:     "Invalid page number",
		NoReplyContext:  "Reply to one of my result messages to use that command",
		WrongContext:    "That message is not part of your current search",
	}
}
