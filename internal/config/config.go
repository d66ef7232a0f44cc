package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// DefaultAPIBaseURL is the public Pokémon TCG API.
const DefaultAPIBaseURL = "https://api.pokemontcg.io/v2"

// APIKeyEnv overrides Config.APIKey when set.
const APIKeyEnv = "BINDER_API_KEY"

// Config holds application configuration.
type Config struct {
	// APIBaseURL is the card service root (no trailing slash needed)
	APIBaseURL string `json:"api_base_url"`

	// APIKey is sent as X-Api-Key when non-empty. The service works without one
	// at a lower rate limit.
	APIKey string `json:"api_key,omitempty"`

	// RequestTimeoutSeconds bounds a single lookup round trip.
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`

	// NamePageSize caps how many candidates a name search asks for.
	NamePageSize int `json:"name_page_size"`

	// StorageKey is the key the saved collection is stored under.
	StorageKey string `json:"storage_key"`

	// SessionIdleMinutes is how long an idle web session keeps its search state.
	SessionIdleMinutes int `json:"session_idle_minutes"`

	// ExportDir is where card_export writes when no path is given, and is
	// always an allowed export directory. Empty means ~/.binder/exports.
	ExportDir string `json:"export_dir,omitempty"`

	// AllowedPaths are extra directories a collection export may be written to.
	// Relative entries are ignored.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for export.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:            DefaultAPIBaseURL,
		RequestTimeoutSeconds: 15,
		NamePageSize:          30,
		StorageKey:            "savedCards",
		SessionIdleMinutes:    60,
	}
}

// RequestTimeout returns RequestTimeoutSeconds as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// SessionIdle returns SessionIdleMinutes as a duration.
func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.binder.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

// LoadWithRepo loads configuration from both global (~/.binder) and repo (.binder) directories.
// Repo config is found by walking upward from startDir to find the nearest .binder/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	applyEnv(cfg)
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .binder/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".binder", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
// Files are parsed as JSON5, so comments and trailing commas are accepted.
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// applyEnv applies environment overrides.
func applyEnv(cfg *Config) {
	if key := strings.TrimSpace(os.Getenv(APIKeyEnv)); key != "" {
		cfg.APIKey = key
	}
}

// Merge combines base and overlay configs.
// Overlay values take precedence for non-zero scalars; booleans are OR-ed;
// arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := *base
	result.AllowedPaths = nil
	result.DisabledTools = nil

	scalars := *overlay
	scalars.AllowedPaths = nil
	scalars.DisabledTools = nil

	// Only fails on mismatched types, which cannot happen here
	_ = mergo.Merge(&result, scalars, mergo.WithOverride)

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return &result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
