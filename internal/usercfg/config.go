package usercfg

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"tablero/internal/errors"
)

// ErrNotConfigured is returned when no config file exists. Defaults are
// still usable against a local API.
var ErrNotConfigured = fmt.Errorf("tablero is not configured; run: tablero config set api_url <url>")

// IsConfigured returns true if a config file exists or the API URL is set
// in the environment.
func IsConfigured() bool {
	if os.Getenv("TABLERO_API_URL") != "" {
		return true
	}
	for _, p := range []string{Path(), LegacyPath()} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

type Config struct {
	SchemaVersion      int           `toml:"schema_version,omitempty"`
	APIURL             string        `toml:"api_url"`
	WebURL             string        `toml:"web_url,omitempty"`
	HTTPTimeoutSeconds int           `toml:"http_timeout_seconds,omitempty"`
	HTTPRetries        *int          `toml:"http_retries,omitempty"`
	HighlightSeconds   int           `toml:"highlight_seconds,omitempty"`
	DefaultBoard       string        `toml:"default_board,omitempty"`
	UIPrefs            UIPreferences `toml:"ui_prefs,omitempty"`

	// BaseURL is the schema 1 name of APIURL.
	BaseURL string `toml:"base_url,omitempty"`
}

type UIPreferences struct {
	LastBoard    string            `toml:"last_board,omitempty"`
	LastGroups   map[string]string `toml:"last_groups,omitempty"`
	RecentBoards []string          `toml:"recent_boards,omitempty"`
	ShowSidebar  *bool             `toml:"show_sidebar,omitempty"`
}

const (
	CurrentSchemaVersion = 2
	maxRecentBoards      = 10
)

// Dir is the tablero config directory, also used for caches and logs.
func Dir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "tablero")
}

func Path() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.toml")
}

func LegacyPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "tablero.toml")
}

func Load() (Config, error) {
	configPath := Path()
	legacyPath := LegacyPath()

	if configPath == "" || legacyPath == "" {
		return getDefaults(), errors.NewConfigError("load", fmt.Errorf("unable to determine home directory"))
	}

	var actualPath string
	var warnLegacy bool

	if _, err := os.Stat(configPath); err == nil {
		actualPath = configPath
	} else if _, err := os.Stat(legacyPath); err == nil {
		actualPath = legacyPath
		warnLegacy = true
	} else {
		return getDefaults(), ErrNotConfigured
	}

	var config Config
	if _, err := toml.DecodeFile(actualPath, &config); err != nil {
		return getDefaults(), errors.NewConfigError("load", fmt.Errorf("failed to decode config file: %v", err))
	}

	if warnLegacy {
		fmt.Fprintf(os.Stderr, "Warning: Using legacy config path %s. Consider moving to %s\n", legacyPath, configPath)
	}

	return mergeWithDefaults(migrateConfig(config)), nil
}

func Save(config Config) error {
	configPath := Path()
	if configPath == "" {
		return errors.NewConfigError("save", fmt.Errorf("unable to determine home directory"))
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return errors.NewConfigError("save", fmt.Errorf("failed to create config directory: %v", err))
	}

	file, err := os.Create(configPath)
	if err != nil {
		return errors.NewConfigError("save", fmt.Errorf("failed to create config file: %v", err))
	}
	defer file.Close()

	if config.SchemaVersion == 0 {
		config.SchemaVersion = CurrentSchemaVersion
	}
	if err := toml.NewEncoder(file).Encode(config); err != nil {
		return errors.NewConfigError("save", fmt.Errorf("failed to encode config: %v", err))
	}
	return nil
}

func GetRuntimeConfig() Config {
	config, err := Load()
	if err != nil && err != ErrNotConfigured {
		fmt.Fprintf(os.Stderr, "Warning: %v, using defaults\n", err)
		config = getDefaults()
	}
	return applyEnvOverlays(config)
}

func mergeWithDefaults(config Config) Config {
	defaults := getDefaults()
	config.SchemaVersion = CurrentSchemaVersion

	if config.APIURL == "" {
		config.APIURL = defaults.APIURL
	}
	config.APIURL = strings.TrimRight(config.APIURL, "/")
	if config.HTTPTimeoutSeconds <= 0 {
		config.HTTPTimeoutSeconds = defaults.HTTPTimeoutSeconds
	}
	if config.HTTPRetries == nil {
		config.HTTPRetries = defaults.HTTPRetries
	}
	if config.HighlightSeconds <= 0 {
		config.HighlightSeconds = defaults.HighlightSeconds
	}
	return config
}

func (c Config) HTTPTimeout() time.Duration {
	if c.HTTPTimeoutSeconds <= 0 {
		return DefaultHTTPTimeoutSeconds * time.Second
	}
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func (c Config) Retries() int {
	if c.HTTPRetries == nil || *c.HTTPRetries < 0 {
		return DefaultHTTPRetries
	}
	return *c.HTTPRetries
}

// Highlight is how long a deep-linked item stays highlighted.
func (c Config) Highlight() time.Duration {
	if c.HighlightSeconds <= 0 {
		return DefaultHighlightSeconds * time.Second
	}
	return time.Duration(c.HighlightSeconds) * time.Second
}

// BoardWebURL is the browser link for a board, or "" without a web_url.
func (c Config) BoardWebURL(boardID string) string {
	if c.WebURL == "" {
		return ""
	}
	return strings.TrimRight(c.WebURL, "/") + "/boards/" + url.PathEscape(boardID)
}

// Validate lists problems with the config, for `config doctor`.
func (c Config) Validate() []string {
	var problems []string
	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("api_url %q is not an absolute URL", c.APIURL))
	}
	if c.WebURL != "" {
		if u, err := url.Parse(c.WebURL); err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("web_url %q is not an absolute URL", c.WebURL))
		}
	}
	if c.HTTPTimeoutSeconds > 300 {
		problems = append(problems, fmt.Sprintf("http_timeout_seconds %d is unusually large", c.HTTPTimeoutSeconds))
	}
	if c.HTTPRetries != nil && (*c.HTTPRetries < 0 || *c.HTTPRetries > 10) {
		problems = append(problems, fmt.Sprintf("http_retries %d should be between 0 and 10", *c.HTTPRetries))
	}
	return problems
}

// Keys lists the settable keys in stable order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var setters = map[string]func(*Config, string) error{
	"api_url": func(c *Config, v string) error {
		c.APIURL = strings.TrimRight(v, "/")
		return nil
	},
	"web_url":       func(c *Config, v string) error { c.WebURL = v; return nil },
	"default_board": func(c *Config, v string) error { c.DefaultBoard = v; return nil },
	"http_timeout_seconds": func(c *Config, v string) error {
		n, err := positiveInt("http_timeout_seconds", v)
		if err != nil {
			return err
		}
		c.HTTPTimeoutSeconds = n
		return nil
	},
	"http_retries": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return errors.NewValidationError("http_retries", "must be a non-negative integer")
		}
		c.HTTPRetries = &n
		return nil
	},
	"highlight_seconds": func(c *Config, v string) error {
		n, err := positiveInt("highlight_seconds", v)
		if err != nil {
			return err
		}
		c.HighlightSeconds = n
		return nil
	},
}

// Set assigns a config key from its string form.
func (c *Config) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return errors.NewValidationError("key", fmt.Sprintf("%q is unknown (valid: %s)", key, strings.Join(Keys(), ", ")))
	}
	return set(c, strings.TrimSpace(value))
}

// Get returns a config key in its string form.
func (c Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "web_url":
		return c.WebURL, nil
	case "default_board":
		return c.DefaultBoard, nil
	case "http_timeout_seconds":
		return strconv.Itoa(c.HTTPTimeoutSeconds), nil
	case "http_retries":
		return strconv.Itoa(c.Retries()), nil
	case "highlight_seconds":
		return strconv.Itoa(c.HighlightSeconds), nil
	}
	return "", errors.NewValidationError("key", fmt.Sprintf("%q is unknown (valid: %s)", key, strings.Join(Keys(), ", ")))
}

func positiveInt(field, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errors.NewValidationError(field, "must be a positive integer")
	}
	return n, nil
}

func applyEnvOverlays(config Config) Config {
	if v := os.Getenv("TABLERO_API_URL"); v != "" {
		config.APIURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("TABLERO_WEB_URL"); v != "" {
		config.WebURL = v
	}
	if v := os.Getenv("TABLERO_HTTP_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.HTTPTimeoutSeconds = n
		} else {
			fmt.Fprintf(os.Stderr, "Warning: ignoring TABLERO_HTTP_TIMEOUT=%q (want seconds)\n", v)
		}
	}
	return config
}

// migrateConfig upgrades older schema versions in memory.
func migrateConfig(config Config) Config {
	original := config.SchemaVersion

	// 0 -> 1: schema_version was introduced; nothing else changed.
	if config.SchemaVersion == 0 {
		config.SchemaVersion = 1
	}

	// 1 -> 2: base_url was renamed to api_url.
	if config.SchemaVersion == 1 {
		if config.APIURL == "" && config.BaseURL != "" {
			config.APIURL = config.BaseURL
		}
		config.BaseURL = ""
		config.SchemaVersion = 2
	}

	if original != config.SchemaVersion && (config.APIURL != "" || config.WebURL != "") {
		fmt.Fprintf(os.Stderr, "Info: Migrated config from schema version %d to %d\n", original, config.SchemaVersion)
	}
	return config
}

// MigrateAndSave rewrites the config file at the current schema version.
// Used by `tablero config migrate`.
func MigrateAndSave() error {
	configPath := Path()
	legacyPath := LegacyPath()

	if configPath == "" || legacyPath == "" {
		return fmt.Errorf("unable to determine home directory")
	}

	var actualPath string
	if _, err := os.Stat(configPath); err == nil {
		actualPath = configPath
	} else if _, err := os.Stat(legacyPath); err == nil {
		actualPath = legacyPath
	} else {
		return fmt.Errorf("no config file found to migrate")
	}

	var rawConfig Config
	if _, err := toml.DecodeFile(actualPath, &rawConfig); err != nil {
		return fmt.Errorf("failed to decode config file: %v", err)
	}

	originalVersion := rawConfig.SchemaVersion
	if originalVersion == CurrentSchemaVersion {
		return fmt.Errorf("config is already at current schema version %d", CurrentSchemaVersion)
	}

	config, err := Load()
	if err != nil {
		return fmt.Errorf("failed to load config for migration: %v", err)
	}
	if err := Save(config); err != nil {
		return fmt.Errorf("failed to save migrated config: %v", err)
	}

	fmt.Printf("Successfully migrated config from schema version %d to %d\n", originalVersion, config.SchemaVersion)
	return nil
}

// SaveUIPrefs saves only the UI preferences, keeping the rest of the file.
func SaveUIPrefs(prefs UIPreferences) error {
	config, err := Load()
	if err != nil {
		config = Config{SchemaVersion: CurrentSchemaVersion}
	}
	config.UIPrefs = prefs
	return Save(config)
}

func GetUIPrefs() UIPreferences {
	if os.Getenv("TABLERO_IGNORE_UI_PREFS") == "1" {
		return UIPreferences{}
	}
	return GetRuntimeConfig().UIPrefs
}

// RememberBoard records a visit: the board becomes the last and most recent
// one, and groupID (when set) the last group opened on it.
func (p *UIPreferences) RememberBoard(boardID, groupID string) {
	if boardID == "" {
		return
	}
	p.LastBoard = boardID
	if groupID != "" {
		if p.LastGroups == nil {
			p.LastGroups = make(map[string]string)
		}
		p.LastGroups[boardID] = groupID
	}

	recent := []string{boardID}
	for _, id := range p.RecentBoards {
		if id != boardID && len(recent) < maxRecentBoards {
			recent = append(recent, id)
		}
	}
	p.RecentBoards = recent
}

// LastGroup is the group last opened on boardID, or "".
func (p UIPreferences) LastGroup(boardID string) string {
	return p.LastGroups[boardID]
}

func (p UIPreferences) SidebarVisible() bool {
	return p.ShowSidebar == nil || *p.ShowSidebar
}
