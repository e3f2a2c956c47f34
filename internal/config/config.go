package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ScriptPlaceholder is replaced by the temp script file name in Gate.Args.
const ScriptPlaceholder = "{script}"

// Config holds all sentinel configuration.
type Config struct {
	// Home is the state directory (registry, processed set, history, logs).
	Home string `yaml:"home"`

	// State files, relative to Home unless absolute.
	RegistryFile  string `yaml:"registry_file"`
	ProcessedFile string `yaml:"processed_file"`
	HistoryDB     string `yaml:"history_db"`

	Watcher WatcherConfig `yaml:"watcher"`
	Remote  RemoteConfig  `yaml:"remote"`
	Gate    GateConfig    `yaml:"gate"`
	Logging LoggingConfig `yaml:"logging"`
}

// WatcherConfig configures bundle detection shared by both channels.
type WatcherConfig struct {
	SettleDelay     string `yaml:"settle_delay"`
	RegistryRefresh string `yaml:"registry_refresh"`
	BundlePrefix    string `yaml:"bundle_prefix"`
	HeaderToken     string `yaml:"header_token"`
	// Extensions lists the bundle extensions that are extracted.
	Extensions []string `yaml:"extensions"`
}

// RemoteConfig configures the remote document store poller.
type RemoteConfig struct {
	PollInterval    string   `yaml:"poll_interval"`
	PageSize        int      `yaml:"page_size"`
	CredentialsFile string   `yaml:"credentials_file"`
	TokenFile       string   `yaml:"token_file"`
	MimeTypes       []string `yaml:"mime_types"`
}

// GateConfig configures the approval/execution gate.
type GateConfig struct {
	TempScriptName string   `yaml:"temp_script_name"`
	Interpreter    string   `yaml:"interpreter"`
	Args           []string `yaml:"args"`
	// Plain disables styled rendering of the script in the approval prompt.
	Plain bool `yaml:"plain"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// DefaultHome returns ~/.sentinel, or .sentinel in the working directory
// when the user home cannot be determined.
func DefaultHome() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".sentinel")
	}
	return ".sentinel"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	interpreter, args := defaultInterpreter()
	return &Config{
		Home:          DefaultHome(),
		RegistryFile:  "projects.json",
		ProcessedFile: "processed.json",
		HistoryDB:     "history.db",

		Watcher: WatcherConfig{
			SettleDelay:     "1s",
			RegistryRefresh: "10s",
			BundlePrefix:    "SentScript-",
			HeaderToken:     "<#",
			Extensions:      []string{"txt", "docx"},
		},

		Remote: RemoteConfig{
			PollInterval:    "30s",
			PageSize:        20,
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
			MimeTypes: []string{
				"text/plain",
				"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			},
		},

		Gate: GateConfig{
			TempScriptName: "_current_patch.ps1",
			Interpreter:    interpreter,
			Args:           args,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultInterpreter() (string, []string) {
	if runtime.GOOS == "windows" {
		return "powershell.exe", []string{"-NoProfile", "-ExecutionPolicy", "Bypass", "-File", ScriptPlaceholder}
	}
	return "pwsh", []string{"-NoProfile", "-File", ScriptPlaceholder}
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if home := os.Getenv("SENTINEL_HOME"); home != "" {
		c.Home = home
	}
	if fields := strings.Fields(os.Getenv("SENTINEL_INTERPRETER")); len(fields) > 0 {
		c.Gate.Interpreter = fields[0]
		if len(fields) > 1 {
			c.Gate.Args = fields[1:]
		}
	}
	if poll := os.Getenv("SENTINEL_POLL_INTERVAL"); poll != "" {
		c.Remote.PollInterval = poll
	}
}

// Path resolves a state file name against Home.
func (c *Config) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Home, name)
}

// RegistryPath returns the absolute path of the project registry file.
func (c *Config) RegistryPath() string { return c.Path(c.RegistryFile) }

// ProcessedPath returns the absolute path of the processed-set file.
func (c *Config) ProcessedPath() string { return c.Path(c.ProcessedFile) }

// HistoryPath returns the absolute path of the history database.
func (c *Config) HistoryPath() string { return c.Path(c.HistoryDB) }

// GetSettleDelay returns the local watcher settle delay.
func (c *Config) GetSettleDelay() time.Duration {
	return parseDuration(c.Watcher.SettleDelay, time.Second)
}

// GetRegistryRefresh returns how often the local watcher re-syncs its watch list.
func (c *Config) GetRegistryRefresh() time.Duration {
	return parseDuration(c.Watcher.RegistryRefresh, 10*time.Second)
}

// GetPollInterval returns the remote polling interval.
func (c *Config) GetPollInterval() time.Duration {
	return parseDuration(c.Remote.PollInterval, 30*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// InterpreterArgs returns Gate.Args with the script placeholder substituted.
func (c *Config) InterpreterArgs(script string) []string {
	args := make([]string, len(c.Gate.Args))
	for i, a := range c.Gate.Args {
		args[i] = strings.ReplaceAll(a, ScriptPlaceholder, script)
	}
	return args
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Home) == "" {
		return fmt.Errorf("home directory not configured")
	}
	if strings.TrimSpace(c.Gate.Interpreter) == "" {
		return fmt.Errorf("gate interpreter not configured")
	}
	name := c.Gate.TempScriptName
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("invalid temp script name %q: must be a bare file name", name)
	}
	if c.Watcher.HeaderToken == "" {
		return fmt.Errorf("watcher header token not configured")
	}
	if c.Remote.PageSize <= 0 {
		return fmt.Errorf("remote page size must be positive, got %d", c.Remote.PageSize)
	}
	return nil
}
