package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"crforge/internal/logging"
)

// Settings holds crforge's ambient configuration: where CR resources live,
// where the LLM oracle is, and the formatting/hot-write defaults applied
// when a CLI invocation doesn't override them. Built by DefaultSettings,
// read and written by Load/Save with environment overrides applied after
// the file, plus GetXTimeout helpers.
type Settings struct {
	ResourcesDir string `yaml:"resources_dir"`
	ProjectDir   string `yaml:"project_dir"`

	Oracle OracleSettings `yaml:"oracle"`

	IgnoreDirs []string `yaml:"ignore_dirs"`
	MaxDepth   int      `yaml:"max_depth"`

	Formatter     string `yaml:"formatter"`
	FormatTimeout string `yaml:"format_timeout"`

	HotByDefault bool `yaml:"hot_by_default"`

	Logging LoggingSettings `yaml:"logging"`
}

// OracleSettings addresses the LLM text oracle used by the prompt phase.
// model_ip/model_default_port can each be overridden by an environment
// variable at load time.
type OracleSettings struct {
	Host    string `yaml:"model_ip"`
	Port    int    `yaml:"model_default_port"`
	Timeout string `yaml:"timeout"`
}

// LoggingSettings mirrors internal/logging's on-disk config shape. It is
// loaded and saved with the rest of Settings, but internal/logging does not
// read it: logging takes its config from <workspace>/crforge.json only.
type LoggingSettings struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
}

// DefaultSettings returns crforge's out-of-the-box configuration.
func DefaultSettings() *Settings {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Settings{
		ResourcesDir: filepath.Join(home, ".crforge", "resources"),
		ProjectDir:   ".",
		Oracle: OracleSettings{
			Host:    "localhost",
			Port:    9005,
			Timeout: "60s",
		},
		IgnoreDirs:    []string{".git", "__pycache__", ".venv", "node_modules"},
		MaxDepth:      12,
		Formatter:     "",
		FormatTimeout: "5s",
		HotByDefault:  false,
	}
}

// Load reads Settings from a YAML file at path, falling back to defaults
// when the file does not exist, then applies environment overrides.
func Load(path string) (*Settings, error) {
	s := DefaultSettings()
	logging.CLI("loading settings from %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.CLI("settings file not found, using defaults: %s", path)
			s.applyEnvOverrides()
			return s, nil
		}
		return nil, fmt.Errorf("config: read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("config: parse settings: %w", err)
	}
	s.applyEnvOverrides()
	return s, nil
}

// Save writes Settings to path as YAML.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir settings dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("config: marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write settings: %w", err)
	}
	return nil
}

// applyEnvOverrides applies the environment overrides for the oracle
// endpoint and resources directory: CRFORGE_MODEL_IP / CRFORGE_MODEL_PORT /
// CRFORGE_RESOURCES_DIR.
func (s *Settings) applyEnvOverrides() {
	if host := os.Getenv("CRFORGE_MODEL_IP"); host != "" {
		s.Oracle.Host = host
	}
	if port := os.Getenv("CRFORGE_MODEL_PORT"); port != "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil {
			s.Oracle.Port = p
		}
	}
	if dir := os.Getenv("CRFORGE_RESOURCES_DIR"); dir != "" {
		s.ResourcesDir = dir
	}
}

// OracleAddr returns the oracle's host:port address.
func (s *Settings) OracleAddr() string {
	return fmt.Sprintf("%s:%d", s.Oracle.Host, s.Oracle.Port)
}

// GetOracleTimeout returns the oracle HTTP timeout, defaulting to 60s on
// an unparseable value.
func (s *Settings) GetOracleTimeout() time.Duration {
	d, err := time.ParseDuration(s.Oracle.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetFormatTimeout returns the external formatter's wall-clock bound.
func (s *Settings) GetFormatTimeout() time.Duration {
	d, err := time.ParseDuration(s.FormatTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}
