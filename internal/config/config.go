package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// DefaultStudentID is used whenever no student id has been configured.
const DefaultStudentID = "anonymous"

// Config holds all configurable edulog settings.
type Config struct {
	StudentID          string   `json:"student_id"`
	EnableKeyLogging   *bool    `json:"enable_key_logging,omitempty"`
	EnableErrorLogging *bool    `json:"enable_error_logging,omitempty"`
	LogDir             string   `json:"log_dir"`
	PythonPath         string   `json:"python_path"`
	ExcludePatterns    []string `json:"exclude_patterns"`
}

// Defaults returns the default configuration values.
func Defaults() Config {
	yes := true
	return Config{
		StudentID:          DefaultStudentID,
		EnableKeyLogging:   &yes,
		EnableErrorLogging: &yes,
		LogDir:             ".",
		PythonPath:         "python3",
		ExcludePatterns:    []string{},
	}
}

// KeyLogging reports whether raw keystroke records should be captured.
func (c Config) KeyLogging() bool {
	return c.EnableKeyLogging == nil || *c.EnableKeyLogging
}

// ErrorLogging reports whether error records should be captured.
func (c Config) ErrorLogging() bool {
	return c.EnableErrorLogging == nil || *c.EnableErrorLogging
}

// GlobalPath returns the path of the global config file,
// ~/.config/edulog/config.json.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "edulog", "config.json"), nil
}

// LoadGlobal reads the global config file. Returns defaults if absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path, true)
}

// LoadProject reads .edulogconfig in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".edulogconfig", false)
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// SaveGlobal writes cfg to the global config file, creating the directory if
// needed.
func SaveGlobal(cfg *Config) error {
	path, err := GlobalPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults. A missing or empty student
// id always falls back to DefaultStudentID rather than failing.
func Merge(global, project *Config) Config {
	result := Defaults()

	apply := func(c *Config) {
		if c == nil {
			return
		}
		if c.StudentID != "" {
			result.StudentID = c.StudentID
		}
		if c.EnableKeyLogging != nil {
			result.EnableKeyLogging = c.EnableKeyLogging
		}
		if c.EnableErrorLogging != nil {
			result.EnableErrorLogging = c.EnableErrorLogging
		}
		if c.LogDir != "" {
			result.LogDir = c.LogDir
		}
		if c.PythonPath != "" {
			result.PythonPath = c.PythonPath
		}
		if len(c.ExcludePatterns) > 0 {
			result.ExcludePatterns = c.ExcludePatterns
		}
	}

	apply(global)
	apply(project)
	return result
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
