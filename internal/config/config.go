package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/debounce/internal/errors"
)

const (
	// ConfigBaseName is the configuration file name without extension.
	ConfigBaseName = "debounce"

	// DefaultName labels the CLI's value in logs and metrics.
	DefaultName = "input"

	// DefaultDelay is the default quiescence delay.
	DefaultDelay = 500 * time.Millisecond

	// DefaultQueueSize is the default event loop queue capacity.
	DefaultQueueSize = 256

	// DefaultLogLevel is the default slog level name.
	DefaultLogLevel = "info"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "debounce"

	// EnvDelay overrides the configured delay.
	EnvDelay = "DEBOUNCE_DELAY"
)

// searchOrder lists the extensions Load tries, in order.
var searchOrder = []string{".json", ".yaml", ".yml"}

// Config represents the complete debounce configuration.
type Config struct {
	// Name labels the value in logs and metrics.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Delay is the quiescence delay.
	Delay Duration `json:"delay,omitempty" yaml:"delay,omitempty"`

	// QueueSize is the event loop queue capacity.
	QueueSize int `json:"queue_size,omitempty" yaml:"queue_size,omitempty"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Watch contains settings for the watch command.
	Watch WatchConfig `json:"watch" yaml:"watch"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled prints the collected metrics when a command finishes.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Namespace is the metrics namespace.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// WatchConfig contains settings for the watch command.
type WatchConfig struct {
	// Ignore contains patterns whose events are dropped: base-name globs
	// ("*.swp"), path segments ("node_modules") or path globs ("build/*.o").
	Ignore []string `json:"ignore,omitempty" yaml:"ignore,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Name:      DefaultName,
		Delay:     Duration(DefaultDelay),
		QueueSize: DefaultQueueSize,
		LogLevel:  DefaultLogLevel,
		Metrics: MetricsConfig{
			Namespace: DefaultNamespace,
		},
		Watch: WatchConfig{
			Ignore: []string{".git", "node_modules", "*.swp", "*~"},
		},
	}
}

// Load reads configuration from the specified directory. It looks for
// debounce.json, debounce.yaml and debounce.yml in that order.
func Load(dir string) (*Config, error) {
	for _, ext := range searchOrder {
		path := filepath.Join(dir, ConfigBaseName+ext)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E141").
		WithDetail("No debounce.json or debounce.yaml found in " + dir).
		WithSuggestion("Create debounce.yaml or pass flags instead")
}

// LoadFile reads configuration from the specified file path. The format
// follows the file extension.
func LoadFile(path string) (*Config, error) {
	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No config file at " + path).
				WithSuggestion("Check the --config path")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	switch format {
	case "json":
		err = decodeJSON(path, data, cfg)
	default:
		err = decodeYAML(path, data, cfg)
	}
	if err != nil {
		return nil, err
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

func decodeJSON(path string, data []byte, cfg *Config) error {
	err := json.Unmarshal(data, cfg)
	if err == nil {
		return nil
	}

	var line, col int
	switch e := err.(type) {
	case *errors.Error:
		return locate(e, path)
	case *json.SyntaxError:
		line, col = lineCol(data, e.Offset)
	case *json.UnmarshalTypeError:
		line, col = lineCol(data, e.Offset)
	}

	return errors.New("E120").
		WithLocation(path, line, col).
		Wrap(err).
		WithSuggestion("Check that " + filepath.Base(path) + " is valid JSON")
}

// yamlLine extracts the line number from yaml.v3 error messages.
var yamlLine = regexp.MustCompile(`line (\d+)`)

func decodeYAML(path string, data []byte, cfg *Config) error {
	err := yaml.Unmarshal(data, cfg)
	if err == nil {
		return nil
	}

	if e, ok := err.(*errors.Error); ok {
		return locate(e, path)
	}

	line := 0
	if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
		line, _ = strconv.Atoi(m[1])
	}
	return errors.New("E120").
		WithLocation(path, line, 0).
		Wrap(err).
		WithSuggestion("Check that " + filepath.Base(path) + " is valid YAML")
}

// locate attaches path to an error raised while decoding a field.
func locate(e *errors.Error, path string) *errors.Error {
	line, col := 0, 0
	if e.Location != nil {
		line, col = e.Location.Line, e.Location.Column
	}
	return e.WithLocation(path, line, col)
}

// lineCol converts a byte offset into a 1-based line and column.
func lineCol(data []byte, offset int64) (line, col int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line, col = 1, 1
	for _, b := range data[:offset] {
		if b == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	}
	return "", errors.New("E150").
		WithDetail("Cannot load " + path + ": config files must end in .json, .yaml or .yml.").
		WithSuggestion("Rename the file to debounce.yaml")
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path in the format its extension
// names.
func (c *Config) SaveTo(path string) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}

	var data []byte
	if format == "json" {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return errors.New("E120").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills fields left empty by the file.
func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.QueueSize == 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() error {
	raw, ok := os.LookupEnv(EnvDelay)
	if !ok || raw == "" {
		return nil
	}

	d, err := parseDelay(raw)
	if err != nil {
		return errors.New("E121").
			WithDetail(fmt.Sprintf("%s=%q is not a valid delay.", EnvDelay, raw)).
			Wrap(err).
			WithExample(EnvDelay + "=300ms")
	}
	c.Delay = Duration(d)
	return nil
}

// metricNamespace is the character set Prometheus accepts in a name prefix.
var metricNamespace = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Delay < 0 {
		return errors.New("E121").
			WithDetail(fmt.Sprintf("delay is %s; it must not be negative.", time.Duration(c.Delay))).
			WithExample("delay: 300ms")
	}
	if c.QueueSize <= 0 {
		return errors.New("E122").
			WithDetail(fmt.Sprintf("queue_size is %d; it must be at least 1.", c.QueueSize)).
			WithExample("queue_size: 256")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.Metrics.Namespace != "" && !metricNamespace.MatchString(c.Metrics.Namespace) {
		return errors.New("E124").
			WithDetail(fmt.Sprintf("metrics.namespace %q is not a valid metric name prefix.", c.Metrics.Namespace))
	}
	return nil
}

// SlogLevel returns LogLevel as a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, errors.New("E123").
			Wrap(err).
			WithExample("log_level: debug")
	}
	return level, nil
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, ext := range searchOrder {
		if _, err := os.Stat(filepath.Join(dir, ConfigBaseName+ext)); err == nil {
			return true
		}
	}
	return false
}
