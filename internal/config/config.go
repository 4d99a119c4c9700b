package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "CROSSTAB"
	dirName   = ".crosstab"
)

// Global configuration structure.
type Global struct {
	// Choice labels that mark a question's aggregate row.
	TotalLabels []string `mapstructure:"total_labels" yaml:"total_labels"`
	// Label for blank or missing raw answers.
	NoAnswerLabel string `mapstructure:"no_answer_label" yaml:"no_answer_label"`
	// Label of the marginal row and column of the counts sheet.
	MarginLabel string `mapstructure:"margin_label" yaml:"margin_label"`

	UntestableMark string `mapstructure:"untestable_mark" yaml:"untestable_mark"`
	PValueColumn   string `mapstructure:"p_value_column" yaml:"p_value_column"`
	MarkColumn     string `mapstructure:"mark_column" yaml:"mark_column"`
	CrosstabOrder  string `mapstructure:"crosstab_order" yaml:"crosstab_order"`

	// HTTP boundary
	ServeAddr   string `mapstructure:"serve_addr" yaml:"serve_addr"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Keys lists the settable keys in display order.
var Keys = []string{
	"total_labels",
	"no_answer_label",
	"margin_label",
	"untestable_mark",
	"p_value_column",
	"mark_column",
	"crosstab_order",
	"serve_addr",
	"max_upload_mb",
	"log_level",
}

var defaults = map[string]any{
	"total_labels":    []string{"全体", "Total"},
	"no_answer_label": "No Answer",
	"margin_label":    "Total",
	"untestable_mark": "検定不可",
	"p_value_column":  "p値",
	"mark_column":     "有意水準",
	"crosstab_order":  "lexical",
	"serve_addr":      ":8080",
	"max_upload_mb":   32,
	"log_level":       "info",
}

// DefaultPath returns ~/.crosstab/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName, "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.crosstab/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults. A .env file in
// the working directory is read first and never overrides the real
// environment.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, dirName))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// env values arrive as one comma-separated string
	c.TotalLabels = splitList(strings.Join(c.TotalLabels, ","))
	return &c, nil
}

// Set validates val for key and stores it in c.
func (c *Global) Set(key, val string) error {
	switch key {
	case "total_labels":
		labels := splitList(val)
		if len(labels) == 0 {
			return fmt.Errorf("total_labels needs at least one label")
		}
		c.TotalLabels = labels
	case "no_answer_label":
		c.NoAnswerLabel = val
	case "margin_label":
		c.MarginLabel = val
	case "untestable_mark":
		c.UntestableMark = val
	case "p_value_column", "mark_column":
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("%s cannot be blank", key)
		}
		if key == "p_value_column" {
			c.PValueColumn = val
		} else {
			c.MarkColumn = val
		}
	case "crosstab_order":
		switch val {
		case "lexical", "appearance", "definition":
			c.CrosstabOrder = val
		default:
			return fmt.Errorf("invalid crosstab_order: %s (use lexical, appearance or definition)", val)
		}
	case "serve_addr":
		c.ServeAddr = val
	case "max_upload_mb":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid int for max_upload_mb: %v", val)
		}
		c.MaxUploadMB = i
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

// Get renders the value of key for display.
func (c *Global) Get(key string) (string, bool) {
	switch key {
	case "total_labels":
		return strings.Join(c.TotalLabels, ","), true
	case "no_answer_label":
		return c.NoAnswerLabel, true
	case "margin_label":
		return c.MarginLabel, true
	case "untestable_mark":
		return c.UntestableMark, true
	case "p_value_column":
		return c.PValueColumn, true
	case "mark_column":
		return c.MarkColumn, true
	case "crosstab_order":
		return c.CrosstabOrder, true
	case "serve_addr":
		return c.ServeAddr, true
	case "max_upload_mb":
		return strconv.Itoa(c.MaxUploadMB), true
	case "log_level":
		return c.LogLevel, true
	}
	return "", false
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
