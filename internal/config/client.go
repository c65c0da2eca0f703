package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultServer is the production API base URL
const DefaultServer = "https://lang-translator.rentangoafrica.com/api/v1"

// Client holds the terminal client configuration
type Client struct {
	Server     string
	StatePath  string
	Timeout    time.Duration
	DeviceName string
	DeviceType string
	LogLevel   string
}

// NewClientViper returns a viper instance with the client defaults. Flags are bound by name;
// environment variables use the TRANSLATOR_ prefix with dashes as underscores.
func NewClientViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("server", DefaultServer)
	v.SetDefault("state", defaultStatePath())
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("device-name", "SA-Translator")
	v.SetDefault("device-type", "web")
	v.SetDefault("log-level", "warn")

	v.SetEnvPrefix("TRANSLATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}
	return v, nil
}

// LoadClient reads the optional config file (explicit path, or translator.yaml in the working
// directory or ~/.satranslator) and resolves the client configuration.
func LoadClient(v *viper.Viper, file string) (*Client, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("translator")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".satranslator"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Client{
		Server:     strings.TrimRight(v.GetString("server"), "/"),
		StatePath:  expandHome(v.GetString("state")),
		Timeout:    v.GetDuration("timeout"),
		DeviceName: v.GetString("device-name"),
		DeviceType: v.GetString("device-type"),
		LogLevel:   v.GetString("log-level"),
	}
	if cfg.Server == "" {
		return nil, fmt.Errorf("server must not be empty")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	return cfg, nil
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".satranslator/state.db"
	}
	return filepath.Join(home, ".satranslator", "state.db")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
