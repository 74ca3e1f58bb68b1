package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	clientConfigName = "config"
	clientConfigType = "yaml"
	clientConfigFile = "config.yaml"

	KeyAPIURL          = "api_url"
	KeyDataDir         = "data_dir"
	KeySyncMode        = "sync_mode"
	KeyRefreshInterval = "refresh_interval"
	KeyDebounce        = "debounce"
	KeyRequestTimeout  = "request_timeout"

	SyncModeDocument = "document"
	SyncModeField    = "field"
)

const defaultClientYAML = `# NoteGrid client configuration

api_url: http://127.0.0.1:8080

# document: debounced whole-record PUT; field: one request per change
sync_mode: document

# data_dir defaults to the config directory
# data_dir:
`

// ClientConfig configures the NoteGrid command line client.
type ClientConfig struct {
	APIURL          string
	DataDir         string
	SyncMode        string
	RefreshInterval time.Duration
	Debounce        time.Duration
	RequestTimeout  time.Duration
}

// DefaultConfigDir returns NOTEGRID_CONFIG_DIR, or ~/.notegrid.
func DefaultConfigDir() string {
	if dir := os.Getenv("NOTEGRID_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".notegrid"
	}
	return filepath.Join(home, ".notegrid")
}

// LoadClient reads config.yaml from configDir, writing a default one on first
// run. NOTEGRID_* environment variables override the file.
func LoadClient(configDir string) (ClientConfig, error) {
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return ClientConfig{}, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultClientConfig(configDir); err != nil {
		return ClientConfig{}, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(KeyAPIURL, "http://127.0.0.1:8080")
	v.SetDefault(KeyDataDir, configDir)
	v.SetDefault(KeySyncMode, SyncModeDocument)
	v.SetDefault(KeyRefreshInterval, 30*time.Second)
	v.SetDefault(KeyDebounce, 300*time.Millisecond)
	v.SetDefault(KeyRequestTimeout, 10*time.Second)
	v.SetConfigName(clientConfigName)
	v.SetConfigType(clientConfigType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("NOTEGRID")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return ClientConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := ClientConfig{
		APIURL:          strings.TrimRight(v.GetString(KeyAPIURL), "/"),
		DataDir:         v.GetString(KeyDataDir),
		SyncMode:        strings.ToLower(v.GetString(KeySyncMode)),
		RefreshInterval: v.GetDuration(KeyRefreshInterval),
		Debounce:        v.GetDuration(KeyDebounce),
		RequestTimeout:  v.GetDuration(KeyRequestTimeout),
	}
	if cfg.DataDir == "" {
		cfg.DataDir = configDir
	}
	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func (c ClientConfig) Validate() error {
	if c.APIURL == "" {
		return errors.New("api_url must not be empty")
	}
	if c.SyncMode != SyncModeDocument && c.SyncMode != SyncModeField {
		return fmt.Errorf("sync_mode must be %q or %q (got %q)", SyncModeDocument, SyncModeField, c.SyncMode)
	}
	if c.RefreshInterval <= 0 {
		return errors.New("refresh_interval must be positive")
	}
	if c.Debounce < 0 {
		return errors.New("debounce must not be negative")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	return nil
}

func ensureDefaultClientConfig(configDir string) error {
	path := filepath.Join(configDir, clientConfigFile)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultClientYAML), 0o600)
}
