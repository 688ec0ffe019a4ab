package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Client configures the todo CLI.
type Client struct {
	Server  string        `yaml:"server" mapstructure:"server"`
	DBPath  string        `yaml:"db_path" mapstructure:"db_path"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Session is the signed-in user persisted between CLI invocations.
type Session struct {
	Token  string `yaml:"token"`
	UserID string `yaml:"user_id"`
	Email  string `yaml:"email"`
}

// ClientDir returns ~/.todo, or .todo when there is no home directory.
func ClientDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".todo"
	}
	return filepath.Join(home, ".todo")
}

func DefaultClient() *Client {
	return &Client{
		Server:  "http://localhost:5000",
		DBPath:  filepath.Join(ClientDir(), "todo.db"),
		Timeout: 10 * time.Second,
	}
}

// LoadClient loads the client config at path over the defaults. A missing
// file is not an error.
func LoadClient(path string) (*Client, error) {
	cfg := DefaultClient()
	if path == "" {
		path = filepath.Join(ClientDir(), "config.yaml")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TODO")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.DBPath = expandHome(cfg.DBPath)
	return cfg, nil
}

// WriteClient writes cfg as YAML, creating the parent directory.
func WriteClient(path string, cfg *Client) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return writeFile(path, data, 0644)
}

func SessionPath() string {
	return filepath.Join(ClientDir(), "session.yaml")
}

// LoadSession returns nil without error when nobody is signed in.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Token == "" {
		return nil, nil
	}
	return &s, nil
}

func SaveSession(path string, s *Session) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return writeFile(path, data, 0600)
}

func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func writeFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[1:])
		}
	}
	return p
}
