package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Server holds the API server settings.
type Server struct {
	Port           string        `mapstructure:"port"`
	MongoURI       string        `mapstructure:"mongo_uri"`
	MongoDB        string        `mapstructure:"mongo_db"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
}

func DefaultServer() *Server {
	return &Server{
		Port:           "5000",
		MongoURI:       "mongodb://localhost:27017",
		MongoDB:        "task_db",
		TokenTTL:       24 * time.Hour,
		RequestTimeout: 5 * time.Second,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    2 * time.Minute,
	}
}

// LoadServer reads .env (if present), an optional config file and the
// environment, in increasing order of precedence.
func LoadServer(path string) (*Server, error) {
	godotenv.Load()

	cfg := DefaultServer()
	v := viper.New()
	v.SetDefault("port", cfg.Port)
	v.SetDefault("mongo_uri", cfg.MongoURI)
	v.SetDefault("mongo_db", cfg.MongoDB)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", cfg.TokenTTL)
	v.SetDefault("request_timeout", cfg.RequestTimeout)
	v.SetDefault("read_timeout", cfg.ReadTimeout)
	v.SetDefault("write_timeout", cfg.WriteTimeout)
	v.SetDefault("idle_timeout", cfg.IdleTimeout)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *Server) Validate() error {
	if s.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if s.TokenTTL <= 0 {
		return errors.New("token_ttl must be positive")
	}
	if s.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	return nil
}
