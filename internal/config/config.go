package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Ollama   OllamaConfig   `json:"ollama"`
	Search   SearchConfig   `json:"search"`
	Auth     AuthConfig     `json:"auth"`
	Chat     ChatConfig     `json:"chat"`
	Notify   NotifyConfig   `json:"notify"`
}

type ServerConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	CORSOrigins string `json:"cors_origins"`
	// PublicURL is the externally reachable base URL, used to build the
	// approve/decline links embedded in signup notifications.
	PublicURL string `json:"public_url"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslmode"`
}

type OllamaConfig struct {
	BaseURL     string  `json:"base_url"`
	Model       string  `json:"model"`
	VisionModel string  `json:"vision_model"`
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx"`
	KeepAlive   string  `json:"keep_alive"`
}

type SearchConfig struct {
	Endpoint   string `json:"endpoint"`
	APIKey     string `json:"api_key"`
	MaxResults int    `json:"max_results"`
}

type AuthConfig struct {
	JWTSecret  string `json:"jwt_secret"`
	AccessTTL  string `json:"access_ttl"`
	RefreshTTL string `json:"refresh_ttl"`
}

type ChatConfig struct {
	ContextTail       int    `json:"context_tail"`
	PageLimit         int    `json:"page_limit"`
	BackgroundTimeout string `json:"background_timeout"`
}

type NotifyConfig struct {
	SlackWebhookURL string `json:"slack_webhook_url"`
	GotifyURL       string `json:"gotify_url"`
	GotifyToken     string `json:"gotify_token"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	// Add config paths
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Check for user config directory
	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".chat-sudharsana"))
	}

	// Set defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.cors_origins", "http://localhost:8080,http://localhost:5173")
	viper.SetDefault("server.public_url", "http://localhost:8080")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "chat")
	viper.SetDefault("database.database", "chat")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("ollama.base_url", "http://localhost:11434")
	viper.SetDefault("ollama.model", "llama3.1")
	viper.SetDefault("ollama.vision_model", "llava")
	viper.SetDefault("ollama.temperature", 0.7)
	viper.SetDefault("ollama.num_ctx", 4096)
	viper.SetDefault("ollama.keep_alive", "5m")
	viper.SetDefault("search.endpoint", "https://api.search.brave.com/res/v1/web/search")
	viper.SetDefault("search.max_results", 5)
	viper.SetDefault("auth.access_ttl", "15m")
	viper.SetDefault("auth.refresh_ttl", "720h")
	viper.SetDefault("chat.context_tail", 5)
	viper.SetDefault("chat.page_limit", 50)
	viper.SetDefault("chat.background_timeout", "2m")

	// Read config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file is fine; defaults plus env overrides cover everything.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvOverrides(&cfg)

	return &cfg, nil
}

func loadEnvOverrides(cfg *Config) {
	if port := os.Getenv("CHAT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if host := os.Getenv("CHAT_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if origins := os.Getenv("CHAT_CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = origins
	}
	if publicURL := os.Getenv("CHAT_PUBLIC_URL"); publicURL != "" {
		cfg.Server.PublicURL = publicURL
	}

	// Database overrides
	if dbHost := os.Getenv("POSTGRES_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("POSTGRES_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			cfg.Database.Port = port
		}
	}
	if dbUser := os.Getenv("POSTGRES_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPass := os.Getenv("POSTGRES_PASSWORD"); dbPass != "" {
		cfg.Database.Password = dbPass
	}
	if dbName := os.Getenv("POSTGRES_DB"); dbName != "" {
		cfg.Database.Database = dbName
	}

	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		cfg.Ollama.BaseURL = baseURL
	}
	if model := os.Getenv("OLLAMA_MODEL"); model != "" {
		cfg.Ollama.Model = model
	}
	if model := os.Getenv("OLLAMA_VISION_MODEL"); model != "" {
		cfg.Ollama.VisionModel = model
	}

	if key := os.Getenv("BRAVE_API_KEY"); key != "" {
		cfg.Search.APIKey = key
	}

	if secret := os.Getenv("CHAT_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}

	if url := os.Getenv("SLACK_WEBHOOK_URL"); url != "" {
		cfg.Notify.SlackWebhookURL = url
	}
	if url := os.Getenv("GOTIFY_URL"); url != "" {
		cfg.Notify.GotifyURL = url
	}
	if token := os.Getenv("GOTIFY_TOKEN"); token != "" {
		cfg.Notify.GotifyToken = token
	}
}

// AccessTTLDuration parses the configured access token lifetime.
func (c AuthConfig) AccessTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.AccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTLDuration parses the configured refresh token lifetime.
func (c AuthConfig) RefreshTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.RefreshTTL)
	if err != nil || d <= 0 {
		return 30 * 24 * time.Hour
	}
	return d
}

// BackgroundTimeoutDuration parses the detached-task deadline.
func (c ChatConfig) BackgroundTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.BackgroundTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}
