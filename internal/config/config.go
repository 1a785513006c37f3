package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	DBPath      string        `yaml:"db_path"`
	Addr        string        `yaml:"addr"`
	Token       string        `yaml:"token"`
	Remote      string        `yaml:"remote"`
	RedisURL    string        `yaml:"redis_url"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	DefaultUser string        `yaml:"default_user"`
	LogLevel    string        `yaml:"log_level"`
	Output      string        `yaml:"output"`
	Persist     string        `yaml:"persist"`
	Queue       string        `yaml:"queue"`
	Webhooks    []string      `yaml:"webhooks"`
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/wrkboard/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := &Config{
		Addr:     "127.0.0.1:7272",
		CacheTTL: time.Minute,
		LogLevel: "info",
		Output:   "table",
		Persist:  "all",
		Queue:    "queue",
	}

	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// The YAML file is optional.
	_ = loadYAMLConfig(cfg)

	if dbPath := getEnvOrFile("WRKBOARD_DB_PATH", "WRKBOARD_DB_PATH_FILE"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if token := getEnvOrFile("WRKBOARD_TOKEN", "WRKBOARD_TOKEN_FILE"); token != "" {
		cfg.Token = token
	}
	if addr := os.Getenv("WRKBOARD_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if remote := os.Getenv("WRKBOARD_REMOTE"); remote != "" {
		cfg.Remote = remote
	}
	if redisURL := os.Getenv("WRKBOARD_REDIS_URL"); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if ttl := os.Getenv("WRKBOARD_CACHE_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid WRKBOARD_CACHE_TTL: %w", err)
		}
		cfg.CacheTTL = d
	}
	if user := os.Getenv("WRKBOARD_USER"); user != "" {
		cfg.DefaultUser = user
	}
	if logLevel := os.Getenv("WRKBOARD_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if output := os.Getenv("WRKBOARD_OUTPUT"); output != "" {
		cfg.Output = output
	}
	if persist := os.Getenv("WRKBOARD_PERSIST"); persist != "" {
		cfg.Persist = persist
	}
	if queue := os.Getenv("WRKBOARD_QUEUE"); queue != "" {
		cfg.Queue = queue
	}

	if hooks := os.Getenv("WRKBOARD_WEBHOOKS"); hooks != "" {
		cfg.Webhooks = strings.Split(hooks, ",")
	}

	if cfg.DBPath == "" {
		// Project-local database first, then the user-global one.
		if _, err := os.Stat(".wrkboard/wrkboard.db"); err == nil {
			cfg.DBPath = ".wrkboard/wrkboard.db"
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			cfg.DBPath = filepath.Join(homeDir, ".local", "share", "wrkboard", "wrkboard.db")
		}
	}

	cfg.Token = strings.TrimSpace(cfg.Token)
	cfg.DBPath = strings.TrimSpace(cfg.DBPath)
	return cfg, nil
}

// loadYAMLConfig loads configuration from ~/.config/wrkboard/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(homeDir, ".config", "wrkboard", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return string(data)
		}
	}

	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
		if dir == homeDir {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// User returns the acting user.
// Priority: WRKBOARD_USER > config.default_user > $USER
func (c *Config) User() string {
	if user := os.Getenv("WRKBOARD_USER"); user != "" {
		return user
	}
	if c.DefaultUser != "" {
		return c.DefaultUser
	}
	return os.Getenv("USER")
}
