package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Package config provides configuration management for the ProductScene service

// Config struct to hold all configuration data
type Config struct {
	ListenAddr     string   `json:"listen_addr"`
	AllowedOrigins []string `json:"allowed_origins"`
	DataDir        string   `json:"data_dir"`

	StoreBackend string `json:"store_backend"` // "file" or "postgres"
	DatabaseURL  string `json:"database_url"`

	ProviderBaseURL string  `json:"provider_base_url"`
	ImageModel      string  `json:"image_model"`
	TextModel       string  `json:"text_model"`
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"top_k"`
	TopP            float64 `json:"top_p"`
	Variations      int     `json:"variations"`
	RequestsPerSec  float64 `json:"requests_per_sec"`

	VideoBaseURL      string   `json:"video_base_url"`
	VideoModel        string   `json:"video_model"`
	VideoPollInterval Duration `json:"video_poll_interval"`
	VideoMaxPolls     int      `json:"video_max_polls"`

	CropDebounce Duration `json:"crop_debounce"`
	SaveDebounce Duration `json:"save_debounce"`
}

var (
	instance *Config
	once     sync.Once
)

// GetConfig returns the singleton instance of Config.
func GetConfig() *Config {
	once.Do(func() {
		instance = Load(GetFilename())
	})
	return instance
}

// Load reads the config file at filename, falling back to defaults for anything
// missing, and applies environment overrides on top.
func Load(filename string) *Config {
	c := &Config{}
	c.setDefaultValues()
	if err := c.loadFromFile(filename); err != nil && !os.IsNotExist(err) {
		log.Printf("Error loading config %s: %v", filename, err)
	}
	c.loadEnv()
	return c
}

// GetFilename returns the path to the user's config file
func GetFilename() string {
	return filepath.Join(GetPath(), "config.json")
}

// GetPath returns the path to the user's config directory
func GetPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Error getting user home directory: %v", err)
	}
	return filepath.Join(homeDir, "."+strings.ToLower(ServiceName))
}

// loadFromFile loads configuration from the specified file
func (c *Config) loadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, c)
}

// loadEnv applies a .env file (outside production) and PRODUCTSCENE_* overrides.
func (c *Config) loadEnv() {
	if os.Getenv(EnvPrefix+"ENV") != "production" {
		// A missing .env is the normal case.
		_ = godotenv.Load()
	}

	c.ListenAddr = envOrDefault("LISTEN_ADDR", c.ListenAddr)
	if v := os.Getenv(EnvPrefix + "ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = strings.Split(v, ",")
	}
	c.DataDir = envOrDefault("DATA_DIR", c.DataDir)
	c.StoreBackend = envOrDefault("STORE_BACKEND", c.StoreBackend)
	c.DatabaseURL = envOrDefault("DATABASE_URL", c.DatabaseURL)
	c.ProviderBaseURL = envOrDefault("PROVIDER_BASE_URL", c.ProviderBaseURL)
	c.ImageModel = envOrDefault("IMAGE_MODEL", c.ImageModel)
	c.TextModel = envOrDefault("TEXT_MODEL", c.TextModel)
	c.Temperature = envOrDefaultFloat("TEMPERATURE", c.Temperature)
	c.TopK = envOrDefaultInt("TOP_K", c.TopK)
	c.TopP = envOrDefaultFloat("TOP_P", c.TopP)
	c.Variations = envOrDefaultInt("VARIATIONS", c.Variations)
	c.RequestsPerSec = envOrDefaultFloat("REQUESTS_PER_SEC", c.RequestsPerSec)
	c.VideoBaseURL = envOrDefault("VIDEO_BASE_URL", c.VideoBaseURL)
	c.VideoModel = envOrDefault("VIDEO_MODEL", c.VideoModel)
	c.VideoPollInterval = envOrDefaultDuration("VIDEO_POLL_INTERVAL", c.VideoPollInterval)
	c.VideoMaxPolls = envOrDefaultInt("VIDEO_MAX_POLLS", c.VideoMaxPolls)
	c.CropDebounce = envOrDefaultDuration("CROP_DEBOUNCE", c.CropDebounce)
	c.SaveDebounce = envOrDefaultDuration("SAVE_DEBOUNCE", c.SaveDebounce)
}

// setDefaultValues sets default values for the configuration
func (c *Config) setDefaultValues() {
	c.ListenAddr = "127.0.0.1:49460"
	c.AllowedOrigins = []string{"http://localhost:5173"}
	c.DataDir = filepath.Join(GetPath(), "data")
	c.StoreBackend = StoreBackendFile
	c.ProviderBaseURL = "https://openrouter.ai/api/v1"
	c.ImageModel = "google/gemini-2.5-flash-image"
	c.TextModel = "google/gemini-2.5-flash"
	c.Temperature = 0.4
	c.TopK = 32
	c.TopP = 0.95
	c.Variations = 3
	c.RequestsPerSec = 2
	c.VideoBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	c.VideoModel = "veo-3.0-fast-generate-001"
	c.VideoPollInterval = Duration{10 * time.Second}
	c.VideoMaxPolls = 60
	c.CropDebounce = Duration{600 * time.Millisecond}
	c.SaveDebounce = Duration{500 * time.Millisecond}
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Variations < 1 {
		return fmt.Errorf("variations must be >= 1, got %d", c.Variations)
	}
	if c.StoreBackend != StoreBackendFile && c.StoreBackend != StoreBackendPostgres {
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.StoreBackend == StoreBackendPostgres && c.DatabaseURL == "" {
		return fmt.Errorf("store backend %q requires a database url", c.StoreBackend)
	}
	if c.VideoMaxPolls < 1 {
		return fmt.Errorf("video max polls must be >= 1, got %d", c.VideoMaxPolls)
	}
	return nil
}

// Save saves the current configuration to the user's config file
func (c *Config) Save(filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config data: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback Duration) Duration {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return Duration{d}
		}
	}
	return fallback
}
