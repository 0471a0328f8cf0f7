package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	FaceAPI   FaceAPIConfig
	Whitelist WhitelistConfig
	Database  DatabaseConfig
	Door      DoorConfig
	Web       WebConfig
}

type FaceAPIConfig struct {
	URL           string
	Key           string
	RatePerMinute int // client-side request budget, 0 disables the limiter
}

type WhitelistConfig struct {
	Folder            string        // root folder, one subfolder per person
	ID                string        // overrides the id stored in the whitelist folder
	PollInterval      time.Duration // training status poll interval
	TrainingTimeout   time.Duration // 0 means wait until ctx is done
	DetectConcurrency int
	ImageExtensions   []string
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL, empty keeps the index in memory only
	MaxOpenConns int
	MaxIdleConns int
}

type DoorConfig struct {
	UnlockDuration time.Duration
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // CORS origins besides localhost
}

// Defaults mirrors defaults.yaml.
type Defaults struct {
	FaceAPI struct {
		URL           string `yaml:"url"`
		RatePerMinute int    `yaml:"rate_per_minute"`
	} `yaml:"face_api"`
	Whitelist struct {
		FolderName        string   `yaml:"folder_name"`
		PollInterval      string   `yaml:"poll_interval"`
		TrainingTimeout   string   `yaml:"training_timeout"`
		DetectConcurrency int      `yaml:"detect_concurrency"`
		ImageExtensions   []string `yaml:"image_extensions"`
	} `yaml:"whitelist"`
	Database struct {
		MaxOpenConns int `yaml:"max_open_conns"`
		MaxIdleConns int `yaml:"max_idle_conns"`
	} `yaml:"database"`
	Door struct {
		UnlockDuration string `yaml:"unlock_duration"`
	} `yaml:"door"`
	Web struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"web"`
}

// LoadDefaults parses the embedded defaults.
func LoadDefaults() Defaults {
	var d Defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// embedded file, can only fail on a broken build
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return d
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envDuration reads an environment variable as a Go duration ("1s", "5m").
// Falls back to def (itself a duration string) when unset or invalid.
func envDuration(key, def string) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d >= 0 {
			return d
		}
	}
	d, err := time.ParseDuration(def)
	if err != nil {
		return 0
	}
	return d
}

// envList splits a comma separated environment variable, dropping blanks.
func envList(key string) []string {
	var out []string
	for v := range strings.SplitSeq(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// defaultWhitelistFolder resolves the whitelist folder under the user's
// Pictures directory, falling back to the working directory.
func defaultWhitelistFolder(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, "Pictures", name)
}

func Load() *Config {
	d := LoadDefaults()

	return &Config{
		FaceAPI: FaceAPIConfig{
			URL:           envString("FACE_API_URL", d.FaceAPI.URL),
			Key:           os.Getenv("FACE_API_KEY"),
			RatePerMinute: envInt("FACE_API_RATE_PER_MINUTE", d.FaceAPI.RatePerMinute),
		},
		Whitelist: WhitelistConfig{
			Folder:            envString("WHITELIST_FOLDER", defaultWhitelistFolder(d.Whitelist.FolderName)),
			ID:                os.Getenv("WHITELIST_ID"),
			PollInterval:      envDuration("WHITELIST_POLL_INTERVAL", d.Whitelist.PollInterval),
			TrainingTimeout:   envDuration("WHITELIST_TRAINING_TIMEOUT", d.Whitelist.TrainingTimeout),
			DetectConcurrency: envInt("WHITELIST_DETECT_CONCURRENCY", d.Whitelist.DetectConcurrency),
			ImageExtensions:   d.Whitelist.ImageExtensions,
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", d.Database.MaxIdleConns),
		},
		Door: DoorConfig{
			UnlockDuration: envDuration("DOOR_UNLOCK_DURATION", d.Door.UnlockDuration),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", d.Web.Host),
			Port:           envInt("WEB_PORT", d.Web.Port),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}
