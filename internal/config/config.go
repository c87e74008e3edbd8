package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	AppName     = "relic-reward-prices"
	EnvFileName = "config.env"
)

// ErrInvalidConfig is returned by Load when a variable cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	CaptureScreen = "screen"
	CaptureFile   = "file"

	RecognizerGlyph     = "glyph"
	RecognizerTesseract = "tesseract"
	RecognizerGemini    = "gemini"
)

// Config is the runtime configuration of the daemon, read from the
// environment.
type Config struct {
	CatalogPath   string
	CatalogMaxAge time.Duration

	PriceAPIURL          string
	PriceRefreshInterval time.Duration
	FetchTimeout         time.Duration

	CaptureSource  string
	CaptureImage   string
	CaptureDisplay int
	CaptureTimeout time.Duration

	// PollInterval runs a cycle on a timer; 0 disables polling.
	PollInterval time.Duration
	// EELogPath is the game log watched for reward screens; empty disables it.
	EELogPath  string
	EELogDelay time.Duration

	Recognizer    string
	GeminiAPIKey  string
	MinConfidence float64
	Theme         string

	OverlayOutput string
	HistoryDBPath string
	HistoryMaxAge time.Duration

	TelegramBotToken    string
	TelegramChatID      int64
	TelegramMinPlatinum float64

	HTTPAddr string
	LogLevel zerolog.Level
	LogFile  string
}

// Dir returns the application's directory under the user config directory.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// EnvFilePath returns the full path to the config file.
func EnvFilePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, EnvFileName), nil
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
// Variables already set in the environment win.
func LoadEnvFile() {
	path, err := EnvFilePath()
	if err != nil {
		return
	}
	_ = godotenv.Load(path)
}

// EnvFileExists reports whether the config file has been written.
func EnvFileExists() bool {
	path, err := EnvFilePath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// DefaultCatalogPath is where the catalog is cached when CATALOG_PATH is unset.
func DefaultCatalogPath() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, AppName, "filtered_items.json")
}

// DefaultEELogPath is the game log location for a standard install: the
// local app data directory on Windows, the Proton prefix of the Steam
// release elsewhere.
func DefaultEELogPath() string {
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, "Warframe", "EE.log")
		}
		return ""
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "Steam", "steamapps", "compatdata", "230410",
		"pfx", "drive_c", "users", "steamuser", "AppData", "Local", "Warframe", "EE.log")
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return Parse(os.LookupEnv)
}

// Parse reads the configuration through lookup. All problems are reported
// together.
func Parse(lookup func(string) (string, bool)) (*Config, error) {
	p := &parser{lookup: lookup}
	cfg := &Config{
		CatalogPath:   p.str("CATALOG_PATH", DefaultCatalogPath()),
		CatalogMaxAge: p.duration("CATALOG_MAX_AGE", 48*time.Hour),

		PriceAPIURL:          strings.TrimRight(p.str("PRICE_API_URL", "https://api.warframestat.us"), "/"),
		PriceRefreshInterval: p.duration("PRICE_REFRESH_INTERVAL", 5*time.Minute),
		FetchTimeout:         p.duration("FETCH_TIMEOUT", 20*time.Second),

		CaptureSource:  strings.ToLower(p.str("CAPTURE_SOURCE", CaptureScreen)),
		CaptureImage:   p.str("CAPTURE_IMAGE", ""),
		CaptureDisplay: p.integer("CAPTURE_DISPLAY", 0),
		CaptureTimeout: p.duration("CAPTURE_TIMEOUT", 2*time.Second),

		PollInterval: p.duration("POLL_INTERVAL", 0),
		EELogPath:    p.str("EE_LOG_PATH", DefaultEELogPath()),
		EELogDelay:   p.duration("EE_LOG_DELAY", 1500*time.Millisecond),

		Recognizer:    strings.ToLower(p.str("RECOGNIZER", RecognizerTesseract)),
		GeminiAPIKey:  p.str("GEMINI_API_KEY", ""),
		MinConfidence: p.float("MIN_CONFIDENCE", 0.6),
		Theme:         p.str("THEME", ""),

		OverlayOutput: p.str("OVERLAY_OUTPUT", ""),
		HistoryDBPath: p.str("HISTORY_DB_PATH", ""),
		HistoryMaxAge: p.duration("HISTORY_MAX_AGE", 30*24*time.Hour),

		TelegramBotToken:    p.str("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:      p.int64("TELEGRAM_CHAT_ID", 0),
		TelegramMinPlatinum: p.float("TELEGRAM_MIN_PLATINUM", 0),

		HTTPAddr: p.str("HTTP_ADDR", ""),
		LogLevel: p.level("LOG_LEVEL", zerolog.InfoLevel),
		LogFile:  p.str("LOG_FILE", AppName+".log"),
	}
	cfg.validate(p)
	if len(p.errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(p.errs...))
	}
	return cfg, nil
}

func (c *Config) validate(p *parser) {
	switch c.CaptureSource {
	case CaptureScreen:
	case CaptureFile:
		if c.CaptureImage == "" {
			p.fail("CAPTURE_IMAGE is required when CAPTURE_SOURCE is file")
		}
	default:
		p.fail("CAPTURE_SOURCE must be screen or file, got %q", c.CaptureSource)
	}

	switch c.Recognizer {
	case RecognizerGlyph, RecognizerTesseract:
	case RecognizerGemini:
		if c.GeminiAPIKey == "" {
			p.fail("GEMINI_API_KEY is required when RECOGNIZER is gemini")
		}
	default:
		p.fail("RECOGNIZER must be glyph, tesseract or gemini, got %q", c.Recognizer)
	}

	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		p.fail("MIN_CONFIDENCE must be between 0 and 1")
	}
	if c.CatalogPath == "" {
		p.fail("CATALOG_PATH must not be empty")
	}
	if c.PriceRefreshInterval <= 0 {
		p.fail("PRICE_REFRESH_INTERVAL must be positive")
	}
	if c.FetchTimeout <= 0 {
		p.fail("FETCH_TIMEOUT must be positive")
	}
	if c.PollInterval < 0 {
		p.fail("POLL_INTERVAL must not be negative")
	}
	if c.CaptureDisplay < 0 {
		p.fail("CAPTURE_DISPLAY must not be negative")
	}
	if c.TelegramBotToken != "" && c.TelegramChatID == 0 {
		p.fail("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
}

// TelegramEnabled reports whether notifications should be sent.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) fail(format string, args ...any) {
	p.errs = append(p.errs, fmt.Errorf(format, args...))
}

func (p *parser) str(key, def string) string {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	return strings.TrimSpace(v)
}

func (p *parser) raw(key string) (string, bool) {
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail("%s must be a duration like 5m or 30s: %w", key, err)
		return def
	}
	return d
}

func (p *parser) integer(key string, def int) int {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail("%s must be an integer: %w", key, err)
		return def
	}
	return n
}

func (p *parser) int64(key string, def int64) int64 {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail("%s must be a valid integer: %w", key, err)
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail("%s must be a number: %w", key, err)
		return def
	}
	return f
}

func (p *parser) level(key string, def zerolog.Level) zerolog.Level {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	l, err := zerolog.ParseLevel(strings.ToLower(v))
	if err != nil {
		p.fail("%s: %w", key, err)
		return def
	}
	return l
}
