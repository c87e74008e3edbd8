package config

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(env(nil))
	require.NoError(t, err)

	assert.Equal(t, DefaultCatalogPath(), cfg.CatalogPath)
	assert.Equal(t, 48*time.Hour, cfg.CatalogMaxAge)
	assert.Equal(t, "https://api.warframestat.us", cfg.PriceAPIURL)
	assert.Equal(t, 5*time.Minute, cfg.PriceRefreshInterval)
	assert.Equal(t, 20*time.Second, cfg.FetchTimeout)
	assert.Equal(t, CaptureScreen, cfg.CaptureSource)
	assert.Equal(t, 2*time.Second, cfg.CaptureTimeout)
	assert.Zero(t, cfg.PollInterval)
	assert.Equal(t, DefaultEELogPath(), cfg.EELogPath)
	assert.Equal(t, RecognizerTesseract, cfg.Recognizer)
	assert.Equal(t, 0.6, cfg.MinConfidence)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.Equal(t, AppName+".log", cfg.LogFile)
	assert.False(t, cfg.TelegramEnabled())
}

func TestParseValues(t *testing.T) {
	cfg, err := Parse(env(map[string]string{
		"CATALOG_PATH":           "/tmp/items.json",
		"PRICE_API_URL":          "http://localhost:8080/",
		"PRICE_REFRESH_INTERVAL": "1m",
		"CAPTURE_SOURCE":         "FILE",
		"CAPTURE_IMAGE":          "/tmp/shot.png",
		"CAPTURE_DISPLAY":        "1",
		"POLL_INTERVAL":          "3s",
		"EE_LOG_PATH":            "",
		"RECOGNIZER":             "gemini",
		"GEMINI_API_KEY":         "key",
		"MIN_CONFIDENCE":         "0.75",
		"THEME":                  "Corpus",
		"TELEGRAM_BOT_TOKEN":     "123:abc",
		"TELEGRAM_CHAT_ID":       "-1001",
		"TELEGRAM_MIN_PLATINUM":  "10",
		"HTTP_ADDR":              ":8080",
		"LOG_LEVEL":              "DEBUG",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/items.json", cfg.CatalogPath)
	assert.Equal(t, "http://localhost:8080", cfg.PriceAPIURL)
	assert.Equal(t, time.Minute, cfg.PriceRefreshInterval)
	assert.Equal(t, CaptureFile, cfg.CaptureSource)
	assert.Equal(t, 1, cfg.CaptureDisplay)
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
	assert.Empty(t, cfg.EELogPath)
	assert.Equal(t, RecognizerGemini, cfg.Recognizer)
	assert.Equal(t, 0.75, cfg.MinConfidence)
	assert.Equal(t, "Corpus", cfg.Theme)
	assert.Equal(t, int64(-1001), cfg.TelegramChatID)
	assert.Equal(t, 10.0, cfg.TelegramMinPlatinum)
	assert.True(t, cfg.TelegramEnabled())
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"bad duration", map[string]string{"POLL_INTERVAL": "often"}, "POLL_INTERVAL"},
		{"negative poll", map[string]string{"POLL_INTERVAL": "-1s"}, "POLL_INTERVAL"},
		{"zero refresh", map[string]string{"PRICE_REFRESH_INTERVAL": "0s"}, "PRICE_REFRESH_INTERVAL"},
		{"unknown capture", map[string]string{"CAPTURE_SOURCE": "webcam"}, "CAPTURE_SOURCE"},
		{"file without image", map[string]string{"CAPTURE_SOURCE": "file"}, "CAPTURE_IMAGE"},
		{"unknown recognizer", map[string]string{"RECOGNIZER": "magic"}, "RECOGNIZER"},
		{"gemini without key", map[string]string{"RECOGNIZER": "gemini"}, "GEMINI_API_KEY"},
		{"confidence range", map[string]string{"MIN_CONFIDENCE": "1.5"}, "MIN_CONFIDENCE"},
		{"confidence number", map[string]string{"MIN_CONFIDENCE": "high"}, "MIN_CONFIDENCE"},
		{"chat id", map[string]string{"TELEGRAM_CHAT_ID": "me"}, "TELEGRAM_CHAT_ID"},
		{"token without chat", map[string]string{"TELEGRAM_BOT_TOKEN": "x"}, "TELEGRAM_CHAT_ID"},
		{"log level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"empty catalog", map[string]string{"CATALOG_PATH": ""}, "CATALOG_PATH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(env(tt.vars))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParseReportsAllErrors(t *testing.T) {
	_, err := Parse(env(map[string]string{"RECOGNIZER": "magic", "CAPTURE_SOURCE": "webcam"}))
	require.Error(t, err)
	assert.ErrorContains(t, err, "RECOGNIZER")
	assert.ErrorContains(t, err, "CAPTURE_SOURCE")
}

func TestWriteEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), AppName, EnvFileName)
	err := writeEnvFile(path, map[string]string{
		"RECOGNIZER":         "gemini",
		"GEMINI_API_KEY":     `k"ey`,
		"EE_LOG_PATH":        `C:\Users\me\AppData\Local\Warframe\EE.log`,
		"TELEGRAM_CHAT_ID":   "42",
		"TELEGRAM_BOT_TOKEN": "123:abc",
	})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	values, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", values["RECOGNIZER"])
	assert.Equal(t, `k"ey`, values["GEMINI_API_KEY"])
	assert.Equal(t, "42", values["TELEGRAM_CHAT_ID"])
}

func TestValidateTelegramToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/botgood/getMe" {
			w.Write([]byte(`{"ok":true,"result":{"id":1}}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer server.Close()

	old := telegramAPIURL
	telegramAPIURL = server.URL
	defer func() { telegramAPIURL = old }()

	assert.NoError(t, validateTelegramToken("good"))
	assert.EqualError(t, validateTelegramToken("bad"), "Unauthorized")
}

func TestValidateGeminiKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("key") {
		case "good":
			w.Write([]byte(`{"models":[]}`))
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
		}
	}))
	defer server.Close()

	old := geminiAPIURL
	geminiAPIURL = server.URL
	defer func() { geminiAPIURL = old }()

	assert.NoError(t, validateGeminiKey("good"))
	assert.EqualError(t, validateGeminiKey("bad"), "API key not valid")
	assert.EqualError(t, validateGeminiKey("broken"), "unexpected response (HTTP 500)")
}

func TestValidateLogPath(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, validateLogPath(""))
	assert.NoError(t, validateLogPath(filepath.Join(dir, "EE.log")))
	assert.Error(t, validateLogPath(filepath.Join(dir, "missing", "EE.log")))
}
